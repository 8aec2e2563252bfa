package user

// GetUserDataRequest asks for a user's mobile number
type GetUserDataRequest struct {
	UserID int64 `json:"user_id"`
}

// GetUserDataResponse carries the mobile number, empty when the user does
// not exist
type GetUserDataResponse struct {
	MobileNumber string `json:"mobile_number"`
}

// GetOrCreateUserRequest creates the user unless it already exists
type GetOrCreateUserRequest struct {
	UserID       int64  `json:"user_id"`
	MobileNumber string `json:"mobile_number"`
}

// GetOrCreateUserResponse reports whether this call created the user
type GetOrCreateUserResponse struct {
	IsNewUser bool `json:"is_new_user"`
}
