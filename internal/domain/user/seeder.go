package user

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/usertrace/internal/infrastructure/storage"
)

// User is a record to preload
type User struct {
	ID           int64
	MobileNumber string
}

// Seed inserts users that do not exist yet. Existing users are left alone,
// so seeding on every start is safe.
func (s *Store) Seed(ctx context.Context, users ...User) error {
	var created int
	for _, u := range users {
		_, isNew, err := s.backend.PutIfAbsent(ctx, storage.Record{
			UserID:       u.ID,
			MobileNumber: u.MobileNumber,
			CreatedAt:    s.now().UTC(),
		})
		if err != nil {
			return fmt.Errorf("seeding user %d: %w", u.ID, err)
		}
		if isNew {
			created++
		}
	}

	s.logger.Info("seeded users", zap.Int("requested", len(users)), zap.Int("created", created))
	return nil
}
