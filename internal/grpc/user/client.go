package user

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"
	grpccodes "google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/status"

	"github.com/GriffinCanCode/usertrace/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/usertrace/internal/infrastructure/tracing"
)

// ClientOptions configures a Client
type ClientOptions struct {
	// CallTimeout bounds each call when the caller's context has no
	// earlier deadline. Zero disables it.
	CallTimeout time.Duration
	// Breaker guards the connection; nil disables it
	Breaker *resilience.Breaker
	// Observer receives per-call metrics
	Observer tracing.RPCObserver
	// DialOptions are appended to the defaults
	DialOptions []grpc.DialOption
}

// Client calls the user service. The span in each call's context is
// propagated to the server.
type Client struct {
	conn        *grpc.ClientConn
	callTimeout time.Duration
	breaker     *resilience.Breaker
}

// NewClient creates a client for target. The connection is established
// lazily on the first call.
func NewClient(target string, opts ClientOptions) (*Client, error) {
	dialOpts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                60 * time.Second,
			Timeout:             20 * time.Second,
			PermitWithoutStream: false,
		}),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(CodecName)),
		grpc.WithChainUnaryInterceptor(tracing.GRPCClientInterceptor(opts.Observer)),
	}
	dialOpts = append(dialOpts, opts.DialOptions...)

	conn, err := grpc.NewClient(target, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create user service client: %w", err)
	}

	return &Client{
		conn:        conn,
		callTimeout: opts.CallTimeout,
		breaker:     opts.Breaker,
	}, nil
}

// NewBreaker returns a breaker for user service calls. Only transport
// level failures count against the server.
func NewBreaker(maxFailures uint32, openFor time.Duration) *resilience.Breaker {
	return resilience.New("user-service", resilience.Settings{
		MaxRequests: 3,
		Interval:    30 * time.Second,
		Timeout:     openFor,
		ReadyToTrip: func(counts resilience.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		IsSuccessful: func(err error) bool {
			switch status.Code(err) {
			case grpccodes.Unavailable, grpccodes.DeadlineExceeded, grpccodes.Internal, grpccodes.Unknown:
				return false
			default:
				return true
			}
		},
	})
}

// GetUserData returns the mobile number of userID, empty if the user does
// not exist
func (c *Client) GetUserData(ctx context.Context, userID int64) (string, error) {
	out := new(GetUserDataResponse)
	if err := c.invoke(ctx, GetUserDataMethod, &GetUserDataRequest{UserID: userID}, out); err != nil {
		return "", err
	}
	return out.MobileNumber, nil
}

// GetOrCreateUser creates the user unless it exists and reports whether
// this call created it
func (c *Client) GetOrCreateUser(ctx context.Context, userID int64, mobileNumber string) (bool, error) {
	out := new(GetOrCreateUserResponse)
	in := &GetOrCreateUserRequest{UserID: userID, MobileNumber: mobileNumber}
	if err := c.invoke(ctx, GetOrCreateUserMethod, in, out); err != nil {
		return false, err
	}
	return out.IsNewUser, nil
}

// Close closes the connection
func (c *Client) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

func (c *Client) invoke(ctx context.Context, method string, in, out interface{}) error {
	if c.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.callTimeout)
		defer cancel()
	}

	call := func(ctx context.Context) error {
		return c.conn.Invoke(ctx, method, in, out)
	}

	var err error
	if c.breaker != nil {
		err = c.breaker.Do(ctx, call)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	return nil
}
