/*
Package resilience provides a circuit breaker for calls to remote
dependencies such as the user store backends and the user service.

# States

  - Closed: calls pass through; failures are counted
  - Open: calls fail fast with ErrCircuitOpen
  - Half-Open: a limited number of trial calls decide whether to close again

	Closed --[failures]-> Open --[timeout]-> Half-Open --[successes]-> Closed
	                                           |
	                                    [failure]
	                                           v
	                                         Open

# Usage

	breaker := resilience.New("store", resilience.Settings{
		Timeout: 10 * time.Second,
		ReadyToTrip: func(counts resilience.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, storage.ErrNotFound)
		},
	})

	rec, err := resilience.Call(ctx, breaker, func(ctx context.Context) (storage.Record, error) {
		return backend.Get(ctx, userID)
	})
*/
package resilience
