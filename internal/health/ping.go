package health

import "context"

// HealthPinger is an optional fast path for checkers: a component that
// implements it (both SQL-backed stores ping their database handle) is
// probed directly instead of through a throwaway read. HealthPing must
// return nil when the component is healthy.
type HealthPinger interface {
	HealthPing(ctx context.Context) error
}
