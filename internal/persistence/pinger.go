package persistence

import "context"

// Pinger is a backend that can report its reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}
