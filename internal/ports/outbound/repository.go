// Package outbound contains the secondary/outbound ports.
// These interfaces are implemented by infrastructure adapters.
package outbound

import "context"

// Pinger is implemented by adapters whose backing service can be probed.
type Pinger interface {
	Ping(ctx context.Context) error
}
