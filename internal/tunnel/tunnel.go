// Package tunnel exposes a local port at a public URL for live
// development.
package tunnel

import "context"

// Tunnel forwards a public URL to a local port.
type Tunnel interface {
	// Connect opens the tunnel and returns its public URL.
	Connect(ctx context.Context, port int) (string, error)
	// Disconnect closes the tunnel. Disconnecting a tunnel that never
	// connected is a no-op.
	Disconnect() error
}
