package hub

import (
	"context"
	"errors"
)

// ErrNotConnected is returned by senders that require an open connection.
var ErrNotConnected = errors.New("hub: not connected")

// ErrSendFailed is returned by the loopback sender when it injects a
// failure.
var ErrSendFailed = errors.New("hub: send failed")

// Sender delivers one telemetry payload to the hub. Send blocks until the
// outcome is known or ctx is canceled. Implementations must be safe for
// concurrent use.
type Sender interface {
	Send(ctx context.Context, payload map[string]any) error
}

// Connector is implemented by senders that maintain a connection.
type Connector interface {
	Connect(ctx context.Context) error
	Disconnect()
}
