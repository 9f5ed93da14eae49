// Package sender defines notification delivery interfaces and the AlertOver
// HTTP implementation.
package sender

import "context"

// Sender delivers a single notification to some destination.
// Implementations return nil only when the destination accepted the message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}
