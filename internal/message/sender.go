package message

import "context"

// Sender is the delivery collaborator. It receives a normalized phone
// number and the final message text and performs the actual hand-off to a
// messaging surface.
type Sender interface {
	Send(ctx context.Context, phone, text string) error
}
