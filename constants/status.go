package constants

// MessageStatus is the canonical status for rows in outbox_messages.
type MessageStatus string

// Stable values (store these exact strings in DB).
const (
	MessagePending MessageStatus = "PENDING" // queued, not yet attempted
	MessageSending MessageStatus = "SENDING" // handed to the deliverer
	MessageSent    MessageStatus = "SENT"    // deliverer accepted the hand-off
	MessageFailed  MessageStatus = "FAILED"  // terminal failure
)
