package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/patchlibrary/feedesk/constants"
)

// OutboundMessage represents one queued WhatsApp hand-off for data transfer
// between layers. Body and Phone are fully resolved before enqueueing; the
// deliverer never sees template tokens.
type OutboundMessage struct {
	ID        uuid.UUID               `json:"id"`
	StudentID uuid.UUID               `json:"student_id"`
	Phone     string                  `json:"phone"`
	Body      string                  `json:"body"`
	Status    constants.MessageStatus `json:"status"`
	Error     *string                 `json:"error,omitempty"`
	QueuedAt  time.Time               `json:"queued_at"`
	SentAt    *time.Time              `json:"sent_at,omitempty"`
}
