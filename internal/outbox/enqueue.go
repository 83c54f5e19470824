package outbox

import (
	"context"
	"log/slog"

	"github.com/patchlibrary/feedesk/internal/entity"
	"github.com/patchlibrary/feedesk/internal/message"
	"github.com/patchlibrary/feedesk/internal/repository"
)

// BulkResult reports what a bulk enqueue actually queued.
type BulkResult struct {
	Queued  int      `json:"queued"`
	Skipped []string `json:"skipped,omitempty"`
}

// BulkEnqueue expands the template against each student and queues one
// message per student with a usable contact number. Students whose contact
// has no digits are skipped and reported by name. A storage failure aborts
// and returns what was queued so far.
func BulkEnqueue(ctx context.Context, store repository.OutboxRepository, template string, students []*entity.StudentRecord, logger *slog.Logger) (*BulkResult, error) {
	if logger == nil {
		logger = slog.Default()
	}
	res := &BulkResult{}
	for _, s := range students {
		phone := message.NormalizePhone(s.Contact)
		if phone == "" {
			res.Skipped = append(res.Skipped, s.Name)
			logger.Warn("outbox.enqueue.skipped", "student", s.Name, "reason", "no contact digits")
			continue
		}
		msg := &entity.OutboundMessage{
			StudentID: s.ID,
			Phone:     phone,
			Body:      message.Expand(template, *s),
		}
		if err := store.Enqueue(ctx, msg); err != nil {
			return res, err
		}
		outboxQueuedTotal.Inc()
		res.Queued++
	}
	logger.Info("outbox.enqueue.done", "queued", res.Queued, "skipped", len(res.Skipped))
	return res, nil
}
