package repository

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/patchlibrary/feedesk/constants"
	"github.com/patchlibrary/feedesk/internal/common"
	"github.com/patchlibrary/feedesk/internal/entity"
)

type OutboxRepository interface {
	// Enqueue stores a fully resolved message as PENDING.
	Enqueue(ctx context.Context, msg *entity.OutboundMessage) error
	// DuePending returns the oldest PENDING messages, capped at limit.
	DuePending(ctx context.Context, limit int) ([]*entity.OutboundMessage, error)
	// MarkSending flips a message to SENDING and bumps its attempt count.
	MarkSending(ctx context.Context, id uuid.UUID) error
	// MarkSent records a successful hand-off.
	MarkSent(ctx context.Context, id uuid.UUID, at time.Time) error
	// MarkFailed records a terminal failure with its reason.
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) error
	// Get loads one message by id.
	Get(ctx context.Context, id uuid.UUID) (*entity.OutboundMessage, error)
	// Recent returns the newest messages regardless of status.
	Recent(ctx context.Context, limit int) ([]*entity.OutboundMessage, error)
}

type outboxRepository struct {
	db     *DB
	logger *slog.Logger
}

func NewOutboxRepository(db *DB, logger *slog.Logger) OutboxRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &outboxRepository{db: db, logger: logger}
}

const outboxColumns = `id, student_id, phone, body, status, error, queued_at, sent_at`

func (r *outboxRepository) Enqueue(ctx context.Context, msg *entity.OutboundMessage) error {
	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}
	if msg.Status == "" {
		msg.Status = constants.MessagePending
	}
	if msg.QueuedAt.IsZero() {
		msg.QueuedAt = time.Now()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO outbox_messages (`+outboxColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		msg.ID.String(), msg.StudentID.String(), msg.Phone, msg.Body,
		string(msg.Status), msg.Error, fmtTime(msg.QueuedAt), fmtTimePtr(msg.SentAt))
	if err != nil {
		r.logger.Error("failed to enqueue message", "phone", msg.Phone, "error", err)
		return common.WrapError(err, "enqueue message")
	}
	return nil
}

func (r *outboxRepository) DuePending(ctx context.Context, limit int) ([]*entity.OutboundMessage, error) {
	if limit <= 0 {
		limit = 50
	}
	return r.list(ctx, `
		SELECT `+outboxColumns+` FROM outbox_messages
		WHERE status = ? ORDER BY queued_at LIMIT ?`,
		string(constants.MessagePending), limit)
}

func (r *outboxRepository) Recent(ctx context.Context, limit int) ([]*entity.OutboundMessage, error) {
	if limit <= 0 {
		limit = 50
	}
	return r.list(ctx, `
		SELECT `+outboxColumns+` FROM outbox_messages
		ORDER BY queued_at DESC LIMIT ?`, limit)
}

func (r *outboxRepository) list(ctx context.Context, query string, args ...any) ([]*entity.OutboundMessage, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("failed to list outbox messages", "error", err)
		return nil, common.WrapError(err, "list outbox messages")
	}
	defer rows.Close()

	var out []*entity.OutboundMessage
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, common.WrapError(err, "scan outbox message")
		}
		out = append(out, msg)
	}
	return out, rows.Err()
}

func (r *outboxRepository) Get(ctx context.Context, id uuid.UUID) (*entity.OutboundMessage, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+outboxColumns+` FROM outbox_messages WHERE id = ?`, id.String())
	msg, err := scanMessage(row)
	if err != nil {
		if isNoRows(err) {
			return nil, common.ErrNotFound
		}
		r.logger.Error("failed to load outbox message", "id", id, "error", err)
		return nil, common.WrapError(err, "load outbox message")
	}
	return msg, nil
}

func (r *outboxRepository) MarkSending(ctx context.Context, id uuid.UUID) error {
	return r.setStatus(ctx, `
		UPDATE outbox_messages SET status = ?, attempts = attempts + 1
		WHERE id = ?`, string(constants.MessageSending), id.String())
}

func (r *outboxRepository) MarkSent(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.setStatus(ctx, `
		UPDATE outbox_messages SET status = ?, sent_at = ?, error = NULL
		WHERE id = ?`, string(constants.MessageSent), fmtTime(at), id.String())
}

func (r *outboxRepository) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	return r.setStatus(ctx, `
		UPDATE outbox_messages SET status = ?, error = ?
		WHERE id = ?`, string(constants.MessageFailed), reason, id.String())
}

func (r *outboxRepository) setStatus(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("failed to update message status", "error", err)
		return common.WrapError(err, "update message status")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func scanMessage(row rowScanner) (*entity.OutboundMessage, error) {
	var (
		msg     entity.OutboundMessage
		id, sid string
		queued  string
		sent    *string
	)
	if err := row.Scan(&id, &sid, &msg.Phone, &msg.Body, &msg.Status, &msg.Error, &queued, &sent); err != nil {
		return nil, err
	}
	msg.ID = parseUUID(id)
	msg.StudentID = parseUUID(sid)
	msg.QueuedAt = parseTime(queued)
	msg.SentAt = parseTimePtr(sent)
	return &msg, nil
}
