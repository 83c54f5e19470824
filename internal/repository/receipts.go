package repository

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/patchlibrary/feedesk/internal/common"
	"github.com/patchlibrary/feedesk/internal/entity"
	"github.com/patchlibrary/feedesk/internal/receipt"
)

type ReceiptRepository interface {
	// RecordIssued appends a register row for a generated document.
	RecordIssued(ctx context.Context, doc *entity.ReceiptDocument) error
	// List returns register rows ordered by issue time, optionally bounded.
	List(ctx context.Context, fromDate, toDate *time.Time) ([]*entity.ReceiptRecord, error)
	// NextSequenced allocates a collision-free receipt number from the
	// per-day counter, for callers that cannot tolerate the millisecond
	// scheme's duplicate window.
	NextSequenced(ctx context.Context, day time.Time) (string, error)
}

type receiptRepository struct {
	db     *DB
	logger *slog.Logger
}

func NewReceiptRepository(db *DB, logger *slog.Logger) ReceiptRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &receiptRepository{db: db, logger: logger}
}

func (r *receiptRepository) RecordIssued(ctx context.Context, doc *entity.ReceiptDocument) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO receipts (receipt_number, student_id, student_name, amount,
			amount_in_words, method, billing_month, billing_year, issued_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.ReceiptNumber, doc.Student.ID.String(), doc.Student.Name,
		doc.Payment.Amount.String(), doc.AmountInWords, string(doc.Payment.Method),
		int(doc.Payment.BillingMonth), doc.Payment.BillingYear, fmtTime(doc.IssuedAt))
	if err != nil {
		r.logger.Error("failed to record receipt", "receipt_number", doc.ReceiptNumber, "error", err)
		return common.WrapError(err, "record receipt")
	}
	r.logger.Debug("receipt recorded", "receipt_number", doc.ReceiptNumber)
	return nil
}

func (r *receiptRepository) List(ctx context.Context, fromDate, toDate *time.Time) ([]*entity.ReceiptRecord, error) {
	query := `SELECT receipt_number, student_id, student_name, amount, amount_in_words,
		method, billing_month, billing_year, issued_at FROM receipts`
	var (
		conds []string
		args  []any
	)
	if fromDate != nil {
		conds = append(conds, "issued_at >= ?")
		args = append(args, fmtTime(*fromDate))
	}
	if toDate != nil {
		conds = append(conds, "issued_at <= ?")
		args = append(args, fmtTime(*toDate))
	}
	for i, c := range conds {
		if i == 0 {
			query += " WHERE " + c
		} else {
			query += " AND " + c
		}
	}
	query += " ORDER BY issued_at"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("failed to list receipts", "error", err)
		return nil, common.WrapError(err, "list receipts")
	}
	defer rows.Close()

	var out []*entity.ReceiptRecord
	for rows.Next() {
		var (
			rec                entity.ReceiptRecord
			id, amount, issued string
			month              int
		)
		if err := rows.Scan(&rec.ReceiptNumber, &id, &rec.StudentName, &amount,
			&rec.AmountInWords, &rec.Method, &month, &rec.BillingYear, &issued); err != nil {
			return nil, common.WrapError(err, "scan receipt")
		}
		rec.StudentID = parseUUID(id)
		rec.Amount = parseDecimal(amount)
		rec.BillingMonth = time.Month(month)
		rec.IssuedAt = parseTime(issued)
		out = append(out, &rec)
	}
	return out, rows.Err()
}

func (r *receiptRepository) NextSequenced(ctx context.Context, day time.Time) (string, error) {
	key := day.UTC().Format("060102")
	var seq int64
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO receipt_counters (day, last_seq) VALUES (?, 1)
		ON CONFLICT(day) DO UPDATE SET last_seq = receipt_counters.last_seq + 1
		RETURNING last_seq`, key).Scan(&seq)
	if err != nil {
		r.logger.Error("failed to allocate receipt sequence", "day", key, "error", err)
		return "", common.WrapError(err, "allocate receipt sequence")
	}
	return fmt.Sprintf("%s%s%04d", receipt.NumberPrefix, key, seq%10_000), nil
}
