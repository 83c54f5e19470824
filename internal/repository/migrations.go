package repository

import (
	"context"
	"fmt"

	"github.com/patchlibrary/feedesk/internal/common"
)

// Migrations returns the schema statements for the given driver. Each
// string is a single statement. Timestamps are stored as RFC3339 text and
// money as decimal text so rows round-trip identically on both drivers.
func Migrations(driver string) []string {
	serial := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if driver == DriverPostgres {
		serial = "INTEGER PRIMARY KEY GENERATED ALWAYS AS IDENTITY"
	}

	return []string{
		`CREATE TABLE IF NOT EXISTS students (
			id             TEXT PRIMARY KEY,
			name           TEXT NOT NULL,
			father_name    TEXT NOT NULL DEFAULT '',
			enrollment_no  TEXT NOT NULL UNIQUE,
			seat_number    TEXT NOT NULL DEFAULT '',
			shift          TEXT NOT NULL DEFAULT '',
			timing         TEXT NOT NULL DEFAULT '',
			address        TEXT NOT NULL DEFAULT '',
			contact        TEXT NOT NULL DEFAULT '',
			monthly_fees   TEXT NOT NULL DEFAULT '0',
			join_date      TEXT NOT NULL DEFAULT '',
			fees_paid_till TEXT NOT NULL DEFAULT '',
			photo_path     TEXT,
			updated_at     TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_students_name ON students(name)`,

		`CREATE TABLE IF NOT EXISTS receipts (
			receipt_number  TEXT PRIMARY KEY,
			student_id      TEXT NOT NULL,
			student_name    TEXT NOT NULL,
			amount          TEXT NOT NULL,
			amount_in_words TEXT NOT NULL,
			method          TEXT NOT NULL DEFAULT 'Cash',
			billing_month   INTEGER NOT NULL,
			billing_year    INTEGER NOT NULL,
			issued_at       TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_receipts_student ON receipts(student_id)`,
		`CREATE INDEX IF NOT EXISTS idx_receipts_issued ON receipts(issued_at)`,

		`CREATE TABLE IF NOT EXISTS receipt_counters (
			day      TEXT PRIMARY KEY,
			last_seq INTEGER NOT NULL DEFAULT 0
		)`,

		`CREATE TABLE IF NOT EXISTS outbox_messages (
			id         TEXT PRIMARY KEY,
			student_id TEXT NOT NULL,
			phone      TEXT NOT NULL,
			body       TEXT NOT NULL,
			status     TEXT NOT NULL DEFAULT 'PENDING',
			error      TEXT,
			attempts   INTEGER NOT NULL DEFAULT 0,
			queued_at  TEXT NOT NULL,
			sent_at    TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_outbox_status ON outbox_messages(status, queued_at)`,

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS message_templates (
			id      %s,
			name    TEXT NOT NULL UNIQUE,
			content TEXT NOT NULL
		)`, serial),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS users (
			id            %s,
			username      TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			created_at    TEXT NOT NULL
		)`, serial),
	}
}

// Migrate applies the schema. Statements are idempotent, so this runs on
// every startup.
func Migrate(ctx context.Context, db *DB) error {
	for _, stmt := range Migrations(db.Driver()) {
		if _, err := db.sql.ExecContext(ctx, stmt); err != nil {
			db.logger.Error("migration failed", "error", err, "statement", stmt)
			return common.WrapError(err, "apply migration")
		}
	}
	db.logger.Info("database schema up to date", "statements", len(Migrations(db.Driver())))
	return nil
}
