package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/patchlibrary/feedesk/internal/common"
	"github.com/patchlibrary/feedesk/internal/entity"
)

type StudentRepository interface {
	Upsert(ctx context.Context, s *entity.StudentRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.StudentRecord, error)
	GetByEnrollment(ctx context.Context, enrollmentNo string) (*entity.StudentRecord, error)
	List(ctx context.Context) ([]*entity.StudentRecord, error)
}

type studentRepository struct {
	db     *DB
	logger *slog.Logger
}

func NewStudentRepository(db *DB, logger *slog.Logger) StudentRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &studentRepository{db: db, logger: logger}
}

const studentColumns = `id, name, father_name, enrollment_no, seat_number, shift, timing,
	address, contact, monthly_fees, join_date, fees_paid_till, photo_path`

// Upsert inserts a student or, when the enrollment number already exists,
// updates the stored row in place. The stored id survives re-ingests; the
// caller's record is updated to carry it.
func (r *studentRepository) Upsert(ctx context.Context, s *entity.StudentRecord) error {
	var existing string
	err := r.db.QueryRowContext(ctx,
		`SELECT id FROM students WHERE enrollment_no = ?`, s.EnrollmentNo).Scan(&existing)
	switch {
	case err == nil:
		s.ID = parseUUID(existing)
		_, err = r.db.ExecContext(ctx, `
			UPDATE students SET name = ?, father_name = ?, seat_number = ?, shift = ?,
				timing = ?, address = ?, contact = ?, monthly_fees = ?, join_date = ?,
				fees_paid_till = ?, photo_path = ?, updated_at = ?
			WHERE id = ?`,
			s.Name, s.FatherName, s.SeatNumber, s.Shift, s.Timing, s.Address, s.Contact,
			s.MonthlyFees.String(), fmtTime(s.JoinDate), fmtTime(s.FeesPaidTill),
			s.PhotoPath, fmtTime(time.Now()), s.ID.String())
	case isNoRows(err):
		if s.ID == uuid.Nil {
			s.ID = uuid.New()
		}
		_, err = r.db.ExecContext(ctx, `
			INSERT INTO students (`+studentColumns+`, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			s.ID.String(), s.Name, s.FatherName, s.EnrollmentNo, s.SeatNumber, s.Shift,
			s.Timing, s.Address, s.Contact, s.MonthlyFees.String(), fmtTime(s.JoinDate),
			fmtTime(s.FeesPaidTill), s.PhotoPath, fmtTime(time.Now()))
	}
	if err != nil {
		r.logger.Error("failed to upsert student", "enrollment_no", s.EnrollmentNo, "error", err)
		return common.WrapError(err, "upsert student")
	}
	return nil
}

func (r *studentRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.StudentRecord, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+studentColumns+` FROM students WHERE id = ?`, id.String())
	return r.scanStudent(row)
}

func (r *studentRepository) GetByEnrollment(ctx context.Context, enrollmentNo string) (*entity.StudentRecord, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+studentColumns+` FROM students WHERE enrollment_no = ?`, enrollmentNo)
	return r.scanStudent(row)
}

func (r *studentRepository) List(ctx context.Context) ([]*entity.StudentRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+studentColumns+` FROM students ORDER BY name`)
	if err != nil {
		r.logger.Error("failed to list students", "error", err)
		return nil, common.WrapError(err, "list students")
	}
	defer rows.Close()

	var out []*entity.StudentRecord
	for rows.Next() {
		s, err := scanStudentRow(rows)
		if err != nil {
			return nil, common.WrapError(err, "scan student")
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *studentRepository) scanStudent(row rowScanner) (*entity.StudentRecord, error) {
	s, err := scanStudentRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		r.logger.Error("failed to load student", "error", err)
		return nil, common.WrapError(err, "load student")
	}
	return s, nil
}

func scanStudentRow(row rowScanner) (*entity.StudentRecord, error) {
	var (
		s                          entity.StudentRecord
		id, fees, joined, paidTill string
	)
	if err := row.Scan(&id, &s.Name, &s.FatherName, &s.EnrollmentNo, &s.SeatNumber, &s.Shift,
		&s.Timing, &s.Address, &s.Contact, &fees, &joined, &paidTill, &s.PhotoPath); err != nil {
		return nil, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, err
	}
	s.ID = parsed
	s.MonthlyFees = parseDecimal(fees)
	s.JoinDate = parseTime(joined)
	s.FeesPaidTill = parseTime(paidTill)
	return &s, nil
}
