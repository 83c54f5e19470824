package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StudentRecord represents a student for data transfer between layers.
// The receipt/message pipeline treats it as read-only input.
type StudentRecord struct {
	ID           uuid.UUID       `json:"id"`
	Name         string          `json:"name"`
	FatherName   string          `json:"father_name"`
	EnrollmentNo string          `json:"enrollment_no"`
	SeatNumber   string          `json:"seat_number"`
	Shift        string          `json:"shift"`
	Timing       string          `json:"timing"`
	Address      string          `json:"address,omitempty"`
	Contact      string          `json:"contact"`
	MonthlyFees  decimal.Decimal `json:"monthly_fees"`
	JoinDate     time.Time       `json:"join_date"`
	FeesPaidTill time.Time       `json:"fees_paid_till"`
	PhotoPath    *string         `json:"photo_path,omitempty"`
}
