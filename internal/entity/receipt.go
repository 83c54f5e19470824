package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/patchlibrary/feedesk/constants"
)

// ReceiptDocument is the fully resolved description of one receipt, ready for
// rendering. Created fresh per generation; never mutated afterwards.
type ReceiptDocument struct {
	ReceiptNumber string          `json:"receipt_number"`
	IssuedAt      time.Time       `json:"issued_at"`
	Student       StudentRecord   `json:"student"`
	Payment       PaymentRecord   `json:"payment"`
	AmountInWords string          `json:"amount_in_words"`
	Settings      ReceiptSettings `json:"settings"`
}

// ReceiptSettings is caller-supplied presentation configuration, treated as
// immutable by the pipeline.
type ReceiptSettings struct {
	LogoPath     string              `json:"logo_path,omitempty"`
	AccentColor  string              `json:"accent_color"`
	StyledLayout bool                `json:"styled_layout"`
	IncludePhoto bool                `json:"include_photo"`
	PaperSize    constants.PaperSize `json:"paper_size"`
}

// DefaultReceiptSettings returns the settings used when an install has no
// settings file.
func DefaultReceiptSettings() ReceiptSettings {
	return ReceiptSettings{
		AccentColor:  "#1a73e8",
		StyledLayout: true,
		IncludePhoto: false,
		PaperSize:    constants.PaperA4,
	}
}

// ReceiptRecord is one row of the receipt register: the issued number and
// enough metadata to answer "what was receipted when". The rendered
// document bytes are never stored.
type ReceiptRecord struct {
	ReceiptNumber string                  `json:"receipt_number"`
	StudentID     uuid.UUID               `json:"student_id"`
	StudentName   string                  `json:"student_name"`
	Amount        decimal.Decimal         `json:"amount"`
	AmountInWords string                  `json:"amount_in_words"`
	Method        constants.PaymentMethod `json:"method"`
	BillingMonth  time.Month              `json:"billing_month"`
	BillingYear   int                     `json:"billing_year"`
	IssuedAt      time.Time               `json:"issued_at"`
}
