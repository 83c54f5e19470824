// Package receipt turns payment records into numbered receipt documents.
package receipt

import (
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/patchlibrary/feedesk/internal/common"
	"github.com/patchlibrary/feedesk/internal/entity"
	"github.com/patchlibrary/feedesk/internal/words"
)

var maxAmount = decimal.NewFromInt(words.MaxConvertible)

// Composer assembles a ReceiptDocument from a student, a payment and the
// install's receipt settings. It is a pure transformation aside from the
// number generation and the issue-date timestamp read.
type Composer struct {
	numbers *NumberGenerator
	now     func() time.Time
	logger  *slog.Logger
}

// ComposerOption configures a Composer.
type ComposerOption func(*Composer)

// WithClock overrides the issue-date clock.
func WithClock(now func() time.Time) ComposerOption {
	return func(c *Composer) {
		if now != nil {
			c.now = now
		}
	}
}

// NewComposer creates a composer drawing numbers from the given generator.
func NewComposer(numbers *NumberGenerator, logger *slog.Logger, opts ...ComposerOption) *Composer {
	if numbers == nil {
		numbers = NewNumberGenerator(nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	c := &Composer{
		numbers: numbers,
		now:     time.Now,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compose validates the payment and builds the receipt document, including
// the words form of the floored rupee amount and a fresh receipt number.
func (c *Composer) Compose(student entity.StudentRecord, payment entity.PaymentRecord, settings entity.ReceiptSettings) (*entity.ReceiptDocument, error) {
	if payment.Amount.Sign() <= 0 {
		return nil, common.NewValidationError("payment.amount", payment.Amount.String(), "amount must be positive")
	}

	whole := payment.Amount.Floor()
	if whole.Cmp(maxAmount) > 0 {
		return nil, common.NewValidationError("payment.amount", payment.Amount.String(), "amount exceeds the crore scale")
	}
	amountInWords, err := words.InRupees(whole.IntPart())
	if err != nil {
		return nil, err
	}

	doc := &entity.ReceiptDocument{
		ReceiptNumber: c.numbers.Next(),
		IssuedAt:      c.now(),
		Student:       student,
		Payment:       payment,
		AmountInWords: amountInWords,
		Settings:      settings,
	}

	c.logger.Debug("receipt.composed",
		"receipt_number", doc.ReceiptNumber,
		"student", student.Name,
		"amount", payment.Amount.String())

	return doc, nil
}
