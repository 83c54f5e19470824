package receipt

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/patchlibrary/feedesk/internal/common"
	"github.com/patchlibrary/feedesk/internal/entity"
)

func testStudent() entity.StudentRecord {
	return entity.StudentRecord{
		Name:         "Asha Verma",
		FatherName:   "Ramesh Verma",
		EnrollmentNo: "EN-2024-017",
		SeatNumber:   "42",
		Shift:        "Morning",
		Contact:      "9876543210",
		MonthlyFees:  decimal.NewFromInt(500),
	}
}

func testPayment(amount decimal.Decimal) entity.PaymentRecord {
	return entity.PaymentRecord{
		Amount:       amount,
		PaymentDate:  time.Date(2026, time.August, 21, 10, 0, 0, 0, time.UTC),
		BillingMonth: time.August,
		BillingYear:  2026,
	}
}

func TestComposerBuildsDocument(t *testing.T) {
	midnight := time.Date(2026, time.August, 21, 0, 0, 0, 0, time.UTC)
	issued := midnight.Add(10 * time.Hour)
	c := NewComposer(NewNumberGenerator(fixedClock(midnight)), nil, WithClock(fixedClock(issued)))

	doc, err := c.Compose(testStudent(), testPayment(decimal.NewFromFloat(1250.75)), entity.DefaultReceiptSettings())
	if err != nil {
		t.Fatalf("Compose returned error: %v", err)
	}
	if doc.ReceiptNumber != "PATCH2608210000" {
		t.Errorf("ReceiptNumber = %q, want %q", doc.ReceiptNumber, "PATCH2608210000")
	}
	if !doc.IssuedAt.Equal(issued) {
		t.Errorf("IssuedAt = %v, want %v", doc.IssuedAt, issued)
	}
	if doc.AmountInWords != "One Thousand Two Hundred Fifty Rupees Only" {
		t.Errorf("AmountInWords = %q", doc.AmountInWords)
	}
	if doc.Student.Name != "Asha Verma" {
		t.Errorf("Student.Name = %q, want snapshot of input", doc.Student.Name)
	}
	if !doc.Payment.Amount.Equal(decimal.NewFromFloat(1250.75)) {
		t.Errorf("Payment.Amount = %s, want 1250.75 unmodified", doc.Payment.Amount)
	}
}

func TestComposerFloorsFractionalRupees(t *testing.T) {
	c := NewComposer(nil, nil)
	doc, err := c.Compose(testStudent(), testPayment(decimal.NewFromFloat(999.99)), entity.DefaultReceiptSettings())
	if err != nil {
		t.Fatalf("Compose returned error: %v", err)
	}
	if doc.AmountInWords != "Nine Hundred Ninety Nine Rupees Only" {
		t.Errorf("AmountInWords = %q, want floored words", doc.AmountInWords)
	}
}

func TestComposerRejectsBadAmounts(t *testing.T) {
	tests := []struct {
		name   string
		amount decimal.Decimal
	}{
		{"zero", decimal.Zero},
		{"negative", decimal.NewFromInt(-100)},
		{"past crore scale", decimal.NewFromInt(10_000_000_000)},
	}

	c := NewComposer(nil, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Compose(testStudent(), testPayment(tt.amount), entity.DefaultReceiptSettings())
			if err == nil {
				t.Fatal("Compose expected error, got none")
			}
			if !errors.Is(err, common.ErrValidation) {
				t.Errorf("error = %v, want validation error", err)
			}
		})
	}
}
