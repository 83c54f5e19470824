package entity

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/patchlibrary/feedesk/constants"
)

// PaymentRecord represents one fee payment for data transfer between layers.
type PaymentRecord struct {
	Amount       decimal.Decimal         `json:"amount"`
	PaymentDate  time.Time               `json:"payment_date"`
	BillingMonth time.Month              `json:"billing_month"`
	BillingYear  int                     `json:"billing_year"`
	TxnRef       *string                 `json:"txn_ref,omitempty"`
	Method       constants.PaymentMethod `json:"method"`
}

// BillingPeriod formats the month the payment covers, e.g. "August 2026".
func (p PaymentRecord) BillingPeriod() string {
	return fmt.Sprintf("%s %d", p.BillingMonth, p.BillingYear)
}
