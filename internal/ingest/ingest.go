// Package ingest loads batch work files: JSON documents pairing students
// with the payments to receipt. Files are schema-validated before any item
// is mapped, so a malformed file is rejected whole rather than half-run.
package ingest

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"github.com/patchlibrary/feedesk/constants"
	"github.com/patchlibrary/feedesk/internal/batch"
	"github.com/patchlibrary/feedesk/internal/common"
	"github.com/patchlibrary/feedesk/internal/entity"
)

const dateLayout = "2006-01-02"

type workFile struct {
	Items []workItem `json:"items"`
}

type workItem struct {
	Student workStudent `json:"student"`
	Payment workPayment `json:"payment"`
}

type workStudent struct {
	Name         string          `json:"name"`
	FatherName   string          `json:"father_name"`
	EnrollmentNo string          `json:"enrollment_no"`
	SeatNumber   string          `json:"seat_number"`
	Shift        string          `json:"shift"`
	Timing       string          `json:"timing"`
	Address      string          `json:"address"`
	Contact      string          `json:"contact"`
	MonthlyFees  decimal.Decimal `json:"monthly_fees"`
	JoinDate     string          `json:"join_date"`
	FeesPaidTill string          `json:"fees_paid_till"`
	PhotoPath    *string         `json:"photo_path"`
}

type workPayment struct {
	Amount       decimal.Decimal `json:"amount"`
	PaymentDate  string          `json:"payment_date"`
	BillingMonth int             `json:"billing_month"`
	BillingYear  int             `json:"billing_year"`
	TxnRef       *string         `json:"txn_ref"`
	Method       string          `json:"method"`
}

// LoadFile reads and parses the work file at path.
func LoadFile(path string, logger *slog.Logger) ([]batch.Item, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, common.WrapError(err, "read work file")
	}
	return Parse(raw, logger)
}

// Parse validates raw against the work file schema and maps it to batch
// items. Unrecognized payment methods fall back to Cash with a warning.
func Parse(raw []byte, logger *slog.Logger) ([]batch.Item, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if err := validateJSONAgainstSchema(workFileSchema(), raw); err != nil {
		return nil, common.NewValidationError("work_file", "", err.Error())
	}

	var wf workFile
	if err := json.Unmarshal(raw, &wf); err != nil {
		return nil, common.NewValidationError("work_file", "", err.Error())
	}

	items := make([]batch.Item, 0, len(wf.Items))
	for i, wi := range wf.Items {
		item, err := mapItem(i, wi, logger)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	logger.Info("ingest.loaded", "items", len(items))
	return items, nil
}

func mapItem(index int, wi workItem, logger *slog.Logger) (batch.Item, error) {
	joinDate, err := parseDate(index, "student.join_date", wi.Student.JoinDate)
	if err != nil {
		return batch.Item{}, err
	}
	paidTill, err := parseDate(index, "student.fees_paid_till", wi.Student.FeesPaidTill)
	if err != nil {
		return batch.Item{}, err
	}
	paymentDate, err := parseDate(index, "payment.payment_date", wi.Payment.PaymentDate)
	if err != nil {
		return batch.Item{}, err
	}
	if paymentDate.IsZero() {
		paymentDate = time.Now()
	}

	method, ok := constants.CanonicalizeMethod(wi.Payment.Method)
	if !ok && wi.Payment.Method != "" {
		logger.Warn("ingest.method.unrecognized",
			"index", index,
			"method", wi.Payment.Method,
			"fallback", string(method))
	}

	return batch.Item{
		Student: entity.StudentRecord{
			Name:         wi.Student.Name,
			FatherName:   wi.Student.FatherName,
			EnrollmentNo: wi.Student.EnrollmentNo,
			SeatNumber:   wi.Student.SeatNumber,
			Shift:        wi.Student.Shift,
			Timing:       wi.Student.Timing,
			Address:      wi.Student.Address,
			Contact:      wi.Student.Contact,
			MonthlyFees:  wi.Student.MonthlyFees,
			JoinDate:     joinDate,
			FeesPaidTill: paidTill,
			PhotoPath:    wi.Student.PhotoPath,
		},
		Payment: entity.PaymentRecord{
			Amount:       wi.Payment.Amount,
			PaymentDate:  paymentDate,
			BillingMonth: time.Month(wi.Payment.BillingMonth),
			BillingYear:  wi.Payment.BillingYear,
			TxnRef:       wi.Payment.TxnRef,
			Method:       method,
		},
	}, nil
}

func parseDate(index int, field, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, common.NewValidationError(
			fmt.Sprintf("items[%d].%s", index, field), value, "expected YYYY-MM-DD")
	}
	return t, nil
}
