package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"github.com/patchlibrary/feedesk/constants"
	"github.com/patchlibrary/feedesk/internal/batch"
	"github.com/patchlibrary/feedesk/internal/common"
	"github.com/patchlibrary/feedesk/internal/entity"
	"github.com/patchlibrary/feedesk/internal/ingest"
)

type paymentPayload struct {
	Amount       decimal.Decimal `json:"amount"`
	PaymentDate  string          `json:"payment_date,omitempty"`
	BillingMonth int             `json:"billing_month"`
	BillingYear  int             `json:"billing_year"`
	TxnRef       *string         `json:"txn_ref,omitempty"`
	Method       string          `json:"method,omitempty"`
}

func (p paymentPayload) toRecord() (entity.PaymentRecord, error) {
	if p.BillingMonth < 1 || p.BillingMonth > 12 {
		return entity.PaymentRecord{}, common.NewValidationError(
			"billing_month", fmt.Sprint(p.BillingMonth), "must be 1..12")
	}
	if p.BillingYear < 2000 {
		return entity.PaymentRecord{}, common.NewValidationError(
			"billing_year", fmt.Sprint(p.BillingYear), "must be 2000 or later")
	}

	paymentDate := time.Now()
	if p.PaymentDate != "" {
		t, err := time.Parse("2006-01-02", p.PaymentDate)
		if err != nil {
			return entity.PaymentRecord{}, common.NewValidationError(
				"payment_date", p.PaymentDate, "expected YYYY-MM-DD")
		}
		paymentDate = t
	}

	method, _ := constants.CanonicalizeMethod(p.Method)
	return entity.PaymentRecord{
		Amount:       p.Amount,
		PaymentDate:  paymentDate,
		BillingMonth: time.Month(p.BillingMonth),
		BillingYear:  p.BillingYear,
		TxnRef:       p.TxnRef,
		Method:       method,
	}, nil
}

type generateRequest struct {
	Enrollment string         `json:"enrollment"`
	Payment    paymentPayload `json:"payment"`
}

// handleGenerateReceipt issues one receipt for a stored student and returns
// the PDF bytes. The register row is written before the response; a receipt
// the register does not know about is never handed out.
func (s *Server) handleGenerateReceipt(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Enrollment == "" {
		writeError(w, http.StatusBadRequest, "enrollment is required")
		return
	}

	student, err := s.deps.Students.GetByEnrollment(r.Context(), req.Enrollment)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			writeError(w, http.StatusNotFound, "unknown enrollment "+req.Enrollment)
			return
		}
		s.logger.Error("receipt.student.lookup.failed", "enrollment", req.Enrollment, "error", err)
		writeError(w, http.StatusInternalServerError, "student lookup failed")
		return
	}

	payment, err := req.Payment.toRecord()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	doc, err := s.deps.Composer.Compose(*student, payment, s.deps.Settings)
	if err != nil {
		if errors.Is(err, common.ErrValidation) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("receipt.compose.failed", "enrollment", req.Enrollment, "error", err)
		writeError(w, http.StatusInternalServerError, "compose failed")
		return
	}

	pdf, err := s.deps.Renderer.Render(r.Context(), doc)
	if err != nil {
		s.logger.Error("receipt.render.failed",
			"receipt_number", doc.ReceiptNumber, "error", err)
		writeError(w, http.StatusInternalServerError, "render failed")
		return
	}

	if err := s.deps.Receipts.RecordIssued(r.Context(), doc); err != nil {
		s.logger.Error("receipt.register.failed",
			"receipt_number", doc.ReceiptNumber, "error", err)
		writeError(w, http.StatusInternalServerError, "register write failed")
		return
	}
	receiptsGeneratedTotal.Inc()

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", doc.ReceiptNumber+".pdf"))
	w.Header().Set("X-Receipt-Number", doc.ReceiptNumber)
	w.WriteHeader(http.StatusOK)
	w.Write(pdf)
}

type batchRequest struct {
	// Items is a work-file item array, taken verbatim.
	Items json.RawMessage `json:"items,omitempty"`
	// Enrollments selects stored students instead; Payment then supplies the
	// shared billing fields, with a zero amount meaning each student's
	// monthly fee.
	Enrollments []string        `json:"enrollments,omitempty"`
	Payment     *paymentPayload `json:"payment,omitempty"`
	// OutDir, when set, receives one <receipt-number>.pdf per success.
	OutDir string `json:"out_dir,omitempty"`
}

func (s *Server) handleBatchReceipts(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	items, err := s.resolveBatchItems(r, &req)
	if err != nil {
		if errors.Is(err, common.ErrValidation) || errors.Is(err, common.ErrNotFound) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("batch.resolve.failed", "error", err)
		writeError(w, http.StatusInternalServerError, "could not resolve batch items")
		return
	}

	if req.OutDir != "" {
		if err := os.MkdirAll(req.OutDir, 0o755); err != nil {
			s.logger.Error("batch.outdir.failed", "out_dir", req.OutDir, "error", err)
			writeError(w, http.StatusInternalServerError, "could not create output directory")
			return
		}
	}

	run := s.deps.Batch.Run(r.Context(), items, s.deps.Settings, nil)
	s.persistBatch(r, run, req.OutDir)

	batchItemsTotal.WithLabelValues("ok").Add(float64(run.Stats.Succeeded))
	batchItemsTotal.WithLabelValues("failed").Add(float64(run.Stats.Failed))

	writeJSON(w, http.StatusOK, map[string]any{
		"results": run.Results,
		"stats":   run.Stats,
	})
}

func (s *Server) resolveBatchItems(r *http.Request, req *batchRequest) ([]batch.Item, error) {
	if len(req.Items) > 0 {
		payload, err := json.Marshal(map[string]json.RawMessage{"items": req.Items})
		if err != nil {
			return nil, err
		}
		return ingest.Parse(payload, s.logger)
	}

	if len(req.Enrollments) == 0 {
		return nil, common.NewValidationError("items", "", "items or enrollments required")
	}
	if req.Payment == nil {
		return nil, common.NewValidationError("payment", "", "required with enrollments")
	}

	items := make([]batch.Item, 0, len(req.Enrollments))
	for _, enrollment := range req.Enrollments {
		student, err := s.deps.Students.GetByEnrollment(r.Context(), enrollment)
		if err != nil {
			if errors.Is(err, common.ErrNotFound) {
				return nil, common.NewValidationError("enrollments", enrollment, "unknown enrollment")
			}
			return nil, err
		}

		p := *req.Payment
		if p.Amount.IsZero() {
			p.Amount = student.MonthlyFees
		}
		payment, err := p.toRecord()
		if err != nil {
			return nil, err
		}
		items = append(items, batch.Item{Student: *student, Payment: payment})
	}
	return items, nil
}

// persistBatch writes PDFs and register rows for the run's successes. A
// failure at this stage demotes the item: the outcome list never reports a
// receipt the register or the output directory is missing.
func (s *Server) persistBatch(r *http.Request, run *batch.RunResult, outDir string) {
	for _, g := range run.Generated {
		if outDir != "" {
			path := filepath.Join(outDir, g.Document.ReceiptNumber+".pdf")
			if err := os.WriteFile(path, g.PDF, 0o644); err != nil {
				s.logger.Error("batch.pdf.write.failed", "path", path, "error", err)
				demote(run, g.Index, "write pdf: "+err.Error())
				continue
			}
		}
		if err := s.deps.Receipts.RecordIssued(r.Context(), g.Document); err != nil {
			s.logger.Error("batch.register.failed",
				"receipt_number", g.Document.ReceiptNumber, "error", err)
			demote(run, g.Index, "register: "+err.Error())
			continue
		}
		receiptsGeneratedTotal.Inc()
	}
}

func demote(run *batch.RunResult, index int, reason string) {
	res := &run.Results[index]
	if !res.OK {
		return
	}
	res.OK = false
	res.Err = reason
	run.Stats.Succeeded--
	run.Stats.Failed++
}

func (s *Server) handleListReceipts(w http.ResponseWriter, r *http.Request) {
	from, err := parseDateQuery(r, "from")
	if err != nil {
		writeError(w, http.StatusBadRequest, "from: expected YYYY-MM-DD")
		return
	}
	to, err := parseDateQuery(r, "to")
	if err != nil {
		writeError(w, http.StatusBadRequest, "to: expected YYYY-MM-DD")
		return
	}

	recs, err := s.deps.Receipts.List(r.Context(), from, to)
	if err != nil {
		s.logger.Error("receipt.list.failed", "error", err)
		writeError(w, http.StatusInternalServerError, "list failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"receipts": recs,
		"count":    len(recs),
	})
}
