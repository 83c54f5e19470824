package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"golang.org/x/crypto/bcrypt"

	"github.com/patchlibrary/feedesk/internal/batch"
	"github.com/patchlibrary/feedesk/internal/credential"
	"github.com/patchlibrary/feedesk/internal/entity"
	"github.com/patchlibrary/feedesk/internal/export"
	"github.com/patchlibrary/feedesk/internal/receipt"
	"github.com/patchlibrary/feedesk/internal/render"
	"github.com/patchlibrary/feedesk/internal/repository"
)

// tickingClock hands out strictly increasing timestamps so receipt numbers
// never collide inside one test.
type tickingClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *tickingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Millisecond)
	return c.now
}

type stubRenderer struct{}

func (stubRenderer) Render(ctx context.Context, doc *entity.ReceiptDocument) ([]byte, error) {
	return []byte("%PDF-1.4 " + doc.ReceiptNumber), nil
}

type testEnv struct {
	srv      *Server
	handler  http.Handler
	students repository.StudentRepository
	receipts repository.ReceiptRepository
	outbox   repository.OutboxRepository
	users    repository.UserRepository
	hasher   *credential.Hasher
	token    string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	db, err := repository.Open(ctx, repository.Config{
		Driver: repository.DriverSQLite,
		DSN:    filepath.Join(t.TempDir(), "feedesk.db"),
	}, logger)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(db.Close)
	if err := repository.Migrate(ctx, db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	students := repository.NewStudentRepository(db, logger)
	receipts := repository.NewReceiptRepository(db, logger)
	outboxRepo := repository.NewOutboxRepository(db, logger)
	templates := repository.NewTemplateRepository(db, logger)
	users := repository.NewUserRepository(db, logger)

	hasher := credential.NewHasher(credential.Config{
		LegacySalt: "pepper",
		BcryptCost: bcrypt.MinCost,
	}, logger)

	clock := &tickingClock{now: time.Date(2026, 8, 21, 0, 0, 0, 0, time.UTC)}
	numbers := receipt.NewNumberGenerator(clock.Now)
	composer := receipt.NewComposer(numbers, logger, receipt.WithClock(clock.Now))
	var renderer render.Renderer = stubRenderer{}
	orch := batch.NewOrchestrator(composer, renderer, logger, batch.WithDelay(0))
	exporter := export.NewService(receipts, logger)

	srv := NewServer(Config{JWTSecret: "test-secret", JWTTTL: time.Hour}, Deps{
		Students:  students,
		Receipts:  receipts,
		Outbox:    outboxRepo,
		Templates: templates,
		Users:     users,
		Composer:  composer,
		Renderer:  renderer,
		Batch:     orch,
		Exporter:  exporter,
		Hasher:    hasher,
		Settings:  entity.DefaultReceiptSettings(),
	}, logger)

	stored, err := hasher.Hash("secret")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if _, err := users.Create(ctx, "admin", stored.Value); err != nil {
		t.Fatalf("seed user: %v", err)
	}

	seed := []entity.StudentRecord{
		{
			Name:         "Asha Verma",
			FatherName:   "Ramesh Verma",
			EnrollmentNo: "PL-00042",
			SeatNumber:   "A-17",
			Shift:        "Morning",
			Contact:      "9876543210",
			MonthlyFees:  decimal.RequireFromString("750.50"),
		},
		{
			Name:         "Ravi Kumar",
			EnrollmentNo: "PL-00043",
			Contact:      "9123456780",
			MonthlyFees:  decimal.RequireFromString("650"),
		},
		{
			Name:         "Zed Nophone",
			EnrollmentNo: "PL-00044",
			Contact:      "n/a",
			MonthlyFees:  decimal.RequireFromString("500"),
		},
	}
	for i := range seed {
		if err := students.Upsert(ctx, &seed[i]); err != nil {
			t.Fatalf("seed student %s: %v", seed[i].EnrollmentNo, err)
		}
	}

	token, _, err := srv.issueToken("admin", time.Now().UTC())
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	return &testEnv{
		srv:      srv,
		handler:  srv.Router(),
		students: students,
		receipts: receipts,
		outbox:   outboxRepo,
		users:    users,
		hasher:   hasher,
		token:    token,
	}
}

func (e *testEnv) do(t *testing.T, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, target, rd)
	if e.token != "" {
		req.Header.Set("Authorization", "Bearer "+e.token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response: %v (body %s)", err, w.Body.String())
	}
}

func TestHealthAndMetrics(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("health = %d", w.Code)
	}

	w = env.do(t, http.MethodGet, "/metrics", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("metrics = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "feedesk_") {
		t.Error("metrics output should carry feedesk_ series")
	}
}

func TestLoginFlow(t *testing.T) {
	env := newTestEnv(t)
	env.token = ""

	w := env.do(t, http.MethodPost, "/login", map[string]string{
		"username": "admin", "password": "wrong",
	})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("wrong password = %d", w.Code)
	}

	w = env.do(t, http.MethodPost, "/login", map[string]string{"username": "admin"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing password = %d", w.Code)
	}

	w = env.do(t, http.MethodPost, "/login", map[string]string{
		"username": "nobody", "password": "secret",
	})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("unknown user = %d", w.Code)
	}

	w = env.do(t, http.MethodPost, "/login", map[string]string{
		"username": "admin", "password": "secret",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("login = %d (%s)", w.Code, w.Body.String())
	}
	var resp struct {
		Token     string `json:"token"`
		ExpiresAt string `json:"expires_at"`
	}
	decodeBody(t, w, &resp)
	if resp.Token == "" || resp.ExpiresAt == "" {
		t.Fatalf("incomplete login response: %+v", resp)
	}

	env.token = resp.Token
	if w := env.do(t, http.MethodGet, "/api/receipts", nil); w.Code != http.StatusOK {
		t.Errorf("issued token rejected: %d", w.Code)
	}
}

func TestLoginUpgradesLegacyHash(t *testing.T) {
	env := newTestEnv(t)
	env.token = ""
	ctx := context.Background()

	legacy := env.hasher.EncodeLegacy("oldpass")
	if _, err := env.users.Create(ctx, "legacyuser", legacy.Value); err != nil {
		t.Fatalf("seed legacy user: %v", err)
	}

	w := env.do(t, http.MethodPost, "/login", map[string]string{
		"username": "legacyuser", "password": "oldpass",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("legacy login = %d (%s)", w.Code, w.Body.String())
	}

	u, err := env.users.GetByUsername(ctx, "legacyuser")
	if err != nil {
		t.Fatalf("reload user: %v", err)
	}
	if !strings.HasPrefix(u.PasswordHash, "$2") {
		t.Errorf("hash not upgraded to bcrypt: %q", u.PasswordHash)
	}
	if !env.hasher.Verify("oldpass", credential.Parse(u.PasswordHash)) {
		t.Error("upgraded hash no longer verifies")
	}
}

func TestAuthRequired(t *testing.T) {
	env := newTestEnv(t)

	env.token = ""
	if w := env.do(t, http.MethodGet, "/api/receipts", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("no token = %d, want 401", w.Code)
	}

	env.token = "not-a-token"
	if w := env.do(t, http.MethodGet, "/api/receipts", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("bad token = %d, want 401", w.Code)
	}
}

func TestGenerateReceipt(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/receipts", map[string]any{
		"enrollment": "PL-00042",
		"payment": map[string]any{
			"amount":        "500",
			"billing_month": 8,
			"billing_year":  2026,
			"method":        "gpay",
		},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("generate = %d (%s)", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Errorf("content type = %q", ct)
	}

	number := w.Header().Get("X-Receipt-Number")
	if len(number) != receipt.NumberWidth || !strings.HasPrefix(number, "PATCH260821") {
		t.Errorf("receipt number = %q", number)
	}
	if !bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF")) {
		t.Error("body is not the rendered document")
	}

	recs, err := env.receipts.List(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("list register: %v", err)
	}
	if len(recs) != 1 || recs[0].ReceiptNumber != number {
		t.Fatalf("register row missing for %s: %+v", number, recs)
	}
	if recs[0].AmountInWords != "Five Hundred Rupees Only" {
		t.Errorf("amount in words = %q", recs[0].AmountInWords)
	}
}

func TestGenerateReceiptErrors(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/receipts", map[string]any{
		"enrollment": "PL-99999",
		"payment":    map[string]any{"amount": "500", "billing_month": 8, "billing_year": 2026},
	})
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown enrollment = %d, want 404", w.Code)
	}

	w = env.do(t, http.MethodPost, "/api/receipts", map[string]any{
		"enrollment": "PL-00042",
		"payment":    map[string]any{"amount": "0", "billing_month": 8, "billing_year": 2026},
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("zero amount = %d, want 400", w.Code)
	}

	w = env.do(t, http.MethodPost, "/api/receipts", map[string]any{
		"enrollment": "PL-00042",
		"payment":    map[string]any{"amount": "500", "billing_month": 13, "billing_year": 2026},
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad month = %d, want 400", w.Code)
	}
}

func TestBatchInlineItems(t *testing.T) {
	env := newTestEnv(t)
	outDir := t.TempDir()

	items := []map[string]any{
		{
			"student": map[string]any{"name": "Asha Verma", "enrollment_no": "PL-00042"},
			"payment": map[string]any{"amount": "500", "billing_month": 8, "billing_year": 2026},
		},
		{
			"student": map[string]any{"name": "Broken Row", "enrollment_no": "PL-00099"},
			"payment": map[string]any{"amount": "0", "billing_month": 8, "billing_year": 2026},
		},
		{
			"student": map[string]any{"name": "Ravi Kumar", "enrollment_no": "PL-00043"},
			"payment": map[string]any{"amount": "650", "billing_month": 8, "billing_year": 2026},
		},
	}

	w := env.do(t, http.MethodPost, "/api/receipts/batch", map[string]any{
		"items":   items,
		"out_dir": outDir,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("batch = %d (%s)", w.Code, w.Body.String())
	}

	var resp struct {
		Results []batch.ItemResult `json:"results"`
		Stats   batch.Stats        `json:"stats"`
	}
	decodeBody(t, w, &resp)

	if resp.Stats.Total != 3 || resp.Stats.Succeeded != 2 || resp.Stats.Failed != 1 {
		t.Fatalf("stats = %+v", resp.Stats)
	}
	if resp.Results[1].OK || resp.Results[1].Err == "" {
		t.Errorf("item 1 should carry its failure: %+v", resp.Results[1])
	}

	for _, res := range resp.Results {
		if !res.OK {
			continue
		}
		path := filepath.Join(outDir, res.ReceiptNumber+".pdf")
		if _, err := os.Stat(path); err != nil {
			t.Errorf("missing pdf for %s: %v", res.ReceiptNumber, err)
		}
	}

	recs, err := env.receipts.List(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("list register: %v", err)
	}
	if len(recs) != 2 {
		t.Errorf("register rows = %d, want 2", len(recs))
	}
}

func TestBatchStoredSelector(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/receipts/batch", map[string]any{
		"enrollments": []string{"PL-00042", "PL-00043"},
		"payment":     map[string]any{"billing_month": 8, "billing_year": 2026, "method": "upi"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("batch = %d (%s)", w.Code, w.Body.String())
	}

	var resp struct {
		Stats batch.Stats `json:"stats"`
	}
	decodeBody(t, w, &resp)
	if resp.Stats.Succeeded != 2 {
		t.Fatalf("stats = %+v", resp.Stats)
	}

	recs, err := env.receipts.List(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("list register: %v", err)
	}
	amounts := map[string]string{}
	for _, r := range recs {
		amounts[r.StudentName] = r.Amount.String()
	}
	if amounts["Asha Verma"] != "750.5" || amounts["Ravi Kumar"] != "650" {
		t.Errorf("amounts should default to monthly fees: %v", amounts)
	}
}

func TestBatchValidation(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/receipts/batch", map[string]any{})
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty request = %d, want 400", w.Code)
	}

	w = env.do(t, http.MethodPost, "/api/receipts/batch", map[string]any{
		"enrollments": []string{"PL-77777"},
		"payment":     map[string]any{"billing_month": 8, "billing_year": 2026},
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("unknown enrollment = %d, want 400", w.Code)
	}
	if !strings.Contains(w.Body.String(), "PL-77777") {
		t.Errorf("error should name the enrollment: %s", w.Body.String())
	}
}

func TestListReceiptsWindow(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/receipts", map[string]any{
		"enrollment": "PL-00042",
		"payment":    map[string]any{"amount": "500", "billing_month": 8, "billing_year": 2026},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("generate = %d", w.Code)
	}

	w = env.do(t, http.MethodGet, "/api/receipts?from=2026-08-01&to=2026-08-31", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list = %d", w.Code)
	}
	var resp struct {
		Count int `json:"count"`
	}
	decodeBody(t, w, &resp)
	if resp.Count != 1 {
		t.Errorf("count = %d, want 1", resp.Count)
	}

	w = env.do(t, http.MethodGet, "/api/receipts?from=2030-01-01", nil)
	decodeBody(t, w, &resp)
	if resp.Count != 0 {
		t.Errorf("future window count = %d, want 0", resp.Count)
	}

	if w := env.do(t, http.MethodGet, "/api/receipts?from=21-08-2026", nil); w.Code != http.StatusBadRequest {
		t.Errorf("bad date = %d, want 400", w.Code)
	}
}

func TestExportEndpoint(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/receipts", map[string]any{
		"enrollment": "PL-00042",
		"payment":    map[string]any{"amount": "500", "billing_month": 8, "billing_year": 2026},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("generate = %d", w.Code)
	}
	number := w.Header().Get("X-Receipt-Number")

	w = env.do(t, http.MethodGet, "/api/exports/receipts.xlsx", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("export = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != xlsxContentType {
		t.Errorf("content type = %q", ct)
	}

	book, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer book.Close()
	got, err := book.GetCellValue("Receipts", "A2")
	if err != nil {
		t.Fatalf("read cell: %v", err)
	}
	if got != number {
		t.Errorf("A2 = %q, want %q", got, number)
	}
}
