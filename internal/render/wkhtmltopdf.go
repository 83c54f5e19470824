package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/patchlibrary/feedesk/constants"
	"github.com/patchlibrary/feedesk/internal/entity"
)

// PDFConfig configures the wkhtmltopdf invocation.
type PDFConfig struct {
	BinaryPath string
	Timeout    time.Duration
}

func (c *PDFConfig) applyDefaults() {
	if c.BinaryPath == "" {
		c.BinaryPath = "wkhtmltopdf"
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
}

// PDFRenderer rasterizes receipt documents through the wkhtmltopdf binary.
type PDFRenderer struct {
	cfg    PDFConfig
	html   *HTMLComposer
	runner Runner
	logger *slog.Logger
}

// PDFOption configures a PDFRenderer.
type PDFOption func(*PDFRenderer)

// WithRunner swaps the command runner, for tests.
func WithRunner(r Runner) PDFOption {
	return func(p *PDFRenderer) {
		if r != nil {
			p.runner = r
		}
	}
}

func NewPDFRenderer(cfg PDFConfig, logger *slog.Logger, opts ...PDFOption) *PDFRenderer {
	cfg.applyDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	p := &PDFRenderer{
		cfg:    cfg,
		html:   NewHTMLComposer(),
		runner: execRunner{},
		logger: logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Render composes the HTML page, feeds it through wkhtmltopdf and returns
// the produced PDF bytes.
func (p *PDFRenderer) Render(ctx context.Context, doc *entity.ReceiptDocument) ([]byte, error) {
	page, err := p.html.Compose(doc)
	if err != nil {
		return nil, err
	}

	dir, err := os.MkdirTemp("", "feedesk-rcpt-*")
	if err != nil {
		return nil, newRenderError("workspace", err)
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			p.logger.Warn("render.workspace.cleanup_failed", "dir", dir, "error", err)
		}
	}()

	htmlPath := filepath.Join(dir, "receipt.html")
	pdfPath := filepath.Join(dir, "receipt.pdf")
	if err := os.WriteFile(htmlPath, page, 0o600); err != nil {
		return nil, newRenderError("workspace", err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	args := []string{
		"--quiet",
		"--encoding", "utf-8",
		"--enable-local-file-access",
		"--page-size", constants.PageSizeFlag(doc.Settings.PaperSize),
		htmlPath, pdfPath,
	}
	if _, errb, err := p.runner.Run(ctx, p.cfg.BinaryPath, args...); err != nil {
		if msg := strings.TrimSpace(string(errb)); msg != "" {
			err = fmt.Errorf("%w: %s", err, truncate(msg, 512))
		}
		return nil, newRenderError("rasterize", err)
	}

	out, err := os.ReadFile(pdfPath)
	if err != nil {
		return nil, newRenderError("collect", err)
	}
	if len(out) == 0 {
		return nil, newRenderError("collect", errors.New("rasterizer produced an empty document"))
	}

	p.logger.Debug("render.pdf.ok",
		"receipt_number", doc.ReceiptNumber,
		"page_size", doc.Settings.PaperSize,
		"bytes", len(out))
	return out, nil
}
