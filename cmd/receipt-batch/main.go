package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/patchlibrary/feedesk/internal/batch"
	"github.com/patchlibrary/feedesk/internal/common"
	"github.com/patchlibrary/feedesk/internal/export"
	"github.com/patchlibrary/feedesk/internal/ingest"
	"github.com/patchlibrary/feedesk/internal/receipt"
	"github.com/patchlibrary/feedesk/internal/render"
	"github.com/patchlibrary/feedesk/internal/repository"
	"github.com/patchlibrary/feedesk/internal/settings"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	// Parse CLI flags
	var (
		inmem    = flag.Bool("inmem", false, "use in-memory SQLite database")
		input    = flag.String("input", "", "work file with students and payments (required)")
		outDir   = flag.String("outdir", "", "directory for generated PDFs (optional, defaults next to the work file)")
		out      = flag.String("out", "", "output XLSX file path (optional, defaults to parent directory)")
		delay    = flag.Duration("delay", 0, "pause between items (optional, overrides the default)")
		fromStr  = flag.String("from", "", "export window from date YYYY-MM-DD")
		toStr    = flag.String("to", "", "export window to date YYYY-MM-DD")
		noExport = flag.Bool("no-export", false, "skip the XLSX export")
	)
	flag.Parse()

	// Validate required flags
	if *input == "" {
		printError("Error: --input is required\n")
		os.Exit(1)
	}

	if *outDir == "" {
		*outDir = filepath.Join(filepath.Dir(*input), "receipts")
	}
	if *out == "" {
		parentDir := filepath.Dir(*input)
		*out = filepath.Join(parentDir, "receipt-register.xlsx")
	}

	// Parse date filters
	var from, to *time.Time
	if *fromStr != "" {
		if parsed, err := time.Parse("2006-01-02", *fromStr); err != nil {
			printError("Error: invalid --from date format, use YYYY-MM-DD: %v\n", err)
			os.Exit(1)
		} else {
			from = &parsed
		}
	}
	if *toStr != "" {
		if parsed, err := time.Parse("2006-01-02", *toStr); err != nil {
			printError("Error: invalid --to date format, use YYYY-MM-DD: %v\n", err)
			os.Exit(1)
		} else {
			to = &parsed
		}
	}

	// Setup logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	ctx := context.Background()

	cfg := common.LoadConfig()

	dbCfg := repository.Config{Driver: cfg.DBDriver, DSN: cfg.DBDSN}
	if *inmem {
		dbCfg = repository.Config{Driver: repository.DriverSQLite, DSN: ":memory:"}
	}
	db, err := repository.Open(ctx, dbCfg, logger)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := repository.Migrate(ctx, db); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Wire repositories
	studentsRepo := repository.NewStudentRepository(db, logger)
	receiptsRepo := repository.NewReceiptRepository(db, logger)

	receiptSettings, err := settings.Load(cfg.SettingsPath, logger)
	if err != nil {
		logger.Error("failed to load settings", "path", cfg.SettingsPath, "error", err)
		os.Exit(1)
	}

	// Setup the pipeline
	renderer := render.NewPDFRenderer(render.PDFConfig{
		BinaryPath: cfg.WKHTMLToPDFPath,
		Timeout:    cfg.RenderTimeout,
	}, logger)
	composer := receipt.NewComposer(receipt.NewNumberGenerator(nil), logger)

	var opts []batch.Option
	if *delay > 0 {
		opts = append(opts, batch.WithDelay(*delay))
	}
	orchestrator := batch.NewOrchestrator(composer, renderer, logger, opts...)

	// Load and validate the work file
	logger.Info("loading work file", "input", *input)
	items, err := ingest.LoadFile(*input, logger)
	if err != nil {
		logger.Error("failed to load work file", "error", err)
		os.Exit(1)
	}

	// Keep the student table current with what the work file carries
	for i := range items {
		if err := studentsRepo.Upsert(ctx, &items[i].Student); err != nil {
			logger.Error("failed to upsert student",
				"enrollment", items[i].Student.EnrollmentNo, "error", err)
			os.Exit(1)
		}
	}

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		logger.Error("failed to create output directory", "outdir", *outDir, "error", err)
		os.Exit(1)
	}

	// Run the batch
	logger.Info("starting batch", "items", len(items), "outdir", *outDir)
	run := orchestrator.Run(ctx, items, receiptSettings, func(completed, total int) {
		logger.Info("batch progress", "completed", completed, "total", total)
	})

	// Write PDFs and register rows for every success
	written := 0
	registered := 0
	for _, g := range run.Generated {
		path := filepath.Join(*outDir, g.Document.ReceiptNumber+".pdf")
		if err := os.WriteFile(path, g.PDF, 0o644); err != nil {
			logger.Error("failed to write pdf", "path", path, "error", err)
			continue
		}
		written++
		if err := receiptsRepo.RecordIssued(ctx, g.Document); err != nil {
			logger.Error("failed to record receipt",
				"receipt_number", g.Document.ReceiptNumber, "error", err)
			continue
		}
		registered++
	}

	for _, res := range run.Results {
		if !res.OK {
			logger.Warn("item failed", "index", res.Index, "student", res.Student, "error", res.Err)
		}
	}

	// Export to XLSX
	if !*noExport {
		logger.Info("exporting register", "output", *out)
		exportService := export.NewService(receiptsRepo, logger)

		xlsxBytes, err := exportService.ExportRegisterXLSX(ctx, from, to)
		if err != nil {
			logger.Error("failed to export register", "error", err)
			os.Exit(1)
		}
		if err := os.WriteFile(*out, xlsxBytes, 0o644); err != nil {
			logger.Error("failed to write output file", "error", err)
			os.Exit(1)
		}
	}

	// Log summary
	logger.Info("batch complete",
		"items", run.Stats.Total,
		"generated", run.Stats.Succeeded,
		"failed", run.Stats.Failed,
		"pdfs_written", written,
		"registered", registered)

	fmt.Printf("Batch complete!\n")
	fmt.Printf("- Items: %d\n", run.Stats.Total)
	fmt.Printf("- Generated: %d\n", run.Stats.Succeeded)
	fmt.Printf("- Failed: %d\n", run.Stats.Failed)
	fmt.Printf("- PDFs: %s\n", *outDir)
	if !*noExport {
		fmt.Printf("- Register: %s\n", *out)
	}
	if run.Stats.Failed > 0 {
		os.Exit(1)
	}
}
