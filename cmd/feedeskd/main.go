package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/patchlibrary/feedesk/internal/batch"
	"github.com/patchlibrary/feedesk/internal/common"
	"github.com/patchlibrary/feedesk/internal/credential"
	"github.com/patchlibrary/feedesk/internal/export"
	"github.com/patchlibrary/feedesk/internal/message"
	"github.com/patchlibrary/feedesk/internal/message/whatsapp"
	"github.com/patchlibrary/feedesk/internal/outbox"
	"github.com/patchlibrary/feedesk/internal/receipt"
	"github.com/patchlibrary/feedesk/internal/render"
	"github.com/patchlibrary/feedesk/internal/repository"
	"github.com/patchlibrary/feedesk/internal/server"
	"github.com/patchlibrary/feedesk/internal/settings"
)

func main() {
	envLoaded := godotenv.Load() == nil

	cfg := common.LoadConfig()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)
	if !envLoaded {
		logger.Debug("no .env file, using process environment")
	}

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := repository.Open(ctx, repository.Config{
		Driver: cfg.DBDriver,
		DSN:    cfg.DBDSN,
	}, logger)
	if err != nil {
		logger.Error("opening database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Ping(ctx, 3*time.Second); err != nil {
		logger.Error("db health failed", "error", err)
		os.Exit(1)
	}
	logger.Info("db health OK", "driver", db.Driver())

	if err := repository.Migrate(ctx, db); err != nil {
		logger.Error("migrations failed", "error", err)
		os.Exit(1)
	}

	students := repository.NewStudentRepository(db, logger)
	receipts := repository.NewReceiptRepository(db, logger)
	outboxRepo := repository.NewOutboxRepository(db, logger)
	templates := repository.NewTemplateRepository(db, logger)
	users := repository.NewUserRepository(db, logger)

	receiptSettings, err := settings.Load(cfg.SettingsPath, logger)
	if err != nil {
		logger.Error("loading settings", "path", cfg.SettingsPath, "error", err)
		os.Exit(1)
	}

	hasher := credential.NewHasher(credential.Config{
		LegacySalt: cfg.LegacySalt,
		BcryptCost: int(cfg.BcryptCost),
	}, logger)

	renderer := server.InstrumentRenderer(render.NewPDFRenderer(render.PDFConfig{
		BinaryPath: cfg.WKHTMLToPDFPath,
		Timeout:    cfg.RenderTimeout,
	}, logger))
	composer := receipt.NewComposer(receipt.NewNumberGenerator(nil), logger)
	orchestrator := batch.NewOrchestrator(composer, renderer, logger)
	exporter := export.NewService(receipts, logger)

	// Deeplink hand-off is the default; a configured Cloud API token switches
	// delivery to the hosted gateway.
	var sender message.Sender = whatsapp.NewDeeplinkSender(logger)
	if os.Getenv("WHATSAPP_ACCESS_TOKEN") != "" {
		sender = whatsapp.NewClient(whatsapp.Config{
			PhoneNumberID: os.Getenv("WHATSAPP_PHONE_NUMBER_ID"),
		}, logger)
		logger.Info("whatsapp cloud delivery enabled")
	}

	worker := outbox.NewWorker(outboxRepo, sender, logger,
		outbox.WithInterval(cfg.OutboxInterval),
		outbox.WithSendDelay(cfg.SendDelay),
		outbox.WithBatchSize(int(cfg.OutboxBatch)))
	worker.Start()

	srv := server.NewServer(server.Config{
		JWTSecret: cfg.JWTSecret,
		JWTTTL:    cfg.JWTTTL,
	}, server.Deps{
		Students:  students,
		Receipts:  receipts,
		Outbox:    outboxRepo,
		Templates: templates,
		Users:     users,
		Composer:  composer,
		Renderer:  renderer,
		Batch:     orchestrator,
		Exporter:  exporter,
		Hasher:    hasher,
		Worker:    worker,
		Settings:  receiptSettings,
	}, logger)

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http serving", "addr", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errCh:
		logger.Error("http serve failed", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown failed", "error", err)
	}
	worker.Shutdown(shutdownCtx)
	logger.Info("stopped")
}

func logLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
