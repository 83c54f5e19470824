package main

import (
	"context"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"

	"github.com/patchlibrary/feedesk/internal/common"
	"github.com/patchlibrary/feedesk/internal/repository"
)

func main() {
	_ = godotenv.Load()
	cfg := common.LoadConfig()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))

	db, err := repository.Open(ctx, repository.Config{
		Driver:      cfg.DBDriver,
		DSN:         cfg.DBDSN,
		DialTimeout: 3 * time.Second,
	}, quiet)
	if err != nil {
		log.Fatalf("opening DB: %v", err)
	}
	defer db.Close()

	if err := db.Ping(ctx, 1*time.Second); err != nil {
		log.Fatalf("DB health: FAIL (%v)", err)
	}
	log.Printf("DB health: OK (%s)", db.Driver())

	if err := repository.Migrate(ctx, db); err != nil {
		log.Fatalf("migrations: %v", err)
	}

	students, err := repository.NewStudentRepository(db, quiet).List(ctx)
	if err != nil {
		log.Fatalf("listing students: %v", err)
	}
	log.Printf("students: %d", len(students))

	receipts, err := repository.NewReceiptRepository(db, quiet).List(ctx, nil, nil)
	if err != nil {
		log.Fatalf("listing receipts: %v", err)
	}
	log.Printf("receipts: %d", len(receipts))

	queued, err := repository.NewOutboxRepository(db, quiet).DuePending(ctx, 1000)
	if err != nil {
		log.Fatalf("listing outbox: %v", err)
	}
	log.Printf("outbox pending: %d", len(queued))
}
