package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"

	"github.com/joho/godotenv"

	"github.com/patchlibrary/feedesk/internal/common"
	"github.com/patchlibrary/feedesk/internal/credential"
)

// Seeds and checks login credentials without going through the server:
//
//	hashpw -password s3cret                 bcrypt hash for the users table
//	hashpw -password s3cret -legacy         legacy encoding (migration tests)
//	hashpw -password s3cret -verify <enc>   check a stored value, either format
func main() {
	var (
		password = flag.String("password", "", "password to hash or verify (required)")
		legacy   = flag.Bool("legacy", false, "emit the legacy encoding instead of bcrypt")
		verify   = flag.String("verify", "", "stored value to verify the password against")
	)
	flag.Parse()

	if *password == "" {
		log.Fatal("--password is required")
	}

	_ = godotenv.Load()
	cfg := common.LoadConfig()

	hasher := credential.NewHasher(credential.Config{
		LegacySalt: cfg.LegacySalt,
		BcryptCost: int(cfg.BcryptCost),
	}, slog.Default())

	if *verify != "" {
		stored := credential.Parse(*verify)
		if hasher.Verify(*password, stored) {
			fmt.Printf("OK (%s)\n", stored.Format)
			return
		}
		log.Fatal("verification FAILED")
	}

	if *legacy {
		fmt.Println(hasher.EncodeLegacy(*password).Value)
		return
	}

	stored, err := hasher.Hash(*password)
	if err != nil {
		log.Fatalf("hashing: %v", err)
	}
	fmt.Println(stored.Value)
}
