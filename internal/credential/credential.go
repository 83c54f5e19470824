// Package credential hashes and verifies user passwords. Two storage
// formats coexist: the current bcrypt digest and a reversible salted
// base64 encoding kept only so pre-migration credentials keep validating.
package credential

import (
	"crypto/subtle"
	"encoding/base64"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/patchlibrary/feedesk/internal/common"
)

// bcrypt serializations start with this marker.
const bcryptMarker = "$2"

// Format tags a stored credential with the algorithm that produced it.
type Format string

const (
	FormatBcrypt Format = "bcrypt"
	FormatLegacy Format = "legacy"
)

// Stored is a credential hash tagged with its format. The tag is decided
// once, at the boundary where the raw string enters the system, instead of
// being re-sniffed on every verification.
type Stored struct {
	Format Format
	Value  string
}

// Parse classifies a raw stored hash by its format marker. Anything that
// does not carry the bcrypt marker is treated as a legacy encoding.
func Parse(raw string) Stored {
	if strings.HasPrefix(raw, bcryptMarker) {
		return Stored{Format: FormatBcrypt, Value: raw}
	}
	return Stored{Format: FormatLegacy, Value: raw}
}

// Config carries the secrets and tuning for a Hasher. There is no implicit
// process-wide salt; callers supply it explicitly.
type Config struct {
	LegacySalt string
	BcryptCost int
}

// Hasher produces current-format digests and verifies both formats.
type Hasher struct {
	cfg    Config
	logger *slog.Logger
}

func NewHasher(cfg Config, logger *slog.Logger) *Hasher {
	if cfg.BcryptCost < bcrypt.MinCost || cfg.BcryptCost > bcrypt.MaxCost {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Hasher{cfg: cfg, logger: logger}
}

// Hash digests a password in the current format.
func (h *Hasher) Hash(password string) (Stored, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), h.cfg.BcryptCost)
	if err != nil {
		return Stored{}, common.WrapError(err, "hash password")
	}
	return Stored{Format: FormatBcrypt, Value: string(b)}, nil
}

// EncodeLegacy produces the pre-migration reversible encoding. New
// credentials always go through Hash; this exists for fixtures and for
// verifying the migration path.
func (h *Hasher) EncodeLegacy(password string) Stored {
	encoded := base64.StdEncoding.EncodeToString([]byte(password + h.cfg.LegacySalt))
	return Stored{Format: FormatLegacy, Value: encoded}
}

// Verify reports whether password matches the stored credential. It fails
// closed: a malformed stored value yields false, never an error.
func (h *Hasher) Verify(password string, stored Stored) bool {
	switch stored.Format {
	case FormatBcrypt:
		return bcrypt.CompareHashAndPassword([]byte(stored.Value), []byte(password)) == nil
	case FormatLegacy:
		decoded, err := base64.StdEncoding.DecodeString(stored.Value)
		if err != nil {
			h.logger.Warn("credential.legacy.malformed", "error", err)
			return false
		}
		expect := []byte(password + h.cfg.LegacySalt)
		return subtle.ConstantTimeCompare(decoded, expect) == 1
	default:
		return false
	}
}
