package credential

import (
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func testHasher() *Hasher {
	return NewHasher(Config{LegacySalt: "pepper-2019", BcryptCost: bcrypt.MinCost}, nil)
}

func TestHashRoundTrip(t *testing.T) {
	h := testHasher()
	for _, password := range []string{"secret", "पासवर्ड", "a", "correct horse battery staple"} {
		stored, err := h.Hash(password)
		if err != nil {
			t.Fatalf("Hash(%q) returned error: %v", password, err)
		}
		if stored.Format != FormatBcrypt {
			t.Errorf("Hash(%q) format = %q, want bcrypt", password, stored.Format)
		}
		if !h.Verify(password, stored) {
			t.Errorf("Verify(%q, Hash(%q)) = false, want true", password, password)
		}
	}
}

func TestLegacyRoundTrip(t *testing.T) {
	h := testHasher()
	stored := h.EncodeLegacy("oldsecret")
	if stored.Format != FormatLegacy {
		t.Fatalf("EncodeLegacy format = %q, want legacy", stored.Format)
	}
	if !h.Verify("oldsecret", stored) {
		t.Error("Verify of legacy encoding = false, want true")
	}
	if h.Verify("oldsecret", testHasherWithSalt("different-salt").EncodeLegacy("oldsecret")) {
		t.Error("legacy encoding verified across different salts")
	}
}

func testHasherWithSalt(salt string) *Hasher {
	return NewHasher(Config{LegacySalt: salt, BcryptCost: bcrypt.MinCost}, nil)
}

func TestVerifyRejectsWrongPassword(t *testing.T) {
	h := testHasher()
	stored, err := h.Hash("right")
	if err != nil {
		t.Fatalf("Hash returned error: %v", err)
	}
	if h.Verify("wrong", stored) {
		t.Error("Verify accepted the wrong password for bcrypt format")
	}
	if h.Verify("wrong", h.EncodeLegacy("right")) {
		t.Error("Verify accepted the wrong password for legacy format")
	}
}

func TestVerifyFailsClosed(t *testing.T) {
	h := testHasher()
	tests := []struct {
		name   string
		stored Stored
	}{
		{"empty value", Stored{Format: FormatBcrypt}},
		{"garbage bcrypt", Stored{Format: FormatBcrypt, Value: "$2x$junk"}},
		{"invalid base64", Stored{Format: FormatLegacy, Value: "!!not-base64!!"}},
		{"unknown format", Stored{Format: "argon2", Value: "whatever"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if h.Verify("secret", tt.stored) {
				t.Error("Verify = true for malformed credential, want fail-closed false")
			}
		})
	}
}

func TestParseClassifiesByMarker(t *testing.T) {
	h := testHasher()
	stored, err := h.Hash("secret")
	if err != nil {
		t.Fatalf("Hash returned error: %v", err)
	}

	parsed := Parse(stored.Value)
	if parsed.Format != FormatBcrypt {
		t.Errorf("Parse(bcrypt value) format = %q, want bcrypt", parsed.Format)
	}
	if !h.Verify("secret", parsed) {
		t.Error("Verify after Parse round-trip = false")
	}

	legacy := Parse(h.EncodeLegacy("secret").Value)
	if legacy.Format != FormatLegacy {
		t.Errorf("Parse(legacy value) format = %q, want legacy", legacy.Format)
	}
	if !h.Verify("secret", legacy) {
		t.Error("Verify of parsed legacy credential = false")
	}
}
