package receipt

import (
	"testing"
	"time"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestNumberGeneratorFormat(t *testing.T) {
	midnight := time.Date(2026, time.August, 21, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		at   time.Time
		want string
	}{
		{"midnight", midnight, "PATCH2608210000"},
		{"millisecond suffix", midnight.Add(1234 * time.Millisecond), "PATCH2608211234"},
		{"suffix wraps at ten thousand", midnight.Add(10 * time.Second), "PATCH2608210000"},
		{"single digit month and day", time.Date(2026, time.January, 5, 0, 0, 0, 0, time.UTC), "PATCH2601050000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := NewNumberGenerator(fixedClock(tt.at))
			got := gen.Next()
			if got != tt.want {
				t.Errorf("Next() = %q, want %q", got, tt.want)
			}
			if len(got) != NumberWidth {
				t.Errorf("Next() width = %d, want %d", len(got), NumberWidth)
			}
		})
	}
}

func TestNumberGeneratorDefaultsToWallClock(t *testing.T) {
	gen := NewNumberGenerator(nil)
	got := gen.Next()
	if len(got) != NumberWidth {
		t.Fatalf("Next() width = %d, want %d", len(got), NumberWidth)
	}
	if got[:len(NumberPrefix)] != NumberPrefix {
		t.Errorf("Next() = %q, want %q prefix", got, NumberPrefix)
	}
}
