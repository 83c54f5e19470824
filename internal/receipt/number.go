package receipt

import (
	"fmt"
	"time"
)

// NumberPrefix is the fixed ASCII prefix of every receipt number.
const NumberPrefix = "PATCH"

// NumberWidth is the total width of a generated receipt number:
// prefix + yymmdd + 4-digit millisecond suffix.
const NumberWidth = len(NumberPrefix) + 6 + 4

// NumberGenerator produces receipt identifiers from the current time.
// Numbers are monotonically non-decreasing within a day but NOT
// collision-free: two calls inside the same millisecond-modulo-10000
// window yield the same identifier. Callers that need a hard uniqueness
// guarantee should allocate through the receipt register instead.
type NumberGenerator struct {
	now func() time.Time
}

// NewNumberGenerator creates a generator reading time from now.
// Passing nil uses the wall clock.
func NewNumberGenerator(now func() time.Time) *NumberGenerator {
	if now == nil {
		now = time.Now
	}
	return &NumberGenerator{now: now}
}

// Next returns a fresh receipt number, e.g. "PATCH2608210042".
func (g *NumberGenerator) Next() string {
	t := g.now()
	return fmt.Sprintf("%s%02d%02d%02d%04d",
		NumberPrefix, t.Year()%100, int(t.Month()), t.Day(), t.UnixMilli()%10_000)
}
