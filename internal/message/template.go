// Package message prepares outbound message text and target addresses.
// Actual delivery is delegated to a sender collaborator.
package message

import (
	"strings"

	"github.com/patchlibrary/feedesk/internal/entity"
)

// Placeholders is the closed token vocabulary templates may use. The set is
// a stable contract: stored templates must keep expanding after upgrades.
var Placeholders = []string{
	"{name}",
	"{fatherName}",
	"{enrollmentNo}",
	"{contact}",
	"{monthlyFees}",
	"{shift}",
	"{seatNumber}",
}

// Expand substitutes every placeholder occurrence with the matching student
// field. Numeric fields use their decimal string form. Tokens outside the
// vocabulary pass through verbatim.
func Expand(template string, student entity.StudentRecord) string {
	r := strings.NewReplacer(
		"{name}", student.Name,
		"{fatherName}", student.FatherName,
		"{enrollmentNo}", student.EnrollmentNo,
		"{contact}", student.Contact,
		"{monthlyFees}", student.MonthlyFees.String(),
		"{shift}", student.Shift,
		"{seatNumber}", student.SeatNumber,
	)
	return r.Replace(template)
}
