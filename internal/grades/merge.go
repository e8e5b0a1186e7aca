package grades

import (
	"fmt"
	"math"

	"github.com/alm9/grades-escolares-api/internal/types"
)

// mergeInto copies every field present in p onto g. ID and Timestamp are not
// part of PartialGrade and so can never be overwritten here.
func mergeInto(g *types.Grade, p types.PartialGrade) {
	if p.Student != nil {
		g.Student = *p.Student
	}
	if p.Subject != nil {
		g.Subject = *p.Subject
	}
	if p.Type != nil {
		g.Type = *p.Type
	}
	if p.Value != nil {
		g.Value = *p.Value
	}
}

func validatePartial(p types.PartialGrade) error {
	if p.Value != nil && (math.IsNaN(*p.Value) || math.IsInf(*p.Value, 0)) {
		return fmt.Errorf("%w: value must be a finite number", ErrInvalidGrade)
	}
	return nil
}
