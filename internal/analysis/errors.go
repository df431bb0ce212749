package analysis

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownMethod is returned for a clustering method other than hierarchical or kmeans.
	ErrUnknownMethod = errors.New("unknown clustering method")

	// ErrInvalidRule is returned when a rule table entry has no patterns or an invalid weight.
	ErrInvalidRule = errors.New("invalid rule")

	// ErrDimensionMismatch is returned when vectors compared against each other differ in length.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
)

// CheckDimensions reports ErrDimensionMismatch when any vector differs in length from the first.
// Empty vectors are skipped.
func CheckDimensions(vectors ...[]float32) error {
	want := -1
	for i, v := range vectors {
		if len(v) == 0 {
			continue
		}
		if want < 0 {
			want = len(v)
			continue
		}
		if len(v) != want {
			return fmt.Errorf("%w: vector %d has %d dimensions, expected %d", ErrDimensionMismatch, i, len(v), want)
		}
	}
	return nil
}
