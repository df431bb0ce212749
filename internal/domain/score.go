package domain

import (
	"math"
	"strconv"
)

// Score is a similarity-derived value. Scoring code keeps full precision;
// the value is rounded to four decimals only when encoded as JSON.
type Score float64

// Round4 rounds v to four decimal places.
func Round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}

// MarshalJSON implements json.Marshaler with four-decimal rounding.
func (s Score) MarshalJSON() ([]byte, error) {
	v := float64(s)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		v = 0
	}
	return []byte(strconv.FormatFloat(Round4(v), 'f', -1, 64)), nil
}
