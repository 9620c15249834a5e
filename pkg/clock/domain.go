package clock

import (
	"errors"
	"fmt"
	"math"
)

// Clock errors.
var (
	ErrUnachievableFrequency = errors.New("no PLL configuration for requested frequency")
	ErrReferenceOutOfRange   = errors.New("reference frequency out of PLL input range")
	ErrFrequencyConflict     = errors.New("conflicting clock frequency request")
	ErrNoLock                = errors.New("PLL not locked")
)

// SysDomain is the name of the single system clock domain.
const SysDomain = "sys"

// Domain is a named clock and reset pair.
type Domain struct {
	Name string
	Freq float64
}

// Period returns the clock period in seconds.
func (d Domain) Period() float64 {
	return 1 / d.Freq
}

// Cycles returns the number of whole clock cycles in the given number of
// seconds, never less than one.
func (d Domain) Cycles(seconds float64) uint64 {
	n := math.Floor(seconds * d.Freq)
	if n < 1 {
		return 1
	}
	return uint64(n)
}

// String returns "name@freq".
func (d Domain) String() string {
	return fmt.Sprintf("%s@%s", d.Name, FormatHz(d.Freq))
}

// FormatHz renders a frequency with an SI suffix.
func FormatHz(hz float64) string {
	switch {
	case hz >= 1e9:
		return fmt.Sprintf("%gGHz", hz/1e9)
	case hz >= 1e6:
		return fmt.Sprintf("%gMHz", hz/1e6)
	case hz >= 1e3:
		return fmt.Sprintf("%gkHz", hz/1e3)
	default:
		return fmt.Sprintf("%gHz", hz)
	}
}
