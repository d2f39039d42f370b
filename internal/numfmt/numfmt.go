// Package numfmt abbreviates engagement counts the way social clients show
// them ("1,5 B", "12K").
package numfmt

import (
	"strconv"
	"strings"
)

// Threshold is the smallest count that gets abbreviated.
const Threshold = 1000

// Formatter abbreviates counts of a thousand or more. The zero value renders
// bare numbers with a "." separator and no unit.
type Formatter struct {
	// Suffix follows the abbreviated number, including any leading space.
	Suffix string

	// Decimal separates the whole part from the single fractional digit.
	Decimal string
}

// Default uses the primary locale's convention.
var Default = Formatter{Suffix: " B", Decimal: ","}

// Format renders n. Counts below Threshold are printed as-is. Larger counts
// are divided by a thousand and keep at most one fractional digit, which is
// truncated rather than rounded and dropped entirely when it is zero.
func (f Formatter) Format(n int64) string {
	if n < Threshold {
		return strconv.FormatInt(n, 10)
	}

	scaled := strconv.FormatFloat(float64(n)/Threshold, 'f', -1, 64)
	whole, frac, _ := strings.Cut(scaled, ".")
	if frac == "" || frac[0] == '0' {
		return whole + f.Suffix
	}

	sep := f.Decimal
	if sep == "" {
		sep = "."
	}
	return whole + sep + frac[:1] + f.Suffix
}

// Format abbreviates n with the Default formatter.
func Format(n int64) string {
	return Default.Format(n)
}
