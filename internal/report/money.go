package report

import (
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// Dollars formats v as "$1,234.56" with the given number of decimals.
// Rounding is half away from zero on the decimal representation of v.
// Negative amounts render as "-$1,234.56".
func Dollars(v float64, places int32) string {
	d := decimal.NewFromFloat(v).Round(places)
	neg := d.IsNegative()
	d = d.Abs()

	whole := humanize.Comma(d.IntPart())
	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	b.WriteByte('$')
	b.WriteString(whole)
	if places > 0 {
		fixed := d.StringFixed(places)
		if i := strings.IndexByte(fixed, '.'); i >= 0 {
			b.WriteString(fixed[i:])
		}
	}
	return b.String()
}
