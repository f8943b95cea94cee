package diag

import (
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
)

// formatNumber renders a decoded JSON number the way it reads back after a
// round trip through an integer or a double. Integer literals keep arbitrary
// precision; anything with a fraction or exponent becomes a float64, so 1.50
// and 1.5 both print as 1.5 and 1e2 prints as 100.0.
func formatNumber(n json.Number) (string, error) {
	s := string(n)
	if s == "" {
		return "", fmt.Errorf("empty number")
	}

	if !strings.ContainsAny(s, ".eE") {
		i, ok := new(big.Int).SetString(s, 10)
		if !ok {
			return "", fmt.Errorf("invalid number %q", s)
		}
		return i.String(), nil
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil && !math.IsInf(f, 0) {
		return "", fmt.Errorf("invalid number %q: %w", s, err)
	}
	return formatFloat(f), nil
}

// formatFloat writes the shortest decimal that round-trips f. Magnitudes in
// [1e-4, 1e16) use positional notation with at least one fractional digit;
// the rest use d.ddde±XX with a signed, two-digit minimum exponent.
func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}

	sign := ""
	if math.Signbit(f) {
		sign = "-"
		f = -f
	}

	// "d.ddde±XX": split into significant digits and decimal-point position.
	sci := strconv.FormatFloat(f, 'e', -1, 64)
	mantissa, expText, _ := strings.Cut(sci, "e")
	digits := strings.Replace(mantissa, ".", "", 1)
	exp, _ := strconv.Atoi(expText)
	point := exp + 1

	if point <= -4 || point > 16 {
		out := digits[:1]
		if len(digits) > 1 {
			out += "." + digits[1:]
		}
		expSign := "+"
		if exp < 0 {
			expSign = "-"
			exp = -exp
		}
		return fmt.Sprintf("%s%se%s%02d", sign, out, expSign, exp)
	}

	switch {
	case point <= 0:
		return sign + "0." + strings.Repeat("0", -point) + digits
	case point >= len(digits):
		return sign + digits + strings.Repeat("0", point-len(digits)) + ".0"
	default:
		return sign + digits[:point] + "." + digits[point:]
	}
}
