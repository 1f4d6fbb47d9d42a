package control

import (
	"regexp"
	"strconv"
	"strings"
)

// numericPattern matches integer and decimal strings, optionally negative.
// Exponents and leading "+" are deliberately excluded; the core does not
// produce them and callers who mean a number that oddly send one as a
// string get a pass-through instead of a silent reinterpretation.
var numericPattern = regexp.MustCompile(`^-?\d+(\.\d+)?$`)

// CoerceValue normalises a caller-supplied value to the wire representation
// the core expects. The coercion happens once, at the boundary; the original
// value is kept on the SetRequest for reporting.
//
// Rules:
//   - bool → 1 / 0
//   - "true"|"yes"|"on" (case-insensitive) → 1
//   - "false"|"no"|"off" (case-insensitive) → 0
//   - numeric-looking strings → parsed float64
//   - everything else passes through unchanged
func CoerceValue(value any) any {
	switch v := value.(type) {
	case bool:
		if v {
			return float64(1)
		}
		return float64(0)
	case string:
		switch strings.ToLower(v) {
		case "true", "yes", "on":
			return float64(1)
		case "false", "no", "off":
			return float64(0)
		}
		if numericPattern.MatchString(v) {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				return f
			}
		}
		return v
	default:
		return value
	}
}
