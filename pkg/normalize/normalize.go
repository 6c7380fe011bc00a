// Package normalize converts the heterogeneous numeric and string
// representations the vendor platforms emit into canonical units.
package normalize

import (
	"strconv"
	"strings"
)

// No single residential inverter exceeds 100 kW, so any bare number
// above that is assumed to be raw watts.
const wattsThresholdKW = 100

// Power converts a raw power value into kW. The vendor reports power as
// raw watts, kilowatts, or unit-suffixed strings depending on the
// device family, with no schema to tell them apart. It never panics and
// never returns NaN; unparsable input yields 0.
func Power(v any) float64 {
	switch val := v.(type) {
	case nil:
		return 0
	case float64:
		return scaleHeuristic(val)
	case float32:
		return scaleHeuristic(float64(val))
	case int:
		return scaleHeuristic(float64(val))
	case int64:
		return scaleHeuristic(float64(val))
	case string:
		return powerFromString(val)
	default:
		return 0
	}
}

// Float parses a lenient numeric value (bare number or numeric string
// with unit suffixes or thousands separators) without any unit scaling.
// Used for the cumulative energy figures the plant list reports, which
// are already kWh but frequently arrive as strings like "1234.5 kWh".
func Float(v any) float64 {
	switch val := v.(type) {
	case nil:
		return 0
	case float64:
		return val
	case float32:
		return float64(val)
	case int:
		return float64(val)
	case int64:
		return float64(val)
	case string:
		f, ok := parseNumeric(val)
		if !ok {
			return 0
		}
		return f
	default:
		return 0
	}
}

func scaleHeuristic(f float64) float64 {
	if f > wattsThresholdKW || f < -wattsThresholdKW {
		return f / 1000
	}
	return f
}

func powerFromString(s string) float64 {
	f, ok := parseNumeric(s)
	if !ok {
		return 0
	}
	lower := strings.ToLower(s)
	if strings.Contains(lower, "kw") {
		// already kW
		return f
	}
	if strings.Contains(lower, "w") {
		return f / 1000
	}
	return scaleHeuristic(f)
}

// parseNumeric strips everything but digits, '.' and '-' and parses the
// remainder. The vendor is fond of values like "1,454.5W" and " 3.2 ".
func parseNumeric(s string) (float64, bool) {
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return 0, false
	}
	f, err := strconv.ParseFloat(b.String(), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
