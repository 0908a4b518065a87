package query

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateRange is an inclusive calendar range in YYYY-MM-DD form. Partial dates
// expand to the full period they name: "2025-03" covers the whole month.
type DateRange struct {
	Start string
	End   string
}

// ParseDate accepts YYYY, YYYY-MM or YYYY-MM-DD and returns the inclusive
// range covering that period.
func ParseDate(value string) (DateRange, error) {
	switch strings.Count(value, "-") {
	case 0:
		t, err := time.Parse("2006", value)
		if err != nil {
			return DateRange{}, fmt.Errorf("invalid date %q: %w", value, err)
		}
		return DateRange{
			Start: t.Format("2006-01-02"),
			End:   t.AddDate(1, 0, -1).Format("2006-01-02"),
		}, nil
	case 1:
		t, err := time.Parse("2006-01", value)
		if err != nil {
			return DateRange{}, fmt.Errorf("invalid date %q: %w", value, err)
		}
		return DateRange{
			Start: t.Format("2006-01-02"),
			End:   t.AddDate(0, 1, -1).Format("2006-01-02"),
		}, nil
	case 2:
		t, err := time.Parse("2006-01-02", value)
		if err != nil {
			return DateRange{}, fmt.Errorf("invalid date %q: %w", value, err)
		}
		d := t.Format("2006-01-02")
		return DateRange{Start: d, End: d}, nil
	}
	return DateRange{}, fmt.Errorf("invalid date %q", value)
}

// sizeSuffixes are decimal multipliers for human-friendly byte counts.
var sizeSuffixes = map[string]int64{
	"":   1,
	"b":  1,
	"k":  1_000,
	"kb": 1_000,
	"m":  1_000_000,
	"mb": 1_000_000,
	"g":  1_000_000_000,
	"gb": 1_000_000_000,
}

// ParseSize parses a byte count such as "2000000", "500KB" or "2gb".
func ParseSize(value string) (int64, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	i := 0
	for i < len(v) && v[i] >= '0' && v[i] <= '9' {
		i++
	}
	if i == 0 {
		return 0, fmt.Errorf("invalid size %q", value)
	}
	mult, ok := sizeSuffixes[v[i:]]
	if !ok {
		return 0, fmt.Errorf("invalid size suffix %q", value)
	}
	n, err := strconv.ParseInt(v[:i], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", value, err)
	}
	return n * mult, nil
}
