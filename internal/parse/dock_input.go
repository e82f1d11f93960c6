package parse

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"firext-backend/internal/policy"
)

// Weight limits accepted from the dock form.
const (
	MinWeight = 0.0
	MaxWeight = 10.0
)

const dateLayout = "2006-01-02"

var spaceRe = regexp.MustCompile(`\s+`)

// Text trims and collapses whitespace; an empty result is an error.
func Text(field, raw string) (string, error) {
	s := strings.TrimSpace(spaceRe.ReplaceAllString(raw, " "))
	if s == "" {
		return "", fmt.Errorf("%s is required", field)
	}
	return s, nil
}

// Weight parses a weight in kg. A nil input yields the form default; any
// value that is not a finite number within [MinWeight, MaxWeight] is rejected.
func Weight(raw *float64) (float64, error) {
	if raw == nil {
		return policy.FormDefaultWeight, nil
	}
	w := *raw
	if math.IsNaN(w) || math.IsInf(w, 0) {
		return 0, fmt.Errorf("weight must be a valid number")
	}
	if w < MinWeight {
		return 0, fmt.Errorf("weight must be at least %g", MinWeight)
	}
	if w > MaxWeight {
		return 0, fmt.Errorf("weight cannot exceed %g kg", MaxWeight)
	}
	return w, nil
}

// MaxLedNum is the largest LED channel number accepted.
const MaxLedNum = math.MaxInt32

// LedNum parses an LED channel number given as a JSON number or string.
// The result is within [0, MaxLedNum].
func LedNum(raw any) (int, error) {
	var n int64
	switch v := raw.(type) {
	case nil:
		return 0, fmt.Errorf("led_num is required")
	case float64:
		if v != math.Trunc(v) || math.IsInf(v, 0) || math.IsNaN(v) {
			return 0, fmt.Errorf("led_num must be a whole number")
		}
		if v < 0 || v > MaxLedNum {
			return 0, ledRangeError()
		}
		n = int64(v)
	case int:
		n = int64(v)
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if errors.Is(err, strconv.ErrRange) {
			return 0, ledRangeError()
		}
		if err != nil {
			return 0, fmt.Errorf("led_num must be a valid number")
		}
		n = parsed
	default:
		return 0, fmt.Errorf("led_num must be a valid number")
	}
	if n < 0 || n > MaxLedNum {
		return 0, ledRangeError()
	}
	return int(n), nil
}

func ledRangeError() error {
	return fmt.Errorf("led_num must be between 0 and %d", MaxLedNum)
}

// ExpiryDate accepts either a plain date (2006-01-02) or an RFC3339
// timestamp and returns midnight of that calendar date in loc.
func ExpiryDate(raw string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, fmt.Errorf("expires_at is required")
	}

	if t, err := time.ParseInLocation(dateLayout, s, loc); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("unable to parse expires_at %q", raw)
	}
	// The form sends the picked date as a UTC ISO string, so keep its date part.
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc), nil
}
