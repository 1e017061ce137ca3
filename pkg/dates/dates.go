// Package dates normalizes the two travel-date text forms used across the
// system. The canonical storage form is YYYY-MM-DD; records imported before
// normalization existed may still be stored as MM/DD/YYYY, so query paths
// must match both representations.
package dates

import (
	"time"

	appErrors "github.com/noah-isme/stp-api/pkg/errors"
)

const (
	// Canonical is the storage layout, ISO calendar date.
	Canonical = "2006-01-02"
	// Legacy is the spreadsheet-era layout still present on old rows.
	Legacy = "01/02/2006"
	// Compact is the 8-digit prefix used by generated student numbers.
	Compact = "20060102"
)

// Normalize parses either accepted representation and returns the canonical
// form. Empty input and unparseable input are rejected.
func Normalize(raw string) (string, error) {
	t, err := parse(raw)
	if err != nil {
		return "", err
	}
	return t.Format(Canonical), nil
}

// Variants returns every stored representation of the given date so that
// filters can match rows persisted under the legacy format. Failing to query
// both forms silently drops matching records rather than erroring.
func Variants(raw string) ([]string, error) {
	t, err := parse(raw)
	if err != nil {
		return nil, err
	}
	canonical := t.Format(Canonical)
	legacy := t.Format(Legacy)
	if canonical == legacy {
		return []string{canonical}, nil
	}
	return []string{canonical, legacy}, nil
}

// CompactPrefix renders the 8-digit form used as a student-number prefix.
func CompactPrefix(raw string) (string, error) {
	t, err := parse(raw)
	if err != nil {
		return "", err
	}
	return t.Format(Compact), nil
}

// Today returns the canonical form of the current UTC date.
func Today() string {
	return time.Now().UTC().Format(Canonical)
}

func parse(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, appErrors.Clone(appErrors.ErrInvalidDate, "date is required")
	}
	if t, err := time.Parse(Canonical, raw); err == nil {
		return t, nil
	}
	if t, err := time.Parse(Legacy, raw); err == nil {
		return t, nil
	}
	return time.Time{}, appErrors.ErrInvalidDate
}
