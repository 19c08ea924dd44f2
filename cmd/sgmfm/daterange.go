package main

import (
	"fmt"
	"strings"
	"time"
)

// parseDateRange accepts a single "YYYY-MM-DD" (a single business day) or
// "YYYY-MM-DD:YYYY-MM-DD" (inclusive range), the date-range argument shape
// of the `reconcile` and `cross-validate` command surfaces.
func parseDateRange(arg string) (from, to time.Time, err error) {
	parts := strings.SplitN(arg, ":", 2)
	from, err = time.Parse("2006-01-02", parts[0])
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid date %q: %w", parts[0], err)
	}
	if len(parts) == 1 {
		return from, from, nil
	}
	to, err = time.Parse("2006-01-02", parts[1])
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid date %q: %w", parts[1], err)
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, fmt.Errorf("range end %s precedes start %s", parts[1], parts[0])
	}
	return from, to, nil
}
