// Package tz converts naive wall-clock times into canonical UTC instants.
package tz

import (
	"fmt"
	"time"

	"airstream/internal/domain"
)

// Load resolves an IANA zone name. Unknown names return
// domain.ErrInvalidTimezone.
func Load(name string) (*time.Location, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: empty zone name", domain.ErrInvalidTimezone)
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidTimezone, name)
	}
	return loc, nil
}

// NormalizeToUTC reinterprets t's wall-clock fields as local time in the
// named zone and returns the corresponding UTC instant. Any location t
// already carries is discarded: it is an artifact of the process default
// zone, not the intended one. Ambiguous or nonexistent wall-clock values
// around a DST transition resolve per the zone database's fold rule.
func NormalizeToUTC(t time.Time, zoneName string) (time.Time, error) {
	loc, err := Load(zoneName)
	if err != nil {
		return time.Time{}, err
	}
	local := time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), loc)
	return local.UTC(), nil
}

// Valid reports whether name is a recognized IANA zone identifier.
func Valid(name string) bool {
	_, err := Load(name)
	return err == nil
}
