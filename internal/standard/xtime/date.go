// Copyright 2026 Peter Edge
//
// All rights reserved.

// Originally copied from https://github.com/googleapis/google-cloud-go/blob/v0.116.0/civil/civil.go
// See https://github.com/googleapis/google-cloud-go/blob/v0.116.0/LICENSE.

// Package xtime provides a civil Date type for calendar dates without a time
// or location, as used for trade dates and reconciliation keys.
package xtime

import (
	"time"
)

// dateLayout is the only accepted textual form of a Date.
const dateLayout = "2006-01-02"

// Date is a calendar date in no particular location.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// TimeToDate returns the Date in which t occurs, in t's location.
func TimeToDate(t time.Time) Date {
	year, month, day := t.Date()
	return Date{Year: year, Month: month, Day: day}
}

// ParseDate parses a string in YYYY-MM-DD format and returns the date.
//
// The date must be a real calendar date, so "2023-02-30" is an error.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, err
	}
	return TimeToDate(t), nil
}

// String returns the date in YYYY-MM-DD format.
func (d Date) String() string {
	return d.In(time.UTC).Format(dateLayout)
}

// IsValid reports whether the date is a real calendar date.
func (d Date) IsValid() bool {
	return TimeToDate(d.In(time.UTC)) == d
}

// In returns the time corresponding to midnight of d in loc.
func (d Date) In(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

// Before reports whether d occurs before d2.
func (d Date) Before(d2 Date) bool {
	if d.Year != d2.Year {
		return d.Year < d2.Year
	}
	if d.Month != d2.Month {
		return d.Month < d2.Month
	}
	return d.Day < d2.Day
}

// After reports whether d occurs after d2.
func (d Date) After(d2 Date) bool {
	return d2.Before(d)
}

// Compare returns -1, 0 or +1 when d is before, equal to or after d2.
func (d Date) Compare(d2 Date) int {
	if d.Before(d2) {
		return -1
	}
	if d.After(d2) {
		return +1
	}
	return 0
}

// IsZero reports whether the date is the zero value.
func (d Date) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

// MarshalText implements encoding.TextMarshaler.
func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Date) UnmarshalText(data []byte) error {
	var err error
	*d, err = ParseDate(string(data))
	return err
}
