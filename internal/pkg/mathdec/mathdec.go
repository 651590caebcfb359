// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package mathdec provides decimal-exact parsing and rounding helpers for
// float64 monetary values.
//
// Statement amounts are carried as float64 throughout the pipeline, but every
// derived amount is computed and rounded through shopspring/decimal so that
// sums like 1200.123456789 + -0.000001 round to exactly 1200.123456.
package mathdec

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Places is the number of decimal places derived amounts are rounded to.
const Places = 6

// notAvailable is the IBKR placeholder for a missing numeric value.
const notAvailable = "--"

// ErrEmpty is returned by ParseNumber for an empty value.
var ErrEmpty = errors.New("empty numeric value")

// ParseNumber parses a numeric cell such as "-2,290.50" into a float64.
//
// Thousands separators and surrounding whitespace are stripped. Empty values,
// the "--" placeholder, and anything that is not a finite decimal number are
// errors.
func ParseNumber(value string) (float64, error) {
	cleanValue := CleanNumber(value)
	if cleanValue == "" {
		return 0, ErrEmpty
	}
	if cleanValue == notAvailable {
		return 0, fmt.Errorf("value %q is not available", value)
	}
	d, err := decimal.NewFromString(cleanValue)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q: %w", value, err)
	}
	return d.InexactFloat64(), nil
}

// ParseOptionalNumber parses a numeric cell like ParseNumber, but treats an
// empty value or the "--" placeholder as zero.
func ParseOptionalNumber(value string) (float64, error) {
	cleanValue := CleanNumber(value)
	if cleanValue == "" || cleanValue == notAvailable {
		return 0, nil
	}
	return ParseNumber(cleanValue)
}

// CleanNumber strips commas and surrounding whitespace (e.g., " -2,290 " to "-2290").
func CleanNumber(value string) string {
	return strings.ReplaceAll(strings.TrimSpace(value), ",", "")
}

// Round rounds f to Places decimal places, half away from zero.
//
// NaN and infinite values are returned unchanged.
func Round(f float64) float64 {
	if !IsFinite(f) {
		return f
	}
	return decimal.NewFromFloat(f).Round(Places).InexactFloat64()
}

// Sum adds the values exactly and rounds the result to Places decimal places.
func Sum(values ...float64) float64 {
	total := decimal.Zero
	for _, value := range values {
		if !IsFinite(value) {
			return math.NaN()
		}
		total = total.Add(decimal.NewFromFloat(value))
	}
	return total.Round(Places).InexactFloat64()
}

// Abs returns the absolute value of f rounded to Places decimal places.
func Abs(f float64) float64 {
	return Round(math.Abs(f))
}

// IsFinite reports whether f is neither NaN nor infinite.
func IsFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// ToString formats f with up to Places decimal places and no trailing zeros.
func ToString(f float64) string {
	if !IsFinite(f) {
		return fmt.Sprint(f)
	}
	return decimal.NewFromFloat(f).Round(Places).String()
}
