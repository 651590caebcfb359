// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package moneyfmt formats float64 amounts for display using the currency
// rules (fraction digits, grapheme, separators) of github.com/Rhymond/go-money.
package moneyfmt

import (
	"fmt"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/bufdev/ibjournal/internal/pkg/mathdec"
	"github.com/shopspring/decimal"
)

// Format formats the amount in the given ISO 4217 currency (e.g., "$1,234.50").
//
// Unknown currency codes fall back to the plain decimal followed by the code.
func Format(amount float64, currencyCode string) string {
	if !mathdec.IsFinite(amount) {
		return fmt.Sprint(amount)
	}
	currencyCode = strings.ToUpper(strings.TrimSpace(currencyCode))
	currency := money.GetCurrency(currencyCode)
	if currency == nil {
		if currencyCode == "" {
			return mathdec.ToString(amount)
		}
		return mathdec.ToString(amount) + " " + currencyCode
	}
	// Convert to minor units (cents for USD) as go-money stores int64 minor amounts.
	minorUnits := decimal.NewFromFloat(amount).Shift(int32(currency.Fraction)).Round(0).IntPart()
	return money.New(minorUnits, currency.Code).Display()
}

// FormatOrBlank formats the amount like Format, returning an empty string for zero.
func FormatOrBlank(amount float64, currencyCode string) string {
	if amount == 0 {
		return ""
	}
	return Format(amount, currencyCode)
}
