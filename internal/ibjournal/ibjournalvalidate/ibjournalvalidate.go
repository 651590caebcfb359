// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package ibjournalvalidate validates canonical trade records before they are stored.
//
// Validation never fixes data and never stops at the first failure: every
// rule is evaluated so that the full list of problems can be shown.
package ibjournalvalidate

import (
	"fmt"
	"iter"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/bufdev/ibjournal/internal/ibjournal/ibjournaltrade"
	"github.com/bufdev/ibjournal/internal/pkg/mathdec"
	"github.com/bufdev/ibjournal/internal/standard/xtime"
)

var (
	dateRegexp     = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	currencyRegexp = regexp.MustCompile(`^[A-Z]{3}$`)
)

// Errors returns the validation errors of the trade, in a fixed rule order.
//
// A nil trade yields exactly one error. Otherwise an empty sequence means
// the trade is acceptable.
func Errors(trade *ibjournaltrade.NormalizedTradeData) iter.Seq[string] {
	return func(yield func(string) bool) {
		if trade == nil {
			yield("Trade object is null or undefined.")
			return
		}
		for _, rule := range rules {
			message, ok := rule(trade)
			if !ok {
				continue
			}
			if !yield(message) {
				return
			}
		}
	}
}

// Validate returns all validation errors of the trade.
//
// Returns an empty, non-nil slice if the trade is acceptable.
func Validate(trade *ibjournaltrade.NormalizedTradeData) []string {
	return append([]string{}, slices.Collect(Errors(trade))...)
}

// Partition splits trades into those that pass validation and the errors of
// those that do not, keyed by position in the input.
func Partition(trades []*ibjournaltrade.NormalizedTradeData) ([]*ibjournaltrade.NormalizedTradeData, []Rejection) {
	var accepted []*ibjournaltrade.NormalizedTradeData
	var rejections []Rejection
	for i, trade := range trades {
		if errs := Validate(trade); len(errs) > 0 {
			rejections = append(rejections, Rejection{Index: i, Trade: trade, Errors: errs})
			continue
		}
		accepted = append(accepted, trade)
	}
	return accepted, rejections
}

// Rejection is a trade that failed validation.
type Rejection struct {
	// Index is the position of the trade in the validated slice.
	Index int `json:"index"`
	// Trade is the rejected trade. It may be nil.
	Trade *ibjournaltrade.NormalizedTradeData `json:"trade"`
	// Errors are the validation errors. Never empty.
	Errors []string `json:"errors"`
}

// String returns the errors joined by spaces, prefixed by the trade ID if any.
func (r Rejection) String() string {
	message := strings.Join(r.Errors, " ")
	if r.Trade != nil && r.Trade.ID != "" {
		return r.Trade.ID + ": " + message
	}
	return message
}

// *** PRIVATE ***

// rule returns an error message and true if the trade violates the rule.
type rule func(*ibjournaltrade.NormalizedTradeData) (string, bool)

var rules = []rule{
	func(trade *ibjournaltrade.NormalizedTradeData) (string, bool) {
		return "Missing or invalid id.", strings.TrimSpace(trade.ID) == ""
	},
	func(trade *ibjournaltrade.NormalizedTradeData) (string, bool) {
		_, err := time.Parse(time.RFC3339, trade.ImportTimestamp)
		return fmt.Sprintf("Invalid importTimestamp: %s.", trade.ImportTimestamp), err != nil
	},
	func(trade *ibjournaltrade.NormalizedTradeData) (string, bool) {
		return fmt.Sprintf("Invalid broker: %s.", trade.Broker), !trade.Broker.IsValid()
	},
	func(trade *ibjournaltrade.NormalizedTradeData) (string, bool) {
		return fmt.Sprintf("Invalid tradeDate format: %s. Expected YYYY-MM-DD.", trade.TradeDate), !isDate(trade.TradeDate)
	},
	func(trade *ibjournaltrade.NormalizedTradeData) (string, bool) {
		return "Missing or invalid symbol.", strings.TrimSpace(trade.Symbol) == ""
	},
	func(trade *ibjournaltrade.NormalizedTradeData) (string, bool) {
		return fmt.Sprintf("Invalid assetCategory: %s.", trade.AssetCategory), !trade.AssetCategory.IsValid()
	},
	func(trade *ibjournaltrade.NormalizedTradeData) (string, bool) {
		return "Invalid quantity: must be a number.", !mathdec.IsFinite(trade.Quantity)
	},
	func(trade *ibjournaltrade.NormalizedTradeData) (string, bool) {
		return "Invalid tradePrice: must be a number.", !mathdec.IsFinite(trade.TradePrice)
	},
	func(trade *ibjournaltrade.NormalizedTradeData) (string, bool) {
		return fmt.Sprintf("Invalid currency: %s. Expected a 3-letter code.", trade.Currency), !currencyRegexp.MatchString(trade.Currency)
	},
	func(trade *ibjournaltrade.NormalizedTradeData) (string, bool) {
		return "Invalid netAmount: must be a number.", !mathdec.IsFinite(trade.NetAmount)
	},
	func(trade *ibjournaltrade.NormalizedTradeData) (string, bool) {
		if trade.SettleDate == nil {
			return "", false
		}
		return fmt.Sprintf("Invalid settleDate format: %s. Expected YYYY-MM-DD.", *trade.SettleDate), !isDate(*trade.SettleDate)
	},
	func(trade *ibjournaltrade.NormalizedTradeData) (string, bool) {
		if trade.Commission == nil {
			return "", false
		}
		return "Invalid commission: must be a number.", !mathdec.IsFinite(*trade.Commission)
	},
	optionRule(func(trade *ibjournaltrade.NormalizedTradeData) (string, bool) {
		return "Missing or invalid expiryDate for option.", trade.ExpiryDate == nil || !isDate(*trade.ExpiryDate)
	}),
	optionRule(func(trade *ibjournaltrade.NormalizedTradeData) (string, bool) {
		return "Missing or invalid strikePrice for option.", !isPositive(trade.StrikePrice)
	}),
	optionRule(func(trade *ibjournaltrade.NormalizedTradeData) (string, bool) {
		return "Missing or invalid putCall for option.", trade.PutCall == nil || (*trade.PutCall != "P" && *trade.PutCall != "C")
	}),
	optionRule(func(trade *ibjournaltrade.NormalizedTradeData) (string, bool) {
		return "Missing or invalid multiplier for option.", !isPositive(trade.Multiplier)
	}),
}

// optionRule applies the rule to option trades only.
func optionRule(r rule) rule {
	return func(trade *ibjournaltrade.NormalizedTradeData) (string, bool) {
		if trade.AssetCategory != ibjournaltrade.AssetCategoryOption {
			return "", false
		}
		return r(trade)
	}
}

// isDate reports whether the value is YYYY-MM-DD and a real calendar date.
func isDate(value string) bool {
	if !dateRegexp.MatchString(value) {
		return false
	}
	_, err := xtime.ParseDate(value)
	return err == nil
}

func isPositive(value *float64) bool {
	return value != nil && mathdec.IsFinite(*value) && *value > 0
}
