// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package ibjournaltrade defines the canonical trade record of the journal.
//
// Every trade is normalized into a NormalizedTradeData regardless of the
// broker it came from, and only records that pass validation are stored.
package ibjournaltrade

import (
	"fmt"
	"slices"
	"strings"

	"github.com/bufdev/ibjournal/internal/pkg/mathdec"
	"github.com/bufdev/ibjournal/internal/pkg/moneyfmt"
)

// OptionMultiplier is the contract multiplier of equity options.
const OptionMultiplier = 100.0

// Broker is a broker trades can be imported from.
type Broker string

const (
	// BrokerIBKR is Interactive Brokers.
	BrokerIBKR Broker = "IBKR"
	// BrokerSchwab is Charles Schwab.
	BrokerSchwab Broker = "SCHWAB"
	// BrokerManual is a manually entered trade.
	BrokerManual Broker = "MANUAL"
)

// AllBrokers returns all known brokers.
func AllBrokers() []Broker {
	return []Broker{BrokerIBKR, BrokerSchwab, BrokerManual}
}

// IsValid reports whether the broker is known.
func (b Broker) IsValid() bool {
	return slices.Contains(AllBrokers(), b)
}

// ParseBroker parses a broker name, case-insensitively.
func ParseBroker(s string) (Broker, error) {
	broker := Broker(strings.ToUpper(strings.TrimSpace(s)))
	if !broker.IsValid() {
		return "", fmt.Errorf("unknown broker %q, must be one of %v", s, AllBrokers())
	}
	return broker, nil
}

// AssetCategory is the instrument class of a trade.
type AssetCategory string

const (
	// AssetCategoryStock is a stock or ETF.
	AssetCategoryStock AssetCategory = "STK"
	// AssetCategoryOption is an equity or index option.
	AssetCategoryOption AssetCategory = "OPT"
	// AssetCategoryFuture is a future.
	AssetCategoryFuture AssetCategory = "FUT"
	// AssetCategoryFutureOption is an option on a future.
	AssetCategoryFutureOption AssetCategory = "FOP"
	// AssetCategoryCash is a currency conversion.
	AssetCategoryCash AssetCategory = "CASH"
	// AssetCategoryBond is a bond.
	AssetCategoryBond AssetCategory = "BOND"
	// AssetCategoryWarrant is a warrant.
	AssetCategoryWarrant AssetCategory = "WAR"
	// AssetCategoryFund is a mutual fund.
	AssetCategoryFund AssetCategory = "FUND"
)

// AllAssetCategories returns all known asset categories.
func AllAssetCategories() []AssetCategory {
	return []AssetCategory{
		AssetCategoryStock,
		AssetCategoryOption,
		AssetCategoryFuture,
		AssetCategoryFutureOption,
		AssetCategoryCash,
		AssetCategoryBond,
		AssetCategoryWarrant,
		AssetCategoryFund,
	}
}

// IsValid reports whether the asset category is known.
func (a AssetCategory) IsValid() bool {
	return slices.Contains(AllAssetCategories(), a)
}

// OpenClose says whether a trade opened or closed a position.
type OpenClose string

const (
	// OpenCloseOpen is an opening trade.
	OpenCloseOpen OpenClose = "O"
	// OpenCloseClose is a closing trade.
	OpenCloseClose OpenClose = "C"
)

// NormalizedTradeData is the canonical trade record.
//
// Optional fields are pointers: nil means absent, which is distinct from zero.
type NormalizedTradeData struct {
	// ID is the stable identity of the trade.
	ID string `json:"id"`
	// ImportTimestamp is the RFC 3339 time the trade was imported.
	ImportTimestamp string `json:"import_timestamp"`
	Broker          Broker `json:"broker"`
	AccountID       string `json:"account_id,omitempty"`
	Symbol          string `json:"symbol"`
	// TradeDate is YYYY-MM-DD.
	TradeDate string `json:"trade_date"`
	// SettleDate is YYYY-MM-DD.
	SettleDate    *string       `json:"settle_date,omitempty"`
	AssetCategory AssetCategory `json:"asset_category"`
	OptionSymbol  *string       `json:"option_symbol,omitempty"`
	// ExpiryDate is YYYY-MM-DD.
	ExpiryDate  *string  `json:"expiry_date,omitempty"`
	StrikePrice *float64 `json:"strike_price,omitempty"`
	// PutCall is "P" or "C".
	PutCall    *string  `json:"put_call,omitempty"`
	Multiplier *float64 `json:"multiplier,omitempty"`
	// Quantity is positive for buys, negative for sells.
	Quantity   float64 `json:"quantity"`
	TradePrice float64 `json:"trade_price"`
	Currency   string  `json:"currency"`
	// Proceeds is the cash received, never negative.
	Proceeds float64 `json:"proceeds"`
	// Cost is the cash paid, never negative.
	Cost float64 `json:"cost"`
	// Commission is never negative.
	Commission *float64 `json:"commission,omitempty"`
	// Fees is never negative.
	Fees float64 `json:"fees"`
	// NetAmount is the realized P&L of a closing trade, and 0 for an opening trade.
	NetAmount          float64   `json:"net_amount"`
	OpenCloseIndicator OpenClose `json:"open_close_indicator"`
	CostBasis          float64   `json:"cost_basis"`
	Description        string    `json:"description,omitempty"`
}

// IsClose reports whether the trade closed a position.
func (n *NormalizedTradeData) IsClose() bool {
	return n.OpenCloseIndicator == OpenCloseClose
}

// Headers returns the column headers for table/CSV output.
func Headers() []string {
	return []string{"DATE", "ACCOUNT", "SYMBOL", "CATEGORY", "O/C", "QUANTITY", "PRICE", "CURRENCY", "PROCEEDS", "COST", "COMMISSION", "NET", "ID"}
}

// ToRow converts a trade to a string slice for table/CSV output.
func ToRow(n *NormalizedTradeData) []string {
	commission := ""
	if n.Commission != nil {
		commission = moneyfmt.Format(*n.Commission, n.Currency)
	}
	return []string{
		n.TradeDate,
		n.AccountID,
		n.Symbol,
		string(n.AssetCategory),
		string(n.OpenCloseIndicator),
		mathdec.ToString(n.Quantity),
		mathdec.ToString(n.TradePrice),
		n.Currency,
		moneyfmt.FormatOrBlank(n.Proceeds, n.Currency),
		moneyfmt.FormatOrBlank(n.Cost, n.Currency),
		commission,
		moneyfmt.Format(n.NetAmount, n.Currency),
		n.ID,
	}
}
