// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package ibjournalpositions aggregates statement positions by underlying and
// verifies them against the positions implied by stored trades.
package ibjournalpositions

import (
	"sort"
	"strings"

	"github.com/bufdev/ibjournal/internal/ibjournal/ibjournaltrade"
	"github.com/bufdev/ibjournal/internal/pkg/ibkrstatement"
	"github.com/bufdev/ibjournal/internal/pkg/mathdec"
	"github.com/bufdev/ibjournal/internal/pkg/moneyfmt"
)

// Group is the positions of one underlying.
type Group struct {
	// Underlying is the stock symbol or option root.
	Underlying string `json:"underlying"`
	// Currency is the currency of the first position of the group.
	Currency string `json:"currency"`
	// Shares is the net stock quantity.
	Shares float64 `json:"shares"`
	// Contracts is the net option contract quantity.
	Contracts    float64 `json:"contracts"`
	MarketValue  float64 `json:"market_value"`
	UnrealizedPL float64 `json:"unrealized_pl"`
	// Positions are the positions of the group, in statement order.
	Positions []ibkrstatement.Position `json:"positions"`
}

// Overview is the positions of a statement grouped by underlying.
type Overview struct {
	// Groups are ordered by underlying.
	Groups       []*Group `json:"groups"`
	MarketValue  float64  `json:"market_value"`
	UnrealizedPL float64  `json:"unrealized_pl"`
}

// Aggregate groups positions by underlying.
//
// Options are grouped under their decoded root. Options whose symbol could
// not be decoded are grouped under the first word of their symbol.
func Aggregate(positions []ibkrstatement.Position) *Overview {
	underlyingToGroup := make(map[string]*Group)
	overview := &Overview{}
	for _, position := range positions {
		underlying := Underlying(position)
		group, ok := underlyingToGroup[underlying]
		if !ok {
			group = &Group{
				Underlying: underlying,
				Currency:   position.Currency,
			}
			underlyingToGroup[underlying] = group
			overview.Groups = append(overview.Groups, group)
		}
		if position.AssetType == ibkrstatement.AssetTypeOption {
			group.Contracts = mathdec.Sum(group.Contracts, position.Quantity)
		} else {
			group.Shares = mathdec.Sum(group.Shares, position.Quantity)
		}
		group.MarketValue = mathdec.Sum(group.MarketValue, position.MarketValue)
		group.UnrealizedPL = mathdec.Sum(group.UnrealizedPL, position.UnrealizedPL)
		group.Positions = append(group.Positions, position)
		overview.MarketValue = mathdec.Sum(overview.MarketValue, position.MarketValue)
		overview.UnrealizedPL = mathdec.Sum(overview.UnrealizedPL, position.UnrealizedPL)
	}
	sort.Slice(overview.Groups, func(i, j int) bool {
		return overview.Groups[i].Underlying < overview.Groups[j].Underlying
	})
	return overview
}

// Underlying returns the underlying symbol of the position.
func Underlying(position ibkrstatement.Position) string {
	if position.Option != nil {
		return position.Option.Root
	}
	if fields := strings.Fields(position.Symbol); len(fields) > 0 {
		return fields[0]
	}
	return position.Symbol
}

// GroupHeaders returns the column headers for table/CSV output.
func GroupHeaders() []string {
	return []string{"UNDERLYING", "CURRENCY", "SHARES", "CONTRACTS", "MARKET VALUE", "UNREALIZED P&L"}
}

// GroupToRow converts a Group to a string slice for table/CSV output.
func GroupToRow(group *Group) []string {
	return []string{
		group.Underlying,
		group.Currency,
		mathdec.ToString(group.Shares),
		mathdec.ToString(group.Contracts),
		moneyfmt.Format(group.MarketValue, group.Currency),
		moneyfmt.Format(group.UnrealizedPL, group.Currency),
	}
}

// DiscrepancyType describes the kind of position discrepancy.
type DiscrepancyType int

const (
	// DiscrepancyTypeQuantity indicates a quantity mismatch.
	DiscrepancyTypeQuantity DiscrepancyType = iota + 1
	// DiscrepancyTypeComputedOnly indicates a position implied by stored trades that the statement does not report.
	DiscrepancyTypeComputedOnly
	// DiscrepancyTypeReportedOnly indicates a position the statement reports that stored trades do not imply.
	DiscrepancyTypeReportedOnly
)

// String implements fmt.Stringer.
func (d DiscrepancyType) String() string {
	switch d {
	case DiscrepancyTypeQuantity:
		return "quantity"
	case DiscrepancyTypeComputedOnly:
		return "computed only"
	case DiscrepancyTypeReportedOnly:
		return "reported only"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (d DiscrepancyType) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Discrepancy is a mismatch between the net quantity implied by stored trades
// and the quantity a statement reports.
type Discrepancy struct {
	AccountID string          `json:"account_id"`
	Symbol    string          `json:"symbol"`
	Type      DiscrepancyType `json:"type"`
	// ComputedQuantity is the net quantity of the stored trades, 0 if none.
	ComputedQuantity float64 `json:"computed_quantity"`
	// ReportedQuantity is the quantity the statement reports, 0 if none.
	ReportedQuantity float64 `json:"reported_quantity"`
}

// Verify compares the net quantity of the stored trades against the reported
// positions, per (account, instrument).
//
// Options are matched on their full option symbol. Instruments whose trades
// net to zero and that are not reported are not discrepancies. Results are
// ordered by account and then symbol.
func Verify(trades []*ibjournaltrade.NormalizedTradeData, positions []ibkrstatement.Position) []Discrepancy {
	computed := make(map[instrumentKey]float64)
	for _, trade := range trades {
		key := instrumentKey{accountID: trade.AccountID, symbol: tradeInstrument(trade)}
		computed[key] = mathdec.Sum(computed[key], trade.Quantity)
	}
	reported := make(map[instrumentKey]float64, len(positions))
	for _, position := range positions {
		key := instrumentKey{accountID: position.AccountID, symbol: normalizeSymbol(position.Symbol)}
		reported[key] = mathdec.Sum(reported[key], position.Quantity)
	}
	var discrepancies []Discrepancy
	for key, computedQuantity := range computed {
		reportedQuantity, ok := reported[key]
		switch {
		case !ok && computedQuantity != 0:
			discrepancies = append(discrepancies, Discrepancy{
				AccountID:        key.accountID,
				Symbol:           key.symbol,
				Type:             DiscrepancyTypeComputedOnly,
				ComputedQuantity: computedQuantity,
			})
		case ok && computedQuantity != reportedQuantity:
			discrepancies = append(discrepancies, Discrepancy{
				AccountID:        key.accountID,
				Symbol:           key.symbol,
				Type:             DiscrepancyTypeQuantity,
				ComputedQuantity: computedQuantity,
				ReportedQuantity: reportedQuantity,
			})
		}
	}
	for key, reportedQuantity := range reported {
		if _, ok := computed[key]; !ok {
			discrepancies = append(discrepancies, Discrepancy{
				AccountID:        key.accountID,
				Symbol:           key.symbol,
				Type:             DiscrepancyTypeReportedOnly,
				ReportedQuantity: reportedQuantity,
			})
		}
	}
	sort.Slice(discrepancies, func(i, j int) bool {
		if discrepancies[i].AccountID != discrepancies[j].AccountID {
			return discrepancies[i].AccountID < discrepancies[j].AccountID
		}
		return discrepancies[i].Symbol < discrepancies[j].Symbol
	})
	return discrepancies
}

// *** PRIVATE ***

type instrumentKey struct {
	accountID string
	symbol    string
}

func tradeInstrument(trade *ibjournaltrade.NormalizedTradeData) string {
	if trade.OptionSymbol != nil {
		return normalizeSymbol(*trade.OptionSymbol)
	}
	return normalizeSymbol(trade.Symbol)
}

// normalizeSymbol collapses runs of whitespace, as option symbols are padded
// differently across exports.
func normalizeSymbol(symbol string) string {
	return strings.Join(strings.Fields(symbol), " ")
}
