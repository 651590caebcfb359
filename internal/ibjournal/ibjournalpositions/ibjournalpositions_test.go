// Copyright 2026 Peter Edge
//
// All rights reserved.

package ibjournalpositions

import (
	"testing"
	"time"

	"github.com/bufdev/ibjournal/internal/ibjournal/ibjournaltrade"
	"github.com/bufdev/ibjournal/internal/pkg/ibkrstatement"
	"github.com/bufdev/ibjournal/internal/standard/xtime"
	"github.com/stretchr/testify/require"
)

func TestAggregate(t *testing.T) {
	t.Parallel()
	overview := Aggregate(testPositions())
	require.Len(t, overview.Groups, 2)
	require.Equal(t, 16425.0, overview.MarketValue)
	require.Equal(t, 705.0, overview.UnrealizedPL)

	aapl := overview.Groups[0]
	require.Equal(t, "AAPL", aapl.Underlying)
	require.Equal(t, "USD", aapl.Currency)
	require.Equal(t, 100.0, aapl.Shares)
	require.Equal(t, 2.0, aapl.Contracts)
	require.Equal(t, 16375.0, aapl.MarketValue)
	require.Equal(t, 705.0, aapl.UnrealizedPL)
	require.Len(t, aapl.Positions, 2)
	require.Equal(
		t,
		[]string{"AAPL", "USD", "100", "2", "$16,375.00", "$705.00"},
		GroupToRow(aapl),
	)

	// An option that could not be decoded is grouped by the first word of its symbol.
	spx := overview.Groups[1]
	require.Equal(t, "SPX", spx.Underlying)
	require.Equal(t, 0.0, spx.Shares)
	require.Equal(t, -1.0, spx.Contracts)

	require.Empty(t, Aggregate(nil).Groups)
}

func TestVerify(t *testing.T) {
	t.Parallel()
	optionSymbol := "AAPL  250620C00185000"
	trades := []*ibjournaltrade.NormalizedTradeData{
		newTrade("U1", "AAPL", nil, 150),
		newTrade("U1", "AAPL", nil, -50),
		newTrade("U1", "AAPL", &optionSymbol, 2),
		// Traded out entirely; not reported and not a discrepancy.
		newTrade("U1", "IBM", nil, 10),
		newTrade("U1", "IBM", nil, -10),
		newTrade("U1", "MSFT", nil, 5),
		newTrade("U2", "AAPL", nil, 1),
	}
	discrepancies := Verify(trades, testPositions())
	require.Equal(
		t,
		[]Discrepancy{
			{AccountID: "U1", Symbol: "MSFT", Type: DiscrepancyTypeComputedOnly, ComputedQuantity: 5},
			{AccountID: "U1", Symbol: "SPX WEEKLY", Type: DiscrepancyTypeReportedOnly, ReportedQuantity: -1},
			{AccountID: "U2", Symbol: "AAPL", Type: DiscrepancyTypeComputedOnly, ComputedQuantity: 1},
		},
		discrepancies,
	)
	require.Equal(t, "reported only", discrepancies[1].Type.String())

	trades[0].Quantity = 149
	discrepancies = Verify(trades, testPositions())
	require.Contains(
		t,
		discrepancies,
		Discrepancy{AccountID: "U1", Symbol: "AAPL", Type: DiscrepancyTypeQuantity, ComputedQuantity: 99, ReportedQuantity: 100},
	)
}

func testPositions() []ibkrstatement.Position {
	return []ibkrstatement.Position{
		{
			Symbol:       "AAPL",
			Quantity:     100,
			MarketValue:  15525,
			UnrealizedPL: 475,
			AssetType:    ibkrstatement.AssetTypeStock,
			Currency:     "USD",
			AccountID:    "U1",
		},
		{
			Symbol:      "SPX WEEKLY",
			Quantity:    -1,
			MarketValue: 50,
			AssetType:   ibkrstatement.AssetTypeOption,
			Currency:    "USD",
			AccountID:   "U1",
		},
		{
			Symbol:       "AAPL 250620C00185000",
			Quantity:     2,
			MarketValue:  850,
			UnrealizedPL: 230,
			AssetType:    ibkrstatement.AssetTypeOption,
			Currency:     "USD",
			AccountID:    "U1",
			Option: &ibkrstatement.OptionContract{
				Root:    "AAPL",
				PutCall: ibkrstatement.PutCallCall,
				Strike:  185,
				Expiry:  xtime.Date{Year: 2025, Month: time.June, Day: 20},
			},
		},
	}
}

func newTrade(accountID string, symbol string, optionSymbol *string, quantity float64) *ibjournaltrade.NormalizedTradeData {
	return &ibjournaltrade.NormalizedTradeData{
		AccountID:    accountID,
		Symbol:       symbol,
		OptionSymbol: optionSymbol,
		Quantity:     quantity,
	}
}
