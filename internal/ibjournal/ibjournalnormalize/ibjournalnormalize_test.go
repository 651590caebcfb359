// Copyright 2026 Peter Edge
//
// All rights reserved.

package ibjournalnormalize

import (
	"testing"
	"time"

	"github.com/bufdev/ibjournal/internal/ibjournal/ibjournaltrade"
	"github.com/bufdev/ibjournal/internal/pkg/ibkrstatement"
	"github.com/stretchr/testify/require"
)

var testImportTime = time.Date(2025, 2, 1, 12, 30, 0, 0, time.FixedZone("EST", -5*60*60))

func TestNormalizeProceedsAndCost(t *testing.T) {
	t.Parallel()
	normalizer := NewNormalizer(ibjournaltrade.BrokerIBKR, testImportTime)

	buy := normalizer.Normalize(&ibkrstatement.Trade{
		Symbol:        "AAPL",
		DateTime:      "2025-01-02, 10:15:00",
		Proceeds:      -500,
		CommissionFee: -1.25,
		Code:          "O",
	})
	require.Equal(t, 0.0, buy.Proceeds)
	require.Equal(t, 500.0, buy.Cost)
	require.NotNil(t, buy.Commission)
	require.Equal(t, 1.25, *buy.Commission)
	require.Equal(t, 0.0, buy.Fees)

	sell := normalizer.Normalize(&ibkrstatement.Trade{
		Symbol:        "AAPL",
		DateTime:      "2025-01-03, 10:15:00",
		Proceeds:      500,
		CommissionFee: 1.25,
		Code:          "C",
	})
	require.Equal(t, 500.0, sell.Proceeds)
	require.Equal(t, 0.0, sell.Cost)
	require.Equal(t, 1.25, *sell.Commission)
}

func TestNormalizeNetAmount(t *testing.T) {
	t.Parallel()
	normalizer := NewNormalizer(ibjournaltrade.BrokerIBKR, testImportTime)

	closing := normalizer.Normalize(&ibkrstatement.Trade{
		Symbol:     "MSFT",
		DateTime:   "2025-01-03, 11:00:00",
		Quantity:   -25,
		TradePrice: 400,
		RealizedPL: 1200.123456789,
		MTMPL:      -0.000001,
		TradePL:    1200.123456,
		Code:       "C;P",
	})
	require.Equal(t, ibjournaltrade.OpenCloseClose, closing.OpenCloseIndicator)
	require.True(t, closing.IsClose())
	require.Equal(t, 1200.123456, closing.NetAmount)

	// A sell that opens a short position is still an opening trade.
	opening := normalizer.Normalize(&ibkrstatement.Trade{
		Symbol:     "MSFT",
		DateTime:   "2025-01-03, 11:00:00",
		Quantity:   -25,
		TradePrice: 400,
		TradePL:    35,
		Code:       "O",
	})
	require.Equal(t, ibjournaltrade.OpenCloseOpen, opening.OpenCloseIndicator)
	require.Equal(t, 0.0, opening.NetAmount)
}

func TestNormalizeFields(t *testing.T) {
	t.Parallel()
	normalizer := NewNormalizer(ibjournaltrade.BrokerSchwab, testImportTime)
	normalized := normalizer.Normalize(&ibkrstatement.Trade{
		AccountID:     "U1234567",
		AssetCategory: "Stocks",
		Currency:      "usd",
		Symbol:        " AAPL ",
		DateTime:      "2025-01-02, 10:15:00",
		Quantity:      100,
		TradePrice:    150.5,
		Basis:         15051,
		Description:   "BUY 100 AAPL @ 150.5",
	})
	require.Equal(t, "2025-02-01T17:30:00Z", normalized.ImportTimestamp)
	require.Equal(t, ibjournaltrade.BrokerSchwab, normalized.Broker)
	require.Equal(t, "U1234567", normalized.AccountID)
	require.Equal(t, "AAPL", normalized.Symbol)
	require.Equal(t, "2025-01-02", normalized.TradeDate)
	require.Nil(t, normalized.SettleDate)
	require.Equal(t, ibjournaltrade.AssetCategoryStock, normalized.AssetCategory)
	require.Equal(t, "USD", normalized.Currency)
	require.Equal(t, 100.0, normalized.Quantity)
	require.Equal(t, 150.5, normalized.TradePrice)
	require.Equal(t, 15051.0, normalized.CostBasis)
	require.Equal(t, "BUY 100 AAPL @ 150.5", normalized.Description)
	require.Nil(t, normalized.OptionSymbol)
	require.Len(t, normalized.ID, 36)
}

func TestNormalizeOption(t *testing.T) {
	t.Parallel()
	normalizer := NewNormalizer(ibjournaltrade.BrokerIBKR, testImportTime)
	normalized := normalizer.Normalize(&ibkrstatement.Trade{
		AssetCategory: "Equity and Index Options",
		Currency:      "USD",
		Symbol:        "AAPL 250620P00185000",
		DateTime:      "2025-01-06, 09:45:00",
		Quantity:      2,
		TradePrice:    4.25,
		Code:          "O",
	})
	require.Equal(t, ibjournaltrade.AssetCategoryOption, normalized.AssetCategory)
	require.Equal(t, "AAPL", normalized.Symbol)
	require.NotNil(t, normalized.OptionSymbol)
	require.Equal(t, "AAPL 250620P00185000", *normalized.OptionSymbol)
	require.NotNil(t, normalized.ExpiryDate)
	require.Equal(t, "2025-06-20", *normalized.ExpiryDate)
	require.NotNil(t, normalized.StrikePrice)
	require.Equal(t, 185.0, *normalized.StrikePrice)
	require.NotNil(t, normalized.PutCall)
	require.Equal(t, "P", *normalized.PutCall)
	require.NotNil(t, normalized.Multiplier)
	require.Equal(t, 100.0, *normalized.Multiplier)

	// An option whose symbol does not decode has no option fields.
	undecoded := normalizer.Normalize(&ibkrstatement.Trade{
		AssetCategory: "Equity and Index Options",
		Symbol:        "SPX WEEKLY",
		DateTime:      "2025-01-06, 09:45:00",
	})
	require.Equal(t, ibjournaltrade.AssetCategoryOption, undecoded.AssetCategory)
	require.Equal(t, "SPX WEEKLY", undecoded.Symbol)
	require.Nil(t, undecoded.OptionSymbol)
	require.Nil(t, undecoded.ExpiryDate)
	require.Nil(t, undecoded.StrikePrice)
	require.Nil(t, undecoded.PutCall)
	require.Nil(t, undecoded.Multiplier)
}

func TestNormalizeIDs(t *testing.T) {
	t.Parallel()
	trade := ibkrstatement.Trade{
		AccountID:  "U1234567",
		Symbol:     "AAPL",
		DateTime:   "2025-01-02, 10:15:00",
		Quantity:   100,
		TradePrice: 150.5,
	}
	first := NewNormalizer(ibjournaltrade.BrokerIBKR, testImportTime).Normalize(&trade)
	second := NewNormalizer(ibjournaltrade.BrokerIBKR, testImportTime.Add(time.Hour)).Normalize(&trade)
	// IDs are stable across imports of the same trade.
	require.Equal(t, first.ID, second.ID)

	other := trade
	other.Quantity = 101
	require.NotEqual(t, first.ID, NewNormalizer(ibjournaltrade.BrokerIBKR, testImportTime).Normalize(&other).ID)

	// Identical executions within one import get distinct, stable IDs.
	normalizedTrades := NewNormalizer(ibjournaltrade.BrokerIBKR, testImportTime).NormalizeAll(
		[]ibkrstatement.Trade{trade, trade, other},
	)
	require.Len(t, normalizedTrades, 3)
	require.Equal(t, first.ID, normalizedTrades[0].ID)
	require.NotEqual(t, normalizedTrades[0].ID, normalizedTrades[1].ID)
	require.NotEqual(t, normalizedTrades[1].ID, normalizedTrades[2].ID)

	withID := trade
	withID.ID = "upstream-1"
	require.Equal(t, "upstream-1", NewNormalizer(ibjournaltrade.BrokerIBKR, testImportTime).Normalize(&withID).ID)
}

func TestTradeDate(t *testing.T) {
	t.Parallel()
	for _, test := range []struct {
		trade ibkrstatement.Trade
		want  string
	}{
		{trade: ibkrstatement.Trade{DateTime: "2025-01-02, 10:15:00"}, want: "2025-01-02"},
		{trade: ibkrstatement.Trade{DateTime: "2025-01-02,, 10:15:00"}, want: "2025-01-02"},
		{trade: ibkrstatement.Trade{DateTime: "2025-01-02"}, want: "2025-01-02"},
		{trade: ibkrstatement.Trade{DateTime: "20250102;101500"}, want: "2025-01-02"},
		{trade: ibkrstatement.Trade{DateTime: "2025-01-02, 10:15:00", TradeDate: "2025-01-03"}, want: "2025-01-03"},
		{trade: ibkrstatement.Trade{}, want: ""},
	} {
		require.Equal(t, test.want, TradeDate(&test.trade), "trade %+v", test.trade)
	}
}

func TestNormalizeAssetCategory(t *testing.T) {
	t.Parallel()
	require.Equal(t, ibjournaltrade.AssetCategoryStock, NormalizeAssetCategory("Stocks"))
	require.Equal(t, ibjournaltrade.AssetCategoryOption, NormalizeAssetCategory("Equity and Index Options"))
	require.Equal(t, ibjournaltrade.AssetCategoryCash, NormalizeAssetCategory("Forex"))
	require.Equal(t, ibjournaltrade.AssetCategoryFutureOption, NormalizeAssetCategory(" options on futures "))
	require.Equal(t, ibjournaltrade.AssetCategory("CFDS"), NormalizeAssetCategory("CFDs"))
	require.False(t, NormalizeAssetCategory("CFDs").IsValid())
}
