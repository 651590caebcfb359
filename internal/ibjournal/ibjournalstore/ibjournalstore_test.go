// Copyright 2026 Peter Edge
//
// All rights reserved.

package ibjournalstore

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/bufdev/ibjournal/internal/ibjournal/ibjournaltrade"
	"github.com/bufdev/ibjournal/internal/standard/xtime"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestInsertAndListTrades(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newTestStore(t)

	trades := []*ibjournaltrade.NormalizedTradeData{
		newTestTrade("b", "MSFT", "2025-01-03"),
		newTestTrade("a", "AAPL", "2025-01-02"),
		newTestOptionTrade("c", "2025-01-03"),
	}
	result, err := store.InsertTrades(ctx, trades)
	require.NoError(t, err)
	require.Equal(t, &BatchResult{SuccessCount: 3}, result)

	listed, err := store.ListTrades(ctx, TradeFilter{})
	require.NoError(t, err)
	require.Len(t, listed, 3)
	// Ordered by trade date, then insertion order.
	require.Empty(t, cmp.Diff(trades[1], listed[0]))
	require.Empty(t, cmp.Diff(trades[0], listed[1]))
	require.Empty(t, cmp.Diff(trades[2], listed[2]))

	listed, err = store.ListTrades(ctx, TradeFilter{Symbol: "msft"})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	require.Equal(t, "b", listed[0].ID)

	listed, err = store.ListTrades(ctx, TradeFilter{Symbol: "AAPL 250620C00185000"})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	require.Equal(t, "c", listed[0].ID)

	listed, err = store.ListTrades(ctx, TradeFilter{From: xtime.Date{Year: 2025, Month: 1, Day: 3}})
	require.NoError(t, err)
	require.Len(t, listed, 2)

	listed, err = store.ListTrades(ctx, TradeFilter{To: xtime.Date{Year: 2025, Month: 1, Day: 2}, AccountID: "U1234567"})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	require.Equal(t, "a", listed[0].ID)
}

func TestInsertTradesDuplicates(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newTestStore(t)

	result, err := store.InsertTrades(ctx, []*ibjournaltrade.NormalizedTradeData{newTestTrade("a", "AAPL", "2025-01-02")})
	require.NoError(t, err)
	require.Equal(t, 1, result.SuccessCount)

	result, err = store.InsertTrades(
		ctx,
		[]*ibjournaltrade.NormalizedTradeData{
			newTestTrade("a", "AAPL", "2025-01-02"),
			newTestTrade("b", "MSFT", "2025-01-03"),
		},
	)
	require.NoError(t, err)
	require.Equal(t, &BatchResult{SuccessCount: 1, DuplicateCount: 1}, result)

	count, err := store.CountTrades(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, count)
}

func TestInsertTradesRollback(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newTestStore(t)

	invalid := newTestTrade("b", "MSFT", "2025-01-03")
	invalid.OpenCloseIndicator = "X"
	trades := []*ibjournaltrade.NormalizedTradeData{
		newTestTrade("a", "AAPL", "2025-01-02"),
		invalid,
		newTestTrade("c", "IBM", "2025-01-04"),
	}
	result, err := store.InsertTrades(ctx, trades)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrBatchRolledBack))
	require.NotNil(t, result)
	require.Equal(t, 0, result.SuccessCount)
	// Every trade of a rolled-back batch has an error.
	require.Len(t, result.Errors, len(trades))
	require.Equal(t, "a", result.Errors[0].TradeID)
	require.Contains(t, result.Errors[0].Error, "rolled back")
	require.Equal(t, "b", result.Errors[1].TradeID)
	require.NotContains(t, result.Errors[1].Error, "rolled back")
	require.Equal(t, "c", result.Errors[2].TradeID)

	// Nothing from the batch was committed.
	count, err := store.CountTrades(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, count)
}

func TestInsertTradesEmpty(t *testing.T) {
	t.Parallel()
	result, err := newTestStore(t).InsertTrades(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, &BatchResult{}, result)
}

func TestOpenFile(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ibjournal.db")
	store, err := Open(ctx, slog.New(slog.DiscardHandler), path)
	require.NoError(t, err)
	_, err = store.InsertTrades(ctx, []*ibjournaltrade.NormalizedTradeData{newTestTrade("a", "AAPL", "2025-01-02")})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	// Reopening keeps the stored trades.
	store, err = Open(ctx, slog.New(slog.DiscardHandler), path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	count, err := store.CountTrades(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestIsBusy(t *testing.T) {
	t.Parallel()
	require.True(t, isBusy(codeError(5)))
	require.True(t, isBusy(codeError(517)))
	require.True(t, isBusy(codeError(6)))
	require.False(t, isBusy(codeError(19)))
	require.False(t, isBusy(errors.New("busy")))
	require.False(t, isBusy(nil))
}

type codeError int

func (e codeError) Error() string { return "sqlite error" }
func (e codeError) Code() int     { return int(e) }

func newTestStore(t *testing.T) *Store {
	store, err := Open(context.Background(), slog.New(slog.DiscardHandler), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func newTestTrade(id string, symbol string, tradeDate string) *ibjournaltrade.NormalizedTradeData {
	commission := 1.25
	return &ibjournaltrade.NormalizedTradeData{
		ID:                 id,
		ImportTimestamp:    "2025-02-01T17:30:00Z",
		Broker:             ibjournaltrade.BrokerIBKR,
		AccountID:          "U1234567",
		Symbol:             symbol,
		TradeDate:          tradeDate,
		AssetCategory:      ibjournaltrade.AssetCategoryStock,
		Quantity:           -25,
		TradePrice:         400.5,
		Currency:           "USD",
		Proceeds:           10012.5,
		Commission:         &commission,
		NetAmount:          512.25,
		OpenCloseIndicator: ibjournaltrade.OpenCloseClose,
		CostBasis:          -9500,
		Description:        "SELL 25 " + symbol + " @ 400.5",
	}
}

func newTestOptionTrade(id string, tradeDate string) *ibjournaltrade.NormalizedTradeData {
	trade := newTestTrade(id, "AAPL", tradeDate)
	optionSymbol := "AAPL 250620C00185000"
	expiryDate := "2025-06-20"
	strikePrice := 185.0
	putCall := "C"
	multiplier := 100.0
	trade.AccountID = "U7654321"
	trade.AssetCategory = ibjournaltrade.AssetCategoryOption
	trade.OptionSymbol = &optionSymbol
	trade.ExpiryDate = &expiryDate
	trade.StrikePrice = &strikePrice
	trade.PutCall = &putCall
	trade.Multiplier = &multiplier
	trade.Commission = nil
	return trade
}
