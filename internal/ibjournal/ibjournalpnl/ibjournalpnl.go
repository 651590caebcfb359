// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package ibjournalpnl aggregates realized P&L from stored trades.
package ibjournalpnl

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/bufdev/ibjournal/internal/ibjournal/ibjournaltrade"
	"github.com/bufdev/ibjournal/internal/pkg/mathdec"
	"github.com/bufdev/ibjournal/internal/standard/xtime"
)

// DailyPnL is the P&L of one symbol on one day.
type DailyPnL struct {
	Symbol string     `json:"symbol"`
	Date   xtime.Date `json:"date"`
	PnL    float64    `json:"pnl"`
}

// DailySummary summarizes the trading of one day.
type DailySummary struct {
	Date xtime.Date `json:"date"`
	// TradeCount is the number of trades, opening and closing.
	TradeCount int `json:"trade_count"`
	// RealizedPnL is the sum of the net amounts of closing trades.
	RealizedPnL float64 `json:"realized_pnl"`
}

// Daily returns one summary per trading day, ordered by date.
func Daily(trades []*ibjournaltrade.NormalizedTradeData) ([]DailySummary, error) {
	dateToSummary := make(map[xtime.Date]*DailySummary)
	for _, trade := range trades {
		date, err := xtime.ParseDate(trade.TradeDate)
		if err != nil {
			return nil, fmt.Errorf("trade %s: %w", trade.ID, err)
		}
		summary, ok := dateToSummary[date]
		if !ok {
			summary = &DailySummary{Date: date}
			dateToSummary[date] = summary
		}
		summary.TradeCount++
		if trade.IsClose() {
			summary.RealizedPnL = mathdec.Sum(summary.RealizedPnL, trade.NetAmount)
		}
	}
	summaries := make([]DailySummary, 0, len(dateToSummary))
	for _, summary := range dateToSummary {
		summaries = append(summaries, *summary)
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].Date.Before(summaries[j].Date)
	})
	return summaries, nil
}

// DailyBySymbol returns the realized P&L of closing trades per symbol and
// day, ordered by date and then symbol.
//
// Days where a symbol only had opening trades are omitted.
func DailyBySymbol(trades []*ibjournaltrade.NormalizedTradeData) ([]DailyPnL, error) {
	type key struct {
		symbol string
		date   xtime.Date
	}
	keyToPnL := make(map[key]float64)
	for _, trade := range trades {
		if !trade.IsClose() {
			continue
		}
		date, err := xtime.ParseDate(trade.TradeDate)
		if err != nil {
			return nil, fmt.Errorf("trade %s: %w", trade.ID, err)
		}
		k := key{symbol: trade.Symbol, date: date}
		keyToPnL[k] = mathdec.Sum(keyToPnL[k], trade.NetAmount)
	}
	dailyPnLs := make([]DailyPnL, 0, len(keyToPnL))
	for k, pnl := range keyToPnL {
		dailyPnLs = append(dailyPnLs, DailyPnL{Symbol: k.symbol, Date: k.date, PnL: pnl})
	}
	SortDailyPnLs(dailyPnLs)
	return dailyPnLs, nil
}

// SortDailyPnLs sorts by date and then symbol.
func SortDailyPnLs(dailyPnLs []DailyPnL) {
	sort.Slice(dailyPnLs, func(i, j int) bool {
		if c := dailyPnLs[i].Date.Compare(dailyPnLs[j].Date); c != 0 {
			return c < 0
		}
		return dailyPnLs[i].Symbol < dailyPnLs[j].Symbol
	})
}

// DailySummaryHeaders returns the column headers for table/CSV output.
func DailySummaryHeaders() []string {
	return []string{"DATE", "TRADES", "REALIZED P&L"}
}

// DailySummaryToRow converts a DailySummary to a string slice for table/CSV output.
func DailySummaryToRow(summary DailySummary) []string {
	return []string{
		summary.Date.String(),
		strconv.Itoa(summary.TradeCount),
		mathdec.ToString(summary.RealizedPnL),
	}
}

// DailyPnLHeaders returns the column headers for table/CSV output.
func DailyPnLHeaders() []string {
	return []string{"DATE", "SYMBOL", "P&L"}
}

// DailyPnLToRow converts a DailyPnL to a string slice for table/CSV output.
func DailyPnLToRow(dailyPnL DailyPnL) []string {
	return []string{
		dailyPnL.Date.String(),
		dailyPnL.Symbol,
		mathdec.ToString(dailyPnL.PnL),
	}
}
