// Copyright 2026 Peter Edge
//
// All rights reserved.

package ibkrstatement

import (
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/bufdev/ibjournal/internal/pkg/mathdec"
)

const (
	// tradesSectionName is the section name of trade execution rows.
	tradesSectionName = "Trades"
	// orderDiscriminator is the DataDiscriminator of order-level trade rows.
	orderDiscriminator = "Order"
	// minTradeCells is the minimum cell count of a trade row.
	minTradeCells = 17
	// closeCode is the IBKR code token marking a closing trade.
	closeCode = "C"
)

// Fixed cell offsets shared by both trade layouts.
const (
	tradeAssetCategoryCell = 3
	tradeCurrencyCell      = 4
	tradeAccountCell       = 5
	tradeSymbolCell        = 6
	tradeDateCell          = 7
)

// tradeLayout holds the cell offsets of the fields that follow the date.
//
// Statements either split the date and time into two cells or keep the
// quoted "2025-01-02, 10:00:00" value in one cell, which shifts every later
// field left by one.
type tradeLayout struct {
	timeCell       int
	quantityCell   int
	priceCell      int
	costPriceCell  int
	proceedsCell   int
	commissionCell int
	basisCell      int
	realizedPLCell int
	mtmPLCell      int
	codeCell       int
}

var (
	splitDateTimeLayout = tradeLayout{
		timeCell:       8,
		quantityCell:   9,
		priceCell:      10,
		costPriceCell:  11,
		proceedsCell:   12,
		commissionCell: 13,
		basisCell:      14,
		realizedPLCell: 15,
		mtmPLCell:      16,
		// A 17-cell row has no code cell; Cell returns "" for it.
		codeCell: 17,
	}
	combinedDateTimeLayout = tradeLayout{
		timeCell:       -1,
		quantityCell:   8,
		priceCell:      9,
		costPriceCell:  10,
		proceedsCell:   11,
		commissionCell: 12,
		basisCell:      13,
		realizedPLCell: 14,
		mtmPLCell:      15,
		codeCell:       16,
	}
)

// Trade is one trade execution parsed from a Trades,Data,Order row.
type Trade struct {
	// ID is an upstream identifier. Activity statements do not carry one.
	ID string `json:"id,omitempty"`
	// AccountID is the IBKR account the trade was executed in.
	AccountID string `json:"account_id"`
	// AssetCategory is the IBKR category text (e.g., "Stocks", "Equity and Index Options").
	AssetCategory string `json:"asset_category"`
	// Currency is the trade currency code.
	Currency string `json:"currency"`
	// Symbol is the traded symbol.
	Symbol string `json:"symbol"`
	// DateTime is the combined "YYYY-MM-DD, HH:MM:SS" execution time.
	DateTime string `json:"date_time"`
	// TradeDate is an explicit YYYY-MM-DD trade date, if the source has one.
	TradeDate string `json:"trade_date,omitempty"`
	// Quantity is positive for buys, negative for sells.
	Quantity   float64 `json:"quantity"`
	TradePrice float64 `json:"trade_price"`
	CostPrice  float64 `json:"cost_price"`
	// Proceeds is signed: negative for buys (cash out), positive for sells.
	Proceeds float64 `json:"proceeds"`
	// CommissionFee is signed as reported (normally negative).
	CommissionFee float64 `json:"commission_fee"`
	Basis         float64 `json:"basis"`
	RealizedPL    float64 `json:"realized_pl"`
	MTMPL         float64 `json:"mtm_pl"`
	// TradePL is RealizedPL + MTMPL rounded to 6 decimal places.
	TradePL float64 `json:"trade_pl"`
	// Code is the semicolon-separated IBKR code (e.g., "O", "C;P").
	Code        string `json:"code"`
	Description string `json:"description"`
}

// IsClose reports whether the trade's code flags it as a closing trade.
func (t *Trade) IsClose() bool {
	for token := range strings.SplitSeq(t.Code, ";") {
		if strings.TrimSpace(token) == closeCode {
			return true
		}
	}
	return false
}

// ExtractTrades extracts trades from every Trades,Data,Order row with at
// least 17 cells.
//
// Rows are matched independently of section boundaries. A row that fails to
// parse is logged and skipped; the remaining rows are still extracted.
func ExtractTrades(logger *slog.Logger, rows []RawRow) []Trade {
	var trades []Trade
	for i, row := range rows {
		if !isTradeOrderRow(row) {
			continue
		}
		trade, err := parseTradeRow(row)
		if err != nil {
			logger.Warn("skipping trade row",
				"row", i+1,
				"symbol", row.Cell(tradeSymbolCell),
				"error", err,
			)
			continue
		}
		trades = append(trades, trade)
	}
	return trades
}

// *** PRIVATE ***

func isTradeOrderRow(row RawRow) bool {
	return len(row) >= minTradeCells &&
		row[0] == tradesSectionName &&
		row[1] == dataRowType &&
		row[2] == orderDiscriminator
}

// selectTradeLayout picks the combined layout when the date cell carries the
// time. Otherwise the split layout is used when the next cell holds a time or
// is empty, since an empty quantity cell is never valid.
func selectTradeLayout(row RawRow) tradeLayout {
	dateTime := row.Cell(tradeDateCell)
	if strings.ContainsAny(dateTime, ",:") {
		return combinedDateTimeLayout
	}
	if next := row.Cell(tradeDateCell + 1); next == "" || strings.Contains(next, ":") {
		return splitDateTimeLayout
	}
	return combinedDateTimeLayout
}

func parseTradeRow(row RawRow) (Trade, error) {
	layout := selectTradeLayout(row)
	symbol := row.Cell(tradeSymbolCell)
	if symbol == "" {
		return Trade{}, fmt.Errorf("missing symbol")
	}
	dateTime := row.Cell(tradeDateCell)
	if timeOfDay := row.Cell(layout.timeCell); timeOfDay != "" {
		dateTime = dateTime + ", " + timeOfDay
	}
	quantity, err := mathdec.ParseNumber(row.Cell(layout.quantityCell))
	if err != nil {
		return Trade{}, fmt.Errorf("parsing quantity: %w", err)
	}
	tradePrice, err := mathdec.ParseNumber(row.Cell(layout.priceCell))
	if err != nil {
		return Trade{}, fmt.Errorf("parsing trade price: %w", err)
	}
	costPrice, err := mathdec.ParseOptionalNumber(row.Cell(layout.costPriceCell))
	if err != nil {
		return Trade{}, fmt.Errorf("parsing cost price: %w", err)
	}
	proceeds, err := mathdec.ParseOptionalNumber(row.Cell(layout.proceedsCell))
	if err != nil {
		return Trade{}, fmt.Errorf("parsing proceeds: %w", err)
	}
	commission, err := mathdec.ParseOptionalNumber(row.Cell(layout.commissionCell))
	if err != nil {
		return Trade{}, fmt.Errorf("parsing commission: %w", err)
	}
	basis, err := mathdec.ParseOptionalNumber(row.Cell(layout.basisCell))
	if err != nil {
		return Trade{}, fmt.Errorf("parsing basis: %w", err)
	}
	realizedPL, err := mathdec.ParseOptionalNumber(row.Cell(layout.realizedPLCell))
	if err != nil {
		return Trade{}, fmt.Errorf("parsing realized P/L: %w", err)
	}
	mtmPL, err := mathdec.ParseOptionalNumber(row.Cell(layout.mtmPLCell))
	if err != nil {
		return Trade{}, fmt.Errorf("parsing MTM P/L: %w", err)
	}
	return Trade{
		AccountID:     row.Cell(tradeAccountCell),
		AssetCategory: row.Cell(tradeAssetCategoryCell),
		Currency:      row.Cell(tradeCurrencyCell),
		Symbol:        symbol,
		DateTime:      dateTime,
		Quantity:      quantity,
		TradePrice:    tradePrice,
		CostPrice:     costPrice,
		Proceeds:      proceeds,
		CommissionFee: commission,
		Basis:         basis,
		RealizedPL:    realizedPL,
		MTMPL:         mtmPL,
		TradePL:       mathdec.Sum(realizedPL, mtmPL),
		Code:          row.Cell(layout.codeCell),
		Description:   tradeDescription(symbol, quantity, tradePrice),
	}, nil
}

// tradeDescription returns a short human-readable summary such as "BUY 100 AAPL @ 150.5".
func tradeDescription(symbol string, quantity float64, tradePrice float64) string {
	side := "BUY"
	if quantity < 0 {
		side = "SELL"
	}
	return fmt.Sprintf("%s %s %s @ %s", side, mathdec.ToString(math.Abs(quantity)), symbol, mathdec.ToString(tradePrice))
}
