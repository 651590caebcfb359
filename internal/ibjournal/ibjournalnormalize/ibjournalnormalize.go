// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package ibjournalnormalize maps extracted statement trades into canonical
// NormalizedTradeData records.
//
// This is the only place monetary fields are derived. Signed statement values
// are split into unsigned canonical fields:
//
//   - Proceeds is the raw proceeds if positive, else 0.
//   - Cost is the absolute raw proceeds if negative, else 0.
//   - Commission and fees are always absolute values.
//   - NetAmount is the trade P&L for a closing trade, and 0 for an opening trade.
package ibjournalnormalize

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/bufdev/ibjournal/internal/ibjournal/ibjournaltrade"
	"github.com/bufdev/ibjournal/internal/pkg/ibkrstatement"
	"github.com/bufdev/ibjournal/internal/pkg/mathdec"
	"github.com/google/uuid"
)

// tradeIDNamespace is the UUID namespace of generated trade IDs.
var tradeIDNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/bufdev/ibjournal/trade"))

// compactDateRegexp matches a YYYYMMDD date.
var compactDateRegexp = regexp.MustCompile(`^\d{8}$`)

// assetCategories maps lower-cased IBKR category text to canonical categories.
var assetCategories = map[string]ibjournaltrade.AssetCategory{
	"stocks":                   ibjournaltrade.AssetCategoryStock,
	"stock":                    ibjournaltrade.AssetCategoryStock,
	"stk":                      ibjournaltrade.AssetCategoryStock,
	"equity and index options": ibjournaltrade.AssetCategoryOption,
	"options":                  ibjournaltrade.AssetCategoryOption,
	"option":                   ibjournaltrade.AssetCategoryOption,
	"opt":                      ibjournaltrade.AssetCategoryOption,
	"futures":                  ibjournaltrade.AssetCategoryFuture,
	"future":                   ibjournaltrade.AssetCategoryFuture,
	"fut":                      ibjournaltrade.AssetCategoryFuture,
	"options on futures":       ibjournaltrade.AssetCategoryFutureOption,
	"future options":           ibjournaltrade.AssetCategoryFutureOption,
	"fop":                      ibjournaltrade.AssetCategoryFutureOption,
	"forex":                    ibjournaltrade.AssetCategoryCash,
	"cash":                     ibjournaltrade.AssetCategoryCash,
	"bonds":                    ibjournaltrade.AssetCategoryBond,
	"bond":                     ibjournaltrade.AssetCategoryBond,
	"warrants":                 ibjournaltrade.AssetCategoryWarrant,
	"warrant":                  ibjournaltrade.AssetCategoryWarrant,
	"war":                      ibjournaltrade.AssetCategoryWarrant,
	"mutual funds":             ibjournaltrade.AssetCategoryFund,
	"funds":                    ibjournaltrade.AssetCategoryFund,
	"fund":                     ibjournaltrade.AssetCategoryFund,
}

// Normalizer normalizes the trades of one import.
type Normalizer struct {
	broker          ibjournaltrade.Broker
	importTimestamp string
}

// NewNormalizer returns a new Normalizer that stamps every record with the
// broker and import time.
func NewNormalizer(broker ibjournaltrade.Broker, importTime time.Time) *Normalizer {
	return &Normalizer{
		broker:          broker,
		importTimestamp: importTime.UTC().Format(time.RFC3339),
	}
}

// Normalize normalizes a single trade.
//
// The trade's ID is kept if set. Otherwise the ID is derived from the
// trade's content, so normalizing the same trade again yields the same ID.
func (n *Normalizer) Normalize(trade *ibkrstatement.Trade) *ibjournaltrade.NormalizedTradeData {
	return n.normalize(trade, 0)
}

// NormalizeAll normalizes trades in order.
//
// Trades with identical content get distinct IDs by their order of
// occurrence, so repeated identical executions are not mistaken for
// duplicates of each other.
func (n *Normalizer) NormalizeAll(trades []ibkrstatement.Trade) []*ibjournaltrade.NormalizedTradeData {
	normalizedTrades := make([]*ibjournaltrade.NormalizedTradeData, 0, len(trades))
	occurrences := make(map[string]int, len(trades))
	for i := range trades {
		key := tradeIDName(&trades[i])
		normalizedTrades = append(normalizedTrades, n.normalize(&trades[i], occurrences[key]))
		occurrences[key]++
	}
	return normalizedTrades
}

// NormalizeAssetCategory maps IBKR category text (e.g., "Equity and Index
// Options") to a canonical asset category.
//
// Unknown text is returned upper-cased, which is not a valid category.
func NormalizeAssetCategory(assetCategory string) ibjournaltrade.AssetCategory {
	trimmed := strings.TrimSpace(assetCategory)
	if category, ok := assetCategories[strings.ToLower(trimmed)]; ok {
		return category
	}
	return ibjournaltrade.AssetCategory(strings.ToUpper(trimmed))
}

// TradeDate returns the YYYY-MM-DD trade date of the trade.
//
// An explicit TradeDate wins. Otherwise the date portion of DateTime is
// used, with trailing stray commas stripped ("2025-01-02, 10:00:00" and
// "20250102;100000" both yield "2025-01-02").
func TradeDate(trade *ibkrstatement.Trade) string {
	if tradeDate := strings.TrimSpace(trade.TradeDate); tradeDate != "" {
		return tradeDate
	}
	fields := strings.Fields(trade.DateTime)
	if len(fields) == 0 {
		return ""
	}
	datePart, _, _ := strings.Cut(fields[0], ";")
	datePart = strings.TrimRight(datePart, ",")
	if compactDateRegexp.MatchString(datePart) {
		return datePart[0:4] + "-" + datePart[4:6] + "-" + datePart[6:8]
	}
	return datePart
}

// *** PRIVATE ***

func (n *Normalizer) normalize(trade *ibkrstatement.Trade, occurrence int) *ibjournaltrade.NormalizedTradeData {
	assetCategory := NormalizeAssetCategory(trade.AssetCategory)
	openClose := ibjournaltrade.OpenCloseOpen
	netAmount := 0.0
	if trade.IsClose() {
		openClose = ibjournaltrade.OpenCloseClose
		netAmount = mathdec.Round(trade.TradePL)
	}
	proceeds := 0.0
	cost := 0.0
	if trade.Proceeds > 0 {
		proceeds = mathdec.Round(trade.Proceeds)
	} else if trade.Proceeds < 0 {
		cost = mathdec.Abs(trade.Proceeds)
	}
	// Activity statements report a single Comm/Fee amount, carried as commission.
	commission := mathdec.Abs(trade.CommissionFee)
	normalized := &ibjournaltrade.NormalizedTradeData{
		ID:                 trade.ID,
		ImportTimestamp:    n.importTimestamp,
		Broker:             n.broker,
		AccountID:          trade.AccountID,
		Symbol:             strings.TrimSpace(trade.Symbol),
		TradeDate:          TradeDate(trade),
		AssetCategory:      assetCategory,
		Quantity:           mathdec.Round(trade.Quantity),
		TradePrice:         mathdec.Round(trade.TradePrice),
		Currency:           strings.ToUpper(strings.TrimSpace(trade.Currency)),
		Proceeds:           proceeds,
		Cost:               cost,
		Commission:         &commission,
		Fees:               0,
		NetAmount:          netAmount,
		OpenCloseIndicator: openClose,
		CostBasis:          mathdec.Round(trade.Basis),
		Description:        trade.Description,
	}
	if normalized.ID == "" {
		normalized.ID = newTradeID(trade, occurrence)
	}
	if assetCategory == ibjournaltrade.AssetCategoryOption {
		if contract, ok := ibkrstatement.DecodeOptionSymbol(trade.Symbol); ok {
			optionSymbol := normalized.Symbol
			expiryDate := contract.Expiry.String()
			strikePrice := contract.Strike
			putCall := contract.PutCall.Code()
			multiplier := ibjournaltrade.OptionMultiplier
			normalized.Symbol = contract.Root
			normalized.OptionSymbol = &optionSymbol
			normalized.ExpiryDate = &expiryDate
			normalized.StrikePrice = &strikePrice
			normalized.PutCall = &putCall
			normalized.Multiplier = &multiplier
		}
	}
	return normalized
}

func newTradeID(trade *ibkrstatement.Trade, occurrence int) string {
	name := tradeIDName(trade)
	if occurrence > 0 {
		name += "|" + strconv.Itoa(occurrence)
	}
	return uuid.NewSHA1(tradeIDNamespace, []byte(name)).String()
}

// tradeIDName is the content a generated trade ID is derived from.
func tradeIDName(trade *ibkrstatement.Trade) string {
	return strings.Join(
		[]string{
			trade.AccountID,
			strings.TrimSpace(trade.Symbol),
			trade.DateTime,
			mathdec.ToString(trade.Quantity),
			mathdec.ToString(trade.TradePrice),
		},
		"|",
	)
}
