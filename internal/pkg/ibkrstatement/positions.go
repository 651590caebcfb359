// Copyright 2026 Peter Edge
//
// All rights reserved.

package ibkrstatement

import (
	"log/slog"
	"strings"
	"time"

	"github.com/bufdev/ibjournal/internal/pkg/mathdec"
)

// AssetType classifies a position.
type AssetType string

const (
	// AssetTypeStock is any non-option position.
	AssetTypeStock AssetType = "STOCK"
	// AssetTypeOption is an option position.
	AssetTypeOption AssetType = "OPTION"
)

// summaryDiscriminator is the DataDiscriminator of position summary rows.
const summaryDiscriminator = "Summary"

// positionsSectionNames are the position section names, in lookup order.
var positionsSectionNames = []string{"Positions", "Open Positions"}

// Position is one open position.
type Position struct {
	Symbol       string  `json:"symbol"`
	Quantity     float64 `json:"quantity"`
	MarketPrice  float64 `json:"market_price"`
	MarketValue  float64 `json:"market_value"`
	AverageCost  float64 `json:"average_cost"`
	UnrealizedPL float64 `json:"unrealized_pl"`
	RealizedPL   float64 `json:"realized_pl"`
	// AssetCategory is the IBKR category text, if the section has one.
	AssetCategory string    `json:"asset_category,omitempty"`
	AssetType     AssetType `json:"asset_type"`
	Currency      string    `json:"currency"`
	AccountID     string    `json:"account_id"`
	LastUpdated   time.Time `json:"last_updated"`
	// Option is the decoded option contract.
	//
	// Nil if the position is not an option or its symbol could not be decoded.
	Option *OptionContract `json:"option,omitempty"`
}

// positionField identifies a column of a positions section.
type positionField int

const (
	positionFieldSymbol positionField = iota + 1
	positionFieldQuantity
	positionFieldMarketPrice
	positionFieldMarketValue
	positionFieldAverageCost
	positionFieldUnrealizedPL
	positionFieldRealizedPL
	positionFieldAssetCategory
	positionFieldCurrency
	positionFieldAccount
	positionFieldDataDiscriminator
)

// positionFieldCandidates lists the normalized header names accepted per field.
var positionFieldCandidates = map[positionField][]string{
	positionFieldSymbol:            {"symbol", "ticker"},
	positionFieldQuantity:          {"quantity", "position", "pos", "qty"},
	positionFieldMarketPrice:       {"closeprice", "marketprice", "markprice", "price"},
	positionFieldMarketValue:       {"value", "marketvalue", "positionvalue"},
	positionFieldAverageCost:       {"costprice", "averagecost", "avgcost", "averageprice", "avgprice"},
	positionFieldUnrealizedPL:      {"unrealizedp/l", "unrealizedpnl", "unrealizedpl"},
	positionFieldRealizedPL:        {"realizedp/l", "realizedpnl", "realizedpl"},
	positionFieldAssetCategory:     {"assetcategory", "assettype", "assetclass"},
	positionFieldCurrency:          {"currency"},
	positionFieldAccount:           {"account", "accountid"},
	positionFieldDataDiscriminator: {"datadiscriminator"},
}

// positionColumns maps fields to cell indexes.
type positionColumns map[positionField]int

func (c positionColumns) cell(row RawRow, field positionField) (string, bool) {
	index, ok := c[field]
	if !ok {
		return "", false
	}
	return row.Cell(index), true
}

// ExtractPositions extracts open positions from the "Positions" section,
// falling back to "Open Positions".
//
// Columns are resolved by header name, so column order does not matter. Each
// span's header is resolved separately; a span whose header lacks the symbol
// or quantity column (a Total row) reuses the last resolved columns. Rows without a symbol or with a
// non-numeric quantity are logged and skipped. Rows whose DataDiscriminator
// is present and is not "Summary" (lot detail rows) are skipped silently.
//
// accountID is used for rows that do not carry their own account column.
func ExtractPositions(
	logger *slog.Logger,
	sections Sections,
	accountID string,
	lastUpdated time.Time,
) []Position {
	section, ok := sections.Lookup(positionsSectionNames...)
	if !ok {
		return nil
	}
	var positions []Position
	var lastColumns positionColumns
	for _, span := range section.Spans {
		// Total and SubTotal rows open spans of their own. Their rows belong to
		// the last span whose header resolved the symbol and quantity columns.
		columns := resolvePositionColumns(span.Header)
		if columns.hasRequired() {
			lastColumns = columns
		} else {
			columns = lastColumns
		}
		if len(span.Rows) == 0 {
			continue
		}
		if columns == nil {
			logger.Warn("skipping positions span without symbol and quantity columns", "section", section.Name)
			continue
		}
		for _, row := range span.Rows {
			if discriminator, ok := columns.cell(row, positionFieldDataDiscriminator); ok && discriminator != summaryDiscriminator {
				continue
			}
			position, ok := parsePositionRow(logger, row, columns)
			if !ok {
				continue
			}
			if position.AccountID == "" {
				position.AccountID = accountID
			}
			position.LastUpdated = lastUpdated
			positions = append(positions, position)
		}
	}
	return positions
}

// *** PRIVATE ***

// hasRequired reports whether the symbol and quantity columns were resolved.
func (c positionColumns) hasRequired() bool {
	_, hasSymbol := c[positionFieldSymbol]
	_, hasQuantity := c[positionFieldQuantity]
	return hasSymbol && hasQuantity
}

// resolvePositionColumns maps each field to the first header cell whose
// normalized name is one of the field's candidates. The first two cells
// (section name and row type) are not columns.
func resolvePositionColumns(header RawRow) positionColumns {
	normalizedToIndex := make(map[string]int, len(header))
	for i := 2; i < len(header); i++ {
		name := normalizeHeaderName(header[i])
		if _, ok := normalizedToIndex[name]; !ok {
			normalizedToIndex[name] = i
		}
	}
	columns := make(positionColumns)
	for field, candidates := range positionFieldCandidates {
		for _, candidate := range candidates {
			if index, ok := normalizedToIndex[candidate]; ok {
				columns[field] = index
				break
			}
		}
	}
	return columns
}

// normalizeHeaderName lower-cases a header cell and removes all whitespace
// (e.g., "Unrealized P/L" to "unrealizedp/l").
func normalizeHeaderName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), "")
}

func parsePositionRow(logger *slog.Logger, row RawRow, columns positionColumns) (Position, bool) {
	symbol, _ := columns.cell(row, positionFieldSymbol)
	if symbol == "" {
		logger.Warn("skipping position row without symbol")
		return Position{}, false
	}
	quantityValue, _ := columns.cell(row, positionFieldQuantity)
	quantity, err := mathdec.ParseNumber(quantityValue)
	if err != nil {
		logger.Warn("skipping position row", "symbol", symbol, "error", err)
		return Position{}, false
	}
	assetCategory, _ := columns.cell(row, positionFieldAssetCategory)
	currency, _ := columns.cell(row, positionFieldCurrency)
	account, _ := columns.cell(row, positionFieldAccount)
	position := Position{
		Symbol:        symbol,
		Quantity:      quantity,
		MarketPrice:   optionalPositionNumber(logger, row, columns, positionFieldMarketPrice, symbol),
		MarketValue:   optionalPositionNumber(logger, row, columns, positionFieldMarketValue, symbol),
		AverageCost:   optionalPositionNumber(logger, row, columns, positionFieldAverageCost, symbol),
		UnrealizedPL:  optionalPositionNumber(logger, row, columns, positionFieldUnrealizedPL, symbol),
		RealizedPL:    optionalPositionNumber(logger, row, columns, positionFieldRealizedPL, symbol),
		AssetCategory: assetCategory,
		AssetType:     classifyAssetType(assetCategory),
		Currency:      currency,
		AccountID:     account,
	}
	if position.AssetType == AssetTypeOption {
		if contract, ok := DecodeOptionSymbol(symbol); ok {
			position.Option = &contract
		}
	}
	return position, true
}

// optionalPositionNumber parses an optional numeric column, returning 0 when
// the column is absent or the cell cannot be parsed.
func optionalPositionNumber(
	logger *slog.Logger,
	row RawRow,
	columns positionColumns,
	field positionField,
	symbol string,
) float64 {
	value, ok := columns.cell(row, field)
	if !ok {
		return 0
	}
	f, err := mathdec.ParseOptionalNumber(value)
	if err != nil {
		logger.Debug("ignoring unparseable position value", "symbol", symbol, "value", value)
		return 0
	}
	return f
}

func classifyAssetType(assetCategory string) AssetType {
	if strings.Contains(strings.ToUpper(assetCategory), "OPTION") {
		return AssetTypeOption
	}
	return AssetTypeStock
}
