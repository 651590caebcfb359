// Copyright 2026 Peter Edge
//
// All rights reserved.

package ibkrstatement

import (
	"regexp"
	"strings"

	"github.com/bufdev/ibjournal/internal/pkg/mathdec"
)

// Unknown is the value of any AccountInfo field that could not be extracted.
const Unknown = "UNKNOWN"

var (
	// accountSectionNames are the account section names, in lookup order.
	accountSectionNames = []string{"Account Information", "Statement"}
	// accountIDRegexp matches values that look like an IBKR account ID (e.g., "U1234567").
	accountIDRegexp = regexp.MustCompile(`^[A-Z0-9]{8,}$`)
	// accountIDTextLabels are raw-text labels that precede an account ID.
	accountIDTextLabels = []string{"Account ID,", "Account Number,", "Account,"}
	// baseCurrencyTextLabels are raw-text labels that precede the base currency.
	baseCurrencyTextLabels = []string{"Base Currency,"}
	// currencyCodeRegexp matches a three-letter currency code.
	currencyCodeRegexp = regexp.MustCompile(`^[A-Z]{3}$`)
)

const (
	netAssetValueSectionName = "Net Asset Value"
	netAssetValueTotalLabel  = "Total"
	netAssetValueTotalColumn = "currenttotal"
)

// AccountInfo identifies the account a statement belongs to.
//
// String fields are never empty: fields that could not be extracted are Unknown.
type AccountInfo struct {
	AccountID    string  `json:"account_id"`
	AccountName  string  `json:"account_name"`
	AccountType  string  `json:"account_type"`
	BaseCurrency string  `json:"base_currency"`
	Balance      float64 `json:"balance"`
}

// IsUnknown reports whether no string field of the account info was extracted.
func (a AccountInfo) IsUnknown() bool {
	return a.AccountID == Unknown &&
		a.AccountName == Unknown &&
		a.AccountType == Unknown &&
		a.BaseCurrency == Unknown
}

// accountFieldRule assigns a field when its predicate matches a normalized field name.
type accountFieldRule struct {
	matches func(fieldName string) bool
	assign  func(info *AccountInfo, value string)
}

// accountFieldRules are evaluated in order; the first matching rule wins for a row.
var accountFieldRules = []accountFieldRule{
	{
		matches: func(fieldName string) bool { return strings.Contains(fieldName, "accountid") },
		assign:  func(info *AccountInfo, value string) { info.AccountID = value },
	},
	{
		matches: func(fieldName string) bool {
			return strings.Contains(fieldName, "accountname") || fieldName == "name"
		},
		assign: func(info *AccountInfo, value string) { info.AccountName = value },
	},
	{
		matches: func(fieldName string) bool { return strings.Contains(fieldName, "accounttype") },
		assign:  func(info *AccountInfo, value string) { info.AccountType = value },
	},
	{
		matches: func(fieldName string) bool { return strings.Contains(fieldName, "currency") },
		assign:  func(info *AccountInfo, value string) { info.BaseCurrency = value },
	},
}

// ExtractAccountInfo extracts account identity from the "Account Information"
// section, falling back to "Statement".
//
// Field-name rules run first. Then any value cell that looks like an account
// ID overrides the account ID, the last such value winning. If the account ID
// or base currency is still missing, the raw statement text is searched for
// their labels. The balance is read from the Net Asset Value total, if any.
func ExtractAccountInfo(sections Sections, rawText string) AccountInfo {
	info := AccountInfo{
		AccountID:    Unknown,
		AccountName:  Unknown,
		AccountType:  Unknown,
		BaseCurrency: Unknown,
	}
	if section, ok := sections.Lookup(accountSectionNames...); ok {
		rows := section.Rows()
		applyAccountFieldRules(&info, rows)
		applyAccountIDPattern(&info, rows)
	}
	if info.AccountID == Unknown {
		if value, ok := findLabeledValue(rawText, accountIDTextLabels, accountIDRegexp); ok {
			info.AccountID = value
		}
	}
	if info.BaseCurrency == Unknown {
		if value, ok := findLabeledValue(rawText, baseCurrencyTextLabels, currencyCodeRegexp); ok {
			info.BaseCurrency = value
		}
	}
	info.Balance = extractNetAssetValueTotal(sections)
	return info
}

// *** PRIVATE ***

// applyAccountFieldRules assigns fields from "<section>,Data,<field name>,<value>" rows.
func applyAccountFieldRules(info *AccountInfo, rows []RawRow) {
	for _, row := range rows {
		fieldName := normalizeHeaderName(row.Cell(2))
		value := row.Cell(3)
		if fieldName == "" || value == "" {
			continue
		}
		for _, rule := range accountFieldRules {
			if rule.matches(fieldName) {
				rule.assign(info, value)
				break
			}
		}
	}
}

func applyAccountIDPattern(info *AccountInfo, rows []RawRow) {
	for _, row := range rows {
		for i := 2; i < len(row); i++ {
			if accountIDRegexp.MatchString(row[i]) {
				info.AccountID = row[i]
			}
		}
	}
}

// findLabeledValue returns the first cell following any of the labels in the
// text that matches valueRegexp. Column headers such as "Account,Symbol" share
// the labels, so unmatched values are passed over.
func findLabeledValue(text string, labels []string, valueRegexp *regexp.Regexp) (string, bool) {
	for _, line := range splitLines(text) {
		for _, label := range labels {
			index := strings.Index(line, label)
			if index < 0 {
				continue
			}
			rest := line[index+len(label):]
			if comma := strings.IndexByte(rest, ','); comma >= 0 {
				rest = rest[:comma]
			}
			value := strings.Trim(strings.TrimSpace(rest), `"`)
			if valueRegexp.MatchString(value) {
				return value, true
			}
		}
	}
	return "", false
}

func extractNetAssetValueTotal(sections Sections) float64 {
	section, ok := sections.Lookup(netAssetValueSectionName)
	if !ok {
		return 0
	}
	for _, span := range section.Spans {
		column := -1
		for i := 2; i < len(span.Header); i++ {
			if normalizeHeaderName(span.Header[i]) == netAssetValueTotalColumn {
				column = i
				break
			}
		}
		if column < 0 {
			continue
		}
		for _, row := range span.Rows {
			if row.Cell(2) != netAssetValueTotalLabel {
				continue
			}
			balance, err := mathdec.ParseNumber(row.Cell(column))
			if err != nil {
				return 0
			}
			return mathdec.Round(balance)
		}
	}
	return 0
}
