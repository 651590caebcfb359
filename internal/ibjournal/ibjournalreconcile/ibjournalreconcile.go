// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package ibjournalreconcile compares the daily P&L computed from stored
// trades against an authoritative daily P&L file.
//
// The authoritative file is machine-generated, so unlike statements it is
// parsed strictly: any malformed row fails the whole parse.
package ibjournalreconcile

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/bufdev/ibjournal/internal/ibjournal/ibjournalpnl"
	"github.com/bufdev/ibjournal/internal/pkg/mathdec"
	"github.com/bufdev/ibjournal/internal/standard/xtime"
)

// Status is the reconciliation status of a (symbol, date) key.
type Status string

const (
	// StatusMatched means both sides agree within the tolerance.
	StatusMatched Status = "MATCHED"
	// StatusMismatched means both sides have the key but disagree.
	StatusMismatched Status = "MISMATCHED"
	// StatusLocalOnly means only the local side has the key.
	StatusLocalOnly Status = "LOCAL_ONLY"
	// StatusAuthoritativeOnly means only the authoritative side has the key.
	StatusAuthoritativeOnly Status = "AUTHORITATIVE_ONLY"
)

// Comparison is a (symbol, date) key present on both sides.
type Comparison struct {
	Symbol        string     `json:"symbol"`
	Date          xtime.Date `json:"date"`
	Local         float64    `json:"local"`
	Authoritative float64    `json:"authoritative"`
	// Delta is Local - Authoritative.
	Delta float64 `json:"delta"`
}

// Report is the result of a reconciliation.
//
// Every list is ordered by date and then symbol.
type Report struct {
	Tolerance         float64                 `json:"tolerance"`
	Matched           []Comparison            `json:"matched"`
	Mismatched        []Comparison            `json:"mismatched"`
	LocalOnly         []ibjournalpnl.DailyPnL `json:"local_only"`
	AuthoritativeOnly []ibjournalpnl.DailyPnL `json:"authoritative_only"`
}

// IsClean reports whether every key matched.
func (r *Report) IsClean() bool {
	return len(r.Mismatched) == 0 && len(r.LocalOnly) == 0 && len(r.AuthoritativeOnly) == 0
}

// ReportRow is one line of a report for display.
type ReportRow struct {
	Status        Status
	Symbol        string
	Date          xtime.Date
	Local         string
	Authoritative string
	Delta         string
}

// Rows returns the report as display rows: mismatches first, then keys
// present on one side only, then matches.
func (r *Report) Rows() []ReportRow {
	var rows []ReportRow
	for _, comparison := range r.Mismatched {
		rows = append(rows, comparisonRow(StatusMismatched, comparison))
	}
	for _, dailyPnL := range r.LocalOnly {
		rows = append(rows, ReportRow{
			Status: StatusLocalOnly,
			Symbol: dailyPnL.Symbol,
			Date:   dailyPnL.Date,
			Local:  mathdec.ToString(dailyPnL.PnL),
		})
	}
	for _, dailyPnL := range r.AuthoritativeOnly {
		rows = append(rows, ReportRow{
			Status:        StatusAuthoritativeOnly,
			Symbol:        dailyPnL.Symbol,
			Date:          dailyPnL.Date,
			Authoritative: mathdec.ToString(dailyPnL.PnL),
		})
	}
	for _, comparison := range r.Matched {
		rows = append(rows, comparisonRow(StatusMatched, comparison))
	}
	return rows
}

// ReportRowHeaders returns the column headers for table/CSV output.
func ReportRowHeaders() []string {
	return []string{"STATUS", "DATE", "SYMBOL", "LOCAL", "AUTHORITATIVE", "DELTA"}
}

// ReportRowToRow converts a ReportRow to a string slice for table/CSV output.
func ReportRowToRow(row ReportRow) []string {
	return []string{string(row.Status), row.Date.String(), row.Symbol, row.Local, row.Authoritative, row.Delta}
}

// ParseAuthoritative parses a headerless "symbol,date,pnl" CSV.
//
// Dates are YYYY-MM-DD. Blank lines are ignored. Any other malformed row
// fails the parse with an error naming the row.
func ParseAuthoritative(reader io.Reader) ([]ibjournalpnl.DailyPnL, error) {
	csvReader := csv.NewReader(reader)
	csvReader.FieldsPerRecord = 3
	csvReader.TrimLeadingSpace = true
	var dailyPnLs []ibjournalpnl.DailyPnL
	for {
		record, err := csvReader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading authoritative P&L: %w", err)
		}
		line, _ := csvReader.FieldPos(0)
		dailyPnL, err := parseAuthoritativeRecord(record)
		if err != nil {
			return nil, fmt.Errorf("authoritative P&L row %d: %w", line, err)
		}
		dailyPnLs = append(dailyPnLs, dailyPnL)
	}
	return dailyPnLs, nil
}

// Reconcile joins the local and authoritative series on (symbol, date).
//
// Duplicate keys within one series are summed first. A key present on both
// sides matches if the absolute delta is at most the tolerance.
func Reconcile(local []ibjournalpnl.DailyPnL, authoritative []ibjournalpnl.DailyPnL, tolerance float64) *Report {
	localByKey := sumByKey(local)
	authoritativeByKey := sumByKey(authoritative)
	report := &Report{Tolerance: tolerance}
	for key, localPnL := range localByKey {
		authoritativePnL, ok := authoritativeByKey[key]
		if !ok {
			report.LocalOnly = append(report.LocalOnly, ibjournalpnl.DailyPnL{Symbol: key.symbol, Date: key.date, PnL: localPnL})
			continue
		}
		comparison := Comparison{
			Symbol:        key.symbol,
			Date:          key.date,
			Local:         localPnL,
			Authoritative: authoritativePnL,
			Delta:         mathdec.Sum(localPnL, -authoritativePnL),
		}
		if mathdec.Abs(comparison.Delta) <= tolerance {
			report.Matched = append(report.Matched, comparison)
		} else {
			report.Mismatched = append(report.Mismatched, comparison)
		}
	}
	for key, authoritativePnL := range authoritativeByKey {
		if _, ok := localByKey[key]; !ok {
			report.AuthoritativeOnly = append(report.AuthoritativeOnly, ibjournalpnl.DailyPnL{Symbol: key.symbol, Date: key.date, PnL: authoritativePnL})
		}
	}
	sortComparisons(report.Matched)
	sortComparisons(report.Mismatched)
	ibjournalpnl.SortDailyPnLs(report.LocalOnly)
	ibjournalpnl.SortDailyPnLs(report.AuthoritativeOnly)
	return report
}

// *** PRIVATE ***

type key struct {
	symbol string
	date   xtime.Date
}

func sumByKey(dailyPnLs []ibjournalpnl.DailyPnL) map[key]float64 {
	keyToPnL := make(map[key]float64, len(dailyPnLs))
	for _, dailyPnL := range dailyPnLs {
		k := key{symbol: dailyPnL.Symbol, date: dailyPnL.Date}
		keyToPnL[k] = mathdec.Sum(keyToPnL[k], dailyPnL.PnL)
	}
	return keyToPnL
}

func parseAuthoritativeRecord(record []string) (ibjournalpnl.DailyPnL, error) {
	symbol := strings.TrimSpace(record[0])
	if symbol == "" {
		return ibjournalpnl.DailyPnL{}, errors.New("symbol is empty")
	}
	date, err := xtime.ParseDate(strings.TrimSpace(record[1]))
	if err != nil {
		return ibjournalpnl.DailyPnL{}, fmt.Errorf("invalid date %q: %w", record[1], err)
	}
	pnl, err := strconv.ParseFloat(strings.TrimSpace(record[2]), 64)
	if err != nil || !mathdec.IsFinite(pnl) {
		return ibjournalpnl.DailyPnL{}, fmt.Errorf("invalid P&L %q", record[2])
	}
	return ibjournalpnl.DailyPnL{Symbol: symbol, Date: date, PnL: pnl}, nil
}

func comparisonRow(status Status, comparison Comparison) ReportRow {
	return ReportRow{
		Status:        status,
		Symbol:        comparison.Symbol,
		Date:          comparison.Date,
		Local:         mathdec.ToString(comparison.Local),
		Authoritative: mathdec.ToString(comparison.Authoritative),
		Delta:         mathdec.ToString(comparison.Delta),
	}
}

func sortComparisons(comparisons []Comparison) {
	sort.Slice(comparisons, func(i, j int) bool {
		if c := comparisons[i].Date.Compare(comparisons[j].Date); c != 0 {
			return c < 0
		}
		return comparisons[i].Symbol < comparisons[j].Symbol
	})
}
