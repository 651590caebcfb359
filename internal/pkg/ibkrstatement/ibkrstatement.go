// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package ibkrstatement parses IBKR Activity Statement CSV exports.
//
// Activity statements are multi-section files where each row starts with a
// section name and a row type (Header, Data, SubTotal, Total). Different
// sections have different column layouts, and sections may be missing,
// reordered, or repeated with a new header. Parsing is deliberately lenient:
// rows that cannot be decoded are logged and skipped, and a statement only
// fails to parse if nothing usable was found in it at all.
package ibkrstatement

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// ErrNoStatementData is returned by Parse when a statement has no account
// information, no trades, and no positions.
var ErrNoStatementData = errors.New("no statement data")

// Statement contains everything extracted from a single activity statement.
type Statement struct {
	// Source is the file the statement was read from, if any.
	Source string `json:"source,omitempty"`
	// Sections are the scanned sections of the statement.
	Sections Sections `json:"-"`
	// AccountInfo identifies the account. Fields that were not found are Unknown.
	AccountInfo AccountInfo `json:"account_info"`
	// Trades are the trade executions, in statement order.
	Trades []Trade `json:"trades"`
	// Positions are the open positions, in statement order.
	Positions []Position `json:"positions"`
	// CumulativePnL is the total realized and unrealized P&L of the statement period.
	CumulativePnL float64 `json:"cumulative_pnl"`
}

// Parse parses the text of an activity statement.
//
// lastUpdated is recorded on every extracted position.
func Parse(logger *slog.Logger, text string, lastUpdated time.Time) (*Statement, error) {
	rows := Tokenize(text)
	sections := ScanSections(rows)
	accountInfo := ExtractAccountInfo(sections, text)
	accountID := accountInfo.AccountID
	if accountID == Unknown {
		accountID = ""
	}
	statement := &Statement{
		Sections:      sections,
		AccountInfo:   accountInfo,
		Trades:        ExtractTrades(logger, rows),
		Positions:     ExtractPositions(logger, sections, accountID, lastUpdated),
		CumulativePnL: ExtractCumulativePnL(rows),
	}
	if statement.AccountInfo.IsUnknown() && len(statement.Trades) == 0 && len(statement.Positions) == 0 {
		return nil, fmt.Errorf(
			"%w: found %d rows in %d sections but no account information, trades, or positions",
			ErrNoStatementData,
			len(rows),
			len(sections),
		)
	}
	logger.Debug(
		"parsed statement",
		"sections", strings.Join(sections.Names(), ","),
		"trades", len(statement.Trades),
		"positions", len(statement.Positions),
	)
	return statement, nil
}

// ParseFile parses a single activity statement file.
//
// The file's modification time is recorded on every extracted position.
func ParseFile(logger *slog.Logger, filePath string) (*Statement, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	fileInfo, err := os.Stat(filePath)
	if err != nil {
		return nil, err
	}
	statement, err := Parse(logger.With("file", filePath), string(data), fileInfo.ModTime().UTC())
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filePath, err)
	}
	statement.Source = filePath
	return statement, nil
}

// ParseDirectory reads all *.csv files recursively from the directory and
// parses them, in lexical path order.
func ParseDirectory(logger *slog.Logger, dirPath string) ([]*Statement, error) {
	filePaths, err := ListStatementFiles(dirPath)
	if err != nil {
		return nil, err
	}
	statements := make([]*Statement, 0, len(filePaths))
	for _, filePath := range filePaths {
		statement, err := ParseFile(logger, filePath)
		if err != nil {
			return nil, err
		}
		statements = append(statements, statement)
	}
	return statements, nil
}

// ListStatementFiles returns the paths of all *.csv files under the
// directory, recursively, in lexical order.
func ListStatementFiles(dirPath string) ([]string, error) {
	var filePaths []string
	err := filepath.WalkDir(dirPath, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !strings.HasSuffix(strings.ToLower(d.Name()), ".csv") {
			return nil
		}
		filePaths = append(filePaths, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(filePaths)
	return filePaths, nil
}
