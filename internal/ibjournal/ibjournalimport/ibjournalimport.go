// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package ibjournalimport provides the import orchestrator: statements are
// parsed, their trades normalized and validated, and the valid trades
// inserted into the store as one batch.
package ibjournalimport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/bufdev/ibjournal/internal/ibjournal/ibjournalnormalize"
	"github.com/bufdev/ibjournal/internal/ibjournal/ibjournalpositions"
	"github.com/bufdev/ibjournal/internal/ibjournal/ibjournalstore"
	"github.com/bufdev/ibjournal/internal/ibjournal/ibjournaltrade"
	"github.com/bufdev/ibjournal/internal/ibjournal/ibjournalvalidate"
	"github.com/bufdev/ibjournal/internal/pkg/ibkrstatement"
	"github.com/google/uuid"
)

// Store is the trade storage used by an Importer.
//
// *ibjournalstore.Store implements Store.
type Store interface {
	InsertTrades(ctx context.Context, trades []*ibjournaltrade.NormalizedTradeData) (*ibjournalstore.BatchResult, error)
	ListTrades(ctx context.Context, filter ibjournalstore.TradeFilter) ([]*ibjournaltrade.NormalizedTradeData, error)
}

// Importer imports activity statements into a Store.
type Importer interface {
	// ImportPaths imports the statement files at the paths. Directories are
	// searched recursively for *.csv files.
	//
	// If the batch insert fails, the non-nil Result is returned along with the error.
	ImportPaths(ctx context.Context, paths []string) (*Result, error)
	// ImportText imports the text of a single statement. source labels the
	// statement in logs and in the Result.
	ImportText(ctx context.Context, source string, text string) (*Result, error)
}

// NewImporter returns a new Importer that stamps trades with the broker.
func NewImporter(logger *slog.Logger, store Store, broker ibjournaltrade.Broker) Importer {
	return &importer{
		logger: logger,
		store:  store,
		broker: broker,
		now:    time.Now,
	}
}

// Result is the result of one import.
type Result struct {
	// ImportID identifies the import in logs.
	ImportID string `json:"import_id"`
	// Statements summarizes each imported statement, in import order.
	Statements []StatementSummary `json:"statements"`
	// Rejections are the trades that failed validation and were not inserted.
	//
	// Rejection indexes are positions in the import's combined trade list.
	Rejections []ibjournalvalidate.Rejection `json:"rejections,omitempty"`
	// Batch is the result of inserting the valid trades.
	Batch *ibjournalstore.BatchResult `json:"batch"`
	// Discrepancies compare stored trades against the positions the statements report.
	//
	// Only computed for accounts whose statements report positions, and only
	// if the batch was committed.
	Discrepancies []ibjournalpositions.Discrepancy `json:"discrepancies,omitempty"`
}

// StatementSummary summarizes one imported statement.
type StatementSummary struct {
	Source        string  `json:"source"`
	AccountID     string  `json:"account_id"`
	TradeCount    int     `json:"trade_count"`
	PositionCount int     `json:"position_count"`
	CumulativePnL float64 `json:"cumulative_pnl"`
}

type importer struct {
	logger *slog.Logger
	store  Store
	broker ibjournaltrade.Broker
	now    func() time.Time
}

func (i *importer) ImportPaths(ctx context.Context, paths []string) (*Result, error) {
	if len(paths) == 0 {
		return nil, errors.New("no statement paths given")
	}
	var statements []*ibkrstatement.Statement
	for _, path := range paths {
		fileInfo, err := os.Stat(path)
		if err != nil {
			return nil, err
		}
		if !fileInfo.IsDir() {
			statement, err := ibkrstatement.ParseFile(i.logger, path)
			if err != nil {
				return nil, err
			}
			statements = append(statements, statement)
			continue
		}
		dirStatements, err := ibkrstatement.ParseDirectory(i.logger, path)
		if err != nil {
			return nil, err
		}
		if len(dirStatements) == 0 {
			i.logger.Warn("no statement files found", "dir", path)
		}
		statements = append(statements, dirStatements...)
	}
	return i.importStatements(ctx, statements)
}

func (i *importer) ImportText(ctx context.Context, source string, text string) (*Result, error) {
	statement, err := ibkrstatement.Parse(i.logger.With("source", source), text, i.now().UTC())
	if err != nil {
		return nil, err
	}
	statement.Source = source
	return i.importStatements(ctx, []*ibkrstatement.Statement{statement})
}

// importStatements runs the pipeline over the statements as one batch.
func (i *importer) importStatements(ctx context.Context, statements []*ibkrstatement.Statement) (*Result, error) {
	result := &Result{
		ImportID: uuid.NewString(),
	}
	logger := i.logger.With("import_id", result.ImportID)

	// Step 1: Normalize each statement's trades. Normalizing per statement
	// keeps IDs stable when overlapping statements are imported together.
	normalizer := ibjournalnormalize.NewNormalizer(i.broker, i.now())
	var trades []*ibjournaltrade.NormalizedTradeData
	// The latest statement reporting positions for an account wins.
	accountIDToPositions := make(map[string][]ibkrstatement.Position)
	positionCount := 0
	for _, statement := range statements {
		trades = append(trades, normalizer.NormalizeAll(statement.Trades)...)
		positionCount += len(statement.Positions)
		for accountID, accountPositions := range groupPositionsByAccount(statement.Positions) {
			accountIDToPositions[accountID] = accountPositions
		}
		result.Statements = append(result.Statements, StatementSummary{
			Source:        statement.Source,
			AccountID:     statement.AccountInfo.AccountID,
			TradeCount:    len(statement.Trades),
			PositionCount: len(statement.Positions),
			CumulativePnL: statement.CumulativePnL,
		})
	}
	logger.Info("statements parsed", "statements", len(statements), "trades", len(trades), "positions", positionCount)

	// Step 2: Validate. Invalid trades are reported and only they are excluded.
	accepted, rejections := ibjournalvalidate.Partition(trades)
	for _, rejection := range rejections {
		logger.Warn("trade rejected", "index", rejection.Index, "errors", rejection.String())
	}
	result.Rejections = rejections

	// Step 3: Insert the valid trades as one batch.
	batch, err := i.store.InsertTrades(ctx, accepted)
	result.Batch = batch
	if err != nil {
		return result, fmt.Errorf("inserting trades: %w", err)
	}
	logger.Info(
		"trades stored",
		"inserted", batch.SuccessCount,
		"duplicates", batch.DuplicateCount,
		"rejected", len(rejections),
	)

	// Step 4: Verify stored trades against the reported positions.
	discrepancies, err := i.verifyPositions(ctx, accountIDToPositions)
	if err != nil {
		return result, err
	}
	result.Discrepancies = discrepancies
	if len(accountIDToPositions) > 0 && len(discrepancies) == 0 {
		logger.Info("all positions verified successfully")
	}
	for _, discrepancy := range discrepancies {
		logger.Warn(
			"position verification",
			"account", discrepancy.AccountID,
			"symbol", discrepancy.Symbol,
			"type", discrepancy.Type.String(),
			"computed", discrepancy.ComputedQuantity,
			"reported", discrepancy.ReportedQuantity,
		)
	}
	return result, nil
}

// verifyPositions compares each account's reported positions against all
// stored trades of the account.
func (i *importer) verifyPositions(
	ctx context.Context,
	accountIDToPositions map[string][]ibkrstatement.Position,
) ([]ibjournalpositions.Discrepancy, error) {
	var trades []*ibjournaltrade.NormalizedTradeData
	var positions []ibkrstatement.Position
	for accountID, accountPositions := range accountIDToPositions {
		accountTrades, err := i.store.ListTrades(ctx, ibjournalstore.TradeFilter{AccountID: accountID})
		if err != nil {
			return nil, fmt.Errorf("listing trades of account %s: %w", accountID, err)
		}
		trades = append(trades, accountTrades...)
		positions = append(positions, accountPositions...)
	}
	if len(positions) == 0 {
		return nil, nil
	}
	return ibjournalpositions.Verify(trades, positions), nil
}

// groupPositionsByAccount groups positions by account. Positions without an
// account cannot be matched to trades and are dropped.
func groupPositionsByAccount(positions []ibkrstatement.Position) map[string][]ibkrstatement.Position {
	accountIDToPositions := make(map[string][]ibkrstatement.Position)
	for _, position := range positions {
		if position.AccountID == "" {
			continue
		}
		accountIDToPositions[position.AccountID] = append(accountIDToPositions[position.AccountID], position)
	}
	return accountIDToPositions
}
