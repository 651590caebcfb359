// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package ibjournalstore persists canonical trades in an embedded SQLite database.
//
// Trades are inserted in batches. A batch is atomic: either every new trade
// of the batch is committed or none is. Trades whose ID is already stored
// are skipped and counted as duplicates, so importing the same statement
// twice does not store its trades twice.
package ibjournalstore

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bufdev/ibjournal/internal/ibjournal/ibjournaltrade"
	"github.com/bufdev/ibjournal/internal/pkg/backoff"
	"github.com/bufdev/ibjournal/internal/standard/xtime"
	_ "modernc.org/sqlite"
)

const (
	driverName = "sqlite"

	// SQLite primary result codes for a locked database.
	sqliteBusy   = 5
	sqliteLocked = 6
)

//go:embed schema.sql
var schema string

// busyPolicy retries batches while another process holds the database lock.
var busyPolicy = backoff.Policy{
	MaxAttempts:  5,
	InitialDelay: 50 * time.Millisecond,
	MaxDelay:     time.Second,
}

// ErrBatchRolledBack is returned by InsertTrades when a batch was not committed.
var ErrBatchRolledBack = errors.New("batch rolled back")

// BatchResult is the result of inserting a batch of trades.
type BatchResult struct {
	// SuccessCount is the number of trades committed.
	SuccessCount int `json:"success_count"`
	// DuplicateCount is the number of trades skipped because their ID was already stored.
	DuplicateCount int `json:"duplicate_count"`
	// Errors are the per-trade errors.
	//
	// If the batch was rolled back, every trade of the batch has an error and
	// SuccessCount is 0, so len(Errors) == len(input) signals total failure.
	Errors []TradeError `json:"errors,omitempty"`
}

// TradeError is an error for a single trade of a batch.
type TradeError struct {
	TradeID string `json:"trade_id"`
	Error   string `json:"error"`
}

// TradeFilter filters the trades returned by ListTrades.
//
// Zero fields do not filter.
type TradeFilter struct {
	// Symbol matches the trade symbol or option symbol, case-insensitively.
	Symbol string
	// AccountID matches the account exactly.
	AccountID string
	// From is the first trade date, inclusive.
	From xtime.Date
	// To is the last trade date, inclusive.
	To xtime.Date
}

// Store is a trade store.
type Store struct {
	logger *slog.Logger
	db     *sql.DB
}

// Open opens the store at the SQLite database path, creating the database
// and its schema if needed.
//
// The path ":memory:" opens a private in-memory store.
func Open(ctx context.Context, logger *slog.Logger, path string) (*Store, error) {
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("opening database %s: %w", path, err)
	}
	// SQLite allows a single writer. One connection also keeps an in-memory database alive.
	db.SetMaxOpenConns(1)
	store := &Store{
		logger: logger,
		db:     db,
	}
	if err := store.migrate(ctx); err != nil {
		return nil, errors.Join(fmt.Errorf("migrating database %s: %w", path, err), db.Close())
	}
	logger.Debug("opened store", "path", path)
	return store, nil
}

// Close closes the store.
func (s *Store) Close() error {
	return s.db.Close()
}

// InsertTrades inserts the trades as one atomic batch.
//
// The result is always non-nil. If any trade fails to insert, the batch is
// rolled back: the failing trade carries its own error, every other trade
// carries a rolled-back error, and the returned error wraps ErrBatchRolledBack.
// Locked-database errors are retried with backoff before giving up.
func (s *Store) InsertTrades(ctx context.Context, trades []*ibjournaltrade.NormalizedTradeData) (*BatchResult, error) {
	if len(trades) == 0 {
		return &BatchResult{}, nil
	}
	result, err := backoff.Retry(
		ctx,
		busyPolicy,
		isBusy,
		func(ctx context.Context, attempt int) (*BatchResult, error) {
			if attempt > 0 {
				s.logger.Debug("retrying trade batch", "attempt", attempt+1)
			}
			return s.insertTrades(ctx, trades)
		},
	)
	if err != nil {
		var batchErr *batchError
		if !errors.As(err, &batchErr) {
			batchErr = &batchError{failedIndex: -1, cause: err}
		}
		return batchErr.result(trades), fmt.Errorf("%w: %w", ErrBatchRolledBack, err)
	}
	s.logger.Info(
		"inserted trades",
		"success", result.SuccessCount,
		"duplicate", result.DuplicateCount,
	)
	return result, nil
}

// ListTrades returns the stored trades matching the filter, ordered by trade
// date and then insertion order.
func (s *Store) ListTrades(ctx context.Context, filter TradeFilter) ([]*ibjournaltrade.NormalizedTradeData, error) {
	var conditions []string
	var args []any
	if filter.Symbol != "" {
		conditions = append(conditions, "(UPPER(symbol) = ? OR UPPER(option_symbol) = ?)")
		symbol := strings.ToUpper(filter.Symbol)
		args = append(args, symbol, symbol)
	}
	if filter.AccountID != "" {
		conditions = append(conditions, "account_id = ?")
		args = append(args, filter.AccountID)
	}
	if !filter.From.IsZero() {
		conditions = append(conditions, "trade_date >= ?")
		args = append(args, filter.From.String())
	}
	if !filter.To.IsZero() {
		conditions = append(conditions, "trade_date <= ?")
		args = append(args, filter.To.String())
	}
	query := "SELECT " + strings.Join(tradeColumns, ", ") + " FROM trades"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY trade_date, rowid"
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying trades: %w", err)
	}
	defer rows.Close()
	var trades []*ibjournaltrade.NormalizedTradeData
	for rows.Next() {
		trade, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning trade: %w", err)
		}
		trades = append(trades, trade)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating trades: %w", err)
	}
	return trades, nil
}

// CountTrades returns the number of stored trades.
func (s *Store) CountTrades(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM trades").Scan(&count); err != nil {
		return 0, fmt.Errorf("counting trades: %w", err)
	}
	return count, nil
}

// *** PRIVATE ***

var tradeColumns = []string{
	"id",
	"import_timestamp",
	"broker",
	"account_id",
	"symbol",
	"trade_date",
	"settle_date",
	"asset_category",
	"option_symbol",
	"expiry_date",
	"strike_price",
	"put_call",
	"multiplier",
	"quantity",
	"trade_price",
	"currency",
	"proceeds",
	"cost",
	"commission",
	"fees",
	"net_amount",
	"open_close_indicator",
	"cost_basis",
	"description",
}

var insertTradeQuery = "INSERT INTO trades (" + strings.Join(tradeColumns, ", ") + ") VALUES (" +
	strings.TrimSuffix(strings.Repeat("?, ", len(tradeColumns)), ", ") +
	") ON CONFLICT (id) DO NOTHING"

func (s *Store) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

func (s *Store) insertTrades(ctx context.Context, trades []*ibjournaltrade.NormalizedTradeData) (_ *BatchResult, retErr error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, &batchError{failedIndex: -1, cause: fmt.Errorf("beginning transaction: %w", err)}
	}
	defer func() {
		if retErr != nil {
			retErr = errors.Join(retErr, ignoreTxDone(tx.Rollback()))
		}
	}()
	stmt, err := tx.PrepareContext(ctx, insertTradeQuery)
	if err != nil {
		return nil, &batchError{failedIndex: -1, cause: fmt.Errorf("preparing insert: %w", err)}
	}
	defer stmt.Close()
	result := &BatchResult{}
	for i, trade := range trades {
		if trade == nil {
			return nil, &batchError{failedIndex: i, cause: errors.New("trade is nil")}
		}
		sqlResult, err := stmt.ExecContext(ctx, tradeValues(trade)...)
		if err != nil {
			return nil, &batchError{failedIndex: i, cause: err}
		}
		rowsAffected, err := sqlResult.RowsAffected()
		if err != nil {
			return nil, &batchError{failedIndex: i, cause: err}
		}
		if rowsAffected == 0 {
			s.logger.Debug("skipping duplicate trade", "id", trade.ID)
			result.DuplicateCount++
			continue
		}
		result.SuccessCount++
	}
	if err := tx.Commit(); err != nil {
		return nil, &batchError{failedIndex: -1, cause: fmt.Errorf("committing transaction: %w", err)}
	}
	return result, nil
}

func tradeValues(trade *ibjournaltrade.NormalizedTradeData) []any {
	return []any{
		trade.ID,
		trade.ImportTimestamp,
		string(trade.Broker),
		trade.AccountID,
		trade.Symbol,
		trade.TradeDate,
		pointerToNull(trade.SettleDate),
		string(trade.AssetCategory),
		pointerToNull(trade.OptionSymbol),
		pointerToNull(trade.ExpiryDate),
		pointerToNull(trade.StrikePrice),
		pointerToNull(trade.PutCall),
		pointerToNull(trade.Multiplier),
		trade.Quantity,
		trade.TradePrice,
		trade.Currency,
		trade.Proceeds,
		trade.Cost,
		pointerToNull(trade.Commission),
		trade.Fees,
		trade.NetAmount,
		string(trade.OpenCloseIndicator),
		trade.CostBasis,
		trade.Description,
	}
}

func scanTrade(rows *sql.Rows) (*ibjournaltrade.NormalizedTradeData, error) {
	var (
		trade                                         ibjournaltrade.NormalizedTradeData
		broker, assetCategory, openClose              string
		settleDate, optionSymbol, expiryDate, putCall sql.Null[string]
		strikePrice, multiplier, commission           sql.Null[float64]
	)
	if err := rows.Scan(
		&trade.ID,
		&trade.ImportTimestamp,
		&broker,
		&trade.AccountID,
		&trade.Symbol,
		&trade.TradeDate,
		&settleDate,
		&assetCategory,
		&optionSymbol,
		&expiryDate,
		&strikePrice,
		&putCall,
		&multiplier,
		&trade.Quantity,
		&trade.TradePrice,
		&trade.Currency,
		&trade.Proceeds,
		&trade.Cost,
		&commission,
		&trade.Fees,
		&trade.NetAmount,
		&openClose,
		&trade.CostBasis,
		&trade.Description,
	); err != nil {
		return nil, err
	}
	trade.Broker = ibjournaltrade.Broker(broker)
	trade.AssetCategory = ibjournaltrade.AssetCategory(assetCategory)
	trade.OpenCloseIndicator = ibjournaltrade.OpenClose(openClose)
	trade.SettleDate = nullToPointer(settleDate)
	trade.OptionSymbol = nullToPointer(optionSymbol)
	trade.ExpiryDate = nullToPointer(expiryDate)
	trade.StrikePrice = nullToPointer(strikePrice)
	trade.PutCall = nullToPointer(putCall)
	trade.Multiplier = nullToPointer(multiplier)
	trade.Commission = nullToPointer(commission)
	return &trade, nil
}

// pointerToNull returns the pointed-to value, or nil for SQL NULL.
func pointerToNull[T any](value *T) any {
	if value == nil {
		return nil
	}
	return *value
}

func nullToPointer[T any](value sql.Null[T]) *T {
	if !value.Valid {
		return nil
	}
	return &value.V
}

// batchError is the cause of a rolled-back batch.
type batchError struct {
	// failedIndex is the index of the trade that failed, or -1 if the
	// failure was not specific to one trade.
	failedIndex int
	cause       error
}

func (e *batchError) Error() string {
	if e.failedIndex < 0 {
		return e.cause.Error()
	}
	return fmt.Sprintf("trade %d: %v", e.failedIndex, e.cause)
}

func (e *batchError) Unwrap() error {
	return e.cause
}

// result returns the result of the rolled-back batch, with an error for every trade.
func (e *batchError) result(trades []*ibjournaltrade.NormalizedTradeData) *BatchResult {
	result := &BatchResult{
		Errors: make([]TradeError, 0, len(trades)),
	}
	for i, trade := range trades {
		tradeID := ""
		if trade != nil {
			tradeID = trade.ID
		}
		message := "rolled back: " + e.Error()
		if i == e.failedIndex {
			message = e.cause.Error()
		}
		result.Errors = append(result.Errors, TradeError{TradeID: tradeID, Error: message})
	}
	return result
}

// isBusy reports whether the error is a SQLite busy or locked error.
func isBusy(err error) bool {
	var codeErr interface{ Code() int }
	if !errors.As(err, &codeErr) {
		return false
	}
	// Extended result codes carry the primary code in the low byte.
	code := codeErr.Code() & 0xff
	return code == sqliteBusy || code == sqliteLocked
}

func ignoreTxDone(err error) error {
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return err
}
