// Copyright 2026 Peter Edge
//
// All rights reserved.

package ibjournalserver

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bufdev/ibjournal/internal/ibjournal/ibjournalimport"
	"github.com/bufdev/ibjournal/internal/ibjournal/ibjournalpnl"
	"github.com/bufdev/ibjournal/internal/ibjournal/ibjournalreconcile"
	"github.com/bufdev/ibjournal/internal/ibjournal/ibjournalstore"
	"github.com/bufdev/ibjournal/internal/ibjournal/ibjournaltrade"
	"github.com/bufdev/ibjournal/internal/standard/xtime"
	"github.com/stretchr/testify/require"
)

func TestHealth(t *testing.T) {
	t.Parallel()
	handler := newTestHandler(t, 10)
	recorder := doRequest(handler, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, recorder.Code)
	require.JSONEq(t, `{"status":"ok"}`, recorder.Body.String())
}

func TestImportAndQuery(t *testing.T) {
	t.Parallel()
	handler := newTestHandler(t, 10)

	// Populate the cache before importing; the import must invalidate it.
	recorder := doRequest(handler, http.MethodGet, "/v1/pnl/daily", "")
	require.Equal(t, http.StatusOK, recorder.Code)
	require.JSONEq(t, `[]`, recorder.Body.String())

	recorder = doRequest(handler, http.MethodPost, "/v1/imports", readTestStatement(t))
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())
	var result ibjournalimport.Result
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &result))
	require.Equal(t, &ibjournalstore.BatchResult{SuccessCount: 3}, result.Batch)
	require.Len(t, result.Rejections, 1)

	recorder = doRequest(handler, http.MethodGet, "/v1/pnl/daily", "")
	require.Equal(t, http.StatusOK, recorder.Code)
	var summaries []ibjournalpnl.DailySummary
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &summaries))
	require.Equal(t, []ibjournalpnl.DailySummary{
		{Date: xtime.Date{Year: 2025, Month: 1, Day: 2}, TradeCount: 2},
		{Date: xtime.Date{Year: 2025, Month: 1, Day: 3}, TradeCount: 1, RealizedPnL: 299.6},
	}, summaries)

	recorder = doRequest(handler, http.MethodGet, "/v1/pnl/daily?by_symbol=true", "")
	require.Equal(t, http.StatusOK, recorder.Code)
	var dailyPnLs []ibjournalpnl.DailyPnL
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &dailyPnLs))
	require.Equal(t, []ibjournalpnl.DailyPnL{
		{Symbol: "MSFT", Date: xtime.Date{Year: 2025, Month: 1, Day: 3}, PnL: 299.6},
	}, dailyPnLs)

	recorder = doRequest(handler, http.MethodGet, "/v1/trades?symbol=msft&from=2025-01-01&to=2025-01-31", "")
	require.Equal(t, http.StatusOK, recorder.Code)
	var trades []*ibjournaltrade.NormalizedTradeData
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &trades))
	require.Len(t, trades, 2)
	require.Equal(t, "MSFT", trades[0].Symbol)

	recorder = doRequest(handler, http.MethodPost, "/v1/reconcile", "MSFT,2025-01-03,299.60\nAAPL,2025-01-02,5\n")
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())
	var report ibjournalreconcile.Report
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &report))
	require.Len(t, report.Matched, 1)
	require.Empty(t, report.Mismatched)
	require.Empty(t, report.LocalOnly)
	require.Equal(t, []ibjournalpnl.DailyPnL{
		{Symbol: "AAPL", Date: xtime.Date{Year: 2025, Month: 1, Day: 2}, PnL: 5},
	}, report.AuthoritativeOnly)

	recorder = doRequest(handler, http.MethodPost, "/v1/reconcile?tolerance=0", "MSFT,2025-01-03,299.59\n")
	require.Equal(t, http.StatusOK, recorder.Code)
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &report))
	require.Len(t, report.Mismatched, 1)
}

func TestBadRequests(t *testing.T) {
	t.Parallel()
	handler := newTestHandler(t, 10)
	for _, tc := range []struct {
		name   string
		method string
		target string
		body   string
		status int
	}{
		{name: "bad_from", method: http.MethodGet, target: "/v1/trades?from=2025-13-01", status: http.StatusBadRequest},
		{name: "bad_by_symbol", method: http.MethodGet, target: "/v1/pnl/daily?by_symbol=maybe", status: http.StatusBadRequest},
		{name: "bad_tolerance", method: http.MethodPost, target: "/v1/reconcile?tolerance=-1", body: "", status: http.StatusBadRequest},
		{name: "bad_authoritative", method: http.MethodPost, target: "/v1/reconcile", body: "MSFT,2025-01-03\n", status: http.StatusBadRequest},
		{name: "no_statement_data", method: http.MethodPost, target: "/v1/imports", body: "not,a,statement\n", status: http.StatusUnprocessableEntity},
		{name: "not_found", method: http.MethodGet, target: "/v1/holdings", status: http.StatusNotFound},
	} {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			recorder := doRequest(handler, tc.method, tc.target, tc.body)
			require.Equal(t, tc.status, recorder.Code, recorder.Body.String())
		})
	}
}

func TestImportRateLimit(t *testing.T) {
	t.Parallel()
	handler := newTestHandler(t, 1)
	recorder := doRequest(handler, http.MethodPost, "/v1/imports", readTestStatement(t))
	require.Equal(t, http.StatusOK, recorder.Code)
	recorder = doRequest(handler, http.MethodPost, "/v1/imports", readTestStatement(t))
	require.Equal(t, http.StatusTooManyRequests, recorder.Code)
	// Reads are not limited.
	recorder = doRequest(handler, http.MethodGet, "/v1/trades", "")
	require.Equal(t, http.StatusOK, recorder.Code)
}

func TestReportNotCachedAcrossInvalidation(t *testing.T) {
	t.Parallel()
	store := &blockingStore{
		listing: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	s := newServer(slog.New(slog.DiscardHandler), store, nil, 0.01, 10)
	errC := make(chan error, 1)
	go func() {
		_, err := s.daily(context.Background())
		errC <- err
	}()
	// The report has read the trades; an import commits and invalidates.
	<-store.listing
	s.invalidateReports()
	close(store.release)
	require.NoError(t, <-errC)
	_, ok := s.reportCache.Get(dailyCacheKey)
	require.False(t, ok)

	_, err := s.daily(context.Background())
	require.NoError(t, err)
	_, ok = s.reportCache.Get(dailyCacheKey)
	require.True(t, ok)
}

func newTestHandler(t *testing.T, importsPerMinute int) http.Handler {
	logger := slog.New(slog.DiscardHandler)
	store, err := ibjournalstore.Open(context.Background(), logger, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, store.Close()) })
	importer := ibjournalimport.NewImporter(logger, store, ibjournaltrade.BrokerIBKR)
	return NewHandler(logger, store, importer, 0.01, importsPerMinute)
}

func doRequest(handler http.Handler, method string, target string, body string) *httptest.ResponseRecorder {
	request := httptest.NewRequest(method, target, strings.NewReader(body))
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)
	return recorder
}

func readTestStatement(t *testing.T) string {
	data, err := os.ReadFile(filepath.Join("testdata", "statement.csv"))
	require.NoError(t, err)
	return string(data)
}

type blockingStore struct {
	listing chan struct{}
	release chan struct{}
}

func (b *blockingStore) ListTrades(context.Context, ibjournalstore.TradeFilter) ([]*ibjournaltrade.NormalizedTradeData, error) {
	select {
	case b.listing <- struct{}{}:
	default:
	}
	<-b.release
	return nil, nil
}
