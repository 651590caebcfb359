// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package ibjournalserver provides the ibjournal HTTP API.
//
// Routes:
//
//	GET  /healthz          Liveness
//	POST /v1/imports       Import the activity statement in the request body
//	GET  /v1/trades        List stored trades (?symbol=&account=&from=&to=)
//	GET  /v1/pnl/daily     Daily summaries, or per-symbol P&L with ?by_symbol=true
//	POST /v1/reconcile     Reconcile against the symbol,date,pnl CSV in the request body (?tolerance=)
package ibjournalserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bufdev/ibjournal/internal/ibjournal/ibjournalimport"
	"github.com/bufdev/ibjournal/internal/ibjournal/ibjournalpnl"
	"github.com/bufdev/ibjournal/internal/ibjournal/ibjournalreconcile"
	"github.com/bufdev/ibjournal/internal/ibjournal/ibjournalstore"
	"github.com/bufdev/ibjournal/internal/ibjournal/ibjournaltrade"
	"github.com/bufdev/ibjournal/internal/pkg/ibkrstatement"
	"github.com/bufdev/ibjournal/internal/standard/xtime"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

const (
	// maxBodyBytes is the largest accepted request body.
	maxBodyBytes = 32 << 20
	// importSource labels statements imported over HTTP.
	importSource = "http"

	dailyCacheKey         = "pnl/daily"
	dailyBySymbolCacheKey = "pnl/daily/by_symbol"

	shutdownTimeout = 10 * time.Second
)

// Store is the trade storage read by the server.
//
// *ibjournalstore.Store implements Store.
type Store interface {
	ListTrades(ctx context.Context, filter ibjournalstore.TradeFilter) ([]*ibjournaltrade.NormalizedTradeData, error)
}

// NewHandler returns the HTTP API handler.
//
// Imports are limited to importsPerMinute, with bursts of the same size.
// Daily P&L reports are cached until the next import.
func NewHandler(
	logger *slog.Logger,
	store Store,
	importer ibjournalimport.Importer,
	reconcileTolerance float64,
	importsPerMinute int,
) http.Handler {
	s := newServer(logger, store, importer, reconcileTolerance, importsPerMinute)
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(s.logRequests)
	router.Use(middleware.Recoverer)
	router.Get("/healthz", s.handleHealth)
	router.Route("/v1", func(router chi.Router) {
		router.With(s.limitImports).Post("/imports", s.handleImport)
		router.Get("/trades", s.handleListTrades)
		router.Get("/pnl/daily", s.handleDailyPnL)
		router.Post("/reconcile", s.handleReconcile)
	})
	return router
}

// Serve serves the handler at the address until the context is cancelled,
// then shuts down gracefully.
func Serve(ctx context.Context, logger *slog.Logger, address string, handler http.Handler) error {
	httpServer := &http.Server{
		Addr:              address,
		Handler:           handler,
		ReadHeaderTimeout: 15 * time.Second,
		ReadTimeout:       time.Minute,
		WriteTimeout:      time.Minute,
		IdleTimeout:       time.Minute,
	}
	errC := make(chan error, 1)
	go func() {
		logger.Info("server starting", "address", address)
		errC <- httpServer.ListenAndServe()
	}()
	select {
	case err := <-errC:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	if err := <-errC; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	logger.Info("server stopped")
	return nil
}

// *** PRIVATE ***

type server struct {
	logger             *slog.Logger
	store              Store
	importer           ibjournalimport.Importer
	reconcileTolerance float64
	importLimiter      *rate.Limiter
	reportCache        *cache.Cache

	// reportGeneration is bumped on every invalidation. A report computed
	// under an older generation is returned but not cached.
	reportLock       sync.Mutex
	reportGeneration uint64
}

func newServer(
	logger *slog.Logger,
	store Store,
	importer ibjournalimport.Importer,
	reconcileTolerance float64,
	importsPerMinute int,
) *server {
	importsPerMinute = max(importsPerMinute, 1)
	return &server{
		logger:             logger,
		store:              store,
		importer:           importer,
		reconcileTolerance: reconcileTolerance,
		importLimiter:      rate.NewLimiter(rate.Every(time.Minute/time.Duration(importsPerMinute)), importsPerMinute),
		reportCache:        cache.New(15*time.Minute, 30*time.Minute),
	}
}

func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handleImport(w http.ResponseWriter, r *http.Request) {
	body, ok := s.readBody(w, r)
	if !ok {
		return
	}
	result, err := s.importer.ImportText(r.Context(), importSource, body)
	if result != nil && result.Batch != nil && result.Batch.SuccessCount > 0 {
		s.invalidateReports()
	}
	switch {
	case errors.Is(err, ibkrstatement.ErrNoStatementData):
		s.writeError(w, http.StatusUnprocessableEntity, err)
	case err != nil && result != nil:
		s.logger.Error("import failed", "error", err)
		s.writeJSON(w, http.StatusInternalServerError, importErrorResponse{Error: err.Error(), Result: result})
	case err != nil:
		s.writeError(w, http.StatusInternalServerError, err)
	default:
		s.writeJSON(w, http.StatusOK, result)
	}
}

func (s *server) handleListTrades(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := ibjournalstore.TradeFilter{
		Symbol:    query.Get("symbol"),
		AccountID: query.Get("account"),
	}
	var err error
	if filter.From, err = parseOptionalDate(query.Get("from")); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("from: %w", err))
		return
	}
	if filter.To, err = parseOptionalDate(query.Get("to")); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("to: %w", err))
		return
	}
	trades, err := s.store.ListTrades(r.Context(), filter)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if trades == nil {
		trades = []*ibjournaltrade.NormalizedTradeData{}
	}
	s.writeJSON(w, http.StatusOK, trades)
}

func (s *server) handleDailyPnL(w http.ResponseWriter, r *http.Request) {
	bySymbol := false
	if value := r.URL.Query().Get("by_symbol"); value != "" {
		var err error
		if bySymbol, err = strconv.ParseBool(value); err != nil {
			s.writeError(w, http.StatusBadRequest, fmt.Errorf("by_symbol: %w", err))
			return
		}
	}
	var report any
	var err error
	if bySymbol {
		report, err = s.dailyBySymbol(r.Context())
	} else {
		report, err = s.daily(r.Context())
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, report)
}

func (s *server) handleReconcile(w http.ResponseWriter, r *http.Request) {
	tolerance := s.reconcileTolerance
	if value := r.URL.Query().Get("tolerance"); value != "" {
		var err error
		if tolerance, err = strconv.ParseFloat(value, 64); err != nil || !(tolerance >= 0) {
			s.writeError(w, http.StatusBadRequest, fmt.Errorf("tolerance must be a non-negative number, got %q", value))
			return
		}
	}
	body, ok := s.readBody(w, r)
	if !ok {
		return
	}
	authoritative, err := ibjournalreconcile.ParseAuthoritative(strings.NewReader(body))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	local, err := s.dailyBySymbol(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, ibjournalreconcile.Reconcile(local, authoritative, tolerance))
}

func (s *server) daily(ctx context.Context) ([]ibjournalpnl.DailySummary, error) {
	return cached(s, dailyCacheKey, func() ([]ibjournalpnl.DailySummary, error) {
		trades, err := s.store.ListTrades(ctx, ibjournalstore.TradeFilter{})
		if err != nil {
			return nil, err
		}
		return ibjournalpnl.Daily(trades)
	})
}

func (s *server) dailyBySymbol(ctx context.Context) ([]ibjournalpnl.DailyPnL, error) {
	return cached(s, dailyBySymbolCacheKey, func() ([]ibjournalpnl.DailyPnL, error) {
		trades, err := s.store.ListTrades(ctx, ibjournalstore.TradeFilter{})
		if err != nil {
			return nil, err
		}
		return ibjournalpnl.DailyBySymbol(trades)
	})
}

// cached returns the cached value for the key, computing and caching it on a miss.
//
// A nil result is cached as an empty slice so reports are never null in JSON.
// The value is not cached if the reports were invalidated while computing it.
func cached[T any](s *server, key string, compute func() ([]T, error)) ([]T, error) {
	if value, ok := s.reportCache.Get(key); ok {
		return value.([]T), nil
	}
	s.reportLock.Lock()
	generation := s.reportGeneration
	s.reportLock.Unlock()
	value, err := compute()
	if err != nil {
		return nil, err
	}
	if value == nil {
		value = []T{}
	}
	s.reportLock.Lock()
	defer s.reportLock.Unlock()
	if generation == s.reportGeneration {
		s.reportCache.Set(key, value, cache.DefaultExpiration)
	}
	return value, nil
}

func (s *server) invalidateReports() {
	s.reportLock.Lock()
	defer s.reportLock.Unlock()
	s.reportGeneration++
	s.reportCache.Flush()
}

func (s *server) limitImports(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.importLimiter.Allow() {
			s.logger.Warn("import rate limit exceeded", "remote_addr", r.RemoteAddr)
			s.writeError(w, http.StatusTooManyRequests, errors.New(http.StatusText(http.StatusTooManyRequests)))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapResponseWriter := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(wrapResponseWriter, r)
		s.logger.Info(
			"request",
			"request_id", middleware.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapResponseWriter.Status(),
			"bytes", wrapResponseWriter.BytesWritten(),
			"duration", time.Since(start),
		)
	})
}

// readBody reads the request body, writing an error response and returning
// false if it cannot be read.
func (s *server) readBody(w http.ResponseWriter, r *http.Request) (string, bool) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var maxBytesError *http.MaxBytesError
		if errors.As(err, &maxBytesError) {
			s.writeError(w, http.StatusRequestEntityTooLarge, err)
			return "", false
		}
		s.writeError(w, http.StatusBadRequest, err)
		return "", false
	}
	return string(data), true
}

type errorResponse struct {
	Error string `json:"error"`
}

type importErrorResponse struct {
	Error  string                  `json:"error"`
	Result *ibjournalimport.Result `json:"result"`
}

func (s *server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}

func (s *server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("writing response", "error", err)
	}
}

func parseOptionalDate(value string) (xtime.Date, error) {
	if value == "" {
		return xtime.Date{}, nil
	}
	return xtime.ParseDate(value)
}
