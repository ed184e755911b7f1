// Package tickers holds the per-symbol trading table. The table is loaded
// from a CSV file and kept as an immutable snapshot: Reload swaps the whole
// snapshot atomically, so a decision in flight observes either the fully-old
// or fully-new table, never a mix.
package tickers

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"alert_bot/internal/models"
	"alert_bot/pkg/logger"
)

// CSV header names, kept identical to the operator-maintained sheet.
const (
	colSymbol       = "Symbol"
	colEpic         = "IG EPIC"
	colSLPeriod     = "ATR Stop Loss Period"
	colSLMultiple   = "ATR Stop Loss Multiple"
	colTPPeriod     = "ATR Profit Target Period"
	colTPMultiple   = "ATR Profit Multiple"
	colMaxPosition  = "Postion Size Max GBP"
	colPriceMult    = "Opening Price Multiple"
	colDividendDate = "Next dividend date"
)

const dividendDateLayout = "02/01/2006"

type snapshot struct {
	bySymbol map[string]models.TickerConfig // normalized full symbol
	byBare   map[string]models.TickerConfig // exchange prefix stripped
	loadedAt time.Time
}

type Store struct {
	path string
	snap atomic.Pointer[snapshot]
}

// New loads the table from path. The initial load must succeed; later
// Reload failures keep the previous snapshot.
func New(path string) (*Store, error) {
	s := &Store{path: path}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// NewFromConfigs builds a store directly from rows, for tests and for
// callers that source the table elsewhere.
func NewFromConfigs(rows []models.TickerConfig) *Store {
	s := &Store{}
	s.snap.Store(buildSnapshot(rows))
	return s
}

// Lookup finds the row for a symbol. Matching is exact after normalization
// and exchange-prefix-aware: "BATS:PML" matches a row keyed "PML" and vice
// versa.
func (s *Store) Lookup(symbol string) (models.TickerConfig, bool) {
	snap := s.snap.Load()
	if snap == nil {
		return models.TickerConfig{}, false
	}

	key := Normalize(symbol)
	if cfg, ok := snap.bySymbol[key]; ok {
		return cfg, true
	}
	if cfg, ok := snap.byBare[StripExchange(key)]; ok {
		return cfg, true
	}
	return models.TickerConfig{}, false
}

// Len reports the number of configured symbols.
func (s *Store) Len() int {
	snap := s.snap.Load()
	if snap == nil {
		return 0
	}
	return len(snap.bySymbol)
}

// LoadedAt reports when the current snapshot was built.
func (s *Store) LoadedAt() time.Time {
	snap := s.snap.Load()
	if snap == nil {
		return time.Time{}
	}
	return snap.loadedAt
}

// Reload re-reads the CSV and swaps the snapshot wholesale.
func (s *Store) Reload() error {
	if s.path == "" {
		return fmt.Errorf("tickers: no csv path configured")
	}

	f, err := os.Open(s.path)
	if err != nil {
		return fmt.Errorf("tickers: open %s: %w", s.path, err)
	}
	defer func() {
		_ = f.Close()
	}()

	rows, err := parseCSV(csv.NewReader(f))
	if err != nil {
		return fmt.Errorf("tickers: parse %s: %w", s.path, err)
	}

	s.snap.Store(buildSnapshot(rows))
	logger.Info("ticker table loaded: %d symbols from %s", len(rows), s.path)
	return nil
}

func buildSnapshot(rows []models.TickerConfig) *snapshot {
	snap := &snapshot{
		bySymbol: make(map[string]models.TickerConfig, len(rows)),
		byBare:   make(map[string]models.TickerConfig, len(rows)),
		loadedAt: time.Now(),
	}
	for _, row := range rows {
		key := Normalize(row.Symbol)
		snap.bySymbol[key] = row
		snap.byBare[StripExchange(key)] = row
	}
	return snap
}

func parseCSV(r *csv.Reader) ([]models.TickerConfig, error) {
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{colSymbol, colSLPeriod, colSLMultiple, colTPPeriod, colTPMultiple, colMaxPosition, colPriceMult} {
		if _, ok := idx[required]; !ok {
			return nil, fmt.Errorf("missing column %q", required)
		}
	}

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}

	rows := make([]models.TickerConfig, 0, len(records))
	for n, rec := range records {
		cfg, err := parseRow(rec, idx)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", n+2, err)
		}
		rows = append(rows, cfg)
	}
	return rows, nil
}

func parseRow(rec []string, idx map[string]int) (models.TickerConfig, error) {
	field := func(col string) string {
		i, ok := idx[col]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	cfg := models.TickerConfig{
		Symbol:   field(colSymbol),
		EpicHint: field(colEpic),
	}
	if cfg.Symbol == "" {
		return cfg, fmt.Errorf("empty %s", colSymbol)
	}

	var err error
	if cfg.StopLossATRPeriod, err = parsePeriod(field(colSLPeriod)); err != nil {
		return cfg, fmt.Errorf("%s: %w", colSLPeriod, err)
	}
	if cfg.ProfitTargetATRPeriod, err = parsePeriod(field(colTPPeriod)); err != nil {
		return cfg, fmt.Errorf("%s: %w", colTPPeriod, err)
	}
	if cfg.StopLossMultiple, err = strconv.ParseFloat(field(colSLMultiple), 64); err != nil {
		return cfg, fmt.Errorf("%s: %w", colSLMultiple, err)
	}
	if cfg.ProfitMultiple, err = strconv.ParseFloat(field(colTPMultiple), 64); err != nil {
		return cfg, fmt.Errorf("%s: %w", colTPMultiple, err)
	}
	if cfg.MaxPositionValue, err = strconv.ParseFloat(field(colMaxPosition), 64); err != nil {
		return cfg, fmt.Errorf("%s: %w", colMaxPosition, err)
	}
	if cfg.OpeningPriceMultiple, err = strconv.ParseFloat(field(colPriceMult), 64); err != nil {
		return cfg, fmt.Errorf("%s: %w", colPriceMult, err)
	}

	if raw := field(colDividendDate); raw != "" && !strings.EqualFold(raw, "na") {
		d, err := time.ParseInLocation(dividendDateLayout, raw, time.Local)
		if err != nil {
			return cfg, fmt.Errorf("%s: %w", colDividendDate, err)
		}
		cfg.NextDividendDate = &d
	}

	return cfg, nil
}

func parsePeriod(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if n < 1 || n > models.ATRPeriods {
		return 0, fmt.Errorf("period %d out of range 1..%d", n, models.ATRPeriods)
	}
	return n, nil
}
