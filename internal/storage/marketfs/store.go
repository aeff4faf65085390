// Package marketfs caches EOD bars as one JSON file per ticker.
package marketfs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/interfaces"
	"github.com/bobmcallan/folio/internal/models"
)

// ErrNotFound is returned when no cached record exists for a ticker.
var ErrNotFound = errors.New("market data not found")

const (
	barsDir   = "eod"
	ext       = ".json"
	tmpPrefix = ".tmp-"
)

var keyReplacer = strings.NewReplacer("/", "_", "\\", "_", ":", "_", "..", "_")

// Store keeps cached bars under <root>/eod.
type Store struct {
	root   string
	dir    string
	logger *common.Logger
}

var _ interfaces.MarketDataStorage = (*Store)(nil)

// NewMarketStore creates root and its bar directory.
func NewMarketStore(logger *common.Logger, root string) (*Store, error) {
	dir := filepath.Join(root, barsDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create market store %s: %w", dir, err)
	}
	logger.Debug().Str("path", root).Msg("Market store opened")
	return &Store{root: root, dir: dir, logger: logger}, nil
}

// DataPath returns the store root.
func (s *Store) DataPath() string {
	return s.root
}

func (s *Store) path(ticker string) string {
	return filepath.Join(s.dir, keyReplacer.Replace(ticker)+ext)
}

// Load reads the cached record for ticker. A missing or empty file is
// ErrNotFound.
func (s *Store) Load(_ context.Context, ticker string) (*models.MarketData, error) {
	data, err := os.ReadFile(s.path(ticker))
	switch {
	case errors.Is(err, os.ErrNotExist), err == nil && len(data) == 0:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, ticker)
	case err != nil:
		return nil, fmt.Errorf("read %s: %w", ticker, err)
	}

	var md models.MarketData
	if err := json.Unmarshal(data, &md); err != nil {
		return nil, fmt.Errorf("decode %s: %w", ticker, err)
	}
	return &md, nil
}

// Save stamps LastUpdated and replaces the ticker's file atomically.
func (s *Store) Save(_ context.Context, md *models.MarketData) error {
	md.LastUpdated = time.Now()
	data, err := json.MarshalIndent(md, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", md.Ticker, err)
	}
	if err := s.replace(s.path(md.Ticker), append(data, '\n')); err != nil {
		return fmt.Errorf("save %s: %w", md.Ticker, err)
	}
	s.logger.Debug().Str("ticker", md.Ticker).Int("bars", len(md.EOD)).Msg("Market data saved")
	return nil
}

// replace writes to a temp file beside target, then renames it over target.
func (s *Store) replace(target string, data []byte) error {
	tmp, err := os.CreateTemp(s.dir, tmpPrefix+"*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), target)
}

// Tickers lists the cached tickers, sorted. Unreadable files are skipped.
func (s *Store) Tickers(_ context.Context) ([]string, error) {
	files, err := s.files()
	if err != nil {
		return nil, err
	}
	tickers := make([]string, 0, len(files))
	for _, f := range files {
		var md models.MarketData
		data, err := os.ReadFile(f)
		if err != nil || json.Unmarshal(data, &md) != nil {
			continue
		}
		tickers = append(tickers, md.Ticker)
	}
	sort.Strings(tickers)
	return tickers, nil
}

// Purge deletes every cached record and returns how many were removed.
func (s *Store) Purge() int {
	files, err := s.files()
	if err != nil {
		return 0
	}
	n := 0
	for _, f := range files {
		if os.Remove(f) == nil {
			n++
		}
	}
	return n
}

func (s *Store) files() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", s.dir, err)
	}
	var out []string
	for _, e := range entries {
		name := e.Name()
		if e.Type().IsRegular() && strings.HasSuffix(name, ext) && !strings.HasPrefix(name, tmpPrefix) {
			out = append(out, filepath.Join(s.dir, name))
		}
	}
	return out, nil
}

// Close is a no-op; there are no open handles between calls.
func (s *Store) Close() error {
	return nil
}
