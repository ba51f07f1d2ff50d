// Package catalog owns the item collection: mutations with soft delete,
// filtered, grouped and statistical views, local persistence, and
// snapshot import and export.
//
// Every mutation rebuilds the search index and writes the items blob before
// it returns. A failed write is reported as an error wrapping
// types.ErrPersistence; the in-memory change stands.
package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/language"

	"github.com/mesh-intelligence/memeshelf/internal/logger"
	"github.com/mesh-intelligence/memeshelf/internal/metrics"
	"github.com/mesh-intelligence/memeshelf/internal/registry"
	"github.com/mesh-intelligence/memeshelf/internal/search"
	"github.com/mesh-intelligence/memeshelf/internal/snapshot"
	"github.com/mesh-intelligence/memeshelf/pkg/types"
)

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the store logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.log = logger.OrNop(l) }
}

// WithClock overrides the time source for deletion and export stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithMetrics counts mutations and persistence failures.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

// WithLocale sets the BCP 47 tag used to collate names. Unparseable tags
// fall back to language.Und.
func WithLocale(tag string) Option {
	return func(s *Store) {
		t, err := language.Parse(tag)
		if err != nil {
			t = language.Und
		}
		s.locale = t
	}
}

// WithSearchThreshold sets the minimum fuzzy score a search hit needs.
func WithSearchThreshold(th float64) Option {
	return func(s *Store) { s.threshold = th }
}

// Store is the catalog. It is safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	kv       types.KeyValue
	reg      *registry.Registry
	items    []types.Item
	index    *search.Index
	settings types.Settings
	aux      json.RawMessage

	log       *zap.Logger
	now       func() time.Time
	metrics   *metrics.Metrics
	locale    language.Tag
	threshold float64
}

// New creates an empty store over kv that resolves categories through reg.
// Call Load to read persisted state.
func New(kv types.KeyValue, reg *registry.Registry, opts ...Option) *Store {
	s := &Store{
		kv:        kv,
		reg:       reg,
		settings:  types.DefaultSettings(),
		log:       zap.NewNop(),
		now:       time.Now,
		locale:    language.SimplifiedChinese,
		threshold: search.DefaultThreshold,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.rebuildLocked()
	return s
}

// Load reads the items, settings and auxiliary config blobs. Stored items
// pass through the same migrations and validation as imported documents;
// the returned warnings list the records that were dropped or adjusted.
// Records that changed are written back.
func (s *Store) Load() ([]snapshot.Warning, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	warnings, err := s.loadItemsLocked()
	s.loadSettingsLocked()
	s.loadAuxLocked()
	s.rebuildLocked()
	s.log.Debug("catalog loaded", zap.Int("items", len(s.items)), zap.Int("warnings", len(warnings)))
	return warnings, err
}

func (s *Store) loadItemsLocked() ([]snapshot.Warning, error) {
	s.items = nil
	raw, err := s.kv.Get(types.KeyItems)
	if errors.Is(err, types.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: reading items: %w", types.ErrPersistence, err)
	}

	items, warnings, err := snapshot.DecodeItems(raw, s.now())
	if err != nil {
		s.log.Warn("stored items are unreadable, starting empty", zap.Error(err))
		return []snapshot.Warning{{Index: -1, Message: "stored items are unreadable: " + err.Error()}}, nil
	}
	for _, w := range warnings {
		s.log.Warn("stored item adjusted", zap.String("warning", w.String()))
	}
	s.items = items

	current, err := encodeItems(items)
	if err != nil {
		return warnings, err
	}
	if !bytes.Equal(bytes.TrimSpace(raw), current) {
		return warnings, s.writeLocked(types.KeyItems, current)
	}
	return warnings, nil
}

func (s *Store) loadSettingsLocked() {
	s.settings = types.DefaultSettings()
	raw, err := s.kv.Get(types.KeySettings)
	if err != nil {
		return
	}
	var stored types.Settings
	if err := json.Unmarshal(raw, &stored); err != nil {
		s.log.Warn("stored settings are corrupt, using defaults", zap.Error(err))
		return
	}
	if stored.SortBy.Valid() {
		s.settings.SortBy = stored.SortBy
	}
	if stored.ViewMode.Valid() {
		s.settings.ViewMode = stored.ViewMode
	}
}

func (s *Store) loadAuxLocked() {
	s.aux = nil
	raw, err := s.kv.Get(types.KeyAuxiliaryConfig)
	if err != nil || !json.Valid(raw) {
		return
	}
	s.aux = append(json.RawMessage(nil), raw...)
}

func encodeItems(items []types.Item) ([]byte, error) {
	if items == nil {
		items = []types.Item{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("%w: encoding items: %w", types.ErrPersistence, err)
	}
	return data, nil
}

// persistItemsLocked writes the items blob.
func (s *Store) persistItemsLocked() error {
	data, err := encodeItems(s.items)
	if err != nil {
		return err
	}
	return s.writeLocked(types.KeyItems, data)
}

func (s *Store) writeLocked(key string, data []byte) error {
	if err := s.kv.Set(key, data); err != nil {
		s.metrics.PersistFailure(key)
		s.log.Warn("saving to local storage failed", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("%w: saving %s: %w", types.ErrPersistence, key, err)
	}
	return nil
}

// commitLocked finishes a mutation that changed n records: it rebuilds the
// index and persists the items.
func (s *Store) commitLocked(op string, n int) error {
	s.rebuildLocked()
	s.metrics.Mutation(op, n)
	if n == 0 {
		return nil
	}
	return s.persistItemsLocked()
}

func (s *Store) rebuildLocked() {
	docs := make([]search.Document, len(s.items))
	for i, it := range s.items {
		docs[i] = document(it)
	}
	s.index = search.Build(docs, search.WithThreshold(s.threshold))
}

func document(it types.Item) search.Document {
	return search.Document{
		ID:            it.ID,
		Filename:      it.Filename,
		ExtractedText: it.ExtractedText,
		Description:   it.Description,
	}
}

func (s *Store) findLocked(id string) int {
	for i := range s.items {
		if s.items[i].ID == id {
			return i
		}
	}
	return -1
}
