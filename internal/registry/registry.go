// Package registry owns the set of user-defined categories. It guarantees a
// single protected default category, persists every change to the local
// key-value layer and notifies subscribers after each successful mutation.
package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/memeshelf/internal/logger"
	"github.com/mesh-intelligence/memeshelf/internal/metrics"
	"github.com/mesh-intelligence/memeshelf/pkg/types"
)

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger used for persistence and subscriber failures.
func WithLogger(l *zap.Logger) Option {
	return func(r *Registry) { r.log = logger.OrNop(l) }
}

// WithClock overrides the time source for CreatedAt stamps.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// WithColorPicker overrides how colors are chosen for new categories
// created without one.
func WithColorPicker(pick func() string) Option {
	return func(r *Registry) { r.pickColor = pick }
}

// WithMetrics records persistence failures.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Registry) { r.metrics = m }
}

type subscriber struct {
	fn func()
}

// Registry is the category registry. It is safe for concurrent use; create
// one per catalog and call Close when done.
type Registry struct {
	mu          sync.Mutex
	kv          types.KeyValue
	categories  []types.Category
	loaded      bool
	subscribers []*subscriber

	log       *zap.Logger
	now       func() time.Time
	pickColor func() string
	metrics   *metrics.Metrics
}

// New creates a registry persisting into kv. Nothing is read until Load or
// the first accessor call.
func New(kv types.KeyValue, opts ...Option) *Registry {
	r := &Registry{
		kv:  kv,
		log: zap.NewNop(),
		now: time.Now,
		pickColor: func() string {
			return types.CategoryPalette[rand.IntN(len(types.CategoryPalette))]
		},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Load (re)reads the category list from storage. A missing or corrupt blob
// resets the registry to the default category and writes it back; the
// returned error only reports that write-back failing.
func (r *Registry) Load() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loadLocked()
}

// Close drops every subscriber. The registry stays usable.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subscribers = nil
}

func (r *Registry) loadLocked() error {
	r.loaded = true

	raw, err := r.kv.Get(types.KeyCategories)
	if errors.Is(err, types.ErrKeyNotFound) {
		r.categories = []types.Category{types.DefaultCategory(r.now())}
		return r.persistLocked()
	}
	if err != nil {
		r.log.Warn("reading categories failed, using defaults", zap.Error(err))
		r.categories = []types.Category{types.DefaultCategory(r.now())}
		return nil
	}

	var stored []types.Category
	if err := json.Unmarshal(raw, &stored); err != nil {
		r.log.Warn("stored categories are corrupt, resetting", zap.Error(err))
		r.categories = []types.Category{types.DefaultCategory(r.now())}
		return r.persistLocked()
	}

	r.categories = sanitize(stored, r.now())
	return nil
}

func (r *Registry) ensureLoadedLocked() {
	if r.loaded {
		return
	}
	if err := r.loadLocked(); err != nil {
		r.log.Warn("persisting default categories failed", zap.Error(err))
	}
}

// sanitize drops entries without id or name, removes duplicate ids, fills
// presentation defaults and guarantees the default category comes first
// when it had to be added.
func sanitize(in []types.Category, now time.Time) []types.Category {
	out := make([]types.Category, 0, len(in)+1)
	seen := make(map[string]bool, len(in))
	for _, c := range in {
		c.ID = strings.TrimSpace(c.ID)
		c.Name = strings.TrimSpace(c.Name)
		if c.ID == "" || c.Name == "" || seen[c.ID] {
			continue
		}
		seen[c.ID] = true
		if c.Color == "" {
			c.Color = types.DefaultCategoryColor
		}
		if c.Icon == "" {
			c.Icon = types.DefaultCategoryIcon
		}
		out = append(out, c)
	}
	if !seen[types.DefaultCategoryID] {
		out = append([]types.Category{types.DefaultCategory(now)}, out...)
	}
	return out
}

func (r *Registry) persistLocked() error {
	data, err := json.Marshal(r.categories)
	if err != nil {
		return fmt.Errorf("%w: encoding categories: %w", types.ErrPersistence, err)
	}
	if err := r.kv.Set(types.KeyCategories, data); err != nil {
		r.metrics.PersistFailure(types.KeyCategories)
		r.log.Warn("saving categories failed", zap.Error(err))
		return fmt.Errorf("%w: %w", types.ErrPersistence, err)
	}
	return nil
}

// List returns a copy of all categories in insertion order.
func (r *Registry) List() []types.Category {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ensureLoadedLocked()

	out := make([]types.Category, len(r.categories))
	copy(out, r.categories)
	return out
}

// Get returns the category with the given id.
func (r *Registry) Get(id string) (types.Category, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ensureLoadedLocked()

	if i := r.indexLocked(id); i >= 0 {
		return r.categories[i], true
	}
	return types.Category{}, false
}

// Contains reports whether id names a live category.
func (r *Registry) Contains(id string) bool {
	_, ok := r.Get(id)
	return ok
}

func (r *Registry) indexLocked(id string) int {
	for i, c := range r.categories {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// ExistsName reports whether another category (not excludeID) already uses
// name, compared case-insensitively after trimming.
func (r *Registry) ExistsName(name, excludeID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ensureLoadedLocked()
	return r.existsNameLocked(name, excludeID)
}

func (r *Registry) existsNameLocked(name, excludeID string) bool {
	want := strings.ToLower(strings.TrimSpace(name))
	for _, c := range r.categories {
		if c.ID != excludeID && strings.ToLower(c.Name) == want {
			return true
		}
	}
	return false
}

// Create adds a category. The name is trimmed; an empty or duplicate name
// returns an error wrapping ErrValidation. When the write to storage fails
// the category is still created and returned together with an error
// wrapping ErrPersistence.
func (r *Registry) Create(name, color, icon string) (types.Category, error) {
	r.mu.Lock()
	r.ensureLoadedLocked()

	name = strings.TrimSpace(name)
	if name == "" {
		r.mu.Unlock()
		return types.Category{}, fmt.Errorf("%w: category name must not be empty", types.ErrValidation)
	}
	if r.existsNameLocked(name, "") {
		r.mu.Unlock()
		return types.Category{}, fmt.Errorf("%w: category %q already exists", types.ErrValidation, name)
	}
	if color == "" {
		color = r.pickColor()
	}
	if icon == "" {
		icon = types.DefaultNewIcon
	}

	cat := types.Category{
		ID:        r.freshIDLocked(),
		Name:      name,
		CreatedAt: r.now(),
		Color:     color,
		Icon:      icon,
	}
	r.categories = append(r.categories, cat)
	err := r.persistLocked()
	r.mu.Unlock()

	r.notify()
	return cat, err
}

func (r *Registry) freshIDLocked() string {
	for {
		id, err := uuid.NewV7()
		if err != nil {
			id = uuid.New()
		}
		if r.indexLocked(id.String()) < 0 {
			return id.String()
		}
	}
}

// Rename merges the provided fields into the category with the given id.
// Returns false if the id is unknown. A name that trims to empty keeps the
// existing name; a name used by another category is a validation error.
func (r *Registry) Rename(id string, u types.CategoryUpdate) (bool, error) {
	r.mu.Lock()
	r.ensureLoadedLocked()

	i := r.indexLocked(id)
	if i < 0 {
		r.mu.Unlock()
		return false, nil
	}

	updated := r.categories[i]
	if u.Name != nil {
		if name := strings.TrimSpace(*u.Name); name != "" {
			if r.existsNameLocked(name, id) {
				r.mu.Unlock()
				return false, fmt.Errorf("%w: category %q already exists", types.ErrValidation, name)
			}
			updated.Name = name
		}
	}
	if u.Color != nil {
		updated.Color = *u.Color
	}
	if u.Icon != nil {
		updated.Icon = *u.Icon
	}
	r.categories[i] = updated
	err := r.persistLocked()
	r.mu.Unlock()

	r.notify()
	return true, err
}

// Remove deletes the category record. The default category and unknown ids
// return false without any mutation. Items referencing the category are not
// touched; callers migrate them first.
func (r *Registry) Remove(id string) (bool, error) {
	if id == types.DefaultCategoryID {
		return false, nil
	}

	r.mu.Lock()
	r.ensureLoadedLocked()

	i := r.indexLocked(id)
	if i < 0 {
		r.mu.Unlock()
		return false, nil
	}
	r.categories = append(r.categories[:i], r.categories[i+1:]...)
	err := r.persistLocked()
	r.mu.Unlock()

	r.notify()
	return true, err
}

// Replace swaps in a whole category list, as imported from a snapshot.
// Entries without id or name are dropped and the default category is
// prepended when missing.
func (r *Registry) Replace(categories []types.Category) error {
	r.mu.Lock()
	r.loaded = true
	r.categories = sanitize(categories, r.now())
	err := r.persistLocked()
	r.mu.Unlock()

	r.notify()
	return err
}

// Merge appends the categories whose ids are not yet known and returns how
// many were added.
func (r *Registry) Merge(categories []types.Category) (int, error) {
	r.mu.Lock()
	r.ensureLoadedLocked()

	added := 0
	for _, c := range sanitize(categories, r.now()) {
		if r.indexLocked(c.ID) >= 0 {
			continue
		}
		r.categories = append(r.categories, c)
		added++
	}
	if added == 0 {
		r.mu.Unlock()
		return 0, nil
	}
	err := r.persistLocked()
	r.mu.Unlock()

	r.notify()
	return added, err
}

// Subscribe registers fn to run after every successful mutation and returns
// a function that removes it.
func (r *Registry) Subscribe(fn func()) (unsubscribe func()) {
	s := &subscriber{fn: fn}

	r.mu.Lock()
	r.subscribers = append(r.subscribers, s)
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		for i, cur := range r.subscribers {
			if cur == s {
				r.subscribers = append(r.subscribers[:i], r.subscribers[i+1:]...)
				return
			}
		}
	}
}

// notify runs subscribers outside the registry lock so they may call back
// into the registry.
func (r *Registry) notify() {
	r.mu.Lock()
	subs := make([]*subscriber, len(r.subscribers))
	copy(subs, r.subscribers)
	r.mu.Unlock()

	for _, s := range subs {
		r.call(s)
	}
}

func (r *Registry) call(s *subscriber) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("category subscriber panicked", zap.Any("panic", rec))
		}
	}()
	s.fn()
}
