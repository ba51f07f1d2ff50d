package catalog

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/memeshelf/pkg/types"
)

// Add appends item. An empty id is rejected with ErrValidation; keeping ids
// unique is the caller's job. Soft-delete fields are normalized.
func (s *Store) Add(item types.Item) error {
	item.ID = strings.TrimSpace(item.ID)
	if item.ID == "" {
		return fmt.Errorf("%w: item id must not be empty", types.ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	item = item.Clone()
	item.NormalizeDeletion(s.now())
	if item.ByteSize < 0 {
		item.ByteSize = 0
	}
	s.items = append(s.items, item)
	return s.commitLocked("add", 1)
}

// Update merges patch into the item with the given id. ID and creation
// time cannot change. Returns false for an unknown id.
func (s *Store) Update(id string, patch types.ItemPatch) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.findLocked(id)
	if i < 0 {
		s.rebuildLocked()
		return false, nil
	}
	patch.Apply(&s.items[i])
	return true, s.commitLocked("update", 1)
}

// Remove soft-deletes one item. Returns false if it is unknown or already
// deleted.
func (s *Store) Remove(id string) (bool, error) {
	n, err := s.RemoveMany([]string{id})
	return n > 0, err
}

// RemoveMany soft-deletes the listed items and returns how many changed.
func (s *Store) RemoveMany(ids []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	at := s.now()
	n := s.eachLocked(ids, func(it *types.Item) bool { return it.SoftDelete(at) })
	return n, s.commitLocked("remove", n)
}

// Restore clears the soft-delete flag of one item. Returns false if it is
// unknown or not deleted.
func (s *Store) Restore(id string) (bool, error) {
	n, err := s.RestoreMany([]string{id})
	return n > 0, err
}

// RestoreMany restores the listed items and returns how many changed.
func (s *Store) RestoreMany(ids []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.eachLocked(ids, func(it *types.Item) bool { return it.Restore() })
	return n, s.commitLocked("restore", n)
}

// Purge removes one item permanently, deleted or not.
func (s *Store) Purge(id string) (bool, error) {
	n, err := s.PurgeMany([]string{id})
	return n > 0, err
}

// PurgeMany removes the listed items permanently and returns how many were
// removed.
func (s *Store) PurgeMany(ids []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	drop := toSet(ids)
	kept := s.items[:0]
	for _, it := range s.items {
		if !drop[it.ID] {
			kept = append(kept, it)
		}
	}
	n := len(s.items) - len(kept)
	clear(s.items[len(kept):])
	s.items = kept
	return n, s.commitLocked("purge", n)
}

// RecategorizeAll moves every item, deleted ones included, from one
// category to another and returns how many moved. The target is not
// checked against the registry.
func (s *Store) RecategorizeAll(from, to string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recategorizeAllLocked(from, to)
}

func (s *Store) recategorizeAllLocked(from, to string) (int, error) {
	n := 0
	if from != to {
		for i := range s.items {
			if s.items[i].CategoryID == from {
				s.items[i].CategoryID = to
				n++
			}
		}
	}
	return n, s.commitLocked("recategorize", n)
}

// RecategorizeSelected moves the listed active items to a live category
// and returns how many moved. Deleted items stay where they are. An unknown
// target changes nothing.
func (s *Store) RecategorizeSelected(ids []string, to string) (int, error) {
	if !s.reg.Contains(to) {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.eachLocked(ids, func(it *types.Item) bool {
		if it.IsDeleted || it.CategoryID == to {
			return false
		}
		it.CategoryID = to
		return true
	})
	return n, s.commitLocked("recategorize", n)
}

// DeleteCategory moves every item of category id into target and then
// removes the category record. The default category, unknown ids and
// targets that are not live categories are rejected with ErrValidation.
func (s *Store) DeleteCategory(id, target string) (int, error) {
	switch {
	case id == types.DefaultCategoryID:
		return 0, fmt.Errorf("%w: the default category cannot be deleted", types.ErrValidation)
	case !s.reg.Contains(id):
		return 0, fmt.Errorf("%w: unknown category %q", types.ErrValidation, id)
	case id == target || !s.reg.Contains(target):
		return 0, fmt.Errorf("%w: invalid target category %q", types.ErrValidation, target)
	}

	s.mu.Lock()
	n, moveErr := s.recategorizeAllLocked(id, target)
	s.mu.Unlock()

	// Registry subscribers run outside the store lock.
	_, removeErr := s.reg.Remove(id)
	s.log.Info("category deleted", zap.String("category", id), zap.String("target", target), zap.Int("moved", n))
	return n, errors.Join(moveErr, removeErr)
}

// eachLocked applies fn to every listed item that exists and counts the
// calls that reported a change.
func (s *Store) eachLocked(ids []string, fn func(*types.Item) bool) int {
	want := toSet(ids)
	n := 0
	for i := range s.items {
		if want[s.items[i].ID] && fn(&s.items[i]) {
			n++
		}
	}
	return n
}

func toSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
