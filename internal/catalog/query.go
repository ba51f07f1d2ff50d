package catalog

import (
	"math"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/collate"

	"github.com/mesh-intelligence/memeshelf/internal/search"
	"github.com/mesh-intelligence/memeshelf/pkg/types"
)

// Get returns a copy of the item with the given id, deleted or not.
func (s *Store) Get(id string) (types.Item, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := s.findLocked(id); i >= 0 {
		return s.items[i].Clone(), true
	}
	return types.Item{}, false
}

// Len returns the number of stored items, deleted ones included.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Query returns the items selected by f, ordered by key.
//
// Category filtering runs first. A keyword of at least two runes is matched
// fuzzily and results keep relevance order unless key sorts them; when
// fuzzy matching finds none of the candidates, or the keyword is shorter,
// a case-insensitive substring match over the text fields is used. An
// unrecognized key leaves the order unchanged.
func (s *Store) Query(f types.Filter, key types.SortKey) []types.Item {
	s.mu.RLock()
	out := s.queryLocked(f)
	s.mu.RUnlock()

	s.sortItems(out, key)
	return out
}

func (s *Store) queryLocked(f types.Filter) []types.Item {
	candidates := make([]types.Item, 0, len(s.items))
	for _, it := range s.items {
		if it.IsDeleted != f.Deleted {
			continue
		}
		if f.Category != "" && f.Category != types.AllCategories && it.CategoryID != f.Category {
			continue
		}
		candidates = append(candidates, it.Clone())
	}

	keyword := strings.TrimSpace(f.Keyword)
	if keyword == "" {
		return candidates
	}

	if search.UseFuzzy(keyword) {
		byID := make(map[string]types.Item, len(candidates))
		for _, it := range candidates {
			byID[it.ID] = it
		}
		var hits []types.Item
		for _, h := range s.index.Search(keyword) {
			if it, ok := byID[h.ID]; ok {
				hits = append(hits, it)
			}
		}
		if len(hits) > 0 {
			return hits
		}
	}

	matched := candidates[:0]
	for _, it := range candidates {
		if search.ContainsFold(document(it), keyword) {
			matched = append(matched, it)
		}
	}
	return matched
}

func (s *Store) sortItems(items []types.Item, key types.SortKey) {
	var less func(a, b *types.Item) bool
	switch key {
	case types.SortDateDesc:
		less = func(a, b *types.Item) bool { return a.CreatedAt.After(b.CreatedAt) }
	case types.SortDateAsc:
		less = func(a, b *types.Item) bool { return a.CreatedAt.Before(b.CreatedAt) }
	case types.SortSizeDesc:
		less = func(a, b *types.Item) bool { return a.ByteSize > b.ByteSize }
	case types.SortSizeAsc:
		less = func(a, b *types.Item) bool { return a.ByteSize < b.ByteSize }
	case types.SortNameAsc, types.SortNameDesc:
		// Collators keep scratch buffers, so each sort gets its own.
		col := collate.New(s.locale)
		sign := 1
		if key == types.SortNameDesc {
			sign = -1
		}
		less = func(a, b *types.Item) bool {
			return sign*col.CompareString(a.Filename, b.Filename) < 0
		}
	default:
		return
	}
	sort.SliceStable(items, func(i, j int) bool { return less(&items[i], &items[j]) })
}

// GroupByCategory runs Query and buckets the result by category. There is
// one group per live category in registry order, empty groups included.
// Items whose category no longer exists land in the default group.
func (s *Store) GroupByCategory(f types.Filter, key types.SortKey) []types.Group {
	cats := s.reg.List()
	items := s.Query(f, key)

	groups := make([]types.Group, len(cats))
	slot := make(map[string]int, len(cats))
	for i, c := range cats {
		groups[i] = types.Group{Category: c, Items: []types.Item{}}
		slot[c.ID] = i
	}
	fallback := slot[types.DefaultCategoryID]
	for _, it := range items {
		i, ok := slot[it.CategoryID]
		if !ok {
			i = fallback
		}
		groups[i].Items = append(groups[i].Items, it)
	}
	return groups
}

// Statistics summarizes the catalog. Counts per category, sizes and upload
// dates cover active items only; items with an unknown category count
// toward the default category.
func (s *Store) Statistics() types.Statistics {
	cats := s.reg.List()

	st := types.Statistics{ByCategory: make(map[string]int, len(cats))}
	for _, c := range cats {
		st.ByCategory[c.ID] = 0
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var newest, oldest time.Time
	for _, it := range s.items {
		if it.IsDeleted {
			st.DeletedCount++
			continue
		}
		st.Total++
		st.TotalSize += it.ByteSize
		if _, ok := st.ByCategory[it.CategoryID]; ok {
			st.ByCategory[it.CategoryID]++
		} else {
			st.ByCategory[types.DefaultCategoryID]++
		}
		if st.Total == 1 || it.CreatedAt.After(newest) {
			newest = it.CreatedAt
		}
		if st.Total == 1 || it.CreatedAt.Before(oldest) {
			oldest = it.CreatedAt
		}
	}
	if st.Total > 0 {
		st.AverageSize = int64(math.Round(float64(st.TotalSize) / float64(st.Total)))
		st.MostRecentUpload = &newest
		st.OldestUpload = &oldest
	}
	return st
}
