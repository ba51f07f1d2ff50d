package catalog

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/memeshelf/internal/snapshot"
	"github.com/mesh-intelligence/memeshelf/pkg/types"
)

// ImportOptions controls how a snapshot is applied.
type ImportOptions struct {
	// Mode defaults to types.ImportOverwrite.
	Mode types.ImportMode
	// Progress, when set, is called after each applied item with the number
	// applied so far and the number in the snapshot. It runs under the store
	// lock and must not call back into the store.
	Progress func(done, total int)
}

// ImportResult reports what an import changed.
type ImportResult struct {
	Mode       types.ImportMode
	Items      int // items applied
	Skipped    int // merge only: items whose id already existed
	Categories int // categories added (merge) or now present (overwrite)
	Warnings   []snapshot.Warning
}

// Export captures the whole catalog, deleted items included.
func (s *Store) Export() types.Snapshot {
	cats := s.reg.List()

	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshot.Serialize(s.items, cats, s.aux, s.now())
}

// ExportJSON renders Export as an interchange document.
func (s *Store) ExportJSON() ([]byte, error) {
	return snapshot.Encode(s.Export())
}

// Import applies snap. The snapshot is validated first exactly as a decoded
// document would be; a schema error aborts before anything changes.
func (s *Store) Import(snap types.Snapshot, opts ImportOptions) (ImportResult, error) {
	raw, err := snapshot.Encode(snap)
	if err != nil {
		return ImportResult{}, err
	}
	return s.ImportJSON(raw, opts)
}

// ImportJSON decodes an interchange document and applies it.
func (s *Store) ImportJSON(raw []byte, opts ImportOptions) (ImportResult, error) {
	if opts.Mode == "" {
		opts.Mode = types.ImportOverwrite
	}
	if !opts.Mode.Valid() {
		return ImportResult{}, fmt.Errorf("%w: unknown import mode %q", types.ErrValidation, opts.Mode)
	}
	res, err := snapshot.Deserialize(raw, snapshot.WithClock(s.now))
	if err != nil {
		return ImportResult{}, err
	}
	return s.Apply(res, opts)
}

// Apply installs an already decoded snapshot.
func (s *Store) Apply(res *snapshot.Result, opts ImportOptions) (ImportResult, error) {
	if opts.Mode == "" {
		opts.Mode = types.ImportOverwrite
	}
	out := ImportResult{Mode: opts.Mode, Warnings: res.Warnings}
	snap := res.Snapshot

	var catErr error
	switch opts.Mode {
	case types.ImportOverwrite:
		catErr = s.reg.Replace(snap.Categories)
		out.Categories = len(snap.Categories)
	case types.ImportMerge:
		out.Categories, catErr = s.reg.Merge(snap.Categories)
	default:
		return ImportResult{}, fmt.Errorf("%w: unknown import mode %q", types.ErrValidation, opts.Mode)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	total := len(snap.Items)
	progress := func(done int) {
		if opts.Progress != nil {
			opts.Progress(done, total)
		}
	}

	var auxErr error
	if opts.Mode == types.ImportOverwrite {
		s.items = make([]types.Item, 0, total)
		for _, it := range snap.Items {
			s.items = append(s.items, it.Clone())
			out.Items++
			progress(out.Items)
		}
		auxErr = s.setAuxLocked(snap.AuxiliaryConfig)
	} else {
		have := make(map[string]bool, len(s.items))
		for _, it := range s.items {
			have[it.ID] = true
		}
		for i, it := range snap.Items {
			if have[it.ID] {
				out.Skipped++
			} else {
				s.items = append(s.items, it.Clone())
				have[it.ID] = true
				out.Items++
			}
			progress(i + 1)
		}
		if len(s.aux) == 0 && len(snap.AuxiliaryConfig) > 0 {
			auxErr = s.setAuxLocked(snap.AuxiliaryConfig)
		}
	}

	s.rebuildLocked()
	s.metrics.Mutation("import", out.Items)
	itemsErr := s.persistItemsLocked()

	s.log.Info("snapshot imported",
		zap.String("mode", string(opts.Mode)),
		zap.Int("items", out.Items),
		zap.Int("skipped", out.Skipped),
		zap.Int("warnings", len(out.Warnings)),
	)
	return out, errors.Join(catErr, itemsErr, auxErr)
}
