package catalog

import (
	"encoding/json"
	"fmt"

	"github.com/mesh-intelligence/memeshelf/pkg/types"
)

// Settings returns the current presentation settings.
func (s *Store) Settings() types.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// SetSettings validates and persists st.
func (s *Store) SetSettings(st types.Settings) error {
	if !st.SortBy.Valid() {
		return fmt.Errorf("%w: unknown sort key %q", types.ErrValidation, st.SortBy)
	}
	if !st.ViewMode.Valid() {
		return fmt.Errorf("%w: unknown view mode %q", types.ErrValidation, st.ViewMode)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.settings = st
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("%w: encoding settings: %w", types.ErrPersistence, err)
	}
	return s.writeLocked(types.KeySettings, data)
}

// AuxiliaryConfig returns the opaque configuration carried in snapshots.
func (s *Store) AuxiliaryConfig() json.RawMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append(json.RawMessage(nil), s.aux...)
}

// SetAuxiliaryConfig replaces the opaque configuration. It must be a JSON
// object; nil clears it.
func (s *Store) SetAuxiliaryConfig(raw json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setAuxLocked(raw)
}

func (s *Store) setAuxLocked(raw json.RawMessage) error {
	if len(raw) == 0 {
		s.aux = nil
		if err := s.kv.Delete(types.KeyAuxiliaryConfig); err != nil {
			return fmt.Errorf("%w: clearing %s: %w", types.ErrPersistence, types.KeyAuxiliaryConfig, err)
		}
		return nil
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return fmt.Errorf("%w: auxiliary config must be a JSON object: %w", types.ErrValidation, err)
	}
	s.aux = append(json.RawMessage(nil), raw...)
	return s.writeLocked(types.KeyAuxiliaryConfig, s.aux)
}
