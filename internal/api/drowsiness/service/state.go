package drowsinessService

import (
	"BlinkRise/internal/entity"
	"sync"
)

// StateStore holds the one current DrowsinessState. Replace swaps the whole
// record; readers get a copy from before or after a swap, never a mix.
//
// While frozen, Replace is ignored. The camera freezes the store on stop so a
// frame already in flight cannot overwrite the Video Off snapshot.
type StateStore struct {
	mu      sync.RWMutex
	snap    entity.DrowsinessState
	version uint64
	frozen  bool
}

func NewStateStore() *StateStore {
	return &StateStore{snap: entity.NoFaceState()}
}

// Replace reports whether st was stored.
func (s *StateStore) Replace(st entity.DrowsinessState) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.frozen {
		return false
	}
	s.snap = st
	s.version++
	return true
}

func (s *StateStore) Freeze(st entity.DrowsinessState) {
	s.mu.Lock()
	s.snap = st
	s.version++
	s.frozen = true
	s.mu.Unlock()
}

func (s *StateStore) Thaw() {
	s.mu.Lock()
	s.frozen = false
	s.mu.Unlock()
}

func (s *StateStore) Get() entity.DrowsinessState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Snapshot also returns the number of stored snapshots so far.
func (s *StateStore) Snapshot() (entity.DrowsinessState, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap, s.version
}
