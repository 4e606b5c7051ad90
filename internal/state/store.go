package state

import "sync"

// Ключи состояния, которые публикует RegionSystem
const (
	KeyCurrentRegion = "currentRegion"
	KeyCurrentBiome  = "currentBiome"
)

// Store - хранилище состояния игры между тиками.
// Patch выполняет немедленное поверхностное слияние.
type Store struct {
	mu      sync.RWMutex
	data    map[string]any
	version uint64
}

// NewStore создаёт пустое хранилище
func NewStore() *Store {
	return &Store{data: make(map[string]any)}
}

// Get возвращает значение по ключу
func (s *Store) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok
}

// GetString возвращает строковое значение; false - если ключа нет,
// значение не строка или пустое
func (s *Store) GetString(key string) (string, bool) {
	v, ok := s.Get(key)
	if !ok {
		return "", false
	}
	str, ok := v.(string)
	if !ok || str == "" {
		return "", false
	}
	return str, true
}

// Patch сливает partial в состояние: ключи перезаписываются, остальные не трогаются
func (s *Store) Patch(partial map[string]any) {
	if len(partial) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range partial {
		s.data[k] = v
	}
	s.version++
}

// Data возвращает копию всего состояния
func (s *Store) Data() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]any, len(s.data))
	for k, v := range s.data {
		out[k] = v
	}
	return out
}

// Version возвращает число применённых патчей
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}
