package entity

import (
	"sync"

	"github.com/annel0/mmo-worldcore/internal/vec"
)

// Store хранит все сущности мира.
// Порядок перебора совпадает с порядком создания, чтобы "первый игрок"
// и результаты запросов были детерминированными.
type Store struct {
	entities     map[uint64]*Entity // Хранилище всех сущностей
	order        []uint64           // ID в порядке создания
	nextEntityID uint64             // Счетчик для генерации ID
	mu           sync.RWMutex       // Мьютекс для безопасного доступа
}

// NewStore создаёт пустое хранилище
func NewStore() *Store {
	return &Store{
		entities:     make(map[uint64]*Entity),
		nextEntityID: 1,
	}
}

// Spawn создаёт сущность с новым ID и возвращает её
func (s *Store) Spawn(data Data) *Entity {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := &Entity{ID: s.nextEntityID, Data: data}
	if data.Transform != nil {
		t := *data.Transform
		e.Transform = &t
	}
	s.nextEntityID++

	s.entities[e.ID] = e
	s.order = append(s.order, e.ID)
	return e
}

// Get возвращает сущность по ID
func (s *Store) Get(id uint64) (*Entity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entities[id]
	return e, ok
}

// Despawn удаляет сущность; false - если её не было
func (s *Store) Despawn(id uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entities[id]; !ok {
		return false
	}
	delete(s.entities, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

// Entities возвращает все сущности в порядке создания
func (s *Store) Entities() []*Entity {
	return s.Query()
}

// Query возвращает сущности, у которых есть все перечисленные поля.
// Каждый вызов заново просматривает хранилище.
func (s *Store) Query(fields ...Field) []*Entity {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*Entity, 0, len(s.order))
	for _, id := range s.order {
		e := s.entities[id]
		if e.Has(fields...) {
			result = append(result, e)
		}
	}
	return result
}

// SetPosition перезаписывает позицию сущности; false - если сущности нет
// или у неё нет Transform
func (s *Store) SetPosition(id uint64, pos vec.Vec3Float) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entities[id]
	if !ok || e.Transform == nil {
		return false
	}
	e.Transform.Position = pos
	return true
}

// CountInRegion считает сущности, привязанные к региону (линейный проход)
func (s *Store) CountInRegion(regionID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, e := range s.entities {
		if e.RegionID == regionID {
			n++
		}
	}
	return n
}

// Snapshot возвращает копии сущностей, удовлетворяющих фильтру (nil - все)
func (s *Store) Snapshot(filter func(*Entity) bool) []Entity {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Entity, 0, len(s.order))
	for _, id := range s.order {
		e := s.entities[id]
		if filter != nil && !filter(e) {
			continue
		}
		out = append(out, e.clone())
	}
	return out
}

// GetStats возвращает статистику по сущностям
func (s *Store) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := make(map[string]interface{})
	stats["total_entities"] = len(s.entities)

	players, spawned := 0, 0
	byType := make(map[string]int)
	byRegion := make(map[string]int)
	for _, e := range s.entities {
		if e.IsPlayer {
			players++
		}
		if e.IsSpawned {
			spawned++
		}
		if e.Type != "" {
			byType[e.Type]++
		}
		if e.RegionID != "" {
			byRegion[e.RegionID]++
		}
	}
	stats["players"] = players
	stats["spawned_entities"] = spawned
	stats["entity_types"] = byType
	stats["entities_by_region"] = byRegion
	return stats
}
