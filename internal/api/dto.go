package api

import (
	"github.com/annel0/mmo-worldcore/internal/world"
	"github.com/annel0/mmo-worldcore/internal/world/entity"
)

// GenericResponse представляет общий ответ API
type GenericResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// BoundsView - форма региона в ответе
type BoundsView struct {
	Type   world.BoundsKind `json:"type"`
	Radius float64          `json:"radius,omitempty"`
	Size   *[3]float64      `json:"size,omitempty"`
}

// RegionView - регион в ответе API
type RegionView struct {
	ID         string            `json:"id"`
	Name       string            `json:"name,omitempty"`
	Center     [3]float64        `json:"center"`
	Bounds     BoundsView        `json:"bounds"`
	Biome      string            `json:"biome,omitempty"`
	Discovered bool              `json:"discovered"`
	SpawnTable *world.SpawnTable `json:"spawnTable,omitempty"`
}

// ConnectionView - направленное ребро в ответе API
type ConnectionView struct {
	From          string               `json:"from"`
	To            string               `json:"to"`
	Type          world.ConnectionType `json:"type"`
	FromPosition  [3]float64           `json:"fromPosition"`
	ToPosition    [3]float64           `json:"toPosition"`
	Bidirectional bool                 `json:"bidirectional"`
}

// EntityView - сущность в ответе API
type EntityView struct {
	ID        uint64      `json:"id"`
	Type      string      `json:"type,omitempty"`
	RegionID  string      `json:"regionId,omitempty"`
	IsPlayer  bool        `json:"isPlayer,omitempty"`
	IsSpawned bool        `json:"isSpawned,omitempty"`
	Position  *[3]float64 `json:"position,omitempty"`
	Yaw       float64     `json:"yaw,omitempty"`
}

// PositionRequest - тело POST /api/player/position
type PositionRequest struct {
	Position []float64 `json:"position" binding:"required"` // [x, y, z]
}

func regionView(r *world.Region) RegionView {
	v := RegionView{
		ID:         r.ID,
		Name:       r.Name,
		Center:     r.Center.ToArray(),
		Biome:      r.Biome,
		Discovered: r.Discovered(),
	}
	if !r.SpawnTable.IsEmpty() {
		v.SpawnTable = r.SpawnTable
	}

	switch b := r.Bounds.(type) {
	case world.SphereBounds:
		v.Bounds = BoundsView{Type: world.BoundsSphere, Radius: b.Radius}
	case world.BoxBounds:
		size := b.Size.ToArray()
		v.Bounds = BoundsView{Type: world.BoundsBox, Size: &size}
	}
	return v
}

func connectionView(c world.Connection) ConnectionView {
	return ConnectionView{
		From:          c.From,
		To:            c.To,
		Type:          c.Type,
		FromPosition:  c.FromPosition.ToArray(),
		ToPosition:    c.ToPosition.ToArray(),
		Bidirectional: c.Bidirectional,
	}
}

func entityView(e entity.Entity) EntityView {
	v := EntityView{
		ID:        e.ID,
		Type:      e.Type,
		RegionID:  e.RegionID,
		IsPlayer:  e.IsPlayer,
		IsSpawned: e.IsSpawned,
	}
	if e.Transform != nil {
		pos := e.Transform.Position.ToArray()
		v.Position = &pos
		v.Yaw = e.Transform.Rotation.Y
	}
	return v
}
