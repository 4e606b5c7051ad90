package systems

// EventKind - тип события мира
type EventKind string

const (
	EventRegionEntered    EventKind = "region.entered"
	EventRegionDiscovered EventKind = "region.discovered"
	EventPortalTraversed  EventKind = "portal.traversed"
	EventPackSpawned      EventKind = "spawn.pack"
)

// Event - событие, которое системы отдают наружу
type Event struct {
	Kind           EventKind  `json:"kind"`
	RegionID       string     `json:"regionId,omitempty"`
	Biome          string     `json:"biome,omitempty"`
	TargetRegionID string     `json:"targetRegionId,omitempty"`
	EntityID       uint64     `json:"entityId,omitempty"`
	Template       string     `json:"template,omitempty"`
	Count          int        `json:"count,omitempty"`
	Position       [3]float64 `json:"position"`
}

// Sink принимает события. Emit вызывается из потока симуляции
// и не должен блокироваться.
type Sink interface {
	Emit(ev Event)
}

// SinkFunc адаптирует функцию к Sink
type SinkFunc func(ev Event)

func (f SinkFunc) Emit(ev Event) { f(ev) }
