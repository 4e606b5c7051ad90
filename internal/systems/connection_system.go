package systems

import (
	"github.com/annel0/mmo-worldcore/internal/logging"
	"github.com/annel0/mmo-worldcore/internal/world"
)

// DefaultActivationRadius - расстояние до точки входа портала, на котором он срабатывает
const DefaultActivationRadius = 1.0

// portalSource - часть графа мира, нужная ConnectionSystem
type portalSource interface {
	ConnectionsFrom(id string) []world.Connection
}

// ConnectionSystem переносит игрока через порталы текущего региона.
// Соединения типа path не переносят никогда: их игрок проходит пешком,
// а RegionSystem замечает смену региона на следующем тике.
type ConnectionSystem struct {
	graph  portalSource
	state  StateStore
	opts   options
	logger *logging.Logger
}

// NewConnectionSystem создаёт систему порталов
func NewConnectionSystem(graph portalSource, st StateStore, opts ...Option) *ConnectionSystem {
	return &ConnectionSystem{
		graph:  graph,
		state:  st,
		opts:   buildOptions(PriorityConnection, opts),
		logger: logging.GetSimLogger(),
	}
}

func (cs *ConnectionSystem) Name() string  { return "connection" }
func (cs *ConnectionSystem) Priority() int { return cs.opts.priority }

// ActivationRadius возвращает радиус срабатывания порталов
func (cs *ConnectionSystem) ActivationRadius() float64 { return cs.opts.activationRadius }

// Update выполняет один тик. За тик возможен не более чем один перенос;
// при нескольких порталах в радиусе срабатывает первый по порядку.
func (cs *ConnectionSystem) Update(w EntityWorld, dt float64) {
	current, ok := currentRegion(cs.state)
	if !ok {
		return
	}

	var portals []world.Connection
	for _, c := range cs.graph.ConnectionsFrom(current) {
		if c.IsPortal() {
			portals = append(portals, c)
		}
	}
	if len(portals) == 0 {
		return
	}

	player, ok := findPlayer(w)
	if !ok {
		return
	}
	pos, ok := player.Position()
	if !ok {
		return
	}

	for _, portal := range portals {
		if pos.DistanceTo(portal.FromPosition) > cs.opts.activationRadius {
			continue
		}

		// Позиция перезаписывается точкой выхода целиком, без смещения
		if !w.SetPosition(player.ID, portal.ToPosition) {
			return
		}

		cs.logger.Info("🌀 Игрок %d прошёл портал %s → %s", player.ID, portal.From, portal.To)
		cs.opts.metrics.teleported(portal.From, portal.To)
		cs.opts.emit(Event{
			Kind:           EventPortalTraversed,
			RegionID:       portal.From,
			TargetRegionID: portal.To,
			EntityID:       player.ID,
			Position:       portal.ToPosition.ToArray(),
		})
		return
	}
}
