package systems

import (
	"github.com/annel0/mmo-worldcore/internal/logging"
	"github.com/annel0/mmo-worldcore/internal/state"
	"github.com/annel0/mmo-worldcore/internal/vec"
	"github.com/annel0/mmo-worldcore/internal/world"
)

// regionLocator - часть графа мира, нужная RegionSystem
type regionLocator interface {
	GetRegionAt(p vec.Vec3Float) (*world.Region, bool)
	MarkDiscovered(id string) bool
}

// RegionSystem каждый тик определяет регион игрока и публикует его в состояние.
// Если игрок вне всех регионов, состояние не трогается: сохраняется последний известный регион.
type RegionSystem struct {
	graph  regionLocator
	state  StateStore
	opts   options
	logger *logging.Logger
}

// NewRegionSystem создаёт систему отслеживания региона
func NewRegionSystem(graph regionLocator, st StateStore, opts ...Option) *RegionSystem {
	return &RegionSystem{
		graph:  graph,
		state:  st,
		opts:   buildOptions(PriorityRegion, opts),
		logger: logging.GetSimLogger(),
	}
}

func (rs *RegionSystem) Name() string  { return "region" }
func (rs *RegionSystem) Priority() int { return rs.opts.priority }

// Update выполняет один тик
func (rs *RegionSystem) Update(w EntityWorld, dt float64) {
	player, ok := findPlayer(w)
	if !ok {
		return
	}
	pos, ok := player.Position()
	if !ok {
		return
	}

	region, ok := rs.graph.GetRegionAt(pos)
	if !ok {
		return
	}

	previous, _ := currentRegion(rs.state)
	rs.state.Patch(map[string]any{
		state.KeyCurrentRegion: region.ID,
		state.KeyCurrentBiome:  region.Biome,
	})

	if previous != region.ID {
		rs.logger.Debug("Игрок %d вошёл в регион %s (%s)", player.ID, region.ID, region.Biome)
		rs.opts.metrics.regionChanged(region.ID)
		rs.opts.emit(Event{
			Kind:     EventRegionEntered,
			RegionID: region.ID,
			Biome:    region.Biome,
			EntityID: player.ID,
			Position: pos.ToArray(),
		})
	}

	if rs.graph.MarkDiscovered(region.ID) {
		rs.logger.Info("🗺️ Открыт регион %s (%s)", region.ID, region.Name)
		rs.opts.metrics.regionDiscovered()
		rs.opts.emit(Event{
			Kind:     EventRegionDiscovered,
			RegionID: region.ID,
			Biome:    region.Biome,
			EntityID: player.ID,
			Position: pos.ToArray(),
		})
	}
}
