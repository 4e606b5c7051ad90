package systems

import (
	"math"

	"github.com/annel0/mmo-worldcore/internal/logging"
	"github.com/annel0/mmo-worldcore/internal/util"
	"github.com/annel0/mmo-worldcore/internal/vec"
	"github.com/annel0/mmo-worldcore/internal/world"
	"github.com/annel0/mmo-worldcore/internal/world/entity"
)

// DefaultCreatureBias - вероятность выбрать существ, когда в таблице есть и существа, и ресурсы
const DefaultCreatureBias = 0.7

// SpawnConfig - параметры процедурного спавна
type SpawnConfig struct {
	MaxEntitiesPerRegion int     `yaml:"max_entities_per_region"`
	SpawnInterval        float64 `yaml:"spawn_interval_seconds"` // Секунды между проходами
	CreatureBias         float64 `yaml:"creature_bias"`          // (0, 1]; иначе DefaultCreatureBias
}

// DefaultSpawnConfig возвращает параметры по умолчанию
func DefaultSpawnConfig() SpawnConfig {
	return SpawnConfig{
		MaxEntitiesPerRegion: 20,
		SpawnInterval:        5,
		CreatureBias:         DefaultCreatureBias,
	}
}

// SpawnPhase - состояние таймера спавна
type SpawnPhase int

const (
	SpawnIdle   SpawnPhase = iota // Накопление времени
	SpawnFiring                   // Идёт проход по регионам
)

func (p SpawnPhase) String() string {
	switch p {
	case SpawnIdle:
		return "idle"
	case SpawnFiring:
		return "firing"
	default:
		return "unknown"
	}
}

// SpawnTimer - единый на всю систему накопитель времени между проходами
type SpawnTimer struct {
	Elapsed float64
	Phase   SpawnPhase
	Fired   uint64 // Число выполненных проходов
}

// AdvanceSpawnTimer добавляет dt и переводит таймер в Firing, когда накоплен интервал.
// При входе в Firing накопитель обнуляется; пропущенные интервалы не догоняются.
func AdvanceSpawnTimer(t *SpawnTimer, dt, interval float64) bool {
	t.Elapsed += dt
	if t.Elapsed < interval {
		return false
	}
	t.Elapsed = 0
	t.Phase = SpawnFiring
	t.Fired++
	return true
}

// regionLister - часть графа мира, нужная SpawnSystem
type regionLister interface {
	Regions() []*world.Region
}

// SpawnSystem периодически заселяет регионы по их таблицам спавна
type SpawnSystem struct {
	// Timer - состояние таймера; принадлежит системе и продвигается в Update
	Timer SpawnTimer

	graph  regionLister
	cfg    SpawnConfig
	opts   options
	logger *logging.Logger
}

// NewSpawnSystem создаёт систему спавна
func NewSpawnSystem(graph regionLister, cfg SpawnConfig, opts ...Option) *SpawnSystem {
	if cfg.CreatureBias <= 0 || cfg.CreatureBias > 1 {
		cfg.CreatureBias = DefaultCreatureBias
	}
	return &SpawnSystem{
		graph:  graph,
		cfg:    cfg,
		opts:   buildOptions(PrioritySpawn, opts),
		logger: logging.GetSimLogger(),
	}
}

func (ss *SpawnSystem) Name() string  { return "spawn" }
func (ss *SpawnSystem) Priority() int { return ss.opts.priority }

// Config возвращает действующие параметры спавна
func (ss *SpawnSystem) Config() SpawnConfig { return ss.cfg }

// Update продвигает таймер и, если интервал накоплен, выполняет ровно один проход
func (ss *SpawnSystem) Update(w EntityWorld, dt float64) {
	if !AdvanceSpawnTimer(&ss.Timer, dt, ss.cfg.SpawnInterval) {
		return
	}
	ss.firePass(w)
	ss.Timer.Phase = SpawnIdle
}

func (ss *SpawnSystem) firePass(w EntityWorld) {
	ss.opts.metrics.spawnPass()

	total := 0
	for _, region := range ss.graph.Regions() {
		total += ss.populate(w, region)
	}
	if total > 0 {
		ss.logger.Debug("Проход спавна #%d: создано %d сущностей", ss.Timer.Fired, total)
	}
}

// populate выполняет шаги спавна для одного региона и возвращает число созданных сущностей
func (ss *SpawnSystem) populate(w EntityWorld, region *world.Region) int {
	table := region.SpawnTable
	if table.IsEmpty() {
		return 0
	}

	count := countInRegion(w, region.ID)
	if count >= ss.cfg.MaxEntitiesPerRegion {
		ss.opts.metrics.regionSkipped(region.ID, SkipSaturated)
		return 0
	}

	entries := ss.chooseCategory(table)
	entry, ok := PickSpawnEntry(entries, ss.opts.src)
	if !ok {
		ss.opts.metrics.regionSkipped(region.ID, SkipNoEntry)
		return 0
	}

	size := packSize(entry, ss.opts.src)
	if free := ss.cfg.MaxEntitiesPerRegion - count; size > free {
		size = free
	}

	base := region.Bounds.Sample(region.Center, ss.opts.src)
	for i := 0; i < size; i++ {
		pos := base.Add(vec.Vec3Float{
			X: util.FloatRange(ss.opts.src, -1, 1),
			Z: util.FloatRange(ss.opts.src, -1, 1),
		})
		yaw := ss.opts.src.Next() * 2 * math.Pi

		w.Spawn(entity.Data{
			RegionID:  region.ID,
			IsSpawned: true,
			Type:      entry.ID,
			Transform: &entity.Transform{
				Position: pos,
				Rotation: vec.Vec3Float{Y: yaw},
			},
		})
	}

	if size > 0 {
		ss.opts.metrics.entitiesSpawned(region.ID, entry.ID, size)
		ss.opts.emit(Event{
			Kind:     EventPackSpawned,
			RegionID: region.ID,
			Biome:    region.Biome,
			Template: entry.ID,
			Count:    size,
			Position: base.ToArray(),
		})
	}
	return size
}

// chooseCategory выбирает список: при обоих непустых - монетка с перевесом к существам
func (ss *SpawnSystem) chooseCategory(table *world.SpawnTable) []world.SpawnEntry {
	hasCreatures := len(table.Creatures) > 0
	hasResources := len(table.Resources) > 0

	switch {
	case hasCreatures && hasResources:
		if ss.opts.src.Next() < ss.cfg.CreatureBias {
			return table.Creatures
		}
		return table.Resources
	case hasCreatures:
		return table.Creatures
	default:
		return table.Resources
	}
}

// packSize возвращает размер стаи: равномерно в [min, max] или 1 без диапазона
func packSize(entry world.SpawnEntry, src util.Source) int {
	if entry.PackSize == nil {
		return 1
	}
	return util.IntRange(src, entry.PackSize.Min, entry.PackSize.Max)
}

// countInRegion считает сущности с заданным regionId линейным проходом
func countInRegion(w EntityWorld, regionID string) int {
	n := 0
	for _, e := range w.Entities() {
		if e.RegionID == regionID {
			n++
		}
	}
	return n
}
