package systems

import (
	"math"
	"testing"

	"github.com/annel0/mmo-worldcore/internal/util"
	"github.com/annel0/mmo-worldcore/internal/world"
	"github.com/annel0/mmo-worldcore/internal/world/entity"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func spawnedOfType(store *entity.Store, typ string) []*entity.Entity {
	var out []*entity.Entity
	for _, e := range store.Entities() {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

func TestSpawnSystem_FrogAppearsInMarsh(t *testing.T) {
	g := buildGraph(t, marshDefinition())
	store := entity.NewStore()

	// Все значения 0.5: выбор frog, r=25, θ=π, смещение 0, поворот π
	src := util.NewSequenceSource(0.5)
	ss := NewSpawnSystem(g, SpawnConfig{MaxEntitiesPerRegion: 20, SpawnInterval: 0}, WithSource(src))
	ss.Update(store, 0.016)

	frogs := spawnedOfType(store, "frog")
	require.Len(t, frogs, 1)
	frog := frogs[0]
	assert.Equal(t, "marsh", frog.RegionID)
	assert.True(t, frog.IsSpawned)
	assert.False(t, frog.IsPlayer)

	pos, ok := frog.Position()
	require.True(t, ok)
	assert.InDelta(t, 0, pos.X, 1e-9)
	assert.InDelta(t, 0, pos.Y, 1e-9)
	assert.InDelta(t, -25, pos.Z, 1e-9)
	assert.InDelta(t, math.Pi, frog.Transform.Rotation.Y, 1e-9)

	marsh, _ := g.GetRegion("marsh")
	// Сэмпл в радиусе плюс смещение до 1 по X и Z
	assert.LessOrEqual(t, pos.DistanceTo(marsh.Center), 50+math.Sqrt2)
	assert.Equal(t, 6, src.Drawn(), "выбор, два числа на точку, два на смещение, одно на поворот")
}

func TestSpawnSystem_NeverExceedsCapacity(t *testing.T) {
	def := &world.Definition{
		Regions: world.RegionDefs{
			{ID: "den", Center: world.Point{0, 0, 0}, Radius: radius(30),
				SpawnTable: &world.SpawnTableDef{Creatures: []world.SpawnEntryDef{
					{ID: "wolf", Weight: 1, PackSize: &[2]int{3, 5}},
				}}},
		},
	}
	g := buildGraph(t, def)
	store := entity.NewStore()

	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	ss := NewSpawnSystem(g, SpawnConfig{MaxEntitiesPerRegion: 4, SpawnInterval: 0},
		WithSource(util.NewSeededSource(42)), WithMetrics(metrics))

	for i := 0; i < 50; i++ {
		ss.Update(store, 0.016)
		assert.LessOrEqual(t, store.CountInRegion("den"), 4, "Лимит региона превышен на тике %d", i)
	}
	assert.Equal(t, 4, store.CountInRegion("den"))
	assert.Equal(t, 50.0, testutil.ToFloat64(metrics.spawnPasses))
	assert.Equal(t, 4.0, testutil.ToFloat64(metrics.spawned.WithLabelValues("den", "wolf")))
	// Первый проход создаёт 3..4 волка, второй при необходимости добирает до лимита
	assert.GreaterOrEqual(t, testutil.ToFloat64(metrics.spawnSkipped.WithLabelValues("den", SkipSaturated)), 48.0)
}

func TestSpawnSystem_CountsOnlyOwnRegion(t *testing.T) {
	g := buildGraph(t, marshDefinition())
	store := entity.NewStore()
	for i := 0; i < 3; i++ {
		store.Spawn(entity.Data{RegionID: "forest", Type: "deer", Transform: &entity.Transform{}})
	}
	store.Spawn(entity.Data{RegionID: "marsh", Type: "stone", Transform: &entity.Transform{}})

	ss := NewSpawnSystem(g, SpawnConfig{MaxEntitiesPerRegion: 2, SpawnInterval: 0},
		WithSource(util.NewSeededSource(1)))
	ss.Update(store, 0.016)
	ss.Update(store, 0.016)

	assert.Equal(t, 2, store.CountInRegion("marsh"), "Учитываются все сущности региона, не только созданные спавном")
	assert.Equal(t, 3, store.CountInRegion("forest"))
}

func TestSpawnSystem_TimerAccumulatesWithoutCatchUp(t *testing.T) {
	g := buildGraph(t, marshDefinition())
	store := entity.NewStore()
	ss := NewSpawnSystem(g, SpawnConfig{MaxEntitiesPerRegion: 100, SpawnInterval: 5},
		WithSource(util.NewSeededSource(7)))

	ss.Update(store, 2)
	ss.Update(store, 2)
	assert.Empty(t, store.Entities())
	assert.InDelta(t, 4, ss.Timer.Elapsed, 1e-9)
	assert.Equal(t, SpawnIdle, ss.Timer.Phase)

	// Огромный dt даёт ровно один проход
	ss.Update(store, 100)
	assert.Len(t, store.Entities(), 1)
	assert.Equal(t, uint64(1), ss.Timer.Fired)
	assert.Equal(t, 0.0, ss.Timer.Elapsed)
	assert.Equal(t, SpawnIdle, ss.Timer.Phase)
}

func TestAdvanceSpawnTimer(t *testing.T) {
	var timer SpawnTimer

	assert.False(t, AdvanceSpawnTimer(&timer, 1, 3))
	assert.False(t, AdvanceSpawnTimer(&timer, 1, 3))
	assert.True(t, AdvanceSpawnTimer(&timer, 1, 3), "Граница интервала включена")
	assert.Equal(t, SpawnFiring, timer.Phase)
	assert.Equal(t, 0.0, timer.Elapsed)
	assert.Equal(t, "firing", timer.Phase.String())

	// Нулевой интервал срабатывает каждый тик
	var zero SpawnTimer
	for i := 0; i < 3; i++ {
		assert.True(t, AdvanceSpawnTimer(&zero, 0.016, 0))
	}
	assert.Equal(t, uint64(3), zero.Fired)
}

func mixedDefinition(pack *[2]int) *world.Definition {
	return &world.Definition{
		Regions: world.RegionDefs{
			{ID: "cave", Center: world.Point{0, 0, 0},
				Bounds: &world.BoundsDef{Type: world.BoundsBox, Size: world.Point{10, 4, 10}},
				SpawnTable: &world.SpawnTableDef{
					Creatures: []world.SpawnEntryDef{{ID: "bat", Weight: 1, PackSize: pack}},
					Resources: []world.SpawnEntryDef{{ID: "ore", Weight: 1}},
				}},
		},
	}
}

func TestSpawnSystem_CategoryBias(t *testing.T) {
	g := buildGraph(t, mixedDefinition(nil))

	// Монетка 0.69 < 0.7 - существа
	store := entity.NewStore()
	NewSpawnSystem(g, SpawnConfig{MaxEntitiesPerRegion: 10},
		WithSource(util.NewSequenceSource(0.69, 0.5))).Update(store, 0)
	assert.Len(t, spawnedOfType(store, "bat"), 1)

	// Монетка 0.7 - ресурсы
	store = entity.NewStore()
	NewSpawnSystem(g, SpawnConfig{MaxEntitiesPerRegion: 10},
		WithSource(util.NewSequenceSource(0.7, 0.5))).Update(store, 0)
	assert.Len(t, spawnedOfType(store, "ore"), 1)
}

func TestSpawnSystem_CreatureBiasNormalized(t *testing.T) {
	g := buildGraph(t, mixedDefinition(nil))
	for _, bias := range []float64{0, -1, 1.5} {
		ss := NewSpawnSystem(g, SpawnConfig{CreatureBias: bias})
		assert.Equal(t, DefaultCreatureBias, ss.Config().CreatureBias, "bias %v", bias)
	}
	assert.Equal(t, 1.0, NewSpawnSystem(g, SpawnConfig{CreatureBias: 1}).Config().CreatureBias)
}

func TestSpawnSystem_PackSizeAndSharedBase(t *testing.T) {
	g := buildGraph(t, mixedDefinition(&[2]int{2, 4}))
	store := entity.NewStore()
	sink := &recordingSink{}

	// монетка, выбор, размер стаи 0.99 -> 4, три числа на точку в коробке, затем по три на особь
	src := util.NewSequenceSource(0.1, 0.5, 0.99, 0.5, 0.5, 0.5, 0.5)
	NewSpawnSystem(g, SpawnConfig{MaxEntitiesPerRegion: 10}, WithSource(src), WithEventSink(sink)).
		Update(store, 0)

	bats := spawnedOfType(store, "bat")
	require.Len(t, bats, 4)
	for _, bat := range bats {
		pos, _ := bat.Position()
		assert.InDelta(t, 0, pos.X, 1.0+1e-9)
		assert.InDelta(t, 0, pos.Z, 1.0+1e-9)
		assert.Equal(t, 0.0, pos.Y, "Смещение особей только в плоскости XZ")
	}

	require.Len(t, sink.events, 1)
	ev := sink.events[0]
	assert.Equal(t, EventPackSpawned, ev.Kind)
	assert.Equal(t, "cave", ev.RegionID)
	assert.Equal(t, "bat", ev.Template)
	assert.Equal(t, 4, ev.Count)
}

func TestSpawnSystem_PackClampedToFreeSlots(t *testing.T) {
	g := buildGraph(t, mixedDefinition(&[2]int{5, 5}))
	store := entity.NewStore()
	store.Spawn(entity.Data{RegionID: "cave", Type: "bat", Transform: &entity.Transform{}})

	NewSpawnSystem(g, SpawnConfig{MaxEntitiesPerRegion: 3, CreatureBias: 1},
		WithSource(util.NewSeededSource(3))).Update(store, 0)

	assert.Equal(t, 3, store.CountInRegion("cave"))
}

func TestSpawnSystem_SkipsRegionsWithoutTable(t *testing.T) {
	def := &world.Definition{
		Regions: world.RegionDefs{
			{ID: "void", Center: world.Point{0, 0, 0}, Radius: radius(10)},
			{ID: "empty", Center: world.Point{50, 0, 0}, Radius: radius(10), SpawnTable: &world.SpawnTableDef{}},
		},
	}
	g := buildGraph(t, def)
	store := entity.NewStore()
	src := util.NewSequenceSource(0.5)

	ss := NewSpawnSystem(g, SpawnConfig{MaxEntitiesPerRegion: 10}, WithSource(src))
	ss.Update(store, 0)

	assert.Empty(t, store.Entities())
	assert.Equal(t, 0, src.Drawn(), "Пустые таблицы не тратят случайные числа")
	assert.Equal(t, PrioritySpawn, ss.Priority())
	assert.Equal(t, "spawn", ss.Name())
}
