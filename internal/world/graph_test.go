package world

import (
	"errors"
	"testing"

	"github.com/annel0/mmo-worldcore/internal/vec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func radius(r float64) *float64 { return &r }

// testDefinition - небольшой мир: болото, лес, пещера (коробка) и отдельный остров
func testDefinition() *Definition {
	return &Definition{
		Start: "marsh",
		Regions: RegionDefs{
			{ID: "marsh", Name: "Болото", Center: Point{0, 0, 0}, Radius: radius(50), Biome: "swamp",
				SpawnTable: &SpawnTableDef{Creatures: []SpawnEntryDef{{ID: "frog", Weight: 1}}}},
			{ID: "forest", Name: "Лес", Center: Point{200, 0, 0}, Radius: radius(60), Biome: "forest"},
			{ID: "cave", Name: "Пещера", Center: Point{0, -20, 300},
				Bounds: &BoundsDef{Type: BoundsBox, Size: Point{40, 20, 60}}, Biome: "cave"},
			{ID: "island", Name: "Остров", Center: Point{1000, 0, 1000}, Radius: radius(30), Biome: "beach"},
		},
		Connections: []ConnectionDef{
			{From: "marsh", To: "forest", Type: ConnectionPath,
				FromPosition: Point{50, 0, 0}, ToPosition: Point{140, 0, 0}, Bidirectional: true},
			{From: "forest", To: "cave", Type: ConnectionPath,
				FromPosition: Point{200, 0, 60}, ToPosition: Point{0, -20, 270}},
			{From: "marsh", To: "island", Type: ConnectionPortal,
				FromPosition: Point{5, 0, 0}, ToPosition: Point{1000, 0, 1000}},
		},
	}
}

func newTestGraph(t *testing.T, opts ...GraphOption) *WorldGraph {
	t.Helper()
	g, err := NewWorldGraph(testDefinition(), opts...)
	require.NoError(t, err)
	return g
}

func TestWorldGraph_Construction(t *testing.T) {
	g := newTestGraph(t)

	regions := g.Regions()
	require.Len(t, regions, 4)
	assert.Equal(t, []string{"marsh", "forest", "cave", "island"},
		[]string{regions[0].ID, regions[1].ID, regions[2].ID, regions[3].ID},
		"Порядок регионов должен совпадать с описанием")

	marsh, ok := g.GetRegion("marsh")
	require.True(t, ok)
	assert.Equal(t, "Болото", marsh.Name)
	assert.Equal(t, "swamp", marsh.Biome)
	assert.Equal(t, SphereBounds{Radius: 50}, marsh.Bounds)
	assert.False(t, marsh.Discovered(), "Регион изначально не открыт")
	require.NotNil(t, marsh.SpawnTable)
	assert.Equal(t, []SpawnEntry{{ID: "frog", Weight: 1}}, marsh.SpawnTable.Creatures)

	cave, _ := g.GetRegion("cave")
	assert.Equal(t, BoxBounds{Size: vec.Vec3Float{X: 40, Y: 20, Z: 60}}, cave.Bounds)
	assert.True(t, cave.SpawnTable.IsEmpty())

	_, ok = g.GetRegion("nowhere")
	assert.False(t, ok)
}

func TestWorldGraph_BidirectionalExpandsToTwoEdges(t *testing.T) {
	def := &Definition{
		Regions: RegionDefs{
			{ID: "a", Center: Point{0, 0, 0}, Radius: radius(10)},
			{ID: "b", Center: Point{100, 0, 0}, Radius: radius(10)},
		},
		Connections: []ConnectionDef{
			{From: "a", To: "b", Type: ConnectionPortal,
				FromPosition: Point{1, 2, 3}, ToPosition: Point{4, 5, 6}, Bidirectional: true},
		},
	}
	g, err := NewWorldGraph(def)
	require.NoError(t, err)

	edges := g.Connections()
	require.Len(t, edges, 2, "Двунаправленное соединение даёт ровно два ребра")

	assert.Equal(t, "a", edges[0].From)
	assert.Equal(t, "b", edges[0].To)
	assert.Equal(t, vec.Vec3Float{X: 1, Y: 2, Z: 3}, edges[0].FromPosition)
	assert.Equal(t, vec.Vec3Float{X: 4, Y: 5, Z: 6}, edges[0].ToPosition)

	assert.Equal(t, "b", edges[1].From)
	assert.Equal(t, "a", edges[1].To)
	assert.Equal(t, ConnectionPortal, edges[1].Type, "Зеркальное ребро сохраняет тип")
	assert.Equal(t, vec.Vec3Float{X: 4, Y: 5, Z: 6}, edges[1].FromPosition, "Позиции меняются местами")
	assert.Equal(t, vec.Vec3Float{X: 1, Y: 2, Z: 3}, edges[1].ToPosition)
}

func TestWorldGraph_GetRegionAt(t *testing.T) {
	g := newTestGraph(t)

	tests := []struct {
		name  string
		point vec.Vec3Float
		want  string
	}{
		{"центр болота", vec.Vec3Float{X: 0, Y: 0, Z: 0}, "marsh"},
		{"внутри болота", vec.Vec3Float{X: 10, Y: 0, Z: 0}, "marsh"},
		{"граница шара включена", vec.Vec3Float{X: 50, Y: 0, Z: 0}, "marsh"},
		{"лес", vec.Vec3Float{X: 220, Y: 10, Z: -5}, "forest"},
		{"пещера", vec.Vec3Float{X: 19, Y: -11, Z: 329}, "cave"},
		{"граница коробки включена", vec.Vec3Float{X: 20, Y: -10, Z: 330}, "cave"},
		{"остров", vec.Vec3Float{X: 1010, Y: 0, Z: 990}, "island"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, ok := g.GetRegionAt(tt.point)
			require.True(t, ok)
			assert.Equal(t, tt.want, r.ID)
		})
	}

	outside := []vec.Vec3Float{
		{X: 100, Y: 0, Z: 0},
		{X: 50.0001, Y: 0, Z: 0},
		{X: 21, Y: -20, Z: 300},
		{X: 0, Y: 0, Z: -500},
	}
	for _, p := range outside {
		_, ok := g.GetRegionAt(p)
		assert.False(t, ok, "Точка %v вне всех регионов", p)
	}
}

func TestWorldGraph_OverlapFirstRegisteredWins(t *testing.T) {
	def := &Definition{
		Regions: RegionDefs{
			{ID: "outer", Center: Point{0, 0, 0}, Radius: radius(100)},
			{ID: "inner", Center: Point{0, 0, 0}, Radius: radius(10)},
		},
	}
	g, err := NewWorldGraph(def)
	require.NoError(t, err)

	r, ok := g.GetRegionAt(vec.Vec3Float{X: 1, Y: 0, Z: 1})
	require.True(t, ok)
	assert.Equal(t, "outer", r.ID, "При пересечении побеждает зарегистрированный первым")
}

func TestWorldGraph_FindPath(t *testing.T) {
	g := newTestGraph(t)

	path, ok := g.FindPath("marsh", "marsh")
	require.True(t, ok)
	assert.Equal(t, []string{"marsh"}, path)

	path, ok = g.FindPath("marsh", "cave")
	require.True(t, ok)
	assert.Equal(t, []string{"marsh", "forest", "cave"}, path)

	path, ok = g.FindPath("forest", "marsh")
	require.True(t, ok, "Зеркальное ребро делает путь обратимым")
	assert.Equal(t, []string{"forest", "marsh"}, path)

	_, ok = g.FindPath("cave", "forest")
	assert.False(t, ok, "Из пещеры рёбер нет")

	_, ok = g.FindPath("island", "marsh")
	assert.False(t, ok, "Портал односторонний")

	_, ok = g.FindPath("marsh", "nowhere")
	assert.False(t, ok)
	_, ok = g.FindPath("nowhere", "nowhere")
	assert.False(t, ok, "Неизвестный id не даёт пути даже к самому себе")
}

func TestWorldGraph_FindPathSingleDirectedEdge(t *testing.T) {
	def := &Definition{
		Regions: RegionDefs{
			{ID: "A", Center: Point{0, 0, 0}, Radius: radius(1)},
			{ID: "B", Center: Point{10, 0, 0}, Radius: radius(1)},
		},
		Connections: []ConnectionDef{{From: "A", To: "B", Type: ConnectionPath}},
	}
	g, err := NewWorldGraph(def)
	require.NoError(t, err)

	path, ok := g.FindPath("A", "B")
	require.True(t, ok)
	assert.Equal(t, []string{"A", "B"}, path)

	_, ok = g.FindPath("B", "A")
	assert.False(t, ok)
}

func TestWorldGraph_FindPathShortestByHops(t *testing.T) {
	def := &Definition{
		Regions: RegionDefs{
			{ID: "a", Center: Point{0, 0, 0}, Radius: radius(1)},
			{ID: "b", Center: Point{10, 0, 0}, Radius: radius(1)},
			{ID: "c", Center: Point{20, 0, 0}, Radius: radius(1)},
			{ID: "d", Center: Point{30, 0, 0}, Radius: radius(1)},
		},
		Connections: []ConnectionDef{
			{From: "a", To: "b", Type: ConnectionPath},
			{From: "b", To: "c", Type: ConnectionPath},
			{From: "c", To: "d", Type: ConnectionPath},
			{From: "a", To: "d", Type: ConnectionPortal},
		},
	}
	g, err := NewWorldGraph(def)
	require.NoError(t, err)

	path, ok := g.FindPath("a", "d")
	require.True(t, ok)
	assert.Equal(t, []string{"a", "d"}, path)
}

func TestWorldGraph_MarkDiscovered(t *testing.T) {
	g := newTestGraph(t)

	assert.Equal(t, 0, g.DiscoveredCount())
	assert.True(t, g.MarkDiscovered("forest"), "Первое открытие")
	assert.False(t, g.MarkDiscovered("forest"), "Повторное открытие ничего не меняет")
	assert.False(t, g.MarkDiscovered("nowhere"))

	forest, _ := g.GetRegion("forest")
	assert.True(t, forest.Discovered())
	assert.Equal(t, 1, g.DiscoveredCount())
}

func TestWorldGraph_ConnectionsFrom(t *testing.T) {
	g := newTestGraph(t)

	from := g.ConnectionsFrom("marsh")
	require.Len(t, from, 2)
	assert.Equal(t, "forest", from[0].To)
	assert.Equal(t, "island", from[1].To)
	assert.True(t, from[1].IsPortal())

	assert.Empty(t, g.ConnectionsFrom("cave"))
}

func TestWorldGraph_StartRegion(t *testing.T) {
	g := newTestGraph(t)
	r, ok := g.StartRegion()
	require.True(t, ok)
	assert.Equal(t, "marsh", r.ID)

	def := testDefinition()
	def.Start = ""
	g2, err := NewWorldGraph(def)
	require.NoError(t, err)
	r, ok = g2.StartRegion()
	require.True(t, ok)
	assert.Equal(t, "marsh", r.ID, "Без start берётся первый регион")
}

func TestWorldGraph_ConstructionErrors(t *testing.T) {
	dup := &Definition{Regions: RegionDefs{
		{ID: "a", Center: Point{}, Radius: radius(1)},
		{ID: "a", Center: Point{}, Radius: radius(2)},
	}}
	_, err := NewWorldGraph(dup)
	assert.True(t, errors.Is(err, ErrDuplicateRegion))

	noBounds := &Definition{Regions: RegionDefs{{ID: "a", Center: Point{}}}}
	_, err = NewWorldGraph(noBounds)
	assert.True(t, errors.Is(err, ErrMissingBounds))
}

func TestWorldGraph_DanglingConnections(t *testing.T) {
	def := testDefinition()
	def.Connections = append(def.Connections, ConnectionDef{
		From: "marsh", To: "ghost", Type: ConnectionPortal,
		FromPosition: Point{0, 0, 5}, ToPosition: Point{9, 9, 9},
	})

	// Мягкий режим: граф строится, замечание доступно через Validate
	g, err := NewWorldGraph(def)
	require.NoError(t, err)
	issues := g.Validate()
	require.Len(t, issues, 1)
	assert.True(t, errors.Is(issues[0], ErrDanglingConnection))
	assert.Contains(t, issues[0].Error(), "ghost")

	_, ok := g.FindPath("marsh", "ghost")
	assert.False(t, ok, "Неизвестный регион недостижим")

	// Строгий режим: ошибка при построении
	_, err = NewWorldGraph(def, WithStrictConnections())
	assert.True(t, errors.Is(err, ErrDanglingConnection))

	clean := newTestGraph(t, WithStrictConnections())
	assert.Empty(t, clean.Validate())
}
