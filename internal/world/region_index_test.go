package world

import (
	"fmt"
	"math"
	"testing"

	"github.com/annel0/mmo-worldcore/internal/util"
	"github.com/annel0/mmo-worldcore/internal/vec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// randomOverlappingDefinition создаёт много пересекающихся регионов разной формы
func randomOverlappingDefinition(src util.Source, n int) *Definition {
	def := &Definition{}
	for i := 0; i < n; i++ {
		center := Point{
			util.FloatRange(src, -500, 500),
			util.FloatRange(src, -20, 20),
			util.FloatRange(src, -500, 500),
		}
		rd := RegionDef{ID: fmt.Sprintf("r%d", i), Center: center}
		if src.Next() < 0.5 {
			rd.Radius = radius(util.FloatRange(src, 5, 120))
		} else {
			rd.Bounds = &BoundsDef{Type: BoundsBox, Size: Point{
				util.FloatRange(src, 5, 200),
				util.FloatRange(src, 5, 60),
				util.FloatRange(src, 5, 200),
			}}
		}
		def.Regions = append(def.Regions, rd)
	}
	// Один гигантский регион попадает в список "широких"
	def.Regions = append(def.Regions, RegionDef{ID: "huge", Center: Point{0, 0, 0}, Radius: radius(1e6)})
	return def
}

func TestRegionIndex_MatchesLinearScan(t *testing.T) {
	src := util.NewSeededSource(2024)
	def := randomOverlappingDefinition(src, 80)

	g, err := NewWorldGraph(def, WithIndexCellSize(32))
	require.NoError(t, err)
	require.Equal(t, len(def.Regions), g.index.Len())
	require.Len(t, g.index.wide, 1, "Гигантский регион хранится отдельно")

	for i := 0; i < 5000; i++ {
		p := vec.Vec3Float{
			X: util.FloatRange(src, -700, 700),
			Y: util.FloatRange(src, -60, 60),
			Z: util.FloatRange(src, -700, 700),
		}
		want, wantOK := g.scanRegionAt(p)
		got, gotOK := g.GetRegionAt(p)
		require.Equal(t, wantOK, gotOK, "точка %v", p)
		if wantOK {
			require.Equal(t, want.ID, got.ID, "точка %v", p)
		}
	}
}

func TestRegionIndex_WideRegionOrdering(t *testing.T) {
	def := &Definition{Regions: RegionDefs{
		{ID: "small", Center: Point{0, 0, 0}, Radius: radius(10)},
		{ID: "huge", Center: Point{0, 0, 0}, Radius: radius(1e7)},
		{ID: "later", Center: Point{500, 0, 0}, Radius: radius(10)},
	}}
	g, err := NewWorldGraph(def)
	require.NoError(t, err)

	r, ok := g.GetRegionAt(vec.Vec3Float{X: 1})
	require.True(t, ok)
	assert.Equal(t, "small", r.ID)

	r, ok = g.GetRegionAt(vec.Vec3Float{X: 500})
	require.True(t, ok)
	assert.Equal(t, "huge", r.ID, "Широкий регион зарегистрирован раньше и побеждает")
}

func TestRegionIndex_NonFinitePoint(t *testing.T) {
	g := newTestGraph(t)
	_, ok := g.GetRegionAt(vec.Vec3Float{X: math.NaN()})
	assert.False(t, ok)
	_, ok = g.GetRegionAt(vec.Vec3Float{Z: math.Inf(1)})
	assert.False(t, ok)
}

func TestWorldGraph_WithoutIndex(t *testing.T) {
	g := newTestGraph(t, WithoutIndex())
	assert.Nil(t, g.index)

	r, ok := g.GetRegionAt(vec.Vec3Float{X: 10})
	require.True(t, ok)
	assert.Equal(t, "marsh", r.ID)
}
