package systems

import (
	"testing"

	"github.com/annel0/mmo-worldcore/internal/state"
	"github.com/annel0/mmo-worldcore/internal/vec"
	"github.com/annel0/mmo-worldcore/internal/world"
	"github.com/annel0/mmo-worldcore/internal/world/entity"
	"github.com/stretchr/testify/require"
)

func radius(r float64) *float64 { return &r }

// buildGraph строит граф из описания и падает при ошибке
func buildGraph(t *testing.T, def *world.Definition) *world.WorldGraph {
	t.Helper()
	g, err := world.NewWorldGraph(def)
	require.NoError(t, err)
	return g
}

// marshDefinition - болото с лягушками, порталом и проходом в лес
func marshDefinition() *world.Definition {
	return &world.Definition{
		Regions: world.RegionDefs{
			{ID: "marsh", Name: "Болото", Center: world.Point{0, 0, 0}, Radius: radius(50), Biome: "swamp",
				SpawnTable: &world.SpawnTableDef{Creatures: []world.SpawnEntryDef{{ID: "frog", Weight: 1}}}},
			{ID: "forest", Name: "Лес", Center: world.Point{200, 0, 0}, Radius: radius(60), Biome: "forest"},
			{ID: "sky", Name: "Небо", Center: world.Point{105, 100, 100}, Radius: radius(10), Biome: "cloud"},
		},
		Connections: []world.ConnectionDef{
			{From: "marsh", To: "forest", Type: world.ConnectionPath,
				FromPosition: world.Point{10, 0, 0}, ToPosition: world.Point{140, 0, 0}},
			{From: "marsh", To: "sky", Type: world.ConnectionPortal,
				FromPosition: world.Point{5, 0, 0}, ToPosition: world.Point{105, 100, 100}},
		},
	}
}

func spawnPlayer(store *entity.Store, pos vec.Vec3Float) *entity.Entity {
	return store.Spawn(entity.Data{IsPlayer: true, Transform: &entity.Transform{Position: pos}})
}

// recordingSink запоминает все события
type recordingSink struct {
	events []Event
}

func (r *recordingSink) Emit(ev Event) { r.events = append(r.events, ev) }

func (r *recordingSink) kinds() []EventKind {
	out := make([]EventKind, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Kind)
	}
	return out
}

func setRegion(st *state.Store, id string) {
	st.Patch(map[string]any{state.KeyCurrentRegion: id})
}
