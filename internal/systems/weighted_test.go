package systems

import (
	"testing"

	"github.com/annel0/mmo-worldcore/internal/util"
	"github.com/annel0/mmo-worldcore/internal/world"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPickWeighted_UniformWeights(t *testing.T) {
	entries := []world.SpawnEntry{
		{ID: "a", Weight: 1},
		{ID: "b", Weight: 1},
		{ID: "c", Weight: 1},
	}
	src := util.NewSeededSource(2024)

	const n = 30000
	counts := map[string]int{}
	for i := 0; i < n; i++ {
		e, ok := PickSpawnEntry(entries, src)
		require.True(t, ok)
		counts[e.ID]++
	}

	for _, id := range []string{"a", "b", "c"} {
		assert.InDelta(t, 1.0/3, float64(counts[id])/n, 0.02, "Доля %s", id)
	}
}

func TestPickWeighted_Roulette(t *testing.T) {
	entries := []world.SpawnEntry{
		{ID: "rare", Weight: 1},
		{ID: "common", Weight: 3},
	}

	cases := []struct {
		draw float64
		want string
	}{
		{0, "rare"},
		{0.24, "rare"},
		{0.25, "common"},
		{0.99, "common"},
	}
	for _, tc := range cases {
		e, ok := PickSpawnEntry(entries, util.NewSequenceSource(tc.draw))
		require.True(t, ok)
		assert.Equal(t, tc.want, e.ID, "draw %v", tc.draw)
	}
}

func TestPickWeighted_FallbackAndEmpty(t *testing.T) {
	zero := []world.SpawnEntry{{ID: "first"}, {ID: "second"}}
	e, ok := PickSpawnEntry(zero, util.NewSequenceSource(0.9))
	require.True(t, ok)
	assert.Equal(t, "first", e.ID, "При нулевых весах берётся первый элемент")

	_, ok = PickSpawnEntry(nil, util.NewSequenceSource(0.5))
	assert.False(t, ok)

	n, ok := PickWeighted([]int{10, 20}, func(v int) float64 { return float64(v) }, util.NewSequenceSource(0.5))
	require.True(t, ok)
	assert.Equal(t, 20, n)
}
