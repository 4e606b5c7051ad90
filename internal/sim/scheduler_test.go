package sim

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/annel0/mmo-worldcore/internal/systems"
	"github.com/annel0/mmo-worldcore/internal/vec"
	"github.com/annel0/mmo-worldcore/internal/world/entity"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// recordingSystem записывает порядок вызовов в общий журнал
type recordingSystem struct {
	name     string
	priority int
	journal  *[]string
	mu       *sync.Mutex
	deltas   []float64
}

func (r *recordingSystem) Name() string  { return r.name }
func (r *recordingSystem) Priority() int { return r.priority }

func (r *recordingSystem) Update(w systems.EntityWorld, dt float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	*r.journal = append(*r.journal, r.name)
	r.deltas = append(r.deltas, dt)
}

func newRecorders(journal *[]string, mu *sync.Mutex, specs ...any) []*recordingSystem {
	var out []*recordingSystem
	for i := 0; i+1 < len(specs); i += 2 {
		out = append(out, &recordingSystem{
			name:     specs[i].(string),
			priority: specs[i+1].(int),
			journal:  journal,
			mu:       mu,
		})
	}
	return out
}

func TestScheduler_OrdersByPriorityStable(t *testing.T) {
	var journal []string
	var mu sync.Mutex
	s := NewScheduler(entity.NewStore())

	for _, r := range newRecorders(&journal, &mu, "spawn", 30, "region", 10, "late", 30, "connection", 20) {
		s.AddSystem(r)
	}
	assert.Equal(t, []string{"region", "connection", "spawn", "late"}, s.Systems())

	s.Tick(context.Background(), 0.05)
	assert.Equal(t, []string{"region", "connection", "spawn", "late"}, journal)
}

func TestScheduler_SameDeltaForAllSystems(t *testing.T) {
	var journal []string
	var mu sync.Mutex
	s := NewScheduler(entity.NewStore())
	recs := newRecorders(&journal, &mu, "a", 1, "b", 2)
	for _, r := range recs {
		s.AddSystem(r)
	}

	s.Tick(context.Background(), 0.1)
	s.Tick(context.Background(), 0.2)

	for _, r := range recs {
		assert.Equal(t, []float64{0.1, 0.2}, r.deltas)
	}
	stats := s.Stats()
	assert.Equal(t, uint64(2), stats.Ticks)
	assert.Equal(t, 0.2, stats.LastDelta)
	assert.False(t, stats.Running)
}

func TestScheduler_TracesAndMetrics(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := trace.NewTracerProvider(trace.WithSpanProcessor(recorder))
	reg := prometheus.NewRegistry()

	var journal []string
	var mu sync.Mutex
	s := NewScheduler(entity.NewStore(), WithTracer(tp.Tracer("test")), WithRegisterer(reg))
	for _, r := range newRecorders(&journal, &mu, "region", 10, "spawn", 30) {
		s.AddSystem(r)
	}
	s.Tick(context.Background(), 0.05)

	var names []string
	for _, span := range recorder.Ended() {
		names = append(names, span.Name())
	}
	assert.ElementsMatch(t, []string{"sim.tick", "sim.system.region", "sim.system.spawn"}, names)

	count, err := testutil.GatherAndCount(reg, "sim_tick_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestScheduler_ExecSeesWorld(t *testing.T) {
	store := entity.NewStore()
	player := store.Spawn(entity.Data{IsPlayer: true, Transform: &entity.Transform{}})
	s := NewScheduler(store)

	s.Exec(func(w systems.EntityWorld) {
		require.True(t, w.SetPosition(player.ID, vec.Vec3Float{X: 3}))
	})

	pos, _ := player.Position()
	assert.Equal(t, vec.Vec3Float{X: 3}, pos)
	assert.Equal(t, uint64(1), s.Stats().ExecRequests)
}

func TestScheduler_RunStopsOnCancel(t *testing.T) {
	var journal []string
	var mu sync.Mutex
	s := NewScheduler(entity.NewStore(), WithTickRate(200), WithMaxDelta(0.01))
	recs := newRecorders(&journal, &mu, "only", 1)
	s.AddSystem(recs[0])

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return s.Stats().Ticks >= 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run не завершился после отмены контекста")
	}

	mu.Lock()
	defer mu.Unlock()
	for _, dt := range recs[0].deltas {
		assert.LessOrEqual(t, dt, 0.01, "dt обрезается до maxDelta")
	}
}

func TestClampDelta(t *testing.T) {
	assert.Equal(t, 0.0, clampDelta(-1, 0.25))
	assert.Equal(t, 0.1, clampDelta(0.1, 0.25))
	assert.Equal(t, 0.25, clampDelta(3, 0.25))
}
