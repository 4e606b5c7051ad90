package sim

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/annel0/mmo-worldcore/internal/logging"
	"github.com/annel0/mmo-worldcore/internal/systems"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultTickRate = 20.0 // Гц
	DefaultMaxDelta = 0.25 // Секунды; больший dt обрезается после пауз
)

// Stats - сводка работы планировщика
type Stats struct {
	Ticks        uint64        `json:"ticks"`
	LastTick     time.Duration `json:"last_tick_ns"`
	LastDelta    float64       `json:"last_delta"`
	TickRate     float64       `json:"tick_rate"`
	Systems      []string      `json:"systems"`
	Running      bool          `json:"running"`
	ExecRequests uint64        `json:"exec_requests"`
}

// Scheduler вызывает системы по возрастанию приоритета, по одной за раз.
// Все изменения мира извне тика проходят через Exec, чтобы не пересекаться с системами.
type Scheduler struct {
	world systems.EntityWorld

	mu      sync.Mutex // Сериализует тики и Exec
	systems []systems.System

	tickRate float64
	maxDelta float64

	ticks     atomic.Uint64
	execs     atomic.Uint64
	lastTick  atomic.Int64
	lastDelta atomic.Value // float64
	running   atomic.Bool

	tracer         trace.Tracer
	tickDuration   prometheus.Histogram
	systemDuration *prometheus.HistogramVec
	logger         *logging.Logger
}

type schedulerOptions struct {
	tickRate float64
	maxDelta float64
	reg      prometheus.Registerer
	tracer   trace.Tracer
}

// Option настраивает планировщик
type Option func(*schedulerOptions)

// WithTickRate задаёт частоту тиков в Run
func WithTickRate(hz float64) Option {
	return func(o *schedulerOptions) { o.tickRate = hz }
}

// WithMaxDelta ограничивает dt одного тика в Run
func WithMaxDelta(seconds float64) Option {
	return func(o *schedulerOptions) { o.maxDelta = seconds }
}

// WithRegisterer регистрирует метрики планировщика
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *schedulerOptions) { o.reg = reg }
}

// WithTracer задаёт трассировщик (по умолчанию глобальный otel)
func WithTracer(t trace.Tracer) Option {
	return func(o *schedulerOptions) { o.tracer = t }
}

// NewScheduler создаёт планировщик над хранилищем сущностей
func NewScheduler(world systems.EntityWorld, opts ...Option) *Scheduler {
	o := schedulerOptions{tickRate: DefaultTickRate, maxDelta: DefaultMaxDelta}
	for _, opt := range opts {
		opt(&o)
	}
	if o.tickRate <= 0 {
		o.tickRate = DefaultTickRate
	}
	if o.maxDelta <= 0 {
		o.maxDelta = DefaultMaxDelta
	}
	if o.tracer == nil {
		o.tracer = otel.Tracer("github.com/annel0/mmo-worldcore/internal/sim")
	}

	s := &Scheduler{
		world:    world,
		tickRate: o.tickRate,
		maxDelta: o.maxDelta,
		tracer:   o.tracer,
		tickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "sim",
			Name:      "tick_duration_seconds",
			Help:      "Длительность одного тика симуляции.",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .025, .05, .1},
		}),
		systemDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "sim",
			Name:      "system_duration_seconds",
			Help:      "Длительность Update отдельной системы.",
			Buckets:   []float64{.00001, .0001, .001, .01, .05},
		}, []string{"system"}),
		logger: logging.GetSimLogger(),
	}
	s.lastDelta.Store(0.0)

	if o.reg != nil {
		o.reg.MustRegister(s.tickDuration, s.systemDuration)
	}
	return s
}

// AddSystem добавляет систему. Порядок - по приоритету, при равенстве - по порядку добавления.
func (s *Scheduler) AddSystem(sys systems.System) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.systems = append(s.systems, sys)
	sort.SliceStable(s.systems, func(i, j int) bool {
		return s.systems[i].Priority() < s.systems[j].Priority()
	})
	s.logger.Debug("Система %s добавлена (приоритет %d)", sys.Name(), sys.Priority())
}

// Systems возвращает имена систем в порядке выполнения
func (s *Scheduler) Systems() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.systemNames()
}

func (s *Scheduler) systemNames() []string {
	names := make([]string, len(s.systems))
	for i, sys := range s.systems {
		names[i] = sys.Name()
	}
	return names
}

// Tick выполняет один тик: каждая система получает одинаковый dt
func (s *Scheduler) Tick(ctx context.Context, dt float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tickNo := s.ticks.Add(1)
	ctx, span := s.tracer.Start(ctx, "sim.tick", trace.WithAttributes(
		attribute.Int64("sim.tick", int64(tickNo)),
		attribute.Float64("sim.dt", dt),
	))
	defer span.End()

	start := time.Now()
	for _, sys := range s.systems {
		_, sysSpan := s.tracer.Start(ctx, "sim.system."+sys.Name())
		sysStart := time.Now()
		sys.Update(s.world, dt)
		s.systemDuration.WithLabelValues(sys.Name()).Observe(time.Since(sysStart).Seconds())
		sysSpan.End()
	}
	elapsed := time.Since(start)

	s.tickDuration.Observe(elapsed.Seconds())
	s.lastTick.Store(int64(elapsed))
	s.lastDelta.Store(dt)
}

// Exec выполняет fn между тиками с эксклюзивным доступом к миру
func (s *Scheduler) Exec(fn func(w systems.EntityWorld)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.execs.Add(1)
	fn(s.world)
}

// Run тикает с заданной частотой до отмены контекста.
// dt - реальное время с прошлого тика, не больше maxDelta.
func (s *Scheduler) Run(ctx context.Context) {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Warn("Планировщик уже запущен")
		return
	}
	defer s.running.Store(false)

	interval := time.Duration(float64(time.Second) / s.tickRate)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("⏱️ Симуляция запущена: %.0f Гц, систем: %d", s.tickRate, len(s.Systems()))

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("⏹️ Симуляция остановлена после %d тиков", s.ticks.Load())
			return
		case now := <-ticker.C:
			dt := now.Sub(last).Seconds()
			last = now
			s.Tick(ctx, clampDelta(dt, s.maxDelta))
		}
	}
}

func clampDelta(dt, max float64) float64 {
	if dt < 0 {
		return 0
	}
	if dt > max {
		return max
	}
	return dt
}

// Stats возвращает текущую статистику
func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	names := s.systemNames()
	s.mu.Unlock()

	return Stats{
		Ticks:        s.ticks.Load(),
		LastTick:     time.Duration(s.lastTick.Load()),
		LastDelta:    s.lastDelta.Load().(float64),
		TickRate:     s.tickRate,
		Systems:      names,
		Running:      s.running.Load(),
		ExecRequests: s.execs.Load(),
	}
}
