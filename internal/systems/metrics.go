package systems

import "github.com/prometheus/client_golang/prometheus"

// Metrics - Prometheus-метрики систем мира.
// Все методы допускают nil-получатель, чтобы системы работали без метрик.
type Metrics struct {
	regionEntered *prometheus.CounterVec
	discovered    prometheus.Counter
	teleports     *prometheus.CounterVec
	spawnPasses   prometheus.Counter
	spawned       *prometheus.CounterVec
	spawnSkipped  *prometheus.CounterVec
}

// Причины пропуска региона при спавне
const (
	SkipSaturated = "saturated"
	SkipNoEntry   = "no_entry"
)

// NewMetrics создаёт метрики и регистрирует их в reg (nil - без регистрации)
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		regionEntered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "world",
			Name:      "region_entered_total",
			Help:      "Переходы игрока в регион.",
		}, []string{"region"}),
		discovered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "world",
			Name:      "regions_discovered_total",
			Help:      "Впервые открытые регионы.",
		}),
		teleports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "world",
			Name:      "portal_teleports_total",
			Help:      "Перемещения игрока через порталы.",
		}, []string{"from", "to"}),
		spawnPasses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "world",
			Name:      "spawn_passes_total",
			Help:      "Проходы системы спавна по регионам.",
		}),
		spawned: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "world",
			Name:      "spawned_entities_total",
			Help:      "Созданные процедурным спавном сущности.",
		}, []string{"region", "type"}),
		spawnSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "world",
			Name:      "spawn_skipped_total",
			Help:      "Регионы, пропущенные при спавне.",
		}, []string{"region", "reason"}),
	}

	if reg != nil {
		reg.MustRegister(m.regionEntered, m.discovered, m.teleports,
			m.spawnPasses, m.spawned, m.spawnSkipped)
	}
	return m
}

func (m *Metrics) regionChanged(region string) {
	if m == nil {
		return
	}
	m.regionEntered.WithLabelValues(region).Inc()
}

func (m *Metrics) regionDiscovered() {
	if m == nil {
		return
	}
	m.discovered.Inc()
}

func (m *Metrics) teleported(from, to string) {
	if m == nil {
		return
	}
	m.teleports.WithLabelValues(from, to).Inc()
}

func (m *Metrics) spawnPass() {
	if m == nil {
		return
	}
	m.spawnPasses.Inc()
}

func (m *Metrics) entitiesSpawned(region, template string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.spawned.WithLabelValues(region, template).Add(float64(n))
}

func (m *Metrics) regionSkipped(region, reason string) {
	if m == nil {
		return
	}
	m.spawnSkipped.WithLabelValues(region, reason).Inc()
}
