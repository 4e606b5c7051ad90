package systems

import (
	"github.com/annel0/mmo-worldcore/internal/state"
	"github.com/annel0/mmo-worldcore/internal/util"
	"github.com/annel0/mmo-worldcore/internal/vec"
	"github.com/annel0/mmo-worldcore/internal/world/entity"
)

// EntityWorld - хранилище сущностей, с которым работают системы
type EntityWorld interface {
	Spawn(data entity.Data) *entity.Entity
	Query(fields ...entity.Field) []*entity.Entity
	Entities() []*entity.Entity
	SetPosition(id uint64, pos vec.Vec3Float) bool
}

// StateStore - состояние игры между тиками
type StateStore interface {
	Get(key string) (any, bool)
	Patch(partial map[string]any)
}

// System - система, которую планировщик вызывает раз в тик.
// Update синхронна и не выполняет ввод-вывод.
type System interface {
	Name() string
	Priority() int
	Update(w EntityWorld, dt float64)
}

// Приоритеты по умолчанию: меньшие значения выполняются раньше
const (
	PriorityRegion     = 10
	PriorityConnection = 20
	PrioritySpawn      = 30
)

type options struct {
	sink             Sink
	metrics          *Metrics
	src              util.Source
	activationRadius float64
	priority         int
}

// Option настраивает систему
type Option func(*options)

// WithEventSink задаёт получателя событий системы
func WithEventSink(sink Sink) Option {
	return func(o *options) { o.sink = sink }
}

// WithMetrics задаёт набор Prometheus-метрик
func WithMetrics(m *Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithSource задаёт источник случайных чисел (по умолчанию засеян временем)
func WithSource(src util.Source) Option {
	return func(o *options) { o.src = src }
}

// WithActivationRadius задаёт радиус срабатывания порталов
func WithActivationRadius(r float64) Option {
	return func(o *options) { o.activationRadius = r }
}

// WithPriority переопределяет порядок системы в планировщике
func WithPriority(p int) Option {
	return func(o *options) { o.priority = p }
}

func buildOptions(priority int, opts []Option) options {
	o := options{
		activationRadius: DefaultActivationRadius,
		priority:         priority,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.src == nil {
		o.src = util.NewSource()
	}
	return o
}

func (o *options) emit(ev Event) {
	if o.sink != nil {
		o.sink.Emit(ev)
	}
}

// findPlayer возвращает первую сущность с признаком игрока
func findPlayer(w EntityWorld) (*entity.Entity, bool) {
	players := w.Query(entity.FieldPlayer)
	if len(players) == 0 {
		return nil, false
	}
	return players[0], true
}

// currentRegion читает id текущего региона из состояния
func currentRegion(st StateStore) (string, bool) {
	v, ok := st.Get(state.KeyCurrentRegion)
	if !ok {
		return "", false
	}
	id, ok := v.(string)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}
