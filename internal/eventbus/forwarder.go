package eventbus

import (
	"context"
	"encoding/json"
	"sync/atomic"

	"github.com/annel0/mmo-worldcore/internal/logging"
	"github.com/annel0/mmo-worldcore/internal/systems"
)

// DefaultForwarderBuffer - ёмкость очереди событий симуляции
const DefaultForwarderBuffer = 1024

// Forwarder принимает события систем на горутине симуляции и публикует их в шину
// из собственной горутины. Emit никогда не блокируется: при переполнении событие отбрасывается.
type Forwarder struct {
	bus     EventBus
	source  string
	queue   chan systems.Event
	dropped atomic.Uint64
	logger  *logging.Logger
}

var _ systems.Sink = (*Forwarder)(nil)

// NewForwarder создаёт пересыльщик событий
func NewForwarder(bus EventBus, source string, buffer int) *Forwarder {
	if buffer <= 0 {
		buffer = DefaultForwarderBuffer
	}
	return &Forwarder{
		bus:    bus,
		source: source,
		queue:  make(chan systems.Event, buffer),
		logger: logging.GetEventBusLogger(),
	}
}

// Emit ставит событие в очередь
func (f *Forwarder) Emit(ev systems.Event) {
	select {
	case f.queue <- ev:
	default:
		f.dropped.Add(1)
	}
}

// Dropped возвращает число отброшенных событий
func (f *Forwarder) Dropped() uint64 {
	return f.dropped.Load()
}

// Run публикует события до отмены ctx, затем отправляет то, что осталось в очереди
func (f *Forwarder) Run(ctx context.Context) {
	for {
		select {
		case ev := <-f.queue:
			f.publish(ctx, ev)
		case <-ctx.Done():
			for {
				select {
				case ev := <-f.queue:
					f.publish(context.Background(), ev)
				default:
					return
				}
			}
		}
	}
}

func (f *Forwarder) publish(ctx context.Context, ev systems.Event) {
	env, err := ToEnvelope(f.source, ev)
	if err != nil {
		f.dropped.Add(1)
		f.logger.Warn("Событие %s не сериализовано: %v", ev.Kind, err)
		return
	}
	if err := f.bus.Publish(ctx, env); err != nil {
		f.logger.Warn("Публикация %s не удалась: %v", ev.Kind, err)
	}
}

// ToEnvelope упаковывает событие симуляции в конверт
func ToEnvelope(source string, ev systems.Event) (*Envelope, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return nil, err
	}
	env := NewEnvelope(source, string(ev.Kind), payload)
	env.Priority = priorityOf(ev.Kind)
	if ev.RegionID != "" {
		env.Metadata = map[string]string{"region": ev.RegionID}
	}
	return env, nil
}

// priorityOf: открытие региона и порталы не отбрасываются при переполнении шины
func priorityOf(kind systems.EventKind) int {
	switch kind {
	case systems.EventRegionDiscovered, systems.EventPortalTraversed:
		return 5
	default:
		return 1
	}
}
