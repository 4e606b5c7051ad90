package eventbus

import (
	"context"
	"encoding/json"
	"sync"
)

// Типы служебных событий сервиса
const (
	TypeServerStarted = "server.started"
	TypeServerStopped = "server.stopped"
)

var (
	globalMu  sync.RWMutex
	globalBus EventBus
)

// Init устанавливает глобальную шину.
func Init(bus EventBus) {
	globalMu.Lock()
	globalBus = bus
	globalMu.Unlock()
}

// Global возвращает глобальную шину (nil, если не инициализирована)
func Global() EventBus {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalBus
}

// Publish отправляет событие в глобальную шину, если она инициализирована.
func Publish(ctx context.Context, ev *Envelope) error {
	bus := Global()
	if bus == nil {
		return nil
	}
	return bus.Publish(ctx, ev)
}

// PublishLifecycle публикует служебное событие с высоким приоритетом
func PublishLifecycle(ctx context.Context, source, eventType string, data map[string]any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	env := NewEnvelope(source, eventType, payload)
	env.Priority = 8
	return Publish(ctx, env)
}
