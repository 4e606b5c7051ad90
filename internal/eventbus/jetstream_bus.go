package eventbus

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/annel0/mmo-worldcore/internal/logging"
	nats "github.com/nats-io/nats.go"
)

// JetStreamConfig - параметры подключения к NATS JetStream
type JetStreamConfig struct {
	URL               string
	Stream            string        // По умолчанию WORLD_EVENTS
	SubjectPrefix     string        // По умолчанию world.events
	Retention         time.Duration // MaxAge стрима
	CompressThreshold int           // См. NewCodec
}

// JetStreamBus реализует EventBus поверх NATS JetStream.
type JetStreamBus struct {
	nc     *nats.Conn
	js     nats.JetStreamContext
	codec  *Codec
	stream string
	prefix string
	logger *logging.Logger

	published atomic.Uint64
	consumed  atomic.Uint64
	dropped   atomic.Uint64
}

// NewJetStreamBus подключается к NATS и гарантирует наличие стрима с subject'ами <prefix>.>
func NewJetStreamBus(cfg JetStreamConfig) (*JetStreamBus, error) {
	if cfg.Stream == "" {
		cfg.Stream = "WORLD_EVENTS"
	}
	if cfg.SubjectPrefix == "" {
		cfg.SubjectPrefix = "world.events"
	}
	if cfg.URL == "" {
		cfg.URL = nats.DefaultURL
	}

	codec, err := NewCodec(cfg.CompressThreshold)
	if err != nil {
		return nil, err
	}

	nc, err := nats.Connect(cfg.URL, nats.Name("worldcore"))
	if err != nil {
		codec.Close()
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		codec.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	if _, err = js.StreamInfo(cfg.Stream); err != nil {
		_, err = js.AddStream(&nats.StreamConfig{
			Name:      cfg.Stream,
			Subjects:  []string{cfg.SubjectPrefix + ".>"},
			Retention: nats.LimitsPolicy,
			MaxAge:    cfg.Retention,
			Storage:   nats.FileStorage,
		})
		if err != nil {
			nc.Close()
			codec.Close()
			return nil, fmt.Errorf("add stream: %w", err)
		}
	}

	return &JetStreamBus{
		nc:     nc,
		js:     js,
		codec:  codec,
		stream: cfg.Stream,
		prefix: cfg.SubjectPrefix,
		logger: logging.GetEventBusLogger(),
	}, nil
}

// Subject возвращает subject для типа события
func Subject(prefix, eventType string) string {
	return prefix + "." + strings.ReplaceAll(eventType, " ", "_")
}

// Publish кодирует Envelope и публикует в <prefix>.<type>; ID конверта служит ключом дедупликации.
func (jb *JetStreamBus) Publish(ctx context.Context, ev *Envelope) error {
	data, err := jb.codec.Encode(ev)
	if err != nil {
		jb.dropped.Add(1)
		return err
	}
	_, err = jb.js.Publish(Subject(jb.prefix, ev.EventType), data, nats.Context(ctx), nats.MsgId(ev.ID))
	if err != nil {
		jb.dropped.Add(1)
		return err
	}
	jb.published.Add(1)
	return nil
}

// Subscribe создаёт эфемерного потребителя с новыми сообщениями и вызывает handler асинхронно.
func (jb *JetStreamBus) Subscribe(ctx context.Context, f Filter, h Handler) (Subscription, error) {
	subj := jb.prefix + ".>"
	if len(f.Types) == 1 {
		subj = Subject(jb.prefix, f.Types[0])
	}

	natSub, err := jb.js.Subscribe(subj, func(msg *nats.Msg) {
		defer func() { _ = msg.Ack() }()

		ev, err := jb.codec.Decode(msg.Data)
		if err != nil {
			jb.dropped.Add(1)
			jb.logger.Warn("Не удалось декодировать событие из %s: %v", msg.Subject, err)
			return
		}
		if !matchFilter(ev, f) {
			return
		}
		h(ctx, ev)
		jb.consumed.Add(1)
	}, nats.ManualAck(), nats.DeliverNew(), nats.AckWait(30*time.Second))
	if err != nil {
		return nil, err
	}

	return &jetSub{natSub}, nil
}

// jetSub обёртка вокруг *nats.Subscription
type jetSub struct {
	s *nats.Subscription
}

func (j *jetSub) Unsubscribe() {
	_ = j.s.Unsubscribe()
}

// Metrics возвращает текущие метрики.
func (jb *JetStreamBus) Metrics() Stats {
	return Stats{
		Published: jb.published.Load(),
		Consumed:  jb.consumed.Load(),
		Dropped:   jb.dropped.Load(),
	}
}

// Close дожидается отправки буферов и закрывает соединение
func (jb *JetStreamBus) Close() error {
	err := jb.nc.Drain()
	jb.codec.Close()
	return err
}
