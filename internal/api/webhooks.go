package api

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"sync"
	"time"

	"github.com/annel0/mmo-worldcore/internal/eventbus"
	"github.com/annel0/mmo-worldcore/internal/logging"
	"github.com/annel0/mmo-worldcore/internal/systems"
)

// ErrInvalidWebhook - некорректное описание webhook'а
var ErrInvalidWebhook = errors.New("invalid webhook")

// OutboundWebhook - подписка внешнего HTTP-сервиса на события мира
type OutboundWebhook struct {
	ID           uint64     `json:"id"`
	Name         string     `json:"name" binding:"required"`
	URL          string     `json:"url" binding:"required"`
	Secret       string     `json:"secret,omitempty"`
	Events       []string   `json:"events" binding:"required"` // Типы событий или "*"
	Active       bool       `json:"active"`
	Timeout      int        `json:"timeout"` // Таймаут в секундах
	RetryCount   int        `json:"retry_count"`
	CreatedAt    time.Time  `json:"created_at"`
	LastUsed     *time.Time `json:"last_used,omitempty"`
	FailureCount int        `json:"failure_count"`
}

// WebhookPayload - тело запроса к webhook'у
type WebhookPayload struct {
	EventID   string          `json:"event_id"`
	EventType string          `json:"event_type"`
	Timestamp int64           `json:"timestamp"`
	Source    string          `json:"source"`
	Data      json.RawMessage `json:"data"`
}

// WebhookManager пересылает события шины подписанным webhook'ам из собственной горутины
type WebhookManager struct {
	mu         sync.RWMutex
	webhooks   map[uint64]*OutboundWebhook
	nextID     uint64
	queue      chan *eventbus.Envelope
	httpClient *http.Client
	retryDelay time.Duration
	logger     *logging.Logger
}

// NewWebhookManager создаёт менеджер с очередью указанной ёмкости
func NewWebhookManager(queueSize int) *WebhookManager {
	if queueSize <= 0 {
		queueSize = 1000
	}
	return &WebhookManager{
		webhooks:   make(map[uint64]*OutboundWebhook),
		nextID:     1,
		queue:      make(chan *eventbus.Envelope, queueSize),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		retryDelay: time.Second,
		logger:     logging.GetAPILogger(),
	}
}

// Add проверяет и регистрирует webhook
func (wm *WebhookManager) Add(webhook OutboundWebhook) (*OutboundWebhook, error) {
	u, err := url.Parse(webhook.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: url %q", ErrInvalidWebhook, webhook.URL)
	}
	if len(webhook.Events) == 0 {
		return nil, fmt.Errorf("%w: no events", ErrInvalidWebhook)
	}

	wm.mu.Lock()
	defer wm.mu.Unlock()

	webhook.ID = wm.nextID
	wm.nextID++
	webhook.CreatedAt = time.Now()
	webhook.Active = true
	if webhook.Timeout <= 0 {
		webhook.Timeout = 10
	}
	if webhook.RetryCount < 0 {
		webhook.RetryCount = 0
	}

	stored := webhook
	wm.webhooks[webhook.ID] = &stored
	return &webhook, nil
}

// List возвращает копии webhook'ов по возрастанию ID
func (wm *WebhookManager) List() []OutboundWebhook {
	wm.mu.RLock()
	defer wm.mu.RUnlock()

	out := make([]OutboundWebhook, 0, len(wm.webhooks))
	for _, w := range wm.webhooks {
		out = append(out, *w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Get возвращает копию webhook'а по ID
func (wm *WebhookManager) Get(id uint64) (OutboundWebhook, bool) {
	wm.mu.RLock()
	defer wm.mu.RUnlock()
	w, ok := wm.webhooks[id]
	if !ok {
		return OutboundWebhook{}, false
	}
	return *w, true
}

// Delete удаляет webhook
func (wm *WebhookManager) Delete(id uint64) bool {
	wm.mu.Lock()
	defer wm.mu.Unlock()
	if _, ok := wm.webhooks[id]; !ok {
		return false
	}
	delete(wm.webhooks, id)
	return true
}

// EventTypes возвращает типы событий, на которые можно подписаться
func (wm *WebhookManager) EventTypes() []string {
	return []string{
		string(systems.EventRegionEntered),
		string(systems.EventRegionDiscovered),
		string(systems.EventPortalTraversed),
		string(systems.EventPackSpawned),
		eventbus.TypeServerStarted,
		eventbus.TypeServerStopped,
	}
}

// Attach подписывает менеджер на все события шины
func (wm *WebhookManager) Attach(ctx context.Context, bus eventbus.EventBus) (eventbus.Subscription, error) {
	return bus.Subscribe(ctx, eventbus.Filter{}, func(_ context.Context, ev *eventbus.Envelope) {
		wm.Enqueue(ev)
	})
}

// Enqueue ставит событие в очередь; при переполнении событие пропускается
func (wm *WebhookManager) Enqueue(ev *eventbus.Envelope) {
	select {
	case wm.queue <- ev:
	default:
		wm.logger.Warn("⚠️ Очередь webhook'ов переполнена, событие %s пропущено", ev.EventType)
	}
}

// Run обрабатывает очередь до отмены ctx
func (wm *WebhookManager) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-wm.queue:
			wm.processEvent(ctx, ev)
		}
	}
}

func (wm *WebhookManager) processEvent(ctx context.Context, ev *eventbus.Envelope) {
	wm.mu.RLock()
	targets := make([]*OutboundWebhook, 0)
	for _, w := range wm.webhooks {
		if w.Active && isSubscribed(w, ev.EventType) {
			targets = append(targets, w)
		}
	}
	wm.mu.RUnlock()
	if len(targets) == 0 {
		return
	}

	body, err := json.Marshal(WebhookPayload{
		EventID:   ev.ID,
		EventType: ev.EventType,
		Timestamp: ev.Timestamp.Unix(),
		Source:    ev.Source,
		Data:      rawPayload(ev.Payload),
	})
	if err != nil {
		wm.logger.Error("❌ Ошибка маршалинга события %s: %v", ev.EventType, err)
		return
	}

	var wg sync.WaitGroup
	for _, w := range targets {
		wg.Add(1)
		go func(w *OutboundWebhook) {
			defer wg.Done()
			wm.deliver(ctx, w, ev.EventType, body)
		}(w)
	}
	wg.Wait()
}

// rawPayload возвращает полезную нагрузку как JSON; не-JSON оборачивается строкой
func rawPayload(p []byte) json.RawMessage {
	if len(p) == 0 {
		return json.RawMessage("null")
	}
	if json.Valid(p) {
		return json.RawMessage(p)
	}
	quoted, _ := json.Marshal(string(p))
	return quoted
}

func isSubscribed(w *OutboundWebhook, eventType string) bool {
	for _, e := range w.Events {
		if e == eventType || e == "*" {
			return true
		}
	}
	return false
}

// deliver отправляет тело одному webhook'у с повторами
func (wm *WebhookManager) deliver(ctx context.Context, w *OutboundWebhook, eventType string, body []byte) {
	wm.mu.RLock()
	name, target, secret := w.Name, w.URL, w.Secret
	timeout, retries := time.Duration(w.Timeout)*time.Second, w.RetryCount
	wm.mu.RUnlock()

	success := false
	for attempt := 0; attempt <= retries && !success; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Duration(attempt) * wm.retryDelay):
			}
		}

		status, err := wm.post(ctx, target, secret, eventType, body, timeout)
		switch {
		case err != nil:
			wm.logger.Warn("⚠️ Попытка %d/%d для webhook %s: %v", attempt+1, retries+1, name, err)
		case status >= 200 && status < 300:
			success = true
		default:
			wm.logger.Warn("⚠️ Webhook %s вернул статус %d на попытке %d", name, status, attempt+1)
		}
	}

	wm.mu.Lock()
	now := time.Now()
	w.LastUsed = &now
	if !success {
		w.FailureCount++
	}
	wm.mu.Unlock()

	if success {
		wm.logger.Debug("✅ Событие %s отправлено в webhook %s", eventType, name)
	}
}

func (wm *WebhookManager) post(ctx context.Context, target, secret, eventType string, body []byte, timeout time.Duration) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "WorldCore/"+Version)
	req.Header.Set("X-Event-Type", eventType)
	if secret != "" {
		req.Header.Set("X-Webhook-Signature", Sign(body, secret))
	}

	resp, err := wm.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	resp.Body.Close()
	return resp.StatusCode, nil
}

// Sign возвращает HMAC-SHA256 подпись тела в формате "sha256=<hex>"
func Sign(data []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(data)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}
