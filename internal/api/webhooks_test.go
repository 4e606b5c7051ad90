package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/annel0/mmo-worldcore/internal/eventbus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhookManager_AddValidates(t *testing.T) {
	wm := NewWebhookManager(4)

	_, err := wm.Add(OutboundWebhook{Name: "bad", URL: "ftp://x", Events: []string{"*"}})
	assert.ErrorIs(t, err, ErrInvalidWebhook)
	_, err = wm.Add(OutboundWebhook{Name: "none", URL: "http://localhost:1"})
	assert.ErrorIs(t, err, ErrInvalidWebhook)

	a, err := wm.Add(OutboundWebhook{Name: "a", URL: "http://localhost:1", Events: []string{"*"}})
	require.NoError(t, err)
	b, err := wm.Add(OutboundWebhook{Name: "b", URL: "https://example.org/hook", Events: []string{"spawn.pack"}})
	require.NoError(t, err)

	list := wm.List()
	require.Len(t, list, 2)
	assert.Equal(t, a.ID, list[0].ID)
	assert.Equal(t, b.ID, list[1].ID)
	assert.True(t, list[0].Active)
	assert.Equal(t, 10, list[0].Timeout)

	assert.True(t, wm.Delete(a.ID))
	assert.False(t, wm.Delete(a.ID))
	_, ok := wm.Get(a.ID)
	assert.False(t, ok)
}

func TestWebhookManager_DeliversSignedEvents(t *testing.T) {
	type received struct {
		payload   WebhookPayload
		signature string
		eventType string
	}
	var mu sync.Mutex
	var got []received

	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var p WebhookPayload
		_ = json.Unmarshal(body, &p)

		mu.Lock()
		got = append(got, received{payload: p, signature: r.Header.Get("X-Webhook-Signature"), eventType: r.Header.Get("X-Event-Type")})
		mu.Unlock()

		assert.Equal(t, Sign(body, "s3cret"), r.Header.Get("X-Webhook-Signature"))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer target.Close()

	wm := NewWebhookManager(8)
	_, err := wm.Add(OutboundWebhook{Name: "discoveries", URL: target.URL, Secret: "s3cret",
		Events: []string{"region.discovered"}})
	require.NoError(t, err)

	bus := eventbus.NewMemoryBus(8)
	defer bus.Close()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_, err = wm.Attach(ctx, bus)
	require.NoError(t, err)
	go wm.Run(ctx)

	require.NoError(t, bus.Publish(ctx, eventbus.NewEnvelope("worldcore", "region.entered", []byte(`{"regionId":"marsh"}`))))
	require.NoError(t, bus.Publish(ctx, eventbus.NewEnvelope("worldcore", "region.discovered", []byte(`{"regionId":"marsh"}`))))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "region.discovered", got[0].eventType)
	assert.JSONEq(t, `{"regionId":"marsh"}`, string(got[0].payload.Data))
	assert.Equal(t, "worldcore", got[0].payload.Source)
}

func TestWebhookManager_CountsFailures(t *testing.T) {
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer target.Close()

	wm := NewWebhookManager(4)
	wm.retryDelay = time.Millisecond
	hook, err := wm.Add(OutboundWebhook{Name: "flaky", URL: target.URL, Events: []string{"*"}, RetryCount: 1})
	require.NoError(t, err)

	wm.processEvent(context.Background(), eventbus.NewEnvelope("worldcore", "spawn.pack", nil))

	stored, ok := wm.Get(hook.ID)
	require.True(t, ok)
	assert.Equal(t, 1, stored.FailureCount)
	assert.NotNil(t, stored.LastUsed)
}

func TestWebhookRoutes(t *testing.T) {
	f := newFixture(t, true)

	w, _ := f.do(t, "POST", "/api/webhooks", `{"name":"x","url":"not a url","events":["*"]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, resp := f.do(t, "POST", "/api/webhooks", `{"name":"x","url":"http://localhost:9/hook","events":["spawn.pack"]}`)
	require.Equal(t, http.StatusCreated, w.Code)
	var created OutboundWebhook
	decodeData(t, resp, &created)
	assert.Equal(t, uint64(1), created.ID)

	w, _ = f.do(t, "GET", "/api/webhooks/1", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w, resp = f.do(t, "GET", "/api/webhooks/events", "")
	require.Equal(t, http.StatusOK, w.Code)
	var types []string
	decodeData(t, resp, &types)
	assert.Contains(t, types, "portal.traversed")
	assert.Contains(t, types, "server.started")

	w, _ = f.do(t, "DELETE", "/api/webhooks/1", "")
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = f.do(t, "DELETE", "/api/webhooks/1", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	w, _ = f.do(t, "GET", "/api/webhooks/abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
