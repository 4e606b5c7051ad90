package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/annel0/mmo-worldcore/internal/api"
	"github.com/annel0/mmo-worldcore/internal/systems"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func payloadBody(t *testing.T) []byte {
	t.Helper()
	data, err := json.Marshal(systems.Event{Kind: systems.EventPackSpawned, RegionID: "marsh", Template: "frog", Count: 2})
	require.NoError(t, err)
	body, err := json.Marshal(api.WebhookPayload{EventID: "e1", EventType: "spawn.pack", Source: "worldcore", Data: data})
	require.NoError(t, err)
	return body
}

func post(r http.Handler, body []byte, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(body))
	if signature != "" {
		req.Header.Set("X-Webhook-Signature", signature)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestWebhookAcceptsSignedPayload(t *testing.T) {
	body := payloadBody(t)
	w := post(newRouter("s3cret"), body, api.Sign(body, "s3cret"))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "spawn.pack")
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	body := payloadBody(t)
	assert.Equal(t, http.StatusUnauthorized, post(newRouter("s3cret"), body, api.Sign(body, "other")).Code)
	assert.Equal(t, http.StatusUnauthorized, post(newRouter("s3cret"), body, "").Code)
}

func TestWebhookWithoutSecret(t *testing.T) {
	assert.Equal(t, http.StatusOK, post(newRouter(""), payloadBody(t), "").Code)
	assert.Equal(t, http.StatusBadRequest, post(newRouter(""), []byte("{"), "").Code)
}

func TestWebhookServerLifecycle(t *testing.T) {
	body, err := json.Marshal(api.WebhookPayload{
		EventID:   "e2",
		EventType: "server.started",
		Source:    "worldcore",
		Data:      json.RawMessage(`{"regions":5}`),
	})
	require.NoError(t, err)

	w := post(newRouter(""), body, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "server.started")
}
