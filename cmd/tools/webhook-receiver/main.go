package main

import (
	"crypto/hmac"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/annel0/mmo-worldcore/internal/api"
	"github.com/annel0/mmo-worldcore/internal/eventbus"
	"github.com/annel0/mmo-worldcore/internal/systems"
	"github.com/gin-gonic/gin"
)

func main() {
	var (
		addr   = flag.String("addr", ":3000", "Listen address")
		secret = flag.String("secret", "", "Shared secret for X-Webhook-Signature (empty - no check)")
	)
	flag.Parse()

	log.Println("🔗 Запуск тестового Webhook приемника...")

	gin.SetMode(gin.ReleaseMode)
	r := newRouter(*secret)

	log.Printf("✅ Webhook приемник запущен на %s", *addr)
	log.Println("📋 Доступные эндпоинты:")
	log.Println("   GET  /         - Информация о сервере")
	log.Println("   POST /webhook  - События мира")

	if err := r.Run(*addr); err != nil {
		log.Fatalf("Ошибка запуска сервера: %v", err)
	}
}

func newRouter(secret string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	// Middleware для логирования
	r.Use(gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		return fmt.Sprintf("%s - [%s] \"%s %s %d %s\"\n",
			param.ClientIP,
			param.TimeStamp.Format(time.RFC3339),
			param.Method,
			param.Path,
			param.StatusCode,
			param.Latency,
		)
	}))

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message":     "Webhook приемник запущен",
			"endpoints":   []string{"/webhook"},
			"server_time": time.Now().Unix(),
		})
	})
	r.POST("/webhook", handleWebhook(secret))
	return r
}

// handleWebhook проверяет подпись и разбирает событие мира
func handleWebhook(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			log.Printf("❌ Ошибка чтения тела запроса: %v", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "Ошибка чтения запроса"})
			return
		}

		if secret != "" {
			got := c.GetHeader("X-Webhook-Signature")
			if !hmac.Equal([]byte(got), []byte(api.Sign(body, secret))) {
				log.Printf("🚫 Неверная подпись webhook'а")
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Неверная подпись"})
				return
			}
		}

		var payload api.WebhookPayload
		if err := json.Unmarshal(body, &payload); err != nil {
			log.Printf("❌ Ошибка парсинга JSON: %v", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "Неверный JSON"})
			return
		}

		switch payload.EventType {
		case eventbus.TypeServerStarted, eventbus.TypeServerStopped:
			log.Printf("🖥️  %s от %s: %s", payload.EventType, payload.Source, string(payload.Data))
			c.JSON(http.StatusOK, gin.H{"status": "received", "event_type": payload.EventType})
			return
		}

		var ev systems.Event
		if err := json.Unmarshal(payload.Data, &ev); err != nil {
			log.Printf("❌ Ошибка разбора события %s: %v", payload.EventID, err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "Неверные данные события"})
			return
		}

		log.Printf("📧 Получен webhook %s от %s (%s)", payload.EventType, payload.Source,
			time.Unix(payload.Timestamp, 0).Format("15:04:05"))
		logEvent(ev)

		c.JSON(http.StatusOK, gin.H{
			"status":      "received",
			"event_type":  payload.EventType,
			"received_at": time.Now().Unix(),
		})
	}
}

func logEvent(ev systems.Event) {
	switch ev.Kind {
	case systems.EventRegionEntered:
		log.Printf("🚶 Игрок %d вошёл в регион %s (%s)", ev.EntityID, ev.RegionID, ev.Biome)
	case systems.EventRegionDiscovered:
		log.Printf("🗺️  Открыт регион %s (%s)", ev.RegionID, ev.Biome)
	case systems.EventPortalTraversed:
		log.Printf("🌀 Портал %s → %s, выход %v", ev.RegionID, ev.TargetRegionID, ev.Position)
	case systems.EventPackSpawned:
		log.Printf("🐾 %d x %s в регионе %s", ev.Count, ev.Template, ev.RegionID)
	default:
		log.Printf("ℹ️  Неизвестное событие: %s", ev.Kind)
	}
}
