package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/annel0/mmo-worldcore/internal/eventbus"
	"github.com/annel0/mmo-worldcore/internal/logging"
	"github.com/annel0/mmo-worldcore/internal/middleware"
	"github.com/annel0/mmo-worldcore/internal/sim"
	"github.com/annel0/mmo-worldcore/internal/state"
	"github.com/annel0/mmo-worldcore/internal/systems"
	"github.com/annel0/mmo-worldcore/internal/vec"
	"github.com/annel0/mmo-worldcore/internal/world"
	"github.com/annel0/mmo-worldcore/internal/world/entity"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// Version - версия сервиса в /api/server
const Version = "v0.1.0"

// RestServer - REST API для просмотра мира
type RestServer struct {
	router    *gin.Engine
	srv       *http.Server
	port      string
	graph     *world.WorldGraph
	entities  *entity.Store
	state     *state.Store
	scheduler *sim.Scheduler
	bus       eventbus.EventBus
	webhooks  *WebhookManager
	metrics   *ServerMetrics
	logger    *logging.Logger
}

// Config содержит зависимости REST сервера
type Config struct {
	Port      string // ":8088"
	Graph     *world.WorldGraph
	Entities  *entity.Store
	State     *state.Store
	Scheduler *sim.Scheduler
	Bus       eventbus.EventBus // Необязательно
	Webhooks  *WebhookManager   // Необязательно; включает /api/webhooks

	Registerer prometheus.Registerer // Для HTTP-метрик; nil - без регистрации
	Gatherer   prometheus.Gatherer   // Для /metrics; nil - эндпоинт не создаётся
}

// NewRestServer создает новый REST API сервер
func NewRestServer(config Config) *RestServer {
	if config.Port == "" {
		config.Port = ":8088"
	}

	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("world_api"))
	router.Use(middleware.NewRequestLogger().Handler())
	router.Use(middleware.NewPrometheusMiddleware("world_api", config.Registerer).Handler())
	if config.Gatherer != nil {
		middleware.RegisterMetricsEndpoint(router, config.Gatherer)
	}

	server := &RestServer{
		router:    router,
		port:      config.Port,
		graph:     config.Graph,
		entities:  config.Entities,
		state:     config.State,
		scheduler: config.Scheduler,
		bus:       config.Bus,
		webhooks:  config.Webhooks,
		metrics:   NewServerMetrics(),
		logger:    logging.GetAPILogger(),
	}
	server.srv = &http.Server{
		Addr:              config.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	server.setupRoutes()
	return server
}

// Handler возвращает http.Handler (используется в тестах через httptest)
func (rs *RestServer) Handler() http.Handler {
	return rs.router
}

// setupRoutes настраивает маршруты REST API
func (rs *RestServer) setupRoutes() {
	rs.router.GET("/health", rs.handleHealth)

	api := rs.router.Group("/api")
	{
		api.GET("/regions", rs.handleRegions)
		api.GET("/regions/at", rs.handleRegionAt)
		api.GET("/regions/:id", rs.handleRegion)
		api.GET("/connections", rs.handleConnections)
		api.GET("/path", rs.handlePath)
		api.GET("/state", rs.handleState)
		api.GET("/entities", rs.handleEntities)
		api.GET("/server", rs.handleServerInfo)
		api.POST("/player/position", rs.handlePlayerPosition)
	}

	if rs.webhooks != nil {
		hooks := api.Group("/webhooks")
		hooks.GET("", rs.handleListWebhooks)
		hooks.POST("", rs.handleCreateWebhook)
		hooks.GET("/events", rs.handleWebhookEventTypes)
		hooks.GET("/:id", rs.handleGetWebhook)
		hooks.DELETE("/:id", rs.handleDeleteWebhook)
	}
}

func (rs *RestServer) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().Unix(),
	})
}

func (rs *RestServer) handleRegions(c *gin.Context) {
	regions := rs.graph.Regions()
	views := make([]RegionView, 0, len(regions))
	for _, r := range regions {
		views = append(views, regionView(r))
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Регионы", Data: views})
}

func (rs *RestServer) handleRegion(c *gin.Context) {
	region, ok := rs.graph.GetRegion(c.Param("id"))
	if !ok {
		notFound(c, "Регион не найден")
		return
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Регион", Data: regionView(region)})
}

func (rs *RestServer) handleRegionAt(c *gin.Context) {
	var coords [3]float64
	for i, key := range []string{"x", "y", "z"} {
		v, err := strconv.ParseFloat(c.DefaultQuery(key, "0"), 64)
		if err != nil {
			badRequest(c, fmt.Sprintf("Неверная координата %s", key))
			return
		}
		coords[i] = v
	}

	region, ok := rs.graph.GetRegionAt(vec.FromArray(coords))
	if !ok {
		notFound(c, "Точка вне регионов")
		return
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Регион", Data: regionView(region)})
}

func (rs *RestServer) handleConnections(c *gin.Context) {
	var conns []world.Connection
	if from := c.Query("from"); from != "" {
		if _, ok := rs.graph.GetRegion(from); !ok {
			notFound(c, "Регион не найден")
			return
		}
		conns = rs.graph.ConnectionsFrom(from)
	} else {
		conns = rs.graph.Connections()
	}

	views := make([]ConnectionView, 0, len(conns))
	for _, conn := range conns {
		views = append(views, connectionView(conn))
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Соединения", Data: views})
}

func (rs *RestServer) handlePath(c *gin.Context) {
	from, to := c.Query("from"), c.Query("to")
	if from == "" || to == "" {
		badRequest(c, "Нужны параметры from и to")
		return
	}

	path, ok := rs.graph.FindPath(from, to)
	if !ok {
		notFound(c, "Путь не найден")
		return
	}
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Путь",
		Data:    gin.H{"path": path, "hops": len(path) - 1},
	})
}

func (rs *RestServer) handleState(c *gin.Context) {
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Состояние",
		Data: gin.H{
			"version":    rs.state.Version(),
			"state":      rs.state.Data(),
			"discovered": rs.graph.DiscoveredCount(),
		},
	})
}

func (rs *RestServer) handleEntities(c *gin.Context) {
	regionID := c.Query("region")
	var filter func(*entity.Entity) bool
	if regionID != "" {
		filter = func(e *entity.Entity) bool { return e.RegionID == regionID }
	}

	snapshot := rs.entities.Snapshot(filter)
	views := make([]EntityView, 0, len(snapshot))
	for _, e := range snapshot {
		views = append(views, entityView(e))
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Сущности", Data: views})
}

func (rs *RestServer) handleServerInfo(c *gin.Context) {
	cpuPercent, _ := rs.metrics.GetCPUUsage()
	memPercent, _ := rs.metrics.GetSystemMemory()

	info := gin.H{
		"version":            Version,
		"name":               "World Core",
		"status":             "running",
		"uptime":             rs.metrics.GetUptime(),
		"cpu_percent":        fmt.Sprintf("%.1f", cpuPercent),
		"system_mem_percent": fmt.Sprintf("%.1f", memPercent),
		"memory":             rs.metrics.GetDetailedMemoryStats(),
		"entities":           rs.entities.GetStats(),
		"regions":            len(rs.graph.Regions()),
	}
	if rs.scheduler != nil {
		info["simulation"] = rs.scheduler.Stats()
	}
	if rs.bus != nil {
		info["eventbus"] = rs.bus.Metrics()
	}

	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Информация о сервере", Data: info})
}

// errNoPlayer - в мире нет сущности-игрока
var errNoPlayer = errors.New("no player")

// handlePlayerPosition переносит игрока (отладочная телепортация) между тиками
func (rs *RestServer) handlePlayerPosition(c *gin.Context) {
	var req PositionRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Position) != 3 {
		badRequest(c, "Неверный формат запроса")
		return
	}
	target := vec.FromArray([3]float64(req.Position))

	var playerID uint64
	apply := func(w systems.EntityWorld) error {
		players := w.Query(entity.FieldPlayer, entity.FieldTransform)
		if len(players) == 0 {
			return errNoPlayer
		}
		playerID = players[0].ID
		w.SetPosition(playerID, target)
		return nil
	}

	var err error
	if rs.scheduler != nil {
		rs.scheduler.Exec(func(w systems.EntityWorld) { err = apply(w) })
	} else {
		err = apply(rs.entities)
	}
	if err != nil {
		notFound(c, "Игрок не найден")
		return
	}

	rs.logger.Info("🧭 Игрок %d перемещён в %v", playerID, req.Position)
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Позиция обновлена",
		Data:    gin.H{"id": playerID, "position": req.Position},
	})
}

func (rs *RestServer) handleListWebhooks(c *gin.Context) {
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Webhook'и", Data: rs.webhooks.List()})
}

func (rs *RestServer) handleCreateWebhook(c *gin.Context) {
	var req OutboundWebhook
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Неверный формат запроса")
		return
	}
	created, err := rs.webhooks.Add(req)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	rs.logger.Info("🔗 Webhook %s зарегистрирован (%s)", created.Name, created.URL)
	c.JSON(http.StatusCreated, GenericResponse{Success: true, Message: "Webhook создан", Data: created})
}

func (rs *RestServer) handleGetWebhook(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		badRequest(c, "Неверный ID")
		return
	}
	hook, ok := rs.webhooks.Get(id)
	if !ok {
		notFound(c, "Webhook не найден")
		return
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Webhook", Data: hook})
}

func (rs *RestServer) handleDeleteWebhook(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		badRequest(c, "Неверный ID")
		return
	}
	if !rs.webhooks.Delete(id) {
		notFound(c, "Webhook не найден")
		return
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Webhook удалён"})
}

func (rs *RestServer) handleWebhookEventTypes(c *gin.Context) {
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Типы событий", Data: rs.webhooks.EventTypes()})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, GenericResponse{Success: false, Message: msg})
}

func notFound(c *gin.Context, msg string) {
	c.JSON(http.StatusNotFound, GenericResponse{Success: false, Message: msg})
}

// Start запускает HTTP-сервер; блокируется до Stop
func (rs *RestServer) Start() error {
	rs.logger.Info("🌐 REST API слушает %s", rs.port)
	if err := rs.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop корректно останавливает сервер
func (rs *RestServer) Stop(ctx context.Context) error {
	return rs.srv.Shutdown(ctx)
}
