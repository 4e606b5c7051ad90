package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/annel0/mmo-worldcore/internal/api"
	"github.com/annel0/mmo-worldcore/internal/config"
	"github.com/annel0/mmo-worldcore/internal/eventbus"
	"github.com/annel0/mmo-worldcore/internal/logging"
	"github.com/annel0/mmo-worldcore/internal/observability"
	"github.com/annel0/mmo-worldcore/internal/sim"
	"github.com/annel0/mmo-worldcore/internal/state"
	"github.com/annel0/mmo-worldcore/internal/systems"
	"github.com/annel0/mmo-worldcore/internal/util"
	"github.com/annel0/mmo-worldcore/internal/world"
	"github.com/annel0/mmo-worldcore/internal/world/entity"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	configPath := flag.String("config", "", "путь к YAML конфигурации (по умолчанию $GAME_CONFIG)")
	worldPath := flag.String("world", "", "путь к описанию мира (перекрывает world.definition)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Ошибка загрузки конфигурации: %v", err)
	}
	if *worldPath != "" {
		cfg.World.Definition = *worldPath
	}

	logging.SetLogDir(cfg.Logging.Dir)
	if err := logging.InitDefaultLogger("server"); err != nil {
		log.Fatalf("❌ Ошибка инициализации логирования: %v", err)
	}
	defer logging.CloseDefaultLogger()
	applyLogLevels(cfg.Logging)

	if err := run(cfg); err != nil {
		logging.Error("❌ %v", err)
		logging.CloseDefaultLogger()
		os.Exit(1)
	}
	logging.Info("👋 Сервер успешно остановлен")
}

func applyLogLevels(lc config.LoggingConfig) {
	console, file := logging.ParseLevel(lc.ConsoleLevel), logging.ParseLevel(lc.FileLevel)
	logging.SetDefaultLevels(console, file)
	for _, component := range []string{"world", "sim", "api", "eventbus"} {
		_ = logging.GetLoggerManager().SetLogLevel(component, console, file)
	}
}

func run(cfg *config.Config) error {
	logging.Info("🌍 Запуск World Core...")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := observability.InitTelemetry(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.Enabled)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() { _ = shutdownTelemetry(context.Background()) }()

	// === МИР ===
	def, err := world.LoadDefinition(cfg.World.Definition)
	if err != nil {
		return fmt.Errorf("world definition: %w", err)
	}
	graphOpts := []world.GraphOption{world.WithIndexCellSize(cfg.World.IndexCellSize)}
	if cfg.World.StrictConnections {
		graphOpts = append(graphOpts, world.WithStrictConnections())
	}
	graph, err := world.NewWorldGraph(def, graphOpts...)
	if err != nil {
		return fmt.Errorf("world graph: %w", err)
	}
	logging.Info("🗺️ Мир загружен из %s: %d регионов, %d соединений",
		cfg.World.Definition, len(graph.Regions()), len(graph.Connections()))

	entities := entity.NewStore()
	gameState := state.NewStore()
	spawnPlayer(graph, entities)

	// === МЕТРИКИ ===
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	worldMetrics := systems.NewMetrics(reg)

	// === ШИНА СОБЫТИЙ ===
	bus, err := newBus(cfg.EventBus)
	if err != nil {
		return fmt.Errorf("eventbus: %w", err)
	}
	defer bus.Close()
	eventbus.Init(bus)

	forwarder := eventbus.NewForwarder(bus, cfg.Telemetry.ServiceName, cfg.EventBus.BufferSize)
	exporter := eventbus.NewMetricsExporter(bus, reg, forwarder)
	exporter.Start()
	defer exporter.Stop()

	if cfg.EventBus.LogEvents {
		if _, err := eventbus.StartLoggingListener(ctx, bus); err != nil {
			return fmt.Errorf("logging listener: %w", err)
		}
	}

	webhooks := api.NewWebhookManager(cfg.EventBus.BufferSize)
	if _, err := webhooks.Attach(ctx, bus); err != nil {
		return fmt.Errorf("webhooks: %w", err)
	}

	// === СИМУЛЯЦИЯ ===
	var src util.Source = util.NewSource()
	if cfg.Simulation.Seed != 0 {
		src = util.NewSeededSource(cfg.Simulation.Seed)
		logging.Info("🎲 Детерминированный прогон, seed=%d", cfg.Simulation.Seed)
	}
	common := []systems.Option{
		systems.WithEventSink(forwarder),
		systems.WithMetrics(worldMetrics),
		systems.WithSource(src),
	}

	scheduler := sim.NewScheduler(entities,
		sim.WithTickRate(cfg.Simulation.GetTickRate()),
		sim.WithMaxDelta(cfg.Simulation.MaxDelta),
		sim.WithRegisterer(reg),
	)
	scheduler.AddSystem(systems.NewRegionSystem(graph, gameState, common...))
	scheduler.AddSystem(systems.NewConnectionSystem(graph, gameState,
		append(common, systems.WithActivationRadius(cfg.Portal.ActivationRadius))...))
	scheduler.AddSystem(systems.NewSpawnSystem(graph, cfg.Spawn, common...))

	// === REST API ===
	restPort := fmt.Sprintf(":%d", cfg.Server.GetRESTPort())
	restServer := api.NewRestServer(api.Config{
		Port:       restPort,
		Graph:      graph,
		Entities:   entities,
		State:      gameState,
		Scheduler:  scheduler,
		Bus:        bus,
		Webhooks:   webhooks,
		Registerer: reg,
		Gatherer:   reg,
	})

	errCh := make(chan error, 1)
	go func() {
		if err := restServer.Start(); err != nil {
			errCh <- fmt.Errorf("rest api: %w", err)
		}
	}()
	eventbus.ServeMetrics(ctx, fmt.Sprintf(":%d", cfg.Server.GetMetricsPort()), reg)

	fwdDone := make(chan struct{})
	go func() {
		forwarder.Run(ctx)
		close(fwdDone)
	}()
	go webhooks.Run(ctx)

	simDone := make(chan struct{})
	go func() {
		scheduler.Run(ctx)
		close(simDone)
	}()

	if err := eventbus.PublishLifecycle(ctx, cfg.Telemetry.ServiceName, eventbus.TypeServerStarted, map[string]any{
		"regions": len(graph.Regions()),
		"start":   def.Start,
		"systems": scheduler.Systems(),
	}); err != nil {
		logging.Warn("⚠️ Событие запуска не опубликовано: %v", err)
	}

	logging.Info("✅ Все сервисы запущены")
	logging.Info("   🌐 REST API: http://localhost%s", restPort)
	logging.Info("   ❤️  Health check: http://localhost%s/health", restPort)
	logging.Info("   📈 Метрики: http://localhost:%d/metrics", cfg.Server.GetMetricsPort())

	var runErr error
	select {
	case <-ctx.Done():
		logging.Info("📡 Получен сигнал завершения, останавливаемся...")
	case runErr = <-errCh:
		stop()
	}

	// === GRACEFUL SHUTDOWN ===
	<-simDone
	<-fwdDone

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := restServer.Stop(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		logging.Error("❌ Ошибка остановки REST API: %v", err)
	}

	stats := scheduler.Stats()
	_ = eventbus.PublishLifecycle(shutdownCtx, cfg.Telemetry.ServiceName, eventbus.TypeServerStopped, map[string]any{
		"ticks":      stats.Ticks,
		"discovered": graph.DiscoveredCount(),
	})
	logging.Info("📊 Итог: %d тиков, открыто регионов %d/%d, сущностей %d",
		stats.Ticks, graph.DiscoveredCount(), len(graph.Regions()), len(entities.Entities()))
	return runErr
}

// newBus создаёт шину по драйверу из конфигурации
func newBus(bc config.EventBusConfig) (eventbus.EventBus, error) {
	switch bc.Driver {
	case "", "memory":
		logging.Info("📨 EventBus: in-memory (буфер %d)", bc.BufferSize)
		return eventbus.NewMemoryBus(bc.BufferSize), nil
	case "jetstream":
		bus, err := eventbus.NewJetStreamBus(eventbus.JetStreamConfig{
			URL:               bc.URL,
			Stream:            bc.Stream,
			SubjectPrefix:     bc.SubjectPrefix,
			Retention:         bc.RetentionDuration(),
			CompressThreshold: bc.CompressThreshold,
		})
		if err != nil {
			return nil, err
		}
		logging.Info("📨 EventBus: JetStream %s, stream=%s", bc.URL, bc.Stream)
		return bus, nil
	default:
		return nil, fmt.Errorf("unknown driver %q", bc.Driver)
	}
}

// spawnPlayer создаёт игрока в центре стартового региона
func spawnPlayer(graph *world.WorldGraph, entities *entity.Store) {
	start, ok := graph.StartRegion()
	if !ok {
		logging.Warn("⚠️ Стартовый регион не найден, игрок создан в начале координат")
		entities.Spawn(entity.Data{IsPlayer: true, Transform: &entity.Transform{}})
		return
	}
	player := entities.Spawn(entity.Data{
		IsPlayer:  true,
		Transform: &entity.Transform{Position: start.Center},
	})
	logging.Info("🧍 Игрок %d появился в регионе %s", player.ID, start.ID)
}
