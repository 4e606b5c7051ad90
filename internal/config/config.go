package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/annel0/mmo-worldcore/internal/systems"
	"gopkg.in/yaml.v3"
)

// Config корневая структура конфигурации приложения.
type Config struct {
	Simulation SimulationConfig    `yaml:"simulation"`
	Spawn      systems.SpawnConfig `yaml:"spawn"`
	Portal     PortalConfig        `yaml:"portal"`
	World      WorldConfig         `yaml:"world"`
	EventBus   EventBusConfig      `yaml:"eventbus"`
	Server     ServerConfig        `yaml:"server"`
	Telemetry  TelemetryConfig     `yaml:"telemetry"`
	Logging    LoggingConfig       `yaml:"logging"`
}

type SimulationConfig struct {
	TickRate float64 `yaml:"tick_rate"`      // Гц
	MaxDelta float64 `yaml:"max_delta"`      // Секунды
	Seed     uint64  `yaml:"seed,omitempty"` // 0 - засеять временем
}

type PortalConfig struct {
	ActivationRadius float64 `yaml:"activation_radius"`
}

type WorldConfig struct {
	Definition        string  `yaml:"definition"`         // Путь к .yaml/.json описанию мира
	StrictConnections bool    `yaml:"strict_connections"` // Отклонять соединения с неизвестными регионами
	IndexCellSize     float64 `yaml:"index_cell_size"`
}

type EventBusConfig struct {
	Driver            string `yaml:"driver"` // memory | jetstream
	URL               string `yaml:"url"`
	Stream            string `yaml:"stream"`
	SubjectPrefix     string `yaml:"subject_prefix"`
	Retention         int    `yaml:"retention_hours"`
	BufferSize        int    `yaml:"buffer_size"`
	CompressThreshold int    `yaml:"compress_threshold"`
	LogEvents         bool   `yaml:"log_events"`
}

type ServerConfig struct {
	RESTPort    int `yaml:"rest_port"`
	MetricsPort int `yaml:"metrics_port"`
}

type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"service_name"`
}

type LoggingConfig struct {
	Dir          string `yaml:"dir"` // Пусто - только консоль
	ConsoleLevel string `yaml:"console_level"`
	FileLevel    string `yaml:"file_level"`
}

// Default возвращает конфигурацию по умолчанию
func Default() *Config {
	return &Config{
		Simulation: SimulationConfig{TickRate: 20, MaxDelta: 0.25},
		Spawn:      systems.DefaultSpawnConfig(),
		Portal:     PortalConfig{ActivationRadius: systems.DefaultActivationRadius},
		World:      WorldConfig{Definition: "configs/world.yaml"},
		EventBus: EventBusConfig{
			Driver:        "memory",
			Stream:        "WORLD_EVENTS",
			SubjectPrefix: "world.events",
			Retention:     24,
			BufferSize:    1024,
		},
		Telemetry: TelemetryConfig{ServiceName: "worldcore"},
		Logging:   LoggingConfig{ConsoleLevel: "INFO", FileLevel: "DEBUG"},
	}
}

// RetentionDuration возвращает срок хранения событий
func (e *EventBusConfig) RetentionDuration() time.Duration {
	return time.Duration(e.Retention) * time.Hour
}

// GetTickRate возвращает частоту тиков: config -> GAME_TICK_RATE -> 20
func (s *SimulationConfig) GetTickRate() float64 {
	if s.TickRate > 0 {
		return s.TickRate
	}
	if envVal := os.Getenv("GAME_TICK_RATE"); envVal != "" {
		if rate, err := strconv.ParseFloat(envVal, 64); err == nil && rate > 0 {
			return rate
		}
	}
	return 20
}

// GetRESTPort возвращает REST API порт с поддержкой fallback значений
func (s *ServerConfig) GetRESTPort() int {
	return getPortWithEnvFallback(s.RESTPort, "GAME_REST_PORT", 8088)
}

// GetMetricsPort возвращает Prometheus метрики порт с поддержкой fallback значений
func (s *ServerConfig) GetMetricsPort() int {
	return getPortWithEnvFallback(s.MetricsPort, "GAME_METRICS_PORT", 2112)
}

// getPortWithEnvFallback возвращает порт с приоритетом: config -> env -> default
func getPortWithEnvFallback(configPort int, envVar string, defaultPort int) int {
	if configPort > 0 {
		return configPort
	}

	if envVal := os.Getenv(envVar); envVal != "" {
		if port, err := strconv.Atoi(envVal); err == nil && port > 0 {
			return port
		}
	}

	return defaultPort
}

// Load читает YAML файл конфигурации поверх Default().
// Если path == "", берётся ENV GAME_CONFIG; если и он пуст - возвращаются значения по умолчанию.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("GAME_CONFIG")
		if path == "" {
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	return cfg, nil
}
