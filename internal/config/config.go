package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Scheduler SchedulerConfig
	Events    EventsConfig
	Metrics   MetricsConfig
	Auth      AuthConfig
	LogLevel  string
}

// ServerConfig controls the read-only HTTP/WebSocket observability
// surface. It never serves task submission or cancellation.
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	RateLimitRPS int
}

// SchedulerConfig controls the in-process Supervisor.
type SchedulerConfig struct {
	InitialWorkers     int
	DefaultTaskTimeout time.Duration
	QueuePopTimeout    time.Duration
	ShutdownTimeout    time.Duration
}

// EventsConfig selects the lifecycle-event fan-out backend. Backend
// "memory" (the default) uses events.Bus; "redis" uses
// events.RedisPubSub in its place, so every event goes through Redis
// pub/sub. Either way, nothing is ever read back from the backend to
// influence scheduling.
type EventsConfig struct {
	Backend      string // "memory" or "redis"
	RedisAddr    string
	RedisPassword string
	RedisDB      int
}

type MetricsConfig struct {
	Enabled bool
	Path    string
}

type AuthConfig struct {
	Enabled   bool
	JWTSecret string
	APIKeys   []string
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/taskscheduler")

	setDefaults()

	viper.SetEnvPrefix("TASKSCHED")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.readtimeout", 30*time.Second)
	viper.SetDefault("server.writetimeout", 30*time.Second)
	viper.SetDefault("server.idletimeout", 120*time.Second)
	viper.SetDefault("server.ratelimitrps", 100)

	// Scheduler defaults
	viper.SetDefault("scheduler.initialworkers", 4)
	viper.SetDefault("scheduler.defaulttasktimeout", 30*time.Second)
	viper.SetDefault("scheduler.queuepoptimeout", 1*time.Second)
	viper.SetDefault("scheduler.shutdowntimeout", 30*time.Second)

	// Events defaults
	viper.SetDefault("events.backend", "memory")
	viper.SetDefault("events.redisaddr", "localhost:6379")
	viper.SetDefault("events.redispassword", "")
	viper.SetDefault("events.redisdb", 0)

	// Metrics defaults
	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.path", "/metrics")

	// Auth defaults
	viper.SetDefault("auth.enabled", false)
	viper.SetDefault("auth.jwtsecret", "")
	viper.SetDefault("auth.apikeys", []string{})

	// Logging defaults
	viper.SetDefault("loglevel", "info")
}
