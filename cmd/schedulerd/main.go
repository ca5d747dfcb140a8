// Command schedulerd runs the in-process task scheduler as a
// long-running service: a Supervisor driving a worker pool, fronted by
// the read-only HTTP/WebSocket observability surface. It also seeds a
// handful of demo task types so the surface has something to show.
package main

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sebaskun/taskscheduler/internal/api"
	"github.com/sebaskun/taskscheduler/internal/config"
	"github.com/sebaskun/taskscheduler/internal/events"
	"github.com/sebaskun/taskscheduler/internal/logger"
	"github.com/sebaskun/taskscheduler/internal/scheduler"
	"github.com/sebaskun/taskscheduler/internal/task"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.LogLevel, os.Getenv("ENV") != "production")
	log := logger.Get()
	log.Info().Msg("starting schedulerd")

	publisher, closePublisher := newPublisher(cfg)
	defer closePublisher()

	sup := scheduler.New(&cfg.Scheduler, publisher)

	server := api.NewServer(cfg, sup, publisher)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      server,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	server.Start(ctx)
	go runDemoProducer(ctx, sup)
	go monitorLoop(ctx, sup)

	go func() {
		log.Info().Str("addr", httpServer.Addr).Msg("http server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down schedulerd")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Scheduler.ShutdownTimeout)
	defer shutdownCancel()

	server.Stop()
	sup.Shutdown()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server shutdown error")
	}

	log.Info().Msg("schedulerd stopped")
}

// newPublisher builds the configured event backend and a matching
// close func. "redis" replaces the in-memory Bus with Redis pub/sub;
// the WebSocket hub then receives events back through Redis, but
// nothing read from it influences scheduling.
func newPublisher(cfg *config.Config) (events.Publisher, func()) {
	if cfg.Events.Backend != "redis" {
		bus := events.NewBus()
		return bus, func() { _ = bus.Close() }
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Events.RedisAddr,
		Password: cfg.Events.RedisPassword,
		DB:       cfg.Events.RedisDB,
	})
	pubsub := events.NewRedisPubSub(client)
	return pubsub, func() {
		_ = pubsub.Close()
		_ = client.Close()
	}
}

// monitorLoop drives Supervisor.Monitor on a fixed tick so dead worker
// slots are reaped and respawned even while no caller is blocked in
// WaitCompletion.
func monitorLoop(ctx context.Context, sup *scheduler.Supervisor) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sup.Monitor()
		}
	}
}

// runDemoProducer periodically submits example tasks so the
// observability surface has live data to show.
func runDemoProducer(ctx context.Context, sup *scheduler.Supervisor) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	handlers := []func() task.Func{
		echoTask, sleepTask, computeTask, failTask,
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn := handlers[rand.Intn(len(handlers))]()
			if _, err := sup.Submit(fn, task.WithPriority(rand.Intn(3))); err != nil {
				logger.Warn().Err(err).Msg("demo producer: submit failed")
			}
		}
	}
}

func echoTask() task.Func {
	return func(ctx context.Context) (any, error) {
		return "echo", nil
	}
}

func sleepTask() task.Func {
	return func(ctx context.Context) (any, error) {
		select {
		case <-time.After(500 * time.Millisecond):
			return "slept", nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func computeTask() task.Func {
	return func(ctx context.Context) (any, error) {
		sum := 0
		for i := 0; i < 100000; i++ {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
				sum += i
			}
		}
		return sum, nil
	}
}

func failTask() task.Func {
	return func(ctx context.Context) (any, error) {
		return nil, fmt.Errorf("intentional demo failure")
	}
}
