// Command demo submits a small task dependency graph through an
// in-process Supervisor and then polls the read-only HTTP surface (via
// pkg/client) to watch it complete. There is no network submission
// path, so the same process both runs the scheduler and drives the
// client against it.
package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/sebaskun/taskscheduler/internal/api"
	"github.com/sebaskun/taskscheduler/internal/config"
	"github.com/sebaskun/taskscheduler/internal/events"
	"github.com/sebaskun/taskscheduler/internal/logger"
	"github.com/sebaskun/taskscheduler/internal/scheduler"
	"github.com/sebaskun/taskscheduler/internal/task"
	"github.com/sebaskun/taskscheduler/pkg/client"
)

func main() {
	logger.Init("info", true)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	bus := events.NewBus()
	defer bus.Close()

	sup := scheduler.New(&cfg.Scheduler, bus)
	defer sup.Shutdown()

	server := api.NewServer(cfg, sup, bus)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		log.Fatalf("failed to listen: %v", err)
	}
	addr := listener.Addr().String()

	httpServer := &http.Server{Handler: server}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	server.Start(ctx)

	go func() {
		if err := httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server error: %v", err)
		}
	}()
	defer httpServer.Shutdown(context.Background())

	fmt.Println("=== Submitting dependency graph ===")

	idA, err := sup.Submit(stepTask("A", 100*time.Millisecond), task.WithPriority(1))
	if err != nil {
		log.Fatalf("submit A: %v", err)
	}
	idB, err := sup.Submit(stepTask("B", 150*time.Millisecond), task.WithPriority(1))
	if err != nil {
		log.Fatalf("submit B: %v", err)
	}
	idC, err := sup.Submit(stepTask("C", 50*time.Millisecond),
		task.WithPriority(0), task.WithDependencies(idA, idB))
	if err != nil {
		log.Fatalf("submit C: %v", err)
	}
	fmt.Printf("submitted A=%s B=%s C=%s (C depends on A and B)\n", idA, idB, idC)

	c, err := client.New("http://" + addr)
	if err != nil {
		log.Fatalf("failed to create client: %v", err)
	}

	fmt.Println("\n=== Health Check ===")
	health, err := c.Health(context.Background())
	if err != nil {
		log.Fatalf("health check failed: %v", err)
	}
	fmt.Printf("status: %s\n", health.Status)

	fmt.Println("\n=== Polling for completion ===")
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		t, err := c.GetTask(context.Background(), idC)
		if err != nil {
			log.Fatalf("get task: %v", err)
		}
		fmt.Printf("C status: %s\n", t.Status)
		if t.Status == "completed" || t.Status == "failed" || t.Status == "cancelled" {
			fmt.Printf("final result: %v\n", t.Result)
			break
		}
		time.Sleep(50 * time.Millisecond)
	}

	fmt.Println("\n=== Scheduler Status ===")
	status, err := c.Status(context.Background())
	if err != nil {
		log.Fatalf("status failed: %v", err)
	}
	fmt.Printf("workers: total=%d alive=%d, tasks by status=%v\n",
		status.Workers.Total, status.Workers.Alive, status.Tasks)

	fmt.Println("\n=== Task List ===")
	list, err := c.ListTasks(context.Background(), "")
	if err != nil {
		log.Fatalf("list tasks failed: %v", err)
	}
	for _, t := range list.Tasks {
		fmt.Printf("  %s: %s\n", t.ID, t.Status)
	}

	fmt.Println("\ndone")
}

func stepTask(name string, d time.Duration) task.Func {
	return func(ctx context.Context) (any, error) {
		select {
		case <-time.After(d):
			return fmt.Sprintf("%s done", name), nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}
