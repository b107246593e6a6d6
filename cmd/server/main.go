package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ignite/phishsim-monitor/internal/api"
	"github.com/ignite/phishsim-monitor/internal/config"
	"github.com/ignite/phishsim-monitor/internal/feed"
	"github.com/ignite/phishsim-monitor/internal/pkg/logger"
	"github.com/ignite/phishsim-monitor/internal/sim"
	"github.com/ignite/phishsim-monitor/internal/store"
)

// checkPortAvailable verifies that the target port is not already in use.
// This prevents confusion from stale processes occupying the port.
func checkPortAvailable(host string, port int) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("port %d is already in use (addr %s): %v\n"+
			"  Hint: Run 'lsof -i :%d' to find the blocking process", port, addr, err, port)
	}
	ln.Close()
	return nil
}

func main() {
	log.Println("╔════════════════════════════════════════════════════════════╗")
	log.Println("║  PhishSim Engagement & Detection Server                   ║")
	log.Println("║  Simulated inbox, security stack and live metrics          ║")
	log.Println("╚════════════════════════════════════════════════════════════╝")

	// Load configuration
	cfg, err := config.LoadFromEnv("config/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger.SetLevel(logger.ParseLevel(cfg.Logging.Level))
	logger.SetRedactPII(cfg.Logging.RedactPII)

	// Pre-flight check: verify the target port is available
	if err := checkPortAvailable(cfg.Server.Host, cfg.Server.Port); err != nil {
		log.Fatalf("Pre-flight check FAILED: %v", err)
	}
	log.Printf("Pre-flight check passed: port %d is available", cfg.Server.Port)

	// Random source: a fixed seed gives a reproducible demo run.
	seed := cfg.Simulation.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := sim.NewRand(seed)
	log.Printf("Simulation seed: %d (model minute = %s)", seed, cfg.Simulation.ModelMinute())

	clock := sim.RealClock{}
	eventLog := sim.NewEventLog()
	emailStore := store.New()

	engCfg := sim.EngagementConfig{
		MeanOpenDelayMinutes:   cfg.Simulation.MeanOpenDelayMinutes,
		MeanClickDelayMinutes:  cfg.Simulation.MeanClickDelayMinutes,
		MeanReportDelayMinutes: cfg.Simulation.MeanReportDelayMinutes,
		ModelMinute:            cfg.Simulation.ModelMinute(),
	}
	engine := sim.NewEngine(engCfg, clock, rng, eventLog)
	detector := sim.NewDetector(clock, rng, emailStore, engCfg.ModelMinute)
	aggregator := sim.NewAggregator(eventLog, emailStore)

	// Live event feed over Redis pub/sub, optional
	publisher, err := feed.New(cfg.Redis.URL, cfg.Redis.Channel)
	if err != nil {
		log.Printf("Warning: Redis feed disabled (%s): %v", cfg.Redis.URL, err)
	} else if publisher != nil {
		eventLog.OnAppend(publisher.Publish)
		defer publisher.Close()
		log.Printf("Live event feed connected: %s (channel %s)", cfg.Redis.URL, publisher.Channel())
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Reconciliation sweep for overdue detection actions
	if interval := cfg.Simulation.ReconcileIntervalSeconds; interval > 0 {
		go func() {
			ticker := time.NewTicker(time.Duration(interval) * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					detector.Reconcile()
				}
			}
		}()
		log.Printf("Reconciliation sweep running every %ds", interval)
	}

	handlers := api.NewHandlers(emailStore, engine, detector, aggregator, eventLog, clock)
	server := api.NewServer(cfg.Server, handlers)

	// Setup graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		log.Printf("Starting server on %s", addr)
		if err := server.ListenAndServe(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	log.Println("All services initialized — server is ready")

	<-done
	log.Println("Shutting down...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server stopped")
}
