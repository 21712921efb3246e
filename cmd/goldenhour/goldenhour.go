package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/goldenhour-labs/goldenhour/internal/api"
	"github.com/goldenhour-labs/goldenhour/internal/corridor"
	"github.com/goldenhour-labs/goldenhour/internal/demo"
	"github.com/goldenhour-labs/goldenhour/internal/ingest"
)

var (
	devMode      = flag.Bool("dev", false, "Run in dev mode (synthetic detections)")
	listen       = flag.String("listen", ":3000", "Listen address")
	configPath   = flag.String("config", "", "Path to corridor config YAML (built-in defaults if empty)")
	mqttURL      = flag.String("mqtt", "", "MQTT broker URL for GPS beacon ingestion (disabled if empty)")
	mqttTopic    = flag.String("mqtt-topic", "goldenhour/beacons/+", "MQTT beacon topic")
	demoInterval = flag.Duration("demo-interval", 15*time.Second, "Mean interval between demo detections")
)

func main() {
	flag.Parse()

	if *listen == "" {
		log.Fatal("Listen address is required")
	}

	cfg := corridor.DefaultConfig()
	if *configPath != "" {
		var err error
		cfg, err = corridor.LoadConfig(*configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
	}
	log.Printf("corridor configured with %d intersections, green=%s cooldown=%s",
		len(cfg.Intersections), cfg.GetCorridorDuration(), cfg.GetCooldown())

	// The engine is wired explicitly here and handed to the collaborators;
	// no package-level singletons.
	registry := corridor.NewRegistry(cfg)
	ledger := corridor.NewLedger(cfg.GetLedgerCapacity())
	sched := corridor.NewScheduler(cfg, registry, ledger, nil)
	gateway := ingest.NewGateway(sched, cfg.GetTrackCooldown(), nil)

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		mux := api.NewServer(cfg, sched, registry, ledger, gateway, nil).ServeMux()
		server := &http.Server{
			Addr:    *listen,
			Handler: api.LoggingMiddleware(mux),
		}

		go func() {
			log.Printf("listening on %s", *listen)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
			if err := server.Close(); err != nil {
				log.Printf("HTTP server force close error: %v", err)
			}
		}
		log.Printf("HTTP server routine stopped")
	}()

	// Optional MQTT beacon ingestion
	if *mqttURL != "" {
		ingester := ingest.NewMQTTIngester(gateway, *mqttURL, *mqttTopic)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := ingester.Run(ctx); err != nil {
				log.Printf("beacon ingester error: %v", err)
			}
			log.Print("beacon ingester terminated")
		}()
	}

	// Dev mode: synthetic detections instead of a camera feed
	if *devMode {
		gen := demo.NewGenerator(gateway, *demoInterval, time.Now().UnixNano())
		wg.Add(1)
		go func() {
			defer wg.Done()
			gen.Run(ctx)
		}()
	}

	wg.Wait()
	log.Printf("Graceful shutdown complete")
}
