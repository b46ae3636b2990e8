package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"bader/internal/clock"
	"bader/internal/config"
	"bader/internal/evictor"
	"bader/internal/logging"
	"bader/internal/metrics"
	"bader/internal/server"
	"bader/internal/storage"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "bader.toml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := logging.InitLogger(cfg.LogFile, cfg.LogLevel); err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logging.CloseLogger()

	m := metrics.New()
	clk := clock.New()
	store := storage.New(clk, m)
	ev := evictor.New(store, clk, cfg.SampleSize, cfg.Threshold, cfg.Frequency(), m)
	go ev.Run()

	if cfg.MetricsAddr != "" {
		go func() {
			logging.Infof("metrics: listening on %s", cfg.MetricsAddr)
			if err := http.ListenAndServe(cfg.MetricsAddr, m.Handler()); err != nil {
				logging.Errorf("metrics: listener stopped: %v", err)
			}
		}()
	}

	srv := server.New(cfg, store)

	go func() {
		if err := srv.Start(); err != nil {
			log.Fatalf("server error: %v", err)
		}
	}()

	fmt.Printf("bader server started on %s\n", cfg.ListenAddr)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	fmt.Println("\nshutting down...")
	ev.Stop()
	if err := srv.Shutdown(); err != nil {
		log.Printf("error during shutdown: %v", err)
	}
}
