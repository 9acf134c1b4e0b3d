// Command flightdeck serves the flight log dashboard: upload PX4 ULog
// files, browse their topics and view the standard diagnostic graphs.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/skylark-data/flightdeck/internal/config"
	"github.com/skylark-data/flightdeck/internal/dash"
	"github.com/skylark-data/flightdeck/internal/monitoring"
	"github.com/skylark-data/flightdeck/internal/store"
	"github.com/skylark-data/flightdeck/internal/timeutil"
	"github.com/skylark-data/flightdeck/internal/version"
)

var (
	configPath = flag.String("config", "", "Path to JSON config file")
	listen     = flag.String("listen", "", "Listen address (overrides config)")
	dbPath     = flag.String("db", "", "Path to the log index database (overrides config)")
	logDir     = flag.String("logs", "", "Directory for uploaded logs (overrides config)")
	maxPoints  = flag.Int("max-points", 0, "Downsampling budget per plotted line (overrides config)")
	unitsFlag  = flag.String("units", "", "Speed display units: mps, mph, kmph (overrides config)")
	verbose    = flag.Bool("verbose", false, "Enable debug logging")
	showVer    = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVer {
		fmt.Println(version.String())
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if *listen != "" {
		cfg.Listen = *listen
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}
	if *logDir != "" {
		cfg.LogDir = *logDir
	}
	if *maxPoints != 0 {
		cfg.MaxPoints = *maxPoints
	}
	if *unitsFlag != "" {
		cfg.Units = *unitsFlag
	}
	if *verbose {
		cfg.Verbose = true
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	monitoring.SetVerbose(cfg.Verbose)

	db, err := store.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("failed to open log index: %v", err)
	}
	defer db.Close()
	if err := db.MigrateUp(cfg.MigrationsDir); err != nil {
		log.Fatalf("failed to migrate log index: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := dash.NewServer(db, cfg, timeutil.RealClock{})
	mux := srv.ServeMux()
	if err := srv.AttachDebugRoutes(mux); err != nil {
		log.Fatalf("failed to mount debug routes: %v", err)
	}

	server := &http.Server{
		Addr:    cfg.Listen,
		Handler: dash.LoggingMiddleware(mux),
	}

	go func() {
		monitoring.Logf("%s listening on %s", version.String(), cfg.Listen)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	monitoring.Logf("shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		monitoring.Logf("HTTP server shutdown error: %v", err)
	}
}
