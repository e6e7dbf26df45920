// Command engine runs the ordering-channel engine.
//
// The engine answers reorder/observe requests from the carrier network
// layer, embedding queued secret bits into the relative order of the
// identifier lists it is shown and extracting bits from observed orders. A
// background loop periodically reassembles buffered incoming bits into
// messages.
//
// The shared key is taken from the ORIM_KEY environment variable (hex) so
// it stays out of process listings; all other settings are flags or an
// optional YAML config file.
//
// # Usage
//
//	ORIM_KEY=6f72696d... go run ./cmd/engine --addr :8577 --db orim.db
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Josh050608/orim-convert/api/httpserver"
	"github.com/Josh050608/orim-convert/common"
	"github.com/Josh050608/orim-convert/protocol"
	"github.com/Josh050608/orim-convert/server"
	"github.com/Josh050608/orim-convert/store"
)

func main() {
	var (
		addr           = flag.String("addr", ":8577", "HTTP listen address")
		metricsAddr    = flag.String("metrics-addr", "", "Metrics listen address (empty disables)")
		dbPath         = flag.String("db", "orim.db", "SQLite database path")
		configPath     = flag.String("config", "", "Optional YAML config file")
		decodeInterval = flag.Duration("decode-interval", server.DefaultDecodeInterval, "Reassembly attempt interval")
		enablePprof    = flag.Bool("pprof", false, "Enable pprof debugging API")
		logJSON        = flag.Bool("log-json", false, "Log in JSON format")
		logDebug       = flag.Bool("log-debug", false, "Enable debug logging")
	)
	flag.Parse()

	log := newLogger(*logJSON, *logDebug)

	cfg := protocol.DefaultConfig()
	if *configPath != "" {
		var err error
		cfg, err = protocol.LoadConfigFile(*configPath)
		if err != nil {
			fmt.Printf("Config error: %v\n", err)
			os.Exit(1)
		}
	}
	cfg = cfg.FromEnv()

	key, err := cfg.KeyBytes()
	if err != nil {
		fmt.Printf("Key error: %v (set %s)\n", err, protocol.EnvKey)
		os.Exit(1)
	}

	st, err := store.OpenSQLite(*dbPath)
	if err != nil {
		fmt.Printf("Store error: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	engine, err := server.NewEngine(server.EngineConfig{
		Key:            key,
		Store:          st,
		Log:            log,
		DecodeInterval: *decodeInterval,
	})
	if err != nil {
		fmt.Printf("Engine error: %v\n", err)
		os.Exit(1)
	}

	srv, err := httpserver.New(&httpserver.Config{
		ListenAddr:               *addr,
		MetricsAddr:              *metricsAddr,
		EnablePprof:              *enablePprof,
		Log:                      log,
		DrainDuration:            5 * time.Second,
		GracefulShutdownDuration: 10 * time.Second,
		ReadTimeout:              15 * time.Second,
		WriteTimeout:             15 * time.Second,
	}, server.NewHandler(engine, log))
	if err != nil {
		fmt.Printf("Server error: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go engine.RunDecoder(ctx)
	srv.RunInBackground()

	log.Info("engine started", "version", common.Version, "addr", *addr, "db", *dbPath)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info("shutting down")
	cancel()
	srv.Shutdown()
}

func newLogger(jsonFormat, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if jsonFormat {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
