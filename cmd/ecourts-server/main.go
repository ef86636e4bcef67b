package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"time"

	"ecourts-backend/internal/components/chrono"
	"ecourts-backend/internal/components/telemetry"
	"ecourts-backend/lib/configutil"
	"ecourts-backend/lib/osutil"
	"ecourts-backend/lib/querylog"
	"ecourts-backend/lib/querylog/db"
	"ecourts-backend/lib/restyutil"
	"ecourts-backend/lib/scrapers/ecourts"
	"ecourts-backend/lib/scrapers/ecourts/core"
	libtelemetry "ecourts-backend/lib/telemetry"
	"ecourts-backend/pkg/migrations"
	"ecourts-backend/services/ecourts/server"
)

type Config struct {
	core.Options
	Port int `json:"port"`
	// DbPath is a sqlite file or a libsql url.
	DbPath string `json:"db_path"`
	// KeepAlive is a cron spec for refreshing the portal session, empty
	// disables it.
	KeepAlive string `json:"keepalive"`
}

var defaults = Config{
	Port:      8000,
	DbPath:    "state/ecourts.db",
	KeepAlive: "@every 15m",
}

func main() {
	configPath := flag.String("config", "ecourts.json5", "Path to the config file.")
	port := flag.Int("port", 0, "Port to listen on, overrides the config.")
	baseUrl := flag.String("base-url", "", "Portal base url, overrides the config.")
	dumpHttp := flag.String("dump-http", "", "Write every upstream http exchange to this directory.")
	debug := flag.Bool("debug", false, "Enable debug logging.")
	flag.Parse()

	ctx := osutil.SignalContext()
	libtelemetry.InitSlog(*debug)

	tel, err := libtelemetry.SetupFromEnv(ctx, "ecourts-server")
	if err != nil {
		osutil.Fatal("setup telemetry", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			slog.Warn("failed to shutdown telemetry", "err", err)
		}
	}()
	libtelemetry.InstrumentPerfStats(ctx, 30*time.Second)

	cfg, err := configutil.ReadOptional(*configPath, defaults)
	if err != nil {
		osutil.Fatal("read config", err)
	}
	if *port != 0 {
		cfg.Port = *port
	}
	if *baseUrl != "" {
		cfg.BaseUrl = *baseUrl
	}
	cfg.Telemetry = telemetry.SlogAPI{}
	if *dumpHttp != "" {
		output, err := restyutil.NewFilesystemOutput(*dumpHttp)
		if err != nil {
			osutil.Fatal("create http dump directory", err)
		}
		cfg.Dump = output
	}

	database, err := migrations.OpenAndMigrateDB(db.Schema, cfg.DbPath)
	if err != nil {
		osutil.Fatal("open query log", err)
	}
	defer database.Close()

	scraper, err := ecourts.New(cfg.Options)
	if err != nil {
		osutil.Fatal("create scraper", err)
	}
	if !scraper.Warm(ctx) {
		slog.Warn("could not warm the portal session, it will be retried on first use")
	}

	if cfg.KeepAlive != "" {
		cronner := chrono.NewStandardCron(telemetry.SlogAPI{})
		defer cronner.Stop()
		err = cronner.Cron(cfg.KeepAlive, func() {
			scraper.KeepAlive(ctx)
		})
		if err != nil {
			osutil.Fatal("schedule session keepalive", err)
		}
	}

	srv := server.New(server.Options{
		Scraper:   scraper,
		Logs:      querylog.NewStore(database),
		Telemetry: telemetry.SlogAPI{},
	})

	addr := fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	slog.Info("listening", "addr", addr, "portal", scraper.Client.BaseUrl.String())
	err = server.Serve(ctx, addr, srv)
	if err != nil {
		osutil.Fatal("serve", err)
	}
}
