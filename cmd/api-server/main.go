package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"
	"sync"
	"time"

	"github.com/station42/shopfloor/internal/database"
	"github.com/station42/shopfloor/internal/env"
	"github.com/station42/shopfloor/internal/hub"
	"github.com/station42/shopfloor/internal/registry"
	"github.com/station42/shopfloor/internal/version"
)

var (
	_cfgFile     = flag.String("cfg", "", "path to config file")
	_showVersion = flag.Bool("version", false, "display version and exit")
)

func main() {
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	err := run(logger)
	if err != nil {
		trace := string(debug.Stack())
		logger.Error(err.Error(), "trace", trace)
		os.Exit(1)
	}
}

type config struct {
	httpHost string
	httpPort int
	db       struct {
		dsn         string
		automigrate bool
	}
	resyncInterval time.Duration
}

type application struct {
	config config
	db     *database.DB
	logger *slog.Logger
	reg    *registry.Registry
	hub    *hub.Hub
	wg     sync.WaitGroup
}

func run(logger *slog.Logger) error {
	if *_showVersion {
		fmt.Printf("version: %s\n", version.Get())
		return nil
	}

	if *_cfgFile != "" {
		err := env.Load(*_cfgFile)
		if err != nil {
			return err
		}
	}

	var cfg config
	cfg.httpHost = env.GetString("HTTP_HOST", "localhost")
	cfg.httpPort = env.GetInt("HTTP_PORT", 8080)
	cfg.db.dsn = env.GetString("DB_DSN", "postgres:postgres@localhost:5432/postgres")
	cfg.db.automigrate = env.GetBool("DB_AUTOMIGRATE", true)
	cfg.resyncInterval = env.GetDuration("RESYNC_INTERVAL", 5*time.Minute)

	db, err := database.New(logger, cfg.db.dsn, cfg.db.automigrate)
	if err != nil {
		return err
	}
	defer db.Close()

	app := &application{
		config: cfg,
		db:     db,
		logger: logger,
		reg:    registry.New(logger),
		hub:    hub.New(logger),
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := app.rehydrate(ctx); err != nil {
		return err
	}

	go app.reg.Run(ctx)
	go app.hub.Run(ctx)
	go app.resyncLoop(ctx)

	return app.serveHTTP()
}
