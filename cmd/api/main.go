package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/DeivisonJohnny/velocimetro/internal/config"
	"github.com/DeivisonJohnny/velocimetro/internal/db"
	"github.com/DeivisonJohnny/velocimetro/internal/location"
	"github.com/DeivisonJohnny/velocimetro/internal/server"
	"github.com/DeivisonJohnny/velocimetro/internal/stream"
	"github.com/DeivisonJohnny/velocimetro/internal/tracking"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

var mainDepsProvider = defaultDeps
var mainRunner = realMain

func main() {
	mainRunner(mainDepsProvider())
}

type mainDeps struct {
	loadConfig   func() config.Config
	newPlatform  func(config.Config) (location.Platform, *location.Feed, error)
	connectRedis func(config.Config) *redis.Client
	notify       func(chan<- os.Signal, ...os.Signal)
	run          func(context.Context, config.Config, location.Platform, *location.Feed, *redis.Client, <-chan os.Signal, ListenFunc) error
}

func defaultDeps() mainDeps {
	return mainDeps{
		loadConfig:   config.Load,
		newPlatform:  location.NewPlatform,
		connectRedis: db.ConnectRedis,
		notify:       signal.Notify,
		run:          Run,
	}
}

func realMain(deps mainDeps) {
	cfg := deps.loadConfig()

	platform, feed, err := deps.newPlatform(cfg)
	if err != nil {
		log.Printf("location source %q unavailable, tracking disabled: %v", cfg.LocationSource, err)
		platform, feed = nil, nil
	}

	rdb := deps.connectRedis(cfg)

	signals := make(chan os.Signal, 1)
	deps.notify(signals, syscall.SIGINT, syscall.SIGTERM)

	if err := deps.run(context.Background(), cfg, platform, feed, rdb, signals, nil); err != nil {
		log.Printf("server exited with error: %v", err)
	}
}

type ListenFunc func(app *fiber.App, addr string) error

var defaultListen ListenFunc = func(app *fiber.App, addr string) error {
	return app.Listen(addr)
}

var shutdownFn = func(app *fiber.App, ctx context.Context) error {
	return app.ShutdownWithContext(ctx)
}

// Run starts the HTTP server and waits for termination signals.
func Run(ctx context.Context, cfg config.Config, platform location.Platform, feed *location.Feed, rdb *redis.Client, signals <-chan os.Signal, listen ListenFunc) error {
	hub := stream.NewHub(rdb)
	engine := tracking.NewEngine(location.NewAdapter(platform))
	srv := server.NewServer(cfg, engine, feed, hub)

	if listen == nil {
		listen = defaultListen
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- listen(srv.App, cfg.ServerPort)
	}()

	select {
	case <-signals:
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			hub.Close()
			return err
		}
	}

	engine.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := shutdownFn(srv.App, shutdownCtx); err != nil {
		return err
	}
	hub.Close()
	if rdb != nil {
		_ = rdb.Close()
	}
	return nil
}
