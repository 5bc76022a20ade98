package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Brownie44l1/statusd/internal/pages"
	"github.com/Brownie44l1/statusd/internal/server"
)

func main() {
	configPath := flag.String("config", "", "YAML config file (defaults apply when empty)")
	listen := flag.String("listen", "", "listen address, overrides the config")
	logLevel := flag.String("log-level", "", "debug, info, warn or error; overrides the config")
	flag.Parse()

	if err := run(*configPath, *listen, *logLevel); err != nil {
		fmt.Fprintln(os.Stderr, "statusd:", err)
		os.Exit(1)
	}
}

func run(configPath, listen, logLevel string) error {
	cfg := server.DefaultConfig()
	if configPath != "" {
		var err error
		if cfg, err = server.LoadConfig(configPath); err != nil {
			return err
		}
	}
	if listen != "" {
		cfg.Addr = listen
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := server.NewDefaultLogger()
	if err := logger.SetLevel(cfg.LogLevel); err != nil {
		return fmt.Errorf("log level: %w", err)
	}

	ln, err := server.Listen(cfg.Addr)
	if err != nil {
		return err
	}

	router := pages.New()
	srv := server.New(cfg, router, server.WithAcceptor(ln), server.WithLogger(logger))
	status := &pages.Status{
		Name:    cfg.ServerName,
		Source:  srv,
		Started: time.Now(),
	}
	status.Register(router)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("listening",
		server.Field{Key: "addr", Value: ln.Addr().String()},
		server.Field{Key: "routes", Value: router.Routes()},
	)

	if err := srv.Serve(ctx); err != nil {
		return fmt.Errorf("serve: %w", err)
	}

	snap := srv.Metrics().Snapshot()
	logger.Info("stopped",
		server.Field{Key: "accepted", Value: snap.ConnectionsAccepted},
		server.Field{Key: "pages", Value: snap.PagesServed},
		server.Field{Key: "redirects", Value: snap.Redirects},
		server.Field{Key: "io_errors", Value: snap.IOErrors},
	)
	return nil
}
