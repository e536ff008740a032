package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"reelcut/internal/config"
	"reelcut/internal/daemon"
	"reelcut/internal/logging"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("ensure directories: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	d, err := daemon.New(cfg, logger)
	if err != nil {
		logger.Error("create daemon", logging.Error(err))
		os.Exit(1)
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		logger.Error("start daemon", logging.Error(err))
		os.Exit(1)
	}
	logger.Info("reelcutd listening", logging.String("addr", d.Addr()))

	serveDone := make(chan error, 1)
	go func() { serveDone <- d.Wait() }()

	select {
	case <-ctx.Done():
	case err := <-serveDone:
		if err != nil {
			logger.Error("serve", logging.Error(err))
		}
	}
	logger.Info("reelcutd shutting down")
}
