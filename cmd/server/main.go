package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trend-go/internal/app"
	"trend-go/internal/config"
	"trend-go/internal/handler"
	"trend-go/pkg/logger"
)

type Application struct {
	configPath string
	debug      bool
}

func main() {
	application := &Application{}

	flag.StringVar(&application.configPath, "config", os.Getenv("TREND_CONFIG"), "Configuration file path (env: TREND_CONFIG)")
	flag.BoolVar(&application.debug, "debug", false, "Enable debug mode")
	flag.Parse()

	if err := application.Run(); err != nil {
		log.Fatalf("Application failed: %v", err)
	}
}

func (a *Application) Run() error {
	cfg, err := config.NewManager().Load(a.configPath)
	if err != nil {
		return err
	}
	if a.debug {
		cfg.Logger.Level = "debug"
	}
	logger.SetLogger(logger.New(cfg.Logger))
	mainLog := logger.Component("main")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	services, err := app.NewBuilder(cfg).Build(ctx)
	if err != nil {
		return fmt.Errorf("failed to build application: %w", err)
	}
	defer func() {
		if err := services.Close(); err != nil {
			mainLog.WithError(err).Warn("Failed to close application cleanly")
		}
	}()

	if err := services.Start(); err != nil {
		return err
	}

	server := handler.NewApp(handler.NewController(services.Service))
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)

	serverErr := make(chan error, 1)
	go func() {
		mainLog.WithField("addr", addr).Info("HTTP server listening")
		serverErr <- server.Listen(addr)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		mainLog.WithField("signal", sig.String()).Info("Shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
	}

	if err := server.ShutdownWithTimeout(5 * time.Second); err != nil {
		mainLog.WithError(err).Warn("HTTP server shutdown incomplete")
	}
	mainLog.Info("Server stopped")
	return nil
}
