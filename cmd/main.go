package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"chat-relay/internal/config"
	"chat-relay/internal/handler"
	"chat-relay/internal/metrics"
	"chat-relay/internal/service"
	"chat-relay/internal/utils"
	"chat-relay/pkg/logger"

	"github.com/gin-gonic/gin"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "./configs/config.yaml", "path to the config file (optional)")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	for _, w := range cfg.Warnings() {
		logger.Warnf("%s", w)
	}

	var collector *metrics.Collector
	var recorder metrics.Recorder = metrics.Nop{}
	if cfg.Metrics.Enabled {
		collector = metrics.NewCollector(cfg.Metrics.Namespace)
		recorder = collector
	}

	httpClient := utils.NewHTTPClient(0, cfg.Log.Level == "debug")

	chatRelay, err := service.NewChatRelay(cfg, httpClient, recorder)
	if err != nil {
		logger.Fatalf("Failed to build chat relay: %v", err)
	}
	helpRelay, err := service.NewHelpRelay(cfg, httpClient, recorder)
	if err != nil {
		logger.Fatalf("Failed to build help relay: %v", err)
	}

	chatHandler := handler.NewChatHandler(chatRelay, helpRelay, recorder)

	gin.SetMode(gin.ReleaseMode)
	router := handler.NewRouter(cfg, chatHandler, collector)

	server := &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:        router,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	go func() {
		logger.Infof("AI server running on http://localhost:%d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Errorf("Graceful shutdown failed: %v", err)
	}
	logger.Info("Server stopped")
}
