package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	server "todo-list"
	"todo-list/internal/app"
	"todo-list/internal/config"
	"todo-list/internal/logger"
)

func main() {
	configPath := flag.String("config", "", "Path to config.toml")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error(ctx, err, "Ошибка загрузки конфигурации")
		os.Exit(1)
	}

	a, err := app.New(ctx, cfg, true)
	if err != nil {
		logger.Error(ctx, err, "Ошибка запуска")
		os.Exit(1)
	}

	go a.Manager.Run(ctx, 50*time.Millisecond)

	limiter := rate.NewLimiter(rate.Limit(cfg.HTTP.Rate), cfg.HTTP.Burst)
	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           server.NewRouter(a.Manager, limiter),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Info(ctx, "Сервер слушает", "addr", cfg.HTTP.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error(ctx, err, "Ошибка HTTP-сервера")
	}

	closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.Close(closeCtx); err != nil {
		logger.Error(closeCtx, err, "Ошибка закрытия хранилища")
	}
}
