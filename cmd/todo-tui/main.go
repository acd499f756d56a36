package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"todo-list/internal/app"
	"todo-list/internal/config"
	"todo-list/internal/logger"
	"todo-list/internal/ui"
)

func main() {
	configPath := flag.String("config", "", "Path to config.toml")
	memory := flag.Bool("memory", false, "Keep tasks in memory only")
	logPath := flag.String("log", filepath.Join(os.TempDir(), "todo-tui.log"), "Log file (the screen belongs to the UI)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *memory {
		cfg.Persistent = false
	}

	logFile, err := os.OpenFile(*logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening log file: %v\n", err)
		os.Exit(1)
	}
	defer logFile.Close()
	logger.SetOutput(logFile)

	a, err := app.New(ctx, cfg, true)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error starting: %v\n", err)
		os.Exit(1)
	}

	runErr := ui.Run(ctx, a.Manager)

	closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.Close(closeCtx); err != nil {
		logger.Error(closeCtx, err, "Ошибка закрытия хранилища")
	}

	if runErr != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", runErr)
		os.Exit(1)
	}
}
