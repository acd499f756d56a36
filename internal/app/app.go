// Package app собирает менеджер задач из конфигурации: логгер, хранилище, анимации.
package app

import (
	"context"
	"fmt"

	"todo-list/internal/animation"
	"todo-list/internal/config"
	"todo-list/internal/logger"
	"todo-list/internal/manager"
	"todo-list/internal/storage"
)

type App struct {
	Config  *config.Config
	Manager *manager.TaskManager

	repo *storage.Repository
}

// Option дополняет опции менеджера, например часами в тестах.
type Option = manager.Option

// New настраивает логгер, открывает хранилище (если вариант с сохранением)
// и загружает список. animated=false — удаление без анимации.
func New(ctx context.Context, cfg *config.Config, animated bool, opts ...Option) (*App, error) {
	logger.SetLevel(logger.ParseLevel(cfg.Log.Level))
	logger.SetFormat(cfg.Log.Format)

	a := &App{Config: cfg}

	if animated {
		opts = append(opts, manager.WithTimeline(animation.NewTimeline(cfg.Animation.Entry, cfg.Animation.Exit)))
	}

	if cfg.Persistent {
		store, err := storage.Open(ctx, cfg.Storage.Driver, cfg.Storage.DSN)
		if err != nil {
			return nil, fmt.Errorf("ошибка инициализации хранилища: %w", err)
		}
		a.repo = storage.NewRepository(store, cfg.Storage.Key)
		opts = append(opts, manager.WithPersister(a.repo))
		logger.Info(ctx, "Вариант с сохранением", "driver", cfg.Storage.Driver, "key", cfg.Storage.Key)
	} else {
		logger.Info(ctx, "Вариант без сохранения: задачи живут только в памяти")
	}

	a.Manager = manager.NewTaskManager(opts...)
	a.Manager.Load(ctx)
	return a, nil
}

// Close дописывает последний снимок и закрывает хранилище.
func (a *App) Close(ctx context.Context) error {
	if a.repo == nil {
		return nil
	}
	return a.repo.Close(ctx)
}
