package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"time"

	"todo-list/internal/config"
	"todo-list/internal/logger"
	"todo-list/internal/storage"
)

func main() {
	configPath := flag.String("config", "", "путь к config.toml")
	driver := flag.String("driver", "", "драйвер хранилища (sqlite, sqlite3, mysql)")
	dsn := flag.String("dsn", "", "строка подключения")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fatal(err, "❌ Ошибка загрузки конфигурации")
	}
	if *driver != "" {
		cfg.Storage.Driver = *driver
	}
	if *dsn != "" {
		cfg.Storage.DSN = *dsn
	}
	if cfg.Storage.Driver == "memory" {
		fatal(nil, "❌ Для драйвера memory миграция не нужна")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	logger.Info(ctx, "🔄 Подготовка хранилища...", "driver", cfg.Storage.Driver)

	// Open создаёт таблицу kv_store, если её ещё нет
	store, err := storage.Open(ctx, cfg.Storage.Driver, cfg.Storage.DSN)
	if err != nil {
		fatal(err, "❌ Ошибка открытия БД")
	}
	defer store.Close()

	logger.Info(ctx, "✅ Таблица kv_store готова")

	// Создаём пустой список, чтобы первый запуск не писал в лог ошибку чтения
	_, err = store.Get(ctx, cfg.Storage.Key)
	switch {
	case err == nil:
		logger.Warn(ctx, "⚠️ Ключ уже существует, данные не тронуты", "key", cfg.Storage.Key)
	case errors.Is(err, storage.ErrNotFound):
		data, _ := storage.Encode(nil)
		if err := store.Put(ctx, cfg.Storage.Key, data); err != nil {
			fatal(err, "❌ Ошибка записи пустого списка")
		}
		logger.Info(ctx, "✅ Пустой список создан", "key", cfg.Storage.Key)
	default:
		fatal(err, "❌ Ошибка чтения ключа")
	}

	logger.Info(ctx, "🎉 Миграция завершена успешно!")
	logger.Info(ctx, "📁 База данных", "dsn", cfg.Storage.DSN)
}

func fatal(err error, msg string) {
	logger.Error(context.Background(), err, msg)
	os.Exit(1)
}
