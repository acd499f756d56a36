package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"

	"todo-list/internal/logger"
)

// Поддерживаемые драйверы database/sql
const (
	DriverSQLite  = "sqlite"  // modernc.org/sqlite, без cgo
	DriverSQLite3 = "sqlite3" // mattn/go-sqlite3, cgo
	DriverMySQL   = "mysql"
)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS kv_store (
	name VARCHAR(191) NOT NULL PRIMARY KEY,
	value LONGBLOB NOT NULL,
	updated_at DATETIME NOT NULL
)`

var upsertSQL = map[string]string{
	DriverSQLite: `
	INSERT INTO kv_store (name, value, updated_at) VALUES (?, ?, ?)
	ON CONFLICT(name) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
	DriverSQLite3: `
	INSERT INTO kv_store (name, value, updated_at) VALUES (?, ?, ?)
	ON CONFLICT(name) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
	DriverMySQL: `
	INSERT INTO kv_store (name, value, updated_at) VALUES (?, ?, ?)
	ON DUPLICATE KEY UPDATE value = VALUES(value), updated_at = VALUES(updated_at)`,
}

// SQLStore хранит значения в одной таблице kv_store.
type SQLStore struct {
	db     *sql.DB
	driver string
}

func NewSQLStore(ctx context.Context, driver, dsn string) (*SQLStore, error) {
	if _, ok := upsertSQL[driver]; !ok {
		return nil, fmt.Errorf("неизвестный драйвер хранилища %q", driver)
	}

	if driver == DriverMySQL {
		cfg, err := mysql.ParseDSN(dsn)
		if err != nil {
			return nil, fmt.Errorf("ошибка разбора DSN: %w", err)
		}
		cfg.ParseTime = true
		dsn = cfg.FormatDSN()
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("ошибка открытия БД: %w", err)
	}

	// у SQLite ":memory:" своя база на каждое соединение
	if driver != DriverMySQL {
		db.SetMaxOpenConns(1)
	}

	// Проверяем соединение
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ошибка подключения к БД: %w", err)
	}

	if err := Migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info(ctx, "Хранилище инициализировано", "driver", driver)
	return &SQLStore{db: db, driver: driver}, nil
}

// Migrate создаёт таблицу kv_store, если её ещё нет.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, createTableSQL); err != nil {
		return fmt.Errorf("ошибка создания таблицы kv_store: %w", err)
	}
	return nil
}

func (s *SQLStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, "SELECT value FROM kv_store WHERE name = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения ключа %q: %w", key, err)
	}
	return value, nil
}

func (s *SQLStore) Put(ctx context.Context, key string, value []byte) error {
	if _, err := s.db.ExecContext(ctx, upsertSQL[s.driver], key, value, time.Now().UTC()); err != nil {
		return fmt.Errorf("ошибка записи ключа %q: %w", key, err)
	}
	return nil
}

// Закрытие соединения
func (s *SQLStore) Close() error {
	return s.db.Close()
}
