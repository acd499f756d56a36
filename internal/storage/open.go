package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Open создаёт хранилище по имени драйвера. Для файловых SQLite создаёт каталог.
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	switch driver {
	case "memory":
		return NewMemoryStore(), nil
	case DriverSQLite, DriverSQLite3:
		if dir := filepath.Dir(dsn); dsn != ":memory:" && dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("ошибка создания каталога %s: %w", dir, err)
			}
		}
	}
	return NewSQLStore(ctx, driver, dsn)
}
