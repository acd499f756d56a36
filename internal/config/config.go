// Package config собирает настройки: значения по умолчанию, затем TOML-файл,
// затем .env и переменные окружения TODO_*.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"todo-list/internal/animation"
)

const (
	xdgAppName = "todo-list"
	configFile = "config.toml"

	DriverMemory = "memory"
)

type Config struct {
	// Persistent=false — вариант, который хранит задачи только в памяти.
	Persistent bool            `toml:"persistent"`
	Storage    StorageConfig   `toml:"storage"`
	Animation  AnimationConfig `toml:"animation"`
	HTTP       HTTPConfig      `toml:"http"`
	Log        LogConfig       `toml:"log"`
	Telegram   TelegramConfig  `toml:"telegram"`
	Export     ExportConfig    `toml:"export"`
}

type StorageConfig struct {
	Driver string `toml:"driver"` // sqlite | sqlite3 | mysql | memory
	DSN    string `toml:"dsn"`
	Key    string `toml:"key"`
}

type AnimationConfig struct {
	Entry time.Duration `toml:"entry"`
	Exit  time.Duration `toml:"exit"`
}

type HTTPConfig struct {
	Addr  string  `toml:"addr"`
	Rate  float64 `toml:"rate"`
	Burst int     `toml:"burst"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type TelegramConfig struct {
	Token string `toml:"token"`
}

type ExportConfig struct {
	// Font — TTF-файл для PDF. Без него кириллица в PDF не отображается.
	Font string `toml:"font"`
}

func Default() *Config {
	return &Config{
		Persistent: true,
		Storage: StorageConfig{
			Driver: "sqlite",
			DSN:    "./data/todoapp.db",
			Key:    "tasks",
		},
		Animation: AnimationConfig{
			Entry: animation.DefaultEntryDuration,
			Exit:  animation.DefaultExitDuration,
		},
		HTTP: HTTPConfig{
			Addr:  ":8080",
			Rate:  2,
			Burst: 20,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", xdgAppName, configFile), nil
}

// Load читает конфигурацию. Пустой path — файл по умолчанию, его отсутствие не ошибка.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err == nil {
			path = p
		}
	}

	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			if !errors.Is(err, fs.ErrNotExist) || explicit {
				return nil, fmt.Errorf("ошибка чтения конфигурации %s: %w", path, err)
			}
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("ошибка чтения .env: %w", err)
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "sqlite", "sqlite3", "mysql", DriverMemory:
	default:
		return fmt.Errorf("неизвестный драйвер хранилища %q", c.Storage.Driver)
	}
	if c.Storage.Key == "" {
		return errors.New("ключ хранилища не может быть пустым")
	}
	if c.Animation.Entry < 0 || c.Animation.Exit < 0 {
		return errors.New("длительность анимации не может быть отрицательной")
	}
	if c.HTTP.Rate <= 0 || c.HTTP.Burst <= 0 {
		return errors.New("http.rate и http.burst должны быть положительными")
	}
	return nil
}

func applyEnv(cfg *Config) error {
	strs := map[string]*string{
		"TODO_STORAGE_DRIVER": &cfg.Storage.Driver,
		"TODO_STORAGE_DSN":    &cfg.Storage.DSN,
		"TODO_STORAGE_KEY":    &cfg.Storage.Key,
		"TODO_HTTP_ADDR":      &cfg.HTTP.Addr,
		"TODO_LOG_LEVEL":      &cfg.Log.Level,
		"TODO_LOG_FORMAT":     &cfg.Log.Format,
		"TODO_TELEGRAM_TOKEN": &cfg.Telegram.Token,
		"TODO_EXPORT_FONT":    &cfg.Export.Font,
	}
	for name, dst := range strs {
		if v, ok := os.LookupEnv(name); ok {
			*dst = v
		}
	}

	if v, ok := os.LookupEnv("TODO_PERSISTENT"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("TODO_PERSISTENT: %w", err)
		}
		cfg.Persistent = b
	}

	durations := map[string]*time.Duration{
		"TODO_ANIMATION_ENTRY": &cfg.Animation.Entry,
		"TODO_ANIMATION_EXIT":  &cfg.Animation.Exit,
	}
	for name, dst := range durations {
		if v, ok := os.LookupEnv(name); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			*dst = d
		}
	}

	if v, ok := os.LookupEnv("TODO_HTTP_RATE"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("TODO_HTTP_RATE: %w", err)
		}
		cfg.HTTP.Rate = f
	}
	if v, ok := os.LookupEnv("TODO_HTTP_BURST"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("TODO_HTTP_BURST: %w", err)
		}
		cfg.HTTP.Burst = n
	}
	return nil
}
