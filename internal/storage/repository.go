package storage

import (
	"context"
	"errors"
	"fmt"

	"todo-list/internal/logger"
	"todo-list/internal/models"
)

// Repository хранит весь список задач одной записью под фиксированным ключом.
type Repository struct {
	store  Store
	key    string
	writer *Writer
}

func NewRepository(store Store, key string) *Repository {
	if key == "" {
		key = DefaultKey
	}
	return &Repository{
		store:  store,
		key:    key,
		writer: NewWriter(store, key),
	}
}

// Load читает список. Отсутствие ключа возвращается как ErrNotFound.
func (r *Repository) Load(ctx context.Context) ([]models.Task, error) {
	data, err := r.store.Get(ctx, r.key)
	if err != nil {
		return nil, err
	}
	tasks, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("ключ %q: %w", r.key, err)
	}
	return tasks, nil
}

// Save ставит снимок в очередь на запись и сразу возвращается.
func (r *Repository) Save(tasks []models.Task) {
	data, err := Encode(tasks)
	if err != nil {
		logger.Error(context.Background(), err, "Ошибка сериализации задач")
		return
	}
	r.writer.Save(data)
}

// Close дожидается последней записи и закрывает хранилище.
func (r *Repository) Close(ctx context.Context) error {
	werr := r.writer.Close(ctx)
	return errors.Join(werr, r.store.Close())
}
