package storage

import (
	"context"
	"sync"
	"time"

	"todo-list/internal/logger"
)

// Writer пишет снимки в хранилище в отдельной горутине.
// Save не блокирует: незаписанный снимок заменяется более свежим,
// поэтому записи никогда не идут в обратном порядке.
type Writer struct {
	store   Store
	key     string
	timeout time.Duration

	mu      sync.Mutex
	closed  bool
	pending chan []byte
	done    chan struct{}
}

func NewWriter(store Store, key string) *Writer {
	w := &Writer{
		store:   store,
		key:     key,
		timeout: 5 * time.Second,
		pending: make(chan []byte, 1),
		done:    make(chan struct{}),
	}
	go w.run()
	return w
}

func (w *Writer) Save(data []byte) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}
	select {
	case <-w.pending:
		persistCoalesced.Inc()
	default:
	}
	w.pending <- data
}

func (w *Writer) run() {
	defer close(w.done)

	for data := range w.pending {
		w.write(data)
	}
}

func (w *Writer) write(data []byte) {
	startTime := time.Now()
	defer func() {
		persistWriteDuration.Observe(time.Since(startTime).Seconds())
	}()

	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	if err := w.store.Put(ctx, w.key, data); err != nil {
		persistWriteCount.WithLabelValues("error").Inc()
		logger.Error(ctx, err, "Ошибка сохранения задач", "key", w.key)
		return
	}
	persistWriteCount.WithLabelValues("success").Inc()
	logger.Debug(ctx, "Задачи сохранены", "key", w.key, "bytes", len(data))
}

// Close дописывает последний снимок и останавливает горутину.
func (w *Writer) Close(ctx context.Context) error {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.pending)
	}
	w.mu.Unlock()

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
