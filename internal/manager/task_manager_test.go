package manager

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"todo-list/internal/animation"
	"todo-list/internal/models"
	"todo-list/internal/storage"
)

// sequentialIDs выдаёт id-1, id-2, ...
func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Add(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

// recordingPersister запоминает каждый снимок.
type recordingPersister struct {
	mu        sync.Mutex
	loaded    []models.Task
	loadErr   error
	snapshots [][]models.Task
}

func (p *recordingPersister) Load(ctx context.Context) ([]models.Task, error) {
	return p.loaded, p.loadErr
}

func (p *recordingPersister) Save(tasks []models.Task) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snapshots = append(p.snapshots, tasks)
}

func (p *recordingPersister) last() []models.Task {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.snapshots) == 0 {
		return nil
	}
	return p.snapshots[len(p.snapshots)-1]
}

func newAnimated(clock *fakeClock) *TaskManager {
	return NewTaskManager(
		WithIDGenerator(sequentialIDs()),
		WithClock(clock.Now),
		WithTimeline(animation.NewTimeline(100*time.Millisecond, 200*time.Millisecond)),
	)
}

func TestAddTask(t *testing.T) {
	tm := NewTaskManager(WithIDGenerator(sequentialIDs()))

	task, err := tm.AddTask("Купить молоко", "")
	if err != nil {
		t.Fatalf("Ошибка при добавлении задачи: %v", err)
	}

	if task.ID != "id-1" || task.Completed {
		t.Errorf("Неожиданная задача: %+v", task)
	}

	if len(tm.GetAllTasks()) != 1 {
		t.Errorf("Ожидалась 1 задача, получено %d", len(tm.GetAllTasks()))
	}
}

func TestAddEmptyTask(t *testing.T) {
	tm := NewTaskManager()

	for _, title := range []string{"", "   ", "\t\n"} {
		_, err := tm.AddTask(title, "описание")
		if !errors.Is(err, ErrValidation) {
			t.Errorf("Ожидалась ошибка валидации для %q, получено %v", title, err)
		}
	}
	if len(tm.GetAllTasks()) != 0 {
		t.Error("Список не должен меняться при ошибке валидации")
	}
}

func TestAddTaskGeneratesUniqueIDs(t *testing.T) {
	tm := NewTaskManager()
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		task, err := tm.AddTask(fmt.Sprintf("task %d", i), "")
		if err != nil {
			t.Fatalf("AddTask failed: %v", err)
		}
		if seen[task.ID] {
			t.Fatalf("Повторяющийся id %s", task.ID)
		}
		seen[task.ID] = true
	}
}

func TestAddTaskSkipsCollidingID(t *testing.T) {
	ids := []string{"same", "same", "other"}
	n := 0
	tm := NewTaskManager(WithIDGenerator(func() string {
		id := ids[n]
		n++
		return id
	}))

	tm.AddTask("first", "")
	second, _ := tm.AddTask("second", "")
	if second.ID != "other" {
		t.Errorf("Ожидался id other, получено %s", second.ID)
	}
}

func TestAddToggleDeleteSequence(t *testing.T) {
	tm := NewTaskManager(WithIDGenerator(sequentialIDs()))

	milk, _ := tm.AddTask("Buy milk", "")
	tm.AddTask("Walk dog", "30 min")
	tm.ToggleCompletion(milk.ID)

	want := []models.Task{
		{ID: "id-1", Title: "Buy milk", Completed: true},
		{ID: "id-2", Title: "Walk dog", Description: "30 min"},
	}
	if got := tm.GetAllTasks(); !reflect.DeepEqual(got, want) {
		t.Errorf("Неожиданный список:\n got %+v\nwant %+v", got, want)
	}
}

func TestDraftSubmit(t *testing.T) {
	tm := NewTaskManager(WithIDGenerator(sequentialIDs()))

	tm.SetDraftTitle("   ")
	if _, err := tm.SubmitDraft(); !errors.Is(err, ErrValidation) {
		t.Errorf("Ожидалась ошибка валидации, получено %v", err)
	}
	if tm.Draft().Title != "   " {
		t.Error("Черновик не должен очищаться при ошибке")
	}

	tm.SetDraftTitle("Walk dog")
	tm.SetDraftDescription("30 min")
	task, err := tm.SubmitDraft()
	if err != nil {
		t.Fatalf("SubmitDraft failed: %v", err)
	}
	if task.Title != "Walk dog" || task.Description != "30 min" {
		t.Errorf("Неожиданная задача: %+v", task)
	}
	if tm.Draft() != (Draft{}) {
		t.Errorf("Черновик должен очиститься, получено %+v", tm.Draft())
	}
}

func TestToggleCompletion(t *testing.T) {
	tm := NewTaskManager(WithIDGenerator(sequentialIDs()))
	a, _ := tm.AddTask("a", "desc")
	tm.AddTask("b", "")
	before := tm.GetAllTasks()

	toggled, ok := tm.ToggleCompletion(a.ID)
	if !ok || !toggled.Completed || toggled.Title != "a" || toggled.Description != "desc" {
		t.Errorf("Неожиданный результат: %+v %v", toggled, ok)
	}
	if got := tm.GetAllTasks(); got[1] != before[1] {
		t.Error("Остальные задачи не должны меняться")
	}

	tm.ToggleCompletion(a.ID)
	if got := tm.GetAllTasks(); !reflect.DeepEqual(got, before) {
		t.Errorf("Двойное переключение должно вернуть исходное состояние: %+v", got)
	}

	if _, ok := tm.ToggleCompletion("missing"); ok {
		t.Error("Отсутствующий id должен быть no-op")
	}
}

func TestEditSession(t *testing.T) {
	tm := NewTaskManager(WithIDGenerator(sequentialIDs()))
	tm.AddTask("first", "")
	b, _ := tm.AddTask("second", "old")
	tm.ToggleCompletion(b.ID)
	tm.AddTask("third", "")

	if tm.EditSession() != nil {
		t.Fatal("Сессии быть не должно")
	}
	if _, err := tm.CommitEdit(); !errors.Is(err, ErrNoEdit) {
		t.Errorf("Ожидалась ErrNoEdit, получено %v", err)
	}

	started, ok := tm.StartEdit(b.ID)
	if !ok {
		t.Fatal("StartEdit должен открыть сессию")
	}
	if started.ID != b.ID || started.Title != "second" {
		t.Errorf("StartEdit вернул неожиданную сессию: %+v", started)
	}
	s := tm.EditSession()
	if s.ID != b.ID || s.Title != "second" || s.Description != "old" {
		t.Errorf("Неожиданная сессия: %+v", s)
	}

	t.Run("empty title refused", func(t *testing.T) {
		tm.SetEditTitle("  ")
		if _, err := tm.CommitEdit(); !errors.Is(err, ErrValidation) {
			t.Errorf("Ожидалась ошибка валидации, получено %v", err)
		}
		if task, _ := tm.GetTask(b.ID); task.Title != "second" {
			t.Errorf("Задача не должна меняться: %+v", task)
		}
		if tm.EditSession() == nil {
			t.Error("Сессия должна остаться открытой")
		}
	})

	t.Run("commit", func(t *testing.T) {
		tm.SetEditTitle("renamed")
		tm.SetEditDescription("new")
		task, err := tm.CommitEdit()
		if err != nil {
			t.Fatalf("CommitEdit failed: %v", err)
		}
		want := models.Task{ID: b.ID, Title: "renamed", Description: "new", Completed: true}
		if task != want {
			t.Errorf("got %+v, want %+v", task, want)
		}
		if got := tm.GetAllTasks()[1]; got != want {
			t.Errorf("Позиция должна сохраниться, получено %+v", got)
		}
		if tm.EditSession() != nil {
			t.Error("После фиксации сессия должна закрыться")
		}
	})

	t.Run("cancel", func(t *testing.T) {
		tm.StartEdit(b.ID)
		tm.SetEditTitle("discarded")
		tm.CancelEdit()
		if task, _ := tm.GetTask(b.ID); task.Title != "renamed" {
			t.Errorf("Отмена не должна менять задачу: %+v", task)
		}
		tm.SetEditTitle("ignored")
		if tm.EditSession() != nil {
			t.Error("Без сессии изменения полей игнорируются")
		}
	})

	if _, ok := tm.StartEdit("missing"); ok {
		t.Error("StartEdit для отсутствующей задачи должен вернуть false")
	}
}

func TestDeleteWithoutAnimation(t *testing.T) {
	tm := NewTaskManager(WithIDGenerator(sequentialIDs()))
	tm.AddTask("a", "")
	b, _ := tm.AddTask("b", "")
	tm.AddTask("c", "")

	if !tm.DeleteTask(b.ID) {
		t.Fatal("DeleteTask должен вернуть true")
	}
	got := tm.GetAllTasks()
	if len(got) != 2 || got[0].Title != "a" || got[1].Title != "c" {
		t.Errorf("Неожиданный список: %+v", got)
	}

	if tm.DeleteTask("missing") {
		t.Error("Удаление отсутствующего id должно быть no-op")
	}
	if len(tm.GetAllTasks()) != 2 {
		t.Error("Список не должен меняться")
	}
}

func TestDeleteWaitsForExitTransition(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	tm := newAnimated(clock)

	a, _ := tm.AddTask("a", "")
	tm.AddTask("b", "")
	tm.Advance(clock.Add(time.Second))

	tm.DeleteTask(a.ID)
	if !tm.Deleting(a.ID) || len(tm.GetAllTasks()) != 2 {
		t.Fatal("Задача должна оставаться в списке до конца анимации")
	}

	// пока идёт удаление, задача логически существует
	if _, ok := tm.ToggleCompletion(a.ID); !ok {
		t.Error("Переключение во время удаления должно работать")
	}

	if removed := tm.Advance(clock.Add(100 * time.Millisecond)); len(removed) != 0 {
		t.Errorf("Слишком рано: %v", removed)
	}

	// повторное удаление не сдвигает анимацию и не удаляет дважды
	tm.DeleteTask(a.ID)

	removed := tm.Advance(clock.Add(100 * time.Millisecond))
	if len(removed) != 1 || removed[0] != a.ID {
		t.Fatalf("Ожидалось удаление %s, получено %v", a.ID, removed)
	}
	if got := tm.GetAllTasks(); len(got) != 1 || got[0].Title != "b" {
		t.Errorf("Неожиданный список: %+v", got)
	}
	if tm.Deleting(a.ID) || tm.DeleteTask(a.ID) {
		t.Error("Удалённая задача больше не существует")
	}
	if tm.Animating() {
		t.Error("Переходов быть не должно")
	}
}

func TestDeleteDuringEntryTransitionWins(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	tm := newAnimated(clock)

	a, _ := tm.AddTask("a", "")
	if kind, _ := tm.Progress(a.ID, clock.Now()); kind != animation.Entry {
		t.Fatalf("Ожидалась анимация появления, получено %v", kind)
	}

	clock.Add(50 * time.Millisecond)
	tm.DeleteTask(a.ID)
	if kind, _ := tm.Progress(a.ID, clock.Now()); kind != animation.Exit {
		t.Errorf("Удаление должно отменить появление, получено %v", kind)
	}

	removed := tm.Advance(clock.Add(200 * time.Millisecond))
	if len(removed) != 1 || len(tm.GetAllTasks()) != 0 {
		t.Errorf("Задача должна быть удалена: %v", removed)
	}
}

func TestDeleteCancelsEditSession(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	tm := newAnimated(clock)

	a, _ := tm.AddTask("a", "")
	tm.StartEdit(a.ID)
	tm.DeleteTask(a.ID)

	if tm.EditSession() != nil {
		t.Error("Удаление должно закрыть сессию редактирования")
	}
	if _, ok := tm.StartEdit(a.ID); ok {
		t.Error("Нельзя редактировать удаляемую задачу")
	}
}

func TestEditSessionDroppedWhenTaskGoes(t *testing.T) {
	p := &recordingPersister{loaded: []models.Task{{ID: "x", Title: "x"}}}
	tm := NewTaskManagerWithStorage(p)
	tm.Load(context.Background())

	tm.StartEdit("x")
	tm.SetEditTitle("y")
	// перезагрузка списка убирает задачу из-под сессии
	p.loaded = nil
	tm.Load(context.Background())

	if tm.EditSession() != nil {
		t.Fatal("Load должен сбросить сессию")
	}

	tm.AddTask("z", "")
	tm.StartEdit(tm.GetAllTasks()[0].ID)
	tm.DeleteTask(tm.GetAllTasks()[0].ID)
	if _, err := tm.CommitEdit(); !errors.Is(err, ErrNoEdit) {
		t.Errorf("Ожидалась ErrNoEdit, получено %v", err)
	}
}

func TestPersistAfterEveryMutation(t *testing.T) {
	p := &recordingPersister{}
	tm := NewTaskManagerWithStorage(p, WithIDGenerator(sequentialIDs()))

	a, _ := tm.AddTask("a", "")
	tm.ToggleCompletion(a.ID)
	tm.StartEdit(a.ID)
	tm.SetEditTitle("b")
	tm.CommitEdit()
	tm.AddTask("   ", "")
	tm.ToggleCompletion("missing")
	tm.DeleteTask(a.ID)

	if len(p.snapshots) != 4 {
		t.Fatalf("Ожидалось 4 снимка, получено %d", len(p.snapshots))
	}
	want := []models.Task{{ID: "id-1", Title: "b", Completed: true}}
	if !reflect.DeepEqual(p.snapshots[2], want) {
		t.Errorf("Неожиданный снимок: %+v", p.snapshots[2])
	}
	if len(p.last()) != 0 {
		t.Errorf("Последний снимок должен быть пустым: %+v", p.last())
	}
}

func TestPersistAfterAnimatedRemoval(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	p := &recordingPersister{}
	tm := NewTaskManagerWithStorage(p,
		WithIDGenerator(sequentialIDs()),
		WithClock(clock.Now),
		WithTimeline(animation.NewTimeline(0, 100*time.Millisecond)),
	)

	a, _ := tm.AddTask("a", "")
	tm.DeleteTask(a.ID)
	if len(p.snapshots) != 1 {
		t.Fatalf("Пометка на удаление не сохраняется, получено %d снимков", len(p.snapshots))
	}
	tm.Advance(clock.Add(time.Second))
	if len(p.snapshots) != 2 || len(p.last()) != 0 {
		t.Errorf("После удаления ожидался пустой снимок: %+v", p.snapshots)
	}
}

func TestLoad(t *testing.T) {
	ctx := context.Background()
	saved := []models.Task{{ID: "1", Title: "Buy milk", Completed: true}}

	t.Run("restores", func(t *testing.T) {
		tm := NewTaskManagerWithStorage(&recordingPersister{loaded: saved})
		tm.Load(ctx)
		if !reflect.DeepEqual(tm.GetAllTasks(), saved) {
			t.Errorf("Неожиданный список: %+v", tm.GetAllTasks())
		}
	})

	t.Run("missing key", func(t *testing.T) {
		tm := NewTaskManagerWithStorage(&recordingPersister{loadErr: storage.ErrNotFound})
		tm.Load(ctx)
		if len(tm.GetAllTasks()) != 0 {
			t.Error("Ожидался пустой список")
		}
	})

	t.Run("broken storage", func(t *testing.T) {
		tm := NewTaskManagerWithStorage(&recordingPersister{loaded: saved, loadErr: errors.New("битые данные")})
		tm.Load(ctx)
		if len(tm.GetAllTasks()) != 0 {
			t.Error("Ошибка чтения должна давать пустой список")
		}
	})

	t.Run("in-memory variant", func(t *testing.T) {
		tm := NewTaskManager()
		tm.Load(ctx)
		if len(tm.GetAllTasks()) != 0 {
			t.Error("Ожидался пустой список")
		}
	})
}

func TestLoadFromRepository(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()

	repo := storage.NewRepository(store, storage.DefaultKey)
	tm := NewTaskManagerWithStorage(repo)
	tm.Load(ctx)
	tm.AddTask("Buy milk", "")
	tm.AddTask("Walk dog", "30 min")
	if err := repo.Close(ctx); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened := storage.NewRepository(store, storage.DefaultKey)
	defer reopened.Close(ctx)
	restored := NewTaskManagerWithStorage(reopened)
	restored.Load(ctx)

	if !reflect.DeepEqual(restored.GetAllTasks(), tm.GetAllTasks()) {
		t.Errorf("Список после перезапуска отличается:\n got %+v\nwant %+v", restored.GetAllTasks(), tm.GetAllTasks())
	}
}

func TestLoadResetsTransitions(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	p := &recordingPersister{loaded: []models.Task{{ID: "id-2", Title: "saved"}}}
	tm := NewTaskManager(
		WithPersister(p),
		WithIDGenerator(sequentialIDs()),
		WithClock(clock.Now),
		WithTimeline(animation.NewTimeline(100*time.Millisecond, 200*time.Millisecond)),
	)

	tm.AddTask("a", "")
	b, _ := tm.AddTask("b", "")
	tm.DeleteTask(b.ID)
	if !tm.Animating() {
		t.Fatal("Ожидались активные переходы")
	}

	tm.Load(context.Background())

	if tm.Animating() {
		t.Error("После загрузки переходов быть не должно")
	}
	if kind, _ := tm.Progress("id-2", clock.Now()); kind != animation.None {
		t.Errorf("Загруженная задача не должна анимироваться, получено %v", kind)
	}
	if removed := tm.Advance(clock.Add(time.Second)); len(removed) != 0 {
		t.Errorf("Загруженная задача не должна удаляться: %v", removed)
	}
	if tasks := tm.GetAllTasks(); len(tasks) != 1 || tasks[0].Title != "saved" {
		t.Errorf("Неожиданный список: %+v", tasks)
	}
}

func TestLoadRejectsBlankTitles(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	store.Put(ctx, storage.DefaultKey, []byte(`[{"id":"a","title":"   "},{"id":"b","text":""}]`))

	repo := storage.NewRepository(store, storage.DefaultKey)
	defer repo.Close(ctx)
	tm := NewTaskManagerWithStorage(repo)
	tm.Load(ctx)

	if tasks := tm.GetAllTasks(); len(tasks) != 0 {
		t.Errorf("Задачи с пустым заголовком не должны загружаться: %+v", tasks)
	}
}

func TestAddTaskMetrics(t *testing.T) {
	// Сохраняем оригинальные метрики
	prevAddTaskCount := addTaskCount
	prevTaskTitleLength := taskTitleLength

	registry := prometheus.NewRegistry()

	testAddTaskCount := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "todoapp_tasks_added_total",
			Help: "Test counter",
		},
		[]string{"status"},
	)

	testTaskTitleLength := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "todoapp_task_title_length_bytes",
			Help:    "Test histogram",
			Buckets: []float64{10, 50, 100, 500},
		},
	)

	registry.MustRegister(testAddTaskCount)
	registry.MustRegister(testTaskTitleLength)

	// Подменяем глобальные метрики
	addTaskCount = testAddTaskCount
	taskTitleLength = testTaskTitleLength

	defer func() {
		addTaskCount = prevAddTaskCount
		taskTitleLength = prevTaskTitleLength
	}()

	tm := NewTaskManager()

	if _, err := tm.AddTask("Valid title", ""); err != nil {
		t.Fatalf("AddTask failed: %v", err)
	}

	if successCount := testutil.ToFloat64(testAddTaskCount.WithLabelValues("success")); successCount != 1 {
		t.Errorf("Expected 1 success, got %v", successCount)
	}

	metrics, err := registry.Gather()
	if err != nil {
		t.Fatalf("Failed to gather metrics: %v", err)
	}

	foundHistogram := false
	for _, mf := range metrics {
		if mf.GetName() == "todoapp_task_title_length_bytes" {
			foundHistogram = true
			if mf.GetMetric()[0].GetHistogram().GetSampleCount() != 1 {
				t.Error("Histogram should have exactly one sample")
			}
			break
		}
	}
	if !foundHistogram {
		t.Error("Histogram metric not found")
	}

	if _, err := tm.AddTask("", ""); err == nil {
		t.Error("Expected error for empty title")
	}
	if errCount := testutil.ToFloat64(testAddTaskCount.WithLabelValues("error")); errCount != 1 {
		t.Errorf("Expected 1 error, got %v", errCount)
	}
}
