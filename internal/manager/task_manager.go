// Package manager владеет упорядоченным списком задач, черновиком формы
// добавления и сессией редактирования.
package manager

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"todo-list/internal/animation"
	"todo-list/internal/logger"
	"todo-list/internal/models"
	"todo-list/internal/storage"
)

var (
	ErrValidation = errors.New("ошибка валидации")
	ErrNoEdit     = errors.New("редактирование не начато")
	ErrNotFound   = errors.New("задача не найдена")
)

// Persister сохраняет список целиком. Save не должен блокировать.
type Persister interface {
	Load(ctx context.Context) ([]models.Task, error)
	Save(tasks []models.Task)
}

// Draft — поля формы добавления новой задачи.
type Draft struct {
	Title       string
	Description string
}

// EditSession — редактируемая задача и её несохранённые значения.
type EditSession struct {
	ID          string
	Title       string
	Description string
}

type Option func(*TaskManager)

func WithPersister(p Persister) Option {
	return func(tm *TaskManager) { tm.persister = p }
}

// WithTimeline включает переходы: удаление откладывается до конца анимации.
func WithTimeline(tl *animation.Timeline) Option {
	return func(tm *TaskManager) { tm.timeline = tl }
}

func WithClock(now func() time.Time) Option {
	return func(tm *TaskManager) { tm.now = now }
}

func WithIDGenerator(gen func() string) Option {
	return func(tm *TaskManager) { tm.newID = gen }
}

type TaskManager struct {
	mu        sync.Mutex
	tasks     []models.Task
	draft     Draft
	edit      *EditSession
	deleting  map[string]bool
	timeline  *animation.Timeline
	persister Persister
	now       func() time.Time
	newID     func() string
}

func NewTaskManager(opts ...Option) *TaskManager {
	tm := &TaskManager{
		deleting: make(map[string]bool),
		now:      time.Now,
		newID:    newTaskID,
	}
	for _, opt := range opts {
		opt(tm)
	}
	return tm
}

func NewTaskManagerWithStorage(p Persister, opts ...Option) *TaskManager {
	return NewTaskManager(append([]Option{WithPersister(p)}, opts...)...)
}

// newTaskID выдаёт UUIDv7: он упорядочен по времени создания.
func newTaskID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Load заменяет список сохранённым. Любая ошибка чтения даёт пустой список.
func (tm *TaskManager) Load(ctx context.Context) {
	if tm.persister == nil {
		return
	}

	tasks, err := tm.persister.Load(ctx)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		logger.Info(ctx, "Сохранённых задач нет, начинаем с пустого списка")
		tasks = nil
	case err != nil:
		logger.Error(ctx, err, "Ошибка загрузки задач, начинаем с пустого списка")
		tasks = nil
	default:
		logger.Info(ctx, "Задачи загружены", "count", len(tasks))
	}

	tm.mu.Lock()
	defer tm.mu.Unlock()

	// загруженный список не анимируется, переходы прежних задач сбрасываем
	if tm.timeline != nil {
		for _, t := range tm.tasks {
			tm.timeline.Cancel(t.ID)
		}
	}

	tm.tasks = tasks
	tm.edit = nil
	tm.deleting = make(map[string]bool)
	liveTasks.Set(float64(len(tm.tasks)))
}

func (tm *TaskManager) AddTask(title, description string) (models.Task, error) {
	startTime := time.Now()
	defer func() {
		addTaskDuration.Observe(time.Since(startTime).Seconds())
	}()

	if err := models.Validate(models.CreateTaskRequest{Title: title, Description: description}); err != nil {
		addTaskCount.WithLabelValues("error").Inc()
		return models.Task{}, fmt.Errorf("%w: заголовок задачи обязателен", ErrValidation)
	}

	tm.mu.Lock()
	defer tm.mu.Unlock()

	id := tm.newID()
	for tm.indexOf(id) >= 0 {
		id = tm.newID()
	}

	task := models.Task{
		ID:          id,
		Title:       strings.TrimSpace(title),
		Description: description,
		Completed:   false,
	}
	tm.tasks = append(tm.tasks, task)
	tm.draft = Draft{}

	if tm.timeline != nil {
		tm.timeline.Enter(id, tm.now())
	}

	addTaskCount.WithLabelValues("success").Inc()
	taskTitleLength.Observe(float64(len(task.Title)))
	tm.persistLocked()

	return task, nil
}

func (tm *TaskManager) SetDraftTitle(s string) {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	tm.draft.Title = s
}

func (tm *TaskManager) SetDraftDescription(s string) {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	tm.draft.Description = s
}

func (tm *TaskManager) Draft() Draft {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	return tm.draft
}

// SubmitDraft добавляет задачу из формы. При ошибке черновик остаётся как был.
func (tm *TaskManager) SubmitDraft() (models.Task, error) {
	d := tm.Draft()
	return tm.AddTask(d.Title, d.Description)
}

// ToggleCompletion переключает флаг. Отсутствующий id — не ошибка.
func (tm *TaskManager) ToggleCompletion(id string) (models.Task, bool) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	i := tm.indexOf(id)
	if i < 0 {
		return models.Task{}, false
	}

	tm.tasks[i].Completed = !tm.tasks[i].Completed
	toggleTaskCount.Inc()
	tm.persistLocked()
	return tm.tasks[i], true
}

// StartEdit открывает сессию редактирования, заменяя предыдущую, и возвращает
// её копию. Задачу, которая уже удаляется, редактировать нельзя.
func (tm *TaskManager) StartEdit(id string) (EditSession, bool) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	i := tm.indexOf(id)
	if i < 0 || tm.deleting[id] {
		return EditSession{}, false
	}

	tm.edit = &EditSession{
		ID:          id,
		Title:       tm.tasks[i].Title,
		Description: tm.tasks[i].Description,
	}
	return *tm.edit, true
}

func (tm *TaskManager) CancelEdit() {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	tm.edit = nil
}

func (tm *TaskManager) SetEditTitle(s string) {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	if tm.edit != nil {
		tm.edit.Title = s
	}
}

func (tm *TaskManager) SetEditDescription(s string) {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	if tm.edit != nil {
		tm.edit.Description = s
	}
}

// EditSession возвращает копию текущей сессии или nil.
func (tm *TaskManager) EditSession() *EditSession {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	if tm.edit == nil {
		return nil
	}
	s := *tm.edit
	return &s
}

// CommitEdit применяет черновые значения к задаче. id, флаг и позиция не меняются.
func (tm *TaskManager) CommitEdit() (models.Task, error) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	if tm.edit == nil {
		updateTaskCount.WithLabelValues("error").Inc()
		return models.Task{}, ErrNoEdit
	}

	if err := models.Validate(models.CreateTaskRequest{Title: tm.edit.Title}); err != nil {
		updateTaskCount.WithLabelValues("error").Inc()
		return models.Task{}, fmt.Errorf("%w: заголовок задачи не может быть пустым", ErrValidation)
	}

	session := tm.edit
	tm.edit = nil

	i := tm.indexOf(session.ID)
	if i < 0 {
		updateTaskCount.WithLabelValues("error").Inc()
		return models.Task{}, fmt.Errorf("%w: %s", ErrNotFound, session.ID)
	}

	tm.tasks[i].Title = strings.TrimSpace(session.Title)
	tm.tasks[i].Description = session.Description

	updateTaskCount.WithLabelValues("success").Inc()
	tm.persistLocked()
	return tm.tasks[i], nil
}

// DeleteTask удаляет задачу. С анимацией задача помечается и остаётся в списке,
// пока Advance не увидит конец перехода. Повторный вызов ничего не меняет.
func (tm *TaskManager) DeleteTask(id string) bool {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	i := tm.indexOf(id)
	if i < 0 {
		return false
	}
	if tm.edit != nil && tm.edit.ID == id {
		tm.edit = nil
	}

	if tm.timeline == nil {
		tm.removeLocked(i)
		tm.persistLocked()
		return true
	}

	if tm.deleting[id] {
		return true
	}
	tm.deleting[id] = true
	tm.timeline.Exit(id, tm.now())
	return true
}

// Advance продвигает переходы и удаляет задачи, чья анимация удаления закончилась.
func (tm *TaskManager) Advance(now time.Time) []string {
	if tm.timeline == nil {
		return nil
	}
	finished := tm.timeline.Advance(now)
	if len(finished) == 0 {
		return nil
	}

	tm.mu.Lock()
	defer tm.mu.Unlock()

	var removed []string
	for _, id := range finished {
		if !tm.deleting[id] {
			continue
		}
		delete(tm.deleting, id)
		if i := tm.indexOf(id); i >= 0 {
			tm.removeLocked(i)
			removed = append(removed, id)
		}
	}
	if len(removed) > 0 {
		tm.persistLocked()
	}
	return removed
}

// Animating сообщает, есть ли незавершённые переходы.
func (tm *TaskManager) Animating() bool {
	return tm.timeline != nil && tm.timeline.Active()
}

func (tm *TaskManager) Progress(id string, now time.Time) (animation.Kind, float64) {
	if tm.timeline == nil {
		return animation.None, 1
	}
	return tm.timeline.Progress(id, now)
}

func (tm *TaskManager) Deleting(id string) bool {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	return tm.deleting[id]
}

func (tm *TaskManager) GetAllTasks() []models.Task {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	tasks := make([]models.Task, len(tm.tasks))
	copy(tasks, tm.tasks)
	return tasks
}

func (tm *TaskManager) GetTask(id string) (models.Task, bool) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	i := tm.indexOf(id)
	if i < 0 {
		return models.Task{}, false
	}
	return tm.tasks[i], true
}

func (tm *TaskManager) indexOf(id string) int {
	for i := range tm.tasks {
		if tm.tasks[i].ID == id {
			return i
		}
	}
	return -1
}

func (tm *TaskManager) removeLocked(i int) {
	tm.tasks = append(tm.tasks[:i], tm.tasks[i+1:]...)
	deleteTaskCount.Inc()
}

// persistLocked отдаёт снимок на запись. Вызывается под tm.mu,
// чтобы снимки уходили в том же порядке, что и изменения.
func (tm *TaskManager) persistLocked() {
	liveTasks.Set(float64(len(tm.tasks)))
	if tm.persister == nil {
		return
	}
	snapshot := make([]models.Task, len(tm.tasks))
	copy(snapshot, tm.tasks)
	tm.persister.Save(snapshot)
}
