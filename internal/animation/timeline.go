// Package animation хранит состояние переходов появления/удаления задач.
// Это состояние принадлежит слою отображения и никогда не сохраняется.
package animation

import (
	"sync"
	"time"
)

const (
	DefaultEntryDuration = 300 * time.Millisecond
	DefaultExitDuration  = 250 * time.Millisecond
)

type Kind int

const (
	None Kind = iota
	Entry
	Exit
)

func (k Kind) String() string {
	switch k {
	case Entry:
		return "entry"
	case Exit:
		return "exit"
	default:
		return "none"
	}
}

type transition struct {
	kind  Kind
	start time.Time
}

// Timeline — набор переходов, ключ — id задачи. Время передаётся явно.
type Timeline struct {
	EntryDuration time.Duration
	ExitDuration  time.Duration

	mu     sync.Mutex
	active map[string]transition
}

func NewTimeline(entry, exit time.Duration) *Timeline {
	return &Timeline{
		EntryDuration: entry,
		ExitDuration:  exit,
		active:        make(map[string]transition),
	}
}

func (tl *Timeline) Enter(id string, now time.Time) {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	tl.active[id] = transition{kind: Entry, start: now}
}

// Exit запускает переход удаления. Идущий переход появления отменяется,
// повторный вызов не перезапускает уже идущее удаление.
func (tl *Timeline) Exit(id string, now time.Time) {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	if tr, ok := tl.active[id]; ok && tr.kind == Exit {
		return
	}
	tl.active[id] = transition{kind: Exit, start: now}
}

func (tl *Timeline) Cancel(id string) {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	delete(tl.active, id)
}

// Progress возвращает вид перехода и прогресс в [0,1].
func (tl *Timeline) Progress(id string, now time.Time) (Kind, float64) {
	tl.mu.Lock()
	defer tl.mu.Unlock()

	tr, ok := tl.active[id]
	if !ok {
		return None, 1
	}
	return tr.kind, tl.fraction(tr, now)
}

func (tl *Timeline) Active() bool {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	return len(tl.active) > 0
}

// Advance убирает завершённые переходы и возвращает id задач, чьё удаление доиграло.
func (tl *Timeline) Advance(now time.Time) []string {
	tl.mu.Lock()
	defer tl.mu.Unlock()

	var finished []string
	for id, tr := range tl.active {
		if tl.fraction(tr, now) < 1 {
			continue
		}
		delete(tl.active, id)
		if tr.kind == Exit {
			finished = append(finished, id)
		}
	}
	return finished
}

func (tl *Timeline) fraction(tr transition, now time.Time) float64 {
	d := tl.EntryDuration
	if tr.kind == Exit {
		d = tl.ExitDuration
	}
	if d <= 0 {
		return 1
	}
	p := float64(now.Sub(tr.start)) / float64(d)
	switch {
	case p < 0:
		return 0
	case p > 1:
		return 1
	}
	return p
}
