// Package ui — терминальный интерфейс списка задач.
package ui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"todo-list/internal/animation"
	"todo-list/internal/manager"
	"todo-list/internal/models"
)

const frameInterval = 16 * time.Millisecond

var (
	headerStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	cursorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true)
	completedStyle = lipgloss.NewStyle().Strikethrough(true).Foreground(lipgloss.Color("241"))
	descStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	transientStyle = lipgloss.NewStyle().Faint(true)
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	helpStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type mode int

const (
	modeList mode = iota
	modeAdd
	modeEdit
)

type frameMsg time.Time

// Model — модель bubbletea. Состояние задач живёт в менеджере,
// здесь только курсор, поля ввода и кадры анимации.
type Model struct {
	tm      *manager.TaskManager
	now     func() time.Time
	mode    mode
	cursor  int
	title   textinput.Model
	desc    textinput.Model
	focus   int
	errMsg  string
	ticking bool
}

func NewModel(tm *manager.TaskManager) *Model {
	title := textinput.New()
	title.Placeholder = "Заголовок"
	title.CharLimit = 200

	desc := textinput.New()
	desc.Placeholder = "Описание (необязательно)"
	desc.CharLimit = 1000

	return &Model{
		tm:    tm,
		now:   time.Now,
		title: title,
		desc:  desc,
	}
}

// Run запускает интерфейс на весь экран.
func Run(ctx context.Context, tm *manager.TaskManager) error {
	if !IsTTY(os.Stdout) {
		return errors.New("интерфейсу нужен терминал")
	}
	program := tea.NewProgram(NewModel(tm), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := program.Run()
	return err
}

func (m *Model) Init() tea.Cmd {
	return m.startFrames()
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case frameMsg:
		m.tm.Advance(time.Time(msg))
		m.clampCursor()
		if m.tm.Animating() {
			return m, frameCmd()
		}
		m.ticking = false
		return m, nil
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.mode == modeList {
			return m.updateList(msg)
		}
		return m.updateForm(msg)
	}
	return m, nil
}

func (m *Model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	tasks := m.tm.GetAllTasks()
	m.errMsg = ""

	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(tasks)-1 {
			m.cursor++
		}
	case "a":
		d := m.tm.Draft()
		return m, m.openForm(modeAdd, d.Title, d.Description)
	case "e", "enter":
		if task, ok := m.selected(tasks); ok {
			if s, ok := m.tm.StartEdit(task.ID); ok {
				return m, m.openForm(modeEdit, s.Title, s.Description)
			}
		}
	case " ", "x":
		if task, ok := m.selected(tasks); ok {
			m.tm.ToggleCompletion(task.ID)
		}
	case "d", "delete":
		if task, ok := m.selected(tasks); ok {
			m.tm.DeleteTask(task.ID)
			m.clampCursor()
			return m, m.startFrames()
		}
	}
	return m, nil
}

func (m *Model) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		if m.mode == modeEdit {
			m.tm.CancelEdit()
		}
		m.closeForm()
		return m, nil
	case "tab", "shift+tab":
		m.switchFocus()
		return m, nil
	case "enter":
		return m, m.submit()
	}

	var cmd tea.Cmd
	if m.focus == 0 {
		m.title, cmd = m.title.Update(msg)
	} else {
		m.desc, cmd = m.desc.Update(msg)
	}
	m.pushFields()
	return m, cmd
}

// pushFields передаёт текст полей в менеджер без проверки.
func (m *Model) pushFields() {
	switch m.mode {
	case modeAdd:
		m.tm.SetDraftTitle(m.title.Value())
		m.tm.SetDraftDescription(m.desc.Value())
	case modeEdit:
		m.tm.SetEditTitle(m.title.Value())
		m.tm.SetEditDescription(m.desc.Value())
	}
}

func (m *Model) submit() tea.Cmd {
	var err error
	switch m.mode {
	case modeAdd:
		_, err = m.tm.SubmitDraft()
		if err == nil {
			m.cursor = len(m.tm.GetAllTasks()) - 1
		}
	case modeEdit:
		_, err = m.tm.CommitEdit()
	}

	if errors.Is(err, manager.ErrValidation) {
		m.errMsg = "Заголовок не может быть пустым"
		return nil
	}
	m.closeForm()
	if err != nil {
		// сессия пропала, например задачу удалили
		m.errMsg = err.Error()
	}
	return m.startFrames()
}

func (m *Model) openForm(md mode, title, desc string) tea.Cmd {
	m.mode = md
	m.errMsg = ""
	m.title.SetValue(title)
	m.desc.SetValue(desc)
	m.focus = 0
	m.desc.Blur()
	return m.title.Focus()
}

func (m *Model) closeForm() {
	m.mode = modeList
	m.title.Blur()
	m.desc.Blur()
}

func (m *Model) switchFocus() {
	if m.focus == 0 {
		m.focus = 1
		m.title.Blur()
		m.desc.Focus()
		return
	}
	m.focus = 0
	m.desc.Blur()
	m.title.Focus()
}

func (m *Model) startFrames() tea.Cmd {
	if m.ticking || !m.tm.Animating() {
		return nil
	}
	m.ticking = true
	return frameCmd()
}

func frameCmd() tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg {
		return frameMsg(t)
	})
}

func (m *Model) selected(tasks []models.Task) (models.Task, bool) {
	if m.cursor < 0 || m.cursor >= len(tasks) {
		return models.Task{}, false
	}
	return tasks[m.cursor], true
}

func (m *Model) clampCursor() {
	n := len(m.tm.GetAllTasks())
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m *Model) View() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Список дел"))
	b.WriteString("\n\n")

	tasks := m.tm.GetAllTasks()
	if len(tasks) == 0 {
		b.WriteString(descStyle.Render("Задач нет. Нажмите a, чтобы добавить."))
		b.WriteString("\n")
	}

	now := m.now()
	for i, task := range tasks {
		kind, p := m.tm.Progress(task.ID, now)
		b.WriteString(renderTask(task, i == m.cursor && m.mode == modeList, kind, p))
		b.WriteString("\n")
	}

	switch m.mode {
	case modeAdd:
		writeForm(&b, "Новая задача", m.title.View(), m.desc.View())
	case modeEdit:
		writeForm(&b, "Редактирование", m.title.View(), m.desc.View())
	}

	if m.errMsg != "" {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render(m.errMsg))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render(m.help()))
	return b.String()
}

// renderTask рисует строку задачи. Появление сдвигает строку слева к месту,
// удаление уводит её вправо.
func renderTask(task models.Task, selected bool, kind animation.Kind, p float64) string {
	check := "[ ]"
	if task.Completed {
		check = "[x]"
	}

	line := fmt.Sprintf("%s %s", check, task.Title)
	if task.Completed {
		line = completedStyle.Render(line)
	}
	if task.Description != "" {
		line += " " + descStyle.Render("— "+task.Description)
	}

	prefix := "  "
	if selected {
		prefix = cursorStyle.Render("> ")
	}

	switch kind {
	case animation.Entry:
		shift := int((1 - p) * 6)
		return prefix + strings.Repeat(" ", shift) + transientStyle.Render(line)
	case animation.Exit:
		shift := int(p * 24)
		return prefix + strings.Repeat(" ", shift) + transientStyle.Render(line)
	}
	return prefix + line
}

func writeForm(b *strings.Builder, header, title, desc string) {
	b.WriteString("\n")
	b.WriteString(headerStyle.Render(header))
	b.WriteString("\n")
	b.WriteString(title)
	b.WriteString("\n")
	b.WriteString(desc)
	b.WriteString("\n")
}

func (m *Model) help() string {
	if m.mode == modeList {
		return "a: добавить  e: изменить  space: выполнено  d: удалить  q: выход"
	}
	return "enter: сохранить  tab: следующее поле  esc: отмена"
}

// IsTTY returns true if stdout is a terminal.
func IsTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
