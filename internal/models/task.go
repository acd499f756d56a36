package models

import "encoding/json"

// Task — одна запись списка дел. Порядок задач задаёт список, а не поле.
type Task struct {
	ID          string `json:"id"`
	Title       string `json:"title" validate:"notblank"`
	Description string `json:"description"`
	Completed   bool   `json:"completed"`
}

// UnmarshalJSON принимает и старое имя поля "text" вместо "title".
func (t *Task) UnmarshalJSON(data []byte) error {
	type plain Task
	var raw struct {
		plain
		Text *string `json:"text,omitempty"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*t = Task(raw.plain)
	if t.Title == "" && raw.Text != nil {
		t.Title = *raw.Text
	}
	return nil
}

// Структура HTTP-запроса на создание задачи
type CreateTaskRequest struct {
	Title       string `json:"title" validate:"notblank"`
	Description string `json:"description"`
}

// EditFieldsRequest перезаписывает черновые поля редактирования. nil — поле не трогаем.
type EditFieldsRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
}
