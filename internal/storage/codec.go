package storage

import (
	"bytes"
	"encoding/json"
	"fmt"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"

	"todo-list/internal/models"
)

// Схема сохранённого документа. Лишние поля допускаются,
// вместо "title" может стоять старое "text". Заголовок из одних пробелов
// схема пропускает, его отсекает models.Validate.
const tasksSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "array",
	"items": {
		"type": "object",
		"required": ["id"],
		"properties": {
			"id": {"type": "string", "minLength": 1},
			"title": {"type": "string", "minLength": 1},
			"text": {"type": "string", "minLength": 1},
			"description": {"type": "string"},
			"completed": {"type": "boolean"}
		},
		"anyOf": [
			{"required": ["title"]},
			{"required": ["text"]}
		]
	}
}`

var schema = jsonschema.MustCompileString("tasks.schema.json", tasksSchema)

// Encode сериализует весь список целиком.
func Encode(tasks []models.Task) ([]byte, error) {
	if tasks == nil {
		tasks = []models.Task{}
	}
	return json.Marshal(tasks)
}

// Decode разбирает документ и проверяет его по схеме.
func Decode(data []byte) ([]models.Task, error) {
	var doc interface{}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("документ не является JSON: %w", err)
	}

	if err := schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("документ не соответствует схеме: %w", err)
	}

	var tasks []models.Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		return nil, fmt.Errorf("ошибка разбора задач: %w", err)
	}

	seen := make(map[string]bool, len(tasks))
	for _, t := range tasks {
		if err := models.Validate(t); err != nil {
			return nil, fmt.Errorf("задача %q: пустой заголовок: %w", t.ID, err)
		}
		if seen[t.ID] {
			return nil, fmt.Errorf("повторяющийся id задачи %q", t.ID)
		}
		seen[t.ID] = true
	}
	return tasks, nil
}
