// Package export выгружает список задач в JSON, CSV или PDF.
package export

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strconv"

	"github.com/jung-kurt/gofpdf"

	"todo-list/internal/logger"
	"todo-list/internal/models"
)

const (
	FormatJSON = "json"
	FormatCSV  = "csv"
	FormatPDF  = "pdf"
)

type options struct {
	fontPath string
}

type Option func(*options)

// WithFont задаёт TTF-шрифт для PDF. Без него доступна только латиница (cp1252).
func WithFont(path string) Option {
	return func(o *options) { o.fontPath = path }
}

func Write(w io.Writer, format string, tasks []models.Task, opts ...Option) error {
	switch format {
	case FormatJSON:
		return WriteJSON(w, tasks)
	case FormatCSV:
		return WriteCSV(w, tasks)
	case FormatPDF:
		return WritePDF(w, tasks, opts...)
	default:
		return fmt.Errorf("неподдерживаемый формат %q", format)
	}
}

func WriteJSON(w io.Writer, tasks []models.Task) error {
	if tasks == nil {
		tasks = []models.Task{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(tasks)
}

func WriteCSV(w io.Writer, tasks []models.Task) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"id", "title", "description", "completed"}); err != nil {
		return err
	}
	for _, t := range tasks {
		record := []string{t.ID, t.Title, t.Description, strconv.FormatBool(t.Completed)}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV читает файл в формате WriteCSV.
func ReadCSV(r io.Reader) ([]models.Task, error) {
	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	var tasks []models.Task
	for i, rec := range records[1:] {
		if len(rec) != 4 {
			return nil, fmt.Errorf("строка %d: ожидалось 4 поля, получено %d", i+2, len(rec))
		}
		completed, err := strconv.ParseBool(rec[3])
		if err != nil {
			return nil, fmt.Errorf("строка %d: %w", i+2, err)
		}
		tasks = append(tasks, models.Task{ID: rec[0], Title: rec[1], Description: rec[2], Completed: completed})
	}
	return tasks, nil
}

func WritePDF(w io.Writer, tasks []models.Task, opts ...Option) error {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	// gofpdf ищет файлы шрифтов относительно каталога из New
	pdf := gofpdf.New("P", "mm", "A4", filepath.Dir(o.fontPath))
	family := "Arial"
	tr := func(s string) string { return s }

	if o.fontPath != "" {
		family = "body"
		pdf.AddUTF8Font(family, "", filepath.Base(o.fontPath))
		pdf.AddUTF8Font(family, "B", filepath.Base(o.fontPath))
		if err := pdf.Error(); err != nil {
			return fmt.Errorf("ошибка загрузки шрифта %s: %w", o.fontPath, err)
		}
	} else {
		if needsUnicodeFont(tasks) {
			logger.Warn(context.Background(), "В задачах есть символы вне cp1252, без шрифта они будут искажены; задайте export.font")
		}
		tr = pdf.UnicodeTranslatorFromDescriptor("")
	}

	pdf.AddPage()
	pdf.SetFont(family, "B", 14)
	pdf.Cell(40, 10, "To-do list")
	pdf.Ln(12)

	pdf.SetFont(family, "", 10)
	if len(tasks) == 0 {
		pdf.Cell(40, 6, "No tasks")
	}
	for i, t := range tasks {
		mark := "[ ]"
		if t.Completed {
			mark = "[x]"
		}
		line := fmt.Sprintf("%d. %s %s", i+1, mark, t.Title)
		if t.Description != "" {
			line += " - " + t.Description
		}
		pdf.MultiCell(0, 6, tr(line), "0", "L", false)
	}

	return pdf.Output(w)
}

// needsUnicodeFont сообщает, есть ли в задачах символы, которых нет во встроенных шрифтах.
func needsUnicodeFont(tasks []models.Task) bool {
	for _, t := range tasks {
		for _, r := range t.Title + t.Description {
			if r > 0xFF {
				return true
			}
		}
	}
	return false
}
