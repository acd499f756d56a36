// Package server отдаёт операции менеджера задач по HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"todo-list/internal/logger"
	"todo-list/internal/manager"
	"todo-list/internal/models"
)

type taskView struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Completed   bool   `json:"completed"`
	Deleting    bool   `json:"deleting,omitempty"`
}

func newTaskView(t models.Task, deleting bool) taskView {
	return taskView{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Completed:   t.Completed,
		Deleting:    deleting,
	}
}

type editView struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// NewRouter собирает маршруты. limiter=nil отключает ограничение частоты.
func NewRouter(tm *manager.TaskManager, limiter *rate.Limiter) *chi.Mux {
	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		if limiter != nil {
			r.Use(rateLimiter(limiter))
		}

		r.Get("/tasks", listTasksHandler(tm))
		r.Post("/tasks", addTaskHandler(tm))
		r.Post("/tasks/{id}/toggle", toggleTaskHandler(tm))
		r.Delete("/tasks/{id}", deleteTaskHandler(tm))

		r.Get("/edit", getEditHandler(tm))
		r.Patch("/edit", setEditFieldsHandler(tm))
		r.Delete("/edit", cancelEditHandler(tm))
		r.Post("/edit/commit", commitEditHandler(tm))
		r.Post("/edit/{id}", startEditHandler(tm))
	})

	r.Handle("/metrics", promhttp.Handler())
	return r
}

func rateLimiter(limiter *rate.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				writeError(w, http.StatusTooManyRequests, "слишком много запросов, попробуйте позже")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func listTasksHandler(tm *manager.TaskManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tasks := tm.GetAllTasks()
		views := make([]taskView, 0, len(tasks))
		for _, t := range tasks {
			views = append(views, newTaskView(t, tm.Deleting(t.ID)))
		}
		writeJSON(w, http.StatusOK, views)
	}
}

func addTaskHandler(tm *manager.TaskManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.CreateTaskRequest

		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "некорректный JSON")
			return
		}
		defer r.Body.Close()

		task, err := tm.AddTask(req.Title, req.Description)
		if err != nil {
			writeManagerError(w, r, err)
			return
		}

		writeJSON(w, http.StatusCreated, newTaskView(task, false))
	}
}

func toggleTaskHandler(tm *manager.TaskManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		task, ok := tm.ToggleCompletion(chi.URLParam(r, "id"))
		if !ok {
			writeError(w, http.StatusNotFound, manager.ErrNotFound.Error())
			return
		}
		writeJSON(w, http.StatusOK, newTaskView(task, tm.Deleting(task.ID)))
	}
}

func deleteTaskHandler(tm *manager.TaskManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if !tm.DeleteTask(id) {
			writeError(w, http.StatusNotFound, manager.ErrNotFound.Error())
			return
		}
		// 202: задача исчезнет, когда доиграет анимация удаления
		if tm.Deleting(id) {
			w.WriteHeader(http.StatusAccepted)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func getEditHandler(tm *manager.TaskManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := tm.EditSession()
		if s == nil {
			writeError(w, http.StatusNotFound, manager.ErrNoEdit.Error())
			return
		}
		writeJSON(w, http.StatusOK, editView(*s))
	}
}

func startEditHandler(tm *manager.TaskManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := tm.StartEdit(chi.URLParam(r, "id"))
		if !ok {
			writeError(w, http.StatusNotFound, manager.ErrNotFound.Error())
			return
		}
		writeJSON(w, http.StatusOK, editView(s))
	}
}

func setEditFieldsHandler(tm *manager.TaskManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.EditFieldsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "некорректный JSON")
			return
		}
		defer r.Body.Close()

		if tm.EditSession() == nil {
			writeError(w, http.StatusConflict, manager.ErrNoEdit.Error())
			return
		}
		if req.Title != nil {
			tm.SetEditTitle(*req.Title)
		}
		if req.Description != nil {
			tm.SetEditDescription(*req.Description)
		}

		s := tm.EditSession()
		if s == nil {
			writeError(w, http.StatusConflict, manager.ErrNoEdit.Error())
			return
		}
		writeJSON(w, http.StatusOK, editView(*s))
	}
}

func commitEditHandler(tm *manager.TaskManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		task, err := tm.CommitEdit()
		if err != nil {
			writeManagerError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, newTaskView(task, false))
	}
}

func cancelEditHandler(tm *manager.TaskManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tm.CancelEdit()
		w.WriteHeader(http.StatusNoContent)
	}
}

func writeManagerError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, manager.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, manager.ErrNoEdit):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, manager.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		logger.Error(r.Context(), err, "Необработанная ошибка", "path", r.URL.Path)
		writeError(w, http.StatusInternalServerError, "внутренняя ошибка")
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error(context.Background(), err, "Ошибка записи ответа")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
