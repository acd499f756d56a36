package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"todo-list/internal/app"
	"todo-list/internal/config"
	"todo-list/internal/export"
	"todo-list/internal/manager"
	"todo-list/internal/models"
	"todo-list/internal/storage"
)

func main() {
	if len(os.Args) < 2 {
		printHelp()
		os.Exit(1)
	}

	ctx := context.Background()
	cfg, err := config.Load(os.Getenv("TODO_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	a, err := app.New(ctx, cfg, false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading tasks: %v\n", err)
		os.Exit(1)
	}

	tm := a.Manager
	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "add":
		err = handleAddCommand(tm, args)
	case "list":
		err = handleListCommand(tm, args)
	case "toggle", "complete":
		err = handleToggleCommand(tm, args)
	case "edit":
		err = handleEditCommand(tm, args)
	case "delete":
		err = handleDeleteCommand(tm, args)
	case "export":
		err = handleExportCommand(tm, args, cfg.Export.Font)
	case "load":
		err = handleLoadCommand(tm, args)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printHelp()
		os.Exit(1)
	}

	closeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if cerr := a.Close(closeCtx); cerr != nil {
		fmt.Fprintf(os.Stderr, "Error saving tasks: %v\n", cerr)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func handleAddCommand(tm *manager.TaskManager, args []string) error {
	addCmd := flag.NewFlagSet("add", flag.ExitOnError)
	title := addCmd.String("title", "", "Task title")
	desc := addCmd.String("desc", "", "Task description")
	addCmd.Parse(args)

	task, err := tm.AddTask(*title, *desc)
	if err != nil {
		return err
	}

	fmt.Printf("Added task %d: %s\n", len(tm.GetAllTasks()), task.Title)
	return nil
}

func handleListCommand(tm *manager.TaskManager, args []string) error {
	listCmd := flag.NewFlagSet("list", flag.ExitOnError)
	verbose := listCmd.Bool("v", false, "Show task ids")
	listCmd.Parse(args)

	tasks := tm.GetAllTasks()
	if len(tasks) == 0 {
		fmt.Println("No tasks found")
		return nil
	}

	for i, task := range tasks {
		status := "Pending"
		if task.Completed {
			status = "Completed"
		}
		line := fmt.Sprintf("%d: %s [%s]", i+1, task.Title, status)
		if task.Description != "" {
			line += " - " + task.Description
		}
		if *verbose {
			line += " (" + task.ID + ")"
		}
		fmt.Println(line)
	}
	return nil
}

func handleToggleCommand(tm *manager.TaskManager, args []string) error {
	toggleCmd := flag.NewFlagSet("toggle", flag.ExitOnError)
	ref := toggleCmd.String("id", "", "Task number from list, or task id")
	toggleCmd.Parse(args)

	id, err := resolveID(tm, *ref)
	if err != nil {
		return err
	}

	task, _ := tm.ToggleCompletion(id)
	if task.Completed {
		fmt.Printf("Task %q marked as completed\n", task.Title)
	} else {
		fmt.Printf("Task %q marked as pending\n", task.Title)
	}
	return nil
}

func handleEditCommand(tm *manager.TaskManager, args []string) error {
	editCmd := flag.NewFlagSet("edit", flag.ExitOnError)
	ref := editCmd.String("id", "", "Task number from list, or task id")
	title := editCmd.String("title", "", "New title (keeps current if empty)")
	desc := editCmd.String("desc", "", "New description")
	editCmd.Parse(args)

	id, err := resolveID(tm, *ref)
	if err != nil {
		return err
	}

	if _, ok := tm.StartEdit(id); !ok {
		return manager.ErrNotFound
	}
	if *title != "" {
		tm.SetEditTitle(*title)
	}
	// -desc задан явно, даже пустой
	editCmd.Visit(func(f *flag.Flag) {
		if f.Name == "desc" {
			tm.SetEditDescription(*desc)
		}
	})

	task, err := tm.CommitEdit()
	if err != nil {
		tm.CancelEdit()
		return err
	}
	fmt.Printf("Task updated: %s\n", task.Title)
	return nil
}

func handleDeleteCommand(tm *manager.TaskManager, args []string) error {
	deleteCmd := flag.NewFlagSet("delete", flag.ExitOnError)
	ref := deleteCmd.String("id", "", "Task number from list, or task id")
	deleteCmd.Parse(args)

	id, err := resolveID(tm, *ref)
	if err != nil {
		return err
	}

	tm.DeleteTask(id)
	fmt.Println("Task deleted")
	return nil
}

func handleExportCommand(tm *manager.TaskManager, args []string, defaultFont string) error {
	exportCmd := flag.NewFlagSet("export", flag.ExitOnError)
	format := exportCmd.String("format", "json", "Export format (json|csv|pdf)")
	outFile := exportCmd.String("out", "", "Output file path")
	font := exportCmd.String("font", defaultFont, "TTF font for PDF (needed for non-Latin text)")
	exportCmd.Parse(args)

	if *outFile == "" {
		return errors.New("--out is required")
	}

	f, err := os.Create(*outFile)
	if err != nil {
		return err
	}
	defer f.Close()

	var opts []export.Option
	if *font != "" {
		opts = append(opts, export.WithFont(*font))
	}
	if err := export.Write(f, *format, tm.GetAllTasks(), opts...); err != nil {
		return err
	}

	fmt.Printf("Tasks exported to %s in %s format\n", *outFile, *format)
	return nil
}

func handleLoadCommand(tm *manager.TaskManager, args []string) error {
	loadCmd := flag.NewFlagSet("load", flag.ExitOnError)
	file := loadCmd.String("file", "", "File to load tasks from")
	loadCmd.Parse(args)

	if *file == "" {
		return errors.New("--file is required")
	}

	f, err := os.Open(*file)
	if err != nil {
		return err
	}
	defer f.Close()

	var tasks []models.Task
	switch {
	case strings.HasSuffix(*file, ".json"):
		var data []byte
		if data, err = io.ReadAll(f); err == nil {
			tasks, err = storage.Decode(data)
		}
	case strings.HasSuffix(*file, ".csv"):
		tasks, err = export.ReadCSV(f)
	default:
		return errors.New("unsupported file format, use .json or .csv")
	}
	if err != nil {
		return err
	}

	if err := replaceTasks(tm, tasks); err != nil {
		return err
	}

	fmt.Printf("Loaded %d tasks from %s\n", len(tasks), *file)
	return nil
}

// replaceTasks заменяет список загруженным. Сначала проверяются все строки:
// при ошибке текущий список не трогается.
func replaceTasks(tm *manager.TaskManager, tasks []models.Task) error {
	for i, task := range tasks {
		if err := models.Validate(task); err != nil {
			return fmt.Errorf("%w: строка %d: заголовок задачи обязателен", manager.ErrValidation, i+1)
		}
	}

	// Очищаем текущие задачи
	for _, task := range tm.GetAllTasks() {
		tm.DeleteTask(task.ID)
	}

	// Добавляем загруженные задачи, id выдаются заново
	for _, task := range tasks {
		added, err := tm.AddTask(task.Title, task.Description)
		if err != nil {
			return err
		}
		if task.Completed {
			tm.ToggleCompletion(added.ID)
		}
	}
	return nil
}

// resolveID принимает номер из list (с 1) или полный id.
func resolveID(tm *manager.TaskManager, ref string) (string, error) {
	if ref == "" {
		return "", errors.New("--id is required")
	}

	tasks := tm.GetAllTasks()
	if n, err := strconv.Atoi(ref); err == nil {
		if n < 1 || n > len(tasks) {
			return "", fmt.Errorf("task %d not found", n)
		}
		return tasks[n-1].ID, nil
	}

	if _, ok := tm.GetTask(ref); !ok {
		return "", fmt.Errorf("task %s not found", ref)
	}
	return ref, nil
}

func printHelp() {
	fmt.Println(`Usage: todo-app <command> [flags]

Commands:
  add      --title="..." [--desc="..."]        Add new task
  list     [-v]                                List tasks
  toggle   --id=N                              Toggle completion
  edit     --id=N [--title="..."] [--desc=""]  Edit title/description
  delete   --id=N                              Delete task
  export   --format=json|csv|pdf --out=FILE    Export tasks
           [--font=FILE.ttf]                   TTF font for PDF with Cyrillic
  load     --file=FILE                         Replace tasks from .json or .csv

Storage:
  Tasks are saved as one record in the configured key-value store
  (see ~/.config/todo-list/config.toml and TODO_* environment variables).`)
}
