package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"

	"todo-list/internal/app"
	"todo-list/internal/config"
	"todo-list/internal/logger"
	"todo-list/internal/manager"
)

// sender — часть BotAPI, которой пользуется бот
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type Bot struct {
	api         sender
	taskManager *manager.TaskManager
}

func NewBot(api sender, tm *manager.TaskManager) *Bot {
	return &Bot{
		api:         api,
		taskManager: tm,
	}
}

func (b *Bot) Start(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	logger.Info(ctx, "Бот запущен и слушает сообщения...")

	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message == nil {
				continue
			}
			b.handleMessage(ctx, update.Message)
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	user := ""
	if msg.From != nil {
		user = msg.From.UserName
	}
	logger.Info(ctx, "Получено сообщение",
		"user", user,
		"text", msg.Text,
	)

	// Обрабатываем команды
	if msg.IsCommand() {
		b.handleCommand(msg)
		return
	}

	// Обычный текст сразу становится задачей
	if strings.TrimSpace(msg.Text) != "" {
		b.addTaskFromText(msg.Chat.ID, msg.Text)
	}
}

func (b *Bot) handleCommand(msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start", "help":
		b.sendHelp(msg.Chat.ID)
	case "add":
		b.addTask(msg)
	case "list":
		b.listTasks(msg.Chat.ID)
	case "done":
		b.toggleTask(msg)
	case "edit":
		b.editTask(msg)
	case "delete":
		b.deleteTask(msg)
	default:
		b.sendMessage(msg.Chat.ID, "Неизвестная команда. Используйте /help для списка команд.")
	}
}

func (b *Bot) addTask(msg *tgbotapi.Message) {
	args := msg.CommandArguments()
	if args == "" {
		b.sendMessage(msg.Chat.ID, "Укажите задачу после команды: /add Купить молоко | 2 литра")
		return
	}

	b.addTaskFromText(msg.Chat.ID, args)
}

func (b *Bot) addTaskFromText(chatID int64, text string) {
	title, description := splitTaskText(text)

	task, err := b.taskManager.AddTask(title, description)
	if err != nil {
		b.sendMessage(chatID, "❌ Ошибка: "+err.Error())
		return
	}

	response := fmt.Sprintf("✅ *Задача добавлена!*\n\nНомер: %d\nЗадача: %s", len(b.taskManager.GetAllTasks()), task.Title)
	if task.Description != "" {
		response += "\nОписание: " + task.Description
	}
	b.sendMessage(chatID, response)
}

func (b *Bot) listTasks(chatID int64) {
	tasks := b.taskManager.GetAllTasks()

	if len(tasks) == 0 {
		b.sendMessage(chatID, "📭 Список задач пуст")
		return
	}

	var response strings.Builder
	response.WriteString("📋 *Ваши задачи:*\n\n")

	for i, task := range tasks {
		status := "🟢"
		if task.Completed {
			status = "✅"
		}
		if b.taskManager.Deleting(task.ID) {
			status = "🗑️"
		}

		response.WriteString(fmt.Sprintf("%s %d. %s", status, i+1, task.Title))
		if task.Description != "" {
			response.WriteString(" — " + task.Description)
		}
		response.WriteString("\n")
	}

	b.sendMessage(chatID, response.String())
}

func (b *Bot) toggleTask(msg *tgbotapi.Message) {
	id, n, err := b.resolvePosition(msg.CommandArguments())
	if err != nil {
		b.sendMessage(msg.Chat.ID, err.Error()+": /done 1")
		return
	}

	task, ok := b.taskManager.ToggleCompletion(id)
	if !ok {
		b.sendMessage(msg.Chat.ID, "❌ Задача уже удалена")
		return
	}

	if task.Completed {
		b.sendMessage(msg.Chat.ID, fmt.Sprintf("✅ Задача %d отмечена выполненной!", n))
	} else {
		b.sendMessage(msg.Chat.ID, fmt.Sprintf("🔄 Задача %d снова в работе", n))
	}
}

func (b *Bot) editTask(msg *tgbotapi.Message) {
	args := strings.TrimSpace(msg.CommandArguments())
	num, rest, _ := strings.Cut(args, " ")

	id, n, err := b.resolvePosition(num)
	if err != nil {
		b.sendMessage(msg.Chat.ID, err.Error()+": /edit 1 Новый заголовок | описание")
		return
	}

	if _, ok := b.taskManager.StartEdit(id); !ok {
		b.sendMessage(msg.Chat.ID, "❌ Эту задачу нельзя изменить")
		return
	}
	// без "|" описание остаётся прежним
	title, description := splitTaskText(rest)
	b.taskManager.SetEditTitle(title)
	if strings.Contains(rest, "|") {
		b.taskManager.SetEditDescription(description)
	}

	if _, err := b.taskManager.CommitEdit(); err != nil {
		b.taskManager.CancelEdit()
		b.sendMessage(msg.Chat.ID, "❌ Ошибка: "+err.Error())
		return
	}
	b.sendMessage(msg.Chat.ID, fmt.Sprintf("✏️ Задача %d изменена", n))
}

func (b *Bot) deleteTask(msg *tgbotapi.Message) {
	id, n, err := b.resolvePosition(msg.CommandArguments())
	if err != nil {
		b.sendMessage(msg.Chat.ID, err.Error()+": /delete 1")
		return
	}

	b.taskManager.DeleteTask(id)
	b.sendMessage(msg.Chat.ID, fmt.Sprintf("🗑️ Задача %d удалена!", n))
}

// resolvePosition переводит номер из /list в id задачи.
func (b *Bot) resolvePosition(arg string) (string, int, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return "", 0, errors.New("Укажите номер задачи")
	}

	n, err := strconv.Atoi(arg)
	if err != nil {
		return "", 0, errors.New("Номер задачи должен быть числом")
	}

	tasks := b.taskManager.GetAllTasks()
	if n < 1 || n > len(tasks) {
		return "", 0, errors.New("Нет задачи с таким номером")
	}
	return tasks[n-1].ID, n, nil
}

// splitTaskText делит "заголовок | описание".
func splitTaskText(text string) (string, string) {
	title, description, _ := strings.Cut(text, "|")
	return strings.TrimSpace(title), strings.TrimSpace(description)
}

func (b *Bot) sendHelp(chatID int64) {
	helpText := `🤖 *Помощь по командам*

*/add [задача] | [описание]* - Добавить новую задачу
*/list* - Показать все задачи
*/done [номер]* - Отметить задачу выполненной (повторно - вернуть в работу)
*/edit [номер] [задача] | [описание]* - Изменить задачу (без | описание не меняется)
*/delete [номер]* - Удалить задачу
*/help* - Показать эту справку

*Примеры использования:*
/add Купить молоко | 2 литра
/done 1
/list`

	b.sendMessage(chatID, helpText)
}

func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = "Markdown"

	if _, err := b.api.Send(msg); err != nil {
		logger.Error(context.Background(), err, "Ошибка отправки сообщения", "chat", chatID)
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg, err := config.Load(os.Getenv("TODO_CONFIG"))
	if err != nil {
		logger.Error(ctx, err, "Ошибка загрузки конфигурации")
		os.Exit(1)
	}
	if cfg.Telegram.Token == "" {
		logger.Error(ctx, nil, "Не задан токен бота (telegram.token или TODO_TELEGRAM_TOKEN)")
		os.Exit(1)
	}

	logger.Info(ctx, "Запуск Telegram-бота...")

	a, err := app.New(ctx, cfg, true)
	if err != nil {
		logger.Error(ctx, err, "Ошибка инициализации хранилища")
		os.Exit(1)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.Close(closeCtx); err != nil {
			logger.Error(closeCtx, err, "Ошибка закрытия хранилища")
		}
	}()

	go a.Manager.Run(ctx, 50*time.Millisecond)

	api, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		logger.Error(ctx, err, "Ошибка создания бота")
		return
	}
	api.Debug = cfg.Log.Level == "debug"
	logger.Info(ctx, "Авторизован", "bot", api.Self.UserName)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates, err := api.GetUpdatesChan(u)
	if err != nil {
		logger.Error(ctx, err, "Ошибка получения updates")
		return
	}

	NewBot(api, a.Manager).Start(ctx, updates)
}
