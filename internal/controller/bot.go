package controller

import (
	"context"

	"github.com/Freeeeeet/studio_booking/internal/controller/handlers"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

type BotController struct {
	bot      *bot.Bot
	handlers *handlers.Handlers
	logger   *zap.Logger
}

// NewBotController. Свободный текст должен быть подключён через
// bot.WithDefaultHandler(h.HandleTextMessage) при создании бота.
func NewBotController(
	botInstance *bot.Bot,
	h *handlers.Handlers,
	logger *zap.Logger,
) *BotController {
	return &BotController{
		bot:      botInstance,
		handlers: h,
		logger:   logger,
	}
}

// RegisterHandlers регистрирует все обработчики команд
func (c *BotController) RegisterHandlers(ctx context.Context) error {
	// /start booking_<id> приходит как префикс
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypePrefix, c.handlers.HandleStart)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/help", bot.MatchTypeExact, c.handlers.HandleHelp)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/cancel", bot.MatchTypeExact, c.handlers.HandleCancel)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/continue", bot.MatchTypeExact, c.handlers.HandleContinue)

	// Квитанция об оплате: фото или документ
	c.bot.RegisterHandlerMatchFunc(handlers.IsPaymentProof, c.handlers.HandlePaymentProof)

	// Обработчик нажатий на inline кнопки
	c.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "", bot.MatchTypePrefix, c.handlers.HandleCallbackQuery)

	// Устанавливаем меню команд
	return c.setCommands(ctx)
}

// setCommands устанавливает список команд в меню бота
func (c *BotController) setCommands(ctx context.Context) error {
	commands := []models.BotCommand{
		{Command: "start", Description: "🚀 Почати"},
		{Command: "help", Description: "❓ Довідка"},
		{Command: "continue", Description: "▶️ Продовжити вибір послуг"},
		{Command: "cancel", Description: "❌ Скасувати бронювання"},
	}

	_, err := c.bot.SetMyCommands(ctx, &bot.SetMyCommandsParams{
		Commands: commands,
	})

	if err != nil {
		c.logger.Error("Failed to set bot commands", zap.Error(err))
		return err
	}

	c.logger.Info("✅ Bot commands menu set")
	return nil
}

// Start запускает бота и блокируется до отмены ctx
func (c *BotController) Start(ctx context.Context) error {
	c.logger.Info("Starting bot...")
	c.bot.Start(ctx)
	return nil
}
