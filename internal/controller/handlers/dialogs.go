package handlers

import (
	"context"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// HandleTextMessage обрабатывает свободный текст как ответ в диалоге.
// Регистрируется как обработчик по умолчанию, поэтому команды сюда не попадают.
func (h *Handlers) HandleTextMessage(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil || update.Message.Text == "" {
		return
	}

	msg := update.Message
	if strings.HasPrefix(msg.Text, "/") {
		h.sendMessage(ctx, b, msg.Chat.ID, "❓ Невідома команда. Довідка: /help", nil)
		return
	}

	actor := h.actor(msg.From)
	prompt, err := h.engine.Answer(ctx, actor, msg.Text)
	if err != nil {
		h.logger.Error("Failed to handle answer",
			zap.Int64("telegram_id", actor.TelegramID),
			zap.Error(err),
		)
		h.sendError(ctx, b, msg.Chat.ID)
		return
	}

	h.reply(ctx, b, msg.Chat.ID, prompt)
}
