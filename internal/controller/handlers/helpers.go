package handlers

import (
	"context"

	"github.com/Freeeeeet/studio_booking/internal/model"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// actor строит инициатора действия по пользователю Telegram
func (h *Handlers) actor(user *models.User) model.Actor {
	return model.Actor{
		TelegramID: user.ID,
		Username:   user.Username,
		Admin:      h.adminIDs[user.ID],
	}
}

// sendMessage отправляет сообщение и логирует если не удалось
func (h *Handlers) sendMessage(ctx context.Context, b *bot.Bot, chatID int64, text string, markup *models.InlineKeyboardMarkup) {
	params := &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
	}
	if markup != nil {
		params.ReplyMarkup = markup
	}

	_, err := b.SendMessage(ctx, params)
	if err != nil {
		h.logger.Error("Failed to send message",
			zap.Int64("chat_id", chatID),
			zap.Error(err),
		)
	}
}

// sendError сообщение о внутренней ошибке
func (h *Handlers) sendError(ctx context.Context, b *bot.Bot, chatID int64) {
	h.sendMessage(ctx, b, chatID, "❌ Сталася помилка. Спробуйте пізніше.", nil)
}

// answerCallback отвечает на callback query (без alert)
func answerCallback(ctx context.Context, b *bot.Bot, callbackID, text string) {
	b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: callbackID,
		Text:            text,
	})
}

// answerCallbackAlert отвечает на callback query с alert (всплывающее окно)
func answerCallbackAlert(ctx context.Context, b *bot.Bot, callbackID, text string) {
	b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: callbackID,
		Text:            text,
		ShowAlert:       true,
	})
}

// removeKeyboard убирает кнопки у сообщения, на которое уже ответили
func removeKeyboard(ctx context.Context, b *bot.Bot, msg *models.Message) {
	if msg == nil {
		return
	}
	b.EditMessageReplyMarkup(ctx, &bot.EditMessageReplyMarkupParams{
		ChatID:    msg.Chat.ID,
		MessageID: msg.ID,
	})
}
