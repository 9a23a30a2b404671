package handlers

import (
	"context"
	"strings"

	"github.com/Freeeeeet/studio_booking/internal/controller/keyboard"
	"github.com/Freeeeeet/studio_booking/internal/dialog"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// HandleCallbackQuery распределяет нажатия inline кнопок
func (h *Handlers) HandleCallbackQuery(ctx context.Context, b *bot.Bot, update *models.Update) {
	callback := update.CallbackQuery
	if callback == nil {
		return
	}

	msg := callback.Message.Message
	if msg == nil {
		answerCallback(ctx, b, callback.ID, "")
		return
	}

	data := callback.Data
	actor := h.actor(&callback.From)

	h.logger.Info("Routing callback",
		zap.String("data", data),
		zap.Int64("user_id", actor.TelegramID),
	)

	var (
		prompt dialog.Prompt
		toast  string
		err    error
	)

	switch {
	case strings.HasPrefix(data, keyboard.Confirm):
		id, perr := keyboard.ParseID(data, keyboard.Confirm)
		if perr != nil {
			answerCallback(ctx, b, callback.ID, "")
			return
		}
		prompt, err = h.engine.Accept(ctx, id, actor)
		if err == nil && (prompt.Kind == dialog.KindAsk || prompt.Kind == dialog.KindAlreadyConfirmed) {
			removeKeyboard(ctx, b, msg)
			toast = "✅ Бронювання підтверджено!"
		}

	case strings.HasPrefix(data, keyboard.Cancel):
		id, perr := keyboard.ParseID(data, keyboard.Cancel)
		if perr != nil {
			answerCallback(ctx, b, callback.ID, "")
			return
		}
		prompt, err = h.engine.Cancel(ctx, actor, id)
		if err == nil && prompt.Kind != dialog.KindForbidden {
			removeKeyboard(ctx, b, msg)
		}

	case data == keyboard.DialogCancel:
		prompt, err = h.engine.Cancel(ctx, actor, 0)
		if err == nil {
			removeKeyboard(ctx, b, msg)
		}

	case strings.HasPrefix(data, keyboard.Answer):
		prompt, err = h.engine.Answer(ctx, actor, strings.TrimPrefix(data, keyboard.Answer))
		if err == nil && !prompt.Invalid {
			removeKeyboard(ctx, b, msg)
		}

	case strings.HasPrefix(data, keyboard.Pay):
		answerCallbackAlert(ctx, b, callback.ID, "💳 Онлайн оплата буде додана незабаром!")
		h.sendMessage(ctx, b, msg.Chat.ID,
			"💳 <b>Онлайн оплата</b>\n\n"+
				"Функція знаходиться в розробці.\n"+
				"Поки що використовуйте оплату за реквізитами вище.\n\n"+
				"Після оплати надішліть скріншот квитанції.", nil)
		return

	default:
		answerCallback(ctx, b, callback.ID, "")
		return
	}

	if err != nil {
		h.logger.Error("Failed to handle callback",
			zap.String("data", data),
			zap.Int64("telegram_id", actor.TelegramID),
			zap.Error(err),
		)
		answerCallbackAlert(ctx, b, callback.ID, "❌ Сталася помилка. Спробуйте пізніше.")
		return
	}

	answerCallback(ctx, b, callback.ID, toast)
	h.reply(ctx, b, msg.Chat.ID, prompt)
}
