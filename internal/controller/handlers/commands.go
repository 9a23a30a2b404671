package handlers

import (
	"context"
	"strconv"
	"strings"

	"github.com/Freeeeeet/studio_booking/internal/dialog"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// deepLinkPrefix параметр ссылки t.me/<bot>?start=booking_<id>
const deepLinkPrefix = "booking_"

// HandleStart обрабатывает команду /start и переход по ссылке бронирования
func (h *Handlers) HandleStart(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}

	msg := update.Message
	actor := h.actor(msg.From)

	if bookingID, ok := parseDeepLink(msg.Text); ok {
		prompt, err := h.engine.StartConfirmation(ctx, bookingID, actor)
		if err != nil {
			h.logger.Error("Failed to open booking",
				zap.Int64("booking_id", bookingID),
				zap.Int64("telegram_id", actor.TelegramID),
				zap.Error(err),
			)
			h.sendError(ctx, b, msg.Chat.ID)
			return
		}
		h.reply(ctx, b, msg.Chat.ID, prompt)
		return
	}

	if actor.Admin {
		h.sendMessage(ctx, b, msg.Chat.ID,
			"👋 Вітаю, адміне!\n\n"+
				"Ви будете отримувати сповіщення про всі бронювання.\n\n"+
				"Команди:\n"+
				"/start - це повідомлення\n"+
				"/help - довідка", nil)
		return
	}

	h.sendMessage(ctx, b, msg.Chat.ID,
		"👋 Вітаємо у фотостудії!\n\n"+
			"Щоб забронювати час, створіть бронювання на нашому сайті, "+
			"а потім перейдіть за посиланням у цей бот.", nil)
}

// HandleHelp обрабатывает команду /help
func (h *Handlers) HandleHelp(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}

	h.sendMessage(ctx, b, update.Message.Chat.ID,
		"ℹ️ <b>Довідка</b>\n\n"+
			"Цей бот допомагає підтвердити бронювання фотостудії.\n\n"+
			"<b>Як працює:</b>\n"+
			"1. Створіть бронювання на сайті\n"+
			"2. Перейдіть в цей бот за посиланням\n"+
			"3. Підтвердіть бронювання\n"+
			"4. Оберіть послуги\n"+
			"5. Оплатіть за реквізитами\n"+
			"6. Надішліть квитанцію\n\n"+
			"/continue - продовжити вибір послуг\n"+
			"/cancel - скасувати бронювання", nil)
}

// HandleCancel обрабатывает команду /cancel
func (h *Handlers) HandleCancel(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}

	actor := h.actor(update.Message.From)
	prompt, err := h.engine.Cancel(ctx, actor, 0)
	if err != nil {
		h.logger.Error("Failed to cancel booking", zap.Int64("telegram_id", actor.TelegramID), zap.Error(err))
		h.sendError(ctx, b, update.Message.Chat.ID)
		return
	}

	h.reply(ctx, b, update.Message.Chat.ID, prompt)
}

// HandleContinue обрабатывает команду /continue
func (h *Handlers) HandleContinue(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}

	actor := h.actor(update.Message.From)
	prompt, err := h.engine.Resume(ctx, actor)
	if err != nil {
		h.logger.Error("Failed to resume conversation", zap.Int64("telegram_id", actor.TelegramID), zap.Error(err))
		h.sendError(ctx, b, update.Message.Chat.ID)
		return
	}

	h.reply(ctx, b, update.Message.Chat.ID, prompt)
}

func (h *Handlers) reply(ctx context.Context, b *bot.Bot, chatID int64, prompt dialog.Prompt) {
	text, markup := h.renderer.Render(prompt)
	h.sendMessage(ctx, b, chatID, text, markup)
}

// parseDeepLink извлекает ID из "/start booking_123"
func parseDeepLink(text string) (int64, bool) {
	fields := strings.Fields(text)
	if len(fields) < 2 {
		return 0, false
	}

	raw, ok := strings.CutPrefix(fields[1], deepLinkPrefix)
	if !ok {
		return 0, false
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
