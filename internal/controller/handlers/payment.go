package handlers

import (
	"context"

	"github.com/Freeeeeet/studio_booking/internal/model"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// IsPaymentProof сообщение с фото или документом
func IsPaymentProof(update *models.Update) bool {
	_, ok := extractProof(update.Message)
	return ok
}

// HandlePaymentProof принимает квитанцию об оплате
func (h *Handlers) HandlePaymentProof(ctx context.Context, b *bot.Bot, update *models.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil {
		return
	}

	proof, ok := extractProof(msg)
	if !ok {
		return
	}

	actor := h.actor(msg.From)
	prompt, err := h.engine.SubmitPaymentProof(ctx, actor, proof)
	if err != nil {
		h.logger.Error("Failed to submit payment proof",
			zap.Int64("telegram_id", actor.TelegramID),
			zap.Error(err),
		)
		h.sendError(ctx, b, msg.Chat.ID)
		return
	}

	h.reply(ctx, b, msg.Chat.ID, prompt)
}

// extractProof берёт самое большое фото или документ из сообщения
func extractProof(msg *models.Message) (model.PaymentProof, bool) {
	if msg == nil {
		return model.PaymentProof{}, false
	}

	proof := model.PaymentProof{
		ChatID:    msg.Chat.ID,
		MessageID: msg.ID,
	}

	switch {
	case len(msg.Photo) > 0:
		proof.Type = model.ProofPhoto
		proof.FileID = msg.Photo[len(msg.Photo)-1].FileID
	case msg.Document != nil:
		proof.Type = model.ProofDocument
		proof.FileID = msg.Document.FileID
	default:
		return model.PaymentProof{}, false
	}

	return proof, true
}
