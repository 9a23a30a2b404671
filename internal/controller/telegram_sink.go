package controller

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/Freeeeeet/studio_booking/internal/controller/formatting"
	"github.com/Freeeeeet/studio_booking/internal/model"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// Sender часть API бота, нужная для уведомлений
type Sender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
	SendPhoto(ctx context.Context, params *bot.SendPhotoParams) (*models.Message, error)
	SendDocument(ctx context.Context, params *bot.SendDocumentParams) (*models.Message, error)
}

// TelegramSink рассылает события администраторам и клиентам
type TelegramSink struct {
	sender   Sender
	adminIDs []int64
	logger   *zap.Logger
}

func NewTelegramSink(sender Sender, adminIDs []int64, logger *zap.Logger) *TelegramSink {
	return &TelegramSink{
		sender:   sender,
		adminIDs: adminIDs,
		logger:   logger,
	}
}

func (s *TelegramSink) Name() string {
	return "telegram"
}

// Deliver отправляет событие. Ошибка возвращается только если не дошло ни одному получателю.
func (s *TelegramSink) Deliver(ctx context.Context, event model.Event) error {
	text, ok := RenderEvent(event)
	if !ok {
		return nil
	}

	var recipients []int64
	switch event.Audience {
	case model.AudienceAdmins:
		recipients = s.adminIDs
	case model.AudienceClient:
		if event.Recipient != 0 {
			recipients = []int64{event.Recipient}
		}
	}
	if len(recipients) == 0 {
		return nil
	}

	var errs []error
	for _, chatID := range recipients {
		if err := s.send(ctx, chatID, text, event.Proof); err != nil {
			s.logger.Warn("Failed to notify chat",
				zap.Int64("chat_id", chatID),
				zap.String("kind", string(event.Kind)),
				zap.Error(err),
			)
			errs = append(errs, err)
		}
	}

	if len(errs) == len(recipients) {
		return fmt.Errorf("telegram delivery: %w", errors.Join(errs...))
	}
	return nil
}

func (s *TelegramSink) send(ctx context.Context, chatID int64, text string, proof *model.PaymentProof) error {
	if proof != nil && proof.FileID != "" {
		file := &models.InputFileString{Data: proof.FileID}

		var err error
		if proof.Type == model.ProofDocument {
			_, err = s.sender.SendDocument(ctx, &bot.SendDocumentParams{
				ChatID:    chatID,
				Document:  file,
				Caption:   text,
				ParseMode: models.ParseModeHTML,
			})
		} else {
			_, err = s.sender.SendPhoto(ctx, &bot.SendPhotoParams{
				ChatID:    chatID,
				Photo:     file,
				Caption:   text,
				ParseMode: models.ParseModeHTML,
			})
		}
		return err
	}

	_, err := s.sender.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
	})
	return err
}

// RenderEvent текст уведомления. ok=false означает, что событие в Telegram не отправляется.
func RenderEvent(e model.Event) (string, bool) {
	if e.Audience == model.AudienceClient {
		switch e.Kind {
		case model.EventBookingCancelled:
			return fmt.Sprintf("❌ Ваше бронювання на %s скасовано адміністратором.\n\n"+
				"Якщо це помилка, зв'яжіться зі студією.",
				formatting.FormatSlot(e.Date, e.Hour)), true
		default:
			// Реквизиты клиент уже получил в ответе диалога
			return "", false
		}
	}

	var title, footer string
	withActor := e.Actor != nil
	switch e.Kind {
	case model.EventBookingCreated:
		title = "🆕 <b>Нове бронювання з сайту</b>"
		footer = "⏳ Очікуємо підтвердження в Telegram"
	case model.EventConfirmationOpened:
		title = "📬 <b>Нове бронювання очікує підтвердження</b>"
	case model.EventAwaitingSelection:
		title = "✅ <b>Бронювання підтверджено</b>"
		footer = "⏳ Клієнт обирає послуги..."
	case model.EventSelectionCompleted:
		title = "🧾 <b>Клієнт обрав послуги</b>"
		footer = "⏳ Очікуємо оплату..."
	case model.EventPaymentProofSubmitted:
		title = "💰 <b>Отримано квитанцію про оплату</b>"
		footer = "❗️ Перевірте оплату!"
	case model.EventBookingCancelled:
		title = "❌ <b>Бронювання скасовано клієнтом</b>"
		if e.Actor != nil && e.Actor.Admin {
			title = "❌ <b>Бронювання скасовано адміністратором</b>"
		}
	default:
		return "", false
	}

	var sb strings.Builder
	sb.WriteString(title)
	sb.WriteString("\n\n")
	fmt.Fprintf(&sb, "ID бронювання: #%d\n", e.BookingID)
	fmt.Fprintf(&sb, "👤 %s\n", html.EscapeString(e.ClientName))
	fmt.Fprintf(&sb, "📞 %s\n", html.EscapeString(e.Phone))
	if withActor {
		fmt.Fprintf(&sb, "💬 Telegram: %s\n", html.EscapeString(formatting.TelegramHandle(e.Actor)))
	}
	fmt.Fprintf(&sb, "📅 %s", formatting.FormatSlot(e.Date, e.Hour))

	if e.Selection != nil && (e.Kind == model.EventSelectionCompleted || e.Kind == model.EventPaymentProofSubmitted) {
		sb.WriteString("\n\n")
		sb.WriteString(formatting.FormatSelection(*e.Selection))
	}
	if e.TotalPrice > 0 {
		fmt.Fprintf(&sb, "\n💵 Сума: <b>%s</b>", formatting.FormatPrice(e.TotalPrice))
	}
	if footer != "" {
		sb.WriteString("\n\n")
		sb.WriteString(footer)
	}

	return sb.String(), true
}
