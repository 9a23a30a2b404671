package formatting

import "github.com/Freeeeeet/studio_booking/internal/model"

// StatusDisplay содержит emoji и текст для отображения статуса
type StatusDisplay struct {
	Emoji string
	Text  string
}

// GetBookingStatusDisplay возвращает emoji и текст для статуса бронирования
func GetBookingStatusDisplay(status model.BookingStatus) StatusDisplay {
	switch status {
	case model.BookingStatusPending:
		return StatusDisplay{Emoji: "⏳", Text: "Очікує підтвердження"}
	case model.BookingStatusConfirmed:
		return StatusDisplay{Emoji: "✅", Text: "Підтверджено"}
	case model.BookingStatusPaid:
		return StatusDisplay{Emoji: "💰", Text: "Оплачено"}
	case model.BookingStatusCancelled:
		return StatusDisplay{Emoji: "❌", Text: "Скасовано"}
	default:
		return StatusDisplay{Emoji: "❓", Text: "Невідомо"}
	}
}

// TelegramHandle "@username" или "ID: 123"
func TelegramHandle(actor *model.Actor) string {
	if actor == nil {
		return "—"
	}
	if actor.Username != "" {
		return "@" + actor.Username
	}
	return "ID: " + itoa(actor.TelegramID)
}
