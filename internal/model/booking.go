package model

import "time"

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"   // Создано, ждёт подтверждения в Telegram
	BookingStatusConfirmed BookingStatus = "confirmed" // Клиент подтвердил, идёт выбор услуг
	BookingStatusPaid      BookingStatus = "paid"      // Квитанция получена
	BookingStatusCancelled BookingStatus = "cancelled" // Отменено, слот свободен
)

// LiveStatuses статусы, которые занимают слот
var LiveStatuses = []BookingStatus{
	BookingStatusPending,
	BookingStatusConfirmed,
	BookingStatusPaid,
}

// IsLive сообщает, занимает ли бронирование слот
func (s BookingStatus) IsLive() bool {
	return s == BookingStatusPending || s == BookingStatusConfirmed || s == BookingStatusPaid
}

type Booking struct {
	ID             int64         `json:"id"`
	ClientID       int64         `json:"client_id"`
	Date           time.Time     `json:"booking_date"` // Только дата, время 00:00 UTC
	Hour           int           `json:"booking_hour"`
	Status         BookingStatus `json:"status"`
	TelegramUserID *int64        `json:"telegram_user_id"` // Привязывается при открытии ссылки
	Selection      *Selection    `json:"selection,omitempty"`
	TotalPrice     *int          `json:"total_price,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
	CancelledAt    *time.Time    `json:"cancelled_at,omitempty"`

	// Дополнительные поля для удобства (не из таблицы bookings)
	Client *Client `json:"client,omitempty"`
}

// BoundTo проверяет, привязано ли бронирование к данному Telegram пользователю
func (b *Booking) BoundTo(telegramID int64) bool {
	return b.TelegramUserID != nil && *b.TelegramUserID == telegramID
}

// AwaitingPayment бронирование подтверждено и услуги выбраны
func (b *Booking) AwaitingPayment() bool {
	return b.Status == BookingStatusConfirmed && b.Selection != nil && b.TotalPrice != nil
}

// DateOnly обрезает время, оставляя календарную дату в UTC
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
