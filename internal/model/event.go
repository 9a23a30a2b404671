package model

import "time"

// EventKind тип события для диспетчера уведомлений
type EventKind string

const (
	EventBookingCreated        EventKind = "booking.created"
	EventConfirmationOpened    EventKind = "booking.confirmation_opened"
	EventAwaitingSelection     EventKind = "booking.awaiting_selection"
	EventSelectionCompleted    EventKind = "booking.selection_completed"
	EventPaymentRequested      EventKind = "booking.payment_requested"
	EventPaymentProofSubmitted EventKind = "booking.payment_submitted"
	EventBookingCancelled      EventKind = "booking.cancelled"
)

// Audience кому адресовано событие
type Audience string

const (
	AudienceAdmins Audience = "admins"
	AudienceClient Audience = "client"
)

// Actor инициатор действия
type Actor struct {
	TelegramID int64  `json:"telegram_id,omitempty"`
	Username   string `json:"username,omitempty"`
	Admin      bool   `json:"admin"`
}

// ProofType вид вложения с квитанцией
type ProofType string

const (
	ProofPhoto    ProofType = "photo"
	ProofDocument ProofType = "document"
)

// PaymentProof ссылка на сообщение с квитанцией
type PaymentProof struct {
	Type      ProofType `json:"type"`
	ChatID    int64     `json:"chat_id"`
	MessageID int       `json:"message_id"`
	FileID    string    `json:"file_id"`
}

// Event описание уведомления. Доставкой занимается диспетчер.
type Event struct {
	ID         string     `json:"id"`
	Kind       EventKind  `json:"kind"`
	Audience   Audience   `json:"audience"`
	Recipient  int64      `json:"recipient,omitempty"` // Telegram ID для AudienceClient
	OccurredAt time.Time  `json:"occurred_at"`
	BookingID  int64      `json:"booking_id"`
	Date       time.Time  `json:"booking_date"`
	Hour       int        `json:"booking_hour"`
	ClientName string     `json:"client_name"`
	Phone      string     `json:"client_phone"`
	Actor      *Actor     `json:"actor,omitempty"`
	Selection  *Selection `json:"selection,omitempty"`
	TotalPrice int        `json:"total_price,omitempty"`

	Proof *PaymentProof `json:"proof,omitempty"`
}
