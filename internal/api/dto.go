package api

import (
	"time"

	"github.com/Freeeeeet/studio_booking/internal/model"
	"github.com/Freeeeeet/studio_booking/internal/service"
)

const dateLayout = "2006-01-02"

type createBookingRequest struct {
	Name        string `json:"name"`
	Phone       string `json:"phone"`
	BookingDate string `json:"booking_date"`
	BookingHour int    `json:"booking_hour"`
}

type loginRequest struct {
	Password string `json:"password"`
}

type clientResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
}

type bookingResponse struct {
	ID             int64            `json:"id"`
	BookingDate    string           `json:"booking_date"`
	BookingHour    int              `json:"booking_hour"`
	Status         string           `json:"status"`
	TelegramUserID *int64           `json:"telegram_user_id,omitempty"`
	Selection      *model.Selection `json:"selection,omitempty"`
	TotalPrice     *int             `json:"total_price,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
	Client         *clientResponse  `json:"client,omitempty"`
	TelegramLink   string           `json:"telegram_link,omitempty"`
}

// slotResponse занятый слот без данных клиента
type slotResponse struct {
	BookingDate string `json:"booking_date"`
	BookingHour int    `json:"booking_hour"`
}

type dayResponse struct {
	Date           string `json:"date"`
	HasBookings    bool   `json:"has_bookings"`
	AvailableHours []int  `json:"available_hours"`
	BookedHours    []int  `json:"booked_hours"`
}

type hourResponse struct {
	Hour    int              `json:"hour"`
	Booking *bookingResponse `json:"booking"`
}

type tokenResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func toClient(c *model.Client) *clientResponse {
	if c == nil {
		return nil
	}
	return &clientResponse{
		ID:        c.ID,
		Name:      c.Name,
		Phone:     c.Phone,
		CreatedAt: c.CreatedAt,
	}
}

func toBooking(b *model.Booking) *bookingResponse {
	if b == nil {
		return nil
	}
	return &bookingResponse{
		ID:             b.ID,
		BookingDate:    b.Date.Format(dateLayout),
		BookingHour:    b.Hour,
		Status:         string(b.Status),
		TelegramUserID: b.TelegramUserID,
		Selection:      b.Selection,
		TotalPrice:     b.TotalPrice,
		CreatedAt:      b.CreatedAt,
		Client:         toClient(b.Client),
	}
}

func toSlot(b *model.Booking) slotResponse {
	return slotResponse{
		BookingDate: b.Date.Format(dateLayout),
		BookingHour: b.Hour,
	}
}

func toDay(d service.DayAvailability) dayResponse {
	return dayResponse{
		Date:           d.Date.Format(dateLayout),
		HasBookings:    d.HasBookings,
		AvailableHours: d.AvailableHours,
		BookedHours:    d.BookedHours,
	}
}
