package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Freeeeeet/studio_booking/internal/model"
	"github.com/Freeeeeet/studio_booking/internal/service"
	"github.com/labstack/echo/v4"
)

// createBooking POST /api/bookings
func (s *Server) createBooking(c echo.Context) error {
	var req createBookingRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	name := strings.TrimSpace(req.Name)
	phone := strings.TrimSpace(req.Phone)
	if err := service.ValidateContact(name, phone); err != nil {
		return s.fail(c, err)
	}

	date, err := service.ParseDate(req.BookingDate)
	if err != nil {
		return s.fail(c, err)
	}

	booking, err := s.lifecycle.Create(c.Request().Context(), date, req.BookingHour, name, phone)
	if err != nil {
		return s.fail(c, err)
	}

	resp := toBooking(booking)
	resp.TelegramLink = s.telegramLink(booking.ID)
	return c.JSON(http.StatusCreated, resp)
}

// telegramLink ссылка, открывающая подтверждение в боте
func (s *Server) telegramLink(id int64) string {
	if s.botName == "" {
		return ""
	}
	return "https://t.me/" + s.botName + "?start=booking_" + strconv.FormatInt(id, 10)
}

// listBookings GET /api/bookings?start_date=&end_date=
func (s *Server) listBookings(c echo.Context) error {
	from, err := optionalDate(c.QueryParam("start_date"))
	if err != nil {
		return s.fail(c, err)
	}
	to, err := optionalDate(c.QueryParam("end_date"))
	if err != nil {
		return s.fail(c, err)
	}

	bookings, err := s.ledger.List(c.Request().Context(), from, to)
	if err != nil {
		return s.fail(c, err)
	}

	resp := make([]slotResponse, 0, len(bookings))
	for _, b := range bookings {
		resp = append(resp, toSlot(b))
	}
	return c.JSON(http.StatusOK, resp)
}

// monthCalendar GET /api/calendar/:year/:month
func (s *Server) monthCalendar(c echo.Context) error {
	year, err := strconv.Atoi(c.Param("year"))
	if err != nil {
		return badRequest(c, "invalid year")
	}
	month, err := strconv.Atoi(c.Param("month"))
	if err != nil {
		return badRequest(c, "invalid month")
	}

	days, err := s.ledger.MonthAvailability(c.Request().Context(), year, month)
	if err != nil {
		return s.fail(c, err)
	}

	resp := make([]dayResponse, 0, len(days))
	for _, d := range days {
		resp = append(resp, toDay(d))
	}
	return c.JSON(http.StatusOK, resp)
}

// dayStatus GET /api/day/:date
func (s *Server) dayStatus(c echo.Context) error {
	date, err := service.ParseDate(c.Param("date"))
	if err != nil {
		return s.fail(c, err)
	}

	day, err := s.ledger.Availability(c.Request().Context(), date)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, toDay(*day))
}

func optionalDate(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	date, err := service.ParseDate(raw)
	if err != nil {
		return nil, err
	}
	return &date, nil
}

// adminActor администратор, действующий через API
func adminActor() model.Actor {
	return model.Actor{Admin: true}
}
