package api

import (
	"net/http"
	"strconv"

	"github.com/Freeeeeet/studio_booking/internal/service"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// adminLogin POST /api/admin/login
func (s *Server) adminLogin(c echo.Context) error {
	if !s.auth.enabled() {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "admin login is not configured"})
	}

	var req loginRequest
	if err := c.Bind(&req); err != nil || req.Password == "" {
		return badRequest(c, "password is required")
	}

	if !verifyPassword(s.auth.PasswordHash, req.Password) {
		s.logger.Warn("Admin login failed", zap.String("ip", c.RealIP()))
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid password"})
	}

	token, exp, err := issueAdminToken(s.auth.JWTSecret, s.now())
	if err != nil {
		return s.fail(c, err)
	}

	s.logger.Info("Admin logged in", zap.String("ip", c.RealIP()))
	return c.JSON(http.StatusOK, tokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresAt:   exp,
	})
}

// adminDay GET /api/admin/day/:date
func (s *Server) adminDay(c echo.Context) error {
	date, err := service.ParseDate(c.Param("date"))
	if err != nil {
		return s.fail(c, err)
	}

	hours, err := s.ledger.AdminDay(c.Request().Context(), date)
	if err != nil {
		return s.fail(c, err)
	}

	resp := make([]hourResponse, 0, len(hours))
	for _, h := range hours {
		resp = append(resp, hourResponse{Hour: h.Hour, Booking: toBooking(h.Booking)})
	}
	return c.JSON(http.StatusOK, resp)
}

// findClient GET /api/admin/clients?phone=
func (s *Server) findClient(c echo.Context) error {
	client, err := s.ledger.FindClient(c.Request().Context(), c.QueryParam("phone"))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, toClient(client))
}

// cancelBooking DELETE /api/bookings/:id
func (s *Server) cancelBooking(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return badRequest(c, "invalid booking id")
	}

	if _, err := s.lifecycle.AdminCancel(c.Request().Context(), id, adminActor()); err != nil {
		return s.fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
