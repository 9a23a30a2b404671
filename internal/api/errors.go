package api

import (
	"errors"
	"net/http"

	"github.com/Freeeeeet/studio_booking/internal/service"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// fail переводит доменную ошибку в HTTP ответ
func (s *Server) fail(c echo.Context, err error) error {
	var ve *service.ValidationError
	switch {
	case errors.As(err, &ve):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": ve.Error(), "field": ve.Field})
	case errors.Is(err, service.ErrValidation):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrSlotTaken):
		return c.JSON(http.StatusConflict, echo.Map{"error": "Ця година вже зайнята"})
	case errors.Is(err, service.ErrAlreadyPaid):
		return c.JSON(http.StatusConflict, echo.Map{"error": "Бронювання вже оплачено"})
	case errors.Is(err, service.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Не знайдено"})
	case errors.Is(err, service.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}

	s.logger.Error("Request failed",
		zap.String("method", c.Request().Method),
		zap.String("route", c.Path()),
		zap.Error(err),
	)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
}
