// Package api HTTP API сайта: создание бронирований, календарь и админка.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/Freeeeeet/studio_booking/internal/metrics"
	"github.com/Freeeeeet/studio_booking/internal/service"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

const shutdownTimeout = 5 * time.Second

type Config struct {
	Addr        string
	BotUsername string
	Auth        AuthConfig
	Limiter     Limiter          // nil отключает лимит
	Metrics     *metrics.Metrics // nil отключает /metrics
}

type Server struct {
	echo      *echo.Echo
	addr      string
	ledger    *service.LedgerService
	lifecycle *service.LifecycleService
	botName   string
	auth      AuthConfig
	now       func() time.Time
	logger    *zap.Logger
}

func NewServer(
	cfg Config,
	ledger *service.LedgerService,
	lifecycle *service.LifecycleService,
	logger *zap.Logger,
) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:      e,
		addr:      cfg.Addr,
		ledger:    ledger,
		lifecycle: lifecycle,
		botName:   cfg.BotUsername,
		auth:      cfg.Auth,
		now:       time.Now,
		logger:    logger,
	}

	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.Debug("HTTP request",
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
			)
			return nil
		},
	}))
	if cfg.Metrics != nil {
		e.Use(cfg.Metrics.Middleware())
		e.GET("/metrics", echo.WrapHandler(cfg.Metrics.Handler()))
	}

	s.registerRoutes(cfg.Limiter)
	return s
}

func (s *Server) registerRoutes(limiter Limiter) {
	s.echo.GET("/healthz", s.health)

	api := s.echo.Group("/api")

	create := []echo.MiddlewareFunc{}
	if limiter != nil {
		create = append(create, rateLimit(limiter, s.logger))
	}
	api.POST("/bookings", s.createBooking, create...)
	api.GET("/bookings", s.listBookings)
	api.GET("/calendar/:year/:month", s.monthCalendar)
	api.GET("/day/:date", s.dayStatus)

	api.POST("/admin/login", s.adminLogin)

	admin := requireAdmin(s.auth.JWTSecret)
	api.GET("/admin/day/:date", s.adminDay, admin)
	api.GET("/admin/clients", s.findClient, admin)
	api.DELETE("/bookings/:id", s.cancelBooking, admin)
}

// ServeHTTP позволяет тестировать сервер через httptest
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// Run слушает адрес до отмены ctx, затем плавно останавливается
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting HTTP server", zap.String("addr", s.addr))
		if err := s.echo.Start(s.addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.logger.Info("HTTP server stopped")
	return nil
}

func (s *Server) health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}
