package handlers

import (
	"github.com/Freeeeeet/studio_booking/internal/dialog"
	"go.uber.org/zap"
)

// Handlers обработчики команд, сообщений и кнопок бота
type Handlers struct {
	engine   *dialog.Engine
	renderer *Renderer
	adminIDs map[int64]bool
	logger   *zap.Logger
}

func NewHandlers(
	engine *dialog.Engine,
	renderer *Renderer,
	adminIDs []int64,
	logger *zap.Logger,
) *Handlers {
	admins := make(map[int64]bool, len(adminIDs))
	for _, id := range adminIDs {
		admins[id] = true
	}

	return &Handlers{
		engine:   engine,
		renderer: renderer,
		adminIDs: admins,
		logger:   logger,
	}
}
