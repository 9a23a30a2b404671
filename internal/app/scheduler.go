package app

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Sweeper удаляет брошенные диалоги
type Sweeper interface {
	ExpireIdle() int
}

// Scheduler управляет фоновыми задачами
type Scheduler struct {
	sweeper  Sweeper
	interval time.Duration
	logger   *zap.Logger
	stopChan chan struct{}
}

// NewScheduler создаёт новый планировщик
func NewScheduler(sweeper Sweeper, interval time.Duration, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		sweeper:  sweeper,
		interval: interval,
		logger:   logger,
		stopChan: make(chan struct{}),
	}
}

// Run выполняет задачи до отмены ctx или Stop
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("Starting background scheduler", zap.Duration("interval", s.interval))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.expireConversations()
		case <-s.stopChan:
			s.logger.Info("Conversation sweep task stopped")
			return nil
		case <-ctx.Done():
			s.logger.Info("Conversation sweep task cancelled")
			return nil
		}
	}
}

// Stop останавливает фоновые задачи
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping background scheduler")
	close(s.stopChan)
}

// expireConversations сбрасывает диалоги, простаивающие дольше TTL. Бронирования остаются.
func (s *Scheduler) expireConversations() {
	if n := s.sweeper.ExpireIdle(); n > 0 {
		s.logger.Info("Idle conversations expired", zap.Int("count", n))
	}
}
