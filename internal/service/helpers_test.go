package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Freeeeeet/studio_booking/internal/model"
	"github.com/Freeeeeet/studio_booking/internal/repository/memstore"
	"go.uber.org/zap"
)

var (
	today    = time.Date(2030, 5, 1, 0, 0, 0, 0, time.UTC)
	tomorrow = today.AddDate(0, 0, 1)
)

type captureNotifier struct {
	mu     sync.Mutex
	events []model.Event
}

func (n *captureNotifier) Publish(_ context.Context, event model.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func (n *captureNotifier) kinds() []model.EventKind {
	n.mu.Lock()
	defer n.mu.Unlock()

	kinds := make([]model.EventKind, 0, len(n.events))
	for _, e := range n.events {
		kinds = append(kinds, e.Kind)
	}
	return kinds
}

func (n *captureNotifier) count(kind model.EventKind) int {
	n.mu.Lock()
	defer n.mu.Unlock()

	c := 0
	for _, e := range n.events {
		if e.Kind == kind {
			c++
		}
	}
	return c
}

func (n *captureNotifier) reset() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = nil
}

type fixture struct {
	db        *memstore.DB
	ledger    *LedgerService
	lifecycle *LifecycleService
	notifier  *captureNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := memstore.New()
	schedule := Schedule{
		StartHour: 9,
		EndHour:   20,
		Location:  time.UTC,
		Now:       func() time.Time { return today.Add(10 * time.Hour) },
	}

	notifier := &captureNotifier{}
	ledger := NewLedgerService(db.Clients(), db.Bookings(), db, schedule, zap.NewNop())
	lifecycle := NewLifecycleService(ledger, db.Bookings(), DefaultTariff(), notifier, zap.NewNop())

	return &fixture{db: db, ledger: ledger, lifecycle: lifecycle, notifier: notifier}
}

func client(id int64) model.Actor {
	return model.Actor{TelegramID: id, Username: "client"}
}

var admin = model.Actor{TelegramID: 1, Username: "admin", Admin: true}

var fullSelection = model.Selection{
	People:     6,
	Zone:       model.ZoneBoth,
	Animals:    0,
	Background: model.BackgroundWhite,
}
