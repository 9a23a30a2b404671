package service

import (
	"context"
	"time"

	"github.com/Freeeeeet/studio_booking/internal/model"
)

// ClientStore хранилище клиентов. Отсутствующая запись возвращается как nil, nil.
type ClientStore interface {
	GetOrCreate(ctx context.Context, name, phone string) (*model.Client, error)
	GetByID(ctx context.Context, id int64) (*model.Client, error)
	FindByPhone(ctx context.Context, phone string) (*model.Client, error)
}

// BookingStore хранилище бронирований.
// Условные обновления возвращают nil, если условие не выполнено.
type BookingStore interface {
	Insert(ctx context.Context, booking *model.Booking) error
	GetByID(ctx context.Context, id int64) (*model.Booking, error)
	ListByDate(ctx context.Context, date time.Time) ([]*model.Booking, error)
	ListByDateRange(ctx context.Context, from, to *time.Time) ([]*model.Booking, error)
	ListByTelegramUser(ctx context.Context, telegramID int64, statuses ...model.BookingStatus) ([]*model.Booking, error)
	BindTelegramUser(ctx context.Context, id, telegramID int64) (bool, error)
	UpdateStatus(ctx context.Context, id int64, from []model.BookingStatus, to model.BookingStatus, telegramID *int64) (*model.Booking, error)
	SetSelection(ctx context.Context, id, telegramID int64, selection model.Selection, price int) (*model.Booking, error)
}

type TxManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Notifier принимает события. Ошибки доставки не возвращаются вызывающему.
type Notifier interface {
	Publish(ctx context.Context, event model.Event)
}

// Recorder счётчики для метрик
type Recorder interface {
	BookingCreated()
	SlotConflict()
	Transition(status model.BookingStatus)
}

type nopRecorder struct{}

func (nopRecorder) BookingCreated() {}
func (nopRecorder) SlotConflict() {}
func (nopRecorder) Transition(_ model.BookingStatus) {}
