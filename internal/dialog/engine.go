package dialog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Freeeeeet/studio_booking/internal/model"
	"github.com/Freeeeeet/studio_booking/internal/service"
	"go.uber.org/zap"
)

// Lifecycle операции над бронированием, которые нужны диалогу
type Lifecycle interface {
	Open(ctx context.Context, id int64, actor model.Actor) (*service.Transition, error)
	Accept(ctx context.Context, id int64, actor model.Actor) (*service.Transition, error)
	CompleteSelection(ctx context.Context, id int64, actor model.Actor, sel model.Selection) (*model.Booking, error)
	SubmitPaymentProof(ctx context.Context, actor model.Actor, proof model.PaymentProof) (*model.Booking, error)
	Cancel(ctx context.Context, id int64, actor model.Actor) (*model.Booking, error)
	ActiveBooking(ctx context.Context, telegramID int64) (*model.Booking, error)
	ResumableBooking(ctx context.Context, telegramID int64) (*model.Booking, error)
}

// Recorder счётчик повторных вопросов
type Recorder interface {
	Reprompted(step string)
}

type nopRecorder struct{}

func (nopRecorder) Reprompted(string) {}

// Engine ведёт диалог выбора услуг и вызывает переходы жизненного цикла.
// Сообщения одного пользователя обрабатываются строго по очереди.
type Engine struct {
	lifecycle Lifecycle
	store     *Store
	locks     *keyedMutex
	ttl       time.Duration
	now       func() time.Time
	recorder  Recorder
	logger    *zap.Logger
}

func NewEngine(lifecycle Lifecycle, store *Store, ttl time.Duration, logger *zap.Logger) *Engine {
	return &Engine{
		lifecycle: lifecycle,
		store:     store,
		locks:     newKeyedMutex(),
		ttl:       ttl,
		now:       time.Now,
		recorder:  nopRecorder{},
		logger:    logger,
	}
}

// WithRecorder подключает метрики
func (e *Engine) WithRecorder(r Recorder) *Engine {
	if r != nil {
		e.recorder = r
	}
	return e
}

// Conversation текущий диалог пользователя
func (e *Engine) Conversation(identity int64) (Conversation, bool) {
	return e.store.Get(identity)
}

// StartConfirmation открывает бронирование по ссылке и показывает правила
func (e *Engine) StartConfirmation(ctx context.Context, bookingID int64, actor model.Actor) (Prompt, error) {
	tr, err := e.lifecycle.Open(ctx, bookingID, actor)
	if err != nil {
		return e.failure(err)
	}

	if tr.Outcome == service.OutcomeAlreadyConfirmed {
		return alreadyConfirmed(tr.Booking, actor), nil
	}
	return Prompt{Kind: KindConfirm, Booking: tr.Booking}, nil
}

// Accept подтверждает бронирование и начинает диалог.
// Новый диалог заменяет предыдущий диалог пользователя.
func (e *Engine) Accept(ctx context.Context, bookingID int64, actor model.Actor) (Prompt, error) {
	unlock := e.locks.Lock(actor.TelegramID)
	defer unlock()

	tr, err := e.lifecycle.Accept(ctx, bookingID, actor)
	if err != nil {
		return e.failure(err)
	}

	switch tr.Outcome {
	case service.OutcomeAlreadyConfirmed:
		return alreadyConfirmed(tr.Booking, actor), nil
	case service.OutcomeOpened:
		return Prompt{Kind: KindConfirm, Booking: tr.Booking}, nil
	}

	conv := e.begin(actor.TelegramID, tr.Booking.ID)

	e.logger.Info("Conversation started",
		zap.Int64("telegram_id", actor.TelegramID),
		zap.Int64("booking_id", tr.Booking.ID),
	)

	return Prompt{Kind: KindAsk, Step: conv.Step, Booking: tr.Booking}, nil
}

// Answer применяет ответ пользователя к текущему шагу
func (e *Engine) Answer(ctx context.Context, actor model.Actor, raw string) (Prompt, error) {
	unlock := e.locks.Lock(actor.TelegramID)
	defer unlock()

	conv, ok := e.store.Get(actor.TelegramID)
	if !ok {
		return Prompt{Kind: KindNoConversation}, nil
	}

	next, done, valid := advance(conv, raw)
	if !valid {
		e.recorder.Reprompted(string(conv.Step))
		return Prompt{Kind: KindAsk, Step: conv.Step, Selection: conv.Selection, Invalid: true}, nil
	}

	next.UpdatedAt = e.now()
	if !done {
		e.store.Save(next)
		return Prompt{Kind: KindAsk, Step: next.Step, Selection: next.Selection}, nil
	}

	booking, err := e.lifecycle.CompleteSelection(ctx, conv.BookingID, actor, next.Selection)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) || errors.Is(err, service.ErrForbidden) || errors.Is(err, service.ErrInvalidState) {
			e.store.Delete(actor.TelegramID)
		}
		return e.failure(err)
	}

	e.store.Delete(actor.TelegramID)

	price := 0
	if booking.TotalPrice != nil {
		price = *booking.TotalPrice
	}
	return Prompt{Kind: KindPaymentDetails, Booking: booking, Selection: next.Selection, Price: price}, nil
}

// Cancel отменяет бронирование и сбрасывает диалог.
// bookingID = 0 означает текущее бронирование пользователя.
func (e *Engine) Cancel(ctx context.Context, actor model.Actor, bookingID int64) (Prompt, error) {
	unlock := e.locks.Lock(actor.TelegramID)
	defer unlock()

	conv, hasConv := e.store.Get(actor.TelegramID)

	if bookingID == 0 {
		if hasConv {
			bookingID = conv.BookingID
		} else {
			active, err := e.lifecycle.ActiveBooking(ctx, actor.TelegramID)
			if err != nil {
				if errors.Is(err, service.ErrNotFound) {
					return Prompt{Kind: KindNothingToCancel}, nil
				}
				return Prompt{}, err
			}
			bookingID = active.ID
		}
	}

	cancelled, err := e.lifecycle.Cancel(ctx, bookingID, actor)
	if err != nil {
		return e.failure(err)
	}

	if hasConv && conv.BookingID == bookingID {
		e.store.Delete(actor.TelegramID)
	}

	if cancelled == nil {
		return Prompt{Kind: KindNothingToCancel}, nil
	}
	return Prompt{Kind: KindCancelled, Booking: cancelled}, nil
}

// Resume повторяет текущий вопрос или начинает диалог заново
// для подтверждённого бронирования без выбранных услуг
func (e *Engine) Resume(ctx context.Context, actor model.Actor) (Prompt, error) {
	unlock := e.locks.Lock(actor.TelegramID)
	defer unlock()

	if conv, ok := e.store.Get(actor.TelegramID); ok {
		return Prompt{Kind: KindAsk, Step: conv.Step, Selection: conv.Selection}, nil
	}

	booking, err := e.lifecycle.ResumableBooking(ctx, actor.TelegramID)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return Prompt{Kind: KindNothingToResume}, nil
		}
		return Prompt{}, err
	}

	conv := e.begin(actor.TelegramID, booking.ID)
	return Prompt{Kind: KindAsk, Step: conv.Step, Booking: booking}, nil
}

// SubmitPaymentProof принимает квитанцию об оплате
func (e *Engine) SubmitPaymentProof(ctx context.Context, actor model.Actor, proof model.PaymentProof) (Prompt, error) {
	unlock := e.locks.Lock(actor.TelegramID)
	defer unlock()

	booking, err := e.lifecycle.SubmitPaymentProof(ctx, actor, proof)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidState):
			return Prompt{Kind: KindSelectionRequired}, nil
		case errors.Is(err, service.ErrNotFound):
			return Prompt{Kind: KindNoPaymentExpected}, nil
		}
		return Prompt{}, err
	}

	return Prompt{Kind: KindPaymentReceived, Booking: booking}, nil
}

// ExpireIdle удаляет диалоги без активности дольше ttl. Бронирования не трогаются.
func (e *Engine) ExpireIdle() int {
	if e.ttl <= 0 {
		return 0
	}

	expired := e.store.ExpireIdle(e.now().Add(-e.ttl))
	for _, conv := range expired {
		e.logger.Info("Conversation expired",
			zap.Int64("telegram_id", conv.Identity),
			zap.Int64("booking_id", conv.BookingID),
			zap.String("step", string(conv.Step)),
		)
	}
	return len(expired)
}

func (e *Engine) begin(identity, bookingID int64) Conversation {
	now := e.now()
	conv := Conversation{
		Identity:  identity,
		BookingID: bookingID,
		Step:      StepPeople,
		StartedAt: now,
		UpdatedAt: now,
	}
	e.store.Save(conv)
	return conv
}

// failure переводит доменные ошибки в подсказки, остальные возвращает
func (e *Engine) failure(err error) (Prompt, error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return Prompt{Kind: KindNotFound}, nil
	case errors.Is(err, service.ErrForbidden):
		return Prompt{Kind: KindForbidden}, nil
	case errors.Is(err, service.ErrAlreadyPaid):
		return Prompt{Kind: KindAlreadyPaid}, nil
	case errors.Is(err, service.ErrInvalidState):
		return Prompt{Kind: KindNotConfirmed}, nil
	}
	return Prompt{}, fmt.Errorf("dialog: %w", err)
}

func alreadyConfirmed(booking *model.Booking, actor model.Actor) Prompt {
	return Prompt{
		Kind:    KindAlreadyConfirmed,
		Booking: booking,
		Owner:   booking.BoundTo(actor.TelegramID),
	}
}
