package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/studio_booking/internal/model"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Outcome результат перехода при открытии ссылки или подтверждении
type Outcome string

const (
	OutcomeOpened           Outcome = "opened"            // Ссылка открыта, ждём подтверждения
	OutcomeConfirmed        Outcome = "confirmed"         // Переведено в confirmed этим вызовом
	OutcomeAlreadyConfirmed Outcome = "already_confirmed" // Уже подтверждено ранее, ничего не сделано
)

type Transition struct {
	Booking *model.Booking
	Outcome Outcome
}

// LifecycleService переводит бронирования по статусам и публикует события
type LifecycleService struct {
	ledger   *LedgerService
	bookings BookingStore
	tariff   Tariff
	notifier Notifier
	recorder Recorder
	logger   *zap.Logger
	now      func() time.Time
}

func NewLifecycleService(
	ledger *LedgerService,
	bookings BookingStore,
	tariff Tariff,
	notifier Notifier,
	logger *zap.Logger,
) *LifecycleService {
	return &LifecycleService{
		ledger:   ledger,
		bookings: bookings,
		tariff:   tariff,
		notifier: notifier,
		recorder: nopRecorder{},
		logger:   logger,
		now:      time.Now,
	}
}

// WithRecorder подключает метрики
func (s *LifecycleService) WithRecorder(r Recorder) *LifecycleService {
	if r != nil {
		s.recorder = r
	}
	return s
}

// Tariff возвращает текущий тариф
func (s *LifecycleService) Tariff() Tariff {
	return s.tariff
}

// Create резервирует слот и сообщает администраторам о новой заявке
func (s *LifecycleService) Create(ctx context.Context, date time.Time, hour int, name, phone string) (*model.Booking, error) {
	booking, err := s.ledger.Reserve(ctx, date, hour, name, phone)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, s.newEvent(model.EventBookingCreated, model.AudienceAdmins, booking))
	return booking, nil
}

// Get получает бронирование по ID
func (s *LifecycleService) Get(ctx context.Context, id int64) (*model.Booking, error) {
	booking, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get booking: %w", err)
	}
	if booking == nil {
		return nil, ErrNotFound
	}
	return booking, nil
}

// Open привязывает пользователя к бронированию при переходе по ссылке.
// Администраторы получают уведомление только при первой привязке.
func (s *LifecycleService) Open(ctx context.Context, id int64, actor model.Actor) (*Transition, error) {
	booking, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get booking: %w", err)
	}
	if booking == nil || booking.Status == model.BookingStatusCancelled {
		return nil, ErrNotFound
	}

	if booking.Status != model.BookingStatusPending {
		return s.resolve(booking, actor)
	}
	if booking.TelegramUserID != nil && !booking.BoundTo(actor.TelegramID) {
		return nil, ErrForbidden
	}

	alreadyBound := booking.BoundTo(actor.TelegramID)

	ok, err := s.bookings.BindTelegramUser(ctx, id, actor.TelegramID)
	if err != nil {
		return nil, fmt.Errorf("bind telegram user: %w", err)
	}
	if !ok {
		return s.reload(ctx, id, actor)
	}

	tid := actor.TelegramID
	booking.TelegramUserID = &tid

	if !alreadyBound {
		s.logger.Info("Booking link opened",
			zap.Int64("booking_id", id),
			zap.Int64("telegram_id", actor.TelegramID),
		)

		event := s.newEvent(model.EventConfirmationOpened, model.AudienceAdmins, booking)
		event.Actor = &actor
		s.publish(ctx, event)
	}

	return &Transition{Booking: booking, Outcome: OutcomeOpened}, nil
}

// Accept переводит pending в confirmed. Из двух одновременных подтверждений
// выигрывает одно, второе получает OutcomeAlreadyConfirmed без событий.
func (s *LifecycleService) Accept(ctx context.Context, id int64, actor model.Actor) (*Transition, error) {
	ok, err := s.bookings.BindTelegramUser(ctx, id, actor.TelegramID)
	if err != nil {
		return nil, fmt.Errorf("bind telegram user: %w", err)
	}
	if !ok {
		return s.reload(ctx, id, actor)
	}

	tid := actor.TelegramID
	booking, err := s.bookings.UpdateStatus(ctx, id,
		[]model.BookingStatus{model.BookingStatusPending},
		model.BookingStatusConfirmed,
		&tid,
	)
	if err != nil {
		return nil, fmt.Errorf("confirm booking: %w", err)
	}
	if booking == nil {
		return s.reload(ctx, id, actor)
	}

	s.recorder.Transition(model.BookingStatusConfirmed)
	s.logger.Info("Booking confirmed",
		zap.Int64("booking_id", id),
		zap.Int64("telegram_id", actor.TelegramID),
		zap.String("status", string(booking.Status)),
	)

	event := s.newEvent(model.EventAwaitingSelection, model.AudienceAdmins, booking)
	event.Actor = &actor
	s.publish(ctx, event)

	return &Transition{Booking: booking, Outcome: OutcomeConfirmed}, nil
}

// CompleteSelection сохраняет выбор услуг и цену, отправляет реквизиты клиенту.
// Повторный вызов для уже заполненного бронирования возвращает его без событий.
func (s *LifecycleService) CompleteSelection(ctx context.Context, id int64, actor model.Actor, sel model.Selection) (*model.Booking, error) {
	if !sel.Valid() {
		return nil, ErrInvalidSelection
	}

	price := s.tariff.Price(sel)

	booking, err := s.bookings.SetSelection(ctx, id, actor.TelegramID, sel, price)
	if err != nil {
		return nil, fmt.Errorf("set selection: %w", err)
	}

	if booking == nil {
		current, err := s.bookings.GetByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("get booking: %w", err)
		}
		switch {
		case current == nil || current.Status == model.BookingStatusCancelled:
			return nil, ErrNotFound
		case !current.BoundTo(actor.TelegramID):
			return nil, ErrForbidden
		case current.Status == model.BookingStatusPending:
			return nil, ErrInvalidState
		default:
			return current, nil
		}
	}

	s.logger.Info("Booking selection completed",
		zap.Int64("booking_id", id),
		zap.Int64("telegram_id", actor.TelegramID),
		zap.Int("people", sel.People),
		zap.String("zone", string(sel.Zone)),
		zap.Int("animals", sel.Animals),
		zap.String("background", string(sel.Background)),
		zap.Int("price", price),
	)

	toClient := s.newEvent(model.EventPaymentRequested, model.AudienceClient, booking)
	toClient.Recipient = actor.TelegramID
	s.publish(ctx, toClient)

	toAdmins := s.newEvent(model.EventSelectionCompleted, model.AudienceAdmins, booking)
	toAdmins.Actor = &actor
	s.publish(ctx, toAdmins)

	return booking, nil
}

// SubmitPaymentProof отмечает оплату бронирования, ожидающего оплаты от этого пользователя
func (s *LifecycleService) SubmitPaymentProof(ctx context.Context, actor model.Actor, proof model.PaymentProof) (*model.Booking, error) {
	confirmed, err := s.bookings.ListByTelegramUser(ctx, actor.TelegramID, model.BookingStatusConfirmed)
	if err != nil {
		return nil, fmt.Errorf("list user bookings: %w", err)
	}

	var target *model.Booking
	for _, b := range confirmed {
		if b.AwaitingPayment() && (target == nil || newer(b, target)) {
			target = b
		}
	}
	if target == nil {
		if len(confirmed) > 0 {
			return nil, ErrInvalidState
		}
		return nil, ErrNotFound
	}

	tid := actor.TelegramID
	booking, err := s.bookings.UpdateStatus(ctx, target.ID,
		[]model.BookingStatus{model.BookingStatusConfirmed},
		model.BookingStatusPaid,
		&tid,
	)
	if err != nil {
		return nil, fmt.Errorf("mark booking paid: %w", err)
	}
	if booking == nil {
		current, err := s.bookings.GetByID(ctx, target.ID)
		if err != nil {
			return nil, fmt.Errorf("get booking: %w", err)
		}
		if current != nil && current.Status == model.BookingStatusPaid {
			return current, nil
		}
		return nil, ErrInvalidState
	}

	s.recorder.Transition(model.BookingStatusPaid)
	s.logger.Info("Payment proof submitted",
		zap.Int64("booking_id", booking.ID),
		zap.Int64("telegram_id", actor.TelegramID),
		zap.String("status", string(booking.Status)),
	)

	event := s.newEvent(model.EventPaymentProofSubmitted, model.AudienceAdmins, booking)
	event.Actor = &actor
	event.Proof = &proof
	s.publish(ctx, event)

	return booking, nil
}

// Cancel отменяет неоплаченное бронирование по запросу клиента или администратора.
// Возвращает nil, nil если бронирование уже отменено или не существует.
func (s *LifecycleService) Cancel(ctx context.Context, id int64, actor model.Actor) (*model.Booking, error) {
	booking, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get booking: %w", err)
	}
	if booking == nil || booking.Status == model.BookingStatusCancelled {
		return nil, nil
	}
	if !actor.Admin && !booking.BoundTo(actor.TelegramID) {
		return nil, ErrForbidden
	}
	if booking.Status == model.BookingStatusPaid {
		return nil, ErrAlreadyPaid
	}

	var owner *int64
	if !actor.Admin {
		tid := actor.TelegramID
		owner = &tid
	}

	released, err := s.ledger.ReleaseUnpaid(ctx, id, owner)
	if err != nil {
		return nil, err
	}
	if released == nil {
		current, err := s.bookings.GetByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("get booking: %w", err)
		}
		if current != nil && current.Status == model.BookingStatusPaid {
			return nil, ErrAlreadyPaid
		}
		return nil, nil
	}

	s.announceCancel(ctx, released, actor)
	return released, nil
}

// AdminCancel отменяет бронирование в любом живом статусе, включая оплаченное
func (s *LifecycleService) AdminCancel(ctx context.Context, id int64, actor model.Actor) (*model.Booking, error) {
	booking, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get booking: %w", err)
	}
	if booking == nil {
		return nil, ErrNotFound
	}

	actor.Admin = true
	released, err := s.ledger.Release(ctx, id)
	if err != nil {
		return nil, err
	}
	if released == nil {
		return nil, nil
	}

	s.announceCancel(ctx, released, actor)
	return released, nil
}

// ActiveBooking последнее pending или confirmed бронирование пользователя
func (s *LifecycleService) ActiveBooking(ctx context.Context, telegramID int64) (*model.Booking, error) {
	return s.latest(ctx, telegramID, func(*model.Booking) bool { return true },
		model.BookingStatusPending, model.BookingStatusConfirmed)
}

// ResumableBooking последнее подтверждённое бронирование без выбранных услуг
func (s *LifecycleService) ResumableBooking(ctx context.Context, telegramID int64) (*model.Booking, error) {
	return s.latest(ctx, telegramID, func(b *model.Booking) bool { return b.Selection == nil },
		model.BookingStatusConfirmed)
}

func (s *LifecycleService) latest(ctx context.Context, telegramID int64, match func(*model.Booking) bool, statuses ...model.BookingStatus) (*model.Booking, error) {
	bookings, err := s.bookings.ListByTelegramUser(ctx, telegramID, statuses...)
	if err != nil {
		return nil, fmt.Errorf("list user bookings: %w", err)
	}

	var found *model.Booking
	for _, b := range bookings {
		if match(b) && (found == nil || newer(b, found)) {
			found = b
		}
	}
	if found == nil {
		return nil, ErrNotFound
	}
	return found, nil
}

// reload перечитывает бронирование после неудачного условного обновления
func (s *LifecycleService) reload(ctx context.Context, id int64, actor model.Actor) (*Transition, error) {
	booking, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get booking: %w", err)
	}
	if booking == nil || booking.Status == model.BookingStatusCancelled {
		return nil, ErrNotFound
	}
	return s.resolve(booking, actor)
}

// resolve после подтверждения сводку видит любой пользователь,
// pending бронирование доступно только привязанному.
func (s *LifecycleService) resolve(booking *model.Booking, actor model.Actor) (*Transition, error) {
	if booking.Status != model.BookingStatusPending {
		return &Transition{Booking: booking, Outcome: OutcomeAlreadyConfirmed}, nil
	}
	if !booking.BoundTo(actor.TelegramID) {
		return nil, ErrForbidden
	}
	return &Transition{Booking: booking, Outcome: OutcomeOpened}, nil
}

func (s *LifecycleService) announceCancel(ctx context.Context, booking *model.Booking, actor model.Actor) {
	s.logger.Info("Booking cancelled",
		zap.Int64("booking_id", booking.ID),
		zap.Int64("telegram_id", actor.TelegramID),
		zap.Bool("by_admin", actor.Admin),
	)

	event := s.newEvent(model.EventBookingCancelled, model.AudienceAdmins, booking)
	event.Actor = &actor
	s.publish(ctx, event)

	// Клиента предупреждаем, если отменил не он сам
	if booking.TelegramUserID != nil && *booking.TelegramUserID != actor.TelegramID {
		toClient := s.newEvent(model.EventBookingCancelled, model.AudienceClient, booking)
		toClient.Recipient = *booking.TelegramUserID
		toClient.Actor = &actor
		s.publish(ctx, toClient)
	}
}

func (s *LifecycleService) newEvent(kind model.EventKind, audience model.Audience, booking *model.Booking) model.Event {
	event := model.Event{
		ID:         uuid.NewString(),
		Kind:       kind,
		Audience:   audience,
		OccurredAt: s.now(),
		BookingID:  booking.ID,
		Date:       booking.Date,
		Hour:       booking.Hour,
		Selection:  booking.Selection,
	}
	if booking.Client != nil {
		event.ClientName = booking.Client.Name
		event.Phone = booking.Client.Phone
	}
	if booking.TotalPrice != nil {
		event.TotalPrice = *booking.TotalPrice
	}
	return event
}

func (s *LifecycleService) publish(ctx context.Context, event model.Event) {
	if s.notifier == nil {
		return
	}
	s.notifier.Publish(ctx, event)
}

func newer(a, b *model.Booking) bool {
	if !a.UpdatedAt.Equal(b.UpdatedAt) {
		return a.UpdatedAt.After(b.UpdatedAt)
	}
	return a.ID > b.ID
}
