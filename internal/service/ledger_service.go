package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Freeeeeet/studio_booking/internal/model"
	"github.com/Freeeeeet/studio_booking/internal/repository"
	"go.uber.org/zap"
)

// Schedule рабочее окно студии. Часы StartHour..EndHour включительно.
type Schedule struct {
	StartHour int
	EndHour   int
	Location  *time.Location
	Now       func() time.Time
}

// DefaultSchedule окно 9..20 по Киеву
func DefaultSchedule() Schedule {
	loc, err := time.LoadLocation("Europe/Kyiv")
	if err != nil {
		loc = time.UTC
	}
	return Schedule{StartHour: 9, EndHour: 20, Location: loc, Now: time.Now}
}

// Hours все рабочие часы по порядку
func (s Schedule) Hours() []int {
	hours := make([]int, 0, s.EndHour-s.StartHour+1)
	for h := s.StartHour; h <= s.EndHour; h++ {
		hours = append(hours, h)
	}
	return hours
}

func (s Schedule) InWindow(hour int) bool {
	return hour >= s.StartHour && hour <= s.EndHour
}

// Today текущая дата студии
func (s Schedule) Today() time.Time {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	loc := s.Location
	if loc == nil {
		loc = time.UTC
	}
	return model.DateOnly(now().In(loc))
}

// DayAvailability свободные и занятые часы одного дня
type DayAvailability struct {
	Date           time.Time `json:"date"`
	HasBookings    bool      `json:"has_bookings"`
	AvailableHours []int     `json:"available_hours"`
	BookedHours    []int     `json:"booked_hours"`
}

// HourDetail час дня с бронированием для администратора
type HourDetail struct {
	Hour    int            `json:"hour"`
	Booking *model.Booking `json:"booking,omitempty"`
}

// LedgerService владеет слотами: не больше одного живого бронирования на (дата, час)
type LedgerService struct {
	clients  ClientStore
	bookings BookingStore
	tx       TxManager
	schedule Schedule
	recorder Recorder
	logger   *zap.Logger
}

func NewLedgerService(
	clients ClientStore,
	bookings BookingStore,
	tx TxManager,
	schedule Schedule,
	logger *zap.Logger,
) *LedgerService {
	return &LedgerService{
		clients:  clients,
		bookings: bookings,
		tx:       tx,
		schedule: schedule,
		recorder: nopRecorder{},
		logger:   logger,
	}
}

// WithRecorder подключает метрики
func (s *LedgerService) WithRecorder(r Recorder) *LedgerService {
	if r != nil {
		s.recorder = r
	}
	return s
}

// Schedule возвращает рабочее окно
func (s *LedgerService) Schedule() Schedule {
	return s.schedule
}

// Reserve создаёт pending бронирование для клиента.
// Конфликт слота откатывает всю транзакцию, включая только что созданного клиента.
func (s *LedgerService) Reserve(ctx context.Context, date time.Time, hour int, name, phone string) (*model.Booking, error) {
	name = strings.TrimSpace(name)
	phone = strings.TrimSpace(phone)

	if err := ValidateContact(name, phone); err != nil {
		return nil, err
	}

	date = model.DateOnly(date)
	if date.Before(s.schedule.Today()) {
		return nil, ErrPastDate
	}
	if !s.schedule.InWindow(hour) {
		return nil, ErrInvalidHour
	}

	var booking *model.Booking
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		client, err := s.clients.GetOrCreate(ctx, name, phone)
		if err != nil {
			return fmt.Errorf("get or create client: %w", err)
		}

		b := &model.Booking{
			ClientID: client.ID,
			Date:     date,
			Hour:     hour,
			Status:   model.BookingStatusPending,
		}
		if err := s.bookings.Insert(ctx, b); err != nil {
			return err
		}

		b.Client = client
		booking = b
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrSlotTaken) {
			s.recorder.SlotConflict()
			s.logger.Info("Slot already taken",
				zap.Time("date", date),
				zap.Int("hour", hour),
			)
			return nil, ErrSlotTaken
		}
		return nil, fmt.Errorf("reserve slot: %w", err)
	}

	s.recorder.BookingCreated()
	s.logger.Info("Slot reserved",
		zap.Int64("booking_id", booking.ID),
		zap.Int64("client_id", booking.ClientID),
		zap.Time("date", date),
		zap.Int("hour", hour),
	)

	return booking, nil
}

// Release освобождает слот независимо от статуса. Неизвестный ID - успех.
func (s *LedgerService) Release(ctx context.Context, id int64) (*model.Booking, error) {
	return s.release(ctx, id, model.LiveStatuses, nil)
}

// ReleaseUnpaid освобождает слот, если бронирование ещё не оплачено.
// Если telegramID не nil, бронирование должно быть привязано к нему.
func (s *LedgerService) ReleaseUnpaid(ctx context.Context, id int64, telegramID *int64) (*model.Booking, error) {
	return s.release(ctx, id, []model.BookingStatus{
		model.BookingStatusPending,
		model.BookingStatusConfirmed,
	}, telegramID)
}

func (s *LedgerService) release(ctx context.Context, id int64, from []model.BookingStatus, telegramID *int64) (*model.Booking, error) {
	booking, err := s.bookings.UpdateStatus(ctx, id, from, model.BookingStatusCancelled, telegramID)
	if err != nil {
		return nil, fmt.Errorf("release slot: %w", err)
	}
	if booking == nil {
		return nil, nil
	}

	s.recorder.Transition(model.BookingStatusCancelled)
	s.logger.Info("Slot released",
		zap.Int64("booking_id", booking.ID),
		zap.Time("date", booking.Date),
		zap.Int("hour", booking.Hour),
	)

	return booking, nil
}

// Availability свободные часы на дату
func (s *LedgerService) Availability(ctx context.Context, date time.Time) (*DayAvailability, error) {
	date = model.DateOnly(date)

	bookings, err := s.bookings.ListByDate(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("list bookings by date: %w", err)
	}

	day := s.buildDay(date, bookings)
	return &day, nil
}

// MonthAvailability свободные часы на каждый день месяца
func (s *LedgerService) MonthAvailability(ctx context.Context, year, month int) ([]DayAvailability, error) {
	first, err := DateFromParts(year, month, 1)
	if err != nil {
		return nil, err
	}
	last := first.AddDate(0, 1, -1)

	bookings, err := s.bookings.ListByDateRange(ctx, &first, &last)
	if err != nil {
		return nil, fmt.Errorf("list bookings by month: %w", err)
	}

	byDate := make(map[time.Time][]*model.Booking)
	for _, b := range bookings {
		byDate[b.Date] = append(byDate[b.Date], b)
	}

	days := make([]DayAvailability, 0, last.Day())
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		days = append(days, s.buildDay(d, byDate[d]))
	}

	return days, nil
}

// List живые бронирования в диапазоне дат
func (s *LedgerService) List(ctx context.Context, from, to *time.Time) ([]*model.Booking, error) {
	if from != nil && to != nil && to.Before(*from) {
		return nil, &ValidationError{Field: "end_date", Msg: "end date is before start date"}
	}

	bookings, err := s.bookings.ListByDateRange(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	return bookings, nil
}

// AdminDay все рабочие часы дня с бронированиями
func (s *LedgerService) AdminDay(ctx context.Context, date time.Time) ([]HourDetail, error) {
	date = model.DateOnly(date)

	bookings, err := s.bookings.ListByDate(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("list bookings by date: %w", err)
	}

	byHour := make(map[int]*model.Booking, len(bookings))
	for _, b := range bookings {
		byHour[b.Hour] = b
	}

	hours := s.schedule.Hours()
	details := make([]HourDetail, 0, len(hours))
	for _, h := range hours {
		details = append(details, HourDetail{Hour: h, Booking: byHour[h]})
	}

	return details, nil
}

// FindClient ищет клиента по телефону
func (s *LedgerService) FindClient(ctx context.Context, phone string) (*model.Client, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return nil, ErrInvalidPhone
	}

	client, err := s.clients.FindByPhone(ctx, phone)
	if err != nil {
		return nil, fmt.Errorf("find client: %w", err)
	}
	if client == nil {
		return nil, ErrNotFound
	}
	return client, nil
}

func (s *LedgerService) buildDay(date time.Time, bookings []*model.Booking) DayAvailability {
	taken := make(map[int]bool, len(bookings))
	for _, b := range bookings {
		if b.Status.IsLive() {
			taken[b.Hour] = true
		}
	}

	day := DayAvailability{
		Date:           date,
		AvailableHours: []int{},
		BookedHours:    []int{},
	}
	for _, h := range s.schedule.Hours() {
		if taken[h] {
			day.BookedHours = append(day.BookedHours, h)
		} else {
			day.AvailableHours = append(day.AvailableHours, h)
		}
	}
	day.HasBookings = len(day.BookedHours) > 0

	return day
}

// ValidateContact проверяет имя и телефон клиента
func ValidateContact(name, phone string) error {
	if n := utf8.RuneCountInString(name); n < 1 || n > 100 {
		return ErrInvalidName
	}
	if n := utf8.RuneCountInString(phone); n < 10 || n > 20 {
		return ErrInvalidPhone
	}
	return nil
}

// DateFromParts собирает дату, отклоняя несуществующие месяц и день
func DateFromParts(year, month, day int) (time.Time, error) {
	if month < 1 || month > 12 {
		return time.Time{}, ErrInvalidMonth
	}
	if year < 1 || year > 9999 {
		return time.Time{}, &ValidationError{Field: "year", Msg: "year is out of range"}
	}

	date := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if day < 1 || date.Day() != day {
		return time.Time{}, ErrInvalidDay
	}
	return date, nil
}

const dateLayout = "2006-01-02"

// ParseDate разбирает дату в формате YYYY-MM-DD
func ParseDate(value string) (time.Time, error) {
	if date, err := time.Parse(dateLayout, value); err == nil {
		return date, nil
	}

	// Формат верный, но месяц или день не существуют
	if len(value) == len(dateLayout) && value[4] == '-' && value[7] == '-' {
		year, yerr := strconv.Atoi(value[:4])
		month, merr := strconv.Atoi(value[5:7])
		day, derr := strconv.Atoi(value[8:])
		if yerr == nil && merr == nil && derr == nil && digitsOnly(value) {
			return DateFromParts(year, month, day)
		}
	}
	return time.Time{}, &ValidationError{Field: "date", Msg: "expected YYYY-MM-DD"}
}

func digitsOnly(value string) bool {
	for i, r := range value {
		if i == 4 || i == 7 {
			continue
		}
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
