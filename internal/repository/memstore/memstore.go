// Package memstore хранилище в памяти с теми же гарантиями, что и postgres:
// уникальность живого слота, условные обновления и откат транзакции.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Freeeeeet/studio_booking/internal/model"
	"github.com/Freeeeeet/studio_booking/internal/repository"
)

type slotKey struct {
	date time.Time
	hour int
}

type journalKey struct{}

// journal список отмен для текущей транзакции
type journal struct {
	undo []func()
}

type DB struct {
	mu sync.Mutex

	clients  map[int64]*model.Client
	phones   map[string]int64
	bookings map[int64]*model.Booking
	live     map[slotKey]int64

	// Клиенты, созданные незавершённой транзакцией и ещё никем не прочитанные
	created map[int64]*journal

	nextClientID  int64
	nextBookingID int64

	now func() time.Time
}

// New создаёт пустое хранилище
func New() *DB {
	return &DB{
		clients:  make(map[int64]*model.Client),
		phones:   make(map[string]int64),
		bookings: make(map[int64]*model.Booking),
		live:     make(map[slotKey]int64),
		created:  make(map[int64]*journal),
		now:      time.Now,
	}
}

// Clients возвращает хранилище клиентов
func (db *DB) Clients() *ClientStore {
	return &ClientStore{db: db}
}

// Bookings возвращает хранилище бронирований
func (db *DB) Bookings() *BookingStore {
	return &BookingStore{db: db}
}

// WithinTx выполняет fn и откатывает её изменения, если fn вернула ошибку
func (db *DB) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(journalKey{}).(*journal); ok {
		return fn(ctx)
	}

	j := &journal{}
	err := fn(context.WithValue(ctx, journalKey{}, j))

	db.mu.Lock()
	defer db.mu.Unlock()

	if err != nil {
		for i := len(j.undo) - 1; i >= 0; i-- {
			j.undo[i]()
		}
	}
	for id, owner := range db.created {
		if owner == j {
			delete(db.created, id)
		}
	}
	return err
}

func current(ctx context.Context) *journal {
	j, _ := ctx.Value(journalKey{}).(*journal)
	return j
}

// record запоминает отмену изменения, вызывается под db.mu
func record(ctx context.Context, undo func()) {
	if j, ok := ctx.Value(journalKey{}).(*journal); ok {
		j.undo = append(j.undo, undo)
	}
}

type ClientStore struct {
	db *DB
}

// GetOrCreate находит клиента по телефону или создаёт нового
func (s *ClientStore) GetOrCreate(ctx context.Context, name, phone string) (*model.Client, error) {
	db := s.db
	db.mu.Lock()
	defer db.mu.Unlock()

	if id, ok := db.phones[phone]; ok {
		// Клиента увидела другая транзакция, откат создателя его не удаляет
		if owner, pending := db.created[id]; pending && owner != current(ctx) {
			delete(db.created, id)
		}
		c := *db.clients[id]
		return &c, nil
	}

	db.nextClientID++
	client := &model.Client{
		ID:        db.nextClientID,
		Name:      name,
		Phone:     phone,
		CreatedAt: db.now(),
	}
	db.clients[client.ID] = client
	db.phones[phone] = client.ID

	j := current(ctx)
	if j == nil {
		c := *client
		return &c, nil
	}
	db.created[client.ID] = j

	record(ctx, func() {
		if db.created[client.ID] != j {
			return
		}
		delete(db.created, client.ID)
		for _, b := range db.bookings {
			if b.ClientID == client.ID {
				return
			}
		}
		delete(db.clients, client.ID)
		delete(db.phones, phone)
	})

	c := *client
	return &c, nil
}

// GetByID получает клиента по ID
func (s *ClientStore) GetByID(_ context.Context, id int64) (*model.Client, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	client, ok := s.db.clients[id]
	if !ok {
		return nil, nil
	}
	c := *client
	return &c, nil
}

// FindByPhone получает клиента по телефону
func (s *ClientStore) FindByPhone(_ context.Context, phone string) (*model.Client, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	id, ok := s.db.phones[phone]
	if !ok {
		return nil, nil
	}
	c := *s.db.clients[id]
	return &c, nil
}

type BookingStore struct {
	db *DB
}

// Insert создаёт бронирование, занятый слот возвращает repository.ErrSlotTaken
func (s *BookingStore) Insert(ctx context.Context, booking *model.Booking) error {
	db := s.db
	db.mu.Lock()
	defer db.mu.Unlock()

	key := slotKey{date: model.DateOnly(booking.Date), hour: booking.Hour}
	if booking.Status.IsLive() {
		if _, taken := db.live[key]; taken {
			return repository.ErrSlotTaken
		}
	}

	db.nextBookingID++
	now := db.now()
	stored := cloneBooking(booking)
	stored.ID = db.nextBookingID
	stored.Date = key.date
	stored.CreatedAt = now
	stored.UpdatedAt = now
	stored.Client = nil

	db.bookings[stored.ID] = stored
	if stored.Status.IsLive() {
		db.live[key] = stored.ID
	}

	record(ctx, func() {
		delete(db.bookings, stored.ID)
		if db.live[key] == stored.ID {
			delete(db.live, key)
		}
	})

	booking.ID = stored.ID
	booking.CreatedAt = now
	booking.UpdatedAt = now
	return nil
}

// GetByID получает бронирование по ID
func (s *BookingStore) GetByID(_ context.Context, id int64) (*model.Booking, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	booking, ok := s.db.bookings[id]
	if !ok {
		return nil, nil
	}
	return s.db.view(booking), nil
}

// ListByDate получает живые бронирования на дату
func (s *BookingStore) ListByDate(ctx context.Context, date time.Time) ([]*model.Booking, error) {
	return s.ListByDateRange(ctx, &date, &date)
}

// ListByDateRange получает живые бронирования в диапазоне дат включительно
func (s *BookingStore) ListByDateRange(_ context.Context, from, to *time.Time) ([]*model.Booking, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	return s.db.filter(func(b *model.Booking) bool {
		if !b.Status.IsLive() {
			return false
		}
		if from != nil && b.Date.Before(model.DateOnly(*from)) {
			return false
		}
		if to != nil && b.Date.After(model.DateOnly(*to)) {
			return false
		}
		return true
	}), nil
}

// ListByTelegramUser получает бронирования пользователя в указанных статусах
func (s *BookingStore) ListByTelegramUser(_ context.Context, telegramID int64, statuses ...model.BookingStatus) ([]*model.Booking, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	return s.db.filter(func(b *model.Booking) bool {
		return b.BoundTo(telegramID) && hasStatus(statuses, b.Status)
	}), nil
}

// BindTelegramUser привязывает пользователя к pending бронированию
func (s *BookingStore) BindTelegramUser(ctx context.Context, id, telegramID int64) (bool, error) {
	db := s.db
	db.mu.Lock()
	defer db.mu.Unlock()

	b, ok := db.bookings[id]
	if !ok || b.Status != model.BookingStatusPending {
		return false, nil
	}
	if b.TelegramUserID != nil && *b.TelegramUserID != telegramID {
		return false, nil
	}

	prev := cloneBooking(b)
	tid := telegramID
	b.TelegramUserID = &tid
	b.UpdatedAt = db.now()
	record(ctx, func() { db.bookings[id] = prev })

	return true, nil
}

// UpdateStatus атомарно переводит бронирование из статусов from в to
func (s *BookingStore) UpdateStatus(ctx context.Context, id int64, from []model.BookingStatus, to model.BookingStatus, telegramID *int64) (*model.Booking, error) {
	db := s.db
	db.mu.Lock()
	defer db.mu.Unlock()

	b, ok := db.bookings[id]
	if !ok || !hasStatus(from, b.Status) {
		return nil, nil
	}
	if telegramID != nil && !b.BoundTo(*telegramID) {
		return nil, nil
	}

	key := slotKey{date: b.Date, hour: b.Hour}
	if to.IsLive() && !b.Status.IsLive() {
		if _, taken := db.live[key]; taken {
			return nil, repository.ErrSlotTaken
		}
	}

	prev := cloneBooking(b)
	now := db.now()
	b.Status = to
	b.UpdatedAt = now
	if to == model.BookingStatusCancelled {
		b.CancelledAt = &now
	}
	if to.IsLive() {
		db.live[key] = id
	} else if db.live[key] == id {
		delete(db.live, key)
	}

	record(ctx, func() {
		db.bookings[id] = prev
		if prev.Status.IsLive() {
			db.live[key] = id
		} else if db.live[key] == id {
			delete(db.live, key)
		}
	})

	return db.view(b), nil
}

// SetSelection сохраняет услуги и цену подтверждённого бронирования
func (s *BookingStore) SetSelection(ctx context.Context, id, telegramID int64, selection model.Selection, price int) (*model.Booking, error) {
	db := s.db
	db.mu.Lock()
	defer db.mu.Unlock()

	b, ok := db.bookings[id]
	if !ok || b.Status != model.BookingStatusConfirmed || !b.BoundTo(telegramID) || b.TotalPrice != nil {
		return nil, nil
	}

	prev := cloneBooking(b)
	sel := selection
	p := price
	b.Selection = &sel
	b.TotalPrice = &p
	b.UpdatedAt = db.now()
	record(ctx, func() { db.bookings[id] = prev })

	return db.view(b), nil
}

// view копия бронирования вместе с клиентом, вызывается под db.mu
func (db *DB) view(b *model.Booking) *model.Booking {
	out := cloneBooking(b)
	if c, ok := db.clients[b.ClientID]; ok {
		client := *c
		out.Client = &client
	}
	return out
}

func (db *DB) filter(match func(*model.Booking) bool) []*model.Booking {
	var result []*model.Booking
	for _, b := range db.bookings {
		if match(b) {
			result = append(result, db.view(b))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].Date.Equal(result[j].Date) {
			return result[i].Date.Before(result[j].Date)
		}
		if result[i].Hour != result[j].Hour {
			return result[i].Hour < result[j].Hour
		}
		return result[i].ID < result[j].ID
	})
	return result
}

func hasStatus(statuses []model.BookingStatus, status model.BookingStatus) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

func cloneBooking(b *model.Booking) *model.Booking {
	out := *b
	if b.TelegramUserID != nil {
		v := *b.TelegramUserID
		out.TelegramUserID = &v
	}
	if b.Selection != nil {
		v := *b.Selection
		out.Selection = &v
	}
	if b.TotalPrice != nil {
		v := *b.TotalPrice
		out.TotalPrice = &v
	}
	if b.CancelledAt != nil {
		v := *b.CancelledAt
		out.CancelledAt = &v
	}
	if b.Client != nil {
		v := *b.Client
		out.Client = &v
	}
	return &out
}
