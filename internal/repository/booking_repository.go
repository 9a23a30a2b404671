package repository

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/Freeeeeet/studio_booking/internal/model"
	"github.com/Freeeeeet/studio_booking/internal/repository/base"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// bookingColumns колонки бронирования вместе с клиентом, порядок совпадает со scanBooking
const bookingColumns = `
	b.id, b.client_id, b.booking_date, b.booking_hour, b.status, b.telegram_user_id,
	b.people_count, b.zone, b.animals_count, b.background, b.total_price,
	b.created_at, b.updated_at, b.cancelled_at,
	c.id, c.name, c.phone, c.created_at`

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

type BookingRepository struct {
	*base.Repository
}

func NewBookingRepository(pool *pgxpool.Pool) *BookingRepository {
	return &BookingRepository{Repository: base.NewRepository(pool)}
}

// Insert создаёт бронирование. Занятый слот возвращает ErrSlotTaken.
func (r *BookingRepository) Insert(ctx context.Context, booking *model.Booking) error {
	query := `
		INSERT INTO bookings (client_id, booking_date, booking_hour, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`

	err := r.Executor(ctx).QueryRow(
		ctx, query,
		booking.ClientID,
		booking.Date,
		booking.Hour,
		string(booking.Status),
	).Scan(&booking.ID, &booking.CreatedAt, &booking.UpdatedAt)

	if err != nil {
		if base.IsUniqueViolation(err, LiveSlotConstraint) {
			return ErrSlotTaken
		}
		return fmt.Errorf("insert booking: %w", err)
	}

	return nil
}

// GetByID получает бронирование по ID (включая отменённые)
func (r *BookingRepository) GetByID(ctx context.Context, id int64) (*model.Booking, error) {
	query := `SELECT ` + bookingColumns + `
		FROM bookings b
		JOIN clients c ON c.id = b.client_id
		WHERE b.id = $1
	`

	booking, err := scanBooking(r.Executor(ctx).QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get booking by id: %w", err)
	}

	return booking, nil
}

// ListByDate получает живые бронирования на дату
func (r *BookingRepository) ListByDate(ctx context.Context, date time.Time) ([]*model.Booking, error) {
	return r.ListByDateRange(ctx, &date, &date)
}

// ListByDateRange получает живые бронирования в диапазоне дат (границы включительно, nil - без границы)
func (r *BookingRepository) ListByDateRange(ctx context.Context, from, to *time.Time) ([]*model.Booking, error) {
	builder := psql.Select(bookingColumns).
		From("bookings b").
		Join("clients c ON c.id = b.client_id").
		Where(sq.NotEq{"b.status": string(model.BookingStatusCancelled)}).
		OrderBy("b.booking_date", "b.booking_hour")

	if from != nil {
		builder = builder.Where(sq.GtOrEq{"b.booking_date": *from})
	}
	if to != nil {
		builder = builder.Where(sq.LtOrEq{"b.booking_date": *to})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list bookings query: %w", err)
	}

	return r.queryBookings(ctx, query, args...)
}

// ListByTelegramUser получает бронирования пользователя в указанных статусах
func (r *BookingRepository) ListByTelegramUser(ctx context.Context, telegramID int64, statuses ...model.BookingStatus) ([]*model.Booking, error) {
	query, args, err := psql.Select(bookingColumns).
		From("bookings b").
		Join("clients c ON c.id = b.client_id").
		Where(sq.Eq{"b.telegram_user_id": telegramID}).
		Where(sq.Eq{"b.status": statusStrings(statuses)}).
		OrderBy("b.booking_date", "b.booking_hour").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list by telegram user query: %w", err)
	}

	return r.queryBookings(ctx, query, args...)
}

// BindTelegramUser привязывает пользователя к pending бронированию.
// Срабатывает только если привязки ещё нет или она совпадает.
func (r *BookingRepository) BindTelegramUser(ctx context.Context, id, telegramID int64) (bool, error) {
	query := `
		UPDATE bookings
		SET telegram_user_id = $2, updated_at = now()
		WHERE id = $1
		  AND status = 'pending'
		  AND (telegram_user_id IS NULL OR telegram_user_id = $2)
	`

	affected, err := r.ExecAffected(ctx, query, id, telegramID)
	if err != nil {
		return false, fmt.Errorf("bind telegram user: %w", err)
	}

	return affected == 1, nil
}

// UpdateStatus атомарно переводит бронирование из одного из статусов from в to.
// Если telegramID не nil, бронирование должно быть привязано к нему.
// Возвращает nil, если условие не выполнено.
func (r *BookingRepository) UpdateStatus(ctx context.Context, id int64, from []model.BookingStatus, to model.BookingStatus, telegramID *int64) (*model.Booking, error) {
	query := `
		WITH updated AS (
			UPDATE bookings
			SET status = $3,
			    updated_at = now(),
			    cancelled_at = CASE WHEN $3 = 'cancelled' THEN now() ELSE cancelled_at END
			WHERE id = $1
			  AND status = ANY($2)
			  AND ($4::bigint IS NULL OR telegram_user_id = $4)
			RETURNING *
		)
		SELECT ` + bookingColumns + `
		FROM updated b
		JOIN clients c ON c.id = b.client_id
	`

	booking, err := scanBooking(r.Executor(ctx).QueryRow(ctx, query, id, statusStrings(from), string(to), telegramID))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("update booking status: %w", err)
	}

	return booking, nil
}

// SetSelection сохраняет выбранные услуги и цену для подтверждённого бронирования.
// Возвращает nil, если бронирование не подтверждено, чужое или услуги уже выбраны.
func (r *BookingRepository) SetSelection(ctx context.Context, id, telegramID int64, selection model.Selection, price int) (*model.Booking, error) {
	query := `
		WITH updated AS (
			UPDATE bookings
			SET people_count = $3, zone = $4, animals_count = $5, background = $6,
			    total_price = $7, updated_at = now()
			WHERE id = $1
			  AND telegram_user_id = $2
			  AND status = 'confirmed'
			  AND total_price IS NULL
			RETURNING *
		)
		SELECT ` + bookingColumns + `
		FROM updated b
		JOIN clients c ON c.id = b.client_id
	`

	booking, err := scanBooking(r.Executor(ctx).QueryRow(
		ctx, query,
		id,
		telegramID,
		selection.People,
		string(selection.Zone),
		selection.Animals,
		string(selection.Background),
		price,
	))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("set booking selection: %w", err)
	}

	return booking, nil
}

func (r *BookingRepository) queryBookings(ctx context.Context, query string, args ...any) ([]*model.Booking, error) {
	rows, err := r.Executor(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query bookings: %w", err)
	}
	defer rows.Close()

	var bookings []*model.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		bookings = append(bookings, booking)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bookings: %w", err)
	}

	return bookings, nil
}

func scanBooking(row pgx.Row) (*model.Booking, error) {
	var (
		booking    model.Booking
		client     model.Client
		people     *int
		zone       *string
		animals    *int
		background *string
	)

	err := row.Scan(
		&booking.ID,
		&booking.ClientID,
		&booking.Date,
		&booking.Hour,
		&booking.Status,
		&booking.TelegramUserID,
		&people,
		&zone,
		&animals,
		&background,
		&booking.TotalPrice,
		&booking.CreatedAt,
		&booking.UpdatedAt,
		&booking.CancelledAt,
		&client.ID,
		&client.Name,
		&client.Phone,
		&client.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if people != nil && zone != nil && animals != nil && background != nil {
		booking.Selection = &model.Selection{
			People:     *people,
			Zone:       model.Zone(*zone),
			Animals:    *animals,
			Background: model.Background(*background),
		}
	}
	booking.Date = model.DateOnly(booking.Date)
	booking.Client = &client

	return &booking, nil
}

func statusStrings(statuses []model.BookingStatus) []string {
	result := make([]string, 0, len(statuses))
	for _, s := range statuses {
		result = append(result, string(s))
	}
	return result
}
