package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Freeeeeet/studio_booking/internal/model"
	"github.com/Freeeeeet/studio_booking/internal/repository/memstore"
	"github.com/Freeeeeet/studio_booking/internal/service"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	testSecret   = "test-secret"
	testPassword = "studio-admin"
)

var today = time.Date(2030, 5, 1, 0, 0, 0, 0, time.UTC)

type nopNotifier struct{}

func (nopNotifier) Publish(context.Context, model.Event) {}

func newTestServer(t *testing.T, limiter Limiter) *Server {
	t.Helper()

	db := memstore.New()
	schedule := service.Schedule{
		StartHour: 9,
		EndHour:   20,
		Location:  time.UTC,
		Now:       func() time.Time { return today.Add(8 * time.Hour) },
	}
	ledger := service.NewLedgerService(db.Clients(), db.Bookings(), db, schedule, zap.NewNop())
	lifecycle := service.NewLifecycleService(ledger, db.Bookings(), service.DefaultTariff(), nopNotifier{}, zap.NewNop())

	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)

	return NewServer(Config{
		Addr:        ":0",
		BotUsername: "studio_bot",
		Auth:        AuthConfig{JWTSecret: testSecret, PasswordHash: string(hash)},
		Limiter:     limiter,
	}, ledger, lifecycle, zap.NewNop())
}

func do(t *testing.T, s *Server, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func bookingBody(date string, hour int, phone string) string {
	return `{"name":"Олена","phone":"` + phone + `","booking_date":"` + date + `","booking_hour":` + itoa(hour) + `}`
}

func itoa(v int) string {
	return strconv.Itoa(v)
}

func login(t *testing.T, s *Server) string {
	t.Helper()

	rec := do(t, s, http.MethodPost, "/api/admin/login", `{"password":"`+testPassword+`"}`, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp tokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.AccessToken)
	return resp.AccessToken
}

func TestCreateBooking(t *testing.T) {
	s := newTestServer(t, nil)

	rec := do(t, s, http.MethodPost, "/api/bookings", bookingBody("2030-05-02", 10, "+380501112233"), "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp bookingResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "2030-05-02", resp.BookingDate)
	assert.Equal(t, 10, resp.BookingHour)
	assert.Equal(t, "pending", resp.Status)
	require.NotNil(t, resp.Client)
	assert.Equal(t, "+380501112233", resp.Client.Phone)
	assert.Equal(t, "https://t.me/studio_bot?start=booking_"+itoa(int(resp.ID)), resp.TelegramLink)

	// Тот же слот повторно
	rec = do(t, s, http.MethodPost, "/api/bookings", bookingBody("2030-05-02", 10, "+380509998877"), "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCreateBookingValidation(t *testing.T) {
	s := newTestServer(t, nil)

	tests := []struct {
		name string
		body string
	}{
		{"past date", bookingBody("2030-04-30", 10, "+380501112233")},
		{"hour outside window", bookingBody("2030-05-02", 22, "+380501112233")},
		{"short phone", bookingBody("2030-05-02", 10, "123")},
		{"bad date", bookingBody("2030-02-30", 10, "+380501112233")},
		{"malformed date", bookingBody("02.05.2030", 10, "+380501112233")},
		{"broken json", `{"name":`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, http.MethodPost, "/api/bookings", tt.body, "")
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}
}

func TestConcurrentCreateSameSlot(t *testing.T) {
	s := newTestServer(t, nil)

	const n = 8
	codes := make(chan int, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			phone := "+38050111220" + itoa(i)
			codes <- do(t, s, http.MethodPost, "/api/bookings", bookingBody("2030-05-03", 12, phone), "").Code
		}(i)
	}
	wg.Wait()
	close(codes)

	created, conflicts := 0, 0
	for code := range codes {
		switch code {
		case http.StatusCreated:
			created++
		case http.StatusConflict:
			conflicts++
		}
	}
	assert.Equal(t, 1, created)
	assert.Equal(t, n-1, conflicts)
}

func TestCalendarAndDay(t *testing.T) {
	s := newTestServer(t, nil)
	require.Equal(t, http.StatusCreated,
		do(t, s, http.MethodPost, "/api/bookings", bookingBody("2030-05-02", 10, "+380501112233"), "").Code)

	rec := do(t, s, http.MethodGet, "/api/day/2030-05-02", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var day dayResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &day))
	assert.True(t, day.HasBookings)
	assert.Equal(t, []int{10}, day.BookedHours)
	assert.NotContains(t, day.AvailableHours, 10)
	assert.Len(t, day.AvailableHours, 11)

	rec = do(t, s, http.MethodGet, "/api/calendar/2030/5", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var month []dayResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &month))
	require.Len(t, month, 31)
	assert.Equal(t, "2030-05-02", month[1].Date)
	assert.True(t, month[1].HasBookings)
	assert.False(t, month[0].HasBookings)

	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodGet, "/api/calendar/2030/13", "", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodGet, "/api/calendar/2030/x", "", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodGet, "/api/day/2030-02-30", "", "").Code)
}

func TestListBookingsRange(t *testing.T) {
	s := newTestServer(t, nil)
	for i, date := range []string{"2030-05-02", "2030-05-05", "2030-05-09"} {
		require.Equal(t, http.StatusCreated,
			do(t, s, http.MethodPost, "/api/bookings", bookingBody(date, 10, "+38050111223"+itoa(i)), "").Code)
	}

	rec := do(t, s, http.MethodGet, "/api/bookings?start_date=2030-05-03&end_date=2030-05-09", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var list []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 2)
	assert.Equal(t, map[string]any{"booking_date": "2030-05-05", "booking_hour": float64(10)}, list[0])
	assert.Equal(t, map[string]any{"booking_date": "2030-05-09", "booking_hour": float64(10)}, list[1])
	assert.NotContains(t, rec.Body.String(), "+38050")

	rec = do(t, s, http.MethodGet, "/api/bookings?start_date=2030-05-09&end_date=2030-05-01", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminRoutesRequireToken(t *testing.T) {
	s := newTestServer(t, nil)

	assert.Equal(t, http.StatusUnauthorized, do(t, s, http.MethodGet, "/api/admin/day/2030-05-02", "", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(t, s, http.MethodDelete, "/api/bookings/1", "", "garbage").Code)

	rec := do(t, s, http.MethodPost, "/api/admin/login", `{"password":"wrong"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Токен, подписанный другим ключом
	foreign, _, err := issueAdminToken("other-secret", time.Now())
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, do(t, s, http.MethodGet, "/api/admin/clients?phone=1", "", foreign).Code)
}

func TestAdminDayClientsAndCancel(t *testing.T) {
	s := newTestServer(t, nil)
	token := login(t, s)

	rec := do(t, s, http.MethodPost, "/api/bookings", bookingBody("2030-05-02", 10, "+380501112233"), "")
	require.Equal(t, http.StatusCreated, rec.Code)
	var created bookingResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = do(t, s, http.MethodGet, "/api/admin/day/2030-05-02", "", token)
	require.Equal(t, http.StatusOK, rec.Code)
	var hours []hourResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &hours))
	require.Len(t, hours, 12)
	assert.Equal(t, 9, hours[0].Hour)
	assert.Nil(t, hours[0].Booking)
	require.NotNil(t, hours[1].Booking)
	assert.Equal(t, created.ID, hours[1].Booking.ID)
	assert.Equal(t, "Олена", hours[1].Booking.Client.Name)

	rec = do(t, s, http.MethodGet, "/api/admin/clients?phone=%2B380501112233", "", token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Олена")
	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodGet, "/api/admin/clients?phone=%2B380000000000", "", token).Code)

	path := "/api/bookings/" + itoa(int(created.ID))
	assert.Equal(t, http.StatusNoContent, do(t, s, http.MethodDelete, path, "", token).Code)
	// Повторная отмена идемпотентна
	assert.Equal(t, http.StatusNoContent, do(t, s, http.MethodDelete, path, "", token).Code)
	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodDelete, "/api/bookings/999", "", token).Code)

	// Слот снова свободен
	rec = do(t, s, http.MethodPost, "/api/bookings", bookingBody("2030-05-02", 10, "+380509998877"), "")
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestRateLimitOnCreate(t *testing.T) {
	s := newTestServer(t, NewLocalLimiter(2))

	for i := 0; i < 2; i++ {
		rec := do(t, s, http.MethodPost, "/api/bookings", bookingBody("2030-05-02", 10+i, "+38050111223"+itoa(i)), "")
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := do(t, s, http.MethodPost, "/api/bookings", bookingBody("2030-05-02", 14, "+380501112239"), "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	// Чтение не ограничено
	assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/api/day/2030-05-02", "", "").Code)
}

func TestLocalLimiterEvictsIdleKeys(t *testing.T) {
	clock := time.Date(2030, 5, 1, 12, 0, 0, 0, time.UTC)
	limiter := NewLocalLimiter(5)
	limiter.now = func() time.Time { return clock }

	ctx := context.Background()
	for _, ip := range []string{"10.0.0.1", "10.0.0.2", "10.0.0.3"} {
		allowed, _, err := limiter.Allow(ctx, ip)
		require.NoError(t, err)
		require.True(t, allowed)
	}
	assert.Equal(t, 3, limiter.size())

	clock = clock.Add(time.Minute)
	_, _, err := limiter.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, 3, limiter.size())

	// Остаются ключ с недавним запросом и новый
	clock = clock.Add(90 * time.Second)
	_, _, err = limiter.Allow(ctx, "10.0.0.4")
	require.NoError(t, err)
	assert.Equal(t, 2, limiter.size())
}

func TestRedisLimiterFallsBackWhenUnavailable(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer rdb.Close()

	limiter := NewRedisLimiter(rdb, 1, zap.NewNop())

	allowed, _, err := limiter.Allow(context.Background(), "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, retry, err := limiter.Allow(context.Background(), "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Greater(t, retry, time.Duration(0))
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, nil)
	rec := do(t, s, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}
