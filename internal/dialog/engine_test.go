package dialog

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Freeeeeet/studio_booking/internal/model"
	"github.com/Freeeeeet/studio_booking/internal/repository/memstore"
	"github.com/Freeeeeet/studio_booking/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var bookingDay = time.Date(2030, 5, 2, 0, 0, 0, 0, time.UTC)

type countingNotifier struct {
	mu    sync.Mutex
	kinds map[model.EventKind]int
}

func (n *countingNotifier) Publish(_ context.Context, e model.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.kinds == nil {
		n.kinds = make(map[model.EventKind]int)
	}
	n.kinds[e.Kind]++
}

func (n *countingNotifier) count(kind model.EventKind) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.kinds[kind]
}

type env struct {
	engine    *Engine
	lifecycle *service.LifecycleService
	notifier  *countingNotifier
}

func newEnv(t *testing.T) *env {
	t.Helper()

	db := memstore.New()
	schedule := service.Schedule{
		StartHour: 9,
		EndHour:   20,
		Location:  time.UTC,
		Now:       func() time.Time { return bookingDay.AddDate(0, 0, -1) },
	}
	notifier := &countingNotifier{}
	ledger := service.NewLedgerService(db.Clients(), db.Bookings(), db, schedule, zap.NewNop())
	lifecycle := service.NewLifecycleService(ledger, db.Bookings(), service.DefaultTariff(), notifier, zap.NewNop())

	return &env{
		engine:    NewEngine(lifecycle, NewStore(), time.Hour, zap.NewNop()),
		lifecycle: lifecycle,
		notifier:  notifier,
	}
}

func (e *env) book(t *testing.T, hour int) int64 {
	t.Helper()

	b, err := e.lifecycle.Create(context.Background(), bookingDay, hour, "Олена", "+380501112233")
	require.NoError(t, err)
	return b.ID
}

func user(id int64) model.Actor {
	return model.Actor{TelegramID: id, Username: "olena"}
}

func answerAll(t *testing.T, e *Engine, actor model.Actor, answers ...string) Prompt {
	t.Helper()

	var p Prompt
	for _, a := range answers {
		var err error
		p, err = e.Answer(context.Background(), actor, a)
		require.NoError(t, err)
	}
	return p
}

func TestEngineHappyPath(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	actor := user(100)
	id := env.book(t, 10)

	p, err := env.engine.StartConfirmation(ctx, id, actor)
	require.NoError(t, err)
	assert.Equal(t, KindConfirm, p.Kind)

	p, err = env.engine.Accept(ctx, id, actor)
	require.NoError(t, err)
	assert.Equal(t, KindAsk, p.Kind)
	assert.Equal(t, StepPeople, p.Step)

	p = answerAll(t, env.engine, actor, TokenCustom)
	assert.Equal(t, StepPeopleCustom, p.Step)

	p = answerAll(t, env.engine, actor, "7", "both", TokenOne, "red")
	require.Equal(t, KindPaymentDetails, p.Kind)
	assert.Equal(t, 1000+3*100+300+200, p.Price)
	assert.Equal(t, model.Selection{People: 7, Zone: model.ZoneBoth, Animals: 1, Background: model.BackgroundRed}, p.Selection)

	_, ok := env.engine.Conversation(100)
	assert.False(t, ok, "диалог удаляется после завершения")

	p, err = env.engine.SubmitPaymentProof(ctx, actor, model.PaymentProof{ChatID: 100, MessageID: 5})
	require.NoError(t, err)
	assert.Equal(t, KindPaymentReceived, p.Kind)
	assert.Equal(t, model.BookingStatusPaid, p.Booking.Status)
}

func TestEngineInvalidInputReprompts(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	actor := user(100)
	id := env.book(t, 10)

	_, err := env.engine.Accept(ctx, id, actor)
	require.NoError(t, err)

	p := answerAll(t, env.engine, actor, TokenCustom, "abc")
	assert.True(t, p.Invalid)
	assert.Equal(t, StepPeopleCustom, p.Step)

	p = answerAll(t, env.engine, actor, "3")
	assert.True(t, p.Invalid, "в свободном вводе допустимо только 5..20")

	p = answerAll(t, env.engine, actor, "21")
	assert.True(t, p.Invalid)

	p = answerAll(t, env.engine, actor, "5")
	assert.False(t, p.Invalid)
	assert.Equal(t, StepZone, p.Step)

	p = answerAll(t, env.engine, actor, "grey")
	assert.True(t, p.Invalid)
	assert.Equal(t, StepZone, p.Step)

	p = answerAll(t, env.engine, actor, "light", TokenCustom, "1")
	assert.True(t, p.Invalid)
	assert.Equal(t, StepAnimalsCustom, p.Step)

	conv, ok := env.engine.Conversation(100)
	require.True(t, ok)
	assert.Equal(t, 5, conv.Selection.People)
	assert.Equal(t, model.ZoneLight, conv.Selection.Zone)
}

func TestEngineCancelAtAnyStep(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	actor := user(100)
	id := env.book(t, 10)

	_, err := env.engine.Accept(ctx, id, actor)
	require.NoError(t, err)
	answerAll(t, env.engine, actor, TokenUpTo4, "dark")

	p, err := env.engine.Cancel(ctx, actor, 0)
	require.NoError(t, err)
	assert.Equal(t, KindCancelled, p.Kind)

	_, ok := env.engine.Conversation(100)
	assert.False(t, ok)

	p, err = env.engine.Answer(ctx, actor, TokenNone)
	require.NoError(t, err)
	assert.Equal(t, KindNoConversation, p.Kind)

	p, err = env.engine.Cancel(ctx, actor, id)
	require.NoError(t, err)
	assert.Equal(t, KindNothingToCancel, p.Kind)
	assert.Equal(t, 1, env.notifier.count(model.EventBookingCancelled))
}

func TestEngineCancelPendingWithoutConversation(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	actor := user(100)
	id := env.book(t, 10)

	_, err := env.engine.StartConfirmation(ctx, id, actor)
	require.NoError(t, err)

	p, err := env.engine.Cancel(ctx, actor, 0)
	require.NoError(t, err)
	assert.Equal(t, KindCancelled, p.Kind)

	p, err = env.engine.Cancel(ctx, user(200), 0)
	require.NoError(t, err)
	assert.Equal(t, KindNothingToCancel, p.Kind)
}

func TestEngineLastAcceptanceWins(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	actor := user(100)
	first := env.book(t, 10)
	second := env.book(t, 11)

	_, err := env.engine.Accept(ctx, first, actor)
	require.NoError(t, err)
	answerAll(t, env.engine, actor, TokenUpTo4)

	_, err = env.engine.Accept(ctx, second, actor)
	require.NoError(t, err)

	conv, ok := env.engine.Conversation(100)
	require.True(t, ok)
	assert.Equal(t, second, conv.BookingID)
	assert.Equal(t, StepPeople, conv.Step)
}

func TestEngineConcurrentAcceptDoesNotDuplicate(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	actor := user(100)
	id := env.book(t, 10)

	var wg sync.WaitGroup
	prompts := make([]Prompt, 2)
	for i := range prompts {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, err := env.engine.Accept(ctx, id, actor)
			assert.NoError(t, err)
			prompts[i] = p
		}(i)
	}
	wg.Wait()

	kinds := []Kind{prompts[0].Kind, prompts[1].Kind}
	assert.ElementsMatch(t, []Kind{KindAsk, KindAlreadyConfirmed}, kinds)
	assert.Equal(t, 1, env.notifier.count(model.EventAwaitingSelection))
}

func TestEngineStrangerIsRejected(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	id := env.book(t, 10)

	_, err := env.engine.StartConfirmation(ctx, id, user(100))
	require.NoError(t, err)

	p, err := env.engine.StartConfirmation(ctx, id, user(200))
	require.NoError(t, err)
	assert.Equal(t, KindForbidden, p.Kind)

	p, err = env.engine.Accept(ctx, id, user(200))
	require.NoError(t, err)
	assert.Equal(t, KindForbidden, p.Kind)

	p, err = env.engine.StartConfirmation(ctx, 9999, user(100))
	require.NoError(t, err)
	assert.Equal(t, KindNotFound, p.Kind)
}

func TestEngineStrangerSeesConfirmedSummary(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	id := env.book(t, 10)

	p, err := env.engine.Accept(ctx, id, user(100))
	require.NoError(t, err)
	require.Equal(t, KindAsk, p.Kind)

	p, err = env.engine.StartConfirmation(ctx, id, user(200))
	require.NoError(t, err)
	assert.Equal(t, KindAlreadyConfirmed, p.Kind)
	assert.False(t, p.Owner)

	p, err = env.engine.Accept(ctx, id, user(200))
	require.NoError(t, err)
	assert.Equal(t, KindAlreadyConfirmed, p.Kind)
	assert.False(t, p.Owner)

	_, ok := env.engine.Conversation(200)
	assert.False(t, ok)

	p, err = env.engine.StartConfirmation(ctx, id, user(100))
	require.NoError(t, err)
	assert.Equal(t, KindAlreadyConfirmed, p.Kind)
	assert.True(t, p.Owner)
}

func TestEngineResumeAfterExpiry(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	actor := user(100)
	id := env.book(t, 10)

	now := time.Date(2030, 5, 1, 12, 0, 0, 0, time.UTC)
	env.engine.now = func() time.Time { return now }

	_, err := env.engine.Accept(ctx, id, actor)
	require.NoError(t, err)
	answerAll(t, env.engine, actor, TokenUpTo4)

	now = now.Add(2 * time.Hour)
	assert.Equal(t, 1, env.engine.ExpireIdle())

	_, ok := env.engine.Conversation(100)
	assert.False(t, ok)

	// Бронирование осталось подтверждённым
	b, err := env.lifecycle.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusConfirmed, b.Status)

	p, err := env.engine.Resume(ctx, actor)
	require.NoError(t, err)
	assert.Equal(t, KindAsk, p.Kind)
	assert.Equal(t, StepPeople, p.Step)

	p, err = env.engine.Resume(ctx, user(200))
	require.NoError(t, err)
	assert.Equal(t, KindNothingToResume, p.Kind)
}

func TestEnginePaymentProofBeforeSelection(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	actor := user(100)

	p, err := env.engine.SubmitPaymentProof(ctx, actor, model.PaymentProof{})
	require.NoError(t, err)
	assert.Equal(t, KindNoPaymentExpected, p.Kind)

	id := env.book(t, 10)
	_, err = env.engine.Accept(ctx, id, actor)
	require.NoError(t, err)

	p, err = env.engine.SubmitPaymentProof(ctx, actor, model.PaymentProof{})
	require.NoError(t, err)
	assert.Equal(t, KindSelectionRequired, p.Kind)
}
