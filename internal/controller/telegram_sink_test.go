package controller

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Freeeeeet/studio_booking/internal/model"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSender struct {
	mu        sync.Mutex
	failFor   map[int64]bool
	messages  []*bot.SendMessageParams
	photos    []*bot.SendPhotoParams
	documents []*bot.SendDocumentParams
}

func (f *fakeSender) fail(chatID any) error {
	if id, ok := chatID.(int64); ok && f.failFor[id] {
		return errors.New("blocked by user")
	}
	return nil
}

func (f *fakeSender) SendMessage(_ context.Context, p *bot.SendMessageParams) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail(p.ChatID); err != nil {
		return nil, err
	}
	f.messages = append(f.messages, p)
	return &models.Message{}, nil
}

func (f *fakeSender) SendPhoto(_ context.Context, p *bot.SendPhotoParams) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail(p.ChatID); err != nil {
		return nil, err
	}
	f.photos = append(f.photos, p)
	return &models.Message{}, nil
}

func (f *fakeSender) SendDocument(_ context.Context, p *bot.SendDocumentParams) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail(p.ChatID); err != nil {
		return nil, err
	}
	f.documents = append(f.documents, p)
	return &models.Message{}, nil
}

func sampleEvent(kind model.EventKind) model.Event {
	return model.Event{
		ID:         "e1",
		Kind:       kind,
		Audience:   model.AudienceAdmins,
		BookingID:  12,
		Date:       time.Date(2030, 5, 2, 0, 0, 0, 0, time.UTC),
		Hour:       10,
		ClientName: "Олена",
		Phone:      "+380501112233",
		Actor:      &model.Actor{TelegramID: 100, Username: "olena"},
	}
}

func TestRenderEventForAdmins(t *testing.T) {
	text, ok := RenderEvent(sampleEvent(model.EventConfirmationOpened))
	require.True(t, ok)
	assert.Contains(t, text, "#12")
	assert.Contains(t, text, "Олена")
	assert.Contains(t, text, "@olena")
	assert.Contains(t, text, "02.05.2030 о 10:00")

	e := sampleEvent(model.EventSelectionCompleted)
	e.Selection = &model.Selection{People: 6, Zone: model.ZoneBoth, Animals: 2, Background: model.BackgroundRed}
	e.TotalPrice = 1800
	text, ok = RenderEvent(e)
	require.True(t, ok)
	assert.Contains(t, text, "Людей: 6")
	assert.Contains(t, text, "1 800 грн")

	e = sampleEvent(model.EventBookingCancelled)
	e.Actor.Admin = true
	text, _ = RenderEvent(e)
	assert.Contains(t, text, "адміністратором")
}

func TestRenderEventForClient(t *testing.T) {
	e := sampleEvent(model.EventPaymentRequested)
	e.Audience = model.AudienceClient
	_, ok := RenderEvent(e)
	assert.False(t, ok)

	e.Kind = model.EventBookingCancelled
	text, ok := RenderEvent(e)
	require.True(t, ok)
	assert.Contains(t, text, "скасовано адміністратором")
}

func TestTelegramSinkFansOutToAdmins(t *testing.T) {
	sender := &fakeSender{failFor: map[int64]bool{2: true}}
	sink := NewTelegramSink(sender, []int64{1, 2, 3}, zap.NewNop())

	err := sink.Deliver(context.Background(), sampleEvent(model.EventBookingCreated))
	require.NoError(t, err, "частичный сбой не повторяется")
	assert.Len(t, sender.messages, 2)

	sender.failFor = map[int64]bool{1: true, 2: true, 3: true}
	err = sink.Deliver(context.Background(), sampleEvent(model.EventBookingCreated))
	assert.Error(t, err)
}

func TestTelegramSinkSendsProofAttachment(t *testing.T) {
	sender := &fakeSender{}
	sink := NewTelegramSink(sender, []int64{1}, zap.NewNop())

	e := sampleEvent(model.EventPaymentProofSubmitted)
	e.Proof = &model.PaymentProof{Type: model.ProofPhoto, ChatID: 100, MessageID: 5, FileID: "photo-id"}
	require.NoError(t, sink.Deliver(context.Background(), e))
	require.Len(t, sender.photos, 1)
	assert.Contains(t, sender.photos[0].Caption, "квитанцію")

	e.Proof.Type = model.ProofDocument
	require.NoError(t, sink.Deliver(context.Background(), e))
	assert.Len(t, sender.documents, 1)
}

func TestTelegramSinkClientAudience(t *testing.T) {
	sender := &fakeSender{}
	sink := NewTelegramSink(sender, []int64{1}, zap.NewNop())

	e := sampleEvent(model.EventBookingCancelled)
	e.Audience = model.AudienceClient
	e.Recipient = 100
	require.NoError(t, sink.Deliver(context.Background(), e))
	require.Len(t, sender.messages, 1)
	assert.Equal(t, int64(100), sender.messages[0].ChatID)
}
