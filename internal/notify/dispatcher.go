// Package notify доставляет события бронирований во внешние каналы.
// Ошибки доставки логируются и никогда не возвращаются в бизнес-логику.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/Freeeeeet/studio_booking/internal/model"
	"go.uber.org/zap"
)

// Sink канал доставки: Telegram, брокер и т.д.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, event model.Event) error
}

// Recorder счётчик результатов доставки
type Recorder interface {
	Delivered(sink string, ok bool)
}

type nopRecorder struct{}

func (nopRecorder) Delivered(string, bool) {}

const (
	defaultBuffer  = 256
	defaultRetries = 3
	defaultBackoff = 500 * time.Millisecond
	drainTimeout   = 5 * time.Second
)

// Dispatcher асинхронно раздаёт события всем каналам с повторами
type Dispatcher struct {
	sinks    []Sink
	queue    chan model.Event
	retries  int
	backoff  time.Duration
	recorder Recorder
	logger   *zap.Logger

	mu     sync.RWMutex
	closed bool
}

func NewDispatcher(logger *zap.Logger, sinks ...Sink) *Dispatcher {
	return &Dispatcher{
		sinks:    sinks,
		queue:    make(chan model.Event, defaultBuffer),
		retries:  defaultRetries,
		backoff:  defaultBackoff,
		recorder: nopRecorder{},
		logger:   logger,
	}
}

// WithRetry задаёт количество повторов и начальную задержку
func (d *Dispatcher) WithRetry(retries int, backoff time.Duration) *Dispatcher {
	d.retries = retries
	d.backoff = backoff
	return d
}

// WithRecorder подключает метрики
func (d *Dispatcher) WithRecorder(r Recorder) *Dispatcher {
	if r != nil {
		d.recorder = r
	}
	return d
}

// AddSink добавляет канал. Вызывать до Run.
func (d *Dispatcher) AddSink(s Sink) {
	d.sinks = append(d.sinks, s)
}

// Publish ставит событие в очередь и никогда не блокирует.
// После остановки или при переполненной очереди событие отбрасывается.
func (d *Dispatcher) Publish(_ context.Context, event model.Event) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.drop("Dispatcher stopped, event dropped", event)
		return
	}

	select {
	case d.queue <- event:
	default:
		d.drop("Notification queue is full, event dropped", event)
	}
}

func (d *Dispatcher) drop(msg string, event model.Event) {
	d.recorder.Delivered("queue", false)
	d.logger.Warn(msg,
		zap.String("event_id", event.ID),
		zap.String("kind", string(event.Kind)),
		zap.Int64("booking_id", event.BookingID),
	)
}

// Run обрабатывает очередь до отмены ctx, затем дочищает оставшиеся события
func (d *Dispatcher) Run(ctx context.Context) error {
	d.logger.Info("Notification dispatcher started", zap.Int("sinks", len(d.sinks)))

	for {
		select {
		case event := <-d.queue:
			d.dispatch(ctx, event)
		case <-ctx.Done():
			d.stop()
			d.drain()
			d.logger.Info("Notification dispatcher stopped")
			return nil
		}
	}
}

// stop запрещает новые события, после него очередь только дочищается
func (d *Dispatcher) stop() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
}

func (d *Dispatcher) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()

	for {
		select {
		case event := <-d.queue:
			d.dispatch(ctx, event)
		default:
			return
		}
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, event model.Event) {
	for _, sink := range d.sinks {
		err := d.deliver(ctx, sink, event)
		d.recorder.Delivered(sink.Name(), err == nil)
		if err != nil {
			d.logger.Error("Failed to deliver event",
				zap.String("sink", sink.Name()),
				zap.String("event_id", event.ID),
				zap.String("kind", string(event.Kind)),
				zap.Int64("booking_id", event.BookingID),
				zap.Error(err),
			)
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, sink Sink, event model.Event) error {
	wait := d.backoff

	var err error
	for attempt := 0; attempt <= d.retries; attempt++ {
		if err = sink.Deliver(ctx, event); err == nil {
			return nil
		}

		if attempt == d.retries {
			break
		}

		d.logger.Warn("Event delivery failed, retrying",
			zap.String("sink", sink.Name()),
			zap.String("event_id", event.ID),
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)

		select {
		case <-time.After(wait):
			wait *= 2
		case <-ctx.Done():
			return err
		}
	}

	return err
}
