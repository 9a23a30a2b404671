package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/Freeeeeet/studio_booking/internal/model"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// AMQPSink публикует события в durable очередь RabbitMQ
type AMQPSink struct {
	url    string
	queue  string
	logger *zap.Logger

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewAMQPSink(url, queue string, logger *zap.Logger) *AMQPSink {
	return &AMQPSink{
		url:    url,
		queue:  queue,
		logger: logger,
	}
}

func (s *AMQPSink) Name() string {
	return "amqp"
}

// Deliver публикует событие. Соединение открывается лениво и пересоздаётся после ошибки.
func (s *AMQPSink) Deliver(ctx context.Context, event model.Event) error {
	pub, err := publishing(event)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ch, err := s.channel()
	if err != nil {
		return err
	}

	if err := ch.PublishWithContext(ctx,
		"",      // default exchange
		s.queue, // routing key = queue name
		false,   // mandatory
		false,   // immediate
		pub,
	); err != nil {
		s.reset()
		return fmt.Errorf("amqp publish: %w", err)
	}

	return nil
}

// Close закрывает канал и соединение
func (s *AMQPSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	if s.ch != nil {
		err = s.ch.Close()
	}
	if s.conn != nil {
		if cerr := s.conn.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	s.ch, s.conn = nil, nil
	return err
}

func (s *AMQPSink) channel() (*amqp.Channel, error) {
	if s.ch != nil && !s.ch.IsClosed() {
		return s.ch, nil
	}
	s.reset()

	conn, err := amqp.Dial(s.url)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}

	if _, err := ch.QueueDeclare(
		s.queue,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("amqp queue declare: %w", err)
	}

	s.logger.Info("Connected to RabbitMQ", zap.String("queue", s.queue))

	s.conn, s.ch = conn, ch
	return ch, nil
}

func (s *AMQPSink) reset() {
	if s.ch != nil {
		_ = s.ch.Close()
	}
	if s.conn != nil {
		_ = s.conn.Close()
	}
	s.ch, s.conn = nil, nil
}

func publishing(event model.Event) (amqp.Publishing, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("marshal event: %w", err)
	}

	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    event.ID,
		Type:         string(event.Kind),
		Timestamp:    event.OccurredAt.UTC(),
		Body:         body,
	}, nil
}
