package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"zerox/internal/config"
	"zerox/internal/domain"
)

type statusChangedMessage struct {
	OrderID    string    `json:"orderId"`
	CustomerID string    `json:"customerId"`
	ShopID     string    `json:"shopId"`
	From       string    `json:"from"`
	To         string    `json:"to"`
	Actor      string    `json:"actor"`
	OccurredAt time.Time `json:"occurredAt"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// publishTimeout bounds how long a committed change waits on the broker.
const publishTimeout = 2 * time.Second

type Publisher struct {
	writer messageWriter
}

func NewWriter(cfg config.KafkaConfig) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           5 * time.Millisecond,
		WriteTimeout:           publishTimeout,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
}

func NewPublisher(writer messageWriter) *Publisher {
	return &Publisher{writer: writer}
}

// PublishStatusChanged keys messages by order id so one order's events stay
// ordered within a partition.
func (p *Publisher) PublishStatusChanged(ctx context.Context, event domain.StatusChanged) error {
	body, err := json.Marshal(statusChangedMessage{
		OrderID:    event.OrderID,
		CustomerID: event.CustomerID,
		ShopID:     event.ShopID,
		From:       string(event.From),
		To:         string(event.To),
		Actor:      string(event.Actor),
		OccurredAt: event.OccurredAt,
	})
	if err != nil {
		return fmt.Errorf("marshaling status event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.OrderID),
		Value: body,
		Time:  event.OccurredAt,
	}
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("writing status event: %w", err)
	}
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// NopPublisher drops events. It is used when no brokers are configured.
type NopPublisher struct{}

func (NopPublisher) PublishStatusChanged(context.Context, domain.StatusChanged) error {
	return nil
}

func (NopPublisher) Close() error {
	return nil
}
