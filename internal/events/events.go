package events

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"dropship-api/internal/entity"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Str("component", "events").Logger()

const (
	OrderCreated       = "created"
	OrderPaid          = "paid"
	OrderStatusChanged = "status_changed"
	OrderCancelled     = "cancelled"
)

type OrderEventItem struct {
	Product  string `json:"product"`
	Quantity int    `json:"quantity"`
}

type OrderEvent struct {
	Type        string             `json:"type"`
	OrderID     string             `json:"order_id"`
	OrderNumber string             `json:"order_number"`
	UserID      string             `json:"user_id"`
	Status      entity.OrderStatus `json:"status"`
	Items       []OrderEventItem   `json:"items"`
	TotalAmount float64            `json:"total_amount"`
	OccurredAt  time.Time          `json:"occurred_at"`
}

func NewOrderEvent(eventType string, order *entity.Order) OrderEvent {
	items := make([]OrderEventItem, 0, len(order.Items))
	for _, it := range order.Items {
		items = append(items, OrderEventItem{Product: it.Product.Hex(), Quantity: it.Quantity})
	}
	return OrderEvent{
		Type:        eventType,
		OrderID:     order.ID.Hex(),
		OrderNumber: order.OrderNumber,
		UserID:      order.User.Hex(),
		Status:      order.Status,
		Items:       items,
		TotalAmount: order.TotalAmount,
		OccurredAt:  time.Now().UTC(),
	}
}

// Key is "order.<type>.<order id>".
func (e OrderEvent) Key() string {
	return fmt.Sprintf("order.%s.%s", e.Type, e.OrderID)
}

// ParseKey extracts the event type from a message key.
func ParseKey(key string) (string, error) {
	parts := strings.Split(key, ".")
	if len(parts) != 3 || parts[0] != "order" {
		return "", fmt.Errorf("malformed event key %q", key)
	}
	return parts[1], nil
}

type Publisher interface {
	Publish(ctx context.Context, event OrderEvent) error
}

// MessageWriter is the part of *kafka.Writer the publisher needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type kafkaPublisher struct {
	writer MessageWriter
}

func NewKafkaPublisher(writer MessageWriter) Publisher {
	return &kafkaPublisher{writer: writer}
}

func (p *kafkaPublisher) Publish(ctx context.Context, event OrderEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Key:   []byte(event.Key()),
		Value: data,
	}
	return p.writer.WriteMessages(ctx, msg)
}

// NopPublisher logs events when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(_ context.Context, event OrderEvent) error {
	logger.Debug().Str("key", event.Key()).Msg("Order event not published: no broker configured")
	return nil
}
