package events

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"dropship-api/internal/entity"
)

type recordingWriter struct {
	msgs []kafka.Message
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func TestKafkaPublisherWritesKeyedMessage(t *testing.T) {
	order := &entity.Order{
		ID:          primitive.NewObjectID(),
		User:        primitive.NewObjectID(),
		OrderNumber: "ORD-1",
		Status:      entity.StatusPending,
		Items:       []entity.OrderItem{{Product: primitive.NewObjectID(), Quantity: 3}},
		TotalAmount: 42,
	}
	w := &recordingWriter{}

	err := NewKafkaPublisher(w).Publish(context.Background(), NewOrderEvent(OrderCreated, order))
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)

	assert.Equal(t, "order.created."+order.ID.Hex(), string(w.msgs[0].Key))

	var got OrderEvent
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &got))
	assert.Equal(t, order.ID.Hex(), got.OrderID)
	assert.Equal(t, 3, got.Items[0].Quantity)
	assert.Equal(t, 42.0, got.TotalAmount)
}

func TestParseKey(t *testing.T) {
	eventType, err := ParseKey("order.cancelled.abc")
	require.NoError(t, err)
	assert.Equal(t, OrderCancelled, eventType)

	_, err = ParseKey("order-created-1")
	assert.Error(t, err)
}
