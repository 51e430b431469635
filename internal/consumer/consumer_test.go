package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"dropship-api/internal/entity"
	"dropship-api/internal/events"
)

type stubProducts map[primitive.ObjectID]*entity.Product

func (s stubProducts) FindByID(_ context.Context, id primitive.ObjectID) (*entity.Product, error) {
	if p, ok := s[id]; ok {
		return p, nil
	}
	return nil, errors.New("not found")
}

func message(t *testing.T, eventType string, order *entity.Order) kafka.Message {
	t.Helper()
	event := events.NewOrderEvent(eventType, order)
	data, err := json.Marshal(event)
	require.NoError(t, err)
	return kafka.Message{Key: []byte(event.Key()), Value: data}
}

func TestProcessCreatedRaisesLowStockAlerts(t *testing.T) {
	low := &entity.Product{ID: primitive.NewObjectID(), Name: "Mug", Stock: 2}
	plenty := &entity.Product{ID: primitive.NewObjectID(), Name: "Shirt", Stock: 40}
	products := stubProducts{low.ID: low, plenty.ID: plenty}

	c := NewConsumer(nil, products, 5)
	var seen []Alert
	c.onAlert = func(a Alert) { seen = append(seen, a) }

	order := &entity.Order{
		ID: primitive.NewObjectID(),
		Items: []entity.OrderItem{
			{Product: low.ID, Quantity: 1},
			{Product: plenty.ID, Quantity: 1},
			{Product: primitive.NewObjectID(), Quantity: 1},
		},
	}

	alerts := c.processMessage(context.Background(), message(t, events.OrderCreated, order))

	require.Len(t, alerts, 1)
	assert.Equal(t, "Mug", alerts[0].Name)
	assert.Equal(t, 2, alerts[0].Stock)
	assert.Equal(t, alerts, seen)
}

func TestProcessIgnoresOtherEvents(t *testing.T) {
	c := NewConsumer(nil, stubProducts{}, 5)
	order := &entity.Order{ID: primitive.NewObjectID()}

	assert.Empty(t, c.processMessage(context.Background(), message(t, events.OrderCancelled, order)))
	assert.Empty(t, c.processMessage(context.Background(), kafka.Message{Key: []byte("garbage"), Value: []byte("{}")}))
}

type scriptedReader struct {
	msgs   []kafka.Message
	closed bool
	cancel context.CancelFunc
}

func (r *scriptedReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	if len(r.msgs) == 0 {
		r.cancel()
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	msg := r.msgs[0]
	r.msgs = r.msgs[1:]
	return msg, nil
}

func (r *scriptedReader) Close() error {
	r.closed = true
	return nil
}

func TestStartStopsOnCancel(t *testing.T) {
	low := &entity.Product{ID: primitive.NewObjectID(), Name: "Mug", Stock: 0}
	ctx, cancel := context.WithCancel(context.Background())
	order := &entity.Order{ID: primitive.NewObjectID(), Items: []entity.OrderItem{{Product: low.ID, Quantity: 1}}}
	reader := &scriptedReader{msgs: []kafka.Message{message(t, events.OrderCreated, order)}, cancel: cancel}

	c := NewConsumer(reader, stubProducts{low.ID: low}, 5)
	alerts := 0
	c.onAlert = func(Alert) { alerts++ }

	c.Start(ctx)

	assert.True(t, reader.closed)
	assert.Equal(t, 1, alerts)
}
