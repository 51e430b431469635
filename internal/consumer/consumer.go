package consumer

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"dropship-api/internal/entity"
	"dropship-api/internal/events"
)

// ProductLookup is the part of the product repository the consumer reads.
type ProductLookup interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*entity.Product, error)
}

// MessageReader is the part of *kafka.Reader the consumer needs.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Alert is emitted for every product whose stock fell to the threshold.
type Alert struct {
	ProductID string
	Name      string
	Stock     int
}

// Consumer watches order events and raises restock alerts for the supplier
// when a placed order leaves a product at or below the threshold.
type Consumer struct {
	reader    MessageReader
	products  ProductLookup
	threshold int
	onAlert   func(Alert)
}

func NewConsumer(reader MessageReader, products ProductLookup, threshold int) *Consumer {
	return &Consumer{
		reader:    reader,
		products:  products,
		threshold: threshold,
		onAlert: func(a Alert) {
			log.Warn().Str("product", a.ProductID).Int("stock", a.Stock).Msgf("Low stock for %s, reorder from supplier", a.Name)
		},
	}
}

// Start reads until ctx is cancelled.
func (c *Consumer) Start(ctx context.Context) {
	defer c.reader.Close()

	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				log.Info().Msg("Order event consumer stopped")
				return
			}
			log.Error().Msgf("Error reading message: %v", err)
			continue
		}

		c.processMessage(ctx, msg)
	}
}

func (c *Consumer) processMessage(ctx context.Context, msg kafka.Message) []Alert {
	eventType, err := events.ParseKey(string(msg.Key))
	if err != nil {
		log.Error().Err(err).Msg("Skipping order event")
		return nil
	}

	var event events.OrderEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		log.Error().Msgf("Error unmarshalling message: %v", err)
		return nil
	}

	switch eventType {
	case events.OrderCreated:
		return c.checkStock(ctx, event)
	case events.OrderCancelled:
		log.Info().Msgf("Order %s cancelled, %d item(s) returned to stock", event.OrderNumber, len(event.Items))
	default:
		log.Debug().Msgf("Ignoring order event %s", eventType)
	}
	return nil
}

func (c *Consumer) checkStock(ctx context.Context, event events.OrderEvent) []Alert {
	var alerts []Alert
	for _, item := range event.Items {
		id, err := primitive.ObjectIDFromHex(item.Product)
		if err != nil {
			log.Error().Msgf("Invalid product id %q in order %s", item.Product, event.OrderID)
			continue
		}

		product, err := c.products.FindByID(ctx, id)
		if err != nil {
			log.Error().Msgf("Error getting product %s: %v", item.Product, err)
			continue
		}

		if product.Stock <= c.threshold {
			alert := Alert{ProductID: item.Product, Name: product.Name, Stock: product.Stock}
			c.onAlert(alert)
			alerts = append(alerts, alert)
		}
	}
	return alerts
}
