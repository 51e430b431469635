package entity

import (
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type OrderStatus string

const (
	StatusPending    OrderStatus = "pending"
	StatusProcessing OrderStatus = "processing"
	StatusShipped    OrderStatus = "shipped"
	StatusDelivered  OrderStatus = "delivered"
	StatusCancelled  OrderStatus = "cancelled"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// nextStatuses lists the moves allowed from each status. Delivered and
// cancelled orders are final.
var nextStatuses = map[OrderStatus][]OrderStatus{
	StatusPending:    {StatusProcessing, StatusCancelled},
	StatusProcessing: {StatusShipped, StatusCancelled},
	StatusShipped:    {StatusDelivered, StatusCancelled},
}

// CanTransitionTo reports whether an order in s may move to next.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range nextStatuses[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Final reports whether no further status change is possible.
func (s OrderStatus) Final() bool {
	return len(nextStatuses[s]) == 0
}

const (
	PaymentPending   = "pending"
	PaymentCompleted = "completed"
	PaymentFailed    = "failed"
	PaymentRefunded  = "refunded"
)

var PaymentMethods = []string{"credit_card", "paypal", "bank_transfer", "cash_on_delivery"}

func ValidPaymentMethod(m string) bool {
	for _, pm := range PaymentMethods {
		if pm == m {
			return true
		}
	}
	return false
}

func ValidPaymentStatus(s string) bool {
	switch s {
	case PaymentPending, PaymentCompleted, PaymentFailed, PaymentRefunded:
		return true
	}
	return false
}

// OrderItem is a snapshot of the product at purchase time.
type OrderItem struct {
	Product  primitive.ObjectID `bson:"product" json:"product"`
	Name     string             `bson:"name" json:"name"`
	Image    string             `bson:"image,omitempty" json:"image,omitempty"`
	Quantity int                `bson:"quantity" json:"quantity"`
	Price    float64            `bson:"price" json:"price"`
}

type Payment struct {
	Method        string     `bson:"method" json:"method"`
	Status        string     `bson:"status" json:"status"`
	TransactionID string     `bson:"transactionId,omitempty" json:"transactionId,omitempty"`
	PaidAt        *time.Time `bson:"paidAt,omitempty" json:"paidAt,omitempty"`
}

type StatusChange struct {
	Status    OrderStatus `bson:"status" json:"status"`
	Note      string      `bson:"note,omitempty" json:"note,omitempty"`
	Timestamp time.Time   `bson:"timestamp" json:"timestamp"`
}

type Order struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OrderNumber     string             `bson:"orderNumber" json:"orderNumber"`
	User            primitive.ObjectID `bson:"user" json:"user"`
	Items           []OrderItem        `bson:"items" json:"items"`
	ShippingAddress Address            `bson:"shippingAddress" json:"shippingAddress"`
	Payment         Payment            `bson:"payment" json:"payment"`
	Status          OrderStatus        `bson:"status" json:"status"`
	StatusHistory   []StatusChange     `bson:"statusHistory" json:"statusHistory"`
	TrackingNumber  string             `bson:"trackingNumber,omitempty" json:"trackingNumber,omitempty"`
	Subtotal        float64            `bson:"subtotal" json:"subtotal"`
	ShippingCost    float64            `bson:"shippingCost" json:"shippingCost"`
	Tax             float64            `bson:"tax" json:"tax"`
	TotalAmount     float64            `bson:"totalAmount" json:"totalAmount"`
	DeliveredAt     *time.Time         `bson:"deliveredAt,omitempty" json:"deliveredAt,omitempty"`
	CreatedAt       time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// CalculateTotals recomputes subtotal and total from the line items. It runs
// before every write so the stored total always matches its parts.
func (o *Order) CalculateTotals() {
	subtotal := decimal.Zero
	for _, item := range o.Items {
		line := decimal.NewFromFloat(item.Price).Mul(decimal.NewFromInt(int64(item.Quantity)))
		subtotal = subtotal.Add(line)
	}
	o.Subtotal = subtotal.Round(2).InexactFloat64()
	o.TotalAmount = subtotal.
		Add(decimal.NewFromFloat(o.ShippingCost)).
		Add(decimal.NewFromFloat(o.Tax)).
		Round(2).InexactFloat64()
}

// SetStatus moves the order to status and appends a history entry.
func (o *Order) SetStatus(status OrderStatus, note string, at time.Time) {
	o.Status = status
	o.StatusHistory = append(o.StatusHistory, StatusChange{Status: status, Note: note, Timestamp: at})
	if status == StatusDelivered {
		o.DeliveredAt = &at
	}
}

// OwnedBy reports whether userID placed the order.
func (o *Order) OwnedBy(userID primitive.ObjectID) bool {
	return o.User == userID
}

/*
Mongo collection: orders

{ _id, orderNumber, user, items: [{product, name, image, quantity, price}],
  shippingAddress, payment: {method, status, transactionId, paidAt}, status,
  statusHistory: [{status, note, timestamp}], trackingNumber, subtotal,
  shippingCost, tax, totalAmount, deliveredAt, createdAt, updatedAt }
*/
