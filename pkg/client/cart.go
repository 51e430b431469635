package client

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"dropship-api/internal/entity"
)

const (
	FreeShippingThreshold = 100.0
	FlatShippingCost      = 10.0
	TaxRate               = 0.15
)

// CartItem snapshots the product fields the cart needs to price a line.
type CartItem struct {
	ProductID primitive.ObjectID `json:"product"`
	Name      string             `json:"name"`
	Image     string             `json:"image,omitempty"`
	Price     float64            `json:"price"`
	Discount  *Discount   `json:"discount,omitempty"`
	Stock     int                `json:"stock"`
	Quantity  int                `json:"quantity"`
}

// UnitPrice applies the discount window the same way the API does.
func (i CartItem) UnitPrice(now time.Time) float64 {
	return entity.DiscountedPrice(i.Price, i.Discount, now)
}

type CartTotals struct {
	Subtotal float64 `json:"subtotal"`
	Shipping float64 `json:"shipping"`
	Tax      float64 `json:"tax"`
	Total    float64 `json:"total"`
}

// CartStore persists cart contents between runs.
type CartStore interface {
	Load() ([]CartItem, error)
	Save(items []CartItem) error
}

// Cart is a client-side shopping cart. It never talks to the API; totals are
// estimates until the order is placed.
type Cart struct {
	mu    sync.Mutex
	items []CartItem
	store CartStore
	now   func() time.Time
}

// NewCart loads the saved cart. A nil store keeps the cart in memory.
func NewCart(store CartStore) (*Cart, error) {
	c := &Cart{store: store, now: time.Now}
	if store != nil {
		items, err := store.Load()
		if err != nil {
			return nil, err
		}
		c.items = items
	}
	return c, nil
}

// Add puts quantity units of product in the cart, capped at its stock.
func (c *Cart) Add(product *Product, quantity int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if quantity < 1 {
		return errors.New("quantity must be at least 1")
	}
	if product.Stock < 1 {
		return errors.Errorf("%s is out of stock", product.Name)
	}

	for i := range c.items {
		if c.items[i].ProductID == product.ID {
			c.items[i].Quantity = min(c.items[i].Quantity+quantity, product.Stock)
			c.items[i].Price = product.Price
			c.items[i].Discount = product.Discount
			c.items[i].Stock = product.Stock
			return c.save()
		}
	}

	image := ""
	if len(product.Images) > 0 {
		image = product.Images[0]
	}
	c.items = append(c.items, CartItem{
		ProductID: product.ID,
		Name:      product.Name,
		Image:     image,
		Price:     product.Price,
		Discount:  product.Discount,
		Stock:     product.Stock,
		Quantity:  min(quantity, product.Stock),
	})
	return c.save()
}

// SetQuantity changes a line; zero or less removes it.
func (c *Cart) SetQuantity(productID primitive.ObjectID, quantity int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.items {
		if c.items[i].ProductID != productID {
			continue
		}
		if quantity <= 0 {
			c.items = append(c.items[:i], c.items[i+1:]...)
		} else {
			c.items[i].Quantity = min(quantity, c.items[i].Stock)
		}
		return c.save()
	}
	return errors.Errorf("product %s is not in the cart", productID.Hex())
}

func (c *Cart) Remove(productID primitive.ObjectID) error {
	return c.SetQuantity(productID, 0)
}

func (c *Cart) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = nil
	return c.save()
}

func (c *Cart) Items() []CartItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]CartItem(nil), c.items...)
}

func (c *Cart) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, item := range c.items {
		n += item.Quantity
	}
	return n
}

// Totals prices the cart: shipping is free from FreeShippingThreshold, tax is
// TaxRate of the subtotal.
func (c *Cart) Totals() CartTotals {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	subtotal := decimal.Zero
	for _, item := range c.items {
		line := decimal.NewFromFloat(item.UnitPrice(now)).Mul(decimal.NewFromInt(int64(item.Quantity)))
		subtotal = subtotal.Add(line)
	}
	subtotal = subtotal.Round(2)

	shipping := decimal.Zero
	if len(c.items) > 0 && subtotal.LessThan(decimal.NewFromFloat(FreeShippingThreshold)) {
		shipping = decimal.NewFromFloat(FlatShippingCost)
	}
	tax := subtotal.Mul(decimal.NewFromFloat(TaxRate)).Round(2)

	return CartTotals{
		Subtotal: subtotal.InexactFloat64(),
		Shipping: shipping.InexactFloat64(),
		Tax:      tax.InexactFloat64(),
		Total:    subtotal.Add(shipping).Add(tax).Round(2).InexactFloat64(),
	}
}

// OrderInput turns the cart into a checkout payload carrying the cart's
// shipping and tax.
func (c *Cart) OrderInput(address Address, paymentMethod string) PlaceOrderInput {
	totals := c.Totals()
	items := c.Items()

	in := PlaceOrderInput{
		ShippingAddress: address,
		PaymentMethod:   paymentMethod,
		ShippingCost:    totals.Shipping,
		Tax:             totals.Tax,
	}
	for _, item := range items {
		in.Items = append(in.Items, OrderItemInput{ProductID: item.ProductID.Hex(), Quantity: item.Quantity})
	}
	return in
}

func (c *Cart) save() error {
	if c.store == nil {
		return nil
	}
	return c.store.Save(c.items)
}

// FileStore keeps the cart as JSON on disk.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Load() ([]CartItem, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "read cart")
	}
	var items []CartItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, errors.Wrap(err, "decode cart")
	}
	return items, nil
}

// Save replaces the file atomically.
func (s *FileStore) Save(items []CartItem) error {
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode cart")
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return errors.Wrap(err, "create cart dir")
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return errors.Wrap(err, "write cart")
	}
	return errors.Wrap(os.Rename(tmp, s.path), "replace cart")
}
