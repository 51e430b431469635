package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/errgroup"

	"dropship-api/internal/apperr"
	"dropship-api/internal/cache"
	"dropship-api/internal/entity"
	"dropship-api/internal/events"
	"dropship-api/internal/repository"
	"dropship-api/internal/validators"
)

type OrderItemInput struct {
	ProductID string `json:"product"`
	Quantity  int    `json:"quantity"`
}

type PlaceOrderInput struct {
	Items           []OrderItemInput `json:"items"`
	ShippingAddress entity.Address   `json:"shippingAddress"`
	PaymentMethod   string           `json:"paymentMethod"`
	ShippingCost    float64          `json:"shippingCost"`
	Tax             float64          `json:"tax"`
}

func (in *PlaceOrderInput) Validate() error {
	v := apperr.NewValidationError()
	if len(in.Items) == 0 {
		v.Add("items", "order must contain at least one item")
	}
	for i, item := range in.Items {
		field := fmt.Sprintf("items[%d]", i)
		v.Check(field+".product", validators.ValidateObjectID("product", item.ProductID))
		if item.Quantity < 1 {
			v.Add(field+".quantity", "quantity must be at least 1")
		}
	}
	addr := in.ShippingAddress
	for field, val := range map[string]string{
		"shippingAddress.street":     addr.Street,
		"shippingAddress.city":       addr.City,
		"shippingAddress.postalCode": addr.PostalCode,
		"shippingAddress.country":    addr.Country,
	} {
		if strings.TrimSpace(val) == "" {
			v.Add(field, "is required")
		}
	}
	if !entity.ValidPaymentMethod(in.PaymentMethod) {
		v.Add("paymentMethod", "payment method must be one of "+strings.Join(entity.PaymentMethods, ", "))
	}
	if in.ShippingCost < 0 {
		v.Add("shippingCost", "shipping cost cannot be negative")
	}
	if in.Tax < 0 {
		v.Add("tax", "tax cannot be negative")
	}
	return v.Err()
}

type StatusInput struct {
	Status entity.OrderStatus `json:"status"`
	Note   string             `json:"note"`
}

func (in *StatusInput) Validate() error {
	v := apperr.NewValidationError()
	if !in.Status.Valid() {
		v.Add("status", "status must be one of pending, processing, shipped, delivered, cancelled")
	}
	return v.Err()
}

type PaymentInput struct {
	TransactionID string `json:"transactionId"`
	Status        string `json:"status"`
}

func (in *PaymentInput) Validate() error {
	v := apperr.NewValidationError()
	if in.Status != "" && !entity.ValidPaymentStatus(in.Status) {
		v.Add("status", "status must be one of pending, completed, failed, refunded")
	}
	return v.Err()
}

type TrackingInput struct {
	TrackingNumber string `json:"trackingNumber"`
}

func (in *TrackingInput) Validate() error {
	v := apperr.NewValidationError()
	v.Check("trackingNumber", validators.ValidateString("trackingNumber", strings.TrimSpace(in.TrackingNumber), 1, 100))
	return v.Err()
}

// OrderService is a service that provides order-related operations
type OrderService struct {
	orderRepo   repository.OrderRepository
	userRepo    repository.UserRepository
	productRepo repository.ProductRepository
	products    *ProductService
	publisher   events.Publisher
	idempotency cache.IdempotencyStore
	now         func() time.Time
}

// NewOrderService creates a new instance of OrderService
func NewOrderService(
	orderRepo repository.OrderRepository,
	userRepo repository.UserRepository,
	productRepo repository.ProductRepository,
	products *ProductService,
	publisher events.Publisher,
	idempotency cache.IdempotencyStore,
) *OrderService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if idempotency == nil {
		idempotency = cache.NopIdempotencyStore{}
	}
	return &OrderService{
		orderRepo:   orderRepo,
		userRepo:    userRepo,
		productRepo: productRepo,
		products:    products,
		publisher:   publisher,
		idempotency: idempotency,
		now:         time.Now,
	}
}

type lineRequest struct {
	productID primitive.ObjectID
	quantity  int
}

// mergeLines folds repeated products into one line so the stock check sees
// the full requested quantity.
func mergeLines(items []OrderItemInput) []lineRequest {
	var lines []lineRequest
	index := map[primitive.ObjectID]int{}
	for _, item := range items {
		id, _ := primitive.ObjectIDFromHex(item.ProductID)
		if i, ok := index[id]; ok {
			lines[i].quantity += item.Quantity
			continue
		}
		index[id] = len(lines)
		lines = append(lines, lineRequest{productID: id, quantity: item.Quantity})
	}
	return lines
}

// PlaceOrder prices every line from the product's current discounted price,
// reserves stock, persists the order and links it to the user.
func (s *OrderService) PlaceOrder(ctx context.Context, userID primitive.ObjectID, in PlaceOrderInput, idempotentKey string) (order *entity.Order, err error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	if idempotentKey != "" {
		acquired, acquireErr := s.idempotency.Acquire(ctx, idempotentKey)
		if acquireErr != nil {
			logger.Error().Err(acquireErr).Msg("Error checking idempotent key")
			return nil, acquireErr
		}
		if !acquired {
			return nil, apperr.Conflict("idempotent key already exists")
		}
		defer func() {
			if err != nil {
				s.idempotency.Release(context.WithoutCancel(ctx), idempotentKey)
			}
		}()
	}

	lines := mergeLines(in.Items)
	products, err := s.loadProducts(ctx, lines)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	items := make([]entity.OrderItem, 0, len(lines))
	for i, line := range lines {
		product := products[i]
		if product.Stock < line.quantity {
			logger.Warn().Msgf("Product %s out of stock", product.ID.Hex())
			return nil, apperr.BadRequest("insufficient stock for %s", product.Name)
		}
		image := ""
		if len(product.Images) > 0 {
			image = product.Images[0]
		}
		items = append(items, entity.OrderItem{
			Product:  product.ID,
			Name:     product.Name,
			Image:    image,
			Quantity: line.quantity,
			Price:    product.DiscountedPrice(now),
		})
	}

	reserved, err := s.reserveStock(ctx, items)
	if err != nil {
		return nil, err
	}

	order = &entity.Order{
		OrderNumber:     newOrderNumber(now),
		User:            userID,
		Items:           items,
		ShippingAddress: in.ShippingAddress,
		Payment: entity.Payment{
			Method: in.PaymentMethod,
			Status: entity.PaymentPending,
		},
		ShippingCost: in.ShippingCost,
		Tax:          in.Tax,
	}
	order.SetStatus(entity.StatusPending, "Order placed", now)

	if err := s.orderRepo.Create(ctx, order); err != nil {
		logger.Error().Err(err).Msg("Error creating order")
		s.releaseStock(context.WithoutCancel(ctx), reserved)
		return nil, err
	}

	if err := s.userRepo.AppendOrder(ctx, userID, order.ID); err != nil {
		logger.Error().Err(err).Msgf("Error linking order %s to user %s", order.ID.Hex(), userID.Hex())
	}

	s.publish(ctx, events.OrderCreated, order)
	return order, nil
}

// loadProducts fetches every line's product concurrently, preserving order.
func (s *OrderService) loadProducts(ctx context.Context, lines []lineRequest) ([]*entity.Product, error) {
	products := make([]*entity.Product, len(lines))
	g, gctx := errgroup.WithContext(ctx)
	for i, line := range lines {
		i, line := i, line
		g.Go(func() error {
			product, err := s.productRepo.FindByID(gctx, line.productID)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return apperr.NotFound("product %s not found", line.productID.Hex())
				}
				logger.Error().Err(err).Msgf("Error getting product %s", line.productID.Hex())
				return err
			}
			if !product.IsActive {
				return apperr.NotFound("product %s not found", line.productID.Hex())
			}
			products[i] = product
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return products, nil
}

// reserveStock decrements stock line by line and gives back what it took if
// a later line cannot be satisfied.
func (s *OrderService) reserveStock(ctx context.Context, items []entity.OrderItem) ([]entity.OrderItem, error) {
	reserved := make([]entity.OrderItem, 0, len(items))
	for _, item := range items {
		err := s.products.ReserveProductStock(ctx, item.Product, item.Quantity)
		if err != nil {
			s.releaseStock(context.WithoutCancel(ctx), reserved)
			switch {
			case errors.Is(err, repository.ErrInsufficientStock):
				return nil, apperr.BadRequest("insufficient stock for %s", item.Name)
			case errors.Is(err, repository.ErrNotFound):
				return nil, apperr.NotFound("product %s not found", item.Product.Hex())
			}
			return nil, err
		}
		reserved = append(reserved, item)
	}
	return reserved, nil
}

func (s *OrderService) releaseStock(ctx context.Context, items []entity.OrderItem) {
	for _, item := range items {
		// errors are logged by ReleaseProductStock
		_ = s.products.ReleaseProductStock(ctx, item.Product, item.Quantity)
	}
}

// GetOrder returns an order visible to the requester.
func (s *OrderService) GetOrder(ctx context.Context, id primitive.ObjectID, requester *entity.User) (*entity.Order, error) {
	order, err := s.findOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if !requester.IsAdmin() && !order.OwnedBy(requester.ID) {
		return nil, apperr.Forbidden("not authorized to view this order")
	}
	return order, nil
}

func (s *OrderService) MyOrders(ctx context.Context, userID primitive.ObjectID, page int) (entity.Page[entity.Order], error) {
	page, skip := entity.NormalizePage(page, entity.MyOrdersPageSize)
	orders, total, err := s.orderRepo.ListByUser(ctx, userID, skip, entity.MyOrdersPageSize)
	if err != nil {
		logger.Error().Err(err).Msgf("Error listing orders of user %s", userID.Hex())
		return entity.Page[entity.Order]{}, err
	}
	return entity.NewPage(orders, page, entity.MyOrdersPageSize, total), nil
}

func (s *OrderService) ListOrders(ctx context.Context, status entity.OrderStatus, page int) (entity.Page[entity.Order], error) {
	if status != "" && !status.Valid() {
		return entity.Page[entity.Order]{}, apperr.BadRequest("invalid status filter %q", status)
	}
	page, skip := entity.NormalizePage(page, entity.OrderPageSize)
	orders, total, err := s.orderRepo.List(ctx, status, skip, entity.OrderPageSize)
	if err != nil {
		logger.Error().Err(err).Msg("Error listing orders")
		return entity.Page[entity.Order]{}, err
	}
	return entity.NewPage(orders, page, entity.OrderPageSize, total), nil
}

// UpdateStatus is the admin transition endpoint. Only the moves allowed by
// OrderStatus.CanTransitionTo are accepted.
func (s *OrderService) UpdateStatus(ctx context.Context, id primitive.ObjectID, in StatusInput) (*entity.Order, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	order, err := s.findOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, order, in.Status, in.Note)
}

// CancelOrder lets the owner cancel before shipping; admins may cancel any
// order that was not delivered.
func (s *OrderService) CancelOrder(ctx context.Context, id primitive.ObjectID, requester *entity.User, note string) (*entity.Order, error) {
	order, err := s.GetOrder(ctx, id, requester)
	if err != nil {
		return nil, err
	}
	switch {
	case order.Status == entity.StatusDelivered:
		return nil, apperr.BadRequest("delivered orders cannot be cancelled")
	case !requester.IsAdmin() && order.Status != entity.StatusPending && order.Status != entity.StatusProcessing:
		return nil, apperr.BadRequest("order can no longer be cancelled")
	}
	if note == "" {
		note = "Cancelled by customer"
		if requester.IsAdmin() {
			note = "Cancelled by admin"
		}
	}
	return s.transition(ctx, order, entity.StatusCancelled, note)
}

func (s *OrderService) transition(ctx context.Context, order *entity.Order, status entity.OrderStatus, note string) (*entity.Order, error) {
	if order.Status.Final() {
		return nil, apperr.BadRequest("order is already %s", order.Status)
	}
	if !order.Status.CanTransitionTo(status) {
		return nil, apperr.BadRequest("cannot change order status from %s to %s", order.Status, status)
	}

	previous := order.Status
	order.SetStatus(status, note, s.now().UTC())
	if status == entity.StatusCancelled && order.Payment.Status == entity.PaymentCompleted {
		order.Payment.Status = entity.PaymentRefunded
	}

	if err := s.saveOrder(ctx, order, previous); err != nil {
		return nil, err
	}

	if status == entity.StatusCancelled {
		s.releaseStock(ctx, order.Items)
		s.publish(ctx, events.OrderCancelled, order)
	} else {
		s.publish(ctx, events.OrderStatusChanged, order)
	}
	return order, nil
}

// MarkPaid records the payment result. A completed payment moves a pending
// order to processing.
func (s *OrderService) MarkPaid(ctx context.Context, id primitive.ObjectID, requester *entity.User, in PaymentInput) (*entity.Order, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	order, err := s.GetOrder(ctx, id, requester)
	if err != nil {
		return nil, err
	}
	if order.Status == entity.StatusCancelled {
		return nil, apperr.BadRequest("order is cancelled")
	}
	if order.Payment.Status == entity.PaymentCompleted {
		return nil, apperr.BadRequest("order is already paid")
	}

	status := in.Status
	if status == "" {
		status = entity.PaymentCompleted
	}
	txID := strings.TrimSpace(in.TransactionID)
	if txID == "" {
		txID = uuid.NewString()
	}

	previous := order.Status
	now := s.now().UTC()
	order.Payment.Status = status
	order.Payment.TransactionID = txID
	if status == entity.PaymentCompleted {
		order.Payment.PaidAt = &now
		if order.Status == entity.StatusPending {
			order.SetStatus(entity.StatusProcessing, "Payment completed", now)
		}
	}

	if err := s.saveOrder(ctx, order, previous); err != nil {
		return nil, err
	}
	if status == entity.PaymentCompleted {
		s.publish(ctx, events.OrderPaid, order)
	}
	return order, nil
}

// SetTracking stores the carrier tracking number. An order still in
// processing is marked shipped.
func (s *OrderService) SetTracking(ctx context.Context, id primitive.ObjectID, in TrackingInput) (*entity.Order, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	order, err := s.findOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.Status == entity.StatusCancelled {
		return nil, apperr.BadRequest("order is cancelled")
	}

	previous := order.Status
	order.TrackingNumber = strings.TrimSpace(in.TrackingNumber)
	if order.Status == entity.StatusProcessing {
		order.SetStatus(entity.StatusShipped, "Tracking number "+order.TrackingNumber+" assigned", s.now().UTC())
	}

	if err := s.saveOrder(ctx, order, previous); err != nil {
		return nil, err
	}
	if order.Status != previous {
		s.publish(ctx, events.OrderStatusChanged, order)
	}
	return order, nil
}

func (s *OrderService) findOrder(ctx context.Context, id primitive.ObjectID) (*entity.Order, error) {
	order, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("order not found")
		}
		logger.Error().Err(err).Msgf("Error getting order by ID %s", id.Hex())
		return nil, err
	}
	return order, nil
}

func (s *OrderService) saveOrder(ctx context.Context, order *entity.Order, previous entity.OrderStatus) error {
	err := s.orderRepo.Save(ctx, order, previous)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrStaleOrder):
		return apperr.Conflict("order was updated by another request, please retry")
	case errors.Is(err, repository.ErrNotFound):
		return apperr.NotFound("order not found")
	}
	logger.Error().Err(err).Msgf("Error updating order %s", order.ID.Hex())
	return err
}

// publish never fails the request: the order is already stored.
func (s *OrderService) publish(ctx context.Context, eventType string, order *entity.Order) {
	if err := s.publisher.Publish(ctx, events.NewOrderEvent(eventType, order)); err != nil {
		logger.Error().Err(err).Msgf("Error publishing %s event for order %s", eventType, order.ID.Hex())
	}
}

func newOrderNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("ORD-%s-%s", now.Format("20060102"), suffix)
}
