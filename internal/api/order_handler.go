package api

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"dropship-api/internal/entity"
	"dropship-api/internal/service"
)

const (
	headerIdempotencyKey = "Idempotency-Key"
	headerIdempotentKey  = "Idempotent-Key"
)

type OrderHandler struct {
	orderService *service.OrderService
}

func NewOrderHandler(orderService *service.OrderService) *OrderHandler {
	return &OrderHandler{orderService: orderService}
}

// PlaceOrder --> POST /api/orders
func (h *OrderHandler) PlaceOrder(c echo.Context) error {
	in := service.PlaceOrderInput{}
	if err := bind(c, &in); err != nil {
		return err
	}

	key := strings.TrimSpace(c.Request().Header.Get(headerIdempotencyKey))
	if key == "" {
		key = strings.TrimSpace(c.Request().Header.Get(headerIdempotentKey))
	}

	order, err := h.orderService.PlaceOrder(c.Request().Context(), CurrentUser(c).ID, in, key)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, order)
}

// MyOrders --> GET /api/orders/myorders
func (h *OrderHandler) MyOrders(c echo.Context) error {
	page, err := h.orderService.MyOrders(c.Request().Context(), CurrentUser(c).ID, pageParam(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, page)
}

// GetOrder --> GET /api/orders/:id
func (h *OrderHandler) GetOrder(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	order, err := h.orderService.GetOrder(c.Request().Context(), id, CurrentUser(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, order)
}

// ListOrders --> GET /api/orders?status=&page=
func (h *OrderHandler) ListOrders(c echo.Context) error {
	status := entity.OrderStatus(c.QueryParam("status"))
	page, err := h.orderService.ListOrders(c.Request().Context(), status, pageParam(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, page)
}

// UpdateStatus --> PUT /api/orders/:id/status
func (h *OrderHandler) UpdateStatus(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	in := service.StatusInput{}
	if err := bind(c, &in); err != nil {
		return err
	}
	order, err := h.orderService.UpdateStatus(c.Request().Context(), id, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, order)
}

// MarkPaid --> PUT /api/orders/:id/pay
func (h *OrderHandler) MarkPaid(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	in := service.PaymentInput{}
	if err := bind(c, &in); err != nil {
		return err
	}
	order, err := h.orderService.MarkPaid(c.Request().Context(), id, CurrentUser(c), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, order)
}

// SetTracking --> PUT /api/orders/:id/tracking
func (h *OrderHandler) SetTracking(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	in := service.TrackingInput{}
	if err := bind(c, &in); err != nil {
		return err
	}
	order, err := h.orderService.SetTracking(c.Request().Context(), id, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, order)
}

// CancelOrder --> PUT /api/orders/:id/cancel
func (h *OrderHandler) CancelOrder(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	in := struct {
		Note string `json:"note"`
	}{}
	if err := bind(c, &in); err != nil {
		return err
	}
	order, err := h.orderService.CancelOrder(c.Request().Context(), id, CurrentUser(c), strings.TrimSpace(in.Note))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, order)
}
