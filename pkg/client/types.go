package client

import (
	"dropship-api/internal/entity"
	"dropship-api/internal/service"
)

// Resource types returned by the API.
type (
	User        = entity.User
	Address     = entity.Address
	Product     = entity.Product
	Rating      = entity.Rating
	Discount    = entity.Discount
	Order       = entity.Order
	OrderItem   = entity.OrderItem
	OrderStatus = entity.OrderStatus
	Payment     = entity.Payment

	UserPage    = entity.Page[entity.User]
	ProductPage = entity.Page[entity.Product]
	OrderPage   = entity.Page[entity.Order]
)

const (
	StatusPending    = entity.StatusPending
	StatusProcessing = entity.StatusProcessing
	StatusShipped    = entity.StatusShipped
	StatusDelivered  = entity.StatusDelivered
	StatusCancelled  = entity.StatusCancelled
)

// Request payloads.
type (
	RegisterInput   = service.RegisterInput
	LoginInput      = service.LoginInput
	AuthResult      = service.AuthResult
	ProfileUpdate   = service.ProfileUpdate
	AdminUserUpdate = service.AdminUserUpdate
	ProductInput    = service.ProductInput
	RatingInput     = service.RatingInput
	PlaceOrderInput = service.PlaceOrderInput
	OrderItemInput  = service.OrderItemInput
	StatusInput     = service.StatusInput
	PaymentInput    = service.PaymentInput
	TrackingInput   = service.TrackingInput
)
