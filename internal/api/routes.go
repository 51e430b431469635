package api

import (
	"context"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"dropship-api/internal/auth"
	"dropship-api/internal/service"
)

// ServerConfig carries everything NewServer wires into the router.
type ServerConfig struct {
	Production     bool
	Tokens         *auth.TokenManager
	Users          *service.UserService
	Products       *service.ProductService
	Orders         *service.OrderService
	RateLimitStore middleware.RateLimiterStore
	// Ping backs the health endpoint; nil reports healthy.
	Ping func(ctx context.Context) error
}

// NewServer builds the echo instance with middleware and all /api routes.
func NewServer(cfg ServerConfig) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = ErrorHandler(cfg.Production)

	e.Use(requestID())
	e.Use(requestLogger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	if cfg.RateLimitStore != nil {
		e.Use(rateLimiter(cfg.RateLimitStore))
	}

	authMW := NewAuthMiddleware(cfg.Tokens, cfg.Users)
	protect := authMW.Protect()
	optional := authMW.Optional()

	userHandler := NewUserHandler(cfg.Users)
	productHandler := NewProductHandler(cfg.Products)
	orderHandler := NewOrderHandler(cfg.Orders)

	api := e.Group("/api")
	api.GET("/health", healthHandler("dropship-api", cfg.Ping))

	users := api.Group("/users")
	users.POST("/register", userHandler.Register)
	users.POST("/login", userHandler.Login)
	users.GET("/profile", userHandler.GetProfile, protect)
	users.PUT("/profile", userHandler.UpdateProfile, protect)
	users.GET("", userHandler.ListUsers, protect, Admin)
	users.GET("/:id", userHandler.GetUser, protect, Admin)
	users.PUT("/:id", userHandler.UpdateUser, protect, Admin)
	users.DELETE("/:id", userHandler.DeleteUser, protect, Admin)

	products := api.Group("/products")
	products.GET("", productHandler.ListProducts, optional)
	products.GET("/top", productHandler.TopRated)
	products.GET("/categories", productHandler.Categories)
	products.GET("/:id", productHandler.GetProduct, optional)
	products.POST("", productHandler.CreateProduct, protect, Admin)
	products.PUT("/:id", productHandler.UpdateProduct, protect, Admin)
	products.DELETE("/:id", productHandler.DeleteProduct, protect, Admin)
	products.POST("/:id/ratings", productHandler.AddRating, protect)

	orders := api.Group("/orders")
	orders.POST("", orderHandler.PlaceOrder, protect)
	orders.GET("/myorders", orderHandler.MyOrders, protect)
	orders.GET("", orderHandler.ListOrders, protect, Admin)
	orders.GET("/:id", orderHandler.GetOrder, protect)
	orders.PUT("/:id/status", orderHandler.UpdateStatus, protect, Admin)
	orders.PUT("/:id/pay", orderHandler.MarkPaid, protect)
	orders.PUT("/:id/tracking", orderHandler.SetTracking, protect, Admin)
	orders.PUT("/:id/cancel", orderHandler.CancelOrder, protect)

	return e
}
