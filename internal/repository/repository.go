package repository

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"dropship-api/internal/entity"
)

var (
	ErrNotFound          = errors.New("document not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrStaleOrder        = errors.New("order was modified concurrently")
)

const (
	SortNewest    = "newest"
	SortPriceAsc  = "price_asc"
	SortPriceDesc = "price_desc"
	SortRating    = "rating"
)

type ProductFilter struct {
	Keyword         string
	Category        string
	MinPrice        *float64
	MaxPrice        *float64
	Sort            string
	IncludeInactive bool
}

type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*entity.User, error)
	FindByEmail(ctx context.Context, email string) (*entity.User, error)
	// Update writes the editable profile fields; the order history is kept.
	Update(ctx context.Context, user *entity.User) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	List(ctx context.Context, skip, limit int64) ([]entity.User, int64, error)
	AppendOrder(ctx context.Context, userID, orderID primitive.ObjectID) error
}

type ProductRepository interface {
	Create(ctx context.Context, product *entity.Product) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*entity.Product, error)
	// Update writes catalog fields only; stock and ratings are kept.
	Update(ctx context.Context, product *entity.Product) error
	SetStock(ctx context.Context, id primitive.ObjectID, stock int) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	List(ctx context.Context, filter ProductFilter, skip, limit int64) ([]entity.Product, int64, error)
	TopRated(ctx context.Context, limit int64) ([]entity.Product, error)
	Categories(ctx context.Context) ([]string, error)
	// DecrementStock removes qty only when at least qty is available.
	DecrementStock(ctx context.Context, id primitive.ObjectID, qty int) error
	IncrementStock(ctx context.Context, id primitive.ObjectID, qty int) error
	// AddRating appends a rating unless the user already rated the product and
	// returns the product with its refreshed average.
	AddRating(ctx context.Context, id primitive.ObjectID, rating entity.Rating) (*entity.Product, error)
}

type OrderRepository interface {
	Create(ctx context.Context, order *entity.Order) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*entity.Order, error)
	ListByUser(ctx context.Context, userID primitive.ObjectID, skip, limit int64) ([]entity.Order, int64, error)
	List(ctx context.Context, status entity.OrderStatus, skip, limit int64) ([]entity.Order, int64, error)
	// Save replaces the order only if its stored status still equals expected.
	Save(ctx context.Context, order *entity.Order, expected entity.OrderStatus) error
}
