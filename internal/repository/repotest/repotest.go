// Package repotest provides in-memory repositories for tests.
package repotest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"dropship-api/internal/entity"
	"dropship-api/internal/repository"
)

var (
	_ repository.UserRepository    = (*UserRepository)(nil)
	_ repository.ProductRepository = (*ProductRepository)(nil)
	_ repository.OrderRepository   = (*OrderRepository)(nil)
)

type UserRepository struct {
	mu    sync.Mutex
	users map[primitive.ObjectID]*entity.User
}

func NewUserRepository() *UserRepository {
	return &UserRepository{users: map[primitive.ObjectID]*entity.User{}}
}

func (r *UserRepository) Create(_ context.Context, user *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user.ID = primitive.NewObjectID()
	user.Email = strings.ToLower(user.Email)
	cp := *user
	r.users[user.ID] = &cp
	return nil
}

func (r *UserRepository) FindByID(_ context.Context, id primitive.ObjectID) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *UserRepository) FindByEmail(_ context.Context, email string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == strings.ToLower(email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *UserRepository) Update(_ context.Context, user *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.users[user.ID]
	if !ok {
		return repository.ErrNotFound
	}
	cp := *user
	cp.Orders = stored.Orders
	cp.CreatedAt = stored.CreatedAt
	r.users[user.ID] = &cp
	return nil
}

func (r *UserRepository) Delete(_ context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.users, id)
	return nil
}

func (r *UserRepository) List(_ context.Context, skip, limit int64) ([]entity.User, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []entity.User
	for _, u := range r.users {
		all = append(all, *u)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID.Hex() < all[j].ID.Hex() })
	return window(all, skip, limit), int64(len(all)), nil
}

func (r *UserRepository) AppendOrder(_ context.Context, userID, orderID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return repository.ErrNotFound
	}
	u.Orders = append(u.Orders, orderID)
	return nil
}

type ProductRepository struct {
	mu       sync.Mutex
	products map[primitive.ObjectID]*entity.Product
}

func NewProductRepository() *ProductRepository {
	return &ProductRepository{products: map[primitive.ObjectID]*entity.Product{}}
}

func (r *ProductRepository) Add(p entity.Product) *entity.Product {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	r.products[p.ID] = &p
	cp := p
	return &cp
}

func (r *ProductRepository) Stock(id primitive.ObjectID) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.products[id].Stock
}

func (r *ProductRepository) Create(_ context.Context, product *entity.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	product.ID = primitive.NewObjectID()
	cp := *product
	r.products[product.ID] = &cp
	return nil
}

func (r *ProductRepository) FindByID(_ context.Context, id primitive.ObjectID) (*entity.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	cp.Ratings = append([]entity.Rating(nil), p.Ratings...)
	return &cp, nil
}

func (r *ProductRepository) Update(_ context.Context, product *entity.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.products[product.ID]
	if !ok {
		return repository.ErrNotFound
	}
	cp := *product
	cp.Stock = stored.Stock
	cp.Ratings = stored.Ratings
	cp.AverageRating = stored.AverageRating
	cp.NumRatings = stored.NumRatings
	cp.CreatedAt = stored.CreatedAt
	r.products[product.ID] = &cp
	return nil
}

func (r *ProductRepository) SetStock(_ context.Context, id primitive.ObjectID, stock int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok {
		return repository.ErrNotFound
	}
	p.Stock = stock
	return nil
}

func (r *ProductRepository) Delete(_ context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.products[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.products, id)
	return nil
}

func (r *ProductRepository) List(_ context.Context, filter repository.ProductFilter, skip, limit int64) ([]entity.Product, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []entity.Product
	for _, p := range r.products {
		if !p.IsActive && !filter.IncludeInactive {
			continue
		}
		if filter.Category != "" && p.Category != filter.Category {
			continue
		}
		all = append(all, *p)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Price < all[j].Price })
	return window(all, skip, limit), int64(len(all)), nil
}

func (r *ProductRepository) TopRated(_ context.Context, limit int64) ([]entity.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []entity.Product
	for _, p := range r.products {
		if p.NumRatings > 0 {
			all = append(all, *p)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].AverageRating > all[j].AverageRating })
	return window(all, 0, limit), nil
}

func (r *ProductRepository) Categories(context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := map[string]bool{}
	var out []string
	for _, p := range r.products {
		if p.IsActive && p.Category != "" && !seen[p.Category] {
			seen[p.Category] = true
			out = append(out, p.Category)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (r *ProductRepository) DecrementStock(_ context.Context, id primitive.ObjectID, qty int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok {
		return repository.ErrNotFound
	}
	if p.Stock < qty {
		return repository.ErrInsufficientStock
	}
	p.Stock -= qty
	return nil
}

func (r *ProductRepository) IncrementStock(_ context.Context, id primitive.ObjectID, qty int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok {
		return repository.ErrNotFound
	}
	p.Stock += qty
	return nil
}

func (r *ProductRepository) AddRating(_ context.Context, id primitive.ObjectID, rating entity.Rating) (*entity.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if err := p.AddRating(rating); err != nil {
		return nil, err
	}
	cp := *p
	return &cp, nil
}

type OrderRepository struct {
	mu        sync.Mutex
	orders    map[primitive.ObjectID]*entity.Order
	// CreateErr, when set, fails every Create.
	CreateErr error
}

func NewOrderRepository() *OrderRepository {
	return &OrderRepository{orders: map[primitive.ObjectID]*entity.Order{}}
}

func (r *OrderRepository) Create(_ context.Context, order *entity.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.CreateErr != nil {
		return r.CreateErr
	}
	order.ID = primitive.NewObjectID()
	order.CreatedAt = time.Now()
	order.CalculateTotals()
	cp := *order
	r.orders[order.ID] = &cp
	return nil
}

func (r *OrderRepository) FindByID(_ context.Context, id primitive.ObjectID) (*entity.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *o
	cp.StatusHistory = append([]entity.StatusChange(nil), o.StatusHistory...)
	return &cp, nil
}

func (r *OrderRepository) ListByUser(_ context.Context, userID primitive.ObjectID, skip, limit int64) ([]entity.Order, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []entity.Order
	for _, o := range r.orders {
		if o.User == userID {
			all = append(all, *o)
		}
	}
	return window(all, skip, limit), int64(len(all)), nil
}

func (r *OrderRepository) List(_ context.Context, status entity.OrderStatus, skip, limit int64) ([]entity.Order, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []entity.Order
	for _, o := range r.orders {
		if status == "" || o.Status == status {
			all = append(all, *o)
		}
	}
	return window(all, skip, limit), int64(len(all)), nil
}

func (r *OrderRepository) Save(_ context.Context, order *entity.Order, expected entity.OrderStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.orders[order.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if stored.Status != expected {
		return repository.ErrStaleOrder
	}
	order.CalculateTotals()
	cp := *order
	r.orders[order.ID] = &cp
	return nil
}

func (r *OrderRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.orders)
}

func window[T any](items []T, skip, limit int64) []T {
	if skip >= int64(len(items)) {
		return nil
	}
	end := skip + limit
	if end > int64(len(items)) {
		end = int64(len(items))
	}
	return items[skip:end]
}
