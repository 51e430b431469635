package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"dropship-api/internal/auth"
	"dropship-api/internal/entity"
	"dropship-api/internal/repository/repotest"
	"dropship-api/internal/service"
)

type testServer struct {
	e        *echo.Echo
	users    *service.UserService
	products *repotest.ProductRepository
	tokens   *auth.TokenManager
}

func newTestServer(t *testing.T, opts ...func(*ServerConfig)) *testServer {
	t.Helper()
	userRepo := repotest.NewUserRepository()
	productRepo := repotest.NewProductRepository()
	orderRepo := repotest.NewOrderRepository()
	tokens := auth.NewTokenManager([]byte("test-secret"), time.Hour)

	users := service.NewUserService(userRepo, tokens)
	products := service.NewProductService(productRepo, nil)
	orders := service.NewOrderService(orderRepo, userRepo, productRepo, products, nil, nil)

	cfg := ServerConfig{
		Production: true,
		Tokens:     tokens,
		Users:      users,
		Products:   products,
		Orders:     orders,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &testServer{e: NewServer(cfg), users: users, products: productRepo, tokens: tokens}
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) register(t *testing.T, email string) string {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/users/register", "", map[string]string{
		"name": "Test User", "email": email, "password": "secret1",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var res struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	return res.Token
}

func (s *testServer) admin(t *testing.T) string {
	t.Helper()
	res, err := s.users.CreateAdmin(context.Background(), service.RegisterInput{
		Name: "Admin", Email: "admin@example.com", Password: "secret1",
	})
	require.NoError(t, err)
	return res.Token
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func TestProtectRequiresToken(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/users/profile", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "not authorized, no token", decode(t, rec)["error"])

	rec = s.do(t, http.MethodGet, "/api/users/profile", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "not authorized, token failed", decode(t, rec)["error"])

	token := s.register(t, "ada@example.com")
	rec = s.do(t, http.MethodGet, "/api/users/profile", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "ada@example.com", body["email"])
	assert.NotContains(t, body, "password")
}

func TestTokenForDeletedUserIsRejected(t *testing.T) {
	s := newTestServer(t)
	ghost := &entity.User{ID: primitive.NewObjectID(), Role: entity.RoleCustomer}
	token, err := s.tokens.Issue(ghost)
	require.NoError(t, err)

	rec := s.do(t, http.MethodGet, "/api/users/profile", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminGate(t *testing.T) {
	s := newTestServer(t)
	customer := s.register(t, "cara@example.com")

	rec := s.do(t, http.MethodGet, "/api/users", customer, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "not authorized as an admin", decode(t, rec)["error"])

	rec = s.do(t, http.MethodGet, "/api/users", s.admin(t), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 2, decode(t, rec)["total"])
}

func TestRegisterValidationBody(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/users/register", "", map[string]string{"email": "nope"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "validation failed", body["error"])
	assert.Contains(t, body["errors"], "email")
	assert.Contains(t, body["errors"], "password")
}

func TestInvalidID(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/products/123", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid id", decode(t, rec)["error"])
}

func TestProductListHidesInactiveFromCustomers(t *testing.T) {
	s := newTestServer(t)
	s.products.Add(entity.Product{Name: "Visible", Price: 10, IsActive: true})
	s.products.Add(entity.Product{Name: "Hidden", Price: 20, IsActive: false})

	rec := s.do(t, http.MethodGet, "/api/products", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decode(t, rec)["total"])

	rec = s.do(t, http.MethodGet, "/api/products", "garbage", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decode(t, rec)["total"])

	rec = s.do(t, http.MethodGet, "/api/products", s.admin(t), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 2, decode(t, rec)["total"])

	rec = s.do(t, http.MethodGet, "/api/products?minPrice=abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOrderLifecycleOverHTTP(t *testing.T) {
	s := newTestServer(t)
	adminToken := s.admin(t)
	customer := s.register(t, "cara@example.com")

	rec := s.do(t, http.MethodPost, "/api/products", adminToken, map[string]interface{}{
		"name": "Kettle", "price": 100, "stock": 5, "category": "kitchen",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	productID := decode(t, rec)["id"].(string)

	order := map[string]interface{}{
		"items": []map[string]interface{}{{"product": productID, "quantity": 3}},
		"shippingAddress": map[string]string{
			"street": "1 Main St", "city": "Springfield", "postalCode": "12345", "country": "US",
		},
		"paymentMethod": "paypal",
	}
	rec = s.do(t, http.MethodPost, "/api/orders", customer, order)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode(t, rec)
	orderID := created["id"].(string)
	assert.EqualValues(t, 300, created["totalAmount"])
	assert.Equal(t, "pending", created["status"])

	id, err := primitive.ObjectIDFromHex(productID)
	require.NoError(t, err)
	assert.Equal(t, 2, s.products.Stock(id))

	other := s.register(t, "eve@example.com")
	rec = s.do(t, http.MethodGet, "/api/orders/"+orderID, other, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/orders/myorders", customer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decode(t, rec)["total"])

	rec = s.do(t, http.MethodPut, "/api/orders/"+orderID+"/cancel", customer, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "cancelled", decode(t, rec)["status"])
	assert.Equal(t, 5, s.products.Stock(id))

	rec = s.do(t, http.MethodPut, "/api/orders/"+orderID+"/cancel", adminToken, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 5, s.products.Stock(id))
}

func TestRatingEndpoint(t *testing.T) {
	s := newTestServer(t)
	p := s.products.Add(entity.Product{Name: "Mug", Price: 8, IsActive: true})
	token := s.register(t, "cara@example.com")
	path := "/api/products/" + p.ID.Hex() + "/ratings"

	rec := s.do(t, http.MethodPost, path, token, map[string]interface{}{"rating": 4, "review": "nice"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.EqualValues(t, 4, decode(t, rec)["averageRating"])

	rec = s.do(t, http.MethodPost, path, token, map[string]interface{}{"rating": 5})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "product already rated", decode(t, rec)["error"])
}

func TestRateLimiter(t *testing.T) {
	s := newTestServer(t, func(cfg *ServerConfig) {
		cfg.RateLimitStore = NewMemoryRateLimiterStore(3, time.Minute)
	})

	for i := 0; i < 3; i++ {
		rec := s.do(t, http.MethodGet, "/api/products/categories", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec := s.do(t, http.MethodGet, "/api/products/categories", "", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "rate limit exceeded", decode(t, rec)["error"])
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/api/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "dropship-api", body["service"])

	s = newTestServer(t, func(cfg *ServerConfig) {
		cfg.Ping = func(context.Context) error { return errors.New("no primary") }
	})
	rec = s.do(t, http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestWindowKey(t *testing.T) {
	at := time.Date(2024, 5, 1, 10, 7, 30, 0, time.UTC)
	assert.Equal(t, windowKey("1.2.3.4", at, 15*time.Minute), windowKey("1.2.3.4", at.Add(7*time.Minute), 15*time.Minute))
	assert.NotEqual(t, windowKey("1.2.3.4", at, 15*time.Minute), windowKey("1.2.3.4", at.Add(8*time.Minute), 15*time.Minute))
}

func TestMemoryRateLimiterStoreFixedWindow(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	store := NewMemoryRateLimiterStore(2, time.Minute)
	store.now = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		ok, err := store.Allow("1.2.3.4")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, _ := store.Allow("1.2.3.4")
	assert.False(t, ok)
	ok, _ = store.Allow("5.6.7.8")
	assert.True(t, ok)

	now = now.Add(59 * time.Second)
	ok, _ = store.Allow("1.2.3.4")
	assert.False(t, ok)

	now = now.Add(time.Second)
	for i := 0; i < 2; i++ {
		ok, _ = store.Allow("1.2.3.4")
		assert.True(t, ok)
	}
	ok, _ = store.Allow("1.2.3.4")
	assert.False(t, ok)
	assert.Len(t, store.counters, 1)
}
