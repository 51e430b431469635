package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"dropship-api/internal/apperr"
	"dropship-api/internal/repository"
	"dropship-api/internal/service"
)

type ProductHandler struct {
	productService *service.ProductService
}

// NewProductHandler creates a new instance of ProductHandler
func NewProductHandler(productService *service.ProductService) *ProductHandler {
	return &ProductHandler{productService: productService}
}

// ListProducts --> GET /api/products?page=&keyword=&category=&minPrice=&maxPrice=&sort=
func (h *ProductHandler) ListProducts(c echo.Context) error {
	filter, err := productFilter(c)
	if err != nil {
		return err
	}
	page, err := h.productService.ListProducts(c.Request().Context(), filter, pageParam(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, page)
}

func productFilter(c echo.Context) (repository.ProductFilter, error) {
	filter := repository.ProductFilter{
		Keyword:  strings.TrimSpace(c.QueryParam("keyword")),
		Category: strings.TrimSpace(c.QueryParam("category")),
		Sort:     c.QueryParam("sort"),
	}
	switch filter.Sort {
	case "", repository.SortNewest, repository.SortPriceAsc, repository.SortPriceDesc, repository.SortRating:
	default:
		return filter, apperr.BadRequest("invalid sort %q", filter.Sort)
	}

	for name, dst := range map[string]**float64{"minPrice": &filter.MinPrice, "maxPrice": &filter.MaxPrice} {
		raw := c.QueryParam(name)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v < 0 {
			return filter, apperr.BadRequest("invalid %s", name)
		}
		*dst = &v
	}

	if user := CurrentUser(c); user != nil && user.IsAdmin() {
		filter.IncludeInactive = true
	}
	return filter, nil
}

// TopRated --> GET /api/products/top
func (h *ProductHandler) TopRated(c echo.Context) error {
	products, err := h.productService.TopRated(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, products)
}

// Categories --> GET /api/products/categories
func (h *ProductHandler) Categories(c echo.Context) error {
	categories, err := h.productService.Categories(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, categories)
}

// GetProduct --> GET /api/products/:id
func (h *ProductHandler) GetProduct(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	user := CurrentUser(c)
	product, err := h.productService.GetProduct(c.Request().Context(), id, user != nil && user.IsAdmin())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, product)
}

// CreateProduct --> POST /api/products
func (h *ProductHandler) CreateProduct(c echo.Context) error {
	in := service.ProductInput{}
	if err := bind(c, &in); err != nil {
		return err
	}
	product, err := h.productService.CreateProduct(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, product)
}

// UpdateProduct --> PUT /api/products/:id
func (h *ProductHandler) UpdateProduct(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	in := service.ProductInput{}
	if err := bind(c, &in); err != nil {
		return err
	}
	product, err := h.productService.UpdateProduct(c.Request().Context(), id, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, product)
}

// DeleteProduct --> DELETE /api/products/:id
func (h *ProductHandler) DeleteProduct(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	if err := h.productService.DeleteProduct(c.Request().Context(), id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "product removed"})
}

// AddRating --> POST /api/products/:id/ratings
func (h *ProductHandler) AddRating(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	in := service.RatingInput{}
	if err := bind(c, &in); err != nil {
		return err
	}
	product, err := h.productService.AddRating(c.Request().Context(), id, CurrentUser(c).ID, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, product)
}
