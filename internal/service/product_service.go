package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"dropship-api/internal/apperr"
	"dropship-api/internal/cache"
	"dropship-api/internal/entity"
	"dropship-api/internal/repository"
	"dropship-api/internal/validators"
)

const topRatedLimit = 5

// ProductInput carries create and update payloads. On update only the set
// fields change; ClearDiscount removes an existing discount.
type ProductInput struct {
	Name           *string           `json:"name"`
	Description    *string           `json:"description"`
	Price          *float64          `json:"price"`
	Stock          *int              `json:"stock"`
	Images         []string          `json:"images"`
	Category       *string           `json:"category"`
	Specifications map[string]string `json:"specifications"`
	Tags           []string          `json:"tags"`
	Discount       *entity.Discount  `json:"discount"`
	ClearDiscount  bool              `json:"clearDiscount"`
	IsActive       *bool             `json:"isActive"`
}

func (in *ProductInput) validate(creating bool) error {
	v := apperr.NewValidationError()
	if creating {
		if in.Name == nil {
			v.Add("name", "name is required")
		}
		if in.Price == nil {
			v.Add("price", "price is required")
		}
		if in.Category == nil {
			v.Add("category", "category is required")
		}
	}
	if in.Name != nil {
		v.Check("name", validators.ValidateString("name", strings.TrimSpace(*in.Name), 1, 200))
	}
	if in.Description != nil {
		v.Check("description", validators.ValidateString("description", *in.Description, 0, 5000))
	}
	if in.Price != nil && *in.Price <= 0 {
		v.Add("price", "price must be greater than 0")
	}
	if in.Stock != nil && *in.Stock < 0 {
		v.Add("stock", "stock cannot be negative")
	}
	if in.Category != nil {
		v.Check("category", validators.ValidateString("category", strings.TrimSpace(*in.Category), 1, 100))
	}
	if in.Discount != nil {
		v.Check("discount.percentage", validators.ValidateRange("percentage", in.Discount.Percentage, 0, 100))
		if in.Discount.ValidUntil.IsZero() {
			v.Add("discount.validUntil", "validUntil is required")
		}
	}
	return v.Err()
}

func (in *ProductInput) apply(p *entity.Product) {
	if in.Name != nil {
		p.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		p.Description = *in.Description
	}
	if in.Price != nil {
		p.Price = *in.Price
	}
	if in.Stock != nil {
		p.Stock = *in.Stock
	}
	if in.Images != nil {
		p.Images = in.Images
	}
	if in.Category != nil {
		p.Category = strings.TrimSpace(*in.Category)
	}
	if in.Specifications != nil {
		p.Specifications = in.Specifications
	}
	if in.Tags != nil {
		p.Tags = in.Tags
	}
	if in.Discount != nil {
		d := *in.Discount
		p.Discount = &d
	}
	if in.ClearDiscount {
		p.Discount = nil
	}
	if in.IsActive != nil {
		p.IsActive = *in.IsActive
	}
}

type RatingInput struct {
	Rating int    `json:"rating"`
	Review string `json:"review"`
}

func (in *RatingInput) Validate() error {
	v := apperr.NewValidationError()
	v.Check("rating", validators.ValidateRange("rating", float64(in.Rating), 1, 5))
	v.Check("review", validators.ValidateString("review", in.Review, 0, 1000))
	return v.Err()
}

type ProductService struct {
	productRepo repository.ProductRepository
	cache       cache.ProductCache
	now         func() time.Time
}

// NewProductService creates a new instance of ProductService.
func NewProductService(productRepo repository.ProductRepository, productCache cache.ProductCache) *ProductService {
	if productCache == nil {
		productCache = cache.NopProductCache{}
	}
	return &ProductService{
		productRepo: productRepo,
		cache:       productCache,
		now:         time.Now,
	}
}

func (p *ProductService) ListProducts(ctx context.Context, filter repository.ProductFilter, page int) (entity.Page[entity.Product], error) {
	page, skip := entity.NormalizePage(page, entity.ProductPageSize)
	products, total, err := p.productRepo.List(ctx, filter, skip, entity.ProductPageSize)
	if err != nil {
		logger.Error().Err(err).Msg("Error listing products")
		return entity.Page[entity.Product]{}, err
	}
	return entity.NewPage(products, page, entity.ProductPageSize, total), nil
}

// GetProduct reads through the cache. Inactive products are hidden from
// everyone except admins.
func (p *ProductService) GetProduct(ctx context.Context, id primitive.ObjectID, includeInactive bool) (*entity.Product, error) {
	product, ok := p.cache.Get(ctx, id.Hex())
	if !ok {
		var err error
		product, err = p.productRepo.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, apperr.NotFound("product not found")
			}
			logger.Error().Err(err).Msgf("Error getting product by ID %s", id.Hex())
			return nil, err
		}
		p.cache.Set(ctx, product)
	}

	if !product.IsActive && !includeInactive {
		return nil, apperr.NotFound("product not found")
	}
	return product, nil
}

func (p *ProductService) TopRated(ctx context.Context) ([]entity.Product, error) {
	products, err := p.productRepo.TopRated(ctx, topRatedLimit)
	if err != nil {
		logger.Error().Err(err).Msg("Error getting top rated products")
		return nil, err
	}
	if products == nil {
		products = []entity.Product{}
	}
	return products, nil
}

func (p *ProductService) Categories(ctx context.Context) ([]string, error) {
	categories, err := p.productRepo.Categories(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Error getting categories")
		return nil, err
	}
	return categories, nil
}

func (p *ProductService) CreateProduct(ctx context.Context, in ProductInput) (*entity.Product, error) {
	if err := in.validate(true); err != nil {
		return nil, err
	}

	product := &entity.Product{IsActive: true}
	in.apply(product)
	if err := p.productRepo.Create(ctx, product); err != nil {
		logger.Error().Err(err).Msg("Error creating product")
		return nil, err
	}
	return product, nil
}

func (p *ProductService) UpdateProduct(ctx context.Context, id primitive.ObjectID, in ProductInput) (*entity.Product, error) {
	if err := in.validate(false); err != nil {
		return nil, err
	}

	product, err := p.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, p.mapProductErr(err, id)
	}
	in.apply(product)

	if err := p.productRepo.Update(ctx, product); err != nil {
		return nil, p.mapProductErr(err, id)
	}
	if in.Stock != nil {
		if err := p.productRepo.SetStock(ctx, id, *in.Stock); err != nil {
			return nil, p.mapProductErr(err, id)
		}
	}
	p.cache.Delete(ctx, id.Hex())

	updated, err := p.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, p.mapProductErr(err, id)
	}
	return updated, nil
}

func (p *ProductService) DeleteProduct(ctx context.Context, id primitive.ObjectID) error {
	if err := p.productRepo.Delete(ctx, id); err != nil {
		return p.mapProductErr(err, id)
	}
	p.cache.Delete(ctx, id.Hex())
	return nil
}

// AddRating records one rating per user per product and returns the product
// with its refreshed average.
func (p *ProductService) AddRating(ctx context.Context, id, userID primitive.ObjectID, in RatingInput) (*entity.Product, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	product, err := p.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, p.mapProductErr(err, id)
	}
	if product.HasRated(userID) {
		return nil, apperr.BadRequest("product already rated")
	}

	rating := entity.Rating{
		User:      userID,
		Rating:    in.Rating,
		Review:    strings.TrimSpace(in.Review),
		CreatedAt: p.now().UTC(),
	}
	updated, err := p.productRepo.AddRating(ctx, id, rating)
	if err != nil {
		if errors.Is(err, entity.ErrAlreadyRated) {
			return nil, apperr.BadRequest("product already rated")
		}
		return nil, p.mapProductErr(err, id)
	}
	p.cache.Delete(ctx, id.Hex())
	return updated, nil
}

// ReserveProductStock removes quantity from a product's stock.
func (p *ProductService) ReserveProductStock(ctx context.Context, id primitive.ObjectID, quantity int) error {
	err := p.productRepo.DecrementStock(ctx, id, quantity)
	if err != nil {
		if errors.Is(err, repository.ErrInsufficientStock) {
			logger.Warn().Msgf("Product %s out of stock", id.Hex())
		}
		return err
	}
	p.cache.Delete(ctx, id.Hex())
	return nil
}

// ReleaseProductStock returns quantity to a product's stock.
func (p *ProductService) ReleaseProductStock(ctx context.Context, id primitive.ObjectID, quantity int) error {
	if err := p.productRepo.IncrementStock(ctx, id, quantity); err != nil {
		logger.Error().Err(err).Msgf("Error releasing stock for product %s", id.Hex())
		return err
	}
	p.cache.Delete(ctx, id.Hex())
	return nil
}

func (p *ProductService) mapProductErr(err error, id primitive.ObjectID) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound("product not found")
	}
	logger.Error().Err(err).Msgf("Error updating product %s", id.Hex())
	return err
}
