package entity

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var ErrAlreadyRated = errors.New("product already rated by this user")

type Rating struct {
	User      primitive.ObjectID `bson:"user" json:"user"`
	Rating    int                `bson:"rating" json:"rating"`
	Review    string             `bson:"review,omitempty" json:"review,omitempty"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}

// Discount is a percentage (0-100) off the list price until ValidUntil.
type Discount struct {
	Percentage float64   `bson:"percentage" json:"percentage"`
	ValidUntil time.Time `bson:"validUntil" json:"validUntil"`
}

func (d *Discount) ActiveAt(now time.Time) bool {
	return d != nil && d.Percentage > 0 && now.Before(d.ValidUntil)
}

type Product struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name           string             `bson:"name" json:"name"`
	Description    string             `bson:"description" json:"description"`
	Price          float64            `bson:"price" json:"price"`
	Stock          int                `bson:"stock" json:"stock"`
	Images         []string           `bson:"images" json:"images"`
	Category       string             `bson:"category" json:"category"`
	Specifications map[string]string  `bson:"specifications,omitempty" json:"specifications,omitempty"`
	Tags           []string           `bson:"tags" json:"tags"`
	Ratings        []Rating           `bson:"ratings" json:"ratings"`
	AverageRating  float64            `bson:"averageRating" json:"averageRating"`
	NumRatings     int                `bson:"numRatings" json:"numRatings"`
	Discount       *Discount          `bson:"discount,omitempty" json:"discount,omitempty"`
	IsActive       bool               `bson:"isActive" json:"isActive"`
	CreatedAt      time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// DiscountedPrice is the price a buyer pays at the given instant, rounded to
// cents. An expired or missing discount yields the list price.
func (p *Product) DiscountedPrice(now time.Time) float64 {
	return DiscountedPrice(p.Price, p.Discount, now)
}

func DiscountedPrice(price float64, d *Discount, now time.Time) float64 {
	if !d.ActiveAt(now) {
		return price
	}
	factor := decimal.NewFromInt(1).Sub(decimal.NewFromFloat(d.Percentage).Div(decimal.NewFromInt(100)))
	return decimal.NewFromFloat(price).Mul(factor).Round(2).InexactFloat64()
}

func (p *Product) HasRated(userID primitive.ObjectID) bool {
	for _, r := range p.Ratings {
		if r.User == userID {
			return true
		}
	}
	return false
}

// AddRating appends a rating and refreshes the average.
func (p *Product) AddRating(r Rating) error {
	if p.HasRated(r.User) {
		return ErrAlreadyRated
	}
	p.Ratings = append(p.Ratings, r)
	p.RecalculateRating()
	return nil
}

// RecalculateRating sets AverageRating to the arithmetic mean of all ratings.
func (p *Product) RecalculateRating() {
	p.NumRatings = len(p.Ratings)
	if p.NumRatings == 0 {
		p.AverageRating = 0
		return
	}
	sum := 0
	for _, r := range p.Ratings {
		sum += r.Rating
	}
	p.AverageRating = decimal.NewFromInt(int64(sum)).
		Div(decimal.NewFromInt(int64(p.NumRatings))).
		Round(2).InexactFloat64()
}

func (p Product) MarshalJSON() ([]byte, error) {
	type product Product
	return json.Marshal(struct {
		product
		DiscountedPrice float64 `json:"discountedPrice"`
	}{
		product:         product(p),
		DiscountedPrice: p.DiscountedPrice(time.Now()),
	})
}

/*
Mongo collection: products

{ _id, name, description, price, stock, images, category, specifications,
  tags, ratings: [{user, rating, review, createdAt}], averageRating, numRatings,
  discount: {percentage, validUntil}, isActive, createdAt, updatedAt }
*/
