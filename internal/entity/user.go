package entity

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

type Address struct {
	Street     string `bson:"street" json:"street"`
	City       string `bson:"city" json:"city"`
	State      string `bson:"state" json:"state"`
	PostalCode string `bson:"postalCode" json:"postalCode"`
	Country    string `bson:"country" json:"country"`
}

type User struct {
	ID        primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Name      string               `bson:"name" json:"name"`
	Email     string               `bson:"email" json:"email"`
	Password  string               `bson:"password" json:"-"`
	Role      string               `bson:"role" json:"role"`
	Address   Address              `bson:"address" json:"address"`
	Phone     string               `bson:"phone,omitempty" json:"phone,omitempty"`
	Orders    []primitive.ObjectID `bson:"orders" json:"orders"`
	CreatedAt time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time            `bson:"updatedAt" json:"updatedAt"`
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

/*
Mongo collection: users

{ _id, name, email (unique), password (bcrypt), role, address{...}, phone,
  orders: [ObjectId], createdAt, updatedAt }
*/
