package api

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"dropship-api/internal/apperr"
)

func TestErrorResponse(t *testing.T) {
	duplicate := mongo.WriteException{WriteErrors: []mongo.WriteError{{
		Code:    11000,
		Message: `E11000 duplicate key error collection: dropship.users index: email_1 dup key: { email: "a@b.co" }`,
	}}}

	tests := []struct {
		name   string
		err    error
		status int
		msg    string
	}{
		{"app error", apperr.NotFound("order not found"), http.StatusNotFound, "order not found"},
		{"wrapped app error", fmt.Errorf("loading: %w", apperr.Forbidden("nope")), http.StatusForbidden, "nope"},
		{"duplicate key", duplicate, http.StatusBadRequest, "duplicate value for field email"},
		{"invalid hex", primitive.ErrInvalidHex, http.StatusBadRequest, "invalid id"},
		{"expired token", fmt.Errorf("parse: %w", jwt.ErrTokenExpired), http.StatusUnauthorized, "token expired"},
		{"bad signature", jwt.ErrTokenSignatureInvalid, http.StatusUnauthorized, "invalid token"},
		{"echo error", echo.ErrNotFound, http.StatusNotFound, "Not Found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := errorResponse(tt.err, true)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.msg, body["error"])
		})
	}
}

func TestErrorResponseStack(t *testing.T) {
	err := errors.Wrap(errors.New("socket closed"), "find order")

	status, body := errorResponse(err, false)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "find order: socket closed", body["error"])
	assert.Contains(t, body["stack"], "errors_test.go")

	_, body = errorResponse(err, true)
	assert.NotContains(t, body, "stack")
}

func TestValidationErrorResponse(t *testing.T) {
	v := apperr.NewValidationError()
	v.Add("email", "email is invalid")

	status, body := errorResponse(v.Err(), true)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, map[string]string{"email": "email is invalid"}, body["errors"])
}
