package api

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"regexp"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"dropship-api/internal/apperr"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Str("component", "api").Logger()

var duplicateIndexPattern = regexp.MustCompile(`index: ([A-Za-z0-9.]+?)_-?1`)

// ErrorHandler renders every error returned by a handler or middleware as
// {"error": message}. Stack traces are included outside production.
func ErrorHandler(production bool) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, body := errorResponse(err, production)
		if status >= http.StatusInternalServerError {
			logger.Error().Err(err).Str("path", c.Path()).Msg("Unhandled error")
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, body)
		}
		if err != nil {
			logger.Error().Err(err).Msg("Error writing error response")
		}
	}
}

func errorResponse(err error, production bool) (int, map[string]interface{}) {
	var (
		validation *apperr.ValidationError
		appErr     *apperr.Error
		httpErr    *echo.HTTPError
	)

	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest, map[string]interface{}{
			"error":  "validation failed",
			"errors": validation.Fields,
		}
	case mongo.IsDuplicateKeyError(err):
		msg := "duplicate value"
		if m := duplicateIndexPattern.FindStringSubmatch(err.Error()); m != nil {
			msg = "duplicate value for field " + m[1]
		}
		return http.StatusBadRequest, map[string]interface{}{"error": msg}
	case errors.Is(err, primitive.ErrInvalidHex):
		return http.StatusBadRequest, map[string]interface{}{"error": "invalid id"}
	case errors.Is(err, jwt.ErrTokenExpired):
		return http.StatusUnauthorized, map[string]interface{}{"error": "token expired"}
	case errors.Is(err, jwt.ErrTokenMalformed),
		errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrTokenUnverifiable),
		errors.Is(err, jwt.ErrTokenInvalidClaims),
		errors.Is(err, jwt.ErrTokenNotValidYet):
		return http.StatusUnauthorized, map[string]interface{}{"error": "invalid token"}
	case errors.As(err, &appErr):
		return appErr.Status, map[string]interface{}{"error": appErr.Message}
	case errors.As(err, &httpErr):
		msg := http.StatusText(httpErr.Code)
		if httpErr.Message != nil {
			msg = fmt.Sprint(httpErr.Message)
		}
		return httpErr.Code, map[string]interface{}{"error": msg}
	}

	body := map[string]interface{}{"error": err.Error()}
	if !production {
		body["stack"] = fmt.Sprintf("%+v", err)
	}
	return http.StatusInternalServerError, body
}
