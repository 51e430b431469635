package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"dropship-api/internal/apperr"
	"dropship-api/internal/auth"
	"dropship-api/internal/entity"
)

const (
	claimsContextKey = "claims"
	userContextKey   = "user"
)

// UserLookup resolves the account behind a verified token.
type UserLookup interface {
	GetUserByID(ctx context.Context, id primitive.ObjectID) (*entity.User, error)
}

type AuthMiddleware struct {
	tokens *auth.TokenManager
	users  UserLookup
}

func NewAuthMiddleware(tokens *auth.TokenManager, users UserLookup) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, users: users}
}

// Protect rejects requests without a valid bearer token and stores the
// token's user in the context.
func (m *AuthMiddleware) Protect() echo.MiddlewareFunc {
	verify := echojwt.WithConfig(m.jwtConfig(false))
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return verify(m.loadUser(false)(next))
	}
}

// Optional attaches the user when a valid token is present and lets every
// other request through anonymously.
func (m *AuthMiddleware) Optional() echo.MiddlewareFunc {
	verify := echojwt.WithConfig(m.jwtConfig(true))
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return verify(m.loadUser(true)(next))
	}
}

func (m *AuthMiddleware) jwtConfig(optional bool) echojwt.Config {
	return echojwt.Config{
		ContextKey: claimsContextKey,
		ParseTokenFunc: func(c echo.Context, token string) (interface{}, error) {
			return m.tokens.Parse(token)
		},
		ContinueOnIgnoredError: optional,
		ErrorHandler: func(c echo.Context, err error) error {
			if optional {
				return nil
			}
			switch {
			case c.Request().Header.Get(echo.HeaderAuthorization) == "":
				return apperr.Unauthorized("not authorized, no token")
			case errors.Is(err, jwt.ErrTokenExpired):
				return apperr.Unauthorized("token expired")
			}
			return apperr.Unauthorized("not authorized, token failed")
		},
	}
}

func (m *AuthMiddleware) loadUser(optional bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, ok := c.Get(claimsContextKey).(*auth.JwtCustomClaims)
			if !ok {
				if optional {
					return next(c)
				}
				return apperr.Unauthorized("not authorized, no token")
			}

			id, err := primitive.ObjectIDFromHex(claims.UserID)
			if err != nil {
				if optional {
					return next(c)
				}
				return apperr.Unauthorized("not authorized, token failed")
			}
			user, err := m.users.GetUserByID(c.Request().Context(), id)
			if err != nil {
				var appErr *apperr.Error
				if errors.As(err, &appErr) && appErr.Status == http.StatusNotFound {
					if optional {
						return next(c)
					}
					return apperr.Unauthorized("not authorized, user not found")
				}
				return err
			}

			c.Set(userContextKey, user)
			return next(c)
		}
	}
}

// Admin must run after Protect.
func Admin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		user := CurrentUser(c)
		if user == nil || !user.IsAdmin() {
			return apperr.Forbidden("not authorized as an admin")
		}
		return next(c)
	}
}

// CurrentUser returns the authenticated user or nil.
func CurrentUser(c echo.Context) *entity.User {
	user, _ := c.Get(userContextKey).(*entity.User)
	return user
}

func requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogMethod:    true,
		LogStatus:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			event := logger.Info()
			if v.Error != nil {
				event = logger.Warn().Err(v.Error)
			}
			event.
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("remote_ip", v.RemoteIP).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}

func requestID() echo.MiddlewareFunc {
	return middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	})
}

func healthHandler(service string, ping func(ctx context.Context) error) echo.HandlerFunc {
	return func(c echo.Context) error {
		status, code := "ok", http.StatusOK
		if ping != nil {
			ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
			defer cancel()
			if err := ping(ctx); err != nil {
				logger.Error().Err(err).Msg("Health check failed")
				status, code = "unavailable", http.StatusServiceUnavailable
			}
		}
		return c.JSON(code, map[string]interface{}{
			"status":  status,
			"service": service,
			"time":    time.Now().Format(time.RFC3339),
		})
	}
}
