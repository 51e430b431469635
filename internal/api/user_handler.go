package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"dropship-api/internal/apperr"
	"dropship-api/internal/service"
)

type UserHandler struct {
	userService *service.UserService
}

// NewUserHandler creates a new instance of UserHandler
func NewUserHandler(userService *service.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// Register creates a customer account --> POST /api/users/register
func (h *UserHandler) Register(c echo.Context) error {
	in := service.RegisterInput{}
	if err := bind(c, &in); err != nil {
		return err
	}
	res, err := h.userService.Register(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, res)
}

// Login --> POST /api/users/login
func (h *UserHandler) Login(c echo.Context) error {
	in := service.LoginInput{}
	if err := bind(c, &in); err != nil {
		return err
	}
	res, err := h.userService.Login(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

// GetProfile --> GET /api/users/profile
func (h *UserHandler) GetProfile(c echo.Context) error {
	return c.JSON(http.StatusOK, CurrentUser(c))
}

// UpdateProfile --> PUT /api/users/profile
func (h *UserHandler) UpdateProfile(c echo.Context) error {
	in := service.ProfileUpdate{}
	if err := bind(c, &in); err != nil {
		return err
	}
	user, err := h.userService.UpdateProfile(c.Request().Context(), CurrentUser(c).ID, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

// ListUsers --> GET /api/users
func (h *UserHandler) ListUsers(c echo.Context) error {
	page, err := h.userService.ListUsers(c.Request().Context(), pageParam(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, page)
}

// GetUser --> GET /api/users/:id
func (h *UserHandler) GetUser(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	user, err := h.userService.GetUserByID(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

// UpdateUser --> PUT /api/users/:id
func (h *UserHandler) UpdateUser(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	in := service.AdminUserUpdate{}
	if err := bind(c, &in); err != nil {
		return err
	}
	user, err := h.userService.UpdateUser(c.Request().Context(), id, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

// DeleteUser --> DELETE /api/users/:id
func (h *UserHandler) DeleteUser(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	if err := h.userService.DeleteUser(c.Request().Context(), id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "user removed"})
}

func bind(c echo.Context, dst interface{}) error {
	if err := c.Bind(dst); err != nil {
		return apperr.BadRequest("invalid request payload")
	}
	return nil
}

func idParam(c echo.Context) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return primitive.NilObjectID, apperr.BadRequest("invalid id")
	}
	return id, nil
}

func pageParam(c echo.Context) int {
	page, err := strconv.Atoi(c.QueryParam("page"))
	if err != nil || page < 1 {
		return 1
	}
	return page
}
