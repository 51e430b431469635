package service

import (
	"context"
	"errors"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"dropship-api/internal/apperr"
	"dropship-api/internal/auth"
	"dropship-api/internal/entity"
	"dropship-api/internal/repository"
	"dropship-api/internal/validators"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

type RegisterInput struct {
	Name     string         `json:"name"`
	Email    string         `json:"email"`
	Password string         `json:"password"`
	Phone    string         `json:"phone"`
	Address  entity.Address `json:"address"`
}

func (in *RegisterInput) Validate() error {
	v := apperr.NewValidationError()
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	v.Check("name", validators.ValidateString("name", in.Name, 1, 50))
	v.Check("email", validators.ValidateEmail(in.Email))
	v.Check("password", validators.ValidatePassword(in.Password))
	if in.Phone != "" {
		v.Check("phone", validators.ValidatePhone(in.Phone))
	}
	return v.Err()
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (in *LoginInput) Validate() error {
	v := apperr.NewValidationError()
	if strings.TrimSpace(in.Email) == "" {
		v.Add("email", "email is required")
	}
	if in.Password == "" {
		v.Add("password", "password is required")
	}
	return v.Err()
}

// ProfileUpdate changes only the fields that are set.
type ProfileUpdate struct {
	Name     *string         `json:"name"`
	Email    *string         `json:"email"`
	Phone    *string         `json:"phone"`
	Address  *entity.Address `json:"address"`
	Password *string         `json:"password"`
}

func (in *ProfileUpdate) Validate() error {
	v := apperr.NewValidationError()
	if in.Name != nil {
		v.Check("name", validators.ValidateString("name", strings.TrimSpace(*in.Name), 1, 50))
	}
	if in.Email != nil {
		v.Check("email", validators.ValidateEmail(strings.TrimSpace(*in.Email)))
	}
	if in.Phone != nil && *in.Phone != "" {
		v.Check("phone", validators.ValidatePhone(*in.Phone))
	}
	if in.Password != nil {
		v.Check("password", validators.ValidatePassword(*in.Password))
	}
	return v.Err()
}

type AdminUserUpdate struct {
	Name    *string         `json:"name"`
	Role    *string         `json:"role"`
	Phone   *string         `json:"phone"`
	Address *entity.Address `json:"address"`
}

func (in *AdminUserUpdate) Validate() error {
	v := apperr.NewValidationError()
	if in.Name != nil {
		v.Check("name", validators.ValidateString("name", strings.TrimSpace(*in.Name), 1, 50))
	}
	if in.Role != nil && *in.Role != entity.RoleCustomer && *in.Role != entity.RoleAdmin {
		v.Add("role", "role must be customer or admin")
	}
	if in.Phone != nil && *in.Phone != "" {
		v.Check("phone", validators.ValidatePhone(*in.Phone))
	}
	return v.Err()
}

// AuthResult is returned by register and login.
type AuthResult struct {
	User  *entity.User `json:"user"`
	Token string       `json:"token"`
}

type UserService struct {
	repo   repository.UserRepository
	tokens *auth.TokenManager
}

// NewUserService creates a new instance of UserService.
func NewUserService(repo repository.UserRepository, tokens *auth.TokenManager) *UserService {
	return &UserService{repo: repo, tokens: tokens}
}

// Register creates a customer account and signs a token for it.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	return s.createUser(ctx, in, entity.RoleCustomer)
}

// CreateAdmin is used by the CLI; the HTTP API never creates admins.
func (s *UserService) CreateAdmin(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	return s.createUser(ctx, in, entity.RoleAdmin)
}

func (s *UserService) createUser(ctx context.Context, in RegisterInput, role string) (*AuthResult, error) {
	if existing, err := s.repo.FindByEmail(ctx, in.Email); err == nil && existing != nil {
		return nil, apperr.BadRequest("user already exists")
	} else if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		logger.Error().Err(err).Msg("Error hashing password")
		return nil, err
	}

	user := &entity.User{
		Name:     in.Name,
		Email:    in.Email,
		Password: hash,
		Role:     role,
		Phone:    in.Phone,
		Address:  in.Address,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if !mongo.IsDuplicateKeyError(err) {
			logger.Error().Err(err).Msg("Error creating user")
		}
		return nil, err
	}

	return s.authResult(user)
}

func (s *UserService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	user, err := s.repo.FindByEmail(ctx, strings.TrimSpace(in.Email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.Unauthorized("invalid email or password")
		}
		return nil, err
	}
	if !auth.CheckPassword(user.Password, in.Password) {
		return nil, apperr.Unauthorized("invalid email or password")
	}

	return s.authResult(user)
}

func (s *UserService) authResult(user *entity.User) (*AuthResult, error) {
	token, err := s.tokens.Issue(user)
	if err != nil {
		logger.Error().Err(err).Msg("Error signing token")
		return nil, err
	}
	return &AuthResult{User: user, Token: token}, nil
}

// GetUserByID retrieves a user by ID.
func (s *UserService) GetUserByID(ctx context.Context, id primitive.ObjectID) (*entity.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("user not found")
		}
		logger.Error().Err(err).Msgf("Error getting user by ID %s", id.Hex())
		return nil, err
	}
	return user, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, id primitive.ObjectID, in ProfileUpdate) (*entity.User, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	user, err := s.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		user.Name = strings.TrimSpace(*in.Name)
	}
	if in.Email != nil {
		user.Email = strings.ToLower(strings.TrimSpace(*in.Email))
	}
	if in.Phone != nil {
		user.Phone = *in.Phone
	}
	if in.Address != nil {
		user.Address = *in.Address
	}
	if in.Password != nil {
		hash, err := auth.HashPassword(*in.Password)
		if err != nil {
			return nil, err
		}
		user.Password = hash
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, s.mapUserErr(err, id)
	}
	return s.GetUserByID(ctx, id)
}

func (s *UserService) ListUsers(ctx context.Context, page int) (entity.Page[entity.User], error) {
	page, skip := entity.NormalizePage(page, entity.UserPageSize)
	users, total, err := s.repo.List(ctx, skip, entity.UserPageSize)
	if err != nil {
		logger.Error().Err(err).Msg("Error listing users")
		return entity.Page[entity.User]{}, err
	}
	return entity.NewPage(users, page, entity.UserPageSize, total), nil
}

func (s *UserService) UpdateUser(ctx context.Context, id primitive.ObjectID, in AdminUserUpdate) (*entity.User, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	user, err := s.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		user.Name = strings.TrimSpace(*in.Name)
	}
	if in.Role != nil {
		user.Role = *in.Role
	}
	if in.Phone != nil {
		user.Phone = *in.Phone
	}
	if in.Address != nil {
		user.Address = *in.Address
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, s.mapUserErr(err, id)
	}
	return s.GetUserByID(ctx, id)
}

// DeleteUser removes a customer account. Admin accounts are protected.
func (s *UserService) DeleteUser(ctx context.Context, id primitive.ObjectID) error {
	user, err := s.GetUserByID(ctx, id)
	if err != nil {
		return err
	}
	if user.IsAdmin() {
		return apperr.BadRequest("cannot delete admin user")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return s.mapUserErr(err, id)
	}
	logger.Info().Msgf("Deleted user %s", id.Hex())
	return nil
}

func (s *UserService) mapUserErr(err error, id primitive.ObjectID) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound("user not found")
	}
	if !mongo.IsDuplicateKeyError(err) {
		logger.Error().Err(err).Msgf("Error updating user %s", id.Hex())
	}
	return err
}
