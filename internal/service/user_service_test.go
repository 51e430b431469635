package service

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"dropship-api/internal/apperr"
	"dropship-api/internal/auth"
	"dropship-api/internal/entity"
	"dropship-api/internal/repository/repotest"
)

func newTestUserService() (*UserService, *repotest.UserRepository) {
	repo := repotest.NewUserRepository()
	return NewUserService(repo, auth.NewTokenManager([]byte("test-secret"), time.Hour)), repo
}

func requireStatus(t *testing.T, err error, status int) {
	t.Helper()
	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, status, appErr.Status)
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _ := newTestUserService()
	ctx := context.Background()

	res, err := svc.Register(ctx, RegisterInput{Name: " Ada ", Email: "Ada@Example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", res.User.Email)
	assert.Equal(t, "Ada", res.User.Name)
	assert.Equal(t, entity.RoleCustomer, res.User.Role)
	assert.NotEqual(t, "secret1", res.User.Password)
	assert.NotEmpty(t, res.Token)

	login, err := svc.Login(ctx, LoginInput{Email: "ada@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, login.User.ID)

	_, err = svc.Login(ctx, LoginInput{Email: "ada@example.com", Password: "wrong-pass"})
	requireStatus(t, err, http.StatusUnauthorized)

	_, err = svc.Login(ctx, LoginInput{Email: "nobody@example.com", Password: "secret1"})
	requireStatus(t, err, http.StatusUnauthorized)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _ := newTestUserService()
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Name: "Ada", Email: "ada@example.com", Password: "secret1"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, RegisterInput{Name: "Ada", Email: "ADA@example.com", Password: "secret1"})
	requireStatus(t, err, http.StatusBadRequest)
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newTestUserService()

	_, err := svc.Register(context.Background(), RegisterInput{Name: "", Email: "bad", Password: "123"})
	var verr *apperr.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "name")
	assert.Contains(t, verr.Fields, "email")
	assert.Contains(t, verr.Fields, "password")
}

func TestUpdateProfileChangesPassword(t *testing.T) {
	svc, _ := newTestUserService()
	ctx := context.Background()

	res, err := svc.Register(ctx, RegisterInput{Name: "Ada", Email: "ada@example.com", Password: "secret1"})
	require.NoError(t, err)

	name, pw := "Ada Lovelace", "newsecret"
	updated, err := svc.UpdateProfile(ctx, res.User.ID, ProfileUpdate{Name: &name, Password: &pw})
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", updated.Name)

	_, err = svc.Login(ctx, LoginInput{Email: "ada@example.com", Password: "newsecret"})
	assert.NoError(t, err)
}

func TestUpdateProfileKeepsOrderHistory(t *testing.T) {
	repo := &racingUsers{UserRepository: repotest.NewUserRepository()}
	svc := NewUserService(repo, auth.NewTokenManager([]byte("test-secret"), time.Hour))
	ctx := context.Background()

	res, err := svc.Register(ctx, RegisterInput{Name: "Ada", Email: "ada@example.com", Password: "secret1"})
	require.NoError(t, err)

	orderID := primitive.NewObjectID()
	repo.afterRead = func() {
		require.NoError(t, repo.AppendOrder(ctx, res.User.ID, orderID))
	}

	phone := "+15550100"
	updated, err := svc.UpdateProfile(ctx, res.User.ID, ProfileUpdate{Phone: &phone})
	require.NoError(t, err)
	assert.Equal(t, phone, updated.Phone)
	assert.Equal(t, []primitive.ObjectID{orderID}, updated.Orders)

	stored, err := repo.FindByID(ctx, res.User.ID)
	require.NoError(t, err)
	assert.Equal(t, []primitive.ObjectID{orderID}, stored.Orders)
}

func TestDeleteUserProtectsAdmins(t *testing.T) {
	svc, _ := newTestUserService()
	ctx := context.Background()

	admin, err := svc.CreateAdmin(ctx, RegisterInput{Name: "Root", Email: "root@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.True(t, admin.User.IsAdmin())

	err = svc.DeleteUser(ctx, admin.User.ID)
	requireStatus(t, err, http.StatusBadRequest)

	customer, err := svc.Register(ctx, RegisterInput{Name: "Bob", Email: "bob@example.com", Password: "secret1"})
	require.NoError(t, err)
	require.NoError(t, svc.DeleteUser(ctx, customer.User.ID))

	_, err = svc.GetUserByID(ctx, customer.User.ID)
	requireStatus(t, err, http.StatusNotFound)
}

func TestListUsersPaginates(t *testing.T) {
	svc, _ := newTestUserService()
	ctx := context.Background()

	for _, email := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		_, err := svc.Register(ctx, RegisterInput{Name: "User", Email: email, Password: "secret1"})
		require.NoError(t, err)
	}

	page, err := svc.ListUsers(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, page.Items, 3)
	assert.Equal(t, int64(3), page.Total)
	assert.Equal(t, 1, page.Pages)
}

func TestUpdateUserRole(t *testing.T) {
	svc, _ := newTestUserService()
	ctx := context.Background()

	res, err := svc.Register(ctx, RegisterInput{Name: "Bob", Email: "bob@example.com", Password: "secret1"})
	require.NoError(t, err)

	bad := "owner"
	_, err = svc.UpdateUser(ctx, res.User.ID, AdminUserUpdate{Role: &bad})
	assert.Error(t, err)

	role := entity.RoleAdmin
	updated, err := svc.UpdateUser(ctx, res.User.ID, AdminUserUpdate{Role: &role})
	require.NoError(t, err)
	assert.True(t, updated.IsAdmin())
}
