package services

import (
	"context"
	"testing"

	"github.com/franciscosanchezn/gin-user-manager/internal/models"
	"github.com/franciscosanchezn/gin-user-manager/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func strPtr(s string) *string { return &s }

func newTestUserService(t *testing.T, policy DeletePolicy) (UserService, *gorm.DB) {
	t.Helper()
	db := testutil.OpenTestDB(t)
	return NewUserService(db, policy), db
}

func TestRegister(t *testing.T) {
	ctx := context.Background()

	t.Run("creates user with hashed password and default role", func(t *testing.T) {
		svc, db := newTestUserService(t, DeleteAdminOnly)

		user, err := svc.Register(ctx, UserInput{Name: "Test User", Email: "Test@Example.com ", Password: "password123"})
		require.NoError(t, err)
		assert.NotZero(t, user.ID)
		assert.Equal(t, "Test User", user.Name)
		assert.Equal(t, "test@example.com", user.Email)
		assert.Equal(t, models.RoleUser, user.Role)

		var stored models.User
		require.NoError(t, db.First(&stored, user.ID).Error)
		assert.NotEqual(t, "password123", stored.Password)
		assert.True(t, stored.CheckPassword("password123"))
	})

	t.Run("duplicate email is a conflict", func(t *testing.T) {
		svc, _ := newTestUserService(t, DeleteAdminOnly)

		_, err := svc.Register(ctx, UserInput{Name: "A", Email: "dup@example.com", Password: "pw"})
		require.NoError(t, err)

		_, err = svc.Register(ctx, UserInput{Name: "B", Email: "DUP@example.com", Password: "pw"})
		assert.ErrorIs(t, err, ErrEmailTaken)
	})

	t.Run("missing fields are rejected and nothing is stored", func(t *testing.T) {
		svc, db := newTestUserService(t, DeleteAdminOnly)

		for _, in := range []UserInput{
			{Name: "No Email", Password: "pw"},
			{Name: "No Password", Email: "nopw@example.com"},
			{Email: "noname@example.com", Password: "pw"},
		} {
			_, err := svc.Register(ctx, in)
			assert.ErrorIs(t, err, ErrValidation)
		}

		var count int64
		db.Model(&models.User{}).Count(&count)
		assert.Zero(t, count)
	})

	t.Run("malformed email is rejected and nothing is stored", func(t *testing.T) {
		svc, db := newTestUserService(t, DeleteAdminOnly)

		_, err := svc.Register(ctx, UserInput{Name: "X", Email: "not-an-email", Password: "pw"})
		assert.ErrorIs(t, err, ErrValidation)
		_, err = svc.CreateUser(ctx, UserInput{Name: "Y", Email: "missing@tld@", Password: "pw"})
		assert.ErrorIs(t, err, ErrValidation)

		var count int64
		db.Model(&models.User{}).Count(&count)
		assert.Zero(t, count)
	})

	t.Run("unknown role silently becomes user", func(t *testing.T) {
		svc, _ := newTestUserService(t, DeleteAdminOnly)

		user, err := svc.CreateUser(ctx, UserInput{Name: "S", Email: "s@example.com", Password: "pw", Role: "superuser"})
		require.NoError(t, err)
		assert.Equal(t, models.RoleUser, user.Role)

		manager, err := svc.CreateUser(ctx, UserInput{Name: "M", Email: "m@example.com", Password: "pw", Role: "manager"})
		require.NoError(t, err)
		assert.Equal(t, models.RoleManager, manager.Role)
	})
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestUserService(t, DeleteAdminOnly)
	_, err := svc.Register(ctx, UserInput{Name: "Login", Email: "login@example.com", Password: "secret"})
	require.NoError(t, err)

	user, err := svc.Login(ctx, "login@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, "Login", user.Name)

	_, err = svc.Login(ctx, "login@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, "nobody@example.com", "secret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, "", "secret")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestListAndGet(t *testing.T) {
	ctx := context.Background()
	svc, db := newTestUserService(t, DeleteAdminOnly)

	users, err := svc.ListUsers(ctx)
	require.NoError(t, err)
	assert.NotNil(t, users)
	assert.Empty(t, users)

	first := testutil.CreateUser(t, db, "First", "first@example.com", "pw", models.RoleUser)
	testutil.CreateUser(t, db, "Second", "second@example.com", "pw", models.RoleAdmin)

	users, err = svc.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "First", users[0].Name)

	got, err := svc.GetUserByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "first@example.com", got.Email)

	_, err = svc.GetUserByID(ctx, 999)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUpdateUser(t *testing.T) {
	ctx := context.Background()

	t.Run("applies only supplied fields", func(t *testing.T) {
		svc, db := newTestUserService(t, DeleteAdminOnly)
		user := testutil.CreateUser(t, db, "Before", "before@example.com", "old-password", models.RoleUser)

		updated, err := svc.UpdateUser(ctx, user.ID, UserUpdate{Name: strPtr("After"), Email: strPtr("")})
		require.NoError(t, err)
		assert.Equal(t, "After", updated.Name)
		assert.Equal(t, "before@example.com", updated.Email)
		assert.Equal(t, models.RoleUser, updated.Role)
		assert.True(t, updated.CheckPassword("old-password"))
	})

	t.Run("rehashes a new password", func(t *testing.T) {
		svc, db := newTestUserService(t, DeleteAdminOnly)
		user := testutil.CreateUser(t, db, "Pw", "pw@example.com", "old-password", models.RoleUser)

		_, err := svc.UpdateUser(ctx, user.ID, UserUpdate{Password: strPtr("new-password")})
		require.NoError(t, err)

		_, err = svc.Login(ctx, "pw@example.com", "new-password")
		assert.NoError(t, err)
		_, err = svc.Login(ctx, "pw@example.com", "old-password")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("email collision with another user is a conflict", func(t *testing.T) {
		svc, db := newTestUserService(t, DeleteAdminOnly)
		testutil.CreateUser(t, db, "Owner", "taken@example.com", "pw", models.RoleUser)
		user := testutil.CreateUser(t, db, "Other", "other@example.com", "pw", models.RoleUser)

		_, err := svc.UpdateUser(ctx, user.ID, UserUpdate{Email: strPtr("taken@example.com")})
		assert.ErrorIs(t, err, ErrEmailTaken)

		unchanged, err := svc.GetUserByID(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, "other@example.com", unchanged.Email)
	})

	t.Run("own current email succeeds", func(t *testing.T) {
		svc, db := newTestUserService(t, DeleteAdminOnly)
		user := testutil.CreateUser(t, db, "Same", "same@example.com", "pw", models.RoleUser)

		updated, err := svc.UpdateUser(ctx, user.ID, UserUpdate{Email: strPtr("same@example.com"), Name: strPtr("Same Again")})
		require.NoError(t, err)
		assert.Equal(t, "same@example.com", updated.Email)
		assert.Equal(t, "Same Again", updated.Name)
	})

	t.Run("malformed email is rejected", func(t *testing.T) {
		svc, db := newTestUserService(t, DeleteAdminOnly)
		user := testutil.CreateUser(t, db, "Valid", "valid@example.com", "pw", models.RoleUser)

		_, err := svc.UpdateUser(ctx, user.ID, UserUpdate{Email: strPtr("also-bad"), Name: strPtr("Changed")})
		assert.ErrorIs(t, err, ErrValidation)

		unchanged, err := svc.GetUserByID(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, "valid@example.com", unchanged.Email)
		assert.Equal(t, "Valid", unchanged.Name)
	})

	t.Run("invalid role is rejected", func(t *testing.T) {
		svc, db := newTestUserService(t, DeleteAdminOnly)
		user := testutil.CreateUser(t, db, "Role", "role@example.com", "pw", models.RoleUser)

		_, err := svc.UpdateUser(ctx, user.ID, UserUpdate{Role: strPtr("superuser"), Name: strPtr("Changed")})
		assert.ErrorIs(t, err, ErrValidation)

		unchanged, err := svc.GetUserByID(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, "Role", unchanged.Name)

		promoted, err := svc.UpdateUser(ctx, user.ID, UserUpdate{Role: strPtr("manager")})
		require.NoError(t, err)
		assert.Equal(t, models.RoleManager, promoted.Role)
	})

	t.Run("unknown id is not found", func(t *testing.T) {
		svc, _ := newTestUserService(t, DeleteAdminOnly)
		_, err := svc.UpdateUser(ctx, 42, UserUpdate{Name: strPtr("Ghost")})
		assert.ErrorIs(t, err, ErrUserNotFound)
	})
}

func TestDeleteUser(t *testing.T) {
	ctx := context.Background()

	t.Run("admin deletes user and their clients", func(t *testing.T) {
		svc, db := newTestUserService(t, DeleteAdminOnly)
		admin := testutil.CreateUser(t, db, "Admin", "admin@example.com", "pw", models.RoleAdmin)
		target := testutil.CreateUser(t, db, "Target", "target@example.com", "pw", models.RoleUser)
		_, _, err := NewClientService(db).CreateClient(ctx, target.ID, ClientInput{Name: "cli"})
		require.NoError(t, err)

		require.NoError(t, svc.DeleteUser(ctx, target.ID, admin))

		_, err = svc.GetUserByID(ctx, target.ID)
		assert.ErrorIs(t, err, ErrUserNotFound)

		clients, err := NewClientService(db).GetClientsByUserID(ctx, target.ID)
		require.NoError(t, err)
		assert.Empty(t, clients)
	})

	t.Run("non-admin is forbidden under admin policy", func(t *testing.T) {
		svc, db := newTestUserService(t, DeleteAdminOnly)
		caller := testutil.CreateUser(t, db, "Manager", "manager@example.com", "pw", models.RoleManager)
		target := testutil.CreateUser(t, db, "Target", "target@example.com", "pw", models.RoleUser)

		err := svc.DeleteUser(ctx, target.ID, caller)
		assert.ErrorIs(t, err, ErrForbidden)

		_, err = svc.GetUserByID(ctx, target.ID)
		assert.NoError(t, err)
	})

	t.Run("any caller may delete under authenticated policy", func(t *testing.T) {
		svc, db := newTestUserService(t, DeleteAnyAuthenticated)
		caller := testutil.CreateUser(t, db, "Plain", "plain@example.com", "pw", models.RoleUser)
		target := testutil.CreateUser(t, db, "Target", "target@example.com", "pw", models.RoleUser)

		assert.NoError(t, svc.DeleteUser(ctx, target.ID, caller))
	})

	t.Run("missing id is not found", func(t *testing.T) {
		svc, db := newTestUserService(t, DeleteAdminOnly)
		admin := testutil.CreateUser(t, db, "Admin", "admin@example.com", "pw", models.RoleAdmin)

		assert.ErrorIs(t, svc.DeleteUser(ctx, 999, admin), ErrUserNotFound)
	})

	t.Run("nil caller is unauthenticated", func(t *testing.T) {
		svc, _ := newTestUserService(t, DeleteAdminOnly)
		assert.ErrorIs(t, svc.DeleteUser(ctx, 1, nil), ErrUnauthenticated)
	})
}

func TestNewUserServiceDefaultsToAdminPolicy(t *testing.T) {
	svc, _ := newTestUserService(t, "")
	assert.Equal(t, DeleteAdminOnly, svc.DeletePolicy())
}
