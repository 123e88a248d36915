package auth_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/hugh/leadboard/internal/apperr"
	"github.com/hugh/leadboard/internal/auth"
	"github.com/hugh/leadboard/internal/database/models"
	"github.com/hugh/leadboard/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestService_Login(t *testing.T) {
	setup := testutil.NewTestContext(t)
	svc := auth.NewService(setup.DB, setup.JWTService)
	ctx := testutil.TestContext(t)

	t.Run("valid credentials in own tenant", func(t *testing.T) {
		resp, err := svc.Login(ctx, auth.LoginInput{
			Email:    setup.Admin.Email,
			Password: testutil.TestPassword,
			TenantID: setup.Tenant.ID,
		})
		require.NoError(t, err)
		assert.NotEmpty(t, resp.Token)
		assert.Equal(t, setup.Admin.ID, resp.User.ID)

		p, err := setup.JWTService.ValidateSystemToken(resp.Token)
		require.NoError(t, err)
		assert.Equal(t, setup.Tenant.ID, p.TenantID)
	})

	t.Run("email is case insensitive", func(t *testing.T) {
		_, err := svc.Login(ctx, auth.LoginInput{
			Email:    "  " + setup.Admin.Email,
			Password: testutil.TestPassword,
			TenantID: setup.Tenant.ID,
		})
		require.NoError(t, err)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.Login(ctx, auth.LoginInput{
			Email:    setup.Admin.Email,
			Password: "wrong-password",
			TenantID: setup.Tenant.ID,
		})
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	})

	t.Run("unknown email uses same message", func(t *testing.T) {
		_, err := svc.Login(ctx, auth.LoginInput{
			Email:    "nobody@example.com",
			Password: testutil.TestPassword,
			TenantID: setup.Tenant.ID,
		})
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
		msg, _ := apperr.Public(err)
		assert.Equal(t, "invalid credentials", msg)
	})

	t.Run("valid credentials against another tenant are forbidden", func(t *testing.T) {
		other := testutil.CreateTestTenant(t, setup.DB)

		_, err := svc.Login(ctx, auth.LoginInput{
			Email:    setup.Admin.Email,
			Password: testutil.TestPassword,
			TenantID: other.ID,
		})
		assert.ErrorIs(t, err, auth.ErrWrongTenant)
		assert.Equal(t, apperr.KindAuthorization, apperr.KindOf(err))
	})

	t.Run("super admin may log in from any tenant", func(t *testing.T) {
		su := testutil.CreateTestUser(t, setup.DB, nil, models.RoleSuperAdmin, nil)

		resp, err := svc.Login(ctx, auth.LoginInput{
			Email:    su.Email,
			Password: testutil.TestPassword,
			TenantID: setup.Tenant.ID,
		})
		require.NoError(t, err)
		assert.True(t, resp.User.IsSuperAdmin())
	})

	t.Run("inactive user", func(t *testing.T) {
		user := testutil.CreateTestUser(t, setup.DB, setup.Tenant, models.RoleAdmin, nil)
		require.NoError(t, setup.DB.Model(user).Update("is_active", false).Error)

		_, err := svc.Login(ctx, auth.LoginInput{
			Email:    user.Email,
			Password: testutil.TestPassword,
			TenantID: setup.Tenant.ID,
		})
		assert.ErrorIs(t, err, auth.ErrInactiveAccount)
	})

	t.Run("same email in two tenants picks the resolved tenant", func(t *testing.T) {
		other := testutil.CreateTestTenant(t, setup.DB)
		twin := testutil.CreateTestUser(t, setup.DB, other, models.RoleAdmin, nil)
		require.NoError(t, setup.DB.Model(twin).Update("email", setup.Admin.Email).Error)

		resp, err := svc.Login(ctx, auth.LoginInput{
			Email:    setup.Admin.Email,
			Password: testutil.TestPassword,
			TenantID: other.ID,
		})
		require.NoError(t, err)
		assert.Equal(t, twin.ID, resp.User.ID)
	})
}

func TestService_LoginAttendant(t *testing.T) {
	setup := testutil.NewTestContext(t)
	svc := auth.NewService(setup.DB, setup.JWTService)
	ctx := testutil.TestContext(t)

	attendant := testutil.CreateTestAttendant(t, setup.DB, setup.Tenant.ID, nil, &setup.Admin.ID)

	t.Run("valid credentials", func(t *testing.T) {
		resp, err := svc.LoginAttendant(ctx, auth.LoginInput{
			Email:    attendant.Email,
			Password: testutil.TestPassword,
			TenantID: setup.Tenant.ID,
		})
		require.NoError(t, err)

		p, err := setup.JWTService.ValidateAttendantToken(resp.Token)
		require.NoError(t, err)
		assert.Equal(t, attendant.ID, p.AttendantID)
	})

	t.Run("login disabled", func(t *testing.T) {
		blocked := testutil.CreateTestAttendant(t, setup.DB, setup.Tenant.ID, nil, &setup.Admin.ID)
		require.NoError(t, setup.DB.Model(blocked).Update("login_enabled", false).Error)

		_, err := svc.LoginAttendant(ctx, auth.LoginInput{
			Email:    blocked.Email,
			Password: testutil.TestPassword,
			TenantID: setup.Tenant.ID,
		})
		assert.ErrorIs(t, err, auth.ErrLoginDisabled)
	})

	t.Run("wrong tenant", func(t *testing.T) {
		_, err := svc.LoginAttendant(ctx, auth.LoginInput{
			Email:    attendant.Email,
			Password: testutil.TestPassword,
			TenantID: uuid.New(),
		})
		assert.ErrorIs(t, err, auth.ErrWrongTenant)
	})

	t.Run("unknown attendant", func(t *testing.T) {
		_, err := svc.LoginAttendant(ctx, auth.LoginInput{
			Email:    "ghost@example.com",
			Password: testutil.TestPassword,
		})
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	})
}

func TestService_GetByID(t *testing.T) {
	setup := testutil.NewTestContext(t)
	svc := auth.NewService(setup.DB, setup.JWTService)
	ctx := testutil.TestContext(t)

	user, err := svc.GetUserByID(ctx, setup.Admin.ID)
	require.NoError(t, err)
	require.NotNil(t, user.Tenant)
	assert.Equal(t, setup.Tenant.ID, user.Tenant.ID)

	_, err = svc.GetUserByID(ctx, uuid.New())
	assert.ErrorIs(t, err, auth.ErrUserNotFound)

	_, err = svc.GetAttendantByID(ctx, uuid.New())
	assert.ErrorIs(t, err, auth.ErrAttendantNotFound)
}

func TestPassword(t *testing.T) {
	hash, err := auth.HashPassword("s3cret-pass")
	require.NoError(t, err)
	assert.True(t, auth.CheckPassword("s3cret-pass", hash))
	assert.False(t, auth.CheckPassword("other", hash))
	assert.False(t, auth.CheckPassword("s3cret-pass", "not-a-hash"))
}
