package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jwalitptl/opd-desk/internal/model"
	"github.com/jwalitptl/opd-desk/internal/repository/repotest"
	"github.com/jwalitptl/opd-desk/pkg/auth"
	apperrors "github.com/jwalitptl/opd-desk/pkg/errors"
	"github.com/jwalitptl/opd-desk/pkg/security"
)

type fixture struct {
	svc   *Service
	store *repotest.Store
	jwt   auth.JWTService
	user  *model.User
	clock time.Time
}

func setup(t *testing.T) *fixture {
	t.Helper()
	store := repotest.NewStore()
	hasher := security.NewBcryptHasher(bcrypt.MinCost)
	hash, err := hasher.Hash("s3cret-pass")
	require.NoError(t, err)

	user := &model.User{
		ClinicID:     uuid.New(),
		Email:        "doc@clinic.test",
		FullName:     "Dr. Mehta",
		Role:         model.RoleDoctor,
		PasswordHash: hash,
		PrintTop:     model.DefaultPrintTop,
		PrintLeft:    model.DefaultPrintLeft,
		IsActive:     true,
	}
	require.NoError(t, store.Users().Create(context.Background(), user))

	jwtSvc := auth.NewJWTService("test-secret", "opd-desk", time.Hour)
	f := &fixture{store: store, jwt: jwtSvc, user: user, clock: time.Now()}
	f.svc = NewService(store.Users(), jwtSvc, hasher)
	f.svc.now = func() time.Time { return f.clock }
	return f
}

func TestLogin_Success(t *testing.T) {
	f := setup(t)

	resp, err := f.svc.Login(context.Background(), "DOC@clinic.test", "s3cret-pass")
	require.NoError(t, err)
	assert.Equal(t, "bearer", resp.TokenType)
	assert.Equal(t, f.user.ID, resp.User.ID)
	assert.Equal(t, model.DefaultPrintSettings(), resp.User.PrintSettings)
	assert.True(t, resp.User.HasPermission(model.PermManageClinicOptions))

	claims, err := f.jwt.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, f.user.ClinicID, claims.ClinicID)
	assert.Equal(t, "DOCTOR", claims.Role)
}

func TestLogin_UnknownEmail(t *testing.T) {
	f := setup(t)

	_, err := f.svc.Login(context.Background(), "nobody@clinic.test", "whatever1")
	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, 401, appErr.StatusCode())
}

func TestLogin_LockoutAfterFiveFailures(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	for i := 0; i < maxLoginAttempts; i++ {
		_, err := f.svc.Login(ctx, f.user.Email, "wrong-pass")
		require.ErrorIs(t, err, model.ErrInvalidCredentials)
	}

	_, err := f.svc.Login(ctx, f.user.Email, "s3cret-pass")
	assert.ErrorIs(t, err, model.ErrAccountLocked)

	f.clock = f.clock.Add(lockoutDuration + time.Second)
	_, err = f.svc.Login(ctx, f.user.Email, "s3cret-pass")
	assert.NoError(t, err)

	stored, err := f.store.Users().GetByID(ctx, f.user.ID)
	require.NoError(t, err)
	assert.Zero(t, stored.LoginAttempts)
	assert.NotNil(t, stored.LastLoginAt)
}

func TestLogin_Inactive(t *testing.T) {
	f := setup(t)
	inactive := &model.User{ClinicID: f.user.ClinicID, Email: "gone@clinic.test", PasswordHash: f.user.PasswordHash}
	require.NoError(t, f.store.Users().Create(context.Background(), inactive))

	_, err := f.svc.Login(context.Background(), "gone@clinic.test", "s3cret-pass")
	assert.ErrorIs(t, err, model.ErrAccountInactive)
}

func TestUpdatePrintSettings_Clamps(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	ps, err := f.svc.UpdatePrintSettings(ctx, f.user.ID, &model.PrintSettingsRequest{Top: 1000, Left: -5})
	require.NoError(t, err)
	assert.Equal(t, model.PrintSettings{Top: 400, Left: 0}, *ps)

	profile, err := f.svc.Me(ctx, f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PrintSettings{Top: 400, Left: 0}, profile.PrintSettings)
}

func TestUpdatePrintSettings_RequiresPermission(t *testing.T) {
	f := setup(t)
	assistant := &model.User{
		ClinicID: f.user.ClinicID,
		Email:    "desk@clinic.test",
		Role:     model.RoleAssistant,
		IsActive: true,
	}
	require.NoError(t, f.store.Users().Create(context.Background(), assistant))

	_, err := f.svc.UpdatePrintSettings(context.Background(), assistant.ID, &model.PrintSettingsRequest{Top: 100, Left: 10})
	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, 403, appErr.StatusCode())
}

func TestChangePassword(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	err := f.svc.ChangePassword(ctx, f.user.ID, &model.ChangePasswordRequest{CurrentPassword: "nope-nope", NewPassword: "another-pass"})
	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, 400, appErr.StatusCode())

	require.NoError(t, f.svc.ChangePassword(ctx, f.user.ID, &model.ChangePasswordRequest{CurrentPassword: "s3cret-pass", NewPassword: "another-pass"}))
	_, err = f.svc.Login(ctx, f.user.Email, "another-pass")
	assert.NoError(t, err)
}
