package permission

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/opd-desk/internal/model"
	"github.com/jwalitptl/opd-desk/internal/repository/repotest"
	"github.com/jwalitptl/opd-desk/pkg/auth"
	apperrors "github.com/jwalitptl/opd-desk/pkg/errors"
)

type fixture struct {
	svc       *Service
	store     *repotest.Store
	clinic    *model.Clinic
	owner     *model.User
	assistant *model.User
}

func setup(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := repotest.NewStore()
	f := &fixture{svc: NewService(store.Users(), store.Clinics()), store: store}
	f.clinic = &model.Clinic{Name: "Sunrise Clinic"}
	require.NoError(t, store.Clinics().Create(ctx, f.clinic))
	f.owner = f.add(t, "owner@clinic.test", model.RoleDoctor)
	f.assistant = f.add(t, "desk@clinic.test", model.RoleAssistant)
	f.clinic.OwnerID = &f.owner.ID
	require.NoError(t, store.Clinics().Update(ctx, f.clinic))
	return f
}

func (f *fixture) add(t *testing.T, email string, role model.Role) *model.User {
	t.Helper()
	u := &model.User{ClinicID: f.clinic.ID, Email: email, FullName: email, Role: role, IsActive: true}
	require.NoError(t, f.store.Users().Create(context.Background(), u))
	return u
}

func as(u *model.User) auth.Principal {
	return auth.Principal{UserID: u.ID, ClinicID: u.ClinicID, Email: u.Email, Role: string(u.Role)}
}

func TestNormalize(t *testing.T) {
	got, err := Normalize([]string{model.PermViewInvoices, model.PermManageOPD, model.PermViewInvoices})
	require.NoError(t, err)
	assert.Equal(t, []string{model.PermManageOPD, model.PermViewInvoices}, got)

	got, err = Normalize(nil)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NotNil(t, got)

	_, err = Normalize([]string{"can_fly"})
	var verrs apperrors.ValidationErrors
	require.True(t, errors.As(err, &verrs))
	assert.NotNil(t, verrs.Field("permissions"))
}

func TestUpdateAndReset(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	m, err := f.svc.Update(ctx, as(f.owner), f.assistant.ID, []string{model.PermManageOPD})
	require.NoError(t, err)
	assert.True(t, m.CustomPermissions)
	assert.Equal(t, []string{model.PermManageOPD}, m.Permissions)

	stored, err := f.store.Users().GetByID(ctx, f.assistant.ID)
	require.NoError(t, err)
	assert.False(t, stored.HasPermission(model.PermManagePatients))

	m, err = f.svc.Reset(ctx, as(f.owner), f.assistant.ID)
	require.NoError(t, err)
	assert.False(t, m.CustomPermissions)
	assert.Equal(t, model.DefaultPermissions(model.RoleAssistant), m.Permissions)

	stored, err = f.store.Users().GetByID(ctx, f.assistant.ID)
	require.NoError(t, err)
	assert.True(t, stored.HasPermission(model.PermManagePatients))
}

func TestUpdate_EmptyRevokesAll(t *testing.T) {
	f := setup(t)

	m, err := f.svc.Update(context.Background(), as(f.owner), f.assistant.ID, []string{})
	require.NoError(t, err)
	assert.True(t, m.CustomPermissions)
	assert.Empty(t, m.Permissions)
}

func TestOwnerOnly(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	doctor := f.add(t, "second@clinic.test", model.RoleDoctor)

	_, err := f.svc.List(ctx, as(doctor))
	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusForbidden, appErr.StatusCode())

	_, err = f.svc.Update(ctx, as(f.owner), f.owner.ID, []string{})
	appErr, ok = apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusForbidden, appErr.StatusCode())

	members, err := f.svc.List(ctx, as(f.owner))
	require.NoError(t, err)
	assert.Len(t, members, 3)
}

func TestUpdate_UnknownPermission(t *testing.T) {
	f := setup(t)

	_, err := f.svc.Update(context.Background(), as(f.owner), f.assistant.ID, []string{"can_fly"})
	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, appErr.StatusCode())
}
