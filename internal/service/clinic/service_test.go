package clinic

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jwalitptl/opd-desk/internal/model"
	"github.com/jwalitptl/opd-desk/internal/repository/repotest"
	userservice "github.com/jwalitptl/opd-desk/internal/service/user"
	"github.com/jwalitptl/opd-desk/pkg/auth"
	apperrors "github.com/jwalitptl/opd-desk/pkg/errors"
	"github.com/jwalitptl/opd-desk/pkg/security"
)

type fixture struct {
	svc       *Service
	store     *repotest.Store
	clinic    *model.Clinic
	owner     *model.User
	assistant *model.User
	admin     *model.User
}

func setup(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := repotest.NewStore()
	accounts := userservice.NewService(store.Users(), store.Clinics(), security.NewBcryptHasher(bcrypt.MinCost))
	f := &fixture{svc: NewService(store.Clinics(), store.Users(), accounts), store: store}

	f.clinic = &model.Clinic{Name: "Sunrise Clinic"}
	require.NoError(t, store.Clinics().Create(ctx, f.clinic))
	f.owner = f.add(t, f.clinic.ID, "owner@clinic.test", model.RoleDoctor)
	f.owner.Specialization = "General Medicine"
	require.NoError(t, store.Users().Update(ctx, f.owner))
	f.assistant = f.add(t, f.clinic.ID, "desk@clinic.test", model.RoleAssistant)
	f.admin = f.add(t, f.clinic.ID, "admin@clinic.test", model.RoleAdmin)
	f.clinic.OwnerID = &f.owner.ID
	require.NoError(t, store.Clinics().Update(ctx, f.clinic))
	return f
}

func (f *fixture) add(t *testing.T, clinicID uuid.UUID, email string, role model.Role) *model.User {
	t.Helper()
	u := &model.User{ClinicID: clinicID, Email: email, FullName: email, Role: role, IsActive: true}
	require.NoError(t, f.store.Users().Create(context.Background(), u))
	return u
}

func as(u *model.User) auth.Principal {
	return auth.Principal{UserID: u.ID, ClinicID: u.ClinicID, Email: u.Email, Role: string(u.Role)}
}

func status(t *testing.T, err error) int {
	t.Helper()
	appErr, ok := apperrors.As(err)
	require.True(t, ok, "expected an AppError, got %v", err)
	return appErr.StatusCode()
}

func TestInfoAndUpdate(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	info, err := f.svc.Info(ctx, as(f.assistant))
	require.NoError(t, err)
	assert.False(t, info.IsOwner)
	assert.Equal(t, "Sunrise Clinic", info.Clinic.Name)

	_, err = f.svc.Update(ctx, as(f.assistant), &model.ClinicRequest{Name: "Mine"})
	assert.Equal(t, http.StatusForbidden, status(t, err))

	c, err := f.svc.Update(ctx, as(f.owner), &model.ClinicRequest{Name: " Sunrise Care ", Phone: "022-555"})
	require.NoError(t, err)
	assert.Equal(t, "Sunrise Care", c.Name)

	stored, err := f.store.Clinics().Get(ctx, f.clinic.ID)
	require.NoError(t, err)
	assert.Equal(t, "022-555", stored.Phone)
	assert.True(t, stored.IsOwner(f.owner.ID))
}

func TestDoctorProfile_AssistantSeesOwner(t *testing.T) {
	f := setup(t)

	p, err := f.svc.DoctorProfile(context.Background(), as(f.assistant))
	require.NoError(t, err)
	assert.Equal(t, f.owner.ID, p.ID)
	assert.Equal(t, "General Medicine", p.Specialization)
}

func TestUpdateDoctorProfile(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	reg := " MH-12345 "

	p, err := f.svc.UpdateDoctorProfile(ctx, as(f.owner), &model.UpdateDoctorProfileRequest{RegistrationNumber: &reg})
	require.NoError(t, err)
	assert.Equal(t, "MH-12345", p.RegistrationNumber)
	assert.Equal(t, "General Medicine", p.Specialization)

	_, err = f.svc.UpdateDoctorProfile(ctx, as(f.assistant), &model.UpdateDoctorProfileRequest{RegistrationNumber: &reg})
	assert.Equal(t, http.StatusForbidden, status(t, err))

	blank := " "
	_, err = f.svc.UpdateDoctorProfile(ctx, as(f.owner), &model.UpdateDoctorProfileRequest{FullName: &blank})
	assert.Equal(t, http.StatusBadRequest, status(t, err))
}

func TestAdmin_ManagedClinics(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	created, err := f.svc.AdminCreateClinic(ctx, f.admin.ID, &model.ClinicRequest{Name: "Northside"})
	require.NoError(t, err)

	clinics, err := f.svc.AdminClinics(ctx, f.admin.ID)
	require.NoError(t, err)
	require.Len(t, clinics, 1)
	assert.Equal(t, created.ID, clinics[0].ID)

	// The admin's home clinic is not one it manages.
	_, err = f.svc.AdminClinic(ctx, f.admin.ID, f.clinic.ID)
	assert.Equal(t, http.StatusNotFound, status(t, err))

	doctor, err := f.svc.AdminAddDoctor(ctx, f.admin.ID, created.ID, &model.CreateUserRequest{
		Email: "north@clinic.test", Password: "long-enough", FullName: "Dr. North", Role: model.RoleAssistant,
	})
	require.NoError(t, err)
	assert.Equal(t, model.RoleDoctor, doctor.Role)
	assert.True(t, doctor.IsOwner)

	detail, err := f.svc.AdminClinic(ctx, f.admin.ID, created.ID)
	require.NoError(t, err)
	require.Len(t, detail.Doctors, 1)
	assert.True(t, detail.Clinic.IsOwner(doctor.ID))

	stats, err := f.svc.AdminStats(ctx, f.admin.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AdminStats{TotalClinics: 1, TotalDoctors: 1}, *stats)

	assert.Equal(t, http.StatusConflict, status(t, f.svc.AdminDeleteClinic(ctx, f.admin.ID, created.ID)))

	require.NoError(t, f.svc.AdminRemoveDoctor(ctx, f.admin.ID, created.ID, doctor.ID))
	require.NoError(t, f.svc.AdminDeleteClinic(ctx, f.admin.ID, created.ID))

	clinics, err = f.svc.AdminClinics(ctx, f.admin.ID)
	require.NoError(t, err)
	assert.Empty(t, clinics)
}

func TestAdmin_RemoveDoctorChecksClinic(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	created, err := f.svc.AdminCreateClinic(ctx, f.admin.ID, &model.ClinicRequest{Name: "Northside"})
	require.NoError(t, err)

	err = f.svc.AdminRemoveDoctor(ctx, f.admin.ID, created.ID, f.owner.ID)
	assert.Equal(t, http.StatusNotFound, status(t, err))
}
