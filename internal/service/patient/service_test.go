package patient

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/opd-desk/internal/model"
	"github.com/jwalitptl/opd-desk/internal/repository/repotest"
	apperrors "github.com/jwalitptl/opd-desk/pkg/errors"
)

func TestCreatePatient_AssignsSequentialCodes(t *testing.T) {
	store := repotest.NewStore()
	svc := NewService(store.Patients(), store.Visits())
	ctx := context.Background()
	clinicID := uuid.New()

	first, err := svc.CreatePatient(ctx, clinicID, &model.CreatePatientRequest{
		FullName:  "  Asha Rao ",
		Age:       34,
		Gender:    model.GenderFemale,
		Phone:     "9876543210",
		Allergies: []string{"Penicillin", " ", "Penicillin", "Dust"},
	})
	require.NoError(t, err)
	assert.Equal(t, "PT-0001", first.PatientCode)
	assert.Equal(t, "Asha Rao", first.FullName)
	assert.Equal(t, []string{"Penicillin", "Dust"}, []string(first.Allergies))

	second, err := svc.CreatePatient(ctx, clinicID, &model.CreatePatientRequest{FullName: "Ravi", Gender: model.GenderMale, Phone: "1"})
	require.NoError(t, err)
	assert.Equal(t, "PT-0002", second.PatientCode)

	other, err := svc.CreatePatient(ctx, uuid.New(), &model.CreatePatientRequest{FullName: "Meera", Gender: model.GenderFemale, Phone: "2"})
	require.NoError(t, err)
	assert.Equal(t, "PT-0001", other.PatientCode)
}

func TestGetPatient_OtherClinicIsNotFound(t *testing.T) {
	store := repotest.NewStore()
	svc := NewService(store.Patients(), store.Visits())
	ctx := context.Background()

	p, err := svc.CreatePatient(ctx, uuid.New(), &model.CreatePatientRequest{FullName: "Asha", Gender: model.GenderFemale, Phone: "1"})
	require.NoError(t, err)

	_, err = svc.GetPatient(ctx, uuid.New(), p.ID)
	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, 404, appErr.StatusCode())
}

func TestUpdatePatient_PartialFields(t *testing.T) {
	store := repotest.NewStore()
	svc := NewService(store.Patients(), store.Visits())
	ctx := context.Background()
	clinicID := uuid.New()

	p, err := svc.CreatePatient(ctx, clinicID, &model.CreatePatientRequest{FullName: "Asha", Age: 30, Gender: model.GenderFemale, Phone: "1"})
	require.NoError(t, err)

	age := 31
	updated, err := svc.UpdatePatient(ctx, clinicID, p.ID, &model.UpdatePatientRequest{Age: &age})
	require.NoError(t, err)
	assert.Equal(t, 31, updated.Age)
	assert.Equal(t, "Asha", updated.FullName)
	assert.Equal(t, "PT-0001", updated.PatientCode)
}

func TestListPatients_Search(t *testing.T) {
	store := repotest.NewStore()
	svc := NewService(store.Patients(), store.Visits())
	ctx := context.Background()
	clinicID := uuid.New()

	for _, name := range []string{"Asha Rao", "Ravi Kumar", "Asha Menon"} {
		_, err := svc.CreatePatient(ctx, clinicID, &model.CreatePatientRequest{FullName: name, Gender: model.GenderOther, Phone: "1"})
		require.NoError(t, err)
	}

	found, err := svc.ListPatients(ctx, clinicID, model.PatientFilter{Search: "asha"})
	require.NoError(t, err)
	assert.Len(t, found, 2)
}
