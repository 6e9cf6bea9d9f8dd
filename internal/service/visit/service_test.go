package visit

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/opd-desk/internal/model"
	"github.com/jwalitptl/opd-desk/internal/repository/repotest"
	apperrors "github.com/jwalitptl/opd-desk/pkg/errors"
	"github.com/jwalitptl/opd-desk/pkg/metrics"
)

type fixture struct {
	svc      *Service
	store    *repotest.Store
	clinicID uuid.UUID
	doctorID uuid.UUID
	patient  *model.Patient
}

func setup(t *testing.T) *fixture {
	t.Helper()
	store := repotest.NewStore()
	f := &fixture{
		svc:      NewService(store.Visits(), store.Patients(), store.Appointments(), metrics.NewTestMetrics()),
		store:    store,
		clinicID: uuid.New(),
		doctorID: uuid.New(),
	}
	f.patient = &model.Patient{ClinicID: f.clinicID, FullName: "Asha Rao", Gender: model.GenderFemale, Phone: "1"}
	require.NoError(t, store.Patients().Create(context.Background(), f.patient))
	return f
}

func (f *fixture) appointment(t *testing.T, status model.AppointmentStatus) *model.Appointment {
	t.Helper()
	a := &model.Appointment{
		ClinicID:        f.clinicID,
		PatientID:       f.patient.ID,
		QueueDate:       model.Today(),
		Status:          status,
		ChiefComplaints: []string{"Fever"},
	}
	require.NoError(t, f.store.Appointments().Create(context.Background(), a))
	return a
}

func (f *fixture) input() *model.VisitInput {
	amount := 500.0
	return &model.VisitInput{
		PatientID: f.patient.ID,
		Symptoms:  []string{"Fever", " Fever", "Cough"},
		Diagnosis: []string{"Viral Fever"},
		Medicines: []model.MedicineLine{
			{MedicineName: "Paracetamol", Dosage: "1 tablet", Duration: "3 days"},
			{MedicineName: "  "},
		},
		Amount: &amount,
	}
}

func statusOf(t *testing.T, err error) int {
	t.Helper()
	appErr, ok := apperrors.As(err)
	require.True(t, ok, "expected AppError, got %v", err)
	return appErr.StatusCode()
}

func TestCreate_Fresh(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	visit, err := f.svc.Create(ctx, f.clinicID, f.doctorID, f.input())
	require.NoError(t, err)
	assert.Equal(t, 1, visit.VisitNumber)
	assert.True(t, visit.VisitDate.Equal(model.Today()))
	assert.Equal(t, []string{"Fever", "Cough"}, []string(visit.Symptoms))
	require.Len(t, visit.Medicines, 1)
	assert.Equal(t, "Paracetamol", visit.Medicines[0].MedicineName)
	assert.Equal(t, f.doctorID, visit.DoctorID)

	second, err := f.svc.Create(ctx, f.clinicID, f.doctorID, f.input())
	require.NoError(t, err)
	assert.Equal(t, 2, second.VisitNumber)
}

func TestCreate_RequiresSymptomsAndDiagnosis(t *testing.T) {
	f := setup(t)
	in := f.input()
	in.Symptoms = []string{" "}
	in.Diagnosis = nil

	_, err := f.svc.Create(context.Background(), f.clinicID, f.doctorID, in)
	assert.Equal(t, 400, statusOf(t, err))
	assert.True(t, apperrors.IsValidation(err))

	visits, err := f.store.Visits().List(context.Background(), f.clinicID, model.VisitFilter{})
	require.NoError(t, err)
	assert.Empty(t, visits)
}

func TestCreate_CompletesAppointment(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	a := f.appointment(t, model.AppointmentStatusInProgress)

	in := f.input()
	in.AppointmentID = &a.ID
	visit, err := f.svc.Create(ctx, f.clinicID, f.doctorID, in)
	require.NoError(t, err)
	assert.Equal(t, a.ID, *visit.AppointmentID)

	stored, err := f.store.Appointments().Get(ctx, f.clinicID, a.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusCompleted, stored.Status)

	again := f.input()
	again.AppointmentID = &a.ID
	_, err = f.svc.Create(ctx, f.clinicID, f.doctorID, again)
	assert.Equal(t, 409, statusOf(t, err))
}

func TestCreate_AppointmentOfAnotherPatient(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	a := f.appointment(t, model.AppointmentStatusWaiting)

	other := &model.Patient{ClinicID: f.clinicID, FullName: "Ravi", Gender: model.GenderMale, Phone: "2"}
	require.NoError(t, f.store.Patients().Create(ctx, other))

	in := f.input()
	in.PatientID = other.ID
	in.AppointmentID = &a.ID
	_, err := f.svc.Create(ctx, f.clinicID, f.doctorID, in)
	assert.Equal(t, 400, statusOf(t, err))
}

func TestUpdate_ReplacesAggregate(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	visit, err := f.svc.Create(ctx, f.clinicID, f.doctorID, f.input())
	require.NoError(t, err)

	pulse := 90
	updated, err := f.svc.Update(ctx, f.clinicID, visit.ID, &model.VisitInput{
		PatientID: uuid.New(),
		Symptoms:  []string{"Headache"},
		Diagnosis: []string{"Migraine"},
		Vitals:    model.Vitals{Pulse: &pulse},
		Medicines: []model.MedicineLine{{MedicineName: "Sumatriptan", Dosage: "SOS"}},
	})
	require.NoError(t, err)
	assert.Equal(t, f.patient.ID, updated.PatientID)
	assert.Equal(t, 1, updated.VisitNumber)

	stored, err := f.svc.Get(ctx, f.clinicID, visit.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Headache"}, []string(stored.Symptoms))
	assert.Nil(t, stored.Amount)
	require.Len(t, stored.Medicines, 1)
	assert.Equal(t, "Sumatriptan", stored.Medicines[0].MedicineName)
	assert.Equal(t, 90, *stored.Vitals.Pulse)
}

func TestCollections(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := f.svc.Create(ctx, f.clinicID, f.doctorID, f.input())
		require.NoError(t, err)
	}

	today := model.Today()
	summary, err := f.svc.Collections(ctx, f.clinicID, today.AddDays(-7), today)
	require.NoError(t, err)
	assert.Equal(t, 1500.0, summary.TotalAmount)
	assert.Equal(t, 3, summary.VisitCount)
	require.Len(t, summary.Days, 1)

	_, err = f.svc.Collections(ctx, f.clinicID, today, today.AddDays(-1))
	assert.Equal(t, 400, statusOf(t, err))
}

func TestPrintData(t *testing.T) {
	f := setup(t)
	visit, err := f.svc.Create(context.Background(), f.clinicID, f.doctorID, f.input())
	require.NoError(t, err)

	v, p, err := f.svc.PrintData(context.Background(), f.clinicID, visit.ID)
	require.NoError(t, err)
	assert.Equal(t, visit.ID, v.ID)
	assert.Equal(t, "Asha Rao", p.FullName)
}
