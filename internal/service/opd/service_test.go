package opd

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
	userID   uuid.UUID
}

func setup(t *testing.T) *fixture {
	t.Helper()
	store := repotest.NewStore()
	m := metrics.NewTestMetrics()
	return &fixture{
		svc:      NewService(store.Appointments(), store.Patients(), store.Visits(), m),
		store:    store,
		clinicID: uuid.New(),
		userID:   uuid.New(),
	}
}

func (f *fixture) patient(t *testing.T, name string) *model.Patient {
	t.Helper()
	p := &model.Patient{ClinicID: f.clinicID, FullName: name, Gender: model.GenderOther, Phone: "1"}
	require.NoError(t, f.store.Patients().Create(context.Background(), p))
	return p
}

func (f *fixture) enqueue(t *testing.T, names ...string) []*model.Appointment {
	t.Helper()
	var out []*model.Appointment
	for _, name := range names {
		a, err := f.svc.AddToQueue(context.Background(), f.clinicID, f.userID, &model.CreateAppointmentRequest{
			PatientID:       f.patient(t, name).ID,
			ChiefComplaints: []string{"Fever"},
		})
		require.NoError(t, err)
		out = append(out, a)
	}
	return out
}

func assertDense(t *testing.T, queue []*model.Appointment) {
	t.Helper()
	for i, a := range queue {
		assert.Equal(t, i+1, a.QueueNumber, "position %d", i)
	}
}

func TestAddToQueue_FirstEntry(t *testing.T) {
	f := setup(t)
	p := f.patient(t, "Asha")

	a, err := f.svc.AddToQueue(context.Background(), f.clinicID, f.userID, &model.CreateAppointmentRequest{
		PatientID:       p.ID,
		ChiefComplaints: []string{" Fever ", "", "Fever", "Cough"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, a.QueueNumber)
	assert.Equal(t, model.AppointmentStatusWaiting, a.Status)
	assert.Equal(t, []string{"Fever", "Cough"}, []string(a.ChiefComplaints))
	assert.Equal(t, "Asha", a.Patient.FullName)
	assert.True(t, a.QueueDate.Equal(model.Today()))
}

func TestAddToQueue_Validation(t *testing.T) {
	f := setup(t)
	p := f.patient(t, "Asha")

	_, err := f.svc.AddToQueue(context.Background(), f.clinicID, f.userID, &model.CreateAppointmentRequest{
		PatientID:       p.ID,
		ChiefComplaints: []string{"  ", ""},
	})
	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, 400, appErr.StatusCode())

	_, err = f.svc.AddToQueue(context.Background(), f.clinicID, f.userID, &model.CreateAppointmentRequest{
		PatientID:       uuid.New(),
		ChiefComplaints: []string{"Fever"},
	})
	appErr, ok = apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, 404, appErr.StatusCode())
}

func TestUpdateStatus_Graph(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	a := f.enqueue(t, "Asha")[0]

	_, err := f.svc.UpdateStatus(ctx, f.clinicID, a.ID, model.AppointmentStatusCompleted)
	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, 400, appErr.StatusCode())

	updated, err := f.svc.UpdateStatus(ctx, f.clinicID, a.ID, model.AppointmentStatusInProgress)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusInProgress, updated.Status)

	same, err := f.svc.UpdateStatus(ctx, f.clinicID, a.ID, model.AppointmentStatusInProgress)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusInProgress, same.Status)

	back, err := f.svc.UpdateStatus(ctx, f.clinicID, a.ID, model.AppointmentStatusWaiting)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusWaiting, back.Status)
}

func TestUpdateStatus_CompletedIsTerminal(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	a := f.enqueue(t, "Asha")[0]
	require.NoError(t, f.store.Appointments().UpdateStatus(ctx, f.clinicID, a.ID,
		model.AppointmentStatusWaiting, model.AppointmentStatusCompleted))

	_, err := f.svc.UpdateStatus(ctx, f.clinicID, a.ID, model.AppointmentStatusWaiting)
	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, 400, appErr.StatusCode())
}

func TestMove_KeepsNumbersDense(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	entries := f.enqueue(t, "A", "B", "C", "D")

	queue, err := f.svc.Move(ctx, f.clinicID, entries[3].ID, 2)
	require.NoError(t, err)
	assertDense(t, queue)
	names := []string{}
	for _, a := range queue {
		names = append(names, a.Patient.FullName)
	}
	assert.Equal(t, []string{"A", "D", "B", "C"}, names)

	queue, err = f.svc.Move(ctx, f.clinicID, entries[0].ID, 4)
	require.NoError(t, err)
	assertDense(t, queue)
	assert.Equal(t, entries[0].ID, queue[3].ID)
}

func TestMove_Rules(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	entries := f.enqueue(t, "A", "B")

	_, err := f.svc.Move(ctx, f.clinicID, entries[0].ID, 3)
	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, 400, appErr.StatusCode())

	_, err = f.svc.UpdateStatus(ctx, f.clinicID, entries[1].ID, model.AppointmentStatusInProgress)
	require.NoError(t, err)
	_, err = f.svc.Move(ctx, f.clinicID, entries[1].ID, 1)
	appErr, ok = apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, 409, appErr.StatusCode())
}

func TestDelete_ClosesGap(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	entries := f.enqueue(t, "A", "B", "C")

	require.NoError(t, f.svc.Delete(ctx, f.clinicID, entries[1].ID))

	queue, err := f.svc.Queue(ctx, f.clinicID, model.Today())
	require.NoError(t, err)
	require.Len(t, queue, 2)
	assertDense(t, queue)

	stats, err := f.svc.Stats(ctx, f.clinicID, model.Today())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 2, stats.Waiting)
}

func TestVisitForAppointment_NoneYet(t *testing.T) {
	f := setup(t)
	a := f.enqueue(t, "A")[0]

	visit, err := f.svc.VisitForAppointment(context.Background(), f.clinicID, a.ID)
	require.NoError(t, err)
	assert.Nil(t, visit)

	_, err = f.svc.VisitForAppointment(context.Background(), f.clinicID, uuid.New())
	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, 404, appErr.StatusCode())
}
