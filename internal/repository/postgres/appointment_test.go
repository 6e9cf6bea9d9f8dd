package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/opd-desk/internal/model"
	"github.com/jwalitptl/opd-desk/internal/repository"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return sqlx.NewDb(db, "postgres"), mock
}

var appointmentRowColumns = []string{
	"id", "clinic_id", "patient_id", "queue_date", "queue_number", "status",
	"chief_complaints", "created_by", "created_at", "updated_at",
	"patient.id", "patient.patient_code", "patient.full_name", "patient.age",
	"patient.gender", "patient.phone",
}

func addAppointmentRow(rows *sqlmock.Rows, id, clinicID uuid.UUID, number int, status string) *sqlmock.Rows {
	patientID := uuid.New()
	now := time.Now()
	return rows.AddRow(
		id.String(), clinicID.String(), patientID.String(),
		time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), number, status,
		"{Fever}", uuid.NewString(), now, now,
		patientID.String(), "PT-0001", "Asha Rao", 34, "FEMALE", "9876543210",
	)
}

func TestAppointmentRepository_Create_AssignsNextNumber(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAppointmentRepository(db)

	clinicID := uuid.New()
	date := model.NewDate(2024, time.May, 1)
	apt := &model.Appointment{
		ClinicID:        clinicID,
		PatientID:       uuid.New(),
		QueueDate:       date,
		Status:          model.AppointmentStatusWaiting,
		ChiefComplaints: []string{"Fever"},
		CreatedBy:       uuid.New(),
	}

	mock.ExpectBegin()
	mock.ExpectExec("SELECT pg_advisory_xact_lock").
		WithArgs("queue:" + clinicID.String() + ":2024-05-01").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT COALESCE\(MAX\(queue_number\), 0\) FROM appointments`).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(3))
	mock.ExpectExec("INSERT INTO appointments").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Create(context.Background(), apt))
	assert.Equal(t, 4, apt.QueueNumber)
	assert.NotEqual(t, uuid.Nil, apt.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppointmentRepository_Create_FirstOfDay(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAppointmentRepository(db)

	apt := &model.Appointment{ClinicID: uuid.New(), QueueDate: model.NewDate(2024, time.May, 1)}

	mock.ExpectBegin()
	mock.ExpectExec("SELECT pg_advisory_xact_lock").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT COALESCE").WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(0))
	mock.ExpectExec("INSERT INTO appointments").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Create(context.Background(), apt))
	assert.Equal(t, 1, apt.QueueNumber)
}

func expectLockSlot(mock sqlmock.Sqlmock, number int, status string) {
	slot := func() *sqlmock.Rows {
		return sqlmock.NewRows([]string{"queue_date", "queue_number", "status"}).
			AddRow(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), number, status)
	}
	mock.ExpectQuery("SELECT queue_date, queue_number, status FROM appointments").WillReturnRows(slot())
	mock.ExpectExec("SELECT pg_advisory_xact_lock").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT queue_date, queue_number, status FROM appointments").WillReturnRows(slot())
}

func TestAppointmentRepository_Move_Up(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAppointmentRepository(db)

	clinicID, id := uuid.New(), uuid.New()

	mock.ExpectBegin()
	expectLockSlot(mock, 3, "WAITING")
	mock.ExpectQuery("SELECT COUNT").WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectExec(`SET queue_number = queue_number \+ 1`).
		WithArgs(sqlmock.AnyArg(), clinicID, "2024-05-01", 2, 3).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`SET queue_number = \$1`).
		WithArgs(2, sqlmock.AnyArg(), id).
		WillReturnResult(sqlmock.NewResult(0, 1))

	rows := sqlmock.NewRows(appointmentRowColumns)
	addAppointmentRow(rows, uuid.New(), clinicID, 1, "IN_PROGRESS")
	addAppointmentRow(rows, id, clinicID, 2, "WAITING")
	addAppointmentRow(rows, uuid.New(), clinicID, 3, "WAITING")
	mock.ExpectQuery("FROM appointments a").WillReturnRows(rows)
	mock.ExpectCommit()

	queue, err := repo.Move(context.Background(), clinicID, id, 2)
	require.NoError(t, err)
	require.Len(t, queue, 3)
	for i, a := range queue {
		assert.Equal(t, i+1, a.QueueNumber)
	}
	assert.Equal(t, id, queue[1].ID)
	assert.Equal(t, "Asha Rao", queue[1].Patient.FullName)
	assert.Equal(t, []string{"Fever"}, []string(queue[1].ChiefComplaints))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppointmentRepository_Move_OutOfRange(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAppointmentRepository(db)

	mock.ExpectBegin()
	expectLockSlot(mock, 1, "WAITING")
	mock.ExpectQuery("SELECT COUNT").WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectRollback()

	_, err := repo.Move(context.Background(), uuid.New(), uuid.New(), 3)
	assert.ErrorIs(t, err, repository.ErrOutOfRange)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppointmentRepository_Move_NotWaiting(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAppointmentRepository(db)

	mock.ExpectBegin()
	expectLockSlot(mock, 2, "IN_PROGRESS")
	mock.ExpectRollback()

	_, err := repo.Move(context.Background(), uuid.New(), uuid.New(), 1)
	assert.ErrorIs(t, err, repository.ErrNotReorderable)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppointmentRepository_Delete_ClosesGap(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAppointmentRepository(db)

	clinicID, id := uuid.New(), uuid.New()

	mock.ExpectBegin()
	expectLockSlot(mock, 2, "WAITING")
	mock.ExpectExec("DELETE FROM appointments").WithArgs(id).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`SET queue_number = queue_number - 1`).
		WithArgs(sqlmock.AnyArg(), clinicID, "2024-05-01", 2).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	require.NoError(t, repo.Delete(context.Background(), clinicID, id))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppointmentRepository_UpdateStatus_Stale(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAppointmentRepository(db)

	mock.ExpectExec("UPDATE appointments SET status").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(context.Background(), uuid.New(), uuid.New(),
		model.AppointmentStatusWaiting, model.AppointmentStatusInProgress)
	assert.ErrorIs(t, err, repository.ErrStaleState)
}

func TestAppointmentRepository_Stats(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAppointmentRepository(db)

	mock.ExpectQuery("FILTER").
		WillReturnRows(sqlmock.NewRows([]string{"total", "waiting", "in_progress", "completed"}).AddRow(5, 2, 1, 2))

	stats, err := repo.Stats(context.Background(), uuid.New(), model.NewDate(2024, time.May, 1))
	require.NoError(t, err)
	assert.Equal(t, model.QueueStats{Total: 5, Waiting: 2, InProgress: 1, Completed: 2}, *stats)
}
