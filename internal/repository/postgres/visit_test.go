package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/opd-desk/internal/model"
	"github.com/jwalitptl/opd-desk/internal/repository"
)

func newVisit(appointmentID *uuid.UUID) *model.Visit {
	return &model.Visit{
		ClinicID:      uuid.New(),
		PatientID:     uuid.New(),
		AppointmentID: appointmentID,
		DoctorID:      uuid.New(),
		VisitDate:     model.NewDate(2024, time.May, 1),
		Symptoms:      []string{"Fever"},
		Diagnosis:     []string{"Viral fever"},
		Medicines: []model.VisitMedicine{
			{MedicineName: "Paracetamol", Dosage: "1-0-1", Duration: "5 days"},
			{MedicineName: "ORS", Dosage: "SOS", Duration: "3 days"},
		},
	}
}

func TestVisitRepository_Create_CompletesAppointment(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewVisitRepository(db)

	appointmentID := uuid.New()
	visit := newVisit(&appointmentID)

	mock.ExpectBegin()
	mock.ExpectExec("SELECT pg_advisory_xact_lock").
		WithArgs("visit-number:" + visit.PatientID.String()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT COALESCE\(MAX\(visit_number\), 0\) FROM visits`).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(2))
	mock.ExpectExec("INSERT INTO visits").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO visit_medicines").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO visit_medicines").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE appointments SET status").
		WithArgs("COMPLETED", sqlmock.AnyArg(), appointmentID, visit.ClinicID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Create(context.Background(), visit))
	assert.Equal(t, 3, visit.VisitNumber)
	assert.Equal(t, 1, visit.Medicines[0].Position)
	assert.Equal(t, 2, visit.Medicines[1].Position)
	assert.Equal(t, visit.ID, visit.Medicines[1].VisitID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVisitRepository_Create_MissingAppointmentRollsBack(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewVisitRepository(db)

	appointmentID := uuid.New()
	visit := newVisit(&appointmentID)
	visit.Medicines = nil

	mock.ExpectBegin()
	mock.ExpectExec("SELECT pg_advisory_xact_lock").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT COALESCE").WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(0))
	mock.ExpectExec("INSERT INTO visits").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE appointments SET status").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.Create(context.Background(), visit)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVisitRepository_Create_WithoutAppointment(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewVisitRepository(db)

	visit := newVisit(nil)
	visit.Medicines = visit.Medicines[:1]

	mock.ExpectBegin()
	mock.ExpectExec("SELECT pg_advisory_xact_lock").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT COALESCE").WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(0))
	mock.ExpectExec("INSERT INTO visits").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO visit_medicines").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Create(context.Background(), visit))
	assert.Equal(t, 1, visit.VisitNumber)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVisitRepository_Update_ReplacesMedicines(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewVisitRepository(db)

	visit := newVisit(nil)
	visit.ID = uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE visits").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM visit_medicines").WithArgs(visit.ID).WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec("INSERT INTO visit_medicines").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO visit_medicines").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Update(context.Background(), visit))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVisitRepository_Update_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewVisitRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE visits").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.Update(context.Background(), newVisit(nil))
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestVisitRepository_GetByAppointment_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewVisitRepository(db)

	mock.ExpectQuery("FROM visits v WHERE v.appointment_id").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetByAppointment(context.Background(), uuid.New(), uuid.New())
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
