package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/opd-desk/internal/model"
	"github.com/jwalitptl/opd-desk/internal/repository"
)

func newInvoice() *model.Invoice {
	in := &model.InvoiceInput{
		PatientID: uuid.New(),
		Items: []model.InvoiceItemInput{
			{Description: "Consultation", Amount: 300, Quantity: 1},
			{Description: "Dressing", Amount: 50, Quantity: 2},
		},
	}
	inv := in.Build()
	inv.ClinicID = uuid.New()
	inv.CreatedBy = uuid.New()
	return inv
}

func TestInvoiceRepository_Create_NumbersPerClinic(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewInvoiceRepository(db)
	inv := newInvoice()

	mock.ExpectBegin()
	mock.ExpectExec("SELECT pg_advisory_xact_lock").
		WithArgs("invoice-number:" + inv.ClinicID.String()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT COALESCE\(MAX\(CAST\(substring\(invoice_number FROM 5\) AS INTEGER\)\), 0\)`).
		WithArgs(inv.ClinicID).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(41))
	mock.ExpectExec("INSERT INTO invoices").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO invoice_items").
		WithArgs(inv.Items[0].ID, inv.ID, 1, "Consultation", 300.0, 1).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO invoice_items").
		WithArgs(inv.Items[1].ID, inv.ID, 2, "Dressing", 50.0, 2).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Create(context.Background(), inv))
	assert.Equal(t, "INV-0042", inv.InvoiceNumber)
	assert.Equal(t, 400.0, inv.TotalAmount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInvoiceRepository_Create_DuplicateVisit(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewInvoiceRepository(db)
	inv := newInvoice()
	visitID := uuid.New()
	inv.VisitID = &visitID

	mock.ExpectBegin()
	mock.ExpectExec("SELECT pg_advisory_xact_lock").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT COALESCE").WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(0))
	mock.ExpectExec("INSERT INTO invoices").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "invoices_visit_key"})
	mock.ExpectRollback()

	err := repo.Create(context.Background(), inv)
	assert.ErrorIs(t, err, repository.ErrDuplicate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

var invoiceRowColumns = []string{
	"id", "clinic_id", "invoice_number", "patient_id", "visit_id", "total_amount",
	"paid_amount", "payment_status", "payment_mode", "payment_date", "notes",
	"created_by", "created_at", "updated_at",
	"patient.id", "patient.patient_code", "patient.full_name", "patient.age",
	"patient.gender", "patient.phone",
}

func TestInvoiceRepository_Get_LoadsItems(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewInvoiceRepository(db)
	clinicID, id, patientID := uuid.New(), uuid.New(), uuid.New()
	now := time.Now()

	mock.ExpectQuery("SELECT .* FROM invoices i JOIN patients p").
		WithArgs(id, clinicID).
		WillReturnRows(sqlmock.NewRows(invoiceRowColumns).AddRow(
			id.String(), clinicID.String(), "INV-0007", patientID.String(), nil, []byte("350.00"),
			[]byte("100.00"), "PARTIAL", "UPI", now, "",
			uuid.NewString(), now, now,
			patientID.String(), "PT-0003", "Asha Rao", 34, "FEMALE", "9000000000",
		))
	mock.ExpectQuery("FROM invoice_items WHERE invoice_id").
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"id", "invoice_id", "position", "description", "amount", "quantity"}).
			AddRow(uuid.NewString(), id.String(), 1, "Consultation", []byte("350.00"), 1))

	inv, err := repo.Get(context.Background(), clinicID, id)
	require.NoError(t, err)
	assert.Equal(t, "INV-0007", inv.InvoiceNumber)
	assert.Equal(t, 250.0, inv.Balance())
	assert.Equal(t, model.PaymentPartial, inv.PaymentStatus)
	assert.Equal(t, "Asha Rao", inv.Patient.FullName)
	assert.Nil(t, inv.VisitID)
	require.Len(t, inv.Items, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInvoiceRepository_Summary(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewInvoiceRepository(db)
	clinicID := uuid.New()
	from := model.NewDate(2024, time.May, 1)

	mock.ExpectQuery("FROM invoices").
		WithArgs(clinicID, from, nil).
		WillReturnRows(sqlmock.NewRows([]string{"total_invoices", "total_revenue", "paid_revenue", "unpaid_revenue"}).
			AddRow(3, []byte("900.00"), []byte("500.00"), []byte("400.00")))

	summary, err := repo.Summary(context.Background(), clinicID, &from, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.TotalInvoices)
	assert.Equal(t, 400.0, summary.UnpaidRevenue)
	assert.Equal(t, &from, summary.From)
	assert.NoError(t, mock.ExpectationsWereMet())
}
