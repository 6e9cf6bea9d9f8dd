package router_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/opd-desk/internal/apitest"
	"github.com/jwalitptl/opd-desk/internal/model"
)

func TestBillingFlow(t *testing.T) {
	srv := apitest.New(t)
	doctor := srv.Token(t, srv.Doctor)
	desk := srv.Token(t, srv.Assistant)
	patient := srv.Patient(t, "Meera Iyer")

	resp, env := call(t, srv, doctor, http.MethodPost, "/visits", model.VisitInput{
		PatientID: patient.ID, Symptoms: []string{"Fever"}, Diagnosis: []string{"Viral Fever"},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, env.Message)
	visit := decode[model.Visit](t, env)

	resp, env = call(t, srv, desk, http.MethodPost, "/invoices", model.InvoiceInput{
		PatientID: patient.ID,
		VisitID:   &visit.ID,
		Items: []model.InvoiceItemInput{
			{Description: "Consultation", Amount: 500},
			{Description: "Nebulization", Amount: 150, Quantity: 2},
		},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, env.Message)
	inv := decode[model.Invoice](t, env)
	assert.Equal(t, "INV-0001", inv.InvoiceNumber)
	assert.Equal(t, 800.0, inv.TotalAmount)
	assert.Equal(t, model.PaymentUnpaid, inv.PaymentStatus)
	assert.Equal(t, "Meera Iyer", inv.Patient.FullName)
	assert.Len(t, inv.Items, 2)

	resp, env = call(t, srv, desk, http.MethodPost, "/invoices", model.InvoiceInput{
		PatientID: patient.ID,
		VisitID:   &visit.ID,
		Items:     []model.InvoiceItemInput{{Description: "Again", Amount: 1}},
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode, env.Message)

	resp, env = call(t, srv, desk, http.MethodPost, "/invoices", model.InvoiceInput{
		PatientID: patient.ID,
		Items:     []model.InvoiceItemInput{{Amount: -1}},
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	fields := map[string]bool{}
	for _, e := range env.Errors {
		fields[e.Field] = true
	}
	assert.True(t, fields["items[0].description"])
	assert.True(t, fields["items[0].amount"])

	paid := 300.0
	resp, env = call(t, srv, desk, http.MethodPut, "/invoices/"+inv.ID.String(), model.InvoicePaymentUpdate{PaidAmount: &paid})
	require.Equal(t, http.StatusOK, resp.StatusCode, env.Message)
	inv = decode[model.Invoice](t, env)
	assert.Equal(t, model.PaymentPartial, inv.PaymentStatus)
	assert.NotNil(t, inv.PaymentDate)

	resp, env = call(t, srv, desk, http.MethodGet, "/invoices?status=PARTIAL", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decode[model.InvoiceList](t, env)
	assert.Equal(t, 1, list.Total)

	resp, env = call(t, srv, desk, http.MethodGet, "/invoices/"+inv.ID.String(), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[model.Invoice](t, env).Items, 2)

	// The summary sits behind the collections permission.
	resp, _ = call(t, srv, desk, http.MethodGet, "/invoices/stats/summary", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	today := model.Today().String()
	resp, env = call(t, srv, doctor, http.MethodGet, "/invoices/stats/summary?from="+today+"&to="+today, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, env.Message)
	summary := decode[model.BillingSummary](t, env)
	assert.Equal(t, 1, summary.TotalInvoices)
	assert.Equal(t, 800.0, summary.TotalRevenue)
	assert.Equal(t, 300.0, summary.PaidRevenue)
	assert.Equal(t, 500.0, summary.UnpaidRevenue)

	resp, _ = call(t, srv, doctor, http.MethodGet, "/invoices/stats/summary?from=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
