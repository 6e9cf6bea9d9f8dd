package apiclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/opd-desk/internal/apitest"
	"github.com/jwalitptl/opd-desk/internal/model"
)

type fakeSession struct {
	token   string
	logouts int
}

func (s *fakeSession) Token() string { return s.token }
func (s *fakeSession) Logout() error {
	s.token = ""
	s.logouts++
	return nil
}

func stub(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestUnauthorizedLogsOut(t *testing.T) {
	srv := stub(t, http.StatusUnauthorized, `{"status":"error","message":"token expired"}`)
	sess := &fakeSession{token: "stale"}
	c := New(srv.URL, sess)

	_, err := c.Queue(context.Background(), model.Today())
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, 1, sess.logouts)
	assert.Empty(t, sess.Token())
}

func TestUnauthorizedWithoutToken(t *testing.T) {
	// A failed login is an ordinary error carrying the server message.
	srv := stub(t, http.StatusUnauthorized, `{"status":"error","message":"invalid email or password"}`)
	sess := &fakeSession{}
	c := New(srv.URL, sess)

	_, err := c.Login(context.Background(), "a@b.c", "x")
	var re *RequestError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "invalid email or password", re.Message)
	assert.Zero(t, sess.logouts)
}

func TestRequestErrorMessage(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"message", http.StatusConflict, `{"status":"error","message":"already exists"}`, "already exists"},
		{"detail", http.StatusBadRequest, `{"detail":"bad queue date"}`, "bad queue date"},
		{"fallback", http.StatusBadGateway, `<html>oops</html>`, "request failed: Bad Gateway"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(stub(t, tt.status, tt.body).URL, &fakeSession{token: "t"})
			err := c.DeleteAppointment(context.Background(), uuid.New())

			var re *RequestError
			require.ErrorAs(t, err, &re)
			assert.Equal(t, tt.status, re.StatusCode)
			assert.Equal(t, tt.want, re.Error())
		})
	}
}

func TestFieldErrorsAndNotFound(t *testing.T) {
	c := New(stub(t, http.StatusBadRequest,
		`{"status":"error","message":"validation failed","errors":[{"field":"name","message":"is required"}]}`).URL, nil)
	_, err := c.CreateOption(context.Background(), model.CategorySymptom, &model.OptionInput{})
	var re *RequestError
	require.ErrorAs(t, err, &re)
	require.Len(t, re.Fields, 1)
	assert.Equal(t, "name", re.Fields[0].Field)

	c = New(stub(t, http.StatusNotFound, `{"status":"error","message":"visit not found"}`).URL, nil)
	_, err = c.GetVisit(context.Background(), uuid.New())
	assert.True(t, IsNotFound(err))
	assert.False(t, IsConflict(err))
}

func TestNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(url, nil).Me(context.Background())
	var re *RequestError
	require.ErrorAs(t, err, &re)
	assert.Zero(t, re.StatusCode)
	assert.Equal(t, "could not reach the server", re.Message)
	assert.NotNil(t, errors.Unwrap(err))
}

func TestAgainstAPI(t *testing.T) {
	api := apitest.New(t)
	sess := &fakeSession{}
	c := New(api.URL+"/api/v1", sess)
	ctx := context.Background()

	tok, err := c.Login(ctx, api.Doctor.Email, apitest.Password)
	require.NoError(t, err)
	sess.token = tok.AccessToken

	patient := api.Patient(t, "Kiran Das")
	entry, err := c.AddToQueue(ctx, &model.CreateAppointmentRequest{PatientID: patient.ID, ChiefComplaints: []string{"Fever"}})
	require.NoError(t, err)
	assert.Equal(t, 1, entry.QueueNumber)

	visit, err := c.AppointmentVisit(ctx, entry.ID)
	require.NoError(t, err)
	assert.Nil(t, visit)

	_, err = c.GetAppointment(ctx, uuid.New())
	assert.True(t, IsNotFound(err))

	opt, err := c.CreateOption(ctx, model.CategoryDosage, &model.OptionInput{Name: "1-0-1"})
	require.NoError(t, err)
	opts, err := c.ListOptions(ctx, model.CategoryDosage, true)
	require.NoError(t, err)
	require.Len(t, opts, 1)
	assert.Equal(t, opt.ID, opts[0].ID)

	ps, err := c.UpdatePrintSettings(ctx, model.PrintSettings{Top: 900, Left: -4})
	require.NoError(t, err)
	assert.Equal(t, model.PrintSettings{Top: 400, Left: 0}, *ps)

	inv, err := c.CreateInvoice(ctx, &model.InvoiceInput{
		PatientID: patient.ID,
		Items:     []model.InvoiceItemInput{{Description: "Consultation", Amount: 400}},
	})
	require.NoError(t, err)
	assert.Equal(t, "INV-0001", inv.InvoiceNumber)

	mode := model.PaymentCash
	paid := model.PaymentPaid
	inv, err = c.UpdatePayment(ctx, inv.ID, &model.InvoicePaymentUpdate{PaymentStatus: &paid, PaymentMode: &mode})
	require.NoError(t, err)
	assert.Equal(t, 400.0, inv.PaidAmount)

	summary, err := c.BillingSummary(ctx, model.Date{}, model.Date{})
	require.NoError(t, err)
	assert.Equal(t, 400.0, summary.PaidRevenue)

	member, err := c.SetPermissions(ctx, api.Assistant.ID, nil)
	require.NoError(t, err)
	assert.Empty(t, member.Permissions)
	assert.True(t, member.CustomPermissions)

	member, err = c.ResetPermissions(ctx, api.Assistant.ID)
	require.NoError(t, err)
	assert.False(t, member.CustomPermissions)
}
