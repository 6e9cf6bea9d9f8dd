package apiclient

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/google/uuid"

	"github.com/jwalitptl/opd-desk/internal/model"
)

func dateQuery(key string, d model.Date) url.Values {
	q := url.Values{}
	if !d.IsZero() {
		q.Set(key, d.String())
	}
	return q
}

func pageQuery(q url.Values, p model.Pagination) url.Values {
	if q == nil {
		q = url.Values{}
	}
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}
	if p.Offset > 0 {
		q.Set("offset", strconv.Itoa(p.Offset))
	}
	return q
}

// Auth

func (c *Client) Login(ctx context.Context, email, password string) (*model.TokenResponse, error) {
	var out model.TokenResponse
	err := c.do(ctx, http.MethodPost, "/auth/login", nil, model.LoginRequest{Email: email, Password: password}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Me(ctx context.Context) (*model.Profile, error) {
	var out model.Profile
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdatePrintSettings(ctx context.Context, ps model.PrintSettings) (*model.PrintSettings, error) {
	var out model.PrintSettings
	err := c.do(ctx, http.MethodPut, "/auth/me/print-settings", nil, model.PrintSettingsRequest{Top: ps.Top, Left: ps.Left}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Patients

func (c *Client) SearchPatients(ctx context.Context, search string, page model.Pagination) ([]*model.Patient, error) {
	q := pageQuery(url.Values{}, page)
	if search != "" {
		q.Set("search", search)
	}
	var out []*model.Patient
	if err := c.do(ctx, http.MethodGet, "/patients", q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetPatient(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	var out model.Patient
	if err := c.do(ctx, http.MethodGet, "/patients/"+id.String(), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreatePatient(ctx context.Context, req *model.CreatePatientRequest) (*model.Patient, error) {
	var out model.Patient
	if err := c.do(ctx, http.MethodPost, "/patients", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PatientVisits returns the patient's visit history, newest first.
func (c *Client) PatientVisits(ctx context.Context, id uuid.UUID, page model.Pagination) ([]*model.VisitListItem, error) {
	var out []*model.VisitListItem
	if err := c.do(ctx, http.MethodGet, "/patients/"+id.String()+"/visits", pageQuery(nil, page), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// OPD queue

func (c *Client) Queue(ctx context.Context, date model.Date) (*model.QueueResponse, error) {
	var out model.QueueResponse
	if err := c.do(ctx, http.MethodGet, "/opd/queue", dateQuery("queue_date", date), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Stats(ctx context.Context, date model.Date) (*model.StatsResponse, error) {
	var out model.StatsResponse
	if err := c.do(ctx, http.MethodGet, "/opd/stats", dateQuery("stats_date", date), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) AddToQueue(ctx context.Context, req *model.CreateAppointmentRequest) (*model.Appointment, error) {
	var out model.Appointment
	if err := c.do(ctx, http.MethodPost, "/opd/appointments", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetAppointment(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	var out model.Appointment
	if err := c.do(ctx, http.MethodGet, "/opd/appointments/"+id.String(), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateStatus(ctx context.Context, id uuid.UUID, status model.AppointmentStatus) (*model.Appointment, error) {
	var out model.Appointment
	err := c.do(ctx, http.MethodPut, "/opd/appointments/"+id.String()+"/status", nil, model.UpdateStatusRequest{Status: status}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdatePosition moves an entry to queueNumber and returns the renumbered day.
func (c *Client) UpdatePosition(ctx context.Context, id uuid.UUID, queueNumber int) (*model.QueueResponse, error) {
	var out model.QueueResponse
	err := c.do(ctx, http.MethodPut, "/opd/appointments/"+id.String()+"/position", nil, model.UpdatePositionRequest{QueueNumber: queueNumber}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteAppointment(ctx context.Context, id uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, "/opd/appointments/"+id.String(), nil, nil, nil)
}

// AppointmentVisit returns the visit recorded for an appointment, or nil.
func (c *Client) AppointmentVisit(ctx context.Context, id uuid.UUID) (*model.Visit, error) {
	var out model.AppointmentVisitResponse
	if err := c.do(ctx, http.MethodGet, "/opd/appointments/"+id.String()+"/visit", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Visit, nil
}

func (c *Client) FollowUpsDue(ctx context.Context, date model.Date) ([]*model.FollowUp, error) {
	var out []*model.FollowUp
	if err := c.do(ctx, http.MethodGet, "/opd/follow-ups-due", dateQuery("date", date), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Visits

func (c *Client) CreateVisit(ctx context.Context, in *model.VisitInput) (*model.Visit, error) {
	var out model.Visit
	if err := c.do(ctx, http.MethodPost, "/visits", nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateVisit(ctx context.Context, id uuid.UUID, in *model.VisitInput) (*model.Visit, error) {
	var out model.Visit
	if err := c.do(ctx, http.MethodPut, "/visits/"+id.String(), nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetVisit(ctx context.Context, id uuid.UUID) (*model.Visit, error) {
	var out model.Visit
	if err := c.do(ctx, http.MethodGet, "/visits/"+id.String(), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListVisits lists the clinic's visits on date.
func (c *Client) ListVisits(ctx context.Context, date model.Date, page model.Pagination) ([]*model.VisitListItem, error) {
	var out []*model.VisitListItem
	if err := c.do(ctx, http.MethodGet, "/visits", pageQuery(dateQuery("date", date), page), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// PrintVisit fetches the server-rendered prescription page.
func (c *Client) PrintVisit(ctx context.Context, id uuid.UUID, autoPrint bool) ([]byte, error) {
	q := url.Values{"autoprint": {strconv.FormatBool(autoPrint)}}
	return c.send(ctx, http.MethodGet, "/visits/"+id.String()+"/print", q, nil)
}

func (c *Client) Collections(ctx context.Context, from, to model.Date) (*model.CollectionSummary, error) {
	q := dateQuery("from", from)
	if !to.IsZero() {
		q.Set("to", to.String())
	}
	var out model.CollectionSummary
	if err := c.do(ctx, http.MethodGet, "/visits/collections/summary", q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Reference options

func (c *Client) ListOptions(ctx context.Context, category model.OptionCategory, activeOnly bool) ([]*model.ReferenceOption, error) {
	q := url.Values{}
	if activeOnly {
		q.Set("active_only", "true")
	}
	var out []*model.ReferenceOption
	if err := c.do(ctx, http.MethodGet, category.Path(), q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateOption(ctx context.Context, category model.OptionCategory, in *model.OptionInput) (*model.ReferenceOption, error) {
	var out model.ReferenceOption
	if err := c.do(ctx, http.MethodPost, category.Path(), nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateOption(ctx context.Context, category model.OptionCategory, id uuid.UUID, in *model.OptionInput) (*model.ReferenceOption, error) {
	var out model.ReferenceOption
	if err := c.do(ctx, http.MethodPut, category.Path()+"/"+id.String(), nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteOption(ctx context.Context, category model.OptionCategory, id uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, category.Path()+"/"+id.String(), nil, nil, nil)
}

// Staff

func (c *Client) ListUsers(ctx context.Context) ([]*model.Member, error) {
	var out []*model.Member
	if err := c.do(ctx, http.MethodGet, "/users", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateUser(ctx context.Context, req *model.CreateUserRequest) (*model.Member, error) {
	var out model.Member
	if err := c.do(ctx, http.MethodPost, "/users", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateUser(ctx context.Context, id uuid.UUID, req *model.UpdateUserRequest) (*model.Member, error) {
	var out model.Member
	if err := c.do(ctx, http.MethodPut, "/users/"+id.String(), nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteUser(ctx context.Context, id uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, "/users/"+id.String(), nil, nil, nil)
}

// Permissions

func (c *Client) SetPermissions(ctx context.Context, userID uuid.UUID, perms []string) (*model.Member, error) {
	var out model.Member
	req := model.UpdatePermissionsRequest{Permissions: model.StringList(perms)}
	if err := c.do(ctx, http.MethodPut, "/permissions/"+userID.String(), nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ResetPermissions(ctx context.Context, userID uuid.UUID) (*model.Member, error) {
	var out model.Member
	if err := c.do(ctx, http.MethodPost, "/permissions/"+userID.String()+"/reset", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Clinic

func (c *Client) Clinic(ctx context.Context) (*model.ClinicInfo, error) {
	var out model.ClinicInfo
	if err := c.do(ctx, http.MethodGet, "/clinic", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateClinic(ctx context.Context, req *model.ClinicRequest) (*model.Clinic, error) {
	var out model.Clinic
	if err := c.do(ctx, http.MethodPut, "/clinic", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DoctorProfile returns the profile prescriptions print under.
func (c *Client) DoctorProfile(ctx context.Context) (*model.DoctorProfile, error) {
	var out model.DoctorProfile
	if err := c.do(ctx, http.MethodGet, "/clinic/doctor-profile", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateDoctorProfile(ctx context.Context, req *model.UpdateDoctorProfileRequest) (*model.DoctorProfile, error) {
	var out model.DoctorProfile
	if err := c.do(ctx, http.MethodPut, "/clinic/doctor-profile", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Billing

func (c *Client) CreateInvoice(ctx context.Context, in *model.InvoiceInput) (*model.Invoice, error) {
	var out model.Invoice
	if err := c.do(ctx, http.MethodPost, "/invoices", nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetInvoice(ctx context.Context, id uuid.UUID) (*model.Invoice, error) {
	var out model.Invoice
	if err := c.do(ctx, http.MethodGet, "/invoices/"+id.String(), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListInvoices(ctx context.Context, status model.PaymentStatus, page model.Pagination) (*model.InvoiceList, error) {
	q := url.Values{}
	if status != "" {
		q.Set("status", string(status))
	}
	var out model.InvoiceList
	if err := c.do(ctx, http.MethodGet, "/invoices", pageQuery(q, page), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdatePayment(ctx context.Context, id uuid.UUID, upd *model.InvoicePaymentUpdate) (*model.Invoice, error) {
	var out model.Invoice
	if err := c.do(ctx, http.MethodPut, "/invoices/"+id.String(), nil, upd, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// BillingSummary totals invoices created between from and to. Zero dates
// leave that end open.
func (c *Client) BillingSummary(ctx context.Context, from, to model.Date) (*model.BillingSummary, error) {
	q := dateQuery("from", from)
	if !to.IsZero() {
		q.Set("to", to.String())
	}
	var out model.BillingSummary
	if err := c.do(ctx, http.MethodGet, "/invoices/stats/summary", q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
