// Package apitest runs the full HTTP API over repotest stores so handler and
// client tests exercise real routing, auth and permission checks.
package apitest

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	authhandler "github.com/jwalitptl/opd-desk/internal/handler/auth"
	clinichandler "github.com/jwalitptl/opd-desk/internal/handler/clinic"
	"github.com/jwalitptl/opd-desk/internal/handler/health"
	invoicehandler "github.com/jwalitptl/opd-desk/internal/handler/invoice"
	opdhandler "github.com/jwalitptl/opd-desk/internal/handler/opd"
	optionhandler "github.com/jwalitptl/opd-desk/internal/handler/option"
	patienthandler "github.com/jwalitptl/opd-desk/internal/handler/patient"
	permissionhandler "github.com/jwalitptl/opd-desk/internal/handler/permission"
	userhandler "github.com/jwalitptl/opd-desk/internal/handler/user"
	visithandler "github.com/jwalitptl/opd-desk/internal/handler/visit"
	"github.com/jwalitptl/opd-desk/internal/middleware"
	"github.com/jwalitptl/opd-desk/internal/model"
	"github.com/jwalitptl/opd-desk/internal/repository/repotest"
	"github.com/jwalitptl/opd-desk/internal/router"
	authservice "github.com/jwalitptl/opd-desk/internal/service/auth"
	clinicservice "github.com/jwalitptl/opd-desk/internal/service/clinic"
	invoiceservice "github.com/jwalitptl/opd-desk/internal/service/invoice"
	opdservice "github.com/jwalitptl/opd-desk/internal/service/opd"
	optionservice "github.com/jwalitptl/opd-desk/internal/service/option"
	patientservice "github.com/jwalitptl/opd-desk/internal/service/patient"
	permissionservice "github.com/jwalitptl/opd-desk/internal/service/permission"
	userservice "github.com/jwalitptl/opd-desk/internal/service/user"
	visitservice "github.com/jwalitptl/opd-desk/internal/service/visit"
	"github.com/jwalitptl/opd-desk/pkg/auth"
	"github.com/jwalitptl/opd-desk/pkg/messaging"
	"github.com/jwalitptl/opd-desk/pkg/metrics"
	"github.com/jwalitptl/opd-desk/pkg/security"
)

// Password is the password of every seeded user.
const Password = "secret-pass"

type Server struct {
	*httptest.Server
	Store     *repotest.Store
	JWT       auth.JWTService
	Hasher    security.PasswordHasher
	Clinic    *model.Clinic
	Doctor    *model.User
	Assistant *model.User
}

// New starts a server with one clinic, an active doctor who owns it and an
// active assistant, each holding the default permissions of their role.
func New(t *testing.T) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()

	store := repotest.NewStore()
	hasher := security.NewBcryptHasher(4)
	jwt := auth.NewJWTService("apitest-secret", "opd-desk", time.Hour)
	m := metrics.NewMetrics(prometheus.NewRegistry(), "opd_test")

	s := &Server{Store: store, JWT: jwt, Hasher: hasher}
	s.Clinic = &model.Clinic{Name: "Test Clinic"}
	require.NoError(t, store.Clinics().Create(ctx, s.Clinic))
	s.Doctor = s.AddUser(t, "doctor@clinic.test", model.RoleDoctor)
	s.Assistant = s.AddUser(t, "desk@clinic.test", model.RoleAssistant)
	s.Clinic.OwnerID = &s.Doctor.ID
	require.NoError(t, store.Clinics().Update(ctx, s.Clinic))

	authSvc := authservice.NewService(store.Users(), jwt, hasher)
	optionSvc := optionservice.NewService(store.Options(), messaging.NewMemoryBroker(), optionservice.Config{}, m)
	visitSvc := visitservice.NewService(store.Visits(), store.Patients(), store.Appointments(), m)
	userSvc := userservice.NewService(store.Users(), store.Clinics(), hasher)

	r := router.NewRouter(
		middleware.NewAuthMiddleware(jwt, store.Users()),
		router.Handlers{
			Health:     health.NewHandler(nil, prometheus.NewRegistry()),
			Auth:       authhandler.NewHandler(authSvc),
			Patient:    patienthandler.NewHandler(patientservice.NewService(store.Patients(), store.Visits())),
			OPD:        opdhandler.NewHandler(opdservice.NewService(store.Appointments(), store.Patients(), store.Visits(), m)),
			Visit:      visithandler.NewHandler(visitSvc, authSvc, store.Clinics()),
			Option:     optionhandler.NewHandler(optionSvc),
			User:       userhandler.NewHandler(userSvc),
			Permission: permissionhandler.NewHandler(permissionservice.NewService(store.Users(), store.Clinics())),
			Clinic:     clinichandler.NewHandler(clinicservice.NewService(store.Clinics(), store.Users(), userSvc)),
			Invoice:    invoicehandler.NewHandler(invoiceservice.NewService(store.Invoices(), store.Patients(), store.Visits(), m)),
		},
		m,
		router.RouterConfig{
			Mode:        gin.TestMode,
			Timeout:     10 * time.Second,
			CORSConfig:  middleware.DefaultCORSConfig(),
			MaxBodySize: middleware.DefaultMaxBodySize,
		},
	)
	r.Setup()

	s.Server = httptest.NewServer(r.Engine())
	t.Cleanup(s.Close)
	return s
}

// AddUser creates an active user in the seeded clinic.
func (s *Server) AddUser(t *testing.T, email string, role model.Role) *model.User {
	t.Helper()
	hash, err := s.Hasher.Hash(Password)
	require.NoError(t, err)
	u := &model.User{
		ClinicID:     s.Clinic.ID,
		Email:        email,
		FullName:     email,
		Role:         role,
		PasswordHash: hash,
		PrintTop:     model.DefaultPrintTop,
		PrintLeft:    model.DefaultPrintLeft,
		IsActive:     true,
	}
	require.NoError(t, s.Store.Users().Create(context.Background(), u))
	return u
}

// Token issues a bearer token for u without going through login.
func (s *Server) Token(t *testing.T, u *model.User) string {
	t.Helper()
	token, _, err := s.JWT.GenerateAccessToken(auth.Principal{
		UserID:   u.ID,
		ClinicID: u.ClinicID,
		Email:    u.Email,
		Role:     string(u.Role),
	})
	require.NoError(t, err)
	return token
}

// Patient registers a patient directly in the store.
func (s *Server) Patient(t *testing.T, name string) *model.Patient {
	t.Helper()
	p := &model.Patient{ClinicID: s.Clinic.ID, FullName: name, Gender: model.GenderMale, Phone: "9000000000"}
	require.NoError(t, s.Store.Patients().Create(context.Background(), p))
	return p
}
