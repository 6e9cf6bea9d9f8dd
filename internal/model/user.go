package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type Role string

const (
	RoleDoctor    Role = "DOCTOR"
	RoleAssistant Role = "ASSISTANT"
	RoleAdmin     Role = "ADMIN"
)

func (r Role) Valid() bool {
	switch r {
	case RoleDoctor, RoleAssistant, RoleAdmin:
		return true
	}
	return false
}

// Permission names granted to users.
const (
	PermManageOPD           = "can_manage_opd"
	PermCreateVisits        = "can_create_visits"
	PermEditVisits          = "can_edit_visits"
	PermManagePatients      = "can_manage_patients"
	PermManageClinicOptions = "can_manage_clinic_options"
	PermEditPrintSettings   = "can_edit_print_settings"
	PermViewCollections     = "can_view_collections"
	PermViewInvoices        = "can_view_invoices"
	PermCreateInvoices      = "can_create_invoices"
	PermEditInvoices        = "can_edit_invoices"
)

// AllPermissions lists every grantable permission in display order.
func AllPermissions() []string {
	return []string{
		PermManageOPD, PermCreateVisits, PermEditVisits, PermManagePatients,
		PermManageClinicOptions, PermEditPrintSettings, PermViewCollections,
		PermViewInvoices, PermCreateInvoices, PermEditInvoices,
	}
}

func ValidPermission(p string) bool {
	for _, known := range AllPermissions() {
		if known == p {
			return true
		}
	}
	return false
}

// DefaultPermissions returns the permission set a user of role r holds
// until the clinic owner customizes it.
func DefaultPermissions(r Role) []string {
	switch r {
	case RoleDoctor:
		return AllPermissions()
	case RoleAssistant:
		return []string{PermManageOPD, PermManagePatients, PermViewInvoices, PermCreateInvoices, PermEditInvoices}
	case RoleAdmin:
		return []string{PermManageOPD, PermManagePatients, PermManageClinicOptions, PermViewCollections, PermViewInvoices}
	}
	return nil
}

type User struct {
	Base
	ClinicID           uuid.UUID  `db:"clinic_id" json:"clinic_id"`
	Email              string     `db:"email" json:"email"`
	FullName           string     `db:"full_name" json:"full_name"`
	Phone              string     `db:"phone" json:"phone"`
	Role               Role       `db:"role" json:"role"`
	PasswordHash       string     `db:"password_hash" json:"-"`
	Specialization     string     `db:"specialization" json:"specialization,omitempty"`
	Qualification      string     `db:"qualification" json:"qualification,omitempty"`
	RegistrationNumber string     `db:"registration_number" json:"registration_number,omitempty"`
	SignatureURL       string     `db:"signature_url" json:"signature_url,omitempty"`
	PrintTop           int        `db:"print_top" json:"-"`
	PrintLeft          int        `db:"print_left" json:"-"`
	IsActive           bool       `db:"is_active" json:"is_active"`
	LoginAttempts      int        `db:"login_attempts" json:"-"`
	LastLoginAttempt   *time.Time `db:"last_login_attempt" json:"-"`
	LastLoginAt        *time.Time `db:"last_login_at" json:"last_login_at,omitempty"`

	// Permissions is the owner's override. Nil means the role defaults
	// apply; an empty override revokes everything.
	Permissions pq.StringArray `db:"permissions" json:"-"`
}

// EffectivePermissions is the override when one is stored, otherwise the
// role defaults.
func (u *User) EffectivePermissions() []string {
	if u.Permissions != nil {
		return []string(u.Permissions)
	}
	return DefaultPermissions(u.Role)
}

func (u *User) CustomPermissions() bool {
	return u.Permissions != nil
}

func (u *User) HasPermission(p string) bool {
	for _, have := range u.EffectivePermissions() {
		if have == p {
			return true
		}
	}
	return false
}

func (u *User) PrintSettings() PrintSettings {
	return PrintSettings{Top: u.PrintTop, Left: u.PrintLeft}
}

// Profile is the user as returned by /auth/me and stored by the client
// session.
type Profile struct {
	ID            uuid.UUID     `json:"id"`
	ClinicID      uuid.UUID     `json:"clinic_id"`
	Email         string        `json:"email"`
	FullName      string        `json:"full_name"`
	Role          Role          `json:"role"`
	Permissions   []string      `json:"permissions"`
	PrintSettings PrintSettings `json:"print_settings"`
}

func (u *User) Profile() Profile {
	return Profile{
		ID:            u.ID,
		ClinicID:      u.ClinicID,
		Email:         u.Email,
		FullName:      u.FullName,
		Role:          u.Role,
		Permissions:   StringList(u.EffectivePermissions()),
		PrintSettings: u.PrintSettings(),
	}
}

func (p Profile) HasPermission(perm string) bool {
	for _, have := range p.Permissions {
		if have == perm {
			return true
		}
	}
	return false
}

// Member is a clinic user as listed to the clinic's doctors and owner.
type Member struct {
	ID                uuid.UUID  `json:"id"`
	Email             string     `json:"email"`
	FullName          string     `json:"full_name"`
	Phone             string     `json:"phone"`
	Role              Role       `json:"role"`
	IsActive          bool       `json:"is_active"`
	IsOwner           bool       `json:"is_owner"`
	Permissions       []string   `json:"permissions"`
	CustomPermissions bool       `json:"custom_permissions"`
	LastLoginAt       *time.Time `json:"last_login_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

// NewMember describes u; owner is the clinic's owner, if any.
func NewMember(u *User, owner *uuid.UUID) *Member {
	return &Member{
		ID:                u.ID,
		Email:             u.Email,
		FullName:          u.FullName,
		Phone:             u.Phone,
		Role:              u.Role,
		IsActive:          u.IsActive,
		IsOwner:           owner != nil && *owner == u.ID,
		Permissions:       StringList(u.EffectivePermissions()),
		CustomPermissions: u.CustomPermissions(),
		LastLoginAt:       u.LastLoginAt,
		CreatedAt:         u.CreatedAt,
	}
}

type CreateUserRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	FullName string `json:"full_name" binding:"required"`
	Phone    string `json:"phone"`
	Role     Role   `json:"role"`
}

type UpdateUserRequest struct {
	FullName *string `json:"full_name"`
	Phone    *string `json:"phone"`
	Role     *Role   `json:"role"`
	IsActive *bool   `json:"is_active"`
}

type UpdatePermissionsRequest struct {
	Permissions []string `json:"permissions" binding:"required"`
}

// DoctorProfile is the letterhead identity of a doctor.
type DoctorProfile struct {
	ID                 uuid.UUID `json:"id"`
	FullName           string    `json:"full_name"`
	Email              string    `json:"email"`
	Phone              string    `json:"phone"`
	Specialization     string    `json:"specialization"`
	Qualification      string    `json:"qualification"`
	RegistrationNumber string    `json:"registration_number"`
	SignatureURL       string    `json:"signature_url"`
}

func (u *User) DoctorProfile() *DoctorProfile {
	return &DoctorProfile{
		ID:                 u.ID,
		FullName:           u.FullName,
		Email:              u.Email,
		Phone:              u.Phone,
		Specialization:     u.Specialization,
		Qualification:      u.Qualification,
		RegistrationNumber: u.RegistrationNumber,
		SignatureURL:       u.SignatureURL,
	}
}

type UpdateDoctorProfileRequest struct {
	FullName           *string `json:"full_name"`
	Phone              *string `json:"phone"`
	Specialization     *string `json:"specialization"`
	Qualification      *string `json:"qualification"`
	RegistrationNumber *string `json:"registration_number"`
	SignatureURL       *string `json:"signature_url"`
}

// Print offset bounds in pixels.
const (
	DefaultPrintTop  = 280
	DefaultPrintLeft = 40
	MaxPrintTop      = 400
	MaxPrintLeft     = 200
)

// PrintSettings is the letterhead offset applied to printed prescriptions.
type PrintSettings struct {
	Top  int `json:"top"`
	Left int `json:"left"`
}

func DefaultPrintSettings() PrintSettings {
	return PrintSettings{Top: DefaultPrintTop, Left: DefaultPrintLeft}
}

// Clamped returns p with Top in [0,400] and Left in [0,200].
func (p PrintSettings) Clamped() PrintSettings {
	return PrintSettings{
		Top:  clamp(p.Top, 0, MaxPrintTop),
		Left: clamp(p.Left, 0, MaxPrintLeft),
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
