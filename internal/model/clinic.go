package model

import "github.com/google/uuid"

type Clinic struct {
	Base
	Name    string     `db:"name" json:"name"`
	Address string     `db:"address" json:"address"`
	Phone   string     `db:"phone" json:"phone"`
	Email   string     `db:"email" json:"email"`
	LogoURL string     `db:"logo_url" json:"logo_url"`
	OwnerID *uuid.UUID `db:"owner_id" json:"owner_id,omitempty"`
}

func (c *Clinic) IsOwner(userID uuid.UUID) bool {
	return c.OwnerID != nil && *c.OwnerID == userID
}

type ClinicRequest struct {
	Name    string `json:"name" binding:"required"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
	Email   string `json:"email" binding:"omitempty,email"`
	LogoURL string `json:"logo_url"`
}

func (r *ClinicRequest) Apply(c *Clinic) {
	c.Name = r.Name
	c.Address = r.Address
	c.Phone = r.Phone
	c.Email = r.Email
	c.LogoURL = r.LogoURL
}

// ClinicInfo is the caller's clinic and whether the caller owns it.
type ClinicInfo struct {
	Clinic  *Clinic `json:"clinic"`
	IsOwner bool    `json:"is_owner"`
}

// ClinicDetail is a managed clinic with its doctors, as shown to admins.
type ClinicDetail struct {
	Clinic  *Clinic   `json:"clinic"`
	Doctors []*Member `json:"doctors"`
}

// AdminStats counts what an admin manages.
type AdminStats struct {
	TotalClinics  int `db:"total_clinics" json:"total_clinics"`
	TotalDoctors  int `db:"total_doctors" json:"total_doctors"`
	TotalPatients int `db:"total_patients" json:"total_patients"`
}
