package model

import (
	"github.com/google/uuid"
	"github.com/lib/pq"
)

type AppointmentStatus string

const (
	AppointmentStatusWaiting    AppointmentStatus = "WAITING"
	AppointmentStatusInProgress AppointmentStatus = "IN_PROGRESS"
	AppointmentStatusCompleted  AppointmentStatus = "COMPLETED"
)

func (s AppointmentStatus) Valid() bool {
	switch s {
	case AppointmentStatusWaiting, AppointmentStatusInProgress, AppointmentStatusCompleted:
		return true
	}
	return false
}

var appointmentTransitions = map[AppointmentStatus][]AppointmentStatus{
	AppointmentStatusWaiting:    {AppointmentStatusInProgress},
	AppointmentStatusInProgress: {AppointmentStatusWaiting, AppointmentStatusCompleted},
}

// CanTransitionTo reports whether a status update from s to next is legal.
// Re-applying the current status is allowed; COMPLETED only changes through
// visit edits.
func (s AppointmentStatus) CanTransitionTo(next AppointmentStatus) bool {
	if s == next {
		return true
	}
	for _, allowed := range appointmentTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Appointment is one OPD queue entry.
type Appointment struct {
	Base
	ClinicID        uuid.UUID         `db:"clinic_id" json:"clinic_id"`
	PatientID       uuid.UUID         `db:"patient_id" json:"patient_id"`
	QueueDate       Date              `db:"queue_date" json:"queue_date"`
	QueueNumber     int               `db:"queue_number" json:"queue_number"`
	Status          AppointmentStatus `db:"status" json:"status"`
	ChiefComplaints pq.StringArray    `db:"chief_complaints" json:"chief_complaints"`
	CreatedBy       uuid.UUID         `db:"created_by" json:"created_by"`
	Patient         PatientSummary    `db:"patient" json:"patient"`
}

// QueueStats aggregates a day's queue.
type QueueStats struct {
	Total      int `db:"total" json:"total"`
	Waiting    int `db:"waiting" json:"waiting"`
	InProgress int `db:"in_progress" json:"in_progress"`
	Completed  int `db:"completed" json:"completed"`
}

type CreateAppointmentRequest struct {
	PatientID       uuid.UUID `json:"patient_id" binding:"required"`
	ChiefComplaints []string  `json:"chief_complaints" binding:"required,min=1,dive,notblank"`
	QueueDate       string    `json:"queue_date" binding:"omitempty,ymd"`
}

type UpdateStatusRequest struct {
	Status AppointmentStatus `json:"status" binding:"required,oneof=WAITING IN_PROGRESS COMPLETED"`
}

type UpdatePositionRequest struct {
	QueueNumber int `json:"queue_number" binding:"required,min=1"`
}

// QueueResponse is the body of GET /opd/queue and of a reorder.
type QueueResponse struct {
	QueueDate Date           `json:"queue_date"`
	Queue     []*Appointment `json:"queue"`
}

type StatsResponse struct {
	StatsDate Date       `json:"stats_date"`
	Stats     QueueStats `json:"stats"`
}

// AppointmentVisitResponse answers the "is there already a visit" lookup.
type AppointmentVisitResponse struct {
	Visit *Visit `json:"visit"`
}
