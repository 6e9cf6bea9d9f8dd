// Package queue is the client-side OPD queue coordinator. It keeps a
// read view of one day's queue, refreshes it on a fixed interval and runs the
// desk's queue actions against the API.
package queue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/opd-desk/internal/model"
	apperrors "github.com/jwalitptl/opd-desk/pkg/errors"
)

const DefaultPollInterval = 10 * time.Second

var ErrUnknownEntry = errors.New("appointment is not in the loaded queue")

// API is the slice of *apiclient.Client the coordinator uses.
type API interface {
	Queue(ctx context.Context, date model.Date) (*model.QueueResponse, error)
	Stats(ctx context.Context, date model.Date) (*model.StatsResponse, error)
	AddToQueue(ctx context.Context, req *model.CreateAppointmentRequest) (*model.Appointment, error)
	GetAppointment(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.AppointmentStatus) (*model.Appointment, error)
	UpdatePosition(ctx context.Context, id uuid.UUID, queueNumber int) (*model.QueueResponse, error)
	AppointmentVisit(ctx context.Context, id uuid.UUID) (*model.Visit, error)
}

// Snapshot is the coordinator's view of one day.
type Snapshot struct {
	Date      model.Date
	Entries   []*model.Appointment
	Stats     model.QueueStats
	FetchedAt time.Time
}

// Find returns the entry with id.
func (s Snapshot) Find(id uuid.UUID) (*model.Appointment, bool) {
	for _, a := range s.Entries {
		if a.ID == id {
			return a, true
		}
	}
	return nil, false
}

type Direction int

const (
	Up Direction = iota
	Down
)

func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "up":
		return Up, nil
	case "down":
		return Down, nil
	}
	return 0, fmt.Errorf("unknown direction %q, want up or down", s)
}

// Seed pre-fills a visit draft started from the queue.
type Seed struct {
	AppointmentID uuid.UUID
	PatientID     uuid.UUID
	Patient       model.PatientSummary
	Complaints    []string
}

type Option func(*Coordinator)

func WithPollInterval(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.interval = d
		}
	}
}

// WithOnChange registers a callback run after every applied refresh or
// mutation.
func WithOnChange(fn func(Snapshot)) Option {
	return func(c *Coordinator) { c.onChange = fn }
}

// Coordinator is safe for concurrent use. Every applied local mutation bumps
// a generation counter; a poll that started before the latest mutation is
// dropped instead of overwriting the newer view.
type Coordinator struct {
	api      API
	interval time.Duration
	onChange func(Snapshot)

	mu   sync.RWMutex
	snap Snapshot
	gen  uint64
}

func New(api API, date model.Date, opts ...Option) *Coordinator {
	if date.IsZero() {
		date = model.Today()
	}
	c := &Coordinator{
		api:      api,
		interval: DefaultPollInterval,
		snap:     Snapshot{Date: date},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Coordinator) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	snap := c.snap
	snap.Entries = append([]*model.Appointment(nil), c.snap.Entries...)
	return snap
}

func (c *Coordinator) Date() model.Date {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap.Date
}

func (c *Coordinator) fetch(ctx context.Context, date model.Date) (Snapshot, error) {
	q, err := c.api.Queue(ctx, date)
	if err != nil {
		return Snapshot{}, err
	}
	st, err := c.api.Stats(ctx, date)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{Date: date, Entries: q.Queue, Stats: st.Stats, FetchedAt: time.Now()}, nil
}

// apply installs snap unless a mutation landed after gen was read. force
// skips the check.
func (c *Coordinator) apply(snap Snapshot, gen uint64, force bool) bool {
	c.mu.Lock()
	if !force && (c.gen != gen || !c.snap.Date.Equal(snap.Date)) {
		c.mu.Unlock()
		return false
	}
	c.gen++
	c.snap = snap
	c.mu.Unlock()
	c.notify()
	return true
}

func (c *Coordinator) notify() {
	if c.onChange != nil {
		c.onChange(c.Snapshot())
	}
}

// LoadQueue switches to date and replaces the view wholesale. On failure the
// previous day stays loaded.
func (c *Coordinator) LoadQueue(ctx context.Context, date model.Date) (Snapshot, error) {
	if date.IsZero() {
		date = model.Today()
	}

	snap, err := c.fetch(ctx, date)
	if err != nil {
		return Snapshot{}, err
	}
	c.apply(snap, 0, true)
	return snap, nil
}

// Poll refetches the current day. A response that raced a local mutation is
// discarded and reported as not applied.
func (c *Coordinator) Poll(ctx context.Context) (bool, error) {
	c.mu.RLock()
	date, gen := c.snap.Date, c.gen
	c.mu.RUnlock()

	snap, err := c.fetch(ctx, date)
	if err != nil {
		return false, err
	}
	applied := c.apply(snap, gen, false)
	if !applied {
		log.Debug().Str("date", date.String()).Msg("discarded stale queue poll")
	}
	return applied, nil
}

// Run polls until ctx is done. Failures are logged and retried on the next
// tick.
func (c *Coordinator) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := c.Poll(ctx); err != nil && ctx.Err() == nil {
				log.Warn().Err(err).Msg("queue poll failed")
			}
		}
	}
}

// refresh refetches after a successful action. The action already succeeded,
// so a failed refetch is only logged.
func (c *Coordinator) refresh(ctx context.Context) {
	snap, err := c.fetch(ctx, c.Date())
	if err != nil {
		log.Warn().Err(err).Msg("queue refresh failed")
		return
	}
	c.apply(snap, 0, true)
}

// MergeComplaints combines reference-selected complaints with comma-separated
// free text, trimmed and deduplicated in first-seen order.
func MergeComplaints(selected []string, custom string) []string {
	all := append([]string(nil), selected...)
	all = append(all, strings.Split(custom, ",")...)
	return model.NormalizeList(all)
}

// AddToQueue enqueues a patient on the loaded day. Missing patient or
// complaints fail before any call is made.
func (c *Coordinator) AddToQueue(ctx context.Context, patientID uuid.UUID, selected []string, custom string) (*model.Appointment, error) {
	complaints := MergeComplaints(selected, custom)

	var errs apperrors.ValidationErrors
	if patientID == uuid.Nil {
		errs = append(errs, apperrors.NewValidation("patient_id", "select a patient"))
	}
	if len(complaints) == 0 {
		errs = append(errs, apperrors.NewValidation("chief_complaints", "add at least one complaint"))
	}
	if len(errs) > 0 {
		return nil, errs
	}

	date := c.Date()
	appointment, err := c.api.AddToQueue(ctx, &model.CreateAppointmentRequest{
		PatientID:       patientID,
		ChiefComplaints: complaints,
		QueueDate:       date.String(),
	})
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.snap.Date.Equal(appointment.QueueDate) {
		c.snap.Entries = append(c.snap.Entries, appointment)
		c.snap.Stats.Total++
		c.snap.Stats.Waiting++
	}
	c.gen++
	c.mu.Unlock()
	c.notify()
	return appointment, nil
}

// TransitionStatus leaves legality to the server and refetches on success.
func (c *Coordinator) TransitionStatus(ctx context.Context, id uuid.UUID, status model.AppointmentStatus) (*model.Appointment, error) {
	appointment, err := c.api.UpdateStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}
	c.refresh(ctx)
	return appointment, nil
}

// StartConsultation moves the entry to IN_PROGRESS and returns the seed for
// a visit draft. No seed is returned when the transition fails.
func (c *Coordinator) StartConsultation(ctx context.Context, id uuid.UUID) (*Seed, error) {
	appointment, err := c.TransitionStatus(ctx, id, model.AppointmentStatusInProgress)
	if err != nil {
		return nil, err
	}
	return &Seed{
		AppointmentID: appointment.ID,
		PatientID:     appointment.PatientID,
		Patient:       appointment.Patient,
		Complaints:    model.NormalizeList(appointment.ChiefComplaints),
	}, nil
}

// CanReorder reports whether moving id one step in dir is allowed: the entry
// must be WAITING and the target must stay within 1..N.
func (c *Coordinator) CanReorder(id uuid.UUID, dir Direction) bool {
	_, ok := c.target(id, dir)
	return ok
}

func (c *Coordinator) target(id uuid.UUID, dir Direction) (int, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.snap.Find(id)
	if !ok || entry.Status != model.AppointmentStatusWaiting {
		return 0, false
	}
	next := entry.QueueNumber - 1
	if dir == Down {
		next = entry.QueueNumber + 1
	}
	if next < 1 || next > len(c.snap.Entries) {
		return 0, false
	}
	return next, true
}

// Reorder moves id one place. It reports false without calling the API when
// the move is not allowed.
func (c *Coordinator) Reorder(ctx context.Context, id uuid.UUID, dir Direction) (bool, error) {
	if _, ok := c.Snapshot().Find(id); !ok {
		return false, ErrUnknownEntry
	}
	next, ok := c.target(id, dir)
	if !ok {
		return false, nil
	}

	q, err := c.api.UpdatePosition(ctx, id, next)
	if err != nil {
		return false, err
	}

	c.mu.Lock()
	c.snap.Entries = q.Queue
	c.snap.FetchedAt = time.Now()
	c.gen++
	c.mu.Unlock()
	c.notify()
	return true, nil
}

// ResolveExistingVisit returns the visit already recorded for an
// appointment, or nil when the consultation should start fresh.
func (c *Coordinator) ResolveExistingVisit(ctx context.Context, id uuid.UUID) (*model.Visit, error) {
	return c.api.AppointmentVisit(ctx, id)
}

// Seed builds a draft seed from any appointment, loaded or not.
func (c *Coordinator) Seed(ctx context.Context, id uuid.UUID) (*Seed, error) {
	appointment, ok := c.Snapshot().Find(id)
	if !ok {
		var err error
		if appointment, err = c.api.GetAppointment(ctx, id); err != nil {
			return nil, err
		}
	}
	return &Seed{
		AppointmentID: appointment.ID,
		PatientID:     appointment.PatientID,
		Patient:       appointment.Patient,
		Complaints:    model.NormalizeList(appointment.ChiefComplaints),
	}, nil
}
