// Package visitdraft assembles one visit from vitals, the four vocabulary
// list fields, prescription lines and billing, and submits it as a single
// create or update.
package visitdraft

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/opd-desk/internal/model"
	apperrors "github.com/jwalitptl/opd-desk/pkg/errors"
)

type State int

const (
	Empty State = iota
	Loaded
	Editing
	Submitting
	Submitted
)

func (s State) String() string {
	return [...]string{"empty", "loaded", "editing", "submitting", "submitted"}[s]
}

var ErrUnsavedChanges = errors.New("the visit has unsaved changes")

const historyLimit = 20

// API is the slice of *apiclient.Client a draft uses.
type API interface {
	GetPatient(ctx context.Context, id uuid.UUID) (*model.Patient, error)
	PatientVisits(ctx context.Context, id uuid.UUID, page model.Pagination) ([]*model.VisitListItem, error)
	CreateVisit(ctx context.Context, in *model.VisitInput) (*model.Visit, error)
	UpdateVisit(ctx context.Context, id uuid.UUID, in *model.VisitInput) (*model.Visit, error)
}

// Vocabulary supplies active option names; *refdata.Cache implements it.
type Vocabulary interface {
	Names(ctx context.Context, category model.OptionCategory) ([]string, error)
}

// Entry describes where the draft was opened from.
type Entry struct {
	PatientID     uuid.UUID
	AppointmentID *uuid.UUID
	Complaints    []string
	// Visit is set when an existing visit is edited or reopened.
	Visit *model.Visit
}

type Outcome int

const (
	// ShowPreview follows a consultation started from the queue.
	ShowPreview Outcome = iota
	// ShowVisit follows a direct edit of an existing visit.
	ShowVisit
	// ShowPatient follows a fresh visit not tied to an appointment.
	ShowPatient
)

func (o Outcome) String() string {
	return [...]string{"preview", "visit", "patient"}[o]
}

type Result struct {
	Outcome Outcome
	Visit   *model.Visit
	Patient *model.Patient
}

type Draft struct {
	api   API
	vocab Vocabulary

	mu      sync.Mutex
	state   State
	entry   Entry
	patient *model.Patient
	dirty   bool

	history     []*model.VisitListItem
	historyErr  error
	historyDone chan struct{}

	Symptoms     *MultiSelect
	Diagnosis    *MultiSelect
	Observations *MultiSelect
	Tests        *MultiSelect
	Medicines    *MedicineEditor

	vitals   model.Vitals
	followUp *model.Date
	notes    string
	amount   *float64
}

func New(api API, vocab Vocabulary) *Draft {
	d := &Draft{
		api:          api,
		vocab:        vocab,
		Symptoms:     NewMultiSelect("symptoms", nil, nil),
		Diagnosis:    NewMultiSelect("diagnosis", nil, nil),
		Observations: NewMultiSelect("observations", nil, nil),
		Tests:        NewMultiSelect("recommended_tests", nil, nil),
		Medicines:    &MedicineEditor{},
	}
	for _, f := range d.lists() {
		f.onChange = d.touch
	}
	d.Medicines.onChange = d.touch
	return d
}

// Start opens a draft for entry. With a patient in entry the draft begins
// Loaded, otherwise Empty.
func Start(ctx context.Context, api API, vocab Vocabulary, entry Entry) (*Draft, error) {
	d := New(api, vocab)
	d.entry = entry
	if entry.Visit != nil && entry.PatientID == uuid.Nil {
		d.entry.PatientID = entry.Visit.PatientID
	}
	if entry.Visit != nil && entry.AppointmentID == nil {
		d.entry.AppointmentID = entry.Visit.AppointmentID
	}
	if err := d.LoadVocabulary(ctx); err != nil {
		log.Warn().Err(err).Msg("reference lists unavailable, free text only")
	}
	if d.entry.PatientID == uuid.Nil {
		return d, nil
	}
	if err := d.SelectPatient(ctx, d.entry.PatientID); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Draft) lists() []*MultiSelect {
	return []*MultiSelect{d.Symptoms, d.Diagnosis, d.Observations, d.Tests}
}

func (d *Draft) touch() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dirty = true
	if d.state == Loaded || d.state == Submitted {
		d.state = Editing
	}
}

func (d *Draft) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

func (d *Draft) Patient() *model.Patient {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.patient
}

// Editing reports whether the draft updates an existing visit.
func (d *Draft) Editing() *model.Visit {
	return d.entry.Visit
}

// LoadVocabulary fills the reference lists of every field.
func (d *Draft) LoadVocabulary(ctx context.Context) error {
	if d.vocab == nil {
		return nil
	}
	var firstErr error
	names := func(c model.OptionCategory) []string {
		n, err := d.vocab.Names(ctx, c)
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("failed to load %s options: %w", c, err)
			}
			return nil
		}
		return n
	}
	d.Symptoms.SetReference(names(model.CategorySymptom))
	d.Diagnosis.SetReference(names(model.CategoryDiagnosis))
	d.Observations.SetReference(names(model.CategoryObservation))
	d.Tests.SetReference(names(model.CategoryTest))
	d.Medicines.SetReference(names(model.CategoryMedicine), names(model.CategoryDosage), names(model.CategoryDuration))
	return firstErr
}

// SelectPatient moves the draft to Loaded, starts fetching the patient's
// history in the background and prefills the form from the entry.
func (d *Draft) SelectPatient(ctx context.Context, id uuid.UUID) error {
	patient, err := d.api.GetPatient(ctx, id)
	if err != nil {
		return err
	}

	done := make(chan struct{})
	d.mu.Lock()
	d.patient = patient
	d.entry.PatientID = patient.ID
	d.state = Loaded
	d.dirty = false
	d.history, d.historyErr, d.historyDone = nil, nil, done
	d.mu.Unlock()

	go d.loadHistory(context.WithoutCancel(ctx), patient.ID, done)
	d.prefill()
	return nil
}

func (d *Draft) loadHistory(ctx context.Context, patientID uuid.UUID, done chan struct{}) {
	defer close(done)
	items, err := d.api.PatientVisits(ctx, patientID, model.Pagination{Limit: historyLimit})
	if err != nil {
		log.Warn().Err(err).Str("patient_id", patientID.String()).Msg("failed to load visit history")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.historyDone == done {
		d.history, d.historyErr = items, err
	}
}

// History waits for the background history fetch.
func (d *Draft) History(ctx context.Context) ([]*model.VisitListItem, error) {
	d.mu.Lock()
	done := d.historyDone
	d.mu.Unlock()
	if done == nil {
		return nil, nil
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-done:
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.history, d.historyErr
}

func (d *Draft) prefill() {
	if v := d.entry.Visit; v != nil {
		d.Symptoms.Reset(v.Symptoms)
		d.Diagnosis.Reset(v.Diagnosis)
		d.Observations.Reset(v.Observations)
		d.Tests.Reset(v.RecommendedTests)
		d.Medicines.reset(v.Medicines)
		d.mu.Lock()
		d.vitals = v.Vitals
		d.followUp = v.FollowUpDate
		d.notes = v.PrescriptionNotes
		d.amount = v.Amount
		d.mu.Unlock()
		return
	}
	if len(d.entry.Complaints) > 0 {
		d.Symptoms.Reset(d.entry.Complaints)
	}
}

func (d *Draft) Vitals() model.Vitals {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.vitals
}

func (d *Draft) SetVitals(v model.Vitals) {
	d.mu.Lock()
	d.vitals = v
	d.mu.Unlock()
	d.touch()
}

func (d *Draft) SetFollowUp(date *model.Date) {
	d.mu.Lock()
	d.followUp = date
	d.mu.Unlock()
	d.touch()
}

func (d *Draft) SetNotes(notes string) {
	d.mu.Lock()
	d.notes = notes
	d.mu.Unlock()
	d.touch()
}

func (d *Draft) SetAmount(amount *float64) {
	d.mu.Lock()
	d.amount = amount
	d.mu.Unlock()
	d.touch()
}

// HasUnsavedChanges reports whether leaving would lose work: any edited
// field or any non-empty list field.
func (d *Draft) HasUnsavedChanges() bool {
	d.mu.Lock()
	dirty, state := d.dirty, d.state
	d.mu.Unlock()
	if state == Submitted && !dirty {
		return false
	}
	if dirty {
		return true
	}
	for _, f := range d.lists() {
		if !f.Empty() {
			return true
		}
	}
	return false
}

// GuardLeave returns ErrUnsavedChanges when leaving would drop work. The
// guard is off while a submission is in flight.
func (d *Draft) GuardLeave() error {
	if d.State() == Submitting {
		return nil
	}
	if d.HasUnsavedChanges() {
		return ErrUnsavedChanges
	}
	return nil
}

// Input builds the request body from the current form.
func (d *Draft) Input() *model.VisitInput {
	d.mu.Lock()
	in := &model.VisitInput{
		PatientID:         d.entry.PatientID,
		AppointmentID:     d.entry.AppointmentID,
		FollowUpDate:      d.followUp,
		Vitals:            d.vitals,
		PrescriptionNotes: d.notes,
		Amount:            d.amount,
	}
	d.mu.Unlock()

	in.Symptoms = d.Symptoms.Values()
	in.Diagnosis = d.Diagnosis.Values()
	in.Observations = d.Observations.Values()
	in.RecommendedTests = d.Tests.Values()
	in.Medicines = d.Medicines.Named()
	in.Normalize()
	return in
}

// Submit validates locally, then creates or updates the visit. A validation
// failure makes no call; any failure returns the draft to Editing intact.
func (d *Draft) Submit(ctx context.Context) (*Result, error) {
	d.mu.Lock()
	switch d.state {
	case Empty:
		d.mu.Unlock()
		return nil, apperrors.ValidationErrors{apperrors.NewValidation("patient_id", "select a patient")}
	case Submitting:
		d.mu.Unlock()
		return nil, fmt.Errorf("visit is already being saved")
	}
	d.state = Submitting
	d.mu.Unlock()

	in := d.Input()
	if err := in.Validate(); err != nil {
		d.setState(Editing)
		return nil, err
	}

	var (
		visit *model.Visit
		err   error
	)
	if existing := d.entry.Visit; existing != nil {
		in.AppointmentID = nil
		visit, err = d.api.UpdateVisit(ctx, existing.ID, in)
	} else {
		visit, err = d.api.CreateVisit(ctx, in)
	}
	if err != nil {
		d.setState(Editing)
		return nil, err
	}

	d.mu.Lock()
	d.state = Submitted
	d.dirty = false
	outcome := ShowPatient
	switch {
	case d.entry.AppointmentID != nil:
		outcome = ShowPreview
	case d.entry.Visit != nil:
		outcome = ShowVisit
	}
	d.entry.Visit = visit
	res := &Result{Outcome: outcome, Visit: visit, Patient: d.patient}
	d.mu.Unlock()

	log.Info().
		Str("visit_id", visit.ID.String()).
		Int("visit_number", visit.VisitNumber).
		Str("outcome", outcome.String()).
		Msg("visit saved")
	return res, nil
}

func (d *Draft) setState(s State) {
	d.mu.Lock()
	d.state = s
	d.mu.Unlock()
}

// Summary is a one-line description of the form for confirmations.
func (d *Draft) Summary() string {
	in := d.Input()
	return fmt.Sprintf("symptoms: %s | diagnosis: %s | %d medicine(s)",
		strings.Join(in.Symptoms, ", "), strings.Join(in.Diagnosis, ", "), len(in.Medicines))
}
