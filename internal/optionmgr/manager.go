// Package optionmgr manages one category of reference options: create,
// edit, toggle, delete and bulk activation. Toggle, delete and discarding an
// edited form go through a confirmation step.
package optionmgr

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/opd-desk/internal/confirm"
	"github.com/jwalitptl/opd-desk/internal/model"
	apperrors "github.com/jwalitptl/opd-desk/pkg/errors"
)

var ErrUnknownOption = errors.New("option is not in the loaded list")

// API is the slice of *apiclient.Client the manager uses.
type API interface {
	ListOptions(ctx context.Context, category model.OptionCategory, activeOnly bool) ([]*model.ReferenceOption, error)
	CreateOption(ctx context.Context, category model.OptionCategory, in *model.OptionInput) (*model.ReferenceOption, error)
	UpdateOption(ctx context.Context, category model.OptionCategory, id uuid.UUID, in *model.OptionInput) (*model.ReferenceOption, error)
	DeleteOption(ctx context.Context, category model.OptionCategory, id uuid.UUID) error
}

// Invalidator drops cached lists; *refdata.Cache implements it.
type Invalidator interface {
	Invalidate(category model.OptionCategory)
}

type Option func(*Manager)

func WithCache(c Invalidator) Option {
	return func(m *Manager) { m.cache = c }
}

type Manager struct {
	api      API
	category model.OptionCategory
	prompter confirm.Prompter
	cache    Invalidator
	gate     confirm.Machine

	mu       sync.Mutex
	options  []*model.ReferenceOption
	selected map[uuid.UUID]bool
}

func New(api API, category model.OptionCategory, prompter confirm.Prompter, opts ...Option) *Manager {
	m := &Manager{
		api:      api,
		category: category,
		prompter: prompter,
		selected: make(map[uuid.UUID]bool),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) Category() model.OptionCategory {
	return m.category
}

// Load fetches every option of the category, inactive ones included.
func (m *Manager) Load(ctx context.Context) ([]*model.ReferenceOption, error) {
	opts, err := m.api.ListOptions(ctx, m.category, false)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.options = opts
	m.mu.Unlock()
	return opts, nil
}

func (m *Manager) Options() []*model.ReferenceOption {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*model.ReferenceOption(nil), m.options...)
}

func (m *Manager) find(id uuid.UUID) (*model.ReferenceOption, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.options {
		if o.ID == id {
			return o, true
		}
	}
	return nil, false
}

// changed invalidates the cache and refetches after a mutation.
func (m *Manager) changed(ctx context.Context) {
	if m.cache != nil {
		m.cache.Invalidate(m.category)
	}
	if _, err := m.Load(ctx); err != nil {
		log.Warn().Err(err).Str("category", string(m.category)).Msg("failed to reload options")
	}
}

// NewForm returns a blank create form placed after the existing options.
func (m *Manager) NewForm() *Form {
	m.mu.Lock()
	next := len(m.options) + 1
	m.mu.Unlock()
	f := &Form{IsActive: true}
	f.SetDisplayOrder(next)
	f.mark()
	return f
}

// EditForm returns a form pre-filled from option id.
func (m *Manager) EditForm(id uuid.UUID) (*Form, error) {
	o, ok := m.find(id)
	if !ok {
		return nil, ErrUnknownOption
	}
	f := &Form{
		id:           &o.ID,
		Name:         o.Name,
		Description:  o.Description,
		DisplayOrder: o.DisplayOrder,
		IsActive:     o.IsActive,
	}
	f.mark()
	return f, nil
}

// Save creates or updates from f. A blank name fails before any call.
func (m *Manager) Save(ctx context.Context, f *Form) (*model.ReferenceOption, error) {
	in, err := f.Input()
	if err != nil {
		return nil, err
	}

	var saved *model.ReferenceOption
	if f.id == nil {
		saved, err = m.api.CreateOption(ctx, m.category, in)
	} else {
		saved, err = m.api.UpdateOption(ctx, m.category, *f.id, in)
	}
	if err != nil {
		return nil, err
	}
	f.id = &saved.ID
	f.mark()
	m.changed(ctx)
	return saved, nil
}

// Abandon drops f. A dirty form asks first; the answer is returned.
func (m *Manager) Abandon(ctx context.Context, f *Form) (bool, error) {
	if !f.Dirty() {
		return true, nil
	}
	return confirm.Ask(ctx, &m.gate, m.prompter, confirm.Action{
		Name:   "discard",
		Prompt: "Discard unsaved changes?",
		Run:    func(context.Context) error { return nil },
	})
}

func inputFrom(o *model.ReferenceOption, active bool) *model.OptionInput {
	desc, order := o.Description, o.DisplayOrder
	return &model.OptionInput{Name: o.Name, Description: &desc, DisplayOrder: &order, IsActive: &active}
}

// ToggleActive flips an option's active flag after confirmation. It
// reports whether the change was made.
func (m *Manager) ToggleActive(ctx context.Context, id uuid.UUID) (bool, error) {
	o, ok := m.find(id)
	if !ok {
		return false, ErrUnknownOption
	}
	verb := "Deactivate"
	if !o.IsActive {
		verb = "Activate"
	}
	ran, err := confirm.Ask(ctx, &m.gate, m.prompter, confirm.Action{
		Name:   "toggle",
		Prompt: fmt.Sprintf("%s %s %q?", verb, strings.ToLower(m.category.Label()), o.Name),
		Run: func(ctx context.Context) error {
			_, err := m.api.UpdateOption(ctx, m.category, o.ID, inputFrom(o, !o.IsActive))
			return err
		},
	})
	if ran && err == nil {
		m.changed(ctx)
	}
	return ran, err
}

// Delete removes an option after confirmation.
func (m *Manager) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	o, ok := m.find(id)
	if !ok {
		return false, ErrUnknownOption
	}
	ran, err := confirm.Ask(ctx, &m.gate, m.prompter, confirm.Action{
		Name:   "delete",
		Prompt: fmt.Sprintf("Delete %q? This cannot be undone.", o.Name),
		Run: func(ctx context.Context) error {
			return m.api.DeleteOption(ctx, m.category, o.ID)
		},
	})
	if ran && err == nil {
		m.mu.Lock()
		delete(m.selected, id)
		m.mu.Unlock()
		m.changed(ctx)
	}
	return ran, err
}

func (m *Manager) Select(ids ...uuid.UUID) error {
	for _, id := range ids {
		if _, ok := m.find(id); !ok {
			return ErrUnknownOption
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		m.selected[id] = true
	}
	return nil
}

func (m *Manager) Deselect(id uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.selected, id)
}

func (m *Manager) Selected() []uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]uuid.UUID, 0, len(m.selected))
	for id := range m.selected {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

func (m *Manager) ClearSelection() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.selected = make(map[uuid.UUID]bool)
}

// BulkSetActive sets every selected option to active, skipping those
// already in that state, then clears the selection and refetches. It runs
// without a prompt. A failed update stops the pass and keeps the selection.
// It returns how many options changed.
func (m *Manager) BulkSetActive(ctx context.Context, active bool) (int, error) {
	var pending []*model.ReferenceOption
	for _, id := range m.Selected() {
		if o, ok := m.find(id); ok && o.IsActive != active {
			pending = append(pending, o)
		}
	}

	changed := 0
	var err error
	for _, o := range pending {
		if _, err = m.api.UpdateOption(ctx, m.category, o.ID, inputFrom(o, active)); err != nil {
			err = fmt.Errorf("failed to update %q: %w", o.Name, err)
			break
		}
		changed++
	}
	if changed > 0 {
		m.changed(ctx)
	}
	if err != nil {
		return changed, err
	}
	m.ClearSelection()
	return changed, nil
}

// Form is the create/edit form. DisplayOrder is clamped as it is set.
type Form struct {
	id           *uuid.UUID
	Name         string
	Description  string
	DisplayOrder int
	IsActive     bool

	saved formValues
}

type formValues struct {
	name, description string
	order             int
	active            bool
}

func (f *Form) values() formValues {
	return formValues{f.Name, f.Description, f.DisplayOrder, f.IsActive}
}

func (f *Form) mark() {
	f.saved = f.values()
}

func (f *Form) ID() *uuid.UUID {
	return f.id
}

func (f *Form) SetDisplayOrder(n int) {
	f.DisplayOrder = model.ClampDisplayOrder(n)
}

func (f *Form) Dirty() bool {
	return f.values() != f.saved
}

// Input validates the form and builds the request body.
func (f *Form) Input() (*model.OptionInput, error) {
	name := strings.TrimSpace(f.Name)
	if name == "" {
		return nil, apperrors.ValidationErrors{apperrors.NewValidation("name", "name is required")}
	}
	desc := strings.TrimSpace(f.Description)
	order := model.ClampDisplayOrder(f.DisplayOrder)
	active := f.IsActive
	return &model.OptionInput{Name: name, Description: &desc, DisplayOrder: &order, IsActive: &active}, nil
}
