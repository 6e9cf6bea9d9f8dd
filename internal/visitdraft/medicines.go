package visitdraft

import (
	"fmt"
	"strings"

	"github.com/jwalitptl/opd-desk/internal/model"
	apperrors "github.com/jwalitptl/opd-desk/pkg/errors"
)

// MedicineEditor holds the prescription lines of a draft. Names are free
// text; dosage and duration must come from their reference lists or stay
// blank. A nil reference list accepts any value.
type MedicineEditor struct {
	lines     []model.MedicineLine
	names     []string
	dosages   []string
	durations []string
	onChange  func()
}

func (e *MedicineEditor) changed() {
	if e.onChange != nil {
		e.onChange()
	}
}

func (e *MedicineEditor) SetReference(names, dosages, durations []string) {
	e.names, e.dosages, e.durations = names, dosages, durations
}

// Add appends a blank line and returns its index.
func (e *MedicineEditor) Add() int {
	e.lines = append(e.lines, model.MedicineLine{})
	e.changed()
	return len(e.lines) - 1
}

func (e *MedicineEditor) Remove(i int) error {
	if i < 0 || i >= len(e.lines) {
		return fmt.Errorf("no medicine line %d", i+1)
	}
	e.lines = append(e.lines[:i:i], e.lines[i+1:]...)
	e.changed()
	return nil
}

func allowed(value string, list []string) bool {
	if value == "" || list == nil {
		return true
	}
	for _, v := range list {
		if v == value {
			return true
		}
	}
	return false
}

// check trims line and rejects dosage or duration values missing from the
// reference lists.
func (e *MedicineEditor) check(line model.MedicineLine) (model.MedicineLine, error) {
	line.MedicineName = strings.TrimSpace(line.MedicineName)
	line.Dosage = strings.TrimSpace(line.Dosage)
	line.Duration = strings.TrimSpace(line.Duration)

	var errs apperrors.ValidationErrors
	if !allowed(line.Dosage, e.dosages) {
		errs = append(errs, apperrors.NewValidation("dosage", fmt.Sprintf("unknown dosage %q", line.Dosage)))
	}
	if !allowed(line.Duration, e.durations) {
		errs = append(errs, apperrors.NewValidation("duration", fmt.Sprintf("unknown duration %q", line.Duration)))
	}
	if len(errs) > 0 {
		return line, errs
	}
	return line, nil
}

// Set replaces line i.
func (e *MedicineEditor) Set(i int, line model.MedicineLine) error {
	if i < 0 || i >= len(e.lines) {
		return fmt.Errorf("no medicine line %d", i+1)
	}
	line, err := e.check(line)
	if err != nil {
		return err
	}
	e.lines[i] = line
	e.changed()
	return nil
}

// Append adds a filled line in one step. A rejected line leaves the editor
// untouched.
func (e *MedicineEditor) Append(line model.MedicineLine) error {
	line, err := e.check(line)
	if err != nil {
		return err
	}
	e.lines = append(e.lines, line)
	e.changed()
	return nil
}

func (e *MedicineEditor) Lines() []model.MedicineLine {
	return append([]model.MedicineLine(nil), e.lines...)
}

// Named returns the lines that would be submitted.
func (e *MedicineEditor) Named() []model.MedicineLine {
	out := make([]model.MedicineLine, 0, len(e.lines))
	for _, l := range e.lines {
		if strings.TrimSpace(l.MedicineName) != "" {
			out = append(out, l)
		}
	}
	return out
}

// Suggest returns medicine names starting with prefix, case-insensitively.
func (e *MedicineEditor) Suggest(prefix string) []string {
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	var out []string
	for _, n := range e.names {
		if strings.HasPrefix(strings.ToLower(n), prefix) {
			out = append(out, n)
		}
	}
	return out
}

func (e *MedicineEditor) reset(meds []model.VisitMedicine) {
	e.lines = make([]model.MedicineLine, 0, len(meds))
	for _, m := range meds {
		e.lines = append(e.lines, model.MedicineLine{MedicineName: m.MedicineName, Dosage: m.Dosage, Duration: m.Duration})
	}
}
