package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/jwalitptl/opd-desk/internal/model"
	"github.com/jwalitptl/opd-desk/internal/queue"
)

// resolvePatient accepts a patient id, a patient code or a search term that
// matches exactly one patient.
func (a *app) resolvePatient(ctx context.Context, ref string) (uuid.UUID, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return uuid.Nil, nil
	}
	if id, err := uuid.Parse(ref); err == nil {
		return id, nil
	}
	found, err := a.client.SearchPatients(ctx, ref, model.Pagination{Limit: 10})
	if err != nil {
		return uuid.Nil, err
	}
	for _, p := range found {
		if strings.EqualFold(p.PatientCode, ref) {
			return p.ID, nil
		}
	}
	switch len(found) {
	case 0:
		return uuid.Nil, fmt.Errorf("no patient matches %q", ref)
	case 1:
		return found[0].ID, nil
	}
	names := make([]string, 0, len(found))
	for _, p := range found {
		names = append(names, p.FullName+" ("+p.PatientCode+")")
	}
	return uuid.Nil, fmt.Errorf("%q matches several patients: %s", ref, strings.Join(names, ", "))
}

// resolveEntry accepts an appointment id, a unique id prefix or a queue
// number from the loaded day.
func resolveEntry(snap queue.Snapshot, ref string) (uuid.UUID, error) {
	ref = strings.TrimPrefix(strings.TrimSpace(ref), "#")
	if id, err := uuid.Parse(ref); err == nil {
		return id, nil
	}
	if n, err := strconv.Atoi(ref); err == nil {
		for _, e := range snap.Entries {
			if e.QueueNumber == n {
				return e.ID, nil
			}
		}
		return uuid.Nil, fmt.Errorf("no queue entry #%d on %s", n, snap.Date)
	}
	var match []uuid.UUID
	for _, e := range snap.Entries {
		if strings.HasPrefix(e.ID.String(), strings.ToLower(ref)) {
			match = append(match, e.ID)
		}
	}
	if len(match) != 1 {
		return uuid.Nil, fmt.Errorf("%q does not identify one queue entry", ref)
	}
	return match[0], nil
}

// resolveOption accepts an option id, a unique id prefix or its name.
func resolveOption(opts []*model.ReferenceOption, ref string) (uuid.UUID, error) {
	ref = strings.TrimSpace(ref)
	if id, err := uuid.Parse(ref); err == nil {
		return id, nil
	}
	var match []uuid.UUID
	for _, o := range opts {
		if strings.EqualFold(o.Name, ref) {
			return o.ID, nil
		}
		if strings.HasPrefix(o.ID.String(), strings.ToLower(ref)) {
			match = append(match, o.ID)
		}
	}
	if len(match) != 1 {
		return uuid.Nil, fmt.Errorf("%q does not identify one option", ref)
	}
	return match[0], nil
}

// parseDate accepts YYYY-MM-DD, "today", "tomorrow" or "+N" days.
func parseDate(s string) (model.Date, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch {
	case s == "" || s == "today":
		return model.Today(), nil
	case s == "tomorrow":
		return model.Today().AddDays(1), nil
	case strings.HasPrefix(s, "+"):
		n, err := strconv.Atoi(s[1:])
		if err != nil || n < 0 {
			return model.Date{}, fmt.Errorf("invalid day offset %q", s)
		}
		return model.Today().AddDays(n), nil
	}
	return model.ParseDate(s)
}
