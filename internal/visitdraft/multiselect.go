package visitdraft

import (
	"strings"

	"github.com/jwalitptl/opd-desk/internal/model"
)

// SplitCommaList parses free text such as "Fever, cough ,," into its
// trimmed, non-empty parts.
func SplitCommaList(text string) []string {
	return model.NormalizeList(strings.Split(text, ","))
}

// MultiSelect is a list field fed from a managed vocabulary and extensible
// with free text. Symptoms, diagnosis, observations and tests all use it.
type MultiSelect struct {
	Field     string
	reference []string
	chosen    []string
	custom    string
	parse     func(string) []string
	onChange  func()
}

// NewMultiSelect returns an empty field. A nil parse defaults to
// SplitCommaList.
func NewMultiSelect(field string, reference []string, parse func(string) []string) *MultiSelect {
	if parse == nil {
		parse = SplitCommaList
	}
	return &MultiSelect{Field: field, reference: reference, parse: parse}
}

func (m *MultiSelect) changed() {
	if m.onChange != nil {
		m.onChange()
	}
}

func (m *MultiSelect) SetReference(names []string) {
	m.reference = names
}

func (m *MultiSelect) contains(name string) bool {
	for _, c := range m.chosen {
		if c == name {
			return true
		}
	}
	return false
}

// Available lists the reference entries not chosen yet.
func (m *MultiSelect) Available() []string {
	out := make([]string, 0, len(m.reference))
	for _, r := range m.reference {
		if !m.contains(r) {
			out = append(out, r)
		}
	}
	return out
}

// Add chooses name. Blank and already-chosen names are ignored.
func (m *MultiSelect) Add(name string) bool {
	name = strings.TrimSpace(name)
	if name == "" || m.contains(name) {
		return false
	}
	m.chosen = append(m.chosen, name)
	m.changed()
	return true
}

func (m *MultiSelect) Remove(name string) bool {
	for i, c := range m.chosen {
		if c == name {
			m.chosen = append(m.chosen[:i:i], m.chosen[i+1:]...)
			m.changed()
			return true
		}
	}
	return false
}

// SetCustom replaces the free-text part of the field.
func (m *MultiSelect) SetCustom(text string) {
	m.custom = text
	m.changed()
}

func (m *MultiSelect) Custom() string {
	return m.custom
}

func (m *MultiSelect) Chosen() []string {
	return append([]string(nil), m.chosen...)
}

// Values is the chosen entries followed by the parsed custom text, without
// repeats.
func (m *MultiSelect) Values() []string {
	all := append(m.Chosen(), m.parse(m.custom)...)
	return model.NormalizeList(all)
}

// Empty reports whether the field would submit nothing.
func (m *MultiSelect) Empty() bool {
	return len(m.Values()) == 0
}

// Reset replaces the chosen entries and clears the custom text without
// marking the field as changed.
func (m *MultiSelect) Reset(values []string) {
	m.chosen = model.NormalizeList(values)
	m.custom = ""
}
