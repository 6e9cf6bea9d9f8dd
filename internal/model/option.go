package model

import (
	"strings"

	"github.com/google/uuid"
)

// OptionCategory names one managed vocabulary.
type OptionCategory string

const (
	CategoryChiefComplaint OptionCategory = "chief_complaint"
	CategorySymptom        OptionCategory = "symptom"
	CategoryDiagnosis      OptionCategory = "diagnosis"
	CategoryObservation    OptionCategory = "observation"
	CategoryTest           OptionCategory = "test"
	CategoryMedicine       OptionCategory = "medicine"
	CategoryDosage         OptionCategory = "dosage"
	CategoryDuration       OptionCategory = "duration"
)

var categoryPaths = map[OptionCategory]string{
	CategoryChiefComplaint: "/chief-complaints",
	CategorySymptom:        "/symptom-options",
	CategoryDiagnosis:      "/diagnosis-options",
	CategoryObservation:    "/observation-options",
	CategoryTest:           "/test-options",
	CategoryMedicine:       "/medicine-options",
	CategoryDosage:         "/dosage-options",
	CategoryDuration:       "/duration-options",
}

var categoryLabels = map[OptionCategory]string{
	CategoryChiefComplaint: "Chief Complaints",
	CategorySymptom:        "Symptoms",
	CategoryDiagnosis:      "Diagnoses",
	CategoryObservation:    "Observations",
	CategoryTest:           "Tests",
	CategoryMedicine:       "Medicines",
	CategoryDosage:         "Dosages",
	CategoryDuration:       "Durations",
}

// AllCategories lists the categories in settings-screen order.
func AllCategories() []OptionCategory {
	return []OptionCategory{
		CategoryChiefComplaint, CategorySymptom, CategoryDiagnosis, CategoryObservation,
		CategoryTest, CategoryMedicine, CategoryDosage, CategoryDuration,
	}
}

func (c OptionCategory) Valid() bool {
	_, ok := categoryPaths[c]
	return ok
}

// Path is the REST collection path for the category.
func (c OptionCategory) Path() string {
	return categoryPaths[c]
}

func (c OptionCategory) Label() string {
	return categoryLabels[c]
}

// ParseCategory accepts a category name, its path, or a loose alias such as
// "symptoms" or "chief-complaints".
func ParseCategory(s string) (OptionCategory, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimPrefix(s, "/")
	for c, p := range categoryPaths {
		if s == string(c) || s == strings.TrimPrefix(p, "/") {
			return c, true
		}
	}
	alias := strings.TrimSuffix(strings.ReplaceAll(s, "-", "_"), "s")
	alias = strings.TrimSuffix(alias, "_option")
	for c := range categoryPaths {
		if alias == string(c) {
			return c, true
		}
	}
	if alias == "diagnose" || alias == "diagnosi" {
		return CategoryDiagnosis, true
	}
	return "", false
}

const (
	MinDisplayOrder = 1
	MaxDisplayOrder = 999
)

// ClampDisplayOrder forces n into [1, 999].
func ClampDisplayOrder(n int) int {
	return clamp(n, MinDisplayOrder, MaxDisplayOrder)
}

// ReferenceOption is one entry of a managed vocabulary. Inactive options are
// hidden from new selections but kept for historical display.
type ReferenceOption struct {
	Base
	ClinicID     uuid.UUID      `db:"clinic_id" json:"-"`
	Category     OptionCategory `db:"category" json:"category"`
	Name         string         `db:"name" json:"name"`
	Description  string         `db:"description" json:"description"`
	DisplayOrder int            `db:"display_order" json:"display_order"`
	IsActive     bool           `db:"is_active" json:"is_active"`
}

// OptionInput is the create/update body for every category.
type OptionInput struct {
	Name         string  `json:"name" binding:"required,notblank,max=200"`
	Description  *string `json:"description"`
	DisplayOrder *int    `json:"display_order"`
	IsActive     *bool   `json:"is_active"`
}

// OptionNames returns the names of opts in order.
func OptionNames(opts []*ReferenceOption) []string {
	names := make([]string, 0, len(opts))
	for _, o := range opts {
		names = append(names, o.Name)
	}
	return names
}
