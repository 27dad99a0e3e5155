// Package taxonomy implements the academic hierarchy resolver: the
// department → program → year-level → section cross-product used while
// authoring a submission. A loaded taxonomy is immutable; every resolver
// call re-derives from it, so a taxonomy refresh can never leave a stale
// branch cached anywhere.
package taxonomy

import (
	"fmt"
	"sort"
)

// Taxonomy is the read-only hierarchy for one review period.
type Taxonomy struct {
	periodID    string
	programs    map[string][]string // department → programs
	yearLevels  map[string][]string // department → year levels
	sections    map[tripleKey][]string
	departments []string
}

type tripleKey struct {
	department string
	program    string
	yearLevel  string
}

// Department describes one department's registrations in a taxonomy
// document. Sections are registered per exact (program, yearLevel) pair.
type Department struct {
	Name       string         `json:"name" yaml:"name"`
	Programs   []string       `json:"programs" yaml:"programs"`
	YearLevels []string       `json:"year_levels" yaml:"year_levels"`
	Sections   []SectionGroup `json:"sections" yaml:"sections"`
}

// SectionGroup registers the sections for one (program, yearLevel) pair.
type SectionGroup struct {
	Program   string   `json:"program" yaml:"program"`
	YearLevel string   `json:"year_level" yaml:"year_level"`
	Sections  []string `json:"sections" yaml:"sections"`
}

// Document is the wire/file shape a taxonomy is built from.
type Document struct {
	PeriodID    string       `json:"period_id" yaml:"period_id"`
	Departments []Department `json:"departments" yaml:"departments"`
}

// New builds an immutable Taxonomy from a document.
func New(doc Document) (*Taxonomy, error) {
	if doc.PeriodID == "" {
		return nil, fmt.Errorf("taxonomy document has no period id")
	}

	t := &Taxonomy{
		periodID:   doc.PeriodID,
		programs:   make(map[string][]string),
		yearLevels: make(map[string][]string),
		sections:   make(map[tripleKey][]string),
	}

	for _, dept := range doc.Departments {
		if dept.Name == "" {
			return nil, fmt.Errorf("taxonomy %s: department with empty name", doc.PeriodID)
		}
		if _, dup := t.programs[dept.Name]; dup {
			return nil, fmt.Errorf("taxonomy %s: duplicate department %q", doc.PeriodID, dept.Name)
		}

		t.departments = append(t.departments, dept.Name)
		t.programs[dept.Name] = dedupeSorted(dept.Programs)
		t.yearLevels[dept.Name] = dedupeSorted(dept.YearLevels)

		for _, group := range dept.Sections {
			key := tripleKey{department: dept.Name, program: group.Program, yearLevel: group.YearLevel}
			if _, dup := t.sections[key]; dup {
				return nil, fmt.Errorf("taxonomy %s: duplicate section group %s/%s/%s",
					doc.PeriodID, dept.Name, group.Program, group.YearLevel)
			}
			t.sections[key] = dedupeSorted(group.Sections)
		}
	}

	sort.Strings(t.departments)
	return t, nil
}

// PeriodID returns the review period the taxonomy was loaded for.
func (t *Taxonomy) PeriodID() string { return t.periodID }

// Departments returns all registered departments, sorted.
func (t *Taxonomy) Departments() []string {
	return append([]string(nil), t.departments...)
}

// AvailablePrograms returns the distinct programs under a department.
// Empty department yields an empty set.
func (t *Taxonomy) AvailablePrograms(department string) []string {
	if department == "" {
		return nil
	}
	return append([]string(nil), t.programs[department]...)
}

// AvailableYearLevels returns the distinct year levels under a department.
func (t *Taxonomy) AvailableYearLevels(department string) []string {
	if department == "" {
		return nil
	}
	return append([]string(nil), t.yearLevels[department]...)
}

// AvailableSections returns the section set registered for the exact
// (department, program, yearLevel) triple; empty if any ancestor is missing.
func (t *Taxonomy) AvailableSections(department, program, yearLevel string) []string {
	if department == "" || program == "" || yearLevel == "" {
		return nil
	}
	key := tripleKey{department: department, program: program, yearLevel: yearLevel}
	return append([]string(nil), t.sections[key]...)
}

func dedupeSorted(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	var out []string
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func contains(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}
