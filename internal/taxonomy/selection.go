package taxonomy

// Field identifies which level of the hierarchy an edit touched.
type Field string

const (
	FieldDepartment Field = "department"
	FieldProgram    Field = "program"
	FieldYearLevel  Field = "yearLevel"
)

// Selection is a partially-filled hierarchy choice on an authoring form.
// YearLevels carries the multi-valued variant used by section advisers;
// single-subject forms use YearLevel and leave YearLevels nil.
type Selection struct {
	Department string   `json:"department"`
	Program    string   `json:"program"`
	YearLevel  string   `json:"yearLevel,omitempty"`
	YearLevels []string `json:"yearLevels,omitempty"`
	Section    string   `json:"section"`
}

// OnAncestorChanged applies an edit to one hierarchy field and prunes the
// descendants. Pruning is membership-based, not unconditional: a descendant
// value survives the edit exactly when it is still a member of its available
// set under the new ancestors. Multi-valued year levels are pruned by
// intersection. The input selection is not mutated.
func (t *Taxonomy) OnAncestorChanged(field Field, newValue string, sel Selection) Selection {
	next := sel
	next.YearLevels = append([]string(nil), sel.YearLevels...)

	switch field {
	case FieldDepartment:
		next.Department = newValue
	case FieldProgram:
		next.Program = newValue
	case FieldYearLevel:
		next.YearLevel = newValue
	default:
		return next
	}

	// Prune top-down so each check sees already-settled ancestors.
	if next.Program != "" && !contains(t.AvailablePrograms(next.Department), next.Program) {
		next.Program = ""
	}

	levels := t.AvailableYearLevels(next.Department)
	if next.YearLevel != "" && !contains(levels, next.YearLevel) {
		next.YearLevel = ""
	}
	if len(next.YearLevels) > 0 {
		next.YearLevels = intersect(next.YearLevels, levels)
	}

	if next.Section != "" {
		available := t.AvailableSections(next.Department, next.Program, next.YearLevel)
		if !contains(available, next.Section) {
			next.Section = ""
		}
	}

	return next
}

func intersect(values, allowed []string) []string {
	var out []string
	for _, v := range values {
		if contains(allowed, v) {
			out = append(out, v)
		}
	}
	return out
}
