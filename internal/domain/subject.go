package domain

import "fmt"

// Role discriminates the subject payload carried by a submission.
type Role string

const (
	RoleStudent Role = "STUDENT"
	RoleFaculty Role = "FACULTY"
	RoleAlumni  Role = "ALUMNI"
	RoleStaff   Role = "STAFF"
	RoleUtility Role = "UTILITY"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleFaculty, RoleAlumni, RoleStaff, RoleUtility:
		return true
	}
	return false
}

// Subject is a tagged variant: the Role selects which payload pointer is
// set, and exactly one must be non-nil. One loosely-typed profile object
// with universally-optional fields is deliberately not modeled.
type Subject struct {
	Role Role `json:"role"`

	Student *StudentProfile `json:"student,omitempty"`
	Faculty *FacultyProfile `json:"faculty,omitempty"`
	Alumni  *AlumniProfile  `json:"alumni,omitempty"`
	Staff   *StaffProfile   `json:"staff,omitempty"`
	Utility *UtilityProfile `json:"utility,omitempty"`
}

// StudentProfile is the payload for student submissions. The academic
// placement fields are validated against the period's taxonomy by the
// hierarchy resolver at authoring time.
type StudentProfile struct {
	FullName   string `json:"full_name"`
	Department string `json:"department"`
	Program    string `json:"program"`
	YearLevel  string `json:"year_level"`
	Section    string `json:"section"`
	Quote      string `json:"quote,omitempty"`
	Honors     string `json:"honors,omitempty"`
}

// FacultyProfile is the payload for faculty submissions.
type FacultyProfile struct {
	FullName       string   `json:"full_name"`
	Department     string   `json:"department"`
	Position       string   `json:"position"`
	YearsOfService int      `json:"years_of_service,omitempty"`
	Subjects       []string `json:"subjects,omitempty"`
}

// AlumniProfile is the payload for alumni submissions.
type AlumniProfile struct {
	FullName       string `json:"full_name"`
	GraduationYear int    `json:"graduation_year"`
	Program        string `json:"program"`
	CurrentWork    string `json:"current_work,omitempty"`
	Message        string `json:"message,omitempty"`
}

// StaffProfile is the payload for non-teaching staff submissions.
type StaffProfile struct {
	FullName string `json:"full_name"`
	Office   string `json:"office"`
	Position string `json:"position"`
}

// UtilityProfile is the payload for utility personnel submissions.
type UtilityProfile struct {
	FullName   string `json:"full_name"`
	Assignment string `json:"assignment"`
}

// Validate enforces that the role tag matches exactly one payload.
func (s Subject) Validate() error {
	if !s.Role.Valid() {
		return fmt.Errorf("unknown subject role %q", s.Role)
	}

	set := 0
	if s.Student != nil {
		set++
	}
	if s.Faculty != nil {
		set++
	}
	if s.Alumni != nil {
		set++
	}
	if s.Staff != nil {
		set++
	}
	if s.Utility != nil {
		set++
	}
	if set != 1 {
		return fmt.Errorf("subject role %s: exactly one payload must be set, got %d", s.Role, set)
	}

	var match bool
	switch s.Role {
	case RoleStudent:
		match = s.Student != nil
	case RoleFaculty:
		match = s.Faculty != nil
	case RoleAlumni:
		match = s.Alumni != nil
	case RoleStaff:
		match = s.Staff != nil
	case RoleUtility:
		match = s.Utility != nil
	}
	if !match {
		return fmt.Errorf("subject payload does not match role %s", s.Role)
	}
	return nil
}

// DisplayName returns the person's name regardless of role.
func (s Subject) DisplayName() string {
	switch {
	case s.Student != nil:
		return s.Student.FullName
	case s.Faculty != nil:
		return s.Faculty.FullName
	case s.Alumni != nil:
		return s.Alumni.FullName
	case s.Staff != nil:
		return s.Staff.FullName
	case s.Utility != nil:
		return s.Utility.FullName
	}
	return ""
}
