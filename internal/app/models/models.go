package models

// Role is the account type chosen at registration.
type Role string

const (
	RoleStudent Role = "student"
	RoleWriter  Role = "writer"
	// RoleDisabled is a student with a disability. It carries the same
	// permissions as RoleStudent everywhere.
	RoleDisabled Role = "disabled"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleWriter, RoleDisabled:
		return true
	}
	return false
}

// IsStudent reports whether r acts as a student.
func (r Role) IsStudent() bool {
	return r == RoleStudent || r == RoleDisabled
}

// IsWriter reports whether r acts as a writer.
func (r Role) IsWriter() bool {
	return r == RoleWriter
}

// Canonical folds aliases onto the role used for permission checks.
func (r Role) Canonical() Role {
	if r == RoleDisabled {
		return RoleStudent
	}
	return r
}
