package authz

import (
	"fmt"
	"strconv"
)

// ScopeKind says which rows of a collection a principal may see.
type ScopeKind int

const (
	// ScopeNone matches nothing.
	ScopeNone ScopeKind = iota
	// ScopeAll matches every row.
	ScopeAll
	// ScopeDepartment matches rows in DepartmentID.
	ScopeDepartment
	// ScopeOwner matches rows owned by UserID.
	ScopeOwner
)

func (k ScopeKind) String() string {
	switch k {
	case ScopeNone:
		return "none"
	case ScopeAll:
		return "all"
	case ScopeDepartment:
		return "department"
	case ScopeOwner:
		return "owner"
	}
	return "ScopeKind(" + strconv.Itoa(int(k)) + ")"
}

// Scope is a collection filter computed from a principal.
type Scope struct {
	Kind         ScopeKind
	DepartmentID int64
	UserID       int64
}

func (s Scope) String() string {
	switch s.Kind {
	case ScopeDepartment:
		return fmt.Sprintf("department(%d)", s.DepartmentID)
	case ScopeOwner:
		return fmt.Sprintf("owner(%d)", s.UserID)
	}
	return s.Kind.String()
}

var (
	all  = Scope{Kind: ScopeAll}
	none = Scope{Kind: ScopeNone}
)

// DoctorScope: superusers and doctors see every doctor.
func DoctorScope(p Principal) Scope {
	if CanListDoctors(p) {
		return all
	}
	return none
}

// PatientScope: superusers and doctors see every patient, a patient sees
// their own profile.
func PatientScope(p Principal) Scope {
	switch {
	case IsSuperuser(p), IsDoctor(p):
		return all
	case IsPatient(p):
		return Scope{Kind: ScopeOwner, UserID: p.UserID}
	}
	return none
}

// RecordScope: superusers see every record, doctors see their department's
// records, patients see their own.
func RecordScope(p Principal) Scope {
	switch {
	case IsSuperuser(p):
		return all
	case IsDoctor(p):
		if p.DepartmentID == nil {
			return none
		}
		return Scope{Kind: ScopeDepartment, DepartmentID: *p.DepartmentID}
	case IsPatient(p):
		return Scope{Kind: ScopeOwner, UserID: p.UserID}
	}
	return none
}

// DepartmentScope: the department directory is public.
func DepartmentScope(Principal) Scope {
	return all
}
