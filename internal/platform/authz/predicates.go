package authz

import "errors"

// ErrForbidden is returned when an authenticated principal is denied.
var ErrForbidden = errors.New("you do not have permission to perform this action")

// OwnedEntity is a doctor or patient profile.
type OwnedEntity interface {
	OwnerUserID() int64
	OwnerDepartmentID() int64
}

func IsDoctor(p Principal) bool {
	return p.Authenticated && p.Role == RoleDoctor
}

func IsPatient(p Principal) bool {
	return p.Authenticated && p.Role == RolePatient
}

func IsSuperuser(p Principal) bool {
	return p.Authenticated && p.Role == RoleSuperuser
}

// inDepartment reports whether p's profile belongs to deptID.
func inDepartment(p Principal, deptID int64) bool {
	return p.DepartmentID != nil && *p.DepartmentID == deptID
}

// CanAccessOwnedEntity is the object-level check for doctor and patient
// profiles. Call it only after the entity was found.
func CanAccessOwnedEntity(p Principal, e OwnedEntity) bool {
	switch {
	case IsSuperuser(p):
		return true
	case IsDoctor(p):
		return inDepartment(p, e.OwnerDepartmentID())
	case IsPatient(p):
		return e.OwnerUserID() == p.UserID
	}
	return false
}

// CanListDoctors gates GET/POST on the doctors collection.
func CanListDoctors(p Principal) bool {
	return IsSuperuser(p) || IsDoctor(p)
}

// CanReadRecord reports whether p may read a record belonging to a patient
// whose user is patientUserID, in department deptID.
func CanReadRecord(p Principal, deptID, patientUserID int64) bool {
	switch {
	case IsSuperuser(p):
		return true
	case IsDoctor(p):
		return inDepartment(p, deptID)
	case IsPatient(p):
		return patientUserID == p.UserID
	}
	return false
}

// CanWriteRecord reports whether p may create, change or delete records in
// department deptID. Patients read their records but never author them.
func CanWriteRecord(p Principal, deptID int64) bool {
	return IsSuperuser(p) || (IsDoctor(p) && inDepartment(p, deptID))
}

// CanManageDepartment gates membership changes on a department.
func CanManageDepartment(p Principal, deptID int64) bool {
	return IsSuperuser(p) || (IsDoctor(p) && inDepartment(p, deptID))
}

// CanAdministerDepartments gates department create, update and delete.
func CanAdministerDepartments(p Principal) bool {
	return IsSuperuser(p)
}

// CanListDepartmentDoctors gates the doctors listing under a department.
func CanListDepartmentDoctors(p Principal, deptID int64) bool {
	switch {
	case IsSuperuser(p), IsDoctor(p):
		return true
	case IsPatient(p):
		return inDepartment(p, deptID)
	}
	return false
}

// CanListDepartmentPatients gates the patients listing under a department.
func CanListDepartmentPatients(p Principal, deptID int64) bool {
	return CanManageDepartment(p, deptID)
}
