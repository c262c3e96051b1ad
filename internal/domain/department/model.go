package department

import "github.com/medapi/medapi/internal/platform/validation"

// Department maps to the departments table.
type Department struct {
	ID             int64  `db:"id" json:"id"`
	Name           string `db:"name" json:"name"`
	Diagnostics    string `db:"diagnostics" json:"diagnostics"`
	Location       string `db:"location" json:"location"`
	Specialization string `db:"specialization" json:"specialization"`
}

const maxFieldLen = 100

// Request is the body of POST, PUT and PATCH on departments. Nil fields are
// absent from the payload.
type Request struct {
	Name           *string `json:"name"`
	Diagnostics    *string `json:"diagnostics"`
	Location       *string `json:"location"`
	Specialization *string `json:"specialization"`
}

// Validate checks the payload. With partial set only supplied fields are
// checked.
func (r *Request) Validate(partial bool) error {
	errs := validation.Errors{}
	check := func(field string, v *string, max int) {
		if v == nil && partial {
			return
		}
		errs.Required(field, v)
		if v != nil && max > 0 {
			errs.MaxLength(field, *v, max)
		}
	}
	check("name", r.Name, maxFieldLen)
	check("diagnostics", r.Diagnostics, 0)
	check("location", r.Location, maxFieldLen)
	check("specialization", r.Specialization, maxFieldLen)
	return errs.Err()
}

// Apply copies the supplied fields onto d.
func (r *Request) Apply(d *Department) {
	if r.Name != nil {
		d.Name = *r.Name
	}
	if r.Diagnostics != nil {
		d.Diagnostics = *r.Diagnostics
	}
	if r.Location != nil {
		d.Location = *r.Location
	}
	if r.Specialization != nil {
		d.Specialization = *r.Specialization
	}
}

// TransferDoctorsRequest is the body of PUT /departments/{id}/doctors/.
type TransferDoctorsRequest struct {
	Doctors []int64 `json:"doctors"`
}

// TransferPatientsRequest is the body of PUT /departments/{id}/patients/.
type TransferPatientsRequest struct {
	Patients []int64 `json:"patients"`
}
