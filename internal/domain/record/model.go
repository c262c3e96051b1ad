package record

import (
	"time"

	"github.com/medapi/medapi/internal/platform/validation"
)

// Record maps to patient_records. DepartmentID and PatientUserID are read
// from the patient through a join and are never stored on the record.
type Record struct {
	ID            int64     `db:"id" json:"id"`
	PatientID     int64     `db:"patient_id" json:"patient"`
	DepartmentID  int64     `db:"department_id" json:"department"`
	PatientUserID int64     `db:"patient_user_id" json:"-"`
	CreatedDate   time.Time `db:"created_date" json:"created_date"`
	Diagnostics   string    `db:"diagnostics" json:"diagnostics"`
	Observations  string    `db:"observations" json:"observations"`
	Treatments    string    `db:"treatments" json:"treatments"`
	Misc          string    `db:"misc" json:"misc"`
}

// Request is the body of POST, PUT and PATCH on patient records. id and
// created_date are read-only and ignored when sent.
type Request struct {
	Patient      *int64  `json:"patient"`
	Department   *int64  `json:"department"`
	Diagnostics  *string `json:"diagnostics"`
	Observations *string `json:"observations"`
	Treatments   *string `json:"treatments"`
	Misc         *string `json:"misc"`
}

func (r *Request) validate(partial bool) error {
	errs := validation.Errors{}
	if r.Patient == nil && !partial {
		errs.Add("patient", validation.MsgRequired)
	}
	for _, f := range []struct {
		name string
		v    *string
	}{
		{"diagnostics", r.Diagnostics},
		{"observations", r.Observations},
		{"treatments", r.Treatments},
	} {
		if f.v == nil && partial {
			continue
		}
		errs.Required(f.name, f.v)
	}
	return errs.Err()
}

func (r *Request) apply(rec *Record) {
	if r.Patient != nil {
		rec.PatientID = *r.Patient
	}
	if r.Diagnostics != nil {
		rec.Diagnostics = *r.Diagnostics
	}
	if r.Observations != nil {
		rec.Observations = *r.Observations
	}
	if r.Treatments != nil {
		rec.Treatments = *r.Treatments
	}
	if r.Misc != nil {
		rec.Misc = *r.Misc
	}
}
