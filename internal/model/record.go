// Package model defines the core data types shared across the enrichment engine.
package model

// Field identifies a single enrichable attribute of an organisation record.
type Field string

const (
	FieldWebsite     Field = "website"
	FieldContactName Field = "contact_name"
	FieldPhone       Field = "phone"
	FieldEmail       Field = "email"
	FieldRegion      Field = "region"
	FieldCategory    Field = "category"
)

// ContactFields lists the high-risk contact fields in stable order.
var ContactFields = []Field{FieldWebsite, FieldContactName, FieldPhone, FieldEmail}

// AllFields lists every enrichable field in stable order.
var AllFields = []Field{FieldWebsite, FieldContactName, FieldPhone, FieldEmail, FieldRegion, FieldCategory}

// IsContact reports whether the field belongs to the high-risk contact class
// (stricter freshness and confidence rules apply).
func (f Field) IsContact() bool {
	switch f {
	case FieldWebsite, FieldContactName, FieldPhone, FieldEmail:
		return true
	}
	return false
}

// OrgStatus is the lifecycle status of an organisation record.
type OrgStatus string

const (
	StatusVerified    OrgStatus = "verified"
	StatusCandidate   OrgStatus = "candidate"
	StatusNeedsReview OrgStatus = "needs_review"
	StatusDuplicate   OrgStatus = "duplicate"
	StatusBlocked     OrgStatus = "blocked"
)

// Record is the current authoritative state of one organisation. It is
// mutated only by applying an admitted change or an explicit rollback.
type Record struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Region      string    `json:"region"`
	Category    string    `json:"category"`
	Status      OrgStatus `json:"status"`
	Website     string    `json:"website,omitempty"`
	ContactName string    `json:"contact_name,omitempty"`
	Phone       string    `json:"phone,omitempty"`
	Email       string    `json:"email,omitempty"`
}

// Get returns the current value of a field, or "" if unset.
func (r *Record) Get(f Field) string {
	switch f {
	case FieldWebsite:
		return r.Website
	case FieldContactName:
		return r.ContactName
	case FieldPhone:
		return r.Phone
	case FieldEmail:
		return r.Email
	case FieldRegion:
		return r.Region
	case FieldCategory:
		return r.Category
	}
	return ""
}

// Set assigns a field value. Unknown fields are ignored.
func (r *Record) Set(f Field, v string) {
	switch f {
	case FieldWebsite:
		r.Website = v
	case FieldContactName:
		r.ContactName = v
	case FieldPhone:
		r.Phone = v
	case FieldEmail:
		r.Email = v
	case FieldRegion:
		r.Region = v
	case FieldCategory:
		r.Category = v
	}
}

// ContactComplete reports whether every contact field is populated.
func (r *Record) ContactComplete() bool {
	for _, f := range ContactFields {
		if r.Get(f) == "" {
			return false
		}
	}
	return true
}

// Clone returns a copy of the record safe to mutate independently.
func (r *Record) Clone() Record {
	return *r
}
