package model

// Source identifies one piece of supporting evidence behind a Finding.
type Source struct {
	URL string `json:"url"`
	// Official marks regulatory/authoritative sources (company registries,
	// government filings) as tagged by the originating provider.
	Official bool `json:"official"`
}

// Finding is a single provider's claim about one organisation. Immutable
// once produced; consumed only by the triangulator.
type Finding struct {
	Provider   string           `json:"provider"`
	Values     map[Field]string `json:"values"`
	Sources    []Source         `json:"sources"`
	Confidence float64          `json:"confidence"` // 0-100
	// Fresh is true when the claim was corroborated independently of the
	// record's pre-existing evidence, not merely re-derived from it.
	Fresh bool   `json:"fresh"`
	Notes string `json:"notes,omitempty"`
}

// HasOfficialSource reports whether any source carries the official tag.
func (f *Finding) HasOfficialSource() bool {
	for _, s := range f.Sources {
		if s.Official {
			return true
		}
	}
	return false
}

// CandidateChange is the triangulator's merged proposal for one record.
// It exists only transiently between triangulation and the quality gate.
type CandidateChange struct {
	OrgID          string           `json:"org_id"`
	Fields         map[Field]string `json:"fields"`
	Sources        []Source         `json:"sources"`
	Confidence     float64          `json:"confidence"`
	Fresh          bool             `json:"fresh"`
	IdentityChange bool             `json:"identity_change"`
	Notes          []string         `json:"notes,omitempty"`
}

// HasChanges reports whether any field value is proposed.
func (c *CandidateChange) HasChanges() bool {
	return len(c.Fields) > 0
}

// TouchesContact reports whether the change proposes any contact-field value.
func (c *CandidateChange) TouchesContact() bool {
	for f := range c.Fields {
		if f.IsContact() {
			return true
		}
	}
	return false
}
