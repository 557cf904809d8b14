// Package triangulate merges the findings gathered for one subject into a
// single candidate change, resolving field-level conflicts conservatively.
package triangulate

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/sells-group/enrich-cli/internal/model"
	"github.com/sells-group/enrich-cli/internal/normalize"
)

// Options tunes triangulation.
type Options struct {
	// Categories is the closed value set for the category field.
	Categories []string
	// Regions is the closed value set for the region field.
	Regions []string
}

// contribution is one finding's claim for a single field, with the value
// canonicalized for comparison.
type contribution struct {
	finding *model.Finding
	raw     string
	canon   string
}

// Merge combines all findings for one record into a CandidateChange.
// Fields nobody claims, or that every claimant agrees already match the
// record, stay unchanged. The overall confidence is the minimum of the
// winning per-field confidences so a weak field cannot hide behind a
// strong one.
func Merge(record *model.Record, findings []model.Finding, opts Options) model.CandidateChange {
	change := model.CandidateChange{
		OrgID:  record.ID,
		Fields: make(map[model.Field]string),
	}

	seenSources := make(map[string]bool)
	overall := -1.0

	for _, field := range model.AllFields {
		contribs := collect(field, findings, opts)
		if len(contribs) == 0 {
			continue
		}

		winner, note := resolve(field, contribs)
		if winner == nil {
			if note != "" {
				change.Notes = append(change.Notes, note)
			}
			continue
		}

		// Agreement with the record's current value is not a change.
		current := canonicalize(field, record.Get(field), opts)
		if current != "" && current == winner.canon {
			continue
		}

		proposed := winner.canon
		if proposed == "" {
			proposed = winner.raw
		}
		change.Fields[field] = proposed

		// Union the sources and confidence of every claimant that agrees
		// with the winning value.
		fieldConf := -1.0
		for _, c := range contribs {
			if c.canon != winner.canon {
				continue
			}
			if c.finding.Confidence > fieldConf {
				fieldConf = c.finding.Confidence
			}
			if c.finding.Fresh {
				change.Fresh = true
			}
			for _, s := range c.finding.Sources {
				id := normalize.CanonicalSource(s.URL)
				if id == "" || seenSources[id] {
					continue
				}
				seenSources[id] = true
				change.Sources = append(change.Sources, s)
			}
		}

		if overall < 0 || fieldConf < overall {
			overall = fieldConf
		}
	}

	if overall < 0 {
		overall = 0
	}
	change.Confidence = overall

	sort.Slice(change.Sources, func(i, j int) bool {
		return change.Sources[i].URL < change.Sources[j].URL
	})

	detectIdentityChange(record, &change)
	return change
}

// collect gathers the non-null claims for one field, canonicalized.
func collect(field model.Field, findings []model.Finding, opts Options) []contribution {
	var contribs []contribution
	for i := range findings {
		f := &findings[i]
		raw, ok := f.Values[field]
		if !ok || raw == "" {
			continue
		}
		contribs = append(contribs, contribution{
			finding: f,
			raw:     raw,
			canon:   canonicalize(field, raw, opts),
		})
	}
	return contribs
}

// resolve picks the winning claim for a field, or nil with a conflict note
// when the disagreement cannot be broken.
func resolve(field model.Field, contribs []contribution) (*contribution, string) {
	if len(contribs) == 1 {
		return &contribs[0], ""
	}

	// Check agreement after normalization.
	agreed := true
	for i := 1; i < len(contribs); i++ {
		if contribs[i].canon != contribs[0].canon {
			agreed = false
			break
		}
	}
	if agreed {
		best := &contribs[0]
		for i := range contribs {
			if contribs[i].finding.Confidence > best.finding.Confidence {
				best = &contribs[i]
			}
		}
		return best, ""
	}

	// Disagreement: strictly higher confidence wins.
	best := &contribs[0]
	tied := false
	for i := 1; i < len(contribs); i++ {
		c := &contribs[i]
		switch {
		case c.finding.Confidence > best.finding.Confidence:
			best = c
			tied = false
		case c.finding.Confidence == best.finding.Confidence && c.canon != best.canon:
			tied = true
		}
	}
	if !tied {
		return best, ""
	}

	// Tie: prefer the claim backed by an official source.
	var official *contribution
	for i := range contribs {
		c := &contribs[i]
		if c.finding.Confidence == best.finding.Confidence && c.finding.HasOfficialSource() {
			if official != nil && official.canon != c.canon {
				official = nil // officials disagree too
				break
			}
			if official == nil {
				official = c
			}
		}
	}
	if official != nil {
		return official, ""
	}

	// Unresolvable: leave the field unchanged rather than guess.
	note := fmt.Sprintf("conflict on %s: %d providers disagree at confidence %.0f", field, len(contribs), best.finding.Confidence)
	zap.L().Info("triangulate: unresolved field conflict",
		zap.String("field", string(field)),
		zap.Int("claims", len(contribs)),
	)
	return nil, note
}

// canonicalize reduces a field value to its comparison form. Values the
// normalizer rejects keep their raw form; the quality gate is the place
// that turns invalid formats into rejections.
func canonicalize(field model.Field, value string, opts Options) string {
	if value == "" {
		return ""
	}
	var canon string
	var err error
	switch field {
	case model.FieldWebsite:
		canon, err = normalize.Website(value)
	case model.FieldPhone:
		canon, err = normalize.Phone(value)
	case model.FieldEmail:
		canon, err = normalize.Email(value)
	case model.FieldContactName:
		canon = normalize.Name(value)
	case model.FieldCategory:
		canon, err = normalize.Category(value, opts.Categories)
	case model.FieldRegion:
		canon, err = normalize.Category(value, opts.Regions)
	default:
		canon = value
	}
	if err != nil || canon == "" {
		return value
	}
	return canon
}

// detectIdentityChange flags a proposed website whose domain differs from
// the record's current one. This does not block the gate by itself; it is
// surfaced to the decision and the evidence log for investigation.
func detectIdentityChange(record *model.Record, change *model.CandidateChange) {
	proposed, ok := change.Fields[model.FieldWebsite]
	if !ok || record.Website == "" {
		return
	}
	oldDomain := normalize.Domain(record.Website)
	newDomain := normalize.Domain(proposed)
	if oldDomain == "" || newDomain == "" || oldDomain == newDomain {
		return
	}
	change.IdentityChange = true
	change.Notes = append(change.Notes,
		fmt.Sprintf("possible rebrand: website domain %s -> %s, investigate before trusting contact details", oldDomain, newDomain))
}
