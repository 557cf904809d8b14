package triangulate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/enrich-cli/internal/model"
)

func rec(id string) *model.Record {
	return &model.Record{ID: id, Name: "Acme Plumbing", Status: model.StatusCandidate}
}

func TestMerge_SingleClaimWins(t *testing.T) {
	findings := []model.Finding{
		{
			Provider:   "chamber",
			Values:     map[model.Field]string{model.FieldWebsite: "Acme.example.com/"},
			Sources:    []model.Source{{URL: "https://chamber.example.com/acme"}},
			Confidence: 80,
		},
	}

	change := Merge(rec("org-1"), findings, Options{})
	assert.Equal(t, "https://acme.example.com", change.Fields[model.FieldWebsite])
	assert.Equal(t, 80.0, change.Confidence)
	require.Len(t, change.Sources, 1)
}

func TestMerge_AgreementTakesMaxConfidence(t *testing.T) {
	findings := []model.Finding{
		{
			Provider:   "chamber",
			Values:     map[model.Field]string{model.FieldPhone: "(555) 123-4567"},
			Sources:    []model.Source{{URL: "https://chamber.example.com/acme"}},
			Confidence: 70,
		},
		{
			Provider:   "registry",
			Values:     map[model.Field]string{model.FieldPhone: "+1 555 123 4567"},
			Sources:    []model.Source{{URL: "https://registry.example.gov/acme", Official: true}},
			Confidence: 90,
		},
	}

	change := Merge(rec("org-1"), findings, Options{})
	assert.Equal(t, "+15551234567", change.Fields[model.FieldPhone])
	assert.Equal(t, 90.0, change.Confidence)
	assert.Len(t, change.Sources, 2, "agreeing claimants pool their sources")
}

func TestMerge_DisagreementHigherConfidenceWins(t *testing.T) {
	findings := []model.Finding{
		{
			Provider:   "chamber",
			Values:     map[model.Field]string{model.FieldEmail: "old@acme.example.com"},
			Sources:    []model.Source{{URL: "https://chamber.example.com/acme"}},
			Confidence: 60,
		},
		{
			Provider:   "registry",
			Values:     map[model.Field]string{model.FieldEmail: "info@acme.example.com"},
			Sources:    []model.Source{{URL: "https://registry.example.gov/acme"}},
			Confidence: 85,
		},
	}

	change := Merge(rec("org-1"), findings, Options{})
	assert.Equal(t, "info@acme.example.com", change.Fields[model.FieldEmail])
	assert.Equal(t, 85.0, change.Confidence)
	require.Len(t, change.Sources, 1, "only the winning claim's sources carry over")
	assert.Equal(t, "https://registry.example.gov/acme", change.Sources[0].URL)
}

func TestMerge_TieBrokenByOfficialSource(t *testing.T) {
	findings := []model.Finding{
		{
			Provider:   "chamber",
			Values:     map[model.Field]string{model.FieldEmail: "sales@acme.example.com"},
			Sources:    []model.Source{{URL: "https://chamber.example.com/acme"}},
			Confidence: 80,
		},
		{
			Provider:   "registry",
			Values:     map[model.Field]string{model.FieldEmail: "info@acme.example.com"},
			Sources:    []model.Source{{URL: "https://registry.example.gov/acme", Official: true}},
			Confidence: 80,
		},
	}

	change := Merge(rec("org-1"), findings, Options{})
	assert.Equal(t, "info@acme.example.com", change.Fields[model.FieldEmail])
}

func TestMerge_UnresolvedTieLeavesFieldUnchanged(t *testing.T) {
	findings := []model.Finding{
		{
			Provider:   "chamber",
			Values:     map[model.Field]string{model.FieldEmail: "sales@acme.example.com"},
			Sources:    []model.Source{{URL: "https://chamber.example.com/acme"}},
			Confidence: 80,
		},
		{
			Provider:   "dir",
			Values:     map[model.Field]string{model.FieldEmail: "info@acme.example.com"},
			Sources:    []model.Source{{URL: "https://dir.example.com/acme"}},
			Confidence: 80,
		},
	}

	change := Merge(rec("org-1"), findings, Options{})
	assert.NotContains(t, change.Fields, model.FieldEmail)
	assert.False(t, change.HasChanges())
	require.NotEmpty(t, change.Notes)
	assert.Contains(t, change.Notes[0], "conflict on email")
}

func TestMerge_ValueEqualToCurrentIsNotAChange(t *testing.T) {
	r := rec("org-1")
	r.Website = "https://acme.example.com"

	findings := []model.Finding{
		{
			Provider:   "chamber",
			Values:     map[model.Field]string{model.FieldWebsite: "ACME.example.com/"},
			Sources:    []model.Source{{URL: "https://chamber.example.com/acme"}},
			Confidence: 80,
		},
	}

	change := Merge(r, findings, Options{})
	assert.False(t, change.HasChanges())
	assert.Empty(t, change.Sources)
}

func TestMerge_SourcesDedupedByCanonicalURL(t *testing.T) {
	findings := []model.Finding{
		{
			Provider:   "chamber",
			Values:     map[model.Field]string{model.FieldPhone: "5551234567"},
			Sources:    []model.Source{{URL: "https://dir.example.com/acme"}},
			Confidence: 75,
		},
		{
			Provider:   "dir",
			Values:     map[model.Field]string{model.FieldPhone: "555-123-4567"},
			Sources:    []model.Source{{URL: "http://www.dir.example.com/acme/"}},
			Confidence: 75,
		},
	}

	change := Merge(rec("org-1"), findings, Options{})
	assert.Equal(t, "+15551234567", change.Fields[model.FieldPhone])
	assert.Len(t, change.Sources, 1, "same page through scheme/www/slash variants counts once")
}

func TestMerge_OverallConfidenceIsMinOfFieldWinners(t *testing.T) {
	findings := []model.Finding{
		{
			Provider:   "chamber",
			Values:     map[model.Field]string{model.FieldWebsite: "https://acme.example.com"},
			Sources:    []model.Source{{URL: "https://chamber.example.com/acme"}},
			Confidence: 90,
		},
		{
			Provider:   "dir",
			Values:     map[model.Field]string{model.FieldPhone: "5551234567"},
			Sources:    []model.Source{{URL: "https://dir.example.com/acme"}},
			Confidence: 65,
		},
	}

	change := Merge(rec("org-1"), findings, Options{})
	assert.Equal(t, 65.0, change.Confidence)
}

func TestMerge_FreshnessFromAgreeingClaimant(t *testing.T) {
	findings := []model.Finding{
		{
			Provider:   "chamber",
			Values:     map[model.Field]string{model.FieldPhone: "5551234567"},
			Sources:    []model.Source{{URL: "https://chamber.example.com/acme"}},
			Confidence: 80,
			Fresh:      true,
		},
	}

	change := Merge(rec("org-1"), findings, Options{})
	assert.True(t, change.Fresh)
}

func TestMerge_IdentityChangeFlagged(t *testing.T) {
	r := rec("org-1")
	r.Website = "https://acme-plumbing.example.com"

	findings := []model.Finding{
		{
			Provider:   "chamber",
			Values:     map[model.Field]string{model.FieldWebsite: "https://acme-services.example.net"},
			Sources:    []model.Source{{URL: "https://chamber.example.com/acme"}},
			Confidence: 85,
		},
	}

	change := Merge(r, findings, Options{})
	assert.True(t, change.IdentityChange)
	require.NotEmpty(t, change.Notes)
	assert.Contains(t, change.Notes[len(change.Notes)-1], "possible rebrand")
}

func TestMerge_NoIdentityChangeWhenRecordHasNoWebsite(t *testing.T) {
	findings := []model.Finding{
		{
			Provider:   "chamber",
			Values:     map[model.Field]string{model.FieldWebsite: "https://acme.example.com"},
			Sources:    []model.Source{{URL: "https://chamber.example.com/acme"}},
			Confidence: 85,
		},
	}

	change := Merge(rec("org-1"), findings, Options{})
	assert.False(t, change.IdentityChange)
}

func TestMerge_CategoryAgainstClosedSet(t *testing.T) {
	opts := Options{Categories: []string{"PLUMBING", "HVAC"}}
	findings := []model.Finding{
		{
			Provider:   "chamber",
			Values:     map[model.Field]string{model.FieldCategory: "plumbing"},
			Sources:    []model.Source{{URL: "https://chamber.example.com/acme"}},
			Confidence: 80,
		},
	}

	change := Merge(rec("org-1"), findings, opts)
	assert.Equal(t, "PLUMBING", change.Fields[model.FieldCategory])
}

func TestMerge_NoFindings(t *testing.T) {
	change := Merge(rec("org-1"), nil, Options{})
	assert.False(t, change.HasChanges())
	assert.Equal(t, 0.0, change.Confidence)
	assert.Equal(t, "org-1", change.OrgID)
}
