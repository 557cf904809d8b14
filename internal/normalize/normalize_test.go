package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPhone(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"(303) 555-0142", "+13035550142", false},
		{"303.555.0142", "+13035550142", false},
		{"+44 20 7946 0958", "+442079460958", false},
		{"555-0142", "+5550142", false},
		{"12345", "", true},
		{"call me", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := Phone(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestEmail(t *testing.T) {
	got, err := Email("  Jane.Doe@Example.COM ")
	require.NoError(t, err)
	assert.Equal(t, "jane.doe@example.com", got)

	_, err = Email("not-an-email")
	assert.Error(t, err)

	_, err = Email("jane@localhost")
	assert.Error(t, err)
}

func TestWebsite(t *testing.T) {
	got, err := Website("Example.com/About/")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/About", got)

	got, err = Website("http://www.example.com")
	require.NoError(t, err)
	assert.Equal(t, "http://www.example.com", got)

	_, err = Website("ftp://example.com")
	assert.Error(t, err)

	_, err = Website("just words")
	assert.Error(t, err)
}

func TestDomain(t *testing.T) {
	assert.Equal(t, "example.com", Domain("https://www.Example.com/path"))
	assert.Equal(t, "example.com", Domain("example.com"))
	assert.Equal(t, "", Domain(""))
}

func TestCanonicalSource(t *testing.T) {
	a := CanonicalSource("https://www.example.com/registry/")
	b := CanonicalSource("http://example.com/registry")
	assert.Equal(t, a, b)
	assert.Equal(t, "example.com/registry", a)

	assert.NotEqual(t, CanonicalSource("example.com/a"), CanonicalSource("example.com/b"))
}

func TestName(t *testing.T) {
	assert.Equal(t, "ACME WIDGETS", Name("Acme Widgets LLC"))
	assert.Equal(t, "ACME WIDGETS", Name("  acme-widgets, Inc. "))
	assert.Equal(t, "SMITH AND SONS", Name("Smith & Sons"))
}

func TestCategory(t *testing.T) {
	allowed := []string{"NGO", "GOV", "PRIVATE"}

	got, err := Category("ngo", allowed)
	require.NoError(t, err)
	assert.Equal(t, "NGO", got)

	_, err = Category("charity", allowed)
	assert.Error(t, err)

	_, err = Category("", allowed)
	assert.Error(t, err)
}

func TestContactName(t *testing.T) {
	got, err := ContactName("Jane Doe")
	require.NoError(t, err)
	assert.Equal(t, "JANE DOE", got)

	_, err = ContactName("Agent 007")
	assert.Error(t, err)

	_, err = ContactName("")
	assert.Error(t, err)
}
