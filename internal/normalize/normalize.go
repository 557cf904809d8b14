// Package normalize provides pure canonicalizers for enrichable field
// values. Each function returns the canonical form or an error when the
// input is not acceptable; none of them touch shared state.
package normalize

import (
	"net/mail"
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"github.com/rotisserie/eris"
	"golang.org/x/text/unicode/norm"
)

var multiSpaceRe = regexp.MustCompile(`\s{2,}`)

// legalSuffixes lists common legal entity suffixes stripped during name
// normalization so "Acme Widgets LLC" and "Acme Widgets, Inc." compare equal.
var legalSuffixes = []string{
	" LLC", " L.L.C.", " L.L.C",
	" INC", " INC.", " INCORPORATED",
	" CORP", " CORP.", " CORPORATION",
	" LTD", " LTD.", " LIMITED",
	" LP", " L.P.", " LLP", " L.L.P.",
	" PC", " P.C.", " PLC", " P.L.C.",
	" CO", " CO.",
	" GMBH", " AG", " SA", " S.A.", " BV", " B.V.",
	" PLLC",
}

// Phone canonicalizes a phone number into +<digits> form. Ten-digit numbers
// are assumed North American and prefixed with +1. Anything outside 7-15
// digits is rejected.
func Phone(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", eris.New("normalize: empty phone")
	}

	hasPlus := strings.HasPrefix(s, "+")
	var digits strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
			continue
		}
		switch r {
		case '+', '-', '.', '(', ')', '/', ' ', '\t':
			// separators and the leading plus are fine
		default:
			return "", eris.Errorf("normalize: phone contains %q", r)
		}
	}

	d := digits.String()
	if len(d) < 7 || len(d) > 15 {
		return "", eris.Errorf("normalize: phone has %d digits", len(d))
	}
	if !hasPlus && len(d) == 10 {
		d = "1" + d
	}
	return "+" + d, nil
}

// Email validates and canonicalizes an email address (lowercased).
func Email(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", eris.New("normalize: empty email")
	}
	addr, err := mail.ParseAddress(s)
	if err != nil {
		return "", eris.Wrap(err, "normalize: parse email")
	}
	lowered := strings.ToLower(addr.Address)
	if !strings.Contains(strings.SplitN(lowered, "@", 2)[1], ".") {
		return "", eris.Errorf("normalize: email domain has no TLD: %s", lowered)
	}
	return lowered, nil
}

// Website canonicalizes a website URL: scheme defaults to https, host is
// lowercased, query and fragment are dropped, trailing slash removed.
func Website(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", eris.New("normalize: empty url")
	}
	if !strings.Contains(s, "://") {
		s = "https://" + s
	}
	u, err := url.Parse(s)
	if err != nil {
		return "", eris.Wrap(err, "normalize: parse url")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", eris.Errorf("normalize: unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" || !strings.Contains(u.Host, ".") {
		return "", eris.Errorf("normalize: url has no host: %s", s)
	}
	u.Host = strings.ToLower(u.Host)
	u.RawQuery = ""
	u.Fragment = ""
	out := u.String()
	return strings.TrimSuffix(out, "/"), nil
}

// Domain extracts the registrable host of a URL, lowercased and with any
// leading www. stripped. Returns "" for unparseable input.
func Domain(rawURL string) string {
	s := strings.TrimSpace(rawURL)
	if s == "" {
		return ""
	}
	if !strings.Contains(s, "://") {
		s = "https://" + s
	}
	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	return strings.TrimPrefix(host, "www.")
}

// CanonicalSource reduces a source URL to its canonical identity for
// deduplication: host (www-stripped) plus path, no scheme, no trailing
// slash, lowercased. "https://www.example.com/reg/" and
// "http://example.com/reg" collapse to the same identity.
func CanonicalSource(rawURL string) string {
	s := strings.TrimSpace(rawURL)
	if s == "" {
		return ""
	}
	if !strings.Contains(s, "://") {
		s = "https://" + s
	}
	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		return strings.ToLower(strings.TrimSuffix(s, "/"))
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	path := strings.TrimSuffix(u.EscapedPath(), "/")
	return host + strings.ToLower(path)
}

// Name standardizes a person or organisation name for comparison: NFKC
// folding, whitespace collapse, uppercase, legal suffixes stripped.
func Name(s string) string {
	s = norm.NFKC.String(strings.TrimSpace(s))
	if s == "" {
		return ""
	}
	s = strings.ToUpper(s)
	for _, suffix := range legalSuffixes {
		if strings.HasSuffix(s, suffix) {
			s = strings.TrimSuffix(s, suffix)
			break
		}
	}
	s = strings.NewReplacer(",", "", ".", "", "'", "", "\"", "", "&", "AND", "-", " ").Replace(s)
	s = multiSpaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Category validates a categorical code against its closed value set and
// returns the canonical (uppercased) form.
func Category(s string, allowed []string) (string, error) {
	canon := strings.ToUpper(strings.TrimSpace(s))
	if canon == "" {
		return "", eris.New("normalize: empty category")
	}
	for _, a := range allowed {
		if canon == strings.ToUpper(a) {
			return canon, nil
		}
	}
	return "", eris.Errorf("normalize: category %q not in value set", s)
}

// ContactName validates a person name: at least two letters and no digits.
func ContactName(s string) (string, error) {
	canon := Name(s)
	if canon == "" {
		return "", eris.New("normalize: empty contact name")
	}
	letters := 0
	for _, r := range canon {
		if unicode.IsDigit(r) {
			return "", eris.Errorf("normalize: contact name contains digit: %s", s)
		}
		if unicode.IsLetter(r) {
			letters++
		}
	}
	if letters < 2 {
		return "", eris.Errorf("normalize: contact name too short: %s", s)
	}
	return canon, nil
}
