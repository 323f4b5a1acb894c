package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPhone(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"formatted", "(304) 555-0100", "3045550100"},
		{"dashed", "304-555-0100", "3045550100"},
		{"country code dropped", "+1 304 555 0100", "3045550100"},
		{"eleven digits keeps last ten", "13045550100", "3045550100"},
		{"short number kept as is", "555-0199", "5550199"},
		{"empty", "", ""},
		{"no digits", "call us!", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Phone(tt.in))
		})
	}
}

func TestName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"llc suffix", "Acme Plumbing LLC", "acme plumbing"},
		{"inc suffix", "Acme Plumbing Inc", "acme plumbing"},
		{"services before service", "Smith Services", "smith"},
		{"single suffix only", "Smith Co Company", "smith co"},
		{"no suffix", "Acme Plumbing", "acme plumbing"},
		{"whitespace", "  Acme Roofing  ", "acme roofing"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Name(tt.in))
		})
	}
}

func TestWebsite(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"full url", "https://www.acmeplumbing.com/contact", "acmeplumbing.com"},
		{"http", "http://acmeplumbing.com", "acmeplumbing.com"},
		{"bare domain", "acmeplumbing.com", "acmeplumbing.com"},
		{"uppercase", "HTTPS://WWW.Acme.COM/About", "acme.com"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Website(tt.in))
		})
	}
}

func TestEmail(t *testing.T) {
	assert.Equal(t, "info@acme.com", Email("  Info@Acme.COM "))
	assert.Equal(t, "", Email("   "))
}

// Normalizers must be idempotent: a normalized value passed back through
// its normalizer is unchanged.
func TestIdempotence(t *testing.T) {
	phones := []string{"(304) 555-0100", "555-0199", "+1 304 555 0100", ""}
	for _, p := range phones {
		once := Phone(p)
		assert.Equal(t, once, Phone(once), "phone %q", p)
	}

	names := []string{"Acme Plumbing LLC", "Smith Services", "Bob's HVAC Co", ""}
	for _, n := range names {
		once := Name(n)
		assert.Equal(t, once, Name(once), "name %q", n)
	}

	sites := []string{"https://www.acme.com/x", "acme.com", ""}
	for _, s := range sites {
		once := Website(s)
		assert.Equal(t, once, Website(once), "website %q", s)
	}

	emails := []string{" Info@Acme.COM ", "a@b.co", ""}
	for _, e := range emails {
		once := Email(e)
		assert.Equal(t, once, Email(once), "email %q", e)
	}
}
