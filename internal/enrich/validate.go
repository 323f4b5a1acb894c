package enrich

import (
	"regexp"
	"strings"
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// businessTokens flag "owner names" that are actually company names.
var businessTokens = []string{
	"llc", "inc", "corp", "ltd", "company", "services", "plumbing",
	"electric", "hvac", "roofing", "contracting", "construction",
	"enterprises", "group", "solutions", "team", "staff",
}

// sanitize drops fields that fail validation and clamps confidence to
// [0, 1]. A finding survives only with plausible values.
func sanitize(f *Finding) {
	if !validOwnerName(f.OwnerName) {
		f.OwnerName = ""
	}
	if !emailPattern.MatchString(f.Email) {
		f.Email = ""
	}
	if !strings.Contains(strings.ToLower(f.LinkedInURL), "linkedin.com/") {
		f.LinkedInURL = ""
	}
	if f.Confidence < 0 {
		f.Confidence = 0
	}
	if f.Confidence > 1 {
		f.Confidence = 1
	}
}

// validOwnerName accepts person names: at least two words, none of
// them a business token.
func validOwnerName(name string) bool {
	words := strings.Fields(name)
	if len(words) < 2 || len(words) > 4 {
		return false
	}
	for _, w := range words {
		w = strings.ToLower(strings.Trim(w, ".,"))
		for _, tok := range businessTokens {
			if w == tok {
				return false
			}
		}
	}
	return true
}
