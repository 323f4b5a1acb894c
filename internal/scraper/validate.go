package scraper

import "strings"

// neighboringStates maps each target state to the states whose
// businesses are still worth keeping. The tri-state search area means a
// Martinsburg plumber may carry a Maryland or Virginia address.
var neighboringStates = map[string][]string{
	"WV": {"WV", "MD", "VA", "PA", "OH", "KY"},
	"MD": {"MD", "WV", "VA", "PA", "DE", "DC"},
	"VA": {"VA", "WV", "MD", "NC", "TN", "KY", "DC"},
	"PA": {"PA", "WV", "MD", "OH", "NY", "NJ", "DE"},
}

// InRegion reports whether a business state is acceptable for a search
// targeting targetState. Records without a state pass; they cannot be
// disproven and the address may fill in later.
func InRegion(state, targetState string) bool {
	if strings.TrimSpace(state) == "" {
		return true
	}
	state = strings.ToUpper(strings.TrimSpace(state))
	targetState = strings.ToUpper(strings.TrimSpace(targetState))
	if state == targetState {
		return true
	}
	for _, s := range neighboringStates[targetState] {
		if s == state {
			return true
		}
	}
	return false
}
