package scraper

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInRegion(t *testing.T) {
	tests := []struct {
		name   string
		state  string
		target string
		want   bool
	}{
		{"same state", "WV", "WV", true},
		{"lowercase same state", "wv", "WV", true},
		{"neighbor of WV", "MD", "WV", true},
		{"neighbor of MD", "DC", "MD", true},
		{"far state", "CA", "WV", false},
		{"empty state passes", "", "WV", true},
		{"whitespace state passes", "  ", "WV", true},
		{"unknown target only exact", "WV", "TX", false},
		{"unknown target exact match", "TX", "TX", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, InRegion(tt.state, tt.target))
		})
	}
}
