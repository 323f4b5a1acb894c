package scraper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseExtraction_PlainArray(t *testing.T) {
	out, err := parseExtraction(`[{"name":"Smith Plumbing","phone":"(304) 555-0100","state":"WV"}]`)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "Smith Plumbing", out[0].Name)
	assert.Equal(t, "(304) 555-0100", out[0].Phone)
}

func TestParseExtraction_MarkdownFences(t *testing.T) {
	text := "Here are the businesses I found:\n```json\n[{\"name\":\"Valley HVAC\"}]\n```\nLet me know if you need more."
	out, err := parseExtraction(text)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "Valley HVAC", out[0].Name)
}

func TestParseExtraction_EmptyArray(t *testing.T) {
	out, err := parseExtraction("[]")
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestParseExtraction_NoJSON(t *testing.T) {
	out, err := parseExtraction("I could not find any businesses on this page.")
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestParseExtraction_DropsNamelessEntries(t *testing.T) {
	out, err := parseExtraction(`[{"name":""},{"name":"  "},{"name":"Real Business"}]`)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "Real Business", out[0].Name)
}

func TestParseExtraction_MalformedJSON(t *testing.T) {
	_, err := parseExtraction(`[{"name": "Broken`)
	require.Error(t, err)
}
