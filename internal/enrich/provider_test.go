package enrich

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/pkg/anthropic"
	"github.com/sells-group/leadgen-cli/pkg/tavily"
)

type stubSearch struct {
	responses []*tavily.SearchResponse
	requests  []tavily.SearchRequest
}

func (s *stubSearch) Search(_ context.Context, req tavily.SearchRequest) (*tavily.SearchResponse, error) {
	s.requests = append(s.requests, req)
	resp := s.responses[0]
	if len(s.responses) > 1 {
		s.responses = s.responses[1:]
	}
	return resp, nil
}

type stubLLM struct {
	reply    string
	requests []anthropic.MessageRequest
}

func (s *stubLLM) CreateMessage(_ context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	s.requests = append(s.requests, req)
	return &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: s.reply}},
	}, nil
}

func TestWebProvider_Lookup(t *testing.T) {
	search := &stubSearch{responses: []*tavily.SearchResponse{
		{Results: []tavily.Result{
			{Title: "About Us", URL: "https://smith.com/about", Content: "Founded by John Smith"},
		}},
		{Results: []tavily.Result{
			{Title: "John Smith - Owner", URL: "https://linkedin.com/in/johnsmith", Content: "Owner at Smith Plumbing"},
		}},
	}}
	llm := &stubLLM{reply: `{"owner_name":"John Smith","email":"john@smith.com","linkedin_url":"https://linkedin.com/in/johnsmith","confidence":0.9}`}

	p := NewWebProvider(search, llm, "")
	finding, err := p.Lookup(context.Background(), &model.Contractor{
		Name:  "Smith Plumbing",
		City:  "Martinsburg",
		State: "WV",
	})
	require.NoError(t, err)

	assert.Equal(t, "John Smith", finding.OwnerName)
	assert.Equal(t, "john@smith.com", finding.Email)
	assert.Equal(t, "https://linkedin.com/in/johnsmith", finding.LinkedInURL)
	assert.Equal(t, 0.9, finding.Confidence)
	assert.Equal(t, []string{"https://smith.com/about", "https://linkedin.com/in/johnsmith"}, finding.SourceURLs)

	require.Len(t, search.requests, 2)
	assert.Contains(t, search.requests[0].Query, "Smith Plumbing")
	assert.Contains(t, search.requests[0].Query, "owner")
	assert.Equal(t, []string{"linkedin.com"}, search.requests[1].IncludeDomains)

	require.Len(t, llm.requests, 1)
	assert.Contains(t, llm.requests[0].Messages[0].Content, "Founded by John Smith")
}

func TestWebProvider_NoSearchResults(t *testing.T) {
	search := &stubSearch{responses: []*tavily.SearchResponse{{}}}
	llm := &stubLLM{reply: `should never be called`}

	p := NewWebProvider(search, llm, "")
	finding, err := p.Lookup(context.Background(), &model.Contractor{Name: "Ghost Co"})
	require.NoError(t, err)
	assert.True(t, finding.Empty())
	assert.Empty(t, llm.requests)
}

func TestWebProvider_SanitizesModelOutput(t *testing.T) {
	search := &stubSearch{responses: []*tavily.SearchResponse{
		{Results: []tavily.Result{{URL: "https://x.com", Content: "text"}}},
	}}
	llm := &stubLLM{reply: `{"owner_name":"Smith Plumbing LLC","email":"bad","linkedin_url":"https://facebook.com/x","confidence":2}`}

	p := NewWebProvider(search, llm, "")
	finding, err := p.Lookup(context.Background(), &model.Contractor{Name: "Smith Plumbing"})
	require.NoError(t, err)
	assert.True(t, finding.Empty())
	assert.Equal(t, 1.0, finding.Confidence)
}
