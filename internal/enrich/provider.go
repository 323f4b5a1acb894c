// Package enrich finds owner and contact details for contractors that
// were collected without them.
package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/pkg/anthropic"
	"github.com/sells-group/leadgen-cli/pkg/tavily"
)

// Finding is the contact information located for one business.
type Finding struct {
	OwnerName   string   `json:"owner_name"`
	Email       string   `json:"email"`
	LinkedInURL string   `json:"linkedin_url"`
	Confidence  float64  `json:"confidence"`
	SourceURLs  []string `json:"-"`
}

// Empty reports whether the finding carries nothing usable.
func (f *Finding) Empty() bool {
	return f.OwnerName == "" && f.Email == "" && f.LinkedInURL == ""
}

// Provider looks up contact information for a business.
type Provider interface {
	Lookup(ctx context.Context, c *model.Contractor) (*Finding, error)
}

const enrichSystemPrompt = `You identify the owner and contact details of a local business
from web search results. Return ONLY a JSON object with string fields
owner_name, email, linkedin_url and a number field confidence between 0
and 1. owner_name is a person, never a company. Use "" for anything the
results do not establish. Base confidence on how directly the results
name the person.`

const defaultEnrichModel = "claude-haiku-4-5-20251001"

// webProvider searches with Tavily and distills the results with the
// Anthropic API.
type webProvider struct {
	search tavily.Client
	llm    anthropic.Client
	model  string
}

// NewWebProvider creates the production Provider. An empty model
// selects the default.
func NewWebProvider(search tavily.Client, llm anthropic.Client, modelName string) Provider {
	if modelName == "" {
		modelName = defaultEnrichModel
	}
	return &webProvider{search: search, llm: llm, model: modelName}
}

func (p *webProvider) Lookup(ctx context.Context, c *model.Contractor) (*Finding, error) {
	where := strings.TrimSpace(c.City + " " + c.State)

	general, err := p.search.Search(ctx, tavily.SearchRequest{
		Query:      fmt.Sprintf("%q %s owner founder contact email", c.Name, where),
		MaxResults: 5,
	})
	if err != nil {
		return nil, eris.Wrap(err, "enrich: general search")
	}

	linkedin, err := p.search.Search(ctx, tavily.SearchRequest{
		Query:          fmt.Sprintf("%q %s owner", c.Name, c.State),
		MaxResults:     3,
		IncludeDomains: []string{"linkedin.com"},
	})
	if err != nil {
		return nil, eris.Wrap(err, "enrich: linkedin search")
	}

	var sb strings.Builder
	var sources []string
	for _, r := range append(general.Results, linkedin.Results...) {
		fmt.Fprintf(&sb, "Source: %s\nTitle: %s\n%s\n\n", r.URL, r.Title, r.Content)
		if len(sources) < model.MaxEnrichmentSources {
			sources = append(sources, r.URL)
		}
	}
	if sb.Len() == 0 {
		return &Finding{}, nil
	}

	temp := 0.0
	resp, err := p.llm.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       p.model,
		MaxTokens:   512,
		System:      enrichSystemPrompt,
		Temperature: &temp,
		Messages: []anthropic.Message{{
			Role: "user",
			Content: fmt.Sprintf("Business: %s\nLocation: %s\nKnown website: %s\n\nSearch results:\n%s",
				c.Name, where, c.Website, sb.String()),
		}},
	})
	if err != nil {
		return nil, eris.Wrap(err, "enrich: distill results")
	}

	finding, err := parseFinding(resp.FirstText())
	if err != nil {
		return nil, err
	}
	finding.SourceURLs = sources
	return finding, nil
}

// parseFinding decodes the model output, tolerating fences and prose
// around the JSON object.
func parseFinding(text string) (*Finding, error) {
	i := strings.Index(text, "{")
	j := strings.LastIndex(text, "}")
	if i < 0 || j <= i {
		return &Finding{}, nil
	}

	var f Finding
	if err := json.Unmarshal([]byte(text[i:j+1]), &f); err != nil {
		return nil, eris.Wrap(err, "enrich: parse finding")
	}
	sanitize(&f)
	return &f, nil
}
