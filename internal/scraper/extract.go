package scraper

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/pkg/anthropic"
)

// Extracted is one business pulled out of a page.
type Extracted struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zip_code"`
	Email   string `json:"email"`
	Website string `json:"website"`
}

// Extractor pulls structured business records out of page text.
type Extractor interface {
	Extract(ctx context.Context, pageURL, content, category string) ([]Extracted, error)
}

const extractSystemPrompt = `You extract local business contact records from web page text.
Return ONLY a JSON array. Each element has these string fields:
name, phone, address, city, state, zip_code, email, website.
Use "" for anything the page does not state. The state field is a two
letter abbreviation. Include only businesses that actually offer the
requested service; skip directories, aggregators, and ads. If the page
contains no qualifying business, return [].`

const defaultExtractModel = "claude-haiku-4-5-20251001"

// claudeExtractor implements Extractor on the Anthropic API.
type claudeExtractor struct {
	client anthropic.Client
	model  string
}

// NewClaudeExtractor creates an Extractor. An empty model selects the
// default.
func NewClaudeExtractor(client anthropic.Client, model string) Extractor {
	if model == "" {
		model = defaultExtractModel
	}
	return &claudeExtractor{client: client, model: model}
}

func (e *claudeExtractor) Extract(ctx context.Context, pageURL, content, category string) ([]Extracted, error) {
	// Large pages blow the token budget without adding contact info.
	const maxContent = 24000
	if len(content) > maxContent {
		content = content[:maxContent]
	}

	temp := 0.0
	resp, err := e.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       e.model,
		MaxTokens:   2048,
		System:      extractSystemPrompt,
		Temperature: &temp,
		Messages: []anthropic.Message{{
			Role: "user",
			Content: "Service category: " + strings.Join(model.SearchTermsFor(category), ", ") +
				"\nPage URL: " + pageURL +
				"\n\nPage content:\n" + content,
		}},
	})
	if err != nil {
		return nil, eris.Wrap(err, "scraper: extract")
	}

	return parseExtraction(resp.FirstText())
}

// parseExtraction decodes the model output, tolerating markdown fences
// and prose around the JSON array.
func parseExtraction(text string) ([]Extracted, error) {
	i := strings.Index(text, "[")
	j := strings.LastIndex(text, "]")
	if i < 0 || j <= i {
		// No array in the output means no businesses found.
		return nil, nil
	}
	text = text[i : j+1]
	if text == "[]" {
		return nil, nil
	}

	var out []Extracted
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		return nil, eris.Wrap(err, "scraper: parse extraction")
	}

	filtered := out[:0]
	for _, e := range out {
		if strings.TrimSpace(e.Name) != "" {
			filtered = append(filtered, e)
		}
	}
	return filtered, nil
}
