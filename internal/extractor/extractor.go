// Package extractor is the language-model boundary of the pipeline. It sends
// one raw message at a time to an LLM with a fixed prompt and parses the
// structured response into a domain.ExtractionResult.
//
// The response schema is a versioned contract: is_valid_news is required, all
// other fields are optional and default when absent. A response that fails
// validation is reported as ErrInvalidResponse, which the engine treats as
// "not news" rather than a batch-level fault.
package extractor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/newswire/aggregator/internal/domain"
)

// ErrInvalidResponse marks extractor output that failed schema validation.
// Transport-level failures are returned unwrapped.
var ErrInvalidResponse = errors.New("extractor response failed schema validation")

// Request is the input to one extraction call.
type Request struct {
	Source    string
	Timestamp time.Time
	Content   string
}

// response is the wire shape of the extractor output. Pointer fields
// distinguish "absent" from zero values so required-field validation works.
type response struct {
	IsValidNews *bool    `json:"is_valid_news" jsonschema:"required,description=Whether the message contains valid news"`
	Title       *string  `json:"title" jsonschema:"description=Title of the news message or post"`
	Content     *string  `json:"content" jsonschema:"description=Main content of the message"`
	Country     *string  `json:"country" jsonschema:"description=Country the news is about"`
	City        *string  `json:"city" jsonschema:"description=City the news is about"`
	Categories  []string `json:"categories" jsonschema:"description=Categories the news belongs to"`
	PersonNames []string `json:"person_names" jsonschema:"description=Names of people mentioned in the news"`
}

// systemPrompt fixes the extractor's task and output contract. Changing the
// required fields here is a breaking change to the extractor boundary.
const systemPrompt = `You are an AI assistant that analyzes social media messages to identify and extract news information.

Analyze the message and determine if it contains valid news. If it does, extract the relevant information.

Your task:
1. Determine if this message contains valid news information.
2. If it does, generate a very brief title or extract a title if already available. Extract the main content and identify the country and city it refers to (if applicable).
3. Assign relevant categories to the news (e.g., politics, technology, sports, etc.).
4. List the names of people mentioned in the news.

Respond with a single JSON object matching the provided schema.`

// buildUserPrompt renders the per-message portion of the prompt.
func buildUserPrompt(req Request) string {
	return fmt.Sprintf(
		"Message source: %s\nMessage timestamp: %s\nMessage content: %s",
		req.Source,
		req.Timestamp.UTC().Format(time.RFC3339),
		req.Content,
	)
}

// parseResponse validates raw JSON against the extraction schema and converts
// it to the domain result, applying defaults for optional fields.
func parseResponse(raw []byte) (*domain.ExtractionResult, error) {
	var resp response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if resp.IsValidNews == nil {
		return nil, fmt.Errorf("%w: missing required field is_valid_news", ErrInvalidResponse)
	}

	result := &domain.ExtractionResult{IsValidNews: *resp.IsValidNews}
	if resp.Title != nil {
		result.Title = *resp.Title
	}
	if resp.Content != nil {
		result.Content = *resp.Content
	}
	if resp.Country != nil {
		result.Country = *resp.Country
	}
	if resp.City != nil {
		result.City = *resp.City
	}
	result.Categories = resp.Categories
	if result.Categories == nil {
		result.Categories = []string{}
	}
	result.PersonNames = resp.PersonNames
	if result.PersonNames == nil {
		result.PersonNames = []string{}
	}
	return result, nil
}

// Extractor is the capability the engine depends on. Implementations must be
// safe for concurrent use.
type Extractor interface {
	Extract(ctx context.Context, req Request) (*domain.ExtractionResult, error)
}
