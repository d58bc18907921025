package extractor

import (
	"context"
	"fmt"

	"github.com/revrost/go-openrouter"
	"github.com/revrost/go-openrouter/jsonschema"

	"github.com/newswire/aggregator/internal/domain"
	"github.com/newswire/aggregator/internal/logger"
)

// Client is the OpenRouter-backed Extractor. One completion per message,
// JSON-schema constrained output, no retries: transient failures surface to
// the batch layer, which drops the message and moves on.
type Client struct {
	or     *openrouter.Client
	model  string
	schema *jsonschema.Definition
	logger logger.Logger
}

// NewClient creates a new OpenRouter extraction client.
func NewClient(apiKey, model string, log logger.Logger) (*Client, error) {
	schema, err := jsonschema.GenerateSchemaForType(response{})
	if err != nil {
		return nil, fmt.Errorf("generate extraction schema: %w", err)
	}

	return &Client{
		or:     openrouter.NewClient(apiKey),
		model:  model,
		schema: schema,
		logger: log,
	}, nil
}

// Extract sends one message to the model and returns the validated result.
// Schema-invalid model output is reported as ErrInvalidResponse.
func (c *Client) Extract(ctx context.Context, req Request) (*domain.ExtractionResult, error) {
	completion := openrouter.ChatCompletionRequest{
		Model: c.model,
		Messages: []openrouter.ChatCompletionMessage{
			{
				Role:    openrouter.ChatMessageRoleSystem,
				Content: openrouter.Content{Text: systemPrompt},
			},
			{
				Role:    openrouter.ChatMessageRoleUser,
				Content: openrouter.Content{Text: buildUserPrompt(req)},
			},
		},
		ResponseFormat: &openrouter.ChatCompletionResponseFormat{
			Type: openrouter.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openrouter.ChatCompletionResponseFormatJSONSchema{
				Name:   "news_extraction",
				Schema: c.schema,
				Strict: false,
			},
		},
	}

	resp, err := c.or.CreateChatCompletion(ctx, completion)
	if err != nil {
		return nil, fmt.Errorf("create completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: no completion choices returned", ErrInvalidResponse)
	}

	raw := resp.Choices[0].Message.Content.Text
	result, err := parseResponse([]byte(raw))
	if err != nil {
		c.logger.Warn("extractor returned unparseable output",
			logger.String("source", req.Source),
			logger.Error(err),
		)
		return nil, err
	}
	return result, nil
}
