package anthropic

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/CulleyHarrelson/svg-cli/internal/svg"
	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// Re-export Model type and constants for external use
type Model = anthropic.Model

const (
	ModelClaudeSonnet4_5 Model = anthropic.ModelClaudeSonnet4_5_20250929
	ModelClaudeHaiku4_5  Model = anthropic.ModelClaudeHaiku4_5_20251001
	ModelClaudeOpus4_5   Model = anthropic.ModelClaudeOpus4_5_20251101
)

var DefaultModel Model = ModelClaudeSonnet4_5

var SupportedModels = []Model{
	ModelClaudeSonnet4_5,
	ModelClaudeHaiku4_5,
	ModelClaudeOpus4_5,
}

const (
	maxTokens      = 4096
	requestTimeout = 60 * time.Second
)

// systemPrompt pins the output contract for every request: bare SVG markup
// from <svg to </svg>, nothing else.
const systemPrompt = `You are an expert SVG creator. The user will ask you to create or modify SVG images.

IMPORTANT INSTRUCTIONS:
1. Respond ONLY with valid SVG code
2. Do NOT include any explanations, comments, or markdown
3. Your response must start with <svg and end with </svg>
4. Create clean, optimized SVG code
5. Do not include any text outside the SVG tags

If editing an existing SVG, maintain its structure while implementing the requested changes.`

const (
	createInstruction = "Create an SVG image based on this description: "
	editInstruction   = "Here is an SVG file. "
)

type Client struct {
	client anthropic.Client
	model  Model
}

// NewClient builds a client for the given credential and model. An empty
// model selects DefaultModel. Extra request options are applied last, so
// tests can redirect the base URL.
func NewClient(apiKey string, model Model, opts ...option.RequestOption) *Client {
	if model == "" {
		model = DefaultModel
	}
	options := append(authOptions(apiKey),
		option.WithRequestTimeout(requestTimeout),
		option.WithMaxRetries(0),
	)
	options = append(options, opts...)
	return &Client{
		client: anthropic.NewClient(options...),
		model:  model,
	}
}

// authOptions selects the authentication header the service expects for the
// credential's form: console keys (sk-ant- prefix) go in x-api-key, anything
// else is sent as a bearer authorization token. The SDK separately reads
// ANTHROPIC_API_KEY and ANTHROPIC_AUTH_TOKEN as client defaults, so the
// unselected header is deleted; exactly one credential header goes out.
func authOptions(apiKey string) []option.RequestOption {
	if strings.HasPrefix(apiKey, "sk-ant-") {
		return []option.RequestOption{
			option.WithAPIKey(apiKey),
			option.WithHeaderDel("Authorization"),
		}
	}
	return []option.RequestOption{
		option.WithAuthToken(apiKey),
		option.WithHeaderDel("X-Api-Key"),
	}
}

// Create asks the model for a new SVG document matching the description.
func (c *Client) Create(ctx context.Context, prompt string) (string, error) {
	return c.complete(ctx, anthropic.NewUserMessage(
		anthropic.NewTextBlock(createInstruction+prompt),
	))
}

// Edit sends an existing SVG document along with an instruction describing
// the change. The instruction block precedes the document block.
func (c *Client) Edit(ctx context.Context, prompt, svgContent string) (string, error) {
	return c.complete(ctx, anthropic.NewUserMessage(
		anthropic.NewTextBlock(editInstruction+prompt),
		anthropic.NewTextBlock(svgContent),
	))
}

func (c *Client) complete(ctx context.Context, msg anthropic.MessageParam) (string, error) {
	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{msg},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic API call failed: %w", err)
	}

	if len(message.Content) == 0 {
		return "", fmt.Errorf("empty response from anthropic")
	}

	// Block zero is taken as the completion; later blocks are ignored.
	textBlock, ok := message.Content[0].AsAny().(anthropic.TextBlock)
	if !ok {
		return "", fmt.Errorf("first content block is %q, not text", message.Content[0].Type)
	}

	return svg.Extract(textBlock.Text)
}
