package gemini

import (
	"context"
	"fmt"
	"log/slog"

	"google.golang.org/genai"
)

// Config holds the client construction parameters.
type Config struct {
	// APIKey authenticates against the Gemini API.
	APIKey string

	// Logger receives request-level debug logging. nil uses slog.Default.
	Logger *slog.Logger
}

// Client is the concrete model client over the Gemini API.
type Client struct {
	genai  *genai.Client
	logger *slog.Logger
}

// NewClient creates a Client. Fails fast on a missing API key so auth
// problems surface at startup rather than mid-conversation.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: API key is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}
	return &Client{genai: gc, logger: logger}, nil
}

// config builds the per-call generation configuration: temperature, the
// substituted system instruction, tool declarations, and automatic
// function-calling mode.
func (c *Client) config(req *Request) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(req.Temperature),
	}
	if req.System != "" {
		cfg.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: req.System}},
		}
	}
	if len(req.Tools) > 0 {
		cfg.Tools = []*genai.Tool{{FunctionDeclarations: req.Tools}}
		cfg.ToolConfig = &genai.ToolConfig{
			FunctionCallingConfig: &genai.FunctionCallingConfig{
				Mode: genai.FunctionCallingConfigModeAuto,
			},
		}
	}
	return cfg
}

// GenerateStream runs one streamed model invocation, delivering each chunk
// to fn as it arrives.
func (c *Client) GenerateStream(ctx context.Context, req *Request, fn StreamFunc) error {
	c.logger.Debug("model stream request",
		"model", req.Model,
		"turns", len(req.History),
		"tools", len(req.Tools))

	contents := ToContents(req.History)
	for resp, err := range c.genai.Models.GenerateContentStream(ctx, req.Model, contents, c.config(req)) {
		if err != nil {
			return fmt.Errorf("model stream: %w", err)
		}
		chunk := &Chunk{
			Text:  resp.Text(),
			Calls: callsFrom(resp.FunctionCalls()),
		}
		if err := fn(ctx, chunk); err != nil {
			return fmt.Errorf("stream callback: %w", err)
		}
	}
	return nil
}

// Generate runs one non-streamed model invocation with the same
// configuration as GenerateStream. The orchestration loop uses it as the
// lookahead call after a tool dispatch.
func (c *Client) Generate(ctx context.Context, req *Request) (*Response, error) {
	c.logger.Debug("model request",
		"model", req.Model,
		"turns", len(req.History))

	contents := ToContents(req.History)
	resp, err := c.genai.Models.GenerateContent(ctx, req.Model, contents, c.config(req))
	if err != nil {
		return nil, fmt.Errorf("model generate: %w", err)
	}
	return &Response{
		Text:  resp.Text(),
		Calls: callsFrom(resp.FunctionCalls()),
	}, nil
}
