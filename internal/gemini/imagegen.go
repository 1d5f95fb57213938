package gemini

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// DefaultImageModel is the image-capable Gemini model used when none is
// configured.
const DefaultImageModel = "gemini-2.0-flash-exp-image-generation"

// ImageGenerator produces images through an image-capable Gemini model.
// The response is streamed; image parts and text narration are collected
// in arrival order.
type ImageGenerator struct {
	client *Client
	model  string
}

// NewImageGenerator creates a generator bound to model. An empty model
// selects DefaultImageModel.
func NewImageGenerator(client *Client, model string) *ImageGenerator {
	if model == "" {
		model = DefaultImageModel
	}
	return &ImageGenerator{client: client, model: model}
}

// GenerateImage sends prompt to the image model and returns the generated
// items. The caller decides which image to keep; narration text rides
// along as separate items.
func (g *ImageGenerator) GenerateImage(ctx context.Context, prompt string) ([]Generated, error) {
	contents := []*genai.Content{
		{Role: genai.RoleUser, Parts: []*genai.Part{{Text: prompt}}},
	}
	cfg := &genai.GenerateContentConfig{
		ResponseModalities: []string{"IMAGE", "TEXT"},
	}

	var results []Generated
	for resp, err := range g.client.genai.Models.GenerateContentStream(ctx, g.model, contents, cfg) {
		if err != nil {
			return nil, fmt.Errorf("image generation: %w", err)
		}
		for _, cand := range resp.Candidates {
			if cand == nil || cand.Content == nil {
				continue
			}
			for _, part := range cand.Content.Parts {
				if part == nil {
					continue
				}
				if part.InlineData != nil && len(part.InlineData.Data) > 0 {
					results = append(results, Generated{
						Data:     part.InlineData.Data,
						MIMEType: part.InlineData.MIMEType,
					})
				} else if part.Text != "" {
					results = append(results, Generated{Text: part.Text})
				}
			}
		}
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("image generation: model returned no content")
	}
	return results, nil
}
