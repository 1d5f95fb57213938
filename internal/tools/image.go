package tools

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/nextlive/nextlive/internal/gemini"
	"github.com/nextlive/nextlive/internal/security"
)

// Generator produces images from a text prompt.
type Generator interface {
	GenerateImage(ctx context.Context, prompt string) ([]gemini.Generated, error)
}

// ImageGenInput is the decoded argument shape for imageGen.
type ImageGenInput struct {
	Prompt         string `json:"prompt"`
	Filename       string `json:"filename"`
	IncludedInFile bool   `json:"includedInFile"`
}

// ImageTools implements imageGen: it asks the generator for an image and
// writes the first one returned into the configured directory.
type ImageTools struct {
	gen    Generator
	dir    string
	logger *slog.Logger
}

// NewImageTools creates the image toolset, creating dir if needed.
func NewImageTools(gen Generator, dir string, logger *slog.Logger) (*ImageTools, error) {
	if gen == nil {
		return nil, fmt.Errorf("image generator is required")
	}
	if dir == "" {
		return nil, fmt.Errorf("image directory is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating image directory: %w", err)
	}
	return &ImageTools{gen: gen, dir: dir, logger: logger}, nil
}

// Executors returns the imageGen executor.
func (i *ImageTools) Executors() []Executor {
	return []Executor{NewTool(imageGenDeclaration(), i.ImageGen)}
}

// ImageGen generates an image and stores it under the image directory.
// The first image in the model response wins; any text parts become
// narration appended to the result.
func (i *ImageTools) ImageGen(ctx context.Context, args map[string]any) Result {
	for _, key := range []string{"prompt", "filename"} {
		if _, err := requireString(args, key); err != nil {
			return Errorf("imageGen: %v", err)
		}
	}
	if _, err := requireBool(args, "includedInFile"); err != nil {
		return Errorf("imageGen: %v", err)
	}
	in, err := decodeArgs[ImageGenInput](args)
	if err != nil {
		return Errorf("imageGen: %v", err)
	}
	if err := security.ValidateFilename(in.Filename); err != nil {
		return Errorf("imageGen: %v", err)
	}
	i.logger.Info("ImageGen called", "filename", in.Filename, "includedInFile", in.IncludedInFile)

	generated, err := i.gen.GenerateImage(ctx, in.Prompt)
	if err != nil {
		return Errorf("Failed to generate image: %v", err)
	}

	var narration []string
	var image *gemini.Generated
	for idx := range generated {
		g := generated[idx]
		if g.IsImage() {
			if image == nil {
				image = &g
			}
			continue
		}
		if g.Text != "" {
			narration = append(narration, g.Text)
		}
	}
	if image == nil {
		return Errorf("No image was generated for the prompt")
	}

	path := filepath.Join(i.dir, in.Filename)
	if err := os.WriteFile(path, image.Data, 0o644); err != nil {
		return Errorf("Failed to save image: %v", err)
	}

	msg := fmt.Sprintf("Successfully generated image. It is stored at location /%s/%s.",
		filepath.Base(i.dir), in.Filename)
	if len(narration) > 0 {
		msg += " " + strings.Join(narration, " ")
	}
	return Ok(msg)
}
