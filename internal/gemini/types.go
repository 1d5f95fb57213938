// Package gemini wraps the Google GenAI SDK behind the small invocation
// contract the chat session consumes: a streamed generation call, a
// non-streamed one, and an image generator.
package gemini

import (
	"context"

	"google.golang.org/genai"

	"github.com/nextlive/nextlive/internal/session"
)

// Request carries everything one model invocation needs. History is the
// full ordered turn log; System is the already-substituted system
// instruction text.
type Request struct {
	Model       string
	System      string
	Temperature float32
	Tools       []*genai.FunctionDeclaration
	History     []session.Turn
}

// Chunk is one streamed piece of model output. A chunk may carry free text,
// one or more function calls, or both.
type Chunk struct {
	Text  string
	Calls []session.FunctionCall
}

// Response is the result of a non-streamed invocation.
type Response struct {
	Text  string
	Calls []session.FunctionCall
}

// StreamFunc consumes streamed chunks. Returning an error aborts the stream.
type StreamFunc func(ctx context.Context, chunk *Chunk) error

// Generated is one output item from the image model: either image bytes or
// a piece of text narration.
type Generated struct {
	Data     []byte
	MIMEType string
	Text     string
}

// IsImage reports whether the item carries image data.
func (g Generated) IsImage() bool { return len(g.Data) > 0 }
