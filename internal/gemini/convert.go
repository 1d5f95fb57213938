package gemini

import (
	"google.golang.org/genai"

	"github.com/nextlive/nextlive/internal/session"
)

// ToContents projects the turn log into the wire shape the model accepts.
// The tool-name tag on tool-result turns is a local bookkeeping field and
// is dropped here; the model only sees roles and parts.
func ToContents(turns []session.Turn) []*genai.Content {
	contents := make([]*genai.Content, 0, len(turns))
	for _, turn := range turns {
		parts := make([]*genai.Part, 0, len(turn.Parts))
		for _, p := range turn.Parts {
			part := &genai.Part{Text: p.Text}
			if p.FunctionCall != nil {
				part.FunctionCall = &genai.FunctionCall{
					Name: p.FunctionCall.Name,
					Args: p.FunctionCall.Args,
				}
			}
			parts = append(parts, part)
		}
		contents = append(contents, &genai.Content{
			Role:  turn.Role,
			Parts: parts,
		})
	}
	return contents
}

// callsFrom converts the SDK's function calls to the session shape.
func callsFrom(calls []*genai.FunctionCall) []session.FunctionCall {
	if len(calls) == 0 {
		return nil
	}
	out := make([]session.FunctionCall, 0, len(calls))
	for _, c := range calls {
		if c == nil || c.Name == "" {
			continue
		}
		out = append(out, session.FunctionCall{Name: c.Name, Args: c.Args})
	}
	return out
}
