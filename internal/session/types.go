// Package session holds the conversation data model, the in-memory turn
// log, and the file-backed chat store.
//
// The JSON shape of Turn matches the persisted chat format used by the
// NextLive widget: {role, name?, parts: [{text?, functionCall?}]}.
package session

import "time"

// Conversation roles. Tool results are recorded as user turns tagged with
// the originating tool name, mirroring how they are fed back to the model.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// Reserved values for Turn.Name.
const (
	// NameError tags a turn recording a failed tool dispatch.
	NameError = "error"

	// NameCommand tags the captured transcript of an executed command.
	NameCommand = "command"
)

// FunctionCall is a structured tool request emitted by the model.
type FunctionCall struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args,omitempty"`
}

// Part is one piece of a turn: free text, a function call, or both.
type Part struct {
	Text         string        `json:"text,omitempty"`
	FunctionCall *FunctionCall `json:"functionCall,omitempty"`
}

// Turn is a single entry in the conversation log. Turns are never mutated
// after being appended.
type Turn struct {
	Role  string `json:"role"`
	Name  string `json:"name,omitempty"`
	Parts []Part `json:"parts"`
}

// Text concatenates the text parts of the turn.
func (t Turn) Text() string {
	var out string
	for _, p := range t.Parts {
		out += p.Text
	}
	return out
}

// UserTurn builds a plain user turn.
func UserTurn(text string) Turn {
	return Turn{Role: RoleUser, Parts: []Part{{Text: text}}}
}

// ModelTurn builds a model-attributed text turn.
func ModelTurn(text string) Turn {
	return Turn{Role: RoleModel, Parts: []Part{{Text: text}}}
}

// ToolResultTurn builds a tool-result turn: role user, tagged with the
// originating tool's name.
func ToolResultTurn(toolName, text string) Turn {
	return Turn{Role: RoleUser, Name: toolName, Parts: []Part{{Text: text}}}
}

// ErrorTurn builds a tool-result turn recording a dispatch failure.
func ErrorTurn(text string) Turn {
	return ToolResultTurn(NameError, text)
}

// SavedChat is one persisted conversation: a single JSON document keyed by
// its id. Immutable once written except by full overwrite.
type SavedChat struct {
	ID        string    `json:"id"`
	Model     string    `json:"model"`
	Messages  []Turn    `json:"messages"`
	Timestamp time.Time `json:"timestamp"`
}
