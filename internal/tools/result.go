package tools

import (
	"encoding/json"
	"fmt"
)

// Result is the uniform payload every executor returns across the tool
// boundary. Failures are data, not exceptions.
type Result struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Payload any    `json:"payload,omitempty"`
}

// Ok builds a successful result carrying payload.
func Ok(payload any) Result {
	return Result{Success: true, Payload: payload}
}

// Errorf builds a failed result with a formatted message.
func Errorf(format string, args ...any) Result {
	return Result{Success: false, Error: fmt.Sprintf(format, args...)}
}

// Text renders the result for the conversation log: the error message on
// failure, the payload otherwise. Non-string payloads are JSON-encoded.
func (r Result) Text() string {
	if !r.Success {
		return r.Error
	}
	switch p := r.Payload.(type) {
	case nil:
		return ""
	case string:
		return p
	default:
		data, err := json.Marshal(p)
		if err != nil {
			return fmt.Sprintf("%v", p)
		}
		return string(data)
	}
}
