// Package testutil provides fakes shared by tests across packages.
package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/nextlive/nextlive/internal/gemini"
)

// MockModel is a scripted model client. Tests enqueue streamed and
// non-streamed responses in the order the code under test will request
// them; running past the script is a test failure surfaced as an error.
type MockModel struct {
	mu       sync.Mutex
	streams  []scriptedStream
	resps    []scriptedResponse
	Requests []RecordedRequest
}

type scriptedStream struct {
	chunks []gemini.Chunk
	err    error
}

type scriptedResponse struct {
	resp *gemini.Response
	err  error
}

// RecordedRequest captures what the code under test asked for.
type RecordedRequest struct {
	Streamed    bool
	Model       string
	System      string
	HistoryLen  int
	ToolNames   []string
	Temperature float32
}

// NewMockModel creates an empty scripted model.
func NewMockModel() *MockModel {
	return &MockModel{}
}

// EnqueueStream scripts the next GenerateStream call to deliver chunks
// in order and then return err (nil for a clean end of stream).
func (m *MockModel) EnqueueStream(err error, chunks ...gemini.Chunk) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.streams = append(m.streams, scriptedStream{chunks: chunks, err: err})
}

// EnqueueResponse scripts the next Generate call.
func (m *MockModel) EnqueueResponse(resp *gemini.Response, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resps = append(m.resps, scriptedResponse{resp: resp, err: err})
}

// GenerateStream implements the model client contract.
func (m *MockModel) GenerateStream(ctx context.Context, req *gemini.Request, fn gemini.StreamFunc) error {
	m.mu.Lock()
	if len(m.streams) == 0 {
		m.mu.Unlock()
		return fmt.Errorf("unexpected GenerateStream call (script exhausted)")
	}
	next := m.streams[0]
	m.streams = m.streams[1:]
	m.record(req, true)
	m.mu.Unlock()

	for i := range next.chunks {
		if err := fn(ctx, &next.chunks[i]); err != nil {
			return err
		}
	}
	return next.err
}

// Generate implements the model client contract.
func (m *MockModel) Generate(_ context.Context, req *gemini.Request) (*gemini.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.resps) == 0 {
		return nil, fmt.Errorf("unexpected Generate call (script exhausted)")
	}
	next := m.resps[0]
	m.resps = m.resps[1:]
	m.record(req, false)
	return next.resp, next.err
}

// record must be called with m.mu held.
func (m *MockModel) record(req *gemini.Request, streamed bool) {
	var toolNames []string
	for _, d := range req.Tools {
		toolNames = append(toolNames, d.Name)
	}
	m.Requests = append(m.Requests, RecordedRequest{
		Streamed:    streamed,
		Model:       req.Model,
		System:      req.System,
		HistoryLen:  len(req.History),
		ToolNames:   toolNames,
		Temperature: req.Temperature,
	})
}

// Exhausted reports whether every scripted call was consumed.
func (m *MockModel) Exhausted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.streams) == 0 && len(m.resps) == 0
}
