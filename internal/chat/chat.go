// Package chat runs the agentic conversation loop: it sends the turn log
// to the model, executes the function calls the model streams back, feeds
// the results into the next round trip, and stops when the model produces
// a final answer or the iteration cap is reached.
package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/nextlive/nextlive/internal/events"
	"github.com/nextlive/nextlive/internal/gemini"
	"github.com/nextlive/nextlive/internal/project"
	"github.com/nextlive/nextlive/internal/session"
	"github.com/nextlive/nextlive/internal/tools"
)

// DefaultMaxIterations caps model round trips for one Send call.
const DefaultMaxIterations = 10

const maxIterationsNote = "\n\nNote: Maximum number of iterations reached. Some tasks may be incomplete."

const modelErrorReply = "Sorry, I encountered an error while processing your request."

// ModelClient is the slice of the model API the loop consumes.
type ModelClient interface {
	GenerateStream(ctx context.Context, req *gemini.Request, fn gemini.StreamFunc) error
	Generate(ctx context.Context, req *gemini.Request) (*gemini.Response, error)
}

// ImageGenerator produces images from a text prompt.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string) ([]gemini.Generated, error)
}

// Config carries the dependencies and knobs for a chat service.
type Config struct {
	Client   ModelClient
	Registry *tools.Registry
	Store    *session.Store
	Project  *project.Tree
	Images   ImageGenerator // optional
	Emitter  events.Emitter // optional; defaults to a no-op
	Logger   *slog.Logger

	Model         string
	Temperature   float32
	MaxIterations int
	Retry         RetryConfig
	Limiter       *rate.Limiter // optional
}

func (c *Config) validate() error {
	if c.Client == nil {
		return fmt.Errorf("model client is required")
	}
	if c.Registry == nil {
		return fmt.Errorf("tool registry is required")
	}
	if c.Store == nil {
		return fmt.Errorf("conversation store is required")
	}
	if c.Project == nil {
		return fmt.Errorf("project tree is required")
	}
	if c.Model == "" {
		return fmt.Errorf("model name is required")
	}
	return nil
}

// Service owns one conversation session. All exported methods are safe
// for concurrent use, but a session is strictly sequential: one Send
// call runs to completion, nested tool dispatch and lookahead included,
// before the next begins.
type Service struct {
	client   ModelClient
	registry *tools.Registry
	store    *session.Store
	tree     *project.Tree
	images   ImageGenerator
	emitter  events.Emitter
	logger   *slog.Logger

	retry   RetryConfig
	limiter *rate.Limiter

	mu            sync.Mutex
	model         string
	temperature   float32
	maxIterations int
	chatID        string
	history       *session.History
}

// NewService builds a chat service from cfg.
func NewService(cfg Config) (*Service, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid chat config: %w", err)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Emitter == nil {
		cfg.Emitter = events.Nop()
	}
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = DefaultMaxIterations
	}
	if cfg.Retry == (RetryConfig{}) {
		cfg.Retry = DefaultRetryConfig()
	}
	s := &Service{
		client:        cfg.Client,
		registry:      cfg.Registry,
		store:         cfg.Store,
		tree:          cfg.Project,
		images:        cfg.Images,
		emitter:       cfg.Emitter,
		logger:        cfg.Logger,
		retry:         cfg.Retry,
		limiter:       cfg.Limiter,
		model:         cfg.Model,
		temperature:   cfg.Temperature,
		maxIterations: cfg.MaxIterations,
		history:       session.NewHistory(),
	}
	s.chatID = newChatID(s.model)
	return s, nil
}

// Send resolves one user message. It appends the user turn, loops model
// round trips with synchronous tool dispatch, persists the history best
// effort and returns the assembled reply text. The reply is always a
// string; only model invocation failures that survive retries surface as
// an error, and even then the history ends in a well-formed error turn.
func (s *Service) Send(ctx context.Context, text string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx = events.ContextWithEmitter(ctx, s.emitter)
	events.Status(s.emitter, "Initializing AI model...")

	structure, err := s.tree.StructureJSON()
	if err != nil {
		s.logger.Warn("project structure unavailable", "error", err)
		structure = "{}"
	}
	system := renderSystem(structure)

	s.history.Append(session.UserTurn(text))

	var fullReply strings.Builder
	capped := true

	for iteration := 0; iteration < s.maxIterations; iteration++ {
		events.Status(s.emitter, "Thinking...")
		s.logger.Debug("model round trip", "iteration", iteration+1, "turns", s.history.Len())

		req := s.request(system)

		var current strings.Builder
		var funcCall *session.FunctionCall

		err := s.generateStreamWithRetry(ctx, req, func(ctx context.Context, chunk *gemini.Chunk) error {
			current.WriteString(chunk.Text)
			if funcCall == nil && len(chunk.Calls) > 0 {
				// First call wins; later calls in the same stream are
				// dropped so one model turn cannot fan out side effects.
				call := chunk.Calls[0]
				funcCall = &call
				s.dispatch(ctx, call)
			}
			return nil
		})
		if err != nil {
			return s.failModel(err)
		}

		if funcCall == nil {
			fullReply.WriteString(current.String())
			capped = false
			break
		}

		// The streamed turn ended on a tool call, which does not say
		// whether a final answer or more tool work follows. A second
		// non-streamed lookahead call disambiguates.
		lookahead, err := s.generateWithRetry(ctx, s.request(system))
		if err != nil {
			return s.failModel(err)
		}

		if len(lookahead.Calls) == 0 {
			fullReply.WriteString(current.String())
			fullReply.WriteString(lookahead.Text)
			capped = false
			break
		}

		// More tool work is coming. Keep any narration the model
		// produced alongside the call so the transcript stays coherent.
		if narration := current.String(); strings.TrimSpace(narration) != "" {
			fullReply.WriteString(narration)
			s.history.Append(session.UserTurn(narration))
		}
	}

	if capped {
		events.Status(s.emitter, "Maximum iterations reached")
		fullReply.WriteString(maxIterationsNote)
	}

	reply := fullReply.String()
	if strings.TrimSpace(reply) != "" {
		s.history.Append(session.ModelTurn(reply))
	}

	s.persist(ctx)
	events.Status(s.emitter, "Done")
	return reply, nil
}

// request snapshots the current history into a model request.
func (s *Service) request(system string) *gemini.Request {
	return &gemini.Request{
		Model:       s.model,
		System:      system,
		Temperature: s.temperature,
		Tools:       s.registry.Declarations(),
		History:     s.history.Turns(),
	}
}

// dispatch runs one tool call and records its outcome in the history.
// Tool failures become error turns; the loop never aborts on them.
func (s *Service) dispatch(ctx context.Context, call session.FunctionCall) {
	events.Status(s.emitter, statusFor(call))

	if call.Name == tools.ToolExecuteCommand {
		if cmd, ok := call.Args["command"].(string); ok {
			s.history.Append(session.UserTurn(fmt.Sprintf("Executing command: `%s`.", cmd)))
		}
	}

	result := s.registry.Dispatch(ctx, call)

	switch {
	case !result.Success:
		s.logger.Warn("tool failed", "tool", call.Name, "error", result.Error)
		s.history.Append(session.ErrorTurn(result.Text()))
	case call.Name == tools.ToolExecuteCommand:
		s.history.Append(session.Turn{
			Role:  session.RoleUser,
			Name:  session.NameCommand,
			Parts: []session.Part{{Text: result.Text()}},
		})
		if background, _ := call.Args["isBackground"].(bool); background {
			s.history.Append(session.UserTurn("Command started in the background; output will stream as it arrives."))
		} else {
			s.history.Append(session.UserTurn("Command finished. The full output is recorded above."))
		}
	default:
		s.history.Append(session.ToolResultTurn(call.Name, result.Text()))
	}
}

// statusFor renders the progress notification for a tool call.
func statusFor(call session.FunctionCall) string {
	name, _ := call.Args["fileName"].(string)
	switch call.Name {
	case tools.ToolGetFile:
		return fmt.Sprintf("Reading file: %s", name)
	case tools.ToolEditFile:
		return fmt.Sprintf("Editing file: %s", name)
	case tools.ToolImageGen:
		return "Generating image..."
	case tools.ToolExecuteCommand:
		cmd, _ := call.Args["command"].(string)
		return fmt.Sprintf("Executing command: %s", cmd)
	default:
		return fmt.Sprintf("Running tool: %s", call.Name)
	}
}

// failModel records a model invocation failure as a well-formed error
// reply turn and classifies the returned error.
func (s *Service) failModel(cause error) (string, error) {
	s.logger.Error("model invocation failed", "error", cause)
	s.history.Append(session.ModelTurn(modelErrorReply))
	s.persist(context.Background())
	return modelErrorReply, fmt.Errorf("%w: %v", ErrModelInvocation, cause)
}

// persist saves the history best effort. Failures degrade to a status
// notification and never abort the conversation.
func (s *Service) persist(ctx context.Context) {
	if err := s.store.Save(ctx, s.chatID, s.model, s.history.Turns()); err != nil {
		s.logger.Warn("saving chat history failed", "chatId", s.chatID, "error", err)
		events.Status(s.emitter, "Error saving chat history")
		return
	}
	events.Status(s.emitter, "Chat history saved")
}

// Reset archives the current conversation if it has any turns and starts
// a fresh one with a new id.
func (s *Service) Reset(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.history.Len() > 0 {
		s.persist(ctx)
	}
	s.history.Clear()
	s.chatID = newChatID(s.model)
	events.Status(s.emitter, "Chat history cleared")
}

// LoadChat replaces the session state with a previously saved chat.
func (s *Service) LoadChat(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	saved, err := s.store.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("loading chat %s: %w", id, err)
	}
	s.history.Replace(saved.Messages)
	s.chatID = saved.ID
	if saved.Model != "" {
		s.model = saved.Model
	}
	return nil
}

// ListSavedChats returns all saved chats, newest first.
func (s *Service) ListSavedChats(ctx context.Context) ([]*session.SavedChat, error) {
	return s.store.List(ctx)
}

// DeleteChat removes a saved chat.
func (s *Service) DeleteChat(ctx context.Context, id string) error {
	return s.store.Remove(ctx, id)
}

// SetModel switches the model used for subsequent messages. The current
// history is kept.
func (s *Service) SetModel(model string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.model = model
}

// Model returns the model currently in use.
func (s *Service) Model() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.model
}

// ChatID returns the id the current conversation persists under.
func (s *Service) ChatID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chatID
}

// History returns a snapshot of the conversation turns.
func (s *Service) History() []session.Turn {
	return s.history.Turns()
}

// GenerateImage produces images directly, outside the tool loop.
func (s *Service) GenerateImage(ctx context.Context, prompt string) ([]gemini.Generated, error) {
	if s.images == nil {
		return nil, ErrNoImageGenerator
	}
	return s.images.GenerateImage(ctx, prompt)
}

// newChatID derives a persistence id from the model name and the current
// UTC time, sanitized for use as a filename. A short random suffix keeps
// ids created within the same second distinct.
func newChatID(model string) string {
	stamp := time.Now().UTC().Format(time.RFC3339)
	id := fmt.Sprintf("%s_%s_%s", model, stamp, uuid.NewString()[:8])
	replacer := strings.NewReplacer(":", "-", ".", "-", "/", "-")
	return replacer.Replace(id)
}
