package chat

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/nextlive/nextlive/internal/events"
	"github.com/nextlive/nextlive/internal/gemini"
	"github.com/nextlive/nextlive/internal/log"
	"github.com/nextlive/nextlive/internal/project"
	"github.com/nextlive/nextlive/internal/security"
	"github.com/nextlive/nextlive/internal/session"
	"github.com/nextlive/nextlive/internal/testutil"
	"github.com/nextlive/nextlive/internal/tools"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) Emit(e events.Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *recorder) statuses() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, e := range r.events {
		if e.Kind == events.KindStatus {
			out = append(out, e.Message)
		}
	}
	return out
}

type fixture struct {
	svc   *Service
	model *testutil.MockModel
	store *session.Store
	rec   *recorder
	root  string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	root := t.TempDir()
	logger := log.NewNop()

	paths, err := security.NewPath(root)
	require.NoError(t, err)
	tree := project.New(root, project.WithExtensions([]string{".txt", ".ts"}))

	fileTools, err := tools.NewFileTools(tree, paths, logger)
	require.NoError(t, err)
	cmdTools, err := tools.NewCommandTools(root, 30*time.Second, logger)
	require.NoError(t, err)

	var execs []tools.Executor
	execs = append(execs, fileTools.Executors()...)
	execs = append(execs, cmdTools.Executors()...)
	registry, err := tools.NewRegistry(logger, execs...)
	require.NoError(t, err)

	store, err := session.NewStore(filepath.Join(root, ".chats"), logger)
	require.NoError(t, err)

	model := testutil.NewMockModel()
	rec := &recorder{}
	svc, err := NewService(Config{
		Client:   model,
		Registry: registry,
		Store:    store,
		Project:  tree,
		Emitter:  rec,
		Logger:   logger,
		Model:    "gemini-2.0-flash",
		Retry:    RetryConfig{MaxRetries: 0, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond},
	})
	require.NoError(t, err)

	return &fixture{svc: svc, model: model, store: store, rec: rec, root: root}
}

func textChunk(text string) gemini.Chunk {
	return gemini.Chunk{Text: text}
}

func callChunk(name string, args map[string]any) gemini.Chunk {
	return gemini.Chunk{Calls: []session.FunctionCall{{Name: name, Args: args}}}
}

func TestSendTextOnlySingleIteration(t *testing.T) {
	f := newFixture(t)
	f.model.EnqueueStream(nil, textChunk("The project has "), textChunk("three files."))

	reply, err := f.svc.Send(context.Background(), "list the files")
	require.NoError(t, err)
	assert.Equal(t, "The project has three files.", reply)

	turns := f.svc.History()
	require.Len(t, turns, 2)
	assert.Equal(t, session.RoleUser, turns[0].Role)
	assert.Equal(t, "list the files", turns[0].Text())
	assert.Equal(t, session.RoleModel, turns[1].Role)
	assert.Equal(t, reply, turns[1].Text())

	assert.True(t, f.model.Exhausted(), "no lookahead call without a function call")
	assert.Contains(t, f.rec.statuses(), "Done")
}

func TestSendEmptyStreamAppendsNoModelTurn(t *testing.T) {
	f := newFixture(t)
	f.model.EnqueueStream(nil)

	reply, err := f.svc.Send(context.Background(), "hello")
	require.NoError(t, err)
	assert.Empty(t, reply)

	turns := f.svc.History()
	require.Len(t, turns, 1, "an empty reply must not be recorded")
	assert.Equal(t, session.RoleUser, turns[0].Role)
}

func TestSendToolCallThenFinalAnswer(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.WriteFile(filepath.Join(f.root, "readme.txt"), []byte("hello world"), 0o600))

	f.model.EnqueueStream(nil, callChunk(tools.ToolGetFile, map[string]any{"fileName": "readme.txt"}))
	f.model.EnqueueResponse(&gemini.Response{Text: "The file says hello world."}, nil)

	reply, err := f.svc.Send(context.Background(), "what is in readme.txt?")
	require.NoError(t, err)
	assert.Equal(t, "The file says hello world.", reply)

	turns := f.svc.History()
	// user, tool result, model
	require.Len(t, turns, 3)
	assert.Equal(t, tools.ToolGetFile, turns[1].Name)
	assert.Equal(t, "hello world", turns[1].Text())

	assert.Contains(t, f.rec.statuses(), "Reading file: readme.txt")
	assert.True(t, f.model.Exhausted())
}

func TestSendLookaheadSeesToolResult(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.WriteFile(filepath.Join(f.root, "a.txt"), []byte("x"), 0o600))

	f.model.EnqueueStream(nil, callChunk(tools.ToolGetFile, map[string]any{"fileName": "a.txt"}))
	f.model.EnqueueResponse(&gemini.Response{Text: "done"}, nil)

	_, err := f.svc.Send(context.Background(), "read a.txt")
	require.NoError(t, err)

	require.Len(t, f.model.Requests, 2)
	first, second := f.model.Requests[0], f.model.Requests[1]
	assert.True(t, first.Streamed)
	assert.False(t, second.Streamed)
	assert.Equal(t, first.HistoryLen+1, second.HistoryLen, "lookahead must include the tool result turn")
}

func TestSendFirstFunctionCallWins(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.WriteFile(filepath.Join(f.root, "one.txt"), []byte("1"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(f.root, "two.txt"), []byte("2"), 0o600))

	f.model.EnqueueStream(nil, gemini.Chunk{Calls: []session.FunctionCall{
		{Name: tools.ToolGetFile, Args: map[string]any{"fileName": "one.txt"}},
		{Name: tools.ToolGetFile, Args: map[string]any{"fileName": "two.txt"}},
	}})
	f.model.EnqueueResponse(&gemini.Response{Text: "ok"}, nil)

	_, err := f.svc.Send(context.Background(), "read both")
	require.NoError(t, err)

	var toolTurns []session.Turn
	for _, turn := range f.svc.History() {
		if turn.Name == tools.ToolGetFile {
			toolTurns = append(toolTurns, turn)
		}
	}
	require.Len(t, toolTurns, 1, "only the first call in a stream may execute")
	assert.Equal(t, "1", toolTurns[0].Text())
}

func TestSendToolFailureBecomesErrorTurnAndLoopContinues(t *testing.T) {
	f := newFixture(t)

	f.model.EnqueueStream(nil, callChunk(tools.ToolGetFile, map[string]any{"fileName": "missing.txt"}))
	f.model.EnqueueResponse(&gemini.Response{Text: "that file does not exist"}, nil)

	reply, err := f.svc.Send(context.Background(), "read missing.txt")
	require.NoError(t, err)
	assert.Equal(t, "that file does not exist", reply)

	turns := f.svc.History()
	require.Len(t, turns, 3)
	assert.Equal(t, session.NameError, turns[1].Name)
	assert.Contains(t, turns[1].Text(), "File not found")
}

func TestSendUnknownToolBecomesErrorTurn(t *testing.T) {
	f := newFixture(t)

	f.model.EnqueueStream(nil, callChunk("teleport", map[string]any{}))
	f.model.EnqueueResponse(&gemini.Response{Text: "sorry"}, nil)

	_, err := f.svc.Send(context.Background(), "teleport me")
	require.NoError(t, err)

	turns := f.svc.History()
	assert.Equal(t, session.NameError, turns[1].Name)
	assert.Contains(t, turns[1].Text(), "teleport")
}

func TestSendIterationCapAppendsNote(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.WriteFile(filepath.Join(f.root, "loop.txt"), []byte("x"), 0o600))

	for i := 0; i < DefaultMaxIterations; i++ {
		f.model.EnqueueStream(nil, callChunk(tools.ToolGetFile, map[string]any{"fileName": "loop.txt"}))
		f.model.EnqueueResponse(&gemini.Response{Calls: []session.FunctionCall{
			{Name: tools.ToolGetFile, Args: map[string]any{"fileName": "loop.txt"}},
		}}, nil)
	}

	reply, err := f.svc.Send(context.Background(), "keep reading")
	require.NoError(t, err)
	assert.Contains(t, reply, "Maximum number of iterations reached")
	assert.Contains(t, f.rec.statuses(), "Maximum iterations reached")
	assert.True(t, f.model.Exhausted(), "exactly the capped number of round trips")

	turns := f.svc.History()
	assert.Equal(t, session.RoleModel, turns[len(turns)-1].Role)
}

func TestSendExecuteCommandNarrationTurns(t *testing.T) {
	f := newFixture(t)

	f.model.EnqueueStream(nil, callChunk(tools.ToolExecuteCommand, map[string]any{"command": "echo hi"}))
	f.model.EnqueueResponse(&gemini.Response{Text: "the command printed hi"}, nil)

	_, err := f.svc.Send(context.Background(), "run echo hi")
	require.NoError(t, err)

	turns := f.svc.History()
	// user, narration, transcript, completion, model
	require.Len(t, turns, 5)
	assert.Equal(t, "Executing command: `echo hi`.", turns[1].Text())
	assert.Equal(t, session.NameCommand, turns[2].Name)
	assert.Contains(t, turns[2].Text(), "data: hi")
	assert.Contains(t, turns[2].Text(), "exit: 0")
	assert.Equal(t, session.RoleUser, turns[3].Role)
}

func TestSendExecuteCommandBackgroundNarration(t *testing.T) {
	f := newFixture(t)

	f.model.EnqueueStream(nil, callChunk(tools.ToolExecuteCommand, map[string]any{
		"command": "true", "isBackground": true,
	}))
	f.model.EnqueueResponse(&gemini.Response{Text: "started it"}, nil)

	_, err := f.svc.Send(context.Background(), "run it in the background")
	require.NoError(t, err)

	turns := f.svc.History()
	// user, narration, result, background narration, model
	require.Len(t, turns, 5)
	assert.Equal(t, session.NameCommand, turns[2].Name)
	assert.Contains(t, turns[2].Text(), "background")
	assert.Contains(t, turns[3].Text(), "background")
	assert.Equal(t, session.RoleUser, turns[3].Role)
}

func TestSendModelFailureFailsSoft(t *testing.T) {
	f := newFixture(t)
	f.model.EnqueueStream(errors.New("invalid api key"))

	reply, err := f.svc.Send(context.Background(), "hello")
	require.ErrorIs(t, err, ErrModelInvocation)
	assert.Equal(t, modelErrorReply, reply)

	turns := f.svc.History()
	require.Len(t, turns, 2)
	assert.Equal(t, session.RoleModel, turns[1].Role)
	assert.Equal(t, modelErrorReply, turns[1].Text())
}

func TestSendPersistsHistory(t *testing.T) {
	f := newFixture(t)
	f.model.EnqueueStream(nil, textChunk("hi"))

	_, err := f.svc.Send(context.Background(), "hello")
	require.NoError(t, err)

	saved, err := f.store.Get(context.Background(), f.svc.ChatID())
	require.NoError(t, err)
	assert.Equal(t, "gemini-2.0-flash", saved.Model)
	require.Len(t, saved.Messages, 2)
	assert.Contains(t, f.rec.statuses(), "Chat history saved")
}

func TestResetStartsFreshConversation(t *testing.T) {
	f := newFixture(t)
	f.model.EnqueueStream(nil, textChunk("hi"))

	_, err := f.svc.Send(context.Background(), "hello")
	require.NoError(t, err)
	oldID := f.svc.ChatID()

	f.svc.Reset(context.Background())

	assert.Empty(t, f.svc.History())
	assert.NotEqual(t, oldID, f.svc.ChatID())
	assert.Contains(t, f.rec.statuses(), "Chat history cleared")

	saved, err := f.store.Get(context.Background(), oldID)
	require.NoError(t, err, "the pre-reset conversation must stay retrievable")
	require.Len(t, saved.Messages, 2)
	assert.Equal(t, "hello", saved.Messages[0].Text())
}

func TestLoadChatRestoresHistoryAndModel(t *testing.T) {
	f := newFixture(t)
	turns := []session.Turn{session.UserTurn("hi"), session.ModelTurn("hello")}
	require.NoError(t, f.store.Save(context.Background(), "old-chat", "gemini-1.5-pro", turns))

	require.NoError(t, f.svc.LoadChat(context.Background(), "old-chat"))

	assert.Equal(t, "old-chat", f.svc.ChatID())
	assert.Equal(t, "gemini-1.5-pro", f.svc.Model())
	require.Len(t, f.svc.History(), 2)
	assert.Equal(t, "hi", f.svc.History()[0].Text())
}

func TestLoadChatMissing(t *testing.T) {
	f := newFixture(t)
	err := f.svc.LoadChat(context.Background(), "never-saved")
	require.ErrorIs(t, err, session.ErrNotFound)
}

func TestListAndDeleteSavedChats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.Save(ctx, "chat-a", "m", []session.Turn{session.UserTurn("a")}))
	require.NoError(t, f.store.Save(ctx, "chat-b", "m", []session.Turn{session.UserTurn("b")}))

	chats, err := f.svc.ListSavedChats(ctx)
	require.NoError(t, err)
	require.Len(t, chats, 2)

	require.NoError(t, f.svc.DeleteChat(ctx, "chat-a"))
	chats, err = f.svc.ListSavedChats(ctx)
	require.NoError(t, err)
	require.Len(t, chats, 1)
	assert.Equal(t, "chat-b", chats[0].ID)
}

func TestSetModelAffectsNextRequest(t *testing.T) {
	f := newFixture(t)
	f.svc.SetModel("gemini-exp")
	f.model.EnqueueStream(nil, textChunk("ok"))

	_, err := f.svc.Send(context.Background(), "hello")
	require.NoError(t, err)

	require.Len(t, f.model.Requests, 1)
	assert.Equal(t, "gemini-exp", f.model.Requests[0].Model)
}

func TestGenerateImageWithoutGenerator(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.GenerateImage(context.Background(), "a cat")
	require.ErrorIs(t, err, ErrNoImageGenerator)
}

func TestRequestCarriesToolDeclarationsAndSystemPrompt(t *testing.T) {
	f := newFixture(t)
	f.model.EnqueueStream(nil, textChunk("ok"))

	_, err := f.svc.Send(context.Background(), "hello")
	require.NoError(t, err)

	require.Len(t, f.model.Requests, 1)
	req := f.model.Requests[0]
	assert.Contains(t, req.ToolNames, tools.ToolGetFile)
	assert.Contains(t, req.ToolNames, tools.ToolEditFile)
	assert.Contains(t, req.ToolNames, tools.ToolExecuteCommand)
	assert.Contains(t, req.System, "NextLive")
	assert.NotContains(t, req.System, projectStructurePlaceholder)
}

func TestNewServiceValidation(t *testing.T) {
	_, err := NewService(Config{})
	require.Error(t, err)
}

func TestNewChatIDSanitized(t *testing.T) {
	id := newChatID("gemini-2.0-flash")
	assert.NotContains(t, id, ":")
	assert.NotContains(t, id, ".")
	assert.NotContains(t, id, "/")
}
