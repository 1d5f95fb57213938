package tools

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/nextlive/nextlive/internal/events"
	"github.com/nextlive/nextlive/internal/security"
)

// ExecuteCommandInput is the decoded argument shape for executeCommand.
type ExecuteCommandInput struct {
	Command      string `json:"command"`
	IsBackground bool   `json:"isBackground,omitempty"`
}

// Output framing prefixes, matching the wire convention of the widget's
// terminal: each chunk is tagged with its stream origin.
const (
	frameData = "data: "
	frameErr  = "error: "
	frameExit = "exit: "
)

// CommandTools implements executeCommand. Output is streamed through the
// event channel found in the call context as it arrives, and the full
// transcript is returned as the tool result on exit.
type CommandTools struct {
	workDir string
	timeout time.Duration
	logger  *slog.Logger
}

// NewCommandTools creates the command toolset. timeout bounds foreground
// commands; zero means no limit.
func NewCommandTools(workDir string, timeout time.Duration, logger *slog.Logger) (*CommandTools, error) {
	if workDir == "" {
		return nil, fmt.Errorf("working directory is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CommandTools{workDir: workDir, timeout: timeout, logger: logger}, nil
}

// Executors returns the executeCommand executor.
func (c *CommandTools) Executors() []Executor {
	return []Executor{NewTool(executeCommandDeclaration(), c.ExecuteCommand)}
}

// transcript accumulates framed output chunks in arrival order and mirrors
// them to the emitter.
type transcript struct {
	mu      sync.Mutex
	buf     []byte
	emitter events.Emitter
}

func (t *transcript) add(frame, chunk string) {
	framed := frame + chunk + "\n\n"
	t.mu.Lock()
	t.buf = append(t.buf, framed...)
	t.mu.Unlock()
	events.CommandOutput(t.emitter, framed)
}

func (t *transcript) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return string(t.buf)
}

// pump copies a process stream into the transcript chunk by chunk.
func (t *transcript) pump(r io.Reader, frame string, wg *sync.WaitGroup) {
	defer wg.Done()
	buf := make([]byte, 4096)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			t.add(frame, string(buf[:n]))
		}
		if err != nil {
			return
		}
	}
}

// ExecuteCommand runs a shell command. Foreground commands block until
// exit and return the full transcript; a non-zero exit status is data in
// the transcript, not a dispatch failure. Background commands are
// detached in their own session and return immediately, so exit framing
// for them is best-effort.
func (c *CommandTools) ExecuteCommand(ctx context.Context, args map[string]any) Result {
	if _, err := requireString(args, "command"); err != nil {
		return Errorf("executeCommand: %v", err)
	}
	in, err := decodeArgs[ExecuteCommandInput](args)
	if err != nil {
		return Errorf("executeCommand: %v", err)
	}
	if err := security.ValidateCommand(in.Command); err != nil {
		return Errorf("executeCommand: %v", err)
	}
	c.logger.Info("ExecuteCommand called", "command", in.Command, "background", in.IsBackground)

	if in.IsBackground {
		return c.runBackground(ctx, in.Command)
	}
	return c.runForeground(ctx, in.Command)
}

func (c *CommandTools) runForeground(ctx context.Context, command string) Result {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, "/bin/sh", "-c", command)
	cmd.Dir = c.workDir

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return Errorf("Failed to execute command: %v", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return Errorf("Failed to execute command: %v", err)
	}

	t := &transcript{emitter: events.FromContext(ctx)}

	if err := cmd.Start(); err != nil {
		return Errorf("Failed to execute command: %v", err)
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go t.pump(stdout, frameData, &wg)
	go t.pump(stderr, frameErr, &wg)
	wg.Wait()

	// Wait returns an *exec.ExitError for non-zero exits; that status is
	// part of the transcript, not a tool failure.
	waitErr := cmd.Wait()
	if ctx.Err() != nil {
		t.add(frameErr, fmt.Sprintf("command canceled: %v", ctx.Err()))
	} else if waitErr != nil {
		if _, isExit := waitErr.(*exec.ExitError); !isExit {
			return Errorf("Failed to execute command: %v", waitErr)
		}
	}
	t.add(frameExit, fmt.Sprintf("%d", cmd.ProcessState.ExitCode()))

	return Ok(t.String())
}

func (c *CommandTools) runBackground(ctx context.Context, command string) Result {
	// Deliberately not CommandContext: the process must outlive the call.
	cmd := exec.Command("/bin/sh", "-c", command)
	cmd.Dir = c.workDir
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return Errorf("Failed to execute command: %v", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return Errorf("Failed to execute command: %v", err)
	}

	t := &transcript{emitter: events.FromContext(ctx)}

	if err := cmd.Start(); err != nil {
		return Errorf("Failed to execute command: %v", err)
	}

	// Output keeps streaming to the event channel after this call
	// returns; the goroutine also reaps the process on exit.
	go func() {
		var wg sync.WaitGroup
		wg.Add(2)
		go t.pump(stdout, frameData, &wg)
		go t.pump(stderr, frameErr, &wg)
		wg.Wait()
		if err := cmd.Wait(); err != nil {
			c.logger.Debug("background command exited", "command", command, "error", err)
		}
		t.add(frameExit, fmt.Sprintf("%d", cmd.ProcessState.ExitCode()))
	}()

	return Ok(fmt.Sprintf("Command started in the background (pid %d).", cmd.Process.Pid))
}
