package tools

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/mattn/go-shellwords"

	"github.com/agentoven/agentdesk/pkg/models"
)

const (
	DefaultCommandTimeout = 60 * time.Second
	maxCommandTimeout     = 10 * time.Minute
	maxCommandOutput      = 64 * 1024
)

// splitCommand parses a command line without expanding variables or
// backticks. The command is executed directly, never through a shell.
func splitCommand(line string) ([]string, error) {
	p := shellwords.NewParser()
	p.ParseEnv = false
	p.ParseBacktick = false
	argv, err := p.Parse(line)
	if err != nil {
		return nil, fmt.Errorf("parse command: %w", err)
	}
	if len(argv) == 0 {
		return nil, errors.New("empty command")
	}
	return argv, nil
}

// cappedBuffer keeps the first max bytes written to it.
type cappedBuffer struct {
	buf       bytes.Buffer
	max       int
	truncated bool
}

func (c *cappedBuffer) Write(p []byte) (int, error) {
	if room := c.max - c.buf.Len(); room > 0 {
		if len(p) > room {
			c.buf.Write(p[:room])
			c.truncated = true
		} else {
			c.buf.Write(p)
		}
	} else if len(p) > 0 {
		c.truncated = true
	}
	return len(p), nil
}

// runCommand executes argv in dir with a timeout, returning combined output.
// A non-zero exit is reported as an error alongside the output.
func runCommand(ctx context.Context, argv []string, dir string, timeout time.Duration) (Output, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = dir
	cmd.WaitDelay = 2 * time.Second
	out := &cappedBuffer{max: maxCommandOutput}
	cmd.Stdout = out
	cmd.Stderr = out

	start := time.Now()
	runErr := cmd.Run()
	exitCode := 0
	if cmd.ProcessState != nil {
		exitCode = cmd.ProcessState.ExitCode()
	}

	content := out.buf.String()
	if out.truncated {
		content += "\n(output truncated)"
	}
	result := textOutput(content).
		with("command", strings.Join(argv, " ")).
		with("exit_code", exitCode).
		with("duration_ms", time.Since(start).Milliseconds()).
		with("truncated", out.truncated)

	switch {
	case runErr == nil:
		return result, nil
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return result, fmt.Errorf("command timed out after %s", timeout)
	default:
		return result, fmt.Errorf("command failed: %w", runErr)
	}
}

func commandTimeout(seconds int, fallback time.Duration) time.Duration {
	if seconds <= 0 {
		return fallback
	}
	d := time.Duration(seconds) * time.Second
	if d > maxCommandTimeout {
		return maxCommandTimeout
	}
	return d
}

// ── terminal tool ────────────────────────────────────────────

type terminalTool struct {
	ws      *Workspace
	guard   *Guardrails
	timeout time.Duration
}

func NewTerminalTool(ws *Workspace, guard *Guardrails, timeout time.Duration) Tool {
	if timeout <= 0 {
		timeout = DefaultCommandTimeout
	}
	return &terminalTool{ws: ws, guard: guard, timeout: timeout}
}

func (t *terminalTool) Name() string                  { return "terminal" }
func (t *terminalTool) Category() models.ToolCategory { return models.ToolCategoryRun }
func (t *terminalTool) Description() string           { return "Run a command in the workspace" }
func (t *terminalTool) Accepts() []models.ParamsKind  { return []models.ParamsKind{models.ParamsCommand} }

func (t *terminalTool) command(req models.ToolRequest) (models.CommandParams, string) {
	p, _ := paramsAs[models.CommandParams](req)
	return p, queryOr(strings.TrimSpace(p.Command), strings.TrimSpace(req.Query))
}

func (t *terminalTool) Validate(req models.ToolRequest) error {
	_, line := t.command(req)
	if line == "" {
		return errors.New("a command is required")
	}
	_, err := splitCommand(line)
	return err
}

func (t *terminalTool) Execute(ctx context.Context, req models.ToolRequest) (Output, error) {
	p, line := t.command(req)
	argv, err := splitCommand(line)
	if err != nil {
		return Output{}, err
	}
	if err := t.guard.CheckCommand(argv); err != nil {
		return Output{}, err
	}
	dir, err := t.ws.Resolve(queryOr(p.Dir, "."))
	if err != nil {
		return Output{}, err
	}
	return runCommand(ctx, argv, dir, commandTimeout(p.TimeoutSeconds, t.timeout))
}

// ── run tool ─────────────────────────────────────────────────

type runTool struct {
	ws      *Workspace
	command string
	timeout time.Duration
}

// NewRunTool runs the workspace's configured test command. The request query
// is appended as extra arguments.
func NewRunTool(ws *Workspace, command string, timeout time.Duration) Tool {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &runTool{ws: ws, command: command, timeout: timeout}
}

func (t *runTool) Name() string                  { return "run" }
func (t *runTool) Category() models.ToolCategory { return models.ToolCategoryAdvanced }
func (t *runTool) Description() string           { return "Run the project's test command" }
func (t *runTool) Accepts() []models.ParamsKind  { return nil }

func (t *runTool) argv(req models.ToolRequest) ([]string, error) {
	if strings.TrimSpace(t.command) == "" {
		return nil, errors.New("no test command configured")
	}
	argv, err := splitCommand(t.command)
	if err != nil {
		return nil, err
	}
	if q := strings.TrimSpace(req.Query); q != "" {
		extra, err := splitCommand(q)
		if err != nil {
			return nil, err
		}
		argv = append(argv, extra...)
	}
	return argv, nil
}

func (t *runTool) Validate(req models.ToolRequest) error {
	_, err := t.argv(req)
	return err
}

func (t *runTool) Execute(ctx context.Context, req models.ToolRequest) (Output, error) {
	argv, err := t.argv(req)
	if err != nil {
		return Output{}, err
	}
	return runCommand(ctx, argv, t.ws.Root(), t.timeout)
}
