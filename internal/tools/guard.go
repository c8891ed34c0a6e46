package tools

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/agentoven/agentdesk/pkg/models"
)

// GuardLevel controls how much the destructive tools are allowed to do.
type GuardLevel string

const (
	// GuardPermissive allows every command and deletion.
	GuardPermissive GuardLevel = "permissive"
	// GuardStandard blocks commands that are known to be destructive.
	GuardStandard GuardLevel = "standard"
	// GuardStrict blocks the terminal and delete tools entirely.
	GuardStrict GuardLevel = "strict"
)

var ErrGuardrail = errors.New("blocked by guardrail")

func ParseGuardLevel(s string) (GuardLevel, error) {
	switch l := GuardLevel(strings.ToLower(strings.TrimSpace(s))); l {
	case GuardPermissive, GuardStandard, GuardStrict:
		return l, nil
	default:
		return "", fmt.Errorf("unknown guard level %q", s)
	}
}

// blockedCommands are refused at GuardStandard regardless of arguments.
var blockedCommands = map[string]bool{
	"sudo":     true,
	"su":       true,
	"doas":     true,
	"mkfs":     true,
	"dd":       true,
	"shutdown": true,
	"reboot":   true,
	"halt":     true,
	"poweroff": true,
	"chown":    true,
	// xargs takes its command from stdin, which the terminal never feeds.
	"xargs": true,
}

// shells would run their arguments as a script the guard cannot see.
var shells = map[string]bool{
	"sh":      true,
	"bash":    true,
	"zsh":     true,
	"dash":    true,
	"ksh":     true,
	"fish":    true,
	"csh":     true,
	"tcsh":    true,
	"busybox": true,
}

// wrappers run the command that follows their own options.
var wrappers = map[string]bool{
	"env":     true,
	"nohup":   true,
	"timeout": true,
	"nice":    true,
	"ionice":  true,
	"stdbuf":  true,
	"setsid":  true,
	"time":    true,
	"command": true,
}

// Guardrails is shared by the terminal, delete and guard tools.
type Guardrails struct {
	mu    sync.RWMutex
	level GuardLevel
}

func NewGuardrails(level GuardLevel) *Guardrails {
	if level == "" {
		level = GuardStandard
	}
	return &Guardrails{level: level}
}

func (g *Guardrails) Level() GuardLevel {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.level
}

func (g *Guardrails) SetLevel(l GuardLevel) {
	g.mu.Lock()
	prev := g.level
	g.level = l
	g.mu.Unlock()
	if prev != l {
		log.Info().Str("from", string(prev)).Str("to", string(l)).Msg("Guard level changed")
	}
}

// CheckCommand vets a parsed command line. Wrappers such as env or timeout
// are unwrapped and the wrapped command is checked in turn.
func (g *Guardrails) CheckCommand(argv []string) error {
	if len(argv) == 0 {
		return nil
	}
	switch g.Level() {
	case GuardPermissive:
		return nil
	case GuardStrict:
		return fmt.Errorf("%w: commands are disabled at level %s", ErrGuardrail, GuardStrict)
	}
	return checkStandard(argv)
}

func checkStandard(argv []string) error {
	for len(argv) > 0 {
		prog := filepath.Base(argv[0])
		if !wrappers[prog] {
			break
		}
		inner, err := unwrap(prog, argv[1:])
		if err != nil {
			return err
		}
		argv = inner
	}
	if len(argv) == 0 {
		return nil
	}

	prog := filepath.Base(argv[0])
	switch {
	case blockedCommands[prog] || strings.HasPrefix(prog, "mkfs."):
		return fmt.Errorf("%w: %s is not allowed", ErrGuardrail, prog)
	case shells[prog]:
		return fmt.Errorf("%w: shell %s is not allowed, run the command directly", ErrGuardrail, prog)
	}

	if prog == "rm" {
		recursive := false
		for _, a := range argv[1:] {
			if strings.HasPrefix(a, "-") && !strings.HasPrefix(a, "--") && strings.ContainsAny(a, "rR") {
				recursive = true
			}
			if a == "--recursive" {
				recursive = true
			}
		}
		for _, a := range argv[1:] {
			if recursive && isRootPath(a) {
				return fmt.Errorf("%w: recursive rm of %s", ErrGuardrail, a)
			}
		}
	}
	if prog == "git" && len(argv) > 2 && argv[1] == "push" {
		for _, a := range argv[2:] {
			if a == "--force" || a == "-f" {
				return fmt.Errorf("%w: force push", ErrGuardrail)
			}
		}
	}
	return nil
}

// unwrap returns the command a wrapper would run. Options the guard cannot
// interpret are refused rather than guessed at.
func unwrap(prog string, args []string) ([]string, error) {
	refuse := func(opt string) ([]string, error) {
		return nil, fmt.Errorf("%w: %s %s is not allowed", ErrGuardrail, prog, opt)
	}
	i := 0
	switch prog {
	case "env":
		for ; i < len(args); i++ {
			a := args[i]
			switch {
			case a == "--":
				return args[i+1:], nil
			case a == "-i" || a == "--ignore-environment":
			case strings.HasPrefix(a, "-"):
				return refuse(a)
			case strings.Contains(a, "="):
			default:
				return args[i:], nil
			}
		}
		return nil, nil
	case "timeout":
		for ; i < len(args) && strings.HasPrefix(args[i], "-"); i++ {
			if args[i] == "-s" || args[i] == "-k" {
				i++
			}
		}
		// duration
		i++
	case "nice", "ionice":
		for ; i < len(args) && strings.HasPrefix(args[i], "-"); i++ {
			switch args[i] {
			case "-n", "-c", "--adjustment", "--class", "--classdata":
				i++
			}
		}
	default:
		for i < len(args) && strings.HasPrefix(args[i], "-") {
			i++
		}
	}
	if i >= len(args) {
		return nil, nil
	}
	return args[i:], nil
}

// isRootPath reports whether a path argument names the filesystem root, the
// home directory, the working directory or its parent, or a glob over one
// of them.
func isRootPath(a string) bool {
	for strings.HasSuffix(a, "/*") || a == "*" {
		a = strings.TrimSuffix(strings.TrimSuffix(a, "*"), "/")
	}
	if len(a) > 1 {
		a = strings.TrimRight(a, "/")
		if a == "" {
			a = "/"
		}
	}
	switch a {
	case "", "/", "~", ".", "..", "$HOME", "${HOME}":
		return true
	}
	return false
}

// CheckDelete vets a file deletion.
func (g *Guardrails) CheckDelete(rel string) error {
	if g.Level() == GuardStrict {
		return fmt.Errorf("%w: cannot delete %s at level %s", ErrGuardrail, rel, GuardStrict)
	}
	return nil
}

// ── guard tool ───────────────────────────────────────────────

type guardTool struct {
	g *Guardrails
}

// NewGuardTool reports or sets the guard level.
func NewGuardTool(g *Guardrails) Tool { return &guardTool{g: g} }

func (t *guardTool) Name() string                  { return "guard" }
func (t *guardTool) Category() models.ToolCategory { return models.ToolCategoryAdvanced }
func (t *guardTool) Description() string {
	return "Show or change the guardrail level (permissive, standard, strict)"
}
func (t *guardTool) Accepts() []models.ParamsKind { return []models.ParamsKind{models.ParamsGuard} }

func (t *guardTool) level(req models.ToolRequest) string {
	p, _ := paramsAs[models.GuardParams](req)
	return queryOr(p.Level, strings.TrimSpace(req.Query))
}

func (t *guardTool) Validate(req models.ToolRequest) error {
	if l := t.level(req); l != "" {
		_, err := ParseGuardLevel(l)
		return err
	}
	return nil
}

func (t *guardTool) Execute(_ context.Context, req models.ToolRequest) (Output, error) {
	if l := t.level(req); l != "" {
		level, err := ParseGuardLevel(l)
		if err != nil {
			return Output{}, err
		}
		prev := t.g.Level()
		t.g.SetLevel(level)
		return textOutput(fmt.Sprintf("Guard level set to %s (was %s)", level, prev)).
			with("level", string(level)), nil
	}
	level := t.g.Level()
	return textOutput(fmt.Sprintf("Guard level: %s", level)).with("level", string(level)), nil
}
