package tools

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

const (
	defaultMaxMatches = 200
	maxSearchFileSize = 1 << 20
	maxLineLength     = 400
)

type lineMatch struct {
	path string
	line int
	text string
}

// scanText walks dir and calls match for each line of every text file whose
// workspace-relative path matches one of the include globs (all files when
// include is empty). It stops after limit matches.
func scanText(ctx context.Context, ws *Workspace, dir string, include []string, limit int, match func(string) bool) ([]lineMatch, bool, error) {
	for _, pattern := range include {
		if !doublestar.ValidatePattern(pattern) {
			return nil, false, fmt.Errorf("invalid include pattern %q", pattern)
		}
	}
	if limit <= 0 {
		limit = defaultMaxMatches
	}

	var out []lineMatch
	truncated := false
	err := ws.walkFiles(dir, func(path string, d fs.DirEntry) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		rel := ws.Rel(path)
		if len(include) > 0 && !matchesAny(include, rel) {
			return nil
		}
		info, err := d.Info()
		if err != nil || info.Size() > maxSearchFileSize {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil || isBinary(data) {
			return nil
		}

		sc := bufio.NewScanner(bytes.NewReader(data))
		sc.Buffer(make([]byte, 64*1024), maxSearchFileSize)
		n := 0
		for sc.Scan() {
			n++
			line := sc.Text()
			if !match(line) {
				continue
			}
			if len(out) >= limit {
				truncated = true
				return fs.SkipAll
			}
			out = append(out, lineMatch{path: rel, line: n, text: clip(strings.TrimRight(line, "\r"), maxLineLength)})
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return out, truncated, nil
}

func matchesAny(patterns []string, rel string) bool {
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

func isBinary(data []byte) bool {
	head := data
	if len(head) > 512 {
		head = head[:512]
	}
	return bytes.IndexByte(head, 0) >= 0
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}

func formatMatches(matches []lineMatch, truncated bool) string {
	if len(matches) == 0 {
		return "(no matches)"
	}
	var b strings.Builder
	for _, m := range matches {
		fmt.Fprintf(&b, "%s:%d: %s\n", m.path, m.line, m.text)
	}
	if truncated {
		b.WriteString("(results truncated)\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
