// Package mention turns free text into an ordered list of tool invocations.
//
// A mention is an '@' at the start of the text or after whitespace, followed
// by a tool name made of ASCII letters, digits, '_' and '-' (starting with a
// letter). Its query runs to the end of the line or up to the whitespace
// before the next mention on the same line. Parsing is total: unknown tool
// names are still extracted, and odd input produces ambiguities, never errors.
package mention

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/agentoven/agentdesk/pkg/models"
)

// Ambiguity describes a mention that parsed but is probably not what the
// author meant.
type Ambiguity struct {
	Offset   int    `json:"position"`
	ToolName string `json:"type"`
	Reason   string `json:"reason"`
}

const reasonEmptyQuery = "mention has no query"

// Result is the output of Parse.
type Result struct {
	Invocations []models.ToolInvocation `json:"tools"`
	CleanText   string                  `json:"cleanText"`
	Ambiguities []Ambiguity             `json:"ambiguities,omitempty"`
}

// Requests converts the invocations into tool requests without params.
func (r Result) Requests() []models.ToolRequest {
	out := make([]models.ToolRequest, len(r.Invocations))
	for i, inv := range r.Invocations {
		out[i] = models.ToolRequest{Type: inv.ToolName, Query: inv.Query}
	}
	return out
}

type span struct {
	at        int // offset of '@'
	nameEnd   int
	regionEnd int
}

// Parse extracts every mention from text in left-to-right order.
func Parse(text string) Result {
	starts := findStarts(text)

	res := Result{Invocations: make([]models.ToolInvocation, 0, len(starts))}
	spans := make([]span, len(starts))
	for i, sp := range starts {
		end := lineEnd(text, sp.nameEnd)
		if i+1 < len(starts) && starts[i+1].at < end {
			end = starts[i+1].at
		}
		sp.regionEnd = end
		spans[i] = sp

		name := strings.ToLower(text[sp.at+1 : sp.nameEnd])
		query := strings.TrimSpace(text[sp.nameEnd:end])
		res.Invocations = append(res.Invocations, models.ToolInvocation{
			ToolName:     name,
			Query:        query,
			SourceOffset: sp.at,
		})
		if query == "" {
			res.Ambiguities = append(res.Ambiguities, Ambiguity{
				Offset:   sp.at,
				ToolName: name,
				Reason:   reasonEmptyQuery,
			})
		}
	}

	res.CleanText = clean(text, spans)
	return res
}

// findStarts locates every mention start and the end of its name.
func findStarts(text string) []span {
	var out []span
	prevSpace := true
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		if r == '@' && prevSpace && i+1 < len(text) && isLetter(text[i+1]) {
			j := i + 2
			for j < len(text) && isNameByte(text[j]) {
				j++
			}
			out = append(out, span{at: i, nameEnd: j})
			// The name is ASCII, so resuming at j keeps rune alignment.
			i = j
			prevSpace = false
			continue
		}
		prevSpace = unicode.IsSpace(r)
		i += size
	}
	return out
}

func lineEnd(text string, from int) int {
	if n := strings.IndexByte(text[from:], '\n'); n >= 0 {
		return from + n
	}
	return len(text)
}

func clean(text string, spans []span) string {
	if len(spans) == 0 {
		return strings.Join(strings.Fields(text), " ")
	}
	var b strings.Builder
	b.Grow(len(text))
	last := 0
	for _, sp := range spans {
		b.WriteString(text[last:sp.at])
		last = sp.regionEnd
	}
	b.WriteString(text[last:])
	return strings.Join(strings.Fields(b.String()), " ")
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isNameByte(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_' || c == '-'
}
