// Package commitmsg validates and normalizes model output into a
// conventional commit message: type[(scope)][!]: description, optionally
// followed by a blank line and a body. Minor formatting noise (code fences,
// wrapping quotes, surrounding whitespace) is repaired; structural problems
// are rejected with the raw text attached for diagnosis.
package commitmsg

import (
	"regexp"
	"strings"

	"rcommit/cli/internal/erruser"
)

// Message is a parsed conventional commit message.
type Message struct {
	Type        string
	Scope       string // empty when absent
	Breaking    bool   // "!" before the colon
	Description string
	Body        string // empty when absent
}

// Policy controls which messages are accepted. Which types count as valid and
// how long the description may be is a project convention, so both are
// configuration rather than constants.
type Policy struct {
	// Types is the accepted type vocabulary (lowercase).
	Types []string
	// DescriptionLimit is the maximum description length in bytes; overlong
	// descriptions are rejected, not truncated, since a cut-off summary can
	// mislead.
	DescriptionLimit int
}

// DefaultPolicy returns the common conventional-commit vocabulary and a
// 72-byte description ceiling.
func DefaultPolicy() Policy {
	return Policy{
		Types:            []string{"feat", "fix", "docs", "style", "refactor", "perf", "test", "build", "ci", "chore", "revert"},
		DescriptionLimit: 72,
	}
}

// headerRegex matches "type(scope)!: description" with scope and ! optional.
var headerRegex = regexp.MustCompile(`^([a-zA-Z]+)(?:\(([^()]*)\))?(!)?:\s*(.+)$`)

// Normalize parses raw model output against the conventional-commit grammar
// under the given policy. It strips markdown code fences, wrapping quotes,
// and surrounding whitespace first. When the leading word is not a known
// type, a best-effort correction is applied only if a known type clearly
// starts the text (e.g. "Fix(parser): ..."); otherwise the message is
// rejected with a KindInvalidMessage error carrying the raw text.
func Normalize(raw string, policy Policy) (Message, error) {
	cleaned := stripArtifacts(raw)
	if cleaned == "" {
		return Message{}, invalid("The model returned an empty message.", raw)
	}

	header, body := splitHeaderBody(cleaned)

	m, ok := parseHeader(header)
	if !ok {
		// The model sometimes emits "type: description" with decoration or a
		// bare summary. Recover only when a known type clearly leads the text.
		recovered, rok := recoverHeader(header, policy)
		if !rok {
			return Message{}, invalid("The model output is not a conventional commit message.", raw)
		}
		m = recovered
	}

	m.Type = strings.ToLower(m.Type)
	if !typeKnown(m.Type, policy) {
		// Same recovery path for a structurally valid header with an unknown
		// type ("Feature: ..." does not recover; "Fix - ..." does).
		recovered, rok := recoverHeader(header, policy)
		if !rok {
			return Message{}, invalid("The commit type \""+m.Type+"\" is not in the accepted vocabulary.", raw)
		}
		m = recovered
	}
	m.Description = strings.TrimSpace(m.Description)
	if m.Description == "" {
		return Message{}, invalid("The commit message has an empty description.", raw)
	}
	if policy.DescriptionLimit > 0 && len(m.Description) > policy.DescriptionLimit {
		return Message{}, invalid("The commit description exceeds the length limit.", raw)
	}
	m.Body = strings.TrimSpace(body)
	return m, nil
}

// String renders the message back to canonical conventional-commit text.
func (m Message) String() string {
	var b strings.Builder
	b.WriteString(m.Type)
	if m.Scope != "" {
		b.WriteString("(")
		b.WriteString(m.Scope)
		b.WriteString(")")
	}
	if m.Breaking {
		b.WriteString("!")
	}
	b.WriteString(": ")
	b.WriteString(m.Description)
	if m.Body != "" {
		b.WriteString("\n\n")
		b.WriteString(m.Body)
	}
	return b.String()
}

func invalid(msg, raw string) error {
	return erruser.New(erruser.KindInvalidMessage, msg+" Raw output:\n"+strings.TrimSpace(raw), nil)
}

// stripArtifacts removes surrounding whitespace, markdown code fences, and
// wrapping quote characters the model may have added around the message.
func stripArtifacts(raw string) string {
	s := strings.TrimSpace(raw)
	// fenced block, with or without a language tag
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		if i := strings.Index(s, "\n"); i >= 0 && len(strings.Fields(s[:i])) <= 1 {
			s = s[i+1:]
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
		s = strings.TrimSpace(s)
	}
	for _, q := range []string{"\"", "'", "`"} {
		if len(s) >= 2 && strings.HasPrefix(s, q) && strings.HasSuffix(s, q) {
			s = strings.TrimSpace(s[1 : len(s)-1])
			break
		}
	}
	return s
}

// splitHeaderBody splits cleaned text into the header line and the body
// after the first blank line. A multi-line message without a blank separator
// treats everything after the first line as body.
func splitHeaderBody(s string) (header, body string) {
	lines := strings.SplitN(s, "\n", 2)
	header = strings.TrimSpace(lines[0])
	if len(lines) == 2 {
		body = strings.TrimSpace(lines[1])
	}
	return header, body
}

func parseHeader(header string) (Message, bool) {
	sub := headerRegex.FindStringSubmatch(header)
	if sub == nil {
		return Message{}, false
	}
	return Message{
		Type:        sub[1],
		Scope:       strings.TrimSpace(sub[2]),
		Breaking:    sub[3] == "!",
		Description: sub[4],
	}, true
}

// recoverHeader attempts a best-effort parse when the strict grammar failed:
// only when a known type (case-insensitive) starts the header, followed by an
// optional scope and any of ":", " -", or " " before the description.
func recoverHeader(header string, policy Policy) (Message, bool) {
	lower := strings.ToLower(header)
	for _, typ := range policy.Types {
		if !strings.HasPrefix(lower, typ) {
			continue
		}
		rest := header[len(typ):]
		m := Message{Type: typ}
		if strings.HasPrefix(rest, "(") {
			end := strings.Index(rest, ")")
			if end < 0 {
				continue
			}
			m.Scope = strings.TrimSpace(rest[1:end])
			rest = rest[end+1:]
		}
		rest = strings.TrimPrefix(rest, "!")
		switch {
		case strings.HasPrefix(rest, ":"):
			rest = rest[1:]
		case strings.HasPrefix(rest, " -"):
			rest = rest[2:]
		case strings.HasPrefix(rest, " "):
			// e.g. "fix handle empty input"
		default:
			continue
		}
		desc := strings.TrimSpace(rest)
		if desc == "" {
			continue
		}
		m.Description = desc
		return m, true
	}
	return Message{}, false
}

func typeKnown(typ string, policy Policy) bool {
	for _, t := range policy.Types {
		if typ == t {
			return true
		}
	}
	return false
}
