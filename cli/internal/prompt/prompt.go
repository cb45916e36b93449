// Package prompt composes the generation request: a fixed instruction block,
// the user's free-text context in a delimited section, and the per-file diff
// content, truncated largest-first to the resolved model's input budget.
// Compose is a pure function: identical inputs yield a byte-identical request.
package prompt

import (
	"strings"

	"rcommit/cli/internal/commitmsg"
	"rcommit/cli/internal/diff"
	"rcommit/cli/internal/model"
	"rcommit/cli/internal/tokens"
)

// instructionHeader is the fixed instruction block. The accepted type
// vocabulary is appended from policy so the model and the validator agree.
const instructionHeader = `You generate conventional git commit messages from a unified diff.
Output exactly one commit message, no other text or explanation.
Format:
- First line: type(scope): description. Scope is optional. Description is imperative mood (e.g. "add feature" not "added feature") and 72 characters or less.
- Optionally a blank line and a longer body, wrapped at 72 characters.
Do not use markdown, code blocks, or quotes.`

// contextOpen/contextClose delimit the user-supplied context so free text in
// it cannot be mistaken for diff content or for these instructions.
const (
	contextOpen  = "<<<context"
	contextClose = "context>>>"
)

// omittedPlaceholder replaces a file's hunk text when it is evicted to meet
// the input budget; the path stays visible to the model.
const omittedPlaceholder = "[diff omitted to fit model input budget]"

// Request is the composed generation request. Built once per invocation and
// never mutated afterwards.
type Request struct {
	// System is the instruction block sent as the system message.
	System string
	// User is the rendered context + diff sent as the user message.
	User string
	// Model carries the resolved backend parameters for the client.
	Model model.Params
	// TruncatedPaths lists files whose hunks were evicted to meet the input
	// budget, largest first. Empty on the non-degraded path.
	TruncatedPaths []string
}

// Compose builds the request from the collected changes, the optional user
// context, the resolved model parameters, and the commit policy. When the
// rendered prompt exceeds the model's input budget, the largest file hunks
// are evicted (replaced by a placeholder) one at a time until it fits;
// eviction is recorded on the request but is not an error.
func Compose(files []diff.FileDiff, userContext string, params model.Params, policy commitmsg.Policy) Request {
	system := instructionHeader + "\nAccepted types: " + strings.Join(policy.Types, ", ") + "."

	kept := make([]diff.FileDiff, len(files))
	copy(kept, files)
	omitted := make([]bool, len(kept))

	user := renderUser(kept, omitted, userContext)
	var truncated []string
	for tokens.Excess(system+user, params.InputBudget) > 0 {
		i := largestRemaining(kept, omitted)
		if i < 0 {
			break
		}
		omitted[i] = true
		truncated = append(truncated, kept[i].Path)
		user = renderUser(kept, omitted, userContext)
	}

	return Request{
		System:         system,
		User:           user,
		Model:          params,
		TruncatedPaths: truncated,
	}
}

// renderUser renders the user message: the delimited context section when
// present, then one "File:" section per record in diff order.
func renderUser(files []diff.FileDiff, omitted []bool, userContext string) string {
	var b strings.Builder
	if strings.TrimSpace(userContext) != "" {
		b.WriteString("Context from the author:\n")
		b.WriteString(contextOpen)
		b.WriteString("\n")
		b.WriteString(strings.TrimSpace(userContext))
		b.WriteString("\n")
		b.WriteString(contextClose)
		b.WriteString("\n\n")
	}
	b.WriteString("File changes:\n")
	for i, f := range files {
		b.WriteString("\nFile: ")
		b.WriteString(f.Path)
		b.WriteString("\n")
		if omitted[i] {
			b.WriteString(omittedPlaceholder)
		} else {
			b.WriteString(f.HunkText)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// largestRemaining returns the index of the largest not-yet-omitted hunk, or
// -1 when everything is omitted. Ties break to the earliest index so
// eviction order is deterministic.
func largestRemaining(files []diff.FileDiff, omitted []bool) int {
	idx := -1
	for i, f := range files {
		if omitted[i] {
			continue
		}
		if idx < 0 || len(f.HunkText) > len(files[idx].HunkText) {
			idx = i
		}
	}
	return idx
}

