// Package run wires the message-generation pipeline: resolve the model tier,
// collect the staged changes, compose the prompt, call the generator, and
// validate the result. Resolution runs first so a bad model id is reported
// before any subprocess is spawned. The version-control and generation dependencies
// are capability interfaces so tests drive the pipeline with in-memory fakes.
//
// One invocation moves strictly forward; any failure surfaces as a
// structured error and no stage is re-entered except the generator's
// internal retries.
package run

import (
	"context"

	"github.com/rs/zerolog/log"

	"rcommit/cli/internal/commitmsg"
	"rcommit/cli/internal/diff"
	"rcommit/cli/internal/model"
	"rcommit/cli/internal/prompt"
	"rcommit/cli/internal/trace"
)

// DiffSource obtains the filtered change set for one invocation.
type DiffSource interface {
	Collect(ctx context.Context, exclusions []string) ([]diff.FileDiff, error)
}

// Generator produces raw candidate text for a composed request.
type Generator interface {
	Generate(ctx context.Context, req prompt.Request) (string, error)
}

// GitDiffSource is the production DiffSource: the staged diff of the git
// working tree at Dir.
type GitDiffSource struct {
	Dir string
}

// Collect implements DiffSource via the git subprocess.
func (g GitDiffSource) Collect(ctx context.Context, exclusions []string) ([]diff.FileDiff, error) {
	return diff.Collect(ctx, g.Dir, exclusions)
}

// Options carries the per-invocation inputs.
type Options struct {
	// Context is the user's free-text context for the prompt; may be empty.
	Context string
	// Exclusions are paths dropped from the change set.
	Exclusions []string
	// ModelID is the user-facing tier identifier; empty selects the baseline.
	ModelID string
	// Policy is the commit vocabulary and description limit.
	Policy commitmsg.Policy
	// Tracer receives step output when --trace is set; nil-safe.
	Tracer *trace.Tracer
}

// Result is the pipeline output: the validated message and the truncation
// report for the degraded path.
type Result struct {
	Message        commitmsg.Message
	TruncatedPaths []string
}

// Run executes one invocation of the pipeline. All entities are created
// fresh and discarded when it returns; nothing persists across runs.
func Run(ctx context.Context, src DiffSource, gen Generator, opts Options) (Result, error) {
	tr := opts.Tracer

	params, err := model.Resolve(opts.ModelID)
	if err != nil {
		return Result{}, err
	}
	log.Debug().Str("tier", string(params.Tier)).Int("input_budget", params.InputBudget).Msg("model resolved")

	files, err := src.Collect(ctx, opts.Exclusions)
	if err != nil {
		return Result{}, err
	}
	tr.Section("Collect")
	for _, f := range files {
		tr.Printf("file=%s bytes=%d\n", f.Path, len(f.HunkText))
	}
	log.Debug().Int("files", len(files)).Msg("change set collected")

	req := prompt.Compose(files, opts.Context, params, opts.Policy)
	tr.Section("Compose")
	tr.Printf("system:\n%s\n\nuser:\n%s\n", req.System, req.User)
	if len(req.TruncatedPaths) > 0 {
		tr.Section("Truncation")
		for _, p := range req.TruncatedPaths {
			tr.Printf("omitted=%s\n", p)
		}
		log.Debug().Strs("paths", req.TruncatedPaths).Msg("diff truncated to fit input budget")
	}

	raw, err := gen.Generate(ctx, req)
	if err != nil {
		return Result{}, err
	}
	tr.Section("Generate")
	tr.Printf("%s\n", raw)

	msg, err := commitmsg.Normalize(raw, opts.Policy)
	if err != nil {
		return Result{}, err
	}
	log.Debug().Str("type", msg.Type).Str("scope", msg.Scope).Msg("message validated")

	return Result{Message: msg, TruncatedPaths: req.TruncatedPaths}, nil
}
