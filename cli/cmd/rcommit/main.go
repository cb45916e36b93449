// Command rcommit generates a conventional commit message for the staged
// changes of the current git repository using a text-generation service.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"rcommit/cli/internal/clipboard"
	"rcommit/cli/internal/config"
	"rcommit/cli/internal/erruser"
	"rcommit/cli/internal/git"
	"rcommit/cli/internal/ollama"
	"rcommit/cli/internal/openai"
	"rcommit/cli/internal/run"
	"rcommit/cli/internal/trace"
	"rcommit/cli/internal/version"
)

// Exit codes are stable across runs for the same condition so scripts can
// branch on them.
const (
	exitOK         = 0
	exitFailure    = 1
	exitConfig     = 2
	exitNoChanges  = 3
	exitGeneration = 4
	exitVcs        = 5
)

// messageOut is the writer for the final commit message. Tests may replace it.
var messageOut io.Writer = os.Stdout

func main() {
	os.Exit(Run())
}

// Run is the entry point for the CLI, exported for testing.
func Run() int {
	return runCLI(os.Args[1:])
}

func runCLI(args []string) int {
	rootCmd := newRootCmd()
	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if u := errors.Unwrap(err); u != nil {
			fmt.Fprintf(os.Stderr, "Details: %v\n", u)
		}
		return exitCodeFor(err)
	}
	return exitOK
}

// exitCodeFor maps the structured error taxonomy to the stable exit codes.
func exitCodeFor(err error) int {
	switch erruser.KindOf(err) {
	case erruser.KindConfiguration, erruser.KindUnknownModel:
		return exitConfig
	case erruser.KindNoChanges:
		return exitNoChanges
	case erruser.KindVcsUnavailable:
		return exitVcs
	case erruser.KindTransient, erruser.KindAuth, erruser.KindRejected,
		erruser.KindTimeout, erruser.KindMalformedResponse, erruser.KindInvalidMessage:
		return exitGeneration
	default:
		return exitFailure
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "rcommit",
		Short:   "Generate a conventional commit message for the staged changes",
		Version: version.String(),
		Args:    cobra.NoArgs,
		RunE:    runGenerate,
	}
	cmd.Flags().StringP("context", "c", "", "Free-text context appended to the prompt")
	cmd.Flags().StringArrayP("exclude", "e", nil, "Path excluded from the diff (repeatable; exact or directory prefix)")
	cmd.Flags().StringP("model", "m", "", "Model tier: default, advanced, or advanced-fast")
	cmd.Flags().String("provider", "", "Generation backend: openai or ollama (overrides config and env)")
	cmd.Flags().Duration("timeout", 0, "Total generation time budget, retries included (overrides config and env)")
	cmd.Flags().Bool("copy", false, "Also copy the message to the system clipboard")
	cmd.Flags().Bool("trace", false, "Print internal steps to stderr (collect, prompt, truncation, generation)")
	cmd.Flags().BoolP("verbose", "v", false, "Enable debug logging to stderr")
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	return cmd
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	userContext, _ := cmd.Flags().GetString("context")
	exclusions, _ := cmd.Flags().GetStringArray("exclude")
	doCopy, _ := cmd.Flags().GetBool("copy")
	traceOn, _ := cmd.Flags().GetBool("trace")
	verbose, _ := cmd.Flags().GetBool("verbose")

	setupLogging(verbose)

	// Repo config lives at the repository root; when not inside a repo the
	// working directory is used and the collector reports the real error.
	workDir, rootErr := git.RepoRoot(".")
	if rootErr != nil {
		workDir = "."
	}
	cfg, err := config.Load(config.LoadOptions{WorkDir: workDir, Overrides: overridesFromFlags(cmd)})
	if err != nil {
		return err
	}

	gen, err := newGenerator(cfg)
	if err != nil {
		return err
	}

	var traceW io.Writer
	if traceOn {
		traceW = os.Stderr
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	res, err := run.Run(ctx, run.GitDiffSource{Dir: workDir}, gen, run.Options{
		Context:    userContext,
		Exclusions: exclusions,
		ModelID:    cfg.Model,
		Policy:     cfg.Policy(),
		Tracer:     trace.New(traceW),
	})
	if err != nil {
		return err
	}

	for _, p := range res.TruncatedPaths {
		log.Warn().Str("path", p).Msg("diff omitted from prompt to fit the model input budget")
	}

	if _, err := fmt.Fprintln(messageOut, res.Message.String()); err != nil {
		return erruser.New(erruser.KindConfiguration, "Could not write the commit message.", err)
	}
	if doCopy {
		if err := clipboard.Write(res.Message.String()); err != nil {
			return err
		}
	}
	return nil
}

// newGenerator builds the generation backend selected by config. The
// credential was already validated by config.Load for the remote provider.
func newGenerator(cfg *config.Config) (run.Generator, error) {
	switch cfg.Provider {
	case config.ProviderOllama:
		return ollama.NewClient(cfg.BaseURL, cfg.Temperature)
	default:
		return openai.NewClient(cfg.BaseURL, cfg.APIKey, openai.Options{
			MaxAttempts: cfg.MaxRetries,
			Temperature: cfg.Temperature,
		}), nil
	}
}

func overridesFromFlags(cmd *cobra.Command) *config.Overrides {
	o := &config.Overrides{}
	if f := cmd.Flags().Lookup("provider"); f != nil && f.Changed {
		v, _ := cmd.Flags().GetString("provider")
		o.Provider = &v
	}
	if f := cmd.Flags().Lookup("timeout"); f != nil && f.Changed {
		v, _ := cmd.Flags().GetDuration("timeout")
		o.Timeout = &v
	}
	if f := cmd.Flags().Lookup("model"); f != nil && f.Changed {
		v, _ := cmd.Flags().GetString("model")
		o.Model = &v
	}
	return o
}

// setupLogging routes zerolog to stderr; warnings only unless --verbose.
func setupLogging(verbose bool) {
	level := zerolog.WarnLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()
}
