// Package config provides rcommit configuration with a defined load order:
// CLI flags > environment variables > repo config > global config > defaults.
//
// Paths:
//   - Repo: .rcommit.toml (relative to the working directory)
//   - Global: XDG config dir, e.g. ~/.config/rcommit/config.toml (see os.UserConfigDir)
//
// Environment variables (override config files when set):
//   - RCOMMIT_PROVIDER (openai or ollama), RCOMMIT_MODEL (default, advanced, advanced-fast),
//   - RCOMMIT_BASE_URL, RCOMMIT_TIMEOUT (Go duration string or integer seconds),
//   - RCOMMIT_MAX_RETRIES, RCOMMIT_TEMPERATURE,
//   - RCOMMIT_COMMIT_TYPES (comma-separated), RCOMMIT_DESCRIPTION_LIMIT,
//   - OPENAI_API_KEY (credential; never read from config files and never written to them).
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"rcommit/cli/internal/commitmsg"
	"rcommit/cli/internal/erruser"
)

// Provider names for the generation backend.
const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

// Config holds all rcommit configuration. APIKey comes exclusively from the
// environment; config files carry everything else.
type Config struct {
	Provider string        `toml:"provider"`
	Model    string        `toml:"model"`
	BaseURL  string        `toml:"base_url"`
	Timeout  time.Duration `toml:"timeout"`
	// MaxRetries bounds the total generation attempts, including the first.
	MaxRetries  int     `toml:"max_retries"`
	Temperature float64 `toml:"temperature"`
	// CommitTypes is the accepted conventional-commit vocabulary.
	CommitTypes []string `toml:"commit_types"`
	// DescriptionLimit is the maximum description length in bytes.
	DescriptionLimit int `toml:"description_limit"`
	// APIKey is the remote-service credential (env only). Read once at load;
	// held read-only afterwards.
	APIKey string `toml:"-"`
}

// Policy returns the commit policy derived from config.
func (c Config) Policy() commitmsg.Policy {
	return commitmsg.Policy{Types: c.CommitTypes, DescriptionLimit: c.DescriptionLimit}
}

// Overrides represents optional CLI flag overrides. Non-nil pointer means
// "override with this value"; applied last (highest precedence).
type Overrides struct {
	Provider *string
	Model    *string
	BaseURL  *string
	Timeout  *time.Duration
}

// LoadOptions configures Load. All fields are optional.
type LoadOptions struct {
	// WorkDir is the directory holding the repo config (.rcommit.toml); if
	// empty, the current directory is used.
	WorkDir string
	// GlobalConfigPath is the global config file path; if empty, the XDG path is used.
	GlobalConfigPath string
	// Env is the environment key=value slice; if nil, os.Environ() is used.
	Env []string
	// Overrides are applied last (highest precedence).
	Overrides *Overrides
}

const (
	_defaultProvider    = ProviderOpenAI
	_defaultModel       = "default"
	_defaultTimeout     = 2 * time.Minute
	_defaultMaxRetries  = 3
	_defaultTemperature = 0.2
	_defaultDescLimit   = 72
)

// DefaultConfig returns the default configuration (no I/O).
func DefaultConfig() Config {
	return Config{
		Provider:         _defaultProvider,
		Model:            _defaultModel,
		BaseURL:          "",
		Timeout:          _defaultTimeout,
		MaxRetries:       _defaultMaxRetries,
		Temperature:      _defaultTemperature,
		CommitTypes:      commitmsg.DefaultPolicy().Types,
		DescriptionLimit: _defaultDescLimit,
	}
}

// Load loads configuration with precedence: defaults < global file < repo
// file < env < overrides. Missing config files are ignored. Invalid TOML or
// invalid env values return a configuration error. The credential is read
// from the environment here and nowhere else; its absence is validated later,
// only when the selected provider needs one.
func Load(opts LoadOptions) (*Config, error) {
	if opts.Env == nil {
		opts.Env = os.Environ()
	}
	cfg := DefaultConfig()

	globalPath := opts.GlobalConfigPath
	if globalPath == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return nil, erruser.New(erruser.KindConfiguration, "Could not determine config directory.", err)
		}
		globalPath = filepath.Join(dir, "rcommit", "config.toml")
	}
	if err := mergeFile(&cfg, globalPath); err != nil {
		return nil, err
	}

	workDir := opts.WorkDir
	if workDir == "" {
		workDir = "."
	}
	if err := mergeFile(&cfg, filepath.Join(workDir, ".rcommit.toml")); err != nil {
		return nil, err
	}

	if err := applyEnv(&cfg, opts.Env); err != nil {
		return nil, err
	}

	applyOverrides(&cfg, opts.Overrides)

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// mergeFile reads path and merges into cfg. Only overwrites fields that are
// present and non-zero in the file (so explicit empty in TOML keeps the
// previous value). Missing file is skipped.
func mergeFile(cfg *Config, path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return erruser.New(erruser.KindConfiguration, "Could not read configuration file.", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return erruser.New(erruser.KindConfiguration, "Could not read configuration file.", err)
	}
	var file struct {
		Provider         *string   `toml:"provider"`
		Model            *string   `toml:"model"`
		BaseURL          *string   `toml:"base_url"`
		Timeout          *string   `toml:"timeout"`
		MaxRetries       *int64    `toml:"max_retries"`
		Temperature      *float64  `toml:"temperature"`
		CommitTypes      *[]string `toml:"commit_types"`
		DescriptionLimit *int64    `toml:"description_limit"`
	}
	if _, err := toml.Decode(string(data), &file); err != nil {
		return erruser.New(erruser.KindConfiguration, "Invalid configuration in "+filepath.Base(path)+".", err)
	}
	if file.Provider != nil && *file.Provider != "" {
		cfg.Provider = *file.Provider
	}
	if file.Model != nil && *file.Model != "" {
		cfg.Model = *file.Model
	}
	if file.BaseURL != nil && *file.BaseURL != "" {
		cfg.BaseURL = *file.BaseURL
	}
	if file.Timeout != nil && *file.Timeout != "" {
		d, err := parseDuration(*file.Timeout)
		if err != nil {
			return erruser.New(erruser.KindConfiguration, "Invalid timeout in configuration file.", err)
		}
		cfg.Timeout = d
	}
	if file.MaxRetries != nil && *file.MaxRetries > 0 {
		cfg.MaxRetries = int(*file.MaxRetries)
	}
	if file.Temperature != nil {
		cfg.Temperature = *file.Temperature
	}
	if file.CommitTypes != nil && len(*file.CommitTypes) > 0 {
		cfg.CommitTypes = normalizeTypes(*file.CommitTypes)
	}
	if file.DescriptionLimit != nil && *file.DescriptionLimit > 0 {
		cfg.DescriptionLimit = int(*file.DescriptionLimit)
	}
	return nil
}

// applyEnv applies RCOMMIT_* variables and the credential from env. env is a
// key=value slice; later entries win, matching os.Environ semantics.
func applyEnv(cfg *Config, env []string) error {
	vars := map[string]string{}
	for _, kv := range env {
		if i := strings.Index(kv, "="); i > 0 {
			vars[kv[:i]] = kv[i+1:]
		}
	}
	if v := vars["RCOMMIT_PROVIDER"]; v != "" {
		cfg.Provider = v
	}
	if v := vars["RCOMMIT_MODEL"]; v != "" {
		cfg.Model = v
	}
	if v := vars["RCOMMIT_BASE_URL"]; v != "" {
		cfg.BaseURL = v
	}
	if v := vars["RCOMMIT_TIMEOUT"]; v != "" {
		d, err := parseDuration(v)
		if err != nil {
			return erruser.New(erruser.KindConfiguration, "Invalid RCOMMIT_TIMEOUT value.", err)
		}
		cfg.Timeout = d
	}
	if v := vars["RCOMMIT_MAX_RETRIES"]; v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return erruser.New(erruser.KindConfiguration, "Invalid RCOMMIT_MAX_RETRIES value.", err)
		}
		cfg.MaxRetries = n
	}
	if v := vars["RCOMMIT_TEMPERATURE"]; v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return erruser.New(erruser.KindConfiguration, "Invalid RCOMMIT_TEMPERATURE value.", err)
		}
		cfg.Temperature = f
	}
	if v := vars["RCOMMIT_COMMIT_TYPES"]; v != "" {
		cfg.CommitTypes = normalizeTypes(strings.Split(v, ","))
	}
	if v := vars["RCOMMIT_DESCRIPTION_LIMIT"]; v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return erruser.New(erruser.KindConfiguration, "Invalid RCOMMIT_DESCRIPTION_LIMIT value.", err)
		}
		cfg.DescriptionLimit = n
	}
	cfg.APIKey = vars["OPENAI_API_KEY"]
	return nil
}

func applyOverrides(cfg *Config, o *Overrides) {
	if o == nil {
		return
	}
	if o.Provider != nil && *o.Provider != "" {
		cfg.Provider = *o.Provider
	}
	if o.Model != nil && *o.Model != "" {
		cfg.Model = *o.Model
	}
	if o.BaseURL != nil && *o.BaseURL != "" {
		cfg.BaseURL = *o.BaseURL
	}
	if o.Timeout != nil && *o.Timeout > 0 {
		cfg.Timeout = *o.Timeout
	}
}

// validate checks cross-field constraints after all layers are applied. The
// credential check lives here so a missing key is reported before any
// subprocess or network call.
func validate(cfg *Config) error {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case ProviderOpenAI:
		cfg.Provider = ProviderOpenAI
		if cfg.APIKey == "" {
			return erruser.New(erruser.KindConfiguration,
				"OPENAI_API_KEY is not set; export it or switch provider to ollama.", nil)
		}
	case ProviderOllama:
		cfg.Provider = ProviderOllama
	default:
		return erruser.New(erruser.KindConfiguration,
			"Invalid provider \""+cfg.Provider+"\"; use openai or ollama.", nil)
	}
	if len(cfg.CommitTypes) == 0 {
		return erruser.New(erruser.KindConfiguration, "commit_types must not be empty.", nil)
	}
	return nil
}

// parseDuration accepts a Go duration string ("90s", "2m") or an integer
// number of seconds ("90").
func parseDuration(s string) (time.Duration, error) {
	if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	return time.ParseDuration(strings.TrimSpace(s))
}

func normalizeTypes(types []string) []string {
	out := make([]string, 0, len(types))
	for _, t := range types {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}
