// Package model resolves user-facing model tier identifiers to concrete
// backend parameters (model name and token limits). The tier set is a fixed
// enumeration; unknown identifiers are a caller-input error and are never
// retried.
package model

import (
	"strings"

	"rcommit/cli/internal/erruser"
)

// Tier is a selectable generation tier.
type Tier string

const (
	// TierDefault is the baseline tier, selected when no -m flag is given.
	TierDefault Tier = "default"
	// TierAdvanced is the highest-quality tier.
	TierAdvanced Tier = "advanced"
	// TierAdvancedFast trades some quality for latency and cost.
	TierAdvancedFast Tier = "advanced-fast"
)

// Params are the backend parameters a tier resolves to. RemoteName is the
// model identifier sent to the remote chat-completions API; LocalName is the
// equivalent for a local Ollama backend. InputBudget is the prompt token
// budget used by the composer for truncation; MaxOutputTokens bounds the
// response.
type Params struct {
	Tier            Tier
	RemoteName      string
	LocalName       string
	InputBudget     int
	MaxOutputTokens int
}

// params is the fixed tier table. Budgets are deliberately conservative:
// the description of a commit rarely needs the full context window, and a
// smaller budget keeps truncation (and cost) predictable.
var params = map[Tier]Params{
	TierDefault: {
		Tier:            TierDefault,
		RemoteName:      "gpt-4o-mini",
		LocalName:       "qwen2.5-coder:7b",
		InputBudget:     16384,
		MaxOutputTokens: 512,
	},
	TierAdvanced: {
		Tier:            TierAdvanced,
		RemoteName:      "gpt-4o",
		LocalName:       "qwen3-coder:30b",
		InputBudget:     32768,
		MaxOutputTokens: 1024,
	},
	TierAdvancedFast: {
		Tier:            TierAdvancedFast,
		RemoteName:      "gpt-4-turbo",
		LocalName:       "qwen2.5-coder:14b",
		InputBudget:     32768,
		MaxOutputTokens: 512,
	},
}

// Resolve maps identifier to tier parameters. Matching is case-insensitive
// after trimming whitespace; the empty string selects the baseline tier.
// Unknown identifiers return a KindUnknownModel error.
func Resolve(identifier string) (Params, error) {
	norm := strings.ToLower(strings.TrimSpace(identifier))
	if norm == "" {
		return params[TierDefault], nil
	}
	p, ok := params[Tier(norm)]
	if !ok {
		return Params{}, erruser.New(erruser.KindUnknownModel,
			"Unknown model \""+identifier+"\"; use default, advanced, or advanced-fast.", nil)
	}
	return p, nil
}

// Tiers returns the known tier identifiers in display order (for help text).
func Tiers() []string {
	return []string{string(TierDefault), string(TierAdvanced), string(TierAdvancedFast)}
}
