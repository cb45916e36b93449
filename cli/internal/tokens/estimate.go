// Package tokens provides simple token estimation for prompt budget checks.
// Estimation uses a byte-based chars/4 heuristic; model-specific estimators
// can be added later.
package tokens

// charsPerToken is the divisor for the simple byte-based estimator
// (roughly 4 bytes per token for typical English/code).
const charsPerToken = 4

// Estimate returns an estimated token count for the given text.
// It uses a simple heuristic: (len(text)+3)/4 (bytes), so 0–3 bytes
// map to 1 token, 4–7 to 2, etc. Empty string returns 0.
// This is byte-based to align with typical tokenizer behavior.
func Estimate(text string) int {
	n := len(text)
	if n == 0 {
		return 0
	}
	return (n + charsPerToken - 1) / charsPerToken
}

// Excess returns how many estimated tokens text is over budget, or 0 when it
// fits. A non-positive budget means "no budget"; Excess returns 0.
func Excess(text string, budget int) int {
	if budget <= 0 {
		return 0
	}
	over := Estimate(text) - budget
	if over < 0 {
		return 0
	}
	return over
}
