package commitmsg

import (
	"strings"
	"testing"

	"rcommit/cli/internal/erruser"
)

func TestNormalize_wellFormed(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		in   string
		want Message
	}{
		{
			"type and description",
			"feat: add retry budget",
			Message{Type: "feat", Description: "add retry budget"},
		},
		{
			"scope and body",
			"fix(parser): handle empty input\n\nAdds guard for nil diff.",
			Message{Type: "fix", Scope: "parser", Description: "handle empty input", Body: "Adds guard for nil diff."},
		},
		{
			"breaking marker",
			"refactor(api)!: rename public entry point",
			Message{Type: "refactor", Scope: "api", Breaking: true, Description: "rename public entry point"},
		},
		{
			"multi-paragraph body",
			"chore: bump deps\n\nFirst paragraph.\n\nSecond paragraph.",
			Message{Type: "chore", Description: "bump deps", Body: "First paragraph.\n\nSecond paragraph."},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.in, DefaultPolicy())
			if err != nil {
				t.Fatalf("Normalize: %v", err)
			}
			if got != tt.want {
				t.Errorf("Normalize = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestNormalize_roundTrip(t *testing.T) {
	t.Parallel()
	for _, in := range []string{
		"feat: add retry budget",
		"fix(parser): handle empty input\n\nAdds guard for nil diff.",
		"docs(readme)!: rewrite install steps",
	} {
		m, err := Normalize(in, DefaultPolicy())
		if err != nil {
			t.Fatalf("Normalize(%q): %v", in, err)
		}
		if m.String() != in {
			t.Errorf("round trip = %q, want %q", m.String(), in)
		}
	}
}

func TestNormalize_stripsArtifacts(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		in   string
	}{
		{"surrounding whitespace", "  \nfix(parser): handle empty input\n\nAdds guard for nil diff.\n "},
		{"wrapping quotes", `"fix(parser): handle empty input` + "\n\n" + `Adds guard for nil diff."`},
		{"plain fence", "```\nfix(parser): handle empty input\n\nAdds guard for nil diff.\n```"},
		{"fence with language", "```text\nfix(parser): handle empty input\n\nAdds guard for nil diff.\n```"},
	}
	want := Message{Type: "fix", Scope: "parser", Description: "handle empty input", Body: "Adds guard for nil diff."}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.in, DefaultPolicy())
			if err != nil {
				t.Fatalf("Normalize: %v", err)
			}
			if got != want {
				t.Errorf("Normalize = %+v, want %+v", got, want)
			}
		})
	}
}

func TestNormalize_bestEffortRecovery(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		in   string
		want Message
	}{
		{"uppercase type", "Fix(parser): handle empty input", Message{Type: "fix", Scope: "parser", Description: "handle empty input"}},
		{"dash separator", "fix - handle empty input", Message{Type: "fix", Description: "handle empty input"}},
		{"missing colon", "feat add config loader", Message{Type: "feat", Description: "add config loader"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.in, DefaultPolicy())
			if err != nil {
				t.Fatalf("Normalize: %v", err)
			}
			if got != tt.want {
				t.Errorf("Normalize = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestNormalize_rejects(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		in   string
	}{
		{"empty", ""},
		{"whitespace only", "   \n  "},
		{"no known type", "improved the parser somewhat"},
		{"unknown type strict header", "bugfix: handle empty input"},
		{"unrecoverable prefix", "Feature: add login"},
		{"empty description", "fix: "},
		{"overlong description", "fix: " + strings.Repeat("x", 100)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize(tt.in, DefaultPolicy())
			if err == nil {
				t.Fatalf("Normalize(%q) = nil error, want invalid-message", tt.in)
			}
			if !erruser.IsKind(err, erruser.KindInvalidMessage) {
				t.Errorf("kind = %v, want KindInvalidMessage", erruser.KindOf(err))
			}
		})
	}
}

func TestNormalize_rejectionCarriesRawText(t *testing.T) {
	t.Parallel()
	raw := "totally not a commit message"
	_, err := Normalize(raw, DefaultPolicy())
	if err == nil {
		t.Fatal("want error")
	}
	if !strings.Contains(err.Error(), raw) {
		t.Errorf("error %q does not carry raw text for diagnosis", err.Error())
	}
}

func TestNormalize_policyControlsVocabularyAndLimit(t *testing.T) {
	t.Parallel()
	policy := Policy{Types: []string{"feat", "wip"}, DescriptionLimit: 20}

	if _, err := Normalize("wip: try things", policy); err != nil {
		t.Errorf("custom type rejected: %v", err)
	}
	if _, err := Normalize("fix: handle empty input", policy); err == nil {
		t.Error("type outside custom vocabulary accepted")
	}
	if _, err := Normalize("feat: "+strings.Repeat("x", 21), policy); err == nil {
		t.Error("description over custom limit accepted")
	}
}

func TestMessage_String_noBody(t *testing.T) {
	t.Parallel()
	m := Message{Type: "docs", Description: "fix typo"}
	if got := m.String(); got != "docs: fix typo" {
		t.Errorf("String() = %q", got)
	}
}
