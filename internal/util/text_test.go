package util

import "testing"

func TestNormalize(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{name: "trim and lower", input: "  NAME_3 ", want: "name_3"},
		{name: "nbsp inside", input: "Exposure\u00a0at Risk", want: "exposure at risk"},
		{name: "double space halved", input: "Expected  Losses", want: "expected losses"},
		{name: "triple space not fully collapsed", input: "Expected   Losses", want: "expected  losses"},
		{name: "accents kept", input: "Secheresse Modérée (1/0)", want: "secheresse modérée (1/0)"},
		{name: "leading nbsp trimmed", input: "\u00a0Fada", want: "fada"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Normalize(tc.input); got != tc.want {
				t.Fatalf("got %q want %q", got, tc.want)
			}
		})
	}
}

func TestNormalizeNameNil(t *testing.T) {
	if NormalizeName(nil) != nil {
		t.Fatal("nil input must stay nil")
	}
	got := NormalizeName(StringPtr(" Ouaga "))
	if got == nil || *got != "ouaga" {
		t.Fatalf("got %v", got)
	}
}

func TestCollapseSpaces(t *testing.T) {
	got := CollapseSpaces("  Inondation \u00a0   sévère  ")
	if got != "Inondation sévère" {
		t.Fatalf("got %q", got)
	}
}

func TestStripToASCII(t *testing.T) {
	cases := map[string]string{
		"Sécheresse sévère":  "Secheresse severe",
		"Inondation modérée": "Inondation moderee",
		"Aucun événement":    "Aucun evenement",
		"Fada N'gourma":      "Fada N'gourma",
		"Ouagadougou 🌍":      "Ouagadougou ",
	}
	for input, want := range cases {
		if got := StripToASCII(input); got != want {
			t.Fatalf("StripToASCII(%q) = %q want %q", input, got, want)
		}
	}
}
