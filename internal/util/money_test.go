package util

import "testing"

func TestParseMoneyToken(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  float64
		ok    bool
	}{
		{name: "space thousands comma decimal", input: "12 500,75", want: 12500.75, ok: true},
		{name: "nbsp thousands", input: "1\u00a0000\u00a0000", want: 1000000, ok: true},
		{name: "plain integer", input: "1000", want: 1000, ok: true},
		{name: "dot decimal", input: "3.5", want: 3.5, ok: true},
		{name: "not a number", input: "N/A", ok: false},
		{name: "empty", input: "", ok: false},
		{name: "nan text", input: "nan", ok: false},
		{name: "dot thousands and comma decimal", input: "1.234,56", ok: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ParseMoneyToken(tc.input)
			if ok != tc.ok {
				t.Fatalf("ok=%v want %v", ok, tc.ok)
			}
			if ok && got != tc.want {
				t.Fatalf("got %v want %v", got, tc.want)
			}
		})
	}
}

func TestFormatGrouped(t *testing.T) {
	if got := FormatGrouped(nil); got != "" {
		t.Fatalf("nil: got %q", got)
	}
	cases := map[float64]string{
		0:          "0",
		1000:       "1 000",
		12500.75:   "12 501",
		1234567.4:  "1 234 567",
		999:        "999",
		-2500000.0: "-2 500 000",
		0.5:        "0",
		1.5:        "2",
		2.5:        "2",
		12500.5:    "12 500",
		-1234.5:    "-1 234",
		1e20:       "100 000 000 000 000 000 000",
	}
	for input, want := range cases {
		if got := FormatGrouped(FloatPtr(input)); got != want {
			t.Fatalf("FormatGrouped(%v) = %q want %q", input, got, want)
		}
	}
}
