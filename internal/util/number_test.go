package util

import "testing"

func TestParseNumber(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  float64
		ok    bool
	}{
		{name: "decimal dot", input: "42.5", want: 42.5, ok: true},
		{name: "decimal comma", input: "42,5", want: 42.5, ok: true},
		{name: "unit suffix", input: "12.34g", want: 12.34, ok: true},
		{name: "quoted", input: `"7.1"`, want: 7.1, ok: true},
		{name: "grouped thousands", input: "1.234.567", want: 1234567, ok: true},
		{name: "garbage", input: "n/a", ok: false},
		{name: "empty", input: "  ", ok: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ParseNumber(tc.input)
			if ok != tc.ok {
				t.Fatalf("ok=%v want %v", ok, tc.ok)
			}
			if ok && got != tc.want {
				t.Fatalf("got %v want %v", got, tc.want)
			}
		})
	}
}

func TestParseNumberListKeepsSlots(t *testing.T) {
	got := ParseNumberList("1.5, x ,0;3.25,")
	want := []float64{1.5, 0, 0, 3.25}
	if len(got) != len(want) {
		t.Fatalf("len=%d want %d (%v)", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("idx %d: got %v want %v", i, got[i], want[i])
		}
	}
}

func TestSplitList(t *testing.T) {
	got := SplitList(`"Bambu PLA Basic @BBL X1C";"Bambu PETG HF @BBL X1C"`)
	if len(got) != 2 || got[0] != "Bambu PLA Basic @BBL X1C" || got[1] != "Bambu PETG HF @BBL X1C" {
		t.Fatalf("unexpected split: %q", got)
	}
	if SplitList("") != nil {
		t.Fatalf("empty input should give nil")
	}
}
