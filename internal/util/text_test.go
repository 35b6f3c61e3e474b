package util

import "testing"

func TestStripPrintExtension(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{in: "benchy.3mf", want: "benchy"},
		{in: "benchy.gcode.3mf", want: "benchy"},
		{in: "Benchy.GCODE", want: "Benchy"},
		{in: "part.gco", want: "part"},
		{in: "dir/part.stl", want: "part.stl"},
		{in: ".3mf", want: ".3mf"},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			if got := StripPrintExtension(tc.in); got != tc.want {
				t.Fatalf("got %q want %q", got, tc.want)
			}
		})
	}
}

func TestFileExtension(t *testing.T) {
	if got := FileExtension("model.STL"); got != "stl" {
		t.Fatalf("got %q", got)
	}
	if got := FileExtension("README"); got != "readme" {
		t.Fatalf("got %q", got)
	}
}

func TestNormalizeHex(t *testing.T) {
	if NormalizeHex("#FFaa00") != NormalizeHex("ffAA00") {
		t.Fatalf("hex values should compare equal")
	}
	if !LooksLikeHex("#00FF00FF") {
		t.Fatalf("rgba hex not recognized")
	}
	if LooksLikeHex("Jade White") {
		t.Fatalf("color name taken for hex")
	}
}

func TestFirstWord(t *testing.T) {
	if got := FirstWord("  PLA Basic "); got != "PLA" {
		t.Fatalf("got %q", got)
	}
	if got := FirstWord(""); got != "" {
		t.Fatalf("got %q", got)
	}
}
