package gmail

import (
	"encoding/base64"
	"testing"
	"time"
)

func TestDecodeBase64URL(t *testing.T) {
	want := "Subject: hi\r\n\r\n??>"
	for _, enc := range []*base64.Encoding{base64.RawURLEncoding, base64.URLEncoding} {
		got, err := decodeBase64URL(enc.EncodeToString([]byte(want)))
		if err != nil {
			t.Fatal(err)
		}
		if string(got) != want {
			t.Fatalf("got %q", got)
		}
	}
	if _, err := decodeBase64URL("***"); err == nil {
		t.Fatal("expected error")
	}
}

func TestParseMailDate(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"Mon, 02 Jan 2006 15:04:05 -0700", time.Date(2006, 1, 2, 22, 4, 5, 0, time.UTC)},
		{"Mon, 02 Jan 2006 15:04:05 +0000 (UTC)", time.Date(2006, 1, 2, 15, 4, 5, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseMailDate(tt.in)
			if err != nil {
				t.Fatal(err)
			}
			if !got.Equal(tt.want) {
				t.Fatalf("got %v want %v", got, tt.want)
			}
		})
	}
	if _, err := parseMailDate(""); err == nil {
		t.Fatal("expected error for empty date")
	}
}

func TestPrintAttachmentQuery(t *testing.T) {
	if got := printAttachmentQuery(); got != "has:attachment {filename:3mf filename:gco filename:gcode}" {
		t.Fatalf("got %q", got)
	}
}
