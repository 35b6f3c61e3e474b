package imap

import (
	"testing"

	"github.com/emersion/go-imap"
)

func TestPrintFilenames(t *testing.T) {
	bs := &imap.BodyStructure{
		MIMEType:    "multipart",
		MIMESubType: "mixed",
		Parts: []*imap.BodyStructure{
			{MIMEType: "text", MIMESubType: "plain"},
			{
				MIMEType:          "application",
				MIMESubType:       "octet-stream",
				Disposition:       "attachment",
				DispositionParams: map[string]string{"filename": "benchy.gcode"},
			},
			{
				MIMEType:    "application",
				MIMESubType: "vnd.ms-package.3dmanufacturing-3dmodel+xml",
				Params:      map[string]string{"name": "plate.3mf"},
			},
			{
				MIMEType:          "image",
				MIMESubType:       "png",
				Disposition:       "attachment",
				DispositionParams: map[string]string{"filename": "preview.png"},
			},
		},
	}

	got := printFilenames(bs)
	if len(got) != 2 || got[0] != "benchy.gcode" || got[1] != "plate.3mf" {
		t.Fatalf("got %v", got)
	}
}

func TestFormatAddresses(t *testing.T) {
	got := formatAddresses([]*imap.Address{
		{PersonalName: "Print Farm", MailboxName: "farm", HostName: "example.com"},
		nil,
		{MailboxName: "ops", HostName: "example.com"},
	})
	if got != "Print Farm <farm@example.com>, ops@example.com" {
		t.Fatalf("got %q", got)
	}
}
