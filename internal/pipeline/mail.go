package pipeline

import (
	"bytes"
	"strings"

	"github.com/jhillyerd/enmime"

	"spooltracker/internal"
)

type PrintAttachment struct {
	Filename string
	Content  []byte
}

// ExtractPrintAttachments returns the 3MF and G-code files attached to a raw
// message, in MIME order, along with the decoded subject.
func ExtractPrintAttachments(raw []byte) ([]PrintAttachment, string, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return nil, "", err
	}

	parts := make([]*enmime.Part, 0, len(env.Attachments)+len(env.Inlines)+len(env.OtherParts))
	parts = append(parts, env.Attachments...)
	parts = append(parts, env.Inlines...)
	parts = append(parts, env.OtherParts...)

	out := []PrintAttachment{}
	for _, part := range parts {
		filename := strings.TrimSpace(part.FileName)
		if filename == "" {
			continue
		}
		if format, _ := DetectFormat(filename); format == internal.FormatUnsupported {
			continue
		}
		out = append(out, PrintAttachment{Filename: filename, Content: part.Content})
	}

	return out, env.GetHeader("Subject"), nil
}
