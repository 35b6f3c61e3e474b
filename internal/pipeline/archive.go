package pipeline

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"
)

type printArchive struct {
	reader   *zip.Reader
	byName   map[string]*zip.File
	byFolded map[string]*zip.File
	maxBytes int64
}

func openArchive(content []byte, maxBytes int64) (*printArchive, error) {
	r, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, err
	}
	a := &printArchive{
		reader:   r,
		byName:   make(map[string]*zip.File, len(r.File)),
		byFolded: make(map[string]*zip.File, len(r.File)),
		maxBytes: maxBytes,
	}
	for _, f := range r.File {
		name := strings.TrimPrefix(f.Name, "/")
		a.byName[name] = f
		if _, exists := a.byFolded[strings.ToLower(name)]; !exists {
			a.byFolded[strings.ToLower(name)] = f
		}
	}
	return a, nil
}

func (a *printArchive) lookup(name string) *zip.File {
	if f, ok := a.byName[name]; ok {
		return f
	}
	return a.byFolded[strings.ToLower(name)]
}

// names returns entry names matching re in archive order.
func (a *printArchive) names(re *regexp.Regexp) []string {
	out := []string{}
	for _, f := range a.reader.File {
		name := strings.TrimPrefix(f.Name, "/")
		if re.MatchString(name) {
			out = append(out, name)
		}
	}
	return out
}

// readText returns the entry body. found is false when the entry is absent.
func (a *printArchive) readText(name string) (text string, found bool, err error) {
	return a.read(name, a.maxBytes, true)
}

// readPrefix returns at most n bytes of the entry without failing on longer bodies.
func (a *printArchive) readPrefix(name string, n int64) (string, bool, error) {
	return a.read(name, n, false)
}

func (a *printArchive) read(name string, limit int64, strict bool) (string, bool, error) {
	f := a.lookup(name)
	if f == nil {
		return "", false, nil
	}
	rc, err := f.Open()
	if err != nil {
		return "", true, err
	}
	defer rc.Close()

	blob, err := io.ReadAll(io.LimitReader(rc, limit+1))
	if err != nil {
		return "", true, err
	}
	if int64(len(blob)) > limit {
		if strict {
			return "", true, fmt.Errorf("entry %s exceeds %d bytes", name, limit)
		}
		blob = blob[:limit]
	}
	return string(blob), true, nil
}
