package pipeline

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseInputEML(t *testing.T) {
	path := filepath.Join("testdata", "print_job.eml")
	if got := InputTypeForPath(path); got != "eml" {
		t.Fatalf("input type=%s", got)
	}
	files, err := ParseInput("eml", path, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 || files[0].Filename != "benchy.gcode" {
		t.Fatalf("unexpected files: %+v", files)
	}
	if len(files[0].FilamentUsages) != 2 || *files[0].FilamentUsages[1].Type != "PETG" {
		t.Fatalf("unexpected usages: %+v", files[0].FilamentUsages)
	}
}

func TestParseInputFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cube.3mf")
	blob := mk3MF(t, zipEntry{sliceInfoEntry, `{"filament":[{"type":"PLA","used_g":3}]}`})
	if err := os.WriteFile(path, blob, 0o644); err != nil {
		t.Fatal(err)
	}

	files, err := ParseInput(InputTypeForPath(path), path, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 || len(files[0].FilamentUsages) != 1 || *files[0].ProjectName != "cube" {
		t.Fatalf("unexpected: %+v", files)
	}
}

func TestParseInputUnknownType(t *testing.T) {
	if _, err := ParseInput("pdf", "x.pdf", DefaultOptions()); err == nil {
		t.Fatal("expected error")
	}
}
