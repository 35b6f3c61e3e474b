package pipeline

import (
	"archive/zip"
	"bytes"
	"strings"
	"testing"

	"spooltracker/internal"
)

type zipEntry struct {
	name string
	body string
}

func mk3MF(t *testing.T, entries ...zipEntry) []byte {
	t.Helper()
	buf := bytes.NewBuffer(nil)
	zw := zip.NewWriter(buf)
	for _, e := range entries {
		w, err := zw.Create(e.name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(e.body)); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestParse3MFSliceInfoJSON(t *testing.T) {
	blob := mk3MF(t, zipEntry{sliceInfoEntry, `{"filament":[{"color_code":"#112233","type":"Basic","used_g":150,"used_m":50}]}`})

	res := Parse3MF("cube.3mf", blob, DefaultOptions())
	if len(res.ParseErrors) != 0 {
		t.Fatalf("unexpected errors: %v", res.ParseErrors)
	}
	if len(res.FilamentUsages) != 1 {
		t.Fatalf("len=%d", len(res.FilamentUsages))
	}
	u := res.FilamentUsages[0]
	if u.ColorHex == nil || *u.ColorHex != "#112233" {
		t.Fatalf("colorHex=%v", u.ColorHex)
	}
	if u.Type == nil || *u.Type != "Basic" {
		t.Fatalf("type=%v", u.Type)
	}
	if u.WeightGrams != 150 || u.LengthMeters == nil || *u.LengthMeters != 50 {
		t.Fatalf("weight=%v length=%v", u.WeightGrams, u.LengthMeters)
	}
	if u.MatchConfidence != internal.ConfidenceHigh {
		t.Fatalf("confidence=%s", u.MatchConfidence)
	}
	if res.ProjectName == nil || *res.ProjectName != "cube" {
		t.Fatalf("projectName=%v", res.ProjectName)
	}
}

func TestParse3MFSliceInfoJSONFields(t *testing.T) {
	blob := mk3MF(t,
		zipEntry{sliceInfoEntry, `{
  "filament": [
    {"name": "Bambu PLA Basic", "type": "PLA", "color": "Jade White", "used_g": "12.5", "product_code": "10100"},
    {"name": "Bambu PETG HF", "type": "PETG", "color_code": "000000", "used_g": 0}
  ],
  "print_time": 3600,
  "project_name": "Bracket"
}`},
		zipEntry{projectSettingsEntry, `{"name": "Ignored"}`},
	)

	res := Parse3MF("bracket.gcode.3mf", blob, DefaultOptions())
	if len(res.FilamentUsages) != 1 {
		t.Fatalf("zero-weight row kept: %+v", res.FilamentUsages)
	}
	u := res.FilamentUsages[0]
	if *u.Type != "Bambu PLA Basic" || *u.Material != "PLA" || *u.Color != "Jade White" || *u.ProductCode != "10100" {
		t.Fatalf("unexpected usage: %+v", u)
	}
	if u.WeightGrams != 12.5 {
		t.Fatalf("weight=%v", u.WeightGrams)
	}
	if res.PrintTime == nil || *res.PrintTime != 3600 {
		t.Fatalf("printTime=%v", res.PrintTime)
	}
	if res.ProjectName == nil || *res.ProjectName != "Bracket" {
		t.Fatalf("projectName=%v", res.ProjectName)
	}
}

func TestParse3MFSliceInfoXML(t *testing.T) {
	xml := `<?xml version="1.0" encoding="UTF-8"?>
<config>
  <header>
    <header_item key="X-BBL-Client-Type" value="slicer"/>
  </header>
  <plate>
    <metadata key="index" value="1"/>
    <metadata key="printer_model_id" value="C11"/>
    <metadata key="prediction" value="1200"/>
    <metadata key="support_used" value="false"/>
    <filament id="1" tray_info_idx="GFA00" type="PLA" color="#ff0000" used_m="3.5" used_g="10.4"/>
    <filament id="2" tray_info_idx="GFG02" type="PETG" color="#00FF00" used_m="1.1" used_g="3.2"/>
  </plate>
  <plate>
    <metadata key="index" value="2"/>
    <metadata key="prediction" value="600"/>
    <metadata key="support_used" value="true"/>
    <filament id="1" type="PLA" color="#FF0000" used_m="1.0" used_g="3.0"/>
  </plate>
</config>`
	blob := mk3MF(t, zipEntry{sliceInfoEntry, xml})

	res := Parse3MF("plates.3mf", blob, DefaultOptions())
	if len(res.ParseErrors) != 0 {
		t.Fatalf("unexpected errors: %v", res.ParseErrors)
	}
	if len(res.FilamentUsages) != 3 {
		t.Fatalf("len=%d", len(res.FilamentUsages))
	}
	first := res.FilamentUsages[0]
	if *first.Type != "PLA" || *first.ColorHex != "#FF0000" || first.WeightGrams != 10.4 || *first.LengthMeters != 3.5 {
		t.Fatalf("unexpected first usage: %+v", first)
	}
	if first.MatchConfidence != internal.ConfidenceHigh {
		t.Fatalf("confidence=%s", first.MatchConfidence)
	}
	if res.PrintTime == nil || *res.PrintTime != 1800 {
		t.Fatalf("printTime=%v", res.PrintTime)
	}
	if res.PrinterModel == nil || *res.PrinterModel != "C11" {
		t.Fatalf("printerModel=%v", res.PrinterModel)
	}
	if res.UsesSupport == nil || !*res.UsesSupport {
		t.Fatalf("usesSupport=%v", res.UsesSupport)
	}
}

func TestParse3MFSliceInfoKeyValueFallback(t *testing.T) {
	blob := mk3MF(t, zipEntry{sliceInfoEntry, "filament_type = PLA,PETG\nfilament_used_g = 12.0, 4.5\nfilament_colour = #FF0000;#00FF00\n"})

	res := Parse3MF("kv.3mf", blob, DefaultOptions())
	if len(res.FilamentUsages) != 2 {
		t.Fatalf("len=%d: %+v", len(res.FilamentUsages), res.FilamentUsages)
	}
	if *res.FilamentUsages[1].Type != "PETG" || *res.FilamentUsages[1].ColorHex != "#00FF00" || res.FilamentUsages[1].WeightGrams != 4.5 {
		t.Fatalf("unexpected second usage: %+v", res.FilamentUsages[1])
	}
	for _, u := range res.FilamentUsages {
		if u.MatchConfidence != internal.ConfidenceHigh {
			t.Fatalf("confidence=%s", u.MatchConfidence)
		}
	}
}

func TestParse3MFPlates(t *testing.T) {
	blob := mk3MF(t,
		zipEntry{"Metadata/plate_1.json", `{"filament_used_g":[10.5,0,2.25],"filament_type":["PLA","PETG"],"filament_colour":["#FFFFFF"],"print_time":900}`},
		zipEntry{"Metadata/plate_2.json", `{not json`},
		zipEntry{"Metadata/plate_3.json", `{"filament_used_g":7,"filament_type":"ABS;ASA"}`},
		zipEntry{projectSettingsEntry, `{"name":"Desk Organizer"}`},
	)

	res := Parse3MF("desk.3mf", blob, DefaultOptions())
	if len(res.ParseErrors) != 1 || res.ParseErrors[0] != "Failed to parse Metadata/plate_2.json" {
		t.Fatalf("errors=%v", res.ParseErrors)
	}
	if len(res.FilamentUsages) != 3 {
		t.Fatalf("len=%d: %+v", len(res.FilamentUsages), res.FilamentUsages)
	}

	a, b, c := res.FilamentUsages[0], res.FilamentUsages[1], res.FilamentUsages[2]
	if a.WeightGrams != 10.5 || *a.Type != "PLA" || *a.ColorHex != "#FFFFFF" || a.MatchConfidence != internal.ConfidenceMedium {
		t.Fatalf("unexpected first usage: %+v", a)
	}
	if b.WeightGrams != 2.25 || b.Type != nil || b.MatchConfidence != internal.ConfidenceLow {
		t.Fatalf("unexpected second usage: %+v", b)
	}
	if c.WeightGrams != 7 || *c.Type != "ABS" || c.MatchConfidence != internal.ConfidenceMedium {
		t.Fatalf("unexpected third usage: %+v", c)
	}
	if res.PrintTime == nil || *res.PrintTime != 900 {
		t.Fatalf("printTime=%v", res.PrintTime)
	}
	if res.ProjectName == nil || *res.ProjectName != "Desk Organizer" {
		t.Fatalf("projectName=%v", res.ProjectName)
	}
}

func TestParse3MFPlateConfigWritesByPosition(t *testing.T) {
	blob := mk3MF(t,
		zipEntry{"Metadata/plate_1.json", `{"filament_used_g":[10,20],"filament_type":["PLA","PETG"]}`},
		zipEntry{"Metadata/plate_2.config", "filament used [g] = 1.5\nfilament_colour = ,#00FF00\n"},
	)

	res := Parse3MF("one.3mf", blob, DefaultOptions())
	if len(res.FilamentUsages) != 2 {
		t.Fatalf("unexpected usages: %+v", res.FilamentUsages)
	}
	if res.FilamentUsages[0].WeightGrams != 1.5 || res.FilamentUsages[0].MatchConfidence != internal.ConfidenceMedium {
		t.Fatalf("unexpected first usage: %+v", res.FilamentUsages[0])
	}
	second := res.FilamentUsages[1]
	if second.WeightGrams != 20 || second.ColorHex == nil || *second.ColorHex != "#00FF00" || second.MatchConfidence != internal.ConfidenceHigh {
		t.Fatalf("unexpected second usage: %+v", second)
	}
}

func TestParse3MFModelTitle(t *testing.T) {
	model := `<?xml version="1.0" encoding="UTF-8"?>
<model unit="millimeter" xml:lang="en-US" xmlns="http://schemas.microsoft.com/3dmanufacturing/core/2015/02">
  <metadata name="Application">BambuStudio-01.09</metadata>
  <metadata name="Title">Phone Stand</metadata>
  <resources></resources>
</model>`
	blob := mk3MF(t, zipEntry{modelEntry, model})

	res := Parse3MF("stand_v2.3mf", blob, DefaultOptions())
	if res.ProjectName == nil || *res.ProjectName != "Phone Stand" {
		t.Fatalf("projectName=%v", res.ProjectName)
	}
	if len(res.FilamentUsages) != 0 || len(res.ParseErrors) != 0 {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestParse3MFCorruptArchive(t *testing.T) {
	res := Parse3MF("broken.3mf", []byte("definitely not a zip"), DefaultOptions())
	if len(res.FilamentUsages) != 0 {
		t.Fatalf("usages=%+v", res.FilamentUsages)
	}
	if len(res.ParseErrors) != 1 || !strings.HasPrefix(res.ParseErrors[0], "Failed to parse 3MF file: ") {
		t.Fatalf("errors=%v", res.ParseErrors)
	}
}

func TestParse3MFZeroOptionsUseDefaults(t *testing.T) {
	blob := mk3MF(t, zipEntry{sliceInfoEntry, `{"filament":[{"color_code":"#112233","type":"Basic","used_g":150,"used_m":50}]}`})

	res := Parse3MF("cube.3mf", blob, Options{})
	if len(res.ParseErrors) != 0 {
		t.Fatalf("errors=%v", res.ParseErrors)
	}
	if len(res.FilamentUsages) != 1 || res.FilamentUsages[0].WeightGrams != 150 {
		t.Fatalf("unexpected usages: %+v", res.FilamentUsages)
	}
}

func TestParse3MFEntryLimit(t *testing.T) {
	blob := mk3MF(t, zipEntry{sliceInfoEntry, `{"filament":[{"type":"PLA","used_g":5}]}`})
	opts := DefaultOptions()
	opts.MaxEntryBytes = 8

	res := Parse3MF("big.3mf", blob, opts)
	if len(res.ParseErrors) != 1 || !strings.HasPrefix(res.ParseErrors[0], "Failed to parse Metadata/slice_info.config") {
		t.Fatalf("errors=%v", res.ParseErrors)
	}
}

func TestParse3MFIsIdempotent(t *testing.T) {
	blob := mk3MF(t,
		zipEntry{sliceInfoEntry, `{"filament":[{"color_code":"#112233","type":"PLA","used_g":1}]}`},
		zipEntry{"Metadata/plate_1.json", `{"filament_used_g":[2]}`},
	)
	a := Parse3MF("x.3mf", blob, DefaultOptions())
	b := Parse3MF("x.3mf", blob, DefaultOptions())
	if len(a.FilamentUsages) != len(b.FilamentUsages) {
		t.Fatalf("lengths differ: %d vs %d", len(a.FilamentUsages), len(b.FilamentUsages))
	}
	for i := range a.FilamentUsages {
		if a.FilamentUsages[i].WeightGrams != b.FilamentUsages[i].WeightGrams || a.FilamentUsages[i].MatchConfidence != b.FilamentUsages[i].MatchConfidence {
			t.Fatalf("idx %d differs", i)
		}
	}
}
