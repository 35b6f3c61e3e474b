package pipeline

import (
	"encoding/json"
	"fmt"
	"path"
	"regexp"
	"strings"

	"spooltracker/internal"
	"spooltracker/internal/util"
)

const (
	sliceInfoEntry       = "Metadata/slice_info.config"
	projectSettingsEntry = "Metadata/project_settings.config"
	modelEntry           = "3D/3dmodel.model"
	modelPrefixBytes     = 64 << 10
)

var plateEntry = regexp.MustCompile(`(?i)^Metadata/plate_\d+\.(json|config)$`)

type sliceInfoFilament struct {
	Color       flexString `json:"color"`
	ColorCode   flexString `json:"color_code"`
	Type        flexString `json:"type"`
	Name        flexString `json:"name"`
	Material    flexString `json:"material"`
	UsedG       flexFloat  `json:"used_g"`
	UsedM       flexFloat  `json:"used_m"`
	ProductCode flexString `json:"product_code"`
}

type sliceInfoDoc struct {
	Filament    *[]sliceInfoFilament `json:"filament"`
	PrintTime   *flexFloat           `json:"print_time"`
	ProjectName flexString           `json:"project_name"`
}

type plateDoc struct {
	FilamentUsedG  flexFloats  `json:"filament_used_g"`
	FilamentType   flexStrings `json:"filament_type"`
	FilamentColour flexStrings `json:"filament_colour"`
	FilamentColor  flexStrings `json:"filament_color"`
	PrintTime      *flexFloat  `json:"print_time"`
}

type projectSettingsDoc struct {
	Name flexString `json:"name"`
}

// Parse3MF extracts filament usage from a sliced 3MF archive. Failures are
// recorded in ParseErrors; whatever was recovered is still returned.
func Parse3MF(filename string, content []byte, opts Options) internal.ParsedPrintFile {
	result := internal.ParsedPrintFile{
		Filename:       filename,
		Format:         internal.Format3MF,
		FilamentUsages: []internal.FilamentUsage{},
		ParseErrors:    []string{},
	}

	maxBytes := opts.MaxEntryBytes
	if maxBytes <= 0 {
		maxBytes = DefaultOptions().MaxEntryBytes
	}
	archive, err := openArchive(content, maxBytes)
	if err != nil {
		result.ParseErrors = append(result.ParseErrors, fmt.Sprintf("Failed to parse 3MF file: %v", err))
		return result
	}

	if text, found, err := archive.readText(sliceInfoEntry); found {
		if err != nil {
			result.ParseErrors = append(result.ParseErrors, fmt.Sprintf("Failed to parse %s: %v", sliceInfoEntry, err))
		} else {
			applySliceInfo(text, &result)
		}
	}

	if result.ProjectName == nil {
		if text, found, err := archive.readText(projectSettingsEntry); found && err == nil {
			var doc projectSettingsDoc
			if json.Unmarshal([]byte(text), &doc) == nil {
				result.ProjectName = doc.Name.ptr()
			}
		}
	}

	for _, name := range archive.names(plateEntry) {
		text, _, err := archive.readText(name)
		if err != nil {
			result.ParseErrors = append(result.ParseErrors, fmt.Sprintf("Failed to parse %s", name))
			continue
		}
		if strings.EqualFold(path.Ext(name), ".config") {
			applyKeyValueConfig(text, &result)
			continue
		}
		if err := applyPlateJSON(text, &result); err != nil {
			result.ParseErrors = append(result.ParseErrors, fmt.Sprintf("Failed to parse %s", name))
		}
	}

	if result.ProjectName == nil {
		if text, found, err := archive.readPrefix(modelEntry, modelPrefixBytes); found && err == nil {
			result.ProjectName = modelTitle(text)
		}
	}
	if result.ProjectName == nil {
		result.ProjectName = util.NonEmpty(util.StripPrintExtension(filename))
	}

	result.FilamentUsages = NormalizeUsages(result.FilamentUsages)
	return result
}

// applySliceInfo tries the slice-info JSON shape, then the XML shape Bambu
// and Orca write, then flat key/value text.
func applySliceInfo(text string, result *internal.ParsedPrintFile) {
	switch DetectConfigFormat(text) {
	case ConfigJSON:
		var doc sliceInfoDoc
		if err := json.Unmarshal([]byte(stripBOM(text)), &doc); err == nil {
			applySliceInfoJSON(doc, result)
			return
		}
	case ConfigXML:
		if applySliceInfoXML(text, result) {
			return
		}
	}
	applyKeyValueConfig(text, result)
}

func applySliceInfoJSON(doc sliceInfoDoc, result *internal.ParsedPrintFile) {
	if doc.Filament != nil {
		for _, f := range *doc.Filament {
			u := internal.FilamentUsage{
				Color:           f.Color.ptr(),
				ColorHex:        f.ColorCode.ptr(),
				Material:        f.Material.ptr(),
				WeightGrams:     f.UsedG.Value,
				LengthMeters:    f.UsedM.ptr(),
				ProductCode:     f.ProductCode.ptr(),
				MatchConfidence: internal.ConfidenceHigh,
			}
			// "name" carries the full profile; "type" is then the family.
			if name := f.Name.ptr(); name != nil {
				u.Type = name
				if u.Material == nil {
					u.Material = f.Type.ptr()
				}
			} else {
				u.Type = f.Type.ptr()
			}
			if u.ColorHex == nil && u.Color != nil && util.LooksLikeHex(*u.Color) {
				u.ColorHex = u.Color
			}
			result.FilamentUsages = append(result.FilamentUsages, u)
		}
	}
	if result.PrintTime == nil && doc.PrintTime != nil && doc.PrintTime.Set {
		result.PrintTime = util.IntPtr(roundSeconds(doc.PrintTime.Value))
	}
	if result.ProjectName == nil {
		result.ProjectName = doc.ProjectName.ptr()
	}
}

func applyPlateJSON(text string, result *internal.ParsedPrintFile) error {
	var doc plateDoc
	if err := json.Unmarshal([]byte(stripBOM(text)), &doc); err != nil {
		return err
	}

	colors := doc.FilamentColour
	if len(colors) == 0 {
		colors = doc.FilamentColor
	}
	for i, w := range doc.FilamentUsedG {
		if w <= 0 {
			continue
		}
		u := internal.FilamentUsage{
			WeightGrams:     w,
			Type:            doc.FilamentType.at(i),
			ColorHex:        colors.at(i),
			MatchConfidence: internal.ConfidenceLow,
		}
		if u.Type != nil {
			u.MatchConfidence = internal.ConfidenceMedium
		}
		result.FilamentUsages = append(result.FilamentUsages, u)
	}
	if result.PrintTime == nil && doc.PrintTime != nil && doc.PrintTime.Set {
		result.PrintTime = util.IntPtr(roundSeconds(doc.PrintTime.Value))
	}
	return nil
}
