package pipeline

import (
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"spooltracker/internal"
)

func ExportRowsToXLSX(rows []internal.MatchExportRow, outputPath string) error {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)

	headers := []string{
		"run_id", "filename", "usage_index", "material", "type", "color_hex",
		"weight_g", "length_m", "confidence", "match_status",
		"spool_id", "spool_uid", "spool_color_hex", "spool_material",
		"match_score", "match_reason", "insufficient_stock",
		"candidate2_uid", "candidate2_score",
	}

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for i, row := range rows {
		r := i + 2
		set := func(col int, value any) {
			cell, _ := excelize.CoordinatesToCellName(col, r)
			_ = f.SetCellValue(sheet, cell, value)
		}

		set(1, row.RunID)
		set(2, row.Filename)
		set(3, row.UsageIndex+1)
		set(4, derefString(row.Material))
		set(5, derefString(row.Type))
		set(6, derefString(row.ColorHex))
		set(7, row.WeightGrams)
		set(8, derefFloat(row.LengthMeters))
		set(9, row.Confidence)
		set(10, row.MatchStatus)
		set(11, derefInt64(row.SpoolID))
		set(12, derefString(row.SpoolUID))
		set(13, derefString(row.SpoolColorHex))
		set(14, derefString(row.SpoolMaterial))
		set(15, derefInt(row.MatchScore))
		set(16, derefString(row.MatchReason))
		if row.InsufficientStock {
			set(17, "yes")
		}
		set(18, derefString(row.Candidate2UID))
		set(19, derefInt(row.Candidate2Score))
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return f.SaveAs(outputPath)
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func derefFloat(v *float64) any {
	if v == nil {
		return ""
	}
	return *v
}

func derefInt(v *int) any {
	if v == nil {
		return ""
	}
	return *v
}

func derefInt64(v *int64) any {
	if v == nil {
		return ""
	}
	return *v
}
