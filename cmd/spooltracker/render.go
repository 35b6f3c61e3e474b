package main

import (
	"fmt"
	"strconv"
	"strings"

	"spooltracker/internal"
	"spooltracker/internal/util"
)

func renderParsedFile(file internal.ParsedPrintFile) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s)\n", file.Filename, orDash(util.NonEmpty(string(file.Format))))
	if file.ProjectName != nil {
		fmt.Fprintf(&b, "  project: %s\n", *file.ProjectName)
	}
	if file.PrintTime != nil {
		fmt.Fprintf(&b, "  print time: %s\n", util.FormatPrintTime(*file.PrintTime))
	}
	if file.PrinterModel != nil {
		fmt.Fprintf(&b, "  printer: %s\n", *file.PrinterModel)
	}
	if file.Slicer != nil {
		fmt.Fprintf(&b, "  slicer: %s\n", *file.Slicer)
	}
	for _, e := range file.ParseErrors {
		fmt.Fprintf(&b, "  error: %s\n", e)
	}

	rows := make([][]string, 0, len(file.FilamentUsages))
	for i, u := range file.FilamentUsages {
		length := "-"
		if u.LengthMeters != nil {
			length = strconv.FormatFloat(*u.LengthMeters, 'f', 2, 64)
		}
		rows = append(rows, []string{
			strconv.Itoa(i), orDash(u.Type), orDash(u.Material), orDash(u.ColorHex),
			grams(u.WeightGrams), length, string(u.MatchConfidence),
		})
	}
	if len(rows) > 0 {
		b.WriteString(renderTable(
			[]string{"#", "Type", "Material", "Color", "Grams", "Meters", "Confidence"},
			rows,
			[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
		))
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "  total: %s g\n", grams(file.TotalWeightGrams()))
	return b.String()
}

func renderMatches(matches []internal.UsageMatch) string {
	rows := make([][]string, 0, len(matches))
	for i, m := range matches {
		selected := "-"
		if m.SelectedSpoolID != nil {
			selected = strconv.FormatInt(*m.SelectedSpoolID, 10)
		}
		best, score, reason := "-", "-", "-"
		if len(m.Candidates) > 0 {
			c := m.Candidates[0]
			best = fmt.Sprintf("%s (#%d, %s g left)", c.Spool.UID, c.Spool.ID, grams(c.Spool.RemainingGrams()))
			if c.InsufficientStock {
				best += " !low"
			}
			score = strconv.Itoa(c.MatchScore)
			reason = string(c.Reason)
		}
		rows = append(rows, []string{
			strconv.Itoa(i), grams(m.Usage.WeightGrams), string(m.Status), best, score, reason,
			strconv.Itoa(len(m.Candidates)), selected,
		})
	}
	return renderTable(
		[]string{"#", "Grams", "Status", "Best spool", "Score", "Reason", "Candidates", "Selected"},
		rows,
		[]columnAlignment{alignRight, alignRight, alignLeft, alignLeft, alignRight, alignLeft, alignRight, alignRight},
	)
}

func renderDeductions(deductions []internal.Deduction) string {
	rows := make([][]string, 0, len(deductions))
	for _, d := range deductions {
		empty := ""
		if d.MarkEmpty {
			empty = "yes"
		}
		rows = append(rows, []string{
			strconv.FormatInt(d.SpoolID, 10), grams(d.GramsUsed), grams(d.PreviousWeightGrams), grams(d.NewWeightGrams), empty,
		})
	}
	return renderTable(
		[]string{"Spool", "Used", "Before", "After", "Empty"},
		rows,
		[]columnAlignment{alignRight, alignRight, alignRight, alignRight, alignLeft},
	)
}
