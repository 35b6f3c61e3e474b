package pipeline

import (
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"spooltracker/internal"
	"spooltracker/internal/util"
)

// applySliceInfoXML reads the <config><plate>... layout. It reports false
// when the document has no plate, so the caller can try another decoder.
func applySliceInfoXML(text string, result *internal.ParsedPrintFile) bool {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(text))
	if err != nil {
		return false
	}
	plates := doc.Find("plate")
	if plates.Length() == 0 {
		return false
	}

	prediction := 0
	havePrediction := false
	plates.Each(func(_ int, plate *goquery.Selection) {
		plate.Find("metadata").Each(func(_ int, meta *goquery.Selection) {
			key, _ := meta.Attr("key")
			value := strings.TrimSpace(meta.AttrOr("value", ""))
			switch strings.ToLower(strings.TrimSpace(key)) {
			case "prediction":
				if secs, err := strconv.Atoi(value); err == nil && secs >= 0 {
					prediction += secs
					havePrediction = true
				}
			case "printer_model_id":
				if result.PrinterModel == nil {
					result.PrinterModel = util.NonEmpty(value)
				}
			case "support_used":
				used, err := strconv.ParseBool(value)
				if err != nil {
					return
				}
				if result.UsesSupport == nil || (!*result.UsesSupport && used) {
					result.UsesSupport = util.BoolPtr(used)
				}
			}
		})

		plate.Find("filament").Each(func(_ int, f *goquery.Selection) {
			u := internal.FilamentUsage{
				Type:            util.NonEmpty(f.AttrOr("type", "")),
				ColorHex:        util.NonEmpty(strings.ToUpper(f.AttrOr("color", ""))),
				MatchConfidence: internal.ConfidenceHigh,
			}
			if w, ok := util.ParseNumber(f.AttrOr("used_g", "")); ok {
				u.WeightGrams = w
			}
			if m, ok := util.ParseNumber(f.AttrOr("used_m", "")); ok {
				u.LengthMeters = util.FloatPtr(m)
			}
			result.FilamentUsages = append(result.FilamentUsages, u)
		})
	})

	if result.PrintTime == nil && havePrediction {
		result.PrintTime = util.IntPtr(prediction)
	}
	return true
}

// modelTitle returns the Title metadata of a 3MF model part, if any.
func modelTitle(text string) *string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(text))
	if err != nil {
		return nil
	}
	var title *string
	doc.Find("metadata").EachWithBreak(func(_ int, meta *goquery.Selection) bool {
		if strings.EqualFold(meta.AttrOr("name", ""), "Title") {
			title = util.NonEmpty(meta.Text())
			return false
		}
		return true
	})
	return title
}
