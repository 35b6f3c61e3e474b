package inventory

import (
	"bytes"
	"errors"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"spooltracker/internal"
	"spooltracker/internal/util"
)

var ErrNoSpoolSheet = errors.New("no sheet with a spool header row")

// column aliases, matched after lowercasing and dropping spaces/underscores
var spoolColumns = map[string][]string{
	"id":           {"id", "spoolid"},
	"uid":          {"uid", "spooluid"},
	"manufacturer": {"manufacturer", "manufacturername", "brand"},
	"type":         {"filamenttype", "filamenttypename", "type"},
	"material":     {"material", "materialname"},
	"colorName":    {"color", "colorname", "colour"},
	"hex":          {"hex", "colorhex", "colorhexcode", "colourhex"},
	"productCode":  {"productcode", "colorproductcode", "code"},
	"initial":      {"initialweight", "initialweightgrams", "initial"},
	"current":      {"currentweight", "currentweightgrams", "weight", "remaining"},
	"empty":        {"empty", "isempty"},
	"location":     {"location", "storagelocation", "storagelocationname"},
}

// ParseSpoolsXLSX reads spools from the first sheet that has a recognizable
// header row. The id column is required; rows without a numeric id are skipped.
func ParseSpoolsXLSX(content []byte) ([]internal.Spool, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil || len(rows) < 1 {
			continue
		}
		cols := inferSpoolColumns(rows[0])
		if _, ok := cols["id"]; !ok {
			continue
		}

		out := []internal.Spool{}
		for _, row := range rows[1:] {
			cell := func(key string) string {
				idx, ok := cols[key]
				if !ok || idx >= len(row) {
					return ""
				}
				return strings.TrimSpace(row[idx])
			}

			id, err := strconv.ParseInt(cell("id"), 10, 64)
			if err != nil {
				continue
			}
			s := internal.Spool{
				ID:               id,
				UID:              cell("uid"),
				ManufacturerName: cell("manufacturer"),
				FilamentTypeName: cell("type"),
				MaterialName:     cell("material"),
				ColorName:        cell("colorName"),
				ColorHexCode:     cell("hex"),
				ColorProductCode: util.NonEmpty(cell("productCode")),
				LocationName:     util.NonEmpty(cell("location")),
			}
			if s.UID == "" {
				s.UID = strconv.FormatInt(id, 10)
			}
			if v, ok := util.ParseNumber(cell("initial")); ok {
				s.InitialWeightGrams = util.FloatPtr(v)
			}
			if v, ok := util.ParseNumber(cell("current")); ok {
				s.CurrentWeightGrams = util.FloatPtr(v)
			}
			switch strings.ToLower(cell("empty")) {
			case "1", "true", "yes", "y", "x":
				s.IsEmpty = true
			}
			out = append(out, s)
		}
		return out, nil
	}
	return nil, ErrNoSpoolSheet
}

func inferSpoolColumns(header []string) map[string]int {
	lookup := map[string]string{}
	for key, aliases := range spoolColumns {
		for _, a := range aliases {
			lookup[a] = key
		}
	}

	cols := map[string]int{}
	for i, h := range header {
		norm := strings.NewReplacer(" ", "", "_", "", "-", "").Replace(strings.ToLower(strings.TrimSpace(h)))
		if key, ok := lookup[norm]; ok {
			if _, seen := cols[key]; !seen {
				cols[key] = i
			}
		}
	}
	return cols
}
