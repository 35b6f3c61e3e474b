package pipeline

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"spooltracker/internal/util"
)

// flexFloat accepts a JSON number or a numeric string. Anything else leaves
// it unset rather than failing the surrounding document.
type flexFloat struct {
	Value float64
	Set   bool
}

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	*f = flexFloat{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		if v, err := n.Float64(); err == nil {
			*f = flexFloat{Value: v, Set: true}
		}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if v, ok := util.ParseNumber(s); ok {
			*f = flexFloat{Value: v, Set: true}
		}
	}
	return nil
}

func (f flexFloat) ptr() *float64 {
	if !f.Set {
		return nil
	}
	return util.FloatPtr(f.Value)
}

// flexFloats accepts a single number or a list of numbers.
type flexFloats []float64

func (f *flexFloats) UnmarshalJSON(data []byte) error {
	*f = nil
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var items []flexFloat
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		out := make(flexFloats, 0, len(items))
		for _, it := range items {
			out = append(out, it.Value)
		}
		*f = out
		return nil
	}
	var single flexFloat
	if err := single.UnmarshalJSON(data); err != nil {
		return err
	}
	if single.Set {
		*f = flexFloats{single.Value}
	}
	return nil
}

// flexString accepts a string or a number.
type flexString string

func (s *flexString) UnmarshalJSON(data []byte) error {
	*s = ""
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		*s = flexString(strings.TrimSpace(str))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*s = flexString(n.String())
	}
	return nil
}

func (s flexString) ptr() *string {
	return util.NonEmpty(string(s))
}

// flexStrings accepts a list of strings or a single ';'/','-delimited string.
type flexStrings []string

func (s *flexStrings) UnmarshalJSON(data []byte) error {
	*s = nil
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var items []flexString
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		out := make(flexStrings, 0, len(items))
		for _, it := range items {
			out = append(out, string(it))
		}
		*s = out
		return nil
	}
	var single flexString
	if err := single.UnmarshalJSON(data); err != nil {
		return err
	}
	if single != "" {
		*s = flexStrings(util.SplitList(string(single)))
	}
	return nil
}

func (s flexStrings) at(i int) *string {
	if i < 0 || i >= len(s) {
		return nil
	}
	return util.NonEmpty(s[i])
}

func roundSeconds(v float64) int {
	if v < 0 {
		return 0
	}
	i, err := strconv.Atoi(strconv.FormatFloat(v, 'f', 0, 64))
	if err != nil {
		return 0
	}
	return i
}
