package ml

import (
	"sort"
)

// LabelEncoder maps categories to dense integer codes. Classes is sorted, so
// the code of a category only depends on the set of categories seen.
type LabelEncoder struct {
	Classes []string `json:"classes"`
}

// NewLabelEncoder builds an encoder over the distinct values.
func NewLabelEncoder(values []string) *LabelEncoder {
	seen := make(map[string]struct{}, len(values))
	classes := make([]string, 0)
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		classes = append(classes, v)
	}
	sort.Strings(classes)
	return &LabelEncoder{Classes: classes}
}

func (e *LabelEncoder) Len() int { return len(e.Classes) }

// Encode returns the code of category or an UnknownCategoryError.
func (e *LabelEncoder) Encode(category string) (int, error) {
	i := sort.SearchStrings(e.Classes, category)
	if i < len(e.Classes) && e.Classes[i] == category {
		return i, nil
	}
	return 0, &UnknownCategoryError{Category: category}
}

// EncodeAll encodes values that are known to be in the encoder.
func (e *LabelEncoder) EncodeAll(values []string) ([]int, error) {
	out := make([]int, len(values))
	for i, v := range values {
		code, err := e.Encode(v)
		if err != nil {
			return nil, err
		}
		out[i] = code
	}
	return out, nil
}

func (e *LabelEncoder) Decode(code int) string {
	if code < 0 || code >= len(e.Classes) {
		return ""
	}
	return e.Classes[code]
}
