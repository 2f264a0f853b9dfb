package domain

import (
	"bytes"
	"encoding/json"
	"strings"
)

// BenefitsEncoding tags how a plan's benefits arrived from storage.
type BenefitsEncoding int

const (
	BenefitsMissing BenefitsEncoding = iota
	BenefitsList
	BenefitsText
)

// Benefits is the stored form of a plan's benefits: either a structured list of strings
// or a text value holding a serialized JSON array. Use Normalize to obtain the list.
type Benefits struct {
	enc  BenefitsEncoding
	list []string
	text string
}

func BenefitsFromList(list []string) Benefits {
	return Benefits{enc: BenefitsList, list: list}
}

func BenefitsFromText(text string) Benefits {
	return Benefits{enc: BenefitsText, text: text}
}

func (b Benefits) Encoding() BenefitsEncoding { return b.enc }

// Normalize resolves the benefits into one ordered list.
//
// A structured list is returned unchanged. Text is parsed as a JSON array of strings,
// with empty text meaning "[]". Missing values and unparseable text yield an empty list.
func (b Benefits) Normalize() []string {
	switch b.enc {
	case BenefitsList:
		if b.list == nil {
			return []string{}
		}
		return b.list
	case BenefitsText:
		text := strings.TrimSpace(b.text)
		if text == "" {
			return []string{}
		}
		var out []string
		if err := json.Unmarshal([]byte(text), &out); err != nil || out == nil {
			return []string{}
		}
		return out
	default:
		return []string{}
	}
}

// UnmarshalJSON accepts a JSON array of strings (list), a JSON string (text) or null.
// Any other shape decodes as missing; it never fails.
func (b *Benefits) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*b = Benefits{}
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	switch data[0] {
	case '[':
		var list []string
		if err := json.Unmarshal(data, &list); err == nil {
			*b = BenefitsFromList(list)
		}
	case '"':
		var text string
		if err := json.Unmarshal(data, &text); err == nil {
			*b = BenefitsFromText(text)
		}
	}
	return nil
}

// MarshalJSON writes the benefits back in their stored encoding.
func (b Benefits) MarshalJSON() ([]byte, error) {
	switch b.enc {
	case BenefitsList:
		if b.list == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(b.list)
	case BenefitsText:
		return json.Marshal(b.text)
	default:
		return []byte("null"), nil
	}
}
