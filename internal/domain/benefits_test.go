package domain

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestBenefits_Normalize(t *testing.T) {
	t.Parallel()

	list := []string{"Priority booking", "10% off flights"}

	cases := []struct {
		name string
		in   Benefits
		want []string
	}{
		{name: "list is returned as-is", in: BenefitsFromList(list), want: list},
		{name: "nil list", in: BenefitsFromList(nil), want: []string{}},
		{name: "serialized array", in: BenefitsFromText(`["Lounge access","Free upgrade"]`), want: []string{"Lounge access", "Free upgrade"}},
		{name: "serialized empty array", in: BenefitsFromText(`[]`), want: []string{}},
		{name: "empty text", in: BenefitsFromText(""), want: []string{}},
		{name: "unparseable text", in: BenefitsFromText(`["unterminated`), want: []string{}},
		{name: "text holding an object", in: BenefitsFromText(`{"a":1}`), want: []string{}},
		{name: "text holding null", in: BenefitsFromText(`null`), want: []string{}},
		{name: "missing", in: Benefits{}, want: []string{}},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := tc.in.Normalize()
			if got == nil {
				t.Fatalf("Normalize() returned nil, want non-nil slice")
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("Normalize()=%#v, want %#v", got, tc.want)
			}
		})
	}
}

func TestBenefits_NormalizeListIsIdentity(t *testing.T) {
	t.Parallel()

	list := []string{"a", "b", "c"}
	got := BenefitsFromList(list).Normalize()
	if &got[0] != &list[0] {
		t.Fatalf("expected the structured list to be returned without copying")
	}
}

func TestBenefits_UnmarshalJSON(t *testing.T) {
	t.Parallel()

	cases := []struct {
		raw  string
		enc  BenefitsEncoding
		want []string
	}{
		{raw: `["a","b"]`, enc: BenefitsList, want: []string{"a", "b"}},
		{raw: `"[\"a\"]"`, enc: BenefitsText, want: []string{"a"}},
		{raw: `"[]"`, enc: BenefitsText, want: []string{}},
		{raw: `null`, enc: BenefitsMissing, want: []string{}},
		{raw: `[1,2]`, enc: BenefitsMissing, want: []string{}},
		{raw: `42`, enc: BenefitsMissing, want: []string{}},
	}
	for _, tc := range cases {
		var b Benefits
		if err := json.Unmarshal([]byte(tc.raw), &b); err != nil {
			t.Fatalf("Unmarshal(%s) err=%v", tc.raw, err)
		}
		if b.Encoding() != tc.enc {
			t.Fatalf("Unmarshal(%s) encoding=%v, want %v", tc.raw, b.Encoding(), tc.enc)
		}
		if got := b.Normalize(); !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("Unmarshal(%s).Normalize()=%#v, want %#v", tc.raw, got, tc.want)
		}
	}
}

func TestBenefits_UnmarshalInsideRecord(t *testing.T) {
	t.Parallel()

	var row struct {
		Name     string   `json:"name"`
		Benefits Benefits `json:"benefits"`
	}
	if err := json.Unmarshal([]byte(`{"name":"Gold","benefits":"[\"Lounge\"]"}`), &row); err != nil {
		t.Fatalf("Unmarshal err=%v", err)
	}
	if got := row.Benefits.Normalize(); !reflect.DeepEqual(got, []string{"Lounge"}) {
		t.Fatalf("benefits=%#v", got)
	}
}

func TestNormalizeHumanName(t *testing.T) {
	t.Parallel()

	if got := NormalizeHumanName("  Rahim   Uddin \t"); got != "Rahim Uddin" {
		t.Fatalf("NormalizeHumanName()=%q", got)
	}
	if got := NormalizeHumanName("   "); got != "" {
		t.Fatalf("NormalizeHumanName(blank)=%q", got)
	}
}
