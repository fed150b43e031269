package pagination

import (
	"errors"
	"net/url"
	"testing"
)

func TestParseDefaults(t *testing.T) {
	params, err := Parse(url.Values{}, Options{})
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if params.Page != 1 {
		t.Fatalf("unexpected page: %d", params.Page)
	}
	if params.Limit != 50 {
		t.Fatalf("unexpected limit: %d", params.Limit)
	}
	if params.Offset() != 0 {
		t.Fatalf("unexpected offset: %d", params.Offset())
	}
}

func TestParseExplicitValues(t *testing.T) {
	values := url.Values{"page": {"3"}, "limit": {"20"}}
	params, err := Parse(values, Options{})
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if params.Page != 3 || params.Limit != 20 {
		t.Fatalf("unexpected params: %+v", params)
	}
	if params.Offset() != 40 {
		t.Fatalf("unexpected offset: %d", params.Offset())
	}
}

func TestParseCapsLimit(t *testing.T) {
	values := url.Values{"limit": {"500"}}
	params, err := Parse(values, Options{MaxLimit: 100})
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if params.Limit != 100 {
		t.Fatalf("expected capped limit, got %d", params.Limit)
	}
}

func TestParseRejectsInvalid(t *testing.T) {
	cases := []url.Values{
		{"page": {"0"}},
		{"page": {"abc"}},
		{"limit": {"-1"}},
		{"limit": {"ten"}},
	}
	for _, values := range cases {
		if _, err := Parse(values, Options{}); err == nil {
			t.Fatalf("expected error for %v", values)
		}
	}
}

func TestParseDateRange(t *testing.T) {
	got, err := ParseDateRange(url.Values{"dateRange": {"week"}})
	if err != nil {
		t.Fatalf("ParseDateRange returned error: %v", err)
	}
	if got != RangeWeek {
		t.Fatalf("unexpected range: %s", got)
	}

	got, err = ParseDateRange(url.Values{})
	if err != nil {
		t.Fatalf("ParseDateRange returned error: %v", err)
	}
	if got != RangeMonth {
		t.Fatalf("expected month default, got %s", got)
	}

	if _, err := ParseDateRange(url.Values{"dateRange": {"decade"}}); !errors.Is(err, ErrInvalidDateRange) {
		t.Fatalf("expected ErrInvalidDateRange, got %v", err)
	}
}
