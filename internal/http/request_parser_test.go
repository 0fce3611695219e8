package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"expenses/internal/core"
)

func TestFiltersFromRequest(t *testing.T) {
	tests := []struct {
		name   string
		target string
		want   string
	}{
		{"repeated ids are merged", "/edit?ids=3&ids=1+2", "ids=3+1+2"},
		{"html date inputs", "/edit?fromDate=2024-01-31&toDate=2024/02/01", "fromDate=2024%2F01%2F31&toDate=2024%2F02%2F01"},
		{"invalid date is dropped", "/edit?fromDate=2024-02-30", ""},
		{"text is normalized", "/edit?source=+VISA+&sourceOp=not-match", "source=visa&sourceOp=not-match"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := filtersFromRequest(httptest.NewRequest(http.MethodGet, tt.target, nil))
			if got := editURL(f); got != strings.TrimSuffix("/edit?"+tt.want, "?") {
				t.Errorf("editURL = %q, want query %q", got, tt.want)
			}
		})
	}
}

func TestParseYearRange(t *testing.T) {
	tests := []struct {
		name    string
		query   url.Values
		want    YearRange
		wantErr bool
	}{
		{"empty", url.Values{}, YearRange{}, false},
		{"both", url.Values{"fromYear": {"2020"}, "toYear": {"2024"}}, YearRange{2020, 2024}, false},
		{"same year", url.Values{"fromYear": {"2024"}, "toYear": {"2024"}}, YearRange{2024, 2024}, false},
		{"open end", url.Values{"fromYear": {" 2021 "}}, YearRange{From: 2021}, false},
		{"reversed", url.Values{"fromYear": {"2025"}, "toYear": {"2024"}}, YearRange{}, true},
		{"not a number", url.Values{"toYear": {"last"}}, YearRange{}, true},
		{"too small", url.Values{"fromYear": {"99"}}, YearRange{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseYearRange(tt.query)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseDialogForm(t *testing.T) {
	form := url.Values{
		"session": {"6f1c9a7e-4a55-4a11-9a0e-0d2c3b1e2f40"},
		"ids":     {"4 5", "6"},
		"op":      {"clear"},
		"tags":    {"food\x00 rent"},
	}
	got, err := parseDialogForm(postForm("/edit/dialog", form))
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(got.Edit.IDs, ",") != "4,5,6" {
		t.Errorf("ids = %v", got.Edit.IDs)
	}
	if got.Edit.Op != core.TagClear || got.Edit.Tags != nil {
		t.Errorf("clear kept tags: %+v", got.Edit)
	}
	if got.RawTags != "food rent" {
		t.Errorf("raw tags = %q", got.RawTags)
	}
}

func TestDecodeTagEdit(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    core.TagEdit
		wantErr string
	}{
		{
			name: "string and number ids",
			body: `{"ids": ["1", 2], "op": "add", "tags": ["food"]}`,
			want: core.TagEdit{IDs: []string{"1", "2"}, Op: core.TagAdd, Tags: []string{"food"}},
		},
		{
			name: "clear drops tags",
			body: `{"ids": [3], "op": "clear", "tags": ["x"]}`,
			want: core.TagEdit{IDs: []string{"3"}, Op: core.TagClear},
		},
		{
			name:    "not an object",
			body:    `[1, 2]`,
			wantErr: "invalid request: - expected object, received array\n",
		},
		{
			name:    "missing fields",
			body:    `{}`,
			wantErr: "invalid request: \n- \"ids\": required\n- \"op\": required\n",
		},
		{
			name:    "fractional id and bad tag",
			body:    `{"ids": [1.5], "op": "add", "tags": [1]}`,
			wantErr: "invalid request: \n- \"ids.0\": expected string or integer\n- \"tags.0\": expected string\n",
		},
		{
			name:    "add without tags",
			body:    `{"ids": ["1"], "op": "add"}`,
			wantErr: "invalid request: \n- \"tags\": at least one tag is required\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeTagEdit([]byte(tt.body))
			if tt.wantErr != "" {
				var re *requestError
				if !errors.As(err, &re) {
					t.Fatalf("err = %v, want requestError", err)
				}
				if err.Error() != tt.wantErr {
					t.Errorf("err = %q, want %q", err.Error(), tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if strings.Join(got.IDs, ",") != strings.Join(tt.want.IDs, ",") || got.Op != tt.want.Op ||
				strings.Join(got.Tags, ",") != strings.Join(tt.want.Tags, ",") || (tt.want.Tags == nil) != (got.Tags == nil) {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestSanitizeInput(t *testing.T) {
	if got := sanitizeInput("  a\x01b\tc\n "); got != "ab\tc" {
		t.Errorf("sanitizeInput = %q", got)
	}
}
