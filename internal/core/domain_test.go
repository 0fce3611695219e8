package core

import (
	"errors"
	"strings"
	"testing"
)

func TestParseDate(t *testing.T) {
	cases := []struct {
		in string
		ok bool
	}{
		{"2015/01/01", true},
		{"2024/02/29", true},
		{"2023/02/30", false},
		{"2015/13/40", false},
		{"2015-01-01", false},
		{"15/1/1", false},
		{"", false},
	}
	for _, tc := range cases {
		d, err := ParseDate(tc.in)
		if tc.ok {
			if err != nil {
				t.Fatalf("%q expected ok, got %v", tc.in, err)
			}
			if d.String() != tc.in {
				t.Fatalf("%q round trip got %q", tc.in, d.String())
			}
		} else if !errors.Is(err, ErrInvalidDate) {
			t.Fatalf("%q expected ErrInvalidDate, got %v", tc.in, err)
		}
	}
}

func TestTransactionValidate(t *testing.T) {
	good := Transaction{
		Date:        NewDate(2025, 1, 1),
		Description: "coffee shop",
		Amount:      "-4.50",
		Source:      "checking",
		Tags:        []string{"food"},
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bad := good
	bad.Description = " "
	if err := bad.Validate(); !errors.Is(err, ErrEmptyDescription) {
		t.Fatalf("expected ErrEmptyDescription, got %v", err)
	}

	bad = good
	bad.Amount = "x"
	if err := bad.Validate(); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}

	bad = good
	bad.Date = Date{}
	if err := bad.Validate(); !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}

	bad = good
	bad.Source = strings.Repeat("s", SourceLimit+1)
	if err := bad.Validate(); !errors.Is(err, ErrSourceTooLong) {
		t.Fatalf("expected ErrSourceTooLong, got %v", err)
	}
}

func TestValidateTags(t *testing.T) {
	tests := []struct {
		name string
		tags []string
		want error
	}{
		{"empty list", nil, nil},
		{"valid", []string{"food", "car-wash", "a_b"}, nil},
		{"too long", []string{"abcdefghijk"}, ErrInvalidTag},
		{"blank", []string{""}, ErrInvalidTag},
		{"bad chars", []string{"a;b"}, ErrInvalidTag},
		{"too many", make([]string, MaxTags+1), ErrTooManyTags},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTags(tt.tags)
			if tt.want == nil && err != nil {
				t.Fatalf("expected ok, got %v", err)
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestNormalizeTags(t *testing.T) {
	got := NormalizeTags([]string{" Food", "car", "food", "", "CAR"})
	want := []string{"food", "car"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestDirectionOf(t *testing.T) {
	if DirectionOf(1) != Credit || DirectionOf(0) != Debit || DirectionOf(-1) != Debit {
		t.Fatal("unexpected direction")
	}
}

func TestTagEditValidate(t *testing.T) {
	tests := []struct {
		name      string
		edit      TagEdit
		wantPaths []string
	}{
		{"add ok", TagEdit{IDs: []string{"1"}, Op: TagAdd, Tags: []string{"food"}}, nil},
		{"clear ignores tags", TagEdit{IDs: []string{"1"}, Op: TagClear, Tags: []string{"!!"}}, nil},
		{"no ids", TagEdit{Op: TagAdd, Tags: []string{"x"}}, []string{"ids"}},
		{"bad op", TagEdit{IDs: []string{"1"}, Op: "merge"}, []string{"op"}},
		{"add without tags", TagEdit{IDs: []string{"1"}, Op: TagAdd}, []string{"tags"}},
		{"blank id and bad tag", TagEdit{IDs: []string{" "}, Op: TagRemove, Tags: []string{"a;b"}}, []string{"ids.0", "tags"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.edit.Validate()
			if tt.wantPaths == nil {
				if err != nil {
					t.Fatalf("expected ok, got %v", err)
				}
				return
			}
			var verrs ValidationErrors
			if !errors.As(err, &verrs) {
				t.Fatalf("expected ValidationErrors, got %T %v", err, err)
			}
			if got := strings.Join(verrs.Paths(), ","); got != strings.Join(tt.wantPaths, ",") {
				t.Fatalf("paths = %s, want %v", got, tt.wantPaths)
			}
		})
	}
}

func TestValidationErrorsFormat(t *testing.T) {
	var v ValidationErrors
	v.Add("ids", "required")
	v.Add("", "bad body")
	want := "- \"ids\": required\n- bad body\n"
	if v.Error() != want {
		t.Fatalf("got %q, want %q", v.Error(), want)
	}
}

func TestTagEditNormalized(t *testing.T) {
	e := TagEdit{IDs: []string{"1"}, Op: TagClear, Tags: []string{"x"}}.Normalized()
	if e.Tags != nil {
		t.Fatalf("clear should drop tags, got %v", e.Tags)
	}
	e = TagEdit{IDs: []string{"1"}, Op: TagAdd, Tags: []string{"x"}}.Normalized()
	if len(e.Tags) != 1 {
		t.Fatalf("add should keep tags")
	}
}
