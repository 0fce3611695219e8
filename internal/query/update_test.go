package query

import (
	"testing"

	"expenses/internal/core"
)

func TestUpdate(t *testing.T) {
	tests := []struct {
		name  string
		start Filters
		msgs  []Msg
		want  string
	}{
		{
			name: "typing a description selects match",
			msgs: []Msg{SetText{Field: FieldDescription, Value: "Coffee"}},
			want: "description=coffee&descriptionOp=match",
		},
		{
			name: "not-match survives later typing",
			msgs: []Msg{
				SetOp{Field: FieldSource, Op: core.OpNotMatch},
				SetText{Field: FieldSource, Value: "visa"},
			},
			want: "source=visa&sourceOp=not-match",
		},
		{
			name:  "choosing empty clears the tag value",
			start: Filters{Tags: TextFilter{Value: "food", Op: core.OpMatch}},
			msgs:  []Msg{SetOp{Field: FieldTags, Op: core.OpEmpty}},
			want:  "tagsOp=empty",
		},
		{
			name:  "choosing all clears the filter",
			start: Filters{Description: TextFilter{Value: "rent", Op: core.OpMatch}},
			msgs:  []Msg{SetOp{Field: FieldDescription, Op: core.OpAll}},
			want:  "",
		},
		{
			name: "partial date is ignored until complete",
			msgs: []Msg{
				SetDate{Field: FieldFromDate, Raw: "2024/0"},
			},
			want: "",
		},
		{
			name: "complete date then invalid edit clears it",
			msgs: []Msg{
				SetDate{Field: FieldToDate, Raw: "2024/03/01"},
				SetDate{Field: FieldFromDate, Raw: "2024/01/01"},
				SetDate{Field: FieldToDate, Raw: "2024/02/30"},
			},
			want: "fromDate=2024%2F01%2F01",
		},
		{
			name:  "invalid op is ignored",
			start: Filters{Tags: TextFilter{Op: core.OpEmpty}},
			msgs:  []Msg{SetOp{Field: FieldTags, Op: "whatever"}},
			want:  "tagsOp=empty",
		},
		{
			name:  "reset",
			start: Filters{IDs: []string{"1"}, Tags: TextFilter{Op: core.OpEmpty}},
			msgs:  []Msg{Reset{}},
			want:  "",
		},
		{
			name: "ids",
			msgs: []Msg{SetIDs{IDs: []string{"7 8", "9"}}},
			want: "ids=7+8+9",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := tt.start
			for _, m := range tt.msgs {
				f = Update(f, m)
			}
			if got := Encode(f); got != tt.want {
				t.Errorf("Encode(Update(...)) = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestUpdateDoesNotMutateInput(t *testing.T) {
	start := Filters{IDs: []string{"1"}, Description: TextFilter{Value: "a", Op: core.OpMatch}}
	_ = Update(start, SetText{Field: FieldDescription, Value: "b"})
	_ = Update(start, SetIDs{IDs: []string{"2"}})
	if start.Description.Value != "a" || start.IDs[0] != "1" {
		t.Fatalf("input mutated: %+v", start)
	}
}

func TestParseMsg(t *testing.T) {
	tests := []struct {
		line string
		ok   bool
		want Msg
	}{
		{"description=coffee", true, SetText{Field: FieldDescription, Value: "coffee"}},
		{"tagsOp=empty", true, SetOp{Field: FieldTags, Op: core.OpEmpty}},
		{"fromDate=2024/01/01", true, SetDate{Field: FieldFromDate, Raw: "2024/01/01"}},
		{"reset", true, Reset{}},
		{"unknown=1", false, nil},
		{"nonsense", false, nil},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, ok := ParseMsg(tt.line)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if tt.ok && got != tt.want {
				t.Fatalf("got %#v, want %#v", got, tt.want)
			}
		})
	}
}
