package query

import (
	"strings"

	"expenses/internal/core"
)

// Field names one input of the search row.
type Field string

const (
	FieldFromDate    Field = "fromDate"
	FieldToDate      Field = "toDate"
	FieldDescription Field = "description"
	FieldSource      Field = "source"
	FieldTags        Field = "tags"
)

// Msg is a filter state change.
type Msg interface{ isMsg() }

type (
	// SetDate carries the raw text of a date input. Text that is not a
	// real yyyy/mm/dd date clears the bound.
	SetDate struct {
		Field Field
		Raw   string
	}
	SetText struct {
		Field Field
		Value string
	}
	SetOp struct {
		Field Field
		Op    core.MatchOp
	}
	SetIDs struct{ IDs []string }
	Reset  struct{}
)

func (SetDate) isMsg() {}
func (SetText) isMsg() {}
func (SetOp) isMsg() {}
func (SetIDs) isMsg() {}
func (Reset) isMsg() {}

// Update applies msg to f and returns the new state. f is not modified.
func Update(f Filters, msg Msg) Filters {
	next := f
	next.IDs = append([]string(nil), f.IDs...)
	switch m := msg.(type) {
	case SetDate:
		d := parseDateParam(m.Raw)
		switch m.Field {
		case FieldFromDate:
			next.FromDate = d
		case FieldToDate:
			next.ToDate = d
		}
	case SetText:
		if tf := next.text(m.Field); tf != nil {
			tf.Value = m.Value
			if strings.TrimSpace(m.Value) != "" && (tf.Op == "" || tf.Op == core.OpAll || tf.Op == core.OpEmpty) {
				tf.Op = core.OpMatch
			}
		}
	case SetOp:
		if tf := next.text(m.Field); tf != nil && m.Op.Valid() {
			tf.Op = m.Op
			if m.Op == core.OpAll || m.Op == core.OpEmpty {
				tf.Value = ""
			}
		}
	case SetIDs:
		next.IDs = normalizeIDs(m.IDs)
	case Reset:
		return Filters{}
	}
	return next
}

func (f *Filters) text(field Field) *TextFilter {
	switch field {
	case FieldDescription:
		return &f.Description
	case FieldSource:
		return &f.Source
	case FieldTags:
		return &f.Tags
	}
	return nil
}

// ParseMsg turns a "key=value" line into a message. Keys are the query
// string keys; an empty value clears the field. ok is false for unknown keys.
func ParseMsg(line string) (msg Msg, ok bool) {
	line = strings.TrimSpace(line)
	if line == "reset" {
		return Reset{}, true
	}
	key, value, found := strings.Cut(line, "=")
	if !found {
		return nil, false
	}
	key = strings.TrimSpace(key)
	switch key {
	case KeyFromDate:
		return SetDate{Field: FieldFromDate, Raw: value}, true
	case KeyToDate:
		return SetDate{Field: FieldToDate, Raw: value}, true
	case KeyDescription:
		return SetText{Field: FieldDescription, Value: value}, true
	case KeySource:
		return SetText{Field: FieldSource, Value: value}, true
	case KeyTags:
		return SetText{Field: FieldTags, Value: value}, true
	case KeyDescriptionOp:
		return SetOp{Field: FieldDescription, Op: core.MatchOp(strings.TrimSpace(value))}, true
	case KeySourceOp:
		return SetOp{Field: FieldSource, Op: core.MatchOp(strings.TrimSpace(value))}, true
	case KeyTagsOp:
		return SetOp{Field: FieldTags, Op: core.MatchOp(strings.TrimSpace(value))}, true
	case KeyIDs:
		return SetIDs{IDs: strings.Fields(value)}, true
	}
	return nil, false
}
