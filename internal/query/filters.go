// Package query translates search filter state into the canonical query
// string used by the edit page and the transactions backend, and back.
//
// BuildParams never fails: fields that are blank, invalid or at their
// default are simply left out, which keeps URLs short and shareable.
package query

import (
	"net/url"
	"strings"

	"expenses/internal/core"
)

// Query string keys.
const (
	KeyIDs           = "ids"
	KeyFromDate      = "fromDate"
	KeyToDate        = "toDate"
	KeyDescription   = "description"
	KeyDescriptionOp = "descriptionOp"
	KeySource        = "source"
	KeySourceOp      = "sourceOp"
	KeyTags          = "tags"
	KeyTagsOp        = "tagsOp"
)

// TextFilter pairs a free-text value with its match operator.
type TextFilter struct {
	Value string
	Op    core.MatchOp
}

// Filters is the complete search state of the edit page.
type Filters struct {
	IDs         []string
	FromDate    *core.Date
	ToDate      *core.Date
	Description TextFilter
	Source      TextFilter
	Tags        TextFilter
}

// IsZero reports whether no filter is set.
func (f Filters) IsZero() bool {
	return Encode(f) == ""
}

// textField describes how one (value, op) pair is serialized.
type textField struct {
	valueKey, opKey string
	// sentinels are ops that are kept without a value.
	sentinels []core.MatchOp
}

var (
	descriptionField = textField{KeyDescription, KeyDescriptionOp, nil}
	sourceField      = textField{KeySource, KeySourceOp, nil}
	tagsField        = textField{KeyTags, KeyTagsOp, []core.MatchOp{core.OpEmpty, core.OpMatch}}
)

// TextOps are the operators that change a description or source
// search. OpEmpty is not among them: without a value the builder drops it.
var TextOps = []core.MatchOp{core.OpAll, core.OpMatch, core.OpNotMatch}

// TagOps are the operators of the tags filter.
var TagOps = core.MatchOps

func (tf textField) isSentinel(op core.MatchOp) bool {
	for _, s := range tf.sentinels {
		if s == op {
			return true
		}
	}
	return false
}

// canonical returns the value and op that will be written for tf.
// Empty strings mean "omit".
func (tf textField) canonical(f TextFilter) (value string, op core.MatchOp) {
	value = normalizeText(f.Value)
	op = f.Op
	if !op.Valid() {
		op = ""
	}
	if value != "" {
		switch op {
		case core.OpMatch, core.OpNotMatch:
		default:
			// A value is never sent with all/empty or without an op.
			op = core.OpMatch
		}
		return value, op
	}
	if tf.isSentinel(op) {
		return "", op
	}
	return "", ""
}

func (tf textField) write(v url.Values, f TextFilter) {
	value, op := tf.canonical(f)
	if value != "" {
		v.Set(tf.valueKey, value)
	}
	if op != "" {
		v.Set(tf.opKey, string(op))
	}
}

func (tf textField) read(v url.Values) TextFilter {
	op, err := core.ParseMatchOp(v.Get(tf.opKey))
	if err != nil {
		op = ""
	}
	value, op := tf.canonical(TextFilter{Value: v.Get(tf.valueKey), Op: op})
	return TextFilter{Value: value, Op: op}
}

func normalizeText(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// BuildParams returns the canonical parameters for f.
func BuildParams(f Filters) url.Values {
	v := url.Values{}
	if ids := normalizeIDs(f.IDs); len(ids) > 0 {
		v.Set(KeyIDs, strings.Join(ids, " "))
	}
	if f.FromDate != nil && !f.FromDate.IsZero() {
		v.Set(KeyFromDate, f.FromDate.String())
	}
	if f.ToDate != nil && !f.ToDate.IsZero() {
		v.Set(KeyToDate, f.ToDate.String())
	}
	descriptionField.write(v, f.Description)
	sourceField.write(v, f.Source)
	tagsField.write(v, f.Tags)
	return v
}

// Encode returns the canonical query string for f, keys sorted.
func Encode(f Filters) string {
	return BuildParams(f).Encode()
}

// AddTo copies the canonical parameters of f into dst.
func AddTo(dst url.Values, f Filters) {
	for k, vs := range BuildParams(f) {
		dst[k] = vs
	}
}

// ParseParams is the inverse of BuildParams. Anything it does not
// understand is treated as absent.
func ParseParams(v url.Values) Filters {
	var f Filters
	f.IDs = normalizeIDs(strings.Fields(v.Get(KeyIDs)))
	if len(f.IDs) == 0 {
		f.IDs = nil
	}
	f.FromDate = parseDateParam(v.Get(KeyFromDate))
	f.ToDate = parseDateParam(v.Get(KeyToDate))
	f.Description = descriptionField.read(v)
	f.Source = sourceField.read(v)
	f.Tags = tagsField.read(v)
	return f
}

// ParseQuery parses a raw query string. A pair with a bad escape is
// dropped; the pairs around it still apply.
func ParseQuery(raw string) Filters {
	// url.ParseQuery keeps every pair it could decode and reports only the
	// first failure.
	v, _ := url.ParseQuery(strings.TrimPrefix(raw, "?"))
	return ParseParams(v)
}

func parseDateParam(s string) *core.Date {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	d, err := core.ParseDate(s)
	if err != nil {
		return nil
	}
	return &d
}

func normalizeIDs(ids []string) []string {
	var out []string
	for _, id := range ids {
		for _, part := range strings.Fields(id) {
			out = append(out, part)
		}
	}
	return out
}
