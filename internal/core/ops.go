package core

import (
	"fmt"
	"sort"
	"strings"
)

// MatchOp selects how a text filter is applied.
type MatchOp string

const (
	OpAll      MatchOp = "all"
	OpMatch    MatchOp = "match"
	OpNotMatch MatchOp = "not-match"
	OpEmpty    MatchOp = "empty"
)

// MatchOps lists the operators in display order.
var MatchOps = []MatchOp{OpAll, OpMatch, OpNotMatch, OpEmpty}

func (o MatchOp) Valid() bool {
	switch o {
	case OpAll, OpMatch, OpNotMatch, OpEmpty:
		return true
	}
	return false
}

// ParseMatchOp returns the operator or ErrInvalidMatchOp.
func ParseMatchOp(s string) (MatchOp, error) {
	op := MatchOp(strings.TrimSpace(s))
	if !op.Valid() {
		return "", fmt.Errorf("%w %q, must be one of %v", ErrInvalidMatchOp, s, MatchOps)
	}
	return op, nil
}

// TagEditOp is a batch tag mutation.
type TagEditOp string

const (
	TagAdd    TagEditOp = "add"
	TagRemove TagEditOp = "remove"
	TagClear  TagEditOp = "clear"
)

func (o TagEditOp) Valid() bool {
	switch o {
	case TagAdd, TagRemove, TagClear:
		return true
	}
	return false
}

// TagEdit is a request to mutate the tags of a set of transactions.
type TagEdit struct {
	IDs  []string  `json:"ids"`
	Op   TagEditOp `json:"op"`
	Tags []string  `json:"tags,omitempty"`
}

// Normalized drops tags for clear.
func (e TagEdit) Normalized() TagEdit {
	if e.Op == TagClear {
		e.Tags = nil
	}
	return e
}

// Validate checks the request shape and collects every problem.
func (e TagEdit) Validate() error {
	var errs ValidationErrors
	switch l := len(e.IDs); {
	case l == 0:
		errs.Add("ids", "at least one id is required")
	case l > MaxIDs:
		errs.Add("ids", fmt.Sprintf("too many ids, got %d, want <= %d", l, MaxIDs))
	}
	for i, id := range e.IDs {
		if strings.TrimSpace(id) == "" {
			errs.Add(fmt.Sprintf("ids.%d", i), "id can't be empty")
		}
	}
	if !e.Op.Valid() {
		errs.Add("op", fmt.Sprintf("invalid op %q, expected add, remove or clear", e.Op))
	}
	if e.Op != TagClear && e.Op.Valid() && len(e.Tags) == 0 {
		errs.Add("tags", "at least one tag is required")
	}
	if e.Op != TagClear {
		if err := ValidateTags(e.Tags); err != nil {
			errs.Add("tags", err.Error())
		}
	}
	return errs.Err()
}

// FieldError is one validation problem located by a dotted path.
type FieldError struct {
	Path    string
	Message string
}

// ValidationErrors collects field errors.
type ValidationErrors []FieldError

func (v *ValidationErrors) Add(path, message string) {
	*v = append(*v, FieldError{Path: path, Message: message})
}

// Err returns nil when empty.
func (v ValidationErrors) Err() error {
	if len(v) == 0 {
		return nil
	}
	return v
}

// Error renders one `- "path": message` line per problem.
func (v ValidationErrors) Error() string {
	var b strings.Builder
	for _, fe := range v {
		b.WriteString("- ")
		if fe.Path != "" {
			fmt.Fprintf(&b, "%q: ", fe.Path)
		}
		b.WriteString(fe.Message)
		b.WriteByte('\n')
	}
	return b.String()
}

// Paths returns the sorted set of failing paths.
func (v ValidationErrors) Paths() []string {
	paths := make([]string, 0, len(v))
	for _, fe := range v {
		paths = append(paths, fe.Path)
	}
	sort.Strings(paths)
	return paths
}
