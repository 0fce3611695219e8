package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// DateLayout is the wire format of transaction dates (yyyy/mm/dd).
const DateLayout = "2006/01/02"

// Limits shared by the backend, the client and the MCP adapter.
const (
	DescLimit    = 100
	SourceLimit  = 100
	MaxTags      = 30
	TagSizeLimit = 10
	MaxIDs       = 1000
	MaxLimit     = 1000
)

type (
	// Date is a calendar date without time of day.
	Date struct {
		time.Time
	}

	// Transaction is one bank ledger entry as exchanged on the wire.
	Transaction struct {
		ID          string   `json:"id"`
		Date        Date     `json:"date"`
		Description string   `json:"description"`
		Amount      string   `json:"amount"`
		Source      string   `json:"source"`
		Tags        []string `json:"tags"`
	}

	// Direction tells money in from money out.
	Direction string
)

const (
	Credit Direction = "credit"
	Debit  Direction = "debit"
)

var (
	ErrInvalidDate        = errors.New("invalid date")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrEmptyDescription   = errors.New("empty description")
	ErrEmptySource        = errors.New("empty source")
	ErrInvalidTag         = errors.New("invalid tag")
	ErrTooManyTags        = errors.New("too many tags")
	ErrInvalidMatchOp     = errors.New("invalid match operator")
	ErrInvalidTagEditOp   = errors.New("invalid tag edit operator")
	ErrInvalidID          = errors.New("invalid transaction id")
	ErrTooManyIDs         = errors.New("too many transaction ids")
	ErrDescriptionTooLong = errors.New("description too long")
	ErrSourceTooLong      = errors.New("source too long")
)

var tagRegexp = regexp.MustCompile(`^[\w\s-]+$`)

// ParseDate parses a yyyy/mm/dd string. Shapes that are not a real
// calendar day, like 2023/02/30, are rejected.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w %q, want format yyyy/mm/dd", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

// NewDate creates a Date from year, month and day in UTC.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// String renders the date in wire format.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDate, err)
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Validate checks a date is set.
func (d Date) Validate() error {
	if d.IsZero() {
		return fmt.Errorf("%w: date cannot be zero", ErrInvalidDate)
	}
	return nil
}

// DirectionOf returns Credit for positive amounts and Debit otherwise.
func DirectionOf(cents int64) Direction {
	if cents > 0 {
		return Credit
	}
	return Debit
}

// Cents parses the transaction amount.
func (t Transaction) Cents() (int64, error) {
	return ParseAmount(t.Amount)
}

// Validate checks a transaction before it is stored.
func (t Transaction) Validate() error {
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if err := ValidateDescription(t.Description); err != nil {
		return err
	}
	if err := ValidateSource(t.Source); err != nil {
		return err
	}
	if _, err := t.Cents(); err != nil {
		return err
	}
	return ValidateTags(t.Tags)
}

func ValidateDescription(desc string) error {
	if len(strings.TrimSpace(desc)) == 0 {
		return ErrEmptyDescription
	}
	if l := len(desc); l > DescLimit {
		return fmt.Errorf("%w: got length %d, want <= %d", ErrDescriptionTooLong, l, DescLimit)
	}
	return nil
}

func ValidateSource(source string) error {
	if len(strings.TrimSpace(source)) == 0 {
		return ErrEmptySource
	}
	if l := len(source); l > SourceLimit {
		return fmt.Errorf("%w: got length %d, want <= %d", ErrSourceTooLong, l, SourceLimit)
	}
	return nil
}

// ValidateTags enforces count, size and charset limits.
func ValidateTags(tags []string) error {
	if l := len(tags); l > MaxTags {
		return fmt.Errorf("%w: got %d, want <= %d", ErrTooManyTags, l, MaxTags)
	}
	for i, t := range tags {
		if l := len(t); l == 0 || l > TagSizeLimit {
			return fmt.Errorf("%w at index %d: got size %d, want size > 0 and <= %d", ErrInvalidTag, i, l, TagSizeLimit)
		}
		if !tagRegexp.MatchString(t) {
			return fmt.Errorf("%w at index %d: illegal characters in %q, only alphanumeric, underscores and dashes are allowed", ErrInvalidTag, i, t)
		}
	}
	return nil
}

// NormalizeTags lower-cases, trims and de-duplicates tags keeping the
// first occurrence order.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
