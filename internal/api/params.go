package api

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"expenses/internal/core"
	"expenses/internal/storage"
)

// txnQueryFromParams validates the shared /txns filter parameters.
func txnQueryFromParams(v url.Values) (storage.TxnQuery, error) {
	var q storage.TxnQuery

	for _, p := range []struct {
		key string
		dst **core.Date
	}{{"fromDate", &q.FromDate}, {"toDate", &q.ToDate}} {
		raw := v.Get(p.key)
		if raw == "" {
			continue
		}
		d, err := core.ParseDate(raw)
		if err != nil {
			return q, fmt.Errorf("invalid value for url parameter %s=%v: %w", p.key, raw, err)
		}
		*p.dst = &d
	}

	var err error
	if q.Description, err = textMatch(v, "description", core.ValidateDescription); err != nil {
		return q, err
	}
	if q.Source, err = textMatch(v, "source", core.ValidateSource); err != nil {
		return q, err
	}
	if q.Tags, err = tagMatch(v); err != nil {
		return q, err
	}

	if raw := strings.TrimSpace(v.Get("ids")); raw != "" {
		if q.IDs, err = parseIDs(strings.Fields(raw)); err != nil {
			return q, fmt.Errorf("invalid value for url parameter ids: %w", err)
		}
	}
	if raw := v.Get("amount"); raw != "" {
		cents, err := core.ParseAmount(raw)
		if err != nil {
			return q, fmt.Errorf("invalid value for url parameter amount=%v: %w", raw, err)
		}
		q.MinCents, q.MaxCents = &cents, &cents
	}
	if raw := v.Get("startId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id < 0 {
			return q, fmt.Errorf("invalid value for url parameter startId=%v, want number >= 0", raw)
		}
		q.StartID = id
	}
	if raw := v.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 || limit > core.MaxLimit {
			return q, fmt.Errorf("invalid value for url parameter limit=%v, want number >= 0 and <= %d", raw, core.MaxLimit)
		}
		q.Limit = limit
	}
	return q, nil
}

// textMatch reads a value and its <key>Op. The op is required with a
// value; without one only empty is meaningful.
func textMatch(v url.Values, key string, validate func(string) error) (storage.TextMatch, error) {
	value, rawOp := v.Get(key), v.Get(key+"Op")
	if value == "" {
		if core.MatchOp(rawOp) == core.OpEmpty {
			return storage.TextMatch{Op: core.OpEmpty}, nil
		}
		return storage.TextMatch{}, nil
	}
	if err := validate(value); err != nil {
		return storage.TextMatch{}, fmt.Errorf("invalid value for url parameter %s=%v: %w", key, value, err)
	}
	op, err := core.ParseMatchOp(rawOp)
	if err != nil {
		return storage.TextMatch{}, fmt.Errorf("invalid value for url parameter %sOp=%v: %w", key, rawOp, err)
	}
	return storage.TextMatch{Value: value, Op: op}, nil
}

// tagMatch reads tags (space separated) and tagsOp. match and empty are
// valid without tags.
func tagMatch(v url.Values) (storage.TagMatch, error) {
	tags := core.NormalizeTags(strings.Fields(v.Get("tags")))
	rawOp := v.Get("tagsOp")
	if len(tags) == 0 {
		switch core.MatchOp(rawOp) {
		case core.OpMatch, core.OpEmpty:
			return storage.TagMatch{Op: core.MatchOp(rawOp)}, nil
		}
		return storage.TagMatch{}, nil
	}
	if err := core.ValidateTags(tags); err != nil {
		return storage.TagMatch{}, fmt.Errorf("invalid value for url parameter tags: %w", err)
	}
	op, err := core.ParseMatchOp(rawOp)
	if err != nil {
		return storage.TagMatch{}, fmt.Errorf("invalid value for url parameter tagsOp=%v: %w", rawOp, err)
	}
	return storage.TagMatch{Values: tags, Op: op}, nil
}

func parseIDs(raw []string) ([]int64, error) {
	if l := len(raw); l == 0 || l > core.MaxIDs {
		return nil, fmt.Errorf("invalid number of ids in request, got %d, want > 0 and <= %d", l, core.MaxIDs)
	}
	ids := make([]int64, 0, len(raw))
	for _, s := range raw {
		id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("%q is not a valid transaction ID, expecting a positive base 10 64-bit integer", s)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// parseYear reads an optional year parameter. Absent is 0.
func parseYear(v url.Values, key string) (int, error) {
	raw := v.Get(key)
	if raw == "" {
		return 0, nil
	}
	y, err := strconv.Atoi(raw)
	if err != nil || y < 1900 || y > 9999 {
		return 0, fmt.Errorf("invalid value for url parameter %s=%v, want a year", key, raw)
	}
	return y, nil
}
