// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request data:
// search filters from the query string, year ranges, dialog forms and the
// JSON body of the tag edit proxy.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"expenses/internal/core"
	"expenses/internal/query"
	"expenses/internal/tagedit"

	"github.com/google/uuid"
)

const (
	minYear = 1900
	maxYear = 9999
)

// filtersFromRequest reads the search filters. Repeated ids parameters,
// as sent by checkbox selections, are merged, and date inputs in
// yyyy-mm-dd form are accepted.
func filtersFromRequest(r *http.Request) query.Filters {
	v := url.Values{}
	for k, vs := range r.URL.Query() {
		v[k] = append([]string(nil), vs...)
	}
	if ids := v[query.KeyIDs]; len(ids) > 1 {
		v.Set(query.KeyIDs, strings.Join(ids, " "))
	}
	for _, k := range []string{query.KeyFromDate, query.KeyToDate} {
		if d := v.Get(k); d != "" {
			v.Set(k, strings.ReplaceAll(d, "-", "/"))
		}
	}
	return query.ParseParams(v)
}

// editURL is the address of the edit page showing f.
func editURL(f query.Filters) string {
	if q := query.Encode(f); q != "" {
		return "/edit?" + q
	}
	return "/edit"
}

// YearRange holds the optional bounds of the yearly report. Zero means
// unbounded.
type YearRange struct {
	From int
	To   int
}

// ParseYearRange reads fromYear and toYear.
func ParseYearRange(v url.Values) (YearRange, error) {
	var yr YearRange
	var err error
	if yr.From, err = parseYear(v, "fromYear"); err != nil {
		return YearRange{}, err
	}
	if yr.To, err = parseYear(v, "toYear"); err != nil {
		return YearRange{}, err
	}
	if yr.From > 0 && yr.To > 0 && yr.From > yr.To {
		return YearRange{}, fmt.Errorf("fromYear %d is after toYear %d", yr.From, yr.To)
	}
	return yr, nil
}

func parseYear(v url.Values, key string) (int, error) {
	s := strings.TrimSpace(v.Get(key))
	if s == "" {
		return 0, nil
	}
	y, err := strconv.Atoi(s)
	if err != nil || y < minYear || y > maxYear {
		return 0, fmt.Errorf("invalid %s %q, want a year between %d and %d", key, s, minYear, maxYear)
	}
	return y, nil
}

// dialogForm is a posted tag edit dialog.
type dialogForm struct {
	Session string
	Edit    core.TagEdit
	RawTags string
}

func parseDialogForm(r *http.Request) (dialogForm, error) {
	if err := r.ParseForm(); err != nil {
		return dialogForm{}, errors.New("invalid request format")
	}
	session := strings.TrimSpace(r.PostForm.Get("session"))
	if _, err := uuid.Parse(session); err != nil {
		return dialogForm{}, fmt.Errorf("invalid dialog session %q", session)
	}
	raw := sanitizeInput(r.PostForm.Get("tags"))
	return dialogForm{
		Session: session,
		RawTags: raw,
		Edit: core.TagEdit{
			IDs:  selectedIDs(r.PostForm),
			Op:   core.TagEditOp(strings.TrimSpace(r.PostForm.Get("op"))),
			Tags: tagedit.ParseTags(raw),
		}.Normalized(),
	}, nil
}

// selectedIDs collects ids from repeated or space separated values.
func selectedIDs(v url.Values) []string {
	var ids []string
	for _, s := range v[query.KeyIDs] {
		ids = append(ids, strings.Fields(s)...)
	}
	return ids
}

// requestError is a rejected tag edit body. Its message is sent verbatim.
type requestError struct {
	msg string
}

func (e *requestError) Error() string { return e.msg }

// decodeTagEdit parses the JSON body of the tag edit proxy. ids may be
// strings or numbers.
func decodeTagEdit(body []byte) (core.TagEdit, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return core.TagEdit{}, &requestError{"invalid request: - expected object, received " + typeErr.Value + "\n"}
		}
		return core.TagEdit{}, &requestError{"Request body was not valid JSON: " + err.Error()}
	}

	var issues core.ValidationErrors
	var edit core.TagEdit

	if raw, ok := fields["ids"]; !ok {
		issues.Add("ids", "required")
	} else {
		edit.IDs = decodeIDs(raw, &issues)
	}

	if raw, ok := fields["op"]; !ok {
		issues.Add("op", "required")
	} else {
		var op string
		if err := json.Unmarshal(raw, &op); err != nil {
			issues.Add("op", "expected string")
		}
		edit.Op = core.TagEditOp(op)
	}

	if raw, ok := fields["tags"]; ok && string(raw) != "null" {
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			issues.Add("tags", "expected array")
		}
		for i, item := range items {
			var tag string
			if err := json.Unmarshal(item, &tag); err != nil {
				issues.Add(fmt.Sprintf("tags.%d", i), "expected string")
				continue
			}
			edit.Tags = append(edit.Tags, tag)
		}
	}

	if len(issues) == 0 {
		edit = edit.Normalized()
		var verr core.ValidationErrors
		if err := edit.Validate(); errors.As(err, &verr) {
			issues = append(issues, verr...)
		}
	}
	if len(issues) > 0 {
		return core.TagEdit{}, &requestError{"invalid request: \n" + issues.Error()}
	}
	return edit, nil
}

func decodeIDs(raw json.RawMessage, issues *core.ValidationErrors) []string {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		issues.Add("ids", "expected array")
		return nil
	}
	ids := make([]string, 0, len(items))
	for i, item := range items {
		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			ids = append(ids, s)
			continue
		}
		var n json.Number
		if err := json.Unmarshal(item, &n); err == nil {
			if _, err := n.Int64(); err == nil {
				ids = append(ids, n.String())
				continue
			}
		}
		issues.Add(fmt.Sprintf("ids.%d", i), "expected string or integer")
	}
	return ids
}
