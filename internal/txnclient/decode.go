package txnclient

import (
	"encoding/json"
	"fmt"

	"expenses/internal/core"
)

// object is a JSON object whose fields are decoded one by one so every
// problem is reported with its path.
type object map[string]json.RawMessage

func (o object) has(key string) bool {
	raw, ok := o[key]
	return ok && string(raw) != "null"
}

func join(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

func decodeObject(raw json.RawMessage, path string, issues *core.ValidationErrors) (object, bool) {
	var o object
	if err := json.Unmarshal(raw, &o); err != nil || o == nil {
		issues.Add(path, "expected object")
		return nil, false
	}
	return o, true
}

func (o object) optionalString(key, path string, issues *core.ValidationErrors) string {
	if !o.has(key) {
		return ""
	}
	var s string
	if err := json.Unmarshal(o[key], &s); err != nil {
		issues.Add(join(path, key), "expected string")
	}
	return s
}

func (o object) requiredString(key, path string, issues *core.ValidationErrors) (string, bool) {
	if !o.has(key) {
		issues.Add(join(path, key), "required")
		return "", false
	}
	var s string
	if err := json.Unmarshal(o[key], &s); err != nil {
		issues.Add(join(path, key), "expected string")
		return "", false
	}
	return s, true
}

func (o object) optionalArray(key, path string, issues *core.ValidationErrors) []json.RawMessage {
	if !o.has(key) {
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(o[key], &items); err != nil {
		issues.Add(join(path, key), "expected array")
		return nil
	}
	return items
}

func decodeTxn(raw json.RawMessage, path string, issues *core.ValidationErrors) core.Transaction {
	o, ok := decodeObject(raw, path, issues)
	if !ok {
		return core.Transaction{}
	}
	t := core.Transaction{
		ID:          o.optionalString("id", path, issues),
		Description: o.optionalString("description", path, issues),
		Amount:      o.optionalString("amount", path, issues),
		Source:      o.optionalString("source", path, issues),
		Tags:        []string{},
	}
	if s, ok := o.requiredString("date", path, issues); ok {
		d, err := core.ParseDate(s)
		if err != nil {
			issues.Add(join(path, "date"), "invalid date format, expected yyyy/mm/dd")
		}
		t.Date = d
	}
	for i, tag := range o.optionalArray("tags", path, issues) {
		var s string
		if err := json.Unmarshal(tag, &s); err != nil {
			issues.Add(fmt.Sprintf("%s.%d", join(path, "tags"), i), "expected string")
			continue
		}
		t.Tags = append(t.Tags, s)
	}
	return t
}

func decodeTxns(o object, key string, issues *core.ValidationErrors) []core.Transaction {
	items := o.optionalArray(key, "", issues)
	txns := make([]core.Transaction, 0, len(items))
	for i, raw := range items {
		txns = append(txns, decodeTxn(raw, fmt.Sprintf("%s.%d", key, i), issues))
	}
	return txns
}

// decodePage validates a GET /txns body.
func decodePage(body []byte) (Page, error) {
	var issues core.ValidationErrors
	o, ok := decodeObject(body, "", &issues)
	if !ok {
		return Page{}, validationError(issues)
	}
	nextID, _ := o.requiredString("nextId", "", &issues)
	txns := decodeTxns(o, "txns", &issues)
	if len(issues) > 0 {
		return Page{}, validationError(issues)
	}
	return Page{NextID: nextID, Txns: txns}, nil
}

// decodeSimilar validates a GET /txns/similar body.
func decodeSimilar(body []byte) (Similar, error) {
	var issues core.ValidationErrors
	o, ok := decodeObject(body, "", &issues)
	if !ok {
		return Similar{}, validationError(issues)
	}
	s := Similar{
		Selected: decodeTxns(o, "selected_txns", &issues),
		Similar:  decodeTxns(o, "similar_txns", &issues),
	}
	if len(issues) > 0 {
		return Similar{}, validationError(issues)
	}
	return s, nil
}

// decodeJSON is used for the aggregate endpoints whose fields are all
// required numbers and strings.
func decodeJSON(body []byte, v any) error {
	if err := json.Unmarshal(body, v); err != nil {
		var issues core.ValidationErrors
		path := ""
		if te, ok := err.(*json.UnmarshalTypeError); ok {
			path = te.Field
		}
		issues.Add(path, err.Error())
		return validationError(issues)
	}
	return nil
}
