package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"expenses/internal/core"
	"expenses/internal/overview"
	"expenses/internal/storage"

	"github.com/mark3labs/mcp-go/mcp"
)

type fakeStore struct {
	txns    []storage.Txn
	years   []overview.YearTag
	err     error
	query   storage.AgentQuery
	yearsIn [2]int
}

func (f *fakeStore) SearchTxns(_ context.Context, q storage.AgentQuery) ([]storage.Txn, error) {
	f.query = q
	return f.txns, f.err
}

func (f *fakeStore) ExpensesByYearTag(_ context.Context, from, to int) ([]overview.YearTag, error) {
	f.yearsIn = [2]int{from, to}
	return f.years, f.err
}

func call(t *testing.T, h func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), args map[string]any) (*mcp.CallToolResult, string) {
	t.Helper()
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	res, err := h(context.Background(), req)
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if len(res.Content) == 0 {
		t.Fatal("empty result content")
	}
	text, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content is %T, want TextContent", res.Content[0])
	}
	return res, text.Text
}

func TestGetTransactions(t *testing.T) {
	store := &fakeStore{txns: []storage.Txn{
		{ID: 1, Date: core.NewDate(2024, 3, 2), Description: "COFFEE SHOP", AmountCents: -475, Source: "chase", Tags: []string{"food"}},
		{ID: 2, Date: core.NewDate(2024, 3, 5), Description: "PAYROLL", AmountCents: 250000, Source: "chase"},
	}}
	h := getTransactionsHandler(store, nil)

	res, text := call(t, h, map[string]any{
		"fromDate":    "2024-03-01",
		"toDate":      "2024/03/31",
		"description": "coffee",
		"fromAmount":  -10.5,
		"toAmount":    float64(3000),
		"hasTags":     []any{"Food", "cafe"},
		"withoutTags": []any{"transfer"},
		"limit":       float64(10),
	})
	if res.IsError {
		t.Fatalf("unexpected tool error: %s", text)
	}

	q := store.query
	if q.FromDate == nil || q.FromDate.String() != "2024/03/01" {
		t.Errorf("FromDate = %v", q.FromDate)
	}
	if q.ToDate == nil || q.ToDate.String() != "2024/03/31" {
		t.Errorf("ToDate = %v", q.ToDate)
	}
	if q.MinCents == nil || *q.MinCents != -1050 {
		t.Errorf("MinCents = %v, want -1050", q.MinCents)
	}
	if q.MaxCents == nil || *q.MaxCents != 300000 {
		t.Errorf("MaxCents = %v, want 300000", q.MaxCents)
	}
	if q.Description != "coffee" || q.Limit != 10 || q.NoTags {
		t.Errorf("unexpected query %+v", q)
	}
	if strings.Join(q.HasTags, ",") != "Food,cafe" || strings.Join(q.WithoutTags, ",") != "transfer" {
		t.Errorf("tags = %v / %v", q.HasTags, q.WithoutTags)
	}

	var out txnsOutput
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		t.Fatalf("text is not JSON: %v", err)
	}
	if len(out.Transactions) != 2 {
		t.Fatalf("got %d transactions, want 2", len(out.Transactions))
	}
	first := out.Transactions[0]
	if first.Date != "2024/03/02" || first.Amount != "-4.75" || first.Type != "debit" || first.Source != "chase" {
		t.Errorf("first = %+v", first)
	}
	if out.Transactions[1].Type != "credit" || out.Transactions[1].Amount != "2500.00" {
		t.Errorf("second = %+v", out.Transactions[1])
	}
	if res.StructuredContent == nil {
		t.Error("structured content missing")
	}
}

func TestGetTransactionsDefaults(t *testing.T) {
	store := &fakeStore{}
	_, text := call(t, getTransactionsHandler(store, nil), map[string]any{"noTags": true})
	if store.query.Limit != defaultLimit || !store.query.NoTags {
		t.Errorf("query = %+v", store.query)
	}
	if text != `{"transactions":[]}` {
		t.Errorf("text = %s", text)
	}
}

func TestGetTransactionsRejectsInvalidArguments(t *testing.T) {
	tests := []struct {
		name string
		args map[string]any
		want []string
	}{
		{"bad date", map[string]any{"fromDate": "2023/02/30"}, []string{`"fromDate"`, "invalid date"}},
		{"wrong type", map[string]any{"description": 12, "noTags": "yes"}, []string{`"description": expected string`, `"noTags": expected boolean`}},
		{"tag items", map[string]any{"hasTags": []any{"ok", 3}}, []string{`"hasTags.1": expected string`}},
		{"not array", map[string]any{"withoutTags": "transfer"}, []string{`"withoutTags": expected array`}},
		{"limit", map[string]any{"limit": float64(0)}, []string{`"limit"`}},
		{"reversed dates", map[string]any{"fromDate": "2024/02/01", "toDate": "2024/01/01"}, []string{`"toDate"`}},
		{"reversed amounts", map[string]any{"fromAmount": 5.0, "toAmount": 1.0}, []string{`"toAmount"`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{}
			res, text := call(t, getTransactionsHandler(store, nil), tt.args)
			if !res.IsError {
				t.Fatalf("expected tool error, got %s", text)
			}
			if !strings.HasPrefix(text, "Error: invalid arguments") {
				t.Errorf("text = %q", text)
			}
			for _, w := range tt.want {
				if !strings.Contains(text, w) {
					t.Errorf("text %q does not contain %q", text, w)
				}
			}
		})
	}
}

func TestGetTransactionsRejectsInvalidRows(t *testing.T) {
	store := &fakeStore{txns: []storage.Txn{
		{ID: 1, Date: core.NewDate(2024, 1, 1), Description: "", AmountCents: -1, Source: "chase"},
	}}
	res, text := call(t, getTransactionsHandler(store, nil), nil)
	if !res.IsError || !strings.Contains(text, "invalid output: transactions.0") {
		t.Errorf("got error=%v text=%q", res.IsError, text)
	}
}

func TestGetTransactionsStoreError(t *testing.T) {
	store := &fakeStore{err: errors.New("database is locked")}
	res, text := call(t, getTransactionsHandler(store, nil), nil)
	if !res.IsError || text != "Error: database is locked" {
		t.Errorf("got error=%v text=%q", res.IsError, text)
	}
}

func TestGetExpenses(t *testing.T) {
	store := &fakeStore{years: []overview.YearTag{
		{Year: 2024, Tag: "food", Cents: 12345},
		{Year: 2023, Tag: "rent", Cents: 100000},
	}}
	res, text := call(t, getExpensesHandler(store, nil), map[string]any{"fromYear": float64(2023), "toYear": float64(2024)})
	if res.IsError {
		t.Fatalf("unexpected tool error: %s", text)
	}
	if store.yearsIn != [2]int{2023, 2024} {
		t.Errorf("years = %v", store.yearsIn)
	}
	want := `{"transactions":[{"year":2024,"tag":"food","amount":"123.45"},{"year":2023,"tag":"rent","amount":"1000.00"}]}`
	if text != want {
		t.Errorf("text = %s\nwant  %s", text, want)
	}
}

func TestGetExpensesValidatesYears(t *testing.T) {
	tests := []struct {
		name string
		args map[string]any
	}{
		{"too early", map[string]any{"fromYear": float64(1800)}},
		{"fraction", map[string]any{"toYear": 2020.5}},
		{"reversed", map[string]any{"fromYear": float64(2024), "toYear": float64(2020)}},
		{"string", map[string]any{"fromYear": "2020"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, text := call(t, getExpensesHandler(&fakeStore{}, nil), tt.args)
			if !res.IsError {
				t.Errorf("expected tool error, got %s", text)
			}
		})
	}
}

func TestToolsAdvertiseSchemas(t *testing.T) {
	s := NewServer("expenses", "test", &fakeStore{}, nil)
	raw := s.HandleMessage(context.Background(), []byte(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
	body, err := json.Marshal(raw)
	if err != nil {
		t.Fatalf("marshal response: %v", err)
	}

	var resp struct {
		Result struct {
			Tools []struct {
				Name        string `json:"name"`
				InputSchema struct {
					Properties map[string]any `json:"properties"`
				} `json:"inputSchema"`
				OutputSchema struct {
					Type       string         `json:"type"`
					Properties map[string]any `json:"properties"`
				} `json:"outputSchema"`
			} `json:"tools"`
		} `json:"result"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("decode %s: %v", body, err)
	}

	wantInputs := map[string][]string{
		"get-transactions": {"fromDate", "toDate", "description", "fromAmount", "toAmount", "hasTags", "withoutTags", "noTags", "limit"},
		"get-expenses":     {"fromYear", "toYear"},
	}
	if len(resp.Result.Tools) != len(wantInputs) {
		t.Fatalf("got %d tools: %s", len(resp.Result.Tools), body)
	}
	for _, tool := range resp.Result.Tools {
		for _, arg := range wantInputs[tool.Name] {
			if _, ok := tool.InputSchema.Properties[arg]; !ok {
				t.Errorf("%s: input schema lacks %q", tool.Name, arg)
			}
		}
		if tool.OutputSchema.Type != "object" {
			t.Errorf("%s: output schema type = %q", tool.Name, tool.OutputSchema.Type)
		}
		if _, ok := tool.OutputSchema.Properties["transactions"]; !ok {
			t.Errorf("%s: output schema lacks transactions: %s", tool.Name, body)
		}
	}
}
