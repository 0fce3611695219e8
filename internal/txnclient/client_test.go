package txnclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"expenses/internal/core"
	"expenses/internal/query"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(srv.URL)
}

func TestFetchTransactionsSendsCanonicalQuery(t *testing.T) {
	var gotQuery string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/txns" {
			t.Errorf("path = %s", r.URL.Path)
		}
		gotQuery = r.URL.RawQuery
		io.WriteString(w, `{"nextId":"3","txns":[{"id":"2","date":"2024/03/01","description":"coffee","amount":"-3.50","source":"visa","tags":["food"]}]}`)
	})

	f := query.Filters{Description: query.TextFilter{Value: "  Coffee ", Op: core.OpMatch}}
	page, err := c.FetchTransactions(context.Background(), f, 20)
	if err != nil {
		t.Fatalf("FetchTransactions: %v", err)
	}
	if gotQuery != "description=coffee&descriptionOp=match&limit=20" {
		t.Fatalf("query = %q", gotQuery)
	}
	want := []core.Transaction{{
		ID: "2", Date: core.NewDate(2024, 3, 1), Description: "coffee",
		Amount: "-3.50", Source: "visa", Tags: []string{"food"},
	}}
	if page.NextID != "3" || !reflect.DeepEqual(page.Txns, want) {
		t.Fatalf("page = %+v", page)
	}
}

func TestFetchTransactionsDefaults(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"nextId":"0","txns":[{"date":"2024/01/31"}]}`)
	})
	page, err := c.FetchTransactions(context.Background(), query.Filters{}, 0)
	if err != nil {
		t.Fatalf("FetchTransactions: %v", err)
	}
	got := page.Txns[0]
	if got.ID != "" || got.Description != "" || got.Amount != "" || got.Source != "" {
		t.Fatalf("optional strings not defaulted: %+v", got)
	}
	if got.Tags == nil || len(got.Tags) != 0 {
		t.Fatalf("tags = %#v, want empty list", got.Tags)
	}
}

func TestFetchTransactionsValidation(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		paths []string
	}{
		{
			name:  "missing nextId",
			body:  `{"txns":[]}`,
			paths: []string{"nextId"},
		},
		{
			name:  "invalid date aborts whole response",
			body:  `{"nextId":"5","txns":[{"date":"2024/01/01"},{"date":"2024/01/02"},{"date":"2024/01/03"},{"date":"2023/02/30"}]}`,
			paths: []string{"txns.3.date"},
		},
		{
			name:  "missing date",
			body:  `{"nextId":"1","txns":[{"id":"1"}]}`,
			paths: []string{"txns.0.date"},
		},
		{
			name:  "wrong types",
			body:  `{"nextId":"1","txns":[{"date":"2024/01/01","amount":12,"tags":["a",3]}]}`,
			paths: []string{"txns.0.amount", "txns.0.tags.1"},
		},
		{
			name:  "not an object",
			body:  `[]`,
			paths: []string{""},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				io.WriteString(w, tt.body)
			})
			_, err := c.FetchTransactions(context.Background(), query.Filters{}, 20)
			var fe *FetchError
			if !errors.As(err, &fe) || fe.Kind != KindValidation {
				t.Fatalf("expected validation FetchError, got %v", err)
			}
			if got := fe.Issues.Paths(); !reflect.DeepEqual(got, tt.paths) {
				t.Fatalf("paths = %v, want %v", got, tt.paths)
			}
		})
	}
}

func TestStatusError(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		details string
	}{
		{"json details", `{"details":"db down"}`, "db down"},
		{"plain text", "db down\n", "db down"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				io.WriteString(w, tt.body)
			})
			_, err := c.FetchTransactions(context.Background(), query.Filters{}, 20)
			var fe *FetchError
			if !errors.As(err, &fe) || fe.Kind != KindStatus {
				t.Fatalf("expected status FetchError, got %v", err)
			}
			if fe.Status != 500 || fe.Details != tt.details {
				t.Fatalf("got %d %q", fe.Status, fe.Details)
			}
			if err.Error() != "500: db down" {
				t.Fatalf("Error() = %q", err.Error())
			}
		})
	}
}

func TestTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	c := New(srv.URL)
	_, err := c.FetchTransactions(context.Background(), query.Filters{}, 20)
	var fe *FetchError
	if !errors.As(err, &fe) || fe.Kind != KindTransport {
		t.Fatalf("expected transport FetchError, got %v", err)
	}
	if fe.Unwrap() == nil {
		t.Fatal("transport error should wrap the cause")
	}
}

func TestPatchTagsDropsTagsForClear(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch || r.URL.Path != "/txns/tags" {
			t.Errorf("got %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		io.WriteString(w, `{"details":"OK"}`)
	})
	err := c.PatchTags(context.Background(), core.TagEdit{IDs: []string{"1"}, Op: core.TagClear, Tags: []string{"x"}})
	if err != nil {
		t.Fatalf("PatchTags: %v", err)
	}
	if _, ok := got["tags"]; ok {
		t.Fatalf("clear request carried tags: %v", got)
	}
	if got["op"] != "clear" {
		t.Fatalf("op = %v", got["op"])
	}
}

func TestFetchSimilar(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("ids") != "1 2" || r.URL.Query().Get("limit") != "40" {
			t.Errorf("query = %s", r.URL.RawQuery)
		}
		io.WriteString(w, `{"selected_txns":[{"id":"1","date":"2024/01/01"}]}`)
	})
	s, err := c.FetchSimilar(context.Background(), query.Filters{IDs: []string{"1", "2"}}, 40)
	if err != nil {
		t.Fatalf("FetchSimilar: %v", err)
	}
	if len(s.Selected) != 1 || len(s.Similar) != 0 {
		t.Fatalf("got %+v", s)
	}
}

func TestCreateTxn(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		if body["date"] != "2024/02/29" || body["amount"] != "-1.00" {
			t.Errorf("body = %v", body)
		}
		io.WriteString(w, `{"id":42}`)
	})
	id, err := c.CreateTxn(context.Background(), core.Transaction{
		Date: core.NewDate(2024, 2, 29), Description: "x", Amount: "-1.00", Source: "visa",
	})
	if err != nil || id != "42" {
		t.Fatalf("CreateTxn = %q, %v", id, err)
	}
}

func TestFetchYearly(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.RawQuery != "fromYear=2023&toYear=2024" {
			t.Errorf("query = %s", r.URL.RawQuery)
		}
		io.WriteString(w, `{"expenses":[{"year":2024,"tag":"rent","amount_cents":5000}]}`)
	})
	rows, err := c.FetchYearly(context.Background(), 2023, 2024)
	if err != nil || len(rows) != 1 || rows[0].Cents != 5000 {
		t.Fatalf("FetchYearly = %+v, %v", rows, err)
	}
}

func TestFetchOverviewValidation(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `[{"source":"all","tagged_amounts":{"credits":"lots"}}]`)
	})
	_, err := c.FetchOverview(context.Background())
	var fe *FetchError
	if !errors.As(err, &fe) || fe.Kind != KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if !strings.Contains(err.Error(), "credits") {
		t.Fatalf("error should name the field: %v", err)
	}
}
