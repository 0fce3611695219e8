// Package mcp exposes the transactions database to LLM agents as MCP
// tools served over stdio.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"expenses/internal/core"
	"expenses/internal/log"
	"expenses/internal/overview"
	"expenses/internal/storage"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/shopspring/decimal"
)

const (
	defaultLimit = 200
	minYear      = 1900
	maxYear      = 9999
)

// Store is the part of the repository the tools read from.
// *storage.SQLiteRepository satisfies it.
type Store interface {
	SearchTxns(ctx context.Context, q storage.AgentQuery) ([]storage.Txn, error)
	ExpensesByYearTag(ctx context.Context, fromYear, toYear int) ([]overview.YearTag, error)
}

// Tool outputs. The jsonschema tags feed the output schemas the tools
// advertise.
type (
	txnResult struct {
		Date        string   `json:"date" jsonschema:"description=yyyy/mm/dd"`
		Description string   `json:"description"`
		Amount      string   `json:"amount" jsonschema:"description=Decimal amount; debits are negative"`
		Type        string   `json:"type" jsonschema:"enum=credit,enum=debit"`
		Source      string   `json:"source"`
		Tags        []string `json:"tags,omitempty"`
	}

	txnsOutput struct {
		Transactions []txnResult `json:"transactions"`
	}

	expenseResult struct {
		Year   int    `json:"year"`
		Tag    string `json:"tag"`
		Amount string `json:"amount" jsonschema:"description=Positive decimal total"`
	}

	expensesOutput struct {
		Transactions []expenseResult `json:"transactions"`
	}
)

// NewServer builds an MCP server with every tool registered.
func NewServer(name, version string, store Store, logger *log.Logger) *server.MCPServer {
	s := server.NewMCPServer(name, version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)
	RegisterTools(s, store, logger)
	return s
}

// RegisterTools adds all tools to the MCP server.
func RegisterTools(s *server.MCPServer, store Store, logger *log.Logger) {
	logger = componentLogger(logger)
	registerGetTransactions(s, store, logger)
	registerGetExpenses(s, store, logger)
}

func componentLogger(l *log.Logger) *log.Logger {
	if l == nil {
		l = log.Default()
	}
	return l.WithComponent(log.ComponentMCP)
}

const getTransactionsDescription = `Get transactions matching the query parameters provided as arguments.

Arguments:
  fromDate: If specified, only get transactions on or after this date (yyyy/mm/dd or yyyy-mm-dd).
  toDate: If specified, only get transactions up to and including this date.
  description: If specified, only get transactions whose descriptions contain the given value.
               Matching is case insensitive.
  fromAmount: If specified, only get transactions whose amounts are greater than or equal to the given value.
  toAmount: If specified, only get transactions whose amounts are less than or equal to the given value.
  hasTags: If specified, only get transactions carrying all of the given tags.
  withoutTags: If specified, only get transactions that don't have any of the given tags.
  noTags: If true, only get transactions that don't have any tags.
  limit: Maximum number of transactions to return.

Returns:
  Array of transactions where each transaction has the following fields:
    date: Date the transaction occurred.
    description: Details about the transaction, usually the name of the merchant.
    amount: How much money was transacted. Debits are negative.
    type: Whether the transaction was a debit (money flowing out of the account) or
          credit (money flowing into the account).
    source: Identifies the account at a financial institution where the transaction happened.
    tags: Tags the transaction was manually categorized into. Transactions tagged
          as 'transfer' can be ignored because it's money moving between accounts.`

func registerGetTransactions(s *server.MCPServer, store Store, logger *log.Logger) {
	tool := mcp.NewTool("get-transactions",
		mcp.WithTitleAnnotation("Get Transactions"),
		mcp.WithDescription(getTransactionsDescription),
		mcp.WithString("fromDate", mcp.Description("Earliest date, inclusive")),
		mcp.WithString("toDate", mcp.Description("Latest date, inclusive")),
		mcp.WithString("description", mcp.Description("Case insensitive description substring")),
		mcp.WithNumber("fromAmount", mcp.Description("Minimum amount, inclusive")),
		mcp.WithNumber("toAmount", mcp.Description("Maximum amount, inclusive")),
		mcp.WithArray("hasTags", mcp.WithStringItems(), mcp.Description("Tags every result must carry")),
		mcp.WithArray("withoutTags", mcp.WithStringItems(), mcp.Description("Tags no result may carry")),
		mcp.WithBoolean("noTags", mcp.Description("Only untagged transactions")),
		mcp.WithNumber("limit",
			mcp.Description(fmt.Sprintf("Maximum number of results (default %d)", defaultLimit)),
			mcp.Min(1),
			mcp.Max(core.MaxLimit),
		),
		mcp.WithOutputSchema[txnsOutput](),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(true),
	)
	s.AddTool(tool, getTransactionsHandler(store, logger))
}

func getTransactionsHandler(store Store, logger *log.Logger) server.ToolHandlerFunc {
	logger = componentLogger(logger)
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		q, err := agentQuery(request.GetArguments())
		if err != nil {
			return toolError(ctx, logger, "get-transactions", err), nil
		}
		txns, err := store.SearchTxns(ctx, q)
		if err != nil {
			return toolError(ctx, logger, "get-transactions", err), nil
		}
		out, err := newTxnsOutput(txns)
		if err != nil {
			return toolError(ctx, logger, "get-transactions", err), nil
		}
		logger.InfoContext(ctx, "Tool call", log.FieldTool, "get-transactions", log.FieldRows, len(out.Transactions))
		return structured(out)
	}
}

const getExpensesDescription = `Get yearly expense totals per tag.

Arguments:
  fromYear: If specified, only include years on or after this one.
  toYear: If specified, only include years up to and including this one.

Returns:
  Array of rows, newest year first, with the fields:
    year: Calendar year.
    tag: Tag the expenses were categorized into. A transaction with several tags counts once per tag.
    amount: Total money spent, as a positive decimal.

Only debits are counted and transactions tagged 'transfer' are excluded.`

func registerGetExpenses(s *server.MCPServer, store Store, logger *log.Logger) {
	tool := mcp.NewTool("get-expenses",
		mcp.WithTitleAnnotation("Get Expenses"),
		mcp.WithDescription(getExpensesDescription),
		mcp.WithNumber("fromYear", mcp.Description("First year, inclusive"), mcp.Min(minYear), mcp.Max(maxYear)),
		mcp.WithNumber("toYear", mcp.Description("Last year, inclusive"), mcp.Min(minYear), mcp.Max(maxYear)),
		mcp.WithOutputSchema[expensesOutput](),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(true),
	)
	s.AddTool(tool, getExpensesHandler(store, logger))
}

func getExpensesHandler(store Store, logger *log.Logger) server.ToolHandlerFunc {
	logger = componentLogger(logger)
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		from, to, err := yearRange(request.GetArguments())
		if err != nil {
			return toolError(ctx, logger, "get-expenses", err), nil
		}
		rows, err := store.ExpensesByYearTag(ctx, from, to)
		if err != nil {
			return toolError(ctx, logger, "get-expenses", err), nil
		}
		out := expensesOutput{Transactions: make([]expenseResult, 0, len(rows))}
		for _, r := range rows {
			out.Transactions = append(out.Transactions, expenseResult{
				Year:   r.Year,
				Tag:    r.Tag,
				Amount: core.FormatCents(r.Cents),
			})
		}
		logger.InfoContext(ctx, "Tool call", log.FieldTool, "get-expenses", log.FieldRows, len(out.Transactions))
		return structured(out)
	}
}

// newTxnsOutput converts stored rows, refusing to return any row that is
// not a valid transaction.
func newTxnsOutput(txns []storage.Txn) (txnsOutput, error) {
	out := txnsOutput{Transactions: make([]txnResult, 0, len(txns))}
	for i, t := range txns {
		wire := t.Transaction()
		if err := wire.Validate(); err != nil {
			return txnsOutput{}, fmt.Errorf("invalid output: transactions.%d: %w", i, err)
		}
		out.Transactions = append(out.Transactions, txnResult{
			Date:        wire.Date.String(),
			Description: wire.Description,
			Amount:      wire.Amount,
			Type:        string(core.DirectionOf(t.AmountCents)),
			Source:      wire.Source,
			Tags:        t.Tags,
		})
	}
	return out, nil
}

func structured(v any) (*mcp.CallToolResult, error) {
	text, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Error: encode result: %v", err)), nil
	}
	return mcp.NewToolResultStructured(v, string(text)), nil
}

func toolError(ctx context.Context, logger *log.Logger, tool string, err error) *mcp.CallToolResult {
	logger.WarnContext(ctx, "Tool call failed", log.FieldTool, tool, log.FieldError, err.Error())
	return mcp.NewToolResultError("Error: " + err.Error())
}

// agentQuery checks the get-transactions arguments. Every problem is
// reported, not just the first.
func agentQuery(args map[string]any) (storage.AgentQuery, error) {
	var (
		q    = storage.AgentQuery{Limit: defaultLimit}
		errs core.ValidationErrors
	)
	q.FromDate = dateArg(args, "fromDate", &errs)
	q.ToDate = dateArg(args, "toDate", &errs)
	if s, ok := stringArg(args, "description", &errs); ok {
		q.Description = s
	}
	q.MinCents = amountArg(args, "fromAmount", &errs)
	q.MaxCents = amountArg(args, "toAmount", &errs)
	q.HasTags = stringsArg(args, "hasTags", &errs)
	q.WithoutTags = stringsArg(args, "withoutTags", &errs)
	if v, ok := args["noTags"]; ok && v != nil {
		b, isBool := v.(bool)
		if !isBool {
			errs.Add("noTags", "expected boolean")
		}
		q.NoTags = b
	}
	if n, ok := numberArg(args, "limit", &errs); ok {
		if n != math.Trunc(n) || n < 1 || n > core.MaxLimit {
			errs.Add("limit", fmt.Sprintf("expected an integer between 1 and %d", core.MaxLimit))
		} else {
			q.Limit = int(n)
		}
	}

	if q.FromDate != nil && q.ToDate != nil && q.ToDate.Before(q.FromDate.Time) {
		errs.Add("toDate", "must not be before fromDate")
	}
	if q.MinCents != nil && q.MaxCents != nil && *q.MaxCents < *q.MinCents {
		errs.Add("toAmount", "must not be less than fromAmount")
	}
	if err := errs.Err(); err != nil {
		return storage.AgentQuery{}, fmt.Errorf("invalid arguments:\n%w", err)
	}
	return q, nil
}

func yearRange(args map[string]any) (int, int, error) {
	var errs core.ValidationErrors
	year := func(key string) int {
		n, ok := numberArg(args, key, &errs)
		if !ok {
			return 0
		}
		if n != math.Trunc(n) || n < minYear || n > maxYear {
			errs.Add(key, fmt.Sprintf("expected a year between %d and %d", minYear, maxYear))
			return 0
		}
		return int(n)
	}
	from, to := year("fromYear"), year("toYear")
	if from > 0 && to > 0 && from > to {
		errs.Add("toYear", "must not be before fromYear")
	}
	if err := errs.Err(); err != nil {
		return 0, 0, fmt.Errorf("invalid arguments:\n%w", err)
	}
	return from, to, nil
}

func stringArg(args map[string]any, key string, errs *core.ValidationErrors) (string, bool) {
	v, ok := args[key]
	if !ok || v == nil {
		return "", false
	}
	s, ok := v.(string)
	if !ok {
		errs.Add(key, "expected string")
		return "", false
	}
	return s, true
}

func numberArg(args map[string]any, key string, errs *core.ValidationErrors) (float64, bool) {
	v, ok := args[key]
	if !ok || v == nil {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		if err == nil {
			return f, true
		}
	}
	errs.Add(key, "expected number")
	return 0, false
}

// dateArg accepts both yyyy/mm/dd and the ISO form agents tend to send.
func dateArg(args map[string]any, key string, errs *core.ValidationErrors) *core.Date {
	s, ok := stringArg(args, key, errs)
	if !ok || strings.TrimSpace(s) == "" {
		return nil
	}
	d, err := core.ParseDate(strings.ReplaceAll(s, "-", "/"))
	if err != nil {
		errs.Add(key, fmt.Sprintf("invalid date %q, expected yyyy/mm/dd", s))
		return nil
	}
	return &d
}

func amountArg(args map[string]any, key string, errs *core.ValidationErrors) *int64 {
	n, ok := numberArg(args, key, errs)
	if !ok {
		return nil
	}
	if math.IsNaN(n) || math.IsInf(n, 0) || math.Abs(n) > 1e15 {
		errs.Add(key, "amount out of range")
		return nil
	}
	cents := decimal.NewFromFloat(n).Shift(2).Round(0).IntPart()
	return &cents
}

func stringsArg(args map[string]any, key string, errs *core.ValidationErrors) []string {
	v, ok := args[key]
	if !ok || v == nil {
		return nil
	}
	var out []string
	switch items := v.(type) {
	case []string:
		return items
	case []any:
		for i, item := range items {
			s, ok := item.(string)
			if !ok {
				errs.Add(fmt.Sprintf("%s.%d", key, i), "expected string")
				continue
			}
			out = append(out, s)
		}
	default:
		errs.Add(key, "expected array")
	}
	return out
}
