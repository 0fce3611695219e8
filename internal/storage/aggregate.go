package storage

import (
	"context"
	"fmt"
	"strings"

	"expenses/internal/core"
	"expenses/internal/overview"
)

// TransferTag marks money moved between own accounts. It is left out of
// expense reports.
const TransferTag = "transfer"

// SourceTotals sums credits and debits per source, split by whether the
// transaction has tags. Debits are positive. Sources come in order of
// their first transaction.
func (r *SQLiteRepository) SourceTotals(ctx context.Context) ([]overview.SourceTotal, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT t.source,
       EXISTS (SELECT 1 FROM transaction_tags tt WHERE tt.txn_id = t.id) AS tagged,
       COALESCE(SUM(CASE WHEN t.amount_cents > 0 THEN t.amount_cents END), 0) AS credits,
       COALESCE(SUM(CASE WHEN t.amount_cents <= 0 THEN -t.amount_cents END), 0) AS debits
FROM transactions t
GROUP BY t.source, tagged
ORDER BY MIN(t.id), tagged DESC`)
	if err != nil {
		return nil, fmt.Errorf("query source totals: %w", err)
	}
	defer rows.Close()

	var out []overview.SourceTotal
	for rows.Next() {
		var st overview.SourceTotal
		if err := rows.Scan(&st.Source, &st.Tagged, &st.Credits, &st.Debits); err != nil {
			return nil, fmt.Errorf("scan source total: %w", err)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// SourceTagTotals sums credits and debits per (source, tag).
func (r *SQLiteRepository) SourceTagTotals(ctx context.Context) ([]overview.SourceTagTotal, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT t.source,
       tt.tag,
       COALESCE(SUM(CASE WHEN t.amount_cents > 0 THEN t.amount_cents END), 0) AS credits,
       COALESCE(SUM(CASE WHEN t.amount_cents <= 0 THEN -t.amount_cents END), 0) AS debits
FROM transactions t
JOIN transaction_tags tt ON tt.txn_id = t.id
GROUP BY t.source, tt.tag
ORDER BY MIN(t.id), MIN(tt.position)`)
	if err != nil {
		return nil, fmt.Errorf("query source tag totals: %w", err)
	}
	defer rows.Close()

	var out []overview.SourceTagTotal
	for rows.Next() {
		var st overview.SourceTagTotal
		if err := rows.Scan(&st.Source, &st.Tag, &st.Credits, &st.Debits); err != nil {
			return nil, fmt.Errorf("scan source tag total: %w", err)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// Overview builds the dashboard rows from the two aggregate queries.
func (r *SQLiteRepository) Overview(ctx context.Context) ([]overview.Row, error) {
	sources, err := r.SourceTotals(ctx)
	if err != nil {
		return nil, err
	}
	tags, err := r.SourceTagTotals(ctx)
	if err != nil {
		return nil, err
	}
	return overview.Build(sources, tags), nil
}

// ExpensesByYearTag sums debits per year and tag, newest year first.
// Untagged and transfer transactions are excluded. Zero years are
// unbounded.
func (r *SQLiteRepository) ExpensesByYearTag(ctx context.Context, fromYear, toYear int) ([]overview.YearTag, error) {
	clauses := []string{
		"t.amount_cents <= 0",
		"NOT EXISTS (SELECT 1 FROM transaction_tags x WHERE x.txn_id = t.id AND x.tag = ?)",
	}
	args := []any{TransferTag}
	if fromYear > 0 {
		clauses = append(clauses, "t.date >= ?")
		args = append(args, fmt.Sprintf("%04d-01-01", fromYear))
	}
	if toYear > 0 {
		clauses = append(clauses, "t.date <= ?")
		args = append(args, fmt.Sprintf("%04d-12-31", toYear))
	}

	rows, err := r.db.QueryContext(ctx, `
SELECT CAST(substr(t.date, 1, 4) AS INTEGER) AS year,
       tt.tag,
       SUM(-t.amount_cents) AS cents
FROM transactions t
JOIN transaction_tags tt ON tt.txn_id = t.id
WHERE `+strings.Join(clauses, " AND ")+`
GROUP BY year, tt.tag
ORDER BY year DESC, cents DESC, tt.tag ASC`, args...)
	if err != nil {
		return nil, fmt.Errorf("query yearly expenses: %w", err)
	}
	defer rows.Close()

	out := []overview.YearTag{}
	for rows.Next() {
		var yt overview.YearTag
		if err := rows.Scan(&yt.Year, &yt.Tag, &yt.Cents); err != nil {
			return nil, fmt.Errorf("scan yearly expense: %w", err)
		}
		out = append(out, yt)
	}
	return out, rows.Err()
}

// AgentQuery is the filter set of the MCP get-transactions tool.
type AgentQuery struct {
	FromDate    *core.Date
	ToDate      *core.Date
	Description string
	MinCents    *int64
	MaxCents    *int64
	// HasTags requires every listed tag.
	HasTags     []string
	WithoutTags []string
	NoTags      bool
	Limit       int
}

// SearchTxns runs an AgentQuery.
func (r *SQLiteRepository) SearchTxns(ctx context.Context, q AgentQuery) ([]Txn, error) {
	tq := TxnQuery{
		FromDate:    q.FromDate,
		ToDate:      q.ToDate,
		AllTags:     core.NormalizeTags(q.HasTags),
		ExcludeTags: core.NormalizeTags(q.WithoutTags),
		MinCents:    q.MinCents,
		MaxCents:    q.MaxCents,
		Limit:       q.Limit,
	}
	if d := strings.TrimSpace(q.Description); d != "" {
		tq.Description = TextMatch{Value: d, Op: core.OpMatch}
	}
	if q.NoTags {
		tq.Tags = TagMatch{Op: core.OpEmpty}
	}
	return r.QueryTxns(ctx, tq)
}
