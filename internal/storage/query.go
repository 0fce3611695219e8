package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"expenses/internal/core"

	"github.com/agnivade/levenshtein"
)

// SimilarityThreshold is the largest normalized edit distance between
// two descriptions that still counts as similar.
const SimilarityThreshold = 0.4

type (
	// TextMatch filters a text column. An empty Op means no constraint.
	TextMatch struct {
		Value string
		Op    core.MatchOp
	}

	// TagMatch filters on the tag set. Values are only used by match and
	// not-match.
	TagMatch struct {
		Values []string
		Op     core.MatchOp
	}

	// TxnQuery selects transactions ordered by id.
	TxnQuery struct {
		IDs         []int64
		FromDate    *core.Date
		ToDate      *core.Date
		Description TextMatch
		Source      TextMatch
		Tags        TagMatch
		// AllTags requires every listed tag.
		AllTags []string
		// ExcludeTags rejects transactions carrying any listed tag.
		ExcludeTags []string
		MinCents    *int64
		MaxCents    *int64
		StartID     int64
		// Limit of 0 means core.MaxLimit.
		Limit int
	}

	// SimilarTxns is the result of QuerySimilar.
	SimilarTxns struct {
		Selected []Txn
		Similar  []Txn
	}
)

// Validate checks bounds and fills the default limit.
func (q *TxnQuery) Validate() error {
	if q.Limit < 0 || q.Limit > core.MaxLimit {
		return fmt.Errorf("invalid limit, got %d, want >= 0 and <= %d", q.Limit, core.MaxLimit)
	}
	if q.Limit == 0 {
		q.Limit = core.MaxLimit
	}
	if q.StartID < 0 {
		return fmt.Errorf("invalid start id, got %d, want >= 0", q.StartID)
	}
	if len(q.IDs) > core.MaxIDs {
		return fmt.Errorf("%w: got %d, want <= %d", core.ErrTooManyIDs, len(q.IDs), core.MaxIDs)
	}
	for _, op := range []core.MatchOp{q.Description.Op, q.Source.Op, q.Tags.Op} {
		if op != "" && !op.Valid() {
			return fmt.Errorf("%w %q", core.ErrInvalidMatchOp, op)
		}
	}
	return nil
}

// where builds the filter clause shared by every transaction query.
func (q TxnQuery) where() (string, []any) {
	clauses := []string{"t.id >= ?"}
	args := []any{q.StartID}
	add := func(clause string, a ...any) {
		clauses = append(clauses, clause)
		args = append(args, a...)
	}

	if len(q.IDs) > 0 {
		in, a := inClause(q.IDs)
		add("t.id IN "+in, a...)
	}
	if q.FromDate != nil {
		add("t.date >= ?", q.FromDate.Format(dateColumnLayout))
	}
	if q.ToDate != nil {
		add("t.date <= ?", q.ToDate.Format(dateColumnLayout))
	}
	textClause("t.description", q.Description, add)
	textClause("t.source", q.Source, add)
	tagClause(q.Tags, add)
	for _, tag := range q.AllTags {
		add("EXISTS (SELECT 1 FROM transaction_tags tt WHERE tt.txn_id = t.id AND tt.tag = ?)", tag)
	}
	if len(q.ExcludeTags) > 0 {
		in, a := inClause(q.ExcludeTags)
		add("NOT EXISTS (SELECT 1 FROM transaction_tags tt WHERE tt.txn_id = t.id AND tt.tag IN "+in+")", a...)
	}
	if q.MinCents != nil {
		add("t.amount_cents >= ?", *q.MinCents)
	}
	if q.MaxCents != nil {
		add("t.amount_cents <= ?", *q.MaxCents)
	}
	return strings.Join(clauses, " AND "), args
}

func textClause(column string, m TextMatch, add func(string, ...any)) {
	switch m.Op {
	case core.OpMatch:
		if m.Value != "" {
			add("instr(lower("+column+"), lower(?)) > 0", m.Value)
		}
	case core.OpNotMatch:
		if m.Value != "" {
			add("instr(lower("+column+"), lower(?)) = 0", m.Value)
		}
	case core.OpEmpty:
		add(column + " = ''")
	}
}

func tagClause(m TagMatch, add func(string, ...any)) {
	const anyTag = "EXISTS (SELECT 1 FROM transaction_tags tt WHERE tt.txn_id = t.id"
	switch m.Op {
	case core.OpMatch:
		if len(m.Values) == 0 {
			add(anyTag + ")")
			return
		}
		in, a := inClause(m.Values)
		add(anyTag+" AND tt.tag IN "+in+")", a...)
	case core.OpNotMatch:
		if len(m.Values) > 0 {
			in, a := inClause(m.Values)
			add("NOT "+anyTag+" AND tt.tag IN "+in+")", a...)
		}
	case core.OpEmpty:
		add("NOT " + anyTag + ")")
	}
}

// QueryTxns returns matching transactions ordered by id.
func (r *SQLiteRepository) QueryTxns(ctx context.Context, q TxnQuery) ([]Txn, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	where, args := q.where()
	txns, err := r.scanTxns(ctx,
		`SELECT t.id, t.date, t.description, t.amount_cents, t.source FROM transactions t WHERE `+
			where+` ORDER BY t.id ASC LIMIT ?`,
		append(args, q.Limit)...)
	if err != nil {
		return nil, err
	}
	if err := r.loadTags(ctx, txns); err != nil {
		return nil, err
	}
	return txns, nil
}

// QuerySimilar returns the transactions in ids and, among the rows
// matching q, those whose description is close to a selected one.
// Similar rows are ordered by closeness then id, capped at q.Limit.
func (r *SQLiteRepository) QuerySimilar(ctx context.Context, ids []int64, q TxnQuery) (SimilarTxns, error) {
	if l := len(ids); l == 0 || l > core.MaxIDs {
		return SimilarTxns{}, fmt.Errorf("%w: got %d ids, want > 0 and <= %d", core.ErrInvalidID, l, core.MaxIDs)
	}
	if err := q.Validate(); err != nil {
		return SimilarTxns{}, err
	}

	selected, err := r.QueryTxns(ctx, TxnQuery{IDs: ids, Limit: core.MaxLimit})
	if err != nil {
		return SimilarTxns{}, fmt.Errorf("load selected transactions: %w", err)
	}
	if len(selected) == 0 {
		return SimilarTxns{Selected: []Txn{}, Similar: []Txn{}}, nil
	}

	isSelected := make(map[int64]bool, len(selected))
	descs := make([]string, 0, len(selected))
	for _, t := range selected {
		isSelected[t.ID] = true
		descs = append(descs, strings.ToLower(t.Description))
	}

	where, args := q.where()
	candidates, err := r.scanTxns(ctx,
		`SELECT t.id, t.date, t.description, t.amount_cents, t.source FROM transactions t WHERE `+
			where+` ORDER BY t.id ASC`, args...)
	if err != nil {
		return SimilarTxns{}, err
	}

	type scored struct {
		txn   Txn
		score float64
	}
	var matches []scored
	for _, c := range candidates {
		if isSelected[c.ID] {
			continue
		}
		if score, ok := closest(strings.ToLower(c.Description), descs); ok {
			matches = append(matches, scored{c, score})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].score < matches[j].score })
	if len(matches) > q.Limit {
		matches = matches[:q.Limit]
	}

	similar := make([]Txn, 0, len(matches))
	for _, m := range matches {
		similar = append(similar, m.txn)
	}
	if err := r.loadTags(ctx, similar); err != nil {
		return SimilarTxns{}, err
	}
	return SimilarTxns{Selected: selected, Similar: similar}, nil
}

// closest returns the smallest normalized edit distance between desc and
// refs, and whether it is within SimilarityThreshold.
func closest(desc string, refs []string) (float64, bool) {
	best := 2.0
	for _, ref := range refs {
		longest := max(len(desc), len(ref))
		if longest == 0 {
			continue
		}
		d := float64(levenshtein.ComputeDistance(desc, ref)) / float64(longest)
		if d < best {
			best = d
		}
	}
	return best, best <= SimilarityThreshold
}

func (r *SQLiteRepository) scanTxns(ctx context.Context, query string, args ...any) ([]Txn, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	txns := []Txn{}
	for rows.Next() {
		var (
			t    Txn
			date string
		)
		if err := rows.Scan(&t.ID, &date, &t.Description, &t.AmountCents, &t.Source); err != nil {
			return nil, fmt.Errorf("scan transaction after %d rows: %w", len(txns), err)
		}
		if t.Date, err = parseDateColumn(date); err != nil {
			return nil, err
		}
		txns = append(txns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return txns, nil
}

// loadTags fills the tags of txns in stored order.
func (r *SQLiteRepository) loadTags(ctx context.Context, txns []Txn) error {
	if len(txns) == 0 {
		return nil
	}
	index := make(map[int64]int, len(txns))
	ids := make([]int64, len(txns))
	for i := range txns {
		txns[i].Tags = []string{}
		index[txns[i].ID] = i
		ids[i] = txns[i].ID
	}
	in, args := inClause(ids)
	rows, err := r.db.QueryContext(ctx,
		`SELECT txn_id, tag FROM transaction_tags WHERE txn_id IN `+in+` ORDER BY txn_id, position`, args...)
	if err != nil {
		return fmt.Errorf("query tags: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			id  int64
			tag string
		)
		if err := rows.Scan(&id, &tag); err != nil {
			return fmt.Errorf("scan tag: %w", err)
		}
		i := index[id]
		txns[i].Tags = append(txns[i].Tags, tag)
	}
	return rows.Err()
}

