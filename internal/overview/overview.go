// Package overview reshapes pre-aggregated totals into the dashboard view
// model: one row per source plus a synthetic "all" row.
//
// Debits are carried as positive magnitudes so both rankings sort the
// same way (largest first).
package overview

import (
	"sort"
)

// AllSources is the name of the synthetic row merging every source.
const AllSources = "all"

type (
	Amounts struct {
		Credits int64 `json:"credits"`
		Debits  int64 `json:"debits"`
	}

	TagAmount struct {
		Tag   string `json:"tag"`
		Cents int64  `json:"amount"`
	}

	TagMetrics struct {
		TopTagsByCredits []TagAmount `json:"top_tags_by_credits"`
		TopTagsByDebits  []TagAmount `json:"top_tags_by_debits"`
	}

	Row struct {
		Source     string     `json:"source"`
		Tagged     Amounts    `json:"tagged_amounts"`
		Untagged   Amounts    `json:"untagged_amounts"`
		TagMetrics TagMetrics `json:"tag_metrics"`
	}

	// SourceTotal is one (source, tagged?) bucket as summed by the database.
	SourceTotal struct {
		Source  string
		Tagged  bool
		Credits int64
		Debits  int64
	}

	// SourceTagTotal is one (source, tag) bucket as summed by the database.
	SourceTagTotal struct {
		Source  string
		Tag     string
		Credits int64
		Debits  int64
	}
)

// Total sums tagged and untagged amounts.
func (r Row) Total() Amounts {
	return Amounts{
		Credits: r.Tagged.Credits + r.Untagged.Credits,
		Debits:  r.Tagged.Debits + r.Untagged.Debits,
	}
}

// Build returns the "all" row followed by one row per source, sources in
// first-encountered order across both inputs.
func Build(sources []SourceTotal, tags []SourceTagTotal) []Row {
	index := map[string]int{}
	var rows []Row
	rowFor := func(source string) *Row {
		i, ok := index[source]
		if !ok {
			i = len(rows)
			index[source] = i
			rows = append(rows, Row{Source: source})
		}
		return &rows[i]
	}

	for _, st := range sources {
		r := rowFor(st.Source)
		if st.Tagged {
			r.Tagged.Credits += st.Credits
			r.Tagged.Debits += st.Debits
		} else {
			r.Untagged.Credits += st.Credits
			r.Untagged.Debits += st.Debits
		}
	}

	credits := map[string]*ranking{}
	debits := map[string]*ranking{}
	for _, tt := range tags {
		rowFor(tt.Source)
		if credits[tt.Source] == nil {
			credits[tt.Source] = newRanking()
			debits[tt.Source] = newRanking()
		}
		credits[tt.Source].add(tt.Tag, tt.Credits)
		debits[tt.Source].add(tt.Tag, tt.Debits)
	}
	for i := range rows {
		if c, ok := credits[rows[i].Source]; ok {
			rows[i].TagMetrics.TopTagsByCredits = c.sorted()
			rows[i].TagMetrics.TopTagsByDebits = debits[rows[i].Source].sorted()
		}
	}

	out := make([]Row, 0, len(rows)+1)
	out = append(out, Merge(AllSources, rows...))
	return append(out, rows...)
}

// Merge sums rows element-wise and merges tag rankings by key. Summing
// the per-source rows this way gives the same totals and ranking values
// as aggregating the whole table at once.
func Merge(source string, rows ...Row) Row {
	merged := Row{Source: source}
	credits, debits := newRanking(), newRanking()
	for _, r := range rows {
		merged.Tagged.Credits += r.Tagged.Credits
		merged.Tagged.Debits += r.Tagged.Debits
		merged.Untagged.Credits += r.Untagged.Credits
		merged.Untagged.Debits += r.Untagged.Debits
		for _, ta := range r.TagMetrics.TopTagsByCredits {
			credits.add(ta.Tag, ta.Cents)
		}
		for _, ta := range r.TagMetrics.TopTagsByDebits {
			debits.add(ta.Tag, ta.Cents)
		}
	}
	merged.TagMetrics.TopTagsByCredits = credits.sorted()
	merged.TagMetrics.TopTagsByDebits = debits.sorted()
	return merged
}

// Find returns the row for source.
func Find(rows []Row, source string) (Row, bool) {
	for _, r := range rows {
		if r.Source == source {
			return r, true
		}
	}
	return Row{}, false
}

// Share returns part as a percentage of total, 0 when total is 0.
func Share(part, total int64) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) * 100 / float64(total)
}

// ranking sums amounts per tag and remembers first-seen order.
type ranking struct {
	order []string
	sums  map[string]int64
}

func newRanking() *ranking {
	return &ranking{sums: map[string]int64{}}
}

func (r *ranking) add(tag string, cents int64) {
	if cents == 0 {
		return
	}
	if _, ok := r.sums[tag]; !ok {
		r.order = append(r.order, tag)
	}
	r.sums[tag] += cents
}

// sorted ranks tags by amount, largest first; ties keep first-seen order.
func (r *ranking) sorted() []TagAmount {
	out := make([]TagAmount, 0, len(r.order))
	for _, tag := range r.order {
		out = append(out, TagAmount{Tag: tag, Cents: r.sums[tag]})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Cents > out[j].Cents })
	return out
}
