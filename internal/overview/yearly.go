package overview

import "sort"

// Others is the slice label folding every tag outside the top N.
const Others = "others"

// YearTag is the yearly expense total of one tag.
type YearTag struct {
	Year  int    `json:"year"`
	Tag   string `json:"tag"`
	Cents int64  `json:"amount_cents"`
}

// YearSummary groups one year of tag expenses, largest first.
type YearSummary struct {
	Year  int
	Total int64
	Tags  []TagAmount
}

// Yearly groups rows by year, newest year first.
func Yearly(rows []YearTag) []YearSummary {
	byYear := map[int]*ranking{}
	var years []int
	for _, r := range rows {
		rk, ok := byYear[r.Year]
		if !ok {
			rk = newRanking()
			byYear[r.Year] = rk
			years = append(years, r.Year)
		}
		rk.add(r.Tag, r.Cents)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(years)))

	out := make([]YearSummary, 0, len(years))
	for _, y := range years {
		tags := byYear[y].sorted()
		var total int64
		for _, t := range tags {
			total += t.Cents
		}
		out = append(out, YearSummary{Year: y, Total: total, Tags: tags})
	}
	return out
}

// PieSlices keeps the top n tags and folds the rest into "others".
// tags must already be sorted largest first.
func PieSlices(tags []TagAmount, n int) []TagAmount {
	if n <= 0 || len(tags) <= n {
		return append([]TagAmount(nil), tags...)
	}
	out := append([]TagAmount(nil), tags[:n]...)
	var rest int64
	for _, t := range tags[n:] {
		rest += t.Cents
	}
	return append(out, TagAmount{Tag: Others, Cents: rest})
}
