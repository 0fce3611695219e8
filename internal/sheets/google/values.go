package google

import (
	"strings"

	"expenses/internal/core"
	"expenses/internal/overview"
)

// topTags is how many ranked tags are spelled out per overview row.
const topTags = 5

var (
	overviewHeader = []any{"Source", "Tagged credits", "Tagged debits", "Untagged credits", "Untagged debits", "Top credit tags", "Top debit tags"}
	yearlyHeader   = []any{"Year", "Tag", "Amount"}
)

// overviewValues lays rows out as a header followed by one line per source.
// Amounts are plain decimals so USER_ENTERED turns them into numbers.
func overviewValues(rows []overview.Row) [][]any {
	out := make([][]any, 0, len(rows)+1)
	out = append(out, overviewHeader)
	for _, r := range rows {
		out = append(out, []any{
			r.Source,
			core.FormatCents(r.Tagged.Credits),
			core.FormatCents(r.Tagged.Debits),
			core.FormatCents(r.Untagged.Credits),
			core.FormatCents(r.Untagged.Debits),
			joinTags(r.TagMetrics.TopTagsByCredits),
			joinTags(r.TagMetrics.TopTagsByDebits),
		})
	}
	return out
}

func yearlyValues(rows []overview.YearTag) [][]any {
	out := make([][]any, 0, len(rows)+1)
	out = append(out, yearlyHeader)
	for _, r := range rows {
		out = append(out, []any{r.Year, r.Tag, core.FormatCents(r.Cents)})
	}
	return out
}

// joinTags renders "rent 1200.00, food 9.25" for the first topTags entries.
func joinTags(tags []overview.TagAmount) string {
	if len(tags) > topTags {
		tags = tags[:topTags]
	}
	parts := make([]string, 0, len(tags))
	for _, t := range tags {
		parts = append(parts, t.Tag+" "+core.FormatCents(t.Cents))
	}
	return strings.Join(parts, ", ")
}

// sheetRange quotes the sheet name for A1 notation.
func sheetRange(sheet, cells string) string {
	return "'" + strings.ReplaceAll(sheet, "'", "''") + "'!" + cells
}
