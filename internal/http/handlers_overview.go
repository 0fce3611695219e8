package http

import (
	"net/http"
	"strconv"

	"expenses/internal/log"
	"expenses/internal/overview"

	"golang.org/x/sync/errgroup"
)

const (
	// topTags is how many tags each overview ranking shows.
	topTags = 5
	// pieSlices is how many tags the yearly breakdown keeps before "others".
	pieSlices = 4
)

type (
	shareView struct {
		Label string
		Cents int64
		Share float64
	}

	overviewRow struct {
		Source   string
		All      bool
		Tagged   overview.Amounts
		Untagged overview.Amounts
		Total    overview.Amounts
		// TaggedShare is the tagged part of the row's debits.
		TaggedShare float64
		// DebitShare is the row's part of all debits.
		DebitShare float64
		TopDebits  []shareView
		TopCredits []shareView
	}

	overviewPage struct {
		Title string
		Nav   string
		Rows  []overviewRow
		Err   string
	}

	yearBar struct {
		Year  int
		Total int64
		// Width is relative to the largest year, in percent.
		Width float64
	}

	yearlyPage struct {
		Title    string
		Nav      string
		From     int
		To       int
		Years    []yearBar
		PieYear  int
		Pie      []shareView
		PieTotal int64
		AllYears []int
		Err      string
	}
)

func newShares(tags []overview.TagAmount, n int, total int64) []shareView {
	if n > 0 && len(tags) > n {
		tags = tags[:n]
	}
	out := make([]shareView, 0, len(tags))
	for _, t := range tags {
		out = append(out, shareView{Label: t.Tag, Cents: t.Cents, Share: overview.Share(t.Cents, total)})
	}
	return out
}

// newOverviewRows computes the percentages of each row against the "all"
// row, which Build always puts first.
func newOverviewRows(rows []overview.Row) []overviewRow {
	all, _ := overview.Find(rows, overview.AllSources)
	global := all.Total()
	out := make([]overviewRow, 0, len(rows))
	for _, r := range rows {
		total := r.Total()
		out = append(out, overviewRow{
			Source:      r.Source,
			All:         r.Source == overview.AllSources,
			Tagged:      r.Tagged,
			Untagged:    r.Untagged,
			Total:       total,
			TaggedShare: overview.Share(r.Tagged.Debits, total.Debits),
			DebitShare:  overview.Share(total.Debits, global.Debits),
			TopDebits:   newShares(r.TagMetrics.TopTagsByDebits, topTags, global.Debits),
			TopCredits:  newShares(r.TagMetrics.TopTagsByCredits, topTags, global.Credits),
		})
	}
	return out
}

// handleOverview always fetches fresh totals from the backend.
func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	page := overviewPage{Title: "Overview", Nav: "overview"}
	rows, err := s.backend.FetchOverview(r.Context())
	if err != nil {
		s.logger.WarnContext(r.Context(), "Failed to fetch overview", log.FieldError, err.Error())
		page.Err = err.Error()
	} else {
		page.Rows = newOverviewRows(rows)
	}
	s.render(w, r, "overview.html", page)
}

// handleYearly renders the yearly totals for the requested range next to
// the tag breakdown of one year. The range only narrows the totals, so
// both lists are fetched concurrently.
func (s *Server) handleYearly(w http.ResponseWriter, r *http.Request) {
	yr, err := ParseYearRange(r.URL.Query())
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	pieYear, _ := strconv.Atoi(r.URL.Query().Get("year"))

	var ranged, everything []overview.YearTag
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		ranged, err = s.backend.FetchYearly(ctx, yr.From, yr.To)
		return err
	})
	g.Go(func() error {
		var err error
		everything, err = s.backend.FetchYearly(ctx, 0, 0)
		return err
	})

	page := yearlyPage{Title: "Yearly", Nav: "yearly", From: yr.From, To: yr.To}
	if err := g.Wait(); err != nil {
		s.logger.WarnContext(r.Context(), "Failed to fetch yearly expenses", log.FieldError, err.Error())
		page.Err = err.Error()
		s.render(w, r, "yearly.html", page)
		return
	}

	page.Years = newYearBars(overview.Yearly(ranged))
	all := overview.Yearly(everything)
	for _, y := range all {
		page.AllYears = append(page.AllYears, y.Year)
	}
	if sum, ok := pickYear(all, pieYear); ok {
		page.PieYear = sum.Year
		page.PieTotal = sum.Total
		page.Pie = newShares(overview.PieSlices(sum.Tags, pieSlices), 0, sum.Total)
	}
	s.render(w, r, "yearly.html", page)
}

// newYearBars lists years oldest first, as the totals chart reads left
// to right.
func newYearBars(years []overview.YearSummary) []yearBar {
	var largest int64
	for _, y := range years {
		largest = max(largest, y.Total)
	}
	bars := make([]yearBar, 0, len(years))
	for i := len(years) - 1; i >= 0; i-- {
		bars = append(bars, yearBar{
			Year:  years[i].Year,
			Total: years[i].Total,
			Width: overview.Share(years[i].Total, largest),
		})
	}
	return bars
}

// pickYear returns the requested year, or the newest one when it is
// absent.
func pickYear(years []overview.YearSummary, year int) (overview.YearSummary, bool) {
	for _, y := range years {
		if y.Year == year {
			return y, true
		}
	}
	if len(years) == 0 {
		return overview.YearSummary{}, false
	}
	return years[0], true
}
