// Package sheets defines where the overview worker publishes its tables.
// The google subpackage writes to a spreadsheet, memory keeps the last
// export for tests and local runs.
package sheets

import (
	"context"

	"expenses/internal/overview"
)

// Exporter replaces the published tables wholesale. The returned ref
// identifies the write (a range for Sheets, a counter in memory) and is
// only logged.
type Exporter interface {
	WriteOverview(ctx context.Context, rows []overview.Row) (ref string, err error)
	WriteYearly(ctx context.Context, rows []overview.YearTag) (ref string, err error)
}
