package report

import (
	"strings"

	"github.com/Sternrassler/order-export/pkg/enrich"
	"github.com/Sternrassler/order-export/pkg/reconcile"
)

// ReportTypeDetailed selects one row per line item. Every other report
// type produces summary rows.
const ReportTypeDetailed = "detailed"

// Mode is the row granularity of a report.
type Mode string

const (
	ModeDetailed Mode = "detailed"
	ModeSummary  Mode = "summary"
)

// ModeFor maps a report type onto its row mode.
func ModeFor(reportType string) Mode {
	if strings.EqualFold(strings.TrimSpace(reportType), ReportTypeDetailed) {
		return ModeDetailed
	}
	return ModeSummary
}

// Assembler turns enrichment results into rows.
type Assembler struct {
	reconciler *reconcile.Reconciler
}

// NewAssembler creates an assembler using the given reconciler.
func NewAssembler(reconciler *reconcile.Reconciler) *Assembler {
	return &Assembler{reconciler: reconciler}
}

// Rows builds the rows for mode. Results whose enrichment failed are
// skipped; in detailed mode an order without line items yields no rows.
func (a *Assembler) Rows(mode Mode, results []enrich.Result) []Row {
	rows := make([]Row, 0, len(results))
	for _, res := range results {
		if res.Err != nil {
			continue
		}

		if mode == ModeSummary {
			rows = append(rows, NewRow(a.reconciler.Order(res.Order, res.Shipments)))
			continue
		}
		for _, item := range res.LineItems {
			rows = append(rows, NewRow(a.reconciler.LineItem(res.Order, item, res.Shipments)))
		}
	}
	return rows
}
