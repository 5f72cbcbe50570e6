package report

import (
	"encoding/csv"
	"fmt"
	"io"
)

// WriteCSV writes the header and rows of a result as CSV.
func WriteCSV(w io.Writer, res *Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(res.Columns); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for i, row := range res.Rows {
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row %d: %w", i, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// Filename is the attachment name for a CSV download.
func Filename(req Request) string {
	store := req.StoreKey
	if store == "" {
		store = "orders"
	}
	return fmt.Sprintf("%s-%s-export.csv", store, ModeFor(req.ReportType))
}
