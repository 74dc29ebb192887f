package xlsx

import (
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"pcp/internal/core/types"
	"pcp/internal/domain/planning"
)

// RowError is a spreadsheet row that could not be read.
type RowError struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

// ForecastImport is the outcome of reading a forecast sheet.
type ForecastImport struct {
	Entries []planning.ForecastEntry
	Skipped []RowError
}

// ReadForecast reads the first sheet of a workbook: column A holds the item
// code and column B the forecast kg; row 1 is a header. Blank rows are
// ignored, unreadable rows are reported in Skipped.
func ReadForecast(r io.Reader) (*ForecastImport, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0), excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet: %w", err)
	}

	out := &ForecastImport{Entries: []planning.ForecastEntry{}}
	if len(rows) < 2 {
		return out, nil
	}

	for i, row := range rows[1:] {
		line := i + 2
		code := ""
		if len(row) > 0 {
			code = strings.TrimSpace(row[0])
		}
		qtyText := ""
		if len(row) > 1 {
			qtyText = strings.TrimSpace(row[1])
		}
		if code == "" && qtyText == "" {
			continue
		}
		if code == "" {
			out.Skipped = append(out.Skipped, RowError{Row: line, Reason: "missing item code"})
			continue
		}

		qty, err := parseQty(qtyText)
		if err != nil {
			out.Skipped = append(out.Skipped, RowError{Row: line, Reason: fmt.Sprintf("invalid forecast %q", qtyText)})
			continue
		}
		out.Entries = append(out.Entries, planning.ForecastEntry{ItemCode: code, ForecastQty: qty})
	}

	return out, nil
}

// parseQty accepts "1234.5" and the pt-BR form "1.234,5". When both
// separators appear, the last one is the decimal mark and the other groups
// thousands.
func parseQty(s string) (decimal.Decimal, error) {
	comma, dot := strings.LastIndexByte(s, ','), strings.LastIndexByte(s, '.')
	switch {
	case comma > dot:
		s = strings.ReplaceAll(s, ".", "")
		if strings.Count(s, ",") > 1 {
			return decimal.Zero, fmt.Errorf("ambiguous quantity %q", s)
		}
		s = strings.Replace(s, ",", ".", 1)
	case comma >= 0:
		s = strings.ReplaceAll(s, ",", "")
	}
	return types.NewQtyFromString(s)
}
