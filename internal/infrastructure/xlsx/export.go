// Package xlsx reads and writes the spreadsheets planners exchange with the
// service: material requirement exports and forecast imports.
package xlsx

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"pcp/internal/domain/plan"
)

const requirementsSheet = "MRP"

var requirementHeaders = []string{
	"Material ID", "Código ERP", "Descrição", "Tipo", "Unidade", "Bruto", "Líquido",
}

var requirementColWidths = []float64{12, 18, 40, 8, 10, 14, 14}

// MaterialRequirements renders net requirements of a plan into a workbook
// with one row per material and a bold net total per unit at the bottom.
// The caller must Close the file.
func MaterialRequirements(p *plan.Plan, rows []plan.MaterialRequirement) (*excelize.File, string, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", requirementsSheet); err != nil {
		_ = f.Close()
		return nil, "", fmt.Errorf("rename sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Bold: true, Size: 11},
		Fill:   excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{{Type: "bottom", Color: "000000", Style: 1}},
	})
	if err != nil {
		_ = f.Close()
		return nil, "", fmt.Errorf("header style: %w", err)
	}
	qtyStyle, _ := f.NewStyle(&excelize.Style{NumFmt: 4}) // #,##0.00
	totalStyle, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}, NumFmt: 4})

	for i, h := range requirementHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(requirementsSheet, cell, h)
		_ = f.SetCellStyle(requirementsSheet, cell, cell, headerStyle)
	}

	totals := make(map[string]decimal.Decimal)
	for i, r := range rows {
		row := i + 2
		values := []any{
			r.MaterialID,
			r.MaterialCode,
			r.Description,
			string(r.Kind),
			r.Unit,
			r.GrossQty.InexactFloat64(),
			r.NetQty.InexactFloat64(),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			_ = f.SetCellValue(requirementsSheet, cell, v)
		}
		_ = f.SetCellStyle(requirementsSheet, fmt.Sprintf("F%d", row), fmt.Sprintf("G%d", row), qtyStyle)
		totals[r.Unit] = totals[r.Unit].Add(r.NetQty)
	}

	units := make([]string, 0, len(totals))
	for u := range totals {
		units = append(units, u)
	}
	sort.Strings(units)

	row := len(rows) + 3
	for _, u := range units {
		_ = f.SetCellValue(requirementsSheet, fmt.Sprintf("A%d", row), "Total")
		_ = f.SetCellValue(requirementsSheet, fmt.Sprintf("E%d", row), u)
		_ = f.SetCellValue(requirementsSheet, fmt.Sprintf("G%d", row), totals[u].InexactFloat64())
		_ = f.SetCellStyle(requirementsSheet, fmt.Sprintf("A%d", row), fmt.Sprintf("G%d", row), totalStyle)
		row++
	}

	for i, w := range requirementColWidths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		_ = f.SetColWidth(requirementsSheet, col, col, w)
	}
	_ = f.SetPanes(requirementsSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})

	filename := fmt.Sprintf("mrp_%d-W%02d_plan%d.xlsx", p.RefYear, p.RefWeek, p.ID)
	return f, filename, nil
}
