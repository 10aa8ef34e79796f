package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// SheetName is the worksheet that holds the breakdown.
const SheetName = "Estimate"

// numFmtMoney is the built-in "#,##0.00" format.
const numFmtMoney = 4

type sheetWriter struct {
	f     *excelize.File
	row   int
	bold  int
	money int
	err   error
}

func (s *sheetWriter) put(values ...any) {
	if s.err != nil {
		return
	}
	s.row++
	cell, err := excelize.CoordinatesToCellName(1, s.row)
	if err != nil {
		s.err = err
		return
	}
	s.err = s.f.SetSheetRow(SheetName, cell, &values)
}

func (s *sheetWriter) style(style int, fromCol, toCol int) {
	if s.err != nil {
		return
	}
	from, err := excelize.CoordinatesToCellName(fromCol, s.row)
	if err != nil {
		s.err = err
		return
	}
	to, err := excelize.CoordinatesToCellName(toCol, s.row)
	if err != nil {
		s.err = err
		return
	}
	s.err = s.f.SetCellStyle(SheetName, from, to, style)
}

func (s *sheetWriter) blank() {
	s.row++
}

// XLSX writes the breakdown as a single-sheet workbook to w.
func XLSX(w io.Writer, r Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}
	money, err := f.NewStyle(&excelize.Style{NumFmt: numFmtMoney})
	if err != nil {
		return fmt.Errorf("create money style: %w", err)
	}

	s := &sheetWriter{f: f, bold: bold, money: money}

	s.put("Project", r.Details.ProjectName)
	s.style(s.bold, 1, 1)
	s.put("Dimensions (m)", r.Details.Length, r.Details.Width, r.Details.Height)
	s.style(s.bold, 1, 1)
	s.blank()

	s.put("Material", "Quantity", "Unit", "Unit Cost", "Total")
	s.style(s.bold, 1, 5)
	for _, l := range r.materialLines() {
		s.put(l.label, l.amount, l.unit, l.rate, l.subtotal)
		s.style(s.money, 4, 5)
	}
	s.blank()

	s.put("Role", "Hours", "", "Rate/Hour", "Total")
	s.style(s.bold, 1, 5)
	for _, l := range r.laborLines() {
		s.put(l.label, l.amount, "", l.rate, l.subtotal)
		s.style(s.money, 4, 5)
	}
	s.blank()

	totals := []struct {
		label string
		value float64
	}{
		{"Total Materials Cost", r.Breakdown.TotalMaterialCost},
		{"Total Labor Cost", r.Breakdown.TotalLaborCost},
		{"Overhead (" + Percent(r.OverheadRate) + ")", r.Breakdown.Overhead},
		{"Total Project Cost", r.Breakdown.Total},
	}
	for _, t := range totals {
		s.put(t.label, nil, nil, nil, t.value)
		s.style(s.money, 5, 5)
	}
	s.style(s.bold, 1, 1)

	if s.err != nil {
		return fmt.Errorf("write estimate sheet: %w", s.err)
	}
	if err := f.SetColWidth(SheetName, "A", "A", 28); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
