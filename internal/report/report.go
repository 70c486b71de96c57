// Package report exports sanction and attendance views as XLSX workbooks.
package report

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"membership/internal/attendance"
	"membership/internal/event"
	"membership/internal/sanction"
)

// ContentType is the MIME type of the generated workbooks.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const timeLayout = "15:04"

// SanctionList writes the sanction list with each student's matched offense.
func SanctionList(entries []sanction.Entry, tiers []sanction.Tier) ([]byte, error) {
	header := []any{"ID Number", "Last Name", "First Name", "Total Absences", "Offense", "Donations"}
	rows := make([][]any, 0, len(entries))
	for _, e := range entries {
		offense, donations := "No Offense", ""
		if t, ok := sanction.Match(tiers, e.TotalAbsences); ok {
			offense = fmt.Sprintf("Offense %d", t.OffenseNumber)
			donations = describeDonations(t.Donations)
		}
		rows = append(rows, []any{e.IDNumber, e.LastName, e.FirstName, e.TotalAbsences, offense, donations})
	}
	return write("Sanctions", header, rows)
}

// AttendanceSheet writes one event's scans; empty cells are missed slots.
func AttendanceSheet(evt event.Event, sheet []attendance.SheetRow) ([]byte, error) {
	header := []any{"ID Number", "Last Name", "First Name", "Gender"}
	for _, slot := range attendance.Slots {
		header = append(header, slotTitle(slot))
	}
	header = append(header, "Absences")

	rows := make([][]any, 0, len(sheet))
	for _, r := range sheet {
		row := []any{r.IDNumber, r.LastName, r.FirstName, r.Gender}
		for _, slot := range attendance.Slots {
			row = append(row, clock(r.At(slot)))
		}
		row = append(row, r.MissingUnits())
		rows = append(rows, row)
	}
	name := evt.Name
	if len(name) > 31 {
		name = name[:31]
	}
	return write(name, header, rows)
}

func write(sheetName string, header []any, rows [][]any) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}

	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return nil, err
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(sheetName, "A1", last, bold); err != nil {
		return nil, err
	}

	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(sheetName, cell, &rows[i]); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func describeDonations(ds []sanction.Donation) string {
	parts := make([]string, 0, len(ds))
	for _, d := range ds {
		parts = append(parts, fmt.Sprintf("%d %s", d.Count, d.Item))
	}
	return strings.Join(parts, ", ")
}

func slotTitle(s attendance.Slot) string {
	words := strings.Split(string(s), "_")
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func clock(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(timeLayout)
}
