package report

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/locvowork/staffportal/internal/service"
)

const (
	SheetTimeCards = "Time Cards"
	SheetEntries   = "Entries"
	SheetTimeOff   = "Time Off"

	dateFormat     = "2006-01-02"
	dateTimeFormat = "2006-01-02 15:04"
)

var (
	timeCardHeaders = []interface{}{
		"Employee Number", "Employee", "Building", "Period Start", "Period End",
		"Status", "Total Hours", "Submitted At", "Approved By", "Approved At", "Comments",
	}
	entryHeaders = []interface{}{
		"Employee Number", "Period Start", "Date", "Day Type", "Time In", "Time Out",
		"Break (min)", "Hours", "Notes",
	}
	timeOffHeaders = []interface{}{
		"Employee Number", "Employee", "Building", "Type", "Start", "End",
		"Hours", "Status", "Reviewed By", "Reviewed At", "Comments",
	}
)

// WriteTimeCards renders the payroll workbook: one summary sheet and one
// sheet of entries.
func WriteTimeCards(w io.Writer, rows []service.TimeCardExport) error {
	f := excelize.NewFile()
	defer f.Close()

	cards := make([][]interface{}, 0, len(rows))
	var entries [][]interface{}
	for _, r := range rows {
		c := r.Card
		cards = append(cards, []interface{}{
			r.Employee.EmployeeNumber, r.Employee.FullName(), r.Employee.Building,
			c.PeriodStart.Format(dateFormat), c.PeriodEnd.AddDate(0, 0, -1).Format(dateFormat),
			string(c.Status), c.TotalHours, formatTime(c.SubmittedAt), c.ApprovedBy, formatTime(c.ApprovedAt), c.Comments,
		})
		for _, e := range c.Entries {
			entries = append(entries, []interface{}{
				r.Employee.EmployeeNumber, c.PeriodStart.Format(dateFormat), e.Date.Format(dateFormat),
				string(e.DayType), formatClock(e.TimeIn), formatClock(e.TimeOut), e.BreakTime, e.Hours, e.Notes,
			})
		}
	}

	if err := writeSheet(f, SheetTimeCards, timeCardHeaders, cards, true); err != nil {
		return err
	}
	if err := writeSheet(f, SheetEntries, entryHeaders, entries, false); err != nil {
		return err
	}
	_, err := f.WriteTo(w)
	return err
}

// WriteTimeOff renders time off requests on a single sheet.
func WriteTimeOff(w io.Writer, rows []service.TimeOffExport) error {
	f := excelize.NewFile()
	defer f.Close()

	data := make([][]interface{}, 0, len(rows))
	for _, r := range rows {
		t := r.Request
		data = append(data, []interface{}{
			r.Employee.EmployeeNumber, r.Employee.FullName(), r.Employee.Building, string(t.Type),
			t.StartDate.Format(dateFormat), t.EndDate.Format(dateFormat), t.Hours, string(t.Status),
			t.ReviewedBy, formatTime(t.ReviewedAt), t.Comments,
		})
	}
	if err := writeSheet(f, SheetTimeOff, timeOffHeaders, data, true); err != nil {
		return err
	}
	_, err := f.WriteTo(w)
	return err
}

// writeSheet streams a bold header row and the data rows. The first sheet
// renames the default "Sheet1".
func writeSheet(f *excelize.File, sheet string, headers []interface{}, rows [][]interface{}, first bool) error {
	if first {
		if err := f.SetSheetName("Sheet1", sheet); err != nil {
			return fmt.Errorf("failed to rename sheet: %w", err)
		}
	} else if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("failed to create sheet %s: %w", sheet, err)
	}

	style, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#D9E1F2"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return fmt.Errorf("failed to open stream writer: %w", err)
	}
	if err := sw.SetColWidth(1, len(headers), 16); err != nil {
		return err
	}
	if err := sw.SetRow("A1", headers, excelize.RowOpts{StyleID: style}); err != nil {
		return err
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := sw.SetRow(cell, row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}
	return sw.Flush()
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(dateTimeFormat)
}

func formatClock(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("15:04")
}
