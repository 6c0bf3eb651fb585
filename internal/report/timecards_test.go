package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/locvowork/staffportal/internal/domain"
	"github.com/locvowork/staffportal/internal/service"
)

func TestWriteTimeCards(t *testing.T) {
	start := time.Date(2026, 2, 9, 0, 0, 0, 0, time.UTC)
	in := start.Add(8 * time.Hour)
	out := start.Add(16*time.Hour + 30*time.Minute)
	approved := start.AddDate(0, 0, 15)

	rows := []service.TimeCardExport{{
		Employee: domain.User{EmployeeNumber: "E7", FirstName: "Eve", LastName: "Stone", Building: "North"},
		Card: domain.TimeCard{
			PeriodStart: start,
			PeriodEnd:   start.AddDate(0, 0, 14),
			Status:      domain.TimeCardApproved,
			TotalHours:  8,
			ApprovedBy:  "mgr",
			ApprovedAt:  &approved,
			Entries: []domain.TimeEntry{
				{Date: start, TimeIn: &in, TimeOut: &out, BreakTime: 30, DayType: domain.DayRegular, Hours: 8},
			},
		},
	}}

	var buf bytes.Buffer
	require.NoError(t, WriteTimeCards(&buf, rows))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetTimeCards, SheetEntries}, f.GetSheetList())

	cards, err := f.GetRows(SheetTimeCards)
	require.NoError(t, err)
	require.Len(t, cards, 2)
	assert.Equal(t, "Employee Number", cards[0][0])
	assert.Equal(t, []string{"E7", "Eve Stone", "North", "2026-02-09", "2026-02-22", "APPROVED", "8", "", "mgr", "2026-02-24 00:00"}, cards[1])

	entries, err := f.GetRows(SheetEntries)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, []string{"E7", "2026-02-09", "2026-02-09", "REGULAR", "08:00", "16:30", "30", "8"}, entries[1])
}

func TestWriteTimeOff(t *testing.T) {
	day := time.Date(2026, 3, 18, 0, 0, 0, 0, time.UTC)
	var buf bytes.Buffer
	require.NoError(t, WriteTimeOff(&buf, []service.TimeOffExport{{
		Employee: domain.User{EmployeeNumber: "E7", FirstName: "Eve", LastName: "Stone"},
		Request: domain.TimeOffRequest{
			Type: domain.TimeOffVacation, StartDate: day, EndDate: day.AddDate(0, 0, 2),
			Hours: 24, Status: domain.TimeOffPending,
		},
	}}))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(SheetTimeOff)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"E7", "Eve Stone", "", "VACATION", "2026-03-18", "2026-03-20", "24", "PENDING"}, rows[1])
}
