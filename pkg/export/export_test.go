package export

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleDataset() Dataset {
	return Dataset{
		Title:   "Groupe A1 - semaine 2",
		Headers: []string{"date", "start", "course"},
		Rows: []map[string]string{
			{"date": "2025-01-06", "start": "08:00", "course": "Algèbre"},
			{"date": "2025-01-06", "start": "09:00", "course": "Chimie, TP"},
		},
	}
}

func TestCSVExporterUsesDelimiter(t *testing.T) {
	out, err := NewCSVExporter(';').Render(sampleDataset())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "date;start;course", lines[0])
	assert.Equal(t, "2025-01-06;09:00;Chimie, TP", lines[2])
}

func TestCSVExporterRequiresHeaders(t *testing.T) {
	_, err := NewCSVExporter(0).Render(Dataset{})
	assert.Error(t, err)
}

func TestPDFExporterProducesDocument(t *testing.T) {
	out, err := NewPDFExporter().Render(sampleDataset())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestXLSXExporterWritesRows(t *testing.T) {
	out, err := NewXLSXExporter("Planning").Render(sampleDataset())
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Planning")
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "Groupe A1 - semaine 2", rows[0][0])
	assert.Equal(t, []string{"date", "start", "course"}, rows[1])
	assert.Equal(t, "Algèbre", rows[2][2])
}

func TestXLSXExporterReportsOversizedSheet(t *testing.T) {
	headers := make([]string, excelize.MaxColumns+1)
	for i := range headers {
		headers[i] = "c"
	}

	_, err := NewXLSXExporter("Planning").Render(Dataset{Headers: headers})
	assert.Error(t, err)
}

func TestICSExporterRendersEvents(t *testing.T) {
	exporter := NewICSExporter("")
	exporter.now = func() time.Time { return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC) }
	start := time.Date(2025, 1, 6, 7, 0, 0, 0, time.UTC)

	out, err := exporter.Render("A1", []CalendarEvent{{
		UID:      "session-1@campus-planner",
		Summary:  "Algèbre",
		Location: "Site A / Salle 30",
		Start:    start,
		End:      start.Add(time.Hour),
	}})
	require.NoError(t, err)

	body := string(out)
	assert.Contains(t, body, "BEGIN:VCALENDAR")
	assert.Contains(t, body, "UID:session-1@campus-planner")
	assert.Contains(t, body, "DTSTART:20250106T070000Z")
	assert.Contains(t, body, "DTEND:20250106T080000Z")
}

func TestICSExporterRejectsInvertedEvent(t *testing.T) {
	start := time.Date(2025, 1, 6, 7, 0, 0, 0, time.UTC)
	_, err := NewICSExporter("").Render("", []CalendarEvent{{UID: "x", Start: start, End: start}})
	assert.Error(t, err)
}
