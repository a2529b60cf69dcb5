package dto

// Timetable export formats.
const (
	ExportFormatCSV  = "csv"
	ExportFormatPDF  = "pdf"
	ExportFormatXLSX = "xlsx"
	ExportFormatICS  = "ics"
)

// ExportTimetableRequest selects the group, range and format of a timetable export.
type ExportTimetableRequest struct {
	GroupID string `validate:"required,uuid"`
	From    string `form:"from" validate:"required,datetime=2006-01-02"`
	To      string `form:"to" validate:"required,datetime=2006-01-02"`
	Format  string `form:"format" validate:"required,oneof=csv pdf xlsx ics"`
}

// ExportFile is a rendered timetable ready to be streamed.
type ExportFile struct {
	Filename    string
	ContentType string
	Body        []byte
}
