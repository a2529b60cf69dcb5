package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-planner-api/internal/dto"
	"github.com/noah-isme/campus-planner-api/pkg/config"
	appErrors "github.com/noah-isme/campus-planner-api/pkg/errors"
	"github.com/noah-isme/campus-planner-api/pkg/export"
)

const exportTimeLayout = "15:04"

var timetableHeaders = []string{"Date", "Début", "Fin", "Type", "Cours", "Site", "Salle", "Trajet (min)"}

type groupPlanningReader interface {
	GetGroupPlanning(ctx context.Context, query dto.GroupPlanningQuery) (*dto.GroupPlanningResponse, error)
}

type datasetRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type calendarRenderer interface {
	Render(name string, events []export.CalendarEvent) ([]byte, error)
}

// ExportService renders group timetables as downloadable files.
type ExportService struct {
	planning  groupPlanningReader
	csv       datasetRenderer
	pdf       datasetRenderer
	xlsx      datasetRenderer
	ics       calendarRenderer
	validator *validator.Validate
	logger    *zap.Logger
}

// NewExportService constructs an ExportService with renderers built from cfg.
func NewExportService(planning groupPlanningReader, cfg config.ExportConfig, validate *validator.Validate, logger *zap.Logger) *ExportService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	var delimiter rune
	if cfg.CSVDelimiter != "" {
		delimiter = []rune(cfg.CSVDelimiter)[0]
	}
	return &ExportService{
		planning:  planning,
		csv:       export.NewCSVExporter(delimiter),
		pdf:       export.NewPDFExporter(),
		xlsx:      export.NewXLSXExporter(cfg.XLSXSheet),
		ics:       export.NewICSExporter(cfg.CalendarProductID),
		validator: validate,
		logger:    logger,
	}
}

// ExportGroupTimetable renders the planning of a group in the requested format.
func (s *ExportService) ExportGroupTimetable(ctx context.Context, req dto.ExportTimetableRequest) (*dto.ExportFile, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid export request")
	}
	planning, err := s.planning.GetGroupPlanning(ctx, dto.GroupPlanningQuery{GroupID: req.GroupID, From: req.From, To: req.To})
	if err != nil {
		return nil, err
	}

	title := fmt.Sprintf("Planning %s du %s au %s", planning.GroupName, req.From, req.To)
	file := &dto.ExportFile{Filename: timetableFilename(planning.GroupName, req.From, req.To, req.Format)}

	switch req.Format {
	case dto.ExportFormatCSV:
		file.ContentType = "text/csv; charset=utf-8"
		file.Body, err = s.csv.Render(timetableDataset(title, planning))
	case dto.ExportFormatPDF:
		file.ContentType = "application/pdf"
		file.Body, err = s.pdf.Render(timetableDataset(title, planning))
	case dto.ExportFormatXLSX:
		file.ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
		file.Body, err = s.xlsx.Render(timetableDataset(title, planning))
	case dto.ExportFormatICS:
		file.ContentType = "text/calendar; charset=utf-8"
		file.Body, err = s.ics.Render(title, timetableEvents(planning))
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported format %s", req.Format))
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render timetable")
	}

	s.logger.Info("timetable exported",
		zap.String("group_id", planning.GroupID),
		zap.String("format", req.Format),
		zap.Int("bytes", len(file.Body)),
	)
	return file, nil
}

func timetableDataset(title string, planning *dto.GroupPlanningResponse) export.Dataset {
	dataset := export.Dataset{Title: title, Headers: timetableHeaders}
	for _, day := range planning.Days {
		for _, entry := range day.Entries {
			row := map[string]string{
				"Date":  day.Date,
				"Début": entry.StartTime.Format(exportTimeLayout),
				"Fin":   entry.EndTime.Format(exportTimeLayout),
			}
			if entry.Type == dto.PlanningEntrySession {
				row["Type"] = "Cours"
				row["Cours"] = strings.TrimSpace(entry.CourseCode + " " + entry.CourseTitle)
				row["Site"] = entry.Site
				row["Salle"] = entry.Room
			} else {
				row["Type"] = "Déplacement"
				row["Site"] = entry.FromSite + " → " + entry.ToSite
				row["Salle"] = entry.FromRoom + " → " + entry.ToRoom
				row["Trajet (min)"] = fmt.Sprintf("%d", entry.Duration)
			}
			dataset.Rows = append(dataset.Rows, row)
		}
	}
	return dataset
}

// timetableEvents keeps sessions only; calendar clients show travel as gaps.
func timetableEvents(planning *dto.GroupPlanningResponse) []export.CalendarEvent {
	var events []export.CalendarEvent
	for _, day := range planning.Days {
		for _, entry := range day.Entries {
			if entry.Type != dto.PlanningEntrySession {
				continue
			}
			events = append(events, export.CalendarEvent{
				UID:         fmt.Sprintf("%s-%s@campus-planner", entry.ID, planning.GroupID),
				Summary:     strings.TrimSpace(entry.CourseCode + " " + entry.CourseTitle),
				Location:    fmt.Sprintf("%s, %s", entry.Room, entry.Site),
				Description: planning.GroupName,
				Start:       entry.StartTime,
				End:         entry.EndTime,
			})
		}
	}
	return events
}

func timetableFilename(groupName, from, to, format string) string {
	return fmt.Sprintf("planning_%s_%s_%s.%s", sanitizeFilename(groupName), from, to, format)
}

func sanitizeFilename(raw string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r == ' ':
			return '_'
		default:
			return -1
		}
	}, raw)
	if cleaned == "" {
		return "groupe"
	}
	return cleaned
}

