package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/statuscore/incident-registry/internal/models"
	appErrors "github.com/statuscore/incident-registry/pkg/errors"
	"github.com/statuscore/incident-registry/pkg/export"
)

// Export formats supported by the incident list export.
const (
	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"
)

type incidentLister interface {
	List(ctx context.Context, filter models.IncidentFilter) ([]models.Incident, int, error)
}

// ExportArtifact is a rendered export payload.
type ExportArtifact struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportService renders the filtered incident list as CSV or PDF.
type ExportService struct {
	repo   incidentLister
	csv    *export.CSVExporter
	pdf    *export.PDFExporter
	logger *zap.Logger
}

// NewExportService constructs the export service.
func NewExportService(repo incidentLister, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		repo:   repo,
		csv:    export.NewCSVExporter(),
		pdf:    export.NewPDFExporter(),
		logger: logger,
	}
}

var exportColumns = []string{"ID", "Title", "Level", "Scope", "Type", "Status", "Commander", "Started At", "Created At"}

// Export renders the filtered list in the requested format.
func (s *ExportService) Export(ctx context.Context, filter models.IncidentFilter, format string) (*ExportArtifact, error) {
	if format != ExportFormatCSV && format != ExportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}

	if filter.PageSize <= 0 {
		filter.PageSize = 100
	}
	incidents, _, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load incidents for export")
	}

	table := export.Table{
		Title:   "Incident Report",
		Columns: exportColumns,
		Rows:    make([][]string, 0, len(incidents)),
	}
	for _, incident := range incidents {
		table.Rows = append(table.Rows, []string{
			strconv.FormatInt(incident.ID, 10),
			incident.Title,
			incident.Level,
			incident.Scope,
			incident.IncidentType,
			incident.Status,
			incident.IncidentCommander,
			formatTime(incident.StartedAt),
			incident.CreatedAt.Format(time.RFC3339),
		})
	}

	artifact := &ExportArtifact{
		Filename: fmt.Sprintf("incidents-%s.%s", uuid.NewString(), format),
	}
	switch format {
	case ExportFormatCSV:
		artifact.ContentType = "text/csv"
		artifact.Data, err = s.csv.Render(table)
	case ExportFormatPDF:
		artifact.ContentType = "application/pdf"
		artifact.Data, err = s.pdf.Render(table)
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	s.logger.Info("incident export rendered",
		zap.String("format", format),
		zap.Int("rows", len(table.Rows)))

	return artifact, nil
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}
