package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sis-rollover-api/internal/models"
	appErrors "github.com/noah-isme/sis-rollover-api/pkg/errors"
	"github.com/noah-isme/sis-rollover-api/pkg/export"
)

type statisticsProvider interface {
	Statistics(ctx context.Context, schoolID, yearID string) (*models.EnrollmentStatistics, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportService renders the enrollment statistics report as a downloadable
// file. Payloads are generated on demand and streamed back, not stored.
type ExportService struct {
	stats  statisticsProvider
	csv    csvRenderer
	pdf    pdfRenderer
	logger *zap.Logger
}

// NewExportService constructs an ExportService.
func NewExportService(stats statisticsProvider, csv csvRenderer, pdf pdfRenderer, logger *zap.Logger) *ExportService {
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{stats: stats, csv: csv, pdf: pdf, logger: logger}
}

// StatisticsReport builds the grouped enrollment report and renders it in the
// requested format. Supported formats: csv, pdf.
func (s *ExportService) StatisticsReport(ctx context.Context, schoolID, yearID, format string) (payload []byte, filename, contentType string, err error) {
	stats, err := s.stats.Statistics(ctx, schoolID, yearID)
	if err != nil {
		return nil, "", "", err
	}

	dataset := statisticsDataset(stats)
	title := fmt.Sprintf("Enrollment Statistics %s", yearID)

	switch strings.ToLower(strings.TrimSpace(format)) {
	case "csv":
		payload, err = s.csv.Render(dataset)
		contentType = "text/csv"
	case "pdf":
		payload, err = s.pdf.Render(dataset, title)
		contentType = "application/pdf"
	default:
		return nil, "", "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
	if err != nil {
		return nil, "", "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	timestamp := time.Now().UTC().Format("20060102_150405")
	filename = fmt.Sprintf("enrollment_statistics_%s_%s.%s", sanitizeFilename(yearID), timestamp, strings.ToLower(format))
	return payload, filename, contentType, nil
}

// statisticsDataset flattens the grouped report into one table keyed by
// dimension so a single renderer covers both formats.
func statisticsDataset(stats *models.EnrollmentStatistics) export.Dataset {
	rows := []map[string]string{
		{"Dimension": "total", "Key": "active", "Count": fmt.Sprintf("%d", stats.TotalActive)},
	}
	for _, grade := range stats.ByGrade {
		rows = append(rows, map[string]string{
			"Dimension": "grade", "Key": grade.GradeName, "Count": fmt.Sprintf("%d", grade.Count),
		})
	}
	for _, code := range models.AllEnrollmentCodes {
		rows = append(rows, map[string]string{
			"Dimension": "enrollment_code", "Key": string(code), "Count": fmt.Sprintf("%d", stats.ByCode[code]),
		})
	}
	for _, status := range models.AllRolloverStatuses {
		rows = append(rows, map[string]string{
			"Dimension": "rollover_status", "Key": string(status), "Count": fmt.Sprintf("%d", stats.ByRolloverStatus[status]),
		})
	}
	return export.Dataset{Headers: []string{"Dimension", "Key", "Count"}, Rows: rows}
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}
