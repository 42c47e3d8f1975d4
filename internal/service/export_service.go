package service

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/noor-edu/archive-api/internal/dto"
	"github.com/noor-edu/archive-api/pkg/config"
	appErrors "github.com/noor-edu/archive-api/pkg/errors"
	"github.com/noor-edu/archive-api/pkg/export"
)

type inventoryStore interface {
	ListInventory(ctx context.Context, limit int) ([]dto.InventoryRow, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

var inventoryHeaders = []string{
	"subject_code", "subject_name", "section", "card", "item_type",
	"title", "year", "lecturer", "lecture_no", "created_at",
}

// ExportService renders the material inventory as CSV or PDF.
type ExportService struct {
	materials inventoryStore
	csv       csvRenderer
	pdf       pdfRenderer
	cfg       config.ExportConfig
	logger    *zap.Logger
}

// NewExportService constructs an ExportService.
func NewExportService(materials inventoryStore, cfg config.ExportConfig, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	if cfg.MaxRows <= 0 {
		cfg.MaxRows = 5000
	}
	return &ExportService{materials: materials, csv: csv, pdf: pdf, cfg: cfg, logger: logger}
}

// InventoryCSV renders the inventory as CSV bytes.
func (s *ExportService) InventoryCSV(ctx context.Context) ([]byte, error) {
	dataset, err := s.dataset(ctx)
	if err != nil {
		return nil, err
	}
	payload, err := s.csv.Render(*dataset)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "csv render failed")
	}
	return payload, nil
}

// InventoryPDF renders the inventory as PDF bytes.
func (s *ExportService) InventoryPDF(ctx context.Context) ([]byte, error) {
	dataset, err := s.dataset(ctx)
	if err != nil {
		return nil, err
	}
	payload, err := s.pdf.Render(*dataset, s.cfg.PDFTitle)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "pdf render failed")
	}
	return payload, nil
}

func (s *ExportService) dataset(ctx context.Context) (*export.Dataset, error) {
	if !s.cfg.Enabled {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "export is disabled")
	}
	rows, err := s.materials.ListInventory(ctx, s.cfg.MaxRows)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list inventory")
	}

	dataset := &export.Dataset{Headers: inventoryHeaders, Rows: make([]map[string]string, 0, len(rows))}
	for _, row := range rows {
		lectureNo := ""
		if row.LectureNo != nil {
			lectureNo = strconv.Itoa(*row.LectureNo)
		}
		dataset.Rows = append(dataset.Rows, map[string]string{
			"subject_code": row.SubjectCode,
			"subject_name": row.SubjectName,
			"section":      row.SectionKey,
			"card":         row.CardKey,
			"item_type":    row.ItemType,
			"title":        row.Title,
			"year":         row.Year,
			"lecturer":     row.Lecturer,
			"lecture_no":   lectureNo,
			"created_at":   row.CreatedAt.Format("2006-01-02"),
		})
	}
	s.logger.Debug("inventory dataset built", zap.Int("rows", len(dataset.Rows)))
	return dataset, nil
}

// Filename returns a content-disposition friendly name for the format.
func Filename(format string) string {
	return fmt.Sprintf("archive-inventory.%s", format)
}
