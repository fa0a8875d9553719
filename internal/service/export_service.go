package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/aec-internal/requisitions-api/internal/models"
	appErrors "github.com/aec-internal/requisitions-api/pkg/errors"
	"github.com/aec-internal/requisitions-api/pkg/export"
)

// ExportFormat selects the rendered output type.
type ExportFormat string

const (
	FormatCSV ExportFormat = "csv"
	FormatPDF ExportFormat = "pdf"
)

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	Enabled bool
	Title   string
}

// ExportResult carries the rendered bytes plus response metadata.
type ExportResult struct {
	Payload     []byte
	ContentType string
	Filename    string
}

// exportHeaders are the report columns, in sheet order. Audit and removal
// columns stay internal.
var exportHeaders = []string{
	"Posição", "Requisição", "Data Solicitação", "Projeto", "Cód. Item",
	"Descrição", "Marca", "Qtde", "Data Necessidade", "Solicitante",
	"Status Engenharia", "Status Compras", "Ordem de Compra", "Previsão Chegada",
}

// ExportService renders the active requisition list for purchasing.
type ExportService struct {
	snapshot recordSnapshot
	csv      csvRenderer
	pdf      pdfRenderer
	cfg      ExportConfig
	now      func() time.Time
	logger   *zap.Logger
}

// NewExportService constructs an ExportService.
func NewExportService(snapshot recordSnapshot, cfg ExportConfig, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	if cfg.Title == "" {
		cfg.Title = "Solicitações de Compra"
	}
	return &ExportService{
		snapshot: snapshot,
		csv:      csv,
		pdf:      pdf,
		cfg:      cfg,
		now:      time.Now,
		logger:   logger,
	}
}

// Generate renders the active records in the requested format. Only
// purchasing and ADM run exports.
func (s *ExportService) Generate(ctx context.Context, actor Actor, format ExportFormat) (*ExportResult, error) {
	if !s.cfg.Enabled {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "exports are disabled")
	}
	if actor.Department != models.DeptPurchasing && actor.Department != models.DeptAdmin {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only purchasing exports the requisition list")
	}

	records, err := s.snapshot.Records(ctx)
	if err != nil {
		return nil, err
	}
	dataset := s.buildDataset(records)

	timestamp := s.now().UTC().Format("20060102_150405")
	switch format {
	case FormatCSV:
		payload, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return &ExportResult{
			Payload:     payload,
			ContentType: "text/csv; charset=utf-8",
			Filename:    fmt.Sprintf("solicitacoes_%s.csv", timestamp),
		}, nil
	case FormatPDF:
		payload, err := s.pdf.Render(dataset, s.cfg.Title)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return &ExportResult{
			Payload:     payload,
			ContentType: "application/pdf",
			Filename:    fmt.Sprintf("solicitacoes_%s.pdf", timestamp),
		}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
}

func (s *ExportService) buildDataset(records []models.Record) export.Dataset {
	rows := make([]map[string]string, 0, len(records))
	for _, r := range records {
		if !r.IsActive() {
			continue
		}
		rows = append(rows, map[string]string{
			"Posição":           fmt.Sprintf("%d", r.Position),
			"Requisição":        r.RequisitionCode,
			"Data Solicitação":  r.RequestDate,
			"Projeto":           r.Project,
			"Cód. Item":         r.ItemCode,
			"Descrição":         r.Description,
			"Marca":             r.MaterialBrand,
			"Qtde":              r.Quantity,
			"Data Necessidade":  r.NeededByDate,
			"Solicitante":       r.RequesterEmail,
			"Status Engenharia": r.EngineeringStatus,
			"Status Compras":    r.PurchasingStatus,
			"Ordem de Compra":   r.PurchaseOrderRef,
			"Previsão Chegada":  r.ExpectedArrival,
		})
	}
	return export.Dataset{Headers: exportHeaders, Rows: rows}
}
