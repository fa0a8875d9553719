package repository

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/aec-internal/requisitions-api/internal/models"
	appErrors "github.com/aec-internal/requisitions-api/pkg/errors"
	"github.com/aec-internal/requisitions-api/pkg/sheets"
)

// valuesClient is the slice of the sheets client the repository needs.
type valuesClient interface {
	GetValues(ctx context.Context, rng string) ([][]string, error)
	UpdateValues(ctx context.Context, rng string, values [][]string) error
	BatchUpdateValues(ctx context.Context, data []sheets.ValueRange) error
	AppendValues(ctx context.Context, rng string, values [][]string) error
}

// CellWrite is one position-addressed cell overwrite.
type CellWrite struct {
	Position int
	Column   models.Column
	Value    string
}

// sheetMetrics receives read and write telemetry for the upstream store.
type sheetMetrics interface {
	ObserveSheetRead(duration time.Duration, err error)
	ObserveSheetWrite(kind string, cells int, err error)
}

// SheetRepository adapts the flat position-addressed grid into typed
// records. It is the only place that knows the sheet name and geometry.
type SheetRepository struct {
	client    valuesClient
	sheetName string
	metrics   sheetMetrics
	logger    *zap.Logger
}

// NewSheetRepository builds the adapter for the named sheet tab.
func NewSheetRepository(client valuesClient, sheetName string, logger *zap.Logger) *SheetRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SheetRepository{client: client, sheetName: sheetName, logger: logger}
}

// UseMetrics attaches store telemetry. Safe to leave unset.
func (r *SheetRepository) UseMetrics(m sheetMetrics) {
	r.metrics = m
}

func (r *SheetRepository) dataRange() string {
	return fmt.Sprintf("%s!A%d:U", r.sheetName, models.HeaderOffset)
}

func (r *SheetRepository) cellRange(position int, col models.Column) string {
	return fmt.Sprintf("%s!%s%d", r.sheetName, col, position)
}

// LoadAll reads the full grid and returns records ordered by position.
// Short rows are padded to the fixed column count; a missing removal flag
// counts as active. Only the transport call itself can fail.
func (r *SheetRepository) LoadAll(ctx context.Context) ([]models.Record, error) {
	start := time.Now()
	grid, err := r.client.GetValues(ctx, r.dataRange())
	if r.metrics != nil {
		r.metrics.ObserveSheetRead(time.Since(start), err)
	}
	if err != nil {
		return nil, err
	}

	records := make([]models.Record, 0, len(grid))
	for i, row := range grid {
		records = append(records, recordFromRow(models.HeaderOffset+i, row))
	}
	return records, nil
}

// WriteCell overwrites a single cell. No read-modify-write; last write wins.
func (r *SheetRepository) WriteCell(ctx context.Context, position int, col models.Column, value string) error {
	if position < models.HeaderOffset {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("position %d precedes the data range", position))
	}
	err := r.client.UpdateValues(ctx, r.cellRange(position, col), [][]string{{value}})
	if r.metrics != nil {
		r.metrics.ObserveSheetWrite("update", 1, err)
	}
	return err
}

// WriteCellsBatched issues all writes as one batch request. Required for any
// operation touching more than one row so the store's request-rate limits hold; the
// batch call is also treated as all-or-nothing at this boundary.
func (r *SheetRepository) WriteCellsBatched(ctx context.Context, writes []CellWrite) error {
	if len(writes) == 0 {
		return nil
	}

	data := make([]sheets.ValueRange, 0, len(writes))
	for _, w := range writes {
		if w.Position < models.HeaderOffset {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("position %d precedes the data range", w.Position))
		}
		data = append(data, sheets.ValueRange{
			Range:  r.cellRange(w.Position, w.Column),
			Values: [][]string{{w.Value}},
		})
	}

	err := r.client.BatchUpdateValues(ctx, data)
	if r.metrics != nil {
		r.metrics.ObserveSheetWrite("batch_update", len(data), err)
	}
	if err != nil {
		r.logger.Error("batched cell write failed", zap.Int("cells", len(data)), zap.Error(err))
		return err
	}
	return nil
}

// AppendRows appends full rows at the logical end of the table. The new
// positions are only knowable after the next LoadAll.
func (r *SheetRepository) AppendRows(ctx context.Context, rows [][]string) error {
	if len(rows) == 0 {
		return nil
	}
	for _, row := range rows {
		if len(row) != models.ColumnCount {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("append row has %d cells, want %d", len(row), models.ColumnCount))
		}
	}
	err := r.client.AppendValues(ctx, r.dataRange(), rows)
	if r.metrics != nil {
		r.metrics.ObserveSheetWrite("append", len(rows)*models.ColumnCount, err)
	}
	return err
}

func recordFromRow(position int, row []string) models.Record {
	cells := make([]string, models.ColumnCount)
	copy(cells, row)

	rec := models.Record{
		Position:          position,
		SubmissionDate:    cells[0],
		PurchasingStatus:  cells[1],
		PurchaseOrderRef:  cells[2],
		ExpectedArrival:   cells[3],
		EngineeringStatus: cells[4],
		RequisitionCode:   cells[5],
		RequestDate:       cells[6],
		Project:           cells[7],
		IsRegistered:      cells[8],
		ItemCode:          cells[9],
		Description:       cells[10],
		MaterialBrand:     cells[11],
		Quantity:          cells[12],
		NeededByDate:      cells[13],
		QuoteLink:         cells[14],
		RequesterEmail:    cells[15],
		Note:              cells[16],
		ItemStatus:        cells[17],
		SeenByPurchasing:  cells[18],
		LastModified:      cells[19],
		RemovalFlag:       cells[20],
	}
	if rec.RemovalFlag == "" {
		rec.RemovalFlag = models.RemovalActive
	}
	return rec
}
