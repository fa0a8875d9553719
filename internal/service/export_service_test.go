package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aec-internal/requisitions-api/internal/models"
	appErrors "github.com/aec-internal/requisitions-api/pkg/errors"
)

func exportFixture() *snapshotStub {
	active := batchRecord(3, "REQ-1", "Motor trifásico 5cv")
	active.PurchasingStatus = "COMPRAR"
	removed := batchRecord(4, "", "Cabo antigo")
	removed.RemovalFlag = models.RemovalRemoved
	return &snapshotStub{records: []models.Record{active, removed}}
}

func TestExportGenerateCSVSkipsRemovedRows(t *testing.T) {
	svc := NewExportService(exportFixture(), ExportConfig{Enabled: true}, nil, nil, nil)

	res, err := svc.Generate(context.Background(), buyer(), FormatCSV)
	require.NoError(t, err)

	body := string(res.Payload)
	assert.Contains(t, body, "Motor trifásico 5cv")
	assert.NotContains(t, body, "Cabo antigo")
	assert.True(t, strings.HasSuffix(res.Filename, ".csv"))
	assert.Equal(t, "text/csv; charset=utf-8", res.ContentType)
}

func TestExportGeneratePDF(t *testing.T) {
	svc := NewExportService(exportFixture(), ExportConfig{Enabled: true}, nil, nil, nil)

	res, err := svc.Generate(context.Background(), buyer(), FormatPDF)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", res.ContentType)
	assert.NotEmpty(t, res.Payload)
}

func TestExportGenerateForbiddenForEngineering(t *testing.T) {
	svc := NewExportService(exportFixture(), ExportConfig{Enabled: true}, nil, nil, nil)

	_, err := svc.Generate(context.Background(), engineer(), FormatCSV)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestExportGenerateDisabled(t *testing.T) {
	svc := NewExportService(exportFixture(), ExportConfig{Enabled: false}, nil, nil, nil)

	_, err := svc.Generate(context.Background(), buyer(), FormatCSV)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestExportGenerateUnknownFormat(t *testing.T) {
	svc := NewExportService(exportFixture(), ExportConfig{Enabled: true}, nil, nil, nil)

	_, err := svc.Generate(context.Background(), buyer(), ExportFormat("xlsx"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
