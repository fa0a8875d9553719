package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aec-internal/requisitions-api/internal/dto"
	"github.com/aec-internal/requisitions-api/internal/models"
	"github.com/aec-internal/requisitions-api/internal/repository"
	appErrors "github.com/aec-internal/requisitions-api/pkg/errors"
)

type sheetStoreStub struct {
	records    []models.Record
	loadErr    error
	batchErr   error
	appendErr  error
	batches    [][]repository.CellWrite
	appends    [][][]string
	loadCalls  int
	callOrder  []string
}

func (s *sheetStoreStub) LoadAll(ctx context.Context) ([]models.Record, error) {
	s.loadCalls++
	return s.records, s.loadErr
}

func (s *sheetStoreStub) WriteCellsBatched(ctx context.Context, writes []repository.CellWrite) error {
	if s.batchErr != nil {
		return s.batchErr
	}
	if len(writes) > 0 {
		s.callOrder = append(s.callOrder, "batch")
	}
	s.batches = append(s.batches, writes)
	return nil
}

func (s *sheetStoreStub) AppendRows(ctx context.Context, rows [][]string) error {
	if s.appendErr != nil {
		return s.appendErr
	}
	if len(rows) > 0 {
		s.callOrder = append(s.callOrder, "append")
	}
	s.appends = append(s.appends, rows)
	return nil
}

func (s *sheetStoreStub) allWrites() []repository.CellWrite {
	var out []repository.CellWrite
	for _, b := range s.batches {
		out = append(out, b...)
	}
	return out
}

type snapshotStub struct {
	records     []models.Record
	err         error
	invalidated int
}

func (s *snapshotStub) Records(ctx context.Context) ([]models.Record, error) {
	return s.records, s.err
}

func (s *snapshotStub) Invalidate(ctx context.Context) {
	s.invalidated++
}

var testClock = time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)

func newTestService(store *sheetStoreStub, snap *snapshotStub) *RequisitionService {
	svc := NewRequisitionService(store, snap, nil)
	svc.now = func() time.Time { return testClock }
	return svc
}

func engineer() Actor {
	return Actor{Email: "ana@empresa.com.br", Department: models.DeptEngineering}
}

func buyer() Actor {
	return Actor{Email: "carlos@empresa.com.br", Department: models.DeptPurchasing}
}

func batchRecord(position int, code, description string) models.Record {
	return models.Record{
		Position:        position,
		RequisitionCode: code,
		Description:     description,
		RemovalFlag:     models.RemovalActive,
	}
}

func TestUpdateFieldForbiddenWritesNothing(t *testing.T) {
	store := &sheetStoreStub{}
	svc := newTestService(store, &snapshotStub{})

	err := svc.UpdateField(context.Background(), engineer(), 5, dto.UpdateFieldRequest{
		Field: models.FieldPurchasingStatus,
		Value: "COMPRADO",
	})

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "FORBIDDEN", appErr.Code)
	assert.Empty(t, store.batches, "authorization failure must not reach the store")
}

func TestUpdateFieldWritesCellAndAuditTogether(t *testing.T) {
	store := &sheetStoreStub{}
	snap := &snapshotStub{}
	svc := newTestService(store, snap)

	err := svc.UpdateField(context.Background(), buyer(), 7, dto.UpdateFieldRequest{
		Field: models.FieldPurchasingStatus,
		Value: "ORÇAMENTO",
	})
	require.NoError(t, err)

	require.Len(t, store.batches, 1, "field and audit should share one batched call")
	writes := store.batches[0]
	require.Len(t, writes, 2)
	assert.Equal(t, repository.CellWrite{Position: 7, Column: "B", Value: "ORÇAMENTO"}, writes[0])
	assert.Equal(t, models.Column("T"), writes[1].Column)
	assert.Equal(t, models.FormatAuditStamp(testClock, "carlos@empresa.com.br"), writes[1].Value)
	assert.Equal(t, 1, snap.invalidated)
}

func TestUpdateFieldUnknownField(t *testing.T) {
	store := &sheetStoreStub{}
	svc := newTestService(store, &snapshotStub{})

	err := svc.UpdateField(context.Background(), buyer(), 7, dto.UpdateFieldRequest{Field: "nope"})

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
	assert.Empty(t, store.batches)
}

func TestSoftDeleteFlagsRowRemoved(t *testing.T) {
	store := &sheetStoreStub{}
	snap := &snapshotStub{}
	svc := newTestService(store, snap)

	require.NoError(t, svc.SoftDelete(context.Background(), engineer(), 9))

	require.Len(t, store.batches, 1)
	writes := store.batches[0]
	require.Len(t, writes, 2)
	assert.Equal(t, repository.CellWrite{Position: 9, Column: "U", Value: models.RemovalRemoved}, writes[0])
	assert.Equal(t, models.Column("T"), writes[1].Column)
	assert.Equal(t, 1, snap.invalidated)
}

func TestSoftDeleteForbiddenForPurchasing(t *testing.T) {
	store := &sheetStoreStub{}
	svc := newTestService(store, &snapshotStub{})

	err := svc.SoftDelete(context.Background(), buyer(), 9)

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "FORBIDDEN", appErr.Code)
	assert.Empty(t, store.batches)
}

func TestCreateIndividualDefaults(t *testing.T) {
	store := &sheetStoreStub{}
	snap := &snapshotStub{}
	svc := newTestService(store, snap)

	err := svc.CreateIndividual(context.Background(), engineer(), dto.CreateIndividualRequest{
		Description: "Sensor indutivo M12",
		Quantity:    "4",
	})
	require.NoError(t, err)

	require.Len(t, store.appends, 1)
	require.Len(t, store.appends[0], 1)
	row := store.appends[0][0]
	require.Len(t, row, models.ColumnCount)

	assert.Empty(t, row[0], "submission date belongs to purchasing")
	assert.Empty(t, row[1])
	assert.Empty(t, row[2])
	assert.Empty(t, row[3])
	assert.Equal(t, models.DefaultEngineeringStatus, row[4])
	assert.Equal(t, "10/03/2026", row[6], "request date defaults to today")
	assert.Equal(t, "Sensor indutivo M12", row[10])
	assert.Equal(t, "ana@empresa.com.br", row[15])
	assert.Equal(t, models.FormatAuditStamp(testClock, "ana@empresa.com.br"), row[19])
	assert.Equal(t, models.RemovalActive, row[20])
	assert.Equal(t, 1, snap.invalidated)
}

func TestCreateBatchAppendsOneRowPerProduct(t *testing.T) {
	store := &sheetStoreStub{}
	svc := newTestService(store, &snapshotStub{})

	err := svc.CreateBatch(context.Background(), engineer(), dto.CreateBatchRequest{
		RequisitionCode: "REQ-2026-014",
		Shared: dto.BatchSharedInput{
			Project:      "Linha 3",
			NeededByDate: "2026-03-25",
		},
		Products: []dto.BatchProductInput{
			{Description: "Cabo PP 3x1.5mm", Quantity: "50"},
			{Description: "Conector M12 4 vias", Quantity: "10"},
		},
	})
	require.NoError(t, err)

	require.Len(t, store.appends, 1)
	rows := store.appends[0]
	require.Len(t, rows, 2)
	for _, row := range rows {
		assert.Equal(t, "REQ-2026-014", row[5])
		assert.Equal(t, "Linha 3", row[7])
		assert.Equal(t, "2026-03-25", row[13])
	}
	assert.Equal(t, "Cabo PP 3x1.5mm", rows[0][10])
	assert.Equal(t, "Conector M12 4 vias", rows[1][10])
}

func TestCreateBatchRequiresCodeAndProducts(t *testing.T) {
	store := &sheetStoreStub{}
	svc := newTestService(store, &snapshotStub{})

	err := svc.CreateBatch(context.Background(), engineer(), dto.CreateBatchRequest{})
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "VALIDATION_ERROR", appErr.Code)

	err = svc.CreateBatch(context.Background(), engineer(), dto.CreateBatchRequest{RequisitionCode: "REQ-1"})
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
	assert.Empty(t, store.appends)
}

func TestCreateBatchRejectsProductWithoutQuantity(t *testing.T) {
	store := &sheetStoreStub{}
	svc := newTestService(store, &snapshotStub{})

	err := svc.CreateBatch(context.Background(), engineer(), dto.CreateBatchRequest{
		RequisitionCode: "REQ-1",
		Products: []dto.BatchProductInput{
			{Description: "Cabo PP 3x1.5mm", Quantity: "50"},
			{Description: "Conector M12 4 vias"},
		},
	})
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
	assert.Empty(t, store.appends)
}

func TestPurchasingCannotCreateRequisitions(t *testing.T) {
	store := &sheetStoreStub{}
	svc := newTestService(store, &snapshotStub{})

	err := svc.CreateIndividual(context.Background(), buyer(), dto.CreateIndividualRequest{Description: "Rolamento 6204"})
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "FORBIDDEN", appErr.Code)

	err = svc.CreateBatch(context.Background(), buyer(), dto.CreateBatchRequest{
		RequisitionCode: "REQ-1",
		Products:        []dto.BatchProductInput{{Description: "Rolamento 6204", Quantity: "4"}},
	})
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "FORBIDDEN", appErr.Code)
	assert.Empty(t, store.appends)
}

func TestMarkBatchSeenStampsEveryActiveMember(t *testing.T) {
	store := &sheetStoreStub{records: []models.Record{
		batchRecord(3, "REQ-7", "Item A"),
		batchRecord(4, "REQ-7", "Item B"),
		{Position: 5, RequisitionCode: "REQ-7", RemovalFlag: models.RemovalRemoved},
		batchRecord(6, "REQ-9", "Other"),
	}}
	snap := &snapshotStub{}
	svc := newTestService(store, snap)

	require.NoError(t, svc.MarkBatchSeen(context.Background(), buyer(), "REQ-7"))

	require.Len(t, store.batches, 1)
	writes := store.batches[0]
	require.Len(t, writes, 2, "removed member must not be stamped")
	stamp := models.FormatAuditStamp(testClock, "carlos@empresa.com.br")
	assert.Equal(t, repository.CellWrite{Position: 3, Column: "S", Value: stamp}, writes[0])
	assert.Equal(t, repository.CellWrite{Position: 4, Column: "S", Value: stamp}, writes[1])
	assert.Equal(t, 1, snap.invalidated)
}

func TestMarkBatchSeenNoActiveMembers(t *testing.T) {
	store := &sheetStoreStub{records: []models.Record{
		{Position: 3, RequisitionCode: "REQ-7", RemovalFlag: models.RemovalRemoved},
	}}
	svc := newTestService(store, &snapshotStub{})

	err := svc.MarkBatchSeen(context.Background(), buyer(), "REQ-7")
	assert.ErrorIs(t, err, appErrors.ErrBatchNotFound)
	assert.Empty(t, store.batches)
}

func TestMarkBatchSeenEngineeringForbidden(t *testing.T) {
	store := &sheetStoreStub{records: []models.Record{batchRecord(3, "REQ-7", "A")}}
	svc := newTestService(store, &snapshotStub{})

	err := svc.MarkBatchSeen(context.Background(), engineer(), "REQ-7")

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "FORBIDDEN", appErr.Code)
	assert.Zero(t, store.loadCalls, "authorization runs before any read")
}

func TestUpdateSharedFieldsFansOutInOneBatch(t *testing.T) {
	store := &sheetStoreStub{records: []models.Record{
		batchRecord(3, "REQ-7", "A"),
		batchRecord(4, "REQ-7", "B"),
		batchRecord(5, "REQ-7", "C"),
	}}
	snap := &snapshotStub{}
	svc := newTestService(store, snap)

	err := svc.UpdateSharedFields(context.Background(), engineer(), "REQ-7", dto.UpdateSharedFieldsRequest{
		Updates: map[models.Field]string{
			models.FieldProject:      "Linha 5",
			models.FieldNeededByDate: "2026-04-01",
		},
	})
	require.NoError(t, err)

	require.Len(t, store.batches, 1, "fan-out must be one batched call")
	writes := store.batches[0]
	require.Len(t, writes, 9, "two fields plus one audit stamp per member")

	var projects, needed, audits int
	for _, w := range writes {
		switch w.Column {
		case "H":
			projects++
			assert.Equal(t, "Linha 5", w.Value)
		case "N":
			needed++
			assert.Equal(t, "2026-04-01", w.Value)
		case "T":
			audits++
		}
	}
	assert.Equal(t, 3, projects)
	assert.Equal(t, 3, needed)
	assert.Equal(t, 3, audits)
	assert.Equal(t, 1, snap.invalidated)
}

func TestUpdateSharedFieldsRejectsNonSharedField(t *testing.T) {
	store := &sheetStoreStub{}
	svc := newTestService(store, &snapshotStub{})

	err := svc.UpdateSharedFields(context.Background(), engineer(), "REQ-7", dto.UpdateSharedFieldsRequest{
		Updates: map[models.Field]string{models.FieldDescription: "x"},
	})

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
	assert.Zero(t, store.loadCalls)
}

func TestUpdateSharedFieldsRejectsUnauthorizedDepartment(t *testing.T) {
	store := &sheetStoreStub{}
	svc := newTestService(store, &snapshotStub{})

	err := svc.UpdateSharedFields(context.Background(), buyer(), "REQ-7", dto.UpdateSharedFieldsRequest{
		Updates: map[models.Field]string{models.FieldProject: "Linha 5"},
	})

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "FORBIDDEN", appErr.Code)
	assert.Empty(t, store.batches)
}

func TestAddProductToBatchCopiesSharedFields(t *testing.T) {
	first := batchRecord(3, "REQ-7", "A")
	first.Project = "Linha 2"
	first.NeededByDate = "2026-03-20"
	first.EngineeringStatus = "COMPRAR URGENTE"
	first.QuoteLink = "https://fornecedor.example/orc-11"
	store := &sheetStoreStub{records: []models.Record{first, batchRecord(4, "REQ-7", "B")}}
	svc := newTestService(store, &snapshotStub{})

	err := svc.AddProductToBatch(context.Background(), engineer(), "REQ-7", dto.BatchProductInput{
		Description: "Rele 24V",
		Quantity:    "6",
	})
	require.NoError(t, err)

	require.Len(t, store.appends, 1)
	row := store.appends[0][0]
	assert.Equal(t, "COMPRAR URGENTE", row[4])
	assert.Equal(t, "REQ-7", row[5])
	assert.Equal(t, "Linha 2", row[7])
	assert.Equal(t, "Rele 24V", row[10])
	assert.Equal(t, "2026-03-20", row[13])
	assert.Equal(t, "https://fornecedor.example/orc-11", row[14])
}

func TestReplaceBatchMembershipBatchesBeforeAppending(t *testing.T) {
	store := &sheetStoreStub{records: []models.Record{
		batchRecord(3, "REQ-7", "A"),
		batchRecord(4, "REQ-7", "B"),
	}}
	snap := &snapshotStub{}
	svc := newTestService(store, snap)

	err := svc.ReplaceBatchMembership(context.Background(), engineer(), "REQ-7", dto.ReplaceBatchRequest{
		Shared: map[models.Field]string{models.FieldProject: "Linha 9"},
		Products: []dto.BatchProductUpdate{
			{Position: 3, Description: "A revisada", Quantity: "2"},
			{Position: 4, Deleted: true},
			{New: true, Description: "Nova peça", Quantity: "1"},
		},
	})
	require.NoError(t, err)

	require.Equal(t, []string{"batch", "append"}, store.callOrder, "updates and deletes land before new rows")

	writes := store.allWrites()
	var sawDelete, sawSharedOnSurvivor, sawSharedOnDeleted bool
	for _, w := range writes {
		if w.Position == 4 && w.Column == "U" && w.Value == models.RemovalRemoved {
			sawDelete = true
		}
		if w.Position == 3 && w.Column == "H" && w.Value == "Linha 9" {
			sawSharedOnSurvivor = true
		}
		if w.Position == 4 && w.Column == "H" {
			sawSharedOnDeleted = true
		}
	}
	assert.True(t, sawDelete)
	assert.True(t, sawSharedOnSurvivor)
	assert.False(t, sawSharedOnDeleted, "deleted member should not receive shared updates")

	require.Len(t, store.appends, 1)
	appended := store.appends[0][0]
	assert.Equal(t, "Nova peça", appended[10])
	assert.Equal(t, "Linha 9", appended[7], "new rows carry the updated shared values")
	assert.Equal(t, 1, snap.invalidated)
}

func TestReplaceBatchMembershipRejectsForeignPosition(t *testing.T) {
	store := &sheetStoreStub{records: []models.Record{batchRecord(3, "REQ-7", "A")}}
	svc := newTestService(store, &snapshotStub{})

	err := svc.ReplaceBatchMembership(context.Background(), engineer(), "REQ-7", dto.ReplaceBatchRequest{
		Products: []dto.BatchProductUpdate{{Position: 99, Description: "x"}},
	})

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
	assert.Empty(t, store.appends)
}

func TestListGroupsSortsMostUrgentFirst(t *testing.T) {
	far := batchRecord(3, "", "Tranquilo")
	far.NeededByDate = "2026-05-10"
	soon := batchRecord(4, "", "Apertado")
	soon.NeededByDate = "2026-03-12"
	unscheduled := batchRecord(5, "", "Sem data")
	snap := &snapshotStub{records: []models.Record{far, soon, unscheduled}}
	svc := newTestService(&sheetStoreStub{}, snap)

	views, err := svc.ListGroups(context.Background(), dto.GroupFilter{})
	require.NoError(t, err)

	require.Len(t, views, 3)
	assert.Equal(t, "Apertado", views[0].Items[0].Description)
	assert.Equal(t, "Tranquilo", views[1].Items[0].Description)
	assert.Equal(t, "Sem data", views[2].Items[0].Description, "unscheduled sorts last")
}

func TestListGroupsAppliesFilters(t *testing.T) {
	a := batchRecord(3, "", "Motor trifásico")
	a.PurchasingStatus = "COMPRAR"
	a.NeededByDate = "2026-03-13"
	b := batchRecord(4, "", "Inversor")
	b.PurchasingStatus = "COMPRADO"
	b.NeededByDate = "2026-04-20"
	snap := &snapshotStub{records: []models.Record{a, b}}
	svc := newTestService(&sheetStoreStub{}, snap)

	views, err := svc.ListGroups(context.Background(), dto.GroupFilter{PurchasingStatus: "COMPRAR"})
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "Motor trifásico", views[0].Items[0].Description)

	views, err = svc.ListGroups(context.Background(), dto.GroupFilter{UrgencyBand: BandUrgent})
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "Motor trifásico", views[0].Items[0].Description)

	views, err = svc.ListGroups(context.Background(), dto.GroupFilter{Search: "inver"})
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "Inversor", views[0].Items[0].Description)
}

func TestSoftDeleteDemotesRemainderToStandalone(t *testing.T) {
	store := &sheetStoreStub{records: []models.Record{
		batchRecord(3, "REQ-7", "A"),
		batchRecord(4, "REQ-7", "B"),
	}}
	snap := &snapshotStub{records: store.records}
	svc := newTestService(store, snap)

	require.NoError(t, svc.SoftDelete(context.Background(), engineer(), 4))

	survivor := batchRecord(3, "REQ-7", "A")
	removed := batchRecord(4, "REQ-7", "B")
	removed.RemovalFlag = models.RemovalRemoved
	snap.records = []models.Record{survivor, removed}

	views, err := svc.ListGroups(context.Background(), dto.GroupFilter{})
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.False(t, views[0].IsBatch, "a lone survivor renders as a standalone item")
	assert.Equal(t, "single-3", views[0].Key)
}

func TestGetBatchNotFound(t *testing.T) {
	svc := newTestService(&sheetStoreStub{}, &snapshotStub{})

	_, err := svc.GetBatch(context.Background(), "REQ-404")
	assert.ErrorIs(t, err, appErrors.ErrBatchNotFound)
}

func TestStatusOptionsEndpointScopesByDepartment(t *testing.T) {
	svc := newTestService(&sheetStoreStub{}, &snapshotStub{})

	resp := svc.StatusOptions(buyer())
	assert.Equal(t, models.DeptPurchasing, resp.Department)
	assert.Equal(t, models.PurchasingStatusOptions, resp.Options)

	resp = svc.StatusOptions(engineer())
	assert.Equal(t, models.EngineeringStatusOptions, resp.Options)
}
