package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/aec-internal/requisitions-api/internal/dto"
	"github.com/aec-internal/requisitions-api/internal/models"
	"github.com/aec-internal/requisitions-api/internal/repository"
	appErrors "github.com/aec-internal/requisitions-api/pkg/errors"
)

// requisitionStore is the slice of the sheet repository the façade uses.
// Multi-row mutations must go through WriteCellsBatched so every operation
// costs at most one write call against the upstream quota.
type requisitionStore interface {
	LoadAll(ctx context.Context) ([]models.Record, error)
	WriteCellsBatched(ctx context.Context, writes []repository.CellWrite) error
	AppendRows(ctx context.Context, rows [][]string) error
}

// recordSnapshot serves cached reads and is invalidated after every mutation.
type recordSnapshot interface {
	Records(ctx context.Context) ([]models.Record, error)
	Invalidate(ctx context.Context)
}

// Actor identifies the authenticated caller for authorization and audit.
type Actor struct {
	Email      string
	Department models.Department
}

// RequisitionService is the single mutation path into the requisition sheet.
// Handlers never talk to the sheet repository directly: centralizing writes
// here keeps field authorization, audit stamping and batch fan-out in one
// place.
type RequisitionService struct {
	store    requisitionStore
	snapshot recordSnapshot
	now      func() time.Time
	logger   *zap.Logger
}

// NewRequisitionService builds the façade.
func NewRequisitionService(store requisitionStore, snapshot recordSnapshot, logger *zap.Logger) *RequisitionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RequisitionService{
		store:    store,
		snapshot: snapshot,
		now:      time.Now,
		logger:   logger,
	}
}

// ListGroups returns the dashboard card list: filtered, urgency-classified
// groups sorted most urgent first. Reads come from the snapshot.
func (s *RequisitionService) ListGroups(ctx context.Context, filter dto.GroupFilter) ([]dto.GroupView, error) {
	records, err := s.snapshot.Records(ctx)
	if err != nil {
		return nil, err
	}

	today := s.now()
	groups := GroupRecords(records)
	views := make([]dto.GroupView, 0, len(groups))
	for _, g := range groups {
		view := s.buildView(g, today)
		if !matchesFilter(view, filter) {
			continue
		}
		views = append(views, view)
	}

	sort.SliceStable(views, func(i, j int) bool {
		return LessUrgent(views[i].Urgency, views[j].Urgency)
	})
	return views, nil
}

// GetBatch returns the card for one requisition code.
func (s *RequisitionService) GetBatch(ctx context.Context, code string) (dto.GroupView, error) {
	records, err := s.snapshot.Records(ctx)
	if err != nil {
		return dto.GroupView{}, err
	}
	members := ActiveBatchMembers(records, code)
	if len(members) == 0 {
		return dto.GroupView{}, appErrors.ErrBatchNotFound
	}
	return s.buildView(Group{Key: code, Records: members}, s.now()), nil
}

// StatusOptions returns the status vocabulary the caller's department edits.
func (s *RequisitionService) StatusOptions(actor Actor) dto.StatusOptionsResponse {
	return dto.StatusOptionsResponse{
		Department: actor.Department,
		Options:    StatusOptionsFor(actor.Department),
	}
}

// UpdateField overwrites one cell of one record. Authorization is checked
// before anything is written: a forbidden field produces zero writes. The
// cell and the last-modified stamp land in the same batched call.
func (s *RequisitionService) UpdateField(ctx context.Context, actor Actor, position int, req dto.UpdateFieldRequest) error {
	col, ok := models.ColumnFor(req.Field)
	if !ok {
		return appErrors.Clone(appErrors.ErrValidation, "unknown field "+string(req.Field))
	}
	if !IsFieldEditable(actor.Department, req.Field) {
		return appErrors.Clone(appErrors.ErrForbidden, "department "+string(actor.Department)+" may not edit "+string(req.Field))
	}

	writes := []repository.CellWrite{
		{Position: position, Column: col, Value: req.Value},
		s.auditWrite(position, actor),
	}
	if err := s.store.WriteCellsBatched(ctx, writes); err != nil {
		return err
	}
	s.snapshot.Invalidate(ctx)
	return nil
}

// SoftDelete flags a record REMOVIDO. The row stays in the grid so every
// other position keeps meaning what it meant.
func (s *RequisitionService) SoftDelete(ctx context.Context, actor Actor, position int) error {
	if !IsFieldEditable(actor.Department, models.FieldRemovalFlag) {
		return appErrors.Clone(appErrors.ErrForbidden, "department "+string(actor.Department)+" may not remove items")
	}

	writes := []repository.CellWrite{
		{Position: position, Column: columnOf(models.FieldRemovalFlag), Value: models.RemovalRemoved},
		s.auditWrite(position, actor),
	}
	if err := s.store.WriteCellsBatched(ctx, writes); err != nil {
		return err
	}
	s.snapshot.Invalidate(ctx)
	return nil
}

// CreateIndividual appends one standalone row. Purchasing-owned columns stay
// blank until purchasing fills them in.
func (s *RequisitionService) CreateIndividual(ctx context.Context, actor Actor, req dto.CreateIndividualRequest) error {
	if !IsFieldEditable(actor.Department, models.FieldDescription) {
		return appErrors.Clone(appErrors.ErrForbidden, "department "+string(actor.Department)+" may not create requisitions")
	}
	row := s.newRow(actor, rowInput{
		EngineeringStatus: req.EngineeringStatus,
		RequisitionCode:   req.RequisitionCode,
		RequestDate:       req.RequestDate,
		Project:           req.Project,
		IsRegistered:      req.IsRegistered,
		ItemCode:          req.ItemCode,
		Description:       req.Description,
		MaterialBrand:     req.MaterialBrand,
		Quantity:          req.Quantity,
		NeededByDate:      req.NeededByDate,
		QuoteLink:         req.QuoteLink,
		Note:              req.Note,
	})
	if err := s.store.AppendRows(ctx, [][]string{row}); err != nil {
		return err
	}
	s.snapshot.Invalidate(ctx)
	return nil
}

// CreateBatch appends one row per product, all carrying the same requisition
// code and shared fields. A single row still appends; it just renders as a
// standalone item until a second active member exists.
func (s *RequisitionService) CreateBatch(ctx context.Context, actor Actor, req dto.CreateBatchRequest) error {
	if !IsFieldEditable(actor.Department, models.FieldDescription) {
		return appErrors.Clone(appErrors.ErrForbidden, "department "+string(actor.Department)+" may not create requisitions")
	}
	if req.RequisitionCode == "" {
		return appErrors.Clone(appErrors.ErrValidation, "requisition code is required")
	}
	if len(req.Products) == 0 {
		return appErrors.Clone(appErrors.ErrValidation, "a batch needs at least one product")
	}
	for i, p := range req.Products {
		if p.Description == "" || p.Quantity == "" {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("product %d needs a description and a quantity", i+1))
		}
	}

	rows := make([][]string, 0, len(req.Products))
	for _, p := range req.Products {
		rows = append(rows, s.newRow(actor, rowInput{
			EngineeringStatus: req.Shared.EngineeringStatus,
			RequisitionCode:   req.RequisitionCode,
			RequestDate:       req.Shared.RequestDate,
			Project:           req.Shared.Project,
			ItemCode:          p.ItemCode,
			Description:       p.Description,
			MaterialBrand:     p.MaterialBrand,
			Quantity:          p.Quantity,
			NeededByDate:      req.Shared.NeededByDate,
			QuoteLink:         req.Shared.QuoteLink,
			Note:              p.Note,
		}))
	}
	if err := s.store.AppendRows(ctx, rows); err != nil {
		return err
	}
	s.snapshot.Invalidate(ctx)
	return nil
}

// MarkBatchSeen stamps the seen column of every active member. Membership is
// resolved against a fresh read so rows removed since the caller's last view
// are not stamped.
func (s *RequisitionService) MarkBatchSeen(ctx context.Context, actor Actor, code string) error {
	if actor.Department != models.DeptPurchasing && actor.Department != models.DeptAdmin {
		return appErrors.Clone(appErrors.ErrForbidden, "only purchasing marks batches as seen")
	}

	members, err := s.activeMembers(ctx, code)
	if err != nil {
		return err
	}

	stamp := models.FormatAuditStamp(s.now(), actor.Email)
	writes := make([]repository.CellWrite, 0, len(members))
	for _, m := range members {
		writes = append(writes, repository.CellWrite{
			Position: m.Position,
			Column:   columnOf(models.FieldSeenByPurchasing),
			Value:    stamp,
		})
	}
	if err := s.store.WriteCellsBatched(ctx, writes); err != nil {
		return err
	}
	s.snapshot.Invalidate(ctx)
	return nil
}

// UpdateSharedFields fans the given values out to every active member of the
// batch. All field cells plus one audit stamp per member go out as a single
// batched write.
func (s *RequisitionService) UpdateSharedFields(ctx context.Context, actor Actor, code string, req dto.UpdateSharedFieldsRequest) error {
	if len(req.Updates) == 0 {
		return appErrors.Clone(appErrors.ErrValidation, "no field updates given")
	}
	fields, err := s.checkSharedUpdates(actor, req.Updates)
	if err != nil {
		return err
	}

	members, err := s.activeMembers(ctx, code)
	if err != nil {
		return err
	}

	writes := make([]repository.CellWrite, 0, len(members)*(len(fields)+1))
	for _, m := range members {
		for _, f := range fields {
			writes = append(writes, repository.CellWrite{
				Position: m.Position,
				Column:   columnOf(f),
				Value:    req.Updates[f],
			})
		}
		writes = append(writes, s.auditWrite(m.Position, actor))
	}
	if err := s.store.WriteCellsBatched(ctx, writes); err != nil {
		return err
	}
	s.snapshot.Invalidate(ctx)
	return nil
}

// AddProductToBatch appends one row to an existing batch, copying the shared
// fields from the batch's first active member.
func (s *RequisitionService) AddProductToBatch(ctx context.Context, actor Actor, code string, product dto.BatchProductInput) error {
	if !IsFieldEditable(actor.Department, models.FieldDescription) {
		return appErrors.Clone(appErrors.ErrForbidden, "department "+string(actor.Department)+" may not add products")
	}

	members, err := s.activeMembers(ctx, code)
	if err != nil {
		return err
	}
	first := members[0]

	row := s.newRow(actor, rowInput{
		EngineeringStatus: first.EngineeringStatus,
		RequisitionCode:   code,
		RequestDate:       first.RequestDate,
		Project:           first.Project,
		ItemCode:          product.ItemCode,
		Description:       product.Description,
		MaterialBrand:     product.MaterialBrand,
		Quantity:          product.Quantity,
		NeededByDate:      first.NeededByDate,
		QuoteLink:         first.QuoteLink,
		Note:              product.Note,
	})
	if err := s.store.AppendRows(ctx, [][]string{row}); err != nil {
		return err
	}
	s.snapshot.Invalidate(ctx)
	return nil
}

// ReplaceBatchMembership applies a full batch edit: shared-field updates and
// per-product edits and removals go out first in one batched write, then any
// new products append. Appends run last so a failed batch write leaves no
// orphan rows behind.
func (s *RequisitionService) ReplaceBatchMembership(ctx context.Context, actor Actor, code string, req dto.ReplaceBatchRequest) error {
	fields, err := s.checkSharedUpdates(actor, req.Shared)
	if err != nil {
		return err
	}

	members, err := s.activeMembers(ctx, code)
	if err != nil {
		return err
	}
	byPosition := make(map[int]models.Record, len(members))
	for _, m := range members {
		byPosition[m.Position] = m
	}

	var writes []repository.CellWrite
	var appends [][]string
	first := members[0]
	shared := rowInput{
		EngineeringStatus: sharedValue(req.Shared, models.FieldEngineeringStatus, first.EngineeringStatus),
		RequisitionCode:   code,
		RequestDate:       sharedValue(req.Shared, models.FieldRequestDate, first.RequestDate),
		Project:           sharedValue(req.Shared, models.FieldProject, first.Project),
		NeededByDate:      sharedValue(req.Shared, models.FieldNeededByDate, first.NeededByDate),
		QuoteLink:         sharedValue(req.Shared, models.FieldQuoteLink, first.QuoteLink),
	}

	touched := map[int]bool{}
	for _, p := range req.Products {
		switch {
		case p.New:
			in := shared
			in.ItemCode = p.ItemCode
			in.Description = p.Description
			in.MaterialBrand = p.MaterialBrand
			in.Quantity = p.Quantity
			in.Note = p.Note
			appends = append(appends, s.newRow(actor, in))
		case p.Deleted:
			if _, ok := byPosition[p.Position]; !ok {
				return appErrors.Clone(appErrors.ErrValidation, "position does not belong to this batch")
			}
			writes = append(writes, repository.CellWrite{
				Position: p.Position,
				Column:   columnOf(models.FieldRemovalFlag),
				Value:    models.RemovalRemoved,
			})
			touched[p.Position] = true
		default:
			current, ok := byPosition[p.Position]
			if !ok {
				return appErrors.Clone(appErrors.ErrValidation, "position does not belong to this batch")
			}
			writes = append(writes, productWrites(current, p)...)
			touched[p.Position] = true
		}
	}

	// Shared updates reach surviving members even when the payload carries
	// no product entry for them.
	for _, m := range members {
		deleted := false
		for _, p := range req.Products {
			if p.Deleted && p.Position == m.Position {
				deleted = true
				break
			}
		}
		if deleted {
			continue
		}
		for _, f := range fields {
			writes = append(writes, repository.CellWrite{
				Position: m.Position,
				Column:   columnOf(f),
				Value:    req.Shared[f],
			})
		}
		touched[m.Position] = true
	}

	positions := make([]int, 0, len(touched))
	for pos := range touched {
		positions = append(positions, pos)
	}
	sort.Ints(positions)
	for _, pos := range positions {
		writes = append(writes, s.auditWrite(pos, actor))
	}

	if err := s.store.WriteCellsBatched(ctx, writes); err != nil {
		return err
	}
	if err := s.store.AppendRows(ctx, appends); err != nil {
		return appErrors.Wrap(err, appErrors.ErrPartialBatchWrite.Code, appErrors.ErrPartialBatchWrite.Status, appErrors.ErrPartialBatchWrite.Message)
	}
	s.snapshot.Invalidate(ctx)
	return nil
}

func (s *RequisitionService) buildView(g Group, today time.Time) dto.GroupView {
	first := g.Records[0]
	return dto.GroupView{
		Key:             g.Key,
		IsBatch:         g.IsBatch(),
		RequisitionCode: g.RequisitionCode(),
		Urgency:         ClassifyUrgency(first.NeededByDate, today),
		Seen:            first.SeenByPurchasing != "",
		Items:           g.Records,
	}
}

// activeMembers resolves current batch membership from a fresh load, never
// the snapshot.
func (s *RequisitionService) activeMembers(ctx context.Context, code string) ([]models.Record, error) {
	records, err := s.store.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	members := ActiveBatchMembers(records, code)
	if len(members) == 0 {
		return nil, appErrors.ErrBatchNotFound
	}
	return members, nil
}

// checkSharedUpdates validates a shared-field update map and returns the
// fields in deterministic column order.
func (s *RequisitionService) checkSharedUpdates(actor Actor, updates map[models.Field]string) ([]models.Field, error) {
	fields := make([]models.Field, 0, len(updates))
	for f := range updates {
		if !models.IsSharedField(f) {
			return nil, appErrors.Clone(appErrors.ErrValidation, string(f)+" is not shared across a batch")
		}
		if !IsFieldEditable(actor.Department, f) {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "department "+string(actor.Department)+" may not edit "+string(f))
		}
		fields = append(fields, f)
	}
	sort.Slice(fields, func(i, j int) bool {
		return columnOf(fields[i]) < columnOf(fields[j])
	})
	return fields, nil
}

func (s *RequisitionService) auditWrite(position int, actor Actor) repository.CellWrite {
	return repository.CellWrite{
		Position: position,
		Column:   columnOf(models.FieldLastModified),
		Value:    models.FormatAuditStamp(s.now(), actor.Email),
	}
}

// rowInput carries the caller-supplied cells of a new row; everything
// purchasing-owned stays blank.
type rowInput struct {
	EngineeringStatus string
	RequisitionCode   string
	RequestDate       string
	Project           string
	IsRegistered      string
	ItemCode          string
	Description       string
	MaterialBrand     string
	Quantity          string
	NeededByDate      string
	QuoteLink         string
	Note              string
}

// newRow lays a full 21-cell row out in column order, applying the defaults
// for a freshly submitted item.
func (s *RequisitionService) newRow(actor Actor, in rowInput) []string {
	engStatus := in.EngineeringStatus
	if engStatus == "" {
		engStatus = models.DefaultEngineeringStatus
	}
	requestDate := in.RequestDate
	if requestDate == "" {
		requestDate = s.now().Format("02/01/2006")
	}

	row := make([]string, models.ColumnCount)
	row[columnOf(models.FieldEngineeringStatus).Index()] = engStatus
	row[columnOf(models.FieldRequisitionCode).Index()] = in.RequisitionCode
	row[columnOf(models.FieldRequestDate).Index()] = requestDate
	row[columnOf(models.FieldProject).Index()] = in.Project
	row[columnOf(models.FieldIsRegistered).Index()] = in.IsRegistered
	row[columnOf(models.FieldItemCode).Index()] = in.ItemCode
	row[columnOf(models.FieldDescription).Index()] = in.Description
	row[columnOf(models.FieldMaterialBrand).Index()] = in.MaterialBrand
	row[columnOf(models.FieldQuantity).Index()] = in.Quantity
	row[columnOf(models.FieldNeededByDate).Index()] = in.NeededByDate
	row[columnOf(models.FieldQuoteLink).Index()] = in.QuoteLink
	row[columnOf(models.FieldRequesterEmail).Index()] = actor.Email
	row[columnOf(models.FieldNote).Index()] = in.Note
	row[columnOf(models.FieldLastModified).Index()] = models.FormatAuditStamp(s.now(), actor.Email)
	row[columnOf(models.FieldRemovalFlag).Index()] = models.RemovalActive
	return row
}

func productWrites(current models.Record, p dto.BatchProductUpdate) []repository.CellWrite {
	pairs := []struct {
		field models.Field
		value string
	}{
		{models.FieldItemCode, p.ItemCode},
		{models.FieldDescription, p.Description},
		{models.FieldMaterialBrand, p.MaterialBrand},
		{models.FieldQuantity, p.Quantity},
		{models.FieldNote, p.Note},
	}
	writes := make([]repository.CellWrite, 0, len(pairs))
	for _, pair := range pairs {
		if current.ValueOf(pair.field) == pair.value {
			continue
		}
		writes = append(writes, repository.CellWrite{
			Position: p.Position,
			Column:   columnOf(pair.field),
			Value:    pair.value,
		})
	}
	return writes
}

func sharedValue(updates map[models.Field]string, field models.Field, fallback string) string {
	if v, ok := updates[field]; ok {
		return v
	}
	return fallback
}

func matchesFilter(view dto.GroupView, filter dto.GroupFilter) bool {
	first := view.Items[0]
	if filter.PurchasingStatus != "" && first.PurchasingStatus != filter.PurchasingStatus {
		return false
	}
	if filter.EngineeringStatus != "" && first.EngineeringStatus != filter.EngineeringStatus {
		return false
	}
	if !MatchesUrgencyFilter(filter.UrgencyBand, view.Urgency) {
		return false
	}
	if filter.Search != "" && !groupMatchesSearch(view, filter.Search) {
		return false
	}
	return true
}

func groupMatchesSearch(view dto.GroupView, term string) bool {
	needle := strings.ToLower(term)
	if strings.Contains(strings.ToLower(view.RequisitionCode), needle) {
		return true
	}
	for _, item := range view.Items {
		haystacks := []string{item.Description, item.ItemCode, item.Project, item.RequesterEmail}
		for _, h := range haystacks {
			if strings.Contains(strings.ToLower(h), needle) {
				return true
			}
		}
	}
	return false
}

// columnOf is ColumnFor for fields known at compile time.
func columnOf(field models.Field) models.Column {
	col, _ := models.ColumnFor(field)
	return col
}
