package dto

import (
	"github.com/aec-internal/requisitions-api/internal/models"
)

// BatchProductInput is one line item inside a batch submission. Description
// and quantity are the client-side required fields; the store itself
// enforces nothing.
type BatchProductInput struct {
	ItemCode      string `json:"itemCode"`
	Description   string `json:"description" validate:"required"`
	MaterialBrand string `json:"materialBrand"`
	Quantity      string `json:"quantity" validate:"required"`
	Note          string `json:"note"`
}

// BatchSharedInput carries the fields every member of a batch shares.
type BatchSharedInput struct {
	EngineeringStatus string `json:"engineeringStatus"`
	RequestDate       string `json:"requestDate"`
	Project           string `json:"project"`
	NeededByDate      string `json:"neededByDate"`
	QuoteLink         string `json:"quoteLink"`
}

// CreateBatchRequest appends one row per product, all sharing the
// requisition code. Uniqueness of the code is the caller's responsibility.
type CreateBatchRequest struct {
	RequisitionCode string              `json:"requisitionCode" validate:"required"`
	Shared          BatchSharedInput    `json:"shared"`
	Products        []BatchProductInput `json:"products" validate:"required,min=1,dive"`
}

// CreateIndividualRequest appends one standalone row.
type CreateIndividualRequest struct {
	EngineeringStatus string `json:"engineeringStatus"`
	RequisitionCode   string `json:"requisitionCode"`
	RequestDate       string `json:"requestDate"`
	Project           string `json:"project"`
	IsRegistered      string `json:"isRegistered"`
	ItemCode          string `json:"itemCode"`
	Description       string `json:"description" validate:"required"`
	MaterialBrand     string `json:"materialBrand"`
	Quantity          string `json:"quantity" validate:"required"`
	NeededByDate      string `json:"neededByDate"`
	QuoteLink         string `json:"quoteLink"`
	Note              string `json:"note"`
}

// UpdateFieldRequest overwrites a single cell of a record, subject to the
// caller's department authorization.
type UpdateFieldRequest struct {
	Field models.Field `json:"field" validate:"required"`
	Value string       `json:"value"`
}

// UpdateSharedFieldsRequest fans values out to every active member of a
// batch in one batched write.
type UpdateSharedFieldsRequest struct {
	Updates map[models.Field]string `json:"updates" validate:"required,min=1"`
}

// BatchProductUpdate describes the fate of one batch member during a full
// batch edit: updated in place, soft-deleted, or newly appended.
type BatchProductUpdate struct {
	Position      int    `json:"position"`
	ItemCode      string `json:"itemCode"`
	Description   string `json:"description"`
	MaterialBrand string `json:"materialBrand"`
	Quantity      string `json:"quantity"`
	Note          string `json:"note"`
	New           bool   `json:"new"`
	Deleted       bool   `json:"deleted"`
}

// ReplaceBatchRequest is the composite batch-edit payload: shared-field
// updates plus per-product updates, deletions and additions.
type ReplaceBatchRequest struct {
	Shared   map[models.Field]string `json:"shared"`
	Products []BatchProductUpdate    `json:"products"`
}

// Urgency classifies a group by days remaining until the needed-by date.
type Urgency struct {
	Band          string `json:"band"`
	DaysRemaining int    `json:"daysRemaining"`
	Scheduled     bool   `json:"scheduled"`
}

// GroupView is one dashboard card: either a batch or a standalone item.
type GroupView struct {
	Key             string          `json:"key"`
	IsBatch         bool            `json:"isBatch"`
	RequisitionCode string          `json:"requisitionCode,omitempty"`
	Urgency         Urgency         `json:"urgency"`
	Seen            bool            `json:"seen"`
	Items           []models.Record `json:"items"`
}

// GroupFilter narrows the group listing. Predicates evaluate against the
// first member of each group, by position.
type GroupFilter struct {
	PurchasingStatus  string
	EngineeringStatus string
	UrgencyBand       string
	Search            string
}

// DashboardStats mirrors the stat counters across the top of the dashboards.
type DashboardStats struct {
	TotalGroups    int            `json:"totalGroups"`
	TotalItems     int            `json:"totalItems"`
	Batches        int            `json:"batches"`
	Overdue        int            `json:"overdue"`
	UnseenBatches  int            `json:"unseenBatches"`
	ByPurchasing   map[string]int `json:"byPurchasingStatus"`
	ByEngineering  map[string]int `json:"byEngineeringStatus"`
	GeneratedAtUTC string         `json:"generatedAt"`
}

// StatusOptionsResponse lists the status vocabulary a department may apply.
type StatusOptionsResponse struct {
	Department models.Department `json:"department"`
	Options    []string          `json:"options"`
}
