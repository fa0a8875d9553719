package models

import (
	"fmt"
	"strings"
	"time"
)

// Column is a physical column letter (A–U) in the requisitions sheet.
type Column string

// Field is a logical field name mapped onto a fixed column slot.
type Field string

// Sheet geometry. Rows 1–2 carry titles, data starts at row 3.
const (
	HeaderOffset = 3
	ColumnCount  = 21
)

// Logical fields in column order A–U.
const (
	FieldSubmissionDate    Field = "submissionDate"    // A: set by purchasing
	FieldPurchasingStatus  Field = "purchasingStatus"  // B
	FieldPurchaseOrderRef  Field = "purchaseOrderRef"  // C
	FieldExpectedArrival   Field = "expectedArrival"   // D
	FieldEngineeringStatus Field = "engineeringStatus" // E
	FieldRequisitionCode   Field = "requisitionCode"   // F: batch grouping key
	FieldRequestDate       Field = "requestDate"       // G
	FieldProject           Field = "project"           // H
	FieldIsRegistered      Field = "isRegistered"      // I
	FieldItemCode          Field = "itemCode"          // J
	FieldDescription       Field = "description"       // K
	FieldMaterialBrand     Field = "materialBrand"     // L
	FieldQuantity          Field = "quantity"          // M
	FieldNeededByDate      Field = "neededByDate"      // N
	FieldQuoteLink         Field = "quoteLink"         // O
	FieldRequesterEmail    Field = "requesterEmail"    // P
	FieldNote              Field = "note"              // Q
	FieldItemStatus        Field = "itemStatus"        // R: per-item status inside a batch
	FieldSeenByPurchasing  Field = "seenByPurchasing"  // S: seen audit stamp
	FieldLastModified      Field = "lastModified"      // T: last-write audit stamp
	FieldRemovalFlag       Field = "removalFlag"       // U: ATIVO | REMOVIDO
)

// Removal flag values stored in column U. An empty cell counts as active.
const (
	RemovalActive  = "ATIVO"
	RemovalRemoved = "REMOVIDO"
)

// Status vocabularies used by the two dashboards.
var (
	PurchasingStatusOptions  = []string{"COMPRAR", "ORÇAMENTO", "COMPRADO", "-"}
	EngineeringStatusOptions = []string{"URGENTÍSSIMO", "COMPRAR URGENTE", "COMPRAR NORMAL", "RECEBIDO", "-"}
)

// DefaultEngineeringStatus is applied to new records created without one.
const DefaultEngineeringStatus = "COMPRAR NORMAL"

// fieldColumns fixes the field → column slot assignment.
var fieldColumns = map[Field]Column{
	FieldSubmissionDate:    "A",
	FieldPurchasingStatus:  "B",
	FieldPurchaseOrderRef:  "C",
	FieldExpectedArrival:   "D",
	FieldEngineeringStatus: "E",
	FieldRequisitionCode:   "F",
	FieldRequestDate:       "G",
	FieldProject:           "H",
	FieldIsRegistered:      "I",
	FieldItemCode:          "J",
	FieldDescription:       "K",
	FieldMaterialBrand:     "L",
	FieldQuantity:          "M",
	FieldNeededByDate:      "N",
	FieldQuoteLink:         "O",
	FieldRequesterEmail:    "P",
	FieldNote:              "Q",
	FieldItemStatus:        "R",
	FieldSeenByPurchasing:  "S",
	FieldLastModified:      "T",
	FieldRemovalFlag:       "U",
}

// SharedFields are identical across every active member of a batch; a
// shared-field write fans the same value out to all member rows.
var SharedFields = []Field{
	FieldEngineeringStatus,
	FieldRequestDate,
	FieldProject,
	FieldNeededByDate,
	FieldQuoteLink,
	FieldRequesterEmail,
}

// ColumnFor resolves the column slot for a logical field.
func ColumnFor(field Field) (Column, bool) {
	col, ok := fieldColumns[field]
	return col, ok
}

// IsSharedField reports whether the field must stay identical across a batch.
func IsSharedField(field Field) bool {
	for _, f := range SharedFields {
		if f == field {
			return true
		}
	}
	return false
}

// Index returns the zero-based offset of the column within a row.
func (c Column) Index() int {
	if len(c) != 1 || c[0] < 'A' || c[0] > 'U' {
		return -1
	}
	return int(c[0] - 'A')
}

// Record is one requisition line item, one row in the backing grid. The
// 1-based row position doubles as the record's only identity and is not
// stable under arbitrary row insertion.
type Record struct {
	Position int `json:"position"`

	SubmissionDate    string `json:"submissionDate"`
	PurchasingStatus  string `json:"purchasingStatus"`
	PurchaseOrderRef  string `json:"purchaseOrderRef"`
	ExpectedArrival   string `json:"expectedArrival"`
	EngineeringStatus string `json:"engineeringStatus"`
	RequisitionCode   string `json:"requisitionCode"`
	RequestDate       string `json:"requestDate"`
	Project           string `json:"project"`
	IsRegistered      string `json:"isRegistered"`
	ItemCode          string `json:"itemCode"`
	Description       string `json:"description"`
	MaterialBrand     string `json:"materialBrand"`
	Quantity          string `json:"quantity"`
	NeededByDate      string `json:"neededByDate"`
	QuoteLink         string `json:"quoteLink"`
	RequesterEmail    string `json:"requesterEmail"`
	Note              string `json:"note"`
	ItemStatus        string `json:"itemStatus"`
	SeenByPurchasing  string `json:"seenByPurchasing"`
	LastModified      string `json:"lastModified"`
	RemovalFlag       string `json:"removalFlag"`
}

// IsActive reports whether the record has not been soft-deleted.
func (r Record) IsActive() bool {
	return r.RemovalFlag != RemovalRemoved
}

// ValueOf returns the cell value for a logical field.
func (r Record) ValueOf(field Field) string {
	switch field {
	case FieldSubmissionDate:
		return r.SubmissionDate
	case FieldPurchasingStatus:
		return r.PurchasingStatus
	case FieldPurchaseOrderRef:
		return r.PurchaseOrderRef
	case FieldExpectedArrival:
		return r.ExpectedArrival
	case FieldEngineeringStatus:
		return r.EngineeringStatus
	case FieldRequisitionCode:
		return r.RequisitionCode
	case FieldRequestDate:
		return r.RequestDate
	case FieldProject:
		return r.Project
	case FieldIsRegistered:
		return r.IsRegistered
	case FieldItemCode:
		return r.ItemCode
	case FieldDescription:
		return r.Description
	case FieldMaterialBrand:
		return r.MaterialBrand
	case FieldQuantity:
		return r.Quantity
	case FieldNeededByDate:
		return r.NeededByDate
	case FieldQuoteLink:
		return r.QuoteLink
	case FieldRequesterEmail:
		return r.RequesterEmail
	case FieldNote:
		return r.Note
	case FieldItemStatus:
		return r.ItemStatus
	case FieldSeenByPurchasing:
		return r.SeenByPurchasing
	case FieldLastModified:
		return r.LastModified
	case FieldRemovalFlag:
		return r.RemovalFlag
	default:
		return ""
	}
}

// AuditStamp records who touched a row and when. It is display metadata
// only, never input to conflict resolution.
type AuditStamp struct {
	Timestamp time.Time `json:"timestamp"`
	Email     string    `json:"email"`
}

// FormatAuditStamp renders the wire form stored in columns S and T.
func FormatAuditStamp(ts time.Time, email string) string {
	return ts.UTC().Format(time.RFC3339) + "|" + email
}

// ParseAuditStamp decodes a stored stamp. Cells written by earlier revisions
// may hold bare timestamps; those parse with an empty email.
func ParseAuditStamp(raw string) (AuditStamp, error) {
	if raw == "" {
		return AuditStamp{}, fmt.Errorf("empty audit stamp")
	}
	value, email, _ := strings.Cut(raw, "|")
	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return AuditStamp{}, fmt.Errorf("parse audit stamp %q: %w", raw, err)
	}
	return AuditStamp{Timestamp: ts, Email: email}, nil
}
