package service

import (
	"github.com/aec-internal/requisitions-api/internal/models"
)

// Column ownership per department. Purchasing owns its status, order ref
// and arrival forecast; engineering owns the request side plus the
// per-item status and removal flag. The audit columns S and T are stamped
// by the mutation façade and are never directly writable.
var (
	purchasingEditable = []models.Field{
		models.FieldPurchasingStatus,
		models.FieldPurchaseOrderRef,
		models.FieldExpectedArrival,
	}

	engineeringEditable = []models.Field{
		models.FieldEngineeringStatus,
		models.FieldRequisitionCode,
		models.FieldRequestDate,
		models.FieldProject,
		models.FieldIsRegistered,
		models.FieldItemCode,
		models.FieldDescription,
		models.FieldMaterialBrand,
		models.FieldQuantity,
		models.FieldNeededByDate,
		models.FieldQuoteLink,
		models.FieldRequesterEmail,
		models.FieldNote,
		models.FieldItemStatus,
		models.FieldRemovalFlag,
	}
)

// EditableFieldsFor returns the fields a department may write. Every field
// is readable by every department; ADM administers users, not cells.
func EditableFieldsFor(dept models.Department) []models.Field {
	switch dept {
	case models.DeptPurchasing:
		return purchasingEditable
	case models.DeptEngineering:
		return engineeringEditable
	default:
		return nil
	}
}

// EditableColumnsFor resolves the department's writable column slots.
func EditableColumnsFor(dept models.Department) []models.Column {
	fields := EditableFieldsFor(dept)
	cols := make([]models.Column, 0, len(fields))
	for _, f := range fields {
		if col, ok := models.ColumnFor(f); ok {
			cols = append(cols, col)
		}
	}
	return cols
}

// IsFieldEditable reports whether the department may write the field.
func IsFieldEditable(dept models.Department, field models.Field) bool {
	for _, f := range EditableFieldsFor(dept) {
		if f == field {
			return true
		}
	}
	return false
}

// StatusOptionsFor returns the status vocabulary a department applies.
func StatusOptionsFor(dept models.Department) []string {
	switch dept {
	case models.DeptPurchasing:
		return models.PurchasingStatusOptions
	case models.DeptEngineering:
		return models.EngineeringStatusOptions
	default:
		return nil
	}
}

// StatusFieldFor returns the status column the department's dashboard edits.
func StatusFieldFor(dept models.Department) models.Field {
	if dept == models.DeptPurchasing {
		return models.FieldPurchasingStatus
	}
	return models.FieldEngineeringStatus
}
