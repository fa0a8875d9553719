package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aec-internal/requisitions-api/internal/models"
)

func TestPurchasingEditsOnlyItsColumns(t *testing.T) {
	assert.True(t, IsFieldEditable(models.DeptPurchasing, models.FieldPurchasingStatus))
	assert.True(t, IsFieldEditable(models.DeptPurchasing, models.FieldPurchaseOrderRef))
	assert.True(t, IsFieldEditable(models.DeptPurchasing, models.FieldExpectedArrival))

	assert.False(t, IsFieldEditable(models.DeptPurchasing, models.FieldDescription))
	assert.False(t, IsFieldEditable(models.DeptPurchasing, models.FieldRequisitionCode))
	assert.False(t, IsFieldEditable(models.DeptPurchasing, models.FieldRemovalFlag))

	assert.Equal(t, []models.Column{"B", "C", "D"}, EditableColumnsFor(models.DeptPurchasing))
}

func TestEngineeringEditsRequestSide(t *testing.T) {
	assert.True(t, IsFieldEditable(models.DeptEngineering, models.FieldDescription))
	assert.True(t, IsFieldEditable(models.DeptEngineering, models.FieldRequisitionCode))
	assert.True(t, IsFieldEditable(models.DeptEngineering, models.FieldItemStatus))
	assert.True(t, IsFieldEditable(models.DeptEngineering, models.FieldRemovalFlag))

	assert.False(t, IsFieldEditable(models.DeptEngineering, models.FieldPurchasingStatus))
	assert.False(t, IsFieldEditable(models.DeptEngineering, models.FieldExpectedArrival))
}

func TestAuditColumnsNeverDirectlyWritable(t *testing.T) {
	for _, dept := range []models.Department{models.DeptAdmin, models.DeptPurchasing, models.DeptEngineering} {
		assert.False(t, IsFieldEditable(dept, models.FieldSeenByPurchasing), "dept %s", dept)
		assert.False(t, IsFieldEditable(dept, models.FieldLastModified), "dept %s", dept)
	}
}

func TestAdminEditsNothing(t *testing.T) {
	assert.Empty(t, EditableFieldsFor(models.DeptAdmin))
	assert.Empty(t, EditableColumnsFor(models.DeptAdmin))
}

func TestStatusOptionsPerDepartment(t *testing.T) {
	assert.Equal(t, models.PurchasingStatusOptions, StatusOptionsFor(models.DeptPurchasing))
	assert.Equal(t, models.EngineeringStatusOptions, StatusOptionsFor(models.DeptEngineering))
	assert.Nil(t, StatusOptionsFor(models.DeptAdmin))

	assert.Equal(t, models.FieldPurchasingStatus, StatusFieldFor(models.DeptPurchasing))
	assert.Equal(t, models.FieldEngineeringStatus, StatusFieldFor(models.DeptEngineering))
}
