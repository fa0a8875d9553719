package service

import (
	"fmt"
	"strings"

	"github.com/aec-internal/requisitions-api/internal/models"
)

// singleKeyPrefix marks synthetic keys for standalone records so they can
// never collide with a real requisition code shown in group keys.
const singleKeyPrefix = "single-"

// Group is a derived, never persisted partition of the active records:
// either a batch (≥2 active members sharing a requisition code) or a
// standalone record under a synthetic key. Membership is recomputed on
// every load.
type Group struct {
	Key     string
	Records []models.Record
}

// IsBatch reports whether the group carries batch semantics. Only groups
// that kept a real requisition code after demotion qualify.
func (g Group) IsBatch() bool {
	return !strings.HasPrefix(g.Key, singleKeyPrefix) && len(g.Records) >= 2
}

// RequisitionCode returns the shared code for batches and the record's own
// code (possibly empty) for standalone groups.
func (g Group) RequisitionCode() string {
	if len(g.Records) == 0 {
		return ""
	}
	return g.Records[0].RequisitionCode
}

// GroupRecords partitions the active records into batches and standalone
// groups. Soft-deleted records never participate.
//
// Batch-ness depends on final cardinality, not on code presence, so the
// pass is two-phase: accumulate by requisition code first, then demote any
// size-1 group that was keyed by a real code into a singleton. The sole
// survivor of a once-larger batch therefore renders as a standalone item.
// Every active record lands in exactly one group; order follows first
// appearance by position.
func GroupRecords(records []models.Record) []Group {
	byKey := make(map[string][]models.Record)
	var order []string

	for _, rec := range records {
		if !rec.IsActive() {
			continue
		}

		key := rec.RequisitionCode
		if key == "" {
			key = singleKey(rec.Position)
		}
		if _, seen := byKey[key]; !seen {
			order = append(order, key)
		}
		byKey[key] = append(byKey[key], rec)
	}

	groups := make([]Group, 0, len(order))
	for _, key := range order {
		members := byKey[key]
		if !strings.HasPrefix(key, singleKeyPrefix) && len(members) == 1 {
			key = singleKey(members[0].Position)
		}
		groups = append(groups, Group{Key: key, Records: members})
	}
	return groups
}

// ActiveBatchMembers returns the active records sharing the given
// requisition code, ordered by position. An empty code never matches.
func ActiveBatchMembers(records []models.Record, code string) []models.Record {
	if code == "" {
		return nil
	}
	var members []models.Record
	for _, rec := range records {
		if rec.IsActive() && rec.RequisitionCode == code {
			members = append(members, rec)
		}
	}
	return members
}

func singleKey(position int) string {
	return fmt.Sprintf("%s%d", singleKeyPrefix, position)
}
