package audit

import "encoding/json"

// Snapshot is the auditable view of a record: field label -> rendered value.
// Callers build one before and one after a mutation and let Diff compute
// what changed instead of comparing fields by hand at every call site.
type Snapshot map[string]string

// Diff returns the field changes between two snapshots, in the order given
// by fields. Fields absent from both snapshots are skipped.
func Diff(old, new Snapshot, fields []string) []FieldChange {
	var changes []FieldChange
	for _, field := range fields {
		oldVal, hadOld := old[field]
		newVal, hasNew := new[field]
		if !hadOld && !hasNew {
			continue
		}
		if oldVal == newVal {
			continue
		}
		changes = append(changes, FieldChange{Field: field, Old: oldVal, New: newVal})
	}
	return changes
}

// DetailMap renders changes as {"Campo": {"old": ..., "new": ...}} for the
// log entry detail column.
func DetailMap(changes []FieldChange) map[string]any {
	if len(changes) == 0 {
		return nil
	}
	detail := make(map[string]any, len(changes))
	for _, c := range changes {
		detail[c.Field] = map[string]string{"old": c.Old, "new": c.New}
	}
	return detail
}

// DetailJSON is DetailMap serialized, empty when nothing changed.
func DetailJSON(changes []FieldChange) string {
	detail := DetailMap(changes)
	if detail == nil {
		return ""
	}
	data, err := json.Marshal(detail)
	if err != nil {
		return ""
	}
	return string(data)
}
