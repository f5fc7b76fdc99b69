// Package conditionstore implements the change-detecting, deduplicated
// append-only write path for condition transitions.
package conditionstore

import (
	"time"

	"github.com/ptindo/fleet-worker/models"
)

const dedupWindow = 5 * time.Second

// Persistence is the narrow slice of the persistence port this store needs.
type Persistence interface {
	FindLatestCondition(machineID int64) (*models.ConditionRecord, error)
	InsertConditionRecord(rec models.ConditionRecord) error
	InsertLogHistoryRecord(rec models.LogHistoryRecord) error
}

// Store records condition transitions with change detection and a 5-second
// dedup guard against races between the polling loop and the snapshot cron.
type Store struct {
	persistence Persistence
}

// New creates a Store backed by persistence.
func New(persistence Persistence) *Store {
	return &Store{persistence: persistence}
}

// Record implements the record operation: insert a new condition row only
// when the condition changed or a snapshot is forced, subject to a 5-second
// dedup guard, and mirror the prior record onto the new row's last* fields.
// reading may be nil when the caller has no associated log-history snapshot
// for this moment; log history insertion is then skipped regardless of
// skipLogHistory.
func (s *Store) Record(machineID int64, cond models.Condition, kwh string, timestamp time.Time, reading *models.LogHistoryRecord, forceSnapshot, skipLogHistory bool) error {
	existing, err := s.persistence.FindLatestCondition(machineID)
	if err != nil {
		return err
	}

	changed := existing == nil || existing.CurrentCondition != cond
	if !changed && !forceSnapshot {
		return nil
	}

	if existing != nil && existing.CurrentCondition == cond && timestamp.Sub(existing.CurrentTimestamp) < dedupWindow {
		return nil
	}

	rec := models.ConditionRecord{
		MachineID:        machineID,
		CurrentTimestamp: timestamp,
		CurrentCondition: cond,
		CurrentKwh:       kwh,
	}
	if existing != nil {
		lastTs := existing.CurrentTimestamp
		lastCond := existing.CurrentCondition
		lastKwh := existing.CurrentKwh
		rec.LastTimestamp = &lastTs
		rec.LastCondition = &lastCond
		rec.LastKwh = &lastKwh
	}

	if err := s.persistence.InsertConditionRecord(rec); err != nil {
		return err
	}

	if changed && reading != nil && !skipLogHistory {
		if err := s.persistence.InsertLogHistoryRecord(*reading); err != nil {
			return err
		}
	}

	return nil
}
