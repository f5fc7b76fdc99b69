// Package store defines the persistence port the worker depends on, and a
// Postgres-backed implementation of it.
package store

import (
	"time"

	"github.com/ptindo/fleet-worker/models"
)

// Store is the full persistence port: the small set of operations the
// scheduler, dwell tracker, condition store, log history store, and daily
// calculator need. A concrete implementation backs every machine/sensor
// config read and every condition/log-history/daily-summary write.
type Store interface {
	ListEnabledMachines() ([]models.Machine, error)
	GetGeneralConfig() (models.GeneralConfig, error)

	InsertConditionRecord(rec models.ConditionRecord) error
	FindLatestCondition(machineID int64) (*models.ConditionRecord, error)
	FindConditionsInRange(machineID int64, from, to time.Time) ([]models.ConditionRecord, error)

	InsertLogHistoryRecord(rec models.LogHistoryRecord) error
	InsertLogHistoryBatch(records []models.LogHistoryRecord) error
	FindLogHistoryInRange(machineID int64, from, to time.Time) ([]models.LogHistoryRecord, error)

	UpsertDailySummary(summary models.DailySummary) error
	FindDailySummary(machineID int64, date time.Time) (*models.DailySummary, error)
}
