package scheduler

import (
	"time"

	"github.com/ptindo/fleet-worker/dwell"
	"github.com/ptindo/fleet-worker/models"
	"github.com/ptindo/fleet-worker/store"
)

// storeHistorySource adapts the persistence port to dwell.HistorySource.
type storeHistorySource struct {
	db store.Store
}

// NewPostgresHistorySource exposes the default dwell.HistorySource so
// callers outside this package can wrap it (e.g. with a Redis cache)
// before passing it to New.
func NewPostgresHistorySource(db store.Store) dwell.HistorySource {
	return storeHistorySource{db: db}
}

func (s storeHistorySource) RecentTemperatures(machineID int64, since time.Time) ([]dwell.Sample, error) {
	records, err := s.db.FindLogHistoryInRange(machineID, since, time.Now())
	if err != nil {
		return nil, err
	}
	samples := make([]dwell.Sample, 0, len(records))
	for _, r := range records {
		if r.Temperature == nil {
			continue
		}
		v, err := parseDecimal(*r.Temperature)
		if err != nil {
			continue
		}
		samples = append(samples, dwell.Sample{Timestamp: r.Timestamp, Temperature: v})
	}
	return samples, nil
}

func (s storeHistorySource) LastCondition(machineID int64) (models.Condition, bool, error) {
	rec, err := s.db.FindLatestCondition(machineID)
	if err != nil {
		return "", false, err
	}
	if rec == nil {
		return "", false, nil
	}
	return rec.CurrentCondition, true, nil
}
