// Package dwell evaluates the temperature dwell predicate: whether a
// machine's temperature has stayed at or above the hot threshold
// continuously for at least one hour. It keeps a small process-local cache
// on top of a log-history-driven lookup, with read-through refresh.
package dwell

import (
	"sync"
	"time"

	"github.com/ptindo/fleet-worker/models"
)

const (
	hotThreshold = 300.0
	lookback     = 90 * time.Minute
	dwellWindow  = time.Hour
)

// Sample is one temperature observation, ascending by Timestamp.
type Sample struct {
	Timestamp   time.Time
	Temperature float64
}

// HistorySource supplies the raw data the tracker needs: the recent
// temperature trail for a machine, and the last persisted condition to
// apply the restart-resilience fallback.
type HistorySource interface {
	RecentTemperatures(machineID int64, since time.Time) ([]Sample, error)
	LastCondition(machineID int64) (models.Condition, bool, error)
}

type entry struct {
	heatingUpSince *time.Time
	lastFetch      time.Time
}

// Tracker evaluates dwell(machineId, currentTemperature) and caches the
// per-machine heatingUpSince it derives.
type Tracker struct {
	mu      sync.Mutex
	entries map[int64]*entry
	source  HistorySource
}

// New creates a tracker backed by source.
func New(source HistorySource) *Tracker {
	return &Tracker{entries: make(map[int64]*entry), source: source}
}

// Warm performs the same lookup Dwell would, to pre-populate the cache at
// worker start so the first cycle's classification isn't cold.
func (t *Tracker) Warm(machineID int64, now time.Time) error {
	_, err := t.refresh(machineID, now)
	return err
}

// Dwell returns true if temperature has been >= 300 continuously for at
// least one hour, as of now.
func (t *Tracker) Dwell(machineID int64, currentTemperature float64, now time.Time) (bool, error) {
	if currentTemperature < hotThreshold {
		t.mu.Lock()
		if e, ok := t.entries[machineID]; ok {
			e.heatingUpSince = nil
			e.lastFetch = now
		} else {
			t.entries[machineID] = &entry{lastFetch: now}
		}
		t.mu.Unlock()
		return false, nil
	}

	since, err := t.refresh(machineID, now)
	if err != nil {
		return false, err
	}
	if since == nil {
		return false, nil
	}
	return now.Sub(*since) >= dwellWindow, nil
}

// refresh recomputes heatingUpSince from the last 90 minutes of log history
// and applies the last-condition fallback when the window is empty of
// qualifying samples. It updates and returns the cached value.
func (t *Tracker) refresh(machineID int64, now time.Time) (*time.Time, error) {
	samples, err := t.source.RecentTemperatures(machineID, now.Add(-lookback))
	if err != nil {
		return nil, err
	}

	var since *time.Time
	sawQualifying := false
	for i := range samples {
		s := samples[i]
		if s.Temperature >= hotThreshold {
			sawQualifying = true
			if since == nil {
				ts := s.Timestamp
				since = &ts
			}
		} else {
			since = nil
		}
	}

	if since == nil && !sawQualifying {
		cond, ok, err := t.source.LastCondition(machineID)
		if err != nil {
			return nil, err
		}
		if ok && (cond == models.ConditionMachineProduction || cond == models.ConditionIddle) {
			// The window has no qualifying sample at all (or is empty); the
			// predicate was already satisfied before the data gap, so
			// backdate past the dwell window instead of starting a fresh hour.
			backdated := now.Add(-dwellWindow)
			since = &backdated
		}
	}

	t.mu.Lock()
	t.entries[machineID] = &entry{heatingUpSince: since, lastFetch: now}
	t.mu.Unlock()

	return since, nil
}
