// Package loghistory implements the per-cycle raw-sensor snapshot store: it
// aggregates sensor readings per machine and bulk-inserts one history row
// per machine in a single write.
package loghistory

import (
	"math"
	"strconv"

	"github.com/ptindo/fleet-worker/aggregate"
	"github.com/ptindo/fleet-worker/models"
)

// Inserter is the narrow persistence surface a true batch write needs.
type Inserter interface {
	InsertLogHistoryBatch(records []models.LogHistoryRecord) error
}

// Store aggregates and bulk-persists log history snapshots.
type Store struct {
	inserter Inserter
}

// New creates a Store backed by inserter.
func New(inserter Inserter) *Store {
	return &Store{inserter: inserter}
}

// SaveBatch aggregates readings per machine and inserts one LogHistoryRecord
// per machine in a single bulk write. on_contact and alarm_contact are
// rounded to the nearest integer; temperature, kwh, and capstan_speed are
// stored as decimal strings; missing values are persisted as null.
func (s *Store) SaveBatch(readings []models.SensorReading) error {
	machines := aggregate.Machines(readings)
	if len(machines) == 0 {
		return nil
	}

	records := make([]models.LogHistoryRecord, 0, len(machines))
	for _, m := range machines {
		records = append(records, models.LogHistoryRecord{
			MachineID:    m.MachineID,
			Timestamp:    m.Timestamp,
			OnContact:    roundToInt(m.OnContact),
			AlarmContact: roundToInt(m.AlarmContact),
			Temperature:  toDecimalString(m.Temperature),
			Kwh:          toDecimalString(m.Kwh),
			CapstanSpeed: toDecimalString(m.CapstanSpeed),
		})
	}

	return s.inserter.InsertLogHistoryBatch(records)
}

func roundToInt(v *float64) *int64 {
	if v == nil {
		return nil
	}
	n := int64(math.Round(*v))
	return &n
}

func toDecimalString(v *float64) *string {
	if v == nil {
		return nil
	}
	s := strconv.FormatFloat(*v, 'f', -1, 64)
	return &s
}
