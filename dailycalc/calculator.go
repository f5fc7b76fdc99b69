// Package dailycalc implements the daily roll-up: duration attribution
// across a day's condition transitions, segment-based energy accounting,
// and the shared power-meter block split.
package dailycalc

import (
	"strconv"
	"time"

	"github.com/ptindo/fleet-worker/models"
)

// Source is the slice of the persistence port the calculator needs.
type Source interface {
	FindConditionsInRange(machineID int64, from, to time.Time) ([]models.ConditionRecord, error)
	UpsertDailySummary(summary models.DailySummary) error
}

// Calculator computes and persists one day's summary per machine.
type Calculator struct {
	source Source
}

// New creates a Calculator backed by source.
func New(source Source) *Calculator {
	return &Calculator{source: source}
}

// RunForDay processes the calendar day of localDay, taken in loc, for every
// machine in machines, using the other machines in the slice to evaluate
// the shared power-meter block split. The daily cron passes the previous
// day.
func (c *Calculator) RunForDay(machines []models.Machine, localDay time.Time, loc *time.Location) error {
	start := time.Date(localDay.Year(), localDay.Month(), localDay.Day(), 0, 0, 0, 0, loc)
	end := start.Add(24 * time.Hour).Add(-time.Millisecond)
	midnightUTC := time.Date(localDay.Year(), localDay.Month(), localDay.Day(), 0, 0, 0, 0, time.UTC)

	perMachine := make(map[int64]dayResult, len(machines))
	for _, m := range machines {
		records, err := c.source.FindConditionsInRange(m.ID, start, end)
		if err != nil {
			return err
		}
		perMachine[m.ID] = computeDay(records)
	}

	for _, m := range machines {
		result := perMachine[m.ID]
		summary := models.DailySummary{
			MachineID:       m.ID,
			Date:            midnightUTC,
			TotalHours:      result.totalHours(),
			TotalKwh:        result.totalKwh(),
			HeatingUpHours:  result.heatingUpHours,
			HeatingUpKwh:    result.heatingUpKwh,
			IddleHours:      result.iddleHours,
			IddleKwh:        result.iddleKwh,
			ProductionHours: result.productionHours,
			ProductionKwh:   result.productionKwh,
			IsOneBlock:      true,
		}

		if m.PowerMeterID != 0 && result.productionHours > 0 {
			sharing := false
			for _, other := range machines {
				if other.ID == m.ID || other.PowerMeterID != m.PowerMeterID {
					continue
				}
				if perMachine[other.ID].hasProductionRecord {
					sharing = true
					break
				}
			}
			if sharing {
				summary.IsOneBlock = false
				summary.TotalKwh /= 2
				summary.HeatingUpKwh /= 2
				summary.IddleKwh /= 2
				summary.ProductionKwh /= 2
			}
		}

		if err := c.source.UpsertDailySummary(summary); err != nil {
			return err
		}
	}

	return nil
}

type dayResult struct {
	heatingUpHours, heatingUpKwh   float64
	iddleHours, iddleKwh           float64
	productionHours, productionKwh float64
	hasProductionRecord            bool
}

func (r dayResult) totalHours() float64 {
	return r.heatingUpHours + r.iddleHours + r.productionHours
}

func (r dayResult) totalKwh() float64 {
	return r.heatingUpKwh + r.iddleKwh + r.productionKwh
}

// computeDay attributes duration per record to its condition, then sums
// energy over continuous same-condition segments.
func computeDay(records []models.ConditionRecord) dayResult {
	var result dayResult
	if len(records) == 0 {
		return result
	}

	for _, r := range records {
		if r.CurrentCondition == models.ConditionMachineProduction {
			result.hasProductionRecord = true
			break
		}
	}

	for i := 0; i < len(records)-1; i++ {
		current := records[i]
		next := records[i+1]

		var start time.Time
		if i == 0 && current.LastTimestamp != nil {
			start = *current.LastTimestamp
		} else {
			start = current.CurrentTimestamp
		}
		duration := next.CurrentTimestamp.Sub(start)
		if duration < 0 {
			continue
		}

		switch current.CurrentCondition {
		case models.ConditionHeatingUp:
			result.heatingUpHours += duration.Hours()
		case models.ConditionIddle:
			result.iddleHours += duration.Hours()
		case models.ConditionMachineProduction:
			result.productionHours += duration.Hours()
		}
	}

	for _, target := range []models.Condition{models.ConditionHeatingUp, models.ConditionIddle, models.ConditionMachineProduction} {
		kwh := segmentEnergy(records, target)
		switch target {
		case models.ConditionHeatingUp:
			result.heatingUpKwh = kwh
		case models.ConditionIddle:
			result.iddleKwh = kwh
		case models.ConditionMachineProduction:
			result.productionKwh = kwh
		}
	}

	return result
}

// segmentEnergy sums energy over every continuous run of target in
// records. A run spans [i, j]; its energy is the kwh accumulated from just
// before the run started to just after it ended: the record immediately
// following the run (the first post-run snapshot) minus the run-start
// record's lastKwh. When the run extends to the end of the day's records,
// there is no following snapshot, so the run's own last record stands in
// as the closing boundary.
func segmentEnergy(records []models.ConditionRecord, target models.Condition) float64 {
	total := 0.0
	i := 0
	for i < len(records) {
		if records[i].CurrentCondition != target {
			i++
			continue
		}
		segStart := i
		j := i
		for j+1 < len(records) && records[j+1].CurrentCondition == target {
			j++
		}

		boundary := records[j]
		if j+1 < len(records) {
			boundary = records[j+1]
		}

		startKwh := parseKwh(records[segStart].LastKwh)
		endKwh := parseKwh(&boundary.CurrentKwh)
		total += endKwh - startKwh
		i = j + 1
	}
	return total
}

func parseKwh(s *string) float64 {
	if s == nil {
		return 0
	}
	v, err := strconv.ParseFloat(*s, 64)
	if err != nil {
		return 0
	}
	return v
}
