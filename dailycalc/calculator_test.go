package dailycalc

import (
	"strconv"
	"testing"
	"time"

	"github.com/ptindo/fleet-worker/models"
)

type fakeSource struct {
	conditions map[int64][]models.ConditionRecord
	upserted   []models.DailySummary
}

func newFakeSource() *fakeSource {
	return &fakeSource{conditions: make(map[int64][]models.ConditionRecord)}
}

func (f *fakeSource) FindConditionsInRange(machineID int64, from, to time.Time) ([]models.ConditionRecord, error) {
	return f.conditions[machineID], nil
}

func (f *fakeSource) UpsertDailySummary(summary models.DailySummary) error {
	f.upserted = append(f.upserted, summary)
	return nil
}

func kwh(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func cond(ts time.Time, condition models.Condition, currentKwh string, lastTs *time.Time, lastCond *models.Condition, lastKwh *string) models.ConditionRecord {
	return models.ConditionRecord{
		CurrentTimestamp: ts,
		CurrentCondition: condition,
		CurrentKwh:       currentKwh,
		LastTimestamp:    lastTs,
		LastCondition:    lastCond,
		LastKwh:          lastKwh,
	}
}

// TestRunForDaySeedScenario reproduces the worked daily roll-up example:
// conditions at 10:00 Production kwh=100 (last=98), 12:00 Iddle kwh=110
// (last=110), 14:00 Production kwh=115 (last=115), 16:00 Production
// kwh=125 (last=115, the 14:00 kwh mirrored by a forced snapshot). The
// records are supplied directly as persisted rows, with only the fields the
// calculator reads set.
func TestRunForDaySeedScenario(t *testing.T) {
	day := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	loc := time.UTC

	t10 := time.Date(2026, 1, 15, 10, 0, 0, 0, loc)
	t12 := time.Date(2026, 1, 15, 12, 0, 0, 0, loc)
	t14 := time.Date(2026, 1, 15, 14, 0, 0, 0, loc)
	t16 := time.Date(2026, 1, 15, 16, 0, 0, 0, loc)

	last98 := kwh(98)
	last110 := kwh(110)
	last115 := kwh(115)

	records := []models.ConditionRecord{
		cond(t10, models.ConditionMachineProduction, kwh(100), nil, nil, &last98),
		cond(t12, models.ConditionIddle, kwh(110), nil, nil, &last110),
		cond(t14, models.ConditionMachineProduction, kwh(115), nil, nil, &last115),
		cond(t16, models.ConditionMachineProduction, kwh(125), nil, nil, &last115),
	}

	src := newFakeSource()
	src.conditions[1] = records

	machines := []models.Machine{{ID: 1, Name: "M1"}}
	c := New(src)
	if err := c.RunForDay(machines, day, loc); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(src.upserted) != 1 {
		t.Fatalf("expected one upsert, got %d", len(src.upserted))
	}
	summary := src.upserted[0]

	if summary.ProductionHours != 4 {
		t.Errorf("expected productionHours=4, got %v", summary.ProductionHours)
	}
	if summary.IddleHours != 2 {
		t.Errorf("expected iddleHours=2, got %v", summary.IddleHours)
	}
	if summary.TotalHours != 6 {
		t.Errorf("expected totalHours=6, got %v", summary.TotalHours)
	}
	if summary.ProductionKwh != 22 {
		t.Errorf("expected productionKwh=22, got %v", summary.ProductionKwh)
	}
	if summary.IddleKwh != 5 {
		t.Errorf("expected iddleKwh=5, got %v", summary.IddleKwh)
	}
	if summary.TotalKwh != 27 {
		t.Errorf("expected totalKwh=27, got %v", summary.TotalKwh)
	}
}

func TestRunForDayEmptyRecordsWritesZeros(t *testing.T) {
	src := newFakeSource()
	machines := []models.Machine{{ID: 1}}
	c := New(src)

	if err := c.RunForDay(machines, time.Now(), time.UTC); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(src.upserted) != 1 {
		t.Fatalf("expected a zero summary to be written")
	}
	if src.upserted[0].TotalHours != 0 || src.upserted[0].TotalKwh != 0 {
		t.Fatalf("expected zero totals for a machine with no condition records")
	}
}

func TestRunForDaySharedMeterSplitsKwhNotHours(t *testing.T) {
	day := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	loc := time.UTC
	t0 := time.Date(2026, 1, 15, 8, 0, 0, 0, loc)
	t1 := time.Date(2026, 1, 15, 10, 0, 0, 0, loc)

	lastA := kwh(0)
	recordsA := []models.ConditionRecord{
		cond(t0, models.ConditionMachineProduction, kwh(10), nil, nil, &lastA),
		cond(t1, models.ConditionMachineOFF, kwh(10), nil, nil, &lastA),
	}
	lastB := kwh(0)
	recordsB := []models.ConditionRecord{
		cond(t0, models.ConditionMachineProduction, kwh(20), nil, nil, &lastB),
		cond(t1, models.ConditionMachineOFF, kwh(20), nil, nil, &lastB),
	}

	src := newFakeSource()
	src.conditions[1] = recordsA
	src.conditions[2] = recordsB

	machines := []models.Machine{
		{ID: 1, PowerMeterID: 7},
		{ID: 2, PowerMeterID: 7},
	}
	c := New(src)
	if err := c.RunForDay(machines, day, loc); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, summary := range src.upserted {
		if summary.IsOneBlock {
			t.Fatalf("machine %d: expected isOneBlock=false when both machines share a meter and produced", summary.MachineID)
		}
		if summary.ProductionHours != 2 {
			t.Errorf("machine %d: expected hours unsplit (2h), got %v", summary.MachineID, summary.ProductionHours)
		}
	}

	var kwhByMachine = map[int64]float64{}
	for _, s := range src.upserted {
		kwhByMachine[s.MachineID] = s.ProductionKwh
	}
	if kwhByMachine[1] != 5 {
		t.Errorf("machine 1: expected split kwh 5 (10/2), got %v", kwhByMachine[1])
	}
	if kwhByMachine[2] != 10 {
		t.Errorf("machine 2: expected split kwh 10 (20/2), got %v", kwhByMachine[2])
	}
}
