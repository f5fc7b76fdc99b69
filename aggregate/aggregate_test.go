package aggregate

import (
	"testing"
	"time"

	"github.com/ptindo/fleet-worker/models"
)

func TestMachinesMergesValuesAcrossSensors(t *testing.T) {
	t0 := time.Now()
	readings := []models.SensorReading{
		{MachineID: 1, MachineName: "M1", Role: models.RolePowerMeter, Timestamp: t0, Success: true, Values: map[string]float64{"kwh": 10}},
		{MachineID: 1, MachineName: "M1", Role: models.RoleTemperature, Timestamp: t0.Add(time.Second), Success: true, Values: map[string]float64{"temperature": 310}},
		{MachineID: 1, MachineName: "M1", Role: models.RoleOnContact, Timestamp: t0.Add(2 * time.Second), Success: true, Values: map[string]float64{"on_contact": 1}},
	}

	out := Machines(readings)
	if len(out) != 1 {
		t.Fatalf("expected 1 machine, got %d", len(out))
	}
	m := out[0]
	if m.Kwh == nil || *m.Kwh != 10 {
		t.Errorf("expected kwh 10, got %v", m.Kwh)
	}
	if m.Temperature == nil || *m.Temperature != 310 {
		t.Errorf("expected temperature 310, got %v", m.Temperature)
	}
	if !m.Timestamp.Equal(t0) {
		t.Errorf("expected timestamp to be the first successful reading's timestamp")
	}
}

func TestMachinesSkipsFailedReadings(t *testing.T) {
	readings := []models.SensorReading{
		{MachineID: 1, Success: false, Values: map[string]float64{"kwh": 999}},
	}
	out := Machines(readings)
	if len(out) != 0 {
		t.Fatalf("expected no machines from all-failed readings, got %d", len(out))
	}
}

func TestMachinesHonorsCapstandSpeedTypo(t *testing.T) {
	readings := []models.SensorReading{
		{MachineID: 1, Success: true, Timestamp: time.Now(), Values: map[string]float64{"capstand_speed": 1}},
	}
	out := Machines(readings)
	if len(out) != 1 || out[0].CapstanSpeed == nil || *out[0].CapstanSpeed != 1 {
		t.Fatalf("expected the capstand_speed typo to populate CapstanSpeed")
	}
}

func TestMachinesLastWriterWinsOnCollision(t *testing.T) {
	t0 := time.Now()
	readings := []models.SensorReading{
		{MachineID: 1, Success: true, Timestamp: t0, Values: map[string]float64{"kwh": 1}},
		{MachineID: 1, Success: true, Timestamp: t0.Add(time.Second), Values: map[string]float64{"kwh": 2}},
	}
	out := Machines(readings)
	if *out[0].Kwh != 2 {
		t.Fatalf("expected last writer to win, got %v", *out[0].Kwh)
	}
}
