package condition

import (
	"testing"

	"github.com/ptindo/fleet-worker/models"
)

func ptr(v float64) *float64 { return &v }

func TestClassifyMachineOFFTrivially(t *testing.T) {
	reading := models.MachineReading{
		OnContact:    ptr(0),
		Temperature:  ptr(450),
		AlarmContact: ptr(1),
		CapstanSpeed: ptr(1),
	}
	if got := Classify(reading, true); got != models.ConditionMachineOFF {
		t.Errorf("got %s want MachineOFF", got)
	}
	if got := Classify(reading, false); got != models.ConditionMachineOFF {
		t.Errorf("got %s want MachineOFF regardless of dwell", got)
	}
}

func TestClassifyHeatingUp(t *testing.T) {
	reading := models.MachineReading{OnContact: ptr(1), Temperature: ptr(290)}
	if got := Classify(reading, false); got != models.ConditionHeatingUp {
		t.Errorf("got %s want HeatingUp", got)
	}
}

func TestClassifyProduction(t *testing.T) {
	reading := models.MachineReading{
		OnContact: ptr(1), Temperature: ptr(310), AlarmContact: ptr(1), CapstanSpeed: ptr(1),
	}
	if got := Classify(reading, true); got != models.ConditionMachineProduction {
		t.Errorf("got %s want MachineProduction", got)
	}
}

func TestClassifyIddleViaAlarm(t *testing.T) {
	reading := models.MachineReading{
		OnContact: ptr(1), Temperature: ptr(310), AlarmContact: ptr(0), CapstanSpeed: ptr(1),
	}
	if got := Classify(reading, true); got != models.ConditionIddle {
		t.Errorf("got %s want Iddle", got)
	}
}

func TestClassifyIddleViaCapstanStopped(t *testing.T) {
	reading := models.MachineReading{
		OnContact: ptr(1), Temperature: ptr(310), AlarmContact: ptr(1), CapstanSpeed: ptr(0),
	}
	if got := Classify(reading, true); got != models.ConditionIddle {
		t.Errorf("got %s want Iddle", got)
	}
}

func TestClassifyMissingValuesTreatedAsZero(t *testing.T) {
	reading := models.MachineReading{} // everything nil
	if got := Classify(reading, true); got != models.ConditionMachineOFF {
		t.Errorf("got %s want MachineOFF: missing on_contact treated as 0", got)
	}
}

func TestClassifyPurity(t *testing.T) {
	reading := models.MachineReading{
		OnContact: ptr(1), Temperature: ptr(310), AlarmContact: ptr(1), CapstanSpeed: ptr(1),
	}
	first := Classify(reading, true)
	second := Classify(reading, true)
	if first != second {
		t.Fatalf("classifier is not pure: %s != %s", first, second)
	}
}
