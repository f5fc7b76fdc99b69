// Package condition implements the pure precedence classifier that turns
// one machine's aggregated sensor reading into an operational condition.
package condition

import "github.com/ptindo/fleet-worker/models"

// Classify returns the condition implied by reading and the dwell
// predicate result hot. Missing numeric values are treated as 0. Pure and
// deterministic: same (reading, hot) always yields the same condition.
func Classify(reading models.MachineReading, hot bool) models.Condition {
	onContact := valueOr(reading.OnContact, 0)
	alarmContact := valueOr(reading.AlarmContact, 0)
	capstanSpeed := valueOr(reading.CapstanSpeed, 0)

	switch {
	case onContact == 0:
		return models.ConditionMachineOFF
	case !hot:
		return models.ConditionHeatingUp
	case alarmContact == 0:
		return models.ConditionIddle
	case capstanSpeed == 1:
		return models.ConditionMachineProduction
	case capstanSpeed == 0:
		return models.ConditionIddle
	default:
		return models.ConditionUnknown
	}
}

func valueOr(v *float64, fallback float64) float64 {
	if v == nil {
		return fallback
	}
	return *v
}
