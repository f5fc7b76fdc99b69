// Package aggregate merges per-sensor readings from one poll cycle into
// per-machine readings, the shared step used by both the cycle loop and the
// snapshot cron's log-history batch write.
package aggregate

import (
	"sort"

	"github.com/ptindo/fleet-worker/models"
)

// capstanSpeedKeys lists the accepted parameter-name spellings for the
// capstan speed value. "capstand_speed" is a known data-entry typo in some
// gateway mappings; both spellings are honored.
var capstanSpeedKeys = []string{"capstan_speed", "capstand_speed"}

// Machines merges the union of values from every sensor reading belonging
// to the same machine into one MachineReading. Only successful readings
// contribute; on key collision, later readings win. The machine timestamp
// is the first successful reading's timestamp.
func Machines(readings []models.SensorReading) []models.MachineReading {
	order := make([]int64, 0)
	byMachine := make(map[int64]*models.MachineReading)

	for _, r := range readings {
		if !r.Success {
			continue
		}
		mr, ok := byMachine[r.MachineID]
		if !ok {
			mr = &models.MachineReading{
				MachineID:   r.MachineID,
				MachineName: r.MachineName,
				Timestamp:   r.Timestamp,
			}
			byMachine[r.MachineID] = mr
			order = append(order, r.MachineID)
		}
		applyValues(mr, r.Values)
	}

	out := make([]models.MachineReading, 0, len(order))
	for _, id := range order {
		out = append(out, *byMachine[id])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MachineID < out[j].MachineID })
	return out
}

func applyValues(mr *models.MachineReading, values map[string]float64) {
	if v, ok := values["kwh"]; ok {
		mr.Kwh = ptr(v)
	}
	if v, ok := values["temperature"]; ok {
		mr.Temperature = ptr(v)
	}
	if v, ok := values["on_contact"]; ok {
		mr.OnContact = ptr(v)
	}
	if v, ok := values["alarm_contact"]; ok {
		mr.AlarmContact = ptr(v)
	}
	for _, key := range capstanSpeedKeys {
		if v, ok := values[key]; ok {
			mr.CapstanSpeed = ptr(v)
		}
	}
}

func ptr(v float64) *float64 { return &v }
