// Package grouper folds a fleet of machines into per-gateway batches of
// sensor tasks so the scheduler can fan reads out across gateways in
// parallel while keeping reads against one gateway strictly sequential.
package grouper

import (
	"github.com/ptindo/fleet-worker/models"
)

// Group expands every enabled machine's five sensors into SensorTasks and
// buckets them by gateway endpoint. Disabled machines are skipped entirely.
// A machine missing a given role simply contributes no task for that role.
func Group(machines []models.Machine) []models.GatewayGroup {
	index := make(map[string]int)
	groups := make([]models.GatewayGroup, 0)

	for _, m := range machines {
		if !m.Enabled {
			continue
		}
		for _, role := range models.Roles {
			sensor, ok := m.Sensors[role]
			if !ok {
				continue
			}
			task := models.SensorTask{
				MachineID:   m.ID,
				MachineName: m.Name,
				Role:        role,
				SlaveID:     sensor.SlaveID,
				Params:      sensor.Params,
			}

			key := sensor.Gateway.Key()
			idx, ok := index[key]
			if !ok {
				idx = len(groups)
				index[key] = idx
				groups = append(groups, models.GatewayGroup{Endpoint: sensor.Gateway})
			}
			groups[idx].Tasks = append(groups[idx].Tasks, task)
		}
	}

	return groups
}
