package grouper

import (
	"testing"

	"github.com/ptindo/fleet-worker/models"
)

func gw(ip string, port uint16) models.GatewayEndpoint {
	return models.GatewayEndpoint{IP: ip, Port: port}
}

func TestGroupBucketsByGatewayEndpoint(t *testing.T) {
	machines := []models.Machine{
		{
			ID: 1, Name: "M1", Enabled: true,
			Sensors: map[models.SensorRole]models.Sensor{
				models.RolePowerMeter:  {SlaveID: 1, Gateway: gw("10.0.0.1", 502)},
				models.RoleTemperature: {SlaveID: 2, Gateway: gw("10.0.0.1", 502)},
			},
		},
		{
			ID: 2, Name: "M2", Enabled: true,
			Sensors: map[models.SensorRole]models.Sensor{
				models.RolePowerMeter: {SlaveID: 1, Gateway: gw("10.0.0.2", 502)},
			},
		},
	}

	groups := Group(machines)
	if len(groups) != 2 {
		t.Fatalf("expected 2 gateway groups, got %d", len(groups))
	}

	total := 0
	for _, g := range groups {
		total += len(g.Tasks)
	}
	if total != 3 {
		t.Fatalf("expected 3 total tasks across groups, got %d", total)
	}
}

func TestGroupSkipsDisabledMachines(t *testing.T) {
	machines := []models.Machine{
		{
			ID: 1, Name: "Off", Enabled: false,
			Sensors: map[models.SensorRole]models.Sensor{
				models.RolePowerMeter: {SlaveID: 1, Gateway: gw("10.0.0.1", 502)},
			},
		},
	}
	groups := Group(machines)
	if len(groups) != 0 {
		t.Fatalf("expected no groups for an all-disabled fleet, got %d", len(groups))
	}
}

func TestGroupSkipsMissingRoles(t *testing.T) {
	machines := []models.Machine{
		{
			ID: 1, Name: "Partial", Enabled: true,
			Sensors: map[models.SensorRole]models.Sensor{
				models.RolePowerMeter: {SlaveID: 1, Gateway: gw("10.0.0.1", 502)},
			},
		},
	}
	groups := Group(machines)
	if len(groups) != 1 || len(groups[0].Tasks) != 1 {
		t.Fatalf("expected exactly one task for the one present role")
	}
	if groups[0].Tasks[0].Role != models.RolePowerMeter {
		t.Errorf("expected power_meter task, got %s", groups[0].Tasks[0].Role)
	}
}

func TestGroupSameEndpointDifferentMachinesShareGroup(t *testing.T) {
	machines := []models.Machine{
		{ID: 1, Name: "A", Enabled: true, Sensors: map[models.SensorRole]models.Sensor{
			models.RolePowerMeter: {SlaveID: 1, Gateway: gw("10.0.0.1", 502)},
		}},
		{ID: 2, Name: "B", Enabled: true, Sensors: map[models.SensorRole]models.Sensor{
			models.RolePowerMeter: {SlaveID: 2, Gateway: gw("10.0.0.1", 502)},
		}},
	}
	groups := Group(machines)
	if len(groups) != 1 {
		t.Fatalf("expected machines sharing a gateway to share one group, got %d groups", len(groups))
	}
	if len(groups[0].Tasks) != 2 {
		t.Fatalf("expected 2 tasks in the shared group, got %d", len(groups[0].Tasks))
	}
}
