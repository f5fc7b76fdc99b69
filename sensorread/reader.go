// Package sensorread issues register reads for one sensor task against a
// pooled Modbus client, parses and scales each parameter, and aggregates the
// parameter values into a SensorReading.
package sensorread

import (
	"fmt"
	"log"
	"time"

	"github.com/ptindo/fleet-worker/models"
	"github.com/ptindo/fleet-worker/regparse"
)

const maxRetries = 3

// RegisterClient is the narrow surface sensorread needs from a pooled
// Modbus client. *modbuspool.Client satisfies it; tests supply a fake.
type RegisterClient interface {
	SetSlaveID(id byte)
	ReadHoldingRegisters(address, quantity uint16) ([]byte, error)
}

// ReadSensor issues one holding-register read per save=true parameter,
// parses and scales each, and collects the values. A sensor is considered
// successful if at least one parameter value was collected; individual
// parameter failures are swallowed and logged.
func ReadSensor(client RegisterClient, task models.SensorTask, now time.Time) models.SensorReading {
	client.SetSlaveID(task.SlaveID)

	reading := models.SensorReading{
		MachineID:   task.MachineID,
		MachineName: task.MachineName,
		Role:        task.Role,
		Timestamp:   now,
		Values:      make(map[string]float64),
	}

	for _, param := range task.Params {
		if !param.Save {
			continue
		}

		raw, err := client.ReadHoldingRegisters(param.Address, param.Length)
		if err != nil {
			log.Printf("WARNING: read %s/%s failed: %v", task.MachineName, param.Name, err)
			continue
		}

		value, err := regparse.Parse(raw, param.Encoding)
		if err != nil {
			log.Printf("WARNING: parse %s/%s failed: %v", task.MachineName, param.Name, err)
			continue
		}

		reading.Values[param.Name] = value * param.Formula
	}

	reading.Success = len(reading.Values) > 0
	if !reading.Success {
		reading.Err = fmt.Errorf("sensorread: no parameters collected for %s/%s", task.MachineName, task.Role)
	}
	return reading
}

// ReadSensorWithRetry retries the entire sensor read with linear backoff
// (attempt x 1s) between tries. Returns a failed reading with Err populated
// if all attempts exhaust.
func ReadSensorWithRetry(client RegisterClient, task models.SensorTask, now time.Time) models.SensorReading {
	var last models.SensorReading
	for attempt := 1; attempt <= maxRetries; attempt++ {
		last = ReadSensor(client, task, now)
		if last.Success {
			return last
		}
		if attempt < maxRetries {
			time.Sleep(time.Duration(attempt) * time.Second)
		}
	}
	return last
}
