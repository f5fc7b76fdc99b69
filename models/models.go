package models

import (
	"strconv"
	"time"
)

// SensorRole identifies one of the five Modbus sensors instrumenting a machine.
type SensorRole string

const (
	RolePowerMeter   SensorRole = "power_meter"
	RoleTemperature  SensorRole = "temperature"
	RoleOnContact    SensorRole = "on_contact"
	RoleAlarmContact SensorRole = "alarm_contact"
	RoleCapstanSpeed SensorRole = "capstan_speed"
)

// Roles lists the five canonical sensor roles in discovery order.
var Roles = []SensorRole{RolePowerMeter, RoleTemperature, RoleOnContact, RoleAlarmContact, RoleCapstanSpeed}

// Encoding names the numeric wire encoding of a parameter's register buffer.
type Encoding string

const (
	EncodingFloat32BE Encoding = "float32-be"
	EncodingFloat32LE Encoding = "float32-le"
	EncodingInt16BE   Encoding = "int16-be"
	EncodingInt16LE   Encoding = "int16-le"
	EncodingUint16BE  Encoding = "uint16-be"
	EncodingUint16LE  Encoding = "uint16-le"
	EncodingInt32BE   Encoding = "int32-be"
	EncodingInt32LE   Encoding = "int32-le"
	EncodingUint32BE  Encoding = "uint32-be"
	EncodingUint32LE  Encoding = "uint32-le"
)

// Condition is the inferred operational state of a machine.
type Condition string

const (
	ConditionMachineOFF        Condition = "MachineOFF"
	ConditionHeatingUp         Condition = "HeatingUp"
	ConditionIddle             Condition = "Iddle"
	ConditionMachineProduction Condition = "MachineProduction"
	ConditionUnknown           Condition = "UNKNOWN"
)

// GatewayEndpoint identifies one Modbus-TCP gateway.
type GatewayEndpoint struct {
	IP   string
	Port uint16
}

// Key returns the "ip:port" identity used by the connection pool and grouper.
func (g GatewayEndpoint) Key() string {
	return g.IP + ":" + strconv.Itoa(int(g.Port))
}

// ParameterMapping describes how to read and decode one register-backed value.
type ParameterMapping struct {
	Name     string
	Save     bool
	Address  uint16
	Length   uint16
	Formula  float64
	Encoding Encoding
}

// Sensor is one Modbus unit addressed through a gateway.
type Sensor struct {
	SlaveID byte
	Gateway GatewayEndpoint
	Params  []ParameterMapping
}

// Machine is a fleet unit instrumented with five sensors.
type Machine struct {
	ID           int64
	Name         string
	Enabled      bool
	PowerMeterID int64
	Sensors      map[SensorRole]Sensor
}

// SensorTask is one per-cycle unit of work: read one sensor for one machine.
type SensorTask struct {
	MachineID   int64
	MachineName string
	Role        SensorRole
	SlaveID     byte
	Params      []ParameterMapping
}

// GatewayGroup is every SensorTask that shares a gateway endpoint.
type GatewayGroup struct {
	Endpoint GatewayEndpoint
	Tasks    []SensorTask
}

// SensorReading is the outcome of reading one sensor in one cycle.
type SensorReading struct {
	MachineID   int64
	MachineName string
	Role        SensorRole
	Timestamp   time.Time
	Values      map[string]float64
	Success     bool
	Err         error
}

// MachineReading aggregates one machine's five sensor readings for a cycle.
type MachineReading struct {
	MachineID    int64
	MachineName  string
	Timestamp    time.Time
	Kwh          *float64
	Temperature  *float64
	OnContact    *float64
	AlarmContact *float64
	CapstanSpeed *float64
}

// ConditionRecord is an append-only condition-transition log entry.
type ConditionRecord struct {
	ID               int64
	MachineID        int64
	CurrentTimestamp time.Time
	CurrentCondition Condition
	CurrentKwh       string // decimal string
	LastTimestamp    *time.Time
	LastCondition    *Condition
	LastKwh          *string
}

// LogHistoryRecord is an append-only per-cycle snapshot of raw sensor values.
type LogHistoryRecord struct {
	MachineID    int64
	Timestamp    time.Time
	OnContact    *int64
	AlarmContact *int64
	Temperature  *string
	Kwh          *string
	CapstanSpeed *string
}

// DailySummary is the once-per-day roll-up of hours and energy per condition.
type DailySummary struct {
	MachineID       int64
	Date            time.Time // midnight UTC of the local (UTC+7) calendar day
	TotalHours      float64
	TotalKwh        float64
	HeatingUpHours  float64
	HeatingUpKwh    float64
	IddleHours      float64
	IddleKwh        float64
	ProductionHours float64
	ProductionKwh   float64
	IsOneBlock      bool
}

// GeneralConfig is the worker-wide configuration row.
type GeneralConfig struct {
	LogFreqMinutes int
	LicenseKey     string // encrypted
}
