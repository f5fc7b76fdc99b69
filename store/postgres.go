package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/ptindo/fleet-worker/models"
)

// PostgresStore implements Store against the schema applied by
// database.RunMigrations.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore wraps an already-connected *sql.DB.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) ListEnabledMachines() ([]models.Machine, error) {
	rows, err := s.db.Query(`SELECT id, name, enabled, power_meter_id FROM machines WHERE enabled = true ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("store: list machines: %w", err)
	}
	defer rows.Close()

	machines := make([]models.Machine, 0)
	for rows.Next() {
		var m models.Machine
		if err := rows.Scan(&m.ID, &m.Name, &m.Enabled, &m.PowerMeterID); err != nil {
			return nil, fmt.Errorf("store: scan machine: %w", err)
		}
		m.Sensors = make(map[models.SensorRole]models.Sensor)
		machines = append(machines, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range machines {
		sensors, err := s.loadSensors(machines[i].ID)
		if err != nil {
			return nil, err
		}
		machines[i].Sensors = sensors
	}
	return machines, nil
}

func (s *PostgresStore) loadSensors(machineID int64) (map[models.SensorRole]models.Sensor, error) {
	rows, err := s.db.Query(`SELECT id, role, slave_id, gateway_ip, gateway_port FROM sensors WHERE machine_id = $1`, machineID)
	if err != nil {
		return nil, fmt.Errorf("store: list sensors: %w", err)
	}
	defer rows.Close()

	type sensorRow struct {
		id   int64
		role models.SensorRole
	}
	var ids []sensorRow
	sensors := make(map[models.SensorRole]models.Sensor)
	for rows.Next() {
		var id int64
		var role models.SensorRole
		var slaveID byte
		var ip string
		var port int
		if err := rows.Scan(&id, &role, &slaveID, &ip, &port); err != nil {
			return nil, fmt.Errorf("store: scan sensor: %w", err)
		}
		sensors[role] = models.Sensor{
			SlaveID: slaveID,
			Gateway: models.GatewayEndpoint{IP: ip, Port: uint16(port)},
		}
		ids = append(ids, sensorRow{id: id, role: role})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, sr := range ids {
		params, err := s.loadParameterMappings(sr.id)
		if err != nil {
			return nil, err
		}
		sensor := sensors[sr.role]
		sensor.Params = params
		sensors[sr.role] = sensor
	}
	return sensors, nil
}

func (s *PostgresStore) loadParameterMappings(sensorID int64) ([]models.ParameterMapping, error) {
	rows, err := s.db.Query(`SELECT name, save, address, length, formula, encoding FROM parameter_mappings WHERE sensor_id = $1 ORDER BY id`, sensorID)
	if err != nil {
		return nil, fmt.Errorf("store: list parameter mappings: %w", err)
	}
	defer rows.Close()

	params := make([]models.ParameterMapping, 0)
	for rows.Next() {
		var p models.ParameterMapping
		var address, length int
		if err := rows.Scan(&p.Name, &p.Save, &address, &length, &p.Formula, &p.Encoding); err != nil {
			return nil, fmt.Errorf("store: scan parameter mapping: %w", err)
		}
		p.Address = uint16(address)
		p.Length = uint16(length)
		params = append(params, p)
	}
	return params, rows.Err()
}

func (s *PostgresStore) GetGeneralConfig() (models.GeneralConfig, error) {
	var cfg models.GeneralConfig
	err := s.db.QueryRow(`SELECT log_freq_minutes, license_key FROM general_config WHERE id = 1`).Scan(&cfg.LogFreqMinutes, &cfg.LicenseKey)
	if err != nil {
		return cfg, fmt.Errorf("store: get general config: %w", err)
	}
	return cfg, nil
}

func (s *PostgresStore) InsertConditionRecord(rec models.ConditionRecord) error {
	_, err := s.db.Exec(
		`INSERT INTO condition_records (machine_id, recorded_at, current_condition, current_kwh, last_timestamp, last_condition, last_kwh)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rec.MachineID, rec.CurrentTimestamp, rec.CurrentCondition, rec.CurrentKwh, rec.LastTimestamp, rec.LastCondition, rec.LastKwh,
	)
	if err != nil {
		return fmt.Errorf("store: insert condition record: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindLatestCondition(machineID int64) (*models.ConditionRecord, error) {
	row := s.db.QueryRow(
		`SELECT id, machine_id, recorded_at, current_condition, current_kwh, last_timestamp, last_condition, last_kwh
		 FROM condition_records WHERE machine_id = $1 ORDER BY recorded_at DESC LIMIT 1`,
		machineID,
	)
	var rec models.ConditionRecord
	err := row.Scan(&rec.ID, &rec.MachineID, &rec.CurrentTimestamp, &rec.CurrentCondition, &rec.CurrentKwh, &rec.LastTimestamp, &rec.LastCondition, &rec.LastKwh)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: find latest condition: %w", err)
	}
	return &rec, nil
}

func (s *PostgresStore) FindConditionsInRange(machineID int64, from, to time.Time) ([]models.ConditionRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, machine_id, recorded_at, current_condition, current_kwh, last_timestamp, last_condition, last_kwh
		 FROM condition_records WHERE machine_id = $1 AND recorded_at >= $2 AND recorded_at < $3
		 ORDER BY recorded_at ASC`,
		machineID, from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("store: find conditions in range: %w", err)
	}
	defer rows.Close()

	records := make([]models.ConditionRecord, 0)
	for rows.Next() {
		var rec models.ConditionRecord
		if err := rows.Scan(&rec.ID, &rec.MachineID, &rec.CurrentTimestamp, &rec.CurrentCondition, &rec.CurrentKwh, &rec.LastTimestamp, &rec.LastCondition, &rec.LastKwh); err != nil {
			return nil, fmt.Errorf("store: scan condition record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *PostgresStore) InsertLogHistoryRecord(rec models.LogHistoryRecord) error {
	_, err := s.db.Exec(
		`INSERT INTO log_history (machine_id, timestamp, on_contact, alarm_contact, temperature, kwh, capstan_speed)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rec.MachineID, rec.Timestamp, rec.OnContact, rec.AlarmContact, rec.Temperature, rec.Kwh, rec.CapstanSpeed,
	)
	if err != nil {
		return fmt.Errorf("store: insert log history record: %w", err)
	}
	return nil
}

func (s *PostgresStore) InsertLogHistoryBatch(records []models.LogHistoryRecord) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("store: begin log history batch: %w", err)
	}

	stmt, err := tx.Prepare(
		`INSERT INTO log_history (machine_id, timestamp, on_contact, alarm_contact, temperature, kwh, capstan_speed)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
	)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("store: prepare log history batch: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		if _, err := stmt.Exec(rec.MachineID, rec.Timestamp, rec.OnContact, rec.AlarmContact, rec.Temperature, rec.Kwh, rec.CapstanSpeed); err != nil {
			tx.Rollback()
			return fmt.Errorf("store: exec log history batch: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit log history batch: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindLogHistoryInRange(machineID int64, from, to time.Time) ([]models.LogHistoryRecord, error) {
	rows, err := s.db.Query(
		`SELECT machine_id, timestamp, on_contact, alarm_contact, temperature, kwh, capstan_speed
		 FROM log_history WHERE machine_id = $1 AND timestamp >= $2 AND timestamp < $3
		 ORDER BY timestamp ASC`,
		machineID, from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("store: find log history in range: %w", err)
	}
	defer rows.Close()

	records := make([]models.LogHistoryRecord, 0)
	for rows.Next() {
		var rec models.LogHistoryRecord
		if err := rows.Scan(&rec.MachineID, &rec.Timestamp, &rec.OnContact, &rec.AlarmContact, &rec.Temperature, &rec.Kwh, &rec.CapstanSpeed); err != nil {
			return nil, fmt.Errorf("store: scan log history record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *PostgresStore) UpsertDailySummary(summary models.DailySummary) error {
	_, err := s.db.Exec(
		`INSERT INTO daily_summaries (machine_id, date, total_hours, total_kwh, heating_up_hours, heating_up_kwh, iddle_hours, iddle_kwh, production_hours, production_kwh, is_one_block)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 ON CONFLICT (machine_id, date) DO UPDATE SET
			total_hours = EXCLUDED.total_hours,
			total_kwh = EXCLUDED.total_kwh,
			heating_up_hours = EXCLUDED.heating_up_hours,
			heating_up_kwh = EXCLUDED.heating_up_kwh,
			iddle_hours = EXCLUDED.iddle_hours,
			iddle_kwh = EXCLUDED.iddle_kwh,
			production_hours = EXCLUDED.production_hours,
			production_kwh = EXCLUDED.production_kwh,
			is_one_block = EXCLUDED.is_one_block`,
		summary.MachineID, summary.Date, summary.TotalHours, summary.TotalKwh,
		summary.HeatingUpHours, summary.HeatingUpKwh, summary.IddleHours, summary.IddleKwh,
		summary.ProductionHours, summary.ProductionKwh, summary.IsOneBlock,
	)
	if err != nil {
		return fmt.Errorf("store: upsert daily summary: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindDailySummary(machineID int64, date time.Time) (*models.DailySummary, error) {
	row := s.db.QueryRow(
		`SELECT machine_id, date, total_hours, total_kwh, heating_up_hours, heating_up_kwh, iddle_hours, iddle_kwh, production_hours, production_kwh, is_one_block
		 FROM daily_summaries WHERE machine_id = $1 AND date = $2`,
		machineID, date,
	)
	var summary models.DailySummary
	err := row.Scan(
		&summary.MachineID, &summary.Date, &summary.TotalHours, &summary.TotalKwh,
		&summary.HeatingUpHours, &summary.HeatingUpKwh, &summary.IddleHours, &summary.IddleKwh,
		&summary.ProductionHours, &summary.ProductionKwh, &summary.IsOneBlock,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: find daily summary: %w", err)
	}
	return &summary, nil
}
