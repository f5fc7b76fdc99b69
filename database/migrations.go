package database

import (
	"database/sql"
	"fmt"
	"log"
)

// RunMigrations applies the worker's schema, in order, idempotently.
func RunMigrations(db *sql.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS machines (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			enabled BOOLEAN NOT NULL DEFAULT true,
			power_meter_id BIGINT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ DEFAULT now(),
			updated_at TIMESTAMPTZ DEFAULT now()
		)`,

		`CREATE TABLE IF NOT EXISTS sensors (
			id BIGSERIAL PRIMARY KEY,
			machine_id BIGINT NOT NULL REFERENCES machines(id) ON DELETE CASCADE,
			role TEXT NOT NULL,
			slave_id SMALLINT NOT NULL,
			gateway_ip TEXT NOT NULL,
			gateway_port INTEGER NOT NULL,
			UNIQUE(machine_id, role)
		)`,

		`CREATE TABLE IF NOT EXISTS parameter_mappings (
			id BIGSERIAL PRIMARY KEY,
			sensor_id BIGINT NOT NULL REFERENCES sensors(id) ON DELETE CASCADE,
			name TEXT NOT NULL,
			save BOOLEAN NOT NULL DEFAULT true,
			address INTEGER NOT NULL,
			length INTEGER NOT NULL,
			formula DOUBLE PRECISION NOT NULL DEFAULT 1,
			encoding TEXT NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS condition_records (
			id BIGSERIAL PRIMARY KEY,
			machine_id BIGINT NOT NULL REFERENCES machines(id) ON DELETE CASCADE,
			recorded_at TIMESTAMPTZ NOT NULL,
			current_condition TEXT NOT NULL,
			current_kwh TEXT NOT NULL,
			last_timestamp TIMESTAMPTZ,
			last_condition TEXT,
			last_kwh TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_condition_records_machine_time ON condition_records(machine_id, recorded_at)`,

		`CREATE TABLE IF NOT EXISTS log_history (
			id BIGSERIAL PRIMARY KEY,
			machine_id BIGINT NOT NULL REFERENCES machines(id) ON DELETE CASCADE,
			timestamp TIMESTAMPTZ NOT NULL,
			on_contact BIGINT,
			alarm_contact BIGINT,
			temperature TEXT,
			kwh TEXT,
			capstan_speed TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_log_history_machine_time ON log_history(machine_id, timestamp)`,

		`CREATE TABLE IF NOT EXISTS daily_summaries (
			machine_id BIGINT NOT NULL REFERENCES machines(id) ON DELETE CASCADE,
			date DATE NOT NULL,
			total_hours DOUBLE PRECISION NOT NULL DEFAULT 0,
			total_kwh DOUBLE PRECISION NOT NULL DEFAULT 0,
			heating_up_hours DOUBLE PRECISION NOT NULL DEFAULT 0,
			heating_up_kwh DOUBLE PRECISION NOT NULL DEFAULT 0,
			iddle_hours DOUBLE PRECISION NOT NULL DEFAULT 0,
			iddle_kwh DOUBLE PRECISION NOT NULL DEFAULT 0,
			production_hours DOUBLE PRECISION NOT NULL DEFAULT 0,
			production_kwh DOUBLE PRECISION NOT NULL DEFAULT 0,
			is_one_block BOOLEAN NOT NULL DEFAULT true,
			PRIMARY KEY (machine_id, date)
		)`,

		`CREATE TABLE IF NOT EXISTS general_config (
			id SMALLINT PRIMARY KEY DEFAULT 1 CHECK (id = 1),
			log_freq_minutes INTEGER NOT NULL DEFAULT 15,
			license_key TEXT NOT NULL DEFAULT ''
		)`,
	}

	for _, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("database: migration failed: %w", err)
		}
	}

	return initializeGeneralConfig(db)
}

func initializeGeneralConfig(db *sql.DB) error {
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM general_config").Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	if _, err := db.Exec(`INSERT INTO general_config (id, log_freq_minutes, license_key) VALUES (1, 15, '')`); err != nil {
		return err
	}
	log.Printf("INFO: default general_config row created")
	return nil
}
