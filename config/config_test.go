package config

import "testing"

func TestLoadParsesKafkaBrokersCSV(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "broker1:9092, broker2:9092")
	cfg := Load()
	if len(cfg.KafkaBrokers) != 2 {
		t.Fatalf("expected 2 brokers, got %v", cfg.KafkaBrokers)
	}
	if cfg.KafkaBrokers[0] != "broker1:9092" || cfg.KafkaBrokers[1] != "broker2:9092" {
		t.Fatalf("unexpected brokers: %v", cfg.KafkaBrokers)
	}
}

func TestLoadDefaultsKafkaTopic(t *testing.T) {
	t.Setenv("KAFKA_TOPIC_CONDITIONS", "")
	cfg := Load()
	if cfg.KafkaConditionTopic != "machine-conditions" {
		t.Fatalf("expected default topic, got %q", cfg.KafkaConditionTopic)
	}
}

func TestLogFreqMinutesOrDefault(t *testing.T) {
	if got := LogFreqMinutesOrDefault(0); got != DefaultLogFreqMinutes {
		t.Errorf("got %d want default %d", got, DefaultLogFreqMinutes)
	}
	if got := LogFreqMinutesOrDefault(30); got != 30 {
		t.Errorf("got %d want 30", got)
	}
}

func TestIsProductionAndDevelopment(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("ENV", "")
	if !IsProduction() {
		t.Errorf("expected production mode")
	}
	if IsDevelopment() {
		t.Errorf("expected not development mode")
	}
}
