package kafka_config

import (
	"strings"
	"testing"
	"time"
)

func TestLoad_DisabledWithoutBrokers(t *testing.T) {
	t.Setenv(EnvKafkaBrokers, "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Enabled() {
		t.Error("expected publishing to be disabled")
	}
}

func TestLoad_ParsesBrokers(t *testing.T) {
	t.Setenv(EnvKafkaBrokers, " kafka-1:9092, ,kafka-2:9092 ")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cfg.Enabled() {
		t.Fatal("expected publishing to be enabled")
	}
	if len(cfg.Brokers) != 2 || cfg.Brokers[0] != "kafka-1:9092" || cfg.Brokers[1] != "kafka-2:9092" {
		t.Errorf("unexpected brokers: %v", cfg.Brokers)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Brokers:              []string{"localhost:9092"},
			ProducerMaxAttempts:  DefaultProducerMaxAttempts,
			ProducerBatchTimeout: DefaultProducerBatchTimeout,
			ProducerWriteTimeout: DefaultProducerWriteTimeout,
			ProducerRequireAcks:  DefaultProducerRequireAcks,
			ProducerCompression:  DefaultProducerCompression,
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "disabled ignores knobs", mutate: func(c *Config) { c.Brokers = nil; c.ProducerMaxAttempts = 0 }},
		{name: "bad attempts", mutate: func(c *Config) { c.ProducerMaxAttempts = 0 }, wantErr: "ProducerMaxAttempts"},
		{name: "bad write timeout", mutate: func(c *Config) { c.ProducerWriteTimeout = -time.Second }, wantErr: "ProducerWriteTimeout"},
		{name: "bad compression", mutate: func(c *Config) { c.ProducerCompression = "brotli" }, wantErr: "ProducerCompression"},
		{name: "bad acks", mutate: func(c *Config) { c.ProducerRequireAcks = 2 }, wantErr: "ProducerRequireAcks"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error mentioning %s, got %v", tt.wantErr, err)
			}
		})
	}
}
