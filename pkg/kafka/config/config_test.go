package kafka_config

import (
	"strings"
	"testing"
	"time"
)

func TestLoad_ReadsEnvironment(t *testing.T) {
	t.Setenv(EnvKafkaBrokers, "kafka-1:9092, kafka-2:9092")
	t.Setenv(EnvKafkaProducerCompression, "ZSTD")
	t.Setenv(EnvKafkaConsumerMaxRetries, "2")
	t.Setenv(EnvKafkaConsumerCommitInterval, "not-a-duration")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if len(cfg.Brokers) != 2 || cfg.Brokers[1] != "kafka-2:9092" {
		t.Errorf("Brokers = %v", cfg.Brokers)
	}
	if cfg.ProducerCompression != "zstd" {
		t.Errorf("ProducerCompression = %q, want zstd", cfg.ProducerCompression)
	}
	if cfg.ConsumerMaxRetries != 2 {
		t.Errorf("ConsumerMaxRetries = %d, want 2", cfg.ConsumerMaxRetries)
	}
	if cfg.ConsumerCommitInterval != DefaultConsumerCommitInterval {
		t.Errorf("unparsable value should fall back to the default, got %s", cfg.ConsumerCommitInterval)
	}
	if cfg.ConsumerStartOffset != StartOffsetOldest {
		t.Errorf("ConsumerStartOffset = %d, want oldest", cfg.ConsumerStartOffset)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(cfg *Config)
		wantErr string
	}{
		{name: "defaults", mutate: func(cfg *Config) {}},
		{
			name:    "empty broker",
			mutate:  func(cfg *Config) { cfg.Brokers = []string{"kafka:9092", ""} },
			wantErr: "Broker 1 cannot be empty",
		},
		{
			name:    "unknown compression",
			mutate:  func(cfg *Config) { cfg.ProducerCompression = "brotli" },
			wantErr: "ProducerCompression must be one of",
		},
		{
			name:    "explicit offset",
			mutate:  func(cfg *Config) { cfg.ConsumerStartOffset = 42 },
			wantErr: "ConsumerStartOffset must be -1",
		},
		{
			name:    "session shorter than heartbeat",
			mutate:  func(cfg *Config) { cfg.ConsumerSessionTimeout = time.Second },
			wantErr: "ConsumerSessionTimeout must exceed",
		},
		{
			name:    "zero dlq attempts",
			mutate:  func(cfg *Config) { cfg.DLQMaxAttempts = 0 },
			wantErr: "DLQMaxAttempts must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				Brokers:                   []string{DefaultKafkaBrokers},
				ProducerMaxAttempts:       DefaultProducerMaxAttempts,
				ProducerBatchTimeout:      DefaultProducerBatchTimeout,
				ProducerRequireAcks:       DefaultProducerRequireAcks,
				ProducerCompression:       DefaultProducerCompression,
				DLQMaxAttempts:            DefaultDLQMaxAttempts,
				ConsumerStartOffset:       DefaultConsumerStartOffset,
				ConsumerMinBytes:          DefaultConsumerMinBytes,
				ConsumerMaxBytes:          DefaultConsumerMaxBytes,
				ConsumerMaxWait:           DefaultConsumerMaxWait,
				ConsumerHeartbeatInterval: DefaultConsumerHeartbeatInterval,
				ConsumerSessionTimeout:    DefaultConsumerSessionTimeout,
				ConsumerRebalanceTimeout:  DefaultConsumerRebalanceTimeout,
				ConsumerMaxRetries:        DefaultConsumerMaxRetries,
			}
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}
