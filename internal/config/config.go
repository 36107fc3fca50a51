package config

import (
	"fmt"

	"github.com/caarlos0/env/v6"
)

type Config struct {
	ServerAddress string `env:"SERVER_ADDRESS" envDefault:"0.0.0.0:8080"`
	LogLevel      string `env:"LOG_LEVEL" envDefault:"DEBUG"`
	PostgresConfig
	KafkaConfig
	PolicyConfig
}

func NewConfig() (*Config, error) {
	config := &Config{}

	err := env.Parse(config)
	if err != nil {
		err = fmt.Errorf("config.NewConfig: %w", err)
	}
	return config, err
}

type PostgresConfig struct {
	Conn            string `env:"POSTGRES_CONN" envDefault:"postgres://test:test@db:5432/test?sslmode=disable"`
	AutoMigrateUp   string `env:"AUTO_MIGRATE_UP" envDefault:"true"`
	AutoMigrateDown string `env:"AUTO_MIGRATE_DOWN" envDefault:"false"`
	MigrationsURL   string `env:"MIGRATIONS_URL" envDefault:"file://internal/repository/db/migrations"`
}

func NewPostgresConfig() (*PostgresConfig, error) {
	config := &PostgresConfig{}

	err := env.Parse(config)
	if err != nil {
		err = fmt.Errorf("config.NewPostgresConfig: %w", err)
	}
	return config, err
}

type KafkaConfig struct {
	Brokers          []string `env:"KAFKA_BROKERS" envSeparator:"," envDefault:"localhost:9092"`
	GroupId          string   `env:"KAFKA_GROUP_ID" envDefault:"bidding-service"`
	TenderTopic      string   `env:"KAFKA_TENDER_TOPIC" envDefault:"tender-events"`
	EvaluationTopic  string   `env:"KAFKA_EVALUATION_TOPIC" envDefault:"evaluation-events"`
	ContractTopic    string   `env:"KAFKA_CONTRACT_TOPIC" envDefault:"contract-events"`
	BidTopic         string   `env:"KAFKA_BID_TOPIC" envDefault:"bid-events"`
	AuditTopic       string   `env:"KAFKA_AUDIT_TOPIC" envDefault:"audit-events"`
	DeadLetterSuffix string   `env:"KAFKA_DEAD_LETTER_SUFFIX" envDefault:".dead-letter"`
}

// PolicyConfig holds tunables of the bid lifecycle itself rather than of
// any particular backend.
type PolicyConfig struct {
	// FanoutPageSize bounds how many bids a tender close/cancel fan-out
	// holds in memory at once.
	FanoutPageSize int `env:"FANOUT_PAGE_SIZE" envDefault:"100"`
	// WriteRetries bounds read-decide-write retries after an optimistic
	// lock conflict before the failure is surfaced.
	WriteRetries int `env:"WRITE_RETRIES" envDefault:"3"`
	// ClarificationDays is the default response window when a request
	// does not carry one.
	ClarificationDays int `env:"CLARIFICATION_DAYS" envDefault:"5"`
	// ClarificationAllowMultiple permits several PENDING clarifications
	// on one bid at a time.
	ClarificationAllowMultiple bool `env:"CLARIFICATION_ALLOW_MULTIPLE" envDefault:"true"`
	// DocumentRoot is where the local document store keeps uploads.
	DocumentRoot string `env:"DOCUMENT_ROOT" envDefault:"/var/lib/bidding/documents"`
}
