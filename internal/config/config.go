package config

import (
	"bitfrost-bridge/internal/models"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	LogLevel             string
	Network              models.Network
	RegistryPollInterval time.Duration
	TrackPollInterval    time.Duration
	Timeouts             models.Timeouts
	MaxRetries           int
	RetryDelay           time.Duration
	ListenAddress        string
	HTTP                 HTTPConfig
	Node                 NodeConfig
	Kafka                KafkaConfig
	Database             DatabaseConfig
	EVM                  EVMConfig
	UTXO                 UTXOConfig
}

// HTTPConfig holds HTTP client configuration
type HTTPConfig struct {
	Timeout time.Duration
}

// NodeConfig points at the bridge chain's REST gateway
type NodeConfig struct {
	RestEndpoint string
	ApiKey       string
	RateLimit    float64
}

// KafkaConfig holds Kafka configuration. An empty broker disables the sink.
type KafkaConfig struct {
	BrokerAddress string
	Topic         string
	BatchSize     int
	BatchTimeout  time.Duration
}

// DatabaseConfig holds the event journal connection. An empty host disables it.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// DSN renders the lib/pq connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

// EVMConfig configures the EVM adapter. BridgeContracts maps chain id to the
// bridge deposit contract on that chain. FromAddress is the account whose
// nonce the built transactions use.
type EVMConfig struct {
	RpcEndpoint     string
	FromAddress     string
	BridgeContracts map[string]string
}

// UTXOConfig configures the UTXO adapter. Vaults maps chain id to the bridge
// vault address on that chain.
type UTXOConfig struct {
	Vaults map[string]string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		// Not fatal, as env vars might be set externally
	}

	config := &Config{
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		Network:              models.Network(getEnv("NETWORK", string(models.Mainnet))),
		RegistryPollInterval: getEnvAsMillis("REGISTRY_POLL_INTERVAL_MS", 30000),
		TrackPollInterval:    getEnvAsMillis("TRACK_POLL_INTERVAL_MS", 3000),
		Timeouts: models.Timeouts{
			CanTransfer: getEnvAsMillis("CAN_TRANSFER_TIMEOUT_MS", 10000),
			Execute:     getEnvAsMillis("EXECUTE_TIMEOUT_MS", 0),
		},
		MaxRetries:    getEnvAsInt("MAX_RETRIES", 3),
		RetryDelay:    time.Duration(getEnvAsInt("RETRY_DELAY", 1)) * time.Second,
		ListenAddress: getEnv("LISTEN_ADDRESS", ":8080"),
		HTTP: HTTPConfig{
			Timeout: time.Duration(getEnvAsInt("HTTP_TIMEOUT", 30)) * time.Second,
		},
		Node: NodeConfig{
			RestEndpoint: getEnv("NODE_REST_ENDPOINT", "http://localhost:1317"),
			ApiKey:       getEnv("NODE_API_KEY", ""),
			RateLimit:    getEnvAsFloat("NODE_RATE_LIMIT", 10),
		},
		Kafka: KafkaConfig{
			BrokerAddress: getEnv("KAFKA_BROKER_ADDRESS", ""),
			Topic:         getEnv("KAFKA_TOPIC", "bridge-transfer-events"),
			BatchSize:     getEnvAsInt("KAFKA_BATCH_SIZE", 10),
			BatchTimeout:  time.Duration(getEnvAsInt("KAFKA_BATCH_TIMEOUT", 1)) * time.Second,
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", ""),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "bridge_events"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		EVM: EVMConfig{
			RpcEndpoint:     getEnv("EVM_RPC_ENDPOINT", ""),
			FromAddress:     getEnv("EVM_FROM_ADDRESS", ""),
			BridgeContracts: getEnvAsMap("EVM_BRIDGE_CONTRACTS"),
		},
		UTXO: UTXOConfig{
			Vaults: getEnvAsMap("UTXO_VAULTS"),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks values that have no safe fallback
func (c *Config) Validate() error {
	var errs []error
	if c.Network != models.Mainnet && c.Network != models.Testnet {
		errs = append(errs, fmt.Errorf("NETWORK must be mainnet or testnet, got %q", c.Network))
	}
	if c.RegistryPollInterval <= 0 {
		errs = append(errs, errors.New("REGISTRY_POLL_INTERVAL_MS must be positive"))
	}
	if c.TrackPollInterval <= 0 {
		errs = append(errs, errors.New("TRACK_POLL_INTERVAL_MS must be positive"))
	}
	if c.Timeouts.CanTransfer <= 0 {
		errs = append(errs, errors.New("CAN_TRANSFER_TIMEOUT_MS must be positive"))
	}
	if c.Node.RestEndpoint == "" {
		errs = append(errs, errors.New("NODE_REST_ENDPOINT is required"))
	}
	if c.Node.RateLimit <= 0 {
		errs = append(errs, fmt.Errorf("NODE_RATE_LIMIT must be positive, got %v", c.Node.RateLimit))
	}
	if c.EVM.RpcEndpoint != "" && c.EVM.FromAddress == "" {
		errs = append(errs, errors.New("EVM_FROM_ADDRESS is required when EVM_RPC_ENDPOINT is set"))
	}
	if c.MaxRetries < 1 {
		errs = append(errs, errors.New("MAX_RETRIES must be at least 1"))
	}
	return errors.Join(errs...)
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as int or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsFloat gets an environment variable as float64 or returns a default value
func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getEnvAsMillis reads a millisecond count as a duration
func getEnvAsMillis(key string, defaultValue int) time.Duration {
	return time.Duration(getEnvAsInt(key, defaultValue)) * time.Millisecond
}

// getEnvAsMap parses "k1=v1,k2=v2"; malformed pairs are skipped
func getEnvAsMap(key string) map[string]string {
	out := make(map[string]string)
	for _, pair := range strings.Split(os.Getenv(key), ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok || k == "" || v == "" {
			continue
		}
		out[k] = v
	}
	return out
}
