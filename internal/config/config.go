// Package config loads the operator's YAML configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"solana-transfer-operator/internal/logging"
)

// Storage backends.
const (
	StorageMemory   = "memory"
	StorageDatabase = "database" // postgres records + clickhouse stage events
)

// Bus drivers.
const (
	BusMemory   = "memory"
	BusRabbitMQ = "rabbitmq"
	BusRedis    = "redis"
)

// LogConfig selects log output.
type LogConfig struct {
	Format     string `yaml:"format"`       // "console" or "json"
	LogDir     string `yaml:"log_dir"`      // relative to the config file; empty logs to stdout only
	Level      string `yaml:"level"`        // debug / info / warn / error
	Compress   bool   `yaml:"compress"`     // gzip rotated files
	MaxSizeMB  int    `yaml:"max_size_mb"`  // rotate after this size
	MaxBackups int    `yaml:"max_backups"`  // rotated files kept
	MaxAgeDays int    `yaml:"max_age_days"` // days rotated files are kept
}

func (c *LogConfig) ToLogOption() logging.Option {
	return logging.Option{
		Format:     c.Format,
		LogDir:     c.LogDir,
		Level:      c.Level,
		Compress:   c.Compress,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
	}
}

// SolanaConfig points at the cluster.
type SolanaConfig struct {
	RPCEndpoint string        `yaml:"rpc_endpoint"` // JSON-RPC over HTTP
	WSEndpoint  string        `yaml:"ws_endpoint"`  // optional; enables landing confirmation
	Commitment  string        `yaml:"commitment"`   // blockhash and preflight commitment
	Timeout     time.Duration `yaml:"timeout"`      // per RPC call
}

// OperatorConfig locates the operator's RSA private key.
type OperatorConfig struct {
	PrivateKeyFile string `yaml:"private_key_file"` // PEM, relative to the config file
}

// RetryConfig bounds retries inside one request.
type RetryConfig struct {
	BlockhashAttempts int           `yaml:"blockhash_attempts"` // getLatestBlockhash calls on network errors
	BlockhashRestarts int           `yaml:"blockhash_restarts"` // rebuilds after "blockhash not found"; negative disables
	SubmitAttempts    int           `yaml:"submit_attempts"`    // sendTransaction calls per signature
	Interval          time.Duration `yaml:"interval"`           // initial backoff
	SubmitTimeout     time.Duration `yaml:"submit_timeout"`
	ConfirmTimeout    time.Duration `yaml:"confirm_timeout"`
}

// ExplorerConfig shapes the explorer link in results.
type ExplorerConfig struct {
	Network string `yaml:"network"` // host suffix after "explorer.", e.g. solana.com
	Cluster string `yaml:"cluster"` // devnet / testnet; empty for mainnet
}

// RedisConfig is shared by the idempotency store and the redis bus.
type RedisConfig struct {
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"key_prefix"`
}

// StorageConfig selects where audit records and claims live.
type StorageConfig struct {
	Backend          string        `yaml:"backend"`            // memory / database
	PostgresDSN      string        `yaml:"postgres_dsn"`       // transfer records
	PostgresMaxConns int32         `yaml:"postgres_max_conns"` // 0 keeps the pgx default
	ClickHouseDSN    string        `yaml:"clickhouse_dsn"`     // stage events
	Migrate          bool          `yaml:"migrate"`            // apply embedded migrations on start
	Redis            RedisConfig   `yaml:"redis"`              // idempotency claims; memory when addr is empty
	ClaimTTL         time.Duration `yaml:"claim_ttl"`          // how long a request id stays claimed
}

// BusConfig selects the agent messaging transport.
type BusConfig struct {
	Driver       string `yaml:"driver"` // memory / rabbitmq / redis
	RabbitMQURL  string `yaml:"rabbitmq_url"`
	RequestQueue string `yaml:"request_queue"`
	ResultQueue  string `yaml:"result_queue"`
	Workers      int    `yaml:"workers"`
	Prefetch     int    `yaml:"prefetch"`
	Durable      bool   `yaml:"durable"`
}

// ServerConfig is the HTTP side channel: health, metrics and status.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Config is the main configuration of the operator service.
type Config struct {
	Log      LogConfig      `yaml:"logger"`
	Solana   SolanaConfig   `yaml:"solana"`
	Operator OperatorConfig `yaml:"operator"`
	Retry    RetryConfig    `yaml:"retry"`
	Explorer ExplorerConfig `yaml:"explorer"`
	Storage  StorageConfig  `yaml:"storage"`
	Bus      BusConfig      `yaml:"bus"`
	Server   ServerConfig   `yaml:"server"`
}

// Load reads the YAML file at path (optional), applies defaults and
// environment overrides, and validates the result. A .env file in the
// working directory is loaded first; it never overrides variables already set.
func Load(path string) (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	cfg := &Config{}
	baseDir, _ := os.Getwd()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
		baseDir = filepath.Dir(path)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults(baseDir)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// applyEnv lets deployment secrets and endpoints live outside the file.
func (c *Config) applyEnv() error {
	str := map[string]*string{
		"SOLANA_RPC_ENDPOINT":       &c.Solana.RPCEndpoint,
		"SOLANA_WS_ENDPOINT":        &c.Solana.WSEndpoint,
		"POSTGRES_DSN":              &c.Storage.PostgresDSN,
		"CLICKHOUSE_DSN":            &c.Storage.ClickHouseDSN,
		"REDIS_ADDR":                &c.Storage.Redis.Addr,
		"REDIS_PASSWORD":            &c.Storage.Redis.Password,
		"RABBITMQ_URL":              &c.Bus.RabbitMQURL,
		"OPERATOR_PRIVATE_KEY_FILE": &c.Operator.PrivateKeyFile,
		"OPERATOR_BUS_DRIVER":       &c.Bus.Driver,
		"OPERATOR_STORAGE_BACKEND":  &c.Storage.Backend,
	}
	for name, dst := range str {
		if v, ok := os.LookupEnv(name); ok && v != "" {
			*dst = v
		}
	}

	if v := os.Getenv("OPERATOR_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("OPERATOR_WORKERS: %w", err)
		}
		c.Bus.Workers = n
	}
	return nil
}

func (c *Config) applyDefaults(baseDir string) {
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	c.Log.LogDir = resolve(baseDir, c.Log.LogDir)

	if c.Solana.Commitment == "" {
		c.Solana.Commitment = "confirmed"
	}
	if c.Solana.Timeout <= 0 {
		c.Solana.Timeout = 15 * time.Second
	}

	c.Operator.PrivateKeyFile = resolve(baseDir, c.Operator.PrivateKeyFile)

	if c.Explorer.Network == "" {
		c.Explorer.Network = "solana.com"
		if c.Explorer.Cluster == "" {
			c.Explorer.Cluster = "devnet"
		}
	}

	if c.Storage.Backend == "" {
		c.Storage.Backend = StorageMemory
	}
	if c.Storage.ClaimTTL <= 0 {
		c.Storage.ClaimTTL = 24 * time.Hour
	}

	c.Bus.Driver = strings.ToLower(c.Bus.Driver)
	if c.Bus.Driver == "" {
		c.Bus.Driver = BusMemory
	}
	if c.Bus.Workers <= 0 {
		c.Bus.Workers = 4
	}

	if c.Server.Addr == "" {
		c.Server.Addr = ":9090"
	}
	if c.Server.ShutdownTimeout <= 0 {
		c.Server.ShutdownTimeout = 30 * time.Second
	}
}

func resolve(baseDir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(baseDir, p)
}

// Validate reports the first missing or inconsistent setting.
func (c *Config) Validate() error {
	if c.Solana.RPCEndpoint == "" {
		return errors.New("solana.rpc_endpoint is required")
	}
	if c.Operator.PrivateKeyFile == "" {
		return errors.New("operator.private_key_file is required")
	}

	switch c.Storage.Backend {
	case StorageMemory:
	case StorageDatabase:
		if c.Storage.PostgresDSN == "" || c.Storage.ClickHouseDSN == "" {
			return errors.New("storage.postgres_dsn and storage.clickhouse_dsn are required for the database backend")
		}
	default:
		return fmt.Errorf("unknown storage.backend %q", c.Storage.Backend)
	}

	switch c.Bus.Driver {
	case BusMemory:
	case BusRabbitMQ:
		if c.Bus.RabbitMQURL == "" {
			return errors.New("bus.rabbitmq_url is required for the rabbitmq driver")
		}
	case BusRedis:
		if c.Storage.Redis.Addr == "" {
			return errors.New("storage.redis.addr is required for the redis driver")
		}
	default:
		return fmt.Errorf("unknown bus.driver %q", c.Bus.Driver)
	}
	return nil
}
