package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/feral-file/ff-marketplace/internal/domain"
)

// BaseConfig holds base configuration
type BaseConfig struct {
	Debug     bool   `mapstructure:"debug"`
	SentryDSN string `mapstructure:"sentry_dsn"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadHost        string        `mapstructure:"read_host"`
	ReadPort        int           `mapstructure:"read_port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`     // Maximum number of open connections to the database
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`     // Maximum number of idle connections in the pool
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`  // Maximum amount of time a connection may be reused (e.g., "5m", "1h")
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"` // Maximum amount of time a connection may be idle (e.g., "10m", "30m")
}

// NATSConfig holds NATS JetStream configuration
type NATSConfig struct {
	URL            string        `mapstructure:"url"`
	StreamName     string        `mapstructure:"stream_name"`
	ConsumerName   string        `mapstructure:"consumer_name"`
	MaxReconnects  int           `mapstructure:"max_reconnects"`
	ReconnectWait  time.Duration `mapstructure:"reconnect_wait"`
	ConnectionName string        `mapstructure:"connection_name"`
	AckWait        time.Duration `mapstructure:"ack_wait"`
	MaxDeliver     int           `mapstructure:"max_deliver"`
}

// EthereumConfig holds the connection settings of one EVM chain
type EthereumConfig struct {
	WebSocketURL string       `mapstructure:"websocket_url"`
	RPCURL       string       `mapstructure:"rpc_url"`
	ChainID      domain.Chain `mapstructure:"chain_id"`
	StartBlock   uint64       `mapstructure:"start_block"`
	// Contracts are the ERC-721 contracts the event emitter listens to
	Contracts []string `mapstructure:"contracts"`
}

// Enabled reports whether an RPC endpoint is configured
func (c *EthereumConfig) Enabled() bool {
	return c.RPCURL != ""
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`  // in seconds
	WriteTimeout int    `mapstructure:"write_timeout"` // in seconds
	IdleTimeout  int    `mapstructure:"idle_timeout"`  // in seconds
}

// AuthConfig holds wallet authentication configuration
type AuthConfig struct {
	JWTPublicKey  string        `mapstructure:"jwt_public_key"`
	JWTPrivateKey string        `mapstructure:"jwt_private_key"`
	JWTIssuer     string        `mapstructure:"jwt_issuer"`
	TokenTTL      time.Duration `mapstructure:"token_ttl"`
	NonceTTL      time.Duration `mapstructure:"nonce_ttl"`
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Enabled reports whether a Redis address is configured
func (c *RedisConfig) Enabled() bool {
	return c.Addr != ""
}

// RateLimitConfig holds API rate limiting configuration
type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Requests int           `mapstructure:"requests"`
	Period   time.Duration `mapstructure:"period"`
}

// WorkerConfig holds worker configuration
type WorkerConfig struct {
	WorkerPoolSize  int `mapstructure:"pool_size"`
	WorkerQueueSize int `mapstructure:"queue_size"`
}

// MarketplaceConfig holds the timeouts of ledger calls made by marketplace operations
type MarketplaceConfig struct {
	OwnershipTimeout       time.Duration `mapstructure:"ownership_timeout"`
	MonitorTimeout         time.Duration `mapstructure:"monitor_timeout"`
	MonitorInitialInterval time.Duration `mapstructure:"monitor_initial_interval"`
	MonitorMaxInterval     time.Duration `mapstructure:"monitor_max_interval"`
}

// CursorConfig holds how often the emitter persists its block cursor
type CursorConfig struct {
	SaveFreq  uint64        `mapstructure:"save_freq"`
	SaveDelay time.Duration `mapstructure:"save_delay"`
}

// EthereumEmitterConfig holds configuration for ethereum-event-emitter
type EthereumEmitterConfig struct {
	BaseConfig `mapstructure:",squash"`
	Database   DatabaseConfig `mapstructure:"database"`
	NATS       NATSConfig     `mapstructure:"nats"`
	Ethereum   EthereumConfig `mapstructure:"ethereum"`
	Cursor     CursorConfig   `mapstructure:"cursor"`
}

// IndexerConfig holds configuration for the indexer
type IndexerConfig struct {
	BaseConfig `mapstructure:",squash"`
	Worker     WorkerConfig   `mapstructure:"worker"`
	Database   DatabaseConfig `mapstructure:"database"`
	NATS       NATSConfig     `mapstructure:"nats"`
	Redis      RedisConfig    `mapstructure:"redis"`
}

// APIConfig holds configuration for API server
type APIConfig struct {
	BaseConfig  `mapstructure:",squash"`
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Auth        AuthConfig        `mapstructure:"auth"`
	Redis       RedisConfig       `mapstructure:"redis"`
	RateLimit   RateLimitConfig   `mapstructure:"rate_limit"`
	Marketplace MarketplaceConfig `mapstructure:"marketplace"`
	Ethereum    EthereumConfig    `mapstructure:"ethereum"`
	Polygon     EthereumConfig    `mapstructure:"polygon"`
}

// Chains returns the configured chains that have an RPC endpoint
func (c *APIConfig) Chains() []EthereumConfig {
	return enabledChains(c.Ethereum, c.Polygon)
}

// MarketctlConfig holds configuration for the marketctl operator CLI
type MarketctlConfig struct {
	BaseConfig  `mapstructure:",squash"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Marketplace MarketplaceConfig `mapstructure:"marketplace"`
	Ethereum    EthereumConfig    `mapstructure:"ethereum"`
	Polygon     EthereumConfig    `mapstructure:"polygon"`
}

// Chains returns the configured chains that have an RPC endpoint
func (c *MarketctlConfig) Chains() []EthereumConfig {
	return enabledChains(c.Ethereum, c.Polygon)
}

func enabledChains(chains ...EthereumConfig) []EthereumConfig {
	var enabled []EthereumConfig
	for _, c := range chains {
		if c.Enabled() {
			enabled = append(enabled, c)
		}
	}
	return enabled
}

// setMarketplaceDefaults sets the defaults shared by every binary that runs marketplace operations
func setMarketplaceDefaults(v *viper.Viper) {
	v.SetDefault("marketplace.ownership_timeout", "10s")
	v.SetDefault("marketplace.monitor_timeout", "2m")
	v.SetDefault("marketplace.monitor_initial_interval", "1s")
	v.SetDefault("marketplace.monitor_max_interval", "15s")
	v.SetDefault("ethereum.chain_id", "eip155:1")
	v.SetDefault("polygon.chain_id", "eip155:137")
}

// readConfig reads the config file, falling back to environment variables when none exists
func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			// Config file not found, use environment variables
			return nil
		}
		return fmt.Errorf("failed to read config: %w", err)
	}
	return nil
}

// LoadEthereumEmitterConfig loads configuration for ethereum-event-emitter
func LoadEthereumEmitterConfig(configFile string, envPath string) (*EthereumEmitterConfig, error) {
	v := configureViper("ethereum-event-emitter", configFile, envPath)

	// Set defaults
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("nats.max_reconnects", 10)
	v.SetDefault("nats.reconnect_wait", "2s")
	v.SetDefault("nats.stream_name", "MARKETPLACE_EVENTS")
	v.SetDefault("ethereum.chain_id", "eip155:1")
	v.SetDefault("cursor.save_freq", 10)
	v.SetDefault("cursor.save_delay", "30s")

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var config EthereumEmitterConfig
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if !domain.IsValidChain(config.Ethereum.ChainID) {
		return nil, fmt.Errorf("unsupported ethereum.chain_id: %s", config.Ethereum.ChainID)
	}
	if len(config.Ethereum.Contracts) == 0 {
		return nil, fmt.Errorf("ethereum.contracts is required")
	}
	for _, contract := range config.Ethereum.Contracts {
		if !domain.IsValidAddress(contract) {
			return nil, fmt.Errorf("invalid ethereum.contracts address: %s", contract)
		}
	}

	return &config, nil
}

// LoadIndexerConfig loads configuration for the indexer
func LoadIndexerConfig(configFile string, envPath string) (*IndexerConfig, error) {
	v := configureViper("indexer", configFile, envPath)

	// Set defaults
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("nats.max_reconnects", 10)
	v.SetDefault("nats.reconnect_wait", "2s")
	v.SetDefault("nats.stream_name", "MARKETPLACE_EVENTS")
	v.SetDefault("nats.consumer_name", "indexer")
	v.SetDefault("nats.ack_wait", "30s")
	v.SetDefault("nats.max_deliver", 5)
	v.SetDefault("worker.pool_size", 20)
	v.SetDefault("worker.queue_size", 2048)

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var config IndexerConfig
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

// LoadAPIConfig loads configuration for API server
func LoadAPIConfig(configFile string, envPath string) (*APIConfig, error) {
	v := configureViper("api", configFile, envPath)

	// Set defaults
	v.SetDefault("debug", false)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 150)
	v.SetDefault("server.idle_timeout", 120)
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("auth.jwt_issuer", "ff-marketplace")
	v.SetDefault("auth.token_ttl", "24h")
	v.SetDefault("auth.nonce_ttl", "5m")
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests", 100)
	v.SetDefault("rate_limit.period", "15m")
	setMarketplaceDefaults(v)

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var config APIConfig
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

// LoadMarketctlConfig loads configuration for the marketctl operator CLI
func LoadMarketctlConfig(configFile string, envPath string) (*MarketctlConfig, error) {
	v := configureViper("marketctl", configFile, envPath)

	// Set defaults
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 5)
	v.SetDefault("database.max_idle_conns", 2)
	setMarketplaceDefaults(v)

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg MarketctlConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate required fields
	if cfg.Database.Host == "" {
		return nil, errors.New("database.host is required")
	}
	if cfg.Database.DBName == "" {
		return nil, errors.New("database.dbname is required")
	}

	return &cfg, nil
}

// configureViper returns a viper instance with the config file and environment variables set
func configureViper(service string, configFile string, envPath string) *viper.Viper {
	v := viper.New()

	// Load environment variables
	loadEnv(envPath, service)

	// Set config file
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		// Search for config.yaml in multiple locations:
		// 1. Current directory
		v.AddConfigPath(".")
		// 2. Service-specific directory (e.g., cmd/api/, cmd/indexer/)
		v.AddConfigPath(fmt.Sprintf("cmd/%s/", service))
		// 3. Config directory
		v.AddConfigPath("config/")
	}

	// Set environment variables
	v.SetEnvPrefix("FF_MARKET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Explicitly bind all environment variables
	bindAllEnvVars(v)
	return v
}

// bindAllEnvVars explicitly binds all possible environment variables
// This is required for viper to map env vars to config struct fields when no config file exists
func bindAllEnvVars(v *viper.Viper) {
	commonKeys := []string{
		"debug",
		"sentry_dsn",
		// Database
		"database.host",
		"database.port",
		"database.read_host",
		"database.read_port",
		"database.user",
		"database.password",
		"database.dbname",
		"database.sslmode",
		"database.max_open_conns",
		"database.max_idle_conns",
		"database.conn_max_lifetime",
		"database.conn_max_idle_time",
		// NATS
		"nats.url",
		"nats.stream_name",
		"nats.consumer_name",
		"nats.max_reconnects",
		"nats.reconnect_wait",
		"nats.connection_name",
		"nats.ack_wait",
		"nats.max_deliver",
		// Chains
		"ethereum.websocket_url",
		"ethereum.rpc_url",
		"ethereum.chain_id",
		"ethereum.start_block",
		"ethereum.contracts",
		"polygon.websocket_url",
		"polygon.rpc_url",
		"polygon.chain_id",
		"polygon.start_block",
		// Server
		"server.host",
		"server.port",
		"server.read_timeout",
		"server.write_timeout",
		"server.idle_timeout",
		// Auth
		"auth.jwt_public_key",
		"auth.jwt_private_key",
		"auth.jwt_issuer",
		"auth.token_ttl",
		"auth.nonce_ttl",
		// Redis
		"redis.addr",
		"redis.password",
		"redis.db",
		// Rate limit
		"rate_limit.enabled",
		"rate_limit.requests",
		"rate_limit.period",
		// Marketplace
		"marketplace.ownership_timeout",
		"marketplace.monitor_timeout",
		"marketplace.monitor_initial_interval",
		"marketplace.monitor_max_interval",
		// Emitter cursor
		"cursor.save_freq",
		"cursor.save_delay",
		// Internal Worker config
		"worker.pool_size",
		"worker.queue_size",
	}

	for _, key := range commonKeys {
		_ = v.BindEnv(key)
	}
}

// loadEnv loads environment variables from the config directory
func loadEnv(envPath string, service string) {
	// Always try shared base first, then local, then optional per-service local.
	envFiles := []string{".env", ".env.local"}
	if service != "" {
		envFiles = append(envFiles, ".env."+service+".local")
	}

	// Default to config directory
	if envPath == "" {
		envPath = "config/"
	}

	for _, envFile := range envFiles {
		candidate := filepath.Join(envPath, envFile)
		_ = godotenv.Overload(candidate) // Overload lets later files override earlier ones
	}
}

// ChdirRepoRoot changes the current working directory to the repository root
func ChdirRepoRoot() {
	cwd, _ := os.Getwd()
	for range 5 {
		if _, err := os.Stat(filepath.Join(cwd, "config")); err == nil {
			_ = os.Chdir(cwd)
			return
		}
		cwd = filepath.Dir(cwd)
	}
}

// DSN returns the database connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// ReadDSN returns the read-replica database connection string, empty when no replica is configured.
// If ReadPort is not configured, it falls back to Port.
func (c *DatabaseConfig) ReadDSN() string {
	if c.ReadHost == "" {
		return ""
	}

	port := c.ReadPort
	if port == 0 {
		port = c.Port
	}

	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.ReadHost, port, c.User, c.Password, c.DBName, c.SSLMode)
}
