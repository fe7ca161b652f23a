package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Aave      AaveConfig      `mapstructure:"aave"`
	Etherscan EtherscanConfig `mapstructure:"etherscan"`
	History   HistoryConfig   `mapstructure:"history"`
	Position  PositionConfig  `mapstructure:"position"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Neo4J     Neo4JConfig     `mapstructure:"neo4j"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

// AppConfig represents application-specific configuration
type AppConfig struct {
	Env            string `mapstructure:"env"`
	LogLevel       string `mapstructure:"log_level"`
	HTTPPort       int    `mapstructure:"http_port"`
	WorkerPoolSize int    `mapstructure:"worker_pool_size"`
	ExportDir      string `mapstructure:"export_dir"`
	TopMarkets     int    `mapstructure:"top_markets"`
}

// AaveConfig represents the Aave GraphQL market data source
type AaveConfig struct {
	GraphQLURL string        `mapstructure:"graphql_url"`
	ChainID    int           `mapstructure:"chain_id"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// EtherscanConfig represents the Etherscan v2 transaction history source
type EtherscanConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	APIKey            string        `mapstructure:"api_key"`
	ChainID           int           `mapstructure:"chain_id"`
	TxLimit           int           `mapstructure:"tx_limit"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
}

// HistoryConfig selects where wallet transaction history is read from
type HistoryConfig struct {
	Source string `mapstructure:"source"` // etherscan | neo4j
}

// History sources
const (
	HistorySourceEtherscan = "etherscan"
	HistorySourceNeo4J     = "neo4j"
)

// PositionConfig is the sample lending position used when a request carries none
type PositionConfig struct {
	CollateralUSD        float64 `mapstructure:"collateral_usd"`
	DebtUSD              float64 `mapstructure:"debt_usd"`
	LiquidationThreshold float64 `mapstructure:"liquidation_threshold"`
}

// NATSConfig represents NATS configuration
type NATSConfig struct {
	URL                string        `mapstructure:"url"`
	StreamName         string        `mapstructure:"stream_name"`
	SubjectPrefix      string        `mapstructure:"subject_prefix"`
	ConsumerGroup      string        `mapstructure:"consumer_group"`
	DurableName        string        `mapstructure:"durable_name"`
	ConnectTimeout     time.Duration `mapstructure:"connect_timeout"`
	ReconnectAttempts  int           `mapstructure:"reconnect_attempts"`
	ReconnectDelay     time.Duration `mapstructure:"reconnect_delay"`
	MaxPendingMessages int           `mapstructure:"max_pending_messages"`
	Enabled            bool          `mapstructure:"enabled"`
}

// Neo4JConfig represents Neo4J configuration
type Neo4JConfig struct {
	URI                          string        `mapstructure:"uri"`
	Username                     string        `mapstructure:"username"`
	Password                     string        `mapstructure:"password"`
	Database                     string        `mapstructure:"database"`
	MaxConnectionPoolSize        int           `mapstructure:"max_connection_pool_size"`
	ConnectionAcquisitionTimeout time.Duration `mapstructure:"connection_acquisition_timeout"`
}

// MetricsConfig represents metrics configuration
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// Load loads configuration from .env, environment variables and files.
// An explicit path takes precedence over the search paths.
func Load(path string) (*Config, error) {
	// .env is optional; variables may be injected directly
	_ = godotenv.Load()

	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/defi-risk-engine")
	}

	// Map environment variables to nested config keys
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, err
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.env", "development")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.http_port", 8080)
	v.SetDefault("app.worker_pool_size", 4)
	v.SetDefault("app.export_dir", ".")
	v.SetDefault("app.top_markets", 10)

	// Aave defaults
	v.SetDefault("aave.graphql_url", "https://api.v3.aave.com/graphql")
	v.SetDefault("aave.chain_id", 1)
	v.SetDefault("aave.timeout", "15s")

	// Etherscan defaults
	v.SetDefault("etherscan.base_url", "https://api.etherscan.io/v2/api")
	v.SetDefault("etherscan.api_key", "")
	v.SetDefault("etherscan.chain_id", 1)
	v.SetDefault("etherscan.tx_limit", 50)
	v.SetDefault("etherscan.timeout", "10s")
	v.SetDefault("etherscan.requests_per_second", 5)
	v.SetDefault("etherscan.burst", 1)

	v.SetDefault("history.source", HistorySourceEtherscan)

	// Sample position
	v.SetDefault("position.collateral_usd", 10000)
	v.SetDefault("position.debt_usd", 5000)
	v.SetDefault("position.liquidation_threshold", 0.825)

	// NATS defaults
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.stream_name", "RISK_REPORTS")
	v.SetDefault("nats.subject_prefix", "risk")
	v.SetDefault("nats.consumer_group", "risk-engine")
	v.SetDefault("nats.durable_name", "risk-engine-worker")
	v.SetDefault("nats.connect_timeout", "10s")
	v.SetDefault("nats.reconnect_attempts", 5)
	v.SetDefault("nats.reconnect_delay", "2s")
	v.SetDefault("nats.max_pending_messages", 1000)
	v.SetDefault("nats.enabled", true)

	// Neo4J defaults
	v.SetDefault("neo4j.uri", "neo4j://localhost:7687")
	v.SetDefault("neo4j.username", "neo4j")
	v.SetDefault("neo4j.password", "password")
	v.SetDefault("neo4j.database", "neo4j")
	v.SetDefault("neo4j.max_connection_pool_size", 10)
	v.SetDefault("neo4j.connection_acquisition_timeout", "30s")

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)

	// Bind well-known env names
	v.BindEnv("etherscan.api_key", "ETHERSCAN_API_KEY")
	v.BindEnv("nats.url", "NATS_URL")
}
