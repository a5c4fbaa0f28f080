package config

import (
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/viper"
)

// Well-known program IDs used as defaults.
const (
	RaydiumAMMProgramID    = "675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8"
	WhirlpoolsProgramID    = "whirLbMiicVdio4qvUfM5KAg6Ct8VwpYzGff3uctyCc"
	DefaultMaxWhitelistLen = 100
)

// Config holds all configuration for the application
type Config struct {
	Solana   SolanaConfig   `mapstructure:"solana"`
	Log      LogConfig      `mapstructure:"log"`
	Program  ProgramConfig  `mapstructure:"program"`
	Database DatabaseConfig `mapstructure:"database"`
	Wallet   WalletConfig   `mapstructure:"wallet"`
	API      APIConfig      `mapstructure:"api"`
	Pools    PoolsConfig    `mapstructure:"pools"`
}

// SolanaConfig holds Solana-specific configuration
type SolanaConfig struct {
	RPC        string `mapstructure:"rpc"`
	WS         string `mapstructure:"ws"`
	Network    string `mapstructure:"network"`
	Commitment string `mapstructure:"commitment"`
	Timeout    int    `mapstructure:"timeout"` // in seconds
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or text
}

// ProgramConfig identifies the router deployment and the pool programs it may call.
type ProgramConfig struct {
	ProgramID           string `mapstructure:"program_id"`
	Whitelist           string `mapstructure:"whitelist"`
	Authority           string `mapstructure:"authority"` // owner the whitelist PDA is derived from
	RaydiumProgramID    string `mapstructure:"raydium_program_id"`
	WhirlpoolsProgramID string `mapstructure:"whirlpools_program_id"`
	MaxWhitelistSize    int    `mapstructure:"max_whitelist_size"`
}

// DatabaseConfig selects the backend that persists whitelist records and the swap journal.
type DatabaseConfig struct {
	Type     string         `mapstructure:"type"` // memory, postgres, mysql or mongodb; memory lasts one process
	Postgres PostgresConfig `mapstructure:"postgres"`
	MySQL    MySQLConfig    `mapstructure:"mysql"`
	MongoDB  MongoDBConfig  `mapstructure:"mongodb"`
}

// PostgresConfig holds PostgreSQL connection settings
type PostgresConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	Database        string `mapstructure:"database"`
	SSLMode         string `mapstructure:"ssl_mode"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"` // in seconds
}

// MySQLConfig holds MySQL connection settings
type MySQLConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	Database        string `mapstructure:"database"`
	SSLMode         string `mapstructure:"ssl_mode"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"` // in seconds
}

// MongoDBConfig holds MongoDB connection settings
type MongoDBConfig struct {
	URI            string `mapstructure:"uri"`
	Database       string `mapstructure:"database"`
	MaxPoolSize    uint64 `mapstructure:"max_pool_size"`
	MinPoolSize    uint64 `mapstructure:"min_pool_size"`
	ConnectTimeout int    `mapstructure:"connect_timeout"` // in seconds
}

// WalletConfig points at the keypair used to sign transactions
type WalletConfig struct {
	KeypairPath string `mapstructure:"keypair_path"`
}

// APIConfig holds the read-only HTTP API settings
type APIConfig struct {
	Listen string `mapstructure:"listen"`
}

// PoolsConfig points at the pool presets file
type PoolsConfig struct {
	PresetsFile string `mapstructure:"presets_file"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Solana: SolanaConfig{
			RPC:        "https://api.devnet.solana.com",
			Network:    "devnet",
			Commitment: "confirmed",
			Timeout:    30,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Program: ProgramConfig{
			RaydiumProgramID:    RaydiumAMMProgramID,
			WhirlpoolsProgramID: WhirlpoolsProgramID,
			MaxWhitelistSize:    DefaultMaxWhitelistLen,
		},
		Database: DatabaseConfig{
			Type: "memory",
			Postgres: PostgresConfig{
				Host:         "localhost",
				Port:         5432,
				User:         "postgres",
				Database:     "cpiswap",
				SSLMode:      "disable",
				MaxOpenConns: 10,
				MaxIdleConns: 2,
			},
			MySQL: MySQLConfig{
				Host:         "localhost",
				Port:         3306,
				User:         "root",
				Database:     "cpiswap",
				MaxOpenConns: 10,
				MaxIdleConns: 2,
			},
			MongoDB: MongoDBConfig{
				URI:            "mongodb://localhost:27017",
				Database:       "cpiswap",
				MaxPoolSize:    10,
				ConnectTimeout: 10,
			},
		},
		Wallet: WalletConfig{
			KeypairPath: "~/.config/solana/id.json",
		},
		API: APIConfig{
			Listen: "127.0.0.1:8080",
		},
	}
}

// Load loads configuration from file and environment
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if configPath != "" {
		viper.SetConfigFile(configPath)
	} else {
		viper.SetConfigName(".cpiswap")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME")
	}

	// Environment variables
	viper.SetEnvPrefix("CPISWAP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Read config file (ignore if not found)
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the values that the rest of the program parses.
func (c *Config) Validate() error {
	keys := map[string]string{
		"program.program_id":            c.Program.ProgramID,
		"program.whitelist":             c.Program.Whitelist,
		"program.authority":             c.Program.Authority,
		"program.raydium_program_id":    c.Program.RaydiumProgramID,
		"program.whirlpools_program_id": c.Program.WhirlpoolsProgramID,
	}
	for name, value := range keys {
		if value == "" {
			continue
		}
		if _, err := solana.PublicKeyFromBase58(value); err != nil {
			return fmt.Errorf("invalid %s %q: %w", name, value, err)
		}
	}

	if c.Program.MaxWhitelistSize <= 0 {
		return fmt.Errorf("program.max_whitelist_size must be positive, got %d", c.Program.MaxWhitelistSize)
	}

	switch c.Database.Type {
	case "", "memory", "postgres", "mysql", "mongodb":
	default:
		return fmt.Errorf("unsupported database type: %s", c.Database.Type)
	}

	switch c.Log.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("unsupported log format: %s", c.Log.Format)
	}

	return nil
}

// GetRPCEndpoint returns the RPC endpoint for the configured network
func (c *SolanaConfig) GetRPCEndpoint() string {
	if c.RPC != "" {
		return c.RPC
	}

	switch c.Network {
	case "mainnet", "mainnet-beta":
		return "https://api.mainnet-beta.solana.com"
	case "testnet":
		return "https://api.testnet.solana.com"
	case "localnet", "localhost":
		return "http://localhost:8899"
	default:
		return "https://api.devnet.solana.com"
	}
}

// GetWSEndpoint returns the websocket endpoint. An empty result means
// confirmations are polled over HTTP.
func (c *SolanaConfig) GetWSEndpoint() string {
	if c.WS != "" {
		return c.WS
	}
	switch c.Network {
	case "localnet", "localhost":
		return "ws://localhost:8900"
	}
	return ""
}
