// Package config loads configuration of the bank tools from file and
// environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// EnvPrefix is a prefix of environment variables overriding configuration,
// e.g. BANK_RPC_ENDPOINT for rpc.endpoint.
const EnvPrefix = "BANK"

// Config groups settings of the bank tools.
type Config struct {
	RPC      RPC      `mapstructure:"rpc"`
	Wallet   Wallet   `mapstructure:"wallet"`
	Contract Contract `mapstructure:"contract"`
	Journal  Journal  `mapstructure:"journal"`
	Server   Server   `mapstructure:"server"`
	Logger   Logger   `mapstructure:"logger"`
}

// RPC configures connection to the Neo node.
type RPC struct {
	// HTTP(S) endpoint, WebSocket endpoint is derived from it by the client.
	Endpoint    string        `mapstructure:"endpoint"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
	// Timeout of waiting for transaction acceptance.
	WaitTimeout time.Duration `mapstructure:"wait_timeout"`
}

// Wallet configures NEP-6 wallet used for transaction signing.
type Wallet struct {
	Path string `mapstructure:"path"`
	// Account address, the default wallet account is used if empty.
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
}

// Contract configures the bank contract.
type Contract struct {
	// Address of the deployed contract (LE hex).
	Hash string `mapstructure:"hash"`
	// Directory with compiled contract.nef and manifest.json.
	Dir string `mapstructure:"dir"`
	// Currency token address (LE hex) passed on deployment.
	Currency string `mapstructure:"currency"`
}

// Journal configures the event journal.
type Journal struct {
	Path string `mapstructure:"path"`
}

// Server configures the read API.
type Server struct {
	Address         string        `mapstructure:"address"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Logger configures the logger.
type Logger struct {
	Level string `mapstructure:"level"`
}

// gasHash is an address of the native GAS contract.
const gasHash = "d2a4cff31913016155e38e474a2c06d08be276cf"

// SetDefaults sets default values of all settings.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("rpc.endpoint", "http://localhost:30333")
	v.SetDefault("rpc.dial_timeout", 5*time.Second)
	v.SetDefault("rpc.wait_timeout", time.Minute)
	v.SetDefault("wallet.path", "wallet.json")
	v.SetDefault("wallet.address", "")
	v.SetDefault("wallet.password", "")
	v.SetDefault("contract.hash", "")
	v.SetDefault("contract.dir", "contracts/bank")
	v.SetDefault("contract.currency", gasHash)
	v.SetDefault("journal.path", "bank-journal.db")
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.shutdown_timeout", 5*time.Second)
	v.SetDefault("logger.level", "info")
}

// Load reads configuration from the given YAML file (if set), environment and
// defaults. Missing file is an error only if it is explicitly set.
func Load(v *viper.Viper, file string) (*Config, error) {
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("bank")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var cfgNotFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &cfgNotFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if cfg.RPC.Endpoint == "" {
		return nil, errors.New("empty RPC endpoint")
	}

	return &cfg, nil
}

// ContractHash returns configured bank contract address.
func (c *Config) ContractHash() (util.Uint160, error) {
	if c.Contract.Hash == "" {
		return util.Uint160{}, errors.New("bank contract address is not configured")
	}

	h, err := util.Uint160DecodeStringLE(strings.TrimPrefix(c.Contract.Hash, "0x"))
	if err != nil {
		return util.Uint160{}, fmt.Errorf("invalid bank contract address: %w", err)
	}

	return h, nil
}

// CurrencyHash returns configured currency token address.
func (c *Config) CurrencyHash() (util.Uint160, error) {
	h, err := util.Uint160DecodeStringLE(strings.TrimPrefix(c.Contract.Currency, "0x"))
	if err != nil {
		return util.Uint160{}, fmt.Errorf("invalid currency address: %w", err)
	}

	return h, nil
}

// NewLogger creates production zap logger with the configured level.
func (c *Config) NewLogger() (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(c.Logger.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid logger level: %w", err)
	}

	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(lvl)

	return zc.Build()
}
