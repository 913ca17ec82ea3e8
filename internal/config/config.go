// Package config provides configuration management for the trading pipeline.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Chain       ChainConfig    `mapstructure:"chain"`
	ZeroEx      ZeroExConfig   `mapstructure:"zeroex"`
	MarketData  MarketConfig   `mapstructure:"market_data"`
	Models      []ModelConfig  `mapstructure:"models"`
	Contracts   Contracts      `mapstructure:"contracts"`
	Lending     LendingConfig  `mapstructure:"lending"`
	Pipeline    PipelineConfig `mapstructure:"pipeline"`
	Store       StoreConfig    `mapstructure:"store"`
	Log         LogConfig      `mapstructure:"log"`
}

// ChainConfig holds RPC endpoint and wallet configuration.
type ChainConfig struct {
	RPCURL     string `mapstructure:"rpc_url"`
	ChainID    int64  `mapstructure:"chain_id"`
	PrivateKey string `mapstructure:"private_key"` // hex, no 0x prefix
}

// ZeroExConfig holds swap-aggregator API configuration.
type ZeroExConfig struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
}

// MarketConfig holds market-data provider configuration.
type MarketConfig struct {
	BaseURL string   `mapstructure:"base_url"`
	APIKey  string   `mapstructure:"api_key"`
	Pairs   []string `mapstructure:"pairs"`
	// Resolution in minutes per candle; "240" gives 4-hour periods so
	// the 6/42/180 lookbacks cover 1/7/30 days.
	Resolution string `mapstructure:"resolution"`
	// LookbackDays bounds the history window fetched per cycle.
	LookbackDays int `mapstructure:"lookback_days"`
}

// ModelConfig holds one OpenAI-compatible forecasting endpoint.
type ModelConfig struct {
	Name    string `mapstructure:"name"`
	BaseURL string `mapstructure:"base_url"` // empty means api.openai.com
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
}

// TokenConfig holds one token's address and decimal precision.
type TokenConfig struct {
	Address  string `mapstructure:"address"`
	Decimals int    `mapstructure:"decimals"`
}

// Contracts holds the trading-side contract addresses.
type Contracts struct {
	USDT    TokenConfig `mapstructure:"usdt"`
	WBTC    TokenConfig `mapstructure:"wbtc"`
	Permit2 string      `mapstructure:"permit2"`
}

// LendingConfig holds the lending-protocol contract addresses.
type LendingConfig struct {
	ETokens          map[string]TokenConfig `mapstructure:"etokens"`
	PTokens          map[string]TokenConfig `mapstructure:"ptokens"`
	UniversalBalance string                 `mapstructure:"universal_balance"`
	DelegateAddress  string                 `mapstructure:"delegate_address"`
}

// PipelineConfig holds decision-cycle tuning.
type PipelineConfig struct {
	// Timeouts are applied per external-call category so that one
	// stalled provider cannot stall unrelated instruments or sources.
	FetchTimeout   time.Duration `mapstructure:"fetch_timeout"`
	InferTimeout   time.Duration `mapstructure:"infer_timeout"`
	ConfirmTimeout time.Duration `mapstructure:"confirm_timeout"`

	HighRiskSizePercent float64       `mapstructure:"high_risk_size_percent"`
	LowRiskSizePercent  float64       `mapstructure:"low_risk_size_percent"`
	RateDriftTolerance  float64       `mapstructure:"rate_drift_tolerance"`
	MinBuyAmount        string        `mapstructure:"min_buy_amount"`
	MinSellAmount       string        `mapstructure:"min_sell_amount"`
	LoopInterval        time.Duration `mapstructure:"loop_interval"`
}

// StoreConfig holds persistence configuration.
type StoreConfig struct {
	Path string `mapstructure:"path"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level    string `mapstructure:"level"`
	Console  bool   `mapstructure:"console"`
	File     bool   `mapstructure:"file"`
	FilePath string `mapstructure:"file_path"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/monad-trader"
	}
	return filepath.Join(home, ".config", "monad-trader")
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config.toml: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("market_data.pairs", []string{"BTCUSD", "ETHUSD", "SOLUSD"})
	v.SetDefault("market_data.resolution", "240")
	v.SetDefault("market_data.lookback_days", 35)

	v.SetDefault("pipeline.fetch_timeout", "30s")
	v.SetDefault("pipeline.infer_timeout", "90s")
	v.SetDefault("pipeline.confirm_timeout", "3m")
	v.SetDefault("pipeline.high_risk_size_percent", 5.0)
	v.SetDefault("pipeline.low_risk_size_percent", 10.0)
	v.SetDefault("pipeline.rate_drift_tolerance", 0.10)
	v.SetDefault("pipeline.min_buy_amount", "1")
	v.SetDefault("pipeline.min_sell_amount", "0.0001")
	v.SetDefault("pipeline.loop_interval", "1h")

	v.SetDefault("store.path", filepath.Join(DefaultConfigDir(), "trader.db"))

	v.SetDefault("log.level", "info")
	v.SetDefault("log.console", true)
	v.SetDefault("log.file", true)
	v.SetDefault("log.file_path", filepath.Join(DefaultConfigDir(), "logs", "trader.log"))
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("RPC_URL"); v != "" {
		cfg.Chain.RPCURL = v
	}
	if v := os.Getenv("PRIVATE_KEY"); v != "" {
		cfg.Chain.PrivateKey = v
	}
	if v := os.Getenv("ZERO_EX_API_KEY"); v != "" {
		cfg.ZeroEx.APIKey = v
	}
	if v := os.Getenv("STORK_API_KEY"); v != "" {
		cfg.MarketData.APIKey = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		for i := range cfg.Models {
			if cfg.Models[i].BaseURL == "" && cfg.Models[i].APIKey == "" {
				cfg.Models[i].APIKey = v
			}
		}
	}
	if v := os.Getenv("DEEPSEEK_API_KEY"); v != "" {
		for i := range cfg.Models {
			if cfg.Models[i].BaseURL != "" && cfg.Models[i].APIKey == "" {
				cfg.Models[i].APIKey = v
			}
		}
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Chain.RPCURL == "" {
		return fmt.Errorf("missing RPC_URL")
	}
	if c.Chain.PrivateKey == "" {
		return fmt.Errorf("missing PRIVATE_KEY")
	}
	if c.ZeroEx.APIKey == "" {
		return fmt.Errorf("missing ZERO_EX_API_KEY")
	}
	if len(c.Models) == 0 {
		return fmt.Errorf("at least one forecasting model must be configured")
	}
	for _, m := range c.Models {
		if m.Name == "" || m.Model == "" {
			return fmt.Errorf("model entries require name and model")
		}
	}
	if c.Pipeline.HighRiskSizePercent <= 0 || c.Pipeline.HighRiskSizePercent > 100 {
		return fmt.Errorf("high_risk_size_percent must be in (0, 100]")
	}
	if c.Pipeline.LowRiskSizePercent <= 0 || c.Pipeline.LowRiskSizePercent > 100 {
		return fmt.Errorf("low_risk_size_percent must be in (0, 100]")
	}
	if c.Pipeline.RateDriftTolerance < 0 || c.Pipeline.RateDriftTolerance > 1 {
		return fmt.Errorf("rate_drift_tolerance must be in [0, 1]")
	}
	return nil
}
