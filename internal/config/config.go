// Package config handles configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/tathienbao/strategy-engine/internal/engine"
	"github.com/tathienbao/strategy-engine/internal/execution"
	"github.com/tathienbao/strategy-engine/internal/strategy"
	"github.com/tathienbao/strategy-engine/internal/types"
)

// Config represents the full application configuration.
type Config struct {
	Engine      EngineConfig      `yaml:"engine"`
	Strategy    StrategyConfig    `yaml:"strategy"`
	Data        DataConfig        `yaml:"data"`
	Execution   ExecutionConfig   `yaml:"execution"`
	Backtest    BacktestConfig    `yaml:"backtest"`
	Persistence PersistenceConfig `yaml:"persistence"`
	Alerting    AlertingConfig    `yaml:"alerting"`
	Metrics     MetricsConfig     `yaml:"metrics"`
}

// EngineConfig holds strategy-host settings.
type EngineConfig struct {
	TraderID              string `yaml:"trader_id"`
	StrategyID            string `yaml:"strategy_id"`
	IDTagTrader           string `yaml:"id_tag_trader"`
	IDTagStrategy         string `yaml:"id_tag_strategy"`
	FlattenOnSLReject     bool   `yaml:"flatten_on_sl_reject"`
	FlattenOnStop         bool   `yaml:"flatten_on_stop"`
	CancelAllOrdersOnStop bool   `yaml:"cancel_all_orders_on_stop"`
	BarCapacity           int    `yaml:"bar_capacity"`
}

// StrategyConfig holds sample-strategy settings.
type StrategyConfig struct {
	Symbol        string  `yaml:"symbol"`
	Venue         string  `yaml:"venue"`
	BarPeriod     int     `yaml:"bar_period"`
	BarResolution string  `yaml:"bar_resolution"` // second | minute | hour | day
	BarPriceType  string  `yaml:"bar_price_type"` // bid | ask | mid | last
	FastPeriod    int     `yaml:"fast_period"`
	SlowPeriod    int     `yaml:"slow_period"`
	ATRPeriod     int     `yaml:"atr_period"`
	ATRMultiplier float64 `yaml:"atr_multiplier"`
	TradeSize     float64 `yaml:"trade_size"`
}

// DataConfig holds market-data settings.
type DataConfig struct {
	CSVPath  string  `yaml:"csv_path"`
	TickSize float64 `yaml:"tick_size"`
}

// ExecutionConfig holds simulated-venue settings.
type ExecutionConfig struct {
	InitialBalance    float64 `yaml:"initial_balance"`
	Currency          string  `yaml:"currency"`
	SlippageTicks     int     `yaml:"slippage_ticks"`
	CommissionPerSide float64 `yaml:"commission_per_side"`
	RateLimitPerSec   int     `yaml:"rate_limit_per_sec"`
}

// BacktestConfig holds backtest window settings.
type BacktestConfig struct {
	StartTime string `yaml:"start_time"` // RFC 3339, empty means from first bar
	EndTime   string `yaml:"end_time"`   // RFC 3339, empty means to last bar
}

// PersistenceConfig holds persistence settings.
type PersistenceConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"` // sqlite database file
}

// AlertingConfig holds alerting settings.
type AlertingConfig struct {
	Enabled  bool            `yaml:"enabled"`
	Channels []ChannelConfig `yaml:"channels"`
}

// ChannelConfig holds a single alert channel configuration.
type ChannelConfig struct {
	Type     string `yaml:"type"` // console | telegram
	BotToken string `yaml:"bot_token"`
	ChatID   string `yaml:"chat_id"`
}

// MetricsConfig holds metrics settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Port    int    `yaml:"port"`
	Path    string `yaml:"path"`
}

// Load loads configuration from a YAML file. Environment variables in
// the file are expanded before parsing.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return LoadFromBytes(data)
}

// LoadFromBytes loads configuration from YAML bytes.
func LoadFromBytes(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Engine.IDTagTrader == "" {
		c.Engine.IDTagTrader = "001"
	}
	if c.Engine.IDTagStrategy == "" {
		c.Engine.IDTagStrategy = "001"
	}
	if c.Engine.BarCapacity == 0 {
		c.Engine.BarCapacity = 1000
	}
	if c.Strategy.BarPeriod == 0 {
		c.Strategy.BarPeriod = 1
	}
	if c.Strategy.BarResolution == "" {
		c.Strategy.BarResolution = "minute"
	}
	if c.Strategy.BarPriceType == "" {
		c.Strategy.BarPriceType = "mid"
	}
	if c.Strategy.ATRPeriod == 0 {
		c.Strategy.ATRPeriod = 14
	}
	if c.Execution.InitialBalance == 0 {
		c.Execution.InitialBalance = 100000
	}
	if c.Execution.Currency == "" {
		c.Execution.Currency = "USD"
	}
	if c.Execution.RateLimitPerSec == 0 {
		c.Execution.RateLimitPerSec = 100
	}
	if c.Metrics.Port == 0 {
		c.Metrics.Port = 9090
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	var errs []string

	if c.Engine.TraderID == "" {
		errs = append(errs, "engine.trader_id is required")
	}
	if c.Engine.StrategyID == "" {
		errs = append(errs, "engine.strategy_id is required")
	}
	if c.Engine.BarCapacity <= 0 {
		errs = append(errs, "engine.bar_capacity must be positive")
	}

	if c.Strategy.Symbol == "" {
		errs = append(errs, "strategy.symbol is required")
	}
	if _, err := parseResolution(c.Strategy.BarResolution); err != nil {
		errs = append(errs, err.Error())
	}
	if _, err := parsePriceType(c.Strategy.BarPriceType); err != nil {
		errs = append(errs, err.Error())
	}
	if c.Strategy.FastPeriod <= 0 || c.Strategy.SlowPeriod <= 0 {
		errs = append(errs, "strategy periods must be positive")
	} else if c.Strategy.FastPeriod >= c.Strategy.SlowPeriod {
		errs = append(errs, "strategy.fast_period must be below strategy.slow_period")
	}
	if c.Strategy.TradeSize <= 0 {
		errs = append(errs, "strategy.trade_size must be positive")
	}

	if c.Execution.InitialBalance <= 0 {
		errs = append(errs, "execution.initial_balance must be positive")
	}
	if c.Execution.SlippageTicks < 0 {
		errs = append(errs, "execution.slippage_ticks must not be negative")
	}

	if _, err := c.StartTime(); err != nil {
		errs = append(errs, "backtest.start_time must be RFC 3339")
	}
	if _, err := c.EndTime(); err != nil {
		errs = append(errs, "backtest.end_time must be RFC 3339")
	}

	if c.Persistence.Enabled && c.Persistence.Path == "" {
		errs = append(errs, "persistence.path is required when persistence is enabled")
	}

	if c.Alerting.Enabled {
		for i, channel := range c.Alerting.Channels {
			switch strings.ToLower(channel.Type) {
			case "console":
			case "telegram":
				if channel.BotToken == "" || channel.ChatID == "" {
					errs = append(errs, fmt.Sprintf(
						"alerting.channels[%d]: telegram requires bot_token and chat_id", i))
				}
			default:
				errs = append(errs, fmt.Sprintf(
					"alerting.channels[%d]: unknown type %q", i, channel.Type))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", types.ErrInvalidConfig, strings.Join(errs, "; "))
	}
	return nil
}

// Symbol returns the configured trading symbol.
func (c *Config) Symbol() types.Symbol {
	return types.Symbol{Code: c.Strategy.Symbol, Venue: c.Strategy.Venue}
}

// BarSpec returns the configured bar specification. Call Validate
// first; unknown names fall back to minute MID bars.
func (c *Config) BarSpec() types.BarSpec {
	resolution, err := parseResolution(c.Strategy.BarResolution)
	if err != nil {
		resolution = types.ResolutionMinute
	}
	priceType, err := parsePriceType(c.Strategy.BarPriceType)
	if err != nil {
		priceType = types.PriceTypeMid
	}
	return types.BarSpec{
		Period:     c.Strategy.BarPeriod,
		Resolution: resolution,
		PriceType:  priceType,
	}
}

// ToEngineConfig converts to the engine's configuration.
func (c *Config) ToEngineConfig() engine.Config {
	return engine.Config{
		TraderID:              types.TraderID(c.Engine.TraderID),
		StrategyID:            types.StrategyID(c.Engine.StrategyID),
		IDTagTrader:           c.Engine.IDTagTrader,
		IDTagStrategy:         c.Engine.IDTagStrategy,
		FlattenOnSLReject:     c.Engine.FlattenOnSLReject,
		FlattenOnStop:         c.Engine.FlattenOnStop,
		CancelAllOrdersOnStop: c.Engine.CancelAllOrdersOnStop,
		BarCapacity:           c.Engine.BarCapacity,
	}
}

// ToStrategyConfig converts to the EMA-cross strategy configuration.
func (c *Config) ToStrategyConfig() strategy.EMACrossConfig {
	return strategy.EMACrossConfig{
		Symbol:        c.Symbol(),
		BarSpec:       c.BarSpec(),
		FastPeriod:    c.Strategy.FastPeriod,
		SlowPeriod:    c.Strategy.SlowPeriod,
		ATRPeriod:     c.Strategy.ATRPeriod,
		ATRMultiplier: decimal.NewFromFloat(c.Strategy.ATRMultiplier),
		TradeSize:     decimal.NewFromFloat(c.Strategy.TradeSize),
	}
}

// ToExecutionConfig converts to the paper execution configuration.
func (c *Config) ToExecutionConfig() execution.Config {
	return execution.Config{
		InitialBalance:    decimal.NewFromFloat(c.Execution.InitialBalance),
		Currency:          c.Execution.Currency,
		SlippageTicks:     c.Execution.SlippageTicks,
		CommissionPerSide: decimal.NewFromFloat(c.Execution.CommissionPerSide),
		RequestsPerSecond: c.Execution.RateLimitPerSec,
	}
}

// StartTime returns the parsed backtest window start.
func (c *Config) StartTime() (time.Time, error) {
	return parseTime(c.Backtest.StartTime)
}

// EndTime returns the parsed backtest window end.
func (c *Config) EndTime() (time.Time, error) {
	return parseTime(c.Backtest.EndTime)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, s)
}

func parseResolution(s string) (types.BarResolution, error) {
	switch strings.ToLower(s) {
	case "second":
		return types.ResolutionSecond, nil
	case "minute":
		return types.ResolutionMinute, nil
	case "hour":
		return types.ResolutionHour, nil
	case "day":
		return types.ResolutionDay, nil
	default:
		return 0, fmt.Errorf("unknown bar resolution %q", s)
	}
}

func parsePriceType(s string) (types.PriceType, error) {
	switch strings.ToLower(s) {
	case "bid":
		return types.PriceTypeBid, nil
	case "ask":
		return types.PriceTypeAsk, nil
	case "mid":
		return types.PriceTypeMid, nil
	case "last":
		return types.PriceTypeLast, nil
	default:
		return 0, fmt.Errorf("unknown bar price type %q", s)
	}
}
