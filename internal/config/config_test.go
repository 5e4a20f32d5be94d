package config

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tathienbao/strategy-engine/internal/types"
)

const validYAML = `
engine:
  trader_id: TRADER-001
  strategy_id: EMA-001
  flatten_on_stop: true
  cancel_all_orders_on_stop: true
strategy:
  symbol: EUR/USD
  venue: SIM
  bar_period: 1
  bar_resolution: minute
  bar_price_type: mid
  fast_period: 10
  slow_period: 20
  atr_period: 14
  atr_multiplier: 2.0
  trade_size: 100000
data:
  csv_path: testdata/eurusd.csv
execution:
  initial_balance: 50000
  slippage_ticks: 1
  commission_per_side: 2.5
backtest:
  start_time: "2025-03-14T09:00:00Z"
  end_time: "2025-03-14T17:00:00Z"
`

func TestLoadFromBytes_Valid(t *testing.T) {
	cfg, err := LoadFromBytes([]byte(validYAML))
	if err != nil {
		t.Fatalf("LoadFromBytes() error = %v", err)
	}

	if cfg.Engine.TraderID != "TRADER-001" {
		t.Errorf("trader_id = %q, want TRADER-001", cfg.Engine.TraderID)
	}
	if !cfg.Engine.FlattenOnStop || !cfg.Engine.CancelAllOrdersOnStop {
		t.Error("stop flags should be set")
	}
	if cfg.Engine.BarCapacity != 1000 {
		t.Errorf("bar_capacity default = %d, want 1000", cfg.Engine.BarCapacity)
	}
	if cfg.Execution.Currency != "USD" {
		t.Errorf("currency default = %q, want USD", cfg.Execution.Currency)
	}
	if cfg.Execution.RateLimitPerSec != 100 {
		t.Errorf("rate limit default = %d, want 100", cfg.Execution.RateLimitPerSec)
	}
	if cfg.Metrics.Port != 9090 || cfg.Metrics.Path != "/metrics" {
		t.Errorf("metrics defaults = %d %q", cfg.Metrics.Port, cfg.Metrics.Path)
	}
}

func TestLoadFromBytes_ExpandsEnv(t *testing.T) {
	t.Setenv("TRADER_ID", "TRADER-042")

	yaml := `
engine:
  trader_id: ${TRADER_ID}
  strategy_id: EMA-001
strategy:
  symbol: EUR/USD
  fast_period: 10
  slow_period: 20
  trade_size: 100000
`
	cfg, err := LoadFromBytes([]byte(yaml))
	if err != nil {
		t.Fatalf("LoadFromBytes() error = %v", err)
	}
	if cfg.Engine.TraderID != "TRADER-042" {
		t.Errorf("trader_id = %q, want TRADER-042", cfg.Engine.TraderID)
	}
}

func TestValidate_CollectsErrors(t *testing.T) {
	cfg := &Config{}
	cfg.applyDefaults()
	cfg.Strategy.FastPeriod = 20
	cfg.Strategy.SlowPeriod = 10

	err := cfg.Validate()
	if !errors.Is(err, types.ErrInvalidConfig) {
		t.Fatalf("Validate() error = %v, want ErrInvalidConfig", err)
	}
	for _, want := range []string{
		"engine.trader_id is required",
		"engine.strategy_id is required",
		"strategy.symbol is required",
		"strategy.fast_period must be below strategy.slow_period",
		"strategy.trade_size must be positive",
	} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing %q", err, want)
		}
	}
}

func TestValidate_RejectsBadResolution(t *testing.T) {
	cfg, err := LoadFromBytes([]byte(validYAML))
	if err != nil {
		t.Fatalf("LoadFromBytes() error = %v", err)
	}
	cfg.Strategy.BarResolution = "fortnight"
	if err := cfg.Validate(); !errors.Is(err, types.ErrInvalidConfig) {
		t.Fatalf("Validate() error = %v, want ErrInvalidConfig", err)
	}
}

func TestValidate_RejectsBadBacktestTime(t *testing.T) {
	cfg, err := LoadFromBytes([]byte(validYAML))
	if err != nil {
		t.Fatalf("LoadFromBytes() error = %v", err)
	}
	cfg.Backtest.StartTime = "14/03/2025"
	if err := cfg.Validate(); !errors.Is(err, types.ErrInvalidConfig) {
		t.Fatalf("Validate() error = %v, want ErrInvalidConfig", err)
	}
}

func TestValidate_PersistenceNeedsPath(t *testing.T) {
	cfg, err := LoadFromBytes([]byte(validYAML))
	if err != nil {
		t.Fatalf("LoadFromBytes() error = %v", err)
	}
	cfg.Persistence.Enabled = true
	cfg.Persistence.Path = ""
	if err := cfg.Validate(); !errors.Is(err, types.ErrInvalidConfig) {
		t.Fatalf("Validate() error = %v, want ErrInvalidConfig", err)
	}
}

func TestLoadFromBytes_AlertingChannels(t *testing.T) {
	yaml := validYAML + `
alerting:
  enabled: true
  channels:
    - type: console
    - type: telegram
      bot_token: "123:abc"
      chat_id: "-100"
`
	cfg, err := LoadFromBytes([]byte(yaml))
	if err != nil {
		t.Fatalf("LoadFromBytes() error = %v", err)
	}
	if !cfg.Alerting.Enabled {
		t.Error("alerting should be enabled")
	}
	if len(cfg.Alerting.Channels) != 2 {
		t.Fatalf("channels = %d, want 2", len(cfg.Alerting.Channels))
	}
	if cfg.Alerting.Channels[1].BotToken != "123:abc" {
		t.Errorf("bot_token = %q", cfg.Alerting.Channels[1].BotToken)
	}
}

func TestValidate_TelegramChannelNeedsCredentials(t *testing.T) {
	cfg, err := LoadFromBytes([]byte(validYAML))
	if err != nil {
		t.Fatalf("LoadFromBytes() error = %v", err)
	}
	cfg.Alerting.Enabled = true
	cfg.Alerting.Channels = []ChannelConfig{{Type: "telegram"}}

	err = cfg.Validate()
	if !errors.Is(err, types.ErrInvalidConfig) {
		t.Fatalf("Validate() error = %v, want ErrInvalidConfig", err)
	}
	if !strings.Contains(err.Error(), "telegram requires bot_token and chat_id") {
		t.Errorf("error %q missing telegram message", err)
	}
}

func TestValidate_RejectsUnknownChannelType(t *testing.T) {
	cfg, err := LoadFromBytes([]byte(validYAML))
	if err != nil {
		t.Fatalf("LoadFromBytes() error = %v", err)
	}
	cfg.Alerting.Enabled = true
	cfg.Alerting.Channels = []ChannelConfig{{Type: "pager"}}

	if err := cfg.Validate(); !errors.Is(err, types.ErrInvalidConfig) {
		t.Fatalf("Validate() error = %v, want ErrInvalidConfig", err)
	}
}

func TestConverters(t *testing.T) {
	cfg, err := LoadFromBytes([]byte(validYAML))
	if err != nil {
		t.Fatalf("LoadFromBytes() error = %v", err)
	}

	engCfg := cfg.ToEngineConfig()
	if engCfg.TraderID != "TRADER-001" || engCfg.StrategyID != "EMA-001" {
		t.Errorf("engine ids = %s/%s", engCfg.TraderID, engCfg.StrategyID)
	}
	if !engCfg.FlattenOnStop || !engCfg.CancelAllOrdersOnStop {
		t.Error("engine stop flags should carry over")
	}

	stratCfg := cfg.ToStrategyConfig()
	if stratCfg.Symbol != (types.Symbol{Code: "EUR/USD", Venue: "SIM"}) {
		t.Errorf("symbol = %+v", stratCfg.Symbol)
	}
	if stratCfg.BarSpec.Resolution != types.ResolutionMinute ||
		stratCfg.BarSpec.PriceType != types.PriceTypeMid {
		t.Errorf("bar spec = %+v", stratCfg.BarSpec)
	}
	if !stratCfg.TradeSize.Equal(decimal.NewFromInt(100000)) {
		t.Errorf("trade size = %s", stratCfg.TradeSize)
	}

	execCfg := cfg.ToExecutionConfig()
	if !execCfg.InitialBalance.Equal(decimal.NewFromInt(50000)) {
		t.Errorf("initial balance = %s", execCfg.InitialBalance)
	}
	if execCfg.SlippageTicks != 1 {
		t.Errorf("slippage ticks = %d", execCfg.SlippageTicks)
	}

	start, err := cfg.StartTime()
	if err != nil {
		t.Fatalf("StartTime() error = %v", err)
	}
	if !start.Equal(time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)) {
		t.Errorf("start = %s", start)
	}
}
