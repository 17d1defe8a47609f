// Package config exposes strongly typed application configuration structs loaded from YAML.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// App captures process-wide runtime settings such as name, environment, metrics, and logging levels.
type App struct {
	Name        string
	Env         string
	MetricsAddr string `yaml:"metrics_addr"`
	LogLevel    string `yaml:"log_level"`
}

// Broker describes the trading API connectivity parameters. Credentials are
// never stored here; they come from the environment.
type Broker struct {
	Mode        string `yaml:"mode"` // live | sim
	BaseURL     string `yaml:"base_url"`
	Symbol      string `yaml:"symbol"`
	AssetCode   string `yaml:"asset_code"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// Indicators groups the rolling-window sizes for every technical indicator.
type Indicators struct {
	RSIPeriod        int     `yaml:"rsi_period"`
	BBPeriod         int     `yaml:"bb_period"`
	BBStdDev         float64 `yaml:"bb_std_dev"`
	MACDFast         int     `yaml:"macd_fast"`
	MACDSlow         int     `yaml:"macd_slow"`
	MACDSignal       int     `yaml:"macd_signal"`
	VolatilityWindow int     `yaml:"volatility_window"`
	EMAShort         int     `yaml:"ema_short"`
	EMAMedium        int     `yaml:"ema_medium"`
	EMALong          int     `yaml:"ema_long"`
}

// Strategy specifies the scoring thresholds and position limits.
type Strategy struct {
	Oversold          float64 `yaml:"oversold"`
	NearOversold      float64 `yaml:"near_oversold"`
	Overbought        float64 `yaml:"overbought"`
	NearOverbought    float64 `yaml:"near_overbought"`
	HighVolatility    float64 `yaml:"high_volatility_pct"`
	MinScore          float64 `yaml:"min_score"`
	ProfitTarget      float64 `yaml:"profit_target"`
	StopLoss          float64 `yaml:"stop_loss"`
	MaxPositionSize   float64 `yaml:"max_position_size"`
	BuyConfidenceMin  float64 `yaml:"buy_confidence_min"`
	SellConfidenceMin float64 `yaml:"sell_confidence_min"`
}

// Risk encodes guard-rails for how much size the executor may take on.
type Risk struct {
	MaxNotionalPerTrade float64 `yaml:"max_notional_per_trade"`
}

// Run captures per-run knobs: order size, polling cadence, and wall-clock cap.
type Run struct {
	Quantity     float64 `yaml:"quantity"`
	IntervalSecs int     `yaml:"interval_secs"`
	DurationSecs int     `yaml:"duration_secs"` // 0 runs until interrupted
	Live         bool    `yaml:"live"`
	MinOrderQty  float64 `yaml:"min_order_qty"`
	TradesPath   string  `yaml:"trades_path"` // JSONL audit log, empty disables
}

// Config collects every configuration leaf for easy marshaling from YAML.
type Config struct {
	App        App        `yaml:"app"`
	Broker     Broker     `yaml:"broker"`
	Indicators Indicators `yaml:"indicators"`
	Strategy   Strategy   `yaml:"strategy"`
	Risk       Risk       `yaml:"risk"`
	Run        Run        `yaml:"run"`
}

// Load reads a YAML file from disk and hydrates a Config struct.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var config Config
	if err := yaml.NewDecoder(file).Decode(&config); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return &config, nil
}

// Save persists a Config struct to disk as YAML.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
