// Package config defines the application configuration schema and the
// loading pipeline (TOML file, .env, environment overrides).
package config

import (
	"fmt"
	"strings"
	"time"
)

// duration wraps time.Duration so it can be parsed from TOML strings like
// "5s" or "2m".
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler for TOML decoding.
func (d *duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// Config is the root configuration for the trading engine.
type Config struct {
	Wallet     WalletConfig     `toml:"wallet"`
	Polymarket PolymarketConfig `toml:"polymarket"`
	Chain      ChainConfig      `toml:"chain"`
	Redis      RedisConfig      `toml:"redis"`
	Market     MarketConfig     `toml:"market"`
	Trading    TradingConfig    `toml:"trading"`
	Notify     NotifyConfig     `toml:"notify"`

	// Mode selects how the process runs: "feed" keeps caches warm from the
	// market data stream, "trade" additionally enables order execution.
	Mode     string `toml:"mode"`
	LogLevel string `toml:"log_level"`
}

// WalletConfig holds the signing key material. Either a raw private key or
// an encrypted key file plus password must be provided.
type WalletConfig struct {
	PrivateKey       string `toml:"private_key"`
	EncryptedKeyPath string `toml:"encrypted_key_path"`
	KeyPassword      string `toml:"key_password"`
}

// PolymarketConfig holds CLOB API endpoints and signing parameters.
type PolymarketConfig struct {
	ClobHost        string `toml:"clob_host"`
	WsHost          string `toml:"ws_host"`
	DataAPIURL      string `toml:"data_api_url"`
	DataAPIKey      string `toml:"data_api_key"`
	ChainID         int    `toml:"chain_id"`
	SignatureType   int    `toml:"signature_type"`
	ExchangeAddress string `toml:"exchange_address"`
}

// ChainConfig holds the RPC endpoint and token contract addresses used for
// on-chain balance and allowance reads.
type ChainConfig struct {
	RPCURL          string `toml:"rpc_url"`
	CollateralToken string `toml:"collateral_token"`
	CTFToken        string `toml:"ctf_token"`
}

// RedisConfig holds Redis connection settings for the cache layer.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// MarketConfig holds per-market trading rules.
type MarketConfig struct {
	TickSize    float64  `toml:"tick_size"`
	MinNotional float64  `toml:"min_notional"`
	MinSize     float64  `toml:"min_size"`
	TokenIDs    []string `toml:"token_ids"`
}

// TradingConfig tunes order pricing and the order lifecycle.
type TradingConfig struct {
	MarketBufferBps float64    `toml:"market_buffer_bps"`
	MaxSlippageBps  float64    `toml:"max_slippage_bps"`
	PollInterval    duration   `toml:"poll_interval"`
	MaxPollAttempts int        `toml:"max_poll_attempts"`
	RefetchOffsets  []duration `toml:"refetch_offsets"`
}

// NotifyConfig configures operator notification channels.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// Defaults returns a Config pre-populated with sensible defaults. Load
// merges the TOML file and environment overrides on top of this.
func Defaults() Config {
	return Config{
		Polymarket: PolymarketConfig{
			ClobHost:        "https://clob.polymarket.com",
			WsHost:          "wss://ws-subscriptions-clob.polymarket.com/ws/market",
			DataAPIURL:      "https://data-api.polymarket.com/graphql",
			ChainID:         137,
			SignatureType:   0,
			ExchangeAddress: "0x4bFb41d5B3570DeFd03C39a9A4D8dE6Bd8B8982E",
		},
		Chain: ChainConfig{
			RPCURL:          "https://polygon-rpc.com",
			CollateralToken: "0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174",
			CTFToken:        "0x4D97DCd97eC945f40cF65F87097ACe5EA0476045",
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   10,
			MaxRetries: 3,
		},
		Market: MarketConfig{
			TickSize:    0.01,
			MinNotional: 1.0,
			MinSize:     5.0,
		},
		Trading: TradingConfig{
			MarketBufferBps: 50,
			MaxSlippageBps:  200,
			PollInterval:    duration{time.Second},
			MaxPollAttempts: 10,
			RefetchOffsets: []duration{
				{time.Second},
				{3 * time.Second},
				{5 * time.Second},
			},
		},
		Mode:     "trade",
		LogLevel: "info",
	}
}

var validModes = map[string]bool{
	"feed":  true,
	"trade": true,
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks the configuration for internal consistency and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[c.Mode] {
		errs = append(errs, fmt.Sprintf("invalid mode %q", c.Mode))
	}
	if !validLogLevels[c.LogLevel] {
		errs = append(errs, fmt.Sprintf("invalid log_level %q", c.LogLevel))
	}

	if c.Mode == "trade" {
		if c.Wallet.PrivateKey == "" && c.Wallet.EncryptedKeyPath == "" {
			errs = append(errs, "wallet: private_key or encrypted_key_path is required in trade mode")
		}
		if c.Wallet.EncryptedKeyPath != "" && c.Wallet.KeyPassword == "" {
			errs = append(errs, "wallet: key_password is required with encrypted_key_path")
		}
	}

	if c.Polymarket.ClobHost == "" {
		errs = append(errs, "polymarket: clob_host is required")
	}
	if c.Polymarket.ChainID <= 0 {
		errs = append(errs, "polymarket: chain_id must be positive")
	}
	if c.Polymarket.ExchangeAddress == "" {
		errs = append(errs, "polymarket: exchange_address is required")
	}

	if c.Chain.RPCURL == "" {
		errs = append(errs, "chain: rpc_url is required")
	}
	if c.Chain.CollateralToken == "" {
		errs = append(errs, "chain: collateral_token is required")
	}
	if c.Chain.CTFToken == "" {
		errs = append(errs, "chain: ctf_token is required")
	}

	if c.Redis.Addr == "" {
		errs = append(errs, "redis: addr is required")
	}

	if c.Market.TickSize <= 0 {
		errs = append(errs, "market: tick_size must be positive")
	}
	if c.Market.MinSize < 0 {
		errs = append(errs, "market: min_size must not be negative")
	}
	if c.Market.MinNotional < 0 {
		errs = append(errs, "market: min_notional must not be negative")
	}

	if c.Trading.MarketBufferBps < 0 {
		errs = append(errs, "trading: market_buffer_bps must not be negative")
	}
	if c.Trading.MaxSlippageBps < 0 {
		errs = append(errs, "trading: max_slippage_bps must not be negative")
	}
	if c.Trading.PollInterval.Duration <= 0 {
		errs = append(errs, "trading: poll_interval must be positive")
	}
	if c.Trading.MaxPollAttempts <= 0 {
		errs = append(errs, "trading: max_poll_attempts must be positive")
	}
	for i, off := range c.Trading.RefetchOffsets {
		if off.Duration <= 0 {
			errs = append(errs, fmt.Sprintf("trading: refetch_offsets[%d] must be positive", i))
		}
		if i > 0 && off.Duration <= c.Trading.RefetchOffsets[i-1].Duration {
			errs = append(errs, fmt.Sprintf("trading: refetch_offsets[%d] must be strictly increasing", i))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// RefetchOffsetDurations returns the configured refetch offsets as plain
// time.Durations.
func (c *Config) RefetchOffsetDurations() []time.Duration {
	out := make([]time.Duration, len(c.Trading.RefetchOffsets))
	for i, d := range c.Trading.RefetchOffsets {
		out[i] = d.Duration
	}
	return out
}
