package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies CLOBTRADE_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known CLOBTRADE_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e.
// not empty). This lets operators inject secrets at deploy time without
// touching the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Wallet ──
	setStr(&cfg.Wallet.PrivateKey, "CLOBTRADE_WALLET_PRIVATE_KEY")
	setStr(&cfg.Wallet.EncryptedKeyPath, "CLOBTRADE_WALLET_ENCRYPTED_KEY_PATH")
	setStr(&cfg.Wallet.KeyPassword, "CLOBTRADE_WALLET_KEY_PASSWORD")

	// ── Polymarket ──
	setStr(&cfg.Polymarket.ClobHost, "CLOBTRADE_POLYMARKET_CLOB_HOST")
	setStr(&cfg.Polymarket.WsHost, "CLOBTRADE_POLYMARKET_WS_HOST")
	setStr(&cfg.Polymarket.DataAPIURL, "CLOBTRADE_POLYMARKET_DATA_API_URL")
	setStr(&cfg.Polymarket.DataAPIKey, "CLOBTRADE_POLYMARKET_DATA_API_KEY")
	setInt(&cfg.Polymarket.ChainID, "CLOBTRADE_POLYMARKET_CHAIN_ID")
	setInt(&cfg.Polymarket.SignatureType, "CLOBTRADE_POLYMARKET_SIGNATURE_TYPE")
	setStr(&cfg.Polymarket.ExchangeAddress, "CLOBTRADE_POLYMARKET_EXCHANGE_ADDRESS")

	// ── Chain ──
	setStr(&cfg.Chain.RPCURL, "CLOBTRADE_CHAIN_RPC_URL")
	setStr(&cfg.Chain.CollateralToken, "CLOBTRADE_CHAIN_COLLATERAL_TOKEN")
	setStr(&cfg.Chain.CTFToken, "CLOBTRADE_CHAIN_CTF_TOKEN")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "CLOBTRADE_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "CLOBTRADE_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "CLOBTRADE_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "CLOBTRADE_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "CLOBTRADE_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "CLOBTRADE_REDIS_TLS_ENABLED")

	// ── Market ──
	setFloat64(&cfg.Market.TickSize, "CLOBTRADE_MARKET_TICK_SIZE")
	setFloat64(&cfg.Market.MinNotional, "CLOBTRADE_MARKET_MIN_NOTIONAL")
	setFloat64(&cfg.Market.MinSize, "CLOBTRADE_MARKET_MIN_SIZE")
	setStringSlice(&cfg.Market.TokenIDs, "CLOBTRADE_MARKET_TOKEN_IDS")

	// ── Trading ──
	setFloat64(&cfg.Trading.MarketBufferBps, "CLOBTRADE_TRADING_MARKET_BUFFER_BPS")
	setFloat64(&cfg.Trading.MaxSlippageBps, "CLOBTRADE_TRADING_MAX_SLIPPAGE_BPS")
	setDuration(&cfg.Trading.PollInterval, "CLOBTRADE_TRADING_POLL_INTERVAL")
	setInt(&cfg.Trading.MaxPollAttempts, "CLOBTRADE_TRADING_MAX_POLL_ATTEMPTS")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "CLOBTRADE_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "CLOBTRADE_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "CLOBTRADE_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "CLOBTRADE_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "CLOBTRADE_MODE")
	setStr(&cfg.LogLevel, "CLOBTRADE_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
