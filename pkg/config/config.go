package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds environment-driven settings for the scalper core.
type Config struct {
	Port string

	// Database
	DBPath string

	// Broker endpoints (opaque external services)
	BrokerBaseURL   string
	BrokerTickerURL string
	BrokerUpdateURL string

	// Feeds / execution
	UseMockFeed     bool
	UsePaperGateway bool
	PaperBalance    float64

	// Instrument universe
	InstrumentFile  string
	TriggerRangeURL string

	// Compiled-in Controls defaults. The controls row in the DB, when
	// present, overrides these at session start.
	EntryTriggerPct       float64
	MaxRiskPctPerTrade    float64
	MaxPositionInvestment float64
	MinPositionInvestment float64
	PositionStoplossPct   float64
	PositionTargetPct     float64
	AccountStoplossPct    float64
	AccountTargetSLPct    float64
	AccountTargetPct      float64
	EntryTimeStart        string
	EntryTimeEnd          string
	ExitTime              string
}

// Load reads environment variables (optionally via .env) into Config.
func Load() (*Config, error) {
	// Ignore error so the app still starts when .env is missing.
	_ = godotenv.Load()

	return &Config{
		Port:            getEnv("PORT", "8080"),
		DBPath:          getEnv("DB_PATH", "./data/scalper.db"),
		BrokerBaseURL:   getEnv("BROKER_BASE_URL", "https://api.broker.local"),
		BrokerTickerURL: getEnv("BROKER_TICKER_URL", "wss://ticker.broker.local/stream"),
		BrokerUpdateURL: getEnv("BROKER_UPDATE_URL", "wss://ticker.broker.local/updates"),
		UseMockFeed:     getEnv("USE_MOCK_FEED", "true") == "true",
		UsePaperGateway: getEnv("USE_PAPER_GATEWAY", "true") == "true",
		PaperBalance:    getEnvFloat("PAPER_BALANCE", 100000.0),
		InstrumentFile:  getEnv("INSTRUMENT_FILE", "./instruments.yaml"),
		TriggerRangeURL: getEnv("TRIGGER_RANGE_URL", ""),

		EntryTriggerPct:       getEnvFloat("ENTRY_TRIGGER_PERCENT", 0.35),
		MaxRiskPctPerTrade:    getEnvFloat("MAX_RISK_PERCENT_PER_TRADE", 1.0),
		MaxPositionInvestment: getEnvFloat("MAX_INVESTMENT_PER_POSITION", 50000.0),
		MinPositionInvestment: getEnvFloat("MIN_INVESTMENT_PER_POSITION", 5000.0),
		PositionStoplossPct:   getEnvFloat("POSITION_STOPLOSS_PERCENT", 0.5),
		PositionTargetPct:     getEnvFloat("POSITION_TARGET_PERCENT", 0.75),
		AccountStoplossPct:    getEnvFloat("USER_STOPLOSS_PERCENT", 5.0),
		AccountTargetSLPct:    getEnvFloat("USER_TARGET_STOPLOSS", 2.0),
		AccountTargetPct:      getEnvFloat("USER_TARGET_PERCENT", 10.0),
		EntryTimeStart:        getEnv("ENTRY_TIME_START", "09:25:00"),
		EntryTimeEnd:          getEnv("ENTRY_TIME_END", "14:30:00"),
		ExitTime:              getEnv("EXIT_TIME", "15:10:00"),
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
