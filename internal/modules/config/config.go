package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	configFilePathENV = "CONFIG_FILE"
	igUsernameENV     = "IG_USERNAME"
	igPasswordENV     = "IG_PASSWORD"
	igAPIKeyENV       = "IG_API_KEY"
	igAccountTypeENV  = "IG_ACCOUNT_TYPE"
	databaseDSNENV    = "DATABASE_DSN"
	tokenTelegramENV  = "TELEGRAM_TOKEN"
)

// Checks switches individual validations on and off. Option names are part
// of the configuration contract.
type Checks struct {
	ExistingPosition        bool `mapstructure:"check_existing_position"`
	SameDayTrades           bool `mapstructure:"check_same_day_trades"`
	OpenPositionLimit       bool `mapstructure:"check_open_position_limit"`
	AlertTimestamp          bool `mapstructure:"check_alert_timestamp"`
	DividendDate            bool `mapstructure:"check_dividend_date"`
	MaxDealAge              bool `mapstructure:"check_max_deal_age"`
	TotalPositionsAndOrders bool `mapstructure:"check_total_positions_and_orders"`
}

type Config struct {
	Service struct {
		Host string `mapstructure:"host"`
		Port int    `mapstructure:"port"`
	} `mapstructure:"service"`

	IG struct {
		Username    string        `mapstructure:"username"`
		Password    string        `mapstructure:"password"`
		APIKey      string        `mapstructure:"api_key"`
		AccountType string        `mapstructure:"account_type"` // DEMO or LIVE
		Timeout     time.Duration `mapstructure:"timeout"`
	} `mapstructure:"ig"`

	DB string `mapstructure:"db_dsn"`

	Tickers struct {
		CSVPath string `mapstructure:"csv_path"`
	} `mapstructure:"tickers"`

	Trading struct {
		MaxOpenPositions        int           `mapstructure:"max_open_positions"`
		MaxPositionsAndOrders   int           `mapstructure:"max_positions_and_orders"`
		AlertMaxAge             time.Duration `mapstructure:"alert_max_age"`
		MaxDealAge              time.Duration `mapstructure:"max_deal_age"`
		PositionsCacheTTL       time.Duration `mapstructure:"positions_cache_ttl"`
		Timezone                string        `mapstructure:"timezone"`
		AllowUnconfigured       bool          `mapstructure:"allow_unconfigured"`
		DefaultMaxPositionValue float64       `mapstructure:"default_max_position_value"`
	} `mapstructure:"trading"`

	Checks Checks `mapstructure:"checks"`

	Telegram struct {
		Token  string `mapstructure:"token"`
		ChatID int64  `mapstructure:"chat_id"`
	} `mapstructure:"telegram"`

	AlertFeed struct {
		URL string `mapstructure:"url"`
	} `mapstructure:"alert_feed"`

	Jaeger struct {
		Host string `mapstructure:"host"`
		Port int    `mapstructure:"port"`
	} `mapstructure:"jaeger"`
}

func NewConfig() (*Config, error) {
	v := viper.New()

	configFileName := os.Getenv(configFilePathENV)
	if configFileName == "" {
		configFileName = "configs/values_local.yaml"
	}
	v.SetConfigFile(configFileName)

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", configFileName, err)
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	// Secrets come from the environment, never from the file in production.
	if s := os.Getenv(igUsernameENV); s != "" {
		config.IG.Username = s
	}
	if s := os.Getenv(igPasswordENV); s != "" {
		config.IG.Password = s
	}
	if s := os.Getenv(igAPIKeyENV); s != "" {
		config.IG.APIKey = s
	}
	if s := os.Getenv(igAccountTypeENV); s != "" {
		config.IG.AccountType = s
	}
	if s := os.Getenv(databaseDSNENV); s != "" {
		config.DB = s
	}
	if s := os.Getenv(tokenTelegramENV); s != "" {
		config.Telegram.Token = s
	}

	if config.IG.Username == "" || config.IG.APIKey == "" {
		return nil, fmt.Errorf("IG credentials are required (%s/%s)", igUsernameENV, igAPIKeyENV)
	}
	if !strings.EqualFold(config.IG.AccountType, "DEMO") && !strings.EqualFold(config.IG.AccountType, "LIVE") {
		return nil, fmt.Errorf("ig.account_type must be DEMO or LIVE, got %q", config.IG.AccountType)
	}

	return config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("service.host", "0.0.0.0")
	v.SetDefault("service.port", 8080)

	v.SetDefault("ig.account_type", "DEMO")
	v.SetDefault("ig.timeout", "10s")

	v.SetDefault("tickers.csv_path", "ticker_data.csv")

	v.SetDefault("trading.max_open_positions", 10)
	v.SetDefault("trading.max_positions_and_orders", 15)
	v.SetDefault("trading.alert_max_age", "5s")
	v.SetDefault("trading.max_deal_age", "24h")
	v.SetDefault("trading.positions_cache_ttl", "5s")
	v.SetDefault("trading.allow_unconfigured", false)
	v.SetDefault("trading.default_max_position_value", 100.0)

	v.SetDefault("checks.check_existing_position", true)
	v.SetDefault("checks.check_same_day_trades", true)
	v.SetDefault("checks.check_open_position_limit", true)
	v.SetDefault("checks.check_alert_timestamp", true)
	v.SetDefault("checks.check_dividend_date", true)
	v.SetDefault("checks.check_max_deal_age", true)
	v.SetDefault("checks.check_total_positions_and_orders", true)

	v.SetDefault("jaeger.host", "localhost")
	v.SetDefault("jaeger.port", 6831)
}

// Location resolves the trading timezone used for daily ledger keys.
func (c *Config) Location() *time.Location {
	if c.Trading.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Trading.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}
