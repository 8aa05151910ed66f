package config

import (
	"errors"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Server    Server    `mapstructure:"server"`
	Database  Database  `mapstructure:"database"`
	Logger    Logger    `mapstructure:"logger"`
	Contracts Contracts `mapstructure:"contracts"`
	Defaults  Defaults  `mapstructure:"defaults"`
	Quotes    Quotes    `mapstructure:"quotes"`
}

// Server holds the configuration for the web server.
type Server struct {
	Port      int    `mapstructure:"port"`
	StaticDir string `mapstructure:"static_dir"`
}

// Database holds the configuration for the database.
type Database struct {
	DSN string `mapstructure:"dsn"`
}

// Logger holds the configuration for the logger.
type Logger struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	// File, when set, receives the log in addition to stderr.
	File string `mapstructure:"file"`
}

// Product describes a traded product and the contract codes offered for it.
// Products are a list rather than a map because viper lowercases map keys.
type Product struct {
	Name       string   `mapstructure:"name"`
	Multiplier float64  `mapstructure:"multiplier"`
	Contracts  []string `mapstructure:"contracts"`
}

// Contracts holds the static reference data of the desk.
type Contracts struct {
	Products []Product `mapstructure:"products"`
	Traders  []string  `mapstructure:"traders"`
}

// Multipliers returns the base contract multiplier per product name.
func (c Contracts) Multipliers() map[string]float64 {
	m := make(map[string]float64, len(c.Products))
	for _, p := range c.Products {
		m[p.Name] = p.Multiplier
	}
	return m
}

// Defaults seeds the persisted settings row on first start.
type Defaults struct {
	BrentFeePerBbl      float64 `mapstructure:"brent_fee_per_bbl"`
	GasFeePerMMBtu      float64 `mapstructure:"gas_fee_per_mmbtu"`
	ExchangeRateRMB     float64 `mapstructure:"exchange_rate_rmb"`
	InitialRealizedPL   float64 `mapstructure:"initial_realized_pl"`
	ReconciliationBase  float64 `mapstructure:"reconciliation_base"`
	ReconciliationOther float64 `mapstructure:"reconciliation_other"`
	TTFMultiplier       float64 `mapstructure:"ttf_multiplier"`
}

// Quotes holds the configuration for the external price snapshot feed.
type Quotes struct {
	Enabled        bool    `mapstructure:"enabled"`
	BaseURL        string  `mapstructure:"base_url"`
	Path           string  `mapstructure:"path"`
	ApiKey         string  `mapstructure:"api_key"`
	RateLimit      float64 `mapstructure:"rate_limit"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
	PollInterval   int     `mapstructure:"poll_interval"`
}

// DefaultProducts is the product catalogue used when the config file has none.
func DefaultProducts() []Product {
	months := []string{"2602", "2603", "2604", "2605", "2606", "2607", "2608", "2609", "2610", "2611", "2612", "2701", "2702", "2703", "26Q4", "27Q1"}
	return []Product{
		{Name: "Brent", Multiplier: 1000, Contracts: months},
		{Name: "Henry Hub", Multiplier: 10000, Contracts: []string{"HH2511", "HH2512", "HH2601", "HH2607"}},
		{Name: "JKM", Multiplier: 10000, Contracts: months},
		// TTF is further scaled by the ttf_multiplier setting.
		{Name: "TTF", Multiplier: 10000, Contracts: months},
	}
}

// LoadConfig reads configuration from file or environment variables.
// A missing config file is not an error; defaults apply.
func LoadConfig(path string) (config Config, err error) {
	if err = loadDotEnv(path); err != nil {
		return
	}

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config") // name of config file (without extension)
	v.SetConfigType("yml")

	// Allow environment variables to override config file
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err = v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return
		}
		err = nil
	}

	if err = v.Unmarshal(&config); err != nil {
		return
	}

	if len(config.Contracts.Products) == 0 {
		config.Contracts.Products = DefaultProducts()
	}
	return
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8501)
	v.SetDefault("server.static_dir", "web/static")
	v.SetDefault("database.dsn", "trade_analytics.db")
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.file", "")

	v.SetDefault("contracts.traders", []string{"W", "L", "Z", "D"})

	v.SetDefault("defaults.brent_fee_per_bbl", 0)
	v.SetDefault("defaults.gas_fee_per_mmbtu", 0)
	v.SetDefault("defaults.exchange_rate_rmb", 7.13)
	v.SetDefault("defaults.initial_realized_pl", 0)
	v.SetDefault("defaults.reconciliation_base", 156170)
	v.SetDefault("defaults.reconciliation_other", 45800)
	v.SetDefault("defaults.ttf_multiplier", 3412)

	v.SetDefault("quotes.enabled", false)
	v.SetDefault("quotes.base_url", "")
	v.SetDefault("quotes.api_key", "")
	v.SetDefault("quotes.path", "/prices")
	v.SetDefault("quotes.rate_limit", 5)       // requests per second
	v.SetDefault("quotes.rate_limit_burst", 2) // burst size
	v.SetDefault("quotes.poll_interval", 60)   // seconds
}

// loadDotEnv loads a .env file from the config directory and then from the
// working directory. Variables already set in the environment win.
func loadDotEnv(path string) error {
	for _, file := range []string{filepath.Join(path, ".env"), ".env"} {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}
