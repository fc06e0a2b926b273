package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/danij3l/simple-invoice/models"
)

type Config struct {
	Port             string
	DatabaseURL      string
	JWTSecret        string
	JWTRefreshSecret string
	HNBBaseURL       string
	LogLevel         string
	Rules            models.Rules
}

func LoadConfig() (*Config, error) {
	godotenv.Load()

	rules := models.Rules{
		HomeCurrency:        getEnvOrDefault("HOME_CURRENCY", models.CurrencyHRK),
		PaymentPostponeDays: 14,
		ExemptedCountries:   []string{"HR"},
		VATRates: map[string]decimal.Decimal{
			"HR": decimal.New(25, -2),
			"SE": decimal.New(22, -2),
		},
	}

	if v := os.Getenv("PAYMENT_POSTPONE_DAYS"); v != "" {
		days, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid PAYMENT_POSTPONE_DAYS %q: %w", v, err)
		}
		rules.PaymentPostponeDays = days
	}
	if v := os.Getenv("EXEMPTED_COUNTRIES"); v != "" {
		rules.ExemptedCountries = strings.Split(v, ",")
	}
	if v := os.Getenv("VAT_RATES"); v != "" {
		rates, err := parseVATRates(v)
		if err != nil {
			return nil, err
		}
		rules.VATRates = rates
	}

	return &Config{
		Port:             os.Getenv("PORT"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		JWTSecret:        os.Getenv("JWT_SECRET"),
		JWTRefreshSecret: os.Getenv("JWT_REFRESH_SECRET"),
		HNBBaseURL:       getEnvOrDefault("HNB_BASE_URL", "http://hnbex.eu/api/v1"),
		LogLevel:         getEnvOrDefault("LOG_LEVEL", "info"),
		Rules:            rules,
	}, nil
}

// parseVATRates reads a "HR:0.25,SE:0.22" style country-to-rate list.
func parseVATRates(raw string) (map[string]decimal.Decimal, error) {
	rates := make(map[string]decimal.Decimal)
	for _, pair := range strings.Split(raw, ",") {
		country, value, found := strings.Cut(strings.TrimSpace(pair), ":")
		if !found {
			return nil, fmt.Errorf("invalid VAT_RATES entry %q", pair)
		}
		rate, err := decimal.NewFromString(value)
		if err != nil {
			return nil, fmt.Errorf("invalid VAT rate for %s: %w", country, err)
		}
		rates[strings.ToUpper(country)] = rate
	}
	return rates, nil
}

func InitDB(cfg *Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(&models.User{}, &models.Client{}, &models.Invoice{}, &models.InvoiceItem{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return db, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
