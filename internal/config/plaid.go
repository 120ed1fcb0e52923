// Package config provides configuration utilities for the application.
package config

import (
	"os"

	"github.com/spf13/viper"

	"github.com/cmather/budgetd/internal/plaid"
)

// LoadPlaidConfig loads Plaid configuration following this precedence:
// 1. Viper configuration (from config file or BUDGETD_ env vars)
// 2. Direct environment variables (PLAID_*)
// 3. Defaults (sandbox environment)
func LoadPlaidConfig() (*plaid.Config, error) {
	cfg := plaid.Config{
		Environment: "sandbox",
	}

	if v := viper.GetString("plaid.client_id"); v != "" {
		cfg.ClientID = v
	}
	if v := viper.GetString("plaid.secret"); v != "" {
		cfg.Secret = v
	}
	if v := viper.GetString("plaid.environment"); v != "" {
		cfg.Environment = v
	}
	if v := viper.GetString("plaid.access_token"); v != "" {
		cfg.AccessToken = v
	}
	cfg.UserID = viper.GetString("user")

	if cfg.ClientID == "" {
		cfg.ClientID = os.Getenv("PLAID_CLIENT_ID")
	}
	if cfg.Secret == "" {
		cfg.Secret = os.Getenv("PLAID_SECRET")
	}
	if cfg.AccessToken == "" {
		cfg.AccessToken = os.Getenv("PLAID_ACCESS_TOKEN")
	}
	if v := os.Getenv("PLAID_ENV"); v != "" && viper.GetString("plaid.environment") == "" {
		cfg.Environment = v
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
