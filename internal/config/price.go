package config

import (
	"time"

	"github.com/spf13/pflag"
)

// PriceConfig holds configuration for the price command.
type PriceConfig struct {
	RPCURL       string
	Oracle       string
	WithAge      bool
	Oracles      map[string]string
	MaxRetries   int
	RetryBackoff time.Duration
	LogLevel     string
}

// LoadPrice merges config file, environment variables, and flags into PriceConfig.
func LoadPrice(cfgFile string, flags *pflag.FlagSet) (PriceConfig, error) {
	v, err := newViper(flags)
	if err != nil {
		return PriceConfig{}, err
	}
	v.SetDefault("oracle", "ETH")
	v.SetDefault("with-age", false)
	v.SetDefault("max-retries", 5)
	v.SetDefault("retry-backoff", 500*time.Millisecond)

	if err := readConfig(v, cfgFile); err != nil {
		return PriceConfig{}, err
	}

	return PriceConfig{
		RPCURL:       v.GetString("rpc"),
		Oracle:       v.GetString("oracle"),
		WithAge:      v.GetBool("with-age"),
		Oracles:      getStringMap(v, "oracles"),
		MaxRetries:   v.GetInt("max-retries"),
		RetryBackoff: v.GetDuration("retry-backoff"),
		LogLevel:     v.GetString("log-level"),
	}, nil
}
