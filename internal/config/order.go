package config

import (
	"time"

	"github.com/spf13/pflag"
)

// OrderConfig holds configuration for the order command.
type OrderConfig struct {
	RPCURL        string
	Factory       string
	Pool          string
	Prices        []string
	Out           string
	PoolCacheSize int
	MaxRetries    int
	RetryBackoff  time.Duration
	LogLevel      string
}

// LoadOrder merges config file, environment variables, and flags into OrderConfig.
func LoadOrder(cfgFile string, flags *pflag.FlagSet) (OrderConfig, error) {
	v, err := newViper(flags)
	if err != nil {
		return OrderConfig{}, err
	}
	v.SetDefault("pool-cache-size", 256)
	v.SetDefault("max-retries", 5)
	v.SetDefault("retry-backoff", 500*time.Millisecond)

	if err := readConfig(v, cfgFile); err != nil {
		return OrderConfig{}, err
	}

	return OrderConfig{
		RPCURL:        v.GetString("rpc"),
		Factory:       v.GetString("factory"),
		Pool:          v.GetString("pool"),
		Prices:        getStringSlice(v, "prices"),
		Out:           v.GetString("out"),
		PoolCacheSize: v.GetInt("pool-cache-size"),
		MaxRetries:    v.GetInt("max-retries"),
		RetryBackoff:  v.GetDuration("retry-backoff"),
		LogLevel:      v.GetString("log-level"),
	}, nil
}
