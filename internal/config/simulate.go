package config

import (
	"github.com/spf13/pflag"
)

// SimulateConfig holds configuration for the simulate command.
type SimulateConfig struct {
	Scenario  string
	Out       string
	Snapshot  string
	Resume    bool
	PGDSN     string
	BatchSize int
	Oracles   map[string]string
	LogLevel  string
}

// LoadSimulate merges config file, environment variables, and flags into SimulateConfig.
func LoadSimulate(cfgFile string, flags *pflag.FlagSet) (SimulateConfig, error) {
	v, err := newViper(flags)
	if err != nil {
		return SimulateConfig{}, err
	}
	v.SetDefault("out", "./data/pool_events.jsonl")
	v.SetDefault("snapshot", "./data/pair_snapshot.json")
	v.SetDefault("resume", false)
	v.SetDefault("batch-size", 1000)

	if err := readConfig(v, cfgFile); err != nil {
		return SimulateConfig{}, err
	}

	return SimulateConfig{
		Scenario:  v.GetString("scenario"),
		Out:       v.GetString("out"),
		Snapshot:  v.GetString("snapshot"),
		Resume:    v.GetBool("resume"),
		PGDSN:     v.GetString("pg-dsn"),
		BatchSize: v.GetInt("batch-size"),
		Oracles:   getStringMap(v, "oracles"),
		LogLevel:  v.GetString("log-level"),
	}, nil
}
