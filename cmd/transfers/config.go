package main

import (
	"github.com/dipdup-net/go-lib/config"
)

// Config -
type Config struct {
	config.Config `yaml:",inline"`
	LogLevel      string        `yaml:"log_level" validate:"omitempty,oneof=debug trace info warn error fatal panic"`
	API           APIConfig     `yaml:"api"`
	Indexer       IndexerConfig `yaml:"indexer"`
	Filler        FillerConfig  `yaml:"filler"`
	Metrics       MetricsConfig `yaml:"metrics"`
}

// Substitute -
func (c *Config) Substitute() error {
	if err := c.Config.Substitute(); err != nil {
		return err
	}
	return nil
}

// Load -
func Load(filename string) (cfg Config, err error) {
	err = config.Parse(filename, &cfg)
	return
}

// APIConfig -
type APIConfig struct {
	Bind               string   `yaml:"bind" validate:"omitempty,hostname_port"`
	AllowedOrigins     []string `yaml:"allowed_origins" validate:"omitempty,dive,url"`
	RequestLogs        bool     `yaml:"request_logs"`
	SlowQueryThreshold int      `yaml:"slow_query_threshold" validate:"omitempty,min=1"`
	ReadTimeout        int      `yaml:"read_timeout" validate:"omitempty,min=1"`
}

// IndexerConfig -
type IndexerConfig struct {
	Datasource   string   `yaml:"datasource" validate:"omitempty"`
	Contracts    []string `yaml:"contracts" validate:"omitempty,dive,eth_addr"`
	StartLevel   uint64   `yaml:"start_level" validate:"min=0"`
	BatchSize    uint64   `yaml:"batch_size" validate:"omitempty,min=1"`
	PollInterval int      `yaml:"poll_interval" validate:"omitempty,min=1"`
}

// FillerConfig -
type FillerConfig struct {
	WorkersCount int `yaml:"workers_count" validate:"omitempty,min=1"`
	Delay        int `yaml:"delay" validate:"omitempty,min=1"`
}

// MetricsConfig -
type MetricsConfig struct {
	Bind string `yaml:"bind" validate:"omitempty,hostname_port"`
}
