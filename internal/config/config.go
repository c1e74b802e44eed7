package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	scfg "github.com/ihippik/config"
	"github.com/sethvargo/go-envconfig"
	"gopkg.in/yaml.v3"
)

const (
	SinkConsole = "console"
	SinkLog     = "log"
)

// maxRecordsLimit bounds the dump buffer; the driver never tracks more than this per request.
const maxRecordsLimit = 1024

// minPathLimit leaves room for at least one character next to the truncation marker.
const minPathLimit = 3

type Config struct {
	Logger     *scfg.Logger    `yaml:"-" env:",prefix=LOG_"`
	Monitoring scfg.Monitoring `yaml:"-"`
	Channel    Channel         `yaml:"channel" env:",prefix=CHANNEL_"`
	Poll       Poll            `yaml:"poll" env:",prefix=POLL_"`
	Sink       Sink            `yaml:"sink" env:",prefix=SINK_"`
	Metrics    Metrics         `yaml:"metrics" env:",prefix=METRICS_"`
}

// Channel locates the producer control endpoint.
type Channel struct {
	Path       string `yaml:"path" env:"PATH, overwrite"`
	MaxRecords int    `yaml:"max_records" env:"MAX_RECORDS, overwrite, default=128"`
}

type Poll struct {
	Interval          time.Duration `yaml:"interval" env:"INTERVAL, overwrite, default=200ms"`
	IdleInterval      time.Duration `yaml:"idle_interval" env:"IDLE_INTERVAL, overwrite, default=1s"`
	ReconnectAttempts uint64        `yaml:"reconnect_attempts" env:"RECONNECT_ATTEMPTS, overwrite"`
}

type Sink struct {
	Kind      string `yaml:"kind" env:"KIND, overwrite, default=console"`
	PathLimit int    `yaml:"path_limit" env:"PATH_LIMIT, overwrite, default=100"`
}

type Metrics struct {
	Addr string `yaml:"addr" env:"ADDR, overwrite"`
}

// InitConfig reads the optional YAML file at path and lays the environment over it.
func InitConfig(ctx context.Context, path string) (*Config, error) {
	var cfg Config

	if err := readFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("process: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate: %w", err)
	}

	return &cfg, nil
}

func readFile(path string, cfg *Config) error {
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}

		return err
	}

	return yaml.Unmarshal(data, cfg)
}

func (c *Config) Validate() error {
	if c.Channel.MaxRecords <= 0 || c.Channel.MaxRecords > maxRecordsLimit {
		return fmt.Errorf("channel max records must be in 1..%d, got %d", maxRecordsLimit, c.Channel.MaxRecords)
	}

	if c.Poll.Interval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %s", c.Poll.Interval)
	}

	if c.Poll.IdleInterval <= 0 {
		return fmt.Errorf("poll idle interval must be positive, got %s", c.Poll.IdleInterval)
	}

	switch c.Sink.Kind {
	case SinkConsole, SinkLog:
	default:
		return fmt.Errorf("unknown sink kind %q", c.Sink.Kind)
	}

	if c.Sink.PathLimit <= minPathLimit {
		return fmt.Errorf("sink path limit must be above %d, got %d", minPathLimit, c.Sink.PathLimit)
	}

	return nil
}
