package config

import (
	"time"

	"trend-go/pkg/logger"
)

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Storage StorageConfig `mapstructure:"storage"`
	Refresh RefreshConfig `mapstructure:"refresh"`
	Sources SourcesConfig `mapstructure:"sources"`
	LLM     LLMConfig     `mapstructure:"llm"`
	DataLab DataLabConfig `mapstructure:"datalab"`
	Logger  logger.Config `mapstructure:"logger"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

type StorageConfig struct {
	// Driver is one of sqlite, postgres or memory.
	Driver   string `mapstructure:"driver"`
	DSN      string `mapstructure:"dsn"`
	OverRead int    `mapstructure:"over_read"`
}

type RefreshConfig struct {
	Interval           time.Duration `mapstructure:"interval"`
	StalenessThreshold time.Duration `mapstructure:"staleness_threshold"`
	Workers            int           `mapstructure:"workers"`
	QueueSize          int           `mapstructure:"queue_size"`
	TaskTimeout        time.Duration `mapstructure:"task_timeout"`
	RunOnStart         bool          `mapstructure:"run_on_start"`
}

type SourcesConfig struct {
	PerSourceCap int               `mapstructure:"per_source_cap"`
	Timeout      time.Duration     `mapstructure:"timeout"`
	Naver        NaverSourceConfig `mapstructure:"naver"`
	YouTube      PageSourceConfig  `mapstructure:"youtube"`
	GoogleTrends PageSourceConfig  `mapstructure:"google_trends"`
}

type NaverSourceConfig struct {
	Enabled bool    `mapstructure:"enabled"`
	BaseURL string  `mapstructure:"base_url"`
	PageQPS float64 `mapstructure:"page_qps"`
}

type PageSourceConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
}

type LLMConfig struct {
	Endpoint      string        `mapstructure:"endpoint"`
	APIKey        string        `mapstructure:"api_key"`
	Model         string        `mapstructure:"model"`
	Timeout       time.Duration `mapstructure:"timeout"`
	MaxConcurrent int           `mapstructure:"max_concurrent"`
}

type DataLabConfig struct {
	Endpoint     string        `mapstructure:"endpoint"`
	ClientID     string        `mapstructure:"client_id"`
	ClientSecret string        `mapstructure:"client_secret"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

type Manager interface {
	Load(configPath string) (*Config, error)
	Reload() error
	GetConfig() *Config
}
