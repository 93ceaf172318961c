package config

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

const envPrefix = "TREND"

type manager struct {
	mu         sync.RWMutex
	config     *Config
	viper      *viper.Viper
	configPath string
}

func NewManager() Manager {
	return &manager{
		viper: viper.New(),
	}
}

// Load reads configPath (optional, may be empty) on top of the defaults and
// the TREND_* environment, e.g. TREND_LLM_API_KEY for llm.api_key.
func (m *manager) Load(configPath string) (*Config, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.configPath = configPath
	m.setupViper(configPath)

	config, err := m.read()
	if err != nil {
		return nil, err
	}

	m.config = config
	return config, nil
}

func (m *manager) Reload() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.config == nil {
		return fmt.Errorf("config not loaded")
	}

	config, err := m.read()
	if err != nil {
		return fmt.Errorf("failed to reload config: %w", err)
	}

	m.config = config
	return nil
}

func (m *manager) GetConfig() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

func (m *manager) read() (*Config, error) {
	if m.configPath != "" {
		if err := m.viper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var config Config
	if err := m.viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

func (m *manager) setupViper(configPath string) {
	if configPath != "" {
		m.viper.SetConfigFile(configPath)
	}

	m.viper.SetEnvPrefix(envPrefix)
	m.viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	m.viper.AutomaticEnv()

	setDefaults(m.viper)

	// credentials also accepted under their vendor names
	_ = m.viper.BindEnv("llm.api_key", "TREND_LLM_API_KEY", "OPENAI_API_KEY")
	_ = m.viper.BindEnv("datalab.client_id", "TREND_DATALAB_CLIENT_ID", "NAVER_CLIENT_ID")
	_ = m.viper.BindEnv("datalab.client_secret", "TREND_DATALAB_CLIENT_SECRET", "NAVER_CLIENT_SECRET")
}

// setDefaults registers every key so AutomaticEnv also applies to keys that
// are absent from the file.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8000)

	v.SetDefault("storage.driver", "sqlite")
	v.SetDefault("storage.dsn", "data/trends.db")
	v.SetDefault("storage.over_read", 100)

	v.SetDefault("refresh.interval", time.Hour)
	v.SetDefault("refresh.staleness_threshold", time.Hour)
	v.SetDefault("refresh.workers", 2)
	v.SetDefault("refresh.queue_size", 16)
	v.SetDefault("refresh.task_timeout", 10*time.Minute)
	v.SetDefault("refresh.run_on_start", false)

	v.SetDefault("sources.per_source_cap", 10)
	v.SetDefault("sources.timeout", 30*time.Second)
	v.SetDefault("sources.naver.enabled", true)
	v.SetDefault("sources.naver.base_url", "https://datalab.naver.com/shoppingInsight/sCategory.naver")
	v.SetDefault("sources.naver.page_qps", 1.0)
	v.SetDefault("sources.youtube.enabled", true)
	v.SetDefault("sources.youtube.url", "https://www.youtube.com/feed/trending")
	v.SetDefault("sources.google_trends.enabled", true)
	v.SetDefault("sources.google_trends.url", "https://trends.google.com/trending/rss?geo=KR")

	v.SetDefault("llm.endpoint", "https://api.openai.com/v1")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.model", "gpt-4o-mini-search-preview")
	v.SetDefault("llm.timeout", 20*time.Second)
	v.SetDefault("llm.max_concurrent", 4)

	v.SetDefault("datalab.endpoint", "https://openapi.naver.com/v1/datalab/search")
	v.SetDefault("datalab.client_id", "")
	v.SetDefault("datalab.client_secret", "")
	v.SetDefault("datalab.timeout", 5*time.Second)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
	v.SetDefault("logger.output", "stdout")
	v.SetDefault("logger.time_format", "")
}

func validateConfig(config *Config) error {
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	switch config.Storage.Driver {
	case "sqlite", "postgres":
		if config.Storage.DSN == "" {
			return fmt.Errorf("storage.dsn cannot be empty for driver %s", config.Storage.Driver)
		}
	case "memory":
	default:
		return fmt.Errorf("unknown storage driver: %q", config.Storage.Driver)
	}

	if config.Storage.OverRead <= 0 {
		return fmt.Errorf("storage.over_read must be positive")
	}

	if config.Refresh.Workers <= 0 {
		return fmt.Errorf("refresh.workers must be positive")
	}

	if config.Refresh.QueueSize <= 0 {
		return fmt.Errorf("refresh.queue_size must be positive")
	}

	if config.Refresh.Interval <= 0 || config.Refresh.StalenessThreshold <= 0 {
		return fmt.Errorf("refresh.interval and refresh.staleness_threshold must be positive")
	}

	if config.Sources.PerSourceCap <= 0 {
		return fmt.Errorf("sources.per_source_cap must be positive")
	}

	return nil
}
