package config

import (
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// SiteConfig configures one job-board adapter.
type SiteConfig struct {
	Name      string        `yaml:"name"`
	Enabled   bool          `yaml:"enabled"`
	BaseURL   string        `yaml:"base_url"`
	Country   string        `yaml:"country"`
	AppID     string        `yaml:"app_id"`
	APIKey    string        `yaml:"api_key"`
	RateLimit int           `yaml:"rate_limit"` // requests per minute
	Timeout   time.Duration `yaml:"timeout"`
}

// Config represents the application configuration
type Config struct {
	Server struct {
		Port         int           `yaml:"port" default:"8080"`
		Host         string        `yaml:"host" default:"0.0.0.0"`
		ReadTimeout  time.Duration `yaml:"read_timeout" default:"30s"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"30s"`
		IdleTimeout  time.Duration `yaml:"idle_timeout" default:"60s"`
	} `yaml:"server"`

	Workflow struct {
		PoolSize        int           `yaml:"pool_size" default:"5"` // concurrent (profile x site) units
		RunInterval     time.Duration `yaml:"run_interval" default:"30m"`
		ScheduleEnabled bool          `yaml:"schedule_enabled" default:"false"`
		MaxReportErrors int           `yaml:"max_report_errors" default:"50"`
		UnitTimeout     time.Duration `yaml:"unit_timeout" default:"60s"`
	} `yaml:"workflow"`

	Retry struct {
		MaxRetries       int           `yaml:"max_retries" default:"3"`
		BaseDelay        time.Duration `yaml:"base_delay" default:"1s"`
		MaxDelay         time.Duration `yaml:"max_delay" default:"30s"`
		Multiplier       float64       `yaml:"multiplier" default:"2"`
		JitterMax        time.Duration `yaml:"jitter_max" default:"1s"`
		FailureThreshold int           `yaml:"failure_threshold" default:"5"`
		CooldownWindow   time.Duration `yaml:"cooldown_window" default:"30s"`
	} `yaml:"retry"`

	Dedup struct {
		SimilarityThreshold float64 `yaml:"similarity_threshold" default:"0.85"`
		StrictThreshold     float64 `yaml:"strict_threshold" default:"0.9"`
		CandidateLimit      int     `yaml:"candidate_limit" default:"500"` // stored postings compared per site
	} `yaml:"dedup"`

	Scraper struct {
		UserAgent string        `yaml:"user_agent"`
		Timeout   time.Duration `yaml:"timeout" default:"30s"`
		Sites     []SiteConfig  `yaml:"sites"`
	} `yaml:"scraper"`

	Storage struct {
		Driver   string `yaml:"driver" default:"memory"` // memory, postgres
		Postgres struct {
			DSN             string        `yaml:"dsn"`
			MaxConns        int           `yaml:"max_conns" default:"10"`
			ConnectTimeout  time.Duration `yaml:"connect_timeout" default:"5s"`
			MigrateOnStart  bool          `yaml:"migrate_on_start" default:"true"`
		} `yaml:"postgres"`
		Redis struct {
			Enabled  bool          `yaml:"enabled" default:"false"`
			URL      string        `yaml:"url" default:"redis://localhost:6379"`
			Password string        `yaml:"password"`
			DB       int           `yaml:"db" default:"0"`
			Timeout  time.Duration `yaml:"timeout" default:"5s"`
			TTL      time.Duration `yaml:"ttl" default:"168h"` // hash index expiry
		} `yaml:"redis"`
	} `yaml:"storage"`

	Notify struct {
		Channel string `yaml:"channel" default:"log"`
	} `yaml:"notify"`

	Logging struct {
		Level  string `yaml:"level" default:"info"`
		Format string `yaml:"format" default:"json"`
		Output string `yaml:"output" default:"stdout"`

		Adapters []struct {
			Name    string                 `yaml:"name"`
			Type    string                 `yaml:"type"`
			Enabled bool                   `yaml:"enabled"`
			Options map[string]interface{} `yaml:"options"`
		} `yaml:"adapters"`
	} `yaml:"logging"`
}

// expandEnvVars expands environment variables in a string using ${VAR} or $VAR syntax
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)
	s = re.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		if val := os.Getenv(varName); val != "" {
			return val
		}
		return match
	})

	re2 := regexp.MustCompile(`\$([A-Za-z_][A-Za-z0-9_]*)`)
	s = re2.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[1:]
		if val := os.Getenv(varName); val != "" {
			return val
		}
		return match
	})

	return s
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	// Load .env file if it exists (ignore errors if file doesn't exist)
	_ = godotenv.Load()

	config := &Config{}

	// Set defaults
	config.Server.Port = 8080
	config.Server.Host = "0.0.0.0"
	config.Server.ReadTimeout = 30 * time.Second
	config.Server.WriteTimeout = 30 * time.Second
	config.Server.IdleTimeout = 60 * time.Second

	config.Workflow.PoolSize = 5
	config.Workflow.RunInterval = 30 * time.Minute
	config.Workflow.MaxReportErrors = 50
	config.Workflow.UnitTimeout = 60 * time.Second

	config.Retry.MaxRetries = 3
	config.Retry.BaseDelay = 1 * time.Second
	config.Retry.MaxDelay = 30 * time.Second
	config.Retry.Multiplier = 2
	config.Retry.JitterMax = 1 * time.Second
	config.Retry.FailureThreshold = 5
	config.Retry.CooldownWindow = 30 * time.Second

	config.Dedup.SimilarityThreshold = 0.85
	config.Dedup.StrictThreshold = 0.9
	config.Dedup.CandidateLimit = 500

	config.Scraper.Timeout = 30 * time.Second
	config.Scraper.UserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	config.Storage.Driver = "memory"
	config.Storage.Postgres.MaxConns = 10
	config.Storage.Postgres.ConnectTimeout = 5 * time.Second
	config.Storage.Postgres.MigrateOnStart = true
	config.Storage.Redis.URL = "redis://localhost:6379"
	config.Storage.Redis.Timeout = 5 * time.Second
	config.Storage.Redis.TTL = 168 * time.Hour

	config.Notify.Channel = "log"

	config.Logging.Level = "info"
	config.Logging.Format = "json"
	config.Logging.Output = "stdout"

	// Load from YAML file if it exists
	if configPath != "" {
		if data, err := os.ReadFile(configPath); err == nil {
			// Expand environment variables in the YAML content
			yamlContent := expandEnvVars(string(data))

			if err := yaml.Unmarshal([]byte(yamlContent), config); err != nil {
				return nil, err
			}
		}
	}

	// Override with environment variables
	config.loadFromEnv()

	return config, nil
}

// loadFromEnv loads configuration from environment variables
func (c *Config) loadFromEnv() {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}

	if host := os.Getenv("HOST"); host != "" {
		c.Server.Host = host
	}

	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}

	if logFormat := os.Getenv("LOG_FORMAT"); logFormat != "" {
		c.Logging.Format = logFormat
	}

	if driver := os.Getenv("STORAGE_DRIVER"); driver != "" {
		c.Storage.Driver = driver
	}

	if dsn := os.Getenv("POSTGRES_DSN"); dsn != "" {
		c.Storage.Postgres.DSN = dsn
	}

	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		c.Storage.Redis.URL = redisURL
		c.Storage.Redis.Enabled = true
	}

	if redisPassword := os.Getenv("REDIS_PASSWORD"); redisPassword != "" {
		c.Storage.Redis.Password = redisPassword
	}

	if redisDB := os.Getenv("REDIS_DB"); redisDB != "" {
		if db, err := strconv.Atoi(redisDB); err == nil {
			c.Storage.Redis.DB = db
		}
	}

	if interval := os.Getenv("WORKFLOW_RUN_INTERVAL"); interval != "" {
		if d, err := time.ParseDuration(interval); err == nil {
			c.Workflow.RunInterval = d
			c.Workflow.ScheduleEnabled = true
		}
	}

	// Per-site API credentials: <SITE>_APP_ID / <SITE>_API_KEY
	for i := range c.Scraper.Sites {
		site := &c.Scraper.Sites[i]
		prefix := envPrefix(site.Name)
		if appID := os.Getenv(prefix + "_APP_ID"); appID != "" {
			site.AppID = appID
		}
		if apiKey := os.Getenv(prefix + "_API_KEY"); apiKey != "" {
			site.APIKey = apiKey
		}
	}
}

var envPrefixRe = regexp.MustCompile(`[^A-Z0-9]+`)

func envPrefix(name string) string {
	return envPrefixRe.ReplaceAllString(strings.ToUpper(name), "_")
}

// EnabledSites returns the names of all enabled site adapters.
func (c *Config) EnabledSites() []string {
	var names []string
	for _, s := range c.Scraper.Sites {
		if s.Enabled {
			names = append(names, s.Name)
		}
	}
	return names
}

// SiteConfig returns the configuration for a named site, if present.
func (c *Config) SiteConfig(name string) (SiteConfig, bool) {
	for _, s := range c.Scraper.Sites {
		if s.Name == name {
			return s, true
		}
	}
	return SiteConfig{}, false
}
