package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Cache     CacheConfig     `yaml:"cache"`
	Trends    TrendsConfig    `yaml:"trends"`
	Generator GeneratorConfig `yaml:"generator"`
	Images    ImagesConfig    `yaml:"images"`
	Syndicate SyndicateConfig `yaml:"syndicate"`
	Cron      CronConfig      `yaml:"cron"`
	Site      SiteConfig      `yaml:"site"`
	Logging   LoggingConfig   `yaml:"logging"`
	Parser    ParserConfig    `yaml:"parser"`
	AdminKey  string          `yaml:"admin_key"`
}

type ServerConfig struct {
	Port string `yaml:"port"`
	Mode string `yaml:"mode"` // debug, release
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// RateLimitRule defines one namespace quota: Max requests per Window seconds.
type RateLimitRule struct {
	Max    int `yaml:"max"`
	Window int `yaml:"window"`
}

type RateLimitConfig struct {
	Namespaces map[string]RateLimitRule `yaml:"namespaces"`
}

type CacheConfig struct {
	RecordTTL int `yaml:"record_ttl"` // seconds
	ListTTL   int `yaml:"list_ttl"`   // seconds
}

// TrendFeed is one specialist RSS source; its items enter the pool unfiltered.
type TrendFeed struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

type TrendsConfig struct {
	Feeds       []TrendFeed `yaml:"feeds"`
	TrendingURL string      `yaml:"trending_url"`
	Keywords    []string    `yaml:"keywords"`
	Retries     int         `yaml:"retries"`
	TimeoutSecs int         `yaml:"timeout"`
}

type GeneratorConfig struct {
	ApiURL string `yaml:"api_url"`
	ApiKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

type ImagesConfig struct {
	ApiKey string `yaml:"api_key"`
}

type SyndicateConfig struct {
	WebhookURL string `yaml:"webhook_url"`
}

type CronConfig struct {
	PoolRefresh string `yaml:"pool_refresh"` // daily prompt pool rebuild
	AutoPublish string `yaml:"auto_publish"` // scheduled pipeline run
	ViewFlush   string `yaml:"view_flush"`   // view-counter buffer flush
}

type SiteConfig struct {
	BaseURL string `yaml:"base_url"`
	Name    string `yaml:"name"`
	Author  string `yaml:"author"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

type ParserConfig struct {
	// All-caps titles longer than this are converted to title case.
	// Short acronyms fall below the threshold and are left alone.
	TitleCaseMinLen int `yaml:"title_case_min_len"`
}

// Timeout resolves the per-source fetch timeout.
func (t TrendsConfig) Timeout() time.Duration {
	if t.TimeoutSecs <= 0 {
		return 10 * time.Second
	}
	return time.Duration(t.TimeoutSecs) * time.Second
}

// Load reads the YAML config file if present and applies environment overrides.
func Load(configPath string) (*Config, error) {
	cfg := defaultConfig()

	if _, err := os.Stat(configPath); err == nil {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	} else if configPath != "" {
		log.Printf("config file not found: %s, using defaults", configPath)
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("PORT"); v != "" {
		c.Server.Port = v
	}
	if v := os.Getenv("GIN_MODE"); v != "" {
		c.Server.Mode = v
	}
	if v := os.Getenv("DB_PATH"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Redis.DB = n
		}
	}
	if v := os.Getenv("GENERATOR_API_URL"); v != "" {
		c.Generator.ApiURL = v
	}
	if v := os.Getenv("GENERATOR_API_KEY"); v != "" {
		c.Generator.ApiKey = v
	}
	if v := os.Getenv("GENERATOR_MODEL"); v != "" {
		c.Generator.Model = v
	}
	if v := os.Getenv("IMAGE_API_KEY"); v != "" {
		c.Images.ApiKey = v
	}
	if v := os.Getenv("SYNDICATE_WEBHOOK_URL"); v != "" {
		c.Syndicate.WebhookURL = v
	}
	if v := os.Getenv("ADMIN_KEY"); v != "" {
		c.AdminKey = v
	}
	if v := os.Getenv("SITE_BASE_URL"); v != "" {
		c.Site.BaseURL = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// GetServerAddress returns the listen address for the HTTP server.
func (c *Config) GetServerAddress() string {
	if _, err := strconv.Atoi(c.Server.Port); err == nil {
		return ":" + c.Server.Port
	}
	return c.Server.Port
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8080",
			Mode: "debug",
		},
		Database: DatabaseConfig{
			Path: "data/starpress.db",
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		RateLimit: RateLimitConfig{
			Namespaces: map[string]RateLimitRule{
				"api":   {Max: 60, Window: 60},
				"views": {Max: 10, Window: 60},
				"admin": {Max: 30, Window: 60},
			},
		},
		Cache: CacheConfig{
			RecordTTL: 300,
			ListTTL:   60,
		},
		Trends: TrendsConfig{
			Feeds: []TrendFeed{
				{Name: "nasa", URL: "https://www.nasa.gov/feed/"},
				{Name: "space-com", URL: "https://www.space.com/feeds/all"},
				{Name: "sky-telescope", URL: "https://skyandtelescope.org/feed/"},
			},
			TrendingURL: "https://trends.google.com/trending/rss?geo=US",
			Keywords: []string{
				"moon", "lunar", "eclipse", "meteor", "comet", "planet",
				"mars", "jupiter", "saturn", "aurora", "telescope", "nasa",
				"astronomy", "supermoon", "solstice", "equinox", "star",
			},
			Retries:     2,
			TimeoutSecs: 10,
		},
		Generator: GeneratorConfig{
			ApiURL: "https://api.openai.com/v1",
			Model:  "gpt-4o-mini",
		},
		Cron: CronConfig{
			PoolRefresh: "0 5 * * *",   // rebuild the prompt pool every morning
			AutoPublish: "0 */6 * * *", // publish one pooled prompt every 6 hours
			ViewFlush:   "*/5 * * * *", // flush buffered view counts
		},
		Site: SiteConfig{
			BaseURL: "http://localhost:8080",
			Name:    "Starpress",
			Author:  "Starpress Editorial",
		},
		Logging: LoggingConfig{Level: "info"},
		Parser:  ParserConfig{TitleCaseMinLen: 10},
	}
}
