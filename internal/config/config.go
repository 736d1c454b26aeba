package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/mhartman/chirpwidget/internal/format"
)

// Feed sources.
const (
	SourceAPI = "api"
	SourceRSS = "rss"
)

type Config struct {
	Account AccountConfig `mapstructure:"account"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Feed    FeedConfig    `mapstructure:"feed"`
	Links   LinkConfig    `mapstructure:"links"`
	Log     LogConfig     `mapstructure:"log"`
}

type AccountConfig struct {
	Handle string `mapstructure:"handle"`
}

// AuthConfig holds the four OAuth1 credential strings for the feed API.
// The values are opaque to this program; they are handed to the OAuth
// client library as-is.
type AuthConfig struct {
	ConsumerKey    string `mapstructure:"consumer_key"`
	ConsumerSecret string `mapstructure:"consumer_secret"`
	AccessToken    string `mapstructure:"access_token"`
	AccessSecret   string `mapstructure:"access_secret"`
}

func (a AuthConfig) Complete() bool {
	return a.ConsumerKey != "" && a.ConsumerSecret != "" &&
		a.AccessToken != "" && a.AccessSecret != ""
}

type CacheConfig struct {
	Path     string        `mapstructure:"path"`
	Lifespan time.Duration `mapstructure:"lifespan"`
}

type FeedConfig struct {
	Count          int           `mapstructure:"count"`
	ExcludeReplies bool          `mapstructure:"exclude_replies"`
	RelativeTime   bool          `mapstructure:"relative_time"`
	DateLayout     string        `mapstructure:"date_layout"`
	Timezone       string        `mapstructure:"timezone"`
	Source         string        `mapstructure:"source"`
	RSSURL         string        `mapstructure:"rss_url"`
	HTTPTimeout    time.Duration `mapstructure:"http_timeout"`
}

// Location resolves the configured timezone name. "Local" and the empty
// string mean the process-local zone.
func (f FeedConfig) Location() (*time.Location, error) {
	if f.Timezone == "" || f.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(f.Timezone)
	if err != nil {
		return nil, fmt.Errorf("resolving timezone: %w", err)
	}
	return loc, nil
}

type LinkConfig struct {
	ProfileURL string `mapstructure:"profile_url"`
	SearchURL  string `mapstructure:"search_url"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	Path  string `mapstructure:"path"`
}

func defaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()
	cachePath := filepath.Join(homeDir, ".chirpwidget", "feed.json")

	return &Config{
		Account: AccountConfig{},
		Cache: CacheConfig{
			Path:     cachePath,
			Lifespan: 180 * time.Second,
		},
		Feed: FeedConfig{
			Count:          5,
			ExcludeReplies: true,
			RelativeTime:   true,
			DateLayout:     format.DefaultLayout,
			Timezone:       "Local",
			Source:         SourceAPI,
			RSSURL:         "https://nitter.net/{handle}/rss",
			HTTPTimeout:    30 * time.Second,
		},
		Links: LinkConfig{
			ProfileURL: "https://twitter.com/{handle}",
			SearchURL:  "https://twitter.com/search?q=%23{tag}",
		},
		Log: LogConfig{
			Level: "off",
		},
	}
}

func Load(configPath string) (*Config, error) {
	v := viper.New()

	cfg := defaultConfig()
	v.SetDefault("account", cfg.Account)
	v.SetDefault("auth", cfg.Auth)
	v.SetDefault("cache", cfg.Cache)
	v.SetDefault("feed", cfg.Feed)
	v.SetDefault("links", cfg.Links)
	v.SetDefault("log", cfg.Log)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		homeDir, _ := os.UserHomeDir()
		configDir := filepath.Join(homeDir, ".config", "chirpwidget")

		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(configDir)
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("CHIRPWIDGET")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	expandPaths(&config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate rejects configurations the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Feed.Source != SourceAPI && c.Feed.Source != SourceRSS {
		return fmt.Errorf("unknown feed source %q", c.Feed.Source)
	}
	if c.Feed.Count < 1 {
		return fmt.Errorf("feed count must be positive, got %d", c.Feed.Count)
	}
	if c.Cache.Lifespan < 0 {
		return fmt.Errorf("cache lifespan must not be negative, got %v", c.Cache.Lifespan)
	}
	if _, err := c.Feed.Location(); err != nil {
		return err
	}

	for name, tmpl := range map[string]string{
		"links.profile_url": c.Links.ProfileURL,
		"links.search_url":  c.Links.SearchURL,
		"feed.rss_url":      c.Feed.RSSURL,
	} {
		expanded := strings.NewReplacer("{handle}", "x", "{tag}", "x").Replace(tmpl)
		if u, err := url.Parse(expanded); err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid %s template %q", name, tmpl)
		}
	}

	return nil
}

// expandPath expands ~ to home directory and converts to absolute path
func expandPath(path string) string {
	if path == "" {
		return path
	}

	if len(path) >= 2 && path[:2] == "~/" {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, path[2:])
	}

	if !filepath.IsAbs(path) {
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
	}

	return path
}

func expandPaths(cfg *Config) {
	cfg.Cache.Path = expandPath(cfg.Cache.Path)
	cfg.Log.Path = expandPath(cfg.Log.Path)
}

func Save(config *Config, path string) error {
	v := viper.New()

	// Sections are written as tag-keyed maps; passing the structs to
	// viper directly would emit Go field names the loader cannot match
	// back to the mapstructure tags. Durations become strings for TOML
	// readability.
	accountCfg := map[string]interface{}{
		"handle": config.Account.Handle,
	}

	authCfg := map[string]interface{}{
		"consumer_key":    config.Auth.ConsumerKey,
		"consumer_secret": config.Auth.ConsumerSecret,
		"access_token":    config.Auth.AccessToken,
		"access_secret":   config.Auth.AccessSecret,
	}

	cacheCfg := map[string]interface{}{
		"path":     config.Cache.Path,
		"lifespan": config.Cache.Lifespan.String(),
	}

	feedCfg := map[string]interface{}{
		"count":           config.Feed.Count,
		"exclude_replies": config.Feed.ExcludeReplies,
		"relative_time":   config.Feed.RelativeTime,
		"date_layout":     config.Feed.DateLayout,
		"timezone":        config.Feed.Timezone,
		"source":          config.Feed.Source,
		"rss_url":         config.Feed.RSSURL,
		"http_timeout":    config.Feed.HTTPTimeout.String(),
	}

	linksCfg := map[string]interface{}{
		"profile_url": config.Links.ProfileURL,
		"search_url":  config.Links.SearchURL,
	}

	logCfg := map[string]interface{}{
		"level": config.Log.Level,
		"path":  config.Log.Path,
	}

	v.Set("account", accountCfg)
	v.Set("auth", authCfg)
	v.Set("cache", cacheCfg)
	v.Set("feed", feedCfg)
	v.Set("links", linksCfg)
	v.Set("log", logCfg)

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	return v.WriteConfigAs(path)
}

func GenerateDefaultConfig(path string) error {
	return Save(defaultConfig(), path)
}
