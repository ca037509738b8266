package config

import (
	"io/ioutil"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of the environment variables that override the
// configuration file
const EnvPrefix = "LINKSWAP"

// Config represents the link rewriting pipeline configuration
type Config struct {
	Source    SourceConfig    `yaml:"source"`
	Alternate AlternateConfig `yaml:"alternate"`
	Redirect  RedirectConfig  `yaml:"redirect"`
	Check     CheckConfig     `yaml:"check"`
	Watch     WatchConfig     `yaml:"watch"`
	Channel   ChannelConfig   `yaml:"channel"`
}

// SourceConfig describes the site whose links get rewritten
type SourceConfig struct {
	// Host is matched as a substring of link targets, e.g. wikipedia.org
	Host string `yaml:"host" envconfig:"HOST"`
	// ArticlePath is the path segment identifying article links
	ArticlePath string `yaml:"articlePath" envconfig:"ARTICLE_PATH"`
	// AltHrefAttr is the secondary attribute some sites keep the real target in
	AltHrefAttr string `yaml:"altHrefAttr" envconfig:"ALT_HREF_ATTR"`
}

// AlternateConfig describes the site links get rewritten to
type AlternateConfig struct {
	Origin string `yaml:"origin" envconfig:"ORIGIN"`
	// ArticlePaths are the path prefixes a verified article may land on
	// after redirects
	ArticlePaths []string `yaml:"articlePaths" envconfig:"ARTICLE_PATHS"`
	// SoftNotFound are phrases marking a not found page served with a
	// success status
	SoftNotFound []string `yaml:"softNotFound" envconfig:"SOFT_NOT_FOUND"`
}

// RedirectConfig describes search engine redirect wrappers
type RedirectConfig struct {
	Markers []string `yaml:"markers" envconfig:"MARKERS"`
	Params  []string `yaml:"params" envconfig:"PARAMS"`
}

// CheckConfig configures the existence checks
type CheckConfig struct {
	Timeout         time.Duration `yaml:"timeout" envconfig:"TIMEOUT"`
	BodyLimit       int64         `yaml:"bodyLimit" envconfig:"BODY_LIMIT"`
	CacheTTL        time.Duration `yaml:"cacheTTL" envconfig:"CACHE_TTL"`
	CleanupInterval time.Duration `yaml:"cleanupInterval" envconfig:"CLEANUP_INTERVAL"`
	// RatePerSecond limits outbound verification requests, 0 disables the limit
	RatePerSecond float64 `yaml:"ratePerSecond" envconfig:"RATE_PER_SECOND"`
	UserAgent     string  `yaml:"userAgent" envconfig:"USER_AGENT"`
}

// WatchConfig configures document scanning and mutation watching
type WatchConfig struct {
	Debounce       time.Duration `yaml:"debounce" envconfig:"DEBOUNCE"`
	BootstrapDelay time.Duration `yaml:"bootstrapDelay" envconfig:"BOOTSTRAP_DELAY"`
	Concurrency    int           `yaml:"concurrency" envconfig:"CONCURRENCY"`
}

// ChannelConfig configures the page side of the verification channel
type ChannelConfig struct {
	Endpoint string        `yaml:"endpoint" envconfig:"ENDPOINT"`
	Timeout  time.Duration `yaml:"timeout" envconfig:"TIMEOUT"`
	Retries  int           `yaml:"retries" envconfig:"RETRIES"`
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Source: SourceConfig{
			Host:        "wikipedia.org",
			ArticlePath: "/wiki/",
			AltHrefAttr: "data-href",
		},
		Alternate: AlternateConfig{
			Origin:       "https://grokipedia.com",
			ArticlePaths: []string{"/wiki/", "/page/"},
			SoftNotFound: []string{
				"Article not found",
				"Page not found",
				"This page doesn't exist",
				"This page does not exist",
			},
		},
		Redirect: RedirectConfig{
			Markers: []string{"/url?", "&url="},
			Params:  []string{"q", "url"},
		},
		Check: CheckConfig{
			Timeout:         5 * time.Second,
			BodyLimit:       8 * 1024,
			CacheTTL:        time.Hour,
			CleanupInterval: 10 * time.Minute,
			UserAgent:       "linkswap/1.0",
		},
		Watch: WatchConfig{
			Debounce:       500 * time.Millisecond,
			BootstrapDelay: time.Second,
			Concurrency:    8,
		},
		Channel: ChannelConfig{
			Endpoint: "http://127.0.0.1:8080/check",
			Timeout:  10 * time.Second,
			Retries:  2,
		},
	}
}

// Load returns the default configuration overlaid with the yaml file at path
// (if not empty) and the LINKSWAP_ environment variables
func Load(path string) (*Config, error) {
	c := Default()
	if path != "" {
		data, err := ioutil.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(err, "failed to read config file")
		}
		err = yaml.Unmarshal(data, c)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse config file %s", path)
		}
	}

	err := envconfig.Process(EnvPrefix, c)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load config from environment")
	}

	return c, c.Validate()
}

// Validate checks the configuration for values the pipeline cannot work with
func (c *Config) Validate() error {
	if c.Source.Host == "" {
		return errors.New("no source host provided")
	}
	if c.Source.ArticlePath == "" {
		return errors.New("no source article path provided")
	}
	if c.Alternate.Origin == "" {
		return errors.New("no alternate origin provided")
	}
	if len(c.Alternate.ArticlePaths) == 0 {
		return errors.New("no alternate article paths provided")
	}
	if c.Check.Timeout <= 0 {
		return errors.New("check timeout must be positive")
	}
	if c.Check.BodyLimit <= 0 {
		return errors.New("check body limit must be positive")
	}
	if c.Check.CacheTTL <= 0 {
		return errors.New("cache ttl must be positive")
	}
	if c.Watch.Concurrency <= 0 {
		c.Watch.Concurrency = 1
	}

	return nil
}
