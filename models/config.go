// Package models defines configuration and the data written by collect runs.
package models

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is read when present and no --config flag is given.
const DefaultConfigFile = "leakdiff.yaml"

// Role tells which environment overrides apply to a source.
type Role string

const (
	RoleRegular     Role = "regular"
	RoleAnonymizing Role = "anonymizing"
)

// SourceConfig describes one browser path that pages are fetched through.
type SourceConfig struct {
	Name string `yaml:"name"`
	Role Role   `yaml:"role"`

	// Binary is the browser executable. Empty means look it up on PATH.
	Binary string `yaml:"binary"`
	// BundleDir opts into a Tor Browser bundle install directory. The bundle
	// is Firefox-based, so such a source is reported as skipped.
	BundleDir string `yaml:"bundle_dir"`

	Headless       *bool  `yaml:"headless"`
	VirtualDisplay bool   `yaml:"virtual_display"`
	XvfbDisplay    string `yaml:"xvfb_display"`
	Stealth        bool   `yaml:"stealth"`

	// Proxy is a SOCKS5 host:port all traffic of this source goes through.
	Proxy string        `yaml:"proxy"`
	Wait  time.Duration `yaml:"wait"`
}

// IsHeadless reports the headless setting, defaulting to true.
func (s SourceConfig) IsHeadless() bool {
	return s.Headless == nil || *s.Headless
}

// TargetConfig describes one diagnostics page and how its records are built.
type TargetConfig struct {
	Category          string     `yaml:"category"`
	URL               string     `yaml:"url"`
	Fetch             FetchKind  `yaml:"fetch"`
	Mode              ParseMode  `yaml:"mode"`
	Labels            string     `yaml:"labels"`
	ReplaceSeparators bool       `yaml:"replace_separators"`
	Enrich            string     `yaml:"enrich"`
	IPFallback        IPFallback `yaml:"ip_fallback"`
	Whitelist         []string   `yaml:"whitelist"`
}

// Config is resolved once at startup and handed to every component.
type Config struct {
	DataDir       string         `yaml:"data_dir"`
	DBPath        string         `yaml:"db_path"`
	MongoURI      string         `yaml:"mongo_uri"`
	MongoDatabase string         `yaml:"mongo_database"`
	HTTPTimeout   time.Duration  `yaml:"http_timeout"`
	ProbeURL      string         `yaml:"probe_url"`
	ProbeTimeout  time.Duration  `yaml:"probe_timeout"`
	Sources       []SourceConfig `yaml:"sources"`
	Targets       []TargetConfig `yaml:"targets"`
}

// IPWhitelist is the field order of the "ip" category.
var IPWhitelist = []string{
	"ip", "hostname",
	"country", "country_name", "country_code", "state_region", "city",
	"isp", "organization", "network", "usage_type",
	"timezone", "local_time", "coordinates", "latitude", "longitude", "ipv6",
	"webrtc_local_ip", "webrtc_public_ip",
	"request", "user-agent", "accept", "accept-language", "accept-encoding",
	"referer", "upgrade-insecure-requests", "sec-fetch-dest", "sec-fetch-mode",
	"sec-fetch-site", "sec-fetch-user", "priority", "te", "host",
	"relays",
}

// JavaScriptWhitelist is the field order of the "javascript" category.
var JavaScriptWhitelist = []string{
	"javascript_enabled", "inline_scripts", "same_origin_scripts", "third_party_scripts",
	"document_referrer", "document_character_set", "document_title", "screen_resolution",
	"available_resolution", "color_depth", "pixel_depth",
	"system_time", "tolocalestring", "datetimeformat", "locale", "timezone",
	"useragent", "appversion", "appname", "appcodename",
	"product", "productsub", "vendor", "buildid", "platform", "oscpu",
	"hardwareconcurrency", "devicememory", "language", "languages",
	"donottrack", "cookieenabled", "webdriver", "pdfviewerenabled", "globalprivacycontrol",
}

// IPInfoWhitelist is the field order of the "ipinfo" category.
var IPInfoWhitelist = []string{
	"ip", "hostname", "city", "region", "country", "loc", "latitude", "longitude",
	"org", "postal", "timezone",
}

// DefaultConfig collects the three browserleaks and ipinfo categories through
// a regular Chromium and a TorBrowser source. The TorBrowser source is Chromium
// with stealth pages routed through the Tor SOCKS proxy.
func DefaultConfig() *Config {
	return &Config{
		DataDir:       "data",
		MongoDatabase: "leakdiff",
		HTTPTimeout:   15 * time.Second,
		ProbeURL:      "https://browserleaks.com/ip",
		ProbeTimeout:  10 * time.Second,
		Sources: []SourceConfig{
			{
				Name: "Chromium",
				Role: RoleRegular,
				Wait: 3 * time.Second,
			},
			{
				Name:           "TorBrowser",
				Role:           RoleAnonymizing,
				VirtualDisplay: true,
				XvfbDisplay:    ":99",
				Stealth:        true,
				Proxy:          "127.0.0.1:9050",
				Wait:           5 * time.Second,
			},
		},
		Targets: []TargetConfig{
			{
				Category:   "ip",
				URL:        "https://browserleaks.com/ip",
				Fetch:      FetchBrowser,
				Mode:       ParseModeTable,
				Labels:     "ip",
				Enrich:     "ipinfo",
				IPFallback: IPFallbackBare,
				Whitelist:  IPWhitelist,
			},
			{
				Category:          "javascript",
				URL:               "https://browserleaks.com/javascript",
				Fetch:             FetchBrowser,
				Mode:              ParseModeTable,
				ReplaceSeparators: true,
				IPFallback:        IPFallbackNone,
				Whitelist:         JavaScriptWhitelist,
			},
			{
				Category:   "ipinfo",
				URL:        "https://ipinfo.io/json",
				Fetch:      FetchHTTP,
				Mode:       ParseModeJSON,
				Enrich:     "location",
				IPFallback: IPFallbackNone,
				Whitelist:  IPInfoWhitelist,
			},
		},
	}
}

// LoadConfig builds the configuration: defaults, then the YAML file at path
// (when path is non-empty), then environment overrides read through getenv.
func LoadConfig(path string, getenv func(string) string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		var override Config
		if err := yaml.Unmarshal(data, &override); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
		if err := mergo.Merge(cfg, override, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge config %s: %w", path, err)
		}
	}

	if getenv != nil {
		cfg.ApplyEnv(getenv)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv applies the recognized environment variables.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv("LEAKDIFF_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := getenv("LEAKDIFF_MONGO_URI"); v != "" {
		c.MongoURI = v
	}

	for i := range c.Sources {
		s := &c.Sources[i]
		switch s.Role {
		case RoleRegular:
			// FIREFOX_* are older names, used only when the new ones are unset.
			if v := firstEnv(getenv, "BROWSER_BINARY", "FIREFOX_BINARY"); v != "" {
				s.Binary = v
			}
			if v := firstEnv(getenv, "HEADLESS_BROWSER", "HEADLESS_FIREFOX"); v != "" {
				s.Headless = boolPtr(v != "0")
			}
		case RoleAnonymizing:
			if v := getenv("TOR_BROWSER_BINARY"); v != "" {
				s.Binary = v
			}
			if v := getenv("TOR_BROWSER_DIR"); v != "" {
				s.BundleDir = v
			}
			if v := getenv("HEADLESS_TBB"); v != "" {
				s.Headless = boolPtr(v != "0")
			}
			if v := getenv("TOR_PROXY"); v != "" {
				s.Proxy = v
			}
		}
	}
}

// Validate checks the fields every run depends on.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("config: data_dir is empty")
	}
	if len(c.Sources) == 0 {
		return fmt.Errorf("config: no sources configured")
	}
	names := map[string]bool{}
	for _, s := range c.Sources {
		if s.Name == "" {
			return fmt.Errorf("config: source without a name")
		}
		if names[s.Name] {
			return fmt.Errorf("config: duplicate source %q", s.Name)
		}
		names[s.Name] = true
	}
	categories := map[string]bool{}
	for _, t := range c.Targets {
		if t.Category == "" || t.URL == "" {
			return fmt.Errorf("config: target needs category and url")
		}
		if categories[t.Category] {
			return fmt.Errorf("config: duplicate target %q", t.Category)
		}
		categories[t.Category] = true
		if len(t.Whitelist) == 0 {
			return fmt.Errorf("config: target %q has an empty whitelist", t.Category)
		}
	}
	return nil
}

// Target returns the target for category.
func (c *Config) Target(category string) (TargetConfig, bool) {
	for _, t := range c.Targets {
		if t.Category == category {
			return t, true
		}
	}
	return TargetConfig{}, false
}

// Source returns the source named name.
func (c *Config) Source(name string) (SourceConfig, bool) {
	for _, s := range c.Sources {
		if s.Name == name {
			return s, true
		}
	}
	return SourceConfig{}, false
}

// ResolvedDBPath is DBPath or leakdiff.db inside the data directory.
func (c *Config) ResolvedDBPath() string {
	if c.DBPath != "" {
		return c.DBPath
	}
	return filepath.Join(c.DataDir, "leakdiff.db")
}

func boolPtr(b bool) *bool { return &b }

func firstEnv(getenv func(string) string, keys ...string) string {
	for _, k := range keys {
		if v := getenv(k); v != "" {
			return v
		}
	}
	return ""
}
