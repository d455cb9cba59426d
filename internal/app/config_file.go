package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	yaml "gopkg.in/yaml.v3"

	"github.com/hyperifyio/goferret/internal/search"
)

// FileConfig represents the single-file configuration schema.
type FileConfig struct {
	Server struct {
		URL           string        `yaml:"url" json:"url"`
		PageURL       string        `yaml:"pageURL" json:"pageURL"`
		Format        string        `yaml:"format" json:"format"`
		Callback      string        `yaml:"callback" json:"callback"`
		Timeout       time.Duration `yaml:"timeout" json:"timeout"`
		MaxConcurrent int           `yaml:"maxConcurrent" json:"maxConcurrent"`
		UserAgent     string        `yaml:"ua" json:"ua"`
	} `yaml:"server" json:"server"`

	Search struct {
		Page      int           `yaml:"page" json:"page"`
		MinLength int           `yaml:"minLength" json:"minLength"`
		Window    time.Duration `yaml:"window" json:"window"`
	} `yaml:"search" json:"search"`

	Cache struct {
		Dir         string        `yaml:"dir" json:"dir"`
		MaxAge      time.Duration `yaml:"maxAge" json:"maxAge"`
		Clear       bool          `yaml:"clear" json:"clear"`
		Only        bool          `yaml:"only" json:"only"`
		StrictPerms bool          `yaml:"strictPerms" json:"strictPerms"`
	} `yaml:"cache" json:"cache"`

	Output    string `yaml:"output" json:"output"`
	OutputPDF string `yaml:"outputPDF" json:"outputPDF"`
	Template  string `yaml:"template" json:"template"`
	NoColor   bool   `yaml:"noColor" json:"noColor"`
	Verbose   bool   `yaml:"verbose" json:"verbose"`
}

// LoadConfigFile reads YAML or JSON into FileConfig.
func LoadConfigFile(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	switch ext := filepath.Ext(path); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse yaml: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse json: %w", err)
		}
	default:
		// Try YAML then JSON
		if err := yaml.Unmarshal(b, &fc); err != nil {
			if jerr := json.Unmarshal(b, &fc); jerr != nil {
				return fc, fmt.Errorf("parse config: %v (yaml) / %v (json)", err, jerr)
			}
		}
	}
	return fc, nil
}

// ApplyFileConfig overlays values from fc into cfg for any fields that are
// still unset. Flags have already been parsed, so explicit flags win.
func ApplyFileConfig(cfg *Config, fc FileConfig) {
	if cfg == nil {
		return
	}
	if cfg.ServerURL == "" {
		cfg.ServerURL = fc.Server.URL
	}
	if cfg.PageURL == "" {
		cfg.PageURL = fc.Server.PageURL
	}
	if cfg.Format == "" {
		cfg.Format = fc.Server.Format
	}
	if cfg.Callback == "" {
		cfg.Callback = fc.Server.Callback
	}
	if cfg.SearchTimeout == 0 && fc.Server.Timeout > 0 {
		cfg.SearchTimeout = fc.Server.Timeout
	}
	if cfg.MaxConcurrent == 0 && fc.Server.MaxConcurrent > 0 {
		cfg.MaxConcurrent = fc.Server.MaxConcurrent
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = fc.Server.UserAgent
	}

	if cfg.Page == 0 && fc.Search.Page > 0 {
		cfg.Page = fc.Search.Page
	}
	if cfg.MinKeywordLength == 0 && fc.Search.MinLength > 0 {
		cfg.MinKeywordLength = fc.Search.MinLength
	}
	if cfg.KeyWindow == 0 && fc.Search.Window > 0 {
		cfg.KeyWindow = fc.Search.Window
	}

	if cfg.CacheDir == "" {
		cfg.CacheDir = fc.Cache.Dir
	}
	if cfg.CacheMaxAge == 0 && fc.Cache.MaxAge > 0 {
		cfg.CacheMaxAge = fc.Cache.MaxAge
	}
	cfg.CacheClear = cfg.CacheClear || fc.Cache.Clear
	cfg.CacheOnly = cfg.CacheOnly || fc.Cache.Only
	cfg.CacheStrictPerms = cfg.CacheStrictPerms || fc.Cache.StrictPerms

	if cfg.OutputPath == "" {
		cfg.OutputPath = fc.Output
	}
	if cfg.OutputPDFPath == "" {
		cfg.OutputPDFPath = fc.OutputPDF
	}
	if cfg.TemplatePath == "" {
		cfg.TemplatePath = fc.Template
	}
	cfg.NoColor = cfg.NoColor || fc.NoColor
	cfg.Verbose = cfg.Verbose || fc.Verbose
}

// ValidateConfig rejects settings the app cannot run with.
func ValidateConfig(cfg Config) error {
	for name, raw := range map[string]string{"server url": cfg.ServerURL, "page url": cfg.PageURL} {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		u, err := url.Parse(raw)
		if err != nil {
			return fmt.Errorf("config: invalid %s: %w", name, err)
		}
		if name == "server url" && (u.Scheme != "http" && u.Scheme != "https" || u.Host == "") {
			return fmt.Errorf("config: server url must be an absolute http(s) URL, got %q", raw)
		}
	}
	switch strings.ToLower(cfg.Format) {
	case "", search.FormatJSONP, search.FormatJSON:
	default:
		return fmt.Errorf("config: unknown format %q (want jsonp or json)", cfg.Format)
	}
	if cfg.SearchTimeout < 0 || cfg.KeyWindow < 0 || cfg.CacheMaxAge < 0 {
		return errors.New("config: negative durations are not allowed")
	}
	if cfg.MaxConcurrent < 0 || cfg.Page < 0 || cfg.MinKeywordLength < 0 {
		return errors.New("config: negative limits are not allowed")
	}
	if cfg.CacheOnly && strings.TrimSpace(cfg.CacheDir) == "" {
		return errors.New("config: cache-only mode needs a cache dir")
	}
	return nil
}
