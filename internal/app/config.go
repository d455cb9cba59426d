package app

import (
	"time"

	"github.com/hyperifyio/goferret/internal/input"
	"github.com/hyperifyio/goferret/internal/search"
)

// Config holds runtime configuration for the application.
type Config struct {
	// Backend
	ServerURL string
	PageURL   string
	Format    string
	Callback  string
	// SearchTimeout is the hint sent to the backend with each search.
	SearchTimeout time.Duration
	Page          int
	MaxConcurrent int
	UserAgent     string

	// Keyboard input
	MinKeywordLength int
	KeyWindow        time.Duration

	// Cache
	CacheDir         string
	CacheMaxAge      time.Duration
	CacheClear       bool
	CacheOnly        bool
	CacheStrictPerms bool

	// Output
	OutputPath    string
	OutputPDFPath string
	TemplatePath  string
	NoColor       bool
	Verbose       bool
}

// ApplyDefaults fills whatever flags, env and the config file left unset.
func (c *Config) ApplyDefaults() {
	if c.Format == "" {
		c.Format = search.FormatJSONP
	}
	if c.SearchTimeout == 0 {
		c.SearchTimeout = search.DefaultTimeout
	}
	if c.MinKeywordLength == 0 {
		c.MinKeywordLength = input.DefaultMinLength
	}
	if c.KeyWindow == 0 {
		c.KeyWindow = input.DefaultWindow
	}
	if c.UserAgent == "" {
		c.UserAgent = UserAgent()
	}
}
