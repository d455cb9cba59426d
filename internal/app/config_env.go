package app

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnvToConfig populates unset fields of cfg from environment variables.
// Explicit cfg values take precedence over env.
func ApplyEnvToConfig(cfg *Config) {
	if cfg == nil {
		return
	}
	setString := func(dst *string, keys ...string) {
		if *dst != "" {
			return
		}
		for _, k := range keys {
			if v := strings.TrimSpace(os.Getenv(k)); v != "" {
				*dst = v
				return
			}
		}
	}
	setString(&cfg.ServerURL, "FERRET_URL", "FERRET_SERVER_URL")
	setString(&cfg.PageURL, "FERRET_PAGE_URL")
	setString(&cfg.Format, "FERRET_FORMAT")
	setString(&cfg.CacheDir, "CACHE_DIR")
	setString(&cfg.OutputPath, "OUTPUT")
	setString(&cfg.OutputPDFPath, "OUTPUT_PDF")

	setDuration := func(dst *time.Duration, key string) {
		if *dst != 0 {
			return
		}
		if d, ok := envDuration(key); ok {
			*dst = d
		}
	}
	setDuration(&cfg.SearchTimeout, "FERRET_TIMEOUT")
	setDuration(&cfg.CacheMaxAge, "CACHE_MAX_AGE")

	if cfg.MaxConcurrent == 0 {
		if n, err := strconv.Atoi(strings.TrimSpace(os.Getenv("FERRET_MAX_CONCURRENT"))); err == nil && n > 0 {
			cfg.MaxConcurrent = n
		}
	}

	setBool := func(dst *bool, key string) {
		if *dst {
			return
		}
		if v, ok := envBool(key); ok {
			*dst = v
		}
	}
	setBool(&cfg.CacheOnly, "CACHE_ONLY")
	setBool(&cfg.CacheClear, "CACHE_CLEAR")
	setBool(&cfg.CacheStrictPerms, "CACHE_STRICT_PERMS")
	setBool(&cfg.NoColor, "NO_COLOR")
	setBool(&cfg.Verbose, "VERBOSE")
}

func envDuration(key string) (time.Duration, bool) {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return 0, false
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, false
	}
	return d, true
}

func envBool(key string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true, true
	case "0", "false", "no", "off":
		return false, true
	}
	return false, false
}
