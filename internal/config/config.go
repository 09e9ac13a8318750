// Package config loads scraper settings from defaults, an optional YAML file,
// a .env file and CRICBUZZ_* environment variables.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/mukeshyadav-sketch/cricbuzz-webscraping/internal/identity"
	"github.com/mukeshyadav-sketch/cricbuzz-webscraping/internal/normalize"
)

// EnvPrefix is prepended to every environment override, e.g. CRICBUZZ_DB_PATH
const EnvPrefix = "CRICBUZZ"

// ErrInvalid marks configuration that failed to load or validate
var ErrInvalid = errors.New("invalid configuration")

// DefaultUserAgent is a desktop browser user agent; cricbuzz serves a reduced
// page to unknown clients.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// DefaultMatchIDs is the batch scraped when no IDs are given
var DefaultMatchIDs = []int64{
	116441, 121389, 121400, 121406, 133000, 133011,
	133017, 137826, 137831, 140537, 140548, 140559,
}

// URLs holds the page templates; %d is the numeric identity
type URLs struct {
	Overview          string `mapstructure:"overview" validate:"required,contains=%d"`
	Scorecard         string `mapstructure:"scorecard" validate:"required,contains=%d"`
	ScorecardFallback string `mapstructure:"scorecard_fallback" validate:"omitempty,contains=%d"`
	Squads            string `mapstructure:"squads" validate:"required,contains=%d"`
	Profile           string `mapstructure:"profile" validate:"required,contains=%d"`
}

// Config is the complete scraper configuration
type Config struct {
	DBPath     string        `mapstructure:"db_path" validate:"required"`
	BaseURL    string        `mapstructure:"base_url" validate:"required,url"`
	UserAgent  string        `mapstructure:"user_agent" validate:"required"`
	Timeout    time.Duration `mapstructure:"timeout" validate:"gt=0"`
	Delay      time.Duration `mapstructure:"delay" validate:"gte=0"`
	MatchIDs   []int64       `mapstructure:"match_ids" validate:"dive,gte=0"`
	Roles      []string      `mapstructure:"roles" validate:"dive,required"`
	SquadLimit int           `mapstructure:"squad_limit" validate:"gte=0"`
	LogLevel   string        `mapstructure:"log_level" validate:"omitempty,oneof=debug info warn warning error DEBUG INFO WARN WARNING ERROR"`
	URLs       URLs          `mapstructure:"urls"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("db_path", "cricbuzz.db")
	v.SetDefault("base_url", "https://www.cricbuzz.com")
	v.SetDefault("user_agent", DefaultUserAgent)
	v.SetDefault("timeout", 30*time.Second)
	v.SetDefault("delay", time.Second)
	v.SetDefault("match_ids", DefaultMatchIDs)
	v.SetDefault("roles", normalize.DefaultRoles)
	v.SetDefault("squad_limit", 11)
	v.SetDefault("log_level", "info")
	v.SetDefault("urls.overview", "/live-cricket-scores/%d/match")
	v.SetDefault("urls.scorecard", "/live-cricket-scorecard/%d/match")
	v.SetDefault("urls.scorecard_fallback", "/live-cricket-scorecard/%d/scorecard")
	v.SetDefault("urls.squads", "/cricket-match-squads/%d/squads")
	v.SetDefault("urls.profile", "/profiles/%d/%s")
}

// Load builds the configuration. path may be empty, in which case only
// defaults and the environment apply.
func Load(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Mark(errors.Wrapf(err, "reading config %s", path), ErrInvalid)
		}
	}

	// Env lists arrive as one string
	if raw := os.Getenv(EnvPrefix + "_MATCH_IDS"); raw != "" {
		ids, err := ParseMatchIDs(strings.Fields(strings.ReplaceAll(raw, ",", " ")))
		if err != nil {
			return nil, errors.Mark(err, ErrInvalid)
		}
		v.Set("match_ids", ids)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Mark(errors.Wrap(err, "decoding config"), ErrInvalid)
	}

	cfg.DBPath = expandHome(cfg.DBPath)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the struct tags
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return errors.Mark(errors.Wrap(err, "validating config"), ErrInvalid)
	}
	return nil
}

// ParseMatchIDs accepts bare numbers or match page URLs
func ParseMatchIDs(refs []string) ([]int64, error) {
	ids := make([]int64, 0, len(refs))
	for _, ref := range refs {
		id, ok := identity.MatchID(ref)
		if !ok {
			return nil, errors.Newf("cannot resolve match id from %q", ref)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// URL joins the base URL and a path
func (c *Config) URL(path string) string {
	return strings.TrimRight(c.BaseURL, "/") + path
}

func expandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
