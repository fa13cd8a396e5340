package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

var singleConfig *Config = nil

type Config struct {
	Database *dbConfig
	Service  *svcConfig
	Browser  *BrowserConfig
	Scraper  *ScraperConfig
}

type dbConfig struct {
	Type     string `envconfig:"DB_TYPE" default:"pgsql"`
	Hostname string `envconfig:"DB_HOST" default:"localhost"`
	Port     string `envconfig:"DB_PORT" default:"5432"`
	Name     string `envconfig:"DB_NAME" default:"harvester"`
	User     string `envconfig:"DB_USER" default:"admin"`
	Password string `envconfig:"DB_PASS" default:"adminpass"`
	SSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`

	MaxOpenConns  int           `envconfig:"DB_MAX_OPEN_CONNS" default:"100"`
	MaxIdleConns  int           `envconfig:"DB_MAX_IDLE_CONNS" default:"10"`
	SlowThreshold time.Duration `envconfig:"DB_SLOW_THRESHOLD" default:"1s"`
}

type svcConfig struct {
	Address        string `envconfig:"HARVESTER_ADDRESS" default:":3443"`
	MetricsAddress string `envconfig:"HARVESTER_METRICS_ADDRESS" default:":8080"`
	LogLevel       string `envconfig:"HARVESTER_LOG_LEVEL" default:"info"`
	LogFormat      string `envconfig:"HARVESTER_LOG_FORMAT" default:"console"`
	// RedisURL enables the distributed per-query lock. Empty means in-process locking.
	RedisURL        string        `envconfig:"HARVESTER_REDIS_URL" default:""`
	LockTTL         time.Duration `envconfig:"HARVESTER_LOCK_TTL" default:"2h"`
	AllowedOrigins  []string      `envconfig:"HARVESTER_ALLOWED_ORIGINS" default:"http://localhost:3000"`
	MigrationFolder string        `envconfig:"HARVESTER_MIGRATIONS_FOLDER" default:""`
}

type BrowserConfig struct {
	ExecPath  string `envconfig:"HARVESTER_CHROME_PATH" default:""`
	Headless  bool   `envconfig:"HARVESTER_HEADLESS" default:"true"`
	UserAgent string `envconfig:"HARVESTER_USER_AGENT" default:"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36"`
	SearchURL string `envconfig:"HARVESTER_SEARCH_URL" default:"https://www.google.com/maps"`
	// Locale selects which aria-label prefixes are tried first on detail pages.
	Locale string `envconfig:"HARVESTER_LOCALE" default:"es"`
}

type ScraperConfig struct {
	DefaultCap      int `envconfig:"HARVESTER_DEFAULT_CAP" default:"200"`
	BatchSize       int `envconfig:"HARVESTER_BATCH_SIZE" default:"5"`
	StagnationLimit int `envconfig:"HARVESTER_STAGNATION_LIMIT" default:"10"`

	InitialSettle    DelayWindow `envconfig:"HARVESTER_INITIAL_SETTLE" default:"15-18"`
	ScrollSettle     DelayWindow `envconfig:"HARVESTER_SCROLL_SETTLE" default:"10-13"`
	FeedTimeout      DelayWindow `envconfig:"HARVESTER_FEED_TIMEOUT" default:"25-35"`
	ListingPause     DelayWindow `envconfig:"HARVESTER_LISTING_PAUSE" default:"5-7"`
	BatchPause       DelayWindow `envconfig:"HARVESTER_BATCH_PAUSE" default:"5-8"`
	DetailSettle     DelayWindow `envconfig:"HARVESTER_DETAIL_SETTLE" default:"5-8"`
	ProtocolCooldown DelayWindow `envconfig:"HARVESTER_PROTOCOL_COOLDOWN" default:"5-8"`

	DetailTimeout           time.Duration `envconfig:"HARVESTER_DETAIL_TIMEOUT" default:"60s"`
	DetailNavigationTimeout time.Duration `envconfig:"HARVESTER_DETAIL_NAVIGATION_TIMEOUT" default:"90s"`
}

// DelayWindow is a closed [Min, Max] range. It decodes from "min-max" in seconds
// ("15-18") or from two Go durations ("500ms-2s").
type DelayWindow struct {
	Min time.Duration
	Max time.Duration
}

func (d *DelayWindow) Decode(value string) error {
	parts := strings.SplitN(strings.TrimSpace(value), "-", 2)
	if len(parts) != 2 {
		return fmt.Errorf("delay window %q: expected min-max", value)
	}
	lo, err := parseBound(parts[0])
	if err != nil {
		return fmt.Errorf("delay window %q: %w", value, err)
	}
	hi, err := parseBound(parts[1])
	if err != nil {
		return fmt.Errorf("delay window %q: %w", value, err)
	}
	if hi < lo {
		return fmt.Errorf("delay window %q: max is lower than min", value)
	}
	d.Min, d.Max = lo, hi
	return nil
}

func (d DelayWindow) String() string {
	return fmt.Sprintf("%s-%s", d.Min, d.Max)
}

func parseBound(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if secs, err := strconv.ParseFloat(s, 64); err == nil {
		return time.Duration(secs * float64(time.Second)), nil
	}
	return time.ParseDuration(s)
}

func New() (*Config, error) {
	if singleConfig == nil {
		singleConfig = new(Config)
		if err := envconfig.Process("", singleConfig); err != nil {
			return nil, err
		}
	}
	return singleConfig, nil
}

// NewDefault returns a configuration backed by an in-memory sqlite database,
// with every other value at its default.
func NewDefault() *Config {
	cfg := new(Config)
	if err := envconfig.Process("", cfg); err != nil {
		panic(err)
	}
	cfg.Database.Type = "sqlite"
	cfg.Database.Name = "file::memory:?cache=shared"
	return cfg
}
