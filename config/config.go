// Package config loads application settings from a .env file and environment variables.
// Environment variables always take precedence over .env file values.
package config

import (
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Database describes how to reach the results store.
type Database struct {
	// Driver is "postgres" (default) or "sqlite".
	Driver string

	// PostgreSQL – either set URL directly, or the individual fields.
	URL     string
	User    string
	Pass    string
	Host    string
	Port    string
	Name    string
	SSLMode string

	// SQLitePath is used when Driver is "sqlite".
	SQLitePath string
}

// Config holds the API server configuration.
type Config struct {
	DB Database

	// JWT signing secret (required).
	JWTSecret string
	// AdminUsers may call the password hash endpoint.
	AdminUsers []string

	// Server
	Debug      bool
	Port       string
	TLSDomains []string

	// LegacySQLitePath is the original cycling_data.db, read only by cmd/migrate.
	LegacySQLitePath string
	// LegacyAuthPath is the original auth.db holding bcrypt user hashes.
	LegacyAuthPath string
}

// Param is one query parameter of the listing search URL.
// Order is significant: the site paginates on the exact query it was given.
type Param struct {
	Key   string
	Value string
}

// Selectors are the ordered fallback chains used to find page structure.
type Selectors struct {
	Links []string
	Title []string
	Date  []string
	Table []string
}

// ScrapeConfig holds configuration used by the scraper tools.
type ScrapeConfig struct {
	DB    Database
	Debug bool

	BaseURL      string
	ResultsPath  string
	SearchParams []Param
	PageParam    string

	Timeout       time.Duration
	MaxRetries    int
	BackoffFactor float64
	Delay         time.Duration
	MaxPages      int
	// MaxRaces caps the number of race pages visited in one run. Zero means no cap.
	MaxRaces int

	UserAgents []string
	Selectors  Selectors
}

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// Load reads configuration from a .env file (if present) and then from
// environment variables. Environment variables always win.
func Load() *Config {
	v := newViper()
	setDatabaseDefaults(v)

	v.SetDefault("PORT", ":3001")
	v.SetDefault("TLS_DOMAINS", "")
	v.SetDefault("DEBUG", false)
	v.SetDefault("ADMIN_USERS", "admin")
	v.SetDefault("LEGACY_SQLITE_PATH", "backend/database/cycling_data.db")
	v.SetDefault("LEGACY_AUTH_PATH", "backend/database/auth.db")

	cfg := &Config{
		DB:               loadDatabase(v),
		JWTSecret:        v.GetString("JWT_SECRET"),
		AdminUsers:       splitTrimmed(v.GetString("ADMIN_USERS"), ","),
		Debug:            v.GetBool("DEBUG"),
		Port:             v.GetString("PORT"),
		TLSDomains:       splitTrimmed(v.GetString("TLS_DOMAINS"), ","),
		LegacySQLitePath: v.GetString("LEGACY_SQLITE_PATH"),
		LegacyAuthPath:   v.GetString("LEGACY_AUTH_PATH"),
	}

	cfg.validate()
	return cfg
}

// LoadScrape reads the scraper configuration from .env and environment variables.
func LoadScrape() *ScrapeConfig {
	v := newViper()
	setDatabaseDefaults(v)

	v.SetDefault("DEBUG", false)
	v.SetDefault("SCRAPE_BASE_URL", "https://paysdelaloirecyclisme.fr")
	v.SetDefault("SCRAPE_RESULTS_PATH", "/resultats/")
	v.SetDefault("SCRAPE_SEARCH_PARAMS", "_region=pays-de-la-loire&_discipline=route&_type_de_courses=regional&_licence=access-1")
	v.SetDefault("SCRAPE_PAGE_PARAM", "_pagination")
	v.SetDefault("SCRAPE_TIMEOUT", 10*time.Second)
	v.SetDefault("SCRAPE_MAX_RETRIES", 3)
	v.SetDefault("SCRAPE_BACKOFF_FACTOR", 2.0)
	v.SetDefault("SCRAPE_DELAY", time.Second)
	v.SetDefault("SCRAPE_MAX_PAGES", 100)
	v.SetDefault("SCRAPE_MAX_RACES", 1000)
	v.SetDefault("SCRAPE_USER_AGENTS", defaultUserAgent)
	v.SetDefault("SCRAPE_LINK_SELECTORS", `a[class*="card-result"]`)
	v.SetDefault("SCRAPE_TITLE_SELECTORS", "h1|.header-race__title")
	v.SetDefault("SCRAPE_DATE_SELECTORS", ".header-race__date|.race-date|.event-date|time")
	v.SetDefault("SCRAPE_TABLE_SELECTORS", `table.results|table.leaderboard|table[class*="result"]|table[class*="classement"]|.results-table table|table`)

	cfg := &ScrapeConfig{
		DB:            loadDatabase(v),
		Debug:         v.GetBool("DEBUG"),
		BaseURL:       strings.TrimRight(v.GetString("SCRAPE_BASE_URL"), "/"),
		ResultsPath:   v.GetString("SCRAPE_RESULTS_PATH"),
		SearchParams:  ParseParams(v.GetString("SCRAPE_SEARCH_PARAMS")),
		PageParam:     v.GetString("SCRAPE_PAGE_PARAM"),
		Timeout:       v.GetDuration("SCRAPE_TIMEOUT"),
		MaxRetries:    v.GetInt("SCRAPE_MAX_RETRIES"),
		BackoffFactor: v.GetFloat64("SCRAPE_BACKOFF_FACTOR"),
		Delay:         v.GetDuration("SCRAPE_DELAY"),
		MaxPages:      v.GetInt("SCRAPE_MAX_PAGES"),
		MaxRaces:      v.GetInt("SCRAPE_MAX_RACES"),
		UserAgents:    splitTrimmed(v.GetString("SCRAPE_USER_AGENTS"), "|"),
		Selectors: Selectors{
			Links: splitTrimmed(v.GetString("SCRAPE_LINK_SELECTORS"), "|"),
			Title: splitTrimmed(v.GetString("SCRAPE_TITLE_SELECTORS"), "|"),
			Date:  splitTrimmed(v.GetString("SCRAPE_DATE_SELECTORS"), "|"),
			Table: splitTrimmed(v.GetString("SCRAPE_TABLE_SELECTORS"), "|"),
		},
	}

	cfg.validate()
	return cfg
}

// PostgresDSN returns the full PostgreSQL connection string.
// URL takes precedence over individual fields.
func (d Database) PostgresDSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		d.User,
		d.Pass,
		d.Host,
		d.Port,
		d.Name,
		d.SSLMode,
	)
}

// JWTKey returns the JWT signing key as a byte slice.
func (c *Config) JWTKey() []byte {
	return []byte(c.JWTSecret)
}

// ResultsURL returns the absolute listing endpoint.
func (c *ScrapeConfig) ResultsURL() string {
	return c.BaseURL + "/" + strings.TrimLeft(c.ResultsPath, "/")
}

// ParseParams splits a raw query string into ordered parameters.
// url.Values is a map and would lose the order.
func ParseParams(raw string) []Param {
	raw = strings.TrimPrefix(strings.TrimSpace(raw), "?")
	var out []Param
	for _, part := range strings.Split(raw, "&") {
		if part == "" {
			continue
		}
		k, val, _ := strings.Cut(part, "=")
		if uk, err := url.QueryUnescape(k); err == nil {
			k = uk
		}
		if uv, err := url.QueryUnescape(val); err == nil {
			val = uv
		}
		out = append(out, Param{Key: k, Value: val})
	}
	return out
}

func (d Database) validate() {
	switch d.Driver {
	case "postgres":
		if d.URL == "" && d.Pass == "" {
			log.Fatal("config: DATABASE_URL or DB_PASS must be set")
		}
	case "sqlite":
		if d.SQLitePath == "" {
			log.Fatal("config: SQLITE_PATH must be set when DB_DRIVER=sqlite")
		}
	default:
		log.Fatalf("config: unsupported DB_DRIVER %q", d.Driver)
	}
}

func (c *Config) validate() {
	c.DB.validate()
	if c.JWTSecret == "" {
		log.Fatal("config: JWT_SECRET must be set")
	}
}

func (c *ScrapeConfig) validate() {
	c.DB.validate()
	if _, err := url.Parse(c.BaseURL); err != nil || c.BaseURL == "" {
		log.Fatalf("config: invalid SCRAPE_BASE_URL %q", c.BaseURL)
	}
	if len(c.UserAgents) == 0 {
		log.Fatal("config: SCRAPE_USER_AGENTS must hold at least one user agent")
	}
	if c.MaxPages < 1 {
		log.Fatal("config: SCRAPE_MAX_PAGES must be positive")
	}
	if c.MaxRetries < 1 {
		c.MaxRetries = 1
	}
}

func setDatabaseDefaults(v *viper.Viper) {
	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("DB_USER", "cycling")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_NAME", "cycling")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("SQLITE_PATH", "cycling_data.db")
}

func loadDatabase(v *viper.Viper) Database {
	return Database{
		Driver:     strings.ToLower(v.GetString("DB_DRIVER")),
		URL:        v.GetString("DATABASE_URL"),
		User:       v.GetString("DB_USER"),
		Pass:       v.GetString("DB_PASS"),
		Host:       v.GetString("DB_HOST"),
		Port:       v.GetString("DB_PORT"),
		Name:       v.GetString("DB_NAME"),
		SSLMode:    v.GetString("DB_SSLMODE"),
		SQLitePath: v.GetString("SQLITE_PATH"),
	}
}

func newViper() *viper.Viper {
	// Silently load .env – OK if the file doesn't exist (production uses real env vars).
	if err := godotenv.Load(); err != nil {
		log.Println("config: no .env file found, using environment variables only")
	}

	v := viper.New()
	v.AutomaticEnv()
	return v
}

func splitTrimmed(s, sep string) []string {
	parts := strings.Split(s, sep)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
