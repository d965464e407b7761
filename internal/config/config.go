package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

type Specification struct {
	Store          string            `yaml:"store"`
	Database       string            `yaml:"dbURL" envconfig:"DB_URL"`
	SQLitePath     string            `yaml:"sqlitePath" envconfig:"SQLITE_PATH"`
	ChunkSize      int               `yaml:"chunkSize" split_words:"true"`
	SearchLimit    int               `yaml:"searchLimit" split_words:"true"`
	MaxSearchLimit int               `yaml:"maxSearchLimit" split_words:"true"`
	MaxUploadBytes int64             `yaml:"maxUploadBytes" split_words:"true"`
	DocsRoot       string            `yaml:"docsRoot" split_words:"true"`
	Workers        int               `yaml:"workers"`
	LogLevel       string            `yaml:"logLevel" split_words:"true"`
	Port           int               `yaml:"port" split_words:"true"`
	Auth           AuthSpecification `yaml:"auth"`

	flags *pflag.FlagSet `ignored:"true"`
}

type AuthSpecification struct {
	Enabled   bool          `yaml:"enabled"`
	JwtSecret string        `yaml:"jwtSecret" split_words:"true"`
	TokenTTL  time.Duration `yaml:"tokenTTL" envconfig:"TOKEN_TTL"`
}

const envPrefix = "KBSEARCH"

// Defaults applied before any file, environment or flag is read.
const (
	DefaultStore          = "sqlite"
	DefaultSQLitePath     = "data/kbsearch.db"
	DefaultChunkSize      = 500
	DefaultSearchLimit    = 5
	DefaultMaxSearchLimit = 50
	DefaultMaxUploadBytes = 50 << 20
	DefaultTokenTTL       = 24 * time.Hour
)

func (s *Specification) Usage() {
	fmt.Fprint(os.Stderr, s.flags.FlagUsages())
}

// DSN returns the connection string for the configured store backend.
func (s *Specification) DSN() string {
	if strings.EqualFold(s.Store, "sqlite") {
		return s.SQLitePath
	}
	return s.Database
}

// Load => defaults < YAML < env < flags.
// configPath may be ""; if so we auto-discover.
func Load(configPath string, fs *pflag.FlagSet) (Specification, error) {
	var cfg Specification

	// set defaults (lowest precedence)
	setDefaults(&cfg)
	bindFlags(fs, &cfg)

	// config file
	path := configPath
	if path == "" {
		if v := os.Getenv(envPrefix + "_CONFIG"); v != "" {
			path = v
		} else {
			for _, cand := range []string{
				"config/kbsearch.yaml",
				"config/config.yaml",
				"./kbsearch.yaml",
				"./config.yaml",
			} {
				if fileExists(cand) {
					path = cand
					break
				}
			}
		}
	}

	if path != "" {
		if !fileExists(path) {
			return Specification{}, fmt.Errorf("config file not found: %s", path)
		}
		if err := loadYAML(path, &cfg); err != nil {
			return Specification{}, fmt.Errorf("load yaml %s: %w", path, err)
		}
	}

	// env overrides config file
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return Specification{}, fmt.Errorf("env override: %w", err)
	}

	// flags override everything
	if err := fs.Parse(os.Args[1:]); err != nil {
		return Specification{}, err
	}
	applyChangedFlags(fs, &cfg)

	normalize(&cfg)
	if err := validate(&cfg); err != nil {
		return Specification{}, err
	}
	return cfg, nil
}

// normalize clamps out-of-range values back to their defaults.
func normalize(c *Specification) {
	c.Store = strings.ToLower(strings.TrimSpace(c.Store))
	if c.Store == "" {
		c.Store = DefaultStore
	}
	if strings.TrimSpace(c.LogLevel) == "" {
		c.LogLevel = "info"
	}
	if c.ChunkSize <= 0 {
		c.ChunkSize = DefaultChunkSize
	}
	if c.MaxSearchLimit <= 0 {
		c.MaxSearchLimit = DefaultMaxSearchLimit
	}
	if c.SearchLimit <= 0 {
		c.SearchLimit = DefaultSearchLimit
	}
	if c.SearchLimit > c.MaxSearchLimit {
		c.SearchLimit = c.MaxSearchLimit
	}
	if c.MaxUploadBytes <= 0 {
		c.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if c.Workers < 0 {
		c.Workers = 0
	}
	if c.Auth.TokenTTL <= 0 {
		c.Auth.TokenTTL = DefaultTokenTTL
	}
}

func validate(c *Specification) error {
	switch c.Store {
	case "memory":
	case "sqlite":
		if strings.TrimSpace(c.SQLitePath) == "" {
			return fmt.Errorf("%s_SQLITE_PATH is required for the sqlite store (env/file/flag)", envPrefix)
		}
	case "postgres", "postgresql":
		if strings.TrimSpace(c.Database) == "" {
			return fmt.Errorf("%s_DB_URL is required for the postgres store (env/file/flag)", envPrefix)
		}
	default:
		return fmt.Errorf("unsupported store %q (memory|sqlite|postgres)", c.Store)
	}
	if c.Auth.Enabled && strings.TrimSpace(c.Auth.JwtSecret) == "" {
		return fmt.Errorf("%s_AUTH_JWT_SECRET is required when auth is enabled", envPrefix)
	}
	return nil
}

// ---------- helpers ----------

func loadYAML(path string, into any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(b, into)
}

func fileExists(p string) bool {
	fi, err := os.Stat(p)
	return err == nil && !fi.IsDir()
}

func bindFlags(fs *pflag.FlagSet, c *Specification) {
	fs.String("config", "", "Path to config file")

	// If --config is provided on the command line, capture it now so
	// config discovery (which runs before flags.Parse) can use it.
	for i, a := range os.Args {
		if a == "--config" {
			if i+1 < len(os.Args) && !strings.HasPrefix(os.Args[i+1], "-") {
				_ = os.Setenv(envPrefix+"_CONFIG", os.Args[i+1])
			}
		} else if strings.HasPrefix(a, "--config=") {
			parts := strings.SplitN(a, "=", 2)
			if len(parts) == 2 {
				_ = os.Setenv(envPrefix+"_CONFIG", parts[1])
			}
		}
	}

	fs.String("store", c.Store, "Store backend (memory|sqlite|postgres)")
	fs.String("db-url", c.Database, "Postgres database URL (DSN)")
	fs.String("sqlite-path", c.SQLitePath, "SQLite database file")

	fs.Int("chunk-size", c.ChunkSize, "Target chunk length in characters")
	fs.Int("search-limit", c.SearchLimit, "Default number of search results")
	fs.Int("max-search-limit", c.MaxSearchLimit, "Maximum number of search results")
	fs.Int64("max-upload-bytes", c.MaxUploadBytes, "Maximum upload size in bytes")

	fs.String("docs-root", c.DocsRoot, "Directory indexed by the indexer")
	fs.Int("workers", c.Workers, "Indexer workers (0 = number of CPUs, max 8)")

	fs.String("log-level", c.LogLevel, "Log level (debug|info|warn|error)")
	fs.Int("port", c.Port, "API server port")

	fs.Bool("auth-enabled", c.Auth.Enabled, "Require bearer tokens on mutating routes")
	fs.String("auth-jwt-secret", c.Auth.JwtSecret, "JWT secret for signing tokens")
	fs.Duration("auth-token-ttl", c.Auth.TokenTTL, "Lifetime of issued tokens")

	// Used later for usage/help
	// create a shallow copy of fs (so Usage can be called safely without mutating caller)
	copied := pflag.NewFlagSet("temp", pflag.ContinueOnError)
	*copied = *fs
	c.flags = copied
}

func applyChangedFlags(fs *pflag.FlagSet, c *Specification) {
	setStr := func(name string, dst *string) {
		if fs.Changed(name) {
			v, _ := fs.GetString(name)
			*dst = v
		}
	}
	setInt := func(name string, dst *int) {
		if fs.Changed(name) {
			v, _ := fs.GetInt(name)
			*dst = v
		}
	}
	setInt64 := func(name string, dst *int64) {
		if fs.Changed(name) {
			v, _ := fs.GetInt64(name)
			*dst = v
		}
	}
	setBool := func(name string, dst *bool) {
		if fs.Changed(name) {
			v, _ := fs.GetBool(name)
			*dst = v
		}
	}
	setDuration := func(name string, dst *time.Duration) {
		if fs.Changed(name) {
			v, _ := fs.GetDuration(name)
			*dst = v
		}
	}

	// (We ignore --config here; it's for discovery.)
	setStr("store", &c.Store)
	setStr("db-url", &c.Database)
	setStr("sqlite-path", &c.SQLitePath)

	setInt("chunk-size", &c.ChunkSize)
	setInt("search-limit", &c.SearchLimit)
	setInt("max-search-limit", &c.MaxSearchLimit)
	setInt64("max-upload-bytes", &c.MaxUploadBytes)

	setStr("docs-root", &c.DocsRoot)
	setInt("workers", &c.Workers)

	setStr("log-level", &c.LogLevel)
	setInt("port", &c.Port)

	// Auth flags
	setBool("auth-enabled", &c.Auth.Enabled)
	setStr("auth-jwt-secret", &c.Auth.JwtSecret)
	setDuration("auth-token-ttl", &c.Auth.TokenTTL)
}

func setDefaults(c *Specification) {
	c.Store = DefaultStore
	c.SQLitePath = DefaultSQLitePath
	c.ChunkSize = DefaultChunkSize
	c.SearchLimit = DefaultSearchLimit
	c.MaxSearchLimit = DefaultMaxSearchLimit
	c.MaxUploadBytes = DefaultMaxUploadBytes
	c.DocsRoot = "."
	c.LogLevel = "info"
	c.Port = 8080
	c.Auth.Enabled = false
	c.Auth.TokenTTL = DefaultTokenTTL
}
