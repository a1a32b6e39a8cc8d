package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	DefaultPort         = "3001"
	DefaultDataDir      = "./analytics-data"
	DefaultDataFile     = "visitor-data.json"
	DefaultMaxBodyBytes = 10 << 20
)

type Config struct {
	Port    string `yaml:"port"`
	GinMode string `yaml:"gin_mode"`

	// TrustedProxies may set X-Forwarded-For; empty trusts none, so the client IP is the peer address.
	TrustedProxies []string `yaml:"trusted_proxies"`

	Storage    Storage    `yaml:"storage"`
	Ingest     Ingest     `yaml:"ingest"`
	ClickHouse ClickHouse `yaml:"clickhouse"`
	Postgres   Postgres   `yaml:"postgres"`
	Auth       Auth       `yaml:"auth"`
}

type Storage struct {
	DataDir  string `yaml:"data_dir"`
	DataFile string `yaml:"data_file"`
}

type Ingest struct {
	MaxBodyBytes int64   `yaml:"max_body_bytes"`
	RateLimit    float64 `yaml:"rate_limit"` // requests per second per client IP, 0 (default) disables
	RateBurst    int     `yaml:"rate_burst"`
	AllowOrigin  string  `yaml:"allow_origin"`
}

type ClickHouse struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"native_port"`
	Database string `yaml:"database"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// Enabled reports whether the ClickHouse mirror should be started.
func (c ClickHouse) Enabled() bool {
	return c.Host != ""
}

type Postgres struct {
	URL string `yaml:"url"`
}

type Auth struct {
	JWTSecret string `yaml:"jwt_secret"`
	APIKey    string `yaml:"api_key"`

	// Operator is created at startup when set, so a deployment without an API key can log in.
	OperatorEmail    string `yaml:"operator_email"`
	OperatorPassword string `yaml:"operator_password"`
}

// Enabled reports whether the read endpoints require credentials.
func (a Auth) Enabled() bool {
	return a.JWTSecret != "" || a.APIKey != ""
}

func Default() *Config {
	return &Config{
		Port: DefaultPort,
		Storage: Storage{
			DataDir:  DefaultDataDir,
			DataFile: DefaultDataFile,
		},
		Ingest: Ingest{
			MaxBodyBytes: DefaultMaxBodyBytes,
			RateBurst:    40,
			AllowOrigin:  "*",
		},
		ClickHouse: ClickHouse{
			Port: 9000,
		},
	}
}

// Load builds the configuration from defaults, then the optional YAML file at path,
// then environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		file, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(file, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	str("PORT", &c.Port)
	str("GIN_MODE", &c.GinMode)
	str("DATA_DIR", &c.Storage.DataDir)
	str("DATA_FILE", &c.Storage.DataFile)
	str("FE_ORIGIN", &c.Ingest.AllowOrigin)
	str("CLICKHOUSE_HOST", &c.ClickHouse.Host)
	str("CLICKHOUSE_DB_NAME", &c.ClickHouse.Database)
	str("CLICKHOUSE_USERNAME", &c.ClickHouse.Username)
	str("CLICKHOUSE_PASSWORD", &c.ClickHouse.Password)
	str("DATABASE_URL", &c.Postgres.URL)
	str("JWT_SECRET_KEY", &c.Auth.JWTSecret)
	str("AUTH_DEFAULT", &c.Auth.APIKey)
	str("OPERATOR_EMAIL", &c.Auth.OperatorEmail)
	str("OPERATOR_PASSWORD", &c.Auth.OperatorPassword)

	if v, ok := lookup("TRUSTED_PROXIES"); ok && v != "" {
		c.TrustedProxies = nil
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				c.TrustedProxies = append(c.TrustedProxies, p)
			}
		}
	}

	if v, ok := lookup("CLICKHOUSE_NATIVE_PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid CLICKHOUSE_NATIVE_PORT: %w", err)
		}
		c.ClickHouse.Port = port
	}
	if v, ok := lookup("MAX_BODY_BYTES"); ok && v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid MAX_BODY_BYTES %q", v)
		}
		c.Ingest.MaxBodyBytes = n
	}
	if v, ok := lookup("INGEST_RATE_LIMIT"); ok && v != "" {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil || rps < 0 {
			return fmt.Errorf("invalid INGEST_RATE_LIMIT %q", v)
		}
		c.Ingest.RateLimit = rps
	}
	if v, ok := lookup("INGEST_RATE_BURST"); ok && v != "" {
		burst, err := strconv.Atoi(v)
		if err != nil || burst < 0 {
			return fmt.Errorf("invalid INGEST_RATE_BURST %q", v)
		}
		c.Ingest.RateBurst = burst
	}
	return nil
}
