package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	AppPort string

	DBDriver string // mysql | postgres | sqlite
	DBLogLvl string

	MySQLHost string
	MySQLPort string
	MySQLDB   string
	MySQLUser string
	MySQLPass string

	PGHost    string
	PGPort    string
	PGDB      string
	PGUser    string
	PGPass    string
	PGSSLMode string

	SQLitePath string

	RedisAddr string
	RedisDB   int

	IdempTTLSecs  int
	WizardTTLSecs int

	JWTSecret string

	GatewayRPS   float64
	GatewayBurst int

	LogLevel  string
	LogFormat string // json | text
	LogFile   string // empty = stdout only
}

func getenv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func getenvInt(k string, d int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return d
}

func getenvFloat(k string, d float64) float64 {
	if v := os.Getenv(k); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return d
}

// LoadDotenv reads .env files into the environment without overriding
// variables that are already set. A missing file is not an error.
func LoadDotenv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

func Load() *Config {
	return &Config{
		AppPort:  getenv("APP_PORT", "8080"),
		DBDriver: strings.ToLower(getenv("DB_DRIVER", "mysql")),
		DBLogLvl: getenv("DB_LOG_LEVEL", "warn"),

		MySQLHost: getenv("MYSQL_HOST", "mysql"),
		MySQLPort: getenv("MYSQL_PORT", "3306"),
		MySQLDB:   getenv("MYSQL_DB", "zro"),
		MySQLUser: getenv("MYSQL_USER", "zro"),
		MySQLPass: getenv("MYSQL_PASS", "zro"),

		PGHost:    getenv("PG_HOST", "postgres"),
		PGPort:    getenv("PG_PORT", "5432"),
		PGDB:      getenv("PG_DB", "zro"),
		PGUser:    getenv("PG_USER", "zro"),
		PGPass:    getenv("PG_PASS", "zro"),
		PGSSLMode: getenv("PG_SSLMODE", "disable"),

		SQLitePath: getenv("SQLITE_PATH", "zro.db"),

		RedisAddr: getenv("REDIS_ADDR", "redis:6379"),
		RedisDB:   getenvInt("REDIS_DB", 0),

		IdempTTLSecs:  getenvInt("IDEMPOTENCY_TTL_SECONDS", 300),
		WizardTTLSecs: getenvInt("WIZARD_TTL_SECONDS", 3600),

		JWTSecret: os.Getenv("JWT_SECRET"),

		GatewayRPS:   getenvFloat("GATEWAY_RATE_PER_SEC", 2),
		GatewayBurst: getenvInt("GATEWAY_BURST", 10),

		LogLevel:  getenv("LOG_LEVEL", "info"),
		LogFormat: getenv("LOG_FORMAT", "json"),
		LogFile:   os.Getenv("LOG_FILE"),
	}
}

func (c *Config) Validate() error {
	if c.AppPort == "" {
		return errors.New("missing APP_PORT")
	}
	switch c.DBDriver {
	case "mysql":
		if c.MySQLHost == "" || c.MySQLPort == "" || c.MySQLDB == "" || c.MySQLUser == "" {
			return errors.New("missing MySQL config (MYSQL_HOST/PORT/DB/USER)")
		}
		if _, err := net.LookupPort("tcp", c.MySQLPort); err != nil {
			return fmt.Errorf("invalid MYSQL_PORT %q: %w", c.MySQLPort, err)
		}
	case "postgres":
		if c.PGHost == "" || c.PGPort == "" || c.PGDB == "" || c.PGUser == "" {
			return errors.New("missing Postgres config (PG_HOST/PORT/DB/USER)")
		}
		if _, err := net.LookupPort("tcp", c.PGPort); err != nil {
			return fmt.Errorf("invalid PG_PORT %q: %w", c.PGPort, err)
		}
	case "sqlite":
		if c.SQLitePath == "" {
			return errors.New("missing SQLITE_PATH")
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	if len(c.JWTSecret) < 32 {
		return errors.New("JWT_SECRET must be at least 32 bytes")
	}
	if c.WizardTTLSecs <= 0 || c.IdempTTLSecs <= 0 {
		return errors.New("WIZARD_TTL_SECONDS and IDEMPOTENCY_TTL_SECONDS must be positive")
	}
	if c.GatewayRPS <= 0 || c.GatewayBurst <= 0 {
		return errors.New("GATEWAY_RATE_PER_SEC and GATEWAY_BURST must be positive")
	}
	return nil
}

// DSN returns the connection string for the configured driver.
func (c *Config) DSN() string {
	switch c.DBDriver {
	case "postgres":
		return c.PostgresDSN()
	case "sqlite":
		return c.SQLitePath
	default:
		return c.MySQLDSN()
	}
}

func (c *Config) mysqlAddr() string { return net.JoinHostPort(c.MySQLHost, c.MySQLPort) }

func (c *Config) MySQLDSN() string {
	// parseTime needed for DATETIME
	return fmt.Sprintf("%s:%s@tcp(%s)/%s?parseTime=true&charset=utf8mb4,utf8&loc=UTC",
		c.MySQLUser, c.MySQLPass, c.mysqlAddr(), c.MySQLDB)
}

func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
		c.PGHost, c.PGPort, c.PGUser, c.PGPass, c.PGDB, c.PGSSLMode)
}
