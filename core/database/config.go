package database

import (
	"fmt"
	"strings"
)

const (
	// DriverSQLite selects the embedded SQLite engine (modernc.org/sqlite).
	DriverSQLite = "sqlite"
	// DriverPostgres selects PostgreSQL via lib/pq.
	DriverPostgres = "postgres"
)

// Config holds database connection settings shared across bots.
type Config struct {
	Driver         string `yaml:"driver" envconfig:"DB_DRIVER"`
	Path           string `yaml:"path" envconfig:"DB_PATH"`
	Host           string `yaml:"host" envconfig:"DB_HOST"`
	Port           string `yaml:"port" envconfig:"DB_PORT"`
	User           string `yaml:"user" envconfig:"DB_USER"`
	Password       string `yaml:"password" envconfig:"DB_PASSWORD"`
	Name           string `yaml:"name" envconfig:"DB_NAME"`
	SSLMode        string `yaml:"sslmode" envconfig:"DB_SSLMODE"`
	MaxConnections int    `yaml:"max_connections" envconfig:"DB_MAX_CONNECTIONS"`
}

// Normalize validates the driver selection and fills defaults.
func (c *Config) Normalize() error {
	driver := strings.ToLower(strings.TrimSpace(c.Driver))
	switch driver {
	case "", "sqlite3":
		driver = DriverSQLite
	case "postgresql", "pg":
		driver = DriverPostgres
	}
	c.Driver = driver

	switch driver {
	case DriverSQLite:
		if strings.TrimSpace(c.Path) == "" {
			c.Path = "bot.db"
		}
		// SQLite allows a single writer; one pooled connection serializes all access.
		c.MaxConnections = 1
	case DriverPostgres:
		if c.Host == "" || c.Name == "" {
			return fmt.Errorf("database.host and database.name are required for postgres")
		}
		if c.Port == "" {
			c.Port = "5432"
		}
		if c.SSLMode == "" {
			c.SSLMode = "disable"
		}
		if c.MaxConnections <= 0 {
			c.MaxConnections = 10
		}
	default:
		return fmt.Errorf("invalid database.driver %q; allowed: sqlite, postgres", c.Driver)
	}
	return nil
}

// DSN renders the driver-specific data source name.
func (c Config) DSN() string {
	if c.Driver == DriverPostgres {
		return fmt.Sprintf(
			"user=%s password=%s host=%s port=%s dbname=%s sslmode=%s",
			c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode,
		)
	}
	return SQLiteDSN(c.Path) + "&_pragma=journal_mode(WAL)"
}

// SQLiteDSN builds a modernc DSN for path (":memory:" works) with a busy timeout and
// ISO-8601 time encoding so TIMESTAMP columns compare correctly as text.
func SQLiteDSN(path string) string {
	return "file:" + path + "?_pragma=busy_timeout(5000)&_time_format=sqlite"
}
