package config

import (
	"fmt"
	"os"
)

// EnvConfigPath overrides the config file location when set.
const EnvConfigPath = "NAV3D_CONFIG"

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

// DefaultDatabase returns connection parameters for a local development database.
func DefaultDatabase() DatabaseConfig {
	return DatabaseConfig{
		Host:     "127.0.0.1",
		Port:     5432,
		User:     "nav3d",
		Password: "nav3d",
		DBName:   "nav3d",
		SSLMode:  "disable",
	}
}

// Path returns the config path from NAV3D_CONFIG, or def when it is unset.
func Path(def string) string {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p
	}
	return def
}
