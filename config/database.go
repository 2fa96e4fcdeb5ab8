package config

import "time"

// DBConfig contains PostgreSQL database configuration.
type DBConfig struct {
	Host     string `env:"HOST"     envDefault:"localhost"`
	Port     int    `env:"PORT"     envDefault:"5432"`
	User     string `env:"USER"     envDefault:"jobsift"`
	Password string `env:"PASSWORD" envDefault:"jobsift"`
	Name     string `env:"NAME"     envDefault:"jobsift"`
	SSLMode  string `env:"SSL_MODE" envDefault:"disable"` // Use 'disable' for local dev, 'require' for production
	// RunMigrationsOnStart controls whether the application automatically applies migrations during startup.
	RunMigrationsOnStart bool `env:"RUN_MIGRATIONS_ON_START" envDefault:"true"`
}

// RedisConfig contains Redis configuration for the single-instance run lock.
// The lock is optional: leave URI empty to run without it.
type RedisConfig struct {
	URI      string `env:"URI"      envDefault:""`
	Password string `env:"PASSWORD" envDefault:""`
	DB       int    `env:"DB"       envDefault:"0"`

	// LockTTL bounds how long a crashed run can hold the pipeline lock.
	LockTTL time.Duration `env:"LOCK_TTL" envDefault:"2h"`
}

// LockEnabled returns true when a Redis endpoint is configured.
func (c *RedisConfig) LockEnabled() bool {
	return c.URI != ""
}
