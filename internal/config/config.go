package config

import "time"

// Config is the root application configuration.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Log      LogConfig      `yaml:"log"`
	Window   WindowConfig   `yaml:"window"`
	Ingest   IngestConfig   `yaml:"ingest"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	DSN             string        `yaml:"dsn"                env:"DATABASE_DSN"                env-required:"true"`
	MaxConns        int32         `yaml:"max_conns"          env:"DATABASE_MAX_CONNS"          env-default:"25"`
	MinConns        int32         `yaml:"min_conns"          env:"DATABASE_MIN_CONNS"          env-default:"5"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"  env:"DATABASE_MAX_CONN_LIFETIME"  env-default:"1h"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time" env:"DATABASE_MAX_CONN_IDLE_TIME" env-default:"30m"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json"`
}

// WindowConfig holds unread-window settings.
//
// Timezone is the IANA zone in which calendar-day boundaries are observed
// when deciding whether a visit advances the window. It is a single
// explicit policy, never the local machine default.
type WindowConfig struct {
	Timezone string `yaml:"timezone" env:"WINDOW_TIMEZONE" env-default:"UTC"`
}

// IngestConfig holds paper-ingestion settings.
type IngestConfig struct {
	// ReindexBatchSize is the page size used when backfilling author
	// search keys.
	ReindexBatchSize int `yaml:"reindex_batch_size" env:"INGEST_REINDEX_BATCH_SIZE" env-default:"500"`
}
