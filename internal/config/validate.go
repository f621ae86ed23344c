package config

import (
	"fmt"
	"time"
)

// Validate performs business-rule validation on the loaded configuration.
// It must be called after loading; Load calls it automatically.
func (c *Config) Validate() error {
	if c.Database.MaxConns < c.Database.MinConns {
		return fmt.Errorf("database.max_conns (%d) must be >= database.min_conns (%d)",
			c.Database.MaxConns, c.Database.MinConns)
	}

	if _, err := c.Window.Location(); err != nil {
		return fmt.Errorf("window.timezone: %w", err)
	}

	if c.Ingest.ReindexBatchSize <= 0 {
		return fmt.Errorf("ingest.reindex_batch_size must be > 0 (got %d)", c.Ingest.ReindexBatchSize)
	}

	return nil
}

// Location resolves the configured window timezone to a *time.Location.
func (w WindowConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(w.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid IANA timezone %q: %w", w.Timezone, err)
	}
	return loc, nil
}
