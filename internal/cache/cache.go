// Package cache writes the cleaned table to an optional on-disk copy.
package cache

import (
	"context"
	"fmt"

	"mortality/internal/config"
	"mortality/internal/engine"
)

// Writer persists a cleaned store.
type Writer interface {
	Write(ctx context.Context, cs *engine.ColumnStore) error
	Format() string
}

// New returns the writer for a cache format. It returns nil, nil when
// caching is disabled.
func New(format, path string) (Writer, error) {
	switch format {
	case config.CacheNone:
		return nil, nil
	case config.CacheCSV:
		return &CSVWriter{Path: path}, nil
	case config.CacheArrow:
		return &ArrowWriter{Path: path}, nil
	case config.CacheSQLite:
		return &SQLiteWriter{Path: path}, nil
	}
	return nil, fmt.Errorf("unknown cache format %q", format)
}
