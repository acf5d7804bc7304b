package storage

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"storefront-sampler/internal/types"
)

// Sink receives one record per successful session
type Sink interface {
	Append(ctx context.Context, site string, product types.ExtractedProduct) error
}

// CSVLog appends (name, price, url) rows to a UTF-8 CSV file without header.
// The file is opened and closed on every append.
type CSVLog struct {
	path string
}

// NewCSVLog creates a log writing to path
func NewCSVLog(path string) *CSVLog {
	return &CSVLog{path: path}
}

// Path returns the file the log appends to
func (c *CSVLog) Path() string {
	return c.path
}

// Append writes one row
func (c *CSVLog) Append(ctx context.Context, site string, product types.ExtractedProduct) error {
	if dir := filepath.Dir(c.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory %s: %w", dir, err)
		}
	}

	f, err := os.OpenFile(c.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open output log %s: %w", c.path, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write([]string{product.Name, product.Price, product.URL}); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write record: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to flush record: %w", err)
	}

	return f.Close()
}

// Multi fans a record out to several sinks and reports every failure
type Multi []Sink

// Append writes to every sink even when an earlier one fails
func (m Multi) Append(ctx context.Context, site string, product types.ExtractedProduct) error {
	var errs []error
	for _, sink := range m {
		if err := sink.Append(ctx, site, product); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
