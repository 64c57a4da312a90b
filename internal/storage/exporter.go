// Package storage persists rendered report tables. The query core returns
// in-memory tables only; everything about putting them on disk or in S3
// lives here.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/ga4-reporter/internal/config"
	"github.com/ignite/ga4-reporter/internal/ga4"
	"github.com/ignite/ga4-reporter/internal/pkg/logger"
)

// Exporter writes report tables as CSV, locally and optionally to S3.
type Exporter struct {
	cfg config.ExportConfig
	s3  *S3Store
}

// New creates an exporter. S3 upload is enabled only when a bucket is
// configured; local CSV export always works.
func New(ctx context.Context, cfg config.ExportConfig) (*Exporter, error) {
	e := &Exporter{cfg: cfg}
	if cfg.S3Bucket != "" {
		s3Store, err := NewS3Store(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("initializing S3 export: %w", err)
		}
		e.s3 = s3Store
	}
	return e, nil
}

// objectName builds a collision-free export name: report name, UTC date
// stamp, and a short unique suffix so repeated runs on the same day never
// overwrite each other.
func objectName(report string, now time.Time) string {
	return fmt.Sprintf("%s-%s-%s.csv",
		report,
		now.UTC().Format("20060102-150405"),
		uuid.NewString()[:8])
}

// ExportLocal writes the table as CSV under the configured local path and
// returns the file path.
func (e *Exporter) ExportLocal(report string, table *ga4.Table) (string, error) {
	if err := os.MkdirAll(e.cfg.LocalPath, 0o755); err != nil {
		return "", fmt.Errorf("creating export directory: %w", err)
	}
	path := filepath.Join(e.cfg.LocalPath, objectName(report, time.Now()))

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating export file: %w", err)
	}
	defer f.Close()

	if err := table.WriteCSV(f); err != nil {
		return "", fmt.Errorf("writing CSV: %w", err)
	}
	logger.Info("report exported", "report", report, "path", path, "rows", len(table.Rows))
	return path, nil
}

// ExportS3 uploads the table as CSV to the configured bucket and returns
// the object URI. Fails when no bucket was configured.
func (e *Exporter) ExportS3(ctx context.Context, report string, table *ga4.Table) (string, error) {
	if e.s3 == nil {
		return "", fmt.Errorf("S3 export not configured (set export.s3_bucket)")
	}

	var buf bytes.Buffer
	if err := table.WriteCSV(&buf); err != nil {
		return "", fmt.Errorf("writing CSV: %w", err)
	}

	key := objectName(report, time.Now())
	if e.cfg.S3Prefix != "" {
		key = e.cfg.S3Prefix + "/" + key
	}
	uri, err := e.s3.PutCSV(ctx, key, buf.Bytes())
	if err != nil {
		return "", err
	}
	logger.Info("report exported", "report", report, "uri", uri, "rows", len(table.Rows))
	return uri, nil
}
