package k8s

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/kagent-dev/k8s-mcp-server/internal/logger"
)

// Stager writes manifests to uniquely named files for kubectl apply -f.
type Stager struct {
	dir string

	staged   metric.Int64Counter
	released metric.Int64Counter
}

// StagedFile is one staged manifest. It must be released exactly once.
type StagedFile struct {
	Path   string
	stager *Stager
}

// NewStager stages files under dir, or the system temp dir when dir is empty.
func NewStager(dir string) *Stager {
	if dir == "" {
		dir = os.TempDir()
	}

	meter := otel.Meter("k8s-mcp-server/staging")
	staged, _ := meter.Int64Counter(
		"k8s_mcp_manifests_staged_total",
		metric.WithDescription("Total number of manifests written for apply"),
	)
	released, _ := meter.Int64Counter(
		"k8s_mcp_manifests_released_total",
		metric.WithDescription("Total number of staged manifests removed"),
	)

	return &Stager{dir: dir, staged: staged, released: released}
}

// Dir returns the staging directory.
func (s *Stager) Dir() string {
	return s.dir
}

// Stage writes content byte-for-byte to a new file readable only by the owner.
func (s *Stager) Stage(ctx context.Context, content string) (*StagedFile, error) {
	pattern := fmt.Sprintf("k8s-manifest-%d-*.yaml", time.Now().UnixNano())
	f, err := os.CreateTemp(s.dir, pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to create manifest file: %w", err)
	}

	if _, err := f.WriteString(content); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return nil, fmt.Errorf("failed to write manifest file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return nil, fmt.Errorf("failed to close manifest file: %w", err)
	}

	s.staged.Add(ctx, 1)
	return &StagedFile{Path: f.Name(), stager: s}, nil
}

// Release removes the staged file. Failures are logged and never returned.
func (f *StagedFile) Release(ctx context.Context) {
	if f == nil {
		return
	}
	err := os.Remove(f.Path)
	switch {
	case err == nil:
		f.stager.released.Add(ctx, 1, metric.WithAttributes(attribute.Bool("removed", true)))
	case errors.Is(err, fs.ErrNotExist):
		f.stager.released.Add(ctx, 1, metric.WithAttributes(attribute.Bool("removed", false)))
	default:
		logger.WithContext(ctx).Warn("failed to clean up staged manifest", "path", f.Path, "error", err)
		f.stager.released.Add(ctx, 1, metric.WithAttributes(attribute.Bool("removed", false)))
	}
}
