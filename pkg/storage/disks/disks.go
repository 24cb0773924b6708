// Package disks selects the configured storage backend.
package disks

import (
	"context"

	"github.com/solarflow/solarshop-backend/pkg/config"
	"github.com/solarflow/solarshop-backend/pkg/logger"
	"github.com/solarflow/solarshop-backend/pkg/storage"
	"github.com/solarflow/solarshop-backend/pkg/storage/gcs"
	"github.com/solarflow/solarshop-backend/pkg/storage/local"
)

// Open returns the GCS bucket when configured, otherwise the local disk.
func Open(ctx context.Context, cfg *config.Config, logg *logger.Logger) (storage.Disk, error) {
	if cfg.Storage.UsesGCS() {
		return gcs.NewClient(ctx, cfg.GCS, cfg.GCP, cfg.Storage.Prefix, logg)
	}
	return local.New(cfg.Storage.LocalRoot, cfg.Storage.Prefix)
}
