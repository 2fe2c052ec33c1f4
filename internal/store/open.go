package store

import (
	"context"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/pkg/config"
)

// Open builds the Source selected by cfg.Driver.
func Open(ctx context.Context, cfg config.StoreConfig) (Source, error) {
	switch cfg.Driver {
	case "", "fs":
		return NewFS(cfg.Root), nil
	case "s3":
		return NewS3(ctx, cfg.S3, cfg.Root, cfg.ReadWait)
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
}
