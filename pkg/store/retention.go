package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"mercator-hq/auditor/pkg/config"
)

// Pruner enforces the retention policy on stored results.
type Pruner struct {
	storage Storage
	config  config.RetentionConfig
	logger  *slog.Logger
	now     func() time.Time
}

// NewPruner creates a pruner over storage.
func NewPruner(storage Storage, cfg config.RetentionConfig, logger *slog.Logger) *Pruner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pruner{
		storage: storage,
		config:  cfg,
		logger:  logger.With("component", "store.retention"),
		now:     time.Now,
	}
}

// Prune deletes results older than the retention period, then the oldest
// results beyond MaxResults. Zero disables either phase. It returns the total
// number of results deleted.
func (p *Pruner) Prune(ctx context.Context) (int64, error) {
	var total int64

	if p.config.Days > 0 {
		cutoff := p.now().AddDate(0, 0, -p.config.Days)
		deleted, err := p.storage.Delete(ctx, &Query{Until: &cutoff})
		if err != nil {
			return total, &RetentionError{Days: p.config.Days, Cause: fmt.Errorf("prune by age: %w", err)}
		}
		total += deleted
		p.logger.Debug("pruned results by age",
			"deleted_count", deleted,
			"cutoff_time", cutoff,
		)
	}

	if p.config.MaxResults > 0 {
		// Newest first, so skipping MaxResults leaves the oldest surplus.
		deleted, err := p.storage.Delete(ctx, &Query{Offset: p.config.MaxResults})
		if err != nil {
			return total, &RetentionError{Days: p.config.Days, Cause: fmt.Errorf("prune by count: %w", err)}
		}
		total += deleted
		p.logger.Debug("pruned results by count",
			"deleted_count", deleted,
			"max_results", p.config.MaxResults,
		)
	}

	if total > 0 {
		p.logger.Info("result pruning completed",
			"total_deleted", total,
			"retention_days", p.config.Days,
			"max_results", p.config.MaxResults,
		)
	}
	return total, nil
}
