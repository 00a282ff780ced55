package scheduler

import (
	"github.com/rs/zerolog"

	"cryptofolio/internal/clientdata"
)

// CleanupCacheJob prunes expired quote blobs from cache.db. Stale entries are
// kept until this runs because they back the oracle's last-resort fallback,
// but unbounded growth is not wanted either.
type CleanupCacheJob struct {
	cache *clientdata.Repository
	log   zerolog.Logger
}

// NewCleanupCacheJob creates a new cache cleanup job
func NewCleanupCacheJob(cache *clientdata.Repository, log zerolog.Logger) *CleanupCacheJob {
	return &CleanupCacheJob{
		cache: cache,
		log:   log.With().Str("job", "cleanup_cache").Logger(),
	}
}

// Name returns the job name
func (j *CleanupCacheJob) Name() string { return "cleanup_cache" }

// Run deletes all expired cache entries.
func (j *CleanupCacheJob) Run() error {
	deleted, err := j.cache.DeleteExpired()
	if err != nil {
		return err
	}

	if deleted > 0 {
		j.log.Debug().Int64("deleted", deleted).Msg("Pruned expired cache entries")
	}

	return nil
}
