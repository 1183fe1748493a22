package job

import (
	"context"
	"time"

	"github.com/chitedze/agroadvisor/internal/repo"
)

// QueryLogCleanupJob drops audit-log rows past the retention window so the
// table stays small on the modest databases this runs against.
type QueryLogCleanupJob struct {
	repo     *repo.QueryLogRepo
	keepDays int
}

func NewQueryLogCleanupJob(repo *repo.QueryLogRepo, keepDays int) *QueryLogCleanupJob {
	return &QueryLogCleanupJob{repo: repo, keepDays: keepDays}
}

func (j *QueryLogCleanupJob) Name() string {
	return "query_log_cleanup"
}

func (j *QueryLogCleanupJob) Run(ctx context.Context) error {
	if j.repo == nil {
		return nil
	}
	keepDays := j.keepDays
	if keepDays <= 0 {
		keepDays = 90
	}
	cutoff := time.Now().Add(-time.Duration(keepDays) * 24 * time.Hour).Unix()
	_, err := j.repo.DeleteBefore(ctx, cutoff)
	return err
}
