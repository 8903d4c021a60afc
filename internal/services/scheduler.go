package services

import (
	"context"
	"os"
	"time"

	"github.com/ethosradar/backend/internal/models"
	"github.com/ethosradar/backend/pkg/logger"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

const (
	jobPurgeCache = "purge_cache"
	jobPruneLogs  = "prune_logs"
)

// Scheduler runs periodic housekeeping. Each run is claimed through a
// scheduler_locks row so that instances sharing a database do not repeat it.
type Scheduler struct {
	db            *gorm.DB
	cache         Cache
	usage         *AIUsageService
	retentionDays int
	owner         string
	cron          *cron.Cron
	now           func() time.Time
}

func NewScheduler(db *gorm.DB, cache Cache, usage *AIUsageService, retentionDays int) *Scheduler {
	host, _ := os.Hostname()
	return &Scheduler{
		db:            db,
		cache:         cache,
		usage:         usage,
		retentionDays: retentionDays,
		owner:         host + "-" + uuid.NewString()[:8],
		now:           time.Now,
	}
}

func (s *Scheduler) Start() error {
	s.cron = cron.New()

	if _, err := s.cron.AddFunc("5 * * * *", func() {
		s.runOnce(jobPurgeCache, s.now().UTC().Format("2006-01-02T15"), time.Hour, s.PurgeCache)
	}); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc("30 3 * * *", func() {
		s.runOnce(jobPruneLogs, s.now().UTC().Format("2006-01-02"), 24*time.Hour, s.PruneLogs)
	}); err != nil {
		return err
	}

	s.cron.Start()
	logger.Infof("[Scheduler] Started (owner=%s, log retention=%d days)", s.owner, s.retentionDays)
	return nil
}

func (s *Scheduler) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
}

func (s *Scheduler) runOnce(job, runKey string, hold time.Duration, fn func(context.Context) error) {
	if !s.acquire(job, runKey, hold) {
		logger.Debug().Str("job", job).Str("run", runKey).Msg("[Scheduler] Run already claimed")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	if err := fn(ctx); err != nil {
		logger.Warn().Err(err).Str("job", job).Msg("[Scheduler] Job failed")
	}
}

// acquire claims job/runKey. Without a database every instance runs the job.
func (s *Scheduler) acquire(job, runKey string, hold time.Duration) bool {
	if s.db == nil {
		return true
	}
	now := s.now()
	s.db.Where("expires_at < ?", now).Delete(&models.SchedulerLock{})

	lock := models.SchedulerLock{
		JobName:   job,
		RunKey:    runKey,
		Owner:     s.owner,
		LockedAt:  now,
		ExpiresAt: now.Add(hold),
	}
	// the unique (job_name, run_key) index rejects a second claim
	return s.db.Create(&lock).Error == nil
}

// PurgeCache drops expired cache entries.
func (s *Scheduler) PurgeCache(ctx context.Context) error {
	n, err := s.cache.PurgeExpired(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		logger.Infof("[Scheduler] Purged %d expired %s cache entries", n, s.cache.Name())
	}
	return nil
}

// PruneLogs deletes analysis and AI usage logs past the retention window.
func (s *Scheduler) PruneLogs(ctx context.Context) error {
	if s.retentionDays <= 0 || s.db == nil {
		return nil
	}
	cutoff := s.now().AddDate(0, 0, -s.retentionDays)

	result := s.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&models.AnalysisLog{})
	if result.Error != nil {
		return result.Error
	}
	var usageRows int64
	if s.usage != nil {
		n, err := s.usage.CleanupBefore(cutoff)
		if err != nil {
			return err
		}
		usageRows = n
	}

	logger.Infof("[Scheduler] Pruned %d analysis logs and %d AI usage logs older than %s",
		result.RowsAffected, usageRows, cutoff.Format("2006-01-02"))
	return nil
}
