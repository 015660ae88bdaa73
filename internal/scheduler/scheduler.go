package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mamadbah2/saveeat/internal/repository"
	"github.com/mamadbah2/saveeat/internal/service/planning"
)

const reconcileTimeout = 5 * time.Minute

// Reconciler repairs the schedule of one user.
type Reconciler interface {
	Reconcile(ctx context.Context, userID string) (planning.ReconcileReport, error)
}

// UserLister enumerates users owning documents in a collection.
type UserLister interface {
	UserIDs(ctx context.Context, collection string) ([]string, error)
}

// Scheduler manages scheduled maintenance tasks.
type Scheduler struct {
	cron       *cron.Cron
	spec       string
	users      UserLister
	reconciler Reconciler
	logger     *zap.Logger
}

// NewScheduler creates a new scheduler running the reconcile job on spec, a
// standard five-field cron expression evaluated in loc.
func NewScheduler(spec string, loc *time.Location, users UserLister, reconciler Reconciler, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}

	return &Scheduler{
		cron:       cron.New(cron.WithLocation(loc)),
		spec:       spec,
		users:      users,
		reconciler: reconciler,
		logger:     logger,
	}
}

// Start registers the jobs and starts the cron loop.
func (s *Scheduler) Start() error {
	s.logger.Info("starting scheduler", zap.String("reconcile_schedule", s.spec))

	if _, err := s.cron.AddFunc(s.spec, s.reconcileAll); err != nil {
		return fmt.Errorf("schedule reconcile job: %w", err)
	}

	s.cron.Start()
	return nil
}

// Stop stops the scheduler and waits for a running job.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

func (s *Scheduler) reconcileAll() {
	ctx, cancel := context.WithTimeout(context.Background(), reconcileTimeout)
	defer cancel()

	if _, err := s.RunReconcile(ctx); err != nil {
		s.logger.Error("schedule reconciliation failed", zap.Error(err))
	}
}

// RunReconcile reconciles every user having schedule index entries or days.
// A failing user is logged and skipped. It returns the number of users repaired.
func (s *Scheduler) RunReconcile(ctx context.Context) (int, error) {
	seen := make(map[string]bool)
	var userIDs []string
	for _, collection := range []string{repository.CollectionScheduleIndex, repository.CollectionScheduleDays} {
		ids, err := s.users.UserIDs(ctx, collection)
		if err != nil {
			return 0, fmt.Errorf("list users: %w", err)
		}
		for _, id := range ids {
			if !seen[id] {
				seen[id] = true
				userIDs = append(userIDs, id)
			}
		}
	}

	repaired := 0
	for _, userID := range userIDs {
		if err := ctx.Err(); err != nil {
			return repaired, err
		}
		report, err := s.reconciler.Reconcile(ctx, userID)
		if err != nil {
			s.logger.Error("failed to reconcile schedule", zap.String("user_id", userID), zap.Error(err))
			continue
		}
		if report.Changed() {
			repaired++
		}
	}

	s.logger.Info("schedule reconciliation finished",
		zap.Int("users", len(userIDs)),
		zap.Int("repaired", repaired))
	return repaired, nil
}
