package maintenance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	iauth "github.com/barberhq/barberhq/internal/auth"
	"github.com/barberhq/barberhq/internal/services"
	"github.com/barberhq/barberhq/pkg/logger"
)

// Options configures the periodic cleanup job.
type Options struct {
	Schedule           string
	AuditRetentionDays int
	InviteRetention    time.Duration
}

// Scheduler runs the recurring maintenance tasks: dropping expired sessions,
// purging stale invitations, and trimming old audit logs.
type Scheduler struct {
	cron     *cron.Cron
	sessions *iauth.SessionService
	invites  *services.InviteService
	audit    *services.AuditService
	opts     Options
	log      *zap.Logger
}

// NewScheduler constructs a Scheduler; Start must be called to begin running.
func NewScheduler(sessions *iauth.SessionService, invites *services.InviteService, audit *services.AuditService, opts Options) (*Scheduler, error) {
	if sessions == nil {
		return nil, errors.New("maintenance: session service is required")
	}
	if opts.Schedule == "" {
		opts.Schedule = "@hourly"
	}
	if opts.AuditRetentionDays <= 0 {
		opts.AuditRetentionDays = 90
	}
	if opts.InviteRetention <= 0 {
		opts.InviteRetention = 30 * 24 * time.Hour
	}

	return &Scheduler{
		cron:     cron.New(),
		sessions: sessions,
		invites:  invites,
		audit:    audit,
		opts:     opts,
		log:      logger.WithModule("maintenance"),
	}, nil
}

// Start registers the cleanup job and launches the cron loop.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.opts.Schedule, func() {
		if err := s.RunOnce(context.Background()); err != nil {
			s.log.Warn("cleanup run finished with errors", zap.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("maintenance: schedule %q: %w", s.opts.Schedule, err)
	}

	s.cron.Start()
	s.log.Info("maintenance scheduler started", zap.String("schedule", s.opts.Schedule))
	return nil
}

// Stop halts the cron loop and waits for a running job to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// RunOnce executes every cleanup task, collecting rather than aborting on
// individual failures.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	var errs error

	if removed, err := s.sessions.CleanupExpired(ctx); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("sessions: %w", err))
	} else if removed > 0 {
		s.log.Info("expired sessions removed", zap.Int64("count", removed))
	}

	if s.invites != nil {
		if purged, err := s.invites.PurgeExpired(ctx, s.opts.InviteRetention); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("invitations: %w", err))
		} else if purged > 0 {
			s.log.Info("stale invitations purged", zap.Int64("count", purged))
		}
	}

	if s.audit != nil {
		if trimmed, err := s.audit.CleanupOlderThan(ctx, s.opts.AuditRetentionDays); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("audit logs: %w", err))
		} else if trimmed > 0 {
			s.log.Info("old audit logs trimmed", zap.Int64("count", trimmed))
		}
	}

	return errs
}
