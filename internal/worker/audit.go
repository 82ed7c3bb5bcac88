package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	applog "saldo/internal/log"
	"saldo/internal/metrics"
	"saldo/internal/taxonomy"
)

// DefaultAuditSchedule runs the integrity audit every night at 03:15.
const DefaultAuditSchedule = "0 15 3 * * *"

// Auditor runs the cross-owner taxonomy audit and exports its counts.
type Auditor struct {
	src     taxonomy.AuditSource
	metrics *metrics.Metrics
}

func NewAuditor(src taxonomy.AuditSource, m *metrics.Metrics) *Auditor {
	if m == nil {
		m = metrics.Discard()
	}
	return &Auditor{src: src, metrics: m}
}

func (a *Auditor) Run(ctx context.Context) (taxonomy.Report, error) {
	start := time.Now()
	report, err := taxonomy.Audit(ctx, a.src)
	if err != nil {
		return taxonomy.Report{}, err
	}

	groups := 0
	for _, g := range report.Duplicates {
		groups += len(g)
	}
	a.metrics.IntegrityViolations.WithLabelValues("orphan_subcategory").Set(float64(len(report.Orphans)))
	a.metrics.IntegrityViolations.WithLabelValues("duplicate_category").Set(float64(groups))

	level := slog.LevelInfo
	if !report.Clean() {
		level = slog.LevelWarn
	}
	slog.Log(ctx, level, "Integrity audit completed",
		applog.FieldComponent, applog.ComponentWorker,
		applog.FieldOperation, applog.OpAudit,
		"orphans", len(report.Orphans),
		"duplicate_groups", groups,
		applog.FieldDuration, time.Since(start).Milliseconds())
	return report, nil
}

// Scheduler wraps a seconds-precision cron.
type Scheduler struct {
	cron *cron.Cron
}

func NewScheduler(loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{cron: cron.New(cron.WithLocation(loc), cron.WithSeconds())}
}

// Add registers job under spec. Each run gets its own timeout; failures are logged.
func (s *Scheduler) Add(spec, name string, timeout time.Duration, job func(ctx context.Context) error) (cron.EntryID, error) {
	id, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := job(ctx); err != nil {
			slog.Error("Scheduled job failed",
				applog.FieldComponent, applog.ComponentWorker,
				"job", name,
				applog.FieldError, err)
		}
	})
	if err != nil {
		return 0, fmt.Errorf("schedule %s with %q: %w", name, spec, err)
	}
	return id, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
