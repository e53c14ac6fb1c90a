// Package jobs runs the scheduled background work of the pipeline engine.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jordanlanch/dealpipe/pkg/logger"
	"github.com/robfig/cron/v3"
)

const refreshTimeout = 30 * time.Minute

// Tenants lists the companies a job should visit.
type Tenants interface {
	ListActiveIDs(ctx context.Context) ([]int64, error)
}

// Refresher recomputes the probability of a company's open opportunities.
type Refresher interface {
	RefreshOpenProbabilities(ctx context.Context, companyID int64) (int, error)
}

// RefreshRecorder receives the outcome of each refresh run.
type RefreshRecorder interface {
	RecordProbabilityRefresh(success bool)
}

type noRecorder struct{}

func (noRecorder) RecordProbabilityRefresh(bool) {}

// CronManager manages scheduled jobs
type CronManager struct {
	cron      *cron.Cron
	tenants   Tenants
	refresher Refresher
	recorder  RefreshRecorder
	logger    logger.Logger
}

// NewCronManager creates a new cron manager. recorder and log may be nil.
func NewCronManager(tenants Tenants, refresher Refresher, recorder RefreshRecorder, log logger.Logger) *CronManager {
	if recorder == nil {
		recorder = noRecorder{}
	}
	if log == nil {
		log = logger.Default()
	}
	return &CronManager{
		cron:      cron.New(),
		tenants:   tenants,
		refresher: refresher,
		recorder:  recorder,
		logger:    log.With("component", "cron"),
	}
}

// SetupJobs registers the probability refresh on the given cron schedule.
func (cm *CronManager) SetupJobs(schedule string) error {
	_, err := cm.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
		defer cancel()
		if _, err := cm.RefreshAll(ctx); err != nil {
			cm.logger.Error("probability refresh failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid refresh schedule %q: %w", schedule, err)
	}
	cm.logger.Info("cron jobs configured", "probability_refresh", schedule)
	return nil
}

// RefreshAll refreshes every active company. A failing company is logged and
// skipped; the joined errors are returned once all companies were visited.
func (cm *CronManager) RefreshAll(ctx context.Context) (int, error) {
	start := time.Now()

	ids, err := cm.tenants.ListActiveIDs(ctx)
	if err != nil {
		cm.recorder.RecordProbabilityRefresh(false)
		return 0, err
	}

	total := 0
	var errs []error
	for _, id := range ids {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		n, err := cm.refresher.RefreshOpenProbabilities(ctx, id)
		total += n
		if err != nil {
			cm.logger.Warn("company refresh failed", "company_id", id, "error", err)
			errs = append(errs, fmt.Errorf("company %d: %w", id, err))
		}
	}

	err = errors.Join(errs...)
	cm.recorder.RecordProbabilityRefresh(err == nil)
	cm.logger.Info("probability refresh finished",
		"companies", len(ids),
		"refreshed", total,
		"failed", len(errs),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return total, err
}

// Start starts the cron scheduler
func (cm *CronManager) Start() {
	cm.cron.Start()
}

// Stop stops the scheduler and waits for a running job to finish.
func (cm *CronManager) Stop() {
	<-cm.cron.Stop().Done()
}
