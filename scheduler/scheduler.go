// Package scheduler loads the reference data at startup and keeps it fresh:
// periodically through gocron and, when a data directory is watched, on every
// change to a dataset file. A failed reload keeps the previous snapshot.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/tlgayhan/pedi-mvp/interfaces"
	"github.com/tlgayhan/pedi-mvp/logging"
	"github.com/tlgayhan/pedi-mvp/metrics"
	"github.com/tlgayhan/pedi-mvp/reference"
	"github.com/tlgayhan/pedi-mvp/validation"
)

// Compile-time check to ensure Scheduler implements Scheduler interface
var _ interfaces.Scheduler = (*Scheduler)(nil)

const defaultDebounce = 500 * time.Millisecond

// Options controls when reloads happen after the initial load
type Options struct {
	ReloadInterval time.Duration // 0 disables periodic reloads
	WatchDir       string        // empty disables file watching
}

// Scheduler handles reference data reloads using dependency injection
type Scheduler struct {
	dataStore interfaces.DataStore
	loader    interfaces.Loader
	validator interfaces.DataValidator
	scheduler *gocron.Scheduler
	job       *gocron.Job
	opts      Options
	debounce  time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler creates a new scheduler instance with injected dependencies
func NewScheduler(dataStore interfaces.DataStore, loader interfaces.Loader, validator interfaces.DataValidator, opts Options) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		dataStore: dataStore,
		loader:    loader,
		validator: validator,
		scheduler: gocron.NewScheduler(time.Local),
		opts:      opts,
		debounce:  defaultDebounce,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start performs the initial load, then schedules the periodic reload and
// the file watcher when configured
func (s *Scheduler) Start() error {
	if err := s.updateData(s.ctx); err != nil {
		logging.Error("Failed to perform initial data load", "error", err)
		return fmt.Errorf("initial data load failed: %w", err)
	}

	if s.opts.ReloadInterval > 0 {
		job, err := s.scheduler.Every(s.opts.ReloadInterval).WaitForSchedule().SingletonMode().Do(func() {
			if err := s.updateData(s.ctx); err != nil {
				logging.Error("Failed to reload reference data, keeping previous snapshot", "error", err)
			}
		})
		if err != nil {
			logging.Error("Failed to schedule reloads", "error", err)
			return fmt.Errorf("failed to schedule reloads: %w", err)
		}
		s.job = job
		s.scheduler.StartAsync()

		s.startHealthMonitoring()
	}

	if s.opts.WatchDir != "" {
		if err := s.startWatching(); err != nil {
			s.Stop()
			return fmt.Errorf("failed to watch %s: %w", s.opts.WatchDir, err)
		}
	}

	return nil
}

// Stop stops the scheduler and the watcher and waits for them to exit
func (s *Scheduler) Stop() {
	s.cancel()
	s.scheduler.Stop()
	s.wg.Wait()
}

// Reload runs one reload outside the schedule, e.g. on SIGHUP
func (s *Scheduler) Reload() error {
	return s.updateData(s.ctx)
}

// NextReload returns the next periodic reload, zero when reloads are off
func (s *Scheduler) NextReload() time.Time {
	if s.job == nil {
		return time.Time{}
	}
	return s.job.NextRun()
}

// BuildSnapshot loads, validates and indexes the reference datasets without
// publishing them
func BuildSnapshot(ctx context.Context, loader interfaces.Loader, validator interfaces.DataValidator) (*reference.Snapshot, *validation.DataQualityReport, error) {
	ds, err := loader.Load(ctx)
	if err != nil {
		return nil, nil, err
	}

	if err := validator.ValidateFormulary(ds.Drugs); err != nil {
		return nil, nil, fmt.Errorf("invalid formulary (%s): %w", ds.DrugsSource, err)
	}

	if err := validator.ValidateToxDb(ds.Tox); err != nil {
		return nil, nil, fmt.Errorf("invalid toxidrome database (%s): %w", ds.ToxSource, err)
	}

	report := validator.ReportDataQuality(ds.Drugs, ds.Tox)

	snapshot, err := reference.NewSnapshot(ds)
	if err != nil {
		return nil, nil, err
	}

	return snapshot, report, nil
}

// updateData performs a complete reload using injected dependencies
func (s *Scheduler) updateData(ctx context.Context) error {
	// Prevent concurrent updates
	if !s.dataStore.BeginUpdate() {
		logging.Info("Reload already in progress, skipping...")
		metrics.ObserveReload(metrics.ReloadSkipped)
		return nil
	}
	defer s.dataStore.EndUpdate()

	start := time.Now()

	snapshot, report, err := BuildSnapshot(ctx, s.loader, s.validator)
	if err != nil {
		metrics.ObserveReload(metrics.ReloadFailure)
		return err
	}

	LogReport(report)

	// Atomic update using injected data store (including report)
	s.dataStore.UpdateData(snapshot, report)

	metrics.ObserveReload(metrics.ReloadSuccess)
	metrics.SetReferenceEntries(snapshot.Formulary.Len(), snapshot.ToxEngine.Len(), len(snapshot.ToxDb.RedFlags))

	logging.Info("Reference data loaded",
		"duration", time.Since(start).String(),
		"source", snapshot.Source,
		"drugs", snapshot.Formulary.Len(),
		"toxidromes", snapshot.ToxEngine.Len(),
		"quality_issues", report.Issues(),
	)

	return nil
}

// LogReport logs every non-empty section of a data quality report
func LogReport(report *validation.DataQualityReport) {
	if report == nil {
		return
	}

	if len(report.DuplicateDrugIDs) > 0 {
		logging.Warn("Duplicate drug ids detected, first entry wins", "ids", report.DuplicateDrugIDs)
	}

	if len(report.RoutesWithoutConcentrations) > 0 {
		logging.Warn("Routes without concentrations", "routes", report.RoutesWithoutConcentrations)
	}

	if len(report.DrugsWithoutGuardrails) > 0 {
		logging.Info("Drugs using the default weight window", "ids", report.DrugsWithoutGuardrails)
	}

	if len(report.ToxidromesWithoutKeyFindings) > 0 {
		logging.Warn("Toxidromes without key findings can never be suggested", "ids", report.ToxidromesWithoutKeyFindings)
	}

	if len(report.ContradictoryFindings) > 0 {
		logging.Warn("Findings listed as both key and negative", "findings", report.ContradictoryFindings)
	}

	if len(report.UnknownRuleTargets) > 0 {
		logging.Warn("Vital rules target unknown toxidromes", "ids", report.UnknownRuleTargets)
	}

	if len(report.DuplicateRedFlags) > 0 {
		logging.Warn("Duplicate red flags", "flags", report.DuplicateRedFlags)
	}
}

// startHealthMonitoring warns when periodic reloads stop landing
func (s *Scheduler) startHealthMonitoring() {
	interval := s.opts.ReloadInterval

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				lastUpdate := s.dataStore.GetLastUpdated()
				if time.Since(lastUpdate) > 2*interval {
					logging.Warn("Reference data has not been reloaded for over two intervals",
						"last_update", lastUpdate.Format(time.RFC3339),
						"interval", interval.String(),
					)
				}
			}
		}
	}()
}
