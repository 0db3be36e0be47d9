// Package health reports whether reference data is being served and how
// fresh it is, together with the build information of the running binary.
package health

import (
	"math"
	"net/http"
	"time"

	"github.com/tlgayhan/pedi-mvp/interfaces"
)

// Compile-time check to ensure HealthCheckerImpl implements HealthChecker
var _ interfaces.HealthChecker = (*HealthCheckerImpl)(nil)

// BuildInfo identifies the running binary
type BuildInfo struct {
	Version string
	GitSHA  string
	BuiltAt string
}

// ReloadSchedule reports the next periodic reload
type ReloadSchedule interface {
	NextReload() time.Time
}

// HealthCheckerImpl implements the interfaces.HealthChecker interface
type HealthCheckerImpl struct {
	dataStore      interfaces.DataStore
	schedule       ReloadSchedule
	reloadInterval time.Duration
	build          BuildInfo
}

// NewHealthChecker creates a new health checker with injected dependencies.
// schedule may be nil when reloads are disabled.
func NewHealthChecker(dataStore interfaces.DataStore, schedule ReloadSchedule, reloadInterval time.Duration, build BuildInfo) *HealthCheckerImpl {
	return &HealthCheckerImpl{
		dataStore:      dataStore,
		schedule:       schedule,
		reloadInterval: reloadInterval,
		build:          build,
	}
}

// HealthCheck returns the status, its details and the HTTP code to answer with.
// Stale data is still served, so degraded answers 200.
func (h *HealthCheckerImpl) HealthCheck() (status string, data map[string]any, httpStatus int) {
	snapshot := h.dataStore.GetSnapshot()
	lastUpdate := h.dataStore.GetLastUpdated()
	isUpdating := h.dataStore.IsUpdating()

	data = map[string]any{
		"version":     h.build.Version,
		"is_updating": isUpdating,
	}
	if h.build.GitSHA != "" {
		data["git_sha"] = h.build.GitSHA
	}
	if h.build.BuiltAt != "" {
		data["built_at"] = h.build.BuiltAt
	}
	if start := h.dataStore.GetServerStartTime(); !start.IsZero() {
		data["uptime_seconds"] = math.Round(time.Since(start).Seconds())
	}

	if snapshot == nil {
		return "unhealthy", data, http.StatusServiceUnavailable
	}

	dataAge := time.Since(lastUpdate)
	report := h.dataStore.GetDataQualityReport()

	data["last_update"] = lastUpdate.Format(time.RFC3339)
	data["data_age_hours"] = math.Round(dataAge.Hours()*10) / 10
	data["source"] = snapshot.Source
	data["drugs"] = snapshot.Formulary.Len()
	data["toxidromes"] = snapshot.ToxEngine.Len()
	data["red_flags"] = len(snapshot.ToxDb.RedFlags)
	data["quality_issues"] = report.Issues()
	if next := h.NextReload(); !next.IsZero() {
		data["next_reload"] = next.Format(time.RFC3339)
	}

	switch {
	case snapshot.Formulary.Len() == 0:
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable

	case h.reloadInterval > 0 && dataAge > 2*h.reloadInterval:
		status = "degraded"
		httpStatus = http.StatusOK

	default:
		status = "healthy"
		httpStatus = http.StatusOK
	}

	return status, data, httpStatus
}

// NextReload returns the next scheduled reload, zero when reloads are off
func (h *HealthCheckerImpl) NextReload() time.Time {
	if h.schedule == nil || h.reloadInterval <= 0 {
		return time.Time{}
	}
	return h.schedule.NextReload()
}
