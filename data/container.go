// Package data provides the thread-safe reference data store. The whole
// snapshot is swapped atomically, so a reload is never observed half-applied.
package data

import (
	"sync/atomic"
	"time"

	"github.com/tlgayhan/pedi-mvp/interfaces"
	"github.com/tlgayhan/pedi-mvp/logging"
	"github.com/tlgayhan/pedi-mvp/reference"
	"github.com/tlgayhan/pedi-mvp/validation"
)

// Compile-time check to ensure DataContainer implements DataStore
var _ interfaces.DataStore = (*DataContainer)(nil)

// DataContainer holds the current reference snapshot behind atomic pointers
type DataContainer struct {
	snapshot        atomic.Pointer[reference.Snapshot]
	report          atomic.Pointer[validation.DataQualityReport]
	lastUpdated     atomic.Value // time.Time
	updating        atomic.Bool
	serverStartTime atomic.Value // time.Time
}

// NewDataContainer creates an empty DataContainer; GetSnapshot returns nil
// until the first UpdateData
func NewDataContainer() *DataContainer {
	dc := &DataContainer{}
	dc.lastUpdated.Store(time.Time{})
	dc.serverStartTime.Store(time.Time{})
	return dc
}

// GetSnapshot returns the current snapshot, nil before the first load
func (dc *DataContainer) GetSnapshot() *reference.Snapshot {
	return dc.snapshot.Load()
}

// GetDataQualityReport returns the report of the current snapshot
func (dc *DataContainer) GetDataQualityReport() *validation.DataQualityReport {
	if r := dc.report.Load(); r != nil {
		return r
	}
	return &validation.DataQualityReport{}
}

// GetLastUpdated returns the timestamp of the last data update
func (dc *DataContainer) GetLastUpdated() time.Time {
	if v := dc.lastUpdated.Load(); v != nil {
		if lastUpdated, ok := v.(time.Time); ok {
			return lastUpdated
		}
	}

	logging.Warn("Could not get the last updated value")
	return time.Time{}
}

// IsUpdating returns true if a data update is currently in progress
func (dc *DataContainer) IsUpdating() bool {
	return dc.updating.Load()
}

// SetServerStartTime sets the server start time
func (dc *DataContainer) SetServerStartTime(startTime time.Time) {
	dc.serverStartTime.Store(startTime)
}

// GetServerStartTime returns the server start time
func (dc *DataContainer) GetServerStartTime() time.Time {
	if v := dc.serverStartTime.Load(); v != nil {
		if startTime, ok := v.(time.Time); ok {
			return startTime
		}
	}

	logging.Warn("Could not get the server start time value")
	return time.Time{}
}

// UpdateData publishes a new snapshot. A nil snapshot is ignored so the
// previous data keeps being served.
func (dc *DataContainer) UpdateData(snapshot *reference.Snapshot, report *validation.DataQualityReport) {
	if snapshot == nil {
		logging.Warn("Ignoring nil reference snapshot")
		return
	}

	dc.report.Store(report)
	dc.snapshot.Store(snapshot)
	dc.lastUpdated.Store(time.Now())
}

// BeginUpdate marks the start of a data update operation
// Returns true if update can proceed, false if another update is in progress
func (dc *DataContainer) BeginUpdate() bool {
	return dc.updating.CompareAndSwap(false, true)
}

// EndUpdate marks the end of a data update operation
func (dc *DataContainer) EndUpdate() {
	dc.updating.Store(false)
}
