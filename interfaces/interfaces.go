// Package interfaces defines the contracts between the reference data layer,
// the reload scheduler and the HTTP layer, so each can be tested with mocks.
package interfaces

import (
	"context"
	"net/http"
	"time"

	"github.com/tlgayhan/pedi-mvp/reference"
	"github.com/tlgayhan/pedi-mvp/reference/entities"
	"github.com/tlgayhan/pedi-mvp/validation"
)

// DataStore defines the contract for the reference data store.
// It hands out whole snapshots and swaps them atomically on reload.
type DataStore interface {
	// Data retrieval methods
	GetSnapshot() *reference.Snapshot
	GetDataQualityReport() *validation.DataQualityReport
	GetLastUpdated() time.Time
	IsUpdating() bool
	GetServerStartTime() time.Time

	// Data update methods
	UpdateData(snapshot *reference.Snapshot, report *validation.DataQualityReport)
	BeginUpdate() bool
	EndUpdate()
}

// Loader reads the raw reference datasets from their source
type Loader interface {
	Load(ctx context.Context) (*reference.Datasets, error)
}

// Scheduler defines the contract for reloading reference data in the background
type Scheduler interface {
	// Lifecycle management
	Start() error
	Stop()
}

// HTTPHandler defines the contract for the HTTP endpoints
type HTTPHandler interface {
	// Calculators
	MaintenanceFluids(w http.ResponseWriter, r *http.Request)
	DeficitFluids(w http.ResponseWriter, r *http.Request)
	ComputeDose(w http.ResponseWriter, r *http.Request)
	ScorePEWS(w http.ResponseWriter, r *http.Request)
	SuggestToxidromes(w http.ResponseWriter, r *http.Request)
	LabGaps(w http.ResponseWriter, r *http.Request)

	// Reference data
	ListDrugs(w http.ResponseWriter, r *http.Request)
	GetDrug(w http.ResponseWriter, r *http.Request)
	ListToxidromes(w http.ResponseWriter, r *http.Request)

	SelfTest(w http.ResponseWriter, r *http.Request)
	HealthCheck(w http.ResponseWriter, r *http.Request)
}

// HealthChecker defines the contract for health check functionality
type HealthChecker interface {
	// HealthCheck returns the status, its details and the HTTP code to answer with
	HealthCheck() (status string, details map[string]any, httpStatus int)

	// NextReload returns the next periodic reload, zero when reloads are off
	NextReload() time.Time
}

// DataValidator defines the contract for reference data and request input validation
type DataValidator interface {
	// ValidateDrug checks that one formulary entry can be dosed
	ValidateDrug(d *entities.Drug) error

	// ValidateFormulary validates every drug of the formulary
	ValidateFormulary(db entities.DrugsDb) error

	// ValidateToxDb checks the toxidrome database structure
	ValidateToxDb(db entities.ToxDb) error

	// ReportDataQuality collects non-fatal dataset problems
	ReportDataQuality(drugs entities.DrugsDb, tox entities.ToxDb) *validation.DataQualityReport

	// ValidateFinding validates one free-text clinical finding
	ValidateFinding(input string) error

	// ValidateFindings validates a findings list
	ValidateFindings(findings []string) error

	// ValidateID validates an id taken from a URL path
	ValidateID(input string) (string, error)
}
