package reference

import (
	"fmt"
	"time"

	"github.com/tlgayhan/pedi-mvp/dosing"
	"github.com/tlgayhan/pedi-mvp/reference/entities"
	"github.com/tlgayhan/pedi-mvp/toxicology"
)

// Snapshot is one consistent, immutable view of the reference data. Handlers
// read a snapshot once per request and never see a half-applied reload.
type Snapshot struct {
	Formulary *dosing.Formulary
	ToxEngine *toxicology.Engine
	Drugs     entities.DrugsDb
	ToxDb     entities.ToxDb
	Source    string
	LoadedAt  time.Time
}

// NewSnapshot indexes ds for the calculators
func NewSnapshot(ds *Datasets) (*Snapshot, error) {
	if ds == nil {
		return nil, fmt.Errorf("no datasets to index")
	}

	engine, err := toxicology.NewEngine(ds.Tox)
	if err != nil {
		return nil, fmt.Errorf("indexing toxidrome database: %w", err)
	}

	return &Snapshot{
		Formulary: dosing.NewFormulary(ds.Drugs),
		ToxEngine: engine,
		Drugs:     ds.Drugs,
		ToxDb:     ds.Tox,
		Source:    ds.Source(),
		LoadedAt:  time.Now(),
	}, nil
}

// Toxidrome returns the toxidrome with the given id
func (s *Snapshot) Toxidrome(id string) (entities.Toxidrome, bool) {
	for _, t := range s.ToxDb.Toxidromes {
		if t.ID == id {
			return t, true
		}
	}
	return entities.Toxidrome{}, false
}
