// Package pipeline holds the stage catalog and the enumerations shared by
// opportunity records: pipelines, statuses, priorities, deal types and sources.
package pipeline

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Stage is a key into the stage catalog.
type Stage string

const (
	StageProspecting      Stage = "prospecting"
	StageQualification    Stage = "qualification"
	StageNeedsAnalysis    Stage = "needs_analysis"
	StageValueProposition Stage = "value_proposition"
	StageProposal         Stage = "proposal"
	StageNegotiation      Stage = "negotiation"
	StageClosedWon        Stage = "closed_won"
	StageClosedLost       Stage = "closed_lost"
)

const (
	// UnknownStageOrder sorts stages missing from the catalog after every known stage.
	UnknownStageOrder = 999
	// UnknownStageProbability is the starting probability for stages missing from the catalog.
	UnknownStageProbability = 25
)

// IsTerminal reports whether the stage closes the deal.
func (s Stage) IsTerminal() bool {
	return s == StageClosedWon || s == StageClosedLost
}

// Label renders the stage key for display, e.g. "needs_analysis" -> "Needs Analysis".
func (s Stage) Label() string {
	return cases.Title(language.English).String(strings.ReplaceAll(string(s), "_", " "))
}

// StageDefinition is one catalog entry.
type StageDefinition struct {
	Name               Stage `json:"name"`
	Order              int   `json:"order"`
	DefaultProbability int   `json:"default_probability"`
}

// Catalog is an ordered, immutable stage table.
type Catalog struct {
	stages []StageDefinition
	index  map[Stage]StageDefinition
}

// NewCatalog builds a catalog; stages are kept in the given order.
func NewCatalog(stages ...StageDefinition) *Catalog {
	c := &Catalog{
		stages: append([]StageDefinition(nil), stages...),
		index:  make(map[Stage]StageDefinition, len(stages)),
	}
	for _, s := range stages {
		c.index[s.Name] = s
	}
	return c
}

var defaultCatalog = NewCatalog(
	StageDefinition{Name: StageProspecting, Order: 1, DefaultProbability: 10},
	StageDefinition{Name: StageQualification, Order: 2, DefaultProbability: 25},
	StageDefinition{Name: StageNeedsAnalysis, Order: 3, DefaultProbability: 40},
	StageDefinition{Name: StageValueProposition, Order: 4, DefaultProbability: 50},
	StageDefinition{Name: StageProposal, Order: 5, DefaultProbability: 75},
	StageDefinition{Name: StageNegotiation, Order: 6, DefaultProbability: 85},
	StageDefinition{Name: StageClosedWon, Order: 7, DefaultProbability: 100},
	StageDefinition{Name: StageClosedLost, Order: 8, DefaultProbability: 0},
)

// DefaultCatalog returns the standard sales stage catalog.
func DefaultCatalog() *Catalog {
	return defaultCatalog
}

// CatalogFor returns the catalog of a pipeline. Every pipeline currently
// shares the default catalog.
func CatalogFor(p Pipeline) *Catalog {
	return defaultCatalog
}

// Stages returns the catalog entries in order.
func (c *Catalog) Stages() []StageDefinition {
	return append([]StageDefinition(nil), c.stages...)
}

// Has reports whether the stage is in the catalog.
func (c *Catalog) Has(stage Stage) bool {
	_, ok := c.index[stage]
	return ok
}

// OrderOf returns the sort order of a stage, or UnknownStageOrder.
func (c *Catalog) OrderOf(stage Stage) int {
	if def, ok := c.index[stage]; ok {
		return def.Order
	}
	return UnknownStageOrder
}

// DefaultProbability returns the starting win probability of a stage,
// or UnknownStageProbability.
func (c *Catalog) DefaultProbability(stage Stage) int {
	if def, ok := c.index[stage]; ok {
		return def.DefaultProbability
	}
	return UnknownStageProbability
}
