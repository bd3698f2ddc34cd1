// file: internal/macro/context.go

package macro

import (
	"time"

	"github.com/google/uuid"

	"macro-resolver/internal/logger"
)

// ResolutionContext carries the per-call settings through every resolver.
// It is a value: nested resolution derives a child instead of mutating it.
type ResolutionContext struct {
	batchID  string
	scenario Scenario
	parent   Scenario
	now      time.Time
	marker   string
	log      *logger.Logger
}

func newResolutionContext(scenario Scenario, now time.Time, marker string, log *logger.Logger) ResolutionContext {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	batchID := id.String()
	return ResolutionContext{
		batchID:  batchID,
		scenario: scenario,
		now:      now,
		marker:   marker,
		log:      log.With("batchID", batchID, "scenario", scenario.String()),
	}
}

// Child returns a context for a nested resolution pass within the same batch
func (rc ResolutionContext) Child(scenario Scenario) ResolutionContext {
	child := rc
	child.parent = rc.scenario
	child.scenario = scenario
	child.log = rc.log.With("nested", scenario.String())
	return child
}

func (rc ResolutionContext) BatchID() string        { return rc.batchID }
func (rc ResolutionContext) Scenario() Scenario     { return rc.scenario }
func (rc ResolutionContext) Now() time.Time         { return rc.now }
func (rc ResolutionContext) Marker() string         { return rc.marker }
func (rc ResolutionContext) Logger() *logger.Logger { return rc.log }

// Nested reports whether this context was derived with Child
func (rc ResolutionContext) Nested() bool {
	return rc.parent != 0
}
