package cucumber

import (
	"errors"
	"sort"
)

// StatusPassed is the step status cucumber reports for a successful step.
const StatusPassed = "passed"

var (
	// ErrParse is returned when a report is not well-formed cucumber JSON.
	ErrParse = errors.New("parse report")
	// ErrIO is returned when a report cannot be read.
	ErrIO = errors.New("read report")
	// ErrUnknownScenario is returned by Merge when the overlay names a
	// scenario the base result set does not contain.
	ErrUnknownScenario = errors.New("scenario not present in base results")
)

// TestInfo is the normalized outcome of one scenario.
type TestInfo struct {
	Feature string   `json:"feature_name"`
	Steps   []string `json:"steps"`
	Status  string   `json:"status"`
}

// Results maps a scenario name to its outcome. Scenario outline executions
// carry a " #N" suffix.
type Results map[string]*TestInfo

// Names returns the scenario names in sorted order.
func (r Results) Names() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Counts returns the number of scenarios per status.
func (r Results) Counts() map[string]int {
	counts := make(map[string]int)
	for _, info := range r {
		counts[info.Status]++
	}
	return counts
}

// --- cucumber JSON report shape ---

type feature struct {
	Name     string    `json:"name"`
	Elements []element `json:"elements"`
}

type element struct {
	Type  string `json:"type"`
	Name  string `json:"name"`
	Steps []step `json:"steps"`
}

type step struct {
	Keyword string      `json:"keyword"`
	Name    string      `json:"name"`
	Result  *stepResult `json:"result"`
}

type stepResult struct {
	Status string `json:"status"`
}

const (
	elementBackground      = "background"
	elementScenarioOutline = "scenario_outline"
)
