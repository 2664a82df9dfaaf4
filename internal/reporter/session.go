package reporter

import "cukerail/internal/testrail"

// Session is the remote context a Reporter works in. It is resolved once
// by New and shared by every operation.
type Session struct {
	ProjectID     int
	SuiteID       int
	MilestoneID   int
	MilestoneName string
	PlanID        int
	PlanName      string
	Plan          *testrail.Plan

	Sections       *SectionCache
	AutomatedCases *CaseCache
	ManualCases    *CaseCache
	Configs        *ConfigCache
}

// Entry returns the cached plan entry named build, or nil.
func (s *Session) Entry(build string) *testrail.PlanEntry {
	if s.Plan == nil {
		return nil
	}
	for i := range s.Plan.Entries {
		if s.Plan.Entries[i].Name == build {
			return &s.Plan.Entries[i]
		}
	}
	return nil
}

func (s *Session) addEntry(e testrail.PlanEntry) {
	s.Plan.Entries = append(s.Plan.Entries, e)
}

// removeEntry drops the cached entry with the given ID and returns its run
// IDs.
func (s *Session) removeEntry(entryID string) []int {
	if s.Plan == nil {
		return nil
	}
	for i, e := range s.Plan.Entries {
		if e.ID != entryID {
			continue
		}
		runIDs := make([]int, 0, len(e.Runs))
		for _, r := range e.Runs {
			runIDs = append(runIDs, r.ID)
		}
		s.Plan.Entries = append(s.Plan.Entries[:i], s.Plan.Entries[i+1:]...)
		return runIDs
	}
	return nil
}
