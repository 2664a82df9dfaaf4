package fake

import (
	"encoding/json"
	"fmt"

	"cukerail/internal/testrail"
)

// Names used by the seeded fixture.
const (
	FixtureProject   = "Mobile"
	FixtureMilestone = "1.0"
	FixtureSection   = "Authentication"
)

// Fixture is a server seeded with a small mobile project:
//
//   - configurations "iOS 7", "Android 4" (Devices) and "Phone", "Tablet" (Form)
//   - one active milestone "1.0" and one completed milestone "0.9"
//   - automated case "Valid login" in section "Authentication"
//   - manual cases with and without configuration restrictions
type Fixture struct {
	*Server
	ProjectID   int
	SuiteID     int
	MilestoneID int
	SectionID   int
	// Configs maps configuration names to IDs.
	Configs map[string]int
	// Cases maps case titles to IDs.
	Cases map[string]int
}

// NewFixture starts a seeded server. Call Close when done.
func NewFixture() *Fixture {
	s := New()
	f := &Fixture{Server: s, Configs: make(map[string]int), Cases: make(map[string]int)}

	f.ProjectID = s.AddProject(FixtureProject)
	s.AddProject("Web")
	f.SuiteID = s.AddSuite(f.ProjectID, "Master")
	f.SectionID = s.AddSection(f.SuiteID, FixtureSection)

	devices := s.AddConfigGroup(f.ProjectID, "Devices", "iOS 7", "Android 4")
	form := s.AddConfigGroup(f.ProjectID, "Form", "Phone", "Tablet")
	f.Configs["iOS 7"], f.Configs["Android 4"] = devices[0], devices[1]
	f.Configs["Phone"], f.Configs["Tablet"] = form[0], form[1]

	f.MilestoneID = s.AddMilestone(f.ProjectID, FixtureMilestone, false)
	s.AddMilestone(f.ProjectID, "0.9", true)

	f.addCase("Valid login", 1, 2, nil)
	f.addCase("Manual unrestricted", 7, 4, nil)
	f.addCase("Manual empty restriction", 7, 5, []int{})
	f.addCase("Manual iOS", 7, 4, []int{f.Configs["iOS 7"]})
	f.addCase("Manual Android", 7, 4, []int{f.Configs["Android 4"]})
	f.addCase("Manual iOS tablet", 7, 4, []int{f.Configs["Tablet"], f.Configs["iOS 7"]})
	f.addCase("Manual low priority", 7, 2, nil)
	return f
}

func (f *Fixture) addCase(title string, typeID, priority int, configIDs []int) {
	c := testrail.Case{Title: title, SectionID: f.SectionID, TypeID: typeID, PriorityID: priority}
	if configIDs != nil {
		raw, _ := json.Marshal(configIDs)
		c.Custom = map[string]json.RawMessage{"custom_configurations": raw}
	}
	f.Cases[title] = f.Server.AddCase(c)
}

// Client returns a TestRail client wired to the server.
func (f *Fixture) Client() *testrail.Client {
	c, err := testrail.New(f.URL(), f.User, f.Password, testrail.WithHTTPClient(f.HTTPClient()))
	if err != nil {
		panic(fmt.Sprintf("fake: client: %v", err))
	}
	return c
}

// ConfigIDs returns the IDs of the named configurations in argument order.
func (f *Fixture) ConfigIDs(names ...string) []int {
	ids := make([]int, len(names))
	for i, n := range names {
		ids[i] = f.Configs[n]
	}
	return ids
}
