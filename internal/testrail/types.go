package testrail

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// --- TestRail response types (hand-written, aligned with API v2) ---

// Project is a TestRail project.
type Project struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	IsCompleted bool   `json:"is_completed"`
	SuiteMode   int    `json:"suite_mode,omitempty"`
}

// Suite is a test suite of a project.
type Suite struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	ProjectID int    `json:"project_id"`
}

// Section is a folder of cases within a suite.
type Section struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	SuiteID  int    `json:"suite_id,omitempty"`
	ParentID *int   `json:"parent_id,omitempty"`
	Depth    int    `json:"depth,omitempty"`
}

// Case is a test case. Custom fields (custom_*) are kept verbatim in Custom
// since their names and shapes are defined per TestRail instance.
type Case struct {
	ID         int    `json:"id"`
	Title      string `json:"title"`
	SectionID  int    `json:"section_id,omitempty"`
	SuiteID    int    `json:"suite_id,omitempty"`
	TypeID     int    `json:"type_id,omitempty"`
	PriorityID int    `json:"priority_id,omitempty"`

	Custom map[string]json.RawMessage `json:"-"`
}

type caseFields Case

// UnmarshalJSON decodes the standard fields and collects every custom_* field.
func (c *Case) UnmarshalJSON(data []byte) error {
	var fields caseFields
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	*c = Case(fields)
	for k, v := range all {
		if strings.HasPrefix(k, "custom_") {
			if c.Custom == nil {
				c.Custom = make(map[string]json.RawMessage)
			}
			c.Custom[k] = v
		}
	}
	return nil
}

// MarshalJSON encodes the standard fields followed by the custom fields.
func (c Case) MarshalJSON() ([]byte, error) {
	base, err := json.Marshal(caseFields(c))
	if err != nil {
		return nil, err
	}
	if len(c.Custom) == 0 {
		return base, nil
	}
	var all map[string]json.RawMessage
	if err := json.Unmarshal(base, &all); err != nil {
		return nil, err
	}
	for k, v := range c.Custom {
		all[k] = v
	}
	return json.Marshal(all)
}

// ConfigIDs returns the sorted configuration restriction stored in the custom
// field named field. restricted is false when the field is absent or null.
func (c *Case) ConfigIDs(field string) (ids []int, restricted bool, err error) {
	raw, ok := c.Custom[field]
	if !ok || string(raw) == "null" {
		return nil, false, nil
	}
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil, false, fmt.Errorf("case %d: field %s: %w", c.ID, field, err)
	}
	sort.Ints(ids)
	return ids, true, nil
}

// ConfigGroup is a named group of configurations (e.g. "Devices").
type ConfigGroup struct {
	ID        int      `json:"id"`
	Name      string   `json:"name"`
	ProjectID int      `json:"project_id"`
	Configs   []Config `json:"configs"`
}

// Config is one configuration value (e.g. "iOS 7").
type Config struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	GroupID int    `json:"group_id"`
}

// Milestone is a TestRail milestone.
type Milestone struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	ProjectID   int    `json:"project_id"`
	IsCompleted bool   `json:"is_completed"`
}

// Plan is a test plan. Entries is only populated by get_plan.
type Plan struct {
	ID          int         `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	MilestoneID int         `json:"milestone_id,omitempty"`
	ProjectID   int         `json:"project_id,omitempty"`
	IsCompleted bool        `json:"is_completed"`
	Entries     []PlanEntry `json:"entries,omitempty"`
}

// PlanEntry groups the runs of one build inside a plan. Entry IDs are
// opaque strings.
type PlanEntry struct {
	ID         string `json:"id"`
	SuiteID    int    `json:"suite_id"`
	Name       string `json:"name"`
	IncludeAll bool   `json:"include_all"`
	ConfigIDs  []int  `json:"config_ids,omitempty"`
	Runs       []Run  `json:"runs"`
}

// Run is a test run, typically one configuration combination of a plan entry.
type Run struct {
	ID         int    `json:"id"`
	SuiteID    int    `json:"suite_id,omitempty"`
	Name       string `json:"name"`
	Config     string `json:"config,omitempty"`
	ConfigIDs  []int  `json:"config_ids"`
	IncludeAll bool   `json:"include_all"`
	EntryID    string `json:"entry_id,omitempty"`
	PlanID     int    `json:"plan_id,omitempty"`
}

// Test is a run's slot for one case; results are posted against tests.
type Test struct {
	ID       int    `json:"id"`
	CaseID   int    `json:"case_id"`
	RunID    int    `json:"run_id"`
	StatusID int    `json:"status_id"`
	Title    string `json:"title,omitempty"`
}

// Result is one recorded outcome of a test.
type Result struct {
	ID        int    `json:"id"`
	TestID    int    `json:"test_id"`
	StatusID  int    `json:"status_id"`
	CreatedOn int64  `json:"created_on,omitempty"`
	Comment   string `json:"comment,omitempty"`
}

// ResultStatus describes one entry of the instance's status vocabulary.
type ResultStatus struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	Label      string `json:"label"`
	IsSystem   bool   `json:"is_system"`
	IsUntested bool   `json:"is_untested"`
	IsFinal    bool   `json:"is_final"`
}

// --- Request payloads ---

// NewPlan is the payload of add_plan.
type NewPlan struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	MilestoneID int    `json:"milestone_id,omitempty"`
}

// NewRun describes one run inside a NewPlanEntry.
type NewRun struct {
	IncludeAll bool  `json:"include_all"`
	ConfigIDs  []int `json:"config_ids"`
	CaseIDs    []int `json:"case_ids"`
}

// NewPlanEntry is the payload of add_plan_entry.
type NewPlanEntry struct {
	SuiteID    int      `json:"suite_id"`
	Name       string   `json:"name"`
	IncludeAll bool     `json:"include_all"`
	ConfigIDs  []int    `json:"config_ids"`
	Runs       []NewRun `json:"runs"`
}

// NewSection is the payload of add_section.
type NewSection struct {
	Name     string `json:"name"`
	SuiteID  int    `json:"suite_id,omitempty"`
	ParentID int    `json:"parent_id,omitempty"`
}

// NewCase is the payload of add_case. CustomSteps maps to the built-in
// "Steps" text field.
type NewCase struct {
	Title       string `json:"title"`
	TypeID      int    `json:"type_id,omitempty"`
	PriorityID  int    `json:"priority_id,omitempty"`
	CustomSteps string `json:"custom_steps,omitempty"`
}

// NewResult is one element of the add_results payload.
type NewResult struct {
	TestID   int    `json:"test_id"`
	StatusID int    `json:"status_id"`
	Comment  string `json:"comment,omitempty"`
}

// ErrorResponse is the standard TestRail error body.
type ErrorResponse struct {
	Error string `json:"error"`
}

type pageLinks struct {
	Next *string `json:"next"`
	Prev *string `json:"prev"`
}
