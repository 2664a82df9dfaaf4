// Package fake provides an in-memory TestRail server for tests. It speaks the
// subset of API v2 the testrail package uses and records every call.
package fake

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"

	"cukerail/internal/testrail"
)

// StatusUntested is the status a freshly created test starts with.
const StatusUntested = 3

// Call is one request received by the server.
type Call struct {
	Method   string
	Endpoint string // e.g. "add_plan_entry/12"
	Body     []byte
}

// Server is an in-memory TestRail instance backed by httptest.
type Server struct {
	// PageSize switches list endpoints to paginated envelopes when > 0.
	PageSize int
	// User and Password, when set, are enforced as basic auth credentials.
	User     string
	Password string

	mu         sync.Mutex
	srv        *httptest.Server
	nextID     int
	nextEntry  int
	projects   []testrail.Project
	suites     []testrail.Suite
	sections   []testrail.Section
	cases      []testrail.Case
	configs    map[int][]testrail.ConfigGroup
	milestones []testrail.Milestone
	plans      []*testrail.Plan
	tests      map[int][]testrail.Test
	results    map[int][]testrail.Result
	statuses   []testrail.ResultStatus
	failures   map[string]failure
	calls      []Call
}

type failure struct {
	status  int
	message string
}

// New starts a server. Call Close when done.
func New() *Server {
	s := &Server{
		nextID:   100,
		configs:  make(map[int][]testrail.ConfigGroup),
		tests:    make(map[int][]testrail.Test),
		results:  make(map[int][]testrail.Result),
		failures: make(map[string]failure),
		statuses: []testrail.ResultStatus{
			{ID: 1, Name: "passed", Label: "Passed", IsSystem: true, IsFinal: true},
			{ID: 2, Name: "blocked", Label: "Blocked", IsSystem: true, IsFinal: true},
			{ID: 3, Name: "untested", Label: "Untested", IsSystem: true, IsUntested: true},
			{ID: 4, Name: "retest", Label: "Retest", IsSystem: true},
			{ID: 5, Name: "failed", Label: "Failed", IsSystem: true, IsFinal: true},
			{ID: 6, Name: "skipped", Label: "Skipped"},
		},
	}
	s.srv = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// URL returns the base URL to hand to testrail.New.
func (s *Server) URL() string { return s.srv.URL }

// HTTPClient returns a client wired to the server.
func (s *Server) HTTPClient() *http.Client { return s.srv.Client() }

// Close shuts the server down.
func (s *Server) Close() { s.srv.Close() }

func (s *Server) id() int {
	s.nextID++
	return s.nextID
}

// --- seeding ---

// AddProject creates a project and returns its ID.
func (s *Server) AddProject(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := testrail.Project{ID: s.id(), Name: name, SuiteMode: 1}
	s.projects = append(s.projects, p)
	return p.ID
}

// AddSuite creates a suite and returns its ID.
func (s *Server) AddSuite(projectID int, name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := testrail.Suite{ID: s.id(), Name: name, ProjectID: projectID}
	s.suites = append(s.suites, st)
	return st.ID
}

// AddSection creates a section and returns its ID.
func (s *Server) AddSection(suiteID int, name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	sec := testrail.Section{ID: s.id(), Name: name, SuiteID: suiteID}
	s.sections = append(s.sections, sec)
	return sec.ID
}

// AddCase stores a case and returns its ID. SectionID must name a seeded
// section; SuiteID is derived from it.
func (s *Server) AddCase(c testrail.Case) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = s.id()
	if sec := s.section(c.SectionID); sec != nil {
		c.SuiteID = sec.SuiteID
	}
	s.cases = append(s.cases, c)
	return c.ID
}

// AddConfigGroup creates a configuration group and returns the IDs of the
// created configurations in argument order.
func (s *Server) AddConfigGroup(projectID int, group string, names ...string) []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	g := testrail.ConfigGroup{ID: s.id(), Name: group, ProjectID: projectID}
	ids := make([]int, 0, len(names))
	for _, n := range names {
		cfg := testrail.Config{ID: s.id(), Name: n, GroupID: g.ID}
		g.Configs = append(g.Configs, cfg)
		ids = append(ids, cfg.ID)
	}
	s.configs[projectID] = append(s.configs[projectID], g)
	return ids
}

// AddMilestone creates a milestone and returns its ID.
func (s *Server) AddMilestone(projectID int, name string, completed bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := testrail.Milestone{ID: s.id(), Name: name, ProjectID: projectID, IsCompleted: completed}
	s.milestones = append(s.milestones, m)
	return m.ID
}

// AddPlan creates an empty plan and returns its ID.
func (s *Server) AddPlan(projectID, milestoneID int, name string, completed bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := &testrail.Plan{ID: s.id(), Name: name, ProjectID: projectID, MilestoneID: milestoneID, IsCompleted: completed}
	s.plans = append(s.plans, p)
	return p.ID
}

// FailOn makes every request whose endpoint starts with prefix answer with
// the given status and TestRail error message.
func (s *Server) FailOn(prefix string, status int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[prefix] = failure{status: status, message: message}
}

// --- inspection ---

// Calls returns the recorded calls whose endpoint starts with prefix.
func (s *Server) Calls(prefix string) []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Call
	for _, c := range s.calls {
		if strings.HasPrefix(c.Endpoint, prefix) {
			out = append(out, c)
		}
	}
	return out
}

// Plan returns a copy of the plan with the given ID.
func (s *Server) Plan(id int) *testrail.Plan {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p := s.plan(id); p != nil {
		cp := *p
		cp.Entries = append([]testrail.PlanEntry(nil), p.Entries...)
		return &cp
	}
	return nil
}

// PlanByName returns a copy of the first plan with the given name.
func (s *Server) PlanByName(name string) *testrail.Plan {
	s.mu.Lock()
	var id int
	for _, p := range s.plans {
		if p.Name == name {
			id = p.ID
			break
		}
	}
	s.mu.Unlock()
	if id == 0 {
		return nil
	}
	return s.Plan(id)
}

// CaseByTitle returns the first case with the given title.
func (s *Server) CaseByTitle(title string) *testrail.Case {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.cases {
		if s.cases[i].Title == title {
			c := s.cases[i]
			return &c
		}
	}
	return nil
}

// SectionByName returns the first section with the given name.
func (s *Server) SectionByName(name string) *testrail.Section {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.sections {
		if s.sections[i].Name == name {
			sec := s.sections[i]
			return &sec
		}
	}
	return nil
}

// Tests returns the tests of a run.
func (s *Server) Tests(runID int) []testrail.Test {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]testrail.Test(nil), s.tests[runID]...)
}

// Results returns the results of a run, newest first.
func (s *Server) Results(runID int) []testrail.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]testrail.Result(nil), s.results[runID]...)
}

// --- lookups (callers hold mu) ---

func (s *Server) section(id int) *testrail.Section {
	for i := range s.sections {
		if s.sections[i].ID == id {
			return &s.sections[i]
		}
	}
	return nil
}

func (s *Server) suiteProject(suiteID int) int {
	for _, st := range s.suites {
		if st.ID == suiteID {
			return st.ProjectID
		}
	}
	return 0
}

func (s *Server) plan(id int) *testrail.Plan {
	for _, p := range s.plans {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (s *Server) runPlan(runID int) (*testrail.Plan, bool) {
	for _, p := range s.plans {
		for _, e := range p.Entries {
			for _, r := range e.Runs {
				if r.ID == runID {
					return p, true
				}
			}
		}
	}
	return nil, false
}

// --- HTTP handling ---

type request struct {
	method   string
	endpoint string
	parts    []string
	params   map[string]string
	body     []byte
}

func (r request) intPart(i int) (int, bool) {
	if i >= len(r.parts) {
		return 0, false
	}
	n, err := strconv.Atoi(r.parts[i])
	return n, err == nil
}

func (r request) intParam(name string) int {
	n, _ := strconv.Atoi(r.params[name])
	return n
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/index.php" || !strings.HasPrefix(r.URL.RawQuery, "/api/v2/") {
		http.NotFound(w, r)
		return
	}
	if s.User != "" {
		user, pass, ok := r.BasicAuth()
		if !ok || user != s.User || pass != s.Password {
			writeError(w, http.StatusUnauthorized, "Authentication failed: invalid or missing user/password or session cookie.")
			return
		}
	}

	body, _ := io.ReadAll(r.Body)
	req := parseRequest(r.Method, strings.TrimPrefix(r.URL.RawQuery, "/api/v2/"), body)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, Call{Method: req.method, Endpoint: req.endpoint, Body: body})
	for prefix, f := range s.failures {
		if strings.HasPrefix(req.endpoint, prefix) {
			writeError(w, f.status, f.message)
			return
		}
	}

	switch req.parts[0] {
	case "get_projects":
		writeList(w, s.PageSize, req, "projects", s.projects)
	case "get_suites":
		s.getSuites(w, req)
	case "get_sections":
		s.getSections(w, req)
	case "add_section":
		s.addSection(w, req)
	case "get_cases":
		s.getCases(w, req)
	case "add_case":
		s.addCase(w, req)
	case "get_configs":
		project, _ := req.intPart(1)
		writeJSON(w, http.StatusOK, nonNil(s.configs[project]))
	case "get_milestones":
		s.getMilestones(w, req)
	case "get_plans":
		s.getPlans(w, req)
	case "get_plan":
		s.getPlan(w, req)
	case "add_plan":
		s.addPlan(w, req)
	case "add_plan_entry":
		s.addPlanEntry(w, req)
	case "delete_plan_entry":
		s.deletePlanEntry(w, req)
	case "get_tests":
		run, _ := req.intPart(1)
		writeList(w, s.PageSize, req, "tests", s.tests[run])
	case "get_results_for_run":
		run, _ := req.intPart(1)
		writeList(w, s.PageSize, req, "results", s.results[run])
	case "add_results":
		s.addResults(w, req)
	case "get_statuses":
		writeJSON(w, http.StatusOK, s.statuses)
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Unknown method '%s'", req.parts[0]))
	}
}

func parseRequest(method, raw string, body []byte) request {
	segments := strings.Split(raw, "&")
	req := request{
		method:   method,
		endpoint: segments[0],
		parts:    strings.Split(segments[0], "/"),
		params:   make(map[string]string),
		body:     body,
	}
	for _, kv := range segments[1:] {
		k, v, _ := strings.Cut(kv, "=")
		req.params[k] = v
	}
	return req
}

func (s *Server) getSuites(w http.ResponseWriter, req request) {
	project, _ := req.intPart(1)
	out := []testrail.Suite{}
	for _, st := range s.suites {
		if st.ProjectID == project {
			out = append(out, st)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getSections(w http.ResponseWriter, req request) {
	project, _ := req.intPart(1)
	suite := req.intParam("suite_id")
	var out []testrail.Section
	for _, sec := range s.sections {
		if s.suiteProject(sec.SuiteID) != project {
			continue
		}
		if suite > 0 && sec.SuiteID != suite {
			continue
		}
		out = append(out, sec)
	}
	writeList(w, s.PageSize, req, "sections", out)
}

func (s *Server) addSection(w http.ResponseWriter, req request) {
	project, _ := req.intPart(1)
	var in testrail.NewSection
	if err := json.Unmarshal(req.body, &in); err != nil || in.Name == "" {
		writeError(w, http.StatusBadRequest, "Field :name is a required field.")
		return
	}
	suite := in.SuiteID
	if suite == 0 {
		for _, st := range s.suites {
			if st.ProjectID == project {
				suite = st.ID
				break
			}
		}
	}
	sec := testrail.Section{ID: s.id(), Name: in.Name, SuiteID: suite}
	s.sections = append(s.sections, sec)
	writeJSON(w, http.StatusOK, sec)
}

func (s *Server) getCases(w http.ResponseWriter, req request) {
	project, _ := req.intPart(1)
	suite := req.intParam("suite_id")
	typeID := req.intParam("type_id")
	var out []testrail.Case
	for _, c := range s.cases {
		if s.suiteProject(c.SuiteID) != project {
			continue
		}
		if suite > 0 && c.SuiteID != suite {
			continue
		}
		if typeID > 0 && c.TypeID != typeID {
			continue
		}
		out = append(out, c)
	}
	writeList(w, s.PageSize, req, "cases", out)
}

func (s *Server) addCase(w http.ResponseWriter, req request) {
	sectionID, _ := req.intPart(1)
	sec := s.section(sectionID)
	if sec == nil {
		writeError(w, http.StatusBadRequest, "Field :section_id is not a valid section.")
		return
	}
	var in testrail.NewCase
	if err := json.Unmarshal(req.body, &in); err != nil || in.Title == "" {
		writeError(w, http.StatusBadRequest, "Field :title is a required field.")
		return
	}
	c := testrail.Case{
		ID:         s.id(),
		Title:      in.Title,
		SectionID:  sec.ID,
		SuiteID:    sec.SuiteID,
		TypeID:     in.TypeID,
		PriorityID: in.PriorityID,
	}
	if c.PriorityID == 0 {
		c.PriorityID = 2
	}
	if in.CustomSteps != "" {
		raw, _ := json.Marshal(in.CustomSteps)
		c.Custom = map[string]json.RawMessage{"custom_steps": raw}
	}
	s.cases = append(s.cases, c)
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) getMilestones(w http.ResponseWriter, req request) {
	project, _ := req.intPart(1)
	activeOnly := req.params["is_completed"] == "0"
	var out []testrail.Milestone
	for _, m := range s.milestones {
		if m.ProjectID != project || (activeOnly && m.IsCompleted) {
			continue
		}
		out = append(out, m)
	}
	writeList(w, s.PageSize, req, "milestones", out)
}

func (s *Server) getPlans(w http.ResponseWriter, req request) {
	project, _ := req.intPart(1)
	milestone := req.intParam("milestone_id")
	activeOnly := req.params["is_completed"] == "0"
	var out []testrail.Plan
	for _, p := range s.plans {
		if p.ProjectID != project || (activeOnly && p.IsCompleted) {
			continue
		}
		if milestone > 0 && p.MilestoneID != milestone {
			continue
		}
		summary := *p
		summary.Entries = nil
		out = append(out, summary)
	}
	writeList(w, s.PageSize, req, "plans", out)
}

func (s *Server) getPlan(w http.ResponseWriter, req request) {
	id, _ := req.intPart(1)
	p := s.plan(id)
	if p == nil {
		writeError(w, http.StatusBadRequest, "Field :plan_id is not a valid test plan.")
		return
	}
	out := *p
	if out.Entries == nil {
		out.Entries = []testrail.PlanEntry{}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) addPlan(w http.ResponseWriter, req request) {
	project, _ := req.intPart(1)
	var in testrail.NewPlan
	if err := json.Unmarshal(req.body, &in); err != nil || in.Name == "" {
		writeError(w, http.StatusBadRequest, "Field :name is a required field.")
		return
	}
	p := &testrail.Plan{
		ID:          s.id(),
		Name:        in.Name,
		Description: in.Description,
		MilestoneID: in.MilestoneID,
		ProjectID:   project,
	}
	s.plans = append(s.plans, p)
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) addPlanEntry(w http.ResponseWriter, req request) {
	planID, _ := req.intPart(1)
	p := s.plan(planID)
	if p == nil {
		writeError(w, http.StatusBadRequest, "Field :plan_id is not a valid test plan.")
		return
	}
	var in testrail.NewPlanEntry
	if err := json.Unmarshal(req.body, &in); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body.")
		return
	}

	s.nextEntry++
	entry := testrail.PlanEntry{
		ID:         fmt.Sprintf("entry-%04d", s.nextEntry),
		SuiteID:    in.SuiteID,
		Name:       in.Name,
		IncludeAll: in.IncludeAll,
		ConfigIDs:  in.ConfigIDs,
	}
	for _, nr := range in.Runs {
		run := testrail.Run{
			ID:         s.id(),
			SuiteID:    in.SuiteID,
			Name:       in.Name,
			ConfigIDs:  append([]int(nil), nr.ConfigIDs...),
			IncludeAll: nr.IncludeAll,
			EntryID:    entry.ID,
			PlanID:     p.ID,
			Config:     s.configNames(p.ProjectID, nr.ConfigIDs),
		}
		caseIDs := nr.CaseIDs
		if nr.IncludeAll {
			caseIDs = nil
			for _, c := range s.cases {
				if c.SuiteID == in.SuiteID {
					caseIDs = append(caseIDs, c.ID)
				}
			}
		}
		for _, cid := range caseIDs {
			s.tests[run.ID] = append(s.tests[run.ID], testrail.Test{
				ID:       s.id(),
				CaseID:   cid,
				RunID:    run.ID,
				StatusID: StatusUntested,
				Title:    s.caseTitle(cid),
			})
		}
		entry.Runs = append(entry.Runs, run)
	}
	p.Entries = append(p.Entries, entry)
	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) deletePlanEntry(w http.ResponseWriter, req request) {
	planID, _ := req.intPart(1)
	p := s.plan(planID)
	if p == nil || len(req.parts) < 3 {
		writeError(w, http.StatusBadRequest, "Field :plan_id is not a valid test plan.")
		return
	}
	entryID := req.parts[2]
	for i, e := range p.Entries {
		if e.ID != entryID {
			continue
		}
		for _, r := range e.Runs {
			delete(s.tests, r.ID)
			delete(s.results, r.ID)
		}
		p.Entries = append(p.Entries[:i], p.Entries[i+1:]...)
		writeJSON(w, http.StatusOK, struct{}{})
		return
	}
	writeError(w, http.StatusBadRequest, "Field :entry_id is not a valid test plan entry.")
}

func (s *Server) addResults(w http.ResponseWriter, req request) {
	runID, _ := req.intPart(1)
	if _, ok := s.runPlan(runID); !ok {
		writeError(w, http.StatusBadRequest, "Field :run_id is not a valid test run.")
		return
	}
	var in struct {
		Results []testrail.NewResult `json:"results"`
	}
	if err := json.Unmarshal(req.body, &in); err != nil || len(in.Results) == 0 {
		writeError(w, http.StatusBadRequest, "Field :results cannot be empty.")
		return
	}

	tests := s.tests[runID]
	var created []testrail.Result
	for _, nr := range in.Results {
		idx := -1
		for i := range tests {
			if tests[i].ID == nr.TestID {
				idx = i
				break
			}
		}
		if idx < 0 {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("Field :results contains an invalid test (%d).", nr.TestID))
			return
		}
		if nr.StatusID <= 0 {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("Field :status_id uses an invalid status (%d).", nr.StatusID))
			return
		}
		tests[idx].StatusID = nr.StatusID
		created = append(created, testrail.Result{ID: s.id(), TestID: nr.TestID, StatusID: nr.StatusID, Comment: nr.Comment})
	}
	// newest first
	prior := s.results[runID]
	s.results[runID] = nil
	for i := len(created) - 1; i >= 0; i-- {
		s.results[runID] = append(s.results[runID], created[i])
	}
	s.results[runID] = append(s.results[runID], prior...)
	writeJSON(w, http.StatusOK, created)
}

func (s *Server) configNames(projectID int, ids []int) string {
	var names []string
	for _, g := range s.configs[projectID] {
		for _, c := range g.Configs {
			for _, id := range ids {
				if c.ID == id {
					names = append(names, c.Name)
				}
			}
		}
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

func (s *Server) caseTitle(id int) string {
	for _, c := range s.cases {
		if c.ID == id {
			return c.Title
		}
	}
	return ""
}

// --- response helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, testrail.ErrorResponse{Error: message})
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

// writeList answers a list endpoint as a bare array, or as a paginated
// envelope when pageSize > 0.
func writeList[T any](w http.ResponseWriter, pageSize int, req request, key string, items []T) {
	items = nonNil(items)
	if pageSize <= 0 {
		writeJSON(w, http.StatusOK, items)
		return
	}

	offset := req.intParam("offset")
	end := offset + pageSize
	if end > len(items) {
		end = len(items)
	}
	page := []T{}
	if offset < len(items) {
		page = items[offset:end]
	}

	var next *string
	if end < len(items) {
		base := req.endpoint
		for k, v := range req.params {
			if k == "offset" || k == "limit" {
				continue
			}
			base += "&" + k + "=" + v
		}
		link := fmt.Sprintf("/api/v2/%s&limit=%d&offset=%d", base, pageSize, end)
		next = &link
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"offset": offset,
		"limit":  pageSize,
		"size":   len(page),
		"_links": map[string]any{"next": next, "prev": nil},
		key:      page,
	})
}
