package reporter_test

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"cukerail/internal/cucumber"
	"cukerail/internal/reporter"
	"cukerail/internal/store"
	"cukerail/internal/testrail"
	"cukerail/internal/testrail/fake"
)

const planName = "Regression"

func newFixture(t *testing.T) *fake.Fixture {
	t.Helper()
	f := fake.NewFixture()
	t.Cleanup(f.Close)
	return f
}

func newReporter(t *testing.T, f *fake.Fixture, opts ...reporter.Option) *reporter.Reporter {
	t.Helper()
	opts = append([]reporter.Option{reporter.WithProject(fake.FixtureProject)}, opts...)
	rep, err := reporter.New(context.Background(), f.Client(), planName, opts...)
	if err != nil {
		t.Fatalf("reporter.New: %v", err)
	}
	return rep
}

// push buffers one run per label set, then creates the entry and submits.
func push(t *testing.T, rep *reporter.Reporter, build string, results cucumber.Results, labels ...[]string) {
	t.Helper()
	ctx := context.Background()
	for _, l := range labels {
		if err := rep.AddRun(ctx, results, l); err != nil {
			t.Fatalf("AddRun(%q): %v", l, err)
		}
	}
	if err := rep.CreatePlanEntry(ctx, build); err != nil {
		t.Fatalf("CreatePlanEntry(%q): %v", build, err)
	}
	if err := rep.SetResults(ctx); err != nil {
		t.Fatalf("SetResults: %v", err)
	}
}

func scenarios() cucumber.Results {
	return cucumber.Results{
		"Valid login":      {Feature: "Authentication", Steps: []string{"**Given** a user", "**Then** it logs in"}, Status: "passed"},
		"Invalid login":    {Feature: "Authentication", Steps: []string{"**Given** a user", "**When** the password is wrong"}, Status: "failed"},
		"Pay with card #1": {Feature: "Checkout", Steps: []string{"**Given** a cart"}, Status: "skipped"},
	}
}

func statusByTitle(f *fake.Fixture, runID int) map[string]int {
	out := make(map[string]int)
	for _, test := range f.Tests(runID) {
		out[test.Title] = test.StatusID
	}
	return out
}

func TestNew_ResolvesSessionAndCreatesPlan(t *testing.T) {
	f := newFixture(t)
	rep := newReporter(t, f)

	s := rep.Session()
	if s.ProjectID != f.ProjectID || s.SuiteID != f.SuiteID || s.MilestoneID != f.MilestoneID {
		t.Errorf("session ids = %d/%d/%d, want %d/%d/%d",
			s.ProjectID, s.SuiteID, s.MilestoneID, f.ProjectID, f.SuiteID, f.MilestoneID)
	}
	if s.PlanName != "Regression - 1.0" {
		t.Errorf("PlanName = %q", s.PlanName)
	}
	if n := s.Sections.Len(); n != 1 {
		t.Errorf("sections = %d, want 1", n)
	}
	if n := s.AutomatedCases.Len(); n != 1 {
		t.Errorf("automated cases = %d, want 1", n)
	}
	if n := s.ManualCases.Len(); n != 5 {
		t.Errorf("manual cases = %d, want 5 (below priority 4 are not loaded)", n)
	}
	if n := s.Configs.Len(); n != 4 {
		t.Errorf("configs = %d, want 4", n)
	}
	if _, ok := s.ManualCases.Lookup("Manual low priority"); ok {
		t.Error("low priority manual case was loaded")
	}

	plan := f.PlanByName("Regression - 1.0")
	if plan == nil {
		t.Fatal("plan not created")
	}
	if plan.ID != s.PlanID || plan.MilestoneID != f.MilestoneID {
		t.Errorf("plan = %+v, session plan %d", plan, s.PlanID)
	}
	if plan.Description != reporter.DefaultPlanDescription {
		t.Errorf("description = %q", plan.Description)
	}
	if n := len(f.Calls("add_plan/")); n != 1 {
		t.Errorf("add_plan calls = %d, want 1", n)
	}
}

func TestNew_ReusesExistingPlan(t *testing.T) {
	f := newFixture(t)
	id := f.AddPlan(f.ProjectID, f.MilestoneID, "Regression - 1.0", false)

	rep := newReporter(t, f)
	if got := rep.Session().PlanID; got != id {
		t.Errorf("PlanID = %d, want %d", got, id)
	}
	if n := len(f.Calls("add_plan/")); n != 0 {
		t.Errorf("add_plan calls = %d, want 0", n)
	}
}

func TestNew_CompletedPlanIsNotReused(t *testing.T) {
	f := newFixture(t)
	done := f.AddPlan(f.ProjectID, f.MilestoneID, "Regression - 1.0", true)

	rep := newReporter(t, f, reporter.WithPlanDescription("nightly"))
	if rep.Session().PlanID == done {
		t.Fatal("completed plan reused")
	}
	if d := f.Plan(rep.Session().PlanID).Description; d != "nightly" {
		t.Errorf("description = %q, want nightly", d)
	}
}

func TestNew_MilestoneInvariant(t *testing.T) {
	t.Run("two active milestones", func(t *testing.T) {
		f := newFixture(t)
		f.AddMilestone(f.ProjectID, "1.1", false)

		_, err := reporter.New(context.Background(), f.Client(), planName, reporter.WithProject(fake.FixtureProject))
		if !errors.Is(err, reporter.ErrInvariantViolation) {
			t.Fatalf("err = %v, want ErrInvariantViolation", err)
		}
		if n := len(f.Calls("add_plan/")); n != 0 {
			t.Errorf("add_plan calls = %d, want 0", n)
		}
	})

	t.Run("no active milestone", func(t *testing.T) {
		srv := fake.New()
		t.Cleanup(srv.Close)
		p := srv.AddProject("Mobile")
		srv.AddSuite(p, "Master")
		srv.AddConfigGroup(p, "Devices", "iOS 7")
		srv.AddMilestone(p, "0.9", true)
		client, err := testrail.New(srv.URL(), "", "", testrail.WithHTTPClient(srv.HTTPClient()))
		if err != nil {
			t.Fatalf("testrail.New: %v", err)
		}

		_, err = reporter.New(context.Background(), client, planName, reporter.WithProject("Mobile"))
		if !errors.Is(err, reporter.ErrInvariantViolation) {
			t.Fatalf("err = %v, want ErrInvariantViolation", err)
		}
		if n := len(srv.Calls("add_plan/")); n != 0 {
			t.Errorf("add_plan calls = %d, want 0", n)
		}
	})
}

func TestNew_NotFound(t *testing.T) {
	t.Run("unknown project", func(t *testing.T) {
		f := newFixture(t)
		_, err := reporter.New(context.Background(), f.Client(), planName, reporter.WithProject("Desktop"))
		if !errors.Is(err, reporter.ErrNotFound) {
			t.Fatalf("err = %v, want ErrNotFound", err)
		}
	})

	t.Run("project without suites", func(t *testing.T) {
		srv := fake.New()
		t.Cleanup(srv.Close)
		srv.AddProject("Empty")
		client, err := testrail.New(srv.URL(), "", "", testrail.WithHTTPClient(srv.HTTPClient()))
		if err != nil {
			t.Fatalf("testrail.New: %v", err)
		}

		_, err = reporter.New(context.Background(), client, planName, reporter.WithProject("Empty"))
		if !errors.Is(err, reporter.ErrNotFound) {
			t.Fatalf("err = %v, want ErrNotFound", err)
		}
	})

	t.Run("project without configurations", func(t *testing.T) {
		srv := fake.New()
		t.Cleanup(srv.Close)
		p := srv.AddProject("Bare")
		srv.AddSuite(p, "Master")
		srv.AddMilestone(p, "1.0", false)
		client, err := testrail.New(srv.URL(), "", "", testrail.WithHTTPClient(srv.HTTPClient()))
		if err != nil {
			t.Fatalf("testrail.New: %v", err)
		}

		_, err = reporter.New(context.Background(), client, planName, reporter.WithProject("Bare"))
		if !errors.Is(err, reporter.ErrNotFound) {
			t.Fatalf("err = %v, want ErrNotFound", err)
		}
		if n := len(srv.Calls("get_milestones")); n != 0 {
			t.Errorf("get_milestones calls = %d; configurations are checked before the milestone", n)
		}
	})
}

func TestNew_InvalidArguments(t *testing.T) {
	f := newFixture(t)
	if _, err := reporter.New(context.Background(), f.Client(), "", reporter.WithProject(fake.FixtureProject)); !errors.Is(err, reporter.ErrInvalidArgument) {
		t.Errorf("empty plan: err = %v", err)
	}
	if _, err := reporter.New(context.Background(), f.Client(), planName); !errors.Is(err, reporter.ErrInvalidArgument) {
		t.Errorf("no project: err = %v", err)
	}
}

func TestNew_RemoteFailure(t *testing.T) {
	f := newFixture(t)
	f.FailOn("get_sections", 500, "database unavailable")

	_, err := reporter.New(context.Background(), f.Client(), planName, reporter.WithProject(fake.FixtureProject))
	if err == nil {
		t.Fatal("expected error")
	}
	if !reporter.IsRemote(err) {
		t.Errorf("IsRemote(%v) = false", err)
	}
	var rce *reporter.RemoteCallError
	if !errors.As(err, &rce) {
		t.Fatalf("err %T is not a RemoteCallError", err)
	}
	if rce.Op != "get sections" {
		t.Errorf("Op = %q", rce.Op)
	}
	if !testrail.HasStatusCode(err, 500) {
		t.Errorf("status code lost: %v", err)
	}
	if !strings.Contains(err.Error(), "database unavailable") {
		t.Errorf("message lost: %v", err)
	}
}

func TestGetConfigIDs_OrderInsensitive(t *testing.T) {
	f := newFixture(t)
	rep := newReporter(t, f)

	want := f.ConfigIDs("iOS 7", "Tablet")
	sort.Ints(want)
	for _, labels := range [][]string{
		{"iOS 7", "Tablet"},
		{"Tablet", "iOS 7"},
		{"Tablet", "iOS 7", "Tablet"},
	} {
		got, err := rep.GetConfigIDs(labels)
		if err != nil {
			t.Fatalf("GetConfigIDs(%q): %v", labels, err)
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("GetConfigIDs(%q) mismatch (-want +got):\n%s", labels, diff)
		}
	}

	if _, err := rep.GetConfigIDs([]string{"iOS 7", "Windows Phone"}); !errors.Is(err, reporter.ErrNotFound) {
		t.Errorf("unknown label: err = %v", err)
	}
}

func TestAddRun_ManualCases(t *testing.T) {
	tests := []struct {
		labels []string
		want   []string
	}{
		{[]string{"iOS 7"}, []string{"Manual unrestricted", "Manual empty restriction", "Manual iOS"}},
		{[]string{"Android 4"}, []string{"Manual unrestricted", "Manual empty restriction", "Manual Android"}},
		{[]string{"Tablet", "iOS 7"}, []string{"Manual unrestricted", "Manual empty restriction", "Manual iOS tablet"}},
	}
	for _, tt := range tests {
		t.Run(tt.labels[0], func(t *testing.T) {
			f := newFixture(t)
			rep := newReporter(t, f)
			push(t, rep, "manual", nil, tt.labels)

			buckets := rep.Buckets()
			if len(buckets) != 1 {
				t.Fatalf("buckets = %d, want 1", len(buckets))
			}
			if buckets[0].Cases != len(tt.want) {
				t.Errorf("Cases = %d, want %d", buckets[0].Cases, len(tt.want))
			}

			var got, want []int
			for _, test := range f.Tests(buckets[0].RunID) {
				got = append(got, test.CaseID)
				if test.StatusID != 3 {
					t.Errorf("%s: status %d, manual cases are registered as untested", test.Title, test.StatusID)
				}
			}
			for _, title := range tt.want {
				want = append(want, f.Cases[title])
			}
			sort.Ints(got)
			sort.Ints(want)
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("run cases mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestAddRun_ManualWithoutCasesSendsEmptyList(t *testing.T) {
	f := newFixture(t)
	rep := newReporter(t, f, reporter.WithManualMinPriority(9))
	ctx := context.Background()

	if err := rep.AddRun(ctx, nil, []string{"iOS 7"}); err != nil {
		t.Fatalf("AddRun: %v", err)
	}
	if err := rep.CreatePlanEntry(ctx, "manual"); err != nil {
		t.Fatalf("CreatePlanEntry: %v", err)
	}

	calls := f.Calls("add_plan_entry/")
	if len(calls) != 1 {
		t.Fatalf("add_plan_entry calls = %d, want 1", len(calls))
	}
	var body struct {
		Runs []map[string]json.RawMessage `json:"runs"`
	}
	if err := json.Unmarshal(calls[0].Body, &body); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if len(body.Runs) != 1 {
		t.Fatalf("runs = %d, want 1", len(body.Runs))
	}
	if got := string(body.Runs[0]["case_ids"]); got != "[]" {
		t.Errorf("case_ids = %s, want []", got)
	}
}

func TestAddRun_InvalidArguments(t *testing.T) {
	f := newFixture(t)
	rep := newReporter(t, f)
	ctx := context.Background()

	if err := rep.AddRun(ctx, scenarios(), nil); !errors.Is(err, reporter.ErrInvalidArgument) {
		t.Errorf("no labels: err = %v", err)
	}
	if err := rep.AddRun(ctx, scenarios(), []string{"Symbian"}); !errors.Is(err, reporter.ErrNotFound) {
		t.Errorf("unknown label: err = %v", err)
	}
	if n := len(rep.Buckets()); n != 0 {
		t.Errorf("buckets = %d, want 0", n)
	}
	if n := len(f.Calls("add_case/")); n != 0 {
		t.Errorf("add_case calls = %d, want 0", n)
	}
}

func TestAddRun_CreatesMissingCasesAndSections(t *testing.T) {
	f := newFixture(t)
	rep := newReporter(t, f)

	if err := rep.AddRun(context.Background(), scenarios(), []string{"iOS 7"}); err != nil {
		t.Fatalf("AddRun: %v", err)
	}
	if n := len(f.Calls("add_case/")); n != 2 {
		t.Errorf("add_case calls = %d, want 2 (Valid login already exists)", n)
	}
	if n := len(f.Calls("add_section/")); n != 1 {
		t.Errorf("add_section calls = %d, want 1 (Authentication already exists)", n)
	}

	checkout := f.SectionByName("Checkout")
	card := f.CaseByTitle("Pay with card #1")
	if checkout == nil || card == nil {
		t.Fatalf("section %v, case %v", checkout, card)
	}
	if card.SectionID != checkout.ID || card.TypeID != reporter.DefaultAutomatedType {
		t.Errorf("card case = %+v", card)
	}

	invalid := f.CaseByTitle("Invalid login")
	if invalid == nil {
		t.Fatal("Invalid login not created")
	}
	if invalid.SectionID != f.SectionID {
		t.Errorf("SectionID = %d, want %d", invalid.SectionID, f.SectionID)
	}
	var steps string
	if err := json.Unmarshal(invalid.Custom["custom_steps"], &steps); err != nil {
		t.Fatalf("custom_steps: %v", err)
	}
	if want := "**Given** a user\n**When** the password is wrong"; steps != want {
		t.Errorf("steps = %q, want %q", steps, want)
	}

	ref, ok := rep.Session().AutomatedCases.Lookup("Invalid login")
	if !ok || ref.ID != invalid.ID {
		t.Errorf("cache = %+v, %v; want id %d", ref, ok, invalid.ID)
	}
}

func TestAddCase_CachedTitleSkipsRemote(t *testing.T) {
	f := newFixture(t)
	rep := newReporter(t, f)
	ctx := context.Background()

	first, err := rep.AddCase(ctx, "Logout", "Authentication", []string{"**When** I log out"})
	if err != nil {
		t.Fatalf("AddCase: %v", err)
	}
	second, err := rep.AddCase(ctx, "Logout", "Authentication", nil)
	if err != nil {
		t.Fatalf("AddCase again: %v", err)
	}
	if first != second {
		t.Errorf("ids differ: %d, %d", first, second)
	}
	if n := len(f.Calls("add_case/")); n != 1 {
		t.Errorf("add_case calls = %d, want 1", n)
	}
	if n := len(f.Calls("add_section/")); n != 0 {
		t.Errorf("add_section calls = %d, want 0", n)
	}

	existing, err := rep.AddCase(ctx, "Valid login", "Elsewhere", nil)
	if err != nil {
		t.Fatalf("AddCase existing: %v", err)
	}
	if existing != f.Cases["Valid login"] {
		t.Errorf("existing = %d, want %d", existing, f.Cases["Valid login"])
	}

	if _, err := rep.AddCase(ctx, "", "Authentication", nil); !errors.Is(err, reporter.ErrInvalidArgument) {
		t.Errorf("empty title: err = %v", err)
	}
}

func TestAddCase_RemoteErrorCarriesContext(t *testing.T) {
	f := newFixture(t)
	rep := newReporter(t, f)
	f.FailOn("add_case/", 403, "No permission to add test cases.")

	_, err := rep.AddCase(context.Background(), "Logout", "Authentication", nil)
	var rce *reporter.RemoteCallError
	if !errors.As(err, &rce) {
		t.Fatalf("err = %v, want RemoteCallError", err)
	}
	if !strings.Contains(rce.Context, `"Logout"`) {
		t.Errorf("Context = %q", rce.Context)
	}
	if !testrail.IsForbidden(err) {
		t.Errorf("IsForbidden(%v) = false", err)
	}
}

func TestAddRun_SameConfigurationMergesBucket(t *testing.T) {
	f := newFixture(t)
	rep := newReporter(t, f)
	ctx := context.Background()

	first := cucumber.Results{"Valid login": {Feature: "Authentication", Status: "failed"}}
	second := cucumber.Results{
		"Valid login": {Feature: "Authentication", Status: "passed"},
		"Remember me": {Feature: "Authentication", Status: "passed"},
	}
	for _, run := range []struct {
		results cucumber.Results
		labels  []string
	}{
		{first, []string{"iOS 7", "Phone"}},
		{second, []string{"Phone", "iOS 7"}},
		{first, []string{"Android 4"}},
	} {
		if err := rep.AddRun(ctx, run.results, run.labels); err != nil {
			t.Fatalf("AddRun(%q): %v", run.labels, err)
		}
	}
	if n := len(rep.Buckets()); n != 2 {
		t.Fatalf("buckets = %d, want 2", n)
	}

	if err := rep.CreatePlanEntry(ctx, "build-7"); err != nil {
		t.Fatalf("CreatePlanEntry: %v", err)
	}
	calls := f.Calls("add_plan_entry/")
	if len(calls) != 1 {
		t.Fatalf("add_plan_entry calls = %d, want 1", len(calls))
	}
	var payload testrail.NewPlanEntry
	if err := json.Unmarshal(calls[0].Body, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if len(payload.Runs) != 2 {
		t.Fatalf("runs = %d, want one per configuration set", len(payload.Runs))
	}
	if n := len(payload.Runs[0].CaseIDs); n != 2 {
		t.Errorf("first run cases = %d, want 2", n)
	}
	if !payload.IncludeAll || len(payload.ConfigIDs) != 4 {
		t.Errorf("entry payload = %+v", payload)
	}

	if err := rep.SetResults(ctx); err != nil {
		t.Fatalf("SetResults: %v", err)
	}
	iosKey := reporter.ConfigKey(f.ConfigIDs("iOS 7", "Phone"))
	for _, b := range rep.Buckets() {
		if b.Key != iosKey {
			continue
		}
		for _, test := range f.Tests(b.RunID) {
			if test.StatusID != 1 {
				t.Errorf("%s: status %d, later run must overwrite", test.Title, test.StatusID)
			}
		}
	}
}

func TestCreatePlanEntry_Preconditions(t *testing.T) {
	f := newFixture(t)
	rep := newReporter(t, f)
	ctx := context.Background()

	if err := rep.CreatePlanEntry(ctx, "build-1"); !errors.Is(err, reporter.ErrInvariantViolation) {
		t.Errorf("no runs: err = %v", err)
	}
	if err := rep.AddRun(ctx, scenarios(), []string{"iOS 7"}); err != nil {
		t.Fatalf("AddRun: %v", err)
	}
	if err := rep.CreatePlanEntry(ctx, ""); !errors.Is(err, reporter.ErrInvalidArgument) {
		t.Errorf("empty build: err = %v", err)
	}
	if n := len(f.Calls("add_plan_entry/")); n != 0 {
		t.Errorf("add_plan_entry calls = %d, want 0", n)
	}
}

func TestCreatePlanEntry_IdempotentByName(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rep := newReporter(t, f)
	if err := rep.AddRun(ctx, scenarios(), []string{"iOS 7"}); err != nil {
		t.Fatalf("AddRun: %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := rep.CreatePlanEntry(ctx, "build-1"); err != nil {
			t.Fatalf("CreatePlanEntry #%d: %v", i+1, err)
		}
	}

	// A later process sees the entry through its plan cache.
	again := newReporter(t, f)
	if err := again.AddRun(ctx, scenarios(), []string{"iOS 7"}); err != nil {
		t.Fatalf("AddRun: %v", err)
	}
	if err := again.CreatePlanEntry(ctx, "build-1"); err != nil {
		t.Fatalf("CreatePlanEntry: %v", err)
	}
	if n := len(f.Calls("add_plan_entry/")); n != 1 {
		t.Errorf("add_plan_entry calls = %d, want 1", n)
	}

	buckets := again.Buckets()
	if len(buckets) != 1 {
		t.Fatalf("buckets = %d, want 1", len(buckets))
	}
	want := reporter.RunBucket{
		Key:       buckets[0].Key,
		ConfigIDs: f.ConfigIDs("iOS 7"),
		RunID:     rep.Buckets()[0].RunID,
		Entry:     "build-1",
		State:     reporter.StateBound,
		Cases:     3,
	}
	if diff := cmp.Diff(want, buckets[0]); diff != "" {
		t.Errorf("bucket mismatch (-want +got):\n%s", diff)
	}
}

func TestCreatePlanEntry_ConsistencyError(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rep := newReporter(t, f)
	if err := rep.AddRun(ctx, scenarios(), []string{"iOS 7"}); err != nil {
		t.Fatalf("AddRun: %v", err)
	}
	if err := rep.CreatePlanEntry(ctx, "build-1"); err != nil {
		t.Fatalf("CreatePlanEntry: %v", err)
	}

	other := newReporter(t, f)
	if err := other.AddRun(ctx, scenarios(), []string{"Android 4"}); err != nil {
		t.Fatalf("AddRun: %v", err)
	}
	if err := other.CreatePlanEntry(ctx, "build-1"); !errors.Is(err, reporter.ErrConsistency) {
		t.Errorf("err = %v, want ErrConsistency", err)
	}
}

func TestCreatePlanEntry_ConsistencyErrorBindsNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rep := newReporter(t, f)
	for _, labels := range [][]string{{"iOS 7"}, {"Android 4"}} {
		if err := rep.AddRun(ctx, scenarios(), labels); err != nil {
			t.Fatalf("AddRun(%q): %v", labels, err)
		}
	}
	if err := rep.CreatePlanEntry(ctx, "build-1"); err != nil {
		t.Fatalf("CreatePlanEntry: %v", err)
	}

	// The entry holds an iOS run this reporter knows and an Android run it does not.
	partial := newReporter(t, f)
	if err := partial.AddRun(ctx, scenarios(), []string{"iOS 7"}); err != nil {
		t.Fatalf("AddRun: %v", err)
	}
	if err := partial.CreatePlanEntry(ctx, "build-1"); !errors.Is(err, reporter.ErrConsistency) {
		t.Fatalf("err = %v, want ErrConsistency", err)
	}
	b := partial.Buckets()[0]
	if b.State != reporter.StatePending || b.RunID != 0 || b.Entry != "" {
		t.Errorf("bucket changed by a failed bind: %+v", b)
	}
	if err := partial.SetResults(ctx); !errors.Is(err, reporter.ErrInvariantViolation) {
		t.Errorf("SetResults err = %v, want ErrInvariantViolation", err)
	}
	if n := len(f.Calls("add_results/")); n != 0 {
		t.Errorf("add_results calls = %d, want 0", n)
	}
}

func TestSetResults_UnboundFailsFast(t *testing.T) {
	f := newFixture(t)
	rep := newReporter(t, f)
	ctx := context.Background()

	if err := rep.AddRun(ctx, scenarios(), []string{"iOS 7"}); err != nil {
		t.Fatalf("AddRun: %v", err)
	}
	if err := rep.SetResults(ctx); !errors.Is(err, reporter.ErrInvariantViolation) {
		t.Fatalf("err = %v, want ErrInvariantViolation", err)
	}
	if n := len(f.Calls("get_tests")) + len(f.Calls("add_results")); n != 0 {
		t.Errorf("remote calls = %d, want 0", n)
	}
	if s := rep.Buckets()[0].State; s != reporter.StatePending {
		t.Errorf("State = %s, want PENDING", s)
	}
}

func TestSetResults_PostsMappedStatuses(t *testing.T) {
	f := newFixture(t)
	ledger := store.NewMemStore()
	rep := newReporter(t, f, reporter.WithRecorder(ledger))

	results := scenarios()
	results["Invalid login"].Status = "FAILED"
	push(t, rep, "build-1", results, []string{"iOS 7"})

	b := rep.Buckets()[0]
	if b.State != reporter.StateSubmitted {
		t.Errorf("State = %s, want SUBMITTED", b.State)
	}
	if n := len(f.Calls("add_results/")); n != 1 {
		t.Fatalf("add_results calls = %d, want one bulk call per run", n)
	}
	want := map[string]int{"Valid login": 1, "Invalid login": 5, "Pay with card #1": 6}
	if diff := cmp.Diff(want, statusByTitle(f, b.RunID)); diff != "" {
		t.Errorf("statuses mismatch (-want +got):\n%s", diff)
	}

	sub := ledger.Last()
	if sub == nil {
		t.Fatal("nothing recorded")
	}
	if sub.RunID != b.RunID || sub.PlanName != "Regression - 1.0" || sub.EntryName != "build-1" ||
		sub.ConfigKey != b.Key || sub.Results != 3 {
		t.Errorf("submission = %+v, bucket %+v", sub, b)
	}
}

func TestSetResults_UnknownStatusUsesSentinel(t *testing.T) {
	f := newFixture(t)
	rep := newReporter(t, f)
	ctx := context.Background()

	results := cucumber.Results{"Valid login": {Feature: "Authentication", Status: "undefined"}}
	if err := rep.AddRun(ctx, results, []string{"iOS 7"}); err != nil {
		t.Fatalf("AddRun: %v", err)
	}
	if err := rep.CreatePlanEntry(ctx, "build-1"); err != nil {
		t.Fatalf("CreatePlanEntry: %v", err)
	}

	err := rep.SetResults(ctx)
	if err == nil {
		t.Fatal("the stock instance has no status for the sentinel")
	}
	if !testrail.IsBadRequest(err) {
		t.Errorf("IsBadRequest(%v) = false", err)
	}

	calls := f.Calls("add_results/")
	if len(calls) != 1 {
		t.Fatalf("add_results calls = %d, want 1", len(calls))
	}
	var body struct {
		Results []testrail.NewResult `json:"results"`
	}
	if err := json.Unmarshal(calls[0].Body, &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(body.Results) != 1 || body.Results[0].StatusID != reporter.StatusUnknown {
		t.Errorf("results = %+v, want one with status %d", body.Results, reporter.StatusUnknown)
	}
}

func TestSetResults_CustomStatusTable(t *testing.T) {
	f := newFixture(t)
	rep := newReporter(t, f, reporter.WithStatuses(reporter.NewStatusTable(map[string]int{
		"passed": 1, "failed": 5, "undefined": 4,
	})))

	results := cucumber.Results{"Valid login": {Feature: "Authentication", Status: "undefined"}}
	push(t, rep, "build-1", results, []string{"iOS 7"})

	tests := f.Tests(rep.Buckets()[0].RunID)
	if len(tests) != 1 || tests[0].StatusID != 4 {
		t.Errorf("tests = %+v, want one with status 4", tests)
	}
}

func TestSetResults_RerunSubsetLeavesOthersUntouched(t *testing.T) {
	f := newFixture(t)

	rep := newReporter(t, f)
	push(t, rep, "build-1", scenarios(), []string{"iOS 7"})
	runID := rep.Buckets()[0].RunID

	rerun := newReporter(t, f)
	push(t, rerun, "build-1", cucumber.Results{
		"Invalid login": {Feature: "Authentication", Status: "passed"},
	}, []string{"iOS 7"})

	calls := f.Calls("add_results/")
	if len(calls) != 2 {
		t.Fatalf("add_results calls = %d, want 2", len(calls))
	}
	var body struct {
		Results []testrail.NewResult `json:"results"`
	}
	if err := json.Unmarshal(calls[1].Body, &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(body.Results) != 1 {
		t.Errorf("rerun posted %d results, want 1", len(body.Results))
	}

	want := map[string]int{"Valid login": 1, "Invalid login": 1, "Pay with card #1": 6}
	if diff := cmp.Diff(want, statusByTitle(f, runID)); diff != "" {
		t.Errorf("statuses mismatch (-want +got):\n%s", diff)
	}
}

func TestSetResults_NothingToSubmit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rep := newReporter(t, f)
	if err := rep.AddRun(ctx, cucumber.Results{
		"Valid login": {Feature: "Authentication", Status: "passed"},
	}, []string{"iOS 7"}); err != nil {
		t.Fatalf("AddRun: %v", err)
	}
	if err := rep.CreatePlanEntry(ctx, "build-1"); err != nil {
		t.Fatalf("CreatePlanEntry: %v", err)
	}

	// The reused run has no test for the newly created case.
	late := newReporter(t, f)
	push(t, late, "build-1", cucumber.Results{
		"Remember me": {Feature: "Authentication", Status: "passed"},
	}, []string{"iOS 7"})

	if n := len(f.Calls("add_results")); n != 0 {
		t.Errorf("add_results calls = %d, want 0", n)
	}
	if s := late.Buckets()[0].State; s != reporter.StateSubmitted {
		t.Errorf("State = %s, want SUBMITTED", s)
	}
}

func TestDeletePlanEntry(t *testing.T) {
	f := newFixture(t)
	rep := newReporter(t, f)
	ctx := context.Background()

	if err := rep.AddRun(ctx, scenarios(), []string{"iOS 7"}); err != nil {
		t.Fatalf("AddRun: %v", err)
	}
	if err := rep.CreatePlanEntry(ctx, "build-1"); err != nil {
		t.Fatalf("CreatePlanEntry: %v", err)
	}
	if rep.Session().Entry("build-1") == nil {
		t.Fatal("entry not cached")
	}

	if err := rep.DeletePlanEntry(ctx, "build-1"); err != nil {
		t.Fatalf("DeletePlanEntry: %v", err)
	}
	if rep.Session().Entry("build-1") != nil {
		t.Error("entry still cached")
	}
	if n := len(f.Plan(rep.Session().PlanID).Entries); n != 0 {
		t.Errorf("remote entries = %d, want 0", n)
	}
	if s := rep.Buckets()[0].State; s != reporter.StatePending {
		t.Errorf("State = %s, want PENDING", s)
	}
	if err := rep.SetResults(ctx); !errors.Is(err, reporter.ErrInvariantViolation) {
		t.Errorf("SetResults err = %v, want ErrInvariantViolation", err)
	}

	// Unknown builds only touch the local cache.
	if err := rep.DeletePlanEntry(ctx, "build-404"); err != nil {
		t.Errorf("unknown build: %v", err)
	}
	if n := len(f.Calls("delete_plan_entry/")); n != 1 {
		t.Errorf("delete_plan_entry calls = %d, want 1", n)
	}
	if err := rep.DeletePlanEntry(ctx, ""); !errors.Is(err, reporter.ErrInvalidArgument) {
		t.Errorf("empty build: err = %v", err)
	}

	// Recreating binds the buckets again.
	if err := rep.CreatePlanEntry(ctx, "build-1"); err != nil {
		t.Fatalf("CreatePlanEntry again: %v", err)
	}
	if err := rep.SetResults(ctx); err != nil {
		t.Fatalf("SetResults: %v", err)
	}
	if n := len(f.Calls("add_plan_entry/")); n != 2 {
		t.Errorf("add_plan_entry calls = %d, want 2", n)
	}
}

func TestDeletePlanEntry_RemovesEveryEntryWithTheName(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	planID := newReporter(t, f).Session().PlanID

	client := f.Client()
	for i := 0; i < 2; i++ {
		if _, err := client.AddPlanEntry(ctx, planID, testrail.NewPlanEntry{
			SuiteID: f.SuiteID,
			Name:    "build-1",
			Runs:    []testrail.NewRun{{ConfigIDs: f.ConfigIDs("iOS 7"), CaseIDs: []int{}}},
		}); err != nil {
			t.Fatalf("AddPlanEntry: %v", err)
		}
	}

	rep := newReporter(t, f)
	if err := rep.DeletePlanEntry(ctx, "build-1"); err != nil {
		t.Fatalf("DeletePlanEntry: %v", err)
	}
	if n := len(f.Calls("delete_plan_entry/")); n != 2 {
		t.Errorf("delete_plan_entry calls = %d, want 2", n)
	}
	if n := len(f.Plan(planID).Entries); n != 0 {
		t.Errorf("remote entries = %d, want 0", n)
	}
	if rep.Session().Entry("build-1") != nil {
		t.Error("entry still cached")
	}
}

func TestGetResults(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rep := newReporter(t, f)
	push(t, rep, "build-1", scenarios(), []string{"iOS 7"}, []string{"Tablet", "Android 4"})

	rerun := newReporter(t, f)
	if err := rerun.AddRun(ctx, cucumber.Results{
		"Invalid login": {Feature: "Authentication", Status: "passed"},
	}, []string{"iOS 7"}); err != nil {
		t.Fatalf("AddRun: %v", err)
	}
	push(t, rerun, "build-1", nil, []string{"Android 4", "Tablet"})

	got, err := rerun.GetResults(ctx, "Regression - 1.0")
	if err != nil {
		t.Fatalf("GetResults: %v", err)
	}

	iosKey := reporter.ConfigKey(f.ConfigIDs("iOS 7"))
	androidKey := reporter.ConfigKey(f.ConfigIDs("Tablet", "Android 4"))
	wantKeys := []string{iosKey, androidKey}
	sort.Strings(wantKeys)
	gotKeys := got.Keys()
	sort.Strings(gotKeys)
	if diff := cmp.Diff(wantKeys, gotKeys); diff != "" {
		t.Errorf("keys mismatch (-want +got):\n%s", diff)
	}

	var iosRun, androidRun int
	for _, b := range rep.Buckets() {
		switch b.Key {
		case iosKey:
			iosRun = b.RunID
		case androidKey:
			androidRun = b.RunID
		}
	}
	want := make(map[int]int)
	for _, test := range f.Tests(iosRun) {
		want[test.ID] = test.StatusID
		if test.Title == "Invalid login" && got[iosKey][test.ID] != 1 {
			t.Errorf("Invalid login = %d, want the rerun's pass", got[iosKey][test.ID])
		}
	}
	if diff := cmp.Diff(want, got[iosKey]); diff != "" {
		t.Errorf("latest result per test mismatch (-want +got):\n%s", diff)
	}
	if n := len(got[androidKey]); n != len(f.Tests(androidRun)) {
		t.Errorf("android results = %d, want %d", n, len(f.Tests(androidRun)))
	}

	if _, err := rerun.GetResults(ctx, "Regression"); !errors.Is(err, reporter.ErrNotFound) {
		t.Errorf("unknown plan: err = %v", err)
	}
}
