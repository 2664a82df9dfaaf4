package reporter

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"cukerail/internal/logging"
	"cukerail/internal/store"
	"cukerail/internal/testrail"
)

// Default case types and priorities of a stock TestRail instance.
const (
	DefaultAutomatedType       = 1
	DefaultManualType          = 7
	DefaultManualMinPriority   = 4
	DefaultConfigurationsField = "custom_configurations"
	DefaultPlanDescription     = "Created by cukerail"
)

// API is the subset of the TestRail API the reporter uses. *testrail.Client
// satisfies it.
type API interface {
	GetProjects(ctx context.Context) ([]testrail.Project, error)
	GetSuites(ctx context.Context, projectID int) ([]testrail.Suite, error)
	GetSections(ctx context.Context, projectID, suiteID int) ([]testrail.Section, error)
	AddSection(ctx context.Context, projectID int, section testrail.NewSection) (*testrail.Section, error)
	GetCases(ctx context.Context, projectID, suiteID, typeID int) ([]testrail.Case, error)
	AddCase(ctx context.Context, sectionID int, tc testrail.NewCase) (*testrail.Case, error)
	GetConfigs(ctx context.Context, projectID int) ([]testrail.ConfigGroup, error)
	GetMilestones(ctx context.Context, projectID int, activeOnly bool) ([]testrail.Milestone, error)
	GetPlans(ctx context.Context, projectID, milestoneID int) ([]testrail.Plan, error)
	GetPlan(ctx context.Context, planID int) (*testrail.Plan, error)
	AddPlan(ctx context.Context, projectID int, plan testrail.NewPlan) (*testrail.Plan, error)
	AddPlanEntry(ctx context.Context, planID int, entry testrail.NewPlanEntry) (*testrail.PlanEntry, error)
	DeletePlanEntry(ctx context.Context, planID int, entryID string) error
	GetTests(ctx context.Context, runID int) ([]testrail.Test, error)
	GetResultsForRun(ctx context.Context, runID int) ([]testrail.Result, error)
	AddResults(ctx context.Context, runID int, results []testrail.NewResult) ([]testrail.Result, error)
}

var _ API = (*testrail.Client)(nil)

// Reporter pushes cucumber results into one TestRail plan.
type Reporter struct {
	api     API
	session *Session
	opts    options
	logger  *slog.Logger
	buckets map[string]*bucket
	order   []string
}

// Option configures a Reporter.
type Option func(*options)

type options struct {
	project           string
	statuses          StatusTable
	automatedType     int
	manualType        int
	manualMinPriority int
	configField       string
	planDescription   string
	logger            *slog.Logger
	recorder          store.Recorder
}

// WithProject names the TestRail project to report into.
func WithProject(name string) Option {
	return func(o *options) { o.project = name }
}

// WithStatuses replaces the status name to ID table.
func WithStatuses(t StatusTable) Option {
	return func(o *options) {
		if len(t) > 0 {
			o.statuses = t
		}
	}
}

// WithCaseTypes sets the case type IDs used for automated and manual cases.
// Zero values keep the defaults.
func WithCaseTypes(automated, manual int) Option {
	return func(o *options) {
		if automated > 0 {
			o.automatedType = automated
		}
		if manual > 0 {
			o.manualType = manual
		}
	}
}

// WithManualMinPriority sets the lowest priority of manual cases loaded.
func WithManualMinPriority(p int) Option {
	return func(o *options) {
		if p > 0 {
			o.manualMinPriority = p
		}
	}
}

// WithConfigurationsField names the case custom field holding the
// configuration restriction.
func WithConfigurationsField(field string) Option {
	return func(o *options) {
		if field != "" {
			o.configField = field
		}
	}
}

// WithPlanDescription sets the description of plans the reporter creates.
func WithPlanDescription(d string) Option {
	return func(o *options) { o.planDescription = d }
}

// WithLogger configures structured logging.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithRecorder records every submitted run, e.g. into the local ledger.
func WithRecorder(r store.Recorder) Option {
	return func(o *options) { o.recorder = r }
}

// New resolves the project, suite, caches, active milestone and plan, in
// that order, and returns a Reporter bound to the plan
// "<planName> - <milestone>". The plan is created when it does not exist.
func New(ctx context.Context, api API, planName string, opts ...Option) (*Reporter, error) {
	o := options{
		statuses:          DefaultStatuses(),
		automatedType:     DefaultAutomatedType,
		manualType:        DefaultManualType,
		manualMinPriority: DefaultManualMinPriority,
		configField:       DefaultConfigurationsField,
		planDescription:   DefaultPlanDescription,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logging.Discard()
	}
	if planName == "" {
		return nil, fmt.Errorf("%w: plan name is required", ErrInvalidArgument)
	}
	if o.project == "" {
		return nil, fmt.Errorf("%w: project name is required", ErrInvalidArgument)
	}

	r := &Reporter{
		api:     api,
		opts:    o,
		logger:  o.logger,
		buckets: make(map[string]*bucket),
	}
	s := &Session{}
	r.session = s

	var err error
	if s.ProjectID, err = r.resolveProject(ctx); err != nil {
		return nil, err
	}
	if s.SuiteID, err = r.resolveSuite(ctx); err != nil {
		return nil, err
	}
	sections, err := api.GetSections(ctx, s.ProjectID, s.SuiteID)
	if err != nil {
		return nil, remoteErr("get sections", err, "")
	}
	s.Sections = NewSectionCache(sections)
	if s.AutomatedCases, err = r.loadCases(ctx, o.automatedType, 1); err != nil {
		return nil, err
	}
	if s.ManualCases, err = r.loadCases(ctx, o.manualType, o.manualMinPriority); err != nil {
		return nil, err
	}
	groups, err := api.GetConfigs(ctx, s.ProjectID)
	if err != nil {
		return nil, remoteErr("get configs", err, "")
	}
	s.Configs = NewConfigCache(groups)
	if s.Configs.Len() == 0 {
		return nil, fmt.Errorf("%w: project %q defines no configurations", ErrNotFound, o.project)
	}
	if err := r.resolveMilestone(ctx); err != nil {
		return nil, err
	}
	if err := r.resolvePlan(ctx, planName); err != nil {
		return nil, err
	}

	r.logger.InfoContext(ctx, "reporter ready",
		"project", o.project, "milestone", s.MilestoneName, "plan", s.PlanName, "plan_id", s.PlanID,
		"sections", s.Sections.Len(), "automated_cases", s.AutomatedCases.Len(),
		"manual_cases", s.ManualCases.Len(), "configurations", s.Configs.Len())
	return r, nil
}

// Session returns the resolved remote context.
func (r *Reporter) Session() *Session { return r.session }

// Statuses returns the status table in use.
func (r *Reporter) Statuses() StatusTable { return r.opts.statuses }

func (r *Reporter) resolveProject(ctx context.Context) (int, error) {
	projects, err := r.api.GetProjects(ctx)
	if err != nil {
		return 0, remoteErr("get projects", err, "")
	}
	for _, p := range projects {
		if p.Name == r.opts.project {
			return p.ID, nil
		}
	}
	return 0, fmt.Errorf("%w: project %q", ErrNotFound, r.opts.project)
}

func (r *Reporter) resolveSuite(ctx context.Context) (int, error) {
	suites, err := r.api.GetSuites(ctx, r.session.ProjectID)
	if err != nil {
		return 0, remoteErr("get suites", err, fmt.Sprintf("project %d", r.session.ProjectID))
	}
	if len(suites) == 0 {
		return 0, fmt.Errorf("%w: project %q has no suites", ErrNotFound, r.opts.project)
	}
	return suites[0].ID, nil
}

func (r *Reporter) loadCases(ctx context.Context, typeID, minPriority int) (*CaseCache, error) {
	cases, err := r.api.GetCases(ctx, r.session.ProjectID, r.session.SuiteID, typeID)
	if err != nil {
		return nil, remoteErr("get cases", err, fmt.Sprintf("type %d", typeID))
	}
	cache := NewCaseCache()
	for i := range cases {
		c := &cases[i]
		if c.PriorityID < minPriority {
			continue
		}
		ids, restricted, err := c.ConfigIDs(r.opts.configField)
		if err != nil {
			return nil, fmt.Errorf("load cases: %w", err)
		}
		cache.Insert(c.Title, CaseRef{ID: c.ID, ConfigIDs: ids, Restricted: restricted})
	}
	return cache, nil
}

func (r *Reporter) resolveMilestone(ctx context.Context) error {
	milestones, err := r.api.GetMilestones(ctx, r.session.ProjectID, true)
	if err != nil {
		return remoteErr("get milestones", err, "")
	}
	switch len(milestones) {
	case 0:
		return fmt.Errorf("%w: no active milestone in project %q", ErrInvariantViolation, r.opts.project)
	case 1:
	default:
		names := make([]string, len(milestones))
		for i, m := range milestones {
			names[i] = m.Name
		}
		sort.Strings(names)
		return fmt.Errorf("%w: more than one active milestone: %q", ErrInvariantViolation, names)
	}
	r.session.MilestoneID = milestones[0].ID
	r.session.MilestoneName = milestones[0].Name
	return nil
}

func (r *Reporter) resolvePlan(ctx context.Context, planName string) error {
	s := r.session
	s.PlanName = planName + " - " + s.MilestoneName

	id, err := r.findPlan(ctx, s.PlanName)
	if err != nil {
		return err
	}
	if id == 0 {
		r.logger.InfoContext(ctx, "Creating plan", "plan", s.PlanName)
		created, err := r.api.AddPlan(ctx, s.ProjectID, testrail.NewPlan{
			Name:        s.PlanName,
			Description: r.opts.planDescription,
			MilestoneID: s.MilestoneID,
		})
		if err != nil {
			return remoteErr("add plan", err, fmt.Sprintf("plan %q", s.PlanName))
		}
		id = created.ID
	}

	plan, err := r.api.GetPlan(ctx, id)
	if err != nil {
		return remoteErr("get plan", err, fmt.Sprintf("plan %d", id))
	}
	s.PlanID = plan.ID
	s.Plan = plan
	return nil
}

// findPlan returns the ID of the incomplete plan named name under the
// active milestone, or 0.
func (r *Reporter) findPlan(ctx context.Context, name string) (int, error) {
	plans, err := r.api.GetPlans(ctx, r.session.ProjectID, r.session.MilestoneID)
	if err != nil {
		return 0, remoteErr("get plans", err, fmt.Sprintf("milestone %d", r.session.MilestoneID))
	}
	for _, p := range plans {
		if p.Name == name {
			return p.ID, nil
		}
	}
	return 0, nil
}
