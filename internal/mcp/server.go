// Package mcp exposes cukerail operations as Model Context Protocol tools so
// an agent can push cucumber reports and read plan results.
package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"cukerail/internal/display"
	"cukerail/internal/logging"
	"cukerail/internal/publish"
	"cukerail/internal/reporter"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// Version is reported to clients during initialization.
var Version = "dev"

// Factory builds a reporter bound to plan. An empty plan selects the
// configured default.
type Factory func(ctx context.Context, plan string) (*reporter.Reporter, error)

// Server wraps the MCP SDK server. Tool calls are serialized: a reporter is
// built per call and never shared.
type Server struct {
	MCPServer *sdkmcp.Server

	factory Factory
	logger  *slog.Logger
	mu      sync.Mutex
}

// NewServer creates an MCP server whose tools build reporters through factory.
func NewServer(factory Factory) *Server {
	s := &Server{factory: factory, logger: logging.New("mcp")}
	s.MCPServer = sdkmcp.NewServer(
		&sdkmcp.Implementation{Name: "cukerail", Version: Version},
		nil,
	)
	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "push_report",
		Description: "Push cucumber JSON reports into a plan entry named after the build. Missing cases and sections are created; results are posted once per configuration run.",
	}, s.handlePushReport)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "get_plan_results",
		Description: "Get the latest status of every test of a plan, grouped by configuration. plan_name is the full plan name including the milestone suffix.",
	}, s.handleGetPlanResults)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "delete_plan_entry",
		Description: "Delete the plan entry of a build and all of its runs.",
	}, s.handleDeletePlanEntry)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "list_configurations",
		Description: "List the project's configurations and the status mapping used for results.",
	}, s.handleListConfigurations)
}

// --- Tool input/output types ---

type pushReportInput struct {
	Plan     string           `json:"plan,omitempty" jsonschema:"plan name without the milestone suffix (default from config)"`
	Build    string           `json:"build" jsonschema:"plan entry name, usually the build under test"`
	Reports  []publish.Report `json:"reports,omitempty" jsonschema:"cucumber JSON reports with the configurations they ran under"`
	Manual   [][]string       `json:"manual,omitempty" jsonschema:"configuration sets for which manual cases are added as untested"`
	Recreate bool             `json:"recreate,omitempty" jsonschema:"delete an existing entry of the same build first"`
}

type runOutput struct {
	Key           string `json:"key"`
	Configuration string `json:"configuration"`
	RunID         int    `json:"run_id"`
	State         string `json:"state"`
	Cases         int    `json:"cases"`
}

type pushReportOutput struct {
	Plan      string         `json:"plan"`
	Build     string         `json:"build"`
	Scenarios int            `json:"scenarios"`
	Statuses  map[string]int `json:"statuses,omitempty"`
	Runs      []runOutput    `json:"runs"`
}

type getPlanResultsInput struct {
	PlanName string `json:"plan_name" jsonschema:"full plan name, e.g. 'Regression - 1.0'"`
	Plan     string `json:"plan,omitempty" jsonschema:"plan used to open the session (default from config)"`
}

type testStatus struct {
	TestID   int    `json:"test_id"`
	StatusID int    `json:"status_id"`
	Status   string `json:"status"`
}

type runResults struct {
	Key           string       `json:"key"`
	Configuration string       `json:"configuration"`
	Tests         []testStatus `json:"tests"`
}

type getPlanResultsOutput struct {
	PlanName string       `json:"plan_name"`
	Runs     []runResults `json:"runs"`
}

type deletePlanEntryInput struct {
	Plan  string `json:"plan,omitempty" jsonschema:"plan name without the milestone suffix (default from config)"`
	Build string `json:"build" jsonschema:"plan entry name to delete"`
}

type deletePlanEntryOutput struct {
	Plan    string `json:"plan"`
	Build   string `json:"build"`
	Deleted bool   `json:"deleted"`
}

type listConfigurationsInput struct {
	Plan string `json:"plan,omitempty" jsonschema:"plan used to open the session (default from config)"`
}

type configOutput struct {
	Name string `json:"name"`
	ID   int    `json:"id"`
}

type listConfigurationsOutput struct {
	Milestone      string         `json:"milestone"`
	Configurations []configOutput `json:"configurations"`
	Statuses       map[string]int `json:"statuses"`
}

// --- Handlers ---

func (s *Server) open(ctx context.Context, plan string) (*reporter.Reporter, error) {
	rep, err := s.factory(ctx, plan)
	if err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}
	return rep, nil
}

func (s *Server) handlePushReport(ctx context.Context, _ *sdkmcp.CallToolRequest, input pushReportInput) (*sdkmcp.CallToolResult, pushReportOutput, error) {
	req := publish.Request{
		PlanBuild: input.Build,
		Reports:   input.Reports,
		Manual:    input.Manual,
		Recreate:  input.Recreate,
	}
	if err := req.Validate(); err != nil {
		return nil, pushReportOutput{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rep, err := s.open(ctx, input.Plan)
	if err != nil {
		return nil, pushReportOutput{}, err
	}
	sum, err := publish.Run(ctx, rep, req)
	if err != nil {
		return nil, pushReportOutput{}, fmt.Errorf("push_report: %w", err)
	}
	s.logger.InfoContext(ctx, "report pushed",
		slog.String("plan", rep.Session().PlanName),
		slog.String("build", sum.Build),
		slog.Int("runs", len(sum.Buckets)))

	names := display.InvertNames(rep.Session().Configs.ByName())
	out := pushReportOutput{
		Plan:      rep.Session().PlanName,
		Build:     sum.Build,
		Scenarios: sum.Scenarios,
		Statuses:  sum.Statuses,
		Runs:      make([]runOutput, 0, len(sum.Buckets)),
	}
	for _, b := range sum.Buckets {
		out.Runs = append(out.Runs, runOutput{
			Key:           b.Key,
			Configuration: display.ConfigKey(b.Key, names),
			RunID:         b.RunID,
			State:         b.State.String(),
			Cases:         b.Cases,
		})
	}
	return nil, out, nil
}

func (s *Server) handleGetPlanResults(ctx context.Context, _ *sdkmcp.CallToolRequest, input getPlanResultsInput) (*sdkmcp.CallToolResult, getPlanResultsOutput, error) {
	if input.PlanName == "" {
		return nil, getPlanResultsOutput{}, fmt.Errorf("%w: plan_name is required", reporter.ErrInvalidArgument)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rep, err := s.open(ctx, input.Plan)
	if err != nil {
		return nil, getPlanResultsOutput{}, err
	}
	results, err := rep.GetResults(ctx, input.PlanName)
	if err != nil {
		return nil, getPlanResultsOutput{}, fmt.Errorf("get_plan_results: %w", err)
	}

	names := display.InvertNames(rep.Session().Configs.ByName())
	statuses := rep.Statuses()
	out := getPlanResultsOutput{PlanName: input.PlanName, Runs: []runResults{}}
	for _, key := range results.Keys() {
		byTest := results[key]
		tests := make([]int, 0, len(byTest))
		for id := range byTest {
			tests = append(tests, id)
		}
		sort.Ints(tests)

		run := runResults{Key: key, Configuration: display.ConfigKey(key, names), Tests: []testStatus{}}
		for _, id := range tests {
			run.Tests = append(run.Tests, testStatus{
				TestID:   id,
				StatusID: byTest[id],
				Status:   statusName(statuses, byTest[id]),
			})
		}
		out.Runs = append(out.Runs, run)
	}
	return nil, out, nil
}

func (s *Server) handleDeletePlanEntry(ctx context.Context, _ *sdkmcp.CallToolRequest, input deletePlanEntryInput) (*sdkmcp.CallToolResult, deletePlanEntryOutput, error) {
	if input.Build == "" {
		return nil, deletePlanEntryOutput{}, fmt.Errorf("%w: build is required", reporter.ErrInvalidArgument)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rep, err := s.open(ctx, input.Plan)
	if err != nil {
		return nil, deletePlanEntryOutput{}, err
	}
	existed := rep.Session().Entry(input.Build) != nil
	if err := rep.DeletePlanEntry(ctx, input.Build); err != nil {
		return nil, deletePlanEntryOutput{}, fmt.Errorf("delete_plan_entry: %w", err)
	}
	return nil, deletePlanEntryOutput{
		Plan:    rep.Session().PlanName,
		Build:   input.Build,
		Deleted: existed,
	}, nil
}

func (s *Server) handleListConfigurations(ctx context.Context, _ *sdkmcp.CallToolRequest, input listConfigurationsInput) (*sdkmcp.CallToolResult, listConfigurationsOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rep, err := s.open(ctx, input.Plan)
	if err != nil {
		return nil, listConfigurationsOutput{}, err
	}
	sess := rep.Session()
	out := listConfigurationsOutput{
		Milestone:      sess.MilestoneName,
		Configurations: []configOutput{},
		Statuses:       map[string]int(rep.Statuses()),
	}
	for _, name := range sess.Configs.Names() {
		id, _ := sess.Configs.Lookup(name)
		out.Configurations = append(out.Configurations, configOutput{Name: name, ID: id})
	}
	return nil, out, nil
}

// --- Helpers ---

// statusName prefers the configured mapping and falls back to the stock
// TestRail names.
func statusName(t reporter.StatusTable, id int) string {
	if n := t.StatusName(id); n != "" {
		return n
	}
	return display.Status(id)
}
