// Package publish runs a complete push: parse the cucumber reports, merge
// rerun overlays, buffer one run per configuration set, then create the plan
// entry and submit the results.
package publish

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"cukerail/internal/cucumber"
	"cukerail/internal/reporter"
)

// Reporter is the part of *reporter.Reporter a push drives.
type Reporter interface {
	AddRun(ctx context.Context, results cucumber.Results, labels []string) error
	CreatePlanEntry(ctx context.Context, build string) error
	DeletePlanEntry(ctx context.Context, build string) error
	SetResults(ctx context.Context) error
	Buckets() []reporter.RunBucket
}

var _ Reporter = (*reporter.Reporter)(nil)

// Report is one cucumber JSON report and the configuration it ran under.
// Overlay optionally names a rerun report whose statuses replace the base
// report's for the scenarios it contains.
type Report struct {
	Path           string   `json:"path"`
	Overlay        string   `json:"overlay,omitempty"`
	Configurations []string `json:"configurations"`
}

// Request describes one push into a plan entry.
type Request struct {
	PlanBuild string
	Reports   []Report
	// Manual lists configuration sets for which manual cases are
	// registered as untested.
	Manual [][]string
	// Recreate deletes an existing entry of the same build first.
	Recreate bool
}

// Summary describes a finished push.
type Summary struct {
	Build     string
	Scenarios int
	// Statuses counts scenarios per cucumber status across all reports.
	Statuses map[string]int
	Buckets  []reporter.RunBucket
}

// Validate checks the request before anything is read or sent.
func (r Request) Validate() error {
	if r.PlanBuild == "" {
		return fmt.Errorf("%w: build name is empty", reporter.ErrInvalidArgument)
	}
	if len(r.Reports) == 0 && len(r.Manual) == 0 {
		return fmt.Errorf("%w: nothing to push, give at least one report or manual configuration", reporter.ErrInvalidArgument)
	}
	for _, rep := range r.Reports {
		if rep.Path == "" {
			return fmt.Errorf("%w: report path is empty", reporter.ErrInvalidArgument)
		}
		if len(rep.Configurations) == 0 {
			return fmt.Errorf("%w: report %s has no configuration", reporter.ErrInvalidArgument, rep.Path)
		}
	}
	for _, labels := range r.Manual {
		if len(labels) == 0 {
			return fmt.Errorf("%w: empty manual configuration", reporter.ErrInvalidArgument)
		}
	}
	return nil
}

// Run executes req against rep. Reports are parsed concurrently; every
// remote call is made sequentially through rep. A failure aborts the push
// and leaves whatever was already created remotely in place.
func Run(ctx context.Context, rep Reporter, req Request) (*Summary, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	results, err := load(ctx, req.Reports)
	if err != nil {
		return nil, err
	}

	sum := &Summary{Build: req.PlanBuild, Statuses: make(map[string]int)}
	for _, res := range results {
		sum.Scenarios += len(res)
		for status, n := range res.Counts() {
			sum.Statuses[status] += n
		}
	}

	if req.Recreate {
		if err := rep.DeletePlanEntry(ctx, req.PlanBuild); err != nil {
			return nil, err
		}
	}
	for i, r := range req.Reports {
		if err := rep.AddRun(ctx, results[i], r.Configurations); err != nil {
			return nil, fmt.Errorf("report %s: %w", r.Path, err)
		}
	}
	for _, labels := range req.Manual {
		if err := rep.AddRun(ctx, nil, labels); err != nil {
			return nil, fmt.Errorf("manual run %s: %w", strings.Join(labels, ","), err)
		}
	}
	if err := rep.CreatePlanEntry(ctx, req.PlanBuild); err != nil {
		return nil, err
	}
	if err := rep.SetResults(ctx); err != nil {
		return nil, err
	}

	sum.Buckets = rep.Buckets()
	return sum, nil
}

// load parses every report and overlay and applies the overlays.
func load(ctx context.Context, reports []Report) ([]cucumber.Results, error) {
	var paths []string
	overlayAt := make(map[int]int)
	for i, r := range reports {
		paths = append(paths, r.Path)
		if r.Overlay != "" {
			overlayAt[i] = len(reports) + len(overlayAt)
		}
	}
	for i := range reports {
		if _, ok := overlayAt[i]; ok {
			paths = append(paths, reports[i].Overlay)
		}
	}

	parsed, err := cucumber.ParseFiles(ctx, paths...)
	if err != nil {
		return nil, err
	}

	out := make([]cucumber.Results, len(reports))
	for i, r := range reports {
		res := parsed[i]
		if j, ok := overlayAt[i]; ok {
			if res, err = cucumber.Merge(res, parsed[j]); err != nil {
				return nil, fmt.Errorf("overlay %s: %w", r.Overlay, err)
			}
		}
		if len(res) == 0 {
			return nil, fmt.Errorf("%w: report %s has no scenarios", reporter.ErrInvalidArgument, r.Path)
		}
		out[i] = res
	}
	return out, nil
}

// ParseReportArg parses the "path:label,label" form used on the command
// line. The last colon separates the path from the labels.
func ParseReportArg(arg string) (Report, error) {
	i := strings.LastIndex(arg, ":")
	if i <= 0 || i == len(arg)-1 {
		return Report{}, fmt.Errorf("%w: %q, want path:configuration[,configuration...]", reporter.ErrInvalidArgument, arg)
	}
	labels := SplitLabels(arg[i+1:])
	if len(labels) == 0 {
		return Report{}, fmt.Errorf("%w: %q has no configuration", reporter.ErrInvalidArgument, arg)
	}
	return Report{Path: arg[:i], Configurations: labels}, nil
}

// SplitLabels splits a comma-separated configuration list, trimming blanks.
func SplitLabels(s string) []string {
	var labels []string
	for _, l := range strings.Split(s, ",") {
		if l = strings.TrimSpace(l); l != "" {
			labels = append(labels, l)
		}
	}
	return labels
}

// StatusNames returns the summary's status names in sorted order.
func (s *Summary) StatusNames() []string {
	names := make([]string, 0, len(s.Statuses))
	for n := range s.Statuses {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
