package main

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"cukerail/internal/display"
	"cukerail/internal/format"
	"cukerail/internal/publish"
	"cukerail/internal/reporter"
)

type pushFlags struct {
	plan     string
	build    string
	reports  []string
	overlays []string
	manual   []string
	recreate bool
	markdown bool
}

func newPushCmd(root *rootOptions) *cobra.Command {
	flags := &pushFlags{}
	cmd := &cobra.Command{
		Use:   "push",
		Short: "Push cucumber reports into a plan entry",
		Long: `Push one or more cucumber JSON reports into the plan entry named after the
build. Each --report is "path:configuration[,configuration...]"; reports that
share a configuration set end up in the same run.

An --overlay with the same configuration set replaces the statuses of the
scenarios it contains, e.g. a rerun of the failed scenarios. --manual adds
the manual cases of a configuration set as untested.`,
		Example: `  cukerail push --plan Regression --build 1.4.2 \
    --report ios.json:"iOS 7,Phone" --report android.json:"Android 4,Phone" \
    --overlay ios-rerun.json:"iOS 7,Phone" --manual "iOS 7,Tablet"`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPush(cmd, root, flags)
		},
	}

	f := cmd.Flags()
	f.StringVar(&flags.plan, "plan", "", "Plan name without the milestone suffix (default from config)")
	f.StringVar(&flags.build, "build", "", "Build name used as the plan entry name (required)")
	f.StringArrayVar(&flags.reports, "report", nil, "Report as path:configuration[,configuration...] (repeatable)")
	f.StringArrayVar(&flags.overlays, "overlay", nil, "Rerun report as path:configuration[,configuration...] (repeatable)")
	f.StringArrayVar(&flags.manual, "manual", nil, "Configuration set whose manual cases are added as untested (repeatable)")
	f.BoolVar(&flags.recreate, "recreate", false, "Delete an existing entry of the same build first")
	f.BoolVar(&flags.markdown, "markdown", false, "Render the run table as Markdown")

	_ = cmd.MarkFlagRequired("build")
	return cmd
}

func runPush(cmd *cobra.Command, root *rootOptions, flags *pushFlags) error {
	req, err := flags.request()
	if err != nil {
		return err
	}
	if err := req.Validate(); err != nil {
		return err
	}

	sess, err := root.openSession()
	if err != nil {
		return err
	}
	defer sess.Close()

	ctx := cmd.Context()
	rep, err := sess.newReporter(ctx, flags.plan)
	if err != nil {
		return err
	}
	start := time.Now()
	sum, err := publish.Run(ctx, rep, req)
	if err != nil {
		return fmt.Errorf("push: %w", err)
	}
	elapsed := time.Since(start)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Plan:      %s\n", rep.Session().PlanName)
	fmt.Fprintf(out, "Entry:     %s\n", sum.Build)
	fmt.Fprintf(out, "Scenarios: %d", sum.Scenarios)
	if len(sum.Statuses) > 0 {
		parts := make([]string, 0, len(sum.Statuses))
		for _, name := range sum.StatusNames() {
			parts = append(parts, fmt.Sprintf("%s %d", display.CucumberStatus(name), sum.Statuses[name]))
		}
		fmt.Fprintf(out, " (%s)", strings.Join(parts, ", "))
	}
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Elapsed:   %s\n", format.FmtDuration(elapsed))
	fmt.Fprintln(out)

	mode := format.ASCII
	if flags.markdown {
		mode = format.Markdown
	}
	names := display.InvertNames(rep.Session().Configs.ByName())
	fmt.Fprintln(out, format.BucketTable(sum.Buckets, names, mode))
	return nil
}

// request turns the command line into a publish request. Overlays attach
// to the report with the same configuration set.
func (f *pushFlags) request() (publish.Request, error) {
	req := publish.Request{PlanBuild: f.build, Recreate: f.recreate}
	for _, arg := range f.reports {
		r, err := publish.ParseReportArg(arg)
		if err != nil {
			return req, err
		}
		req.Reports = append(req.Reports, r)
	}
	for _, arg := range f.overlays {
		o, err := publish.ParseReportArg(arg)
		if err != nil {
			return req, err
		}
		i := findReport(req.Reports, o.Configurations)
		if i < 0 {
			return req, fmt.Errorf("%w: overlay %s: no report for configuration %s",
				reporter.ErrInvalidArgument, o.Path, strings.Join(o.Configurations, ","))
		}
		if req.Reports[i].Overlay != "" {
			return req, fmt.Errorf("%w: overlay %s: report %s already has overlay %s",
				reporter.ErrInvalidArgument, o.Path, req.Reports[i].Path, req.Reports[i].Overlay)
		}
		req.Reports[i].Overlay = o.Path
	}
	for _, arg := range f.manual {
		req.Manual = append(req.Manual, publish.SplitLabels(arg))
	}
	return req, nil
}

func findReport(reports []publish.Report, labels []string) int {
	want := labelSet(labels)
	for i, r := range reports {
		if labelSet(r.Configurations) == want {
			return i
		}
	}
	return -1
}

func labelSet(labels []string) string {
	s := append([]string(nil), labels...)
	sort.Strings(s)
	return strings.Join(s, "\x00")
}
