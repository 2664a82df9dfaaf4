package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"cukerail/internal/display"
	"cukerail/internal/format"
)

type resultsFlags struct {
	plan     string
	name     string
	markdown bool
}

func newResultsCmd(root *rootOptions) *cobra.Command {
	flags := &resultsFlags{}
	cmd := &cobra.Command{
		Use:   "results",
		Short: "Show the latest status of every test of a plan",
		Long: `Show the latest result of every test of a plan under the active milestone,
grouped by configuration. By default the plan is "<plan> - <milestone>";
--name reads another plan by its full name.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runResults(cmd, root, flags)
		},
	}

	f := cmd.Flags()
	f.StringVar(&flags.plan, "plan", "", "Plan name without the milestone suffix (default from config)")
	f.StringVar(&flags.name, "name", "", "Full plan name to read instead")
	f.BoolVar(&flags.markdown, "markdown", false, "Render as Markdown")
	return cmd
}

func runResults(cmd *cobra.Command, root *rootOptions, flags *resultsFlags) error {
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
	name := flags.name
	if name == "" {
		name = rep.Session().PlanName
	}
	results, err := rep.GetResults(ctx, name)
	if err != nil {
		return fmt.Errorf("results: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(results) == 0 {
		fmt.Fprintf(out, "No runs in plan %q.\n", name)
		return nil
	}
	mode := format.ASCII
	if flags.markdown {
		mode = format.Markdown
	}
	fmt.Fprintf(out, "Plan: %s\n\n", name)
	fmt.Fprintln(out, format.ResultsTable(results, display.InvertNames(rep.Session().Configs.ByName()), mode))
	return nil
}
