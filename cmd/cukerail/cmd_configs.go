package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"cukerail/internal/format"
)

type configsFlags struct {
	plan     string
	markdown bool
}

func newConfigsCmd(root *rootOptions) *cobra.Command {
	flags := &configsFlags{}
	cmd := &cobra.Command{
		Use:   "configs",
		Short: "List the project's configurations and the status mapping",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigs(cmd, root, flags)
		},
	}

	f := cmd.Flags()
	f.StringVar(&flags.plan, "plan", "", "Plan name without the milestone suffix (default from config)")
	f.BoolVar(&flags.markdown, "markdown", false, "Render as Markdown")
	return cmd
}

func runConfigs(cmd *cobra.Command, root *rootOptions, flags *configsFlags) error {
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
	statuses, err := sess.client.GetStatuses(ctx)
	if err != nil {
		return fmt.Errorf("get statuses: %w", err)
	}

	mode := format.ASCII
	if flags.markdown {
		mode = format.Markdown
	}
	s := rep.Session()
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Project:   %s (#%d)\n", sess.cfg.Project, s.ProjectID)
	fmt.Fprintf(out, "Milestone: %s (#%d)\n", s.MilestoneName, s.MilestoneID)
	fmt.Fprintf(out, "Plan:      %s (#%d)\n\n", s.PlanName, s.PlanID)
	fmt.Fprintln(out, format.ConfigTable(s.Configs.ByName(), mode))
	fmt.Fprintln(out)
	fmt.Fprintln(out, format.StatusTable(statuses, rep.Statuses(), mode))
	return nil
}
