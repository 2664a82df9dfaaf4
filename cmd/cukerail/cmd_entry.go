package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

type deleteEntryFlags struct {
	plan  string
	build string
}

func newDeleteEntryCmd(root *rootOptions) *cobra.Command {
	flags := &deleteEntryFlags{}
	cmd := &cobra.Command{
		Use:   "delete-entry",
		Short: "Delete the plan entry of a build and its runs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDeleteEntry(cmd, root, flags)
		},
	}

	f := cmd.Flags()
	f.StringVar(&flags.plan, "plan", "", "Plan name without the milestone suffix (default from config)")
	f.StringVar(&flags.build, "build", "", "Plan entry name (required)")

	_ = cmd.MarkFlagRequired("build")
	return cmd
}

func runDeleteEntry(cmd *cobra.Command, root *rootOptions, flags *deleteEntryFlags) error {
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
	out := cmd.OutOrStdout()
	if rep.Session().Entry(flags.build) == nil {
		fmt.Fprintf(out, "No entry %q in plan %q.\n", flags.build, rep.Session().PlanName)
		return nil
	}
	if err := rep.DeletePlanEntry(ctx, flags.build); err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	fmt.Fprintf(out, "Deleted entry %q from plan %q.\n", flags.build, rep.Session().PlanName)
	return nil
}
