package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"cukerail/internal/config"
	"cukerail/internal/format"
)

type historyFlags struct {
	limit    int
	markdown bool
}

func newHistoryCmd(root *rootOptions) *cobra.Command {
	flags := &historyFlags{}
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List runs submitted from this machine",
		Long: `List the submissions recorded in the local ledger (db in the config,
default .cukerail/cukerail.db), newest first. No TestRail call is made.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHistory(cmd, root, flags)
		},
	}

	f := cmd.Flags()
	f.IntVar(&flags.limit, "limit", 20, "Maximum number of submissions (0 = all)")
	f.BoolVar(&flags.markdown, "markdown", false, "Render as Markdown")
	return cmd
}

func runHistory(cmd *cobra.Command, root *rootOptions, flags *historyFlags) error {
	cfg, err := config.Resolve(root.configPath)
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	subs, err := st.ListSubmissions(flags.limit)
	if err != nil {
		return fmt.Errorf("list submissions: %w", err)
	}
	out := cmd.OutOrStdout()
	if len(subs) == 0 {
		fmt.Fprintln(out, "No submissions recorded.")
		return nil
	}
	mode := format.ASCII
	if flags.markdown {
		mode = format.Markdown
	}
	fmt.Fprintln(out, format.SubmissionTable(subs, mode))
	return nil
}
