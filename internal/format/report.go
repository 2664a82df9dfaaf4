package format

import (
	"sort"
	"strconv"
	"strings"

	"cukerail/internal/display"
	"cukerail/internal/reporter"
	"cukerail/internal/store"
	"cukerail/internal/testrail"
)

// Entry names are build names; long ones wrap in ASCII tables.
const entryWidth = 32

// ResultsTable renders plan results one row per test, grouped by
// configuration. configNames maps configuration IDs to names.
func ResultsTable(results reporter.PlanResults, configNames map[int]string, m Mode) string {
	tb := NewTable(m)
	tb.Header("Configuration", "Test", "Status")
	counts := make(map[int]int)
	total := 0
	for _, key := range results.Keys() {
		byTest := results[key]
		tests := make([]int, 0, len(byTest))
		for id := range byTest {
			tests = append(tests, id)
		}
		sort.Ints(tests)
		for _, id := range tests {
			status := byTest[id]
			tb.Row(display.ConfigKey(key, configNames), id, display.StatusWithCode(status))
			counts[status]++
			total++
		}
	}
	tb.Footer("TOTAL", total, statusSummary(counts))
	tb.Columns(ColumnConfig{Number: 2, Align: AlignRight})
	return tb.String()
}

func statusSummary(counts map[int]int) string {
	ids := make([]int, 0, len(counts))
	for id := range counts {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = display.Status(id) + " " + strconv.Itoa(counts[id])
	}
	return strings.Join(parts, ", ")
}

// BucketTable renders the runs of a push.
func BucketTable(buckets []reporter.RunBucket, configNames map[int]string, m Mode) string {
	tb := NewTable(m)
	tb.Header("Configuration", "Run", "Entry", "State", "Cases")
	cases := 0
	for _, b := range buckets {
		run := "-"
		if b.RunID != 0 {
			run = strconv.Itoa(b.RunID)
		}
		tb.Row(display.ConfigKey(b.Key, configNames), run, b.Entry, b.State.String(), b.Cases)
		cases += b.Cases
	}
	tb.Footer("TOTAL", Plural(len(buckets), "run"), "", "", cases)
	tb.Columns(
		ColumnConfig{Number: 2, Align: AlignRight},
		ColumnConfig{Number: 3, MaxWidth: entryWidth},
		ColumnConfig{Number: 4, Align: AlignCenter},
		ColumnConfig{Number: 5, Align: AlignRight},
	)
	return tb.String()
}

// SubmissionTable renders ledger entries.
func SubmissionTable(subs []store.Submission, m Mode) string {
	tb := NewTable(m)
	tb.Header("When", "Plan", "Entry", "Run", "Configuration", "Results")
	for _, s := range subs {
		tb.Row(FmtTime(s.SubmittedAt), Truncate(s.PlanName, 40), s.EntryName, s.RunID, s.ConfigKey, s.Results)
	}
	tb.Columns(
		ColumnConfig{Number: 3, MaxWidth: entryWidth},
		ColumnConfig{Number: 4, Align: AlignRight},
		ColumnConfig{Number: 6, Align: AlignRight},
	)
	return tb.String()
}

// ConfigTable renders configuration names and IDs sorted by name.
func ConfigTable(byName map[string]int, m Mode) string {
	names := make([]string, 0, len(byName))
	for n := range byName {
		names = append(names, n)
	}
	sort.Strings(names)
	tb := NewTable(m)
	tb.Header("Configuration", "ID")
	for _, n := range names {
		tb.Row(n, byName[n])
	}
	tb.Columns(ColumnConfig{Number: 2, Align: AlignRight})
	return tb.String()
}

// StatusTable renders the server's statuses next to the cucumber status
// names mapped to them.
func StatusTable(server []testrail.ResultStatus, configured reporter.StatusTable, m Mode) string {
	mapped := make(map[int][]string)
	for _, name := range configured.Names() {
		id := configured[name]
		mapped[id] = append(mapped[id], name)
	}
	tb := NewTable(m)
	tb.Header("ID", "Status", "Label", "Mapped from")
	for _, s := range server {
		tb.Row(s.ID, s.Name, s.Label, strings.Join(mapped[s.ID], ", "))
		delete(mapped, s.ID)
	}
	ids := make([]int, 0, len(mapped))
	for id := range mapped {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		tb.Row(id, "-", "not defined on server", strings.Join(mapped[id], ", "))
	}
	tb.Columns(
		ColumnConfig{Number: 1, Align: AlignRight},
		ColumnConfig{Number: 4, Align: AlignLeft, MaxWidth: 40},
	)
	return tb.String()
}
