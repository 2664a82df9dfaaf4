package reporter

import (
	"context"
	"fmt"
	"sort"
	"time"

	"cukerail/internal/store"
	"cukerail/internal/testrail"
)

// PlanResults maps a configuration key to the latest status ID of every
// test in the run for that configuration.
type PlanResults map[string]map[int]int

// Keys returns the configuration keys in sorted order.
func (p PlanResults) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SetResults posts the buffered statuses of every bucket, one bulk call per
// run. Only tests whose case is in the bucket are updated, so a rerun of a
// subset leaves the other tests untouched. Every bucket must be bound first;
// otherwise nothing is sent.
func (r *Reporter) SetResults(ctx context.Context) error {
	keys := r.sortedKeys()
	for _, key := range keys {
		if b := r.buckets[key]; b.runID == 0 {
			return fmt.Errorf("%w: run for configuration %q is not bound to a plan entry", ErrInvariantViolation, key)
		}
	}

	for _, key := range keys {
		b := r.buckets[key]
		tests, err := r.api.GetTests(ctx, b.runID)
		if err != nil {
			return remoteErr("get tests", err, fmt.Sprintf("run %d", b.runID))
		}

		var pending []testrail.NewResult
		for _, t := range tests {
			status, ok := b.statuses[t.CaseID]
			if !ok {
				continue
			}
			pending = append(pending, testrail.NewResult{
				TestID:   t.ID,
				StatusID: r.opts.statuses.StatusID(status),
			})
		}

		if len(pending) == 0 {
			r.logger.InfoContext(ctx, "No results to submit", "run_id", b.runID, "config_key", key)
			b.state = StateSubmitted
			continue
		}

		r.logger.InfoContext(ctx, "Submitting results", "run_id", b.runID, "config_key", key, "results", len(pending))
		if _, err := r.api.AddResults(ctx, b.runID, pending); err != nil {
			return remoteErr("add results", err, fmt.Sprintf("run %d", b.runID))
		}
		b.state = StateSubmitted
		r.record(ctx, b, len(pending))
	}
	return nil
}

func (r *Reporter) record(ctx context.Context, b *bucket, n int) {
	if r.opts.recorder == nil {
		return
	}
	err := r.opts.recorder.RecordSubmission(store.Submission{
		PlanID:      r.session.PlanID,
		PlanName:    r.session.PlanName,
		EntryName:   b.entry,
		RunID:       b.runID,
		ConfigKey:   b.key,
		Results:     n,
		SubmittedAt: time.Now().UTC(),
	})
	if err != nil {
		r.logger.WarnContext(ctx, "record submission failed", "run_id", b.runID, "error", err)
	}
}

// GetResults loads the plan named planName under the active milestone and
// returns the latest status of every test, grouped by configuration key.
// Runs sharing a configuration key across entries are merged.
func (r *Reporter) GetResults(ctx context.Context, planName string) (PlanResults, error) {
	if planName == "" {
		return nil, fmt.Errorf("%w: plan name is empty", ErrInvalidArgument)
	}
	id, err := r.findPlan(ctx, planName)
	if err != nil {
		return nil, err
	}
	if id == 0 {
		return nil, fmt.Errorf("%w: plan %q under milestone %q", ErrNotFound, planName, r.session.MilestoneName)
	}
	plan, err := r.api.GetPlan(ctx, id)
	if err != nil {
		return nil, remoteErr("get plan", err, fmt.Sprintf("plan %d", id))
	}

	out := make(PlanResults)
	for _, entry := range plan.Entries {
		for _, run := range entry.Runs {
			results, err := r.api.GetResultsForRun(ctx, run.ID)
			if err != nil {
				return nil, remoteErr("get results for run", err, fmt.Sprintf("run %d", run.ID))
			}
			key := ConfigKey(run.ConfigIDs)
			byTest, ok := out[key]
			if !ok {
				byTest = make(map[int]int)
				out[key] = byTest
			}
			for test, status := range latestByTest(results) {
				byTest[test] = status
			}
		}
	}
	return out, nil
}

// latestByTest keeps the newest result of each test. Result IDs grow over
// time, so the highest ID wins regardless of response order.
func latestByTest(results []testrail.Result) map[int]int {
	newest := make(map[int]testrail.Result, len(results))
	for _, res := range results {
		if cur, ok := newest[res.TestID]; !ok || res.ID > cur.ID {
			newest[res.TestID] = res
		}
	}
	out := make(map[int]int, len(newest))
	for test, res := range newest {
		out[test] = res.StatusID
	}
	return out
}
