package reporter

import (
	"context"
	"fmt"

	"cukerail/internal/testrail"
)

// CreatePlanEntry makes sure the plan has an entry named build holding the
// buffered runs, then binds every remote run of that entry to its bucket.
// An existing entry with the same name is reused, so calling it twice does
// not create a second entry.
func (r *Reporter) CreatePlanEntry(ctx context.Context, build string) error {
	r.logger.InfoContext(ctx, "Creating plan entry", "build", build, "plan", r.session.PlanName)
	if build == "" {
		return fmt.Errorf("%w: build name is empty", ErrInvalidArgument)
	}
	if len(r.buckets) == 0 {
		return fmt.Errorf("%w: no run buffered for build %q", ErrInvariantViolation, build)
	}

	entry := r.session.Entry(build)
	if entry == nil {
		runs := make([]testrail.NewRun, 0, len(r.order))
		for _, key := range r.order {
			b := r.buckets[key]
			runs = append(runs, testrail.NewRun{
				IncludeAll: false,
				ConfigIDs:  b.configIDs,
				CaseIDs:    b.caseIDs,
			})
		}
		created, err := r.api.AddPlanEntry(ctx, r.session.PlanID, testrail.NewPlanEntry{
			SuiteID:    r.session.SuiteID,
			Name:       build,
			IncludeAll: true,
			ConfigIDs:  r.session.Configs.IDs(),
			Runs:       runs,
		})
		if err != nil {
			return remoteErr("add plan entry", err, fmt.Sprintf("plan %d, build %q", r.session.PlanID, build))
		}
		r.session.addEntry(*created)
		entry = r.session.Entry(build)
	} else {
		r.logger.InfoContext(ctx, "Reusing plan entry", "build", build, "entry_id", entry.ID)
	}

	return r.bind(entry)
}

// bind matches each remote run of entry to the bucket with the same
// configuration key. No bucket changes unless every run matches.
func (r *Reporter) bind(entry *testrail.PlanEntry) error {
	matched := make([]*bucket, len(entry.Runs))
	for i, run := range entry.Runs {
		key := ConfigKey(run.ConfigIDs)
		b, ok := r.buckets[key]
		if !ok {
			return fmt.Errorf("%w: run %d of entry %q has configuration %q, which was not reported",
				ErrConsistency, run.ID, entry.Name, key)
		}
		matched[i] = b
	}
	for i, run := range entry.Runs {
		matched[i].runID = run.ID
		matched[i].entry = entry.Name
		matched[i].state = StateBound
	}
	return nil
}

// DeletePlanEntry removes every entry named build from the plan, remotely
// and from the local plan cache. Buckets bound to their runs go back to
// PENDING. A build without an entry is not an error.
func (r *Reporter) DeletePlanEntry(ctx context.Context, build string) error {
	r.logger.InfoContext(ctx, "Deleting plan entry", "build", build, "plan", r.session.PlanName)
	if build == "" {
		return fmt.Errorf("%w: build name is empty", ErrInvalidArgument)
	}

	for entry := r.session.Entry(build); entry != nil; entry = r.session.Entry(build) {
		id := entry.ID
		if err := r.api.DeletePlanEntry(ctx, r.session.PlanID, id); err != nil {
			return remoteErr("delete plan entry", err, fmt.Sprintf("plan %d, entry %s", r.session.PlanID, id))
		}
		for _, runID := range r.session.removeEntry(id) {
			for _, b := range r.buckets {
				if b.runID == runID {
					b.runID = 0
					b.entry = ""
					b.state = StatePending
				}
			}
		}
	}
	return nil
}
