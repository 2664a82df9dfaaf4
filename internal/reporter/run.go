package reporter

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"cukerail/internal/cucumber"
	"cukerail/internal/testrail"
)

// GetConfigIDs translates configuration labels into sorted, de-duplicated
// configuration IDs. Label order does not matter.
func (r *Reporter) GetConfigIDs(labels []string) ([]int, error) {
	seen := make(map[int]bool, len(labels))
	ids := make([]int, 0, len(labels))
	for _, label := range labels {
		id, ok := r.session.Configs.Lookup(label)
		if !ok {
			return nil, fmt.Errorf("%w: configuration %q in project configurations", ErrNotFound, label)
		}
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	return ids, nil
}

// AddRun buffers a run for the given configuration labels.
//
// With empty results the run registers every manual case available under
// the configuration as untested. Otherwise every scenario is resolved to an
// automated case, created on the fly when missing, and its status recorded.
// Runs for a configuration set already buffered extend that set's bucket.
func (r *Reporter) AddRun(ctx context.Context, results cucumber.Results, labels []string) error {
	r.logger.InfoContext(ctx, "Adding run", "configuration", strings.Join(labels, ", "))
	if len(labels) == 0 {
		return fmt.Errorf("%w: configuration list is empty", ErrInvalidArgument)
	}
	configIDs, err := r.GetConfigIDs(labels)
	if err != nil {
		return err
	}
	if len(configIDs) == 0 {
		return fmt.Errorf("%w: no configuration matched %q", ErrInvalidArgument, labels)
	}

	key := ConfigKey(configIDs)
	b, ok := r.buckets[key]
	if !ok {
		b = newBucket(configIDs)
	}

	if len(results) == 0 {
		for _, title := range r.session.ManualCases.Titles() {
			ref, _ := r.session.ManualCases.Lookup(title)
			if ref.matches(configIDs) {
				b.set(ref.ID, statusUntested)
			}
		}
	} else {
		for _, name := range results.Names() {
			info := results[name]
			ref, found := r.session.AutomatedCases.Lookup(name)
			caseID := ref.ID
			if !found {
				r.logger.InfoContext(ctx, "Adding case", "title", name, "section", info.Feature)
				if caseID, err = r.AddCase(ctx, name, info.Feature, info.Steps); err != nil {
					return err
				}
			}
			b.set(caseID, info.Status)
		}
	}

	if !ok {
		r.buckets[key] = b
		r.order = append(r.order, key)
	}
	r.logger.DebugContext(ctx, "run buffered", "config_key", key, "cases", len(b.caseIDs))
	return nil
}

// AddCase creates an automated case titled title in the named section,
// creating the section first when needed. Steps become the case's
// multi-line steps field. A title already known to the reporter returns
// the cached case ID without a remote call.
func (r *Reporter) AddCase(ctx context.Context, title, section string, steps []string) (int, error) {
	if title == "" {
		return 0, fmt.Errorf("%w: case title is empty", ErrInvalidArgument)
	}
	if ref, ok := r.session.AutomatedCases.Lookup(title); ok {
		return ref.ID, nil
	}

	sectionID, err := r.sectionID(ctx, section)
	if err != nil {
		return 0, err
	}
	created, err := r.api.AddCase(ctx, sectionID, testrail.NewCase{
		Title:       title,
		TypeID:      r.opts.automatedType,
		CustomSteps: strings.Join(steps, "\n"),
	})
	if err != nil {
		return 0, remoteErr("add case", err, fmt.Sprintf("section %d, case %q", sectionID, title))
	}
	r.session.AutomatedCases.Insert(title, CaseRef{ID: created.ID})
	return created.ID, nil
}

func (r *Reporter) sectionID(ctx context.Context, name string) (int, error) {
	if id, ok := r.session.Sections.Lookup(name); ok {
		return id, nil
	}
	r.logger.InfoContext(ctx, "Adding section", "section", name)
	sec, err := r.api.AddSection(ctx, r.session.ProjectID, testrail.NewSection{
		Name:    name,
		SuiteID: r.session.SuiteID,
	})
	if err != nil {
		return 0, remoteErr("add section", err, fmt.Sprintf("section %q", name))
	}
	r.session.Sections.Insert(name, sec.ID)
	return sec.ID, nil
}
