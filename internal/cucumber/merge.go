package cucumber

import "fmt"

// Merge overlays a re-run onto base: for each scenario in overlay only the
// status in base is replaced. Every overlay scenario must exist in base;
// otherwise ErrUnknownScenario is returned and base is left untouched.
func Merge(base, overlay Results) (Results, error) {
	for name := range overlay {
		if _, ok := base[name]; !ok {
			return nil, fmt.Errorf("merge %q: %w", name, ErrUnknownScenario)
		}
	}
	for name, info := range overlay {
		base[name].Status = info.Status
	}
	return base, nil
}
