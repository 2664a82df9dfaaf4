package cucumber

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/sync/errgroup"
)

// Parse decodes a cucumber JSON report.
//
// Background elements are ignored. Consecutive scenario outline executions
// sharing a name are numbered "name #1", "name #2", ...; the counter restarts
// whenever the outline name changes. A scenario's status is the status of its
// first non-passing step, or "passed" when every step passed; steps after the
// first failure are not collected. Elements without steps produce no entry.
func Parse(r io.Reader) (Results, error) {
	var features []feature
	if err := json.NewDecoder(r).Decode(&features); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}

	results := make(Results)
	var previousOutline string
	outlineNumber := 0

	for _, f := range features {
		for _, el := range f.Elements {
			if el.Type == elementBackground {
				continue
			}

			name := el.Name
			if el.Type == elementScenarioOutline {
				if el.Name != previousOutline {
					outlineNumber = 0
				}
				previousOutline = el.Name
				outlineNumber++
				name = fmt.Sprintf("%s #%d", el.Name, outlineNumber)
			}

			if len(el.Steps) == 0 {
				continue
			}
			results[name] = walkSteps(f.Name, el.Steps)
		}
	}
	return results, nil
}

func walkSteps(featureName string, steps []step) *TestInfo {
	info := &TestInfo{Feature: featureName}
	for _, s := range steps {
		status := ""
		if s.Result != nil {
			status = s.Result.Status
		}
		info.Status = status
		info.Steps = append(info.Steps, formatStep(s))
		if status != StatusPassed {
			break
		}
	}
	return info
}

func formatStep(s step) string {
	return fmt.Sprintf("**%s** %s", strings.TrimSpace(s.Keyword), s.Name)
}

// ParseFile reads and parses the report at path. The file is closed before
// ParseFile returns.
func ParseFile(path string) (Results, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrIO, path, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrIO, path, err)
	}
	results, err := Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return results, nil
}

// ParseFiles parses several reports concurrently. The returned slice follows
// the order of paths. The first failure cancels the remaining parses.
func ParseFiles(ctx context.Context, paths ...string) ([]Results, error) {
	out := make([]Results, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results, err := ParseFile(path)
			if err != nil {
				return err
			}
			out[i] = results
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
