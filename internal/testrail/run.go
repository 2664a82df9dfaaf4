package testrail

import (
	"context"
	"fmt"
)

// GetTests returns the tests of a run.
func (c *Client) GetTests(ctx context.Context, runID int) ([]Test, error) {
	return listAll[Test](ctx, c, fmt.Sprintf("get_tests/%d", runID), "get tests", "tests")
}

// GetResultsForRun returns the results recorded in a run, newest first.
func (c *Client) GetResultsForRun(ctx context.Context, runID int) ([]Result, error) {
	return listAll[Result](ctx, c, fmt.Sprintf("get_results_for_run/%d", runID), "get results for run", "results")
}

// AddResults posts several results to a run in one call.
func (c *Client) AddResults(ctx context.Context, runID int, results []NewResult) ([]Result, error) {
	body := map[string]any{"results": results}
	var created []Result
	if err := c.post(ctx, fmt.Sprintf("add_results/%d", runID), "add results", body, &created); err != nil {
		return nil, err
	}
	return created, nil
}

// GetStatuses returns the result statuses configured on the instance.
func (c *Client) GetStatuses(ctx context.Context) ([]ResultStatus, error) {
	var statuses []ResultStatus
	if err := c.get(ctx, "get_statuses", "get statuses", &statuses); err != nil {
		return nil, err
	}
	return statuses, nil
}
