package testrail

import (
	"context"
	"fmt"
)

// GetPlans returns the incomplete plans of a project, optionally narrowed to
// a milestone (0 disables the filter). Entries are not populated.
func (c *Client) GetPlans(ctx context.Context, projectID, milestoneID int) ([]Plan, error) {
	uri := fmt.Sprintf("get_plans/%d&is_completed=0", projectID)
	if milestoneID > 0 {
		uri += fmt.Sprintf("&milestone_id=%d", milestoneID)
	}
	return listAll[Plan](ctx, c, uri, "get plans", "plans")
}

// GetPlan returns a plan with its entries and runs.
func (c *Client) GetPlan(ctx context.Context, planID int) (*Plan, error) {
	var plan Plan
	if err := c.get(ctx, fmt.Sprintf("get_plan/%d", planID), "get plan", &plan); err != nil {
		return nil, err
	}
	return &plan, nil
}

// AddPlan creates a plan in the project.
func (c *Client) AddPlan(ctx context.Context, projectID int, plan NewPlan) (*Plan, error) {
	var created Plan
	if err := c.post(ctx, fmt.Sprintf("add_plan/%d", projectID), "add plan", plan, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// AddPlanEntry adds an entry (one or more runs) to a plan and returns it
// with the created runs.
func (c *Client) AddPlanEntry(ctx context.Context, planID int, entry NewPlanEntry) (*PlanEntry, error) {
	var created PlanEntry
	if err := c.post(ctx, fmt.Sprintf("add_plan_entry/%d", planID), "add plan entry", entry, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// DeletePlanEntry removes an entry and its runs from a plan.
func (c *Client) DeletePlanEntry(ctx context.Context, planID int, entryID string) error {
	return c.post(ctx, fmt.Sprintf("delete_plan_entry/%d/%s", planID, entryID), "delete plan entry", nil, nil)
}
