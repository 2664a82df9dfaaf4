package testrail

import (
	"context"
	"fmt"
)

// GetCases returns the cases of a project, optionally narrowed to a suite
// and a case type (0 disables the filter).
func (c *Client) GetCases(ctx context.Context, projectID, suiteID, typeID int) ([]Case, error) {
	uri := fmt.Sprintf("get_cases/%d", projectID)
	if suiteID > 0 {
		uri += fmt.Sprintf("&suite_id=%d", suiteID)
	}
	if typeID > 0 {
		uri += fmt.Sprintf("&type_id=%d", typeID)
	}
	return listAll[Case](ctx, c, uri, "get cases", "cases")
}

// AddCase creates a case in the given section.
func (c *Client) AddCase(ctx context.Context, sectionID int, tc NewCase) (*Case, error) {
	var created Case
	if err := c.post(ctx, fmt.Sprintf("add_case/%d", sectionID), "add case", tc, &created); err != nil {
		return nil, err
	}
	return &created, nil
}
