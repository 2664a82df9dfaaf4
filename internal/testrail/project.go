package testrail

import (
	"context"
	"fmt"
)

// GetProjects returns every project visible to the user.
func (c *Client) GetProjects(ctx context.Context) ([]Project, error) {
	return listAll[Project](ctx, c, "get_projects", "get projects", "projects")
}

// GetSuites returns the suites of a project.
func (c *Client) GetSuites(ctx context.Context, projectID int) ([]Suite, error) {
	var suites []Suite
	if err := c.get(ctx, fmt.Sprintf("get_suites/%d", projectID), "get suites", &suites); err != nil {
		return nil, err
	}
	return suites, nil
}

// GetSections returns the sections of a suite.
func (c *Client) GetSections(ctx context.Context, projectID, suiteID int) ([]Section, error) {
	uri := fmt.Sprintf("get_sections/%d", projectID)
	if suiteID > 0 {
		uri += fmt.Sprintf("&suite_id=%d", suiteID)
	}
	return listAll[Section](ctx, c, uri, "get sections", "sections")
}

// AddSection creates a section in the project.
func (c *Client) AddSection(ctx context.Context, projectID int, section NewSection) (*Section, error) {
	var created Section
	if err := c.post(ctx, fmt.Sprintf("add_section/%d", projectID), "add section", section, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// GetConfigs returns the configuration groups of a project.
func (c *Client) GetConfigs(ctx context.Context, projectID int) ([]ConfigGroup, error) {
	var groups []ConfigGroup
	if err := c.get(ctx, fmt.Sprintf("get_configs/%d", projectID), "get configs", &groups); err != nil {
		return nil, err
	}
	return groups, nil
}

// GetMilestones returns the milestones of a project; activeOnly restricts
// the list to milestones that are not completed.
func (c *Client) GetMilestones(ctx context.Context, projectID int, activeOnly bool) ([]Milestone, error) {
	uri := fmt.Sprintf("get_milestones/%d", projectID)
	if activeOnly {
		uri += "&is_completed=0"
	}
	return listAll[Milestone](ctx, c, uri, "get milestones", "milestones")
}
