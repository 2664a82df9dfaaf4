// Package testrail is a client for the TestRail API v2.
//
// Usage:
//
//	client, err := testrail.New(baseURL, user, apiKey, testrail.WithTimeout(30*time.Second))
//	projects, err := client.GetProjects(ctx)
//	plan, err := client.GetPlan(ctx, 42)
//	err = client.AddResults(ctx, runID, []testrail.NewResult{{TestID: 7, StatusID: 1}})
//
// List endpoints transparently follow TestRail's paginated envelopes
// (offset/limit with _links.next) and also accept the legacy bare-array form.
package testrail
