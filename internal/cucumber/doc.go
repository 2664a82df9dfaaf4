// Package cucumber normalizes cucumber JSON execution reports into a
// scenario-name keyed result set.
//
// Usage:
//
//	results, err := cucumber.ParseFile("report.json")
//	rerun, err := cucumber.ParseFile("rerun.json")
//	results, err = cucumber.Merge(results, rerun)
package cucumber
