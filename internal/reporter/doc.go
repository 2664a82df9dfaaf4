// Package reporter reconciles parsed cucumber results with a TestRail
// project and pushes them into a plan entry of the active milestone.
//
// A Reporter loads the project's sections, cases and configurations once at
// construction and mutates those caches as it creates sections and cases.
// Results are grouped into run buckets keyed by their sorted configuration
// IDs; a bucket moves from PENDING to BOUND when its run exists in a plan
// entry, and to SUBMITTED once its results were posted.
//
// A Reporter is not safe for concurrent use. Callers serving several
// pipelines build one Reporter per pipeline.
package reporter
