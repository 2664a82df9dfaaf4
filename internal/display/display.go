// Package display provides human-readable names for machine codes.
//
// Rule: code is for machines, words are for humans.
// Use these functions in CLI output, markdown reports and logs.
// Keep raw codes for JSON fields, map keys, and equality comparisons.
package display

import (
	"strconv"
	"strings"
)

// --- TestRail statuses ---

// statuses are the system statuses of a stock TestRail instance plus the
// "Skipped" status most instances add.
var statuses = map[int]string{
	1: "Passed",
	2: "Blocked",
	3: "Untested",
	4: "Retest",
	5: "Failed",
	6: "Skipped",
}

// Status returns the human-readable name for a status ID.
// Unknown IDs are shown as "unknown (<id>)".
func Status(id int) string {
	if name, ok := statuses[id]; ok {
		return name
	}
	return "unknown (" + strconv.Itoa(id) + ")"
}

// StatusWithCode returns "Failed (5)" format.
func StatusWithCode(id int) string {
	if name, ok := statuses[id]; ok {
		return name + " (" + strconv.Itoa(id) + ")"
	}
	return Status(id)
}

// --- Cucumber statuses ---

// CucumberStatus capitalizes a cucumber step status: "failed" -> "Failed".
// An empty status is shown as "Unknown".
func CucumberStatus(s string) string {
	if s == "" {
		return "Unknown"
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}

// --- Configuration keys ---

// ConfigKey humanizes a comma-separated configuration key using the
// ID to name mapping. "3,7" -> "iOS 7 / Phone". Unknown IDs stay numeric.
func ConfigKey(key string, names map[int]string) string {
	if key == "" {
		return "(none)"
	}
	parts := strings.Split(key, ",")
	for i, p := range parts {
		id, err := strconv.Atoi(p)
		if err != nil {
			continue
		}
		if name, ok := names[id]; ok {
			parts[i] = name
		}
	}
	return strings.Join(parts, " / ")
}

// InvertNames turns a name to ID mapping into the ID to name mapping
// ConfigKey expects.
func InvertNames(byName map[string]int) map[int]string {
	out := make(map[int]string, len(byName))
	for name, id := range byName {
		out[id] = name
	}
	return out
}
