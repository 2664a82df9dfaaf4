package reporter

import (
	"sort"
	"strings"
)

// StatusUnknown is submitted for statuses missing from the table. TestRail
// rejects it unless the instance defines such a status.
const StatusUnknown = -1

const statusUntested = "untested"

// StatusTable maps upper-case status names to TestRail status IDs. The IDs
// are configured per instance under Administration > Customizations.
type StatusTable map[string]int

// DefaultStatuses returns the stock TestRail status IDs.
func DefaultStatuses() StatusTable {
	return StatusTable{
		"PASSED":   1,
		"UNTESTED": 3,
		"FAILED":   5,
		"SKIPPED":  6,
	}
}

// NewStatusTable builds a table from a user-supplied mapping, upper-casing
// the names. Names that differ only in case are applied in sorted order.
func NewStatusTable(m map[string]int) StatusTable {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	t := make(StatusTable, len(m))
	for _, name := range names {
		t[strings.ToUpper(strings.TrimSpace(name))] = m[name]
	}
	return t
}

// StatusID maps a status name case-insensitively, or returns StatusUnknown.
func (t StatusTable) StatusID(name string) int {
	if id, ok := t[strings.ToUpper(name)]; ok {
		return id
	}
	return StatusUnknown
}

// StatusName returns the lower-case name of id, or "" when unmapped.
func (t StatusTable) StatusName(id int) string {
	for _, name := range t.Names() {
		if t[name] == id {
			return strings.ToLower(name)
		}
	}
	return ""
}

// Names returns the table's names in sorted order.
func (t StatusTable) Names() []string {
	names := make([]string, 0, len(t))
	for n := range t {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
