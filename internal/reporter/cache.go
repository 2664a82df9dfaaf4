package reporter

import (
	"sort"
	"strconv"
	"strings"

	"cukerail/internal/testrail"
)

// ConfigKey turns a configuration ID set into the key runs are grouped by.
// The IDs are sorted on a copy, so [3,1,2] and [1,2,3] give "1,2,3".
func ConfigKey(ids []int) string {
	sorted := append([]int(nil), ids...)
	sort.Ints(sorted)
	parts := make([]string, len(sorted))
	for i, id := range sorted {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, ",")
}

// SectionCache maps section names to IDs within the suite.
type SectionCache struct {
	byName map[string]int
}

// NewSectionCache indexes sections by name. The first section wins when
// names repeat.
func NewSectionCache(sections []testrail.Section) *SectionCache {
	c := &SectionCache{byName: make(map[string]int, len(sections))}
	for _, s := range sections {
		if _, ok := c.byName[s.Name]; !ok {
			c.byName[s.Name] = s.ID
		}
	}
	return c
}

func (c *SectionCache) Lookup(name string) (int, bool) {
	id, ok := c.byName[name]
	return id, ok
}

func (c *SectionCache) Insert(name string, id int) { c.byName[name] = id }

func (c *SectionCache) Len() int { return len(c.byName) }

// CaseRef is what the reporter remembers about a case.
type CaseRef struct {
	ID int
	// ConfigIDs is the sorted configuration restriction of the case.
	// Restricted is false when the case carries no restriction field.
	ConfigIDs  []int
	Restricted bool
}

// matches reports whether a case may run under the given sorted IDs: it is
// unrestricted, restricted to nothing, or restricted to exactly that set.
func (r CaseRef) matches(configIDs []int) bool {
	if !r.Restricted || len(r.ConfigIDs) == 0 {
		return true
	}
	return ConfigKey(r.ConfigIDs) == ConfigKey(configIDs)
}

// CaseCache maps case titles to cases for one case type.
type CaseCache struct {
	byTitle map[string]CaseRef
}

// NewCaseCache returns an empty cache.
func NewCaseCache() *CaseCache {
	return &CaseCache{byTitle: make(map[string]CaseRef)}
}

func (c *CaseCache) Lookup(title string) (CaseRef, bool) {
	ref, ok := c.byTitle[title]
	return ref, ok
}

func (c *CaseCache) Insert(title string, ref CaseRef) { c.byTitle[title] = ref }

func (c *CaseCache) Len() int { return len(c.byTitle) }

// Titles returns every cached title in sorted order.
func (c *CaseCache) Titles() []string {
	titles := make([]string, 0, len(c.byTitle))
	for t := range c.byTitle {
		titles = append(titles, t)
	}
	sort.Strings(titles)
	return titles
}

// ConfigCache maps configuration names to IDs, flattened across groups.
type ConfigCache struct {
	byName map[string]int
}

// NewConfigCache flattens the configuration groups of a project.
func NewConfigCache(groups []testrail.ConfigGroup) *ConfigCache {
	c := &ConfigCache{byName: make(map[string]int)}
	for _, g := range groups {
		for _, cfg := range g.Configs {
			c.byName[cfg.Name] = cfg.ID
		}
	}
	return c
}

func (c *ConfigCache) Lookup(name string) (int, bool) {
	id, ok := c.byName[name]
	return id, ok
}

func (c *ConfigCache) Len() int { return len(c.byName) }

// IDs returns every configuration ID in ascending order.
func (c *ConfigCache) IDs() []int {
	ids := make([]int, 0, len(c.byName))
	for _, id := range c.byName {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Names returns every configuration name in sorted order.
func (c *ConfigCache) Names() []string {
	names := make([]string, 0, len(c.byName))
	for n := range c.byName {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// ByName returns a copy of the name to ID mapping.
func (c *ConfigCache) ByName() map[string]int {
	out := make(map[string]int, len(c.byName))
	for n, id := range c.byName {
		out[n] = id
	}
	return out
}
