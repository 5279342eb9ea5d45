package criteria

import (
	"strconv"
	"strings"
)

// Matches evaluates the criteria against the participant context. It is a
// pure function, free of side effects, and safe for concurrent use.
func Matches(c Criteria, ctx Context) bool {
	if !dataGroupsRulePasses(c, ctx) {
		return false
	}
	if !appVersionRulePasses(c, ctx) {
		return false
	}
	if !languageRulePasses(c, ctx) {
		return false
	}
	return true
}

func dataGroupsRulePasses(c Criteria, ctx Context) bool {
	for _, blocked := range c.NoneOfGroups {
		if containsString(ctx.DataGroups, blocked) {
			return false
		}
	}
	for _, required := range c.AllOfGroups {
		if !containsString(ctx.DataGroups, required) {
			return false
		}
	}
	return true
}

func appVersionRulePasses(c Criteria, ctx Context) bool {
	if len(c.AppVersionRules) == 0 {
		return true
	}
	rule, hasRule := c.AppVersionRules[ctx.OSName]
	if !hasRule {
		// OS entries absent from the criteria impose no constraint
		return true
	}
	if rule.Min != "" && CompareVersions(ctx.AppVersion, rule.Min) < 0 {
		return false
	}
	if rule.Max != "" && CompareVersions(ctx.AppVersion, rule.Max) > 0 {
		return false
	}
	return true
}

func languageRulePasses(c Criteria, ctx Context) bool {
	if c.Language == "" {
		return true
	}
	// the language has to be present somewhere in the preference list,
	// not necessarily first
	return containsString(ctx.Languages, c.Language)
}

// CompareVersions compares dotted numeric version strings segment-wise.
// Missing segments count as zero, so "1.2" == "1.2.0".
func CompareVersions(a string, b string) int {
	aParts := strings.Split(a, ".")
	bParts := strings.Split(b, ".")

	segments := len(aParts)
	if len(bParts) > segments {
		segments = len(bParts)
	}

	for i := 0; i < segments; i++ {
		av := versionSegment(aParts, i)
		bv := versionSegment(bParts, i)
		if av != bv {
			if av < bv {
				return -1
			}
			return 1
		}
	}
	return 0
}

func versionSegment(parts []string, index int) int {
	if index >= len(parts) {
		return 0
	}
	v, err := strconv.Atoi(strings.TrimSpace(parts[index]))
	if err != nil {
		return 0
	}
	return v
}

func containsString(slice []string, searchTerm string) bool {
	for _, s := range slice {
		if searchTerm == s {
			return true
		}
	}
	return false
}
