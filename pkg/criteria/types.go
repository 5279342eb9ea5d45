package criteria

import (
	"errors"
)

// Criteria is a declarative rule deciding if a resource variant (app config,
// message template, consent subpopulation) applies to a participant.
type Criteria struct {
	Language        string                  `bson:"language,omitempty" json:"language,omitempty"`
	AllOfGroups     []string                `bson:"allOfGroups,omitempty" json:"allOfGroups,omitempty"`
	NoneOfGroups    []string                `bson:"noneOfGroups,omitempty" json:"noneOfGroups,omitempty"`
	AppVersionRules map[string]VersionRange `bson:"appVersionRules,omitempty" json:"appVersionRules,omitempty"`
}

// VersionRange bounds are inclusive; empty strings mean unbounded.
type VersionRange struct {
	Min string `bson:"min,omitempty" json:"min,omitempty"`
	Max string `bson:"max,omitempty" json:"max,omitempty"`
}

// Context carries the participant side of an evaluation.
type Context struct {
	DataGroups []string
	Languages  []string // ordered by preference
	OSName     string
	AppVersion string
}

// Validate detects configuration errors. Overlapping allOf/noneOf sets can
// never match and point to a broken setup.
func (c Criteria) Validate() error {
	for _, g := range c.AllOfGroups {
		for _, n := range c.NoneOfGroups {
			if g == n {
				return errors.New("allOfGroups and noneOfGroups must be disjoint: " + g)
			}
		}
	}
	return nil
}
