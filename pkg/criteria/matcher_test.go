package criteria

import (
	"testing"
)

func TestMatchesDataGroups(t *testing.T) {
	t.Run("with empty criteria", func(t *testing.T) {
		if !Matches(Criteria{}, Context{DataGroups: []string{"g"}}) {
			t.Error("empty criteria should always match")
		}
		if !Matches(Criteria{}, Context{}) {
			t.Error("empty criteria should always match")
		}
	})

	t.Run("with noneOf group present", func(t *testing.T) {
		c := Criteria{NoneOfGroups: []string{"g"}}
		if Matches(c, Context{DataGroups: []string{"g", "other"}}) {
			t.Error("should be excluded")
		}
		if !Matches(c, Context{DataGroups: []string{"other"}}) {
			t.Error("should match")
		}
	})

	t.Run("with allOf group missing", func(t *testing.T) {
		c := Criteria{AllOfGroups: []string{"g"}}
		if Matches(c, Context{DataGroups: []string{"other"}}) {
			t.Error("should be excluded")
		}
		if !Matches(c, Context{DataGroups: []string{"g"}}) {
			t.Error("should match")
		}
	})

	t.Run("with multiple allOf groups", func(t *testing.T) {
		c := Criteria{AllOfGroups: []string{"a", "b"}}
		if Matches(c, Context{DataGroups: []string{"a"}}) {
			t.Error("should require full containment")
		}
		if !Matches(c, Context{DataGroups: []string{"b", "a", "c"}}) {
			t.Error("should match")
		}
	})
}

func TestMatchesAppVersion(t *testing.T) {
	c := Criteria{AppVersionRules: map[string]VersionRange{
		"iOS": {Min: "1.2.0", Max: "2.0.0"},
	}}

	t.Run("below min", func(t *testing.T) {
		if Matches(c, Context{OSName: "iOS", AppVersion: "1.1.9"}) {
			t.Error("should be excluded")
		}
	})

	t.Run("at bounds", func(t *testing.T) {
		if !Matches(c, Context{OSName: "iOS", AppVersion: "1.2.0"}) {
			t.Error("min bound is inclusive")
		}
		if !Matches(c, Context{OSName: "iOS", AppVersion: "2.0.0"}) {
			t.Error("max bound is inclusive")
		}
	})

	t.Run("above max", func(t *testing.T) {
		if Matches(c, Context{OSName: "iOS", AppVersion: "2.0.1"}) {
			t.Error("should be excluded")
		}
	})

	t.Run("for OS without rule", func(t *testing.T) {
		if !Matches(c, Context{OSName: "Android", AppVersion: "0.1"}) {
			t.Error("absent OS entry imposes no constraint")
		}
	})
}

func TestMatchesLanguage(t *testing.T) {
	c := Criteria{Language: "fr"}

	t.Run("language not in preferences", func(t *testing.T) {
		if Matches(c, Context{Languages: []string{"en", "de"}}) {
			t.Error("should be excluded")
		}
	})

	t.Run("language anywhere in preferences", func(t *testing.T) {
		if !Matches(c, Context{Languages: []string{"en", "fr", "de"}}) {
			t.Error("should match even when not first")
		}
	})
}

func TestCompareVersions(t *testing.T) {
	t.Run("with missing segments", func(t *testing.T) {
		if CompareVersions("1.2", "1.2.0") != 0 {
			t.Error("missing segments should count as zero")
		}
	})

	t.Run("with numeric ordering", func(t *testing.T) {
		if CompareVersions("1.10.0", "1.9.0") <= 0 {
			t.Error("segments compare numerically, not lexically")
		}
		if CompareVersions("0.9", "1.0") >= 0 {
			t.Error("should be smaller")
		}
	})
}

func TestCriteriaValidate(t *testing.T) {
	t.Run("with overlapping groups", func(t *testing.T) {
		c := Criteria{AllOfGroups: []string{"a", "b"}, NoneOfGroups: []string{"b"}}
		if c.Validate() == nil {
			t.Error("should report configuration error")
		}
	})

	t.Run("with disjoint groups", func(t *testing.T) {
		c := Criteria{AllOfGroups: []string{"a"}, NoneOfGroups: []string{"b"}}
		if err := c.Validate(); err != nil {
			t.Errorf("unexpected error: %s", err.Error())
		}
	})
}
