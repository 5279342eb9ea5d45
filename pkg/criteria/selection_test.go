package criteria

import (
	"testing"
)

func TestSelectFirstMatching(t *testing.T) {
	t.Run("with no matching candidate", func(t *testing.T) {
		candidates := []Selectable{
			{Index: 0, GUID: "a", CreatedAt: 1, Criteria: Criteria{AllOfGroups: []string{"x"}}},
		}
		_, ok := SelectFirstMatching(candidates, Context{})
		if ok {
			t.Error("should not find a candidate")
		}
	})

	t.Run("earliest created wins", func(t *testing.T) {
		candidates := []Selectable{
			{Index: 0, GUID: "b", CreatedAt: 20},
			{Index: 1, GUID: "a", CreatedAt: 10},
			{Index: 2, GUID: "c", CreatedAt: 30},
		}
		idx, ok := SelectFirstMatching(candidates, Context{})
		if !ok || idx != 1 {
			t.Errorf("unexpected selection: %d", idx)
		}
	})

	t.Run("ties broken by lowest GUID", func(t *testing.T) {
		candidates := []Selectable{
			{Index: 0, GUID: "bbb", CreatedAt: 10},
			{Index: 1, GUID: "aaa", CreatedAt: 10},
		}
		idx, ok := SelectFirstMatching(candidates, Context{})
		if !ok || idx != 1 {
			t.Errorf("unexpected selection: %d", idx)
		}
	})

	t.Run("non matching earlier candidate is skipped", func(t *testing.T) {
		candidates := []Selectable{
			{Index: 0, GUID: "a", CreatedAt: 1, Criteria: Criteria{NoneOfGroups: []string{"g"}}},
			{Index: 1, GUID: "b", CreatedAt: 2},
		}
		idx, ok := SelectFirstMatching(candidates, Context{DataGroups: []string{"g"}})
		if !ok || idx != 1 {
			t.Errorf("unexpected selection: %d", idx)
		}
	})
}

func TestRankByLanguage(t *testing.T) {
	t.Run("best fit by preference order", func(t *testing.T) {
		candidates := []Selectable{
			{Index: 0, GUID: "a", CreatedAt: 1, Criteria: Criteria{Language: "en"}},
			{Index: 1, GUID: "b", CreatedAt: 2, Criteria: Criteria{Language: "fr"}},
			{Index: 2, GUID: "c", CreatedAt: 3, Criteria: Criteria{Language: "zh"}},
		}
		ctx := Context{Languages: []string{"fr", "en", "de"}}
		ranked := RankByLanguage(candidates, ctx)
		if len(ranked) != 3 {
			t.Fatalf("unexpected number of results: %d", len(ranked))
		}
		if ranked[0] != 1 {
			t.Errorf("fr config should rank first, got index %d", ranked[0])
		}
		if ranked[1] != 0 {
			t.Errorf("en config should rank second, got index %d", ranked[1])
		}
	})

	t.Run("non matching candidates are filtered out", func(t *testing.T) {
		candidates := []Selectable{
			{Index: 0, GUID: "a", CreatedAt: 1, Criteria: Criteria{Language: "en", AllOfGroups: []string{"x"}}},
			{Index: 1, GUID: "b", CreatedAt: 2, Criteria: Criteria{Language: "en"}},
		}
		ctx := Context{Languages: []string{"en"}}
		ranked := RankByLanguage(candidates, ctx)
		if len(ranked) != 1 || ranked[0] != 1 {
			t.Errorf("unexpected ranking: %v", ranked)
		}
	})

	t.Run("candidates without language rank last", func(t *testing.T) {
		candidates := []Selectable{
			{Index: 0, GUID: "a", CreatedAt: 1},
			{Index: 1, GUID: "b", CreatedAt: 2, Criteria: Criteria{Language: "de"}},
		}
		ctx := Context{Languages: []string{"de"}}
		ranked := RankByLanguage(candidates, ctx)
		if len(ranked) != 2 || ranked[0] != 1 {
			t.Errorf("unexpected ranking: %v", ranked)
		}
	})
}
