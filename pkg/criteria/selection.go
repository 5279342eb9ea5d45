package criteria

import "sort"

// Selectable is what callers hand over when picking among many criteria
// bearing candidates. The index refers back to the caller's own list.
type Selectable struct {
	Index     int
	GUID      string
	CreatedAt int64
	Criteria  Criteria
}

// SelectFirstMatching returns the index of the earliest-created candidate
// whose criteria matches the context. Ties on creation time are broken by
// lowest GUID lexical order. The second return value is false if no
// candidate matches; choosing a default is the caller's problem, not ours.
func SelectFirstMatching(candidates []Selectable, ctx Context) (int, bool) {
	found := false
	var best Selectable
	for _, cand := range candidates {
		if !Matches(cand.Criteria, ctx) {
			continue
		}
		if !found || isCreatedBefore(cand, best) {
			best = cand
			found = true
		}
	}
	if !found {
		return 0, false
	}
	return best.Index, true
}

// RankByLanguage filters the candidates to those whose criteria matches and
// orders them by position of the criteria language in the context's ordered
// language preferences (lower index wins). Candidates without a language
// criterion rank after all language matched ones. Remaining ties are broken
// by creation order.
func RankByLanguage(candidates []Selectable, ctx Context) []int {
	type ranked struct {
		cand     Selectable
		langRank int
	}

	matching := []ranked{}
	for _, cand := range candidates {
		if !Matches(cand.Criteria, ctx) {
			continue
		}
		matching = append(matching, ranked{
			cand:     cand,
			langRank: languageRank(cand.Criteria.Language, ctx.Languages),
		})
	}

	sort.SliceStable(matching, func(i, j int) bool {
		if matching[i].langRank != matching[j].langRank {
			return matching[i].langRank < matching[j].langRank
		}
		return isCreatedBefore(matching[i].cand, matching[j].cand)
	})

	indexes := make([]int, len(matching))
	for i, m := range matching {
		indexes[i] = m.cand.Index
	}
	return indexes
}

func languageRank(lang string, preferences []string) int {
	if lang == "" {
		return len(preferences)
	}
	for i, pref := range preferences {
		if pref == lang {
			return i
		}
	}
	return len(preferences)
}

func isCreatedBefore(a Selectable, b Selectable) bool {
	if a.CreatedAt != b.CreatedAt {
		return a.CreatedAt < b.CreatedAt
	}
	return a.GUID < b.GUID
}
