package index

import (
	"sort"
	"strings"
)

// Filter selects which entries list() returns. Name, when set, also
// ranks and filters by a match score; a nil Name includes every entry
// (subject to the other filters) with score 0. Fuzzy ranking of name
// matches is an external collaborator concern (see SPEC_FULL.md); this
// package scores with a simple case-insensitive substring match, which
// is sufficient for the core's own ordering guarantees.
type Filter struct {
	URL            *string
	Tag            *string
	Type           *string
	Name           *string
	IncludeDeleted bool
}

// ListEntry is one result row: the projected entry plus its name-match
// score and the byte offsets within Entry.Name the match covers.
type ListEntry struct {
	Entry      SecretEntry
	NameScore  int
	Highlights []int
}

// ListResult is list()'s return value: every tag seen across the
// returned entries (those matching all filters, the name filter
// included), and the ranked, filtered entries.
type ListResult struct {
	AllTags []string
	Entries []ListEntry
}

// List filters and ranks proj's entries. Sort order is descending
// name_score, then ascending case-insensitive name, then ascending id.
func List(proj *Projection, filter Filter) ListResult {
	tagSet := map[string]bool{}
	var results []ListEntry

	for _, entry := range proj.Entries {
		if entry.SecretEntry.Deleted && !filter.IncludeDeleted {
			continue
		}
		if filter.Type != nil && entry.SecretEntry.Type != *filter.Type {
			continue
		}
		if filter.Tag != nil && !containsFold(entry.SecretEntry.Tags, *filter.Tag) {
			continue
		}
		if filter.URL != nil && !containsFold(entry.SecretEntry.URLs, *filter.URL) {
			continue
		}

		score := 0
		var highlights []int
		if filter.Name != nil {
			var ok bool
			score, highlights, ok = scoreMatch(entry.SecretEntry.Name, *filter.Name)
			if !ok {
				continue
			}
		}

		for _, t := range entry.SecretEntry.Tags {
			tagSet[t] = true
		}

		results = append(results, ListEntry{
			Entry:      entry.SecretEntry,
			NameScore:  score,
			Highlights: highlights,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.NameScore != b.NameScore {
			return a.NameScore > b.NameScore
		}
		an, bn := strings.ToLower(a.Entry.Name), strings.ToLower(b.Entry.Name)
		if an != bn {
			return an < bn
		}
		return a.Entry.ID < b.Entry.ID
	})

	tags := make([]string, 0, len(tagSet))
	for t := range tagSet {
		tags = append(tags, t)
	}
	sort.Strings(tags)

	return ListResult{AllTags: tags, Entries: results}
}

func containsFold(haystack []string, needle string) bool {
	for _, h := range haystack {
		if strings.EqualFold(h, needle) {
			return true
		}
	}
	return false
}

// scoreMatch reports whether query appears in name (case-insensitive)
// and, if so, a score favoring shorter names and matches nearer the
// start, plus the [start,end) byte offsets of the match within name.
func scoreMatch(name, query string) (score int, highlights []int, ok bool) {
	if query == "" {
		return 0, nil, true
	}
	lowerName := strings.ToLower(name)
	lowerQuery := strings.ToLower(query)

	idx := strings.Index(lowerName, lowerQuery)
	if idx < 0 {
		return 0, nil, false
	}

	score = 1000 - idx - len(name)
	if score < 0 {
		score = 0
	}
	return score, []int{idx, idx + len(query)}, true
}
