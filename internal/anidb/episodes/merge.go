package episodes

import (
	"cmp"
	"slices"
	"strings"
)

const nameSeparator = " / "

// Merge folds the records of episodes N+1..M into the record for episode N.
// Runtimes are summed, names of the additional episodes are appended in
// episode order, and titles are unioned with the primary's first. All other
// fields come from the primary. Merge with no additional records returns a
// copy of primary.
func Merge(primary Record, additional ...Record) Record {
	merged := primary
	merged.Titles = slices.Clone(primary.Titles)
	if len(additional) == 0 {
		return merged
	}

	ordered := slices.Clone(additional)
	slices.SortStableFunc(ordered, func(a, b Record) int {
		return cmp.Compare(indexOf(a), indexOf(b))
	})

	var runtime int64
	hasRuntime := false
	if primary.RuntimeTicks != nil {
		runtime = *primary.RuntimeTicks
		hasRuntime = true
	}

	names := make([]string, 0, len(ordered)+1)
	if primary.Name != "" {
		names = append(names, primary.Name)
	}

	seen := make(map[Title]struct{}, len(merged.Titles))
	for _, t := range merged.Titles {
		seen[t] = struct{}{}
	}

	for _, rec := range ordered {
		if rec.RuntimeTicks != nil {
			runtime += *rec.RuntimeTicks
			hasRuntime = true
		}
		if rec.Name != "" {
			names = append(names, rec.Name)
		}
		for _, t := range rec.Titles {
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			merged.Titles = append(merged.Titles, t)
		}
	}

	if hasRuntime {
		merged.RuntimeTicks = &runtime
	}
	merged.Name = strings.Join(names, nameSeparator)
	return merged
}

func indexOf(r Record) int {
	if r.IndexNumber == nil {
		return 0
	}
	return *r.IndexNumber
}
