package selector

import "strings"

// libraryFilter gates candidates by library section name. Two lists apply
// independently: the include list and the exclusive list. A candidate passes
// only when every non-empty list contains its library. Matching is
// case-insensitive.
type libraryFilter struct {
	include map[string]struct{}
	only    map[string]struct{}
}

func newLibraryFilter(include, only []string) libraryFilter {
	return libraryFilter{
		include: lowerSet(include),
		only:    lowerSet(only),
	}
}

func (f libraryFilter) allows(library string) bool {
	key := strings.ToLower(strings.TrimSpace(library))
	if len(f.include) > 0 {
		if _, ok := f.include[key]; !ok {
			return false
		}
	}
	if len(f.only) > 0 {
		if _, ok := f.only[key]; !ok {
			return false
		}
	}
	return true
}

func lowerSet(values []string) map[string]struct{} {
	if len(values) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v != "" {
			set[v] = struct{}{}
		}
	}
	return set
}
