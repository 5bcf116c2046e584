package filters

import (
	"net/url"
	"sort"
)

// Reserved pagination parameters, never treated as filters.
var reservedParams = map[string]struct{}{
	"skip":  {},
	"limit": {},
}

// Params holds the filterable query parameters of a list request. Repeated
// parameters keep all their values.
type Params map[string][]string

// ParseQuery extracts filter parameters from a query string, dropping
// pagination keys and any extra exclusions. Empty values are discarded.
func ParseQuery(values url.Values, exclude ...string) Params {
	skip := make(map[string]struct{}, len(reservedParams)+len(exclude))
	for name := range reservedParams {
		skip[name] = struct{}{}
	}
	for _, name := range exclude {
		skip[name] = struct{}{}
	}

	params := make(Params)
	for name, list := range values {
		if _, excluded := skip[name]; excluded {
			continue
		}
		kept := make([]string, 0, len(list))
		for _, v := range list {
			if v != "" {
				kept = append(kept, v)
			}
		}
		if len(kept) > 0 {
			params[name] = kept
		}
	}
	return params
}

// sortedNames returns parameter names in lexical order so generated SQL is
// deterministic.
func (p Params) sortedNames() []string {
	names := make([]string, 0, len(p))
	for name := range p {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
