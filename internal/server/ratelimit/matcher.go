package ratelimit

import "strings"

// MatchEndpoint returns the first configuration whose method and path pattern
// match the request, or nil when the default limit applies.
func MatchEndpoint(path string, method string, configs []EndpointConfig) *EndpointConfig {
	for i := range configs {
		if configs[i].Method == method && matchPattern(configs[i].Path, path) {
			return &configs[i]
		}
	}
	return nil
}

func matchPattern(pattern, path string) bool {
	want := segments(pattern)
	got := segments(path)
	for i, seg := range want {
		wildcard := strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}")
		if wildcard && strings.HasSuffix(seg, "...}") {
			return len(got) > i
		}
		if i >= len(got) {
			return false
		}
		if wildcard {
			if got[i] == "" {
				return false
			}
			continue
		}
		if seg != got[i] {
			return false
		}
	}
	return len(want) == len(got)
}

func segments(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}
