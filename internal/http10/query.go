package http10

import "strings"

// SplitTarget splits a request target such as "/path?x=1&y=2" into its
// path and raw query string. No percent-decoding is performed; the
// reactor's diagnostic routes only ever take plain numeric/ASCII params.
func SplitTarget(target string) (path, query string) {
	if i := strings.IndexByte(target, '?'); i >= 0 {
		return target[:i], target[i+1:]
	}
	return target, ""
}

// ParseQuery turns "a=1&b=2" into a flat map. A key with no "=" maps to
// the empty string; a repeated key keeps its last occurrence.
func ParseQuery(query string) map[string]string {
	out := map[string]string{}
	if query == "" {
		return out
	}
	for _, pair := range strings.Split(query, "&") {
		if pair == "" {
			continue
		}
		k, v, _ := strings.Cut(pair, "=")
		out[k] = v
	}
	return out
}
