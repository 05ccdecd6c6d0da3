package adapters

import "strings"

// ParseDirectives extracts KEY=value routing directives from free text,
// the mini-language used in alarm descriptions:
//
//	"Queue depth too high | TEAMS=a, b | PRIORITY=P1 | RUNBOOK=https://..."
//
// Segments without an "=" are ignored, keys are case-folded to upper,
// values keep their internal spacing. Parsing never fails; the second
// return reports whether any directive was found, and missing required
// directives are the caller's validation concern.
func ParseDirectives(text string) (map[string]string, bool) {
	directives := make(map[string]string)
	for _, segment := range strings.Split(text, "|") {
		key, value, found := strings.Cut(segment, "=")
		if !found {
			continue
		}
		key = strings.ToUpper(strings.TrimSpace(key))
		value = strings.TrimSpace(value)
		if key == "" || value == "" {
			continue
		}
		directives[key] = value
	}
	return directives, len(directives) > 0
}
