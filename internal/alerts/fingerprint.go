package alerts

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// Fingerprint derives the deterministic identity of one logical alert
// condition. It hashes a canonical string built from the source, the
// case-folded title and whichever provider identity fields are present,
// so the same condition hashes identically across FIRING/RESOLVED
// occurrences, delivery retries and JSON key reordering.
func Fingerprint(e *AlertEvent) string {
	pairs := map[string]string{
		"source": strings.ToLower(strings.TrimSpace(e.Source)),
		"title":  e.NormalizedTitle(),
	}
	for k, v := range e.Identity {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		pairs["identity."+strings.ToLower(strings.TrimSpace(k))] = v
	}

	keys := make([]string, 0, len(pairs))
	for k := range pairs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(pairs[k])
	}

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
