package imaging

import (
	"hash/fnv"
	"strings"
)

// placeholders is the fixed pool the last resort picks from.
var placeholders = []string{
	"https://images.unsplash.com/photo-1546069901-ba9599a7e63c?w=512&h=512&fit=crop&q=80",
	"https://images.unsplash.com/photo-1504674900247-0877df9cc836?w=512&h=512&fit=crop&q=80",
	"https://images.unsplash.com/photo-1512621776951-a57141f2eefd?w=512&h=512&fit=crop&q=80",
	"https://images.unsplash.com/photo-1540189549336-e6e99c3679fe?w=512&h=512&fit=crop&q=80",
	"https://images.unsplash.com/photo-1565299624946-b28f40a0ae38?w=512&h=512&fit=crop&q=80",
	"https://images.unsplash.com/photo-1567620905732-2d1ec7ab7445?w=512&h=512&fit=crop&q=80",
}

// HashIndex maps name to [0, n) with FNV-1a over the lowercased, trimmed
// name. Candidate and placeholder selection both go through it.
func HashIndex(name string, n int) int {
	if n <= 0 {
		return 0
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(strings.ToLower(strings.TrimSpace(name))))
	return int(h.Sum32() % uint32(n))
}

// Pick returns the candidate selected for name.
func Pick(name string, candidates []string) string {
	if len(candidates) == 0 {
		return ""
	}
	return candidates[HashIndex(name, len(candidates))]
}

// Placeholder returns the deterministic placeholder image for name.
func Placeholder(name string) string {
	if strings.TrimSpace(name) == "" {
		name = "food"
	}
	return Pick(name, placeholders)
}

// IsPlaceholder reports whether url is one of the placeholder images.
func IsPlaceholder(url string) bool {
	for _, p := range placeholders {
		if p == url {
			return true
		}
	}
	return false
}
