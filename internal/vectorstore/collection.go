package vectorstore

import (
	"regexp"
	"strings"
)

var nonIdentChars = regexp.MustCompile(`[^a-z0-9_]+`)

// CollectionName derives the physical table suffix from a base name and the
// embedding provider's identity ("provider:model"), so collections built
// from incompatible embedding dimensions never collide (spec.md §3,
// Collection invariant).
func CollectionName(baseName, providerIdentity string) string {
	provider, model, found := strings.Cut(providerIdentity, ":")
	if !found {
		provider, model = providerIdentity, "default"
	}
	raw := baseName + "-" + provider + "_" + model
	sanitized := nonIdentChars.ReplaceAllString(strings.ToLower(raw), "_")
	sanitized = strings.Trim(sanitized, "_")
	if sanitized == "" {
		sanitized = "collection"
	}
	if len(sanitized) > 63 {
		sanitized = sanitized[:63]
	}
	return sanitized
}
