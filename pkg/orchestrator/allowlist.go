package orchestrator

import "strings"

// Allowlist is the set of repository owners eligible for the shared cache.
// Matching is case-insensitive. Gating happens here at the orchestration
// boundary: packs for other owners are routed to the local store, never
// written to the shared one.
type Allowlist map[string]struct{}

// NewAllowlist builds an Allowlist from owner names.
func NewAllowlist(owners []string) Allowlist {
	a := make(Allowlist, len(owners))
	for _, o := range owners {
		o = strings.ToLower(strings.TrimSpace(o))
		if o != "" {
			a[o] = struct{}{}
		}
	}
	return a
}

// Contains reports whether an owner is allow-listed.
func (a Allowlist) Contains(owner string) bool {
	_, ok := a[strings.ToLower(owner)]
	return ok
}
