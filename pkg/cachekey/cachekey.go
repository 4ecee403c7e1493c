// Package cachekey derives deterministic cache keys for packed repository
// snapshots.
package cachekey

import (
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"

	"github.com/repopack-ai/repopack/pkg/models"
)

// sep joins key components. It cannot occur in a GitHub owner/name, a git
// ref name, a hex SHA, or the base-36 config hash.
const sep = "|"

// Hash returns a stable hash of the slice config. The config is normalized
// first (globs sorted, defaults applied), so set-equal configs hash
// identically regardless of glob ordering.
//
// FNV-1a at 32 bits is not collision resistant; a collision maps two slice
// configs onto the same key space and can surface a pack built under the
// colliding config. Inputs are caller-controlled configuration, so this is
// an accepted risk.
func Hash(cfg models.SliceConfig) string {
	n := cfg.Normalized()

	var b strings.Builder
	b.WriteString("inc:")
	b.WriteString(strings.Join(n.IncludeGlobs, ","))
	b.WriteString(";ign:")
	b.WriteString(strings.Join(n.IgnoreGlobs, ","))
	fmt.Fprintf(&b, ";git:%t;ai:%t;def:%t;sc:%t;sb:%t",
		*n.RespectGitignore, *n.RespectAIIgnore, *n.UseDefaultPatterns,
		n.StripComments, n.StripBlankLines)

	h := fnv.New32a()
	h.Write([]byte(b.String()))
	return strconv.FormatUint(uint64(h.Sum32()), 36)
}

// Build assembles the cache key for one packed snapshot. It is a pure
// concatenation; components are validated upstream.
func Build(repoFullName, branch, commitSHA, configHash string) string {
	return strings.Join([]string{repoFullName, branch, commitSHA, configHash}, sep)
}
