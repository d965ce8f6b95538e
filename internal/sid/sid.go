// Package sid computes stable identifiers for dispatch-core declarations,
// derived from a source span rather than looked up by path.
//
// Adapted from the teacher's internal/sid/sid.go: NewSID's canonical-path
// hash formula (hash(canonical_path | start | end | kind | child_path)) is
// kept verbatim, since FunctionId (internal/signature) needs the same
// property the teacher's AST-node SIDs have: the same file, span and kind
// give the same identity, and a different span (including a definition
// moved within its file) gives a different identity. The teacher's
// SIDMap/TraceSlice surface-to-core mapping is dropped: that machinery
// traces a declaration through the teacher's elaboration passes, which
// this repository has no equivalent of (spec.md §1 excludes elaboration).
package sid

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
)

// SID is a stable identifier for one declaration.
type SID string

// NewSID computes a stable id for a declaration at [start, end) in path,
// tagged with kind and an optional child path for nested declarations.
func NewSID(path string, start, end int, kind string, childPath []int) SID {
	canonPath := canonicalizePath(path)

	parts := []string{canonPath, fmt.Sprintf("%d", start), fmt.Sprintf("%d", end), kind}
	for _, idx := range childPath {
		parts = append(parts, fmt.Sprintf("%d", idx))
	}

	input := strings.Join(parts, "|")
	hash := sha256.Sum256([]byte(input))
	return SID(hex.EncodeToString(hash[:])[:16])
}

func canonicalizePath(path string) string {
	path = filepath.Clean(path)
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		path = resolved
	}
	if !filepath.IsAbs(path) {
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
	}
	if isCaseInsensitive() {
		path = strings.ToLower(path)
	}
	return filepath.ToSlash(path)
}

func isCaseInsensitive() bool {
	return runtime.GOOS == "windows" || runtime.GOOS == "darwin"
}
