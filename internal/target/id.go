// Package target implements the Target Identity & Registry (§4.2) and the
// post-resolution DAG node shapes (§3): TargetId, ResolvedTarget, and
// ResolvedDependencyEdge. The mutex-guarded map in registry.go follows the
// same shape as the teacher's internal/cache.Cache metadata bookkeeping,
// scoped per-invocation rather than a package-level singleton, per §9's
// explicit "never implicitly constructed at first use."
package target

import (
	"fmt"
	"path/filepath"

	"github.com/oarkflow/yambs/internal/manifest"
)

// Id is the canonical (manifest_absolute_path, kind, name) triple described
// in §3. Canonicalization resolves symlinks and ".." via filepath.Abs plus
// filepath.EvalSymlinks in the resolver's loadManifest, and NewId applies
// filepath.Abs; equality and ordering derive from the resulting tuple.
type Id struct {
	ManifestPath string
	Kind         manifest.Kind
	Name         string
}

// NewId canonicalizes manifestPath and returns the Id for (kind, name)
// under it. manifestPath is expected to already be the manifest's absolute
// path (the resolver canonicalizes once per manifest via loadManifest), so
// this is a light normalization pass rather than a second symlink walk.
func NewId(manifestPath string, kind manifest.Kind, name string) (Id, error) {
	abs, err := filepath.Abs(manifestPath)
	if err != nil {
		return Id{}, err
	}
	return Id{ManifestPath: abs, Kind: kind, Name: name}, nil
}

// String renders an Id as "<manifest>:<kind>/<name>", used in error
// messages and as the cache key input for a target record.
func (id Id) String() string {
	return fmt.Sprintf("%s:%s/%s", id.ManifestPath, id.Kind, id.Name)
}

// Less gives the lexicographic TargetId ordering §4.3 step 6 requires for
// deterministic tie-breaking in the topological sort.
func (id Id) Less(other Id) bool {
	if id.ManifestPath != other.ManifestPath {
		return id.ManifestPath < other.ManifestPath
	}
	if id.Kind != other.Kind {
		return id.Kind < other.Kind
	}
	return id.Name < other.Name
}
