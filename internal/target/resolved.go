package target

import "github.com/oarkflow/yambs/internal/manifest"

// EdgeKind disambiguates the four ResolvedDependencyEdge arms described in
// §3: an edge either points at another resolved target in this process's
// registry (Internal), or carries one of the three external descriptor
// shapes resolved in place by the resolver.
type EdgeKind string

const (
	EdgeInternal       EdgeKind = "internal"
	EdgePrebuiltBinary EdgeKind = "prebuilt_binary"
	EdgeHeaderOnly     EdgeKind = "header_only"
	EdgePkgConfig      EdgeKind = "pkg_config"
)

// ResolvedDependencyEdge is one outgoing edge of a ResolvedTarget, tagged
// by Kind. Only the fields relevant to Kind are populated.
type ResolvedDependencyEdge struct {
	Kind EdgeKind

	// Internal
	Target *ResolvedTarget

	// PrebuiltBinary
	BinaryPath       manifest.PerConfig
	IncludeDirectory string // shared with HeaderOnly
	SearchType       manifest.SearchType

	// PkgConfig
	PkgConfigCflags manifest.PerConfig
	PkgConfigLibs   manifest.PerConfig
}

// ResolvedTarget is the DAG node produced by the resolver (§3): a TargetId,
// its absolute source paths, accumulated flags/defines, its outgoing
// dependency edges, and (for a library) the include directories it exports
// upward to dependents.
type ResolvedTarget struct {
	Id               Id
	Sources          []string
	Flags            []string // cxxflags_append, in manifest order
	CFlags           []string // cppflags_append, in manifest order
	Defines          []manifest.Define
	Edges            []ResolvedDependencyEdge
	LinkForm         manifest.LinkForm // meaningful only when Id.Kind == manifest.Library
	ExportedIncludes []string
}

// OutputName is the artifact filename §6.4 specifies for this target's
// kind: the bare name for an executable, lib<name>.a for a static library,
// lib<name>.so for a shared one.
func (t *ResolvedTarget) OutputName() string {
	if t.Id.Kind != manifest.Library {
		return t.Id.Name
	}
	if t.LinkForm == manifest.Shared {
		return "lib" + t.Id.Name + ".so"
	}
	return "lib" + t.Id.Name + ".a"
}
