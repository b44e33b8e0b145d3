// Package resolver implements the Dependency Resolver (§4.3): it walks
// source dependencies recursively, resolves the other three dependency
// variants in place, builds the target DAG, detects cycles, and computes a
// deterministic order. The gray/black traversal-guard idiom here is
// grounded on the same seen-map cycle-safety pattern used by
// other_examples/distr1-distri's cmd/distri/build.go resolve/resolve1 pair
// (a real Go build tool's own package-dependency resolver), adapted from a
// flat seen-set to the stack-with-position tracking needed to report a full
// cycle path per §8 property 3.
package resolver

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/oarkflow/yambs/internal/manifest"
	"github.com/oarkflow/yambs/internal/pkgconfig"
	"github.com/oarkflow/yambs/internal/target"
	"github.com/oarkflow/yambs/internal/yambserr"
)

// Graph is the result of a successful resolve: every reached target plus
// the deterministic topological order attached per §4.3 step 6.
type Graph struct {
	Registry *target.Registry
	Roots    []*target.ResolvedTarget
	Order    []*target.ResolvedTarget // dependencies before dependents, ties broken by Id
}

// Resolver holds the process-scoped state for one resolve invocation:
// the target registry (§4.2), a manifest cache keyed by canonical path, and
// a shared pkg-config oracle.
type Resolver struct {
	registry  *target.Registry
	manifests map[string]*manifest.Manifest
	oracle    *pkgconfig.Oracle

	stack    []target.Id
	stackPos map[target.Id]int
}

// New constructs a resolver with a fresh registry, per §9's guidance that
// the registry is explicitly constructed per invocation, never an implicit
// package-level singleton.
func New() *Resolver {
	return &Resolver{
		registry:  target.New(),
		manifests: make(map[string]*manifest.Manifest),
		oracle:    pkgconfig.New(),
		stackPos:  make(map[target.Id]int),
	}
}

// Resolve is the entry point described in §4.3: resolve(root_manifest_path,
// requested_target?) -> ResolvedGraph. An empty requestedTarget resolves
// every target declared in the root manifest.
func (r *Resolver) Resolve(rootManifestPath, requestedTarget string) (*Graph, error) {
	root, err := r.loadManifest(rootManifestPath)
	if err != nil {
		return nil, err
	}

	var roots []*target.ResolvedTarget

	if requestedTarget != "" {
		spec, kind, ok := findByName(root, requestedTarget)
		if !ok {
			return nil, yambserr.New(yambserr.UsageError, "target %q not found in %s", requestedTarget, root.Path).WithManifest(root.Path)
		}
		rt, err := r.resolveTarget(root, kind, spec)
		if err != nil {
			return nil, err
		}
		roots = append(roots, rt)
	} else {
		for _, spec := range root.Executables {
			rt, err := r.resolveTarget(root, manifest.Executable, spec)
			if err != nil {
				return nil, err
			}
			roots = append(roots, rt)
		}
		for _, spec := range root.Libraries {
			rt, err := r.resolveTarget(root, manifest.Library, spec)
			if err != nil {
				return nil, err
			}
			roots = append(roots, rt)
		}
	}

	order := topologicalOrder(r.registry.All())

	return &Graph{Registry: r.registry, Roots: roots, Order: order}, nil
}

func findByName(m *manifest.Manifest, name string) (manifest.TargetSpec, manifest.Kind, bool) {
	if spec, ok := m.Find(manifest.Executable, name); ok {
		return spec, manifest.Executable, true
	}
	if spec, ok := m.Find(manifest.Library, name); ok {
		return spec, manifest.Library, true
	}
	return manifest.TargetSpec{}, "", false
}

func (r *Resolver) loadManifest(path string) (*manifest.Manifest, error) {
	canon := path
	if abs, err := filepath.Abs(path); err == nil {
		canon = abs
		if resolved, err2 := filepath.EvalSymlinks(abs); err2 == nil {
			canon = resolved
		}
	}
	if m, ok := r.manifests[canon]; ok {
		return m, nil
	}
	m, err := manifest.Parse(canon)
	if err != nil {
		return nil, err
	}
	r.manifests[m.Path] = m
	return m, nil
}

// resolveTarget resolves one (manifest, spec) pair into a ResolvedTarget,
// guarding against cycles with a traversal stack and deduplicating via the
// shared registry (§4.2's diamond collapse).
func (r *Resolver) resolveTarget(m *manifest.Manifest, kind manifest.Kind, spec manifest.TargetSpec) (*target.ResolvedTarget, error) {
	id, _ := target.NewId(m.Path, kind, spec.Name)

	if existing, ok := r.registry.Lookup(id); ok {
		return existing, nil
	}
	if pos, onStack := r.stackPos[id]; onStack {
		cycle := append(append([]target.Id{}, r.stack[pos:]...), id)
		return nil, yambserr.New(yambserr.DependencyCycle, "cycle: %s", formatCycle(cycle)).WithTarget(id.String())
	}

	r.stackPos[id] = len(r.stack)
	r.stack = append(r.stack, id)
	defer func() {
		r.stack = r.stack[:len(r.stack)-1]
		delete(r.stackPos, id)
	}()

	rt := &target.ResolvedTarget{
		Id:       id,
		Sources:  append([]string{}, spec.Sources...),
		Flags:    append([]string{}, spec.CxxflagsAppend...),
		CFlags:   append([]string{}, spec.CppflagsAppend...),
		Defines:  append([]manifest.Define{}, spec.Defines...),
		LinkForm: spec.LibraryType,
	}

	for _, dep := range spec.Dependencies {
		edge, err := r.resolveDependency(m, dep)
		if err != nil {
			return nil, err
		}
		rt.Edges = append(rt.Edges, edge)
	}

	rt.ExportedIncludes = exportedIncludes(m, kind)

	r.registry.Finish(id, rt)
	return rt, nil
}

// exportedIncludes implements §3's ResolvedTarget export rule: a library
// exports its manifest directory's conventional include/ if present, else
// the manifest directory itself. Executables export nothing upward.
func exportedIncludes(m *manifest.Manifest, kind manifest.Kind) []string {
	if kind != manifest.Library {
		return nil
	}
	conventional := filepath.Join(m.Dir, "include")
	if info, err := os.Stat(conventional); err == nil && info.IsDir() {
		return []string{conventional}
	}
	return []string{m.Dir}
}

func (r *Resolver) resolveDependency(m *manifest.Manifest, dep manifest.DependencyDescriptor) (target.ResolvedDependencyEdge, error) {
	switch dep.Kind {
	case manifest.DependencySource:
		return r.resolveSourceDependency(m, dep)
	case manifest.DependencyPrebuiltBinary:
		return r.resolvePrebuiltDependency(dep)
	case manifest.DependencyHeaderOnly:
		return r.resolveHeaderOnlyDependency(dep)
	case manifest.DependencyPkgConfig:
		return r.resolvePkgConfigDependency(dep)
	default:
		return target.ResolvedDependencyEdge{}, yambserr.New(yambserr.ManifestSchema, "unknown dependency kind %q", dep.Kind)
	}
}

func (r *Resolver) resolveSourceDependency(m *manifest.Manifest, dep manifest.DependencyDescriptor) (target.ResolvedDependencyEdge, error) {
	depDir := dep.Path
	if !filepath.IsAbs(depDir) {
		depDir = filepath.Join(m.Dir, dep.Path)
	}
	depManifestPath := filepath.Join(depDir, "yambs.toml")

	if _, err := os.Stat(depManifestPath); err != nil {
		return target.ResolvedDependencyEdge{}, yambserr.Wrap(yambserr.SourceNotFound, err, "dependency %s: no yambs.toml under %s", dep.Name, depDir).WithSource(depDir)
	}

	depManifest, err := r.loadManifest(depManifestPath)
	if err != nil {
		return target.ResolvedDependencyEdge{}, err
	}

	var spec manifest.TargetSpec
	var kind manifest.Kind
	if dep.NameOverride != "" {
		var ok bool
		spec, ok = depManifest.Find(manifest.Library, dep.NameOverride)
		kind = manifest.Library
		if !ok {
			spec, ok = depManifest.Find(manifest.Executable, dep.NameOverride)
			kind = manifest.Executable
			if !ok {
				return target.ResolvedDependencyEdge{}, yambserr.New(yambserr.DependencyAmbiguous, "dependency %s: named target %q not found in %s", dep.Name, dep.NameOverride, depManifest.Path).WithManifest(depManifest.Path)
			}
		}
	} else {
		sole, ok := depManifest.SoleLibrary()
		if !ok {
			return target.ResolvedDependencyEdge{}, yambserr.New(yambserr.DependencyAmbiguous, "dependency %s: %s declares zero or multiple library targets; an explicit name is required", dep.Name, depManifest.Path).WithManifest(depManifest.Path)
		}
		spec, kind = sole, manifest.Library
	}

	rt, err := r.resolveTarget(depManifest, kind, spec)
	if err != nil {
		return target.ResolvedDependencyEdge{}, err
	}

	return target.ResolvedDependencyEdge{Kind: target.EdgeInternal, Target: rt}, nil
}

func (r *Resolver) resolvePrebuiltDependency(dep manifest.DependencyDescriptor) (target.ResolvedDependencyEdge, error) {
	for _, p := range []string{dep.Binary.Debug, dep.Binary.Release} {
		if _, err := os.Stat(p); err != nil {
			return target.ResolvedDependencyEdge{}, yambserr.Wrap(yambserr.SourceNotFound, err, "dependency %s: prebuilt binary not found", dep.Name).WithSource(p)
		}
	}
	return target.ResolvedDependencyEdge{
		Kind:             target.EdgePrebuiltBinary,
		BinaryPath:       dep.Binary,
		IncludeDirectory: dep.IncludeDirectory,
		SearchType:       dep.SearchType,
	}, nil
}

func (r *Resolver) resolveHeaderOnlyDependency(dep manifest.DependencyDescriptor) (target.ResolvedDependencyEdge, error) {
	if info, err := os.Stat(dep.IncludeDirectory); err != nil || !info.IsDir() {
		return target.ResolvedDependencyEdge{}, yambserr.New(yambserr.SourceNotFound, "dependency %s: include_directory %s does not exist", dep.Name, dep.IncludeDirectory).WithSource(dep.IncludeDirectory)
	}
	return target.ResolvedDependencyEdge{Kind: target.EdgeHeaderOnly, IncludeDirectory: dep.IncludeDirectory}, nil
}

func (r *Resolver) resolvePkgConfigDependency(dep manifest.DependencyDescriptor) (target.ResolvedDependencyEdge, error) {
	debug, err := r.oracle.Resolve(dep.Name, dep.PkgConfigSearchDir.Debug)
	if err != nil {
		return target.ResolvedDependencyEdge{}, err
	}
	release, err := r.oracle.Resolve(dep.Name, dep.PkgConfigSearchDir.Release)
	if err != nil {
		return target.ResolvedDependencyEdge{}, err
	}
	return target.ResolvedDependencyEdge{
		Kind:            target.EdgePkgConfig,
		PkgConfigCflags: manifest.PerConfig{Debug: debug.Cflags, Release: release.Cflags},
		PkgConfigLibs:   manifest.PerConfig{Debug: debug.Libs, Release: release.Libs},
	}, nil
}

func formatCycle(ids []target.Id) string {
	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = fmt.Sprintf("%s(%s)", id.Name, id.Kind)
	}
	return strings.Join(names, " -> ")
}

// topologicalOrder runs Kahn's algorithm over the internal-dependency edges
// among all resolved targets, breaking ties in the ready frontier by
// TargetId lexicographic order (§4.3 step 6): dependencies are emitted
// before their dependents.
func topologicalOrder(nodes []*target.ResolvedTarget) []*target.ResolvedTarget {
	byId := make(map[target.Id]*target.ResolvedTarget, len(nodes))
	dependsOn := make(map[target.Id][]target.Id, len(nodes))
	dependents := make(map[target.Id][]target.Id, len(nodes))
	pending := make(map[target.Id]int, len(nodes))

	for _, n := range nodes {
		byId[n.Id] = n
		var deps []target.Id
		for _, e := range n.Edges {
			if e.Kind == target.EdgeInternal {
				deps = append(deps, e.Target.Id)
			}
		}
		dependsOn[n.Id] = deps
		pending[n.Id] = len(deps)
	}
	for id, deps := range dependsOn {
		for _, d := range deps {
			dependents[d] = append(dependents[d], id)
		}
	}

	var ready []target.Id
	for _, n := range nodes {
		if pending[n.Id] == 0 {
			ready = insertSorted(ready, n.Id)
		}
	}

	order := make([]*target.ResolvedTarget, 0, len(nodes))
	for len(ready) > 0 {
		next := ready[0]
		ready = ready[1:]
		order = append(order, byId[next])
		for _, dep := range dependents[next] {
			pending[dep]--
			if pending[dep] == 0 {
				ready = insertSorted(ready, dep)
			}
		}
	}

	return order
}

func insertSorted(list []target.Id, id target.Id) []target.Id {
	i := 0
	for i < len(list) && list[i].Less(id) {
		i++
	}
	list = append(list, target.Id{})
	copy(list[i+1:], list[i:])
	list[i] = id
	return list
}

// LinkOrder returns the dependency libraries a target must link against, in
// the reverse-topological order §4.5/§8 property 5 require: every
// dependency appears after every library that depends on it.
func LinkOrder(g *Graph, t *target.ResolvedTarget) []*target.ResolvedTarget {
	reachable := map[target.Id]bool{}
	var visit func(*target.ResolvedTarget)
	visit = func(n *target.ResolvedTarget) {
		for _, e := range n.Edges {
			if e.Kind != target.EdgeInternal || reachable[e.Target.Id] {
				continue
			}
			reachable[e.Target.Id] = true
			visit(e.Target)
		}
	}
	visit(t)

	var filtered []*target.ResolvedTarget
	for _, n := range g.Order {
		if reachable[n.Id] {
			filtered = append(filtered, n)
		}
	}
	for i, j := 0, len(filtered)-1; i < j; i, j = i+1, j-1 {
		filtered[i], filtered[j] = filtered[j], filtered[i]
	}
	return filtered
}
