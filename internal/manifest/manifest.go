// Package manifest implements the Manifest Parser (§4.1): it reads one
// yambs.toml file, validates its schema, and produces the normalized
// Manifest value the rest of the pipeline consumes. The loading shape here
// — read file, decode, validate, wrap every failure with its own error kind
// — follows the same read/unmarshal/validate sequence the teacher's
// internal/config.Load/Validate uses for its own YAML config, generalized
// from a single flat document to TOML's table-of-tables and from YAML to a
// format that preserves table order (BurntSushi/toml's MetaData.Keys),
// which §9 calls out as required for deterministic output (§8 property 2).
package manifest

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"dario.cat/mergo"
	"github.com/BurntSushi/toml"

	"github.com/oarkflow/yambs/internal/yambserr"
)

var targetNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_-]*$`)

var cxxSourceExt = map[string]bool{
	".cpp": true, ".cc": true, ".cxx": true, ".c++": true, ".C": true,
}

// flagTokenRe matches the small allow-list of flag shapes §3 requires:
// -W..., -f..., -D..., -I..., -std=..., -m...
var flagTokenRe = regexp.MustCompile(`^-(W[A-Za-z0-9=,_-]*|f[A-Za-z0-9=_-]+|D[A-Za-z_][A-Za-z0-9_]*(=\S+)?|I\S+|std=[A-Za-z0-9+]+|m[A-Za-z0-9_-]+)$`)

// rawDoc is decoded first so unknown top-level tables can be rejected and
// the per-target tables can be decoded individually (as primitives) so we
// can extract their original key order for defines/dependencies.
type rawDoc struct {
	Executable map[string]toml.Primitive `toml:"executable"`
	Library    map[string]toml.Primitive `toml:"library"`
}

type rawTarget struct {
	Sources        []string                  `toml:"sources"`
	CxxflagsAppend []string                  `toml:"cxxflags_append"`
	CppflagsAppend []string                  `toml:"cppflags_append"`
	Defines        map[string]string         `toml:"defines"`
	Dependencies   map[string]toml.Primitive `toml:"dependencies"`
	Type           string                    `toml:"type"`
}

type rawDependency struct {
	Path string `toml:"path"`
	Name string `toml:"name"`

	// Default holds fields shared by both configurations; debug/release
	// only need to declare what actually differs between them, and
	// inherit the rest (decodeDependency merges Default into each half).
	Default *rawDependencyHalf `toml:"default"`
	Debug   *rawDependencyHalf `toml:"debug"`
	Release *rawDependencyHalf `toml:"release"`

	IncludeDirectory string `toml:"include_directory"`
	SearchType       string `toml:"search_type"`
}

type rawDependencyHalf struct {
	BinaryPath          string `toml:"binary_path"`
	PkgConfigSearchDir string `toml:"pkg_config_search_dir"`
}

// Parse reads and validates the yambs.toml at path, returning a Manifest or
// a *yambserr.Error naming the offending kind.
func Parse(path string) (*Manifest, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, yambserr.Wrap(yambserr.Io, err, "resolving manifest path %s", path)
	}

	raw, err := os.ReadFile(abs)
	if err != nil {
		return nil, yambserr.Wrap(yambserr.Io, err, "reading manifest %s", abs).WithManifest(abs)
	}

	var doc rawDoc
	meta, err := toml.Decode(string(raw), &doc)
	if err != nil {
		return nil, yambserr.Wrap(yambserr.ManifestParse, err, "parsing TOML").WithManifest(abs)
	}

	if err := rejectUnknownTopLevel(meta); err != nil {
		return nil, err.WithManifest(abs)
	}

	sum := sha256.Sum256(raw)
	m := &Manifest{
		Path:        abs,
		Dir:         filepath.Dir(abs),
		ContentHash: hex.EncodeToString(sum[:]),
	}

	execNames := orderedTableKeys(meta, "executable")
	for _, name := range execNames {
		spec, err := decodeTarget(meta, doc.Executable[name], Executable, name, m.Dir)
		if err != nil {
			return nil, err.WithManifest(abs)
		}
		m.Executables = append(m.Executables, spec)
	}

	libNames := orderedTableKeys(meta, "library")
	for _, name := range libNames {
		spec, err := decodeTarget(meta, doc.Library[name], Library, name, m.Dir)
		if err != nil {
			return nil, err.WithManifest(abs)
		}
		m.Libraries = append(m.Libraries, spec)
	}

	if err := checkUniqueNames(m); err != nil {
		return nil, err.WithManifest(abs)
	}

	return m, nil
}

func rejectUnknownTopLevel(meta toml.MetaData) *yambserr.Error {
	for _, k := range meta.Keys() {
		if len(k) == 0 {
			continue
		}
		top := k[0]
		if top != "executable" && top != "library" {
			return yambserr.New(yambserr.ManifestSchema, "unknown top-level table %q (only executable, library allowed)", top)
		}
	}
	return nil
}

// rejectUnknownTargetKeys finds every TOML key under [top.name] (including
// nested dependency tables) that PrimitiveDecode left undecoded because it
// doesn't match any field of rawTarget/rawDependency/rawDependencyHalf, and
// fails on the first one in deterministic (sorted) order. This is what
// actually enforces §4.1's "unknown keys inside a target or dependency
// table are a hard error": decoding into a struct alone silently drops
// fields it doesn't recognize, so the leftover keys have to be checked for
// explicitly.
func rejectUnknownTargetKeys(meta toml.MetaData, top, name string) *yambserr.Error {
	var unknown []toml.Key
	for _, k := range meta.Undecoded() {
		if len(k) >= 2 && k[0] == top && k[1] == name {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	sort.Slice(unknown, func(i, j int) bool {
		return strings.Join(unknown[i], ".") < strings.Join(unknown[j], ".")
	})
	return unknownTargetKeyError(unknown[0], name)
}

func unknownTargetKeyError(k toml.Key, name string) *yambserr.Error {
	if len(k) >= 4 && k[2] == "dependencies" {
		depName := k[3]
		return yambserr.New(yambserr.ManifestSchema, "target %s: unknown key %q in dependency %s", name, strings.Join(k[4:], "."), depName).WithTarget(name)
	}
	return yambserr.New(yambserr.ManifestSchema, "target %s: unknown key %q", name, strings.Join(k[2:], ".")).WithTarget(name)
}

// orderedTableKeys returns the sub-table names under the given top-level
// table (e.g. "executable"), in first-seen document order, deduplicated.
func orderedTableKeys(meta toml.MetaData, top string) []string {
	seen := map[string]bool{}
	var names []string
	for _, k := range meta.Keys() {
		if len(k) < 2 || k[0] != top {
			continue
		}
		name := k[1]
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	return names
}

// orderedSubKeys returns the ordered, deduplicated keys immediately nested
// under top.name.sub (e.g. "executable","x","defines").
func orderedSubKeys(meta toml.MetaData, top, name, sub string) []string {
	seen := map[string]bool{}
	var keys []string
	for _, k := range meta.Keys() {
		if len(k) < 4 || k[0] != top || k[1] != name || k[2] != sub {
			continue
		}
		key := k[3]
		if !seen[key] {
			seen[key] = true
			keys = append(keys, key)
		}
	}
	return keys
}

func decodeTarget(meta toml.MetaData, prim toml.Primitive, kind Kind, name, manifestDir string) (TargetSpec, *yambserr.Error) {
	if !targetNameRe.MatchString(name) {
		return TargetSpec{}, yambserr.New(yambserr.BadTargetName, "target name %q does not match [A-Za-z_][A-Za-z0-9_-]*", name).WithTarget(name)
	}

	var raw rawTarget
	if err := meta.PrimitiveDecode(prim, &raw); err != nil {
		return TargetSpec{}, yambserr.Wrap(yambserr.ManifestSchema, err, "decoding target %s", name).WithTarget(name)
	}

	top := string(kind)
	if len(raw.Sources) == 0 {
		return TargetSpec{}, yambserr.New(yambserr.ManifestSchema, "target %s: sources is required and must be non-empty", name).WithTarget(name)
	}

	spec := TargetSpec{
		Kind: kind,
		Name: name,
	}

	for _, s := range raw.Sources {
		full := filepath.Join(manifestDir, s)
		info, err := os.Stat(full)
		if err != nil || info.IsDir() {
			return TargetSpec{}, yambserr.New(yambserr.SourceNotFound, "target %s: source %q not found", name, s).WithTarget(name).WithSource(full)
		}
		if !cxxSourceExt[filepath.Ext(full)] {
			return TargetSpec{}, yambserr.New(yambserr.ManifestSchema, "target %s: source %q has an unrecognized C++ extension", name, s).WithTarget(name).WithSource(full)
		}
		spec.Sources = append(spec.Sources, full)
	}

	for _, tok := range raw.CxxflagsAppend {
		if !flagTokenRe.MatchString(tok) {
			return TargetSpec{}, yambserr.New(yambserr.BadFlagToken, "target %s: invalid cxxflags_append token %q", name, tok).WithTarget(name)
		}
		spec.CxxflagsAppend = append(spec.CxxflagsAppend, tok)
	}
	for _, tok := range raw.CppflagsAppend {
		if !flagTokenRe.MatchString(tok) {
			return TargetSpec{}, yambserr.New(yambserr.BadFlagToken, "target %s: invalid cppflags_append token %q", name, tok).WithTarget(name)
		}
		spec.CppflagsAppend = append(spec.CppflagsAppend, tok)
	}

	for _, macro := range orderedSubKeys(meta, top, name, "defines") {
		spec.Defines = append(spec.Defines, Define{Macro: macro, Value: raw.Defines[macro]})
	}

	for _, depName := range orderedSubKeys(meta, top, name, "dependencies") {
		desc, err := decodeDependency(meta, top, name, depName, raw.Dependencies[depName])
		if err != nil {
			return TargetSpec{}, err
		}
		spec.Dependencies = append(spec.Dependencies, desc)
	}

	// Every key under this target's table (and, transitively, under each of
	// its dependency tables) has now been decoded into a known field above;
	// anything PrimitiveDecode left untouched is an unrecognized key, which
	// §4.1 makes a hard error rather than a silently-ignored typo.
	if err := rejectUnknownTargetKeys(meta, top, name); err != nil {
		return TargetSpec{}, err
	}

	if kind == Library {
		switch raw.Type {
		case "", "static":
			spec.LibraryType = Static
		case "shared":
			spec.LibraryType = Shared
		default:
			return TargetSpec{}, yambserr.New(yambserr.ManifestSchema, "library %s: type must be \"static\" or \"shared\", got %q", name, raw.Type).WithTarget(name)
		}
	}

	return spec, nil
}

func decodeDependency(meta toml.MetaData, top, targetName, depName string, prim toml.Primitive) (DependencyDescriptor, *yambserr.Error) {
	var raw rawDependency
	if err := meta.PrimitiveDecode(prim, &raw); err != nil {
		return DependencyDescriptor{}, yambserr.Wrap(yambserr.ManifestSchema, err, "decoding dependency %s of target %s", depName, targetName).WithTarget(targetName)
	}

	debugHalf, releaseHalf := mergedHalves(raw.Default, raw.Debug, raw.Release)

	hasSource := raw.Path != ""
	hasPrebuilt := debugHalf.BinaryPath != "" || releaseHalf.BinaryPath != ""
	hasPkgConfig := debugHalf.PkgConfigSearchDir != "" || releaseHalf.PkgConfigSearchDir != ""
	hasHeaderOnly := raw.IncludeDirectory != "" && !hasPrebuilt

	variantCount := boolCount(hasSource, hasPrebuilt, hasPkgConfig, hasHeaderOnly)
	if variantCount != 1 {
		return DependencyDescriptor{}, yambserr.New(yambserr.DependencyAmbiguous, "dependency %s of target %s mixes keys from more than one dependency variant", depName, targetName).WithTarget(targetName)
	}

	desc := DependencyDescriptor{Name: depName}
	switch {
	case hasSource:
		desc.Kind = DependencySource
		desc.Path = raw.Path
		desc.NameOverride = raw.Name
	case hasPrebuilt:
		if debugHalf.BinaryPath == "" || releaseHalf.BinaryPath == "" {
			return DependencyDescriptor{}, yambserr.New(yambserr.ManifestSchema, "dependency %s of target %s: prebuilt_binary requires both debug.binary_path and release.binary_path (directly or via [default])", depName, targetName).WithTarget(targetName)
		}
		desc.Kind = DependencyPrebuiltBinary
		desc.Binary = PerConfig{Debug: debugHalf.BinaryPath, Release: releaseHalf.BinaryPath}
		desc.IncludeDirectory = raw.IncludeDirectory
		switch raw.SearchType {
		case "", "user":
			desc.SearchType = SearchUser
		case "system":
			desc.SearchType = SearchSystem
		default:
			return DependencyDescriptor{}, yambserr.New(yambserr.ManifestSchema, "dependency %s of target %s: search_type must be system or user", depName, targetName).WithTarget(targetName)
		}
	case hasPkgConfig:
		if debugHalf.PkgConfigSearchDir == "" || releaseHalf.PkgConfigSearchDir == "" {
			return DependencyDescriptor{}, yambserr.New(yambserr.ManifestSchema, "dependency %s of target %s: pkg_config requires both debug and release pkg_config_search_dir (directly or via [default])", depName, targetName).WithTarget(targetName)
		}
		desc.Kind = DependencyPkgConfig
		desc.PkgConfigSearchDir = PerConfig{Debug: debugHalf.PkgConfigSearchDir, Release: releaseHalf.PkgConfigSearchDir}
	default:
		desc.Kind = DependencyHeaderOnly
		desc.IncludeDirectory = raw.IncludeDirectory
	}

	return desc, nil
}

// mergedHalves folds a dependency's [default] table into its debug/release
// halves, so a manifest only has to state what differs between
// configurations. mergo.Merge only fills fields the destination left
// zero-valued, which is exactly the override-wins/default-fills-gaps
// behavior [default] is meant to have.
func mergedHalves(def, debug, release *rawDependencyHalf) (rawDependencyHalf, rawDependencyHalf) {
	var d, r rawDependencyHalf
	if debug != nil {
		d = *debug
	}
	if release != nil {
		r = *release
	}
	if def != nil {
		mergo.Merge(&d, *def)
		mergo.Merge(&r, *def)
	}
	return d, r
}

func boolCount(bs ...bool) int {
	n := 0
	for _, b := range bs {
		if b {
			n++
		}
	}
	return n
}

func checkUniqueNames(m *Manifest) *yambserr.Error {
	seen := map[string]bool{}
	for _, t := range m.Executables {
		key := "executable:" + t.Name
		if seen[key] {
			return yambserr.New(yambserr.ManifestSchema, "duplicate executable name %q", t.Name).WithTarget(t.Name)
		}
		seen[key] = true
	}
	seen = map[string]bool{}
	for _, t := range m.Libraries {
		key := "library:" + t.Name
		if seen[key] {
			return yambserr.New(yambserr.ManifestSchema, "duplicate library name %q", t.Name).WithTarget(t.Name)
		}
		seen[key] = true
	}
	return nil
}
