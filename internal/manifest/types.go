package manifest

// Kind distinguishes the two TOML tables a manifest may declare targets
// under. Library targets carry their own LibraryType (static/shared); an
// executable's Kind is always Executable.
type Kind string

const (
	Executable Kind = "executable"
	Library    Kind = "library"
)

// LinkForm is a library's link form, independent from Kind: a manifest
// declares `[library.foo]`, and `type = "shared"` inside it selects LinkForm.
type LinkForm string

const (
	Static LinkForm = "static"
	Shared LinkForm = "shared"
)

// DependencyKind disambiguates the four DependencyDescriptor arms.
type DependencyKind string

const (
	DependencySource         DependencyKind = "source"
	DependencyPrebuiltBinary DependencyKind = "prebuilt_binary"
	DependencyHeaderOnly     DependencyKind = "header_only"
	DependencyPkgConfig      DependencyKind = "pkg_config"
)

// SearchType is the optional PrebuiltBinary search_type.
type SearchType string

const (
	SearchSystem SearchType = "system"
	SearchUser   SearchType = "user"
)

// PerConfig holds a value that differs between the debug and release
// configurations, used by PrebuiltBinary.binary_path and
// PkgConfig.pkg_config_search_dir.
type PerConfig struct {
	Debug   string
	Release string
}

// DependencyDescriptor is the tagged variant described in §3: exactly one of
// the field groups below is populated, selected by Kind.
type DependencyDescriptor struct {
	Name string // the table key under [*.dependencies]
	Kind DependencyKind

	// Source
	Path         string
	NameOverride string

	// PrebuiltBinary
	Binary           PerConfig
	IncludeDirectory string
	SearchType       SearchType

	// HeaderOnly reuses IncludeDirectory above.

	// PkgConfig
	PkgConfigSearchDir PerConfig
}

// Define is one entry of a target's `defines` table, kept as an ordered
// slice instead of a map so manifest round-trips preserve file order
// (§8 property 1).
type Define struct {
	Macro string
	Value string
}

// TargetSpec is a raw, pre-resolution target as parsed from one
// [executable.<name>] or [library.<name>] table.
type TargetSpec struct {
	Kind           Kind
	Name           string
	Sources        []string
	CxxflagsAppend []string
	CppflagsAppend []string
	Defines        []Define
	Dependencies   []DependencyDescriptor
	LibraryType    LinkForm // only meaningful when Kind == Library
}

// Manifest is the parsed content of one yambs.toml.
type Manifest struct {
	Path        string // absolute path to the yambs.toml file
	Dir         string // absolute path to its containing directory
	ContentHash string // sha256 hex of the raw file bytes
	Executables []TargetSpec
	Libraries   []TargetSpec
}

// Find returns the target with the given kind and name, or false.
func (m *Manifest) Find(kind Kind, name string) (TargetSpec, bool) {
	list := m.Executables
	if kind == Library {
		list = m.Libraries
	}
	for _, t := range list {
		if t.Name == name {
			return t, true
		}
	}
	return TargetSpec{}, false
}

// SoleLibrary returns the manifest's single library target, used when a
// Source dependency names only a path and not an explicit target name.
// Returns false if there isn't exactly one.
func (m *Manifest) SoleLibrary() (TargetSpec, bool) {
	if len(m.Libraries) != 1 {
		return TargetSpec{}, false
	}
	return m.Libraries[0], true
}
