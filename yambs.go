/*
Package yambs provides YAMBS, a meta build system for C++ projects.

YAMBS reads a small TOML manifest per project directory, resolves the
transitive dependency graph across manifests, and generates a makefile
project tree that a downstream build system (make, by default) actually
compiles. YAMBS itself never invokes a compiler: its job ends at emitting
a deterministic, byte-identical-on-rerun build tree and then handing off to
$YAMBS_BUILD_SYSTEM_EXECUTABLE.

# Configuration

A project declares its targets in yambs.toml:

	[executable.app]
	sources = ["main.cpp"]

	[library.core]
	sources = ["core.cpp"]
	type = "static"

# Usage

Basic usage:

	yambs build -b build              # resolve, generate, and invoke the driver
	yambs generate -b build           # resolve and generate only
	yambs remake -b build             # re-invoke the driver over an existing tree, no resolve
	yambs check                       # validate the manifest without generating
	yambs cache stats|clean|prune     # inspect or maintain the project cache
	yambs schema                      # print the manifest schema

For more information, see the documentation at https://github.com/oarkflow/yambs
*/
package yambs

// Version is the current version of YAMBS.
const Version = "0.1.0"

// BuildDate is set at build time.
var BuildDate string

// GitCommit is set at build time.
var GitCommit string
