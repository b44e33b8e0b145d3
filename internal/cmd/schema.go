/*
Package cmd provides the manifest schema command for YAMBS.
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

// manifestSchema is a Markdown description of the yambs.toml shape §4.1
// parses, kept here rather than as a generated JSON Schema document since
// the manifest has a small, fixed set of tables (no user-defined schema to
// validate against, unlike the teacher's arbitrary release config).
const manifestSchema = `# yambs.toml schema

## [executable.<name>] / [library.<name>]

| Key               | Type             | Required | Notes                              |
|-------------------|------------------|----------|-------------------------------------|
| sources           | array of string  | yes      | paths relative to the manifest dir |
| cxxflags_append   | array of string  | no       | -W/-f/-D/-I/-std/-m tokens only    |
| cppflags_append   | array of string  | no       | same token allow-list              |
| defines           | table of string  | no       | MACRO = "VALUE", VALUE may be ""   |
| dependencies      | table of tables  | no       | see below                          |
| type              | string (library) | no       | "static" (default) or "shared"     |

## [*.dependencies.<name>]

Exactly one of the following shapes, never mixed:

- **source**: ` + "`path`" + ` (required), ` + "`name`" + ` (optional override of the sole-library rule)
- **prebuilt_binary**: ` + "`debug.binary_path`" + `, ` + "`release.binary_path`" + `, ` + "`include_directory`" + `, ` + "`search_type`" + ` ("system" or "user")
- **header_only**: ` + "`include_directory`" + `
- **pkg_config**: ` + "`debug.pkg_config_search_dir`" + `, ` + "`release.pkg_config_search_dir`" + `

Both two-sided (debug/release) shapes may also declare a
` + "`[*.dependencies.<name>.default]`" + ` table; fields left unset in debug/release
inherit from it.

Target names must match ` + "`^[A-Za-z_][A-Za-z0-9_-]*$`" + `. Unknown top-level
tables or unknown keys are fatal (ManifestSchema).
`

var schemaCmd = &cobra.Command{
	Use:   "schema [output]",
	Short: "Print the yambs.toml manifest schema",
	Long: `Prints a Markdown description of the yambs.toml schema. If an
output path is given, the schema is written there instead of stdout.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) > 0 {
			if err := os.WriteFile(args[0], []byte(manifestSchema), 0o644); err != nil {
				return err
			}
			log.Info("schema written", "path", args[0])
			return nil
		}
		fmt.Print(manifestSchema)
		return nil
	},
}
