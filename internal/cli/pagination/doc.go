// Package pagination holds the listing helpers shared by CLI commands that
// print collections: --limit/--offset/--page parameters, field:order
// sorting, and the page metadata reported alongside JSON output.
package pagination
