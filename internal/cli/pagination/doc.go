// Package pagination implements the --limit/--offset, --page/--page-size and
// --sort flags shared by list commands, plus the metadata describing a page.
package pagination
