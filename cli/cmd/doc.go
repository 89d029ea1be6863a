// Package cmd implements the brace subcommands.
//
// Every command that evaluates templates shares the [Data] flags selecting
// the record source (YAML fixtures or an SQL database) and the [Eval] flags
// selecting the organization, locale and cache lifetime of a parse.
package cmd

var (
	// CacheIdentifier is the kong variable identifier containing the path to
	// the runtime cache directory.
	CacheIdentifier = "cache"

	// ConfigIdentifier is the kong variable identifier containing the path to
	// the configuration file.
	ConfigIdentifier = "config"
)
