// Package pkg holds project metadata and the errors shared by the record
// sources and the command line.
package pkg

import (
	_ "embed"
	"strings"
)

//go:embed VERSION
var version string

// Version is the semantic version of the module, embedded at build time.
var Version = strings.TrimSpace(version)

const (
	// Name is the command name. It also names the configuration and cache
	// directories.
	Name = "brace"
	// Description is the one-line summary shown in help output.
	Description = "Template evaluator for record-driven documents"
)

// AuthorInfo is the name and email address of an author.
type AuthorInfo struct {
	Name  string
	Email string
}

// Author lists the primary authors.
//
//nolint:gochecknoglobals
var Author = []AuthorInfo{
	{"ardnew", "andrew@ardnew.com"},
}
