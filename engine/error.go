package engine

import "github.com/ardnew/brace/lang"

// Predefined errors (sentinel values). Each derives from one of the kind-wide
// sentinels in package lang, so errors.Is(err, lang.ErrFormat) also matches
// [ErrParam].
var (
	ErrParam       = lang.NewError(lang.KindFormat, "misformatted parameter")
	ErrPath        = lang.NewError(lang.KindFormat, "invalid traversal path")
	ErrNotLookup   = lang.NewError(lang.KindFormat, "field is not a lookup")
	ErrDepth       = lang.NewError(lang.KindFormat, "template expansion too deep")
	ErrMissingBody = lang.NewError(lang.KindFormat, "body is missing")
	ErrTemplate    = lang.NewError(lang.KindLookup, "undefined template")
	ErrNoRecord    = lang.NewError(lang.KindLookup, "no current record")
	ErrValue       = lang.NewError(lang.KindUnsupported, "unsupported value")
	ErrNoSource    = lang.NewError(lang.KindExternal, "no data source")
)
