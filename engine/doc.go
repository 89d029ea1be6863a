// Package engine evaluates brace templates.
//
// A template is text with embedded constructs:
//
//	Dear {c|name|}, you have {.(this#orders)|{c|total|}| @sum@ .} due.
//
// Each construct has a key, optional parameters, preprocessors (between
// percent signs), a body and postprocessors (between at signs):
//
//	{c %local(1036)% (name) |status| @upper@ c}
//
// An [Engine] resolves constructs through a [Registry] of handlers. The
// built-in handlers, listed in [DefaultRegistry], read fields of the current
// record and of records reached from it through a [record.Source],
// transform text and aggregate lists of results.
//
// One [State] exists per parse. It holds the current record, the locale,
// named templates, memory slots and the per-parse cache. Cross-call caching
// uses the engine's [cache.Store], namespaced by organization.
package engine
