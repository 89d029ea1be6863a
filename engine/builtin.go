package engine

// DefaultRegistry holds the built-in constructs, preprocessors and
// postprocessors. Clone it to register additional handlers.
var DefaultRegistry = builtin()

// stateless returns a factory sharing one handler value.
func stateless[T any](h T) func(Params) T {
	return func(Params) T { return h }
}

func builtin() *Registry {
	r := NewRegistry()

	constructs := []Entry[ConstructFactory]{
		{Key: "t", Long: "template", Color: "6B3880", Help: "define a template", New: stateless[Construct](templateConstruct{})},
		{Key: "p", Long: "placeholder", Color: "AA71C1", Help: "expand a template", New: stateless[Construct](placeholderConstruct{})},
		{Key: ".", Long: "context", Color: "6C8BDA", Help: "switch the current record", New: func(Params) Construct { return &contextConstruct{} }},
		{Key: "c", Long: "column", Color: "E9590C", Help: "field of the current record", New: stateless[Construct](columnConstruct{})},
		{Key: "i", Long: "rowinfo", Color: "FABE9E", Help: "identity of the current record", New: stateless[Construct](rowinfoConstruct{})},
		{Key: "u", Long: "userinfo", Color: "F58549", Help: "identity of the calling user", New: stateless[Construct](userinfoConstruct{})},
		{Key: "<", Long: "preload", Color: "AE4309", Help: "load fields into the current record", New: stateless[Construct](preloadConstruct{})},
		{Key: "_", Long: "discard", Color: "912F40", Help: "evaluate and emit nothing", New: stateless[Construct](discardConstruct{})},
		{Key: "e", Long: "expression", Color: "8A7968", Help: "emit the evaluated body", New: stateless[Construct](expressionConstruct{})},
		{Key: "s", Long: "settings", Color: "B2EF9B", Help: "configure the evaluation of the body", New: stateless[Construct](settingsConstruct{})},
		{Key: "r", Long: "replace", Color: "585123", Help: "replace matches in the body", New: stateless[Construct](replaceConstruct{})},
		{Key: "v", Long: "dictionary", Color: "77E250", Help: "localized dictionary value", New: stateless[Construct](dictionaryConstruct{})},
		{Key: "g", Long: "config", Color: "4BC11F", Help: "field of the settings record", New: stateless[Construct](configConstruct{})},
		{Key: "f", Long: "fetch", Color: "3B65CE", Help: "store query results in a slot", New: func(Params) Construct { return &fetchConstruct{} }},
		{Key: "a", Long: "action", Color: "294BA3", Help: "store an action result in a slot", New: stateless[Construct](actionConstruct{})},
		{Key: "*", Long: "random", Color: "FFC2C2", Help: "random string", New: stateless[Construct](randomConstruct{})},
		{Key: "d", Long: "date", Color: "FFFD98", Help: "current UTC date and time", New: stateless[Construct](dateConstruct{})},
	}

	for _, e := range constructs {
		r.Construct(e)
	}

	pre := []Entry[PreprocessorFactory]{
		{Key: "filter", Help: "keep records matching field=value", New: func(p Params) Preprocessor { return filterPre{args: p.Args} }},
		{Key: "distinct", Help: "keep records with distinct fields", New: func(p Params) Preprocessor { return distinctPre{args: p.Args} }},
		{Key: "order", Help: "sort records by fields", New: func(p Params) Preprocessor { return orderPre{args: p.Args} }},
		{Key: "cache", Help: "cache data source calls", New: func(p Params) Preprocessor { return cachePre{p} }},
		{Key: "store", Help: "store the body in a slot", New: func(p Params) Preprocessor { return storePre{p} }},
		{Key: "read", Help: "replace the body with a slot", New: func(p Params) Preprocessor { return readPre{p} }},
		{Key: "local", Long: "localize", Help: "switch the locale", New: func(p Params) Preprocessor { return localPre{params: p} }},
		{Key: "replace", Help: "replace matches in the body", New: func(p Params) Preprocessor { return replacePre{p} }},
	}

	for _, e := range pre {
		r.Preprocessor(e)
	}

	postEntry := func(key, long, help string, fn func(Params) Postprocessor) Entry[PostprocessorFactory] {
		return Entry[PostprocessorFactory]{Key: key, Long: long, Help: help, New: fn}
	}

	post := []Entry[PostprocessorFactory]{
		postEntry("store", "", "store the results in a slot", func(p Params) Postprocessor { return storePost{p} }),
		postEntry("read", "", "replace the results with a slot", func(p Params) Postprocessor { return readPost{p} }),
		postEntry("discard", "", "drop the results", stateless[Postprocessor](discardPost{})),
		postEntry("sub", "substring", "substring by rune offset", func(p Params) Postprocessor { return subPost{p} }),
		postEntry("trim", "", "trim characters", func(p Params) Postprocessor { return trimPost{p} }),
		postEntry("pad", "", "pad to a length", func(p Params) Postprocessor { return padPost{p} }),
		postEntry("length", "", "length in runes", func(p Params) Postprocessor { return lengthPost{p} }),
		postEntry("upper", "", "upper case", func(p Params) Postprocessor { return casePost{p, "upper"} }),
		postEntry("lower", "", "lower case", func(p Params) Postprocessor { return casePost{p, "lower"} }),
		postEntry("sentence", "", "sentence case", func(p Params) Postprocessor { return casePost{p, "sentence"} }),
		postEntry("title", "", "title case", func(p Params) Postprocessor { return casePost{p, "title"} }),
		postEntry("truncate", "", "shorten to a length", func(p Params) Postprocessor { return truncatePost{p} }),
		postEntry("index", "indexof", "offsets of a pattern", func(p Params) Postprocessor { return indexPost{p} }),
		postEntry("extract", "", "matches of a pattern", func(p Params) Postprocessor { return extractPost{p} }),
		postEntry("replace", "", "replace matches", func(p Params) Postprocessor { return replacePost{p} }),
		postEntry("split", "", "split at a separator", func(p Params) Postprocessor { return splitPost{p} }),
		postEntry("html", "", "encode or decode HTML", func(p Params) Postprocessor { return htmlPost{p} }),
		postEntry("date", "", "reformat dates", func(p Params) Postprocessor { return datePost{p} }),
		postEntry("format", "", "localize dates with a time layout", func(p Params) Postprocessor { return formatPost{p} }),
		postEntry("number", "", "reformat numbers", func(p Params) Postprocessor { return numberPost{p} }),
		postEntry("markdown", "md", "render Markdown as HTML", stateless[Postprocessor](markdownPost{})),
		postEntry("clear", "", "drop empty results", stateless[Postprocessor](clearPost{})),
		postEntry("first", "", "first result", stateless[Postprocessor](firstPost{})),
		postEntry("nth", "", "result at a position", func(p Params) Postprocessor { return nthPost{p} }),
		postEntry("last", "", "last result", stateless[Postprocessor](lastPost{})),
		postEntry("count", "", "number of results", stateless[Postprocessor](countPost{})),
		postEntry("join", "", "join the results", func(p Params) Postprocessor { return joinPost{p} }),
		postEntry("min", "", "smallest number", stateless[Postprocessor](aggregatePost{"min"})),
		postEntry("max", "", "largest number", stateless[Postprocessor](aggregatePost{"max"})),
		postEntry("avg", "", "mean of the numbers", stateless[Postprocessor](aggregatePost{"avg"})),
		postEntry("sum", "", "sum of the numbers", stateless[Postprocessor](aggregatePost{"sum"})),
		postEntry("top", "", "first results", func(p Params) Postprocessor { return topPost{p} }),
		postEntry("distinct", "", "drop duplicate results", func(p Params) Postprocessor { return distinctPost{p} }),
		postEntry("order", "", "sort the results", func(p Params) Postprocessor { return orderPost{p} }),
		postEntry("where", "", "keep results matching a pattern", func(p Params) Postprocessor { return wherePost{p, true} }),
		postEntry("filter", "", "drop results matching a pattern", func(p Params) Postprocessor { return wherePost{p, false} }),
	}

	for _, e := range post {
		r.Postprocessor(e)
	}

	return r
}
