package engine

import (
	"github.com/goodsign/monday"
	"golang.org/x/text/language"

	"github.com/ardnew/brace/record"
)

// locale pairs the text and date conventions of one locale id.
type locale struct {
	tag  language.Tag
	date monday.Locale
}

var locales = map[int]locale{
	1033: {language.AmericanEnglish, monday.LocaleEnUS},
	2057: {language.BritishEnglish, monday.LocaleEnGB},
	1036: {language.French, monday.LocaleFrFR},
	1031: {language.German, monday.LocaleDeDE},
	1034: {language.EuropeanSpanish, monday.LocaleEsES},
	3082: {language.EuropeanSpanish, monday.LocaleEsES},
	1040: {language.Italian, monday.LocaleItIT},
	1043: {language.Dutch, monday.LocaleNlNL},
	1046: {language.BrazilianPortuguese, monday.LocalePtBR},
	2070: {language.EuropeanPortuguese, monday.LocalePtPT},
	1049: {language.Russian, monday.LocaleRuRU},
	1041: {language.Japanese, monday.LocaleJaJP},
	2052: {language.SimplifiedChinese, monday.LocaleZhCN},
	1042: {language.Korean, monday.LocaleKoKR},
}

// lookupLocale returns the conventions of lcid, falling back to the default
// locale for ids without a mapping.
func lookupLocale(lcid int) locale {
	if l, ok := locales[lcid]; ok {
		return l
	}

	return locales[record.DefaultLocale]
}
