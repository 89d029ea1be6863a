// Package lang tokenizes and evaluates brace templates.
//
// A template is plain text with embedded constructs. A construct is
// delimited by braces and names a handler by its key:
//
//	{key %pre(args)% (params) |body| @post(args)@ key}
//
// Every part after the key is optional. Preprocessors must precede the body;
// postprocessors may repeat after it. The key may be echoed before the
// closing brace, in which case it must match.
//
// # Grammar
//
// Informal EBNF:
//
//	Template    → (Text | Construct)*
//	Construct   → '{' Key (Pre | Params | Body | Post)* [Key] '}'
//	Pre         → '%' Key [Params] '%'
//	Post        → '@' Key [Params] '@'
//	Params      → '(' [Argument (',' Argument)*] ')'
//	Body        → '|' Expression '|'
//	Expression  → (Operand | Operator | Construct | '(' Expression ')')*
//	Key         → <characters up to one of ` { } @ % | ( ) \>
//
// Inside parameters and bodies, whitespace is ignored and operators are
// recognized. A backtick toggles escape mode, in which every character up to
// the next backtick is literal. A backslash makes the next character literal.
//
// # Operators
//
// From tightest to loosest binding:
//
//	! -            unary not, unary negate
//	* /            multiply, divide
//	+ -            add, subtract (numbers or date ± duration)
//	< > <= >=      compare
//	== !=          equality
//	&&             and
//	||             or
//	??             null-coalesce
//	? :            conditional (right associative)
//
// Operands placed next to each other with no operator are concatenated:
//
//	{e|`Total: `(1+2)|}  →  Total: 3
//
// # Highlighting
//
// [Tokenize] with [WithHighlight] wraps each construct's Code in private-use
// marker runes carrying its color. [RenderHTML] and [RenderANSI] turn the
// markers into markup; [StripMarkers] restores the raw source.
package lang
