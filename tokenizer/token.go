// Package tokenizer turns markdown text into a flat stream of typed tokens
// in markdown-it naming: container tokens come as "<name>_open" and
// "<name>_close" pairs, inline content is carried by "inline" tokens.
package tokenizer

// Token is a typed unit of a token stream.
type Token struct {
	// Type is the token type, e.g. "paragraph_open" or "text".
	Type string `json:"type"`
	// Tag is the HTML tag name the token corresponds to, e.g. "h2".
	Tag string `json:"tag,omitempty"`
	// Nesting is 1 for open tokens, -1 for close tokens and 0 otherwise.
	Nesting int `json:"nesting"`
	// Attrs holds token attributes such as href or order.
	Attrs map[string]string `json:"attrs,omitempty"`
	// Content holds literal text for leaf tokens.
	Content string `json:"content,omitempty"`
	// Info holds the fence info string.
	Info string `json:"info,omitempty"`
	// Markup holds the source markup, e.g. "**" or "-".
	Markup string `json:"markup,omitempty"`
	// Children holds the inline tokens of an "inline" token.
	Children []Token `json:"children,omitempty"`
	// Block is true for block-level tokens.
	Block bool `json:"block,omitempty"`
	// Hidden is true for paragraph tokens of tight list items.
	Hidden bool `json:"hidden,omitempty"`
	// Map is the [start, end) source line range of block tokens.
	Map []int `json:"map,omitempty"`
}

// AttrGet returns the named attribute and whether it is set.
func (t Token) AttrGet(name string) (string, bool) {
	value, ok := t.Attrs[name]
	return value, ok
}

// Attr returns the named attribute or an empty string.
func (t Token) Attr(name string) string {
	return t.Attrs[name]
}

// Open builds a container open token.
func Open(name, tag string, attrs map[string]string) Token {
	return Token{Type: name + "_open", Tag: tag, Nesting: 1, Attrs: attrs}
}

// Close builds a container close token.
func Close(name, tag string) Token {
	return Token{Type: name + "_close", Tag: tag, Nesting: -1}
}

// Text builds a text token.
func Text(content string) Token {
	return Token{Type: "text", Content: content}
}

// Inline builds an inline token carrying children.
func Inline(children ...Token) Token {
	return Token{Type: "inline", Children: children}
}
