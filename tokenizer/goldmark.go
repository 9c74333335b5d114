package tokenizer

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// Goldmark tokenizes CommonMark text with goldmark and flattens the
// resulting AST into a token stream.
type Goldmark struct {
	md goldmark.Markdown
}

type walker struct {
	ctx    context.Context
	source []byte
	tokens []Token
}

// NewGoldmark creates a CommonMark tokenizer. Extensions are not enabled:
// the schema has no tables, strikethrough or task lists.
func NewGoldmark() *Goldmark {
	return &Goldmark{md: goldmark.New()}
}

// Tokenize converts markdown source into a token stream.
func (g *Goldmark) Tokenize(src []byte) ([]Token, error) {
	return g.TokenizeWithContext(context.Background(), src)
}

// TokenizeWithContext converts markdown source into a token stream, checking
// ctx between blocks.
func (g *Goldmark) TokenizeWithContext(ctx context.Context, src []byte) ([]Token, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	w := &walker{ctx: ctx, source: src}
	root := g.md.Parser().Parse(text.NewReader(src))
	if err := w.blockChildren(root, false); err != nil {
		return nil, err
	}
	return w.tokens, nil
}

func (w *walker) checkContext() error {
	if err := w.ctx.Err(); err != nil {
		return fmt.Errorf("tokenization canceled: %w", err)
	}
	return nil
}

func (w *walker) emit(tok Token) {
	w.tokens = append(w.tokens, tok)
}

func (w *walker) blockChildren(parent ast.Node, tight bool) error {
	for child := parent.FirstChild(); child != nil; child = child.NextSibling() {
		if err := w.checkContext(); err != nil {
			return err
		}
		if err := w.block(child, tight); err != nil {
			return err
		}
	}
	return nil
}

func (w *walker) block(node ast.Node, tight bool) error {
	lines := w.lineRange(node)

	switch typed := node.(type) {
	case *ast.Paragraph:
		w.textblock("paragraph", "p", "", typed, lines, false)
	case *ast.TextBlock:
		w.textblock("paragraph", "p", "", typed, lines, true)
	case *ast.Heading:
		tag := "h" + strconv.Itoa(typed.Level)
		w.textblock("heading", tag, strings.Repeat("#", typed.Level), typed, lines, false)
	case *ast.ThematicBreak:
		w.emit(Token{Type: "hr", Tag: "hr", Block: true, Map: lines})
	case *ast.CodeBlock:
		w.emit(Token{
			Type:    "code_block",
			Tag:     "code",
			Content: string(typed.Lines().Value(w.source)),
			Block:   true,
			Map:     lines,
		})
	case *ast.FencedCodeBlock:
		info := ""
		if typed.Info != nil {
			info = unescape(typed.Info.Segment.Value(w.source))
		}
		w.emit(Token{
			Type:    "fence",
			Tag:     "code",
			Content: string(typed.Lines().Value(w.source)),
			Info:    strings.TrimSpace(info),
			Markup:  "```",
			Block:   true,
			Map:     lines,
		})
	case *ast.Blockquote:
		return w.container("blockquote", "blockquote", ">", nil, lines, func() error {
			return w.blockChildren(typed, false)
		})
	case *ast.List:
		return w.list(typed, lines)
	case *ast.ListItem:
		return w.container("list_item", "li", "", nil, lines, func() error {
			return w.blockChildren(typed, tight)
		})
	case *ast.HTMLBlock:
		// Raw HTML is not interpreted; it is kept as paragraph text.
		raw := strings.TrimRight(string(typed.Lines().Value(w.source)), "\n")
		if typed.HasClosure() {
			raw += "\n" + strings.TrimRight(string(typed.ClosureLine.Value(w.source)), "\n")
		}
		if strings.TrimSpace(raw) == "" {
			return nil
		}
		w.emit(Token{Type: "paragraph_open", Tag: "p", Nesting: 1, Block: true, Map: lines})
		w.emit(Token{Type: "inline", Block: true, Map: lines, Children: []Token{Text(raw)}})
		w.emit(Token{Type: "paragraph_close", Tag: "p", Nesting: -1, Block: true})
	default:
		// Link reference definitions and other non-rendering blocks.
	}
	return nil
}

func (w *walker) textblock(name, tag, markup string, node ast.Node, lines []int, hidden bool) {
	w.emit(Token{Type: name + "_open", Tag: tag, Nesting: 1, Markup: markup, Block: true, Hidden: hidden, Map: lines})
	w.emit(Token{
		Type:     "inline",
		Content:  strings.TrimRight(string(node.Lines().Value(w.source)), "\n"),
		Block:    true,
		Map:      lines,
		Children: w.inlineChildren(node),
	})
	w.emit(Token{Type: name + "_close", Tag: tag, Nesting: -1, Markup: markup, Block: true, Hidden: hidden})
}

func (w *walker) container(name, tag, markup string, attrs map[string]string, lines []int, body func() error) error {
	w.emit(Token{Type: name + "_open", Tag: tag, Nesting: 1, Attrs: attrs, Markup: markup, Block: true, Map: lines})
	if err := body(); err != nil {
		return err
	}
	w.emit(Token{Type: name + "_close", Tag: tag, Nesting: -1, Markup: markup, Block: true})
	return nil
}

func (w *walker) list(node *ast.List, lines []int) error {
	attrs := map[string]string{"tight": strconv.FormatBool(node.IsTight)}
	markup := string(node.Marker)
	name, tag := "bullet_list", "ul"
	if node.IsOrdered() {
		name, tag = "ordered_list", "ol"
		attrs["order"] = strconv.Itoa(node.Start)
	} else {
		attrs["bullet"] = markup
	}
	return w.container(name, tag, markup, attrs, lines, func() error {
		return w.blockChildren(node, node.IsTight)
	})
}

func (w *walker) inlineChildren(parent ast.Node) []Token {
	var out []Token
	for child := parent.FirstChild(); child != nil; child = child.NextSibling() {
		out = w.inline(out, child)
	}
	return out
}

func (w *walker) inline(out []Token, node ast.Node) []Token {
	switch typed := node.(type) {
	case *ast.Text:
		value := typed.Segment.Value(w.source)
		if typed.IsRaw() {
			out = appendText(out, string(value))
		} else {
			out = appendText(out, unescape(value))
		}
		switch {
		case typed.HardLineBreak():
			out = append(out, Token{Type: "hardbreak", Tag: "br"})
		case typed.SoftLineBreak():
			out = append(out, Token{Type: "softbreak", Tag: "br"})
		}
	case *ast.String:
		if typed.IsCode() || typed.IsRaw() {
			out = appendText(out, string(typed.Value))
		} else {
			out = appendText(out, unescape(typed.Value))
		}
	case *ast.CodeSpan:
		var buf bytes.Buffer
		for child := typed.FirstChild(); child != nil; child = child.NextSibling() {
			if segment, ok := child.(*ast.Text); ok {
				value := segment.Segment.Value(w.source)
				if bytes.HasSuffix(value, []byte("\n")) {
					value = append(value[:len(value)-1:len(value)-1], ' ')
				}
				buf.Write(value)
			}
		}
		out = append(out, Token{Type: "code_inline", Tag: "code", Content: buf.String(), Markup: "`"})
	case *ast.Emphasis:
		name, tag, markup := "em", "em", "*"
		if typed.Level >= 2 {
			name, tag, markup = "strong", "strong", "**"
		}
		out = append(out, Token{Type: name + "_open", Tag: tag, Nesting: 1, Markup: markup})
		for child := typed.FirstChild(); child != nil; child = child.NextSibling() {
			out = w.inline(out, child)
		}
		out = append(out, Token{Type: name + "_close", Tag: tag, Nesting: -1, Markup: markup})
	case *ast.Link:
		attrs := map[string]string{"href": unescape(typed.Destination)}
		if len(typed.Title) > 0 {
			attrs["title"] = unescape(typed.Title)
		}
		out = append(out, Token{Type: "link_open", Tag: "a", Nesting: 1, Attrs: attrs})
		for child := typed.FirstChild(); child != nil; child = child.NextSibling() {
			out = w.inline(out, child)
		}
		out = append(out, Token{Type: "link_close", Tag: "a", Nesting: -1})
	case *ast.AutoLink:
		href := string(typed.URL(w.source))
		if typed.AutoLinkType == ast.AutoLinkEmail && !strings.HasPrefix(strings.ToLower(href), "mailto:") {
			href = "mailto:" + href
		}
		out = append(out,
			Token{Type: "link_open", Tag: "a", Nesting: 1, Attrs: map[string]string{"href": href}, Markup: "autolink"},
			Text(string(typed.Label(w.source))),
			Token{Type: "link_close", Tag: "a", Nesting: -1, Markup: "autolink"},
		)
	case *ast.Image:
		attrs := map[string]string{"src": unescape(typed.Destination)}
		if len(typed.Title) > 0 {
			attrs["title"] = unescape(typed.Title)
		}
		children := w.inlineChildren(typed)
		out = append(out, Token{
			Type:     "image",
			Tag:      "img",
			Attrs:    attrs,
			Content:  flatten(children),
			Children: children,
		})
	case *ast.RawHTML:
		out = appendText(out, string(typed.Segments.Value(w.source)))
	default:
		for child := node.FirstChild(); child != nil; child = child.NextSibling() {
			out = w.inline(out, child)
		}
	}
	return out
}

// lineRange returns the [start, end) source lines covered by node, or nil
// when neither node nor its descendants carry line segments.
func (w *walker) lineRange(node ast.Node) []int {
	start, stop := -1, -1
	var visit func(ast.Node)
	visit = func(n ast.Node) {
		if n.Type() != ast.TypeInline {
			lines := n.Lines()
			if lines != nil && lines.Len() > 0 {
				first, last := lines.At(0), lines.At(lines.Len()-1)
				if start < 0 || first.Start < start {
					start = first.Start
				}
				if last.Stop > stop {
					stop = last.Stop
				}
			}
			for child := n.FirstChild(); child != nil; child = child.NextSibling() {
				visit(child)
			}
		}
	}
	visit(node)
	if start < 0 {
		return nil
	}
	first := bytes.Count(w.source[:start], []byte("\n"))
	last := bytes.Count(w.source[:stop], []byte("\n"))
	if stop > start && w.source[stop-1] != '\n' {
		last++
	}
	if last <= first {
		last = first + 1
	}
	return []int{first, last}
}

func appendText(out []Token, content string) []Token {
	if content == "" {
		return out
	}
	if n := len(out); n > 0 && out[n-1].Type == "text" {
		out[n-1].Content += content
		return out
	}
	return append(out, Text(content))
}

func flatten(tokens []Token) string {
	var sb strings.Builder
	for _, tok := range tokens {
		switch tok.Type {
		case "text", "code_inline":
			sb.WriteString(tok.Content)
		case "softbreak", "hardbreak":
			sb.WriteString("\n")
		case "image":
			sb.WriteString(tok.Content)
		}
	}
	return sb.String()
}

// unescape resolves backslash escapes and entity references in a single
// left-to-right pass, so an escaped "&" never starts a reference.
func unescape(value []byte) string {
	var sb strings.Builder
	sb.Grow(len(value))
	for i := 0; i < len(value); {
		c := value[i]
		if c == '\\' && i+1 < len(value) && util.IsPunct(value[i+1]) {
			sb.WriteByte(value[i+1])
			i += 2
			continue
		}
		if c == '&' {
			if end := referenceEnd(value, i); end > 0 {
				ref := value[i:end]
				resolved := util.ResolveEntityNames(util.ResolveNumericReferences(ref))
				if !bytes.Equal(resolved, ref) {
					sb.Write(resolved)
					i = end
					continue
				}
			}
		}
		sb.WriteByte(c)
		i++
	}
	return sb.String()
}

// referenceEnd returns the offset after the ";" of the reference starting at
// value[start], or 0 when no reference starts there.
func referenceEnd(value []byte, start int) int {
	i := start + 1
	if i < len(value) && value[i] == '#' {
		i++
		if i < len(value) && (value[i] == 'x' || value[i] == 'X') {
			i++
		}
	}
	nameStart := i
	for i < len(value) && util.IsAlphaNumeric(value[i]) {
		i++
	}
	if i == nameStart || i >= len(value) || value[i] != ';' {
		return 0
	}
	return i + 1
}
