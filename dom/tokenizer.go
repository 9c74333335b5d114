package dom

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rgonek/prosemirror-markdown/basic"
	"github.com/rgonek/prosemirror-markdown/parser"
	"github.com/rgonek/prosemirror-markdown/tokenizer"
	xhtml "golang.org/x/net/html"
)

// Tokenizer turns HTML into the markdown token stream understood by
// parser.MarkdownTokens.
type Tokenizer struct{}

// NewTokenizer creates an HTML tokenizer.
func NewTokenizer() *Tokenizer {
	return &Tokenizer{}
}

// NewParser creates a parser that builds basic schema documents from HTML.
func NewParser(config parser.Config) (*parser.Parser, error) {
	return parser.New(basic.Schema(), NewTokenizer(), parser.MarkdownTokens(), config)
}

// Tokenize parses src as an HTML fragment or document.
func (t *Tokenizer) Tokenize(src []byte) ([]tokenizer.Token, error) {
	document, err := goquery.NewDocumentFromReader(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	body := document.Find("body")
	if body.Length() == 0 {
		return nil, nil
	}

	var w domWalker
	w.blocks(body.Nodes[0])
	return w.tokens, nil
}

type domWalker struct {
	tokens []tokenizer.Token
	// pending collects inline nodes not wrapped in a block element.
	pending []*xhtml.Node
}

func (w *domWalker) emit(tok tokenizer.Token) {
	w.tokens = append(w.tokens, tok)
}

func (w *domWalker) blocks(parent *xhtml.Node) {
	// stray is true while list items outside a list are being wrapped in
	// a bullet list.
	stray := false
	for child := parent.FirstChild; child != nil; child = child.NextSibling {
		if isElement(child, "li") {
			w.flushPending()
			if !stray {
				w.emit(tokenizer.Token{Type: "bullet_list_open", Tag: "ul", Nesting: 1, Block: true})
				stray = true
			}
			w.container("list_item", "li", nil, child)
			continue
		}
		if stray {
			if isBlank(child) {
				continue
			}
			w.emit(tokenizer.Token{Type: "bullet_list_close", Tag: "ul", Nesting: -1, Block: true})
			stray = false
		}

		if isBlockElement(child) {
			w.flushPending()
			w.block(child)
			continue
		}
		w.pending = append(w.pending, child)
	}
	if stray {
		w.emit(tokenizer.Token{Type: "bullet_list_close", Tag: "ul", Nesting: -1, Block: true})
	}
	w.flushPending()
}

// flushPending wraps loose inline content in a paragraph.
func (w *domWalker) flushPending() {
	pending := w.pending
	w.pending = nil
	children := inlineTokens(pending)
	if len(children) == 0 {
		return
	}
	w.emit(tokenizer.Token{Type: "paragraph_open", Tag: "p", Nesting: 1, Block: true})
	w.emit(tokenizer.Token{Type: "inline", Block: true, Children: children})
	w.emit(tokenizer.Token{Type: "paragraph_close", Tag: "p", Nesting: -1, Block: true})
}

func (w *domWalker) block(node *xhtml.Node) {
	switch tag := node.Data; tag {
	case "p":
		w.textblock("paragraph", "p", node)
	case "h1", "h2", "h3", "h4", "h5", "h6":
		w.textblock("heading", tag, node)
	case "hr":
		w.emit(tokenizer.Token{Type: "hr", Tag: "hr", Block: true})
	case "pre":
		w.codeBlock(node)
	case "blockquote":
		w.container("blockquote", "blockquote", nil, node)
	case "ul":
		attrs := map[string]string{}
		copyAttr(attrs, node, "data-tight", "tight")
		copyAttr(attrs, node, "data-bullet", "bullet")
		w.container("bullet_list", "ul", attrs, node)
	case "ol":
		attrs := map[string]string{}
		copyAttr(attrs, node, "start", "order")
		copyAttr(attrs, node, "data-tight", "tight")
		w.container("ordered_list", "ol", attrs, node)
	default:
		// Generic containers such as div or section are transparent.
		w.blocks(node)
	}
}

func (w *domWalker) textblock(name, tag string, node *xhtml.Node) {
	w.emit(tokenizer.Token{Type: name + "_open", Tag: tag, Nesting: 1, Block: true})
	w.emit(tokenizer.Token{Type: "inline", Block: true, Children: inlineTokens(childNodes(node))})
	w.emit(tokenizer.Token{Type: name + "_close", Tag: tag, Nesting: -1, Block: true})
}

func (w *domWalker) container(name, tag string, attrs map[string]string, node *xhtml.Node) {
	if len(attrs) == 0 {
		attrs = nil
	}
	w.emit(tokenizer.Token{Type: name + "_open", Tag: tag, Nesting: 1, Attrs: attrs, Block: true})
	if name == "bullet_list" || name == "ordered_list" {
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			if isElement(child, "li") {
				w.container("list_item", "li", nil, child)
			}
		}
	} else {
		w.blocks(node)
	}
	w.emit(tokenizer.Token{Type: name + "_close", Tag: tag, Nesting: -1, Block: true})
}

func (w *domWalker) codeBlock(node *xhtml.Node) {
	params := attrValue(node, "data-params")
	if params == "" {
		if code := findChild(node, "code"); code != nil {
			for _, class := range strings.Fields(attrValue(code, "class")) {
				if lang, ok := strings.CutPrefix(class, "language-"); ok {
					params = lang
					break
				}
			}
		}
	}

	content := textContent(node)
	if params == "" {
		w.emit(tokenizer.Token{Type: "code_block", Tag: "code", Content: content, Block: true})
		return
	}
	w.emit(tokenizer.Token{Type: "fence", Tag: "code", Info: params, Content: content, Block: true})
}

func inlineTokens(nodes []*xhtml.Node) []tokenizer.Token {
	var out []tokenizer.Token
	for _, node := range nodes {
		out = appendInlineNode(out, node)
	}
	return trimInlineWhitespace(out)
}

func appendInlineNode(out []tokenizer.Token, node *xhtml.Node) []tokenizer.Token {
	switch node.Type {
	case xhtml.TextNode:
		return appendText(out, collapseWhitespace(node.Data))
	case xhtml.ElementNode:
	default:
		return out
	}

	switch node.Data {
	case "em", "i":
		return wrapInline(out, "em", "em", nil, node)
	case "strong", "b":
		return wrapInline(out, "strong", "strong", nil, node)
	case "a":
		attrs := map[string]string{"href": attrValue(node, "href")}
		copyAttr(attrs, node, "title", "title")
		return wrapInline(out, "link", "a", attrs, node)
	case "code":
		return append(out, tokenizer.Token{Type: "code_inline", Tag: "code", Content: textContent(node)})
	case "br":
		return append(out, tokenizer.Token{Type: "hardbreak", Tag: "br"})
	case "img":
		attrs := map[string]string{"src": attrValue(node, "src")}
		copyAttr(attrs, node, "title", "title")
		return append(out, tokenizer.Token{Type: "image", Tag: "img", Attrs: attrs, Content: attrValue(node, "alt")})
	default:
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			out = appendInlineNode(out, child)
		}
		return out
	}
}

func wrapInline(out []tokenizer.Token, name, tag string, attrs map[string]string, node *xhtml.Node) []tokenizer.Token {
	out = append(out, tokenizer.Token{Type: name + "_open", Tag: tag, Nesting: 1, Attrs: attrs})
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		out = appendInlineNode(out, child)
	}
	return append(out, tokenizer.Token{Type: name + "_close", Tag: tag, Nesting: -1})
}

func appendText(out []tokenizer.Token, text string) []tokenizer.Token {
	if text == "" {
		return out
	}
	// Whitespace does not repeat across adjacent text.
	if prev := previousText(out); prev != nil && strings.HasSuffix(prev.Content, " ") {
		text = strings.TrimLeft(text, " ")
		if text == "" {
			return out
		}
	}
	return append(out, tokenizer.Text(text))
}

// previousText returns the last text token when only mark tokens follow it.
func previousText(out []tokenizer.Token) *tokenizer.Token {
	for i := len(out) - 1; i >= 0; i-- {
		switch out[i].Type {
		case "text":
			return &out[i]
		case "em_open", "em_close", "strong_open", "strong_close", "link_open", "link_close":
			continue
		default:
			return nil
		}
	}
	return nil
}

// trimInlineWhitespace removes whitespace at the edges of the inline
// content and around hard breaks.
func trimInlineWhitespace(tokens []tokenizer.Token) []tokenizer.Token {
	atStart := true
	for i := range tokens {
		switch tokens[i].Type {
		case "text":
			if atStart {
				tokens[i].Content = strings.TrimLeft(tokens[i].Content, " ")
			}
			if tokens[i].Content != "" {
				atStart = false
			}
		case "hardbreak":
			atStart = true
		case "em_open", "em_close", "strong_open", "strong_close", "link_open", "link_close":
		default:
			atStart = false
		}
	}

	atEnd := true
	for i := len(tokens) - 1; i >= 0; i-- {
		switch tokens[i].Type {
		case "text":
			if atEnd {
				tokens[i].Content = strings.TrimRight(tokens[i].Content, " ")
			}
			if tokens[i].Content != "" {
				atEnd = false
			}
		case "hardbreak":
			atEnd = true
		case "em_open", "em_close", "strong_open", "strong_close", "link_open", "link_close":
		default:
			atEnd = false
		}
	}

	out := tokens[:0]
	for _, tok := range tokens {
		if tok.Type == "text" && tok.Content == "" {
			continue
		}
		out = append(out, tok)
	}
	return out
}

func collapseWhitespace(text string) string {
	var sb strings.Builder
	space := false
	for _, r := range text {
		switch r {
		case ' ', '\t', '\n', '\r', '\f':
			if !space {
				sb.WriteByte(' ')
			}
			space = true
		default:
			sb.WriteRune(r)
			space = false
		}
	}
	return sb.String()
}

var blockTags = map[string]bool{
	"p": true, "h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"hr": true, "pre": true, "blockquote": true, "ul": true, "ol": true, "li": true,
	"div": true, "section": true, "article": true, "main": true, "header": true,
	"footer": true, "nav": true, "aside": true, "figure": true,
}

func isBlockElement(node *xhtml.Node) bool {
	return node.Type == xhtml.ElementNode && blockTags[node.Data]
}

func isElement(node *xhtml.Node, tag string) bool {
	return node.Type == xhtml.ElementNode && node.Data == tag
}

// isBlank reports whether node is whitespace-only text or a comment.
func isBlank(node *xhtml.Node) bool {
	switch node.Type {
	case xhtml.CommentNode:
		return true
	case xhtml.TextNode:
		return strings.TrimSpace(node.Data) == ""
	default:
		return false
	}
}

func childNodes(node *xhtml.Node) []*xhtml.Node {
	var out []*xhtml.Node
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		out = append(out, child)
	}
	return out
}

func findChild(node *xhtml.Node, tag string) *xhtml.Node {
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		if isElement(child, tag) {
			return child
		}
	}
	return nil
}

func attrValue(node *xhtml.Node, key string) string {
	for _, a := range node.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}

func copyAttr(attrs map[string]string, node *xhtml.Node, from, to string) {
	for _, a := range node.Attr {
		if strings.EqualFold(a.Key, from) {
			attrs[to] = a.Val
			return
		}
	}
}

func textContent(node *xhtml.Node) string {
	return goquery.NewDocumentFromNode(node).Text()
}
