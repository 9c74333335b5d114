// Package dom converts documents to and from HTML.
//
// Render maps every node and mark of the basic schema to an HTML element.
// The Tokenizer maps the same elements back to markdown tokens, so the
// markdown token specs of the parser package build documents from HTML too.
package dom

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rgonek/prosemirror-markdown/model"
	xhtml "golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Render returns the HTML for doc. Top-level blocks are separated by
// newlines.
func Render(doc *model.Node) (string, error) {
	if doc == nil {
		return "", fmt.Errorf("document is nil")
	}

	parts := make([]string, 0, doc.ChildCount())
	for _, child := range doc.Children() {
		el, err := blockElement(child)
		if err != nil {
			return "", err
		}
		var sb strings.Builder
		if err := xhtml.Render(&sb, el); err != nil {
			return "", fmt.Errorf("failed to render %s: %w", child.Type().Name(), err)
		}
		parts = append(parts, sb.String())
	}
	return strings.Join(parts, "\n"), nil
}

func element(a atom.Atom, attrs ...xhtml.Attribute) *xhtml.Node {
	return &xhtml.Node{
		Type:     xhtml.ElementNode,
		DataAtom: a,
		Data:     a.String(),
		Attr:     attrs,
	}
}

func attr(key, value string) xhtml.Attribute {
	return xhtml.Attribute{Key: key, Val: value}
}

func blockElement(node *model.Node) (*xhtml.Node, error) {
	var el *xhtml.Node

	switch node.Type().Name() {
	case "paragraph":
		el = element(atom.P)
		return el, appendInline(el, node)
	case "heading":
		level := node.IntAttr("level", 1)
		if level < 1 || level > 6 {
			level = 1
		}
		el = element(atom.Lookup([]byte("h" + strconv.Itoa(level))))
		return el, appendInline(el, node)
	case "blockquote":
		el = element(atom.Blockquote)
	case "horizontal_rule":
		return element(atom.Hr), nil
	case "code_block":
		pre := element(atom.Pre)
		if params := node.StringAttr("params", ""); params != "" {
			pre.Attr = append(pre.Attr, attr("data-params", params))
		}
		code := element(atom.Code)
		code.AppendChild(&xhtml.Node{Type: xhtml.TextNode, Data: node.TextContent()})
		pre.AppendChild(code)
		return pre, nil
	case "ordered_list":
		el = element(atom.Ol)
		if order := node.IntAttr("order", 1); order != 1 {
			el.Attr = append(el.Attr, attr("start", strconv.Itoa(order)))
		}
		el.Attr = appendTight(el.Attr, node)
	case "bullet_list":
		el = element(atom.Ul)
		el.Attr = appendTight(el.Attr, node)
		if bullet := node.StringAttr("bullet", ""); bullet != "" {
			el.Attr = append(el.Attr, attr("data-bullet", bullet))
		}
	case "list_item":
		el = element(atom.Li)
	default:
		return nil, fmt.Errorf("node type %q cannot be rendered as an HTML block", node.Type().Name())
	}

	for _, child := range node.Children() {
		childEl, err := blockElement(child)
		if err != nil {
			return nil, err
		}
		el.AppendChild(childEl)
	}
	return el, nil
}

func appendTight(attrs []xhtml.Attribute, node *model.Node) []xhtml.Attribute {
	if tight, ok := node.Attr("tight"); ok {
		if value, isBool := tight.(bool); isBool {
			return append(attrs, attr("data-tight", strconv.FormatBool(value)))
		}
	}
	return attrs
}

type openMark struct {
	mark *model.Mark
	el   *xhtml.Node
}

// appendInline appends the inline children of node to el, nesting mark
// elements and reusing open ones while adjacent children share a mark prefix.
func appendInline(el *xhtml.Node, node *model.Node) error {
	var stack []openMark

	for _, child := range node.Children() {
		marks := child.Marks()
		keep := 0
		for keep < len(stack) && keep < len(marks) && stack[keep].mark.Eq(marks[keep]) {
			keep++
		}
		stack = stack[:keep]

		for _, mark := range marks[keep:] {
			markEl, err := markElement(mark)
			if err != nil {
				return err
			}
			container(el, stack).AppendChild(markEl)
			stack = append(stack, openMark{mark: mark, el: markEl})
		}

		inline, err := inlineElement(child)
		if err != nil {
			return err
		}
		container(el, stack).AppendChild(inline)
	}
	return nil
}

func container(root *xhtml.Node, stack []openMark) *xhtml.Node {
	if len(stack) == 0 {
		return root
	}
	return stack[len(stack)-1].el
}

func inlineElement(node *model.Node) (*xhtml.Node, error) {
	switch node.Type().Name() {
	case "text":
		return &xhtml.Node{Type: xhtml.TextNode, Data: node.Text()}, nil
	case "hard_break":
		return element(atom.Br), nil
	case "image":
		img := element(atom.Img, attr("src", node.StringAttr("src", "")))
		if alt := node.StringAttr("alt", ""); alt != "" {
			img.Attr = append(img.Attr, attr("alt", alt))
		}
		if title := node.StringAttr("title", ""); title != "" {
			img.Attr = append(img.Attr, attr("title", title))
		}
		return img, nil
	default:
		return nil, fmt.Errorf("node type %q cannot be rendered as inline HTML", node.Type().Name())
	}
}

func markElement(mark *model.Mark) (*xhtml.Node, error) {
	switch mark.Type().Name() {
	case "em":
		return element(atom.Em), nil
	case "strong":
		return element(atom.Strong), nil
	case "code":
		return element(atom.Code), nil
	case "link":
		a := element(atom.A, attr("href", mark.StringAttr("href", "")))
		if title := mark.StringAttr("title", ""); title != "" {
			a.Attr = append(a.Attr, attr("title", title))
		}
		return a, nil
	default:
		return nil, fmt.Errorf("mark type %q cannot be rendered as HTML", mark.Type().Name())
	}
}
