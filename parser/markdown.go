package parser

import (
	"strconv"
	"strings"
	"sync"

	"github.com/rgonek/prosemirror-markdown/basic"
	"github.com/rgonek/prosemirror-markdown/tokenizer"
)

// MarkdownTokens returns the token specs mapping CommonMark tokens onto the
// basic schema. The returned map is a fresh copy.
func MarkdownTokens() map[string]TokenSpec {
	return map[string]TokenSpec{
		"blockquote": {Block: "blockquote"},
		"paragraph":  {Block: "paragraph"},
		"list_item":  {Block: "list_item"},
		"bullet_list": {Block: "bullet_list", Attrs: func(tok tokenizer.Token) map[string]any {
			attrs := listAttrs(tok)
			if bullet, ok := tok.AttrGet("bullet"); ok && bullet != "" {
				attrs["bullet"] = bullet
			}
			return attrs
		}},
		"ordered_list": {Block: "ordered_list", Attrs: func(tok tokenizer.Token) map[string]any {
			attrs := listAttrs(tok)
			order := 1
			if raw, ok := tok.AttrGet("order"); ok {
				if n, err := strconv.Atoi(raw); err == nil {
					order = n
				}
			}
			attrs["order"] = order
			return attrs
		}},
		"heading": {Block: "heading", Attrs: func(tok tokenizer.Token) map[string]any {
			level, err := strconv.Atoi(strings.TrimPrefix(tok.Tag, "h"))
			if err != nil || level < 1 {
				level = 1
			}
			return map[string]any{"level": level}
		}},
		"code_block": {Block: "code_block", NoCloseToken: true},
		"fence": {Block: "code_block", NoCloseToken: true, Attrs: func(tok tokenizer.Token) map[string]any {
			return map[string]any{"params": tok.Info}
		}},
		"hr": {Node: "horizontal_rule", Attrs: func(tok tokenizer.Token) map[string]any {
			if tok.Markup == "" {
				return nil
			}
			return map[string]any{"markup": tok.Markup}
		}},
		"image": {Node: "image", Attrs: func(tok tokenizer.Token) map[string]any {
			return map[string]any{
				"src":   tok.Attr("src"),
				"title": optionalAttr(tok, "title"),
				"alt":   nilIfEmpty(tok.Content),
			}
		}},
		"hardbreak": {Node: "hard_break"},
		"em":        {Mark: "em"},
		"strong":    {Mark: "strong"},
		"link": {Mark: "link", Attrs: func(tok tokenizer.Token) map[string]any {
			return map[string]any{
				"href":  tok.Attr("href"),
				"title": optionalAttr(tok, "title"),
			}
		}},
		"code_inline": {Mark: "code", NoCloseToken: true},
	}
}

func listAttrs(tok tokenizer.Token) map[string]any {
	attrs := map[string]any{}
	if raw, ok := tok.AttrGet("tight"); ok {
		if tight, err := strconv.ParseBool(raw); err == nil {
			attrs["tight"] = tight
		}
	}
	return attrs
}

func optionalAttr(tok tokenizer.Token, name string) any {
	if value, ok := tok.AttrGet(name); ok && value != "" {
		return value
	}
	return nil
}

func nilIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}

var (
	defaultOnce   sync.Once
	defaultParser *Parser
)

// Default returns the shared CommonMark parser over the basic schema.
func Default() *Parser {
	defaultOnce.Do(func() {
		p, err := NewMarkdown(Config{})
		if err != nil {
			panic(err)
		}
		defaultParser = p
	})
	return defaultParser
}

// NewMarkdown creates a CommonMark parser over the basic schema with the
// given config.
func NewMarkdown(config Config) (*Parser, error) {
	return New(basic.Schema(), tokenizer.NewGoldmark(), MarkdownTokens(), config)
}
