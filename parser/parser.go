// Package parser builds schema-conformant document trees from token streams.
//
// A Parser binds a schema, a tokenizer and a table of token specs. The
// handler table is built once in New and never modified afterwards, so a
// Parser is safe for concurrent use. Each build runs on its own stack.
package parser

import (
	"context"
	"fmt"
	"strings"

	"github.com/rgonek/prosemirror-markdown/model"
	"github.com/rgonek/prosemirror-markdown/tokenizer"
)

// Tokenizer turns source text into a token stream.
type Tokenizer interface {
	Tokenize(src []byte) ([]tokenizer.Token, error)
}

type contextTokenizer interface {
	TokenizeWithContext(ctx context.Context, src []byte) ([]tokenizer.Token, error)
}

// AttrsFunc computes node or mark attributes from a token.
type AttrsFunc func(tok tokenizer.Token) map[string]any

// TokenSpec maps a token type onto the schema. Exactly one of Block, Node or
// Mark must be set.
type TokenSpec struct {
	// Block names a node type built from "<token>_open" / "<token>_close"
	// pairs.
	Block string
	// Node names a leaf node type built from a single token.
	Node string
	// Mark names a mark type opened and closed by "<token>_open" /
	// "<token>_close" pairs.
	Mark string
	// Attrs computes attributes from the (open) token.
	Attrs AttrsFunc
	// NoCloseToken marks a single token carrying literal content instead of
	// an open/close pair.
	NoCloseToken bool
}

type tokenHandler func(s *state, tok tokenizer.Token) error

// Parser builds documents from text or tokens.
type Parser struct {
	schema    *model.Schema
	tokenizer Tokenizer
	handlers  map[string]tokenHandler
	config    Config
}

// literalTokens always carry their content in a single token.
var literalTokens = map[string]bool{
	"code_inline": true,
	"code_block":  true,
	"fence":       true,
}

// New creates a Parser. tok may be nil when only ParseTokens is used.
func New(schema *model.Schema, tok Tokenizer, specs map[string]TokenSpec, config Config) (*Parser, error) {
	if schema == nil {
		return nil, fmt.Errorf("schema is required")
	}
	cfg := config.applyDefaults().clone()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	handlers, err := buildHandlers(schema, specs)
	if err != nil {
		return nil, err
	}

	return &Parser{
		schema:    schema,
		tokenizer: tok,
		handlers:  handlers,
		config:    cfg,
	}, nil
}

// Schema returns the schema documents are built against.
func (p *Parser) Schema() *model.Schema {
	return p.schema
}

// Parse tokenizes text and builds a document.
func (p *Parser) Parse(text string) (Result, error) {
	return p.ParseWithContext(context.Background(), text)
}

// ParseWithContext tokenizes text and builds a document, checking ctx
// between tokens.
func (p *Parser) ParseWithContext(ctx context.Context, text string) (Result, error) {
	if p.tokenizer == nil {
		return Result{}, fmt.Errorf("parser has no tokenizer")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return Result{}, fmt.Errorf("parse canceled: %w", err)
	}

	var (
		tokens []tokenizer.Token
		err    error
	)
	if ct, ok := p.tokenizer.(contextTokenizer); ok {
		tokens, err = ct.TokenizeWithContext(ctx, []byte(text))
	} else {
		tokens, err = p.tokenizer.Tokenize([]byte(text))
	}
	if err != nil {
		return Result{}, fmt.Errorf("failed to tokenize input: %w", err)
	}
	return p.ParseTokens(ctx, tokens)
}

// ParseTokens builds a document from a token stream. Frames still open at
// the end of the stream are closed implicitly.
func (p *Parser) ParseTokens(ctx context.Context, tokens []tokenizer.Token) (Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	s := newState(ctx, p)
	if err := s.parseTokens(tokens); err != nil {
		return Result{}, err
	}
	doc, err := s.finish()
	if err != nil {
		return Result{}, err
	}
	return Result{
		Doc:      doc,
		Warnings: s.warnings,
	}, nil
}

func buildHandlers(schema *model.Schema, specs map[string]TokenSpec) (map[string]tokenHandler, error) {
	handlers := make(map[string]tokenHandler, len(specs)*2+3)

	for name, spec := range specs {
		kinds := 0
		for _, target := range []string{spec.Block, spec.Node, spec.Mark} {
			if target != "" {
				kinds++
			}
		}
		if kinds != 1 {
			return nil, &UnrecognizedSpecError{Type: name}
		}

		attrs := spec.Attrs
		if attrs == nil {
			attrs = func(tokenizer.Token) map[string]any { return nil }
		}
		literal := spec.NoCloseToken || literalTokens[name]

		switch {
		case spec.Block != "":
			nodeType, err := schema.NodeType(spec.Block)
			if err != nil {
				return nil, fmt.Errorf("token %q: %w", name, err)
			}
			if literal {
				handlers[name] = func(s *state, tok tokenizer.Token) error {
					s.openNode(nodeType, attrs(tok))
					if err := s.addText(withoutTrailingNewline(tok.Content)); err != nil {
						return err
					}
					_, err := s.closeNode()
					return err
				}
				continue
			}
			handlers[name+"_open"] = func(s *state, tok tokenizer.Token) error {
				s.openNode(nodeType, attrs(tok))
				return nil
			}
			closeType := name + "_close"
			handlers[closeType] = func(s *state, _ tokenizer.Token) error {
				return s.closeExpected(closeType, nodeType)
			}

		case spec.Node != "":
			nodeType, err := schema.NodeType(spec.Node)
			if err != nil {
				return nil, fmt.Errorf("token %q: %w", name, err)
			}
			handlers[name] = func(s *state, tok tokenizer.Token) error {
				_, err := s.addNode(nodeType, attrs(tok), nil)
				return err
			}

		default:
			markType, err := schema.MarkType(spec.Mark)
			if err != nil {
				return nil, fmt.Errorf("token %q: %w", name, err)
			}
			if literal {
				handlers[name] = func(s *state, tok tokenizer.Token) error {
					mark, err := markType.Create(attrs(tok))
					if err != nil {
						return fmt.Errorf("failed to create %s mark: %w", markType.Name(), err)
					}
					s.openMark(mark)
					if err := s.addText(withoutTrailingNewline(tok.Content)); err != nil {
						return err
					}
					s.closeMark(markType)
					return nil
				}
				continue
			}
			handlers[name+"_open"] = func(s *state, tok tokenizer.Token) error {
				mark, err := markType.Create(attrs(tok))
				if err != nil {
					return fmt.Errorf("failed to create %s mark: %w", markType.Name(), err)
				}
				s.openMark(mark)
				return nil
			}
			handlers[name+"_close"] = func(s *state, _ tokenizer.Token) error {
				s.closeMark(markType)
				return nil
			}
		}
	}

	handlers["text"] = func(s *state, tok tokenizer.Token) error {
		return s.addText(tok.Content)
	}
	handlers["inline"] = func(s *state, tok tokenizer.Token) error {
		return s.parseTokens(tok.Children)
	}
	handlers["softbreak"] = func(s *state, _ tokenizer.Token) error {
		return s.addText("\n")
	}

	return handlers, nil
}

func withoutTrailingNewline(text string) string {
	return strings.TrimSuffix(text, "\n")
}
