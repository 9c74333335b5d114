package parser

import (
	"context"
	"fmt"

	"github.com/rgonek/prosemirror-markdown/model"
	"github.com/rgonek/prosemirror-markdown/tokenizer"
)

// frame is a node under construction.
type frame struct {
	typ     *model.NodeType
	attrs   map[string]any
	content []*model.Node
}

// state holds the per-build stack. It is never shared between builds.
type state struct {
	ctx      context.Context
	schema   *model.Schema
	handlers map[string]tokenHandler
	config   Config
	stack    []*frame
	marks    []*model.Mark
	warnings []model.Warning
}

func newState(ctx context.Context, p *Parser) *state {
	return &state{
		ctx:      ctx,
		schema:   p.schema,
		handlers: p.handlers,
		config:   p.config,
		stack:    []*frame{{typ: p.schema.TopNodeType()}},
	}
}

func (s *state) checkContext() error {
	if err := s.ctx.Err(); err != nil {
		return fmt.Errorf("parse canceled: %w", err)
	}
	return nil
}

func (s *state) addWarning(warnType model.WarningType, nodeType, message string) {
	s.warnings = append(s.warnings, model.Warning{
		Type:     warnType,
		NodeType: nodeType,
		Message:  message,
	})
}

func (s *state) top() *frame {
	return s.stack[len(s.stack)-1]
}

func (s *state) push(node *model.Node) {
	if len(s.stack) == 0 {
		return
	}
	top := s.top()
	top.content = append(top.content, node)
}

// addText appends text with the active marks, merging it into the previous
// text node when both carry the same mark set.
func (s *state) addText(text string) error {
	if text == "" {
		return nil
	}
	top := s.top()
	if n := len(top.content); n > 0 {
		last := top.content[n-1]
		if last.IsText() && model.SameMarkSet(last.Marks(), s.marks) {
			top.content[n-1] = last.WithText(last.Text() + text)
			return nil
		}
	}
	node, err := s.schema.Text(text, s.marks)
	if err != nil {
		return err
	}
	top.content = append(top.content, node)
	return nil
}

func (s *state) openMark(mark *model.Mark) {
	s.marks = mark.AddToSet(s.marks)
}

func (s *state) closeMark(markType *model.MarkType) {
	s.marks = markType.RemoveFromSet(s.marks)
}

// addNode creates a node with the active marks and appends it to the current
// frame. A node whose content cannot be completed is dropped with a warning.
func (s *state) addNode(typ *model.NodeType, attrs map[string]any, content []*model.Node) (*model.Node, error) {
	node, err := typ.CreateAndFill(attrs, content, s.marks)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s node: %w", typ.Name(), err)
	}
	if node == nil {
		s.addWarning(
			model.WarningDroppedNode,
			typ.Name(),
			fmt.Sprintf("dropped %s node: content does not match the schema", typ.Name()),
		)
		return nil, nil
	}
	s.push(node)
	return node, nil
}

func (s *state) openNode(typ *model.NodeType, attrs map[string]any) {
	s.stack = append(s.stack, &frame{typ: typ, attrs: attrs})
}

// closeNode pops the current frame and adds the finished node to its parent.
// Active marks do not leak across node boundaries.
func (s *state) closeNode() (*model.Node, error) {
	s.marks = nil
	info := s.stack[len(s.stack)-1]
	s.stack = s.stack[:len(s.stack)-1]
	return s.addNode(info.typ, info.attrs, info.content)
}

// closeExpected closes the current frame after checking it was opened for
// typ. The root frame is never closed by a token.
func (s *state) closeExpected(tokenType string, typ *model.NodeType) error {
	if len(s.stack) < 2 {
		return fmt.Errorf("%w: %s", ErrUnbalancedTokens, tokenType)
	}
	if open := s.top().typ; open != typ {
		return fmt.Errorf("%w: %s closes %s", ErrUnbalancedTokens, tokenType, open.Name())
	}
	_, err := s.closeNode()
	return err
}

func (s *state) parseTokens(tokens []tokenizer.Token) error {
	for _, tok := range tokens {
		if err := s.checkContext(); err != nil {
			return err
		}
		handler, ok := s.handlers[tok.Type]
		if !ok {
			if s.config.UnknownTokens == model.UnknownSkip {
				s.addWarning(
					model.WarningUnknownToken,
					tok.Type,
					fmt.Sprintf("skipped unsupported token type %q", tok.Type),
				)
				continue
			}
			return &UnsupportedTokenError{Type: tok.Type}
		}
		if err := handler(s, tok); err != nil {
			return err
		}
	}
	return nil
}

// finish closes every frame still open and returns the root.
func (s *state) finish() (*model.Node, error) {
	for len(s.stack) > 1 {
		if _, err := s.closeNode(); err != nil {
			return nil, err
		}
	}

	root := s.stack[0]
	s.stack = nil
	s.marks = nil
	doc, err := root.typ.CreateAndFill(root.attrs, root.content, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s node: %w", root.typ.Name(), err)
	}
	if doc == nil {
		return nil, fmt.Errorf("document content does not match the %s content expression", root.typ.Name())
	}
	return doc, nil
}
