package serializer

import (
	"strconv"
	"strings"

	"github.com/rgonek/prosemirror-markdown/model"
)

// MarkdownNodes returns the node serializers for the basic schema. The
// returned map is a fresh copy and may be extended.
func MarkdownNodes() map[string]NodeSerializerFunc {
	return map[string]NodeSerializerFunc{
		"blockquote":      renderBlockquote,
		"code_block":      renderCodeBlock,
		"heading":         renderHeading,
		"horizontal_rule": renderHorizontalRule,
		"bullet_list":     renderBulletList,
		"ordered_list":    renderOrderedList,
		"list_item":       renderListItem,
		"paragraph":       renderParagraph,
		"image":           renderImage,
		"hard_break":      renderHardBreak,
		"text":            renderText,
	}
}

// MarkdownMarks returns the mark specs for the basic schema.
func MarkdownMarks() map[string]MarkSpec {
	return map[string]MarkSpec{
		"em":     {Open: "*", Close: "*", Mixable: true, ExpelEnclosingWhitespace: true},
		"strong": {Open: "**", Close: "**", Mixable: true, ExpelEnclosingWhitespace: true},
		"link":   {OpenFunc: openLink, CloseFunc: closeLink},
		"code":   {Open: "`", Close: "`"},
	}
}

func renderBlockquote(s *State, node, _ *model.Node, _ int) error {
	return s.WrapBlock("> ", "", node, func() error {
		return s.RenderContent(node)
	})
}

func renderCodeBlock(s *State, node, _ *model.Node, _ int) error {
	params := node.StringAttr("params", "")
	text := node.TextContent()
	if params == "" {
		return s.WrapBlock("    ", "", node, func() error {
			s.Text(text, false)
			return nil
		})
	}

	fence := "```"
	for strings.Contains(text, fence) {
		fence += "`"
	}
	s.Write(fence + params + "\n")
	s.Text(text, false)
	s.EnsureNewLine()
	s.Write(fence)
	s.CloseBlock(node)
	return nil
}

func renderHeading(s *State, node, _ *model.Node, _ int) error {
	s.Write(s.Repeat("#", node.IntAttr("level", 1)) + " ")
	if err := s.RenderInline(node); err != nil {
		return err
	}
	s.CloseBlock(node)
	return nil
}

func renderHorizontalRule(s *State, node, _ *model.Node, _ int) error {
	s.Write(node.StringAttr("markup", "---"))
	s.CloseBlock(node)
	return nil
}

func renderBulletList(s *State, node, _ *model.Node, _ int) error {
	bullet := node.StringAttr("bullet", "")
	if bullet == "" {
		bullet = s.options.BulletMarker
	}
	return s.RenderList(node, "  ", func(int) string {
		return bullet + " "
	})
}

func renderOrderedList(s *State, node, _ *model.Node, _ int) error {
	start := node.IntAttr("order", 1)
	if start < 0 {
		start = 1
	}
	last := start + node.ChildCount() - 1
	if s.options.OrderedListStyle == OrderedLazy {
		last = start
	}
	maxW := len(strconv.Itoa(last))
	space := s.Repeat(" ", maxW+2)
	return s.RenderList(node, space, func(i int) string {
		n := start + i
		if s.options.OrderedListStyle == OrderedLazy {
			n = start
		}
		nStr := strconv.Itoa(n)
		return s.Repeat(" ", maxW-len(nStr)) + nStr + ". "
	})
}

func renderListItem(s *State, node, _ *model.Node, _ int) error {
	return s.RenderContent(node)
}

func renderParagraph(s *State, node, _ *model.Node, _ int) error {
	if err := s.RenderInline(node); err != nil {
		return err
	}
	s.CloseBlock(node)
	return nil
}

func renderImage(s *State, node, _ *model.Node, _ int) error {
	alt := node.StringAttr("alt", "")
	target, err := s.resolveTarget("image", node.Type().Name(), node.StringAttr("src", ""), node.StringAttr("title", ""), node.Attrs())
	if err != nil {
		return err
	}
	if target.TextOnly {
		s.Text(alt, true)
		return nil
	}
	s.Write("![" + s.Esc(alt, false) + "](" + s.destination(target.Href) + s.title(target.Title) + ")")
	return nil
}

// renderHardBreak writes a break unless only hard breaks follow it.
func renderHardBreak(s *State, node, parent *model.Node, index int) error {
	for i := index + 1; i < parent.ChildCount(); i++ {
		if parent.Child(i).Type() != node.Type() {
			if s.options.HardBreakStyle == HardBreakSpaces {
				s.Write("  \n")
			} else {
				s.Write("\\\n")
			}
			return nil
		}
	}
	return nil
}

func renderText(s *State, node, _ *model.Node, _ int) error {
	text := node.Text()
	if s.ShouldExpelEnclosingWhitespace(node) {
		text = strings.TrimSpace(text)
	}
	s.Text(text, true)
	return nil
}

func openLink(s *State, mark *model.Mark) (string, error) {
	target, err := s.linkTarget(mark)
	if err != nil {
		return "", err
	}
	if target.TextOnly {
		return "", nil
	}
	return "[", nil
}

func closeLink(s *State, mark *model.Mark) (string, error) {
	target, err := s.linkTarget(mark)
	if err != nil {
		return "", err
	}
	if target.TextOnly {
		return "", nil
	}
	return "](" + s.destination(target.Href) + s.title(target.Title) + ")", nil
}

// destination escapes a link destination, using the angle bracket form when
// it contains spaces.
func (s *State) destination(href string) string {
	if strings.ContainsAny(href, " \t") {
		return "<" + strings.NewReplacer("<", `\<`, ">", `\>`).Replace(href) + ">"
	}
	return s.Esc(href, false)
}

func (s *State) title(title string) string {
	if title == "" {
		return ""
	}
	return " " + s.Quote(title)
}
