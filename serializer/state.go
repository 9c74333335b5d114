package serializer

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/rgonek/prosemirror-markdown/model"
)

var (
	escapeChars       = regexp.MustCompile("[`*\\\\~\\[\\]_]")
	escapeLineStart   = regexp.MustCompile(`^[#\-+>=]`)
	escapeOrderedItem = regexp.MustCompile(`^(\d+)([.)])`)
	escapeEntity      = regexp.MustCompile(`&(#?[A-Za-z0-9]+);`)
)

// State tracks the output of one serialization. Node and mark serializers
// write through it.
type State struct {
	ctx         context.Context
	nodes       map[string]NodeSerializerFunc
	marks       map[string]MarkSpec
	options     Config
	out         strings.Builder
	delim       string
	closed      *model.Node
	inTightList bool
	// lineStart is the output offset where the content of the current line
	// begins, after any block delimiters.
	lineStart int
	links     map[*model.Mark]LinkRenderOutput
	skipped   map[string]bool
	warnings  []model.Warning
}

func newState(ctx context.Context, s *Serializer) *State {
	return &State{
		ctx:     ctx,
		nodes:   s.nodes,
		marks:   s.marks,
		options: s.config,
	}
}

// Options returns the serializer options.
func (s *State) Options() Config {
	return s.options
}

// Out returns the output written so far.
func (s *State) Out() string {
	return s.out.String()
}

func (s *State) checkContext() error {
	if err := s.ctx.Err(); err != nil {
		return fmt.Errorf("serialization canceled: %w", err)
	}
	return nil
}

func (s *State) addWarning(warnType model.WarningType, nodeType, message string) {
	s.warnings = append(s.warnings, model.Warning{
		Type:     warnType,
		NodeType: nodeType,
		Message:  message,
	})
}

func (s *State) atBlank() bool {
	out := s.out.String()
	return out == "" || out[len(out)-1] == '\n'
}

// FlushClose finishes a closed block: it ends the current line and adds
// size-1 separator lines carrying the current delimiter without trailing
// whitespace.
func (s *State) FlushClose(size int) {
	if s.closed == nil {
		return
	}
	if !s.atBlank() {
		s.out.WriteByte('\n')
	}
	if size > 1 {
		delimMin := strings.TrimRightFunc(s.delim, unicode.IsSpace)
		for i := 1; i < size; i++ {
			s.out.WriteString(delimMin)
			s.out.WriteByte('\n')
		}
	}
	s.closed = nil
}

// WrapBlock renders a block whose lines are prefixed with delim. The first
// line gets firstDelim instead when it is not empty. node is recorded as
// closed afterwards.
func (s *State) WrapBlock(delim, firstDelim string, node *model.Node, f func() error) error {
	old := s.delim
	if firstDelim == "" {
		firstDelim = delim
	}
	s.Write(firstDelim)
	s.lineStart = s.out.Len()
	s.delim += delim
	err := f()
	s.delim = old
	s.CloseBlock(node)
	return err
}

// EnsureNewLine ends the current line unless the output is at a line start.
func (s *State) EnsureNewLine() {
	if !s.atBlank() {
		s.out.WriteByte('\n')
	}
}

// Write flushes a pending close, writes the delimiter when at a line start
// and then writes content unescaped.
func (s *State) Write(content string) {
	s.FlushClose(2)
	if s.atBlank() {
		s.out.WriteString(s.delim)
		s.lineStart = s.out.Len()
	}
	s.out.WriteString(content)
}

// CloseBlock marks node as closed. The separating blank line is written
// lazily by the next write.
func (s *State) CloseBlock(node *model.Node) {
	s.closed = node
}

// Text writes text line by line, escaping it unless escape is false.
func (s *State) Text(text string, escape bool) {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		startOfLine := s.atBlank() || s.closed != nil || s.out.Len() == s.lineStart
		s.Write("")
		if escape {
			line = s.Esc(line, startOfLine)
		}
		s.out.WriteString(line)
		if i != len(lines)-1 {
			s.out.WriteByte('\n')
		}
	}
}

// Render renders node with the serializer registered for its type.
func (s *State) Render(node, parent *model.Node, index int) error {
	if err := s.checkContext(); err != nil {
		return err
	}

	name := node.Type().Name()
	serialize, ok := s.nodes[name]
	if ok {
		return serialize(s, node, parent, index)
	}

	switch s.options.UnknownNodes {
	case model.UnknownSkip:
		s.addWarning(model.WarningUnknownNode, name, fmt.Sprintf("skipped node without serializer: %s", name))
		return nil
	case model.UnknownPlaceholder:
		s.addWarning(model.WarningUnknownNode, name, fmt.Sprintf("rendered text content of node without serializer: %s", name))
		s.Text(node.TextContent(), true)
		if node.IsBlock() {
			s.CloseBlock(node)
		}
		return nil
	default:
		return &UnsupportedNodeError{Type: name}
	}
}

// RenderContent renders the children of parent as blocks.
func (s *State) RenderContent(parent *model.Node) error {
	for i, child := range parent.Children() {
		if err := s.Render(child, parent, i); err != nil {
			return err
		}
	}
	return nil
}

// RenderInline renders the inline children of parent, opening and closing
// marks as the mark set changes between siblings.
func (s *State) RenderInline(parent *model.Node) error {
	var (
		active   []*model.Mark
		trailing string
	)

	progress := func(node *model.Node, index int) error {
		var marks []*model.Mark
		if node != nil {
			known, err := s.knownMarks(node)
			if err != nil {
				return err
			}
			marks = known
		}

		var code *model.Mark
		if n := len(marks); n > 0 && marks[n-1].Type().IsCode() {
			code = marks[n-1]
			marks = marks[:n-1]
		}
		marks = s.reorderMixable(marks, active)

		keep := 0
		for keep < len(active) && keep < len(marks) && marks[keep].Eq(active[keep]) {
			keep++
		}

		for keep < len(active) {
			mark := active[len(active)-1]
			active = active[:len(active)-1]
			closing, err := s.MarkString(mark, false)
			if err != nil {
				return err
			}
			s.Text(closing, false)
		}

		if trailing != "" {
			s.Text(trailing, true)
			trailing = ""
		}

		expel := node != nil && node.IsText() && s.ShouldExpelEnclosingWhitespace(node)
		if expel {
			var leading string
			leading, trailing = enclosingWhitespace(node.Text())
			if leading != "" {
				s.Text(leading, true)
			}
			// Whitespace-only text is written without its marks.
			if leading == node.Text() {
				return nil
			}
		}

		for len(active) < len(marks) {
			add := marks[len(active)]
			active = append(active, add)
			opening, err := s.MarkString(add, true)
			if err != nil {
				return err
			}
			if strings.HasPrefix(opening, "[") {
				s.escapeTrailingBang()
			}
			s.Text(opening, false)
		}

		if node == nil {
			return nil
		}
		if code != nil && node.IsText() {
			opening, err := s.MarkString(code, true)
			if err != nil {
				return err
			}
			closing, err := s.MarkString(code, false)
			if err != nil {
				return err
			}
			text := node.Text()
			if expel {
				text = strings.TrimSpace(text)
			}
			s.Text(codeSpan(opening, closing, text), false)
			return nil
		}
		return s.Render(node, parent, index)
	}

	for i, child := range parent.Children() {
		if err := progress(child, i); err != nil {
			return err
		}
	}
	return progress(nil, 0)
}

// codeSpan wraps text in code delimiters. Backtick delimiters grow past the
// longest backtick run in text and are padded when text would otherwise
// lose or merge edge characters.
func codeSpan(opening, closing, text string) string {
	if !strings.HasPrefix(opening, "`") {
		return opening + text + closing
	}

	longest, run := 0, 0
	for _, r := range text {
		if r != '`' {
			run = 0
			continue
		}
		run++
		if run > longest {
			longest = run
		}
	}
	if longest == 0 {
		return opening + text + closing
	}

	fence := strings.Repeat("`", longest+1)
	pad := ""
	if strings.HasPrefix(text, "`") || strings.HasSuffix(text, "`") ||
		(strings.HasPrefix(text, " ") && strings.HasSuffix(text, " ") && strings.TrimSpace(text) != "") {
		pad = " "
	}
	return fence + pad + text + pad + fence
}

// escapeTrailingBang escapes a "!" written right before a link opens, which
// would otherwise turn the link into an image.
func (s *State) escapeTrailingBang() {
	out := s.out.String()
	if !strings.HasSuffix(out, "!") {
		return
	}
	s.out.Reset()
	s.out.WriteString(out[:len(out)-1])
	s.out.WriteString(`\!`)
}

// knownMarks returns the marks of node that have a serializer, applying the
// unknown mark policy to the rest.
func (s *State) knownMarks(node *model.Node) ([]*model.Mark, error) {
	marks := node.Marks()
	known := marks[:0]
	for _, mark := range marks {
		name := mark.Type().Name()
		if _, ok := s.marks[name]; ok {
			known = append(known, mark)
			continue
		}
		if s.options.UnknownMarks == model.UnknownError {
			return nil, &UnsupportedMarkError{Type: name}
		}
		if !s.skipped[name] {
			if s.skipped == nil {
				s.skipped = make(map[string]bool)
			}
			s.skipped[name] = true
			s.addWarning(model.WarningUnknownMark, name, fmt.Sprintf("dropped mark without serializer: %s", name))
		}
	}
	return known, nil
}

// reorderMixable moves mixable marks so that marks already open keep their
// position, which avoids closing and reopening them. The search is greedy:
// each mark is matched against the first equal mark in the mixable prefix
// of active.
func (s *State) reorderMixable(marks, active []*model.Mark) []*model.Mark {
	marks = append([]*model.Mark(nil), marks...)
outer:
	for i := 0; i < len(marks); i++ {
		if !s.marks[marks[i].Type().Name()].Mixable {
			break
		}
		for j := 0; j < len(active); j++ {
			if !s.marks[active[j].Type().Name()].Mixable {
				break
			}
			if marks[i].Eq(active[j]) {
				if i != j {
					marks = moveMark(marks, i, j)
				}
				continue outer
			}
		}
	}
	return marks
}

func moveMark(marks []*model.Mark, from, to int) []*model.Mark {
	if to >= len(marks) {
		to = len(marks) - 1
	}
	mark := marks[from]
	marks = append(marks[:from], marks[from+1:]...)
	return append(marks[:to], append([]*model.Mark{mark}, marks[to:]...)...)
}

// RenderList renders the items of a list node. delim indents continuation
// lines of an item; firstDelim returns the marker for item i.
func (s *State) RenderList(node *model.Node, delim string, firstDelim func(index int) string) error {
	if s.closed != nil && s.closed.Type() == node.Type() {
		s.FlushClose(3)
	} else if s.inTightList {
		s.FlushClose(1)
	}

	isTight := s.options.TightLists
	if tight, ok := node.Attr("tight"); ok {
		if value, isBool := tight.(bool); isBool {
			isTight = value
		}
	}

	prevTight := s.inTightList
	s.inTightList = isTight
	defer func() { s.inTightList = prevTight }()

	for i, child := range node.Children() {
		if i > 0 && isTight {
			s.FlushClose(1)
		}
		err := s.WrapBlock(delim, firstDelim(i), node, func() error {
			return s.Render(child, node, i)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// Esc escapes markdown syntax characters in str. When startOfLine is true,
// characters that only matter at the start of a line are escaped too.
func (s *State) Esc(str string, startOfLine bool) string {
	str = escapeChars.ReplaceAllString(str, `\$0`)
	str = escapeEntity.ReplaceAllString(str, `\$0`)
	if startOfLine {
		str = escapeLineStart.ReplaceAllString(str, `\$0`)
		str = escapeOrderedItem.ReplaceAllString(str, `${1}\${2}`)
	}
	return str
}

// Quote wraps str in double quotes, single quotes or parentheses, whichever
// does not occur in str.
func (s *State) Quote(str string) string {
	switch {
	case !strings.Contains(str, `"`):
		return `"` + str + `"`
	case !strings.Contains(str, "'"):
		return "'" + str + "'"
	default:
		return "(" + str + ")"
	}
}

// Repeat returns str repeated n times.
func (s *State) Repeat(str string, n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat(str, n)
}

// MarkString returns the opening or closing markup of mark.
func (s *State) MarkString(mark *model.Mark, open bool) (string, error) {
	spec := s.marks[mark.Type().Name()]
	if open {
		if spec.OpenFunc != nil {
			return spec.OpenFunc(s, mark)
		}
		return spec.Open, nil
	}
	if spec.CloseFunc != nil {
		return spec.CloseFunc(s, mark)
	}
	return spec.Close, nil
}

// ShouldExpelEnclosingWhitespace reports whether leading and trailing
// whitespace of node must be moved outside its marks.
func (s *State) ShouldExpelEnclosingWhitespace(node *model.Node) bool {
	if node == nil {
		return false
	}
	for _, mark := range node.Marks() {
		if spec, ok := s.marks[mark.Type().Name()]; ok && spec.ExpelEnclosingWhitespace {
			return true
		}
	}
	return false
}

// enclosingWhitespace splits the leading and trailing whitespace off text.
// Text made only of whitespace is reported as leading.
func enclosingWhitespace(text string) (leading, trailing string) {
	rest := strings.TrimLeftFunc(text, unicode.IsSpace)
	leading = text[:len(text)-len(rest)]
	trimmed := strings.TrimRightFunc(rest, unicode.IsSpace)
	trailing = rest[len(trimmed):]
	return leading, trailing
}
