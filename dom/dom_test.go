package dom

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/rgonek/prosemirror-markdown/model"
	"github.com/rgonek/prosemirror-markdown/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseMarkdown(t *testing.T, input string) *model.Node {
	t.Helper()
	result, err := parser.Default().Parse(input)
	require.NoError(t, err)
	return result.Doc
}

func parseHTML(t *testing.T, input string) *model.Node {
	t.Helper()
	p, err := NewParser(parser.Config{})
	require.NoError(t, err)
	result, err := p.Parse(input)
	require.NoError(t, err)
	return result.Doc
}

func TestRenderInline(t *testing.T) {
	html, err := Render(parseMarkdown(t, "a *b **c*** `d`"))
	require.NoError(t, err)
	assert.Equal(t, "<p>a <em>b <strong>c</strong></em> <code>d</code></p>", html)
}

func TestRenderBlocks(t *testing.T) {
	doc := parseMarkdown(t, "## Title\n\n> quote\n\n3. x\n4. y\n\n- a\n- b\n\n```go\nfmt\n```\n\n---")
	html, err := Render(doc)
	require.NoError(t, err)

	document, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)

	assert.Equal(t, "Title", document.Find("h2").Text())
	assert.Equal(t, "quote", document.Find("blockquote > p").Text())

	ol := document.Find("ol")
	assert.Equal(t, "3", ol.AttrOr("start", ""))
	assert.Equal(t, "true", ol.AttrOr("data-tight", ""))
	assert.Equal(t, 2, ol.Find("li").Length())

	ul := document.Find("ul")
	assert.Equal(t, "-", ul.AttrOr("data-bullet", ""))
	assert.Equal(t, "a", ul.Find("li").First().Text())

	pre := document.Find("pre")
	assert.Equal(t, "go", pre.AttrOr("data-params", ""))
	assert.Equal(t, "fmt", pre.Find("code").Text())

	assert.Equal(t, 1, document.Find("hr").Length())
}

func TestRenderLinksAndImages(t *testing.T) {
	html, err := Render(parseMarkdown(t, `[x](http://a.com "T") ![alt](i.png)`))
	require.NoError(t, err)

	document, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)

	link := document.Find("a")
	assert.Equal(t, "http://a.com", link.AttrOr("href", ""))
	assert.Equal(t, "T", link.AttrOr("title", ""))
	assert.Equal(t, "x", link.Text())

	img := document.Find("img")
	assert.Equal(t, "i.png", img.AttrOr("src", ""))
	assert.Equal(t, "alt", img.AttrOr("alt", ""))
}

func TestRenderEscapesText(t *testing.T) {
	html, err := Render(parseMarkdown(t, `a \<b\> & c`))
	require.NoError(t, err)
	assert.Equal(t, "<p>a &lt;b&gt; &amp; c</p>", html)
}

func TestRenderNil(t *testing.T) {
	_, err := Render(nil)
	require.Error(t, err)
}

func TestParseHTML(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "paragraph with marks",
			input: "<p>a <b>b</b> <i>c</i></p>",
			want:  `doc(paragraph("a ", strong("b"), " ", em("c")))`,
		},
		{
			name:  "whitespace collapses",
			input: "<p>\n  a\n   b  </p>",
			want:  `doc(paragraph("a b"))`,
		},
		{
			name:  "loose inline content is wrapped",
			input: "<div>hello <em>world</em></div>",
			want:  `doc(paragraph("hello ", em("world")))`,
		},
		{
			name:  "line break",
			input: "<p>a <br> b</p>",
			want:  `doc(paragraph("a", hard_break, "b"))`,
		},
		{
			name:  "heading",
			input: "<h3>T</h3>",
			want:  `doc(heading("T"))`,
		},
		{
			name:  "list items without paragraphs",
			input: "<ul><li>a</li><li>b</li></ul>",
			want:  `doc(bullet_list(list_item(paragraph("a")), list_item(paragraph("b"))))`,
		},
		{
			name:  "list items outside a list are wrapped",
			input: "<li>a</li>\n<li>b</li><p>c</p>",
			want:  `doc(bullet_list(list_item(paragraph("a")), list_item(paragraph("b"))), paragraph("c"))`,
		},
		{
			name:  "list item inside a div",
			input: "<div>x<li>y</li></div>",
			want:  `doc(paragraph("x"), bullet_list(list_item(paragraph("y"))))`,
		},
		{
			name:  "code block",
			input: "<pre><code class=\"language-go\">x := 1\n</code></pre>",
			want:  `doc(code_block("x := 1"))`,
		},
		{
			name:  "empty input",
			input: "",
			want:  `doc(paragraph)`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseHTML(t, tt.input).String())
		})
	}
}

func TestParseHTMLAttributes(t *testing.T) {
	doc := parseHTML(t, `<ol start="5" data-tight="true"><li><p>x</p></li></ol><pre data-params="js"><code>y</code></pre><p><a href="/u" title="t">l</a><img src="i.png" alt="A"></p>`)

	list := doc.Child(0)
	assert.Equal(t, "ordered_list", list.Type().Name())
	assert.Equal(t, 5, list.IntAttr("order", 0))
	tight, ok := list.Attr("tight")
	require.True(t, ok)
	assert.Equal(t, true, tight)

	code := doc.Child(1)
	assert.Equal(t, "js", code.StringAttr("params", ""))
	assert.Equal(t, "y", code.TextContent())

	para := doc.Child(2)
	link := para.Child(0).Marks()[0]
	assert.Equal(t, "/u", link.StringAttr("href", ""))
	assert.Equal(t, "t", link.StringAttr("title", ""))
	image := para.Child(1)
	assert.Equal(t, "image", image.Type().Name())
	assert.Equal(t, "i.png", image.StringAttr("src", ""))
	assert.Equal(t, "A", image.StringAttr("alt", ""))
}

func TestHTMLRoundTrip(t *testing.T) {
	inputs := []string{
		"# Title\n\nSome *em* and **strong** with `code` and [link](http://x \"t\").",
		"* a\n* b\n\n3. x\n4. y",
		"> quote\n>\n> > nested",
		"```go\nfmt.Println()\n```\n\n    indented",
		"a\\\nb ![i](p.png)",
		"- loose\n\n- items",
	}

	for _, input := range inputs {
		first, err := Render(parseMarkdown(t, input))
		require.NoError(t, err)

		second, err := Render(parseHTML(t, first))
		require.NoError(t, err)
		assert.Equal(t, first, second, "input %q", input)
	}
}

func TestTokenizeFragment(t *testing.T) {
	tokens, err := NewTokenizer().Tokenize([]byte("<p>x</p>"))
	require.NoError(t, err)
	require.Len(t, tokens, 3)
	assert.Equal(t, "paragraph_open", tokens[0].Type)
	assert.Equal(t, "inline", tokens[1].Type)
	assert.Equal(t, "x", tokens[1].Children[0].Content)
	assert.Equal(t, "paragraph_close", tokens[2].Type)
}
