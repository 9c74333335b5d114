package parser

import (
	"context"
	"errors"
	"testing"

	"github.com/rgonek/prosemirror-markdown/basic"
	"github.com/rgonek/prosemirror-markdown/model"
	"github.com/rgonek/prosemirror-markdown/tokenizer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTokenParser(t *testing.T, cfg Config) *Parser {
	t.Helper()
	p, err := New(basic.Schema(), nil, MarkdownTokens(), cfg)
	require.NoError(t, err)
	return p
}

func paragraph(children ...tokenizer.Token) []tokenizer.Token {
	return []tokenizer.Token{
		tokenizer.Open("paragraph", "p", nil),
		tokenizer.Inline(children...),
		tokenizer.Close("paragraph", "p"),
	}
}

func TestParseTokens(t *testing.T) {
	tests := []struct {
		name   string
		tokens []tokenizer.Token
		want   string
	}{
		{
			name:   "adjacent text merges",
			tokens: paragraph(tokenizer.Text("a"), tokenizer.Text("b")),
			want:   `doc(paragraph("ab"))`,
		},
		{
			name: "marks split text",
			tokens: paragraph(
				tokenizer.Text("a"),
				tokenizer.Open("em", "em", nil),
				tokenizer.Text("b"),
				tokenizer.Close("em", "em"),
				tokenizer.Text("c"),
			),
			want: `doc(paragraph("a", em("b"), "c"))`,
		},
		{
			name: "softbreak becomes newline text",
			tokens: paragraph(
				tokenizer.Text("a"),
				tokenizer.Token{Type: "softbreak"},
				tokenizer.Text("b"),
			),
			want: `doc(paragraph("a\nb"))`,
		},
		{
			name: "literal mark strips trailing newline",
			tokens: paragraph(
				tokenizer.Token{Type: "code_inline", Content: "x\n"},
			),
			want: `doc(paragraph(code("x")))`,
		},
		{
			name: "hard break is a leaf",
			tokens: paragraph(
				tokenizer.Text("a"),
				tokenizer.Token{Type: "hardbreak"},
				tokenizer.Text("b"),
			),
			want: `doc(paragraph("a", hard_break, "b"))`,
		},
		{
			name: "open frames close at end of stream",
			tokens: []tokenizer.Token{
				tokenizer.Open("blockquote", "blockquote", nil),
				tokenizer.Open("paragraph", "p", nil),
				tokenizer.Text("a"),
			},
			want: `doc(blockquote(paragraph("a")))`,
		},
		{
			name:   "empty stream fills the root",
			tokens: nil,
			want:   `doc(paragraph)`,
		},
	}

	p := newTokenParser(t, Config{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := p.ParseTokens(context.Background(), tt.tokens)
			require.NoError(t, err)
			assert.Equal(t, tt.want, result.Doc.String())
			assert.Empty(t, result.Warnings)
		})
	}
}

func TestParseTokensCodeBlock(t *testing.T) {
	p := newTokenParser(t, Config{})

	result, err := p.ParseTokens(context.Background(), []tokenizer.Token{
		{Type: "fence", Info: "go", Content: "a := 1\n"},
	})
	require.NoError(t, err)

	block := result.Doc.Child(0)
	assert.Equal(t, "code_block", block.Type().Name())
	assert.Equal(t, "go", block.StringAttr("params", ""))
	assert.Equal(t, "a := 1", block.TextContent())
}

func TestParseTokensMarksDoNotLeak(t *testing.T) {
	p := newTokenParser(t, Config{})

	tokens := []tokenizer.Token{
		tokenizer.Open("paragraph", "p", nil),
		tokenizer.Open("strong", "strong", nil),
		tokenizer.Text("a"),
		tokenizer.Close("paragraph", "p"),
	}
	tokens = append(tokens, paragraph(tokenizer.Text("b"))...)

	result, err := p.ParseTokens(context.Background(), tokens)
	require.NoError(t, err)
	assert.Equal(t, `doc(paragraph(strong("a")), paragraph("b"))`, result.Doc.String())
}

func TestParseTokensUnsupportedToken(t *testing.T) {
	p := newTokenParser(t, Config{})

	result, err := p.ParseTokens(context.Background(), []tokenizer.Token{
		tokenizer.Open("table", "table", nil),
	})
	require.Error(t, err)

	var unsupported *UnsupportedTokenError
	require.True(t, errors.As(err, &unsupported))
	assert.Equal(t, "table_open", unsupported.Type)
	assert.Nil(t, result.Doc)
}

func TestParseTokensSkipUnknown(t *testing.T) {
	p := newTokenParser(t, Config{UnknownTokens: model.UnknownSkip})

	tokens := append([]tokenizer.Token{{Type: "html_block", Content: "<div>"}}, paragraph(tokenizer.Text("a"))...)
	result, err := p.ParseTokens(context.Background(), tokens)
	require.NoError(t, err)

	assert.Equal(t, `doc(paragraph("a"))`, result.Doc.String())
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, model.WarningUnknownToken, result.Warnings[0].Type)
	assert.Equal(t, "html_block", result.Warnings[0].NodeType)
}

func TestParseTokensDropsUnfillableNode(t *testing.T) {
	p := newTokenParser(t, Config{})

	result, err := p.ParseTokens(context.Background(), []tokenizer.Token{
		tokenizer.Open("blockquote", "blockquote", nil),
		tokenizer.Text("loose"),
		tokenizer.Close("blockquote", "blockquote"),
	})
	require.NoError(t, err)

	assert.Equal(t, `doc(paragraph)`, result.Doc.String())
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, model.WarningDroppedNode, result.Warnings[0].Type)
	assert.Equal(t, "blockquote", result.Warnings[0].NodeType)
}

func TestParseTokensUnbalanced(t *testing.T) {
	p := newTokenParser(t, Config{})

	t.Run("close without open", func(t *testing.T) {
		_, err := p.ParseTokens(context.Background(), []tokenizer.Token{
			tokenizer.Close("paragraph", "p"),
		})
		assert.ErrorIs(t, err, ErrUnbalancedTokens)
	})

	t.Run("mismatched close", func(t *testing.T) {
		_, err := p.ParseTokens(context.Background(), []tokenizer.Token{
			tokenizer.Open("blockquote", "blockquote", nil),
			tokenizer.Close("paragraph", "p"),
		})
		assert.ErrorIs(t, err, ErrUnbalancedTokens)
	})
}

func TestParseTokensCanceled(t *testing.T) {
	p := newTokenParser(t, Config{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.ParseTokens(ctx, paragraph(tokenizer.Text("a")))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewRejectsBadSpecs(t *testing.T) {
	tests := []struct {
		name string
		spec TokenSpec
	}{
		{name: "empty", spec: TokenSpec{}},
		{name: "block and mark", spec: TokenSpec{Block: "paragraph", Mark: "em"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(basic.Schema(), nil, map[string]TokenSpec{"weird": tt.spec}, Config{})
			var unrecognized *UnrecognizedSpecError
			require.True(t, errors.As(err, &unrecognized))
			assert.Equal(t, "weird", unrecognized.Type)
		})
	}

	t.Run("unknown schema type", func(t *testing.T) {
		_, err := New(basic.Schema(), nil, map[string]TokenSpec{"table": {Block: "table"}}, Config{})
		assert.ErrorIs(t, err, model.ErrUnknownType)
	})

	t.Run("invalid config", func(t *testing.T) {
		_, err := New(basic.Schema(), nil, MarkdownTokens(), Config{UnknownTokens: "explode"})
		assert.Error(t, err)
	})
}

func TestParseMarkdown(t *testing.T) {
	p := Default()

	t.Run("heading and ordered list", func(t *testing.T) {
		result, err := p.Parse("## Title\n\n3. a\n4. b\n")
		require.NoError(t, err)

		doc := result.Doc
		require.Equal(t, 2, doc.ChildCount())
		heading := doc.Child(0)
		assert.Equal(t, "heading", heading.Type().Name())
		assert.Equal(t, 2, heading.IntAttr("level", 0))
		assert.Equal(t, "Title", heading.TextContent())

		list := doc.Child(1)
		assert.Equal(t, "ordered_list", list.Type().Name())
		assert.Equal(t, 3, list.IntAttr("order", 0))
		tight, _ := list.Attr("tight")
		assert.Equal(t, true, tight)
		assert.Equal(t, `ordered_list(list_item(paragraph("a")), list_item(paragraph("b")))`, list.String())
	})

	t.Run("nesting depth", func(t *testing.T) {
		result, err := p.Parse("> > a")
		require.NoError(t, err)
		assert.Equal(t, `doc(blockquote(blockquote(paragraph("a"))))`, result.Doc.String())
		assert.Equal(t, 5, result.Doc.Depth())
	})

	t.Run("links and images", func(t *testing.T) {
		result, err := p.Parse(`[go *now*](https://go.dev "Go") ![logo](/l.png)`)
		require.NoError(t, err)

		para := result.Doc.Child(0)
		require.Equal(t, 4, para.ChildCount())
		link := para.Child(0).Marks()[0]
		assert.Equal(t, "link", link.Type().Name())
		assert.Equal(t, "https://go.dev", link.StringAttr("href", ""))
		assert.Equal(t, "Go", link.StringAttr("title", ""))
		assert.Len(t, para.Child(1).Marks(), 2)

		img := para.Child(3)
		assert.Equal(t, "image", img.Type().Name())
		assert.Equal(t, "/l.png", img.StringAttr("src", ""))
		assert.Equal(t, "logo", img.StringAttr("alt", ""))
	})

	t.Run("bullet marker", func(t *testing.T) {
		result, err := p.Parse("+ a\n\n+ b\n")
		require.NoError(t, err)

		list := result.Doc.Child(0)
		assert.Equal(t, "+", list.StringAttr("bullet", ""))
		tight, _ := list.Attr("tight")
		assert.Equal(t, false, tight)
	})
}

func TestParserConcurrentUse(t *testing.T) {
	p := Default()
	done := make(chan string, 8)
	for i := 0; i < cap(done); i++ {
		go func() {
			result, err := p.Parse("* a\n* *b*\n")
			if err != nil {
				done <- err.Error()
				return
			}
			done <- result.Doc.String()
		}()
	}
	for i := 0; i < cap(done); i++ {
		assert.Equal(t, `doc(bullet_list(list_item(paragraph("a")), list_item(paragraph(em("b")))))`, <-done)
	}
}

func FuzzParse(f *testing.F) {
	seeds := []string{
		"",
		"# Title\n\ntext",
		"* a\n* b\n\n1. c\n2. d",
		"> quote\n> more",
		"```go\ncode\n```",
		"**strong _em_** `code` [link](http://x)",
		"![img](src \"t\")\\\nnext",
	}
	for _, seed := range seeds {
		f.Add(seed)
	}

	p := Default()
	f.Fuzz(func(t *testing.T, input string) {
		result, err := p.Parse(input)
		if err != nil {
			return
		}
		require.NotNil(t, result.Doc)
		require.NoError(t, result.Doc.Check())
	})
}

func BenchmarkParse(b *testing.B) {
	input := "# Title\n\nSome *emphasis* and **strong** text with a [link](https://example.com).\n\n" +
		"* one\n* two\n  * nested\n\n> quote\n\n```go\nfmt.Println(1)\n```\n"
	p := Default()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := p.Parse(input); err != nil {
			b.Fatal(err)
		}
	}
}
