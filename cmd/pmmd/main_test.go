package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rgonek/prosemirror-markdown/model"
	"github.com/rgonek/prosemirror-markdown/serializer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPresetConfig(t *testing.T) {
	t.Run("commonmark", func(t *testing.T) {
		cfg, err := presetConfig(presetCommonMark)
		require.NoError(t, err)
		assert.Equal(t, fileConfig{}, cfg)
	})

	t.Run("empty defaults to commonmark", func(t *testing.T) {
		cfg, err := presetConfig("")
		require.NoError(t, err)
		assert.Equal(t, fileConfig{}, cfg)
	})

	t.Run("tight", func(t *testing.T) {
		cfg, err := presetConfig(" Tight ")
		require.NoError(t, err)
		assert.True(t, cfg.Serializer.TightLists)
		assert.Equal(t, "-", cfg.Serializer.BulletMarker)
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := presetConfig("pandoc")
		require.Error(t, err)
		assert.Contains(t, err.Error(), `unknown preset "pandoc"`)
	})
}

func TestResolveConfig(t *testing.T) {
	t.Run("flags override preset", func(t *testing.T) {
		cfg, err := resolveConfig(options{preset: presetTight, bullet: "+", strict: true})
		require.NoError(t, err)
		assert.True(t, cfg.Serializer.TightLists)
		assert.Equal(t, "+", cfg.Serializer.BulletMarker)
		assert.Equal(t, model.UnknownError, cfg.Parser.UnknownTokens)
		assert.Equal(t, model.UnknownError, cfg.Serializer.UnknownNodes)
		assert.Equal(t, serializer.ResolutionStrict, cfg.Serializer.ResolutionMode)
	})

	t.Run("config file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "pmmd.yaml")
		content := "parser:\n  unknownTokens: skip\nserializer:\n  hardBreakStyle: spaces\n  orderedListStyle: lazy\n"
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

		cfg, err := resolveConfig(options{preset: presetTight, configPath: path, tight: true})
		require.NoError(t, err)
		assert.Equal(t, model.UnknownSkip, cfg.Parser.UnknownTokens)
		assert.Equal(t, serializer.HardBreakSpaces, cfg.Serializer.HardBreakStyle)
		assert.Equal(t, serializer.OrderedLazy, cfg.Serializer.OrderedListStyle)
		assert.Equal(t, "-", cfg.Serializer.BulletMarker)
		assert.True(t, cfg.Serializer.TightLists)
	})

	t.Run("missing config file", func(t *testing.T) {
		_, err := resolveConfig(options{configPath: filepath.Join(t.TempDir(), "missing.yaml")})
		require.Error(t, err)
	})

	t.Run("malformed config file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("serializer: [1, 2"), 0o600))
		_, err := resolveConfig(options{configPath: path})
		require.Error(t, err)
	})
}

func convert(t *testing.T, opts options, input string) (string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	require.NoError(t, run(opts, strings.NewReader(input), &stdout, &stderr))
	return stdout.String(), stderr.String()
}

func TestRunMarkdown(t *testing.T) {
	out, _ := convert(t, options{from: formatMarkdown, to: formatMarkdown}, "Title\n=====\n\n_a_ b")
	assert.Equal(t, "# Title\n\n*a* b\n", out)
}

func TestRunJSONRoundTrip(t *testing.T) {
	jsonOut, _ := convert(t, options{from: formatMarkdown, to: formatJSON}, "## *x*\n\n1. a\n2. b")
	assert.Contains(t, jsonOut, `"type": "em"`)
	assert.Contains(t, jsonOut, `"level": 2`)

	out, _ := convert(t, options{from: formatJSON, to: formatMarkdown}, jsonOut)
	assert.Equal(t, "## *x*\n\n1. a\n2. b\n", out)
}

func TestRunHTML(t *testing.T) {
	out, _ := convert(t, options{from: formatMarkdown, to: formatHTML}, "a **b**")
	assert.Equal(t, "<p>a <strong>b</strong></p>\n", out)

	out, _ = convert(t, options{from: formatHTML, to: formatMarkdown, bullet: "-"}, "<ul><li>x</li><li>y</li></ul>")
	assert.Equal(t, "- x\n\n- y\n", out)
}

func TestRunInputFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.md")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o600))

	out, _ := convert(t, options{from: formatMarkdown, to: formatMarkdown, input: path}, "")
	assert.Equal(t, "hello\n", out)
}

func TestRunVerboseAndDump(t *testing.T) {
	_, stderr := convert(t, options{from: formatMarkdown, to: formatMarkdown, verbose: true, dump: true}, "hi")
	assert.Contains(t, stderr, "paragraph")
	assert.Contains(t, stderr, "hi")
	assert.Contains(t, stderr, "Converted document")
	assert.Contains(t, stderr, "in=\"2 B\"")
}

func TestRunDumpJSONInput(t *testing.T) {
	input := `{"type":"doc","content":[{"type":"heading","attrs":{"level":3},"content":[{"type":"text","text":"T"}]}]}`
	out, stderr := convert(t, options{from: formatJSON, to: formatMarkdown, dump: true}, input)
	assert.Equal(t, "### T\n", out)
	assert.Contains(t, stderr, "heading")
	assert.Contains(t, stderr, "level")
}

func TestRunErrors(t *testing.T) {
	var stdout, stderr bytes.Buffer

	err := run(options{from: "rtf", to: formatMarkdown}, strings.NewReader(""), &stdout, &stderr)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid input format "rtf"`)

	err = run(options{from: formatMarkdown, to: "pdf"}, strings.NewReader(""), &stdout, &stderr)
	require.Error(t, err)

	err = run(options{from: formatMarkdown, to: formatMarkdown, bullet: "x"}, strings.NewReader("a"), &stdout, &stderr)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid bulletMarker")

	err = run(options{from: formatJSON, to: formatMarkdown}, strings.NewReader(`{"type":"doc","content":[{"type":"table"}]}`), &stdout, &stderr)
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrUnknownType)
}
