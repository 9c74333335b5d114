package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/k0kubun/pp"
	"github.com/rgonek/prosemirror-markdown/basic"
	"github.com/rgonek/prosemirror-markdown/dom"
	"github.com/rgonek/prosemirror-markdown/model"
	"github.com/rgonek/prosemirror-markdown/parser"
	"github.com/rgonek/prosemirror-markdown/serializer"
	"github.com/rgonek/prosemirror-markdown/tokenizer"
	"gopkg.in/yaml.v3"
)

const (
	presetCommonMark = "commonmark"
	presetTight      = "tight"

	formatMarkdown = "markdown"
	formatJSON     = "json"
	formatHTML     = "html"
)

// fileConfig is the layout of the -config YAML file.
type fileConfig struct {
	Parser     parser.Config     `yaml:"parser"`
	Serializer serializer.Config `yaml:"serializer"`
}

type options struct {
	from       string
	to         string
	preset     string
	configPath string
	tight      bool
	bullet     string
	strict     bool
	dump       bool
	verbose    bool
	input      string
}

func presetConfig(preset string) (fileConfig, error) {
	switch strings.ToLower(strings.TrimSpace(preset)) {
	case "", presetCommonMark:
		return fileConfig{}, nil
	case presetTight:
		return fileConfig{
			Serializer: serializer.Config{
				TightLists:   true,
				BulletMarker: "-",
			},
		}, nil
	default:
		return fileConfig{}, fmt.Errorf("unknown preset %q (allowed: commonmark, tight)", preset)
	}
}

func loadConfigFile(path string, cfg *fileConfig) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return nil
}

func resolveConfig(opts options) (fileConfig, error) {
	cfg, err := presetConfig(opts.preset)
	if err != nil {
		return fileConfig{}, err
	}

	if opts.configPath != "" {
		if err := loadConfigFile(opts.configPath, &cfg); err != nil {
			return fileConfig{}, err
		}
	}

	if opts.tight {
		cfg.Serializer.TightLists = true
	}
	if opts.bullet != "" {
		cfg.Serializer.BulletMarker = opts.bullet
	}
	if opts.strict {
		cfg.Parser.UnknownTokens = model.UnknownError
		cfg.Serializer.UnknownNodes = model.UnknownError
		cfg.Serializer.UnknownMarks = model.UnknownError
		cfg.Serializer.ResolutionMode = serializer.ResolutionStrict
	}

	return cfg, nil
}

func validFormat(format string) bool {
	return format == formatMarkdown || format == formatJSON || format == formatHTML
}

// readDocument builds a document from data in the given format.
func readDocument(format string, data []byte, cfg parser.Config, logger *slog.Logger) (*model.Node, error) {
	var (
		p   *parser.Parser
		tok parser.Tokenizer
		err error
	)

	switch format {
	case formatJSON:
		return basic.Schema().NodeFromJSON(data)
	case formatHTML:
		tok = dom.NewTokenizer()
		p, err = dom.NewParser(cfg)
	default:
		tok = tokenizer.NewGoldmark()
		p, err = parser.NewMarkdown(cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("invalid parser config: %w", err)
	}

	tokens, err := tok.Tokenize(data)
	if err != nil {
		return nil, err
	}
	result, err := p.ParseTokens(context.Background(), tokens)
	if err != nil {
		return nil, err
	}
	logWarnings(logger, result.Warnings)
	return result.Doc, nil
}

// dumpTree pretty-prints the document tree in its JSON shape.
func dumpTree(w io.Writer, doc *model.Node) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}
	var tree map[string]any
	if err := json.Unmarshal(data, &tree); err != nil {
		return fmt.Errorf("failed to decode document: %w", err)
	}
	_, err = pp.Fprintln(w, tree)
	return err
}

func writeDocument(format string, doc *model.Node, cfg serializer.Config, logger *slog.Logger) (string, error) {
	switch format {
	case formatJSON:
		pretty, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return "", fmt.Errorf("failed to format document JSON: %w", err)
		}
		return string(pretty) + "\n", nil
	case formatHTML:
		html, err := dom.Render(doc)
		if err != nil {
			return "", err
		}
		return html + "\n", nil
	default:
		s, err := serializer.Default(cfg)
		if err != nil {
			return "", fmt.Errorf("invalid serializer config: %w", err)
		}
		result, err := s.Serialize(doc)
		if err != nil {
			return "", err
		}
		logWarnings(logger, result.Warnings)
		return result.Markdown + "\n", nil
	}
}

func logWarnings(logger *slog.Logger, warnings []model.Warning) {
	for _, w := range warnings {
		logger.Warn(w.Message, "type", w.Type, "node", w.NodeType)
	}
}

func readInput(path string, stdin io.Reader) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}

func run(opts options, stdin io.Reader, stdout, stderr io.Writer) error {
	level := slog.LevelWarn
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	if !validFormat(opts.from) {
		return fmt.Errorf("invalid input format %q (allowed: markdown, json, html)", opts.from)
	}
	if !validFormat(opts.to) {
		return fmt.Errorf("invalid output format %q (allowed: markdown, json, html)", opts.to)
	}

	cfg, err := resolveConfig(opts)
	if err != nil {
		return err
	}

	data, err := readInput(opts.input, stdin)
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}

	doc, err := readDocument(opts.from, data, cfg.Parser, logger)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", opts.from, err)
	}
	if opts.dump {
		if err := dumpTree(stderr, doc); err != nil {
			return err
		}
	}
	logger.Debug("Document built", "depth", doc.Depth(), "blocks", doc.ChildCount())

	out, err := writeDocument(opts.to, doc, cfg.Serializer, logger)
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", opts.to, err)
	}
	if _, err := io.WriteString(stdout, out); err != nil {
		return err
	}

	logger.Info("Converted document",
		"from", opts.from,
		"to", opts.to,
		"in", humanize.Bytes(uint64(len(data))),
		"out", humanize.Bytes(uint64(len(out))),
	)
	return nil
}

func main() {
	var opts options
	flag.StringVar(&opts.from, "from", formatMarkdown, "Input format: markdown|json|html")
	flag.StringVar(&opts.to, "to", formatMarkdown, "Output format: markdown|json|html")
	flag.StringVar(&opts.preset, "preset", presetCommonMark, "Preset: commonmark|tight")
	flag.StringVar(&opts.configPath, "config", "", "YAML config file")
	flag.BoolVar(&opts.tight, "tight", false, "Render lists tight unless the document says otherwise")
	flag.StringVar(&opts.bullet, "bullet", "", "Bullet marker: *|-|+")
	flag.BoolVar(&opts.strict, "strict", false, "Return error on unknown tokens, nodes, marks and unresolved links")
	flag.BoolVar(&opts.dump, "dump", false, "Pretty-print the document tree to stderr")
	flag.BoolVar(&opts.verbose, "v", false, "Verbose logs")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: pmmd [options] [input-file]\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if args := flag.Args(); len(args) > 0 {
		opts.input = args[0]
	}

	if err := run(opts, os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
