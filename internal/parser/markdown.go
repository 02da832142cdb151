package parser

import (
	"bytes"
	"io"
	"strings"

	"github.com/scholarlab/datastet/internal/doctree"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// MarkdownParser builds a document tree from Markdown using goldmark.
// Headings become section heads, nested by level; paragraph blocks
// become unsegmented paragraphs.
type MarkdownParser struct{}

func (p *MarkdownParser) Parse(r io.Reader, filename string) (*doctree.Document, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	md := goldmark.New()
	reader := text.NewReader(src)
	root := md.Parser().Parse(reader)

	doc := &doctree.Document{Title: trimExt(filename)}

	// Track nesting with a stack keyed on heading level. Level 0 is a
	// synthetic root collecting pre-heading text.
	type stackEntry struct {
		sec   *doctree.Section
		level int
	}
	rootSec := doctree.NewSection(doctree.KindSection)
	stack := []stackEntry{{sec: rootSec, level: 0}}

	for n := root.FirstChild(); n != nil; n = n.NextSibling() {
		switch node := n.(type) {
		case *ast.Heading:
			level := node.Level
			sec := doctree.NewSection(doctree.KindSection)
			sec.Head = extractText(node, src)

			for len(stack) > 1 && stack[len(stack)-1].level >= level {
				stack = stack[:len(stack)-1]
			}
			stack[len(stack)-1].sec.AddSection(sec)
			stack = append(stack, stackEntry{sec: sec, level: level})

		default:
			t := extractText(n, src)
			if t != "" {
				stack[len(stack)-1].sec.AddParagraph(&doctree.Paragraph{Raw: t})
			}
		}
	}

	// Hoist: sections under the synthetic root become top-level; loose
	// pre-heading text keeps a headless section of its own.
	if len(rootSec.Paragraphs) > 0 {
		loose := doctree.NewSection(doctree.KindSection)
		for _, para := range rootSec.Paragraphs {
			loose.AddParagraph(para)
		}
		doc.AddSection(loose)
	}
	for _, sec := range rootSec.Sections {
		doc.AddSection(sec)
	}

	doc.Rewire()
	return doc, nil
}

// extractText gets the text content of a goldmark AST node. Blocks with
// source lines (paragraphs, code) read their lines directly; container
// blocks (lists, quotes) recurse into their children.
func extractText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	if n.Type() == ast.TypeBlock && n.Lines().Len() > 0 {
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			buf.Write(seg.Value(src))
			buf.WriteByte(' ')
		}
	} else {
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			buf.WriteString(extractText(c, src))
			buf.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(buf.String()), " ")
}
