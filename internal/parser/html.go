package parser

import (
	"io"
	"strings"

	"github.com/scholarlab/datastet/internal/doctree"
	"golang.org/x/net/html"
)

// HTMLParser builds a document tree from HTML. h1-h6 open sections
// nested by level, p/li/blockquote text becomes paragraphs, and
// script/style/nav chrome is dropped.
type HTMLParser struct{}

func (p *HTMLParser) Parse(r io.Reader, filename string) (*doctree.Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, err
	}

	doc := &doctree.Document{Title: trimExt(filename)}

	type stackEntry struct {
		sec   *doctree.Section
		level int
	}
	rootSec := doctree.NewSection(doctree.KindSection)
	stack := []stackEntry{{sec: rootSec, level: 0}}

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "nav", "header", "footer", "aside":
				return
			case "title":
				if t := strings.TrimSpace(nodeText(n)); t != "" {
					doc.Title = t
				}
				return
			case "h1", "h2", "h3", "h4", "h5", "h6":
				level := int(n.Data[1] - '0')
				sec := doctree.NewSection(doctree.KindSection)
				sec.Head = strings.TrimSpace(nodeText(n))

				for len(stack) > 1 && stack[len(stack)-1].level >= level {
					stack = stack[:len(stack)-1]
				}
				stack[len(stack)-1].sec.AddSection(sec)
				stack = append(stack, stackEntry{sec: sec, level: level})
				return
			case "p", "li", "blockquote", "pre":
				if t := strings.TrimSpace(nodeText(n)); t != "" {
					stack[len(stack)-1].sec.AddParagraph(&doctree.Paragraph{Raw: t})
				}
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

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

// nodeText flattens the text content of an HTML subtree.
func nodeText(n *html.Node) string {
	var sb strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(sb.String()), " ")
}
