package parser

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/scholarlab/datastet/internal/doctree"
)

// TEIParser reads the TEI-flavored XML dialect: <div>/<head>/<p>/<s>
// inside <body>, plus <abstract> and <figure>/<figDesc> containers. The
// metadata header lists are regenerated on output and ignored on input.
type TEIParser struct{}

func (p *TEIParser) Parse(r io.Reader, filename string) (*doctree.Document, error) {
	dec := xml.NewDecoder(r)

	doc := &doctree.Document{Title: trimExt(filename)}
	var stack []*doctree.Section
	inHeader := false
	titleSet := false

	attach := func(sec *doctree.Section) {
		if len(stack) > 0 {
			stack[len(stack)-1].AddSection(sec)
		} else {
			doc.AddSection(sec)
		}
	}

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse tei: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "teiHeader":
				inHeader = true
			case "encodingDesc":
				// previously injected registries; drop and rebuild
				if err := skipElement(dec); err != nil {
					return nil, fmt.Errorf("parse tei: %w", err)
				}
			case "title":
				if inHeader && !titleSet {
					text, _, _, err := captureInner(dec, t.Name)
					if err != nil {
						return nil, fmt.Errorf("parse tei: %w", err)
					}
					if s := strings.TrimSpace(text); s != "" {
						doc.Title = s
						titleSet = true
					}
				}
			case "div":
				sec := doctree.NewSection(doctree.KindSection)
				attach(sec)
				stack = append(stack, sec)
			case "abstract":
				sec := doctree.NewSection(doctree.KindAbstract)
				attach(sec)
				stack = append(stack, sec)
			case "figDesc":
				sec := doctree.NewSection(doctree.KindFigureDesc)
				attach(sec)
				plain, markup, hasElems, err := captureInner(dec, t.Name)
				if err != nil {
					return nil, fmt.Errorf("parse tei: %w", err)
				}
				para := &doctree.Paragraph{Raw: strings.TrimSpace(plain)}
				if hasElems {
					para.Raw = strings.TrimSpace(markup)
				}
				if para.Raw != "" {
					sec.AddParagraph(para)
				}
			case "head":
				text, _, _, err := captureInner(dec, t.Name)
				if err != nil {
					return nil, fmt.Errorf("parse tei: %w", err)
				}
				if len(stack) > 0 {
					stack[len(stack)-1].Head = strings.TrimSpace(text)
				}
			case "p":
				para, err := parseParagraph(dec)
				if err != nil {
					return nil, fmt.Errorf("parse tei: %w", err)
				}
				if len(stack) > 0 {
					stack[len(stack)-1].AddParagraph(para)
				} else {
					sec := doctree.NewSection(doctree.KindSection)
					sec.AddParagraph(para)
					doc.AddSection(sec)
				}
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "teiHeader":
				inHeader = false
			case "div", "abstract":
				if len(stack) > 0 {
					stack = stack[:len(stack)-1]
				}
			}
		}
	}

	doc.Rewire()
	return doc, nil
}

// parseParagraph consumes tokens up to </p>. Sentence children become
// Sentence nodes; a sentence-free paragraph keeps its raw content for
// later segmentation, markup preserved.
func parseParagraph(dec *xml.Decoder) (*doctree.Paragraph, error) {
	para := &doctree.Paragraph{}
	var plain, markup strings.Builder
	hasElems := false

	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "s" {
				sent, err := parseSentence(dec, t)
				if err != nil {
					return nil, err
				}
				para.AddSentence(sent)
				continue
			}
			hasElems = true
			innerPlain, innerMarkup, _, err := captureInner(dec, t.Name)
			if err != nil {
				return nil, err
			}
			plain.WriteString(innerPlain)
			writeStartTag(&markup, t)
			markup.WriteString(innerMarkup)
			fmt.Fprintf(&markup, "</%s>", t.Name.Local)
		case xml.CharData:
			plain.Write(t)
			writeEscaped(&markup, string(t))
		case xml.EndElement:
			if t.Name.Local == "p" {
				if len(para.Sentences) == 0 {
					if hasElems {
						para.Raw = strings.TrimSpace(markup.String())
					} else {
						para.Raw = strings.TrimSpace(plain.String())
					}
				}
				return para, nil
			}
		}
	}
}

// parseSentence consumes tokens up to the sentence end tag.
func parseSentence(dec *xml.Decoder, start xml.StartElement) (*doctree.Sentence, error) {
	sent := &doctree.Sentence{}
	for _, attr := range start.Attr {
		switch attr.Name.Local {
		case "id":
			sent.ID = attr.Value
		case "corresp":
			sent.CorrespondsTo = attr.Value
		}
	}

	plain, markup, hasElems, err := captureInner(dec, start.Name)
	if err != nil {
		return nil, err
	}
	sent.Text = strings.TrimSpace(plain)
	if hasElems {
		sent.Markup = strings.TrimSpace(markup)
	}
	return sent, nil
}

// captureInner reads up to the end tag matching name, returning both
// the flattened character data and a reconstructed markup form.
func captureInner(dec *xml.Decoder, name xml.Name) (string, string, bool, error) {
	var plain, markup strings.Builder
	hasElems := false
	depth := 1

	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			return "", "", false, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			hasElems = true
			if t.Name.Local == name.Local {
				depth++
			}
			writeStartTag(&markup, t)
		case xml.EndElement:
			if t.Name.Local == name.Local {
				depth--
				if depth == 0 {
					return plain.String(), markup.String(), hasElems, nil
				}
			}
			fmt.Fprintf(&markup, "</%s>", t.Name.Local)
		case xml.CharData:
			plain.Write(t)
			writeEscaped(&markup, string(t))
		}
	}
	return plain.String(), markup.String(), hasElems, nil
}

func skipElement(dec *xml.Decoder) error {
	depth := 1
	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		switch tok.(type) {
		case xml.StartElement:
			depth++
		case xml.EndElement:
			depth--
		}
	}
	return nil
}

func writeStartTag(sb *strings.Builder, t xml.StartElement) {
	sb.WriteByte('<')
	sb.WriteString(t.Name.Local)
	for _, attr := range t.Attr {
		if attr.Name.Local == "xmlns" || attr.Name.Space == "xmlns" {
			continue
		}
		fmt.Fprintf(sb, ` %s="`, attrName(attr.Name))
		writeEscaped(sb, attr.Value)
		sb.WriteByte('"')
	}
	sb.WriteByte('>')
}

func attrName(n xml.Name) string {
	if n.Space == "xml" {
		return "xml:" + n.Local
	}
	return n.Local
}

func writeEscaped(sb *strings.Builder, s string) {
	_ = xml.EscapeText(sb, []byte(s))
}

func trimExt(filename string) string {
	for _, ext := range []string{".tei.xml", ".tei", ".xml", ".txt", ".md", ".markdown", ".html", ".htm"} {
		if strings.HasSuffix(filename, ext) {
			return strings.TrimSuffix(filename, ext)
		}
	}
	return filename
}
