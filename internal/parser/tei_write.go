package parser

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/scholarlab/datastet/internal/doctree"
)

const teiNS = "http://www.tei-c.org/ns/1.0"

// WriteTEI serializes the document, enrichment included, back to the
// TEI-flavored XML dialect. Registry lists appear under
// <teiHeader>/<encodingDesc> in insertion order; the header is omitted
// entirely when the document carries no metadata.
func WriteTEI(w io.Writer, doc *doctree.Document) error {
	tw := &teiWriter{w: w}

	tw.printf("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	tw.printf("<TEI xmlns=%q>\n", teiNS)

	tw.writeHeader(doc)

	tw.printf("  <text>\n    <body>\n")
	for _, sec := range doc.Sections {
		tw.writeSection(sec, 3)
	}
	tw.printf("    </body>\n  </text>\n</TEI>\n")

	return tw.err
}

type teiWriter struct {
	w   io.Writer
	err error
}

func (tw *teiWriter) printf(format string, args ...any) {
	if tw.err != nil {
		return
	}
	_, tw.err = fmt.Fprintf(tw.w, format, args...)
}

func (tw *teiWriter) writeHeader(doc *doctree.Document) {
	title := strings.TrimSpace(doc.Title)
	header := doc.Header
	if title == "" && header == nil {
		return
	}

	tw.printf("  <teiHeader>\n")
	if title != "" {
		tw.printf("    <fileDesc><titleStmt><title>%s</title></titleStmt></fileDesc>\n", escape(title))
	}
	if header != nil && (len(header.Datasets) > 0 || len(header.DataInstances) > 0) {
		tw.printf("    <encodingDesc>\n")
		if len(header.Datasets) > 0 {
			tw.printf("      <list type=\"dataset\">\n")
			for _, ds := range header.Datasets {
				tw.printf("        <dataset xml:id=%q", ds.ID)
				if ds.Type != "" {
					tw.printf(" type=%q", escape(ds.Type))
				}
				if ds.Subtype != "" {
					tw.printf(" subtype=%q", escape(ds.Subtype))
				}
				tw.printf("/>\n")
			}
			tw.printf("      </list>\n")
		}
		if len(header.DataInstances) > 0 {
			tw.printf("      <list type=\"dataInstance\">\n")
			for _, di := range header.DataInstances {
				tw.printf("        <dataInstance xml:id=%q corresp=\"#%s\" reuse=%q cert=%q/>\n",
					di.ID, di.DatasetID, strconv.FormatBool(di.Reuse),
					strconv.FormatFloat(di.Score, 'g', -1, 64))
			}
			tw.printf("      </list>\n")
		}
		tw.printf("    </encodingDesc>\n")
	}
	tw.printf("  </teiHeader>\n")
}

func (tw *teiWriter) writeSection(sec *doctree.Section, depth int) {
	ind := strings.Repeat("  ", depth)

	openTag, closeTag := sectionTags(sec)
	tw.printf("%s%s\n", ind, openTag)

	if sec.Head != "" {
		tw.printf("%s  <head>%s</head>\n", ind, escape(sec.Head))
	}
	for _, p := range sec.Paragraphs {
		tw.writeParagraph(p, depth+1)
	}
	for _, child := range sec.Sections {
		tw.writeSection(child, depth+1)
	}

	tw.printf("%s%s\n", ind, closeTag)
}

func sectionTags(sec *doctree.Section) (string, string) {
	switch sec.Kind {
	case doctree.KindAbstract:
		return "<abstract>", "</abstract>"
	case doctree.KindFigureDesc:
		return "<figure><figDesc>", "</figDesc></figure>"
	default:
		if sec.HasDataset {
			return `<div subtype="dataseer">`, "</div>"
		}
		return "<div>", "</div>"
	}
}

func (tw *teiWriter) writeParagraph(p *doctree.Paragraph, depth int) {
	ind := strings.Repeat("  ", depth)

	if len(p.Sentences) == 0 {
		if strings.Contains(p.Raw, "<") {
			// raw content reconstructed with markup is already escaped
			tw.printf("%s<p>%s</p>\n", ind, p.Raw)
		} else {
			tw.printf("%s<p>%s</p>\n", ind, escape(p.Raw))
		}
		return
	}

	tw.printf("%s<p>\n", ind)
	for _, sent := range p.Sentences {
		tw.printf("%s  <s", ind)
		if sent.ID != "" {
			tw.printf(" xml:id=%q", sent.ID)
		}
		if sent.CorrespondsTo != "" {
			tw.printf(" corresp=%q", sent.CorrespondsTo)
		}
		if sent.Markup != "" {
			tw.printf(">%s</s>\n", sent.Markup)
		} else {
			tw.printf(">%s</s>\n", escape(sent.Text))
		}
	}
	tw.printf("%s</p>\n", ind)
}

func escape(s string) string {
	var sb strings.Builder
	_ = xml.EscapeText(&sb, []byte(s))
	return sb.String()
}
