// Package segment splits paragraph and figure-caption text into
// sentence nodes without breaking inline markup. Slices that would split
// a live markup span are buffered and merged with the next candidate, so
// no source text is ever dropped.
package segment

import (
	"encoding/xml"
	"errors"
	"io"
	"log/slog"
	"regexp"
	"strings"

	"github.com/scholarlab/datastet/internal/doctree"
)

// Span is a half-open [Start,End) byte range into the source text.
type Span struct {
	Start int
	End   int
}

// BoundaryDetector finds candidate sentence boundaries in raw text. The
// detector is an external collaborator; PragmaticDetector is a built-in
// fallback for standalone use.
type BoundaryDetector interface {
	DetectBoundaries(text string) []Span
}

// Segmenter performs the optional sentence-segmentation pre-pass.
type Segmenter struct {
	det BoundaryDetector
	log *slog.Logger
}

func New(det BoundaryDetector, log *slog.Logger) *Segmenter {
	if det == nil {
		det = PragmaticDetector{}
	}
	return &Segmenter{det: det, log: log}
}

// SegmentDocument splits every unsegmented paragraph of the document
// into sentences. Figure-description containers additionally get their
// sentences wrapped in a section/paragraph shim so downstream processing
// treats them uniformly with regular paragraphs.
func (sg *Segmenter) SegmentDocument(doc *doctree.Document) {
	doc.Walk(func(sec *doctree.Section) bool {
		for _, p := range sec.Paragraphs {
			sg.segmentParagraph(p)
		}
		if sec.Kind == doctree.KindFigureDesc && len(sec.Paragraphs) > 0 {
			wrapFigureDesc(sec)
		}
		return true
	})
}

// segmentParagraph replaces the paragraph's raw text with sentence
// nodes. Paragraphs that already carry sentences are left untouched.
func (sg *Segmenter) segmentParagraph(p *doctree.Paragraph) {
	if len(p.Sentences) > 0 || strings.TrimSpace(p.Raw) == "" {
		return
	}

	text := p.Raw
	var pending []string
	for _, span := range sg.det.DetectBoundaries(text) {
		slice := text[span.Start:span.End]
		candidate := slice
		if len(pending) > 0 {
			candidate = strings.Join(pending, " ") + " " + slice
		}

		if !wellFormed(candidate) {
			// a markup span was cut through; keep the slice and retry
			// with the next candidate appended
			sg.log.Debug("boundary split live markup, buffering slice", "len", len(slice))
			pending = append(pending, slice)
			continue
		}
		p.AddSentence(newSentence(candidate))
		pending = nil
	}

	// flush any trailing malformed buffer as plain text so nothing from
	// the source is lost
	if len(pending) > 0 {
		leftover := strings.Join(pending, " ")
		sent := newSentence(leftover)
		sent.Markup = ""
		sent.Text = normalizeSpace(stripMarkup(leftover))
		p.AddSentence(sent)
	}
}

// wrapFigureDesc moves the container's sentences under an inner
// section/paragraph pair. The inner section's parent stays the
// figure-description container, which keeps it out of relevance
// processing.
func wrapFigureDesc(sec *doctree.Section) {
	inner := doctree.NewSection(doctree.KindSection)
	merged := &doctree.Paragraph{}
	for _, p := range sec.Paragraphs {
		for _, sent := range p.Sentences {
			merged.AddSentence(sent)
		}
	}
	inner.AddParagraph(merged)
	sec.Paragraphs = nil
	sec.AddSection(inner)
}

func newSentence(slice string) *doctree.Sentence {
	sent := &doctree.Sentence{}
	if strings.Contains(slice, "<") {
		sent.Markup = normalizeSpace(escapeBareAmps(slice))
		sent.Text = normalizeSpace(stripMarkup(slice))
	} else {
		sent.Text = normalizeSpace(slice)
	}
	return sent
}

var multiSpaceRe = regexp.MustCompile(` +`)

func normalizeSpace(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	s = multiSpaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// wellFormed reports whether the slice, wrapped as a sentence unit,
// parses as XML. Slices without tags are always well formed: a bare
// ampersand in parsed chardata ("R&D") is text, not broken markup.
func wellFormed(slice string) bool {
	if !strings.Contains(slice, "<") {
		return true
	}
	dec := xml.NewDecoder(strings.NewReader("<s>" + escapeBareAmps(slice) + "</s>"))
	for {
		_, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return true
		}
		if err != nil {
			return false
		}
	}
}

// stripMarkup extracts the character data of a markup slice. On any
// parse failure the angle brackets are dropped mechanically.
func stripMarkup(slice string) string {
	if !strings.Contains(slice, "<") {
		return slice
	}
	dec := xml.NewDecoder(strings.NewReader("<s>" + escapeBareAmps(slice) + "</s>"))
	var sb strings.Builder
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return sb.String()
		}
		if err != nil {
			if sb.Len() > 0 {
				return sb.String()
			}
			return tagRe.ReplaceAllString(slice, "")
		}
		if cd, ok := tok.(xml.CharData); ok {
			sb.Write(cd)
		}
	}
}

var tagRe = regexp.MustCompile(`<[^>]*>`)

var entityRe = regexp.MustCompile(`^&(#[0-9]+|#x[0-9a-fA-F]+|[a-zA-Z][a-zA-Z0-9]*);`)

// escapeBareAmps escapes ampersands that do not start an entity
// reference. Parsers hand us decoder-unescaped chardata, so "&" must be
// re-escaped before a slice can be checked or stored as markup.
func escapeBareAmps(s string) string {
	if !strings.Contains(s, "&") {
		return s
	}
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '&' && !entityRe.MatchString(s[i:]) {
			sb.WriteString("&amp;")
			continue
		}
		sb.WriteByte(s[i])
	}
	return sb.String()
}

// PragmaticDetector is a conservative built-in boundary detector: it
// splits after terminal punctuation followed by a space, ignoring
// punctuation inside markup tags.
type PragmaticDetector struct{}

func (PragmaticDetector) DetectBoundaries(text string) []Span {
	var spans []Span
	start := 0
	inTag := false
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '<':
			inTag = true
		case '>':
			inTag = false
		case '.', '!', '?':
			if inTag || i+1 >= len(text) || text[i+1] != ' ' {
				continue
			}
			spans = append(spans, Span{Start: start, End: i + 1})
			j := i + 1
			for j < len(text) && text[j] == ' ' {
				j++
			}
			start = j
			i = j - 1
		}
	}
	if start < len(text) && strings.TrimSpace(text[start:]) != "" {
		spans = append(spans, Span{Start: start, End: len(text)})
	}
	return spans
}
