package parser

import (
	"bufio"
	"io"
	"strings"

	"github.com/scholarlab/datastet/internal/doctree"
)

// TextParser reads plain text. Blank lines delimit paragraphs; a short
// line without terminal punctuation followed by a blank line is treated
// as a section heading.
type TextParser struct{}

const maxHeadingLen = 80

func (p *TextParser) Parse(r io.Reader, filename string) (*doctree.Document, error) {
	doc := &doctree.Document{Title: trimExt(filename)}
	current := doctree.NewSection(doctree.KindSection)
	doc.AddSection(current)

	var block []string
	flush := func() {
		if len(block) == 0 {
			return
		}
		text := strings.TrimSpace(strings.Join(block, " "))
		block = block[:0]
		if text == "" {
			return
		}
		if looksLikeHeading(text) {
			sec := doctree.NewSection(doctree.KindSection)
			sec.Head = text
			doc.AddSection(sec)
			current = sec
			return
		}
		current.AddParagraph(&doctree.Paragraph{Raw: text})
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			flush()
			continue
		}
		block = append(block, line)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	flush()

	// drop the leading section if nothing ever landed in it
	if len(doc.Sections) > 1 && len(doc.Sections[0].Paragraphs) == 0 && doc.Sections[0].Head == "" {
		doc.Sections = doc.Sections[1:]
	}

	doc.Rewire()
	return doc, nil
}

func looksLikeHeading(text string) bool {
	if len(text) > maxHeadingLen || strings.Contains(text, "\n") {
		return false
	}
	switch text[len(text)-1] {
	case '.', '!', '?', ',', ';', ':':
		return false
	}
	return true
}
