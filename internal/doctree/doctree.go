package doctree

import "fmt"

// Kind distinguishes regular sections from the special containers that
// are excluded from relevance and annotation processing.
type Kind string

const (
	KindSection    Kind = "section"
	KindAbstract   Kind = "abstract"
	KindFigureDesc Kind = "figure-desc"
)

// Document is the root of a structured document: an ordered tree of
// sections plus an optional metadata header created on demand.
type Document struct {
	Title    string
	Header   *Header
	Sections []*Section
}

// Section is a recursive container of paragraphs and subsections. The
// parent back-reference is non-owning and used only for ancestor walks.
type Section struct {
	Kind       Kind
	Head       string
	Paragraphs []*Paragraph
	Sections   []*Section

	// HasDataset is set once the section contains at least one
	// annotated dataset mention.
	HasDataset bool

	parent *Section
}

// Paragraph holds either raw unsegmented text or an ordered sequence of
// sentences (after segmentation).
type Paragraph struct {
	Raw       string
	Sentences []*Sentence

	section *Section
}

// Sentence is a text span with a stable identifier. Markup carries the
// inline-markup form of the sentence when it differs from the plain text.
type Sentence struct {
	Text   string
	Markup string

	ID            string
	CorrespondsTo string

	paragraph *Paragraph
}

// Header is the document metadata header. The two registries are kept in
// insertion order and serialized as ordered lists.
type Header struct {
	Datasets      []DatasetEntry
	DataInstances []DataInstanceEntry
}

// DatasetEntry describes one dataset entity registered for the document.
type DatasetEntry struct {
	ID      string `json:"id"`
	Type    string `json:"type,omitempty"`
	Subtype string `json:"subtype,omitempty"`
}

// DataInstanceEntry describes one textual mention of a dataset entity.
type DataInstanceEntry struct {
	ID        string  `json:"id"`
	DatasetID string  `json:"dataset_id"`
	Score     float64 `json:"score"`
	Reuse     bool    `json:"reuse"`
}

// NewSection creates a detached section of the given kind.
func NewSection(kind Kind) *Section {
	return &Section{Kind: kind}
}

// AddSection appends a top-level section to the document.
func (d *Document) AddSection(s *Section) {
	s.parent = nil
	d.Sections = append(d.Sections, s)
}

// AddSection appends a subsection, wiring the parent back-reference.
func (s *Section) AddSection(child *Section) {
	child.parent = s
	s.Sections = append(s.Sections, child)
}

// AddParagraph appends a paragraph to the section.
func (s *Section) AddParagraph(p *Paragraph) {
	p.section = s
	s.Paragraphs = append(s.Paragraphs, p)
}

// AddSentence appends a sentence to the paragraph.
func (p *Paragraph) AddSentence(sent *Sentence) {
	sent.paragraph = p
	p.Sentences = append(p.Sentences, sent)
}

// Parent returns the enclosing section, or nil for a top-level section.
func (s *Section) Parent() *Section { return s.parent }

// Section returns the paragraph's owning section.
func (p *Paragraph) Section() *Section { return p.section }

// Paragraph returns the sentence's owning paragraph.
func (sent *Sentence) Paragraph() *Paragraph { return sent.paragraph }

// EnclosingSection walks the sentence's ancestor chain and returns the
// first regular section, or nil when the sentence only lives under
// special containers.
func (sent *Sentence) EnclosingSection() *Section {
	if sent.paragraph == nil {
		return nil
	}
	sec := sent.paragraph.section
	for sec != nil && sec.Kind != KindSection {
		sec = sec.parent
	}
	return sec
}

// Text returns the plain text of the paragraph: the joined sentence
// texts when segmented, the raw text otherwise.
func (p *Paragraph) Text() string {
	if len(p.Sentences) == 0 {
		return p.Raw
	}
	out := ""
	for i, s := range p.Sentences {
		if i > 0 {
			out += " "
		}
		out += s.Text
	}
	return out
}

// Walk visits every section of the document in document order, special
// containers included. Returning false from fn stops the walk.
func (d *Document) Walk(fn func(*Section) bool) {
	var visit func(secs []*Section) bool
	visit = func(secs []*Section) bool {
		for _, s := range secs {
			if !fn(s) {
				return false
			}
			if !visit(s.Sections) {
				return false
			}
		}
		return true
	}
	visit(d.Sections)
}

// Sentences returns every sentence of the document in document order.
func (d *Document) Sentences() []*Sentence {
	var out []*Sentence
	d.Walk(func(s *Section) bool {
		for _, p := range s.Paragraphs {
			out = append(out, p.Sentences...)
		}
		return true
	})
	return out
}

// AssignSentenceIDs gives every sentence lacking an identifier a stable
// one derived from its document-order index. Existing identifiers are
// kept untouched.
func AssignSentenceIDs(d *Document) {
	for i, sent := range d.Sentences() {
		if sent.ID == "" {
			sent.ID = fmt.Sprintf("sentence-%d", i)
		}
	}
}

// EnsureHeader returns the metadata header, creating it if absent.
func (d *Document) EnsureHeader() *Header {
	if d.Header == nil {
		d.Header = &Header{}
	}
	return d.Header
}

// Rewire restores all parent back-references after external construction
// of the tree (e.g. by a parser that fills the exported fields directly).
func (d *Document) Rewire() {
	var visit func(s *Section, parent *Section)
	visit = func(s *Section, parent *Section) {
		s.parent = parent
		if s.Kind == "" {
			s.Kind = KindSection
		}
		for _, p := range s.Paragraphs {
			p.section = s
			for _, sent := range p.Sentences {
				sent.paragraph = p
			}
		}
		for _, child := range s.Sections {
			visit(child, s)
		}
	}
	for _, s := range d.Sections {
		visit(s, nil)
	}
}
