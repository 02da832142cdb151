package doctree

import "testing"

func buildDoc() (*Document, *Section, *Section) {
	doc := &Document{Title: "t"}
	top := NewSection(KindSection)
	top.Head = "Methods"
	doc.AddSection(top)

	child := NewSection(KindSection)
	top.AddSection(child)

	p := &Paragraph{}
	child.AddParagraph(p)
	p.AddSentence(&Sentence{Text: "First."})
	p.AddSentence(&Sentence{Text: "Second."})
	return doc, top, child
}

func TestWalk_DocumentOrder(t *testing.T) {
	doc := &Document{}
	a := NewSection(KindSection)
	a.Head = "a"
	b := NewSection(KindSection)
	b.Head = "b"
	b1 := NewSection(KindSection)
	b1.Head = "b1"
	c := NewSection(KindAbstract)
	c.Head = "c"

	doc.AddSection(a)
	doc.AddSection(b)
	b.AddSection(b1)
	doc.AddSection(c)

	var order []string
	doc.Walk(func(s *Section) bool {
		order = append(order, s.Head)
		return true
	})

	want := []string{"a", "b", "b1", "c"}
	if len(order) != len(want) {
		t.Fatalf("visited %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("visited %v, want %v", order, want)
		}
	}
}

func TestWalk_StopsOnFalse(t *testing.T) {
	doc, _, _ := buildDoc()
	visits := 0
	doc.Walk(func(s *Section) bool {
		visits++
		return false
	})
	if visits != 1 {
		t.Errorf("expected walk to stop after first section, visited %d", visits)
	}
}

func TestParentWiring(t *testing.T) {
	doc, top, child := buildDoc()
	if top.Parent() != nil {
		t.Error("top-level section should have no parent")
	}
	if child.Parent() != top {
		t.Error("child parent not wired")
	}
	sents := doc.Sentences()
	if len(sents) != 2 {
		t.Fatalf("expected 2 sentences, got %d", len(sents))
	}
	if sents[0].Paragraph().Section() != child {
		t.Error("sentence ancestry not wired")
	}
}

func TestEnclosingSection_SkipsContainers(t *testing.T) {
	doc := &Document{}
	fig := NewSection(KindFigureDesc)
	doc.AddSection(fig)
	inner := NewSection(KindSection)
	fig.AddSection(inner)
	p := &Paragraph{}
	inner.AddParagraph(p)
	sent := &Sentence{Text: "Caption."}
	p.AddSentence(sent)

	if got := sent.EnclosingSection(); got != inner {
		t.Errorf("expected the inner regular section, got %+v", got)
	}

	// sentence directly under the container has no regular ancestor
	p2 := &Paragraph{}
	fig.AddParagraph(p2)
	sent2 := &Sentence{Text: "Loose."}
	p2.AddSentence(sent2)
	if got := sent2.EnclosingSection(); got != nil {
		t.Errorf("expected nil for container-only ancestry, got %+v", got)
	}
}

func TestParagraphText(t *testing.T) {
	p := &Paragraph{Raw: "raw text"}
	if p.Text() != "raw text" {
		t.Errorf("unsegmented paragraph should return raw text")
	}
	p.AddSentence(&Sentence{Text: "One."})
	p.AddSentence(&Sentence{Text: "Two."})
	if p.Text() != "One. Two." {
		t.Errorf("expected joined sentences, got %q", p.Text())
	}
}

func TestAssignSentenceIDs(t *testing.T) {
	doc, _, _ := buildDoc()
	doc.Sentences()[1].ID = "keep-me"
	AssignSentenceIDs(doc)

	sents := doc.Sentences()
	if sents[0].ID != "sentence-0" {
		t.Errorf("expected sentence-0, got %q", sents[0].ID)
	}
	if sents[1].ID != "keep-me" {
		t.Errorf("existing ID should be kept, got %q", sents[1].ID)
	}
}

func TestEnsureHeader_Idempotent(t *testing.T) {
	doc := &Document{}
	h1 := doc.EnsureHeader()
	h1.Datasets = append(h1.Datasets, DatasetEntry{ID: "dataset-1"})
	h2 := doc.EnsureHeader()
	if h1 != h2 {
		t.Error("EnsureHeader must return the same header")
	}
	if len(h2.Datasets) != 1 {
		t.Error("registry content lost")
	}
}

func TestRewire_RestoresBackReferences(t *testing.T) {
	// simulate a parser that fills exported fields directly
	sent := &Sentence{Text: "Hello."}
	p := &Paragraph{Sentences: []*Sentence{sent}}
	child := &Section{Paragraphs: []*Paragraph{p}}
	top := &Section{Kind: KindSection, Sections: []*Section{child}}
	doc := &Document{Sections: []*Section{top}}

	doc.Rewire()

	if child.Parent() != top {
		t.Error("parent not rewired")
	}
	if child.Kind != KindSection {
		t.Error("empty kind should default to regular section")
	}
	if sent.Paragraph() != p || p.Section() != child {
		t.Error("paragraph/sentence back-references not rewired")
	}
}
