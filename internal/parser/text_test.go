package parser

import (
	"strings"
	"testing"
)

func TestTextParse_HeadingsAndParagraphs(t *testing.T) {
	in := `Introduction

This is the first paragraph.
It spans two lines.

Methods

We did things. Data are available.
`
	p := &TextParser{}
	doc, err := p.Parse(strings.NewReader(in), "paper.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(doc.Sections) != 2 {
		t.Fatalf("expected 2 sections, got %d", len(doc.Sections))
	}
	if doc.Sections[0].Head != "Introduction" {
		t.Errorf("unexpected head %q", doc.Sections[0].Head)
	}
	para := doc.Sections[0].Paragraphs[0]
	if para.Raw != "This is the first paragraph. It spans two lines." {
		t.Errorf("lines not joined: %q", para.Raw)
	}
	if doc.Sections[1].Head != "Methods" {
		t.Errorf("unexpected head %q", doc.Sections[1].Head)
	}
}

func TestTextParse_NoHeadings(t *testing.T) {
	in := "Just one paragraph with an ending.\n\nAnd another one here."
	p := &TextParser{}
	doc, err := p.Parse(strings.NewReader(in), "notes.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.Sections) != 1 {
		t.Fatalf("expected 1 headless section, got %d", len(doc.Sections))
	}
	if len(doc.Sections[0].Paragraphs) != 2 {
		t.Errorf("expected 2 paragraphs, got %d", len(doc.Sections[0].Paragraphs))
	}
}

func TestTextParse_TitleFromFilename(t *testing.T) {
	p := &TextParser{}
	doc, err := p.Parse(strings.NewReader("Body text here."), "study.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Title != "study" {
		t.Errorf("unexpected title %q", doc.Title)
	}
}

func TestLooksLikeHeading(t *testing.T) {
	cases := []struct {
		text string
		want bool
	}{
		{"Methods", true},
		{"Data availability", true},
		{"This sentence ends with a period.", false},
		{"Really long line " + strings.Repeat("x", 100), false},
	}
	for _, tc := range cases {
		if got := looksLikeHeading(tc.text); got != tc.want {
			t.Errorf("looksLikeHeading(%q) = %v, want %v", tc.text, got, tc.want)
		}
	}
}
