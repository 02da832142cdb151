// Package relevance decides which sections of a document are eligible
// for dataset annotation, delegating the sequence labelling itself to an
// external section-relevance model.
package relevance

import (
	"context"
	"log/slog"

	"github.com/scholarlab/datastet/internal/cascade"
	"github.com/scholarlab/datastet/internal/doctree"
)

// Segment kinds fed to the relevance model.
const (
	KindHead      = "head"
	KindParagraph = "p"
)

// NoDatasetType is the dominant-type placeholder for segments.
const NoDatasetType = "no_dataset"

// Features are the four parallel sequences consumed by the relevance
// model, in document order.
type Features struct {
	Segments      []string
	Kinds         []string
	DatasetCounts []int
	DatasetTypes  []string
}

// Len returns the number of segments.
func (f *Features) Len() int { return len(f.Segments) }

// Builder walks a document and extracts the relevance-model features,
// classifying each paragraph's sentences along the way. The verdicts end
// up in the fusion cache, where the annotation pass reuses them.
type Builder struct {
	fusion *cascade.Fusion
	log    *slog.Logger
}

func NewBuilder(fusion *cascade.Fusion, log *slog.Logger) *Builder {
	return &Builder{fusion: fusion, log: log}
}

// Build produces the feature sequences for the document. Sections whose
// immediate parent is an abstract or figure-description container are
// skipped. Headings contribute a segment with dataset-count 0; each
// non-empty paragraph contributes a segment whose count is the number of
// its sentences qualifying for annotation.
func (b *Builder) Build(ctx context.Context, doc *doctree.Document) (*Features, error) {
	feats := &Features{}
	var buildErr error

	forEachEligible(doc, func(sec *doctree.Section) bool {
		if buildErr != nil {
			return false
		}
		if sec.Head != "" {
			feats.Segments = append(feats.Segments, sec.Head)
			feats.Kinds = append(feats.Kinds, KindHead)
			feats.DatasetCounts = append(feats.DatasetCounts, 0)
			feats.DatasetTypes = append(feats.DatasetTypes, NoDatasetType)
		}

		for _, p := range sec.Paragraphs {
			text := p.Text()
			if text == "" {
				continue
			}

			count := 0
			texts := make([]string, 0, len(p.Sentences))
			for _, s := range p.Sentences {
				texts = append(texts, s.Text)
			}
			verdicts, err := b.fusion.ClassifyBatch(ctx, texts)
			if err != nil {
				buildErr = err
				return false
			}
			for _, v := range verdicts {
				if v != nil && v.Qualifies() {
					count++
				}
			}

			feats.Segments = append(feats.Segments, text)
			feats.Kinds = append(feats.Kinds, KindParagraph)
			feats.DatasetCounts = append(feats.DatasetCounts, count)
			feats.DatasetTypes = append(feats.DatasetTypes, NoDatasetType)
		}
		return true
	})

	if buildErr != nil {
		return nil, buildErr
	}
	return feats, nil
}

// forEachEligible visits, in document order, every regular section that
// is not a direct child of an abstract or figure-description container.
// The gate uses the identical traversal, which keeps the flat relevance
// sequence aligned with the tree.
func forEachEligible(doc *doctree.Document, fn func(*doctree.Section) bool) {
	doc.Walk(func(sec *doctree.Section) bool {
		if sec.Kind != doctree.KindSection {
			return true
		}
		if parent := sec.Parent(); parent != nil &&
			(parent.Kind == doctree.KindAbstract || parent.Kind == doctree.KindFigureDesc) {
			return true
		}
		return fn(sec)
	})
}
