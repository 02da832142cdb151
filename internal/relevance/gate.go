package relevance

import (
	"fmt"

	"github.com/scholarlab/datastet/internal/doctree"
)

// AlignmentError is a fatal collaborator contract violation: the
// relevance model returned a sequence whose length does not match the
// segment sequence it was given.
type AlignmentError struct {
	Want int
	Got  int
}

func (e *AlignmentError) Error() string {
	return fmt.Sprintf("relevance sequence misaligned: %d segments, %d labels", e.Want, e.Got)
}

// Gate folds the flat per-segment relevance sequence back onto the
// section tree: a section is relevant if any of its own heading or
// paragraph segments was marked relevant.
func Gate(doc *doctree.Document, feats *Features, labels []bool) (map[*doctree.Section]bool, error) {
	if len(labels) != feats.Len() {
		return nil, &AlignmentError{Want: feats.Len(), Got: len(labels)}
	}

	relevant := make(map[*doctree.Section]bool)
	idx := 0
	var gateErr error

	forEachEligible(doc, func(sec *doctree.Section) bool {
		sectionRelevant := false

		if sec.Head != "" {
			if idx >= len(labels) {
				gateErr = &AlignmentError{Want: idx + 1, Got: len(labels)}
				return false
			}
			if labels[idx] {
				sectionRelevant = true
			}
			idx++
		}

		for _, p := range sec.Paragraphs {
			if p.Text() == "" {
				continue
			}
			if idx >= len(labels) {
				gateErr = &AlignmentError{Want: idx + 1, Got: len(labels)}
				return false
			}
			if labels[idx] {
				sectionRelevant = true
			}
			idx++
		}

		relevant[sec] = sectionRelevant
		return true
	})

	if gateErr != nil {
		return nil, gateErr
	}
	if idx != len(labels) {
		return nil, &AlignmentError{Want: idx, Got: len(labels)}
	}
	return relevant, nil
}
