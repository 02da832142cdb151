// Package cascade combines the three external text classifiers into one
// unified per-sentence verdict. Only sentences judged dataset-likely by
// the binary stage are forwarded to the datatype and reuse stages.
package cascade

import (
	"context"
	"log/slog"

	"github.com/scholarlab/datastet/internal/classifier"
)

// MinDatasetScore is the minimum binary score for a sentence to qualify
// for annotation. It is stricter than the cascading-selection rule
// (probDataset > probNoDataset) and both apply together.
const MinDatasetScore = 0.9

// Gateway is the batch interface to the three classifiers.
type Gateway interface {
	ClassifyBinary(ctx context.Context, texts []string) ([]*classifier.BinaryScore, error)
	ClassifyDataType(ctx context.Context, texts []string) ([]*classifier.TypeScores, error)
	ClassifyReuse(ctx context.Context, texts []string) ([]*classifier.ReuseScore, error)
}

// Verdict is the fused classification result for one sentence. A
// sentence the binary stage rejected keeps empty TypeScores and a false
// Reuse flag.
type Verdict struct {
	Text       string
	HasDataset float64
	NoDataset  float64
	TypeScores []classifier.TypeScore
	Reuse      bool
}

// Cascaded reports whether the sentence passed the binary stage and was
// forwarded to the secondary classifiers.
func (v *Verdict) Cascaded() bool {
	return v.HasDataset > v.NoDataset
}

// Qualifies reports whether the sentence is dataset-bearing enough to be
// annotated.
func (v *Verdict) Qualifies() bool {
	return v.HasDataset > v.NoDataset && v.HasDataset > MinDatasetScore
}

// BestType returns the datatype with the strictly highest score. On an
// exact tie the class seen first in the classifier's field order wins.
// An empty name is returned when no type scores are present.
func (v *Verdict) BestType() (string, float64) {
	best := ""
	bestProb := 0.0
	for _, ts := range v.TypeScores {
		if ts.Prob > bestProb {
			bestProb = ts.Prob
			best = ts.Name
		}
	}
	return best, bestProb
}

// Fusion runs the cascaded classification for one document run. It keeps
// a verdict cache keyed by raw sentence text: two sentences with the
// same text share one verdict, and a text whose binary record was
// unusable is cached as nil. A Fusion must not be shared between
// concurrent document runs.
type Fusion struct {
	gw    Gateway
	log   *slog.Logger
	cache map[string]*Verdict
}

func NewFusion(gw Gateway, log *slog.Logger) *Fusion {
	return &Fusion{
		gw:    gw,
		log:   log,
		cache: make(map[string]*Verdict),
	}
}

// ClassifyBatch produces one verdict per input text, same order. An
// entry is nil when the binary classifier returned no usable record for
// that sentence. A failure of the binary stage fails the batch; a
// failure of a secondary stage degrades the batch to binary-only
// verdicts.
func (f *Fusion) ClassifyBatch(ctx context.Context, texts []string) ([]*Verdict, error) {
	verdicts := make([]*Verdict, len(texts))
	if len(texts) == 0 {
		return verdicts, nil
	}

	binary, err := f.gw.ClassifyBinary(ctx, texts)
	if err != nil {
		return nil, err
	}

	// select the cascaded subset, keeping original order and indices
	var cascadedTexts []string
	var cascadedIdx []int
	for i, b := range binary {
		if b == nil {
			continue
		}
		verdicts[i] = &Verdict{
			Text:       texts[i],
			HasDataset: b.HasDataset,
			NoDataset:  b.NoDataset,
		}
		if b.HasDataset > b.NoDataset {
			cascadedTexts = append(cascadedTexts, texts[i])
			cascadedIdx = append(cascadedIdx, i)
		}
	}

	if len(cascadedTexts) > 0 {
		// two independent batch calls, not chained
		types, typeErr := f.gw.ClassifyDataType(ctx, cascadedTexts)
		reuses, reuseErr := f.gw.ClassifyReuse(ctx, cascadedTexts)
		if typeErr != nil || reuseErr != nil {
			if typeErr != nil {
				f.log.Warn("datatype classifier failed, falling back to binary-only verdicts", "error", typeErr)
			}
			if reuseErr != nil {
				f.log.Warn("reuse classifier failed, falling back to binary-only verdicts", "error", reuseErr)
			}
		} else {
			for j, i := range cascadedIdx {
				v := verdicts[i]
				if types[j] != nil {
					v.TypeScores = types[j].Scores
				}
				if reuses[j] != nil {
					v.Reuse = reuses[j].Reuse > reuses[j].NotReuse
				}
			}
		}
	}

	// cache every slot, nil included, so repeat occurrences of a text
	// that produced no usable record are not re-sent to the classifiers
	for i, v := range verdicts {
		f.cache[texts[i]] = v
	}
	return verdicts, nil
}

// Classify returns the verdict for a single sentence, consulting the
// per-run cache first.
func (f *Fusion) Classify(ctx context.Context, text string) (*Verdict, error) {
	if v, ok := f.cache[text]; ok {
		return v, nil
	}
	verdicts, err := f.ClassifyBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return verdicts[0], nil
}

// Lookup returns the cached verdict for a sentence text, if any.
func (f *Fusion) Lookup(text string) (*Verdict, bool) {
	v, ok := f.cache[text]
	return v, ok
}
