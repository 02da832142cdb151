// Package annotate writes dataset evidence into the document tree:
// cross-reference attributes on qualifying sentences, has-dataset
// markers on their sections, and the document-level registries.
package annotate

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/scholarlab/datastet/internal/cascade"
	"github.com/scholarlab/datastet/internal/doctree"
)

// Result summarizes one annotation pass.
type Result struct {
	Datasets      int `json:"datasets"`
	DataInstances int `json:"data_instances"`
}

// Injector mutates a document in place based on fused verdicts and the
// relevance gate's section decisions. One Injector serves one document
// run; the identifier counter is never shared across runs.
type Injector struct {
	fusion *cascade.Fusion
	log    *slog.Logger

	nextID int
}

func NewInjector(fusion *cascade.Fusion, log *slog.Logger) *Injector {
	return &Injector{fusion: fusion, log: log, nextID: 1}
}

// Apply annotates every qualifying sentence of every relevant section
// and injects the dataset and dataInstance registries into the document
// metadata header. Nothing is injected when no sentence qualifies.
func (inj *Injector) Apply(ctx context.Context, doc *doctree.Document, relevant map[*doctree.Section]bool) (*Result, error) {
	var datasets []doctree.DatasetEntry
	var instances []doctree.DataInstanceEntry
	var applyErr error

	doc.Walk(func(sec *doctree.Section) bool {
		if !relevant[sec] {
			return true
		}
		for _, p := range sec.Paragraphs {
			for _, sent := range p.Sentences {
				verdict, ok := inj.fusion.Lookup(sent.Text)
				if !ok {
					v, err := inj.fusion.Classify(ctx, sent.Text)
					if err != nil {
						applyErr = err
						return false
					}
					verdict = v
				}
				if verdict == nil || !verdict.Qualifies() {
					continue
				}

				bestType, score := verdict.BestType()

				n := inj.nextID
				inj.nextID++
				datasetID := fmt.Sprintf("dataset-%d", n)
				instanceID := fmt.Sprintf("dataInstance-%d", n)

				sent.CorrespondsTo = "#" + instanceID
				datasets = append(datasets, doctree.DatasetEntry{
					ID:   datasetID,
					Type: bestType,
				})
				instances = append(instances, doctree.DataInstanceEntry{
					ID:        instanceID,
					DatasetID: datasetID,
					Score:     score,
					Reuse:     verdict.Reuse,
				})

				// mark the first enclosing regular section; setting the
				// flag twice is a no-op
				if owner := sent.EnclosingSection(); owner != nil {
					owner.HasDataset = true
				}
			}
		}
		return true
	})

	if applyErr != nil {
		return nil, applyErr
	}

	if len(datasets) > 0 {
		header := doc.EnsureHeader()
		header.Datasets = append(header.Datasets, datasets...)
		header.DataInstances = append(header.DataInstances, instances...)
	}

	inj.log.Info("annotation complete", "datasets", len(datasets), "data_instances", len(instances))
	return &Result{Datasets: len(datasets), DataInstances: len(instances)}, nil
}
