package cascade

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/scholarlab/datastet/internal/classifier"
)

// fakeGateway serves canned scores keyed by sentence text and counts
// calls per stage.
type fakeGateway struct {
	binary map[string]*classifier.BinaryScore
	types  map[string]*classifier.TypeScores
	reuse  map[string]*classifier.ReuseScore

	binaryErr error
	typeErr   error
	reuseErr  error

	binaryCalls int
	typeTexts   [][]string
	reuseTexts  [][]string
}

func (g *fakeGateway) ClassifyBinary(ctx context.Context, texts []string) ([]*classifier.BinaryScore, error) {
	g.binaryCalls++
	if g.binaryErr != nil {
		return nil, g.binaryErr
	}
	out := make([]*classifier.BinaryScore, len(texts))
	for i, t := range texts {
		out[i] = g.binary[t]
	}
	return out, nil
}

func (g *fakeGateway) ClassifyDataType(ctx context.Context, texts []string) ([]*classifier.TypeScores, error) {
	g.typeTexts = append(g.typeTexts, texts)
	if g.typeErr != nil {
		return nil, g.typeErr
	}
	out := make([]*classifier.TypeScores, len(texts))
	for i, t := range texts {
		out[i] = g.types[t]
	}
	return out, nil
}

func (g *fakeGateway) ClassifyReuse(ctx context.Context, texts []string) ([]*classifier.ReuseScore, error) {
	g.reuseTexts = append(g.reuseTexts, texts)
	if g.reuseErr != nil {
		return nil, g.reuseErr
	}
	out := make([]*classifier.ReuseScore, len(texts))
	for i, t := range texts {
		out[i] = g.reuse[t]
	}
	return out, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestClassifyBatch_CascadesOnlyPositives(t *testing.T) {
	gw := &fakeGateway{
		binary: map[string]*classifier.BinaryScore{
			"data":    {HasDataset: 0.95, NoDataset: 0.05},
			"no data": {HasDataset: 0.2, NoDataset: 0.8},
		},
		types: map[string]*classifier.TypeScores{
			"data": {Scores: []classifier.TypeScore{{Name: "Generic data", Prob: 0.8}}},
		},
		reuse: map[string]*classifier.ReuseScore{
			"data": {Reuse: 0.9, NotReuse: 0.1},
		},
	}
	f := NewFusion(gw, testLogger())

	verdicts, err := f.ClassifyBatch(context.Background(), []string{"data", "no data"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(gw.typeTexts) != 1 || len(gw.typeTexts[0]) != 1 || gw.typeTexts[0][0] != "data" {
		t.Errorf("datatype stage should see only the positive sentence, saw %v", gw.typeTexts)
	}
	if len(gw.reuseTexts) != 1 || len(gw.reuseTexts[0]) != 1 || gw.reuseTexts[0][0] != "data" {
		t.Errorf("reuse stage should see only the positive sentence, saw %v", gw.reuseTexts)
	}

	if !verdicts[0].Cascaded() || !verdicts[0].Reuse {
		t.Errorf("positive verdict wrong: %+v", verdicts[0])
	}
	if best, prob := verdicts[0].BestType(); best != "Generic data" || prob != 0.8 {
		t.Errorf("unexpected best type %q %f", best, prob)
	}
	if verdicts[1].Cascaded() || len(verdicts[1].TypeScores) != 0 {
		t.Errorf("negative verdict should stay binary-only: %+v", verdicts[1])
	}
}

func TestClassifyBatch_BinaryFailureFailsBatch(t *testing.T) {
	gw := &fakeGateway{binaryErr: fmt.Errorf("binary down")}
	f := NewFusion(gw, testLogger())

	if _, err := f.ClassifyBatch(context.Background(), []string{"x"}); err == nil {
		t.Fatal("expected error when binary stage fails")
	}
}

func TestClassifyBatch_SecondaryFailureDegradesToBinary(t *testing.T) {
	gw := &fakeGateway{
		binary: map[string]*classifier.BinaryScore{
			"data": {HasDataset: 0.95, NoDataset: 0.05},
		},
		typeErr: fmt.Errorf("datatype down"),
		reuse: map[string]*classifier.ReuseScore{
			"data": {Reuse: 0.9, NotReuse: 0.1},
		},
	}
	f := NewFusion(gw, testLogger())

	verdicts, err := f.ClassifyBatch(context.Background(), []string{"data"})
	if err != nil {
		t.Fatalf("secondary failure must not fail the batch: %v", err)
	}
	v := verdicts[0]
	if v == nil || v.HasDataset != 0.95 {
		t.Fatalf("binary verdict lost: %+v", v)
	}
	if len(v.TypeScores) != 0 || v.Reuse {
		t.Errorf("degraded verdict must stay binary-only: %+v", v)
	}
}

func TestClassifyBatch_NilBinaryRecordsStayNil(t *testing.T) {
	gw := &fakeGateway{
		binary: map[string]*classifier.BinaryScore{
			"good": {HasDataset: 0.95, NoDataset: 0.05},
		},
	}
	f := NewFusion(gw, testLogger())

	verdicts, err := f.ClassifyBatch(context.Background(), []string{"good", "broken"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if verdicts[0] == nil {
		t.Error("good record should yield a verdict")
	}
	if verdicts[1] != nil {
		t.Error("missing binary record should yield a nil verdict")
	}
}

func TestClassify_UsesCache(t *testing.T) {
	gw := &fakeGateway{
		binary: map[string]*classifier.BinaryScore{
			"data": {HasDataset: 0.95, NoDataset: 0.05},
		},
		types: map[string]*classifier.TypeScores{"data": {}},
		reuse: map[string]*classifier.ReuseScore{"data": {Reuse: 0.1, NotReuse: 0.9}},
	}
	f := NewFusion(gw, testLogger())

	if _, err := f.ClassifyBatch(context.Background(), []string{"data"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := f.Classify(context.Background(), "data"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gw.binaryCalls != 1 {
		t.Errorf("expected 1 binary call, got %d", gw.binaryCalls)
	}
	if _, ok := f.Lookup("data"); !ok {
		t.Error("verdict should be cached")
	}
}

func TestClassify_CachesNilVerdicts(t *testing.T) {
	// A malformed binary record yields a nil verdict; repeats of the same
	// text must hit the cache instead of the network.
	gw := &fakeGateway{binary: map[string]*classifier.BinaryScore{}}
	f := NewFusion(gw, testLogger())

	if _, err := f.ClassifyBatch(context.Background(), []string{"broken"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	v, err := f.Classify(context.Background(), "broken")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != nil {
		t.Errorf("verdict should stay nil, got %+v", v)
	}
	if gw.binaryCalls != 1 {
		t.Errorf("expected 1 binary call, got %d", gw.binaryCalls)
	}
	if _, ok := f.Lookup("broken"); !ok {
		t.Error("nil verdict should still be cached")
	}
}

func TestFusion_FreshInstanceHasEmptyCache(t *testing.T) {
	gw := &fakeGateway{
		binary: map[string]*classifier.BinaryScore{
			"data": {HasDataset: 0.95, NoDataset: 0.05},
		},
		types: map[string]*classifier.TypeScores{"data": {}},
		reuse: map[string]*classifier.ReuseScore{"data": {}},
	}

	f1 := NewFusion(gw, testLogger())
	if _, err := f1.ClassifyBatch(context.Background(), []string{"data"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	f2 := NewFusion(gw, testLogger())
	if _, ok := f2.Lookup("data"); ok {
		t.Error("verdict cache must not leak between fusion instances")
	}
}

func TestVerdict_Qualifies(t *testing.T) {
	cases := []struct {
		name string
		has  float64
		no   float64
		want bool
	}{
		{"well above threshold", 0.95, 0.05, true},
		{"exactly at threshold", 0.9, 0.1, false},
		{"cascaded but weak", 0.6, 0.4, false},
		{"not cascaded", 0.4, 0.6, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := &Verdict{HasDataset: tc.has, NoDataset: tc.no}
			if got := v.Qualifies(); got != tc.want {
				t.Errorf("Qualifies() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestVerdict_BestTypeTieKeepsFirst(t *testing.T) {
	v := &Verdict{TypeScores: []classifier.TypeScore{
		{Name: "Tabular data", Prob: 0.4},
		{Name: "Generic data", Prob: 0.4},
		{Name: "Image", Prob: 0.2},
	}}
	best, prob := v.BestType()
	if best != "Tabular data" || prob != 0.4 {
		t.Errorf("tie should keep the first class seen, got %q %f", best, prob)
	}
}

func TestVerdict_BestTypeEmpty(t *testing.T) {
	v := &Verdict{}
	if best, prob := v.BestType(); best != "" || prob != 0 {
		t.Errorf("empty scores should yield empty best type, got %q %f", best, prob)
	}
}
