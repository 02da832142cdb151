package classifier

import (
	"testing"
	"time"
)

func TestStatsSnapshotPercentiles(t *testing.T) {
	stats := NewStats(time.Hour)
	stats.Record(ModelBinary, 100)
	stats.Record(ModelBinary, 200)
	stats.Record(ModelBinary, 300)
	stats.Record(ModelBinary, 400)
	stats.Record(ModelBinary, 500)

	snap := stats.Snapshot()[ModelBinary]
	if snap.Count != 5 {
		t.Fatalf("expected count=5, got %d", snap.Count)
	}
	if snap.MinMs != 100 {
		t.Fatalf("expected min=100, got %d", snap.MinMs)
	}
	if snap.MaxMs != 500 {
		t.Fatalf("expected max=500, got %d", snap.MaxMs)
	}
	if snap.AvgMs != 300 {
		t.Fatalf("expected avg=300, got %f", snap.AvgMs)
	}
	if snap.P50Ms != 300 {
		t.Fatalf("expected p50=300, got %f", snap.P50Ms)
	}
	if snap.P95Ms != 480 {
		t.Fatalf("expected p95=480, got %f", snap.P95Ms)
	}
	if snap.P99Ms != 496 {
		t.Fatalf("expected p99=496, got %f", snap.P99Ms)
	}
}

func TestStatsKeepsModelsSeparate(t *testing.T) {
	stats := NewStats(time.Hour)
	stats.Record(ModelBinary, 100)
	stats.Record(ModelDataType, 900)

	snap := stats.Snapshot()
	if snap[ModelBinary].MaxMs != 100 {
		t.Errorf("binary samples polluted: %+v", snap[ModelBinary])
	}
	if snap[ModelDataType].MinMs != 900 {
		t.Errorf("datatype samples polluted: %+v", snap[ModelDataType])
	}
}

func TestStatsPrunesExpiredSamples(t *testing.T) {
	stats := NewStats(10 * time.Millisecond)
	stats.Record(ModelBinary, 100)
	time.Sleep(25 * time.Millisecond)

	snap := stats.Snapshot()
	if snap[ModelBinary].Count != 0 {
		t.Fatalf("expected count=0 after prune, got %d", snap[ModelBinary].Count)
	}

	stats.Record(ModelBinary, 200)
	snap = stats.Snapshot()
	if snap[ModelBinary].Count != 1 {
		t.Fatalf("expected count=1 for fresh sample, got %d", snap[ModelBinary].Count)
	}
}

func TestStatsRecordClampsNegativeDuration(t *testing.T) {
	stats := NewStats(time.Hour)
	stats.Record(ModelReuse, -10)
	snap := stats.Snapshot()[ModelReuse]
	if snap.Count != 1 {
		t.Fatalf("expected count=1, got %d", snap.Count)
	}
	if snap.MinMs != 0 || snap.MaxMs != 0 {
		t.Fatalf("expected clamped duration=0, got min=%d max=%d", snap.MinMs, snap.MaxMs)
	}
}
