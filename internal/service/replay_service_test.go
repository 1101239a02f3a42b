package service

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/jengzang/location-replay-go/internal/database"
	"github.com/jengzang/location-replay-go/internal/models"
	"github.com/jengzang/location-replay-go/internal/repository"
	"github.com/jengzang/location-replay-go/internal/simulation"
	"github.com/jengzang/location-replay-go/internal/spatial"
)

func newTestService(t *testing.T) *ReplayService {
	t.Helper()
	conn, err := database.Open(filepath.Join(t.TempDir(), "replay.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := database.NewMigrationManager(conn).RunMigrations(); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	svc := NewReplayService(repository.NewSampleRepository(conn))
	svc.now = func() time.Time { return time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC) }
	return svc
}

func tickRecord(tick int64, lat, lng, heading float64, speed *float64) simulation.TickRecord {
	state := models.NewUserState("minimal", []string{models.StateResting}, []models.Value{models.BoolValue(tick%2 == 0)})
	return simulation.TickRecord{
		RunID: "run-1",
		Tick:  tick,
		At:    time.Date(2024, 3, 1, 9, 30, int(tick), 0, time.UTC),
		Samples: []simulation.TickSample{{
			ProviderIndex: 0,
			ProviderName:  "walker",
			Agents:        []string{"alice"},
			Location: models.Location{
				IsLocationServiceEnabled: true,
				LatitudeLongitude:        models.LatLng{Lat: lat, Lng: lng},
				Accuracy:                 5,
				UserHeading:              heading,
				SpeedKmPerHour:           speed,
			},
			State: state,
		}},
	}
}

func ptr(v float64) *float64 { return &v }

func TestRecordStoresSamples(t *testing.T) {
	svc := newTestService(t)
	if err := svc.StartRun("run-1", 1); err != nil {
		t.Fatalf("start run: %v", err)
	}

	if err := svc.Record(context.Background(), tickRecord(1, 32.882588, -117.234583, 90, nil)); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := svc.Record(context.Background(), tickRecord(2, 0, 0, 0, nil)); err != nil {
		t.Fatalf("record sentinel: %v", err)
	}

	resp, err := svc.GetSamples(models.ReplaySampleFilter{RunID: "run-1"})
	if err != nil {
		t.Fatalf("get samples: %v", err)
	}
	if resp.Total != 2 || resp.TotalPages != 1 || resp.PageSize != 100 {
		t.Fatalf("unexpected page %+v", resp)
	}

	first := resp.Data[0]
	if first.Agent != "alice" || len(first.Geohash) != GeohashPrecision || !first.HasFix {
		t.Fatalf("unexpected sample %+v", first)
	}
	if first.StateJSON != `{"LYING_DOWN":false}` || first.StateVariant != "minimal" {
		t.Fatalf("unexpected state %q/%q", first.StateJSON, first.StateVariant)
	}
	if sentinel := resp.Data[1]; sentinel.HasFix || sentinel.Geohash != "" {
		t.Fatalf("expected sentinel sample without geohash, got %+v", sentinel)
	}

	latest, err := svc.GetLatest("run-1", 0)
	if err != nil || latest == nil || latest.Tick != 2 {
		t.Fatalf("unexpected latest %+v (%v)", latest, err)
	}
}

func TestRecordUnknownRunFails(t *testing.T) {
	svc := newTestService(t)
	if err := svc.Record(context.Background(), tickRecord(1, 32.88, -117.23, 0, nil)); err == nil {
		t.Fatal("expected samples of an unknown run to be rejected")
	}
}

func TestSummary(t *testing.T) {
	svc := newTestService(t)
	if err := svc.StartRun("run-1", 1); err != nil {
		t.Fatalf("start run: %v", err)
	}

	records := []simulation.TickRecord{
		tickRecord(1, 32.8800, -117.2340, 350, ptr(4)),
		tickRecord(2, 0, 0, 0, nil),
		tickRecord(3, 32.8801, -117.2340, 10, ptr(6)),
		tickRecord(4, 32.8802, -117.2340, 0, nil),
	}
	for _, rec := range records {
		if err := svc.Record(context.Background(), rec); err != nil {
			t.Fatalf("record tick %d: %v", rec.Tick, err)
		}
	}

	summary, err := svc.Summary("run-1", 0)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary.Samples != 4 || summary.WithFix != 3 {
		t.Fatalf("unexpected counts %d/%d", summary.Samples, summary.WithFix)
	}
	if summary.MeanSpeed != 5 || math.Abs(summary.StdDevSpeed-math.Sqrt2) > 1e-9 {
		t.Fatalf("unexpected speed stats %v/%v", summary.MeanSpeed, summary.StdDevSpeed)
	}
	if summary.MeanAccuracy != 5 || summary.AccuracyP95 != 5 {
		t.Fatalf("unexpected accuracy %v/%v", summary.MeanAccuracy, summary.AccuracyP95)
	}
	if h := summary.MeanHeading; h > 0.5 && h < 359.5 {
		t.Fatalf("expected circular mean near north, got %v", h)
	}
	if math.Abs(summary.CentroidLat-32.8801) > 1e-9 {
		t.Fatalf("unexpected centroid %v", summary.CentroidLat)
	}
	if d := summary.DistanceM; d < 22 || d > 22.5 {
		t.Fatalf("expected about 22.2 m, got %v", d)
	}
}

func TestSummaryWithoutSamples(t *testing.T) {
	svc := newTestService(t)

	summary, err := svc.Summary("missing", 3)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary.Samples != 0 || summary.WithFix != 0 || summary.DistanceM != 0 {
		t.Fatalf("expected empty summary, got %+v", summary)
	}
}

func TestGetSamplesGeohashFilter(t *testing.T) {
	svc := newTestService(t)
	if err := svc.StartRun("run-1", 1); err != nil {
		t.Fatalf("start run: %v", err)
	}
	if err := svc.Record(context.Background(), tickRecord(1, 32.882588, -117.234583, 0, nil)); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := svc.Record(context.Background(), tickRecord(2, 0, 0, 0, nil)); err != nil {
		t.Fatalf("record sentinel: %v", err)
	}

	cell := spatial.EncodeGeohash(32.882588, -117.234583, 6)
	resp, err := svc.GetSamples(models.ReplaySampleFilter{RunID: "run-1", Geohash: cell})
	if err != nil {
		t.Fatalf("get samples: %v", err)
	}
	if resp.Total != 1 || resp.Data[0].Tick != 1 {
		t.Fatalf("expected only the fix inside %s, got %+v", cell, resp.Data)
	}

	if _, err := svc.GetSamples(models.ReplaySampleFilter{Geohash: "9mu%"}); !errors.Is(err, ErrInvalidFilter) {
		t.Fatalf("expected invalid filter, got %v", err)
	}
}
