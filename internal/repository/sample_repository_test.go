package repository

import (
	"path/filepath"
	"testing"

	"github.com/jengzang/location-replay-go/internal/database"
	"github.com/jengzang/location-replay-go/internal/models"
)

func newTestRepository(t *testing.T) *SampleRepository {
	t.Helper()
	conn, err := database.Open(filepath.Join(t.TempDir(), "replay.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	if err := database.NewMigrationManager(conn).RunMigrations(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewSampleRepository(conn)
}

func seed(t *testing.T, repo *SampleRepository, runID string, ticks, providers int) {
	t.Helper()
	if err := repo.CreateRun(models.ReplayRun{ID: runID, Providers: providers, StartedAt: "2024-03-01T09:30:00Z"}); err != nil {
		t.Fatalf("create run: %v", err)
	}

	var samples []models.ReplaySample
	for tick := 1; tick <= ticks; tick++ {
		for p := 0; p < providers; p++ {
			s := models.ReplaySample{
				RunID:         runID,
				Tick:          int64(tick),
				ProviderIndex: p,
				ProviderName:  "walker",
				Latitude:      32.88 + float64(tick)*0.0001,
				Longitude:     -117.23,
				Geohash:       []string{"9mudqv", "9mudrw"}[tick%2],
				HasFix:        true,
				StateVariant:  "minimal",
				StateJSON:     `{"LYING_DOWN":false}`,
				RecordedAt:    "2024-03-01T09:30:00Z",
			}
			if tick%2 == 0 {
				speed := float64(tick)
				s.Speed = &speed
			}
			samples = append(samples, s)
		}
	}
	if err := repo.InsertSamples(samples); err != nil {
		t.Fatalf("insert: %v", err)
	}
}

func TestGetSamplesFiltersAndPaginates(t *testing.T) {
	repo := newTestRepository(t)
	seed(t, repo, "run-1", 10, 2)
	seed(t, repo, "run-2", 3, 1)

	provider := 1
	samples, total, err := repo.GetSamples(models.ReplaySampleFilter{
		RunID:         "run-1",
		ProviderIndex: &provider,
		FromTick:      3,
		ToTick:        8,
		Page:          2,
		PageSize:      4,
	})
	if err != nil {
		t.Fatalf("get samples: %v", err)
	}
	if total != 6 {
		t.Fatalf("expected 6 matching samples, got %d", total)
	}
	if len(samples) != 2 || samples[0].Tick != 7 || samples[1].Tick != 8 {
		t.Fatalf("unexpected second page %+v", samples)
	}
	if samples[0].Speed != nil || samples[1].Speed == nil || *samples[1].Speed != 8 {
		t.Fatal("expected nullable speed to round-trip")
	}
}

func TestGetSamplesDefaults(t *testing.T) {
	repo := newTestRepository(t)
	seed(t, repo, "run-1", 3, 2)

	samples, total, err := repo.GetSamples(models.ReplaySampleFilter{})
	if err != nil {
		t.Fatalf("get samples: %v", err)
	}
	if total != 6 || len(samples) != 6 {
		t.Fatalf("expected all 6 samples, got %d/%d", len(samples), total)
	}
	if samples[0].Tick != 1 || samples[0].ProviderIndex != 0 || samples[1].ProviderIndex != 1 {
		t.Fatalf("expected tick/provider order, got %+v", samples[:2])
	}
}

func TestGetLatest(t *testing.T) {
	repo := newTestRepository(t)
	seed(t, repo, "run-1", 5, 2)

	latest, err := repo.GetLatest("run-1", 1)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest == nil || latest.Tick != 5 || latest.ProviderIndex != 1 {
		t.Fatalf("unexpected latest %+v", latest)
	}

	missing, err := repo.GetLatest("run-1", 7)
	if err != nil || missing != nil {
		t.Fatalf("expected no sample, got %+v (%v)", missing, err)
	}
}

func TestInsertSamplesUnknownRunRollsBack(t *testing.T) {
	repo := newTestRepository(t)
	seed(t, repo, "run-1", 1, 1)

	err := repo.InsertSamples([]models.ReplaySample{
		{RunID: "run-1", Tick: 2, ProviderName: "walker", RecordedAt: "2024-03-01T09:30:01Z"},
		{RunID: "nope", Tick: 2, ProviderName: "walker", RecordedAt: "2024-03-01T09:30:01Z"},
	})
	if err == nil {
		t.Fatal("expected foreign key violation")
	}

	_, total, err := repo.GetSamples(models.ReplaySampleFilter{RunID: "run-1"})
	if err != nil {
		t.Fatalf("get samples: %v", err)
	}
	if total != 1 {
		t.Fatalf("expected batch rolled back, got %d samples", total)
	}
}

func TestGetRun(t *testing.T) {
	repo := newTestRepository(t)
	seed(t, repo, "run-1", 1, 3)

	run, err := repo.GetRun("run-1")
	if err != nil || run == nil || run.Providers != 3 {
		t.Fatalf("unexpected run %+v (%v)", run, err)
	}
	if run, err := repo.GetRun("other"); err != nil || run != nil {
		t.Fatalf("expected no run, got %+v (%v)", run, err)
	}
}

func TestGetSamplesGeohashPrefix(t *testing.T) {
	repo := newTestRepository(t)
	seed(t, repo, "run-1", 6, 1)

	tests := []struct {
		prefix string
		want   int64
	}{
		{prefix: "9mud", want: 6},
		{prefix: "9mudq", want: 3},
		{prefix: "9mudrw", want: 3},
		{prefix: "9mue", want: 0},
	}
	for _, tt := range tests {
		samples, total, err := repo.GetSamples(models.ReplaySampleFilter{RunID: "run-1", Geohash: tt.prefix})
		if err != nil {
			t.Fatalf("get samples %s: %v", tt.prefix, err)
		}
		if total != tt.want || int64(len(samples)) != tt.want {
			t.Fatalf("prefix %s: expected %d samples, got %d/%d", tt.prefix, tt.want, len(samples), total)
		}
		for _, s := range samples {
			if s.Geohash[:len(tt.prefix)] != tt.prefix {
				t.Fatalf("prefix %s matched %s", tt.prefix, s.Geohash)
			}
		}
	}
}
