package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/jengzang/location-replay-go/internal/models"
	"github.com/jengzang/location-replay-go/internal/repository"
	"github.com/jengzang/location-replay-go/internal/simulation"
	"github.com/jengzang/location-replay-go/internal/spatial"
)

// GeohashPrecision is the geohash length stored with each sample (~5 m cells)
const GeohashPrecision = 9

// ErrInvalidFilter is returned for sample queries that cannot be run
var ErrInvalidFilter = errors.New("invalid sample filter")

// ReplayService persists simulation ticks and answers queries over them
type ReplayService struct {
	sampleRepo *repository.SampleRepository
	now        func() time.Time
}

// NewReplayService creates a new replay service
func NewReplayService(sampleRepo *repository.SampleRepository) *ReplayService {
	return &ReplayService{
		sampleRepo: sampleRepo,
		now:        time.Now,
	}
}

// StartRun records a new run
func (s *ReplayService) StartRun(runID string, providers int) error {
	err := s.sampleRepo.CreateRun(models.ReplayRun{
		ID:        runID,
		Providers: providers,
		StartedAt: s.now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("failed to start run %s: %w", runID, err)
	}
	return nil
}

// Record stores every provider sample of one tick
func (s *ReplayService) Record(ctx context.Context, rec simulation.TickRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	samples := make([]models.ReplaySample, 0, len(rec.Samples))
	for _, ts := range rec.Samples {
		sample, err := toSample(rec, ts)
		if err != nil {
			return err
		}
		samples = append(samples, sample)
	}

	if err := s.sampleRepo.InsertSamples(samples); err != nil {
		return fmt.Errorf("failed to store tick %d: %w", rec.Tick, err)
	}
	return nil
}

func toSample(rec simulation.TickRecord, ts simulation.TickSample) (models.ReplaySample, error) {
	state, err := json.Marshal(ts.State)
	if err != nil {
		return models.ReplaySample{}, fmt.Errorf("failed to encode state of provider %d: %w", ts.ProviderIndex, err)
	}

	loc := ts.Location
	sample := models.ReplaySample{
		RunID:         rec.RunID,
		Tick:          rec.Tick,
		ProviderIndex: ts.ProviderIndex,
		ProviderName:  ts.ProviderName,
		Agent:         strings.Join(ts.Agents, ","),
		Latitude:      loc.LatitudeLongitude.Lat,
		Longitude:     loc.LatitudeLongitude.Lng,
		Accuracy:      finite(loc.Accuracy),
		Heading:       finite(loc.UserHeading),
		Speed:         loc.SpeedKmPerHour,
		HasFix:        loc.HasFix(),
		StateVariant:  ts.State.Variant(),
		StateJSON:     string(state),
		RecordedAt:    rec.At.Format(time.RFC3339Nano),
	}
	if sample.HasFix {
		sample.Geohash = spatial.EncodeGeohash(sample.Latitude, sample.Longitude, GeohashPrecision)
	}
	return sample, nil
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// GetSamples retrieves persisted samples with filtering and pagination
func (s *ReplayService) GetSamples(filter models.ReplaySampleFilter) (*models.ReplaySamplesResponse, error) {
	if filter.Geohash != "" && !spatial.IsGeohash(filter.Geohash) {
		return nil, fmt.Errorf("%w: geohash %q", ErrInvalidFilter, filter.Geohash)
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 100
	}
	if filter.PageSize > 1000 {
		filter.PageSize = 1000
	}

	samples, total, err := s.sampleRepo.GetSamples(filter)
	if err != nil {
		return nil, fmt.Errorf("failed to get samples: %w", err)
	}
	if samples == nil {
		samples = []models.ReplaySample{}
	}

	return &models.ReplaySamplesResponse{
		Data:       samples,
		Total:      total,
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		TotalPages: int(math.Ceil(float64(total) / float64(filter.PageSize))),
	}, nil
}

// GetLatest retrieves the newest persisted sample of one provider
func (s *ReplayService) GetLatest(runID string, providerIndex int) (*models.ReplaySample, error) {
	sample, err := s.sampleRepo.GetLatest(runID, providerIndex)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest sample: %w", err)
	}
	return sample, nil
}

// Summary aggregates the persisted samples of one provider. Only samples
// with a fix contribute to the spatial and motion figures.
func (s *ReplayService) Summary(runID string, providerIndex int) (*models.ProviderSummary, error) {
	samples, err := s.sampleRepo.GetProviderSamples(runID, providerIndex)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize provider %d: %w", providerIndex, err)
	}

	summary := &models.ProviderSummary{
		RunID:         runID,
		ProviderIndex: providerIndex,
		Samples:       len(samples),
		GeneratedAt:   s.now().UTC().Format(time.RFC3339),
	}

	var (
		points     []spatial.Point
		accuracies []float64
		headings   []float64
		speeds     []float64
	)
	for _, sample := range samples {
		if !sample.HasFix {
			continue
		}
		points = append(points, spatial.Point{Lat: sample.Latitude, Lon: sample.Longitude})
		accuracies = append(accuracies, sample.Accuracy)
		headings = append(headings, sample.Heading)
		if sample.Speed != nil {
			speeds = append(speeds, *sample.Speed)
		}
	}

	summary.WithFix = len(points)
	if len(points) == 0 {
		return summary, nil
	}

	summary.MeanAccuracy = stat.Mean(accuracies, nil)
	sort.Float64s(accuracies)
	summary.AccuracyP95 = stat.Quantile(0.95, stat.Empirical, accuracies, nil)
	summary.MeanHeading = spatial.CircularMeanDegrees(headings)
	if len(speeds) > 0 {
		summary.MeanSpeed, summary.StdDevSpeed = stat.MeanStdDev(speeds, nil)
		if math.IsNaN(summary.StdDevSpeed) {
			summary.StdDevSpeed = 0
		}
	}

	centroid := spatial.Centroid(points)
	summary.CentroidLat = centroid.Lat
	summary.CentroidLng = centroid.Lon
	summary.DistanceM = spatial.PathLength(points)
	return summary, nil
}
