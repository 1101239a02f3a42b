package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jengzang/location-replay-go/internal/database"
	"github.com/jengzang/location-replay-go/internal/models"
	"github.com/jengzang/location-replay-go/internal/spatial"
)

const sampleColumns = `id, run_id, tick, provider_index, provider_name, agent, latitude, longitude,
	geohash, accuracy, heading, speed, has_fix, state_variant, state_json, recorded_at`

// SampleRepository handles database operations for replay runs and samples
type SampleRepository struct {
	db *sql.DB
}

// NewSampleRepository creates a new sample repository
func NewSampleRepository(db *sql.DB) *SampleRepository {
	return &SampleRepository{db: db}
}

// CreateRun records the start of a simulation run
func (r *SampleRepository) CreateRun(run models.ReplayRun) error {
	_, err := r.db.Exec("INSERT INTO replay_runs (id, providers, started_at) VALUES (?, ?, ?)",
		run.ID, run.Providers, run.StartedAt)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}
	return nil
}

// GetRun retrieves a run by id; nil when absent
func (r *SampleRepository) GetRun(id string) (*models.ReplayRun, error) {
	var run models.ReplayRun
	err := r.db.QueryRow("SELECT id, providers, started_at FROM replay_runs WHERE id = ?", id).
		Scan(&run.ID, &run.Providers, &run.StartedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return &run, nil
}

// InsertSamples stores a batch of samples in one transaction
func (r *SampleRepository) InsertSamples(samples []models.ReplaySample) error {
	if len(samples) == 0 {
		return nil
	}

	return database.Transaction(r.db, func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(`INSERT INTO replay_samples (run_id, tick, provider_index, provider_name, agent,
			latitude, longitude, geohash, accuracy, heading, speed, has_fix, state_variant, state_json, recorded_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		for _, s := range samples {
			_, err := stmt.Exec(s.RunID, s.Tick, s.ProviderIndex, s.ProviderName, s.Agent,
				s.Latitude, s.Longitude, s.Geohash, s.Accuracy, s.Heading, s.Speed, s.HasFix,
				s.StateVariant, s.StateJSON, s.RecordedAt)
			if err != nil {
				return fmt.Errorf("failed to insert sample for tick %d: %w", s.Tick, err)
			}
		}
		return nil
	})
}

// GetSamples retrieves samples with filtering and pagination, ordered by
// tick then provider
func (r *SampleRepository) GetSamples(filter models.ReplaySampleFilter) ([]models.ReplaySample, int64, error) {
	var conditions []string
	var args []interface{}

	if filter.RunID != "" {
		conditions = append(conditions, "run_id = ?")
		args = append(args, filter.RunID)
	}
	if filter.ProviderIndex != nil {
		conditions = append(conditions, "provider_index = ?")
		args = append(args, *filter.ProviderIndex)
	}
	if filter.FromTick > 0 {
		conditions = append(conditions, "tick >= ?")
		args = append(args, filter.FromTick)
	}
	if filter.ToTick > 0 {
		conditions = append(conditions, "tick <= ?")
		args = append(args, filter.ToTick)
	}
	if filter.Geohash != "" {
		lo, hi := spatial.GeohashPrefixRange(filter.Geohash)
		conditions = append(conditions, "geohash >= ? AND geohash < ?")
		args = append(args, lo, hi)
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int64
	if err := r.db.QueryRow("SELECT COUNT(*) FROM replay_samples"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count samples: %w", err)
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

	offset := (filter.Page - 1) * filter.PageSize
	query := "SELECT " + sampleColumns + " FROM replay_samples" + where +
		" ORDER BY tick, provider_index, id LIMIT ? OFFSET ?"
	args = append(args, filter.PageSize, offset)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query samples: %w", err)
	}
	defer rows.Close()

	samples, err := scanSamples(rows)
	if err != nil {
		return nil, 0, err
	}
	return samples, total, nil
}

// GetLatest retrieves the most recent sample of one provider; nil when
// the provider has none
func (r *SampleRepository) GetLatest(runID string, providerIndex int) (*models.ReplaySample, error) {
	rows, err := r.db.Query("SELECT "+sampleColumns+` FROM replay_samples
		WHERE run_id = ? AND provider_index = ? ORDER BY tick DESC, id DESC LIMIT 1`, runID, providerIndex)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest sample: %w", err)
	}
	defer rows.Close()

	samples, err := scanSamples(rows)
	if err != nil {
		return nil, err
	}
	if len(samples) == 0 {
		return nil, nil
	}
	return &samples[0], nil
}

// GetProviderSamples retrieves every sample of one provider in tick order
func (r *SampleRepository) GetProviderSamples(runID string, providerIndex int) ([]models.ReplaySample, error) {
	rows, err := r.db.Query("SELECT "+sampleColumns+` FROM replay_samples
		WHERE run_id = ? AND provider_index = ? ORDER BY tick, id`, runID, providerIndex)
	if err != nil {
		return nil, fmt.Errorf("failed to query provider samples: %w", err)
	}
	defer rows.Close()

	return scanSamples(rows)
}

func scanSamples(rows *sql.Rows) ([]models.ReplaySample, error) {
	var samples []models.ReplaySample
	for rows.Next() {
		var s models.ReplaySample
		var speed sql.NullFloat64
		err := rows.Scan(
			&s.ID, &s.RunID, &s.Tick, &s.ProviderIndex, &s.ProviderName, &s.Agent,
			&s.Latitude, &s.Longitude, &s.Geohash, &s.Accuracy, &s.Heading, &speed,
			&s.HasFix, &s.StateVariant, &s.StateJSON, &s.RecordedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sample: %w", err)
		}
		if speed.Valid {
			v := speed.Float64
			s.Speed = &v
		}
		samples = append(samples, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate samples: %w", err)
	}
	return samples, nil
}
