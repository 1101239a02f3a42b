package models

// ReplaySample is one persisted provider reading, captured at a simulation tick
type ReplaySample struct {
	ID            int64    `json:"id" db:"id"`
	RunID         string   `json:"runId" db:"run_id"`
	Tick          int64    `json:"tick" db:"tick"`
	ProviderIndex int      `json:"providerIndex" db:"provider_index"`
	ProviderName  string   `json:"providerName" db:"provider_name"`
	Agent         string   `json:"agent,omitempty" db:"agent"`
	Latitude      float64  `json:"latitude" db:"latitude"`
	Longitude     float64  `json:"longitude" db:"longitude"`
	Geohash       string   `json:"geohash" db:"geohash"` // empty when the sample has no fix
	Accuracy      float64  `json:"accuracy" db:"accuracy"`
	Heading       float64  `json:"heading" db:"heading"`
	Speed         *float64 `json:"speed,omitempty" db:"speed"` // km/h
	HasFix        bool     `json:"hasFix" db:"has_fix"`
	StateVariant  string   `json:"stateVariant" db:"state_variant"`
	StateJSON     string   `json:"state" db:"state_json"`
	RecordedAt    string   `json:"recordedAt" db:"recorded_at"` // RFC3339
}

// ReplaySamplesResponse represents a paginated response of samples
type ReplaySamplesResponse struct {
	Data       []ReplaySample `json:"data"`
	Total      int64          `json:"total"`
	Page       int            `json:"page"`
	PageSize   int            `json:"pageSize"`
	TotalPages int            `json:"totalPages"`
}

// ReplaySampleFilter represents filter parameters for querying samples
type ReplaySampleFilter struct {
	RunID         string `form:"runId"`
	ProviderIndex *int   `form:"providerIndex"`
	FromTick      int64  `form:"fromTick"`
	ToTick        int64  `form:"toTick"`
	Geohash       string `form:"geohash"` // cell prefix
	Page          int    `form:"page"`
	PageSize      int    `form:"pageSize"`
}

// ReplayRun is one simulation run
type ReplayRun struct {
	ID        string `json:"id" db:"id"`
	Providers int    `json:"providers" db:"providers"`
	StartedAt string `json:"startedAt" db:"started_at"`
}

// ProviderSnapshot is the current reading of one pooled provider
type ProviderSnapshot struct {
	Index    int       `json:"index"`
	Name     string    `json:"name"`
	Kind     string    `json:"kind"`
	Location Location  `json:"location"`
	State    UserState `json:"state"`
}

// AgentSnapshot is the presentation view of one registered consumer
type AgentSnapshot struct {
	Name          string    `json:"name"`
	ProviderIndex int       `json:"providerIndex"`
	Location      Location  `json:"location"`
	State         UserState `json:"state"`
	Status        string    `json:"status"`
	Battery       string    `json:"battery,omitempty"`
	BatteryLow    bool      `json:"batteryLow,omitempty"`
	DistanceM     float64   `json:"distanceMeters"`
}

// ProviderSummary aggregates persisted samples of one provider
type ProviderSummary struct {
	RunID         string  `json:"runId"`
	ProviderIndex int     `json:"providerIndex"`
	Samples       int     `json:"samples"`
	WithFix       int     `json:"withFix"`
	MeanSpeed     float64 `json:"meanSpeed"`
	StdDevSpeed   float64 `json:"stdDevSpeed"`
	MeanAccuracy  float64 `json:"meanAccuracy"`
	AccuracyP95   float64 `json:"accuracyP95"`
	MeanHeading   float64 `json:"meanHeading"` // circular mean, degrees
	CentroidLat   float64 `json:"centroidLat"`
	CentroidLng   float64 `json:"centroidLng"`
	DistanceM     float64 `json:"distanceMeters"`
	GeneratedAt   string  `json:"generatedAt"`
}
